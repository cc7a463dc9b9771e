package licenses

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/soundlease/soundlease-backend/internal/chain"
	pkgerrors "github.com/soundlease/soundlease-backend/pkg/errors"
)

// ListForAccount reconstructs the viewer's license set from the issuance log
// over the configured lookback window, hydrates each unique event with the
// live active flag and metadata, and applies the requested filter.
//
// Both log queries must succeed; per-item hydration is best-effort and a
// failing item degrades rather than removing itself or failing the batch.
func (s *service) ListForAccount(ctx context.Context, account string, filter Filter) ([]License, error) {
	if !common.IsHexAddress(account) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account must be a hex address")
	}
	viewer := common.HexToAddress(account)
	started := s.now()

	head, err := s.reader.HeadBlock(ctx)
	if err != nil {
		s.metrics.ObserveAggregation("error", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read head block")
	}
	fromBlock := uint64(0)
	if head > s.lookback {
		fromBlock = head - s.lookback
	}

	asCreator, err := s.reader.FilterIssuedByCreator(ctx, fromBlock, viewer)
	if err != nil {
		s.metrics.ObserveAggregation("error", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query issuance log by creator")
	}
	asLicensee, err := s.reader.FilterIssuedByLicensee(ctx, fromBlock, viewer)
	if err != nil {
		s.metrics.ObserveAggregation("error", time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query issuance log by licensee")
	}

	unique := dedupeByID(asCreator, asLicensee)

	results := make([]License, len(unique))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(hydrationLimit)
	for i, event := range unique {
		group.Go(func() error {
			results[i] = s.hydrate(groupCtx, viewer, event)
			return nil
		})
	}
	// Goroutines never return errors; the join always settles.
	_ = group.Wait()

	filtered := applyFilter(results, filter)
	s.metrics.ObserveAggregation("ok", time.Since(started))
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"account":  viewer.Hex(),
			"from":     fromBlock,
			"unique":   len(unique),
			"returned": len(filtered),
		})
		s.logg.Info(ctx, "license aggregation complete")
	}
	return filtered, nil
}

// dedupeByID merges the creator- and licensee-filtered streams, keeping the
// first occurrence of each license id. Creator entries win on overlap.
func dedupeByID(asCreator, asLicensee []chain.IssuedEvent) []chain.IssuedEvent {
	seen := make(map[string]struct{}, len(asCreator)+len(asLicensee))
	unique := make([]chain.IssuedEvent, 0, len(asCreator)+len(asLicensee))
	for _, event := range append(append([]chain.IssuedEvent{}, asCreator...), asLicensee...) {
		key := event.LicenseID.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, event)
	}
	return unique
}

func (s *service) hydrate(ctx context.Context, viewer common.Address, event chain.IssuedEvent) License {
	active, err := s.reader.IsLicenseActive(ctx, event.LicenseID)
	if err != nil {
		active = false
		if s.logg != nil {
			s.logg.Warn(s.logg.WithLicenseID(ctx, event.LicenseID.String()), "active-status read degraded to inactive")
		}
	}

	meta := s.resolver.Resolve(ctx, event.ContentRef)

	role := RoleLicensee
	if event.Creator == viewer {
		role = RoleCreator
	}

	return License{
		ID:             event.LicenseID.String(),
		Creator:        event.Creator.Hex(),
		Licensee:       event.Licensee.Hex(),
		LicenseType:    event.LicenseType,
		TypeLabel:      TypeLabel(event.LicenseType),
		StartTimestamp: event.StartTimestamp,
		EndTimestamp:   event.EndTimestamp,
		ContentRef:     event.ContentRef,
		IsActive:       active,
		Metadata:       meta,
		Role:           role,
		MetadataURL:    s.resolver.GatewayURL(event.ContentRef),
		AudioURL:       s.resolver.GatewayURL(meta.AudioHash),
		ImageURL:       s.resolver.GatewayURL(meta.ImageHash),
	}
}
