package licenses

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/soundlease/soundlease-backend/internal/chain"
	pkgerrors "github.com/soundlease/soundlease-backend/pkg/errors"
	"github.com/soundlease/soundlease-backend/pkg/logger"
	"github.com/soundlease/soundlease-backend/pkg/metrics"
)

const hydrationLimit = 8

type chainReader interface {
	HeadBlock(ctx context.Context) (uint64, error)
	FilterIssuedByCreator(ctx context.Context, fromBlock uint64, creator common.Address) ([]chain.IssuedEvent, error)
	FilterIssuedByLicensee(ctx context.Context, fromBlock uint64, licensee common.Address) ([]chain.IssuedEvent, error)
	IsLicenseActive(ctx context.Context, licenseID *big.Int) (bool, error)
}

type chainWriter interface {
	IssueLicense(ctx context.Context, licensee common.Address, licenseType uint8, durationDays uint64, contentRef string) (chain.IssueReceipt, error)
	DeactivateLicense(ctx context.Context, licenseID *big.Int) (common.Hash, error)
}

type metadataResolver interface {
	Resolve(ctx context.Context, cid string) Metadata
	GatewayURL(cid string) string
}

type pinner interface {
	PinFile(ctx context.Context, name, contentType string, payload io.Reader) (string, error)
	PinJSON(ctx context.Context, name string, content any) (string, error)
}

// Service reconstructs license sets from chain logs and drives the
// issuance/deactivation write flows.
type Service interface {
	ListForAccount(ctx context.Context, account string, filter Filter) ([]License, error)
	Issue(ctx context.Context, input IssueInput) (*IssueResult, error)
	Deactivate(ctx context.Context, licenseID string) (string, error)
}

type service struct {
	reader   chainReader
	writer   chainWriter
	resolver metadataResolver
	pins     pinner
	lookback uint64
	logg     *logger.Logger
	metrics  *metrics.LicensingMetrics
	now      func() time.Time
}

// NewService wires the aggregation and issuance pipelines.
func NewService(reader chainReader, writer chainWriter, resolver metadataResolver, pins pinner, lookback uint64, logg *logger.Logger, m *metrics.LicensingMetrics) (Service, error) {
	if reader == nil {
		return nil, fmt.Errorf("chain reader required")
	}
	if writer == nil {
		return nil, fmt.Errorf("chain writer required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("metadata resolver required")
	}
	if pins == nil {
		return nil, fmt.Errorf("pinning client required")
	}
	if lookback == 0 {
		return nil, fmt.Errorf("lookback window must be positive")
	}
	return &service{
		reader:   reader,
		writer:   writer,
		resolver: resolver,
		pins:     pins,
		lookback: lookback,
		logg:     logg,
		metrics:  m,
		now:      time.Now,
	}, nil
}

// Deactivate submits the one-way deactivation call for a license.
func (s *service) Deactivate(ctx context.Context, licenseID string) (string, error) {
	id, ok := new(big.Int).SetString(licenseID, 10)
	if !ok || id.Sign() < 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "license id must be a non-negative integer")
	}

	hash, err := s.writer.DeactivateLicense(ctx, id)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate license")
	}

	s.metrics.IncDeactivated()
	if s.logg != nil {
		s.logg.Info(s.logg.WithLicenseID(ctx, licenseID), "license deactivated")
	}
	return hash.Hex(), nil
}
