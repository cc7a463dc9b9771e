package licenses

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/soundlease/soundlease-backend/internal/chain"
)

// fakeChain keeps issuance state in memory so the full issue/list/deactivate
// cycle can run against one backend.
type fakeChain struct {
	head    uint64
	counter int64
	events  []chain.IssuedEvent
	active  map[string]bool
	now     func() time.Time
}

func newFakeChain(now func() time.Time) *fakeChain {
	return &fakeChain{head: 50000, active: map[string]bool{}, now: now}
}

func (f *fakeChain) HeadBlock(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeChain) FilterIssuedByCreator(ctx context.Context, fromBlock uint64, creator common.Address) ([]chain.IssuedEvent, error) {
	var out []chain.IssuedEvent
	for _, event := range f.events {
		if event.Creator == creator {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeChain) FilterIssuedByLicensee(ctx context.Context, fromBlock uint64, licensee common.Address) ([]chain.IssuedEvent, error) {
	var out []chain.IssuedEvent
	for _, event := range f.events {
		if event.Licensee == licensee {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeChain) IsLicenseActive(ctx context.Context, licenseID *big.Int) (bool, error) {
	return f.active[licenseID.String()], nil
}

func (f *fakeChain) IssueLicense(ctx context.Context, licensee common.Address, licenseType uint8, durationDays uint64, contentRef string) (chain.IssueReceipt, error) {
	id := big.NewInt(f.counter)
	f.counter++
	start := uint64(f.now().Unix())
	f.events = append(f.events, chain.IssuedEvent{
		LicenseID:      id,
		Creator:        accountA,
		Licensee:       licensee,
		LicenseType:    licenseType,
		StartTimestamp: start,
		EndTimestamp:   start + durationDays*86400,
		ContentRef:     contentRef,
	})
	f.active[id.String()] = true
	f.head++
	return chain.IssueReceipt{LicenseID: id, TxHash: common.HexToHash("0xfeed")}, nil
}

func (f *fakeChain) DeactivateLicense(ctx context.Context, licenseID *big.Int) (common.Hash, error) {
	f.active[licenseID.String()] = false
	return common.HexToHash("0xdead"), nil
}

func TestLicenseLifecycle(t *testing.T) {
	now := func() time.Time { return time.Unix(1700000000, 0) }
	backend := newFakeChain(now)
	resolver := &stubResolver{docs: map[string]Metadata{
		"QmMeta": {Title: "Night Drive", Artist: "Mol", AudioHash: "QmAudio"},
	}}
	pins := &stubPinner{fileRefs: map[string]string{"audio/mpeg": "QmAudio"}, jsonRef: "QmMeta"}

	svc, err := NewService(backend, backend, resolver, pins, 10000, nil, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	svc.(*service).now = now
	ctx := context.Background()

	result, err := svc.Issue(ctx, validIssueInput())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// The creator sees the new license with creator role and live metadata.
	asCreator, err := svc.ListForAccount(ctx, accountA.Hex(), FilterAll)
	if err != nil {
		t.Fatalf("ListForAccount(creator) returned error: %v", err)
	}
	if len(asCreator) != 1 {
		t.Fatalf("expected one license for the creator, got %d", len(asCreator))
	}
	issued := asCreator[0]
	if issued.ID != result.LicenseID || issued.Role != RoleCreator || !issued.IsActive {
		t.Fatalf("unexpected creator view %+v", issued)
	}
	if issued.TypeLabel != "Streaming" || issued.EndTimestamp-issued.StartTimestamp != 30*86400 {
		t.Fatalf("unexpected terms %+v", issued)
	}
	if issued.Metadata.Title != "Night Drive" || issued.AudioURL == "" {
		t.Fatalf("expected hydrated metadata, got %+v", issued)
	}

	// The licensee sees the same license under the licensee role.
	asLicensee, err := svc.ListForAccount(ctx, accountB.Hex(), FilterAll)
	if err != nil {
		t.Fatalf("ListForAccount(licensee) returned error: %v", err)
	}
	if len(asLicensee) != 1 || asLicensee[0].ID != issued.ID || asLicensee[0].Role != RoleLicensee {
		t.Fatalf("unexpected licensee view %+v", asLicensee)
	}

	if _, err := svc.Deactivate(ctx, issued.ID); err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}

	// Both views flip to inactive; the event itself never disappears.
	for _, account := range []common.Address{accountA, accountB} {
		out, err := svc.ListForAccount(ctx, account.Hex(), FilterAll)
		if err != nil {
			t.Fatalf("ListForAccount after deactivation returned error: %v", err)
		}
		if len(out) != 1 || out[0].IsActive {
			t.Fatalf("expected one inactive license for %s, got %+v", account.Hex(), out)
		}
	}

	// Repeating the call is harmless; the flag just stays down.
	if _, err := svc.Deactivate(ctx, issued.ID); err != nil {
		t.Fatalf("second Deactivate returned error: %v", err)
	}
}
