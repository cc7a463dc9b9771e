package licenses

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	pkgerrors "github.com/soundlease/soundlease-backend/pkg/errors"
)

// Upload is one in-memory file handed to the issuance pipeline.
type Upload struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// IssueInput carries the form fields and payloads for one issuance.
type IssueInput struct {
	Licensee     string
	LicenseType  int
	DurationDays uint64

	Title       string
	Artist      string
	Description string
	Terms       string

	Audio *Upload
	Image *Upload
}

// IssueResult reports the refs produced by the pipeline and the on-chain
// outcome.
type IssueResult struct {
	LicenseID   string `json:"license_id"`
	TxHash      string `json:"tx_hash"`
	MetadataRef string `json:"metadata_ref"`
	AudioRef    string `json:"audio_ref"`
	ImageRef    string `json:"image_ref,omitempty"`
}

// Issue runs the ordered issuance pipeline: pin audio, pin optional image,
// assemble and pin the metadata document, then submit the contract call.
// Every pin step must succeed before the irrevocable chain write; a failing
// step aborts the flow with nothing on-chain. Orphaned pins are accepted.
func (s *service) Issue(ctx context.Context, input IssueInput) (*IssueResult, error) {
	if !common.IsHexAddress(input.Licensee) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "licensee must be a hex address")
	}
	if !ValidType(input.LicenseType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown license type")
	}
	if input.DurationDays == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be at least one day")
	}
	if input.Audio == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audio file is required")
	}

	audioRef, err := s.pinUpload(ctx, "audio", input.Audio)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pin audio payload")
	}

	imageRef := ""
	if input.Image != nil {
		imageRef, err = s.pinUpload(ctx, "image", input.Image)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pin image payload")
		}
	}

	doc := Metadata{
		Title:       strings.TrimSpace(input.Title),
		Artist:      strings.TrimSpace(input.Artist),
		Description: strings.TrimSpace(input.Description),
		AudioHash:   audioRef,
		ImageHash:   imageRef,
		Terms:       strings.TrimSpace(input.Terms),
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
	}

	metadataRef, err := s.pins.PinJSON(ctx, s.pinName("metadata.json"), doc)
	if err != nil {
		s.metrics.IncPin("json", "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pin metadata document")
	}
	s.metrics.IncPin("json", "ok")

	receipt, err := s.writer.IssueLicense(ctx, common.HexToAddress(input.Licensee), uint8(input.LicenseType), input.DurationDays, metadataRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit issuance transaction")
	}

	s.metrics.IncIssued()
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"license_id": receipt.LicenseID.String(),
			"tx_hash":    receipt.TxHash.Hex(),
			"licensee":   input.Licensee,
		})
		s.logg.Info(ctx, "license issued")
	}

	return &IssueResult{
		LicenseID:   receipt.LicenseID.String(),
		TxHash:      receipt.TxHash.Hex(),
		MetadataRef: metadataRef,
		AudioRef:    audioRef,
		ImageRef:    imageRef,
	}, nil
}

func (s *service) pinUpload(ctx context.Context, kind string, upload *Upload) (string, error) {
	ref, err := s.pins.PinFile(ctx, s.pinName(upload.Name), upload.ContentType, upload.Data)
	if err != nil {
		s.metrics.IncPin(kind, "error")
		return "", err
	}
	s.metrics.IncPin(kind, "ok")
	return ref, nil
}

// pinName tags uploads with a millisecond timestamp so repeated attempts stay
// distinguishable on the pinning service.
func (s *service) pinName(fileName string) string {
	return fmt.Sprintf("%s_%d", fileName, s.now().UnixMilli())
}
