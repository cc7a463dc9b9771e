package uploads

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/soundlease/soundlease-backend/pkg/errors"
	"github.com/soundlease/soundlease-backend/pkg/logger"
	"github.com/soundlease/soundlease-backend/pkg/metrics"
)

// pinner is the slice of the pinning client this service needs.
type pinner interface {
	PinFile(ctx context.Context, name, contentType string, payload io.Reader) (string, error)
}

// Input is one multipart file to pin.
type Input struct {
	FileName    string
	ContentType string
	Data        io.Reader
}

// Result mirrors the pin-proxy response contract.
type Result struct {
	Status     string `json:"status"`
	IpfsHash   string `json:"ipfsHash"`
	FileName   string `json:"fileName"`
	DocumentID string `json:"documentId"`
	FileType   Kind   `json:"fileType"`
}

// Service validates uploads and forwards them to the pinning provider.
type Service interface {
	Pin(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	pins    pinner
	logg    *logger.Logger
	metrics *metrics.LicensingMetrics
	now     func() time.Time
}

func NewService(pins pinner, logg *logger.Logger, m *metrics.LicensingMetrics) (Service, error) {
	if pins == nil {
		return nil, fmt.Errorf("pinning client required")
	}
	return &service{pins: pins, logg: logg, metrics: m, now: time.Now}, nil
}

func (s *service) Pin(ctx context.Context, input Input) (*Result, error) {
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if input.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file payload is required")
	}

	kind, err := DetectKind(input.ContentType, fileName)
	if err != nil {
		return nil, err
	}

	pinName := fmt.Sprintf("%s_%d", fileName, s.now().UnixMilli())
	hash, err := s.pins.PinFile(ctx, pinName, input.ContentType, input.Data)
	if err != nil {
		s.metrics.IncPin(string(kind), "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pin upload")
	}
	s.metrics.IncPin(string(kind), "ok")

	result := &Result{
		Status:     "success",
		IpfsHash:   hash,
		FileName:   fileName,
		DocumentID: uuid.NewString(),
		FileType:   kind,
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"ipfs_hash": hash,
			"file_type": string(kind),
		})
		s.logg.Info(ctx, "upload pinned")
	}
	return result, nil
}
