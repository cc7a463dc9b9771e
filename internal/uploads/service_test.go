package uploads

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	pkgerrors "github.com/soundlease/soundlease-backend/pkg/errors"
)

type stubPinner struct {
	hash     string
	err      error
	calls    int
	lastName string
}

func (s *stubPinner) PinFile(ctx context.Context, name, contentType string, payload io.Reader) (string, error) {
	s.calls++
	s.lastName = name
	if s.err != nil {
		return "", s.err
	}
	return s.hash, nil
}

func TestDetectKind(t *testing.T) {
	cases := []struct {
		contentType string
		fileName    string
		want        Kind
		wantErr     bool
	}{
		{"audio/mpeg", "track.mp3", KindAudio, false},
		{"audio/wav; rate=44100", "track.wav", KindAudio, false},
		{"image/png", "cover.png", KindImage, false},
		{"application/json", "terms.json", KindDocument, false},
		{"application/octet-stream", "terms.json", KindDocument, false},
		{"application/octet-stream", "terms.JSON", KindDocument, false},
		{"application/octet-stream", "track.mp3", "", true},
		{"text/plain", "notes.txt", "", true},
		{"video/mp4", "clip.mp4", "", true},
		{"", "terms.json", "", true},
	}
	for _, tc := range cases {
		kind, err := DetectKind(tc.contentType, tc.fileName)
		if tc.wantErr {
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("%s %s: expected validation error, got %v", tc.contentType, tc.fileName, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s %s: unexpected error %v", tc.contentType, tc.fileName, err)
		}
		if kind != tc.want {
			t.Fatalf("%s %s: expected %s, got %s", tc.contentType, tc.fileName, tc.want, kind)
		}
	}
}

func TestPin_Success(t *testing.T) {
	pins := &stubPinner{hash: "QmUpload"}
	svc, err := NewService(pins, nil, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	result, err := svc.Pin(context.Background(), Input{
		FileName:    "track.mp3",
		ContentType: "audio/mpeg",
		Data:        strings.NewReader("riff"),
	})
	if err != nil {
		t.Fatalf("Pin returned error: %v", err)
	}
	if result.Status != "success" || result.IpfsHash != "QmUpload" || result.FileType != KindAudio {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.DocumentID == "" {
		t.Fatal("expected a document id")
	}
	if !strings.HasPrefix(pins.lastName, "track.mp3_") {
		t.Fatalf("expected timestamped pin name, got %q", pins.lastName)
	}
}

func TestPin_RejectsUnsupportedType(t *testing.T) {
	pins := &stubPinner{hash: "QmUpload"}
	svc, _ := NewService(pins, nil, nil)

	_, err := svc.Pin(context.Background(), Input{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Data:        strings.NewReader("hello"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if pins.calls != 0 {
		t.Fatal("rejected upload must not reach the pinning provider")
	}
}

func TestPin_UpstreamFailure(t *testing.T) {
	pins := &stubPinner{err: errors.New("pinata 502")}
	svc, _ := NewService(pins, nil, nil)

	_, err := svc.Pin(context.Background(), Input{
		FileName:    "track.mp3",
		ContentType: "audio/mpeg",
		Data:        strings.NewReader("riff"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
