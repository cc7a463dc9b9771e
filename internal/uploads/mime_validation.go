package uploads

import (
	"mime"
	"path/filepath"
	"strings"

	pkgerrors "github.com/soundlease/soundlease-backend/pkg/errors"
)

// Kind buckets an accepted upload for the response payload.
type Kind string

const (
	KindAudio    Kind = "audio"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

// DetectKind classifies an upload by its declared content type, falling back
// to the file extension for the generic octet-stream type browsers use for
// JSON documents. Anything else is rejected.
func DetectKind(contentType, fileName string) (Kind, error) {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case strings.HasPrefix(mediaType, "audio/"):
		return KindAudio, nil
	case strings.HasPrefix(mediaType, "image/"):
		return KindImage, nil
	case mediaType == "application/json":
		return KindDocument, nil
	case mediaType == "application/octet-stream" && strings.EqualFold(filepath.Ext(fileName), ".json"):
		return KindDocument, nil
	}

	return "", pkgerrors.New(pkgerrors.CodeValidation, "file must be audio, image, or a JSON document").
		WithDetails(map[string]string{"content_type": contentType})
}
