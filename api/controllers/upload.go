package controllers

import (
	"net/http"

	"github.com/soundlease/soundlease-backend/api/responses"
	"github.com/soundlease/soundlease-backend/internal/uploads"
	pkgerrors "github.com/soundlease/soundlease-backend/pkg/errors"
	"github.com/soundlease/soundlease-backend/pkg/logger"
)

const uploadFieldName = "file"

// Upload proxies one multipart file to the pinning provider.
func Upload(svc uploads.Service, logg *logger.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile(uploadFieldName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart field 'file' is required"))
			return
		}
		defer file.Close()

		result, err := svc.Pin(r.Context(), uploads.Input{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
