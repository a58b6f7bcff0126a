package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bucketwiki/bucketwiki/internal/index"
	"github.com/bucketwiki/bucketwiki/internal/objstore"
	"github.com/bucketwiki/bucketwiki/internal/server/dto"
	"github.com/bucketwiki/bucketwiki/internal/wiki"
)

// apiError maps repository errors onto the API error contract. Errors that
// already implement dto.ErrorWithStatus pass through unchanged.
func (s *Services) apiError(err error) error {
	if err == nil {
		return nil
	}
	var ews dto.ErrorWithStatus
	if errors.As(err, &ews) {
		return err
	}

	var conflict *wiki.ConflictError
	switch {
	case errors.As(err, &conflict):
		apiErr := dto.Conflict("page was modified since it was read")
		if conflict.Current != nil {
			cur := pageResponse(conflict.Current)
			apiErr = apiErr.WithDetails(map[string]any{"current": cur})
		}
		return apiErr
	case errors.Is(err, wiki.ErrPageNotFound):
		return dto.NotFound("page")
	case errors.Is(err, wiki.ErrFileNotFound):
		return dto.NotFound("file")
	case errors.Is(err, wiki.ErrPageExists):
		return dto.Conflict("page already exists")
	case errors.Is(err, wiki.ErrInvalidPath):
		return dto.BadRequest(err.Error())
	case errors.Is(err, wiki.ErrFileTooLarge):
		return dto.PayloadTooLarge(s.Files.MaxSize())
	case errors.Is(err, wiki.ErrInvalidFileType):
		return dto.UnsupportedFileType(err.Error())
	case errors.Is(err, index.ErrIndexContention):
		return dto.IndexContention(err)
	case objstore.IsNotFound(err):
		return dto.NotFound("object")
	case objstore.IsTransient(err):
		return dto.StorageError("object store unavailable", err)
	default:
		return dto.InternalWithError("internal error", err)
	}
}

// writeErrorResponse writes an error as a JSON response. Use this in raw
// http.HandlerFunc handlers that bypass the Wrap adapter; the error must
// already be mapped onto the contract (see apiError).
func writeErrorResponse(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := dto.ErrorCodeInternal
	message := "internal error"
	var details map[string]any

	var ews dto.ErrorWithStatus
	if errors.As(err, &ews) {
		statusCode = ews.StatusCode()
		errorCode = ews.Code()
		message = ews.Error()
		details = ews.Details()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := dto.ErrorResponse{
		Error:   dto.ErrorDetails{Code: errorCode, Message: message},
		Details: details,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "err", err)
	}
}
