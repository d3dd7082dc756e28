package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/mfcctl/internal/session"
)

// mapSessionError maps session errors to HTTP errors.
func (s *Server) mapSessionError(err error) error {
	var serr *session.Error
	if !errors.As(err, &serr) {
		return huma.Error500InternalServerError("internal server error", err)
	}
	switch serr.Code {
	case session.ErrCodeContextNotFound:
		return huma.Error404NotFound(serr.Message)
	case session.ErrCodeBusy, session.ErrCodeIdle:
		return huma.Error409Conflict(serr.Message)
	case session.ErrCodeInvalidParams:
		return huma.Error400BadRequest(serr.Message, err)
	default:
		return huma.Error500InternalServerError(serr.Message, err)
	}
}
