package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrThrottled  = errors.New("too many requests")
	ErrExport     = errors.New("export failed")
)

// KindError tags an error with the handler operation and a sentinel kind.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// WrapKind returns err tagged with kind and op.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

// serviceStatus maps a service error to its HTTP status and error code.
func serviceStatus(err error) (int, string) {
	switch service.KindOf(err) {
	case service.KindAuthorization:
		return http.StatusForbidden, "forbidden"
	case service.KindValidation:
		return http.StatusBadRequest, "bad_request"
	case service.KindConflict:
		return http.StatusConflict, "conflict"
	case service.KindNotFound:
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError renders a service error with its mapped status. Server
// errors only expose the service message; the wrapped cause is logged.
func writeServiceError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	status, code := serviceStatus(err)
	if status < http.StatusInternalServerError {
		writeError(w, status, code, err)
		return
	}
	log.Error(ctx, "request failed", logger.String("code", code), logger.Error(err))
	writeError(w, status, code, errors.New(publicMessage(err)))
}

// publicMessage returns the part of err that is safe to show a caller.
func publicMessage(err error) string {
	var se *service.Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return http.StatusText(http.StatusInternalServerError)
}
