package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"
)

// ErrorResponse is the body written by RenderError.
type ErrorResponse struct {
	Status  int    `json:"status" yaml:"status"`
	Message string `json:"message" yaml:"message"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
}

// Render encodes value with the status code, honouring an Accept header
// of application/yaml. A nil value writes only the header.
func Render(w http.ResponseWriter, r *http.Request, status int, value any) {
	var (
		encoder     Encoder
		contentType string
	)

	switch mediaType(r.Header.Get("Accept")) {
	case "application/yaml", "application/x-yaml":
		contentType = "application/yaml"
		encoder = yaml.NewEncoder(w)
	default:
		contentType = "application/json"
		encoder = json.NewEncoder(w)
	}

	if value == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := encoder.Encode(value); err != nil {
		logr.FromContextOrDiscard(r.Context()).Error(err, "failed to encode response")
	}
}

// RenderError maps err onto an HTTP status. Errors that are not one of the
// typed application errors are logged and reported as 500 without details.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{
		Status:  StatusFromError(err),
		Message: err.Error(),
	}

	switch resp.Status {
	case http.StatusInternalServerError:
		logr.FromContextOrDiscard(r.Context()).Error(err, "request failed", "path", r.URL.Path)
		resp.Message = http.StatusText(http.StatusInternalServerError)
	case http.StatusBadRequest:
		if perr, ok := errors.AsPreconditionFailed(err); ok && perr.Err != nil {
			resp.Details = perr.Err.Error()
		}
	}

	Render(w, r, resp.Status, resp)
}

func StatusFromError(err error) int {
	switch {
	case errors.IsPreconditionFailed(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
