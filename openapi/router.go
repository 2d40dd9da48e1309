package openapi

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/openapi-go/openapi3"
)

// Router mounts handlers on a chi router and records every route in an
// OpenAPI 3 document.
type Router struct {
	chi.Router

	mu        sync.Mutex
	reflector *openapi3.Reflector
}

func NewRouter(r chi.Router, title, version string) *Router {
	reflector := openapi3.NewReflector()
	reflector.SpecEns().Info.
		WithTitle(title).
		WithVersion(version)

	return &Router{
		Router:    r,
		reflector: reflector,
	}
}

// Operation registers handler under method and pattern and adds the
// operation to the document. chi route parameters ({id}) are valid
// OpenAPI path templates.
func (r *Router) Operation(method, pattern string, handler http.Handler, options ...OperationFunc) error {
	op := newOperation(method, pattern, options...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := op.addTo(r.reflector, method, pattern); err != nil {
		return err
	}

	r.Method(method, pattern, handler)
	return nil
}

// JSON returns the document.
func (r *Router) JSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reflector.SpecEns().MarshalJSON()
}

// YAML returns the document.
func (r *Router) YAML() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reflector.SpecEns().MarshalYAML()
}

// Handler serves the document, as YAML when the Accept header asks for it.
func (r *Router) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var (
			data        []byte
			err         error
			contentType = "application/json"
		)

		if req.Header.Get("Accept") == "application/yaml" {
			contentType = "application/yaml"
			data, err = r.YAML()
		} else {
			data, err = r.JSON()
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(data)
	}
}
