package openapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// Operation describes a single route for the generated document.
type Operation struct {
	ID          string
	Summary     string
	Description string
	Tags        []string

	// Request is a pointer to the body type, nil for routes without a body.
	Request any
	// Responses maps a status code to a pointer to its body type. A nil body
	// documents the status only.
	Responses map[int]any
}

var idReplacer = strings.NewReplacer("/", "_", "{", "", "}", "", "-", "_")

func newOperation(method, pattern string, options ...OperationFunc) *Operation {
	op := &Operation{
		ID: strings.ToLower(method) + idReplacer.Replace(pattern),
	}
	for _, fn := range options {
		fn(op)
	}
	if len(op.Responses) == 0 {
		WithResponse(http.StatusOK, nil)(op)
	}
	return op
}

// addTo reflects the operation into reflector under method and route.
func (o *Operation) addTo(reflector *openapi3.Reflector, method, route string) error {
	oc, err := reflector.NewOperationContext(method, route)
	if err != nil {
		return fmt.Errorf("openapi: %s %s: %w", method, route, err)
	}

	oc.SetID(o.ID)
	oc.SetSummary(o.Summary)
	oc.SetDescription(o.Description)
	oc.SetTags(o.Tags...)

	if o.Request != nil {
		oc.AddReqStructure(o.Request)
	}
	for status, body := range o.Responses {
		oc.AddRespStructure(body, openapi.WithHTTPStatus(status))
	}

	if err := reflector.AddOperation(oc); err != nil {
		return fmt.Errorf("openapi: %s %s: %w", method, route, err)
	}
	return nil
}

type OperationFunc func(*Operation)

func WithID(id string) OperationFunc {
	return func(o *Operation) { o.ID = id }
}

func WithSummary(summary string) OperationFunc {
	return func(o *Operation) { o.Summary = summary }
}

func WithDescription(description string) OperationFunc {
	return func(o *Operation) { o.Description = description }
}

func WithTags(tags ...string) OperationFunc {
	return func(o *Operation) { o.Tags = tags }
}

func WithRequest(body any) OperationFunc {
	return func(o *Operation) { o.Request = body }
}

func WithResponse(status int, body any) OperationFunc {
	return func(o *Operation) {
		if o.Responses == nil {
			o.Responses = make(map[int]any)
		}
		o.Responses[status] = body
	}
}

// WithErrors documents the same error body for each status.
func WithErrors(body any, statuses ...int) OperationFunc {
	return func(o *Operation) {
		for _, status := range statuses {
			WithResponse(status, body)(o)
		}
	}
}
