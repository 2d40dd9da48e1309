package httputil

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/validator"
)

func TestQueryParamOrDefault(t *testing.T) {
	r, err := http.NewRequest("GET", "/outbox/messages?q=test&limit=10&pending=true&wait=2s&parent=", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	t.Run("string", func(t *testing.T) {
		got, err := QueryParamOrDefault(r, "q", "")
		if err != nil {
			t.Fatalf("QueryParamOrDefault() error = %v", err)
		}
		if got != "test" {
			t.Errorf("QueryParamOrDefault() = %v, want %v", got, "test")
		}
	})

	t.Run("empty value falls back to default", func(t *testing.T) {
		got, err := QueryParamOrDefault(r, "parent", "default")
		if err != nil {
			t.Fatalf("QueryParamOrDefault() error = %v", err)
		}
		if got != "default" {
			t.Errorf("QueryParamOrDefault() = %v, want %v", got, "default")
		}
	})

	t.Run("missing value falls back to default", func(t *testing.T) {
		got, err := QueryParamOrDefault(r, "offset", 7)
		if err != nil {
			t.Fatalf("QueryParamOrDefault() error = %v", err)
		}
		if got != 7 {
			t.Errorf("QueryParamOrDefault() = %v, want %v", got, 7)
		}
	})

	t.Run("int with validation", func(t *testing.T) {
		got, err := QueryParamOrDefault(r, "limit", 20, func(v int) error {
			if !validator.Between(v, 1, 100) {
				return fmt.Errorf("value %v must be between 1 and 100", v)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("QueryParamOrDefault() error = %v", err)
		}
		if got != 10 {
			t.Errorf("QueryParamOrDefault() = %v, want %v", got, 10)
		}
	})

	t.Run("failed validation", func(t *testing.T) {
		_, err := QueryParamOrDefault(r, "limit", 20, func(v int) error {
			if !validator.Between(v, 50, 100) {
				return fmt.Errorf("value %v must be between 50 and 100", v)
			}
			return nil
		})
		if !errors.IsPreconditionFailed(err) {
			t.Errorf("QueryParamOrDefault() error = %v, want precondition failed", err)
		}
	})

	t.Run("bool", func(t *testing.T) {
		got, err := QueryParam[bool](r, "pending")
		if err != nil {
			t.Fatalf("QueryParam() error = %v", err)
		}
		if !got {
			t.Errorf("QueryParam() = %v, want true", got)
		}
	})

	t.Run("duration", func(t *testing.T) {
		got, err := QueryParam[time.Duration](r.URL, "wait")
		if err != nil {
			t.Fatalf("QueryParam() error = %v", err)
		}
		if got != 2*time.Second {
			t.Errorf("QueryParam() = %v, want %v", got, 2*time.Second)
		}
	})

	t.Run("conversion error", func(t *testing.T) {
		_, err := QueryParam[int64](r.URL.Query(), "q")
		if !errors.IsPreconditionFailed(err) {
			t.Errorf("QueryParam() error = %v, want precondition failed", err)
		}
	})
}
