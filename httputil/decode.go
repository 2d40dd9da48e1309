package httputil

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/enverbisevac/txoutbox/errors"
	"gopkg.in/yaml.v3"
)

// MaxBodySize limits request bodies read by Decode.
const MaxBodySize = 1 << 20

type Decoder interface {
	Decode(v any) error
}

type Encoder interface {
	Encode(v any) error
}

// Decode reads the request body into data. YAML is accepted when the
// Content-Type says so, JSON otherwise. An empty body is an error.
func Decode(w http.ResponseWriter, r *http.Request, data any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodySize)

	var decoder Decoder
	switch mediaType(r.Header.Get("Content-Type")) {
	case "application/yaml", "application/x-yaml":
		decoder = yaml.NewDecoder(body)
	default:
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		decoder = dec
	}

	if err := decoder.Decode(data); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.PreconditionFailed("request body is empty")
		}
		return errors.PreconditionFailed("request body is malformed").SetErr(err)
	}
	return nil
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}
