package outbox

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Codec serializes payloads into message text.
type Codec interface {
	Encode(payload any) (string, error)
}

// CodecFunc adapts a function to the Codec interface.
type CodecFunc func(payload any) (string, error)

// Encode calls f(payload).
func (f CodecFunc) Encode(payload any) (string, error) {
	return f(payload)
}

// JSONCodec encodes payloads as JSON and drops object members whose value is
// null. Member order is preserved.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("outbox: encode payload: %w", err)
	}
	data, err = stripNulls(data)
	if err != nil {
		return "", fmt.Errorf("outbox: encode payload: %w", err)
	}
	return string(data), nil
}

func stripNulls(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return data, nil
	}

	var buf bytes.Buffer
	switch delim {
	case '{':
		buf.WriteByte('{')
		n := 0
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := tok.(string)

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, err
			}
			if string(raw) == "null" {
				continue
			}
			value, err := stripNulls(raw)
			if err != nil {
				return nil, err
			}
			name, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				buf.WriteByte(',')
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(value)
			n++
		}
		buf.WriteByte('}')
	case '[':
		// nulls inside arrays are values, not absent members
		buf.WriteByte('[')
		for i := 0; dec.More(); i++ {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, err
			}
			value, err := stripNulls(raw)
			if err != nil {
				return nil, err
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(value)
		}
		buf.WriteByte(']')
	}
	return buf.Bytes(), nil
}
