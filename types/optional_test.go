package types_test

import (
	"encoding/json"
	"testing"

	"github.com/enverbisevac/txoutbox/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type order struct {
	Item string                 `json:"item" yaml:"item"`
	Note types.Optional[string] `json:"note,omitzero" yaml:"note"`
}

func TestOptional_SetAndGet(t *testing.T) {
	var n types.Optional[int]
	assert.False(t, n.IsSet())
	assert.False(t, n.IsNull())
	assert.True(t, n.IsZero())

	n.Set(42)
	val, ok := n.Value()
	assert.True(t, n.IsSet())
	assert.False(t, n.IsNull())
	assert.True(t, ok)
	assert.Equal(t, 42, val)
}

func TestOptional_Null(t *testing.T) {
	n := types.Null[string]()

	assert.True(t, n.IsSet())
	assert.True(t, n.IsNull())
	assert.False(t, n.IsZero())
	assert.Equal(t, "fallback", n.ValueOrDefault("fallback"))

	val, ok := n.Value()
	assert.False(t, ok)
	assert.Equal(t, "", val)
}

func TestOptional_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(order{Item: "keyboard"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"item":"keyboard"}`, string(data))

	data, err = json.Marshal(order{Item: "keyboard", Note: types.Null[string]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"item":"keyboard","note":null}`, string(data))

	data, err = json.Marshal(order{Item: "keyboard", Note: types.New("gift wrap")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"item":"keyboard","note":"gift wrap"}`, string(data))
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		set    bool
		null   bool
		expect string
	}{
		{name: "absent", input: `{"item":"a"}`},
		{name: "null", input: `{"item":"a","note":null}`, set: true, null: true},
		{name: "value", input: `{"item":"a","note":"hi"}`, set: true, expect: "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o order
			require.NoError(t, json.Unmarshal([]byte(tt.input), &o))
			assert.Equal(t, tt.set, o.Note.IsSet())
			assert.Equal(t, tt.null, o.Note.IsNull())
			assert.Equal(t, tt.expect, o.Note.ValueOrDefault(""))
		})
	}
}

func TestOptional_UnmarshalJSONTypeMismatch(t *testing.T) {
	var o order
	assert.Error(t, json.Unmarshal([]byte(`{"note":12}`), &o))
}

func TestOptional_UnmarshalYAML(t *testing.T) {
	var o order
	require.NoError(t, yaml.Unmarshal([]byte("item: a\nnote: hi\n"), &o))
	v, ok := o.Note.Value()
	assert.True(t, ok)
	assert.Equal(t, "hi", v)

	o = order{}
	require.NoError(t, yaml.Unmarshal([]byte("item: a\n"), &o))
	assert.False(t, o.Note.IsSet())
}

func TestOptional_JSONSchema(t *testing.T) {
	schema, err := types.Optional[string]{}.JSONSchema()
	require.NoError(t, err)
	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"string"`)
	assert.Contains(t, string(data), `"null"`)

	schema, err = types.Optional[int64]{}.JSONSchema()
	require.NoError(t, err)
	data, err = json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"integer"`)
	assert.Contains(t, string(data), `"null"`)
}
