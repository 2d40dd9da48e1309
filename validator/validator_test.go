package validator

import (
	"fmt"
	"testing"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorErr(t *testing.T) {
	v := new(Validator)
	require.NoError(t, v.Err("invalid order"))

	v.Check(NotBlank("  "), fmt.Errorf("customer is required"))
	v.Check(IsEmail("nobody"), fmt.Errorf("email is not valid"))
	v.Check(Between(3, 1, 5), fmt.Errorf("quantity out of range"))
	v.AddError(nil)

	err := v.Err("invalid order")
	require.Error(t, err)
	assert.True(t, errors.IsPreconditionFailed(err))
	assert.Equal(t, "invalid order", err.Error())
	assert.ErrorContains(t, errors.Unwrap(err), "customer is required")
	assert.ErrorContains(t, errors.Unwrap(err), "email is not valid")
	assert.NotContains(t, errors.Unwrap(err).Error(), "quantity")
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsEmail("jane@example.com"))
	assert.False(t, IsEmail("jane@"))
	assert.True(t, MaxRunes("čćž", 3))
	assert.False(t, MaxRunes("abcd", 3))
	assert.True(t, In("sqlite", "sqlite", "postgres"))
	assert.False(t, Between(int64(9), 1, 5))
}

func TestIsHostPort(t *testing.T) {
	for _, addr := range []string{":8080", "127.0.0.1:0", "localhost:6379", "[::1]:443"} {
		assert.True(t, IsHostPort(addr), addr)
	}
	for _, addr := range []string{"", "localhost", "localhost:http", "host:70000"} {
		assert.False(t, IsHostPort(addr), addr)
	}
}

func TestValidate(t *testing.T) {
	positive := func(v int) error {
		if v <= 0 {
			return fmt.Errorf("must be positive")
		}
		return nil
	}

	assert.NoError(t, Validate(3, positive))
	assert.EqualError(t, Validate(-1, positive), "must be positive")
}
