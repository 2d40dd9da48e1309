package validator

import (
	"net"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/constraints"
)

var RgxEmail = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+\\/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

func NotBlank[T ~string](value T) bool {
	return strings.TrimSpace(string(value)) != ""
}

func MaxRunes[T ~string](value T, n int) bool {
	return utf8.RuneCountInString(string(value)) <= n
}

func Between[T constraints.Ordered](value, min, max T) bool {
	return value >= min && value <= max
}

func In[T comparable](value T, safelist ...T) bool {
	return slices.Contains(safelist, value)
}

func IsEmail[T ~string](value T) bool {
	if len(value) > 254 {
		return false
	}

	return RgxEmail.MatchString(string(value))
}

// IsHostPort accepts host:port listen and dial addresses. The host may be
// empty (":8080"); the port must be numeric.
func IsHostPort(value string) bool {
	_, port, err := net.SplitHostPort(value)
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && Between(n, 0, 65535)
}
