package httputil

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/enverbisevac/txoutbox/errors"
	"github.com/enverbisevac/txoutbox/validator"
)

type ParamTypes interface {
	~string | ~int | ~int64 | ~bool | time.Time
}

type FromConstraint interface {
	*http.Request | *url.URL | url.Values
}

// QueryParamOrDefault returns defValue when the parameter is missing. A
// present but malformed or invalid value is still an error.
func QueryParamOrDefault[T ParamTypes, K FromConstraint](from K, param string, defValue T, validators ...validator.ValidatorFunc[T]) (T, error) {
	if !queryValues(from).Has(param) || queryValues(from).Get(param) == "" {
		return defValue, nil
	}
	return QueryParam(from, param, validators...)
}

func QueryParam[T ParamTypes, K FromConstraint](from K, param string, validators ...validator.ValidatorFunc[T]) (T, error) {
	var (
		zero   T
		result any
		err    error
	)

	paramValue := queryValues(from).Get(param)
	if paramValue == "" {
		return zero, errors.PreconditionFailed("%s param not found in query", param)
	}

	switch any(zero).(type) {
	case string:
		result = paramValue
	case int:
		var n int64
		n, err = strconv.ParseInt(paramValue, 10, 32)
		result = int(n)
	case int64:
		result, err = strconv.ParseInt(paramValue, 10, 64)
	case bool:
		result, err = strconv.ParseBool(paramValue)
	case time.Duration:
		result, err = time.ParseDuration(paramValue)
	case time.Time:
		result, err = time.Parse(time.RFC3339, paramValue)
	default:
		err = fmt.Errorf("type %T not supported", zero)
	}

	if err != nil {
		return zero, errors.PreconditionFailed("%s param type conversion error", param).SetErr(err)
	}

	if err = validator.Validate(result.(T), validators...); err != nil {
		return zero, errors.PreconditionFailed("%s param validation failed", param).SetErr(err)
	}

	return result.(T), nil
}

func queryValues[K FromConstraint](from K) url.Values {
	switch t := any(from).(type) {
	case *http.Request:
		return t.URL.Query()
	case *url.URL:
		return t.Query()
	case url.Values:
		return t
	}
	return nil
}
