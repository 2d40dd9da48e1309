package validator

import (
	"sync"

	"github.com/enverbisevac/txoutbox/errors"
)

type ValidatorFunc[T any] func(T) error

// Validator collects field errors for a single request payload.
type Validator struct {
	mux    sync.Mutex
	Errors []error
}

func (v *Validator) HasErrors() bool {
	v.mux.Lock()
	defer v.mux.Unlock()
	return len(v.Errors) != 0
}

func (v *Validator) AddError(err ...error) {
	v.mux.Lock()
	defer v.mux.Unlock()

	for _, verr := range err {
		if verr != nil {
			v.Errors = append(v.Errors, verr)
		}
	}
}

func (v *Validator) Check(ok bool, err error) {
	if !ok {
		v.AddError(err)
	}
}

// Err returns a precondition failed error carrying every collected
// error, or nil when nothing was added.
func (v *Validator) Err(msg string) error {
	if !v.HasErrors() {
		return nil
	}

	v.mux.Lock()
	defer v.mux.Unlock()
	return errors.PreconditionFailed("%s", msg).SetErr(errors.Join(v.Errors...))
}

func Validate[T any](data T, validators ...ValidatorFunc[T]) error {
	for _, validator := range validators {
		err := validator(data)
		if err != nil {
			return err
		}
	}
	return nil
}
