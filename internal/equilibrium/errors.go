package equilibrium

import (
	"errors"
	"fmt"
)

var (
	// ErrSolve means the LP did not reach a trustworthy optimum.
	ErrSolve = errors.New("zero-sum solve failed")

	// ErrInvalidResult means the LP returned, but the policy or value is
	// NaN or out of bounds.
	ErrInvalidResult = errors.New("invalid equilibrium result")
)

// Kind names a failure in diagnostic payloads.
type Kind string

const (
	KindSolve         Kind = "solve_error"
	KindInvalidResult Kind = "value_error"
)

func (k Kind) sentinel() error {
	if k == KindInvalidResult {
		return ErrInvalidResult
	}
	return ErrSolve
}

// Failure carries everything known about a failed solve. Value and Policy
// are only set for KindInvalidResult.
type Failure struct {
	Kind   Kind
	Value  float64
	Policy []float64
	Err    error
}

func (f *Failure) Error() string {
	if f.Kind == KindInvalidResult {
		return fmt.Sprintf("%s: value=%v policy=%v: %v", f.Kind, f.Value, f.Policy, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{f.Kind.sentinel(), f.Err}
}

func solveFailure(err error) error {
	return &Failure{Kind: KindSolve, Err: err}
}

func invalidResult(value float64, policy []float64, format string, args ...any) error {
	return &Failure{
		Kind:   KindInvalidResult,
		Value:  value,
		Policy: policy,
		Err:    fmt.Errorf(format, args...),
	}
}
