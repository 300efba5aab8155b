package relay

import (
	"errors"

	"github.com/gaspardpetit/promptrelay/internal/gemini"
	"github.com/gaspardpetit/promptrelay/internal/metrics"
)

// Kind classifies a failure that ends in the generic 500 reply.
type Kind int

const (
	KindMalformedPayload Kind = iota + 1
	KindProviderUnreachable
	KindProviderError
	KindProviderResponseShape
)

func (k Kind) String() string {
	switch k {
	case KindMalformedPayload:
		return metrics.OutcomeMalformedPayload
	case KindProviderUnreachable:
		return metrics.OutcomeProviderUnreachable
	case KindProviderError:
		return metrics.OutcomeProviderError
	case KindProviderResponseShape:
		return metrics.OutcomeProviderResponseShape
	default:
		return "unknown"
	}
}

// Error carries the failure kind alongside the cause. Callers only ever see
// the fixed error message; the kind is for logs, metrics and tests.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// classify maps a provider client error to a Kind.
func classify(err error) Kind {
	var se *gemini.StatusError
	switch {
	case errors.As(err, &se):
		return KindProviderError
	case errors.Is(err, gemini.ErrNoCandidates), errors.Is(err, gemini.ErrMalformedResponse):
		return KindProviderResponseShape
	default:
		return KindProviderUnreachable
	}
}
