package dashboard

import (
	"context"
	"encoding/json"

	"github.com/jrsteele09/go-page-insights/insights"
	"github.com/jrsteele09/go-page-insights/internal/errors"
)

// Kind is the tag of a LoadState.
type Kind string

const (
	KindIdle    Kind = "idle"
	KindLoading Kind = "loading"
	KindReady   Kind = "ready"
	KindError   Kind = "error"
)

// ErrorKind tells failure causes apart so each gets its own message.
type ErrorKind string

const (
	ErrorAuth       ErrorKind = "auth"
	ErrorToken      ErrorKind = "token"
	ErrorQuery      ErrorKind = "query"
	ErrorValidation ErrorKind = "validation"
)

const (
	prefixAuth       = "could not reach your pages"
	prefixToken      = "could not obtain page access"
	prefixQuery      = "could not load page metrics"
	prefixValidation = "invalid request"
)

// LoadState is one of idle, loading, ready(MetricSet) or error(message).
// Fields are private so only the constructors below can build one.
type LoadState struct {
	kind       Kind
	generation uint64
	metrics    insights.MetricSet
	errKind    ErrorKind
	message    string
}

func Idle() LoadState { return LoadState{kind: KindIdle} }

func Loading(generation uint64) LoadState {
	return LoadState{kind: KindLoading, generation: generation}
}

func Ready(generation uint64, set insights.MetricSet) LoadState {
	return LoadState{kind: KindReady, generation: generation, metrics: set}
}

// Failed classifies err and turns it into a user facing error state.
func Failed(generation uint64, err error) LoadState {
	kind, message := describe(err)
	return LoadState{kind: KindError, generation: generation, errKind: kind, message: message}
}

func (s LoadState) Kind() Kind { return s.kind }

func (s LoadState) Generation() uint64 { return s.generation }

// Metrics returns the MetricSet of a ready state.
func (s LoadState) Metrics() (insights.MetricSet, bool) {
	return s.metrics, s.kind == KindReady
}

// Err returns the message and cause of an error state.
func (s LoadState) Err() (string, ErrorKind, bool) {
	return s.message, s.errKind, s.kind == KindError
}

type loadStateJSON struct {
	State   Kind                `json:"state"`
	Metrics *insights.MetricSet `json:"metrics,omitempty"`
	Error   *errorJSON          `json:"error,omitempty"`
}

type errorJSON struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (s LoadState) MarshalJSON() ([]byte, error) {
	out := loadStateJSON{State: s.kind}
	switch s.kind {
	case KindReady:
		out.Metrics = &s.metrics
	case KindError:
		out.Error = &errorJSON{Kind: s.errKind, Message: s.message}
	case "":
		out.State = KindIdle
	}
	return json.Marshal(out)
}

func describe(err error) (ErrorKind, string) {
	var (
		fetchErr *errors.FetchError
		authErr  *errors.AuthError
	)
	switch {
	case errors.IsValidation(err):
		return ErrorValidation, prefixValidation + ": " + err.Error()
	case errors.As(err, &fetchErr) && fetchErr.Stage == errors.StageToken:
		return ErrorToken, withDetail(prefixToken, fetchErr.Message)
	case errors.As(err, &fetchErr):
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrorQuery, prefixQuery + ": timed out"
		}
		return ErrorQuery, withDetail(prefixQuery, fetchErr.Message)
	case errors.As(err, &authErr):
		return ErrorAuth, withDetail(prefixAuth, authErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorQuery, prefixQuery + ": timed out"
	}
	return ErrorQuery, prefixQuery
}

func withDetail(prefix, detail string) string {
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}
