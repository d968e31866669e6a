package models

import (
	"time"

	qderrors "github.com/quotadeck/quotadeck/internal/errors"
)

// StateKind is the lifecycle phase of a quota entry in the cache.
type StateKind string

const (
	StateLoading StateKind = "loading"
	StateSuccess StateKind = "success"
	StateError   StateKind = "error"
)

// QuotaState is the cache value for one account: a loading marker, a
// successful result, or an error with its message and HTTP status.
type QuotaState struct {
	Kind       StateKind    `json:"kind"`
	Result     *QuotaResult `json:"result,omitempty"`
	Message    string       `json:"message,omitempty"`
	HTTPStatus int          `json:"http_status,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func LoadingState() QuotaState {
	return QuotaState{Kind: StateLoading, UpdatedAt: time.Now().UTC()}
}

func SuccessState(result *QuotaResult) QuotaState {
	return QuotaState{Kind: StateSuccess, Result: result, UpdatedAt: time.Now().UTC()}
}

func ErrorState(message string, httpStatus int) QuotaState {
	return QuotaState{
		Kind:       StateError,
		Message:    message,
		HTTPStatus: httpStatus,
		UpdatedAt:  time.Now().UTC(),
	}
}

// BuildState folds a fetch outcome into a cache state. A nil error with a
// nil result still becomes an error state so the cache never holds an
// empty success.
func BuildState(result *QuotaResult, err error) QuotaState {
	if err != nil {
		return ErrorState(err.Error(), qderrors.HTTPStatusOf(err))
	}
	if result == nil {
		return ErrorState("fetch returned no result", 0)
	}
	return SuccessState(result)
}
