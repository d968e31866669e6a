package errors

import "fmt"

// Fetch errors
//
// Adapters surface every failure as one of the typed errors below so the
// state builder can map it to a display message plus, where known, an HTTP
// status. A missing status is encoded as zero.

type ErrMissingAuthIndex struct {
	Provider string
}

func (e *ErrMissingAuthIndex) Error() string {
	return fmt.Sprintf("%s: auth entry has no auth index", e.Provider)
}

type ErrMissingAccountID struct {
	Provider string
}

func (e *ErrMissingAccountID) Error() string {
	return fmt.Sprintf("%s: auth entry has no account id", e.Provider)
}

type ErrMissingProjectID struct {
	Provider string
}

func (e *ErrMissingProjectID) Error() string {
	return fmt.Sprintf("%s: auth entry has no project id", e.Provider)
}

// ErrEmptyResponse marks a payload that parsed to nothing where data was
// required (unparsable JSON or a structurally empty document).
type ErrEmptyResponse struct {
	Provider string
	Detail   string
}

func (e *ErrEmptyResponse) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: empty response: %s", e.Provider, e.Detail)
	}
	return fmt.Sprintf("%s: empty response", e.Provider)
}

// ErrHTTPStatus is a non-2xx answer from the remote endpoint.
type ErrHTTPStatus struct {
	Provider string
	Status   int
	Message  string
}

func (e *ErrHTTPStatus) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Provider, e.Status)
}

// ErrTransport is a network-level failure. Status is zero unless the
// transport layer could still extract one from a partial exchange.
type ErrTransport struct {
	Provider string
	Status   int
	Err      error
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Provider, e.Err)
}

func (e *ErrTransport) Unwrap() error {
	return e.Err
}

// HTTPStatusOf extracts the HTTP status carried by a fetch error, or zero.
func HTTPStatusOf(err error) int {
	switch typed := err.(type) {
	case *ErrHTTPStatus:
		return typed.Status
	case *ErrTransport:
		return typed.Status
	default:
		return 0
	}
}

// Config errors

type ErrConfigNotFound struct {
	Path string
}

func (e *ErrConfigNotFound) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

type ErrConfigParse struct {
	Err error
}

func (e *ErrConfigParse) Error() string {
	return fmt.Sprintf("failed to parse YAML: %v", e.Err)
}

func (e *ErrConfigParse) Unwrap() error {
	return e.Err
}

type ErrConfigValidation struct {
	Err error
}

func (e *ErrConfigValidation) Error() string {
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ErrConfigValidation) Unwrap() error {
	return e.Err
}

// Database errors

type ErrDatabaseOpen struct {
	Path string
	Err  error
}

func (e *ErrDatabaseOpen) Error() string {
	return fmt.Sprintf("failed to open database %s: %v", e.Path, e.Err)
}

func (e *ErrDatabaseOpen) Unwrap() error {
	return e.Err
}

type ErrDatabaseQuery struct {
	Operation string
	Err       error
}

func (e *ErrDatabaseQuery) Error() string {
	return fmt.Sprintf("database query failed for operation %s: %v", e.Operation, e.Err)
}

func (e *ErrDatabaseQuery) Unwrap() error {
	return e.Err
}

// Server errors

type ErrServerStart struct {
	Addr string
	Err  error
}

func (e *ErrServerStart) Error() string {
	return fmt.Sprintf("failed to start server on %s: %v", e.Addr, e.Err)
}

func (e *ErrServerStart) Unwrap() error {
	return e.Err
}

type ErrServerShutdown struct {
	Err error
}

func (e *ErrServerShutdown) Error() string {
	return fmt.Sprintf("server shutdown failed: %v", e.Err)
}

func (e *ErrServerShutdown) Unwrap() error {
	return e.Err
}

// Filesystem errors

type ErrFileRead struct {
	Path string
	Err  error
}

func (e *ErrFileRead) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

func (e *ErrFileRead) Unwrap() error {
	return e.Err
}
