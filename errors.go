// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"errors"
	"fmt"
)

// Code classifies a failed request.
type Code int

const (
	CodeMalformedJSON Code = iota + 1
	CodeMissingField
	CodeBadParamsType
	CodeMethodNotFound
	CodeArityMismatch
	CodeTypeMismatch
	CodeDomainError
	CodeInternalError
	CodeMessageTooLarge
)

func (c Code) String() string {
	switch c {
	case CodeMalformedJSON:
		return "malformed_json"
	case CodeMissingField:
		return "missing_field"
	case CodeBadParamsType:
		return "bad_params_type"
	case CodeMethodNotFound:
		return "method_not_found"
	case CodeArityMismatch:
		return "arity_mismatch"
	case CodeTypeMismatch:
		return "type_mismatch"
	case CodeDomainError:
		return "domain_error"
	case CodeInternalError:
		return "internal_error"
	case CodeMessageTooLarge:
		return "message_too_large"
	default:
		return "unknown"
	}
}

// internalErrorMessage is the only text a client sees for an internal fault.
const internalErrorMessage = "An internal server error occurred"

var (
	// ErrClosed is returned by client calls once the connection is gone.
	ErrClosed = errors.New("linerpc: connection closed")
	// ErrUnknownTransport is returned by Dial and Listen for unregistered transports.
	ErrUnknownTransport = errors.New("linerpc: unknown transport")
)

// Error is a request failure reported to the client. Message is sent verbatim.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// DomainError is returned by a method handler when its input is valid JSON of
// the declared types but still outside the method's domain. The message is
// reported to the client.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// DomainErrorf formats a DomainError.
func DomainErrorf(format string, args ...interface{}) error {
	return &DomainError{Message: fmt.Sprintf(format, args...)}
}

// RemoteError is a failure response received by a client.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "rpc error: " + e.Message
}
