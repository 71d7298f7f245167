// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

// Delimiter terminates every request and response line.
const Delimiter = '\n'

// Request is one decoded request line. ID is the client's id carried through
// verbatim; the server never interprets it.
type Request struct {
	Method string
	Params []interface{}
	ID     json.RawMessage
}

// DecodeRequest decodes one line (without its delimiter). On failure the
// returned error is an *Error and the returned Request carries the id when it
// could be extracted before the failure.
func DecodeRequest(line []byte) (Request, error) {
	var req Request
	if !utf8.Valid(line) {
		return req, newError(CodeMalformedJSON, "Invalid JSON format.")
	}

	var probe interface{}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&probe); err != nil {
		return req, newError(CodeMalformedJSON, "Invalid JSON format.")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return req, newError(CodeMalformedJSON, "Invalid JSON format.")
	}
	if _, ok := probe.(map[string]interface{}); !ok {
		return req, newError(CodeMissingField, "Missing required fields in request (method, params, id)")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return req, newError(CodeMalformedJSON, "Invalid JSON format.")
	}
	rawMethod, hasMethod := fields["method"]
	rawParams, hasParams := fields["params"]
	rawID, hasID := fields["id"]
	if !hasMethod || !hasParams || !hasID {
		return req, newError(CodeMissingField, "Missing required fields in request (method, params, id)")
	}
	req.ID = rawID

	if err := json.Unmarshal(rawMethod, &req.Method); err != nil || isNull(rawMethod) {
		return req, newError(CodeMissingField, "'method' must be a string.")
	}

	trimmed := bytes.TrimSpace(rawParams)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return req, newError(CodeBadParamsType, "'params' must be a list.")
	}
	pdec := json.NewDecoder(bytes.NewReader(trimmed))
	pdec.UseNumber()
	if err := pdec.Decode(&req.Params); err != nil {
		return req, newError(CodeBadParamsType, "'params' must be a list.")
	}
	if req.Params == nil {
		req.Params = []interface{}{}
	}
	return req, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Response is either a success carrying Result and ResultType or a failure
// carrying Error. ID is echoed from the request; nil encodes as null.
type Response struct {
	Result     interface{}
	ResultType string
	Error      string
	ID         json.RawMessage

	failed bool
}

// Success wraps a handler result together with its result type tag.
func Success(id json.RawMessage, result interface{}) *Response {
	return &Response{Result: result, ResultType: ResultType(result), ID: id}
}

// Failure builds an error response.
func Failure(id json.RawMessage, message string) *Response {
	return &Response{Error: message, ID: id, failed: true}
}

// Failed reports whether r is an error response.
func (r *Response) Failed() bool {
	return r.failed
}

type successLine struct {
	Result     interface{}     `json:"result"`
	ResultType string          `json:"result_type"`
	ID         json.RawMessage `json:"id"`
}

type failureLine struct {
	Error string          `json:"error"`
	ID    json.RawMessage `json:"id"`
}

func (r *Response) MarshalJSON() ([]byte, error) {
	id := r.ID
	if len(bytes.TrimSpace(id)) == 0 {
		id = nil
	}
	if r.failed {
		return json.Marshal(failureLine{Error: r.Error, ID: id})
	}
	result := r.Result
	switch f := result.(type) {
	case float64:
		result = realNumber(f)
	case float32:
		result = realNumber(f)
	}
	return json.Marshal(successLine{Result: result, ResultType: r.ResultType, ID: id})
}

// EncodeResponse serializes r as one line including the trailing delimiter.
func EncodeResponse(r *Response) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return append(b, Delimiter), nil
}

// DecodeResponse parses one response line (delimiter optional).
func DecodeResponse(line []byte) (*Response, error) {
	var wire struct {
		Result     json.RawMessage `json:"result"`
		ResultType string          `json:"result_type"`
		Error      *string         `json:"error"`
		ID         json.RawMessage `json:"id"`
	}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if wire.Error != nil {
		return Failure(wire.ID, *wire.Error), nil
	}
	var result interface{}
	if len(wire.Result) > 0 {
		rdec := json.NewDecoder(bytes.NewReader(wire.Result))
		rdec.UseNumber()
		if err := rdec.Decode(&result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return &Response{Result: result, ResultType: wire.ResultType, ID: wire.ID}, nil
}

// realNumber keeps a trailing ".0" on integral doubles so the text agrees
// with the "double" tag.
type realNumber float64

func (f realNumber) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(float64(f))
	if err != nil {
		return nil, err
	}
	if isIntegerLiteral(string(b)) {
		b = append(b, ".0"...)
	}
	return b, nil
}
