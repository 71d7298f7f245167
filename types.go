// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"encoding/json"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// Type is a parameter type tag declared by a Method.
type Type int

const (
	TypeInt Type = iota + 1
	TypeReal
	TypeString
	TypeStringList
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeReal:
		return "double"
	case TypeString:
		return "string"
	case TypeStringList:
		return "string[]"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Result type tags written to the result_type field.
const (
	ResultBool    = "bool"
	ResultInt     = "int"
	ResultDouble  = "double"
	ResultString  = "string"
	ResultArray   = "array"
	ResultNull    = "null"
	ResultUnknown = "unknown"
)

// ResultType classifies a handler return value. Booleans are checked before
// integers.
func ResultType(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ResultNull
	case bool:
		return ResultBool
	case []byte:
		// encoding/json writes byte slices as base64 strings
		return ResultString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, *big.Int:
		return ResultInt
	case float32, float64:
		return ResultDouble
	case json.Number:
		if isIntegerLiteral(string(x)) {
			return ResultInt
		}
		return ResultDouble
	case string:
		return ResultString
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return ResultArray
	}
	return ResultUnknown
}

// valueType names the JSON type of a decoded parameter for error messages.
func valueType(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return ResultArray
	}
	return ResultType(v)
}

func isIntegerLiteral(s string) bool {
	return !strings.ContainsAny(s, ".eE")
}

// outOfRange names a number that no numeric parameter type can hold.
const outOfRange = "out-of-range number"

// mismatchType describes v in a type mismatch against t. Numbers that fail
// only because they overflow the target are reported as out of range.
func mismatchType(t Type, v interface{}) string {
	n, ok := v.(json.Number)
	if !ok {
		return valueType(v)
	}
	switch t {
	case TypeInt:
		if isIntegerLiteral(string(n)) {
			return outOfRange
		}
	case TypeReal:
		return outOfRange
	}
	return valueType(v)
}

// convert checks a decoded parameter against t and returns the value the
// handler receives. TypeReal accepts integers as well and keeps them as int64.
func convert(t Type, v interface{}) (interface{}, bool) {
	switch t {
	case TypeInt:
		n, ok := v.(json.Number)
		if !ok || !isIntegerLiteral(string(n)) {
			return nil, false
		}
		i, err := strconv.ParseInt(string(n), 10, 64)
		if err != nil {
			return nil, false
		}
		return i, true
	case TypeReal:
		n, ok := v.(json.Number)
		if !ok {
			return nil, false
		}
		if isIntegerLiteral(string(n)) {
			if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
				return i, true
			}
			if b, ok := new(big.Int).SetString(string(n), 10); ok {
				return b, true
			}
		}
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeBool:
		b, ok := v.(bool)
		return b, ok
	case TypeStringList:
		items, ok := v.([]interface{})
		if !ok {
			return nil, false
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Args holds the validated, positionally ordered arguments of one call.
// Accessors assume the index was declared with a matching Type.
type Args []interface{}

// Int returns an argument declared as TypeInt.
func (a Args) Int(i int) int64 {
	return a[i].(int64)
}

// Float returns an argument declared as TypeReal, converting integers.
func (a Args) Float(i int) float64 {
	switch v := a[i].(type) {
	case int64:
		return float64(v)
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f
	case float64:
		return v
	}
	panic("linerpc: argument " + strconv.Itoa(i) + " is not numeric")
}

// IsInt reports whether a TypeReal argument was sent as an integer literal.
// Such an argument is an int64, or a *big.Int when it exceeds int64.
func (a Args) IsInt(i int) bool {
	switch a[i].(type) {
	case int64, *big.Int:
		return true
	}
	return false
}

// Integer returns a TypeReal argument sent as an integer literal, exactly.
func (a Args) Integer(i int) interface{} {
	if !a.IsInt(i) {
		panic("linerpc: argument " + strconv.Itoa(i) + " is not an integer")
	}
	return a[i]
}

func (a Args) String(i int) string {
	return a[i].(string)
}

func (a Args) Strings(i int) []string {
	return a[i].([]string)
}

func (a Args) Bool(i int) bool {
	return a[i].(bool)
}
