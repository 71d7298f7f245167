// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantCode Code
		wantID   string
		method   string
		nParams  int
	}{
		{name: "valid", line: `{"method":"floor","params":[3.7],"id":1}`, method: "floor", nParams: 1, wantID: "1"},
		{name: "empty params", line: `{"method":"m","params":[],"id":"x"}`, method: "m", wantID: `"x"`},
		{name: "null id", line: `{"method":"m","params":[1,2],"id":null}`, method: "m", nParams: 2, wantID: "null"},
		{name: "extra fields ignored", line: `{"jsonrpc":"2.0","method":"m","params":[],"id":9}`, method: "m", wantID: "9"},
		{name: "trailing whitespace", line: "{\"method\":\"m\",\"params\":[],\"id\":1} \r", method: "m", wantID: "1"},
		{name: "not json", line: `hello`, wantCode: CodeMalformedJSON},
		{name: "truncated", line: `{"method":"m","params":[`, wantCode: CodeMalformedJSON},
		{name: "invalid utf-8 in string", line: "{\"method\":\"m\",\"params\":[\"a\xffb\"],\"id\":15}", wantCode: CodeMalformedJSON},
		{name: "invalid utf-8 outside string", line: "{\"method\":\"m\",\"params\":[],\"id\":1}\xc3", wantCode: CodeMalformedJSON},
		{name: "trailing data", line: `{"method":"m","params":[],"id":1} {}`, wantCode: CodeMalformedJSON},
		{name: "array", line: `[1,2,3]`, wantCode: CodeMissingField},
		{name: "scalar", line: `42`, wantCode: CodeMissingField},
		{name: "missing id", line: `{"method":"m","params":[]}`, wantCode: CodeMissingField},
		{name: "missing params", line: `{"method":"m","id":1}`, wantCode: CodeMissingField},
		{name: "missing method", line: `{"params":[],"id":1}`, wantCode: CodeMissingField},
		{name: "method not string", line: `{"method":5,"params":[],"id":4}`, wantCode: CodeMissingField, wantID: "4"},
		{name: "params object", line: `{"method":"m","params":{"a":1},"id":2}`, wantCode: CodeBadParamsType, wantID: "2"},
		{name: "params scalar", line: `{"method":"m","params":"x","id":3}`, wantCode: CodeBadParamsType, wantID: "3"},
		{name: "params null", line: `{"method":"m","params":null,"id":3}`, wantCode: CodeBadParamsType, wantID: "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.line))
			if string(req.ID) != tt.wantID {
				t.Errorf("id = %q, want %q", req.ID, tt.wantID)
			}
			if tt.wantCode != 0 {
				var rpcErr *Error
				if !errors.As(err, &rpcErr) {
					t.Fatalf("err = %v, want *Error", err)
				}
				if rpcErr.Code != tt.wantCode {
					t.Fatalf("code = %s, want %s", rpcErr.Code, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeRequest: %v", err)
			}
			if req.Method != tt.method {
				t.Errorf("method = %q, want %q", req.Method, tt.method)
			}
			if len(req.Params) != tt.nParams {
				t.Errorf("len(params) = %d, want %d", len(req.Params), tt.nParams)
			}
			if req.Params == nil {
				t.Error("params is nil, want empty slice")
			}
		})
	}
}

func TestDecodeRequestKeepsNumberLiterals(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"method":"m","params":[3,3.0,1e2,"s",true,null,["a"]],"id":1}`))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	want := []string{"int", "double", "double", "string", "bool", "null", "array"}
	for i, p := range req.Params {
		if got := valueType(p); got != want[i] {
			t.Errorf("param %d type = %s, want %s", i, got, want[i])
		}
	}
}

func TestEncodeResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want string
	}{
		{"int", Success(json.RawMessage("1"), int64(3)), `{"result":3,"result_type":"int","id":1}`},
		{"integral double", Success(json.RawMessage("2"), -2.0), `{"result":-2.0,"result_type":"double","id":2}`},
		{"double", Success(json.RawMessage("2"), 1.5), `{"result":1.5,"result_type":"double","id":2}`},
		{"bool", Success(json.RawMessage("4"), true), `{"result":true,"result_type":"bool","id":4}`},
		{"array", Success(json.RawMessage("5"), []string{"a", "b"}), `{"result":["a","b"],"result_type":"array","id":5}`},
		{"null", Success(json.RawMessage(`"q"`), nil), `{"result":null,"result_type":"null","id":"q"}`},
		{"big int", Success(json.RawMessage("6"), new(big.Int).Lsh(big.NewInt(1), 70)), `{"result":1180591620717411303424,"result_type":"int","id":6}`},
		{"bytes", Success(json.RawMessage("7"), []byte("hi")), `{"result":"aGk=","result_type":"string","id":7}`},
		{"failure", Failure(json.RawMessage("3"), "boom"), `{"error":"boom","id":3}`},
		{"failure without id", Failure(nil, "Invalid JSON format."), `{"error":"Invalid JSON format.","id":null}`},
		{"compacts id", Success(json.RawMessage(`{ "k": [1, 2] }`), "x"), `{"result":"x","result_type":"string","id":{"k":[1,2]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeResponse(tt.resp)
			if err != nil {
				t.Fatalf("EncodeResponse: %v", err)
			}
			if string(got) != tt.want+"\n" {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResponseRoundTripKeepsID(t *testing.T) {
	ids := []json.RawMessage{
		json.RawMessage("1"),
		json.RawMessage("-17.5"),
		json.RawMessage(`"abc"`),
		json.RawMessage(`"with \"quotes\""`),
		json.RawMessage("null"),
		nil,
	}
	for _, id := range ids {
		for _, resp := range []*Response{Success(id, "r"), Failure(id, "e")} {
			line, err := EncodeResponse(resp)
			if err != nil {
				t.Fatalf("EncodeResponse: %v", err)
			}
			back, err := DecodeResponse(line)
			if err != nil {
				t.Fatalf("DecodeResponse(%s): %v", line, err)
			}
			want := string(id)
			if id == nil {
				want = "null"
			}
			if string(back.ID) != want {
				t.Errorf("id = %s, want %s", back.ID, want)
			}
			if back.Failed() != resp.Failed() {
				t.Errorf("failed = %v, want %v", back.Failed(), resp.Failed())
			}
		}
	}
}

func TestResultType(t *testing.T) {
	tests := []struct {
		v    interface{}
		want string
	}{
		{true, ResultBool},
		{false, ResultBool},
		{0, ResultInt},
		{int64(-3), ResultInt},
		{uint8(1), ResultInt},
		{big.NewInt(5), ResultInt},
		{json.Number("5"), ResultInt},
		{json.Number("5.5"), ResultDouble},
		{3.0, ResultDouble},
		{float32(1), ResultDouble},
		{"s", ResultString},
		{[]byte("raw"), ResultString},
		{[]string{}, ResultArray},
		{[2]int{}, ResultArray},
		{[]interface{}{1, "a"}, ResultArray},
		{nil, ResultNull},
		{map[string]int{}, ResultUnknown},
		{struct{}{}, ResultUnknown},
	}
	for _, tt := range tests {
		if got := ResultType(tt.v); got != tt.want {
			t.Errorf("ResultType(%#v) = %s, want %s", tt.v, got, tt.want)
		}
	}
}
