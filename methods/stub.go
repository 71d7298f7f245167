// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package methods

import (
	"context"

	"github.com/luxfi/linerpc"
)

// Stub calls the built-in methods through any linerpc.Client.
type Stub struct {
	client linerpc.Client
}

func NewStub(c linerpc.Client) *Stub {
	return &Stub{client: c}
}

func (s *Stub) Floor(ctx context.Context, x float64) (int64, error) {
	var out int64
	err := s.client.Call(ctx, Floor, []interface{}{x}, &out)
	return out, err
}

func (s *Stub) NRoot(ctx context.Context, n int64, x float64) (float64, error) {
	var out float64
	err := s.client.Call(ctx, NRoot, []interface{}{n, x}, &out)
	return out, err
}

func (s *Stub) Reverse(ctx context.Context, str string) (string, error) {
	var out string
	err := s.client.Call(ctx, Reverse, []interface{}{str}, &out)
	return out, err
}

func (s *Stub) ValidAnagram(ctx context.Context, a, b string) (bool, error) {
	var out bool
	err := s.client.Call(ctx, ValidAnagram, []interface{}{a, b}, &out)
	return out, err
}

func (s *Stub) Sort(ctx context.Context, items []string) ([]string, error) {
	if items == nil {
		items = []string{}
	}
	var out []string
	err := s.client.Call(ctx, Sort, []interface{}{items}, &out)
	return out, err
}
