// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package methods holds the built-in RPC methods and typed client stubs for
// calling them.
package methods

import (
	"context"
	"math"
	"math/big"
	"slices"

	"github.com/luxfi/linerpc"
)

// Method names.
const (
	Floor        = "floor"
	NRoot        = "nroot"
	Reverse      = "reverse"
	ValidAnagram = "validAnagram"
	Sort         = "sort"
)

// All returns the built-in method descriptors.
func All() []linerpc.Method {
	return []linerpc.Method{
		{Name: Floor, Params: []linerpc.Type{linerpc.TypeReal}, Handler: floor},
		{Name: NRoot, Params: []linerpc.Type{linerpc.TypeInt, linerpc.TypeReal}, Handler: nroot},
		{Name: Reverse, Params: []linerpc.Type{linerpc.TypeString}, Handler: reverse},
		{Name: ValidAnagram, Params: []linerpc.Type{linerpc.TypeString, linerpc.TypeString}, Handler: validAnagram},
		{Name: Sort, Params: []linerpc.Type{linerpc.TypeStringList}, Handler: sortStrings},
	}
}

// Registry builds the method table served by linerpc-server.
func Registry() (*linerpc.Registry, error) {
	return linerpc.NewRegistry(All()...)
}

func floor(_ context.Context, args linerpc.Args) (interface{}, error) {
	if args.IsInt(0) {
		return args.Integer(0), nil
	}
	f := math.Floor(args.Float(0))
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f), nil
	}
	i, _ := big.NewFloat(f).Int(nil)
	return i, nil
}

func nroot(_ context.Context, args linerpc.Args) (interface{}, error) {
	n := args.Int(0)
	if n <= 0 {
		return nil, linerpc.DomainErrorf("n must be a positive integer.")
	}
	x := args.Float(1)
	if x < 0 {
		if n%2 == 0 {
			return nil, linerpc.DomainErrorf("Cannot compute even root of a negative number.")
		}
		return -root(-x, n), nil
	}
	return root(x, n), nil
}

// root returns the real n-th root of x >= 0, snapping to an integer when that
// integer is an exact root.
func root(x float64, n int64) float64 {
	var r float64
	switch n {
	case 1:
		return x
	case 2:
		r = math.Sqrt(x)
	case 3:
		r = math.Cbrt(x)
	default:
		r = math.Pow(x, 1/float64(n))
	}
	if rr := math.Round(r); rr != r && math.Pow(rr, float64(n)) == x {
		return rr
	}
	return r
}

func reverse(_ context.Context, args linerpc.Args) (interface{}, error) {
	runes := []rune(args.String(0))
	slices.Reverse(runes)
	return string(runes), nil
}

func validAnagram(_ context.Context, args linerpc.Args) (interface{}, error) {
	a, b := []rune(args.String(0)), []rune(args.String(1))
	if len(a) != len(b) {
		return false, nil
	}
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b), nil
}

func sortStrings(_ context.Context, args linerpc.Args) (interface{}, error) {
	out := slices.Clone(args.Strings(0))
	slices.Sort(out)
	return out, nil
}
