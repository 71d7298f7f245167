// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import (
	"context"
	"fmt"
)

// Handler implements one method. Returning a *DomainError reports the message
// to the client; any other error is treated as an internal fault.
type Handler func(ctx context.Context, args Args) (interface{}, error)

// Method describes a callable registered by name.
type Method struct {
	Name    string
	Params  []Type
	Handler Handler
}

// Arity is the number of positional parameters the method expects.
func (m *Method) Arity() int {
	return len(m.Params)
}

// spread reports whether the method's only parameter is a string list, in
// which case the strings may also be sent directly as params.
func (m *Method) spread() bool {
	return len(m.Params) == 1 && m.Params[0] == TypeStringList
}

// Registry is the method table. It is built once by NewRegistry and is safe
// for concurrent lookups since it is never mutated afterwards.
type Registry struct {
	methods map[string]*Method
}

// NewRegistry builds a registry from methods. Names must be unique and every
// method needs a handler.
func NewRegistry(methods ...Method) (*Registry, error) {
	r := &Registry{methods: make(map[string]*Method, len(methods))}
	for i := range methods {
		m := methods[i]
		if m.Name == "" {
			return nil, fmt.Errorf("method %d has no name", i)
		}
		if m.Handler == nil {
			return nil, fmt.Errorf("method %q has no handler", m.Name)
		}
		if _, dup := r.methods[m.Name]; dup {
			return nil, fmt.Errorf("method %q registered twice", m.Name)
		}
		m.Params = append([]Type(nil), m.Params...)
		r.methods[m.Name] = &m
	}
	return r, nil
}

// Lookup returns the method registered under name.
func (r *Registry) Lookup(name string) (*Method, bool) {
	m, ok := r.methods[name]
	return m, ok
}

// Names returns the registered method names in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	return names
}
