// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cor

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// BaseContext is the default Context. It is not safe for concurrent use; a
// chain execution is sequential.
type BaseContext struct {
	data    map[string]any
	errors  map[string]error
	context context.Context
}

// NewBaseContext creates an empty context bound to ctx.
func NewBaseContext(ctx context.Context) Context {
	return &BaseContext{
		data:    make(map[string]any),
		errors:  make(map[string]error),
		context: ctx,
	}
}

// SetContext rebinds the context, typically to carry a new tracing span.
func (c *BaseContext) SetContext(ctx context.Context) {
	c.context = ctx
}

// GetContext returns the bound context.Context.
func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Add stores value under key, replacing any earlier value, and returns the
// context so calls can be chained.
func (c *BaseContext) Add(key string, value any) Context {
	c.data[key] = value
	return c
}

// Get returns the value stored under key, or nil.
func (c *BaseContext) Get(key string) any {
	return c.data[key]
}

// Remove deletes key. Removing an absent key is a no-op.
func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

// AddError records err under key, usually the name of the failing command.
func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

// GetErrors returns the recorded errors keyed by the name they were added under.
// The map is live; callers must not modify it.
func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// HasErrors reports whether any command has recorded an error.
func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}

// Err joins the recorded errors into one.
//
// Outputs:
//   - nil when no error was recorded.
//   - otherwise an errors.Join of "key: err" entries sorted by key, so the
//     message is stable across runs. Each entry wraps the original error and
//     can be matched with errors.Is.
func (c *BaseContext) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.errors))
	for k := range c.errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, fmt.Errorf("%s: %w", k, c.errors[k]))
	}
	return errors.Join(errs...)
}

// Value reads a typed value from the context. ok is false when the key is
// absent or holds another type.
func Value[T any](c Context, key string) (T, bool) {
	v, ok := c.Get(key).(T)
	return v, ok
}
