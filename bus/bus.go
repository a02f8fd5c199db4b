/* Copyright 2026 The Cascata Authors
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bus provides core.Channel implementations for shared-state
// cross-notification between engine instances.
package bus

import (
	"context"
	"sync"

	"github.com/cascata/cascata/core"
)

// InProc is an in-process core.Channel.  Delivery is asynchronous,
// the way a real broker's would be, so a subscriber can safely call
// back into the engine that published.
type InProc struct {
	sync.Mutex
	serial int
	subs   map[string]map[int]func(interface{})
}

func NewInProc() *InProc {
	return &InProc{
		subs: make(map[string]map[int]func(interface{})),
	}
}

func (b *InProc) Publish(ctx context.Context, key string, v interface{}) error {
	b.Lock()
	fs := make([]func(interface{}), 0, len(b.subs[key]))
	for _, f := range b.subs[key] {
		fs = append(fs, f)
	}
	b.Unlock()
	for _, f := range fs {
		f := f
		go f(v)
	}
	return nil
}

func (b *InProc) Subscribe(ctx context.Context, key string, f func(interface{})) (func(), error) {
	b.Lock()
	defer b.Unlock()
	b.serial++
	n := b.serial
	m := b.subs[key]
	if m == nil {
		m = make(map[int]func(interface{}))
		b.subs[key] = m
	}
	m[n] = f
	return func() {
		b.Lock()
		defer b.Unlock()
		delete(b.subs[key], n)
	}, nil
}

var _ core.Channel = &InProc{}
