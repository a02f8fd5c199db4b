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

// Package storage provides core.Store implementations for state-cell
// persistence.
package storage

import (
	"context"
	"sync"

	"github.com/cascata/cascata/core"
)

// Mem is an in-memory core.Store, mostly for tests and single-process
// use.
type Mem struct {
	sync.Mutex
	data map[string]interface{}
}

func NewMem() *Mem {
	return &Mem{
		data: make(map[string]interface{}),
	}
}

func (s *Mem) Get(ctx context.Context, key string) (interface{}, bool, error) {
	s.Lock()
	defer s.Unlock()
	v, have := s.data[key]
	return v, have, nil
}

func (s *Mem) Set(ctx context.Context, key string, v interface{}) error {
	s.Lock()
	defer s.Unlock()
	s.data[key] = v
	return nil
}

var _ core.Store = &Mem{}
