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

package core

import "sort"

// Scope is the keyed store of all live nodes for one engine instance.
//
// Prefix enumeration and removal exist to tear down everything a
// declarative node materialized (role sub-nodes and nested graph
// instantiations) when that node's kind changes.
//
// Not safe for concurrent use; the owning Engine serializes access.
type Scope struct {
	nodes map[string]*Node
}

func NewScope() *Scope {
	return &Scope{
		nodes: make(map[string]*Node, 64),
	}
}

// Add stores the node under its id, replacing any previous occupant.
func (s *Scope) Add(n *Node) {
	s.nodes[n.Id.Key()] = n
}

// Get returns the node with the given id.
func (s *Scope) Get(id NodeId) (*Node, bool) {
	n, have := s.nodes[id.Key()]
	return n, have
}

// Has reports whether a node with the given id is live.
func (s *Scope) Has(id NodeId) bool {
	_, have := s.nodes[id.Key()]
	return have
}

// Under returns all live nodes at or beneath the given id, sorted by
// key for deterministic iteration.
func (s *Scope) Under(prefix NodeId) []*Node {
	var acc []*Node
	for _, n := range s.nodes {
		if n.Id.Under(prefix) {
			acc = append(acc, n)
		}
	}
	sort.Slice(acc, func(i, j int) bool {
		return acc[i].Id.Key() < acc[j].Id.Key()
	})
	return acc
}

// Remove deletes the node with the given id, if live, and returns it.
func (s *Scope) Remove(id NodeId) (*Node, bool) {
	n, have := s.nodes[id.Key()]
	if have {
		delete(s.nodes, id.Key())
	}
	return n, have
}

// All returns every live node, sorted by key.
func (s *Scope) All() []*Node {
	acc := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		acc = append(acc, n)
	}
	sort.Slice(acc, func(i, j int) bool {
		return acc[i].Id.Key() < acc[j].Id.Key()
	})
	return acc
}

// RemoveAll deletes all nodes at or beneath the given id and returns
// them so the caller can drop their dependency edges.
func (s *Scope) RemoveAll(prefix NodeId) []*Node {
	removed := s.Under(prefix)
	for _, n := range removed {
		delete(s.nodes, n.Id.Key())
	}
	return removed
}

// Len returns the number of live nodes.
func (s *Scope) Len() int {
	return len(s.nodes)
}
