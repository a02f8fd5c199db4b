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

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
)

// Bindings is a map of names to values: node inputs for the evaluator
// and the closure visible inside one graph invocation.
type Bindings map[string]interface{}

// NewBindings makes an empty Bindings.
func NewBindings() Bindings {
	return make(Bindings)
}

// Copy makes a shallow copy.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for p, v := range bs {
		acc[p] = v
	}
	return acc
}

// Extend returns a copy with one additional binding.
func (bs Bindings) Extend(p string, v interface{}) Bindings {
	acc := bs.Copy()
	acc[p] = v
	return acc
}

func (bs Bindings) String() string {
	js, err := json.Marshal(bs)
	if err != nil {
		return "{*}"
	}
	return string(js)
}

// NodeId identifies one live node instance within a Scope.
//
// Graph is the instantiation path of the owning graph (nested graph
// calls extend the caller's path), Node is the declarative node id, and
// Role tags engine-internal sub-nodes ("struct" for the
// structure-tracking variable, "state" for a state cell's variable, and
// so on).  A structured key avoids the usual stringly-typed
// concatenation bugs while keeping the same uniqueness invariant.
type NodeId struct {
	Graph string
	Node  string
	Role  string
}

// WithRole returns the id with a different role tag.
func (id NodeId) WithRole(role string) NodeId {
	id.Role = role
	return id
}

// In returns the id of declarative node `node` inside the graph
// instantiation rooted at this id.
func (id NodeId) In(node string) NodeId {
	return NodeId{Graph: id.Graph + "/" + id.Node, Node: node}
}

// Key renders the id for Scope storage and prefix enumeration.
func (id NodeId) Key() string {
	k := id.Graph + "/" + id.Node
	if id.Role != "" {
		k += "-" + id.Role
	}
	return k
}

// Under reports whether this id is the given id or was materialized
// beneath it (a role sub-node or a node of a nested instantiation).
func (id NodeId) Under(prefix NodeId) bool {
	base := prefix.Graph + "/" + prefix.Node
	k := id.Key()
	return k == base ||
		strings.HasPrefix(k, base+"-") ||
		strings.HasPrefix(k, base+"/")
}

func (id NodeId) String() string {
	return id.Key()
}

// Cell is a single mutable slot.  Read and write are its only
// operations; a Cell is not itself reactive.
type Cell struct {
	has bool
	v   interface{}
}

// Get returns the current value.  The second result is false if nothing
// was ever written.
func (c *Cell) Get() (interface{}, bool) {
	return c.v, c.has
}

// Set writes the value.
func (c *Cell) Set(v interface{}) {
	c.v = v
	c.has = true
}

// NodeKind discriminates the closed set of node variants.
type NodeKind int

const (
	// KindConstant is a fixed value.  Replacing the value is a
	// structural operation, not a recomputation.
	KindConstant NodeKind = iota

	// KindVar is an externally mutable terminal with an equality
	// comparator gating invalidation.
	KindVar

	// KindMapped is a pure function over a fixed input-node mapping
	// with a cached input snapshot and a staleness predicate.
	KindMapped

	// KindBound is like KindMapped but its function returns another
	// node, enabling dynamic rewiring.
	KindBound
)

func (k NodeKind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindVar:
		return "var"
	case KindMapped:
		return "mapped"
	case KindBound:
		return "bound"
	}
	return "unknown"
}

// Node is one computation unit in the engine.
//
// Nodes are created through an Engine (Constant, Var, Mapped, Bound) so
// that the Scope and the dependency index stay consistent; the fields
// here are engine-owned.
type Node struct {
	Id   NodeId
	Kind NodeKind

	cell Cell

	// eq gates Var writes.  nil means structural deep equality.
	eq func(prev, next interface{}) bool

	// inputs maps parameter names to input nodes (Mapped, Bound).
	inputs map[string]*Node

	// fn computes the output from the evaluated inputs.  For Bound
	// nodes the result must be a *Node or a *Promised of one.
	fn func(ctx context.Context, args Bindings) (interface{}, error)

	// stale decides whether a changed input snapshot requires
	// recomputation.  nil means always stale.
	stale func(prev, next Bindings) bool

	cachedInputs Bindings
	hasCached    bool

	dirty bool

	// redirty records an invalidation that arrived while an
	// evaluation was in flight.  The completed value is stored, but
	// the node stays dirty so the next read recomputes.
	redirty bool

	// target is the node a Bound node currently resolves to.
	target *Node

	// srcGraph records, for a structure-tracking Var, the id of the
	// declarative graph it was materialized from.  SetGraph uses it
	// to find every instantiation of an updated graph.
	srcGraph string

	// shareKey and persistKey mark a state cell's bus topic and
	// store key.  See Engine.SetState.
	shareKey   string
	persistKey string

	// running counts overlapping evaluations; watch checks are
	// deferred while it is nonzero.
	running      int
	watchPending bool
}

// Value returns the node's current cached output.  The second result is
// false if the node has never been computed.
func (n *Node) Value() (interface{}, bool) {
	return n.cell.Get()
}

// IsDirty reports whether the cached output may be stale.  Only Mapped
// and Bound nodes carry a dirty flag.
func (n *Node) IsDirty() bool {
	return n.dirty
}

// InputNames returns the sorted parameter names of a Mapped or Bound
// node.
func (n *Node) InputNames() []string {
	names := make([]string, 0, len(n.inputs))
	for name := range n.inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
