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
	"log"
	"sync"
)

// Store is an opaque key/value collaborator used by state cells with a
// persist key.  See package storage for implementations.
type Store interface {
	// Get returns the stored value for the key.  The second result
	// is false if the key has never been set.
	Get(ctx context.Context, key string) (interface{}, bool, error)

	// Set stores the value under the key.
	Set(ctx context.Context, key string, v interface{}) error
}

// Channel is a publish/subscribe collaborator used by shared state
// cells to cross-notify independent engine instances.  See package bus
// for implementations.
type Channel interface {
	Publish(ctx context.Context, key string, v interface{}) error

	// Subscribe registers f for values published under the key and
	// returns a cancel function.
	Subscribe(ctx context.Context, key string, f func(interface{})) (func(), error)
}

// Interpreter can compile and execute code for script nodes.
//
// Compile can make something that helps when Exec()ing the code later.
// Exec receives the named inputs of the script node as Bindings and
// returns the node's value.
type Interpreter interface {
	Compile(ctx context.Context, code interface{}) (interface{}, error)
	Exec(ctx context.Context, bs Bindings, code interface{}, compiled interface{}) (interface{}, error)
}

// Engine owns all live state for one dataflow instance: the Scope of
// nodes, the dependency index, watch registrations, and the
// re-entrancy counters.  Engines are independent; make as many as you
// want.
//
// Engine methods serialize on an internal mutex.  Node functions run
// while it is held, so they must not call back into the public API;
// they receive everything they need as inputs.
type Engine struct {
	mu sync.Mutex

	scope *Scope

	// outputs[x] holds the nodes that read x; inputs[y] holds the
	// nodes y reads.  Rebuilt by resetInputs whenever a node's
	// input map is (re)established.
	outputs map[NodeId]map[NodeId]*Node
	inputs  map[NodeId]map[NodeId]*Node

	// watches holds one-shot settle subscriptions.
	watches map[NodeId][]chan interface{}

	// dirtying counts re-entrant dirty() calls; watch checks for
	// touched nodes replay only when it returns to zero.
	dirtying int
	touched  map[NodeId]*Node

	interpreters map[string]Interpreter

	// Collaborators.  All optional.
	Graphs GraphProvider
	Store  Store
	Bus    Channel

	// shared maps a state cell's share key to its backing Var.
	shared map[string]*Node
	unsub  map[string]func()

	// lastGood caches the most recent successful script build per
	// node so a broken edit degrades instead of crashing.
	lastGood map[NodeId]*scriptProgram

	// versions maps a graph id to its newest version.  Descriptors
	// carry *Graph pointers around; every internal materialization
	// resolves through this map so an old pointer can never push an
	// old descriptor back over a fresh one.
	versions map[string]*Graph

	Verbose bool
}

// NewEngine makes an Engine with the given script interpreters, which
// may be nil if no graph uses script nodes.
func NewEngine(interpreters map[string]Interpreter) *Engine {
	return &Engine{
		scope:        NewScope(),
		outputs:      make(map[NodeId]map[NodeId]*Node),
		inputs:       make(map[NodeId]map[NodeId]*Node),
		watches:      make(map[NodeId][]chan interface{}),
		touched:      make(map[NodeId]*Node),
		interpreters: interpreters,
		shared:       make(map[string]*Node),
		unsub:        make(map[string]func()),
		lastGood:     make(map[NodeId]*scriptProgram),
		versions:     make(map[string]*Graph),
	}
}

// logf traces engine internals when Verbose is set.  Warnings and
// errors log unconditionally; this is only for the chatty stuff.
func (e *Engine) logf(format string, args ...interface{}) {
	if !e.Verbose {
		return
	}
	log.Printf("Engine."+format, args...)
}

// Scope returns the engine's node store.
func (e *Engine) Scope() *Scope {
	return e.scope
}

// Constant makes a node holding a fixed value.
func (e *Engine) Constant(id NodeId, v interface{}) *Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.newConstant(id, v)
}

// Var makes an externally mutable terminal node.  Writes via Set only
// mark dependents dirty if eq reports a difference; a nil eq means
// structural equality (Equiv).
func (e *Engine) Var(id NodeId, v interface{}, eq func(prev, next interface{}) bool) *Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.newVar(id, v, eq)
}

// Mapped makes a node computing fn over the given input nodes.  A nil
// stale predicate means any input change recomputes.
func (e *Engine) Mapped(id NodeId, inputs map[string]*Node, fn func(context.Context, Bindings) (interface{}, error), stale func(prev, next Bindings) bool) *Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.newMapped(id, inputs, fn, stale)
}

// Bound makes a node whose function returns another node (or a
// Promised of one), enabling dynamic rewiring.
func (e *Engine) Bound(id NodeId, inputs map[string]*Node, fn func(context.Context, Bindings) (interface{}, error), stale func(prev, next Bindings) bool) *Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.newBound(id, inputs, fn, stale)
}

// Set writes a Var.  It reports whether the write was a change under
// the node's comparator (and therefore marked dependents dirty).
func (e *Engine) Set(n *Node, v interface{}) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setVar(n, v)
}

// Watch subscribes to the node's next settled value.  The channel
// receives exactly one value after the next dirty-to-clean settle and
// is then closed; re-subscribe for continued updates.
func (e *Engine) Watch(n *Node) <-chan interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan interface{}, 1)
	e.watches[n.Id] = append(e.watches[n.Id], ch)
	return ch
}

func (e *Engine) newNode(id NodeId, kind NodeKind) *Node {
	n := &Node{
		Id:   id,
		Kind: kind,
	}
	e.scope.Add(n)
	return n
}

func (e *Engine) newConstant(id NodeId, v interface{}) *Node {
	n := e.newNode(id, KindConstant)
	n.cell.Set(v)
	return n
}

func (e *Engine) newVar(id NodeId, v interface{}, eq func(prev, next interface{}) bool) *Node {
	n := e.newNode(id, KindVar)
	n.cell.Set(v)
	n.eq = eq
	return n
}

func (e *Engine) newMapped(id NodeId, inputs map[string]*Node, fn func(context.Context, Bindings) (interface{}, error), stale func(prev, next Bindings) bool) *Node {
	n := e.newNode(id, KindMapped)
	n.inputs = inputs
	n.fn = fn
	n.stale = stale
	n.dirty = true
	e.resetInputs(n)
	return n
}

func (e *Engine) newBound(id NodeId, inputs map[string]*Node, fn func(context.Context, Bindings) (interface{}, error), stale func(prev, next Bindings) bool) *Node {
	n := e.newNode(id, KindBound)
	n.inputs = inputs
	n.fn = fn
	n.stale = stale
	n.dirty = true
	e.resetInputs(n)
	return n
}

func (e *Engine) setVar(n *Node, v interface{}) bool {
	prev, has := n.cell.Get()
	eq := n.eq
	if eq == nil {
		eq = Equiv
	}
	if has && eq(prev, v) {
		return false
	}
	e.logf("setVar %s", n.Id)
	n.cell.Set(v)
	e.dirtyNode(n, nil)
	return true
}

// resetInputs (re)establishes the dependency index rows for n from its
// current input map.
func (e *Engine) resetInputs(n *Node) {
	if old := e.inputs[n.Id]; old != nil {
		for iid := range old {
			delete(e.outputs[iid], n.Id)
		}
	}
	ins := make(map[NodeId]*Node, len(n.inputs))
	for _, in := range n.inputs {
		ins[in.Id] = in
		out := e.outputs[in.Id]
		if out == nil {
			out = make(map[NodeId]*Node, 4)
			e.outputs[in.Id] = out
		}
		out[n.Id] = n
	}
	e.inputs[n.Id] = ins
}

// addEdge registers reader as an output of n without touching reader's
// declared input map.  Used for bound-node retargeting.
func (e *Engine) addEdge(n, reader *Node) {
	out := e.outputs[n.Id]
	if out == nil {
		out = make(map[NodeId]*Node, 4)
		e.outputs[n.Id] = out
	}
	out[reader.Id] = reader
	in := e.inputs[reader.Id]
	if in == nil {
		in = make(map[NodeId]*Node, 4)
		e.inputs[reader.Id] = in
	}
	in[n.Id] = n
}

// dropEdge removes a single dependency edge.
func (e *Engine) dropEdge(n, reader *Node) {
	delete(e.outputs[n.Id], reader.Id)
	delete(e.inputs[reader.Id], n.Id)
}

// dropNode removes all trace of a node from the dependency index and
// closes its watches.  Callers have already removed it from the Scope.
func (e *Engine) dropNode(n *Node) {
	for iid := range e.inputs[n.Id] {
		delete(e.outputs[iid], n.Id)
	}
	delete(e.inputs, n.Id)
	for oid := range e.outputs[n.Id] {
		delete(e.inputs[oid], n.Id)
	}
	delete(e.outputs, n.Id)
	delete(e.touched, n.Id)
	for _, ch := range e.watches[n.Id] {
		close(ch)
	}
	delete(e.watches, n.Id)
}

// resume arranges for f to run with the engine lock held once p
// settles.  If p has already settled, f runs immediately on the
// calling goroutine, which must hold the lock.
func (e *Engine) resume(p *Promised, f func(v interface{}, err error)) {
	if v, err, ok := p.Peek(); ok {
		f(v, err)
		return
	}
	go func() {
		v, err := p.Wait(context.Background())
		e.mu.Lock()
		f(v, err)
		e.mu.Unlock()
	}()
}
