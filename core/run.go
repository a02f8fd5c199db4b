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
	"fmt"
	"log"
)

// RunNode evaluates the node, returning its current value or a
// Promised of it.
//
// Clean nodes return their cached cell contents with no recomputation.
// A dirty Mapped or Bound node re-evaluates its inputs (recursively,
// through this same entry point), consults its staleness predicate, and
// recomputes only if the input snapshot actually changed.
func (e *Engine) RunNode(ctx context.Context, n *Node) *Promised {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runNode(ctx, n)
}

func (e *Engine) runNode(ctx context.Context, n *Node) *Promised {
	switch n.Kind {
	case KindConstant, KindVar:
		v, _ := n.cell.Get()
		return Ready(v)
	}

	if !n.dirty {
		v, _ := n.cell.Get()
		return Ready(v)
	}

	e.logf("runNode %s recomputing", n.Id)

	n.running++

	names := n.InputNames()
	parts := make([]interface{}, len(names))
	for i, name := range names {
		parts[i] = e.runNode(ctx, n.inputs[name])
	}

	p, resolve, _ := NewPromised()
	e.resume(PromiseAll(parts), func(xs interface{}, err error) {
		if err != nil {
			e.settleNode(ctx, n, nil, e.fault(n, err), resolve)
			return
		}
		vs := xs.([]interface{})
		next := make(Bindings, len(names))
		for i, name := range names {
			next[name] = vs[i]
		}

		// "Nothing yet" always recomputes; otherwise the node's
		// staleness predicate decides.  A nil predicate means
		// always stale.
		_, computed := n.cell.Get()
		stale := true
		if computed && n.hasCached && n.stale != nil {
			stale = n.stale(n.cachedInputs, next)
		}

		if !stale {
			n.dirty = n.redirty
			n.redirty = false
			v, _ := n.cell.Get()
			e.finishRun(n)
			resolve(v)
			return
		}

		e.compute(ctx, n, next, resolve)
	})
	return p
}

// compute invokes the node's function on the input snapshot and routes
// the result (value, Promised, or for Bound nodes another node) to
// settleNode.
func (e *Engine) compute(ctx context.Context, n *Node, next Bindings, resolve func(interface{})) {
	out, err := e.invoke(ctx, n, next)
	if err != nil {
		e.settleNode(ctx, n, next, e.fault(n, err), resolve)
		return
	}
	if q, is := out.(*Promised); is {
		e.resume(q, func(v interface{}, err error) {
			if err != nil {
				v = e.fault(n, err)
			}
			e.settleNode(ctx, n, next, v, resolve)
		})
		return
	}
	e.settleNode(ctx, n, next, out, resolve)
}

// invoke calls the node function, converting a panic into an error at
// the point of invocation so one node's failure can't take down the
// batch.
func (e *Engine) invoke(ctx context.Context, n *Node, args Bindings) (out interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, is := r.(error); is {
				err = re
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	return n.fn(ctx, args)
}

// settleNode writes the computed value, caches the input snapshot,
// clears the dirty flag, and notifies watchers.  For a Bound node
// whose function produced another node, it retargets first.
func (e *Engine) settleNode(ctx context.Context, n *Node, next Bindings, v interface{}, resolve func(interface{})) {
	if n.Kind == KindBound {
		if t, is := v.(*Node); is {
			e.retarget(ctx, n, t, next, resolve)
			return
		}
		if v != nil && !IsFault(v) && !IsNothing(v) {
			v = e.fault(n, &BadTarget{n.Id})
		}
	}
	e.settleFinal(n, next, v, resolve)
}

// retarget swaps the Bound node's live downstream edge to the newly
// returned target, evaluates the target, and settles the Bound node
// with the target's resolved value.
func (e *Engine) retarget(ctx context.Context, n *Node, t *Node, next Bindings, resolve func(interface{})) {
	old := n.target
	if old != nil && old.Id != t.Id {
		e.dropEdge(old, n)
	}
	if old == nil || old.Id != t.Id {
		e.addEdge(t, n)
	}
	n.target = t

	tp := e.runNode(ctx, t)
	e.resume(tp, func(v interface{}, err error) {
		if err != nil {
			v = e.fault(n, err)
		}
		prev, had := n.cell.Get()
		if had && old != nil && old.Id != t.Id && !Equiv(prev, v) {
			// The swap changed the resolved value.  Remark the
			// readers, cutting at the fresh target so its value
			// survives the pass.
			e.dirtyOutputs(n, t)
		}
		e.settleFinal(n, next, v, resolve)
	})
}

func (e *Engine) settleFinal(n *Node, next Bindings, v interface{}, resolve func(interface{})) {
	if next != nil {
		n.cachedInputs = next
		n.hasCached = true
	}
	n.cell.Set(v)
	n.dirty = n.redirty
	n.redirty = false
	if !n.dirty {
		e.notifyWatchers(n)
	}
	e.finishRun(n)
	resolve(v)
}

// finishRun decrements the running counter and fires any watch check
// that was deferred while an evaluation was in flight.
func (e *Engine) finishRun(n *Node) {
	n.running--
	if n.running == 0 && n.watchPending {
		n.watchPending = false
		e.checkWatch(n)
	}
}

func (e *Engine) fault(n *Node, err error) *Fault {
	if f, is := err.(*Fault); is {
		return f
	}
	log.Printf("Engine.runNode %s error: %v", n.Id, err)
	return &Fault{Of: n.Id, Err: err}
}
