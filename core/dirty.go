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

// dirtyNode marks n and everything downstream of it dirty, then (once
// the outermost call finishes) replays watch checks for every node the
// batch touched.
//
// The dirtying counter makes re-entrant invalidations within one
// synchronous turn coalesce: two Var writes feeding the same Mapped
// node produce one notification pass, so watchers never observe an
// intermediate state.
//
// breakOn cuts descent at a freshly swapped-in bound-node target so
// the old subtree doesn't also get marked.
func (e *Engine) dirtyNode(n *Node, breakOn *Node) {
	e.dirtying++
	e.propagate(n, breakOn)
	e.finishDirty()
}

// dirtyOutputs marks only the readers of n, leaving n itself alone.
// Used when a Bound node's swap changed its resolved value after n was
// already settled in this pass.
func (e *Engine) dirtyOutputs(n *Node, breakOn *Node) {
	e.dirtying++
	for _, out := range e.outputs[n.Id] {
		e.propagate(out, breakOn)
	}
	e.finishDirty()
}

func (e *Engine) propagate(n *Node, breakOn *Node) {
	if n.Kind == KindMapped || n.Kind == KindBound {
		if n.dirty {
			// Already-dirty nodes were propagated through in
			// an earlier pass; stopping here keeps the batch
			// an idempotent fixpoint.  If an evaluation is in
			// flight, the invalidation queues a follow-up
			// instead.
			if n.running > 0 {
				n.redirty = true
			}
			return
		}
		n.dirty = true
	}
	e.touched[n.Id] = n
	if breakOn != nil && n.Id == breakOn.Id {
		return
	}
	for _, out := range e.outputs[n.Id] {
		e.propagate(out, breakOn)
	}
}

func (e *Engine) finishDirty() {
	e.dirtying--
	if e.dirtying != 0 {
		return
	}
	batch := make([]*Node, 0, len(e.touched))
	for _, t := range e.touched {
		batch = append(batch, t)
	}
	e.touched = make(map[NodeId]*Node, 8)
	for _, t := range batch {
		e.checkWatch(t)
	}
}

// checkWatch fires the node's one-shot watches if it is settled: clean
// and with no evaluation in flight.  A running node defers the check
// until its running counter returns to zero.
func (e *Engine) checkWatch(n *Node) {
	if n.dirty {
		return
	}
	if n.running > 0 {
		n.watchPending = true
		return
	}
	e.notifyWatchers(n)
}

func (e *Engine) notifyWatchers(n *Node) {
	chs := e.watches[n.Id]
	if len(chs) == 0 {
		return
	}
	delete(e.watches, n.Id)
	v, _ := n.cell.Get()
	for _, ch := range chs {
		ch <- v
		close(ch)
	}
}
