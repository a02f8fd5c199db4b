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
	"sort"
)

// defState is what a structure-tracking Var holds: the node's current
// descriptor, its incoming edges, and the graph version they came
// from.  The Graph field is deliberately excluded from equality, and
// it is only a fallback: materialization resolves the engine's newest
// version of the graph by id, so a defState that sat in a cell across
// a SetGraph cannot resurrect the old version.
type defState struct {
	Def   *NodeDef
	Edges []*Edge
	Graph *Graph
}

// defStateEq compares two defStates structurally: descriptor
// equivalence (display-only fields excluded) plus identical incoming
// edge sets by source and role.
func defStateEq(prev, next interface{}) bool {
	p, is := prev.(*defState)
	if !is {
		return false
	}
	q, is := next.(*defState)
	if !is {
		return false
	}
	if !p.Def.EquivDef(q.Def) {
		return false
	}
	if len(p.Edges) != len(q.Edges) {
		return false
	}
	for i, edge := range p.Edges {
		o := q.Edges[i]
		if edge.From != o.From || edge.To != o.To || edge.As != o.As {
			return false
		}
	}
	return true
}

func stateOf(g *Graph, nodeID string, d *NodeDef) *defState {
	return &defState{
		Def:   d,
		Edges: incomingEdges(g, nodeID),
		Graph: g,
	}
}

// incomingEdges returns the edges feeding a declarative node, sorted
// by source id and role for deterministic comparison.
func incomingEdges(g *Graph, nodeID string) []*Edge {
	in := g.EdgesIn(nodeID)
	acc := make([]*Edge, 0, len(in))
	for _, edge := range in {
		acc = append(acc, edge)
	}
	sort.Slice(acc, func(i, j int) bool {
		if acc[i].From != acc[j].From {
			return acc[i].From < acc[j].From
		}
		return acc[i].As < acc[j].As
	})
	return acc
}

// FromNode materializes one declarative node (and, through dispatch,
// whatever feeds it) as live nodes, returning the node standing for
// its value.  Repeated calls for the same graph and node reuse the
// existing materialization, pushing the latest descriptor through its
// structure-tracking Var.
func (e *Engine) FromNode(ctx context.Context, g *Graph, nodeID string) (*Node, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if nodeID == "" {
		nodeID = g.Out
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registerGraph(g)
	return e.fromNode(ctx, g, nodeID, NodeId{Graph: g.Id, Node: nodeID}, NewBindings())
}

// registerGraph records g as the newest version of its id.  Callers
// hold the engine lock.
func (e *Engine) registerGraph(g *Graph) {
	if g != nil && g.Id != "" {
		e.versions[g.Id] = g
	}
}

// currentGraph resolves the newest registered version of g's id,
// falling back to g itself for graphs the engine has never seen.
func (e *Engine) currentGraph(g *Graph) *Graph {
	if g == nil {
		return nil
	}
	if cur, have := e.versions[g.Id]; have {
		return cur
	}
	return g
}

// fromNode builds the two-node sandwich for one declarative node: a
// structure-tracking Var holding the defState, and a Bound wrapper
// whose function tears down and re-dispatches when the definition's
// kind changes, or just re-dispatches when only values changed.
func (e *Engine) fromNode(ctx context.Context, g *Graph, nodeID string, id NodeId, closure Bindings) (*Node, error) {
	g = e.currentGraph(g)
	d, err := g.Node(nodeID)
	if err != nil {
		return nil, err
	}
	st := stateOf(g, nodeID, d)

	if n, have := e.scope.Get(id); have {
		if sv, ok := e.scope.Get(id.WithRole("struct")); ok {
			e.setVar(sv, st)
		}
		return n, nil
	}

	sv := e.newVar(id.WithRole("struct"), st, defStateEq)
	sv.srcGraph = g.Id

	prevKind := ""
	wrapper := e.newBound(id, map[string]*Node{"structure": sv},
		func(ctx context.Context, args Bindings) (interface{}, error) {
			st, is := args["structure"].(*defState)
			if !is {
				return nil, &BadPayload{Id: id, Reason: "structure input is not a definition"}
			}
			kind := st.Def.DefKind()
			if prevKind != "" && kind != prevKind {
				e.teardown(id)
			}
			prevKind = kind
			return e.dispatch(ctx, id, st, closure)
		}, nil)
	return wrapper, nil
}

// teardown removes everything this node previously materialized (role
// sub-nodes and nested instantiations), keeping only the wrapper and
// its structure-tracking Var.
func (e *Engine) teardown(id NodeId) {
	e.logf("teardown %s", id)
	base := id.Key()
	structKey := id.WithRole("struct").Key()
	for _, n := range e.scope.Under(id) {
		k := n.Id.Key()
		if k == base || k == structKey {
			continue
		}
		e.scope.Remove(n.Id)
		e.dropNode(n)
	}
}

// edgeInputs materializes every node feeding this declarative node and
// returns them keyed by role label (the edge's As, defaulting to the
// source id).
func (e *Engine) edgeInputs(ctx context.Context, id NodeId, st *defState, closure Bindings) (map[string]*Node, error) {
	ins := make(map[string]*Node, len(st.Edges))
	for _, edge := range st.Edges {
		sid := NodeId{Graph: id.Graph, Node: edge.From}
		n, err := e.fromNode(ctx, st.Graph, edge.From, sid, closure)
		if err != nil {
			return nil, err
		}
		role := edge.As
		if role == "" {
			role = edge.From
		}
		ins[role] = n
	}
	return ins, nil
}

// putConstant makes or refreshes a constant at id.
func (e *Engine) putConstant(id NodeId, v interface{}) *Node {
	if n, have := e.scope.Get(id); have && n.Kind == KindConstant {
		n.cell.Set(v)
		return n
	}
	return e.newConstant(id, v)
}

// putVar makes a Var at id, keeping the existing one (and its current
// value) if a re-dispatch comes through again.
func (e *Engine) putVar(id NodeId, v interface{}, eq func(prev, next interface{}) bool) *Node {
	if n, have := e.scope.Get(id); have && n.Kind == KindVar {
		return n
	}
	return e.newVar(id, v, eq)
}

// RunGraphNode materializes and evaluates one node of a stored graph.
// An empty nodeID means the graph's declared root.
func (e *Engine) RunGraphNode(ctx context.Context, graphID, nodeID string) (*Promised, error) {
	if e.Graphs == nil {
		return nil, &UnknownGraph{graphID}
	}
	g, err := e.Graphs.FindGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	n, err := e.FromNode(ctx, g, nodeID)
	if err != nil {
		return nil, err
	}
	return e.RunNode(ctx, n), nil
}

// SetGraph pushes a new version of a declarative graph into the
// running engine.  Every live materialization of the graph sees the
// updated descriptor through its structure-tracking Var: kind changes
// tear down and rebuild, value changes flow as ordinary invalidation,
// and nodes removed from the graph are torn down entirely.
func (e *Engine) SetGraph(ctx context.Context, g *Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logf("SetGraph %s", g.Id)
	if m, is := e.Graphs.(GraphMap); is {
		m[g.Id] = g
	}
	e.setGraph(ctx, g)
	return nil
}

func (e *Engine) setGraph(ctx context.Context, g *Graph) {
	e.registerGraph(g)
	for _, sv := range e.scope.All() {
		if sv.srcGraph != g.Id || sv.Id.Role != "struct" {
			continue
		}
		d, have := g.Nodes[sv.Id.Node]
		if !have {
			// The node is gone from this version; tear down its
			// whole materialization, wrapper included.
			for _, n := range e.scope.RemoveAll(sv.Id.WithRole("")) {
				e.dropNode(n)
			}
			continue
		}
		e.setVar(sv, stateOf(g, sv.Id.Node, d))
	}
	// Graphs embedded as node values update through their own ids.
	for _, d := range g.Nodes {
		if d != nil && d.Graph != nil {
			e.setGraph(ctx, d.Graph)
		}
	}
}
