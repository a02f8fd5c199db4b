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
	"sync"
)

// Graph is a declarative graph description: what to compute, not yet
// how.  A Graph is immutable per version; pushing a changed version
// into a running engine goes through Engine.SetGraph.
type Graph struct {
	Id string `json:"id" yaml:"id"`

	// Out optionally names the root node.
	Out string `json:"out,omitempty" yaml:"out,omitempty"`

	Nodes map[string]*NodeDef `json:"nodes" yaml:"nodes"`

	// Edges is keyed by the source node id: a node feeds exactly
	// one consumer, under a role label.
	Edges map[string]*Edge `json:"edges,omitempty" yaml:"edges,omitempty"`

	once    sync.Once
	edgesIn map[string]map[string]*Edge
}

// NodeDef describes one declarative node.  Exactly one of three shapes
// applies: a value node (literal Value, no Ref), a ref node (external
// behavior or graph reference, Value as optional payload), or a nested
// graph node (Graph embedded as a value).
type NodeDef struct {
	Id string `json:"id" yaml:"id"`

	// Name and Doc are display-only and excluded from structural
	// comparison.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Doc  string `json:"doc,omitempty" yaml:"doc,omitempty"`

	Value interface{} `json:"value,omitempty" yaml:"value,omitempty"`
	Ref   string      `json:"ref,omitempty" yaml:"ref,omitempty"`
	Graph *Graph      `json:"graph,omitempty" yaml:"graph,omitempty"`
}

// Edge connects From's output into To under the role label As.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	As   string `json:"as,omitempty" yaml:"as,omitempty"`
}

// DefKind returns the structural kind of the descriptor.  A change of
// kind is what forces teardown and rebuild of a materialized node;
// anything else is a value change.
func (d *NodeDef) DefKind() string {
	switch {
	case d == nil:
		return ""
	case d.Ref != "":
		// A ref wins over an embedded graph: the graph is then
		// the ref's payload (e.g. runnable).
		return "ref:" + d.Ref
	case d.Graph != nil:
		return "graph"
	default:
		return "value"
	}
}

// EquivDef compares two descriptors structurally, ignoring the
// display-only fields.
func (d *NodeDef) EquivDef(o *NodeDef) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Ref != o.Ref {
		return false
	}
	if !Equiv(d.Value, o.Value) {
		return false
	}
	return Equiv(d.Graph, o.Graph)
}

func (g *Graph) index() {
	g.once.Do(func() {
		g.edgesIn = make(map[string]map[string]*Edge, len(g.Edges))
		for _, edge := range g.Edges {
			in := g.edgesIn[edge.To]
			if in == nil {
				in = make(map[string]*Edge, 4)
				g.edgesIn[edge.To] = in
			}
			in[edge.From] = edge
		}
	})
}

// EdgesIn returns the derived reverse index for one node: source id to
// edge.  The caller must not mutate the result.
func (g *Graph) EdgesIn(to string) map[string]*Edge {
	g.index()
	return g.edgesIn[to]
}

// Node returns the descriptor for the given id.
func (g *Graph) Node(id string) (*NodeDef, error) {
	d, have := g.Nodes[id]
	if !have {
		return nil, &MissingNode{g.Id, id}
	}
	return d, nil
}

// Validate checks that every edge endpoint names a node in the graph
// and that the root (if any) exists.
func (g *Graph) Validate() error {
	if g.Out != "" {
		if _, have := g.Nodes[g.Out]; !have {
			return &MissingNode{g.Id, g.Out}
		}
	}
	for _, edge := range g.Edges {
		if _, have := g.Nodes[edge.From]; !have {
			return &MissingNode{g.Id, edge.From}
		}
		if _, have := g.Nodes[edge.To]; !have {
			return &MissingNode{g.Id, edge.To}
		}
	}
	for _, d := range g.Nodes {
		if d != nil && d.Graph != nil {
			if err := d.Graph.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// GraphProvider can resolve a graph reference by id.  An application
// might back this with a file tree, a database, or an in-memory map.
type GraphProvider interface {
	FindGraph(ctx context.Context, id string) (*Graph, error)
}

// GraphMap is a GraphProvider over a plain map.
type GraphMap map[string]*Graph

func (m GraphMap) FindGraph(ctx context.Context, id string) (*Graph, error) {
	g, have := m[id]
	if !have {
		return nil, &UnknownGraph{id}
	}
	return g, nil
}
