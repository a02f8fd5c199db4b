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
	"testing"
	"time"
)

// testInterp is a toy script interpreter for exercising graphs without
// a real language runtime.
type testInterp struct{}

func (testInterp) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	if code == "syntax error" {
		return nil, &BadPayload{Reason: "unparsable"}
	}
	return code, nil
}

func (testInterp) Exec(ctx context.Context, bs Bindings, code interface{}, compiled interface{}) (interface{}, error) {
	switch code {
	case "sum":
		acc := 0.0
		for _, v := range bs {
			if f, is := asFloat(v); is {
				acc += f
			}
		}
		return acc, nil
	case "double":
		f, _ := asFloat(bs["x"])
		return 2 * f, nil
	case "concat":
		p, _ := bs["p"].(string)
		q, _ := bs["q"].(string)
		return p + q, nil
	case "slowstep":
		// acc + 2*x, settling on another goroutine.
		a, _ := asFloat(bs["acc"])
		x, _ := asFloat(bs["x"])
		p, resolve, _ := NewPromised()
		go func() {
			time.Sleep(time.Millisecond)
			resolve(a + 2*x)
		}()
		return p, nil
	}
	return nil, &BadPayload{Reason: "unknown code"}
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

func testInterpreters() map[string]Interpreter {
	return map[string]Interpreter{"test": testInterp{}}
}

func script(code string) map[string]interface{} {
	return map[string]interface{}{"language": "test", "code": code}
}

func sumGraph(b float64) *Graph {
	return &Graph{
		Id:  "sums",
		Out: "sum",
		Nodes: map[string]*NodeDef{
			"a":   {Id: "a", Value: 10.0},
			"b":   {Id: "b", Value: b},
			"sum": {Id: "sum", Ref: "script", Value: script("sum")},
		},
		Edges: map[string]*Edge{
			"a": {From: "a", To: "sum", As: "a"},
			"b": {From: "b", To: "sum", As: "b"},
		},
	}
}

func TestFromNodeValue(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil)

	g := &Graph{
		Id:    "g",
		Nodes: map[string]*NodeDef{"v": {Id: "v", Value: "tacos"}},
	}
	n, err := e.FromNode(ctx, g, "v")
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.RunNode(ctx, n).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != "tacos" {
		t.Fatalf("got %v", v)
	}
}

func TestFromNodeScript(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(testInterpreters())

	n, err := e.FromNode(ctx, sumGraph(20), "sum")
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.RunNode(ctx, n).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != 30.0 {
		t.Fatalf("got %v", v)
	}
}

func TestSetGraphValueChange(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(testInterpreters())

	n, err := e.FromNode(ctx, sumGraph(20), "sum")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = e.RunNode(ctx, n).Wait(ctx); err != nil {
		t.Fatal(err)
	}

	ch := e.Watch(n)

	// A value-only change flows as ordinary invalidation: no
	// teardown, and the watcher sees exactly the settled result.
	if err = e.SetGraph(ctx, sumGraph(25)); err != nil {
		t.Fatal(err)
	}
	select {
	case v := <-ch:
		t.Fatalf("watcher fired before settle with %v", v)
	default:
	}

	v, err := e.RunNode(ctx, n).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != 35.0 {
		t.Fatalf("got %v", v)
	}
	if w := <-ch; w != 35.0 {
		t.Fatalf("watcher saw %v", w)
	}
}

func TestSetGraphNoChange(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(testInterpreters())

	n, err := e.FromNode(ctx, sumGraph(20), "sum")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = e.RunNode(ctx, n).Wait(ctx); err != nil {
		t.Fatal(err)
	}

	// Display-only edits never dirty anything.
	g := sumGraph(20)
	g.Nodes["sum"].Name = "The Sum"
	g.Nodes["sum"].Doc = "adds things"
	if err = e.SetGraph(ctx, g); err != nil {
		t.Fatal(err)
	}
	if n.IsDirty() {
		t.Fatal("a display-only change marked the node dirty")
	}
}

func TestSetGraphKindChange(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(testInterpreters())

	n, err := e.FromNode(ctx, sumGraph(20), "sum")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = e.RunNode(ctx, n).Wait(ctx); err != nil {
		t.Fatal(err)
	}

	scriptId := NodeId{Graph: "sums", Node: "sum", Role: "script"}
	if !e.Scope().Has(scriptId) {
		t.Fatal("expected a live script sub-node")
	}

	// Same node id, different kind of definition: the old
	// materialization is torn down and rebuilt.
	g := sumGraph(20)
	g.Nodes["sum"] = &NodeDef{Id: "sum", Value: 99.0}
	g.Edges = nil
	if err = e.SetGraph(ctx, g); err != nil {
		t.Fatal(err)
	}

	v, err := e.RunNode(ctx, n).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != 99.0 {
		t.Fatalf("got %v", v)
	}
	if e.Scope().Has(scriptId) {
		t.Fatal("teardown left the script sub-node behind")
	}
}

func TestSetGraphRemovesNode(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil)

	g := &Graph{
		Id: "g",
		Nodes: map[string]*NodeDef{
			"keep": {Id: "keep", Value: 1.0},
			"gone": {Id: "gone", Value: 2.0},
		},
	}
	if _, err := e.FromNode(ctx, g, "keep"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.FromNode(ctx, g, "gone"); err != nil {
		t.Fatal(err)
	}

	g2 := &Graph{
		Id:    "g",
		Nodes: map[string]*NodeDef{"keep": {Id: "keep", Value: 1.0}},
	}
	if err := e.SetGraph(ctx, g2); err != nil {
		t.Fatal(err)
	}

	if e.Scope().Has(NodeId{Graph: "g", Node: "gone"}) {
		t.Fatal("removed node still live")
	}
	if !e.Scope().Has(NodeId{Graph: "g", Node: "keep"}) {
		t.Fatal("surviving node was removed")
	}
}

func TestRunGraphNodeRoot(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(testInterpreters())
	e.Graphs = GraphMap{"sums": sumGraph(20)}

	p, err := e.RunGraphNode(ctx, "sums", "")
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != 30.0 {
		t.Fatalf("got %v", v)
	}

	if _, err = e.RunGraphNode(ctx, "nope", ""); err == nil {
		t.Fatal("expected an unknown-graph error")
	}
}

func TestFromNodeValidates(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil)

	g := &Graph{
		Id:    "bad",
		Nodes: map[string]*NodeDef{"a": {Id: "a", Value: 1.0}},
		Edges: map[string]*Edge{"a": {From: "a", To: "missing"}},
	}
	if _, err := e.FromNode(ctx, g, "a"); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestNestedGraphCall(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil)
	e.Graphs = GraphMap{
		"inner": {
			Id:  "inner",
			Out: "o",
			Nodes: map[string]*NodeDef{
				"o": {Id: "o", Ref: "arg", Value: "amount"},
			},
		},
		"outer": {
			Id:  "outer",
			Out: "call",
			Nodes: map[string]*NodeDef{
				"x":    {Id: "x", Value: 7.0},
				"call": {Id: "call", Ref: "inner"},
			},
			Edges: map[string]*Edge{
				"x": {From: "x", To: "call", As: "amount"},
			},
		},
	}

	p, err := e.RunGraphNode(ctx, "outer", "")
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v != 7.0 {
		t.Fatalf("got %v", v)
	}
}

func TestScopePrefixIsolation(t *testing.T) {
	s := NewScope()
	a := &Node{Id: NodeId{Graph: "g", Node: "a"}}
	ab := &Node{Id: NodeId{Graph: "g", Node: "ab"}}
	aRole := &Node{Id: NodeId{Graph: "g", Node: "a", Role: "state"}}
	nested := &Node{Id: NodeId{Graph: "g/a", Node: "x"}}
	for _, n := range []*Node{a, ab, aRole, nested} {
		s.Add(n)
	}

	under := s.Under(NodeId{Graph: "g", Node: "a"})
	if len(under) != 3 {
		t.Fatalf("got %d nodes under g/a", len(under))
	}
	for _, n := range under {
		if n == ab {
			t.Fatal(`"g/ab" must not match the "g/a" prefix`)
		}
	}

	removed := s.RemoveAll(NodeId{Graph: "g", Node: "a"})
	if len(removed) != 3 {
		t.Fatalf("removed %d", len(removed))
	}
	if !s.Has(ab.Id) {
		t.Fatal("sibling was removed")
	}
	if s.Len() != 1 {
		t.Fatalf("len == %d", s.Len())
	}
}
