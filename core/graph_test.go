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
)

func TestDefKind(t *testing.T) {
	cases := []struct {
		d    *NodeDef
		want string
	}{
		{nil, ""},
		{&NodeDef{Value: 1.0}, "value"},
		{&NodeDef{}, "value"},
		{&NodeDef{Ref: "state"}, "ref:state"},
		{&NodeDef{Graph: &Graph{Id: "g"}}, "graph"},
		{&NodeDef{Ref: "runnable", Graph: &Graph{Id: "g"}}, "ref:runnable"},
	}
	for i, c := range cases {
		if got := c.d.DefKind(); got != c.want {
			t.Fatalf("case %d: got %q, want %q", i, got, c.want)
		}
	}
}

func TestEquivDefIgnoresDisplayFields(t *testing.T) {
	a := &NodeDef{Id: "x", Value: 1.0, Name: "One", Doc: "the loneliest number"}
	b := &NodeDef{Id: "x", Value: 1.0}
	if !a.EquivDef(b) {
		t.Fatal("display-only fields should not matter")
	}

	c := &NodeDef{Id: "x", Value: 2.0}
	if a.EquivDef(c) {
		t.Fatal("a value change must matter")
	}

	d := &NodeDef{Id: "x", Ref: "state"}
	if a.EquivDef(d) {
		t.Fatal("a ref change must matter")
	}
}

func TestEdgesIn(t *testing.T) {
	g := &Graph{
		Id: "g",
		Nodes: map[string]*NodeDef{
			"a": {Id: "a"},
			"b": {Id: "b"},
			"c": {Id: "c"},
		},
		Edges: map[string]*Edge{
			"a": {From: "a", To: "c", As: "x"},
			"b": {From: "b", To: "c", As: "y"},
		},
	}
	in := g.EdgesIn("c")
	if len(in) != 2 {
		t.Fatalf("got %d edges", len(in))
	}
	if in["a"].As != "x" || in["b"].As != "y" {
		t.Fatalf("got %#v", in)
	}
	if len(g.EdgesIn("a")) != 0 {
		t.Fatal("a has no incoming edges")
	}
}

func TestValidate(t *testing.T) {
	g := &Graph{
		Id:    "g",
		Out:   "a",
		Nodes: map[string]*NodeDef{"a": {Id: "a"}},
	}
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}

	g.Out = "missing"
	if err := g.Validate(); err == nil {
		t.Fatal("expected an error for a missing root")
	}

	g.Out = "a"
	g.Edges = map[string]*Edge{"a": {From: "a", To: "nope"}}
	if _, is := g.Validate().(*MissingNode); !is {
		t.Fatalf("got %v", g.Validate())
	}
}

func TestGraphMap(t *testing.T) {
	ctx := context.Background()
	m := GraphMap{"g": {Id: "g"}}
	if _, err := m.FindGraph(ctx, "g"); err != nil {
		t.Fatal(err)
	}
	_, err := m.FindGraph(ctx, "nope")
	if _, is := err.(*UnknownGraph); !is {
		t.Fatalf("got %v", err)
	}
}
