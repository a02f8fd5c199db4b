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

package tools

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/cascata/cascata/core"
)

func testGraph() *core.Graph {
	return &core.Graph{
		Id:  "adder",
		Out: "sum",
		Nodes: map[string]*core.NodeDef{
			"a": {
				Value: 10.0,
				Doc:   "The first addend.",
			},
			"b": {
				Value: 20.0,
			},
			"sum": {
				Name: "Sum",
				Ref:  "script",
				Value: map[string]interface{}{
					"language": "noop",
					"code":     "x + y",
				},
			},
		},
		Edges: map[string]*core.Edge{
			"a": {From: "a", To: "sum", As: "x"},
			"b": {From: "b", To: "sum", As: "y"},
		},
	}
}

func TestDot(t *testing.T) {
	filename := "g.dot"

	out, err := os.Create(filename)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		if err := os.Remove(filename); err != nil {
			t.Fatal(err)
		}
	}()

	g := testGraph()
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}

	if err := Dot(g, out, "sum"); err != nil {
		t.Fatal(err)
	}

	bs, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	s := string(bs)
	for _, want := range []string{`"a" -> "sum"`, "ref:script", "digraph G"} {
		if !strings.Contains(s, want) {
			t.Fatal(want)
		}
	}
}

func TestRenderGraphHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderGraphHTML(testGraph(), &buf); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{"addend", `id="sum"`, "<code>x</code>"} {
		if !strings.Contains(s, want) {
			t.Fatal(want)
		}
	}
}

func TestRenderGraphPage(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderGraphPage(testGraph(), &buf, nil, true); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{"<!DOCTYPE html>", "thisGraph", "graph-html.css"} {
		if !strings.Contains(s, want) {
			t.Fatal(want)
		}
	}
}
