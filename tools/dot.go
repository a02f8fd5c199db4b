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

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/cascata/cascata/core"

	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the given graph.  A really ugly
// dot file.
//
// The optional highlight can be the id of a node, which will be drawn
// in red.  Maybe.
func Dot(g *core.Graph, w io.WriteCloser, highlight string) error {

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=BT,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		d := g.Nodes[id]
		label := id
		if d.Name != "" && d.Name != id {
			label = d.Name + "<BR/><FONT POINT-SIZE='8'>" + id + "</FONT>"
		}
		if d.Doc != "" {
			doc := d.Doc
			if 40 < len(doc) {
				period := strings.Index(doc, ". ")
				if 0 < period {
					doc = doc[0 : period+1]
				}
			}
			label += "<BR/><FONT POINT-SIZE='8'>" + doc + "</FONT>"
		}

		fillcolor := "#99ddc8"
		shape := "record"
		switch kind := d.DefKind(); kind {
		case "graph":
			fillcolor = "#2d93ad"
		case "value":
			fillcolor = "#52aa5e"
			if d.Value != nil {
				js, err := yaml.Marshal(d.Value)
				if err != nil {
					js = []byte(err.Error())
				}
				v := escapeHTML(string(js))
				label += `<FONT POINT-SIZE="6">` +
					`<BR/>` + strings.Replace(v, "\n", `<BR ALIGN="LEFT"/>`, -1) +
					`</FONT>`
			}
		default: // "ref:..."
			shape = "note"
			label += `<FONT POINT-SIZE="8"><BR/>` + escapeHTML(kind) + `</FONT>`
		}

		color := "black"
		style := "filled"
		if id == highlight {
			color = "red"
			fillcolor = "#f98b8b"
		}
		if id == g.Out {
			style += ",bold"
		}
		if len(g.EdgesIn(id)) == 0 {
			style += ",dashed"
		}
		fmt.Fprintf(w, "  \"%s\" [shape=\"%s\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			escape(id), shape, style, color, escape(fillcolor), label)
	}

	froms := make([]string, 0, len(g.Edges))
	for from := range g.Edges {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	for _, from := range froms {
		e := g.Edges[from]
		color := "black"
		if from == highlight || e.To == highlight {
			color = "red"
		}
		label := e.As
		if label == "" {
			label = from
		}
		fmt.Fprintf(w, "  \"%s\" -> \"%s\" [ color=\"%s\" label = <%s> ]\n",
			escape(from), escape(e.To), color, escapeHTML(label))
	}

	fmt.Fprintf(w, "}\n")
	return w.Close()
}

// PNG generates a PNG image based on output from Dot.
//
// This function will write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(g *core.Graph, basename string, highlight string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	// ToDo: Use mktemp
	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(g, dotfile, highlight); err != nil {
		return pngname, err
	}
	cmd := "dot -Tpng -Gstart=1 " + dotname + " > " + pngname
	if err := exec.Command("bash", "-c", cmd).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

func escape(s string) string {
	return strings.Replace(s, `"`, `\"`, -1)
}

func escapeHTML(s string) string {
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}
