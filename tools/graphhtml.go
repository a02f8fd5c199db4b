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
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"sort"

	"github.com/cascata/cascata/core"
	. "github.com/cascata/cascata/util/testutil"
	"github.com/jsccast/yaml"

	md "github.com/russross/blackfriday/v2"
)

// RenderGraphHTML writes an HTML fragment documenting the graph's
// nodes and edges.
func RenderGraphHTML(g *core.Graph, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	f(`<div class="nodes"><table>`)
	fn := func(id string, d *core.NodeDef) {
		name := d.Name
		if name == "" {
			name = id
		}
		f(`<tr class="node"><td><span id="%s" class="nodeName">%s</span></td><td>`, id, name)

		if d.Doc != "" {
			f(`<div class="nodeDoc doc">%s</div>`, md.Run([]byte(d.Doc)))
		}

		switch kind := d.DefKind(); kind {
		case "value":
			f(`<div class="code"><pre>%s</pre></div>`, JS(d.Value))
		case "graph":
			f(`<div>embedded graph: <a href="#%s"><code>%s</code></a></div>`, d.Graph.Out, d.Graph.Id)
		default:
			f(`<div>ref: <code>%s</code></div>`, d.Ref)
			if d.Value != nil {
				f(`<div class="code"><pre>%s</pre></div>`, JS(d.Value))
			}
		}

		if ins := g.EdgesIn(id); 0 < len(ins) {
			froms := make([]string, 0, len(ins))
			for from := range ins {
				froms = append(froms, from)
			}
			sort.Strings(froms)
			f(`<div class="edges"><table>`)
			for _, from := range froms {
				e := ins[from]
				role := e.As
				if role == "" {
					role = e.From
				}
				f(`<tr><td><code>%s</code></td><td><a href="#%s"><code>%s</code></a></td></tr>`,
					role, e.From, e.From)
			}
			f(`</table></div>`)
		}
		f(`</td></tr>`)
	}
	if d, has := g.Nodes[g.Out]; has {
		fn(g.Out, d)
	}
	for _, id := range ids {
		if id == g.Out {
			continue
		}
		fn(id, g.Nodes[id])
	}
	f(`</table></div>`)

	return nil
}

// RenderGraphPage writes a complete HTML page for the graph.
func RenderGraphPage(g *core.Graph, out io.Writer, cssFiles []string, includeGraph bool) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/graph-html.css"}
	}

	js, err := json.Marshal(g)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, g.Id)

	if includeGraph {
		fmt.Fprintf(out, `
  <script src="https://cdnjs.cloudflare.com/ajax/libs/d3/4.12.2/d3.min.js"></script>
  <script src="https://cdnjs.cloudflare.com/ajax/libs/cytoscape/3.2.8/cytoscape.min.js"></script>
  <script src="/static/graph-html.js"></script>
  <script>
  var thisGraph = %s;
  </script>
`, js)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, g.Id)

	if includeGraph {
		fmt.Fprintf(out, `<div id="graph"></div>`)
	}

	if err = RenderGraphHTML(g, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderGraphPage reads a YAML graph from the file and renders
// its page.
func ReadAndRenderGraphPage(filename string, cssFiles []string, out io.Writer, includeGraph bool) error {
	src, err := ioutil.ReadFile(filename)
	if err != nil {
		return err
	}
	var g core.Graph
	if err = yaml.Unmarshal(src, &g); err != nil {
		return err
	}

	if err = g.Validate(); err != nil {
		return err
	}

	return RenderGraphPage(&g, out, cssFiles, includeGraph)
}
