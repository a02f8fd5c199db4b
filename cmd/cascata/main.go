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

// A simple, single-graph process that runs a graph and optionally
// reads operations from stdin.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/cascata/cascata/bus"
	"github.com/cascata/cascata/core"
	"github.com/cascata/cascata/interpreters/goja"
	"github.com/cascata/cascata/interpreters/noop"
	"github.com/cascata/cascata/storage"

	"github.com/jsccast/yaml"
)

func main() {

	var (
		graphFilename = flag.String("g", "", "graph filename (YAML)")
		nodeID        = flag.String("n", "", "node to run (default: the graph's out node)")

		dbFile = flag.String("d", "", "storage filename (none means in-memory)")
		libDir = flag.String("i", ".", "directory containing 'libs'")

		listenOnStdin = flag.Bool("I", false, "listen for ops on stdin")
		watch         = flag.Bool("w", false, "report recomputed values for the target node")

		verbose = flag.Bool("v", false, "log lots of wonderful things")
	)

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Our graphs all use the Goja-based interpreter, with the noop
	// interpreter available for demos.
	gi := goja.NewInterpreter()
	gi.LibraryProvider = goja.MakeFileLibraryProvider(*libDir)
	interpreters := map[string]core.Interpreter{
		"goja":       gi,
		"ecmascript": gi,
		"noop":       &noop.Interpreter{Silent: true},
	}

	src, err := ioutil.ReadFile(*graphFilename)
	if err != nil {
		panic(err)
	}
	var g core.Graph
	if err = yaml.Unmarshal(src, &g); err != nil {
		panic(err)
	}
	if err = g.Validate(); err != nil {
		panic(err)
	}

	e := core.NewEngine(interpreters)
	e.Verbose = *verbose
	e.Graphs = core.GraphMap{g.Id: &g}
	e.Bus = bus.NewInProc()

	if *dbFile == "" {
		e.Store = storage.NewMem()
	} else {
		b, err := storage.NewBolt(*dbFile)
		if err != nil {
			panic(err)
		}
		if err = b.Open(); err != nil {
			panic(err)
		}
		defer b.Close()
		e.Store = b
	}

	target := *nodeID
	if target == "" {
		target = g.Out
	}

	n, err := e.FromNode(ctx, &g, target)
	if err != nil {
		panic(err)
	}

	run := func() {
		v, err := e.RunNode(ctx, n).Wait(ctx)
		if err != nil {
			fmt.Printf("error: %s\n", err)
			return
		}
		fmt.Printf("%s\n", JS(v))
	}

	run()

	if *watch {
		go func() {
			for {
				ch := e.Watch(n)
				select {
				case <-ctx.Done():
					return
				case v, ok := <-ch:
					if !ok {
						continue
					}
					fmt.Printf("%s\n", JS(v))
				}
			}
		}()
	}

	if !*listenOnStdin {
		return
	}

	// Each stdin line is a JSON op:
	//
	//   {"graph": GRAPH}             update the graph definition
	//   {"run": NODE}                run a node and print its value
	//   {"set": {"node": NODE, "value": V}}  write a state cell
	//
	in := bufio.NewReader(os.Stdin)
	for {
		line, err := in.ReadBytes('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}

		var op struct {
			Graph *core.Graph `json:"graph"`
			Run   *string     `json:"run"`
			Set   *struct {
				Node  string      `json:"node"`
				Value interface{} `json:"value"`
			} `json:"set"`
		}
		if err = json.Unmarshal(line, &op); err != nil {
			fmt.Printf("error: %s\n", err)
			continue
		}

		switch {
		case op.Graph != nil:
			if err = e.SetGraph(ctx, op.Graph); err != nil {
				fmt.Printf("error: %s\n", err)
				continue
			}
			run()
		case op.Run != nil:
			id := *op.Run
			if id == "" {
				id = target
			}
			p, err := e.RunGraphNode(ctx, g.Id, id)
			if err != nil {
				fmt.Printf("error: %s\n", err)
				continue
			}
			v, err := p.Wait(ctx)
			if err != nil {
				fmt.Printf("error: %s\n", err)
				continue
			}
			fmt.Printf("%s\n", JS(v))
		case op.Set != nil:
			cell, err := e.FromNode(ctx, &g, op.Set.Node)
			if err != nil {
				fmt.Printf("error: %s\n", err)
				continue
			}
			if _, err = e.RunNode(ctx, cell).Wait(ctx); err != nil {
				fmt.Printf("error: %s\n", err)
				continue
			}
			if err = e.SetState(ctx, cell, op.Set.Value); err != nil {
				fmt.Printf("error: %s\n", err)
				continue
			}
			run()
		default:
			log.Printf("unknown op %s", line)
		}
	}
}

func JS(x interface{}) string {
	js, err := json.Marshal(&x)
	if err != nil {
		panic(err)
	}
	return string(js)
}
