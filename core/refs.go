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
	"sort"
	"strings"
)

// Reserved names visible to materialized nodes.
const (
	// ClosureValue binds a graph call's raw declared payload inside
	// the call.
	ClosureValue = "_value"

	// ArgsAll, as an arg name, resolves to the full closure as a
	// plain map.
	ArgsAll = "_args"

	// ArgsGraph, as an arg name, resolves to the declaring graph's
	// id.
	ArgsGraph = "_graph"
)

// Callable is a node-valued function: something map and fold can apply
// per element.  The runnable builtin produces one from a subgraph.
type Callable interface {
	Call(ctx context.Context, args Bindings) (interface{}, error)
}

// CallableFunc adapts a plain function to Callable.
type CallableFunc func(ctx context.Context, args Bindings) (interface{}, error)

func (f CallableFunc) Call(ctx context.Context, args Bindings) (interface{}, error) {
	return f(ctx, args)
}

func asCallable(v interface{}) (Callable, bool) {
	switch f := v.(type) {
	case Callable:
		return f, true
	case func(context.Context, Bindings) (interface{}, error):
		return CallableFunc(f), true
	}
	return nil, false
}

type builtin func(ctx context.Context, e *Engine, id NodeId, st *defState, closure Bindings) (*Node, error)

// builtins is populated in init: several builtins dispatch recursively,
// so a map literal would be an initialization cycle.
var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"arg":      argBuiltin,
		"switch":   switchBuiltin,
		"map":      mapBuiltin,
		"fold":     foldBuiltin,
		"state":    stateBuiltin,
		"script":   scriptBuiltin,
		"runnable": runnableBuiltin,
		"fetch":    fetchBuiltin,
	}
}

// dispatch turns a declarative definition into the live node the
// wrapper should resolve to: a constant for a value node, a builtin's
// computation for a known ref, an instantiated subgraph for a graph
// node or graph ref.
//
// An unknown ref is a definition error: the node materializes anyway,
// holding an explicit error value, so dependents still settle.
func (e *Engine) dispatch(ctx context.Context, id NodeId, st *defState, closure Bindings) (interface{}, error) {
	d := st.Def
	switch {
	case d.Ref != "":
		if b, have := builtins[d.Ref]; have {
			return b(ctx, e, id, st, closure)
		}
		if e.Graphs != nil {
			g, err := e.Graphs.FindGraph(ctx, d.Ref)
			if err == nil {
				return e.materializeGraph(ctx, id, g, st, closure)
			}
			if _, unknown := err.(*UnknownGraph); !unknown {
				return nil, err
			}
		}
		err := &UnknownRef{Id: id, Ref: d.Ref}
		log.Printf("Engine.dispatch %s", err)
		return e.putConstant(id.WithRole("value"), &Fault{Of: id, Err: err}), nil
	case d.Graph != nil:
		return e.materializeGraph(ctx, id, d.Graph, st, closure)
	default:
		return e.putConstant(id.WithRole("value"), d.Value), nil
	}
}

// materializeGraph instantiates g beneath id.  The inner closure is
// the caller's closure extended with this node's incoming edges (by
// role) plus the call's raw declared payload under ClosureValue.
func (e *Engine) materializeGraph(ctx context.Context, id NodeId, g *Graph, st *defState, closure Bindings) (*Node, error) {
	if g.Out == "" {
		return nil, &BadPayload{Id: id, Reason: `graph "` + g.Id + `" has no out node`}
	}
	// The descriptor in hand is current, so its graph is too.
	e.registerGraph(g)
	ins, err := e.edgeInputs(ctx, id, st, closure)
	if err != nil {
		return nil, err
	}
	inner := closure.Copy()
	for role, n := range ins {
		inner[role] = n
	}
	pv := e.putVar(id.WithRole("payload"), st.Def.Value, nil)
	e.setVar(pv, st.Def.Value)
	inner[ClosureValue] = pv
	inner[ArgsGraph] = g.Id
	return e.fromNode(ctx, g, g.Out, id.In(g.Out), inner)
}

// argBuiltin resolves a named parameter from the active closure.  The
// payload is the name, optionally with one dotted projection segment
// ("point.x").  ArgsAll yields the whole closure; ArgsGraph yields the
// declaring graph's id.  A missing name yields Nothing.
func argBuiltin(ctx context.Context, e *Engine, id NodeId, st *defState, closure Bindings) (*Node, error) {
	name, _ := st.Def.Value.(string)
	if name == "" {
		return nil, &BadPayload{Id: id, Reason: "arg needs a name payload"}
	}
	field := ""
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name, field = name[:i], name[i+1:]
	}

	var base *Node
	switch name {
	case ArgsAll:
		base = e.allArgs(id, closure)
	case ArgsGraph:
		base = e.putConstant(id.WithRole("arg"), closure[ArgsGraph])
	default:
		v, have := closure[name]
		switch {
		case !have:
			base = e.putConstant(id.WithRole("arg"), Nothing)
		default:
			if n, is := v.(*Node); is {
				base = n
			} else {
				base = e.putConstant(id.WithRole("arg"), v)
			}
		}
	}

	if field == "" {
		return base, nil
	}
	return e.newMapped(id.WithRole("proj"), map[string]*Node{"of": base},
		func(ctx context.Context, args Bindings) (interface{}, error) {
			return project(args["of"], field), nil
		}, StaleOnChange), nil
}

// allArgs builds a node resolving the whole closure to a plain map.
func (e *Engine) allArgs(id NodeId, closure Bindings) *Node {
	ins := make(map[string]*Node, len(closure))
	plain := NewBindings()
	for name, v := range closure {
		if n, is := v.(*Node); is {
			ins[name] = n
		} else {
			plain[name] = v
		}
	}
	return e.newMapped(id.WithRole("args"), ins,
		func(ctx context.Context, args Bindings) (interface{}, error) {
			acc := plain.Copy()
			for name, v := range args {
				acc[name] = v
			}
			return map[string]interface{}(acc), nil
		}, StaleOnChange)
}

func project(v interface{}, field string) interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		if x, have := m[field]; have {
			return x
		}
	case Bindings:
		if x, have := m[field]; have {
			return x
		}
	}
	return Nothing
}

// switchBuiltin selects among candidate edges by the current value of
// the "input" edge.  Only the selected candidate is materialized; an
// unresolved key yields Nothing rather than an error.
func switchBuiltin(ctx context.Context, e *Engine, id NodeId, st *defState, closure Bindings) (*Node, error) {
	var sel *Edge
	cases := make(map[string]*Edge, len(st.Edges))
	for _, edge := range st.Edges {
		role := edge.As
		if role == "" {
			role = edge.From
		}
		if role == "input" {
			sel = edge
			continue
		}
		cases[role] = edge
	}
	if sel == nil {
		return nil, &BadPayload{Id: id, Reason: `switch needs an "input" edge`}
	}
	selNode, err := e.fromNode(ctx, st.Graph, sel.From, NodeId{Graph: id.Graph, Node: sel.From}, closure)
	if err != nil {
		return nil, err
	}
	g := st.Graph
	return e.newBound(id.WithRole("switch"), map[string]*Node{"input": selNode},
		func(ctx context.Context, args Bindings) (interface{}, error) {
			edge, have := cases[switchKey(args["input"])]
			if !have {
				return e.putConstant(id.WithRole("none"), Nothing), nil
			}
			return e.fromNode(ctx, g, edge.From, NodeId{Graph: id.Graph, Node: edge.From}, closure)
		}, nil), nil
}

func switchKey(v interface{}) string {
	if s, is := v.(string); is {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// mapBuiltin applies the "fn" input across the "array" input: element
// by element for a slice, pair by pair (in sorted key order) for a
// map.  Element results may be pending; they are gathered with
// PromiseAll so mixed sync/async functions compose.
func mapBuiltin(ctx context.Context, e *Engine, id NodeId, st *defState, closure Bindings) (*Node, error) {
	ins, err := e.edgeInputs(ctx, id, st, closure)
	if err != nil {
		return nil, err
	}
	if _, have := ins["fn"]; !have {
		return nil, &BadPayload{Id: id, Reason: `map needs an "fn" edge`}
	}
	if _, have := ins["array"]; !have {
		return nil, &BadPayload{Id: id, Reason: `map needs an "array" edge`}
	}
	return e.newMapped(id.WithRole("map"), ins,
		func(ctx context.Context, args Bindings) (interface{}, error) {
			f, is := asCallable(args["fn"])
			if !is {
				return nil, &BadPayload{Id: id, Reason: "fn is not callable"}
			}
			switch xs := args["array"].(type) {
			case []interface{}:
				parts := make([]interface{}, len(xs))
				for i, x := range xs {
					v, err := f.Call(ctx, Bindings{"element": x, "index": i})
					if err != nil {
						return nil, err
					}
					parts[i] = v
				}
				return PromiseAll(parts), nil
			case map[string]interface{}:
				keys := sortedKeys(xs)
				parts := make([]interface{}, len(keys))
				for i, k := range keys {
					v, err := f.Call(ctx, Bindings{"element": xs[k], "key": k})
					if err != nil {
						return nil, err
					}
					parts[i] = v
				}
				return PromiseAll(parts).Then(func(vs interface{}) (interface{}, error) {
					acc := make(map[string]interface{}, len(keys))
					for i, k := range keys {
						acc[k] = vs.([]interface{})[i]
					}
					return acc, nil
				}), nil
			case nothing:
				return Nothing, nil
			default:
				return nil, &BadPayload{Id: id, Reason: "array is neither a slice nor a map"}
			}
		}, StaleOnChange), nil
}

// foldBuiltin reduces the "array" input with the "fn" input, starting
// from the "initial" input.  The fold is strictly left to right and
// never parallel: each step's accumulator waits for the previous one.
func foldBuiltin(ctx context.Context, e *Engine, id NodeId, st *defState, closure Bindings) (*Node, error) {
	ins, err := e.edgeInputs(ctx, id, st, closure)
	if err != nil {
		return nil, err
	}
	if _, have := ins["fn"]; !have {
		return nil, &BadPayload{Id: id, Reason: `fold needs an "fn" edge`}
	}
	if _, have := ins["array"]; !have {
		return nil, &BadPayload{Id: id, Reason: `fold needs an "array" edge`}
	}
	return e.newMapped(id.WithRole("fold"), ins,
		func(ctx context.Context, args Bindings) (interface{}, error) {
			f, is := asCallable(args["fn"])
			if !is {
				return nil, &BadPayload{Id: id, Reason: "fn is not callable"}
			}
			step := func(acc, x interface{}) (interface{}, error) {
				return f.Call(ctx, Bindings{"acc": acc, "element": x})
			}
			switch xs := args["array"].(type) {
			case []interface{}:
				return e.foldOver(step, args["initial"], xs), nil
			case map[string]interface{}:
				keys := sortedKeys(xs)
				pairs := make([]interface{}, len(keys))
				for i, k := range keys {
					pairs[i] = map[string]interface{}{"key": k, "value": xs[k]}
				}
				return e.foldOver(step, args["initial"], pairs), nil
			case nothing:
				return args["initial"], nil
			default:
				return nil, &BadPayload{Id: id, Reason: "array is neither a slice nor a map"}
			}
		}, StaleOnChange), nil
}

// foldOver reduces xs strictly left to right, keeping every step under
// the engine lock: pending steps continue through resume, never on a
// bare promise goroutine, because step functions (graph calls) touch
// the scope and adjacency maps.  When every step settles synchronously
// the whole fold runs inline and the result is already settled.
func (e *Engine) foldOver(step func(acc, x interface{}) (interface{}, error), acc interface{}, xs []interface{}) interface{} {
	if len(xs) == 0 {
		return acc
	}
	p, resolve, reject := NewPromised()
	var from func(acc interface{}, i int)
	from = func(acc interface{}, i int) {
		for ; i < len(xs); i++ {
			v, err := step(acc, xs[i])
			if err != nil {
				reject(err)
				return
			}
			vp, is := v.(*Promised)
			if !is {
				acc = v
				continue
			}
			if w, werr, settled := vp.Peek(); settled {
				if werr != nil {
					reject(werr)
					return
				}
				acc = w
				continue
			}
			next := i + 1
			e.resume(vp, func(w interface{}, werr error) {
				if werr != nil {
					reject(werr)
					return
				}
				from(w, next)
			})
			return
		}
		resolve(acc)
	}
	from(acc, 0)
	return p
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateBuiltin materializes a mutable state cell.  The payload may
// carry "initial" (starting value), "share" (a key making independent
// nodes, and independent engines over a bus, observe one value), and
// "persist" (a store key for a hydrate/write round trip).
func stateBuiltin(ctx context.Context, e *Engine, id NodeId, st *defState, closure Bindings) (*Node, error) {
	var share, persist string
	var initial interface{}
	if m, is := st.Def.Value.(map[string]interface{}); is {
		share, _ = m["share"].(string)
		persist, _ = m["persist"].(string)
		initial = m["initial"]
	}

	var cell *Node
	if share != "" {
		cell = e.sharedVar(ctx, share, initial)
	} else {
		cell = e.putVar(id.WithRole("state"), initial, nil)
	}

	if persist != "" && cell.persistKey == "" {
		cell.persistKey = persist
		if e.Store != nil {
			v, have, err := e.Store.Get(ctx, persist)
			if err != nil {
				log.Printf("Engine state %s hydrate error: %v", id, err)
			} else if have {
				e.setVar(cell, v)
			}
		}
	}
	return cell, nil
}

// sharedVar returns the single backing Var for a share key, making it
// (and its bus subscription) on first use.  Shared cells live outside
// any graph instantiation path so structural teardown never removes
// them.
func (e *Engine) sharedVar(ctx context.Context, key string, initial interface{}) *Node {
	if n, have := e.shared[key]; have {
		return n
	}
	n := e.newVar(NodeId{Node: key, Role: "shared"}, initial, nil)
	n.shareKey = key
	e.shared[key] = n
	if e.Bus != nil {
		cancel, err := e.Bus.Subscribe(ctx, "state/"+key, func(v interface{}) {
			e.mu.Lock()
			e.setVar(n, v)
			e.mu.Unlock()
		})
		if err != nil {
			log.Printf("Engine shared %q subscribe error: %v", key, err)
		} else {
			e.unsub[key] = cancel
		}
	}
	return n
}

// SetState writes a state cell: the node a state materialization
// resolves to, or the cell itself.  The write propagates like any Var
// write; if the cell persists, the store is written through, and if it
// is shared, the new value is published on the bus.
func (e *Engine) SetState(ctx context.Context, n *Node, v interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cell := n
	if cell.Kind == KindBound && cell.target != nil {
		cell = cell.target
	}
	if cell.Kind != KindVar {
		return &BadTarget{Id: n.Id}
	}
	if !e.setVar(cell, v) {
		return nil
	}
	if cell.persistKey != "" && e.Store != nil {
		if err := e.Store.Set(ctx, cell.persistKey, v); err != nil {
			return err
		}
	}
	if cell.shareKey != "" && e.Bus != nil {
		return e.Bus.Publish(ctx, "state/"+cell.shareKey, v)
	}
	return nil
}

// scriptProgram is one successfully built script: the interpreter, the
// source, and whatever Compile produced.
type scriptProgram struct {
	interp   Interpreter
	code     interface{}
	compiled interface{}
}

// scriptBuiltin compiles the payload against the node's input edges at
// materialization time.  A compile failure degrades to the most recent
// successful build for this id when one exists; otherwise the node
// holds an explicit error value.  Either way it materializes.
func scriptBuiltin(ctx context.Context, e *Engine, id NodeId, st *defState, closure Bindings) (*Node, error) {
	lang := "goja"
	var code interface{}
	switch p := st.Def.Value.(type) {
	case string:
		code = p
	case map[string]interface{}:
		if l, is := p["language"].(string); is && l != "" {
			lang = l
		}
		code = p["code"]
	default:
		return nil, &BadPayload{Id: id, Reason: "script needs source code"}
	}

	prog, err := e.buildScript(ctx, id, lang, code)
	if err != nil {
		log.Printf("Engine script %s: %v", id, err)
		return e.putConstant(id.WithRole("value"), &Fault{Of: id, Err: err}), nil
	}

	ins, err := e.edgeInputs(ctx, id, st, closure)
	if err != nil {
		return nil, err
	}
	return e.newMapped(id.WithRole("script"), ins,
		func(ctx context.Context, args Bindings) (interface{}, error) {
			return prog.interp.Exec(ctx, args, prog.code, prog.compiled)
		}, StaleOnChange), nil
}

func (e *Engine) buildScript(ctx context.Context, id NodeId, lang string, code interface{}) (*scriptProgram, error) {
	interp, have := e.interpreters[lang]
	if !have {
		return nil, &InterpreterNotFound{Name: lang}
	}
	compiled, err := interp.Compile(ctx, code)
	if err != nil {
		if prev, have := e.lastGood[id]; have {
			log.Printf("Engine script %s compile error (keeping previous build): %v", id, err)
			return prev, nil
		}
		return nil, err
	}
	prog := &scriptProgram{interp: interp, code: code, compiled: compiled}
	e.lastGood[id] = prog
	return prog, nil
}

// runnableBuiltin wraps a subgraph as a Callable value for map and
// fold.  The payload names a stored graph; alternatively the
// descriptor embeds one.  Each Call instantiates the graph afresh with
// the call arguments merged into the closure and tears the
// instantiation down once it settles.
func runnableBuiltin(ctx context.Context, e *Engine, id NodeId, st *defState, closure Bindings) (*Node, error) {
	g := st.Def.Graph
	if g == nil {
		gid, _ := st.Def.Value.(string)
		if gid == "" {
			return nil, &BadPayload{Id: id, Reason: "runnable needs a graph payload"}
		}
		if e.Graphs == nil {
			return nil, &UnknownGraph{gid}
		}
		found, err := e.Graphs.FindGraph(ctx, gid)
		if err != nil {
			return nil, err
		}
		g = found
	}
	if g.Out == "" {
		return nil, &BadPayload{Id: id, Reason: `graph "` + g.Id + `" has no out node`}
	}
	e.registerGraph(g)
	c := &graphCallable{e: e, id: id, g: g, closure: closure}
	return e.putConstant(id.WithRole("fn"), c), nil
}

// graphCallable instantiates its graph per call under a fresh path.
// Call runs with the engine lock held: it is only ever invoked from
// inside a node function or from a resume continuation, so it uses
// the internal entry points.
type graphCallable struct {
	e       *Engine
	id      NodeId
	g       *Graph
	closure Bindings
	calls   int
}

func (c *graphCallable) Call(ctx context.Context, args Bindings) (interface{}, error) {
	c.calls++
	base := NodeId{
		Graph: c.id.Graph + "/" + c.id.Node,
		Node:  fmt.Sprintf("call%d", c.calls),
	}
	inner := c.closure.Copy()
	for name, v := range args {
		inner[name] = v
	}
	root, err := c.e.fromNode(ctx, c.g, c.g.Out, base.In(c.g.Out), inner)
	if err != nil {
		return nil, err
	}
	p := c.e.runNode(ctx, root)
	c.e.resume(p, func(interface{}, error) {
		for _, n := range c.e.scope.RemoveAll(base) {
			c.e.dropNode(n)
		}
	})
	return p, nil
}
