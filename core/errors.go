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

// Definition and structural errors get their own types so callers can
// tell what went wrong without parsing strings.  Runtime errors inside
// node functions never surface as Go errors at all: they become Fault
// values so sibling nodes still settle.

// UnknownRef occurs when a declarative node references an external
// behavior that is neither a builtin nor a resolvable graph.
type UnknownRef struct {
	Id  NodeId
	Ref string
}

func (e *UnknownRef) Error() string {
	return `unknown reference "` + e.Ref + `" at node ` + e.Id.String()
}

// UnknownGraph occurs when a reference names a graph the provider
// doesn't have.
type UnknownGraph struct {
	Id string
}

func (e *UnknownGraph) Error() string {
	return `graph "` + e.Id + `" not found`
}

// MissingNode occurs when a graph names a node id it doesn't contain.
type MissingNode struct {
	Graph string
	Node  string
}

func (e *MissingNode) Error() string {
	return `node "` + e.Node + `" not found in graph "` + e.Graph + `"`
}

// BadPayload occurs when a ref node's payload has the wrong shape for
// its behavior.
type BadPayload struct {
	Id     NodeId
	Reason string
}

func (e *BadPayload) Error() string {
	return "bad payload at node " + e.Id.String() + ": " + e.Reason
}

// BadTarget occurs when a Bound node's function returns something that
// isn't a node.
type BadTarget struct {
	Id NodeId
}

func (e *BadTarget) Error() string {
	return "bound node " + e.Id.String() + " resolved to a non-node"
}

// InterpreterNotFound occurs when a script node names an interpreter
// the engine doesn't have.
type InterpreterNotFound struct {
	Name string
}

func (e *InterpreterNotFound) Error() string {
	return `interpreter "` + e.Name + `" not found`
}

// Fault is the explicit error sentinel a node's value becomes when its
// function fails.  Dependents receive the Fault like any other value;
// their staleness predicates decide whether to react.
type Fault struct {
	Of  NodeId
	Err error
}

func (f *Fault) Error() string {
	return "fault at " + f.Of.String() + ": " + f.Err.Error()
}

// IsFault reports whether a value is an error sentinel.
func IsFault(x interface{}) bool {
	_, is := x.(*Fault)
	return is
}

type nothing struct{}

func (nothing) String() string {
	return "nothing"
}

// Nothing is the value of a node that deliberately yields no output,
// such as a switch with an unresolved key.
var Nothing = nothing{}

// IsNothing reports whether a value is the no-output sentinel.
func IsNothing(x interface{}) bool {
	_, is := x.(nothing)
	return is
}
