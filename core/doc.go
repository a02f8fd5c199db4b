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

// Package core implements an incremental dataflow execution engine.
//
// A caller supplies a declarative Graph: a map of node descriptors and a
// map of edges.  The Engine materializes declarative nodes into live
// nodes (FromNode), evaluates them lazily with memoization (RunNode), and
// propagates invalidation through a reverse-dependency index when inputs
// or the graph's structure change.
//
// Two kinds of reactivity coexist.  Value reactivity: a node's cached
// output goes stale only if its inputs changed per a staleness predicate.
// Structural reactivity: the declarative definition of a node (its ref,
// its incoming edges) can change at runtime, in which case the engine
// tears down and rebuilds that node's subtree while leaving unrelated
// nodes alone.
//
// Evaluation is sync/async transparent.  A node function may return a
// plain value or a Promised; Promised, PromiseAll, and PromiseReduce chain
// either without forcing synchronous call sites to pay async overhead.
//
// An Engine owns all of its state.  Multiple engines can run in one
// process without interference.
package core
