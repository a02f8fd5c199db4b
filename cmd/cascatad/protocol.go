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

package main

import (
	"context"
	"fmt"

	"github.com/cascata/cascata/core"
)

// SOp is a Service Operation.
//
// Only one of the operation fields should have a value.
type SOp struct {
	// GetGraph fetches (a copy of the definition of) a graph.
	GetGraph *GetGraphOp `json:"getGraph,omitempty" yaml:",omitempty"`

	// PutGraph installs or updates a graph definition.
	PutGraph *PutGraphOp `json:"putGraph,omitempty" yaml:",omitempty"`

	// Run evaluates a node and returns its value.
	Run *RunOp `json:"run,omitempty" yaml:",omitempty"`

	// Set writes a state cell.
	Set *SetOp `json:"set,omitempty" yaml:",omitempty"`

	// Watch subscribes the firehose to a node's recomputations.
	Watch *WatchOp `json:"watch,omitempty" yaml:",omitempty"`

	// Error will hold an error (if any) that results from
	// processing this operation.
	Error error `json:"-" yaml:"-"`

	// Err will hold a string representation of an error (if any)
	// that results from processing this operation.
	Err string `json:"err,omitempty" yaml:",omitempty"`
}

// erred is a utility function to return values to assign to operation
// Error and Err fields.
func erred(err error) (error, string) {
	if err == nil {
		return nil, ""
	}
	return err, err.Error()
}

func (o *SOp) Do(ctx context.Context, s *Service) error {

	s.op(ctx, map[string]interface{}{
		"do": o,
	})

	var err error
	if o.GetGraph != nil {
		err = o.GetGraph.Do(ctx, s)
	} else if o.PutGraph != nil {
		err = o.PutGraph.Do(ctx, s)
	} else if o.Run != nil {
		err = o.Run.Do(ctx, s)
	} else if o.Set != nil {
		err = o.Set.Do(ctx, s)
	} else if o.Watch != nil {
		err = o.Watch.Do(ctx, s)
	} else {
		err = fmt.Errorf("not implemented: %s", JS(o))
	}

	if err != nil && o.Error == nil {
		o.Error, o.Err = erred(err)
	}

	s.op(ctx, map[string]interface{}{
		"did": o,
	})

	return o.Error
}

type GetGraphOp struct {
	Id    string      `json:"id"`
	Graph *core.Graph `json:"graph,omitempty" yaml:",omitempty"`
}

func (o *GetGraphOp) Do(ctx context.Context, s *Service) error {
	g, err := s.GetGraph(ctx, o.Id)
	if err == nil {
		o.Graph = g
	}
	return err
}

type PutGraphOp struct {
	Graph *core.Graph `json:"graph"`
}

func (o *PutGraphOp) Do(ctx context.Context, s *Service) error {
	if o.Graph == nil {
		return fmt.Errorf("no graph given")
	}
	return s.PutGraph(ctx, o.Graph)
}

type RunOp struct {
	Graph string `json:"graph"`

	// Node is optional.  Empty means the graph's out node.
	Node string `json:"node,omitempty" yaml:",omitempty"`

	Value interface{} `json:"value,omitempty" yaml:",omitempty"`
}

func (o *RunOp) Do(ctx context.Context, s *Service) error {
	v, err := s.RunNode(ctx, o.Graph, o.Node)
	if err == nil {
		o.Value = v
	}
	return err
}

type SetOp struct {
	Graph string      `json:"graph"`
	Node  string      `json:"node"`
	Value interface{} `json:"value"`
}

func (o *SetOp) Do(ctx context.Context, s *Service) error {
	return s.SetValue(ctx, o.Graph, o.Node, o.Value)
}

type WatchOp struct {
	Graph string `json:"graph"`
	Node  string `json:"node"`
}

func (o *WatchOp) Do(ctx context.Context, s *Service) error {
	return s.WatchNode(ctx, o.Graph, o.Node)
}
