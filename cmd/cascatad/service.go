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
	"io/ioutil"
	"log"
	"path/filepath"
	"strings"

	"github.com/cascata/cascata/core"
	"github.com/cascata/cascata/interpreters/goja"
	"github.com/cascata/cascata/interpreters/noop"
	"github.com/cascata/cascata/storage"

	"github.com/jsccast/yaml"
)

type Service struct {
	Tracing bool

	engine   *core.Engine
	graphs   core.GraphMap
	graphDir string
	store    *storage.Bolt

	// ops is the firehose that WebSocketService forwards to every
	// connected client.
	ops chan interface{}
}

func (s *Service) trf(format string, args ...interface{}) {
	if !s.Tracing {
		return
	}
	log.Printf("trace "+format, args...)
}

// NewService loads every YAML graph in graphDir and stands up an
// engine over them.
func NewService(ctx context.Context, graphDir, dbFile, libDir string, b core.Channel) (*Service, error) {

	gi := goja.NewInterpreter()
	gi.LibraryProvider = goja.MakeFileLibraryProvider(libDir)
	interpreters := map[string]core.Interpreter{
		"goja":       gi,
		"ecmascript": gi,
		"noop":       &noop.Interpreter{Silent: true},
	}

	graphs := make(core.GraphMap, 32)
	entries, err := ioutil.ReadDir(graphDir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") {
			continue
		}
		src, err := ioutil.ReadFile(filepath.Join(graphDir, name))
		if err != nil {
			return nil, err
		}
		var g core.Graph
		if err = yaml.Unmarshal(src, &g); err != nil {
			return nil, err
		}
		if g.Id == "" {
			g.Id = strings.TrimSuffix(name, ".yaml")
		}
		if err = g.Validate(); err != nil {
			return nil, err
		}
		graphs[g.Id] = &g
	}

	e := core.NewEngine(interpreters)
	e.Graphs = graphs
	e.Bus = b

	s := Service{
		engine:   e,
		graphs:   graphs,
		graphDir: graphDir,
		ops:      make(chan interface{}, 1024),
	}

	if dbFile == "" {
		e.Store = storage.NewMem()
	} else {
		store, err := storage.NewBolt(dbFile)
		if err != nil {
			return nil, err
		}
		if err = store.Open(); err != nil {
			return nil, err
		}
		s.store = store
		e.Store = store

		go func() {
			<-ctx.Done()
			if err := store.Close(); err != nil {
				log.Printf("Service.store.Close error %s", err)
			}
		}()
	}

	return &s, nil
}

func (s *Service) op(ctx context.Context, x interface{}) {
	if s.ops == nil {
		return
	}
	select {
	case s.ops <- x:
	default:
		Logf("Service.op dropped %s", JS(x))
	}
}

func (s *Service) GetGraph(ctx context.Context, id string) (*core.Graph, error) {
	return s.graphs.FindGraph(ctx, id)
}

// PutGraph installs or updates a graph.  Live materializations of an
// updated graph react immediately.
func (s *Service) PutGraph(ctx context.Context, g *core.Graph) error {
	return s.engine.SetGraph(ctx, g)
}

// RunNode evaluates a node of a stored graph.  An empty nodeID means
// the graph's out node.
func (s *Service) RunNode(ctx context.Context, graphID, nodeID string) (interface{}, error) {
	s.trf("RunNode %s %s", graphID, nodeID)
	p, err := s.engine.RunGraphNode(ctx, graphID, nodeID)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}

// SetValue writes a state cell.
func (s *Service) SetValue(ctx context.Context, graphID, nodeID string, v interface{}) error {
	g, err := s.graphs.FindGraph(ctx, graphID)
	if err != nil {
		return err
	}
	n, err := s.engine.FromNode(ctx, g, nodeID)
	if err != nil {
		return err
	}
	// The cell has to be materialized before it can be written.
	if _, err = s.engine.RunNode(ctx, n).Wait(ctx); err != nil {
		return err
	}
	return s.engine.SetState(ctx, n, v)
}

// WatchNode forwards every settled recomputation of the node to the
// ops firehose until the context is canceled.
func (s *Service) WatchNode(ctx context.Context, graphID, nodeID string) error {
	g, err := s.graphs.FindGraph(ctx, graphID)
	if err != nil {
		return err
	}
	n, err := s.engine.FromNode(ctx, g, nodeID)
	if err != nil {
		return err
	}

	go func() {
		for {
			ch := s.engine.Watch(n)
			select {
			case <-ctx.Done():
				return
			case v, ok := <-ch:
				if !ok {
					continue
				}
				s.op(ctx, map[string]interface{}{
					"watched": map[string]interface{}{
						"graph": graphID,
						"node":  nodeID,
						"value": v,
					},
				})
			}
		}
	}()

	return nil
}
