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
	"log"
	"os"
	"testing"

	"github.com/cascata/cascata/bus"
)

func TestServiceBasic(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbFile := "test.db"

	removeDBFile := func() {
		if _, err := os.Stat(dbFile); err == nil {
			log.Printf("removing dbFile %s", dbFile)
			if err := os.Remove(dbFile); err != nil {
				t.Fatal(err)
			}
		}
	}

	removeDBFile()
	defer removeDBFile()

	s, err := NewService(ctx, "../../graphs", dbFile, "libs", bus.NewInProc())
	if err != nil {
		t.Fatal(err)
	}

	{
		op := SOp{
			Run: &RunOp{
				Graph: "double",
			},
		}
		if err := op.Do(ctx, s); err != nil {
			t.Fatal(err)
		}
		if op.Run.Value != 42.0 {
			t.Fatal(op.Run.Value)
		}
	}

	{
		op := SOp{
			Set: &SetOp{
				Graph: "counter",
				Node:  "count",
				Value: 3.0,
			},
		}
		if err := op.Do(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	{
		op := SOp{
			Run: &RunOp{
				Graph: "counter",
			},
		}
		if err := op.Do(ctx, s); err != nil {
			t.Fatal(err)
		}
		m, is := op.Run.Value.(map[string]interface{})
		if !is {
			t.Fatalf("%#v", op.Run.Value)
		}
		if m["count"] != 3.0 {
			t.Fatal(m["count"])
		}
	}

	{
		op := SOp{
			GetGraph: &GetGraphOp{
				Id: "double",
			},
		}
		if err := op.Do(ctx, s); err != nil {
			t.Fatal(err)
		}
		if op.GetGraph.Graph == nil || op.GetGraph.Graph.Out != "doubled" {
			t.Fatal(op.GetGraph.Graph)
		}
	}
}
