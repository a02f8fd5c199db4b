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

package goja

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cascata/cascata/core"
)

func TestExec(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()

	code := `return _.inputs.a + _.inputs.b;`
	compiled, err := i.Compile(ctx, code)
	if err != nil {
		t.Fatal(err)
	}

	v, err := i.Exec(ctx, core.Bindings{"a": 1.0, "b": 2.0}, code, compiled)
	if err != nil {
		t.Fatal(err)
	}
	if v != 3.0 {
		t.Fatalf("got %v", v)
	}
}

func TestExecUncompiled(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()

	v, err := i.Exec(ctx, nil, `return "queso";`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != "queso" {
		t.Fatalf("got %v", v)
	}
}

func TestCompileError(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()

	if _, err := i.Compile(ctx, `return ===;`); err == nil {
		t.Fatal("expected a compile error")
	}
}

func TestExecObject(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()

	v, err := i.Exec(ctx, core.Bindings{"n": 2.0}, `return {"doubled": _.inputs.n * 2};`, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, is := v.(map[string]interface{})
	if !is || m["doubled"] != 4.0 {
		t.Fatalf("got %#v", v)
	}
}

func TestExecEsc(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()

	v, err := i.Exec(ctx, nil, `return _.esc("I want tacos");`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != "I+want+tacos" {
		t.Fatalf("got %v", v)
	}
}

func TestExecGensym(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()

	v, err := i.Exec(ctx, nil, `return _.gensym();`, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, is := v.(string)
	if !is || len(s) != 32 {
		t.Fatalf("got %#v", v)
	}
}

func TestExecCronNext(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()

	v, err := i.Exec(ctx, nil, `return _.cronNext("* * * * *");`, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, is := v.(string)
	if !is {
		t.Fatalf("got %#v", v)
	}
	if _, err = time.Parse(time.RFC3339Nano, s); err != nil {
		t.Fatal(err)
	}
}

func TestExecInterrupt(t *testing.T) {
	i := NewInterpreter()
	i.Testing = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := i.Exec(ctx, nil, `while (true) {}`, nil)
	if err != Interrupted {
		t.Fatalf("got %v", err)
	}
}

func TestLibraries(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()
	i.LibraryProvider = MakeMapLibraryProvider(map[string]string{
		"shout": `function shout(s) { return s.toUpperCase(); }`,
	})

	src := map[string]interface{}{
		"requires": "shout",
		"code":     `return shout("tacos");`,
	}
	v, err := i.Exec(ctx, nil, src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != "TACOS" {
		t.Fatalf("got %v", v)
	}
}

func TestLibraryMissing(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()
	i.LibraryProvider = MakeMapLibraryProvider(map[string]string{})

	src := map[string]interface{}{
		"requires": "nope",
		"code":     `return 1;`,
	}
	if _, err := i.Compile(ctx, src); err == nil {
		t.Fatal("expected an error")
	} else if !strings.Contains(err.Error(), "nope") {
		t.Fatalf("got %v", err)
	}
}
