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
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPromisedReady(t *testing.T) {
	p := Ready(42)
	if !p.Settled() {
		t.Fatal("not settled")
	}
	v, err, ok := p.Peek()
	if !ok || err != nil || v != 42 {
		t.Fatalf("got %v, %v, %v", v, err, ok)
	}
}

func TestPromisedFlattens(t *testing.T) {
	inner := Ready("tacos")
	p := Ready(inner)
	if p != inner {
		t.Fatal("Ready wrapped a Promised")
	}

	q, resolve, _ := NewPromised()
	resolve(Ready("queso"))
	v, err := q.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != "queso" {
		t.Fatalf("got %v", v)
	}
}

func TestPromisedThenSync(t *testing.T) {
	p := Ready(3).Then(func(v interface{}) (interface{}, error) {
		return v.(int) + 1, nil
	})
	if !p.Settled() {
		t.Fatal("Then on a settled Promised should settle immediately")
	}
	v, _, _ := p.Peek()
	if v != 4 {
		t.Fatalf("got %v", v)
	}
}

func TestPromisedThenAsync(t *testing.T) {
	p, resolve, _ := NewPromised()
	q := p.Then(func(v interface{}) (interface{}, error) {
		return v.(int) * 2, nil
	})
	if q.Settled() {
		t.Fatal("settled too early")
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		resolve(21)
	}()
	v, err := q.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("got %v", v)
	}
}

func TestPromisedErrorSkipsThen(t *testing.T) {
	boom := errors.New("boom")
	called := false
	p := Failed(boom).Then(func(v interface{}) (interface{}, error) {
		called = true
		return v, nil
	})
	if _, err := p.Wait(context.Background()); err != boom {
		t.Fatalf("got %v", err)
	}
	if called {
		t.Fatal("Then ran on an error")
	}
}

func TestPromisedRescue(t *testing.T) {
	p := Failed(errors.New("boom")).Rescue(func(err error) (interface{}, error) {
		return "recovered", nil
	})
	v, err := p.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != "recovered" {
		t.Fatalf("got %v", v)
	}
}

func TestPromisedWaitCancel(t *testing.T) {
	p, _, _ := NewPromised()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Wait(ctx); err == nil {
		t.Fatal("expected a context error")
	}
}

func TestPromiseAllSync(t *testing.T) {
	p := PromiseAll([]interface{}{1, Ready(2), 3})
	if !p.Settled() {
		t.Fatal("nothing was pending, so the result should be settled")
	}
	v, _, _ := p.Peek()
	vs := v.([]interface{})
	if len(vs) != 3 || vs[0] != 1 || vs[1] != 2 || vs[2] != 3 {
		t.Fatalf("got %v", vs)
	}
}

func TestPromiseAllMixed(t *testing.T) {
	p, resolve, _ := NewPromised()
	all := PromiseAll([]interface{}{1, p, 3})
	if all.Settled() {
		t.Fatal("settled too early")
	}
	go resolve(2)
	v, err := all.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	vs := v.([]interface{})
	if vs[1] != 2 {
		t.Fatalf("got %v", vs)
	}
}

func TestPromiseAllError(t *testing.T) {
	boom := errors.New("boom")
	all := PromiseAll([]interface{}{1, Failed(boom)})
	if _, err := all.Wait(context.Background()); err != boom {
		t.Fatalf("got %v", err)
	}
}

func TestPromiseReduceOrder(t *testing.T) {
	concat := func(acc, x interface{}) (interface{}, error) {
		return acc.(string) + x.(string), nil
	}
	p := PromiseReduce(concat, "", []interface{}{"a", "b", "c"})
	v, err := p.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != "abc" {
		t.Fatalf("got %v", v)
	}
}

func TestPromiseReducePendingElements(t *testing.T) {
	b, resolveB, _ := NewPromised()
	var order []string
	step := func(acc, x interface{}) (interface{}, error) {
		order = append(order, x.(string))
		return acc.(string) + x.(string), nil
	}
	p := PromiseReduce(step, "", []interface{}{"a", b, "c"})
	go func() {
		time.Sleep(10 * time.Millisecond)
		resolveB("b")
	}()
	v, err := p.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != "abc" {
		t.Fatalf("got %v", v)
	}
	if got := strings.Join(order, ""); got != "abc" {
		t.Fatalf("steps ran in order %q", got)
	}
}
