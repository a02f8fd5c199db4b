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
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPRequestDo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"want":"tacos"}`))
	}))
	defer ts.Close()

	jar, err := NewJar()
	if err != nil {
		t.Fatal(err)
	}
	req := &HTTPRequest{URL: ts.URL, CookieJar: jar}
	resp, err := req.Do(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	parsed, is := resp.Parsed.(map[string]interface{})
	if !is || parsed["want"] != "tacos" {
		t.Fatalf("parsed %#v", resp.Parsed)
	}
}

func TestHTTPRequestDoBadURL(t *testing.T) {
	req := &HTTPRequest{URL: "://nope"}
	if _, err := req.Do(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestHTTPRequestTransportErrorIsData(t *testing.T) {
	req := &HTTPRequest{URL: "http://127.0.0.1:1/nope"}
	resp, err := req.Do(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Error == "" {
		t.Fatal("expected the failure inside the response")
	}
}

func TestFetchNode(t *testing.T) {
	ctx := context.Background()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"n":1}`))
	}))
	defer ts.Close()

	e := NewEngine(nil)
	g := &Graph{
		Id: "f",
		Nodes: map[string]*NodeDef{
			"u": {Id: "u", Value: ts.URL},
			"f": {Id: "f", Ref: "fetch"},
		},
		Edges: map[string]*Edge{
			"u": {From: "u", To: "f", As: "url"},
		},
	}
	n, err := e.FromNode(ctx, g, "f")
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.RunNode(ctx, n).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	m, is := v.(map[string]interface{})
	if !is {
		t.Fatalf("got %#v", v)
	}
	if m["statusCode"] != 200.0 {
		t.Fatalf("status %v", m["statusCode"])
	}
	parsed, is := m["parsed"].(map[string]interface{})
	if !is || parsed["n"] != 1.0 {
		t.Fatalf("parsed %#v", m["parsed"])
	}
}

func TestFetchNodeTestResponse(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(nil)
	g := &Graph{
		Id: "ft",
		Nodes: map[string]*NodeDef{
			"t": {Id: "t", Value: map[string]interface{}{
				"statusCode": 200.0,
				"body":       "hi",
			}},
			"f": {Id: "f", Ref: "fetch", Value: "http://example.invalid/"},
		},
		Edges: map[string]*Edge{
			"t": {From: "t", To: "f", As: "test"},
		},
	}
	n, err := e.FromNode(ctx, g, "f")
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.RunNode(ctx, n).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	m, is := v.(map[string]interface{})
	if !is || m["body"] != "hi" {
		t.Fatalf("got %#v", v)
	}
}
