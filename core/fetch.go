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
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Jar is a cookie jar that also remembers the cookies it has seen, so
// a fetch node's session state is inspectable.
type Jar struct {
	*cookiejar.Jar
	Kookies []*http.Cookie `json:"cookies"`
}

func NewJar() (*Jar, error) {
	cookieJar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Jar{Jar: cookieJar}, nil
}

func (j *Jar) AddCookies(cs []*http.Cookie) {
	if j.Kookies == nil {
		j.Kookies = make([]*http.Cookie, 0, 2*len(cs))
	}
	j.Kookies = append(j.Kookies, cs...)
}

// HTTPRequest describes one outbound request for a fetch node.
type HTTPRequest struct {
	Method    string      `json:"method,omitempty"`
	URL       string      `json:"url"`
	Body      string      `json:"body,omitempty"`
	Headers   http.Header `json:"headers,omitempty"`
	CookieJar *Jar        `json:"-"`

	// TestResponse, if there, will be returned instead of
	// attempting a real HTTP request.
	TestResponse *HTTPResponse `json:"-"`
}

// HTTPResponse is what a fetch node resolves to, as plain data.
type HTTPResponse struct {
	StatusCode int         `json:"statusCode"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Headers    http.Header `json:"headers,omitempty"`
	Body       string      `json:"body,omitempty"`

	// Parsed is the Body parsed as JSON when the response says
	// that's what it is.
	Parsed interface{} `json:"parsed,omitempty"`
}

// Do makes the request synchronously.  A transport-level failure is
// reported inside the response, not as a Go error; only a malformed
// request errors out.
func (r *HTTPRequest) Do(ctx context.Context) (*HTTPResponse, error) {
	if r.TestResponse != nil {
		return r.TestResponse, nil
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req := &http.Request{
		Method: method,
		URL:    u,
		Header: r.Headers,
	}
	if r.Body != "" {
		req.Body = ioutil.NopCloser(bytes.NewReader([]byte(r.Body)))
	}

	// http.Request doesn't itself support CookieJars; http.Client
	// does, but an http.Client caches TCP connections, so we don't
	// want one per request.  So the jar is applied by hand.
	if r.CookieJar != nil {
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		for _, cookie := range r.CookieJar.Cookies(u) {
			req.AddCookie(cookie)
		}
	}

	req = req.WithContext(ctx)

	result := &HTTPResponse{}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	defer resp.Body.Close()

	result.Headers = resp.Header
	result.Status = resp.Status
	result.StatusCode = resp.StatusCode

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.Body = string(body)

	if r.CookieJar != nil {
		r.CookieJar.SetCookies(u, resp.Cookies())
		r.CookieJar.AddCookies(resp.Cookies())
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		var parsed interface{}
		if err := json.Unmarshal(body, &parsed); err == nil {
			result.Parsed = parsed
		}
	}

	return result, nil
}

// fetchBuiltin materializes an HTTP request node.  The url comes from
// the "url" edge or the payload; "method", "body", and "headers" edges
// are optional.  The node resolves to the response as plain data and
// is always pending until the response arrives, so sibling branches
// keep evaluating meanwhile.  One cookie jar persists across requests
// for the node's lifetime.
func fetchBuiltin(ctx context.Context, e *Engine, id NodeId, st *defState, closure Bindings) (*Node, error) {
	ins, err := e.edgeInputs(ctx, id, st, closure)
	if err != nil {
		return nil, err
	}
	jar, err := NewJar()
	if err != nil {
		return nil, err
	}
	payloadURL, _ := st.Def.Value.(string)

	return e.newMapped(id.WithRole("fetch"), ins,
		func(ctx context.Context, args Bindings) (interface{}, error) {
			req := &HTTPRequest{URL: payloadURL, CookieJar: jar}
			if u, is := args["url"].(string); is && u != "" {
				req.URL = u
			}
			if req.URL == "" {
				return nil, &BadPayload{Id: id, Reason: "fetch needs a url"}
			}
			if m, is := args["method"].(string); is {
				req.Method = m
			}
			if b, is := args["body"].(string); is {
				req.Body = b
			}
			if hs, is := args["headers"].(map[string]interface{}); is {
				req.Headers = make(http.Header, len(hs))
				for name, v := range hs {
					if s, is := v.(string); is {
						req.Headers.Set(name, s)
					}
				}
			}
			if t, is := args["test"].(map[string]interface{}); is {
				req.TestResponse = testResponse(t)
			}

			p, resolve, reject := NewPromised()
			go func() {
				resp, err := req.Do(context.Background())
				if err != nil {
					reject(err)
					return
				}
				v, err := Canonicalize(resp)
				if err != nil {
					reject(err)
					return
				}
				resolve(v)
			}()
			return p, nil
		}, StaleOnChange), nil
}

func testResponse(m map[string]interface{}) *HTTPResponse {
	var resp HTTPResponse
	if js, err := json.Marshal(m); err == nil {
		json.Unmarshal(js, &resp)
	}
	return &resp
}
