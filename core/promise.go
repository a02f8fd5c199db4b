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
	"sync"
)

// Promised holds a value that is either settled now or still being
// computed.
//
// The point of this type is to let synchronous call sites stay
// synchronous.  Chaining via Then on a settled Promised runs on the
// calling goroutine with no channel traffic at all; only a genuinely
// pending Promised costs a goroutine.
//
// Use Ready, Failed, or NewPromised to make one.
type Promised struct {
	// done is nil for a Promised that was settled at construction.
	// Otherwise it is closed exactly once, after value and err are
	// written.
	done chan struct{}

	once sync.Once

	value interface{}
	err   error
}

// Ready returns a settled Promised holding x.
//
// If x is itself a *Promised, it is returned as-is.  Nested Promiseds
// therefore flatten instead of wrapping.
func Ready(x interface{}) *Promised {
	if p, is := x.(*Promised); is {
		return p
	}
	return &Promised{value: x}
}

// Failed returns a settled Promised holding an error.
func Failed(err error) *Promised {
	return &Promised{err: err}
}

// NewPromised makes a pending Promised along with its resolve and
// reject functions.  Only the first settlement wins.
func NewPromised() (*Promised, func(interface{}), func(error)) {
	p := &Promised{done: make(chan struct{})}
	return p, p.resolve, p.reject
}

// resolve settles p with x, adopting x's eventual value if x is itself
// a Promised.
func (p *Promised) resolve(x interface{}) {
	if inner, is := x.(*Promised); is {
		if inner.pending() {
			go func() {
				v, err := inner.Wait(context.Background())
				p.settle(v, err)
			}()
			return
		}
		p.settle(inner.value, inner.err)
		return
	}
	p.settle(x, nil)
}

func (p *Promised) reject(err error) {
	p.settle(nil, err)
}

func (p *Promised) settle(x interface{}, err error) {
	p.once.Do(func() {
		p.value, p.err = x, err
		close(p.done)
	})
}

func (p *Promised) pending() bool {
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Settled reports whether the value is available without blocking.
func (p *Promised) Settled() bool {
	return !p.pending()
}

// Peek returns the value and error if p has settled.  The last result
// reports whether it has.
func (p *Promised) Peek() (interface{}, error, bool) {
	if p.pending() {
		return nil, nil, false
	}
	return p.value, p.err, true
}

// Wait blocks until p settles or the context is canceled.
func (p *Promised) Wait(ctx context.Context) (interface{}, error) {
	if p.done != nil {
		select {
		case <-p.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.value, p.err
}

// Then applies f to the eventual value, returning another Promised.
//
// If p has already settled, f runs immediately on the calling
// goroutine.  If f returns a *Promised, the result flattens.  An error
// in p skips f and propagates; use Rescue to intercept it.
func (p *Promised) Then(f func(interface{}) (interface{}, error)) *Promised {
	if p.pending() {
		q, resolve, reject := NewPromised()
		go func() {
			<-p.done
			if p.err != nil {
				reject(p.err)
				return
			}
			v, err := f(p.value)
			if err != nil {
				reject(err)
				return
			}
			resolve(v)
		}()
		return q
	}
	if p.err != nil {
		return p
	}
	v, err := f(p.value)
	if err != nil {
		return Failed(err)
	}
	return Ready(v)
}

// Rescue applies f to the eventual error (if any), returning another
// Promised.  A settled value passes through untouched.
func (p *Promised) Rescue(f func(error) (interface{}, error)) *Promised {
	if p.pending() {
		q, resolve, reject := NewPromised()
		go func() {
			<-p.done
			if p.err == nil {
				resolve(p.value)
				return
			}
			v, err := f(p.err)
			if err != nil {
				reject(err)
				return
			}
			resolve(v)
		}()
		return q
	}
	if p.err == nil {
		return p
	}
	v, err := f(p.err)
	if err != nil {
		return Failed(err)
	}
	return Ready(v)
}

// PromiseAll lifts a mixed slice of raw values and Promiseds into one
// Promised of []interface{}.
//
// If no element is pending, the result settles immediately: synchronous
// graphs never touch a channel.  The first error wins.
func PromiseAll(xs []interface{}) *Promised {
	vs := make([]interface{}, len(xs))
	var waiting []int
	for i, x := range xs {
		p, is := x.(*Promised)
		if !is {
			vs[i] = x
			continue
		}
		if p.pending() {
			waiting = append(waiting, i)
			continue
		}
		v, err, _ := p.Peek()
		if err != nil {
			return Failed(err)
		}
		vs[i] = v
	}
	if len(waiting) == 0 {
		return Ready(vs)
	}
	q, resolve, reject := NewPromised()
	go func() {
		for _, i := range waiting {
			v, err := xs[i].(*Promised).Wait(context.Background())
			if err != nil {
				reject(err)
				return
			}
			vs[i] = v
		}
		resolve(vs)
	}()
	return q
}

// PromiseReduce folds f over xs strictly left to right, starting from
// acc.  Each step waits for the previous accumulator, so the fold is
// sequential even when elements or f results are pending.
//
// Pending steps continue on promise goroutines, so f must not touch
// state that needs external serialization; the fold builtin uses the
// engine's own stepped fold for that reason.
func PromiseReduce(f func(acc, x interface{}) (interface{}, error), acc interface{}, xs []interface{}) *Promised {
	p := Ready(acc)
	for _, x := range xs {
		x := x
		p = p.Then(func(a interface{}) (interface{}, error) {
			if q, is := x.(*Promised); is {
				return q.Then(func(v interface{}) (interface{}, error) {
					return f(a, v)
				}), nil
			}
			return f(a, x)
		})
	}
	return p
}
