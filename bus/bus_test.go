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

package bus

import (
	"context"
	"testing"
	"time"
)

func TestInProcDelivery(t *testing.T) {
	ctx := context.Background()
	b := NewInProc()

	got := make(chan interface{}, 1)
	cancel, err := b.Subscribe(ctx, "state/x", func(v interface{}) {
		got <- v
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := b.Publish(ctx, "state/x", 42.0); err != nil {
		t.Fatal(err)
	}

	select {
	case v := <-got:
		if v != 42.0 {
			t.Fatal(v)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}

	cancel()

	if err := b.Publish(ctx, "state/x", 43.0); err != nil {
		t.Fatal(err)
	}

	select {
	case v := <-got:
		t.Fatal(v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInProcTopicIsolation(t *testing.T) {
	ctx := context.Background()
	b := NewInProc()

	got := make(chan interface{}, 1)
	if _, err := b.Subscribe(ctx, "state/a", func(v interface{}) {
		got <- v
	}); err != nil {
		t.Fatal(err)
	}

	if err := b.Publish(ctx, "state/b", "nope"); err != nil {
		t.Fatal(err)
	}

	select {
	case v := <-got:
		t.Fatal(v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInProcNoSubscribers(t *testing.T) {
	b := NewInProc()
	if err := b.Publish(context.Background(), "state/ghost", 1.0); err != nil {
		t.Fatal(err)
	}
}
