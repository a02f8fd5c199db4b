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
	"encoding/json"
	"math/rand"
	"reflect"
	"time"
)

// alphabet is used by Gensym.
var alphabet = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Gensym makes a random string of the given length.
func Gensym(n int) string {
	bs := make([]byte, n)
	for i := 0; i < len(bs); i++ {
		bs[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(bs)
}

// Canonicalize round-trips a value through JSON so that maps and
// slices from different deserializers compare and render uniformly.
func Canonicalize(x interface{}) (interface{}, error) {
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var y interface{}
	if err = json.Unmarshal(js, &y); err != nil {
		return nil, err
	}
	return y, nil
}

// Timestamp returns the current time in RFC3339Nano.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Equiv is structural equality over plain data: canonical JSON when
// both sides marshal, reflect.DeepEqual otherwise.
//
// Equiv is the default comparator for Var writes and the descriptor
// comparison in the materializer.
func Equiv(a, b interface{}) bool {
	ja, errA := json.Marshal(&a)
	jb, errB := json.Marshal(&b)
	if errA == nil && errB == nil {
		return bytes.Equal(ja, jb)
	}
	return reflect.DeepEqual(a, b)
}

// StaleOnChange is the standard staleness predicate: recompute only
// when the input snapshot changed structurally.
func StaleOnChange(prev, next Bindings) bool {
	return !equivBindings(prev, next)
}

// equivBindings compares two input snapshots structurally.
func equivBindings(a, b Bindings) bool {
	if len(a) != len(b) {
		return false
	}
	for p, v := range a {
		w, have := b[p]
		if !have || !Equiv(v, w) {
			return false
		}
	}
	return true
}
