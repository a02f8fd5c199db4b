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

// Package interpreters assembles the script interpreters an Engine
// can dispatch to.
package interpreters

import (
	"github.com/cascata/cascata/core"
	"github.com/cascata/cascata/interpreters/goja"
	"github.com/cascata/cascata/interpreters/noop"
)

// Standard returns the stock interpreter set, keyed by the language
// names script nodes use.
func Standard() map[string]core.Interpreter {
	return map[string]core.Interpreter{
		"goja":       goja.NewInterpreter(),
		"ecmascript": goja.NewInterpreter(),
		"noop":       &noop.Interpreter{Silent: true},
	}
}
