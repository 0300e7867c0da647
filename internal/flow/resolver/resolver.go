/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package resolver resolves {{ path }} templates against a read-only snapshot of prior node outputs.
//
// A string that consists of a single expression resolves to the raw value at the path, of any JSON type.
// An expression embedded in a longer string is interpolated. Objects and arrays resolve recursively.
// Paths that do not resolve yield nil, or an empty string when interpolated. A fan-out branch may
// therefore proceed on partial data; this is intentional.
package resolver

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	expressionPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)
	wholePattern      = regexp.MustCompile(`^\s*\{\{\s*([^{}]+?)\s*\}\}\s*$`)
)

// Resolver resolves templates against a snapshot taken when it was created.
type Resolver struct {
	document string
}

// New serialises the snapshot once. Later changes to the snapshot are not observed.
func New(snapshot map[string]any) (*Resolver, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to serialise resolver snapshot: %w", err)
	}
	return &Resolver{document: string(data)}, nil
}

// Resolve resolves every expression in the template.
func (r *Resolver) Resolve(template any) any {
	switch t := template.(type) {
	case string:
		return r.resolveString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = r.Resolve(v)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = r.Resolve(v)
		}
		return out
	default:
		return template
	}
}

// Lookup returns the value at path and whether it exists.
func (r *Resolver) Lookup(path string) (any, bool) {
	result := gjson.Get(r.document, strings.TrimSpace(path))
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (r *Resolver) resolveString(s string) any {
	if !strings.Contains(s, "{{") {
		return s
	}
	if m := wholePattern.FindStringSubmatch(s); m != nil {
		value, _ := r.Lookup(m[1])
		return value
	}
	return expressionPattern.ReplaceAllStringFunc(s, func(expr string) string {
		path := expressionPattern.FindStringSubmatch(expr)[1]
		result := gjson.Get(r.document, path)
		switch {
		case !result.Exists() || result.Type == gjson.Null:
			return ""
		case result.Type == gjson.String:
			return result.Str
		default:
			return result.Raw
		}
	})
}

// IsTemplate reports whether the value contains at least one expression.
func IsTemplate(s string) bool {
	return expressionPattern.MatchString(s)
}
