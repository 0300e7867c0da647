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

package ingest

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/text/cases"
)

var emailFolder = cases.Fold()

// extractFields applies a field -> gjson path mapping to a payload. Extraction never fails:
// an invalid payload yields empty fields, a path that does not resolve leaves its field unset.
func extractFields(payload []byte, mapping map[string]string) Fields {
	var fields Fields
	if !gjson.ValidBytes(payload) {
		return fields
	}

	names := make([]string, 0, len(mapping))
	for field := range mapping {
		names = append(names, field)
	}
	sort.Strings(names)

	var metadata []byte
	for _, field := range names {
		value := gjson.GetBytes(payload, mapping[field])
		if !value.Exists() || value.Type == gjson.Null {
			continue
		}
		switch field {
		case fieldName:
			name := strings.TrimSpace(value.String())
			fields.Name = &name
		case fieldEmail:
			email := strings.TrimSpace(value.String())
			fields.Email = &email
			fields.EmailKey = EmailKey(email)
		default:
			updated, err := sjson.SetBytes(orEmptyObject(metadata), sjsonKey(field), value.Value())
			if err != nil {
				continue
			}
			metadata = updated
		}
	}
	fields.Metadata = metadata
	return fields
}

// EmailKey returns the find-or-create key of an email address.
func EmailKey(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}

func orEmptyObject(doc []byte) []byte {
	if doc == nil {
		return []byte("{}")
	}
	return doc
}

// sjsonKey escapes the path characters of a metadata field name so it is stored as a single key.
func sjsonKey(field string) string {
	replacer := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`)
	return replacer.Replace(field)
}
