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

import "encoding/json"

const (
	fieldName  = "name"
	fieldEmail = "email"
)

// Fields are the entity fields extracted from an inbound payload.
// Name and Email are nil when unmapped, missing or the payload is not JSON.
type Fields struct {
	Name     *string
	Email    *string
	EmailKey string
	Metadata json.RawMessage
}

// IngestResult is returned for an accepted payload.
type IngestResult struct {
	EntityID      string `json:"entityId"`
	EntityCreated bool   `json:"entityCreated"`
	RunID         string `json:"runId"`
	RunStatus     string `json:"runStatus"`
}
