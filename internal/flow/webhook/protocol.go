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

// Package webhook implements the request and callback contract between the engine and external workers.
package webhook

import (
	"encoding/json"
	"fmt"
)

// CallbackStatus is the outcome a worker reports.
type CallbackStatus string

const (
	// CallbackStatusDone reports that the worker finished successfully.
	CallbackStatusDone CallbackStatus = "done"
	// CallbackStatusError reports that the worker failed.
	CallbackStatusError CallbackStatus = "error"
)

// OutboundRequest is the body the engine posts to a worker.
type OutboundRequest struct {
	RunID       string `json:"runId"`
	NodeID      string `json:"nodeId"`
	Input       any    `json:"input"`
	CallbackURL string `json:"callbackUrl"`
}

// InboundCallback is the body a worker posts back to the callback URL.
type InboundCallback struct {
	Status CallbackStatus `json:"status"`
	Output any            `json:"output,omitempty"`
}

// ErrInvalidStatus is returned when a callback carries a status other than done or error.
type ErrInvalidStatus struct {
	Status string
}

func (e *ErrInvalidStatus) Error() string {
	return fmt.Sprintf("invalid callback status %q", e.Status)
}

// ParseCallback decodes and validates an inbound callback body.
func ParseCallback(body []byte) (*InboundCallback, error) {
	var cb InboundCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("failed to decode callback: %w", err)
	}
	if err := cb.Validate(); err != nil {
		return nil, err
	}
	return &cb, nil
}

// Validate checks the callback status.
func (cb *InboundCallback) Validate() error {
	switch cb.Status {
	case CallbackStatusDone, CallbackStatusError:
		return nil
	default:
		return &ErrInvalidStatus{Status: string(cb.Status)}
	}
}
