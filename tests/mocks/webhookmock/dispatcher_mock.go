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

// Package webhookmock provides a mock implementation of the webhook dispatcher for testing.
package webhookmock

import (
	"context"
	"sync"

	"github.com/asgardeo/waypoint/internal/flow/webhook"
)

// DispatchCall records one Dispatch invocation.
type DispatchCall struct {
	URL     string
	Headers map[string]string
	Request webhook.OutboundRequest
}

// MockDispatcher is a mock implementation of the DispatcherInterface.
type MockDispatcher struct {
	mu sync.Mutex

	// MockDispatch defines the behavior for the Dispatch method.
	MockDispatch func(url string, req webhook.OutboundRequest) error

	calls []DispatchCall
}

var _ webhook.DispatcherInterface = (*MockDispatcher)(nil)

// Dispatch mocks the Dispatch method of the DispatcherInterface.
func (m *MockDispatcher) Dispatch(_ context.Context, url string, headers map[string]string,
	req webhook.OutboundRequest) error {
	m.mu.Lock()
	m.calls = append(m.calls, DispatchCall{URL: url, Headers: headers, Request: req})
	m.mu.Unlock()

	if m.MockDispatch != nil {
		return m.MockDispatch(url, req)
	}
	return nil
}

// Calls returns a copy of the recorded Dispatch calls.
func (m *MockDispatcher) Calls() []DispatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DispatchCall(nil), m.calls...)
}

// CallsFor returns the recorded calls for one node instance.
func (m *MockDispatcher) CallsFor(instanceID string) []DispatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DispatchCall
	for _, c := range m.calls {
		if c.Request.NodeID == instanceID {
			out = append(out, c)
		}
	}
	return out
}
