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

// Package messagingmock provides a mock implementation of the event publisher for testing.
package messagingmock

import (
	"context"
	"sync"

	"github.com/asgardeo/waypoint/internal/system/messaging"
)

// PublishCall records one Publish invocation.
type PublishCall struct {
	Subject string
	Payload any
}

// MockPublisher is a mock implementation of the PublisherInterface.
type MockPublisher struct {
	mu sync.Mutex

	// MockPublish defines the behavior for the Publish method.
	MockPublish func(subject string, payload any) error

	// MockCheck defines the behavior for the Check method.
	MockCheck func() error

	calls  []PublishCall
	closed bool
}

var _ messaging.PublisherInterface = (*MockPublisher)(nil)

// Publish mocks the Publish method of the PublisherInterface.
func (m *MockPublisher) Publish(_ context.Context, subject string, payload any) error {
	m.mu.Lock()
	m.calls = append(m.calls, PublishCall{Subject: subject, Payload: payload})
	m.mu.Unlock()

	if m.MockPublish != nil {
		return m.MockPublish(subject, payload)
	}
	return nil
}

// Check mocks the Check method of the PublisherInterface.
func (m *MockPublisher) Check(_ context.Context) error {
	if m.MockCheck != nil {
		return m.MockCheck()
	}
	return nil
}

// Close mocks the Close method of the PublisherInterface.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Calls returns a copy of the recorded Publish calls.
func (m *MockPublisher) Calls() []PublishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishCall(nil), m.calls...)
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
