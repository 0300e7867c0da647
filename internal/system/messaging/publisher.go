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

// Package messaging publishes run and entity events to an external message broker.
package messaging

import (
	"context"
	"fmt"
)

// PublisherInterface defines the interface for publishing events.
type PublisherInterface interface {
	// Publish encodes the payload as JSON and publishes it on the given subject.
	Publish(ctx context.Context, subject string, payload any) error
	// Check reports an error when the publisher cannot currently deliver events.
	Check(ctx context.Context) error
	// Close flushes pending events and releases the connection.
	Close() error
}

// RunNodeSubject returns the subject for node state changes of a run.
func RunNodeSubject(prefix, runID string) string {
	return fmt.Sprintf("%s.run.%s.node", prefix, runID)
}

// EntityJourneySubject returns the subject for journey events of an entity.
func EntityJourneySubject(prefix, entityID string) string {
	return fmt.Sprintf("%s.entity.%s.journey", prefix, entityID)
}

// noopPublisher discards every event.
type noopPublisher struct{}

// NewNoopPublisher returns a publisher that discards every event.
func NewNoopPublisher() PublisherInterface {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }

func (noopPublisher) Check(context.Context) error { return nil }

func (noopPublisher) Close() error { return nil }
