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

// Package enginemock provides a mock implementation of the flow engine for testing.
package enginemock

import (
	"context"

	"github.com/asgardeo/waypoint/internal/flow/engine"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/flow/webhook"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
)

// MockEngine is a mock implementation of the EngineInterface.
type MockEngine struct {
	// MockStart defines the behavior for the Start method.
	MockStart func(req engine.StartRequest) (*model.Run, *serviceerror.ServiceError)

	// MockHandleCallback defines the behavior for the HandleCallback method.
	MockHandleCallback func(runID, instanceID string, cb webhook.InboundCallback) (*model.Run,
		*serviceerror.ServiceError)

	// MockCompleteUX defines the behavior for the CompleteUX method.
	MockCompleteUX func(runID, nodeID string, output any) (*model.Run, *serviceerror.ServiceError)

	// MockGetRun defines the behavior for the GetRun method.
	MockGetRun func(runID string) (*model.Run, *serviceerror.ServiceError)
}

var _ engine.EngineInterface = (*MockEngine)(nil)

// Start mocks the Start method of the EngineInterface.
func (m *MockEngine) Start(_ context.Context, req engine.StartRequest) (*model.Run, *serviceerror.ServiceError) {
	if m.MockStart != nil {
		return m.MockStart(req)
	}
	return nil, nil
}

// HandleCallback mocks the HandleCallback method of the EngineInterface.
func (m *MockEngine) HandleCallback(_ context.Context, runID, instanceID string,
	cb webhook.InboundCallback) (*model.Run, *serviceerror.ServiceError) {
	if m.MockHandleCallback != nil {
		return m.MockHandleCallback(runID, instanceID, cb)
	}
	return nil, nil
}

// CompleteUX mocks the CompleteUX method of the EngineInterface.
func (m *MockEngine) CompleteUX(_ context.Context, runID, nodeID string,
	output any) (*model.Run, *serviceerror.ServiceError) {
	if m.MockCompleteUX != nil {
		return m.MockCompleteUX(runID, nodeID, output)
	}
	return nil, nil
}

// GetRun mocks the GetRun method of the EngineInterface.
func (m *MockEngine) GetRun(_ context.Context, runID string) (*model.Run, *serviceerror.ServiceError) {
	if m.MockGetRun != nil {
		return m.MockGetRun(runID)
	}
	return nil, nil
}
