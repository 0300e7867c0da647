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

package flowexec

import "github.com/asgardeo/waypoint/internal/flow/constants"

// StartRunRequest is the optional body of a start request.
type StartRunRequest struct {
	Input    any    `json:"input,omitempty"`
	EntityID string `json:"entityId,omitempty"`
	// StartNodeID starts the run somewhere other than the flow start node.
	StartNodeID string `json:"startNodeId,omitempty"`
}

// StartRunResponse is returned when a run is started.
type StartRunResponse struct {
	RunID  string              `json:"runId"`
	Status constants.RunStatus `json:"status"`
}

// NodeAck acknowledges a callback or a human submission.
type NodeAck struct {
	RunID      string               `json:"runId"`
	InstanceID string               `json:"nodeId"`
	NodeStatus constants.NodeStatus `json:"nodeStatus"`
	RunStatus  constants.RunStatus  `json:"runStatus"`
}
