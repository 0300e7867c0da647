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

// Package constants defines the constants used in the flow execution service and engine.
package constants

// NodeType defines the node types of a flow.
type NodeType string

const (
	// NodeTypeUX represents a human input gate.
	NodeTypeUX NodeType = "UX"
	// NodeTypeWorker represents an asynchronous call to an external worker webhook.
	NodeTypeWorker NodeType = "WORKER"
	// NodeTypeLogic represents synchronous routing between outgoing edges.
	NodeTypeLogic NodeType = "LOGIC"
	// NodeTypeSplitter represents a fan-out over an array of items.
	NodeTypeSplitter NodeType = "SPLITTER"
	// NodeTypeCollector represents a fan-in of parallel branches.
	NodeTypeCollector NodeType = "COLLECTOR"
	// NodeTypeMediaSelect represents a human gate for selecting generated media.
	NodeTypeMediaSelect NodeType = "MEDIA_SELECT"
)

// IsHumanGate reports whether nodes of this type wait for a human submission.
func (t NodeType) IsHumanGate() bool {
	return t == NodeTypeUX || t == NodeTypeMediaSelect
}

// NodeStatus defines the status of a node instance in a run.
type NodeStatus string

const (
	// NodeStatusPending indicates the instance has been reached but not started.
	NodeStatusPending NodeStatus = "pending"
	// NodeStatusRunning indicates the worker webhook has been fired.
	NodeStatusRunning NodeStatus = "running"
	// NodeStatusWaitingForUser indicates a human gate is open.
	NodeStatusWaitingForUser NodeStatus = "waiting_for_user"
	// NodeStatusCompleted indicates the instance finished successfully.
	NodeStatusCompleted NodeStatus = "completed"
	// NodeStatusFailed indicates the instance failed.
	NodeStatusFailed NodeStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from the status.
func (s NodeStatus) IsTerminal() bool {
	return s == NodeStatusCompleted || s == NodeStatusFailed
}

// RunStatus defines the status of a run.
type RunStatus string

const (
	// RunStatusRunning indicates node instances are still outstanding.
	RunStatusRunning RunStatus = "RUNNING"
	// RunStatusWaitingForUser indicates the run is suspended at a human gate.
	RunStatusWaitingForUser RunStatus = "WAITING_FOR_USER"
	// RunStatusCompleted indicates every reached instance completed.
	RunStatusCompleted RunStatus = "COMPLETED"
	// RunStatusFailed indicates at least one instance failed.
	RunStatusFailed RunStatus = "FAILED"
)

// MovementAction defines how an entity moves when a node completes.
type MovementAction string

const (
	// MovementAdvance moves the entity onto the edge the walker fires.
	MovementAdvance MovementAction = "advance"
	// MovementJump moves the entity toward a named node, bypassing edges.
	MovementJump MovementAction = "jump"
	// MovementStay leaves the entity where it is.
	MovementStay MovementAction = "stay"
	// MovementComplete finishes the entity's journey.
	MovementComplete MovementAction = "complete"
)

const (
	// SplitContextKey is the resolver and condition key for the current fan-out item.
	SplitContextKey = "split"
	// TriggerContextKey is the resolver and condition key for the run trigger payload.
	TriggerContextKey = "trigger"
	// NodesContextKey is the condition global holding completed node outputs.
	NodesContextKey = "nodes"

	// DefaultItemsField is the upstream output field a splitter fans out over when no template is set.
	DefaultItemsField = "items"
	// DefaultMaxWalkDepth bounds synchronous walking when the configuration does not.
	DefaultMaxWalkDepth = 64

	// TriggerSourceAPI is the trigger source for runs started through the start endpoint.
	TriggerSourceAPI = "api"
)
