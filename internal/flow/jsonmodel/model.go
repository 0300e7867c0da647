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

// Package jsonmodel provides the structure for representing a flow definition in JSON format.
package jsonmodel

import "encoding/json"

// FlowDefinition represents the direct flow structure from JSON.
type FlowDefinition struct {
	ID          string           `json:"id"`
	Version     int              `json:"version"`
	Name        string           `json:"name,omitempty"`
	StartNodeID string           `json:"startNodeId,omitempty"`
	Nodes       []NodeDefinition `json:"nodes"`
	Edges       []EdgeDefinition `json:"edges"`
}

// NodeDefinition represents a node in the flow definition.
type NodeDefinition struct {
	ID             string                    `json:"id"`
	Type           string                    `json:"type"`
	Config         json.RawMessage           `json:"config,omitempty"`
	EntityMovement *EntityMovementDefinition `json:"entityMovement,omitempty"`
}

// EdgeDefinition represents a directed edge in the flow definition.
type EdgeDefinition struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// EntityMovementDefinition represents how the bound entity moves when the node completes.
type EntityMovementDefinition struct {
	OnSuccess    string `json:"onSuccess"`
	TargetNodeID string `json:"targetNodeId,omitempty"`
	EntityType   string `json:"entityType,omitempty"`
}
