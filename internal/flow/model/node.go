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

package model

import (
	"encoding/json"

	"github.com/asgardeo/waypoint/internal/flow/constants"
)

// NodeConfig is the closed set of typed node configurations.
type NodeConfig interface {
	NodeType() constants.NodeType
	isNodeConfig()
}

// UXConfig configures a human input gate. Input is resolved when the gate opens and shown to the user.
type UXConfig struct {
	Title string `json:"title,omitempty"`
	Input any    `json:"input,omitempty"`
}

// MediaSelectConfig configures a human gate for choosing among generated media.
type MediaSelectConfig struct {
	Title     string `json:"title,omitempty"`
	Options   any    `json:"options,omitempty"`
	MinSelect int    `json:"minSelect,omitempty"`
	MaxSelect int    `json:"maxSelect,omitempty"`
}

// WorkerConfig configures an external worker webhook.
type WorkerConfig struct {
	URL     string            `json:"url"`
	Input   any               `json:"input,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// LogicBranch routes to EdgeID when Condition evaluates truthy.
type LogicBranch struct {
	EdgeID    string `json:"edgeId"`
	Condition string `json:"condition"`
}

// LogicConfig configures synchronous routing. Branches are evaluated in order.
type LogicConfig struct {
	Branches      []LogicBranch `json:"branches,omitempty"`
	DefaultEdgeID string        `json:"defaultEdgeId,omitempty"`
}

// SplitterConfig configures a fan-out. Items is a template that must resolve to an array.
type SplitterConfig struct {
	Items any `json:"items,omitempty"`
}

// CollectorConfig configures a fan-in. It has no settings of its own.
type CollectorConfig struct{}

func (UXConfig) NodeType() constants.NodeType          { return constants.NodeTypeUX }
func (MediaSelectConfig) NodeType() constants.NodeType { return constants.NodeTypeMediaSelect }
func (WorkerConfig) NodeType() constants.NodeType      { return constants.NodeTypeWorker }
func (LogicConfig) NodeType() constants.NodeType       { return constants.NodeTypeLogic }
func (SplitterConfig) NodeType() constants.NodeType    { return constants.NodeTypeSplitter }
func (CollectorConfig) NodeType() constants.NodeType   { return constants.NodeTypeCollector }

func (UXConfig) isNodeConfig()          {}
func (MediaSelectConfig) isNodeConfig() {}
func (WorkerConfig) isNodeConfig()      {}
func (LogicConfig) isNodeConfig()       {}
func (SplitterConfig) isNodeConfig()    {}
func (CollectorConfig) isNodeConfig()   {}

// EntityMovement describes how the bound entity moves when the node completes.
type EntityMovement struct {
	OnSuccess    constants.MovementAction `json:"onSuccess"`
	TargetNodeID string                   `json:"targetNodeId,omitempty"`
	EntityType   string                   `json:"entityType,omitempty"`
}

// Node is a typed node of a flow.
type Node struct {
	ID       string             `json:"id"`
	Type     constants.NodeType `json:"type"`
	Config   NodeConfig         `json:"config"`
	Movement *EntityMovement    `json:"entityMovement,omitempty"`
	// Extra holds config keys not understood by this version, kept for forward compatibility.
	Extra map[string]json.RawMessage `json:"extra,omitempty"`
}

// EffectiveMovement returns the effective entity movement, defaulting to advance.
func (n *Node) EffectiveMovement() EntityMovement {
	if n.Movement == nil || n.Movement.OnSuccess == "" {
		return EntityMovement{OnSuccess: constants.MovementAdvance}
	}
	return *n.Movement
}

// WorkerConfig returns the worker configuration of the node.
func (n *Node) WorkerConfig() (WorkerConfig, bool) {
	c, ok := n.Config.(WorkerConfig)
	return c, ok
}

// LogicConfig returns the logic configuration of the node.
func (n *Node) LogicConfig() (LogicConfig, bool) {
	c, ok := n.Config.(LogicConfig)
	return c, ok
}

// SplitterConfig returns the splitter configuration of the node.
func (n *Node) SplitterConfig() (SplitterConfig, bool) {
	c, ok := n.Config.(SplitterConfig)
	return c, ok
}

// GateInput returns the input template of a human gate node.
func (n *Node) GateInput() any {
	switch c := n.Config.(type) {
	case UXConfig:
		return c.Input
	case MediaSelectConfig:
		return map[string]any{"title": c.Title, "options": c.Options,
			"minSelect": c.MinSelect, "maxSelect": c.MaxSelect}
	default:
		return nil
	}
}

// Edge is a directed edge of a flow.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}
