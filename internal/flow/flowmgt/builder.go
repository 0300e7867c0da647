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

package flowmgt

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/flow/jsonmodel"
	"github.com/asgardeo/waypoint/internal/flow/model"
)

// BuildFlowFromDefinition converts a JSON flow definition into an immutable flow model.
func BuildFlowFromDefinition(def *jsonmodel.FlowDefinition) (*model.Flow, error) {
	if def == nil {
		return nil, errors.New("flow definition is nil")
	}
	if def.ID == "" {
		return nil, errors.New("flow id is required")
	}
	if len(def.Nodes) == 0 {
		return nil, fmt.Errorf("flow %s has no nodes", def.ID)
	}

	nodes := make([]*model.Node, 0, len(def.Nodes))
	nodeIDs := make(map[string]bool, len(def.Nodes))
	for i := range def.Nodes {
		nodeDef := &def.Nodes[i]
		if nodeDef.ID == "" {
			return nil, fmt.Errorf("node at position %d has no id", i)
		}
		if nodeIDs[nodeDef.ID] {
			return nil, fmt.Errorf("duplicate node id %s", nodeDef.ID)
		}
		nodeIDs[nodeDef.ID] = true

		node, err := buildNode(nodeDef)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nodeDef.ID, err)
		}
		nodes = append(nodes, node)
	}

	edges := make([]*model.Edge, 0, len(def.Edges))
	edgeIDs := make(map[string]bool, len(def.Edges))
	for _, edgeDef := range def.Edges {
		if edgeDef.ID == "" {
			return nil, fmt.Errorf("edge %s -> %s has no id", edgeDef.Source, edgeDef.Target)
		}
		if edgeIDs[edgeDef.ID] {
			return nil, fmt.Errorf("duplicate edge id %s", edgeDef.ID)
		}
		if !nodeIDs[edgeDef.Source] || !nodeIDs[edgeDef.Target] {
			return nil, fmt.Errorf("edge %s references an unknown node", edgeDef.ID)
		}
		edgeIDs[edgeDef.ID] = true
		edges = append(edges, &model.Edge{
			ID:     edgeDef.ID,
			Source: edgeDef.Source,
			Target: edgeDef.Target,
			Label:  edgeDef.Label,
		})
	}

	version := def.Version
	if version <= 0 {
		version = 1
	}
	flow := model.NewFlow(def.ID, version, def.Name, nodes, edges)

	startNodeID, err := resolveStartNode(def, flow)
	if err != nil {
		return nil, err
	}
	flow.StartNodeID = startNodeID

	if err := validateReferences(flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// buildNode converts a node definition into the typed node model.
func buildNode(def *jsonmodel.NodeDefinition) (*model.Node, error) {
	node := &model.Node{ID: def.ID, Type: constants.NodeType(def.Type)}

	var err error
	switch node.Type {
	case constants.NodeTypeUX:
		node.Config, node.Extra, err = decodeConfig[model.UXConfig](def.Config, "title", "input")
	case constants.NodeTypeMediaSelect:
		node.Config, node.Extra, err = decodeConfig[model.MediaSelectConfig](def.Config,
			"title", "options", "minSelect", "maxSelect")
	case constants.NodeTypeWorker:
		var cfg model.WorkerConfig
		cfg, node.Extra, err = decodeConfig[model.WorkerConfig](def.Config, "url", "input", "headers")
		if err == nil && cfg.URL == "" {
			err = errors.New("worker url is required")
		}
		node.Config = cfg
	case constants.NodeTypeLogic:
		node.Config, node.Extra, err = decodeConfig[model.LogicConfig](def.Config, "branches", "defaultEdgeId")
	case constants.NodeTypeSplitter:
		node.Config, node.Extra, err = decodeConfig[model.SplitterConfig](def.Config, "items")
	case constants.NodeTypeCollector:
		node.Config, node.Extra, err = decodeConfig[model.CollectorConfig](def.Config)
	default:
		return nil, fmt.Errorf("unknown node type %q", def.Type)
	}
	if err != nil {
		return nil, err
	}

	if def.EntityMovement != nil {
		movement := &model.EntityMovement{
			OnSuccess:    constants.MovementAction(def.EntityMovement.OnSuccess),
			TargetNodeID: def.EntityMovement.TargetNodeID,
			EntityType:   def.EntityMovement.EntityType,
		}
		switch movement.OnSuccess {
		case "", constants.MovementAdvance, constants.MovementStay, constants.MovementComplete:
		case constants.MovementJump:
			if movement.TargetNodeID == "" {
				return nil, errors.New("jump movement requires targetNodeId")
			}
		default:
			return nil, fmt.Errorf("unknown entity movement %q", movement.OnSuccess)
		}
		node.Movement = movement
	}
	return node, nil
}

// decodeConfig decodes a typed node config and returns the keys it does not know about.
func decodeConfig[T model.NodeConfig](raw json.RawMessage, known ...string) (T, map[string]json.RawMessage,
	error) {
	var cfg T
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, nil, fmt.Errorf("invalid config: %w", err)
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return cfg, nil, fmt.Errorf("invalid config: %w", err)
	}
	var extra map[string]json.RawMessage
	for key, value := range all {
		if slices.Contains(known, key) {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[key] = value
	}
	return cfg, extra, nil
}

// resolveStartNode returns the declared start node, or the unique node with no incoming edges.
func resolveStartNode(def *jsonmodel.FlowDefinition, flow *model.Flow) (string, error) {
	if def.StartNodeID != "" {
		if _, ok := flow.GetNode(def.StartNodeID); !ok {
			return "", fmt.Errorf("start node %s does not exist", def.StartNodeID)
		}
		return def.StartNodeID, nil
	}

	var roots []string
	for _, node := range flow.GetNodes() {
		if len(flow.IncomingEdges(node.ID)) == 0 {
			roots = append(roots, node.ID)
		}
	}
	if len(roots) != 1 {
		return "", fmt.Errorf("flow %s must declare startNodeId: found %d nodes without incoming edges",
			flow.ID, len(roots))
	}
	return roots[0], nil
}

// validateReferences checks node config references to edges and nodes.
func validateReferences(flow *model.Flow) error {
	for _, node := range flow.GetNodes() {
		if logic, ok := node.LogicConfig(); ok {
			outgoing := make(map[string]bool)
			for _, e := range flow.OutgoingEdges(node.ID) {
				outgoing[e.ID] = true
			}
			for _, branch := range logic.Branches {
				if !outgoing[branch.EdgeID] {
					return fmt.Errorf("logic node %s routes to edge %s which does not leave it", node.ID, branch.EdgeID)
				}
			}
			if logic.DefaultEdgeID != "" && !outgoing[logic.DefaultEdgeID] {
				return fmt.Errorf("logic node %s defaults to edge %s which does not leave it",
					node.ID, logic.DefaultEdgeID)
			}
		}
		if node.Movement != nil && node.Movement.OnSuccess == constants.MovementJump {
			if _, ok := flow.GetNode(node.Movement.TargetNodeID); !ok {
				return fmt.Errorf("node %s jumps to unknown node %s", node.ID, node.Movement.TargetNodeID)
			}
		}
	}
	return nil
}
