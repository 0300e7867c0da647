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

// Package entity tracks the external actors that travel a flow graph.
//
// An entity's position is derived from node completions of the runs bound to it. It is always either
// at a node or traveling along an edge, never both, and every position change is recorded as an
// append-only journey event.
package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the movement state of an entity.
type Status string

const (
	// StatusAtNode denotes an entity resting at a node.
	StatusAtNode Status = "at_node"
	// StatusTraveling denotes an entity on an edge. It may stay there indefinitely.
	StatusTraveling Status = "traveling"
	// StatusCompleted denotes an entity that finished its journey. It is terminal.
	StatusCompleted Status = "completed"
)

// JourneyEventType is the type of a journey event.
type JourneyEventType string

const (
	// JourneyEventSpawned records the creation of an entity onto an edge.
	JourneyEventSpawned JourneyEventType = "spawned"
	// JourneyEventStartedEdge records an entity starting to travel an edge.
	JourneyEventStartedEdge JourneyEventType = "started_edge"
	// JourneyEventJumped records an entity traveling toward a node outside the graph edges.
	JourneyEventJumped JourneyEventType = "jumped"
	// JourneyEventArrived records an entity reaching the destination of its edge.
	JourneyEventArrived JourneyEventType = "arrived"
	// JourneyEventCompleted records the end of an entity's journey.
	JourneyEventCompleted JourneyEventType = "completed"
)

// MoveAction is the movement applied to an entity when a node of its run completes.
type MoveAction string

const (
	// MoveAdvance moves the entity onto the edge the run continues on.
	MoveAdvance MoveAction = "advance"
	// MoveJump moves the entity toward an explicitly named node.
	MoveJump MoveAction = "jump"
	// MoveStay leaves the entity where it is.
	MoveStay MoveAction = "stay"
	// MoveComplete ends the entity's journey.
	MoveComplete MoveAction = "complete"
)

// JumpEdgeID returns the synthetic edge id used while an entity jumps between two nodes.
func JumpEdgeID(fromNodeID, toNodeID string) string {
	return fmt.Sprintf("jump:%s->%s", fromNodeID, toNodeID)
}

// JourneyEvent is an immutable record of a position change.
type JourneyEvent struct {
	Sequence   int64            `json:"sequence"`
	Type       JourneyEventType `json:"type"`
	Timestamp  time.Time        `json:"timestamp"`
	NodeID     string           `json:"nodeId,omitempty"`
	EdgeID     string           `json:"edgeId,omitempty"`
	FromNodeID string           `json:"fromNodeId,omitempty"`
	ToNodeID   string           `json:"toNodeId,omitempty"`
	RunID      string           `json:"runId,omitempty"`
	EntityType string           `json:"entityType,omitempty"`
}

// Entity is an external actor traveling a flow graph.
type Entity struct {
	ID                string          `json:"id"`
	CanvasID          string          `json:"canvasId"`
	Name              *string         `json:"name"`
	Email             *string         `json:"email"`
	Status            Status          `json:"status"`
	CurrentNodeID     string          `json:"currentNodeId,omitempty"`
	CurrentEdgeID     string          `json:"currentEdgeId,omitempty"`
	EdgeProgress      float64         `json:"edgeProgress"`
	DestinationNodeID string          `json:"destinationNodeId,omitempty"`
	EntityType        string          `json:"entityType,omitempty"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
	Journey           []JourneyEvent  `json:"journey"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// IsTerminal reports whether the entity finished its journey.
func (e *Entity) IsTerminal() bool {
	return e.Status == StatusCompleted
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() (*Entity, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to copy entity %s: %w", e.ID, err)
	}
	var clone Entity
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to copy entity %s: %w", e.ID, err)
	}
	return &clone, nil
}

// MoveCommand asks for the movement of an entity after a node of its run completed.
type MoveCommand struct {
	EntityID string
	RunID    string
	// NodeID is the node whose completion caused the movement.
	NodeID string
	Action MoveAction
	// EdgeID and ToNodeID name the edge taken on advance. ToNodeID is the jump target on jump.
	EdgeID     string
	ToNodeID   string
	EntityType string
}

// PlacementRequest asks for an entity, found or created by email, to be placed on an edge.
type PlacementRequest struct {
	CanvasID string
	Name     *string
	Email    *string
	// EmailKey is the normalised email used for find-or-create. Empty always creates.
	EmailKey          string
	Metadata          json.RawMessage
	EdgeID            string
	SourceNodeID      string
	DestinationNodeID string
}

// JourneyMessage is published for every persisted journey event.
type JourneyMessage struct {
	EntityID string       `json:"entityId"`
	CanvasID string       `json:"canvasId"`
	Event    JourneyEvent `json:"event"`
}

// ProgressRequest is the body of a travel progress report.
type ProgressRequest struct {
	Progress *float64 `json:"progress"`
}

// ArriveRequest is the body of an arrival signal.
type ArriveRequest struct {
	EdgeID string `json:"edgeId"`
}
