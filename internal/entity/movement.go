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

package entity

import (
	"errors"
	"time"
)

var (
	// ErrEntityTerminal is returned when a movement targets a completed entity.
	ErrEntityTerminal = errors.New("entity journey is completed")
	// ErrNotTraveling is returned when a travel signal reaches an entity that is not on an edge.
	ErrNotTraveling = errors.New("entity is not traveling")
	// ErrInvalidProgress is returned for edge progress outside [0, 1].
	ErrInvalidProgress = errors.New("edge progress must be within [0, 1]")
	// ErrInvalidPlacement is returned when an edge or its destination is missing.
	ErrInvalidPlacement = errors.New("edge and destination node are required")
)

// The functions below are the only writers of an entity's position. Each one sets either the node
// or the edge triple and clears the other, and appends at most one journey event.

// Spawn puts a new entity on an edge toward destination.
func Spawn(e *Entity, edgeID, fromNodeID, destination string, now time.Time) error {
	if edgeID == "" || destination == "" {
		return ErrInvalidPlacement
	}
	travel(e, edgeID, destination)
	appendEvent(e, JourneyEvent{Type: JourneyEventSpawned, Timestamp: now, EdgeID: edgeID,
		FromNodeID: fromNodeID, ToNodeID: destination})
	return nil
}

// PlaceOnEdge moves an entity onto an edge regardless of where it currently is.
func PlaceOnEdge(e *Entity, edgeID, fromNodeID, destination string, now time.Time) error {
	if e.IsTerminal() {
		return ErrEntityTerminal
	}
	if edgeID == "" || destination == "" {
		return ErrInvalidPlacement
	}
	travel(e, edgeID, destination)
	appendEvent(e, JourneyEvent{Type: JourneyEventStartedEdge, Timestamp: now, EdgeID: edgeID,
		FromNodeID: fromNodeID, ToNodeID: destination})
	return nil
}

// Advance moves an entity onto the edge leaving fromNodeID. An entity still traveling an earlier
// edge is moved on, since its position lags the run.
func Advance(e *Entity, runID, edgeID, fromNodeID, destination string, now time.Time) error {
	if e.IsTerminal() {
		return ErrEntityTerminal
	}
	if edgeID == "" || destination == "" {
		return ErrInvalidPlacement
	}
	travel(e, edgeID, destination)
	appendEvent(e, JourneyEvent{Type: JourneyEventStartedEdge, Timestamp: now, EdgeID: edgeID,
		FromNodeID: fromNodeID, ToNodeID: destination, RunID: runID})
	return nil
}

// Jump moves an entity toward target along a synthetic edge.
func Jump(e *Entity, runID, fromNodeID, target string, now time.Time) error {
	if e.IsTerminal() {
		return ErrEntityTerminal
	}
	if target == "" {
		return ErrInvalidPlacement
	}
	edgeID := JumpEdgeID(fromNodeID, target)
	travel(e, edgeID, target)
	appendEvent(e, JourneyEvent{Type: JourneyEventJumped, Timestamp: now, EdgeID: edgeID,
		FromNodeID: fromNodeID, ToNodeID: target, RunID: runID})
	return nil
}

// Complete ends the journey of an entity at nodeID.
func Complete(e *Entity, runID, nodeID, entityType string, now time.Time) error {
	if e.IsTerminal() {
		return ErrEntityTerminal
	}
	rest(e, nodeID)
	e.Status = StatusCompleted
	e.EntityType = entityType
	completedAt := now
	e.CompletedAt = &completedAt
	appendEvent(e, JourneyEvent{Type: JourneyEventCompleted, Timestamp: now, NodeID: nodeID, RunID: runID,
		EntityType: entityType})
	return nil
}

// Arrive moves a traveling entity to the destination of its edge. It returns false without error when
// the entity is not on edgeID any more, so repeated or stale arrival signals are absorbed.
// An empty edgeID matches whatever edge the entity is on.
func Arrive(e *Entity, edgeID string, now time.Time) (bool, error) {
	if e.IsTerminal() {
		return false, nil
	}
	if e.Status != StatusTraveling || (edgeID != "" && e.CurrentEdgeID != edgeID) {
		return false, nil
	}
	arrivedOn := e.CurrentEdgeID
	destination := e.DestinationNodeID
	rest(e, destination)
	appendEvent(e, JourneyEvent{Type: JourneyEventArrived, Timestamp: now, EdgeID: arrivedOn, NodeID: destination})
	return true, nil
}

// SetProgress records how far a traveling entity is along its edge. Progress is not journaled.
func SetProgress(e *Entity, progress float64) error {
	if progress < 0 || progress > 1 {
		return ErrInvalidProgress
	}
	if e.Status != StatusTraveling {
		return ErrNotTraveling
	}
	e.EdgeProgress = progress
	return nil
}

// ApplyMove applies a movement command. It returns false when the command leaves the entity in place.
func ApplyMove(e *Entity, cmd MoveCommand, now time.Time) (bool, error) {
	switch cmd.Action {
	case MoveStay, "":
		return false, nil
	case MoveAdvance:
		if cmd.EdgeID == "" {
			return false, nil
		}
		return true, Advance(e, cmd.RunID, cmd.EdgeID, cmd.NodeID, cmd.ToNodeID, now)
	case MoveJump:
		return true, Jump(e, cmd.RunID, cmd.NodeID, cmd.ToNodeID, now)
	case MoveComplete:
		return true, Complete(e, cmd.RunID, cmd.NodeID, cmd.EntityType, now)
	default:
		return false, nil
	}
}

func travel(e *Entity, edgeID, destination string) {
	e.Status = StatusTraveling
	e.CurrentNodeID = ""
	e.CurrentEdgeID = edgeID
	e.EdgeProgress = 0
	e.DestinationNodeID = destination
}

func rest(e *Entity, nodeID string) {
	e.Status = StatusAtNode
	e.CurrentNodeID = nodeID
	e.CurrentEdgeID = ""
	e.EdgeProgress = 0
	e.DestinationNodeID = ""
}

func appendEvent(e *Entity, event JourneyEvent) {
	event.Sequence = int64(len(e.Journey)) + 1
	e.Journey = append(e.Journey, event)
}
