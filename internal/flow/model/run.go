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
	"fmt"
	"time"

	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
)

// Trigger records what started a run.
type Trigger struct {
	Source     string    `json:"source"`
	Slug       string    `json:"slug,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
	Payload    any       `json:"payload,omitempty"`
}

// Branch identifies the fan-out branch a node instance belongs to.
type Branch struct {
	SplitterID string `json:"splitterId"`
	Index      int    `json:"index"`
	Total      int    `json:"total"`
	Item       any    `json:"item"`
}

// NodeState is the state of one node instance within a run.
type NodeState struct {
	InstanceID  string                 `json:"instanceId"`
	NodeID      string                 `json:"nodeId"`
	Status      constants.NodeStatus   `json:"status"`
	Branch      *Branch                `json:"branch,omitempty"`
	Input       any                    `json:"input,omitempty"`
	Output      any                    `json:"output,omitempty"`
	Error       any                    `json:"error,omitempty"`
	ErrorKind   serviceerror.ErrorKind `json:"errorKind,omitempty"`
	Route       string                 `json:"route,omitempty"`
	StartedAt   *time.Time             `json:"startedAt,omitempty"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// IsFanned reports whether the instance runs inside a fan-out branch.
func (s *NodeState) IsFanned() bool {
	return s.Branch != nil
}

// CollectorState accounts for the branches a collector is waiting on.
type CollectorState struct {
	Expected  int    `json:"expected"`
	Collected []any  `json:"collected"`
	Filled    []bool `json:"filled"`
}

// NewCollectorState creates a collector state with expected empty slots.
func NewCollectorState(expected int) *CollectorState {
	return &CollectorState{
		Expected:  expected,
		Collected: make([]any, expected),
		Filled:    make([]bool, expected),
	}
}

// Fill stores value at slot index. It returns false when the slot was already filled.
func (c *CollectorState) Fill(index int, value any) (bool, error) {
	if index < 0 || index >= c.Expected {
		return false, fmt.Errorf("collector slot %d out of range [0,%d)", index, c.Expected)
	}
	if c.Filled[index] {
		return false, nil
	}
	c.Collected[index] = value
	c.Filled[index] = true
	return true, nil
}

// IsComplete reports whether every slot 0..Expected-1 is filled.
func (c *CollectorState) IsComplete() bool {
	for i := 0; i < c.Expected; i++ {
		if !c.Filled[i] {
			return false
		}
	}
	return true
}

// Ordered returns the collected values in index order.
func (c *CollectorState) Ordered() []any {
	out := make([]any, c.Expected)
	copy(out, c.Collected)
	return out
}

// Run is one stateful execution of a flow version.
type Run struct {
	ID            string                     `json:"id"`
	FlowID        string                     `json:"flowId"`
	FlowVersion   int                        `json:"flowVersion"`
	Status        constants.RunStatus        `json:"status"`
	NodeStates    map[string]*NodeState      `json:"nodeStates"`
	Collectors    map[string]*CollectorState `json:"collectors,omitempty"`
	CurrentUXNode string                     `json:"currentUxNode,omitempty"`
	EntityID      string                     `json:"entityId,omitempty"`
	Trigger       *Trigger                   `json:"trigger,omitempty"`
	Version       int64                      `json:"version"`
	CreatedAt     time.Time                  `json:"createdAt"`
	UpdatedAt     time.Time                  `json:"updatedAt"`
}

// NewRun creates a running run with no node states.
func NewRun(id string, flow *Flow, entityID string, trigger *Trigger, now time.Time) *Run {
	return &Run{
		ID:          id,
		FlowID:      flow.ID,
		FlowVersion: flow.Version,
		Status:      constants.RunStatusRunning,
		NodeStates:  make(map[string]*NodeState),
		Collectors:  make(map[string]*CollectorState),
		EntityID:    entityID,
		Trigger:     trigger,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() (*Run, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to copy run %s: %w", r.ID, err)
	}
	var clone Run
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to copy run %s: %w", r.ID, err)
	}
	if clone.NodeStates == nil {
		clone.NodeStates = make(map[string]*NodeState)
	}
	if clone.Collectors == nil {
		clone.Collectors = make(map[string]*CollectorState)
	}
	return &clone, nil
}

// RecomputeStatus derives the run status from its node states.
// A failure is sticky, an open gate suspends the run and nothing outstanding completes it.
func (r *Run) RecomputeStatus() {
	outstanding := false
	for _, s := range r.NodeStates {
		switch s.Status {
		case constants.NodeStatusFailed:
			r.Status = constants.RunStatusFailed
			return
		case constants.NodeStatusPending, constants.NodeStatusRunning, constants.NodeStatusWaitingForUser:
			outstanding = true
		}
	}
	switch {
	case r.CurrentUXNode != "":
		r.Status = constants.RunStatusWaitingForUser
	case outstanding:
		r.Status = constants.RunStatusRunning
	default:
		r.Status = constants.RunStatusCompleted
	}
}

// InstanceID returns the instance id of a node. Fanned instances are suffixed with their branch index.
func InstanceID(nodeID string, branch *Branch) string {
	if branch == nil {
		return nodeID
	}
	return fmt.Sprintf("%s_%d", nodeID, branch.Index)
}

// NodeEvent is published whenever a node instance changes status.
type NodeEvent struct {
	RunID      string                 `json:"runId"`
	FlowID     string                 `json:"flowId"`
	InstanceID string                 `json:"instanceId"`
	NodeID     string                 `json:"nodeId"`
	Status     constants.NodeStatus   `json:"status"`
	RunStatus  constants.RunStatus    `json:"runStatus"`
	Output     any                    `json:"output,omitempty"`
	Error      any                    `json:"error,omitempty"`
	ErrorKind  serviceerror.ErrorKind `json:"errorKind,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}
