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

package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/asgardeo/waypoint/internal/entity"
	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/flow/resolver"
	"github.com/asgardeo/waypoint/internal/flow/webhook"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
	"github.com/asgardeo/waypoint/internal/system/log"
)

// dispatch is a worker webhook to fire once the transition is committed.
type dispatch struct {
	instanceID string
	url        string
	headers    map[string]string
	request    webhook.OutboundRequest
}

// transition computes the next state of one run and the effects to apply after it is persisted.
// A transition is built fresh for every update attempt, so nothing it records leaks out of a lost race.
type transition struct {
	engine *Engine
	flow   *model.Flow
	run    *model.Run
	now    time.Time
	logger *log.Logger

	dispatches []dispatch
	moves      []entity.MoveCommand
	events     []model.NodeEvent
}

func (e *Engine) newTransition(flow *model.Flow, run *model.Run, logger *log.Logger) *transition {
	return &transition{
		engine: e,
		flow:   flow,
		run:    run,
		now:    now(),
		logger: logger,
	}
}

// setState stores an instance state and records its status change.
func (t *transition) setState(state *model.NodeState) {
	t.run.NodeStates[state.InstanceID] = state
	t.record(state)
}

// record queues a node event for the current status of the instance.
func (t *transition) record(state *model.NodeState) {
	t.events = append(t.events, model.NodeEvent{
		RunID:      t.run.ID,
		FlowID:     t.run.FlowID,
		InstanceID: state.InstanceID,
		NodeID:     state.NodeID,
		Status:     state.Status,
		Output:     state.Output,
		Error:      state.Error,
		ErrorKind:  state.ErrorKind,
		Timestamp:  t.now,
	})
}

func (t *transition) newState(node *model.Node, branch *model.Branch, status constants.NodeStatus) *model.NodeState {
	started := t.now
	return &model.NodeState{
		InstanceID: model.InstanceID(node.ID, branch),
		NodeID:     node.ID,
		Status:     status,
		Branch:     copyBranch(branch),
		StartedAt:  &started,
	}
}

// markCompleted moves the instance to completed with the given output.
func (t *transition) markCompleted(state *model.NodeState, output any) {
	completed := t.now
	state.Status = constants.NodeStatusCompleted
	state.Output = output
	state.Error = nil
	state.CompletedAt = &completed
	t.record(state)
}

// markFailed moves the instance to failed. Propagation stops at a failed instance.
func (t *transition) markFailed(state *model.NodeState, kind serviceerror.ErrorKind, cause any) {
	completed := t.now
	state.Status = constants.NodeStatusFailed
	state.Error = cause
	state.ErrorKind = kind
	state.CompletedAt = &completed
	t.run.NodeStates[state.InstanceID] = state
	t.record(state)
	t.logger.Info("Node instance failed", log.String(log.LoggerKeyInstanceID, state.InstanceID),
		log.String("errorKind", string(kind)), log.Any("error", cause))
}

// failNew creates the instance of node directly in the failed state. These are failures of the
// graph or of the data flowing through it, never of a worker.
func (t *transition) failNew(node *model.Node, branch *model.Branch, format string, args ...any) {
	state := t.newState(node, branch, constants.NodeStatusPending)
	t.markFailed(state, serviceerror.KindValidation, errorPayload(fmt.Sprintf(format, args...)))
}

// snapshot returns the read-only resolution context for an instance in branch. Outputs of the
// same branch shadow outputs of non-fanned instances of the same node.
func (t *transition) snapshot(branch *model.Branch) map[string]any {
	snap := make(map[string]any, len(t.run.NodeStates)+2)
	for _, state := range t.run.NodeStates {
		if state.Status == constants.NodeStatusCompleted && !state.IsFanned() {
			snap[state.NodeID] = state.Output
		}
	}
	if branch != nil {
		for _, state := range t.run.NodeStates {
			if state.Status == constants.NodeStatusCompleted && sameBranch(state.Branch, branch) {
				snap[state.NodeID] = state.Output
			}
		}
		snap[constants.SplitContextKey] = splitContext(branch)
	}
	if t.run.Trigger != nil {
		snap[constants.TriggerContextKey] = t.run.Trigger.Payload
	}
	return snap
}

func (t *transition) resolver(branch *model.Branch) (*resolver.Resolver, error) {
	return resolver.New(t.snapshot(branch))
}

// sourceOutput returns the value handed to a node entered from source, or the trigger payload at the start.
func (t *transition) sourceOutput(source *model.NodeState) any {
	if source != nil {
		return source.Output
	}
	if t.run.Trigger != nil {
		return t.run.Trigger.Payload
	}
	return nil
}

// entryInput is sourceOutput, except that a branch entered straight from its splitter sees only
// {item, index, total} and never the whole item list.
func (t *transition) entryInput(source *model.NodeState, branch *model.Branch) any {
	if branch != nil && source != nil && source.NodeID == branch.SplitterID {
		return splitContext(branch)
	}
	return t.sourceOutput(source)
}

// refreshCurrentGate points the run at an open human gate, if any is left.
func (t *transition) refreshCurrentGate() {
	if state, ok := t.run.NodeStates[t.run.CurrentUXNode]; ok &&
		state.Status == constants.NodeStatusWaitingForUser {
		return
	}
	var open []string
	for id, state := range t.run.NodeStates {
		if state.Status == constants.NodeStatusWaitingForUser {
			open = append(open, id)
		}
	}
	sort.Strings(open)
	t.run.CurrentUXNode = ""
	if len(open) > 0 {
		t.run.CurrentUXNode = open[0]
	}
}

// finish derives the run status and stamps the emitted events with it.
func (t *transition) finish() {
	t.refreshCurrentGate()
	t.run.RecomputeStatus()
	for i := range t.events {
		t.events[i].RunStatus = t.run.Status
	}
}

// moveEntity queues the movement of the run's entity caused by the completion of state.
// Fanned instances never move the entity; only the main path does.
func (t *transition) moveEntity(node *model.Node, state *model.NodeState, firedEdge *model.Edge) {
	if t.run.EntityID == "" || state.IsFanned() {
		return
	}
	movement := node.EffectiveMovement()
	cmd := entity.MoveCommand{
		EntityID: t.run.EntityID,
		RunID:    t.run.ID,
		NodeID:   node.ID,
		Action:   entity.MoveAction(movement.OnSuccess),
	}
	switch movement.OnSuccess {
	case constants.MovementAdvance:
		if firedEdge == nil {
			return
		}
		cmd.EdgeID = firedEdge.ID
		cmd.ToNodeID = firedEdge.Target
	case constants.MovementJump:
		cmd.ToNodeID = movement.TargetNodeID
	case constants.MovementComplete:
		cmd.EntityType = movement.EntityType
	default:
		return
	}
	t.moves = append(t.moves, cmd)
}

func sameBranch(a, b *model.Branch) bool {
	return a != nil && b != nil && a.SplitterID == b.SplitterID && a.Index == b.Index
}

func copyBranch(branch *model.Branch) *model.Branch {
	if branch == nil {
		return nil
	}
	c := *branch
	return &c
}

func splitContext(branch *model.Branch) map[string]any {
	return map[string]any{
		"item":  branch.Item,
		"index": branch.Index,
		"total": branch.Total,
	}
}

func errorPayload(message string) map[string]any {
	return map[string]any{"message": message}
}
