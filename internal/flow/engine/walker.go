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
	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/flow/webhook"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
	"github.com/asgardeo/waypoint/internal/system/log"
)

// completeAndWalk completes an instance and enters the targets of the edges it fires.
func (t *transition) completeAndWalk(state *model.NodeState, output any, depth int) {
	t.markCompleted(state, output)
	t.walkFrom(state, depth)
}

// walkFrom enters the successors of a completed instance. A logic instance fires only its
// routed edge, any other instance fires every outgoing edge.
func (t *transition) walkFrom(state *model.NodeState, depth int) {
	node, ok := t.flow.GetNode(state.NodeID)
	if !ok {
		return
	}

	edges := t.flow.OutgoingEdges(node.ID)
	if node.Type == constants.NodeTypeLogic {
		edges = nil
		if edge, ok := t.flow.GetEdge(state.Route); ok {
			edges = []*model.Edge{edge}
		}
	}

	var fired *model.Edge
	if len(edges) > 0 {
		fired = edges[0]
	}
	t.moveEntity(node, state, fired)

	for _, edge := range edges {
		target, ok := t.flow.GetNode(edge.Target)
		if !ok {
			continue
		}
		t.enter(target, state, state.Branch, depth+1)
	}
}

// enter reaches target from source, which is nil for the start node.
func (t *transition) enter(target *model.Node, source *model.NodeState, branch *model.Branch, depth int) {
	logger := t.logger.With(log.String(log.LoggerKeyNodeID, target.ID))

	if depth > t.engine.maxWalkDepth {
		logger.Warn("Maximum walk depth exceeded", log.Int("depth", depth))
		t.failNew(target, branch, "maximum walk depth of %d exceeded", t.engine.maxWalkDepth)
		return
	}

	// Every branch arrives at the same collector instance.
	if target.Type == constants.NodeTypeCollector {
		t.enterCollector(target, source, branch, depth)
		return
	}

	instanceID := model.InstanceID(target.ID, branch)
	if _, exists := t.run.NodeStates[instanceID]; exists {
		logger.Warn("Node instance already reached, convergence outside a collector is ignored",
			log.String(log.LoggerKeyInstanceID, instanceID))
		return
	}

	switch target.Type {
	case constants.NodeTypeUX, constants.NodeTypeMediaSelect:
		t.enterGate(target, branch)
	case constants.NodeTypeWorker:
		t.enterWorker(target, source, branch)
	case constants.NodeTypeLogic:
		t.enterLogic(target, source, branch, depth)
	case constants.NodeTypeSplitter:
		t.enterSplitter(target, source, branch, depth)
	default:
		t.failNew(target, branch, "unsupported node type %s", target.Type)
	}
}

// enterGate opens a human gate and suspends the path until a submission arrives.
func (t *transition) enterGate(target *model.Node, branch *model.Branch) {
	if branch != nil {
		t.failNew(target, branch, "human gates cannot run inside a fan-out")
		return
	}
	r, err := t.resolver(nil)
	if err != nil {
		t.failNew(target, nil, "failed to resolve gate input: %v", err)
		return
	}
	state := t.newState(target, nil, constants.NodeStatusWaitingForUser)
	state.Input = r.Resolve(target.GateInput())
	t.setState(state)
	t.run.CurrentUXNode = state.InstanceID
}

// enterWorker persists the instance as running and queues its webhook.
func (t *transition) enterWorker(target *model.Node, source *model.NodeState, branch *model.Branch) {
	cfg, _ := target.WorkerConfig()

	input := t.entryInput(source, branch)
	if cfg.Input != nil {
		r, err := t.resolver(branch)
		if err != nil {
			t.failNew(target, branch, "failed to resolve worker input: %v", err)
			return
		}
		input = r.Resolve(cfg.Input)
	}
	if branch != nil {
		input = branchInput(input, branch)
	}

	state := t.newState(target, branch, constants.NodeStatusRunning)
	state.Input = input
	t.setState(state)

	t.dispatches = append(t.dispatches, dispatch{
		instanceID: state.InstanceID,
		url:        cfg.URL,
		headers:    cfg.Headers,
		request: webhook.OutboundRequest{
			RunID:       t.run.ID,
			NodeID:      state.InstanceID,
			Input:       input,
			CallbackURL: t.engine.signer.CallbackURL(t.run.ID, state.InstanceID),
		},
	})
}

// enterLogic routes synchronously and continues on the chosen edge. The input passes through.
func (t *transition) enterLogic(target *model.Node, source *model.NodeState, branch *model.Branch, depth int) {
	cfg, _ := target.LogicConfig()
	state := t.newState(target, branch, constants.NodeStatusRunning)
	state.Input = t.entryInput(source, branch)
	t.run.NodeStates[state.InstanceID] = state

	edgeID, err := t.engine.conditions.route(cfg, t.flow.OutgoingEdges(target.ID), t.conditionGlobals(branch))
	if err != nil {
		t.markFailed(state, serviceerror.KindValidation, errorPayload(err.Error()))
		return
	}
	state.Route = edgeID
	t.completeAndWalk(state, state.Input, depth)
}

// conditionGlobals returns the globals visible to logic conditions.
func (t *transition) conditionGlobals(branch *model.Branch) map[string]any {
	snap := t.snapshot(branch)
	globals := map[string]any{
		constants.TriggerContextKey: snap[constants.TriggerContextKey],
		constants.SplitContextKey:   snap[constants.SplitContextKey],
	}
	delete(snap, constants.TriggerContextKey)
	delete(snap, constants.SplitContextKey)
	globals[constants.NodesContextKey] = snap
	return globals
}

// branchInput adds the fan-out item, index and total to a branch worker input.
func branchInput(input any, branch *model.Branch) any {
	out := map[string]any{}
	if m, ok := input.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	} else if input != nil {
		out["input"] = input
	}
	for k, v := range splitContext(branch) {
		out[k] = v
	}
	return out
}
