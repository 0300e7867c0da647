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

	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
	"github.com/asgardeo/waypoint/internal/system/log"
)

// enterSplitter resolves the items to fan out over and enters every outgoing target once per item.
// Branch i of target X is the instance X_i and carries {item, index, total}.
func (t *transition) enterSplitter(target *model.Node, source *model.NodeState, branch *model.Branch, depth int) {
	if branch != nil {
		t.failNew(target, branch, "nested fan-out inside branch %d of %s is not supported",
			branch.Index, branch.SplitterID)
		return
	}

	cfg, _ := target.SplitterConfig()
	template := cfg.Items
	if template == nil {
		template = fmt.Sprintf("{{%s}}", constants.TriggerContextKey+"."+constants.DefaultItemsField)
		if source != nil {
			template = fmt.Sprintf("{{%s.%s}}", source.NodeID, constants.DefaultItemsField)
		}
	}

	state := t.newState(target, nil, constants.NodeStatusRunning)
	state.Input = t.sourceOutput(source)
	t.run.NodeStates[state.InstanceID] = state

	r, err := t.resolver(nil)
	if err != nil {
		t.markFailed(state, serviceerror.KindValidation, errorPayload(fmt.Sprintf("failed to resolve splitter items: %v", err)))
		return
	}
	items, ok := r.Resolve(template).([]any)
	if !ok {
		t.markFailed(state, serviceerror.KindValidation, errorPayload("splitter items did not resolve to an array"))
		return
	}

	total := len(items)
	t.markCompleted(state, map[string]any{constants.DefaultItemsField: items, "total": total})
	edges := t.flow.OutgoingEdges(target.ID)
	var fired *model.Edge
	if len(edges) > 0 {
		fired = edges[0]
	}
	t.moveEntity(target, state, fired)

	t.logger.Debug("Fanning out", log.String(log.LoggerKeyNodeID, target.ID), log.Int("total", total))
	if total == 0 {
		t.completeEmptyCollectors(target, depth)
		return
	}
	for i, item := range items {
		b := &model.Branch{SplitterID: target.ID, Index: i, Total: total, Item: item}
		for _, edge := range edges {
			next, ok := t.flow.GetNode(edge.Target)
			if !ok {
				continue
			}
			t.enter(next, state, b, depth+1)
		}
	}
}

// enterCollector fills the slot of the arriving branch and continues once every slot is filled.
// The output is ordered by branch index, never by arrival.
func (t *transition) enterCollector(target *model.Node, source *model.NodeState, branch *model.Branch, depth int) {
	if branch == nil {
		if _, exists := t.run.NodeStates[target.ID]; !exists {
			t.failNew(target, nil, "collector reached outside of a fan-out")
		}
		return
	}

	state, exists := t.run.NodeStates[target.ID]
	if exists && state.Status.IsTerminal() {
		t.logger.Debug("Collector already finished, branch output ignored",
			log.String(log.LoggerKeyNodeID, target.ID), log.Int("index", branch.Index))
		return
	}

	collector := t.run.Collectors[target.ID]
	if collector == nil {
		collector = model.NewCollectorState(branch.Total)
		t.run.Collectors[target.ID] = collector
	}
	if !exists {
		state = t.newState(target, nil, constants.NodeStatusPending)
		t.setState(state)
	}
	if collector.Expected != branch.Total {
		t.markFailed(state, serviceerror.KindValidation, errorPayload(fmt.Sprintf("branch of %s reports %d items, collector expects %d",
			branch.SplitterID, branch.Total, collector.Expected)))
		return
	}

	value := t.sourceOutput(source)
	if source != nil && source.NodeID == branch.SplitterID {
		value = branch.Item
	}
	filled, err := collector.Fill(branch.Index, value)
	if err != nil {
		t.markFailed(state, serviceerror.KindValidation, errorPayload(err.Error()))
		return
	}
	if !filled {
		t.logger.Debug("Collector slot already filled", log.String(log.LoggerKeyNodeID, target.ID),
			log.Int("index", branch.Index))
		return
	}
	if !collector.IsComplete() {
		return
	}
	t.completeAndWalk(state, collector.Ordered(), depth)
}

// completeEmptyCollectors completes with [] every collector reachable from an empty splitter.
func (t *transition) completeEmptyCollectors(splitter *model.Node, depth int) {
	visited := map[string]bool{splitter.ID: true}
	queue := []string{splitter.ID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edge := range t.flow.OutgoingEdges(current) {
			if visited[edge.Target] {
				continue
			}
			visited[edge.Target] = true
			node, ok := t.flow.GetNode(edge.Target)
			if !ok {
				continue
			}
			if node.Type != constants.NodeTypeCollector {
				queue = append(queue, node.ID)
				continue
			}
			if _, exists := t.run.NodeStates[node.ID]; exists {
				continue
			}
			t.run.Collectors[node.ID] = model.NewCollectorState(0)
			state := t.newState(node, nil, constants.NodeStatusPending)
			t.run.NodeStates[state.InstanceID] = state
			t.completeAndWalk(state, []any{}, depth+1)
		}
	}
}
