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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/flow/jsonmodel"
	"github.com/asgardeo/waypoint/internal/flow/model"
)

const fanFlowJSON = `{
  "id": "render",
  "version": 2,
  "nodes": [
    {"id": "A", "type": "WORKER", "config": {"url": "http://worker/a", "retries": 3}},
    {"id": "S", "type": "SPLITTER"},
    {"id": "B", "type": "WORKER", "config": {"url": "http://worker/b", "input": {"prompt": "{{split.item}}"}}},
    {"id": "C", "type": "COLLECTOR"},
    {"id": "L", "type": "LOGIC", "config": {"branches": [{"edgeId": "e5", "condition": "nodes.C.length > 2"}],
      "defaultEdgeId": "e6"}},
    {"id": "D", "type": "WORKER", "config": {"url": "http://worker/d"},
      "entityMovement": {"onSuccess": "complete", "entityType": "customer"}},
    {"id": "U", "type": "UX", "config": {"title": "Review"}}
  ],
  "edges": [
    {"id": "e1", "source": "A", "target": "S"},
    {"id": "e2", "source": "S", "target": "B"},
    {"id": "e3", "source": "B", "target": "C"},
    {"id": "e4", "source": "C", "target": "L"},
    {"id": "e5", "source": "L", "target": "D"},
    {"id": "e6", "source": "L", "target": "U"}
  ]
}`

type BuilderTestSuite struct {
	suite.Suite
}

func TestBuilderSuite(t *testing.T) {
	suite.Run(t, new(BuilderTestSuite))
}

func parseDefinition(t *testing.T, raw string) *jsonmodel.FlowDefinition {
	var def jsonmodel.FlowDefinition
	require.NoError(t, json.Unmarshal([]byte(raw), &def))
	return &def
}

func (suite *BuilderTestSuite) TestBuildFlow() {
	flow, err := BuildFlowFromDefinition(parseDefinition(suite.T(), fanFlowJSON))
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "render", flow.ID)
	assert.Equal(suite.T(), 2, flow.Version)
	assert.Equal(suite.T(), "A", flow.StartNodeID, "the only node without incoming edges starts the flow")

	a, ok := flow.GetNode("A")
	require.True(suite.T(), ok)
	worker, ok := a.WorkerConfig()
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "http://worker/a", worker.URL)
	assert.JSONEq(suite.T(), "3", string(a.Extra["retries"]), "unknown keys are preserved")

	b, _ := flow.GetNode("B")
	bCfg, _ := b.WorkerConfig()
	assert.Equal(suite.T(), map[string]any{"prompt": "{{split.item}}"}, bCfg.Input)

	l, _ := flow.GetNode("L")
	logic, ok := l.LogicConfig()
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "e6", logic.DefaultEdgeID)
	assert.Len(suite.T(), logic.Branches, 1)

	d, _ := flow.GetNode("D")
	assert.Equal(suite.T(), constants.MovementComplete, d.EffectiveMovement().OnSuccess)
	assert.Equal(suite.T(), "customer", d.EffectiveMovement().EntityType)
	assert.Equal(suite.T(), constants.MovementAdvance, a.EffectiveMovement().OnSuccess)

	assert.Equal(suite.T(), []string{"e5", "e6"}, edgeIDs(flow.OutgoingEdges("L")))
	c, _ := flow.GetNode("C")
	assert.IsType(suite.T(), model.CollectorConfig{}, c.Config)
}

func (suite *BuilderTestSuite) TestBuildFlowDefaults() {
	flow, err := BuildFlowFromDefinition(&jsonmodel.FlowDefinition{
		ID:    "single",
		Nodes: []jsonmodel.NodeDefinition{{ID: "gate", Type: "MEDIA_SELECT"}},
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, flow.Version)
	assert.Equal(suite.T(), "gate", flow.StartNodeID)
}

func (suite *BuilderTestSuite) TestBuildFlowErrors() {
	tests := []struct {
		name string
		def  string
	}{
		{"MissingID", `{"nodes":[{"id":"a","type":"UX"}]}`},
		{"NoNodes", `{"id":"f"}`},
		{"UnknownType", `{"id":"f","nodes":[{"id":"a","type":"TIMER"}]}`},
		{"DuplicateNode", `{"id":"f","nodes":[{"id":"a","type":"UX"},{"id":"a","type":"UX"}]}`},
		{"WorkerWithoutURL", `{"id":"f","nodes":[{"id":"a","type":"WORKER","config":{}}]}`},
		{"DanglingEdge", `{"id":"f","nodes":[{"id":"a","type":"UX"}],
			"edges":[{"id":"e","source":"a","target":"b"}]}`},
		{"DuplicateEdge", `{"id":"f","nodes":[{"id":"a","type":"UX"},{"id":"b","type":"UX"}],
			"edges":[{"id":"e","source":"a","target":"b"},{"id":"e","source":"a","target":"b"}]}`},
		{"AmbiguousStart", `{"id":"f","nodes":[{"id":"a","type":"UX"},{"id":"b","type":"UX"}]}`},
		{"UnknownStart", `{"id":"f","startNodeId":"x","nodes":[{"id":"a","type":"UX"}]}`},
		{"LogicForeignEdge", `{"id":"f","nodes":[{"id":"a","type":"LOGIC",
			"config":{"defaultEdgeId":"nope"}}]}`},
		{"JumpWithoutTarget", `{"id":"f","nodes":[{"id":"a","type":"UX",
			"entityMovement":{"onSuccess":"jump"}}]}`},
		{"JumpToUnknownNode", `{"id":"f","nodes":[{"id":"a","type":"UX",
			"entityMovement":{"onSuccess":"jump","targetNodeId":"zz"}}]}`},
		{"UnknownMovement", `{"id":"f","nodes":[{"id":"a","type":"UX",
			"entityMovement":{"onSuccess":"teleport"}}]}`},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := BuildFlowFromDefinition(parseDefinition(suite.T(), tc.def))
			assert.Error(suite.T(), err)
		})
	}

	_, err := BuildFlowFromDefinition(nil)
	assert.Error(suite.T(), err)
}

func edgeIDs(edges []*model.Edge) []string {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}
