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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/waypoint/internal/entity"
	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/flow/flowmgt"
	"github.com/asgardeo/waypoint/internal/flow/jsonmodel"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/flow/store"
	"github.com/asgardeo/waypoint/internal/flow/webhook"
	"github.com/asgardeo/waypoint/internal/system/config"
	dbutils "github.com/asgardeo/waypoint/internal/system/database/utils"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
	"github.com/asgardeo/waypoint/tests/mocks/messagingmock"
	"github.com/asgardeo/waypoint/tests/mocks/webhookmock"
)

// fanFlow is Worker(A) -> Splitter(S) -> Worker(B) x N -> Collector(C) -> Worker(D).
const fanFlow = `{
  "id": "fan", "version": 1,
  "nodes": [
    {"id": "A", "type": "WORKER", "config": {"url": "http://worker/a"}},
    {"id": "S", "type": "SPLITTER"},
    {"id": "B", "type": "WORKER", "config": {"url": "http://worker/b", "input": {"prompt": "{{split.item}}"}}},
    {"id": "C", "type": "COLLECTOR"},
    {"id": "D", "type": "WORKER", "config": {"url": "http://worker/d", "input": {"results": "{{C}}"}},
      "entityMovement": {"onSuccess": "complete", "entityType": "customer"}}
  ],
  "edges": [
    {"id": "e1", "source": "A", "target": "S"},
    {"id": "e2", "source": "S", "target": "B"},
    {"id": "e3", "source": "B", "target": "C"},
    {"id": "e4", "source": "C", "target": "D"}
  ]
}`

// gateFlow is Worker(A) -> UX(U) -> Worker(D).
const gateFlow = `{
  "id": "gate", "version": 1,
  "nodes": [
    {"id": "A", "type": "WORKER", "config": {"url": "http://worker/a"}},
    {"id": "U", "type": "UX", "config": {"title": "Review", "input": {"draft": "{{A.text}}"}}},
    {"id": "D", "type": "WORKER", "config": {"url": "http://worker/d"}}
  ],
  "edges": [
    {"id": "e1", "source": "A", "target": "U"},
    {"id": "e2", "source": "U", "target": "D"}
  ]
}`

// logicFlow routes on the trigger score.
const logicFlow = `{
  "id": "logic", "version": 1,
  "nodes": [
    {"id": "L", "type": "LOGIC", "config": {
      "branches": [{"edgeId": "hot", "condition": "trigger.score > 50"}], "defaultEdgeId": "cold"}},
    {"id": "H", "type": "WORKER", "config": {"url": "http://worker/hot"}},
    {"id": "K", "type": "WORKER", "config": {"url": "http://worker/cold"}}
  ],
  "edges": [
    {"id": "hot", "source": "L", "target": "H"},
    {"id": "cold", "source": "L", "target": "K"}
  ]
}`

// nestedFlow fans out twice in a row.
const nestedFlow = `{
  "id": "nested", "version": 1,
  "nodes": [
    {"id": "S1", "type": "SPLITTER"},
    {"id": "S2", "type": "SPLITTER", "config": {"items": "{{split.item}}"}}
  ],
  "edges": [{"id": "e1", "source": "S1", "target": "S2"}]
}`

// bareFanFlow fans out into a worker without an input template, followed by a second branch worker.
const bareFanFlow = `{
  "id": "barefan", "version": 1,
  "nodes": [
    {"id": "A", "type": "WORKER", "config": {"url": "http://worker/a"}},
    {"id": "S", "type": "SPLITTER"},
    {"id": "B", "type": "WORKER", "config": {"url": "http://worker/b"}},
    {"id": "B2", "type": "WORKER", "config": {"url": "http://worker/b2"}},
    {"id": "C", "type": "COLLECTOR"}
  ],
  "edges": [
    {"id": "e1", "source": "A", "target": "S"},
    {"id": "e2", "source": "S", "target": "B"},
    {"id": "e3", "source": "B", "target": "B2"},
    {"id": "e4", "source": "B2", "target": "C"}
  ]
}`

// joinFlow is X -> {A, B} -> D with no collector in front of D.
const joinFlow = `{
  "id": "join", "version": 1,
  "nodes": [
    {"id": "X", "type": "WORKER", "config": {"url": "http://worker/x"}},
    {"id": "A", "type": "WORKER", "config": {"url": "http://worker/a"}},
    {"id": "B", "type": "WORKER", "config": {"url": "http://worker/b"}},
    {"id": "D", "type": "WORKER", "config": {"url": "http://worker/d"}}
  ],
  "edges": [
    {"id": "xa", "source": "X", "target": "A"},
    {"id": "xb", "source": "X", "target": "B"},
    {"id": "ad", "source": "A", "target": "D"},
    {"id": "bd", "source": "B", "target": "D"}
  ]
}`

type recordingMover struct {
	mu    sync.Mutex
	moves []entity.MoveCommand
}

func (m *recordingMover) ApplyMove(_ context.Context, cmd entity.MoveCommand) *serviceerror.ServiceError {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves = append(m.moves, cmd)
	return nil
}

func (m *recordingMover) recorded() []entity.MoveCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.MoveCommand(nil), m.moves...)
}

type EngineTestSuite struct {
	suite.Suite
	runs       store.RunStoreInterface
	dispatcher *webhookmock.MockDispatcher
	publisher  *messagingmock.MockPublisher
	mover      *recordingMover
	engine     *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	flows := flowmgt.NewFlowMgtService()
	for _, raw := range []string{fanFlow, gateFlow, logicFlow, nestedFlow, bareFanFlow, joinFlow} {
		var def jsonmodel.FlowDefinition
		require.NoError(suite.T(), json.Unmarshal([]byte(raw), &def))
		flow, err := flowmgt.BuildFlowFromDefinition(&def)
		require.NoError(suite.T(), err)
		flows.RegisterFlow(flow)
	}

	suite.runs = store.NewMemoryRunStore(dbutils.RetryPolicy{
		MaxRetries: 500, MaxElapsedTime: 10 * time.Second,
		InitialInterval: 100 * time.Microsecond, MaxInterval: time.Millisecond,
	})
	suite.dispatcher = &webhookmock.MockDispatcher{}
	suite.publisher = &messagingmock.MockPublisher{}
	suite.mover = &recordingMover{}
	suite.engine = NewEngine(Dependencies{
		Flows:         flows,
		Runs:          suite.runs,
		Dispatcher:    suite.dispatcher,
		Signer:        webhook.NewCallbackSigner("http://engine", ""),
		Mover:         suite.mover,
		Publisher:     suite.publisher,
		SubjectPrefix: "waypoint",
		Cache:         config.CacheConfig{ConditionPrograms: config.CacheProperty{Size: 10, TTL: 60}},
	})
}

func (suite *EngineTestSuite) start(flowID string, input any) *model.Run {
	run, svcErr := suite.engine.Start(context.Background(), StartRequest{FlowID: flowID, Input: input})
	require.Nil(suite.T(), svcErr)
	return run
}

func (suite *EngineTestSuite) done(runID, instanceID string, output any) *model.Run {
	run, svcErr := suite.engine.HandleCallback(context.Background(), runID, instanceID,
		webhook.InboundCallback{Status: webhook.CallbackStatusDone, Output: output})
	require.Nil(suite.T(), svcErr, "callback for %s", instanceID)
	return run
}

func (suite *EngineTestSuite) fail(runID, instanceID string, output any) *model.Run {
	run, svcErr := suite.engine.HandleCallback(context.Background(), runID, instanceID,
		webhook.InboundCallback{Status: webhook.CallbackStatusError, Output: output})
	require.Nil(suite.T(), svcErr)
	return run
}

// fanOut starts the fan flow and completes A with the given items.
func (suite *EngineTestSuite) fanOut(items ...any) *model.Run {
	if items == nil {
		items = []any{}
	}
	run := suite.start("fan", map[string]any{"topic": "cats"})
	return suite.done(run.ID, "A", map[string]any{"items": items})
}

func (suite *EngineTestSuite) TestStartDispatchesStartWorker() {
	run := suite.start("fan", map[string]any{"topic": "cats"})

	assert.Equal(suite.T(), constants.RunStatusRunning, run.Status)
	assert.Equal(suite.T(), constants.NodeStatusRunning, run.NodeStates["A"].Status)
	calls := suite.dispatcher.CallsFor("A")
	require.Len(suite.T(), calls, 1)
	assert.Equal(suite.T(), "http://worker/a", calls[0].URL)
	assert.Equal(suite.T(), run.ID, calls[0].Request.RunID)
	assert.Equal(suite.T(), map[string]any{"topic": "cats"}, calls[0].Request.Input)
	assert.Equal(suite.T(), "http://engine/callback/"+run.ID+"/A", calls[0].Request.CallbackURL)

	stored, svcErr := suite.engine.GetRun(context.Background(), run.ID)
	require.Nil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.RunStatusRunning, stored.Status)
	assert.Equal(suite.T(), constants.TriggerSourceAPI, stored.Trigger.Source)
}

func (suite *EngineTestSuite) TestFanOutDispatchesBranches() {
	run := suite.fanOut("x", "y", "z")

	assert.Equal(suite.T(), constants.NodeStatusCompleted, run.NodeStates["S"].Status)
	for i, item := range []string{"x", "y", "z"} {
		id := fmt.Sprintf("B_%d", i)
		state := run.NodeStates[id]
		require.NotNil(suite.T(), state, id)
		assert.Equal(suite.T(), constants.NodeStatusRunning, state.Status)
		require.NotNil(suite.T(), state.Branch)
		assert.Equal(suite.T(), i, state.Branch.Index)
		assert.Equal(suite.T(), 3, state.Branch.Total)

		calls := suite.dispatcher.CallsFor(id)
		require.Len(suite.T(), calls, 1)
		assert.Equal(suite.T(), map[string]any{"prompt": item, "item": item, "index": i, "total": 3},
			calls[0].Request.Input)
	}
	_, exists := run.NodeStates["C"]
	assert.False(suite.T(), exists, "the collector is reached by the first finished branch")
}

func (suite *EngineTestSuite) TestBranchInputIsOnlySplitContext() {
	run := suite.start("barefan", map[string]any{"topic": "cats"})
	run = suite.done(run.ID, "A", map[string]any{"items": []any{"x", "y"}})

	for i, item := range []string{"x", "y"} {
		id := fmt.Sprintf("B_%d", i)
		calls := suite.dispatcher.CallsFor(id)
		require.Len(suite.T(), calls, 1)
		assert.Equal(suite.T(), map[string]any{"item": item, "index": i, "total": 2}, calls[0].Request.Input)
		assert.Equal(suite.T(), calls[0].Request.Input, run.NodeStates[id].Input)
	}

	// Workers further down the branch get the upstream output plus the split context.
	suite.done(run.ID, "B_1", map[string]any{"summary": "s"})
	calls := suite.dispatcher.CallsFor("B2_1")
	require.Len(suite.T(), calls, 1)
	assert.Equal(suite.T(), map[string]any{"summary": "s", "item": "y", "index": 1, "total": 2},
		calls[0].Request.Input)
}

// Scenario A: branches complete in order [1,2,0]; the collector output follows index order and D fires once.
func (suite *EngineTestSuite) TestCollectorOutputFollowsIndexOrder() {
	run := suite.fanOut("x", "y", "z")
	for _, i := range []int{1, 2, 0} {
		run = suite.done(run.ID, fmt.Sprintf("B_%d", i), fmt.Sprintf("out(%s)", []string{"x", "y", "z"}[i]))
	}

	collector := run.NodeStates["C"]
	require.NotNil(suite.T(), collector)
	assert.Equal(suite.T(), constants.NodeStatusCompleted, collector.Status)
	assert.Equal(suite.T(), []any{"out(x)", "out(y)", "out(z)"}, collector.Output)

	calls := suite.dispatcher.CallsFor("D")
	require.Len(suite.T(), calls, 1)
	assert.Equal(suite.T(), map[string]any{"results": []any{"out(x)", "out(y)", "out(z)"}}, calls[0].Request.Input)

	run = suite.done(run.ID, "D", map[string]any{"ok": true})
	assert.Equal(suite.T(), constants.RunStatusCompleted, run.Status)
}

func (suite *EngineTestSuite) TestCollectorReverseArrival() {
	run := suite.fanOut(0, 1, 2, 3)
	for _, i := range []int{3, 2, 1} {
		run = suite.done(run.ID, fmt.Sprintf("B_%d", i), fmt.Sprintf("out%d", i))
		assert.Equal(suite.T(), constants.NodeStatusPending, run.NodeStates["C"].Status,
			"the collector waits for every branch")
	}
	assert.Empty(suite.T(), suite.dispatcher.CallsFor("D"))

	run = suite.done(run.ID, "B_0", "out0")
	assert.Equal(suite.T(), []any{"out0", "out1", "out2", "out3"}, run.NodeStates["C"].Output)
	assert.Len(suite.T(), suite.dispatcher.CallsFor("D"), 1)
}

func (suite *EngineTestSuite) TestDuplicateCallbackIsNoop() {
	run := suite.fanOut("x", "y")
	first := suite.done(run.ID, "B_1", "out(y)")
	second := suite.done(run.ID, "B_1", "out(y)")

	if diff := cmp.Diff(first, second); diff != "" {
		suite.T().Errorf("duplicate delivery changed the run (-first +second):\n%s", diff)
	}

	suite.done(run.ID, "B_0", "out(x)")
	suite.done(run.ID, "B_0", "out(x)")
	suite.done(run.ID, "B_1", "other")
	assert.Len(suite.T(), suite.dispatcher.CallsFor("D"), 1, "duplicates never re-fire downstream edges")

	final, svcErr := suite.engine.GetRun(context.Background(), run.ID)
	require.Nil(suite.T(), svcErr)
	assert.Equal(suite.T(), []any{"out(x)", "out(y)"}, final.NodeStates["C"].Output)
}

func (suite *EngineTestSuite) TestConcurrentBranchCallbacksLoseNoSlot() {
	const branches = 12
	items := make([]any, branches)
	for i := range items {
		items[i] = i
	}
	run := suite.fanOut(items...)

	var wg sync.WaitGroup
	for i := 0; i < branches; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, svcErr := suite.engine.HandleCallback(context.Background(), run.ID, fmt.Sprintf("B_%d", i),
				webhook.InboundCallback{Status: webhook.CallbackStatusDone, Output: fmt.Sprintf("out%d", i)})
			assert.Nil(suite.T(), svcErr)
		}(i)
	}
	wg.Wait()

	final, svcErr := suite.engine.GetRun(context.Background(), run.ID)
	require.Nil(suite.T(), svcErr)
	expected := make([]any, branches)
	for i := range expected {
		expected[i] = fmt.Sprintf("out%d", i)
	}
	assert.Equal(suite.T(), constants.NodeStatusCompleted, final.NodeStates["C"].Status)
	assert.Equal(suite.T(), expected, final.NodeStates["C"].Output)
	assert.Len(suite.T(), suite.dispatcher.CallsFor("D"), 1)
}

// Scenario C: a failing branch stops its own path only.
func (suite *EngineTestSuite) TestWorkerErrorHaltsPropagation() {
	run := suite.fanOut("x", "y", "z")
	run = suite.fail(run.ID, "B_1", map[string]any{"reason": "render failed"})

	assert.Equal(suite.T(), constants.RunStatusFailed, run.Status)
	assert.Equal(suite.T(), constants.NodeStatusFailed, run.NodeStates["B_1"].Status)
	assert.Equal(suite.T(), map[string]any{"reason": "render failed"}, run.NodeStates["B_1"].Error)
	assert.Equal(suite.T(), serviceerror.KindWorkerFailure, run.NodeStates["B_1"].ErrorKind)
	assert.Equal(suite.T(), constants.NodeStatusRunning, run.NodeStates["B_0"].Status)
	assert.Equal(suite.T(), constants.NodeStatusRunning, run.NodeStates["B_2"].Status)

	run = suite.done(run.ID, "B_0", "out(x)")
	run = suite.done(run.ID, "B_2", "out(z)")
	assert.Equal(suite.T(), constants.NodeStatusCompleted, run.NodeStates["B_0"].Status)
	assert.Equal(suite.T(), constants.NodeStatusCompleted, run.NodeStates["B_2"].Status)
	assert.Equal(suite.T(), constants.NodeStatusPending, run.NodeStates["C"].Status)
	assert.Empty(suite.T(), suite.dispatcher.CallsFor("D"))
	assert.Equal(suite.T(), constants.RunStatusFailed, run.Status)

	failed := 0
	for _, state := range run.NodeStates {
		if state.Status == constants.NodeStatusFailed {
			failed++
		}
	}
	assert.Equal(suite.T(), 1, failed)
}

func (suite *EngineTestSuite) TestEmptySplitterCompletesCollector() {
	run := suite.fanOut()

	assert.Equal(suite.T(), constants.NodeStatusCompleted, run.NodeStates["C"].Status)
	assert.Equal(suite.T(), []any{}, run.NodeStates["C"].Output)
	assert.Len(suite.T(), suite.dispatcher.CallsFor("D"), 1)
}

func (suite *EngineTestSuite) TestSplitterRejectsNonArray() {
	run := suite.start("fan", nil)
	run = suite.done(run.ID, "A", map[string]any{"items": "not a list"})

	assert.Equal(suite.T(), constants.NodeStatusFailed, run.NodeStates["S"].Status)
	assert.Equal(suite.T(), constants.RunStatusFailed, run.Status)
}

func (suite *EngineTestSuite) TestNestedFanOutFails() {
	run := suite.start("nested", map[string]any{"items": []any{[]any{1, 2}, []any{3}}})

	assert.Equal(suite.T(), constants.NodeStatusCompleted, run.NodeStates["S1"].Status)
	assert.Equal(suite.T(), constants.NodeStatusFailed, run.NodeStates["S2_0"].Status)
	assert.Equal(suite.T(), constants.NodeStatusFailed, run.NodeStates["S2_1"].Status)
	assert.Equal(suite.T(), serviceerror.KindValidation, run.NodeStates["S2_0"].ErrorKind)
	assert.Equal(suite.T(), constants.RunStatusFailed, run.Status)
}

func (suite *EngineTestSuite) TestHumanGate() {
	ctx := context.Background()
	run := suite.start("gate", nil)
	run = suite.done(run.ID, "A", map[string]any{"text": "hello"})

	assert.Equal(suite.T(), constants.RunStatusWaitingForUser, run.Status)
	assert.Equal(suite.T(), "U", run.CurrentUXNode)
	assert.Equal(suite.T(), constants.NodeStatusWaitingForUser, run.NodeStates["U"].Status)
	assert.Equal(suite.T(), map[string]any{"draft": "hello"}, run.NodeStates["U"].Input)
	assert.Empty(suite.T(), suite.dispatcher.CallsFor("U"), "human gates are never dispatched")

	_, svcErr := suite.engine.HandleCallback(ctx, run.ID, "U",
		webhook.InboundCallback{Status: webhook.CallbackStatusDone})
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorNodeNotAwaitingCallback.Code, svcErr.Code)

	run, svcErr = suite.engine.CompleteUX(ctx, run.ID, "U", map[string]any{"approved": true})
	require.Nil(suite.T(), svcErr)
	assert.Empty(suite.T(), run.CurrentUXNode)
	assert.Equal(suite.T(), constants.RunStatusRunning, run.Status)
	require.Len(suite.T(), suite.dispatcher.CallsFor("D"), 1)
	assert.Equal(suite.T(), map[string]any{"approved": true}, suite.dispatcher.CallsFor("D")[0].Request.Input)

	again, svcErr := suite.engine.CompleteUX(ctx, run.ID, "U", map[string]any{"approved": false})
	require.Nil(suite.T(), svcErr)
	assert.Equal(suite.T(), run.Version, again.Version)

	_, svcErr = suite.engine.CompleteUX(ctx, run.ID, "D", nil)
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorNodeNotAwaitingUser.Code, svcErr.Code)
}

func (suite *EngineTestSuite) TestLogicRouting() {
	hot := suite.start("logic", map[string]any{"score": 80})
	assert.Equal(suite.T(), "hot", hot.NodeStates["L"].Route)
	assert.Contains(suite.T(), hot.NodeStates, "H")
	assert.NotContains(suite.T(), hot.NodeStates, "K")

	cold := suite.start("logic", map[string]any{"score": 10})
	assert.Equal(suite.T(), "cold", cold.NodeStates["L"].Route)
	assert.Contains(suite.T(), cold.NodeStates, "K")
	assert.Equal(suite.T(), map[string]any{"score": 10}, suite.dispatcher.CallsFor("K")[0].Request.Input)
}

func (suite *EngineTestSuite) TestConvergenceOutsideCollectorEntersOnce() {
	run := suite.start("join", nil)
	run = suite.done(run.ID, "X", map[string]any{"lead": "l"})
	require.Len(suite.T(), suite.dispatcher.CallsFor("A"), 1)
	require.Len(suite.T(), suite.dispatcher.CallsFor("B"), 1)

	run = suite.done(run.ID, "A", map[string]any{"from": "A"})
	calls := suite.dispatcher.CallsFor("D")
	require.Len(suite.T(), calls, 1)
	assert.Equal(suite.T(), map[string]any{"from": "A"}, calls[0].Request.Input)

	// The second arrival at D is ignored.
	run = suite.done(run.ID, "B", map[string]any{"from": "B"})
	assert.Len(suite.T(), suite.dispatcher.CallsFor("D"), 1)
	assert.Equal(suite.T(), constants.NodeStatusCompleted, run.NodeStates["B"].Status)
	assert.Equal(suite.T(), constants.NodeStatusRunning, run.NodeStates["D"].Status)
	assert.Equal(suite.T(), constants.RunStatusRunning, run.Status)

	run = suite.done(run.ID, "D", map[string]any{"ok": true})
	assert.Equal(suite.T(), constants.RunStatusCompleted, run.Status)
	assert.Len(suite.T(), suite.dispatcher.CallsFor("D"), 1)
}

func (suite *EngineTestSuite) TestConditionEvaluator() {
	evaluator := newConditionEvaluator(config.CacheConfig{})
	globals := map[string]any{"nodes": map[string]any{"C": []any{1, 2, 3}}, "trigger": nil, "split": nil}

	ok, err := evaluator.evaluate("nodes.C.length > 2", globals)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	_, err = evaluator.evaluate("nodes.C.length >", globals)
	assert.Error(suite.T(), err)

	_, err = evaluator.evaluate("(function(){ while(true){} })()", globals)
	assert.ErrorContains(suite.T(), err, "timed out")

	_, err = evaluator.route(model.LogicConfig{}, []*model.Edge{{ID: "a"}, {ID: "b"}}, globals)
	assert.ErrorIs(suite.T(), err, errNoRoute)
	edgeID, err := evaluator.route(model.LogicConfig{}, []*model.Edge{{ID: "only"}}, globals)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "only", edgeID)
}

func (suite *EngineTestSuite) TestDispatchFailureMarksInstanceFailed() {
	suite.dispatcher.MockDispatch = func(url string, req webhook.OutboundRequest) error {
		return &webhook.DispatchError{URL: url, StatusCode: 503, Body: "unavailable"}
	}

	run := suite.start("fan", nil)
	assert.Equal(suite.T(), constants.NodeStatusFailed, run.NodeStates["A"].Status)
	assert.Equal(suite.T(), constants.RunStatusFailed, run.Status)
	assert.Equal(suite.T(), 503, run.NodeStates["A"].Error.(map[string]any)["statusCode"])
	assert.Equal(suite.T(), serviceerror.KindWorkerFailure, run.NodeStates["A"].ErrorKind)
	assert.Len(suite.T(), suite.dispatcher.CallsFor("A"), 1, "dispatches are never retried")
}

func (suite *EngineTestSuite) TestLateCallbackForFailedRunIsAccepted() {
	run := suite.fanOut("x", "y")
	suite.fail(run.ID, "B_0", "boom")

	run = suite.done(run.ID, "B_1", "out(y)")
	assert.Equal(suite.T(), constants.NodeStatusCompleted, run.NodeStates["B_1"].Status)
	assert.Equal(suite.T(), constants.RunStatusFailed, run.Status)
}

func (suite *EngineTestSuite) TestEntityMovesOnMainPathOnly() {
	run, svcErr := suite.engine.Start(context.Background(), StartRequest{FlowID: "fan", EntityID: "ent-1"})
	require.Nil(suite.T(), svcErr)
	run = suite.done(run.ID, "A", map[string]any{"items": []any{"x", "y"}})

	moves := suite.mover.recorded()
	require.Len(suite.T(), moves, 2)
	assert.Equal(suite.T(), entity.MoveCommand{EntityID: "ent-1", RunID: run.ID, NodeID: "A",
		Action: entity.MoveAdvance, EdgeID: "e1", ToNodeID: "S"}, moves[0])
	assert.Equal(suite.T(), "S", moves[1].NodeID)
	assert.Equal(suite.T(), "e2", moves[1].EdgeID)

	suite.done(run.ID, "B_0", "x")
	suite.done(run.ID, "B_1", "y")
	moves = suite.mover.recorded()
	require.Len(suite.T(), moves, 3, "fanned instances never move the entity")
	assert.Equal(suite.T(), "C", moves[2].NodeID)

	suite.done(run.ID, "D", nil)
	moves = suite.mover.recorded()
	require.Len(suite.T(), moves, 4)
	assert.Equal(suite.T(), entity.MoveComplete, moves[3].Action)
	assert.Equal(suite.T(), "customer", moves[3].EntityType)
}

func (suite *EngineTestSuite) TestPublishesNodeEvents() {
	run := suite.start("gate", nil)

	calls := suite.publisher.Calls()
	require.NotEmpty(suite.T(), calls)
	assert.Equal(suite.T(), "waypoint.run."+run.ID+".node", calls[0].Subject)
	event, ok := calls[0].Payload.(model.NodeEvent)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "A", event.InstanceID)
	assert.Equal(suite.T(), constants.NodeStatusRunning, event.Status)
	assert.Equal(suite.T(), constants.RunStatusRunning, event.RunStatus)
}

func (suite *EngineTestSuite) TestErrors() {
	ctx := context.Background()

	_, svcErr := suite.engine.Start(ctx, StartRequest{FlowID: "missing"})
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorFlowNotFound.Code, svcErr.Code)

	_, svcErr = suite.engine.Start(ctx, StartRequest{FlowID: "fan", StartNodeID: "nope"})
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorInvalidStartNode.Code, svcErr.Code)

	_, svcErr = suite.engine.GetRun(ctx, "missing")
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), serviceerror.KindNotFound, svcErr.Kind)

	run := suite.start("fan", nil)
	_, svcErr = suite.engine.HandleCallback(ctx, run.ID, "B_7",
		webhook.InboundCallback{Status: webhook.CallbackStatusDone})
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorNodeInstanceNotFound.Code, svcErr.Code)

	_, svcErr = suite.engine.HandleCallback(ctx, run.ID, "A", webhook.InboundCallback{Status: "maybe"})
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorInvalidCallbackStatus.Code, svcErr.Code)
}

type failingRunStore struct {
	store.RunStoreInterface
}

func (f failingRunStore) CreateRun(context.Context, *model.Run) error {
	return errors.New("disk full")
}

func (suite *EngineTestSuite) TestStoreFailure() {
	suite.engine.runs = failingRunStore{suite.runs}
	_, svcErr := suite.engine.Start(context.Background(), StartRequest{FlowID: "fan"})
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorRunStoreFailure.Code, svcErr.Code)
	assert.Empty(suite.T(), suite.dispatcher.Calls(), "nothing fires for a run that was not persisted")
}
