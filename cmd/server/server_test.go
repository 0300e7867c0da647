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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/waypoint/internal/entity"
	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/flow/webhook"
	"github.com/asgardeo/waypoint/internal/ingest"
	"github.com/asgardeo/waypoint/internal/system/config"
	"github.com/asgardeo/waypoint/internal/system/log"
)

const e2eFlow = `{
  "id": "fanout", "version": 1, "startNodeId": "intake",
  "nodes": [
    {"id": "intake", "type": "UX"},
    {"id": "S", "type": "SPLITTER"},
    {"id": "B", "type": "WORKER", "config": {"url": "%[1]s/render"}},
    {"id": "C", "type": "COLLECTOR"},
    {"id": "D", "type": "WORKER", "config": {"url": "%[1]s/publish", "input": {"results": "{{C}}"}},
      "entityMovement": {"onSuccess": "complete", "entityType": "customer"}}
  ],
  "edges": [
    {"id": "entry_edge", "source": "intake", "target": "S"},
    {"id": "e2", "source": "S", "target": "B"},
    {"id": "e3", "source": "B", "target": "C"},
    {"id": "e4", "source": "C", "target": "D"}
  ]
}`

// ServerTestSuite runs the wired server in process against a worker that calls back asynchronously.
type ServerTestSuite struct {
	suite.Suite
	server   *httptest.Server
	worker   *httptest.Server
	services *runningServices
	client   *http.Client
	wg       sync.WaitGroup
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (suite *ServerTestSuite) SetupSuite() {
	suite.client = &http.Client{Timeout: 5 * time.Second}
	suite.worker = httptest.NewServer(http.HandlerFunc(suite.handleWork))

	var mux *http.ServeMux
	suite.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
	}))

	home := suite.T().TempDir()
	graphs := filepath.Join(home, "graphs")
	require.NoError(suite.T(), os.MkdirAll(graphs, 0o750))
	require.NoError(suite.T(), os.WriteFile(filepath.Join(graphs, "fanout.json"),
		[]byte(fmt.Sprintf(e2eFlow, suite.worker.URL)), 0o600))

	cfg := &config.Config{
		Server:   config.ServerConfig{PublicURL: suite.server.URL},
		Database: config.DatabaseConfig{Runtime: config.DataSource{Type: "memory"}},
		Flow:     config.FlowConfig{GraphDirectory: "graphs"},
		Webhook:  config.WebhookConfig{Timeout: 5, CallbackSecret: "e2e-secret"},
		Ingest: config.IngestConfig{Webhooks: []config.IngestWebhook{{
			Source: "form", Slug: "test-slug", WorkflowID: "fanout", EntryEdgeID: "entry_edge",
			EntityMapping: map[string]string{"name": "name", "email": "email"},
		}}},
	}
	config.ResetServerRuntime()
	require.NoError(suite.T(), config.InitializeServerRuntime(home, cfg))

	mux = http.NewServeMux()
	suite.services = registerServices(context.Background(), mux, cfg)
}

func (suite *ServerTestSuite) TearDownSuite() {
	suite.wg.Wait()
	suite.server.Close()
	suite.worker.Close()
	suite.services.close(log.GetLogger())
	config.ResetServerRuntime()
}

// handleWork acknowledges a dispatch and calls back later. Lower branch indexes answer last.
func (suite *ServerTestSuite) handleWork(w http.ResponseWriter, r *http.Request) {
	var req webhook.OutboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	input, _ := req.Input.(map[string]any)
	delay := 0
	var output any = map[string]any{"published": true}
	if r.URL.Path == "/render" {
		index, _ := input["index"].(float64)
		total, _ := input["total"].(float64)
		delay = int(total-index) * 20
		output = fmt.Sprintf("out(%v)", input["item"])
	}

	suite.wg.Add(1)
	go func() {
		defer suite.wg.Done()
		time.Sleep(time.Duration(delay) * time.Millisecond)
		body, _ := json.Marshal(webhook.InboundCallback{Status: webhook.CallbackStatusDone, Output: output})
		resp, err := suite.client.Post(req.CallbackURL, "application/json", bytes.NewReader(body))
		if err == nil {
			_ = resp.Body.Close()
		}
	}()
}

func (suite *ServerTestSuite) postJSON(path, body string) *http.Response {
	resp, err := suite.client.Post(suite.server.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(suite.T(), err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (suite *ServerTestSuite) waitForRun(runID string, status constants.RunStatus) model.Run {
	var run model.Run
	require.Eventually(suite.T(), func() bool {
		resp, err := suite.client.Get(suite.server.URL + "/status/" + runID)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		run = decodeBody[model.Run](suite.T(), resp)
		return run.Status == status
	}, 5*time.Second, 20*time.Millisecond)
	return run
}

func (suite *ServerTestSuite) TestFanOutRunCompletesInIndexOrder() {
	resp := suite.postJSON("/start/fanout", `{"input": {"items": ["a", "b", "c", "d"]}, "startNodeId": "S"}`)
	require.Equal(suite.T(), http.StatusAccepted, resp.StatusCode)
	started := decodeBody[map[string]any](suite.T(), resp)
	runID, _ := started["runId"].(string)
	require.NotEmpty(suite.T(), runID)

	run := suite.waitForRun(runID, constants.RunStatusCompleted)
	assert.Equal(suite.T(), []any{"out(a)", "out(b)", "out(c)", "out(d)"}, run.NodeStates["C"].Output)
	assert.Equal(suite.T(), map[string]any{"results": []any{"out(a)", "out(b)", "out(c)", "out(d)"}},
		run.NodeStates["D"].Input)
}

func (suite *ServerTestSuite) TestUnsignedCallbackIsRejected() {
	resp := suite.postJSON("/callback/some-run/B_0", `{"status": "done"}`)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
}

func (suite *ServerTestSuite) TestIngestedEntityFollowsRun() {
	payload := `{"name": "Ghost", "email": "ghost@x.io", "items": ["x"]}`
	resp := suite.postJSON("/ingest/test-slug", payload)
	require.Equal(suite.T(), http.StatusAccepted, resp.StatusCode)
	first := decodeBody[ingest.IngestResult](suite.T(), resp)
	assert.True(suite.T(), first.EntityCreated)

	suite.waitForRun(first.RunID, constants.RunStatusCompleted)

	resp, err := suite.client.Get(suite.server.URL + "/entities/" + first.EntityID)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	ent := decodeBody[entity.Entity](suite.T(), resp)
	assert.Equal(suite.T(), entity.StatusCompleted, ent.Status)
	assert.Equal(suite.T(), "customer", ent.EntityType)

	resp = suite.postJSON("/ingest/test-slug", payload)
	second := decodeBody[ingest.IngestResult](suite.T(), resp)
	assert.Equal(suite.T(), first.EntityID, second.EntityID)
	assert.False(suite.T(), second.EntityCreated)
	suite.waitForRun(second.RunID, constants.RunStatusCompleted)
}

func (suite *ServerTestSuite) TestHealth() {
	for _, path := range []string{"/health/liveness", "/health/readiness"} {
		resp, err := suite.client.Get(suite.server.URL + path)
		require.NoError(suite.T(), err)
		_ = resp.Body.Close()
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode, path)
	}
}
