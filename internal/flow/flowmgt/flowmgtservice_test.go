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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/waypoint/internal/system/config"
)

type FlowMgtServiceTestSuite struct {
	suite.Suite
	home string
}

func TestFlowMgtServiceSuite(t *testing.T) {
	suite.Run(t, new(FlowMgtServiceTestSuite))
}

func (suite *FlowMgtServiceTestSuite) SetupTest() {
	suite.home = suite.T().TempDir()
	config.ResetServerRuntime()
	cfg := &config.Config{Flow: config.FlowConfig{GraphDirectory: "flows"}}
	require.NoError(suite.T(), config.InitializeServerRuntime(suite.home, cfg))
}

func (suite *FlowMgtServiceTestSuite) TearDownTest() {
	config.ResetServerRuntime()
}

func (suite *FlowMgtServiceTestSuite) writeFlow(name, content string) {
	dir := filepath.Join(suite.home, "flows")
	require.NoError(suite.T(), os.MkdirAll(dir, 0o750))
	require.NoError(suite.T(), os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func (suite *FlowMgtServiceTestSuite) TestInitLoadsVersions() {
	suite.writeFlow("render.json", fanFlowJSON)
	suite.writeFlow("render-v1.json", `{"id":"render","version":1,"nodes":[{"id":"A","type":"UX"}]}`)
	suite.writeFlow("broken.json", `{"id":`)
	suite.writeFlow("invalid.json", `{"id":"bad","nodes":[{"id":"a","type":"TIMER"}]}`)
	suite.writeFlow("notes.txt", "ignored")

	svc := NewFlowMgtService()
	require.NoError(suite.T(), svc.Init())

	latest, ok := svc.GetFlow("render")
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), 2, latest.Version)

	v1, ok := svc.GetFlowVersion("render", 1)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "A", v1.StartNodeID)

	_, ok = svc.GetFlowVersion("render", 3)
	assert.False(suite.T(), ok)
	_, ok = svc.GetFlow("bad")
	assert.False(suite.T(), ok)
}

func (suite *FlowMgtServiceTestSuite) TestInitMissingDirectory() {
	svc := NewFlowMgtService()
	assert.NoError(suite.T(), svc.Init())
	_, ok := svc.GetFlow("render")
	assert.False(suite.T(), ok)
}

func (suite *FlowMgtServiceTestSuite) TestRegisteredVersionIsNeverReplaced() {
	svc := NewFlowMgtService()
	first, err := BuildFlowFromDefinition(parseDefinition(suite.T(), fanFlowJSON))
	require.NoError(suite.T(), err)
	second, err := BuildFlowFromDefinition(parseDefinition(suite.T(), fanFlowJSON))
	require.NoError(suite.T(), err)

	svc.RegisterFlow(first)
	svc.RegisterFlow(second)

	got, _ := svc.GetFlowVersion("render", 2)
	assert.Same(suite.T(), first, got)
}
