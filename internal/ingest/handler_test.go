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

package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/waypoint/internal/ingest/constants"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
)

type ingestServiceStub struct {
	ingest func(slug string, payload []byte) (*IngestResult, *serviceerror.ServiceError)
}

func (s *ingestServiceStub) Ingest(_ context.Context, slug string,
	payload []byte) (*IngestResult, *serviceerror.ServiceError) {
	return s.ingest(slug, payload)
}

type IngestHandlerTestSuite struct {
	suite.Suite
	stub *ingestServiceStub
	mux  *http.ServeMux
}

func TestIngestHandlerSuite(t *testing.T) {
	suite.Run(t, new(IngestHandlerTestSuite))
}

func (suite *IngestHandlerTestSuite) SetupTest() {
	suite.stub = &ingestServiceStub{}
	suite.mux = http.NewServeMux()
	registerRoutes(suite.mux, newIngestHandler(suite.stub))
}

func (suite *IngestHandlerTestSuite) TestAcceptsRawPayload() {
	var gotSlug, gotPayload string
	suite.stub.ingest = func(slug string, payload []byte) (*IngestResult, *serviceerror.ServiceError) {
		gotSlug, gotPayload = slug, string(payload)
		return &IngestResult{EntityID: "ent-1", EntityCreated: true, RunID: "run-1", RunStatus: "RUNNING"}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/ingest/test-slug", strings.NewReader("name=Ghost"))
	rec := httptest.NewRecorder()
	suite.mux.ServeHTTP(rec, req)

	assert.Equal(suite.T(), http.StatusAccepted, rec.Code)
	assert.Equal(suite.T(), "test-slug", gotSlug)
	assert.Equal(suite.T(), "name=Ghost", gotPayload)
	var result IngestResult
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(suite.T(), "ent-1", result.EntityID)
	assert.True(suite.T(), result.EntityCreated)
}

func (suite *IngestHandlerTestSuite) TestUnknownSlugIs404() {
	suite.stub.ingest = func(string, []byte) (*IngestResult, *serviceerror.ServiceError) {
		return nil, &constants.ErrorUnknownSlug
	}

	req := httptest.NewRequest(http.MethodPost, "/ingest/nope", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	suite.mux.ServeHTTP(rec, req)

	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), constants.ErrorUnknownSlug.Code)
}
