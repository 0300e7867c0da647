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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/waypoint/internal/entity/constants"
	dbutils "github.com/asgardeo/waypoint/internal/system/database/utils"
	"github.com/asgardeo/waypoint/tests/mocks/messagingmock"
)

func strPtr(s string) *string { return &s }

func testPolicy() dbutils.RetryPolicy {
	return dbutils.RetryPolicy{
		MaxRetries:      200,
		MaxElapsedTime:  10 * time.Second,
		InitialInterval: 100 * time.Microsecond,
		MaxInterval:     time.Millisecond,
	}
}

type EntityServiceTestSuite struct {
	suite.Suite
	store     EntityStoreInterface
	publisher *messagingmock.MockPublisher
	service   EntityServiceInterface
}

func TestEntityServiceSuite(t *testing.T) {
	suite.Run(t, new(EntityServiceTestSuite))
}

func (suite *EntityServiceTestSuite) SetupTest() {
	suite.store = NewMemoryEntityStore(testPolicy())
	suite.publisher = &messagingmock.MockPublisher{}
	suite.service = NewEntityService(suite.store, suite.publisher, "waypoint")
}

func (suite *EntityServiceTestSuite) place(email string) *Entity {
	entity, _, svcErr := suite.service.PlaceOnEdge(context.Background(), PlacementRequest{
		CanvasID:          "flow-1",
		Name:              strPtr("Ghost"),
		Email:             strPtr(email),
		EmailKey:          email,
		EdgeID:            "entry",
		DestinationNodeID: "A",
	})
	require.Nil(suite.T(), svcErr)
	return entity
}

func (suite *EntityServiceTestSuite) TestPlaceOnEdgeFindsByEmail() {
	first := suite.place("ghost@x.io")
	second := suite.place("ghost@x.io")

	assert.Equal(suite.T(), first.ID, second.ID)
	assert.Equal(suite.T(), StatusTraveling, second.Status)
	assert.Equal(suite.T(), "entry", second.CurrentEdgeID)
	assert.Zero(suite.T(), second.EdgeProgress)
	require.Len(suite.T(), second.Journey, 2)
	assert.Equal(suite.T(), JourneyEventSpawned, second.Journey[0].Type)
	assert.Equal(suite.T(), JourneyEventStartedEdge, second.Journey[1].Type)

	calls := suite.publisher.Calls()
	require.Len(suite.T(), calls, 2)
	assert.Equal(suite.T(), "waypoint.entity."+first.ID+".journey", calls[0].Subject)
}

func (suite *EntityServiceTestSuite) TestPlaceOnEdgeConcurrentCreatesOnce() {
	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = suite.place("same@x.io").ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(suite.T(), ids[0], id)
	}
}

func (suite *EntityServiceTestSuite) TestPlaceOnEdgeWithoutEmailAlwaysCreates() {
	first := suite.place("")
	second := suite.place("")
	assert.NotEqual(suite.T(), first.ID, second.ID)
}

func (suite *EntityServiceTestSuite) TestPlaceOnEdgeRequiresDestination() {
	_, _, svcErr := suite.service.PlaceOnEdge(context.Background(), PlacementRequest{EdgeID: "entry"})
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorInvalidPlacement.Code, svcErr.Code)
}

func (suite *EntityServiceTestSuite) TestApplyMoveAfterCompleteIsNoop() {
	ctx := context.Background()
	entity := suite.place("done@x.io")

	svcErr := suite.service.ApplyMove(ctx, MoveCommand{
		EntityID: entity.ID, RunID: "r1", NodeID: "D", Action: MoveComplete, EntityType: "customer",
	})
	require.Nil(suite.T(), svcErr)
	completed, svcErr := suite.service.GetEntity(ctx, entity.ID)
	require.Nil(suite.T(), svcErr)
	assert.Equal(suite.T(), StatusCompleted, completed.Status)
	assert.Equal(suite.T(), "customer", completed.EntityType)
	require.NotNil(suite.T(), completed.CompletedAt)

	publishedBefore := len(suite.publisher.Calls())
	for _, cmd := range []MoveCommand{
		{EntityID: entity.ID, NodeID: "D", Action: MoveAdvance, EdgeID: "e-DX", ToNodeID: "X"},
		{EntityID: entity.ID, NodeID: "D", Action: MoveJump, ToNodeID: "A"},
		{EntityID: entity.ID, NodeID: "X", Action: MoveComplete, EntityType: "other"},
	} {
		assert.Nil(suite.T(), suite.service.ApplyMove(ctx, cmd))
	}

	after, svcErr := suite.service.GetEntity(ctx, entity.ID)
	require.Nil(suite.T(), svcErr)
	assert.Equal(suite.T(), completed, after)
	assert.Len(suite.T(), suite.publisher.Calls(), publishedBefore)
}

func (suite *EntityServiceTestSuite) TestArriveAndProgress() {
	ctx := context.Background()
	entity := suite.place("walker@x.io")

	moving, svcErr := suite.service.SetProgress(ctx, entity.ID, 0.5)
	require.Nil(suite.T(), svcErr)
	assert.InDelta(suite.T(), 0.5, moving.EdgeProgress, 1e-9)

	arrived, svcErr := suite.service.Arrive(ctx, entity.ID, "entry")
	require.Nil(suite.T(), svcErr)
	assert.Equal(suite.T(), "A", arrived.CurrentNodeID)

	again, svcErr := suite.service.Arrive(ctx, entity.ID, "entry")
	require.Nil(suite.T(), svcErr)
	assert.Equal(suite.T(), arrived.Version, again.Version)

	_, svcErr = suite.service.SetProgress(ctx, entity.ID, 0.1)
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorEntityNotTraveling.Code, svcErr.Code)
}

func (suite *EntityServiceTestSuite) TestUnknownEntity() {
	_, svcErr := suite.service.GetEntity(context.Background(), "missing")
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorEntityNotFound.Code, svcErr.Code)

	svcErr = suite.service.ApplyMove(context.Background(), MoveCommand{EntityID: "missing", Action: MoveStay})
	require.NotNil(suite.T(), svcErr)
	assert.Equal(suite.T(), constants.ErrorEntityNotFound.Code, svcErr.Code)
}
