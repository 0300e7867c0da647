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
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/asgardeo/waypoint/internal/system/database/client"
	dbmodel "github.com/asgardeo/waypoint/internal/system/database/model"
	"github.com/asgardeo/waypoint/tests/mocks/databasemock"
)

type DBEntityStoreTestSuite struct {
	suite.Suite
	dbClient *databasemock.MockDBClient
	store    EntityStoreInterface
}

func TestDBEntityStoreSuite(t *testing.T) {
	suite.Run(t, new(DBEntityStoreTestSuite))
}

func (suite *DBEntityStoreTestSuite) SetupTest() {
	suite.dbClient = &databasemock.MockDBClient{}
	suite.store = NewDBEntityStore(&databasemock.MockDBProvider{Client: suite.dbClient}, testPolicy())
}

func (suite *DBEntityStoreTestSuite) storedEntity() *Entity {
	e := &Entity{ID: "e1", CanvasID: "flow-1", Version: 2}
	require.NoError(suite.T(), Spawn(e, "entry", "", "A", time.Now().UTC()))
	return e
}

func (suite *DBEntityStoreTestSuite) mockRows(e *Entity) {
	doc, err := encodeEntityDoc(e)
	require.NoError(suite.T(), err)
	suite.dbClient.MockQuery = func(query dbmodel.DBQuery, args ...interface{}) ([]map[string]interface{}, error) {
		switch query.ID {
		case QueryGetEntity.ID, QueryGetEntityByEmail.ID:
			return []map[string]interface{}{{"entity_id": e.ID, "entity_doc": doc, "version": e.Version}}, nil
		case QueryGetJourney.ID:
			rows := make([]map[string]interface{}, 0, len(e.Journey))
			for _, event := range e.Journey {
				eventDoc, _ := json.Marshal(event)
				rows = append(rows, map[string]interface{}{"seq": event.Sequence, "event_doc": eventDoc})
			}
			return rows, nil
		}
		return nil, errors.New("unexpected query " + query.ID)
	}
}

func (suite *DBEntityStoreTestSuite) TestGetEntityLoadsJourney() {
	stored := suite.storedEntity()
	suite.mockRows(stored)

	got, err := suite.store.GetEntity(context.Background(), "e1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), got.Version)
	require.Len(suite.T(), got.Journey, 1)
	assert.Equal(suite.T(), JourneyEventSpawned, got.Journey[0].Type)
}

func (suite *DBEntityStoreTestSuite) TestGetEntityNotFound() {
	_, err := suite.store.GetEntity(context.Background(), "missing")
	assert.ErrorIs(suite.T(), err, ErrEntityNotFound)
}

func (suite *DBEntityStoreTestSuite) TestUpdateAppendsOnlyNewEvents() {
	suite.mockRows(suite.storedEntity())
	tx := &databasemock.MockTx{}
	suite.dbClient.MockBeginTx = func() (client.TransactionInterface, error) { return tx, nil }

	updated, err := suite.store.UpdateEntity(context.Background(), "e1", func(e *Entity) error {
		_, err := Arrive(e, "entry", time.Now().UTC())
		return err
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), updated.Version)

	require.Len(suite.T(), tx.ExecuteCalls, 2)
	assert.Equal(suite.T(), QueryUpdateEntity.ID, tx.ExecuteCalls[0].Query.ID)
	assert.Equal(suite.T(), int64(2), tx.ExecuteCalls[0].Args[4])
	assert.Equal(suite.T(), QueryInsertJourneyEvent.ID, tx.ExecuteCalls[1].Query.ID)
	assert.Equal(suite.T(), int64(2), tx.ExecuteCalls[1].Args[1])
	assert.Equal(suite.T(), string(JourneyEventArrived), tx.ExecuteCalls[1].Args[2])
	assert.True(suite.T(), tx.Committed)
}

func (suite *DBEntityStoreTestSuite) TestUpdateConflictRollsBack() {
	suite.mockRows(suite.storedEntity())
	var txs []*databasemock.MockTx
	suite.dbClient.MockBeginTx = func() (client.TransactionInterface, error) {
		tx := &databasemock.MockTx{}
		if len(txs) == 0 {
			tx.MockExecute = func(query dbmodel.DBQuery, args ...interface{}) (int64, error) { return 0, nil }
		}
		txs = append(txs, tx)
		return tx, nil
	}

	_, err := suite.store.UpdateEntity(context.Background(), "e1", func(e *Entity) error {
		return SetProgress(e, 0.3)
	})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), txs, 2)
	assert.True(suite.T(), txs[0].RolledBack)
	assert.False(suite.T(), txs[0].Committed)
	assert.True(suite.T(), txs[1].Committed)
}

func (suite *DBEntityStoreTestSuite) TestFindOrCreateReturnsExisting() {
	suite.mockRows(suite.storedEntity())

	got, created, err := suite.store.FindOrCreateByEmail(context.Background(), "flow-1", "ghost@x.io",
		func() (*Entity, error) {
			suite.Fail("create must not be called for an existing email")
			return nil, nil
		})
	require.NoError(suite.T(), err)
	assert.False(suite.T(), created)
	assert.Equal(suite.T(), "e1", got.ID)
}

func (suite *DBEntityStoreTestSuite) TestFindOrCreateInsertsEntityAndJourney() {
	tx := &databasemock.MockTx{}
	suite.dbClient.MockBeginTx = func() (client.TransactionInterface, error) { return tx, nil }

	got, created, err := suite.store.FindOrCreateByEmail(context.Background(), "flow-1", "new@x.io",
		func() (*Entity, error) {
			e := &Entity{ID: "e2"}
			return e, Spawn(e, "entry", "", "A", time.Now().UTC())
		})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), created)
	assert.Equal(suite.T(), "flow-1", got.CanvasID)
	assert.Equal(suite.T(), int64(1), got.Version)

	require.Len(suite.T(), tx.ExecuteCalls, 2)
	assert.Equal(suite.T(), QueryCreateEntity.ID, tx.ExecuteCalls[0].Query.ID)
	assert.Equal(suite.T(), "new@x.io", tx.ExecuteCalls[0].Args[2])
	assert.Equal(suite.T(), QueryInsertJourneyEvent.ID, tx.ExecuteCalls[1].Query.ID)
	assert.True(suite.T(), tx.Committed)
}
