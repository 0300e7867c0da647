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

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/system/database/provider"
	dbutils "github.com/asgardeo/waypoint/internal/system/database/utils"
	"github.com/asgardeo/waypoint/internal/system/log"
)

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// dbRunStore persists runs as JSON documents in the runtime database.
type dbRunStore struct {
	dbProvider provider.DBProviderInterface
	policy     dbutils.RetryPolicy
}

// NewDBRunStore creates a run store backed by the runtime database.
func NewDBRunStore(dbProvider provider.DBProviderInterface, policy dbutils.RetryPolicy) RunStoreInterface {
	return &dbRunStore{dbProvider: dbProvider, policy: policy}
}

// CreateRun persists a new run at version 1.
func (s *dbRunStore) CreateRun(ctx context.Context, run *model.Run) error {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName),
		log.String(log.LoggerKeyRunID, run.ID))

	dbClient, err := s.dbProvider.GetDBClient(provider.RuntimeDB)
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return fmt.Errorf("failed to get database client: %w", err)
	}

	run.Version = 1
	doc, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	_, err = dbClient.Execute(ctx, QueryCreateRun, run.ID, run.FlowID, run.FlowVersion, string(run.Status),
		dbutils.NullableString(run.EntityID), string(doc), run.Version)
	if err != nil {
		logger.Error("Failed to create run", log.Error(err))
		return fmt.Errorf("failed to create run: %w", err)
	}
	logger.Debug("Run created", log.String(log.LoggerKeyFlowID, run.FlowID))
	return nil
}

// GetRun returns the latest persisted run.
func (s *dbRunStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName),
		log.String(log.LoggerKeyRunID, runID))

	dbClient, err := s.dbProvider.GetDBClient(provider.RuntimeDB)
	if err != nil {
		logger.Error("Failed to get database client", log.Error(err))
		return nil, fmt.Errorf("failed to get database client: %w", err)
	}

	results, err := dbClient.Query(ctx, QueryGetRun, runID)
	if err != nil {
		logger.Error("Failed to execute query", log.Error(err))
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrRunNotFound
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("unexpected number of results: %d", len(results))
	}
	return buildRunFromResultRow(results[0])
}

// UpdateRun atomically applies mutate to the latest run.
func (s *dbRunStore) UpdateRun(ctx context.Context, runID string, mutate MutateFunc) (*model.Run, error) {
	return updateRun(ctx, s, s.policy, runID, mutate)
}

func (s *dbRunStore) swap(ctx context.Context, run *model.Run, expectedVersion int64) error {
	dbClient, err := s.dbProvider.GetDBClient(provider.RuntimeDB)
	if err != nil {
		return fmt.Errorf("failed to get database client: %w", err)
	}

	doc, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	affected, err := dbClient.Execute(ctx, QueryUpdateRun, string(run.Status), dbutils.NullableString(run.EntityID), string(doc),
		run.Version, run.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if affected == 0 {
		log.GetLogger().Debug("Run version moved on, retrying update",
			log.String(log.LoggerKeyComponentName, loggerComponentName), log.String(log.LoggerKeyRunID, run.ID),
			log.Int64("expectedVersion", expectedVersion))
		return ErrConcurrencyConflict
	}
	return nil
}

// buildRunFromResultRow decodes a run row. The version column is authoritative over the document.
func buildRunFromResultRow(row map[string]interface{}) (*model.Run, error) {
	doc, err := dbutils.ColumnBytes(row, "run_doc")
	if err != nil {
		return nil, err
	}
	var run model.Run
	if err := json.Unmarshal(doc, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run document: %w", err)
	}
	version, err := dbutils.ColumnInt64(row, "version")
	if err != nil {
		return nil, err
	}
	run.Version = version
	if run.NodeStates == nil {
		run.NodeStates = make(map[string]*model.NodeState)
	}
	if run.Collectors == nil {
		run.Collectors = make(map[string]*model.CollectorState)
	}
	return &run, nil
}
