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
	"fmt"

	"github.com/asgardeo/waypoint/internal/system/database/client"
	"github.com/asgardeo/waypoint/internal/system/database/provider"
	dbutils "github.com/asgardeo/waypoint/internal/system/database/utils"
	"github.com/asgardeo/waypoint/internal/system/log"
)

// dbEntityStore persists entities in the ENTITY table and journeys in ENTITY_JOURNEY_EVENT.
type dbEntityStore struct {
	dbProvider provider.DBProviderInterface
	policy     dbutils.RetryPolicy
}

// NewDBEntityStore creates an entity store backed by the runtime database.
func NewDBEntityStore(dbProvider provider.DBProviderInterface, policy dbutils.RetryPolicy) EntityStoreInterface {
	return &dbEntityStore{dbProvider: dbProvider, policy: policy}
}

// GetEntity returns the entity with its full journey.
func (s *dbEntityStore) GetEntity(ctx context.Context, entityID string) (*Entity, error) {
	dbClient, err := s.dbProvider.GetDBClient(provider.RuntimeDB)
	if err != nil {
		return nil, fmt.Errorf("failed to get database client: %w", err)
	}

	results, err := dbClient.Query(ctx, QueryGetEntity, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrEntityNotFound
	}
	return s.loadEntity(ctx, dbClient, results[0])
}

// UpdateEntity atomically applies mutate to the latest entity.
func (s *dbEntityStore) UpdateEntity(ctx context.Context, entityID string,
	mutate func(*Entity) error) (*Entity, error) {
	return updateEntity(ctx, s, s.policy, entityID, mutate)
}

// FindOrCreateByEmail finds the entity by canvas and email key or creates it. The unique
// (CANVAS_ID, EMAIL_KEY) constraint decides races between concurrent creators.
func (s *dbEntityStore) FindOrCreateByEmail(ctx context.Context, canvasID, emailKey string,
	create func() (*Entity, error)) (*Entity, bool, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, storeLoggerComponentName))

	dbClient, err := s.dbProvider.GetDBClient(provider.RuntimeDB)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get database client: %w", err)
	}

	if emailKey != "" {
		existing, err := s.findByEmail(ctx, dbClient, canvasID, emailKey)
		if err != nil || existing != nil {
			return existing, false, err
		}
	}

	entity, err := create()
	if err != nil {
		return nil, false, err
	}
	entity.CanvasID = canvasID
	entity.Version = 1

	if err := s.insertEntity(ctx, dbClient, entity, emailKey); err != nil {
		if emailKey == "" {
			return nil, false, err
		}
		// A concurrent request may have created the entity first.
		existing, findErr := s.findByEmail(ctx, dbClient, canvasID, emailKey)
		if findErr != nil || existing == nil {
			logger.Error("Failed to create entity", log.Error(err))
			return nil, false, err
		}
		logger.Debug("Entity created concurrently, using the stored one",
			log.String(log.LoggerKeyEntityID, existing.ID))
		return existing, false, nil
	}
	return entity, true, nil
}

func (s *dbEntityStore) findByEmail(ctx context.Context, dbClient client.DBClientInterface,
	canvasID, emailKey string) (*Entity, error) {
	results, err := dbClient.Query(ctx, QueryGetEntityByEmail, canvasID, emailKey)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return s.loadEntity(ctx, dbClient, results[0])
}

func (s *dbEntityStore) insertEntity(ctx context.Context, dbClient client.DBClientInterface,
	entity *Entity, emailKey string) error {
	doc, err := encodeEntityDoc(entity)
	if err != nil {
		return err
	}

	tx, err := dbClient.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.Execute(QueryCreateEntity, entity.ID, entity.CanvasID, dbutils.NullableString(emailKey),
		string(entity.Status), doc, entity.Version); err != nil {
		return rollback(tx, fmt.Errorf("failed to insert entity: %w", err))
	}
	if err := insertJourneyEvents(tx, entity.ID, entity.Journey); err != nil {
		return rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *dbEntityStore) swap(ctx context.Context, entity *Entity, expectedVersion int64,
	events []JourneyEvent) error {
	dbClient, err := s.dbProvider.GetDBClient(provider.RuntimeDB)
	if err != nil {
		return fmt.Errorf("failed to get database client: %w", err)
	}
	doc, err := encodeEntityDoc(entity)
	if err != nil {
		return err
	}

	tx, err := dbClient.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	affected, err := tx.Execute(QueryUpdateEntity, string(entity.Status), doc, entity.Version, entity.ID,
		expectedVersion)
	if err != nil {
		return rollback(tx, fmt.Errorf("failed to update entity: %w", err))
	}
	if affected == 0 {
		return rollback(tx, ErrConcurrencyConflict)
	}
	if err := insertJourneyEvents(tx, entity.ID, events); err != nil {
		return rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *dbEntityStore) loadEntity(ctx context.Context, dbClient client.DBClientInterface,
	row map[string]interface{}) (*Entity, error) {
	doc, err := dbutils.ColumnBytes(row, "entity_doc")
	if err != nil {
		return nil, err
	}
	var entity Entity
	if err := json.Unmarshal(doc, &entity); err != nil {
		return nil, fmt.Errorf("failed to decode entity document: %w", err)
	}
	if entity.Version, err = dbutils.ColumnInt64(row, "version"); err != nil {
		return nil, err
	}

	rows, err := dbClient.Query(ctx, QueryGetJourney, entity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	entity.Journey = make([]JourneyEvent, 0, len(rows))
	for _, r := range rows {
		eventDoc, err := dbutils.ColumnBytes(r, "event_doc")
		if err != nil {
			return nil, err
		}
		var event JourneyEvent
		if err := json.Unmarshal(eventDoc, &event); err != nil {
			return nil, fmt.Errorf("failed to decode journey event: %w", err)
		}
		entity.Journey = append(entity.Journey, event)
	}
	return &entity, nil
}

func insertJourneyEvents(tx client.TransactionInterface, entityID string, events []JourneyEvent) error {
	for _, event := range events {
		doc, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode journey event: %w", err)
		}
		if _, err := tx.Execute(QueryInsertJourneyEvent, entityID, event.Sequence, string(event.Type),
			string(doc)); err != nil {
			return fmt.Errorf("failed to insert journey event: %w", err)
		}
	}
	return nil
}

// encodeEntityDoc encodes the entity without its journey, which lives in its own table.
func encodeEntityDoc(entity *Entity) (string, error) {
	stripped := *entity
	stripped.Journey = nil
	doc, err := json.Marshal(stripped)
	if err != nil {
		return "", fmt.Errorf("failed to encode entity: %w", err)
	}
	return string(doc), nil
}

func rollback(tx client.TransactionInterface, cause error) error {
	if err := tx.Rollback(); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to rollback transaction: %w", err))
	}
	return cause
}
