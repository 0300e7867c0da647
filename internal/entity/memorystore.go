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

	dbutils "github.com/asgardeo/waypoint/internal/system/database/utils"
)

// memoryEntityStore keeps entities in process memory. Each stored entity is a private copy.
type memoryEntityStore struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	byEmail  map[string]string
	policy   dbutils.RetryPolicy
}

// NewMemoryEntityStore creates an entity store that keeps entities in process memory.
func NewMemoryEntityStore(policy dbutils.RetryPolicy) EntityStoreInterface {
	return &memoryEntityStore{
		entities: make(map[string]*Entity),
		byEmail:  make(map[string]string),
		policy:   policy,
	}
}

// GetEntity returns a copy of the stored entity.
func (s *memoryEntityStore) GetEntity(_ context.Context, entityID string) (*Entity, error) {
	s.mu.RLock()
	stored, ok := s.entities[entityID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrEntityNotFound
	}
	return stored.Clone()
}

// UpdateEntity atomically applies mutate to the latest entity.
func (s *memoryEntityStore) UpdateEntity(ctx context.Context, entityID string,
	mutate func(*Entity) error) (*Entity, error) {
	return updateEntity(ctx, s, s.policy, entityID, mutate)
}

// FindOrCreateByEmail finds the entity by canvas and email key or creates it under one lock.
func (s *memoryEntityStore) FindOrCreateByEmail(_ context.Context, canvasID, emailKey string,
	create func() (*Entity, error)) (*Entity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	indexKey := canvasID + "\x00" + emailKey
	if emailKey != "" {
		if id, ok := s.byEmail[indexKey]; ok {
			existing, err := s.entities[id].Clone()
			return existing, false, err
		}
	}

	entity, err := create()
	if err != nil {
		return nil, false, err
	}
	entity.CanvasID = canvasID
	entity.Version = 1
	stored, err := entity.Clone()
	if err != nil {
		return nil, false, err
	}
	s.entities[entity.ID] = stored
	if emailKey != "" {
		s.byEmail[indexKey] = entity.ID
	}
	return entity, true, nil
}

func (s *memoryEntityStore) swap(_ context.Context, entity *Entity, expectedVersion int64, _ []JourneyEvent) error {
	stored, err := entity.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entities[entity.ID]
	if !ok {
		return ErrEntityNotFound
	}
	if current.Version != expectedVersion {
		return ErrConcurrencyConflict
	}
	s.entities[entity.ID] = stored
	return nil
}
