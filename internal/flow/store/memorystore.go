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
	"sync"

	"github.com/asgardeo/waypoint/internal/flow/model"
	dbutils "github.com/asgardeo/waypoint/internal/system/database/utils"
)

// memoryRunStore keeps runs in process memory. Each stored run is a private copy.
type memoryRunStore struct {
	mu     sync.RWMutex
	runs   map[string]*model.Run
	policy dbutils.RetryPolicy
}

// NewMemoryRunStore creates a run store that keeps runs in process memory.
func NewMemoryRunStore(policy dbutils.RetryPolicy) RunStoreInterface {
	return &memoryRunStore{runs: make(map[string]*model.Run), policy: policy}
}

// CreateRun stores a copy of the run at version 1.
func (s *memoryRunStore) CreateRun(_ context.Context, run *model.Run) error {
	run.Version = 1
	stored, err := run.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return ErrRunExists
	}
	s.runs[run.ID] = stored
	return nil
}

// GetRun returns a copy of the stored run.
func (s *memoryRunStore) GetRun(_ context.Context, runID string) (*model.Run, error) {
	s.mu.RLock()
	stored, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrRunNotFound
	}
	return stored.Clone()
}

// UpdateRun atomically applies mutate to the latest run.
func (s *memoryRunStore) UpdateRun(ctx context.Context, runID string, mutate MutateFunc) (*model.Run, error) {
	return updateRun(ctx, s, s.policy, runID, mutate)
}

func (s *memoryRunStore) swap(_ context.Context, run *model.Run, expectedVersion int64) error {
	stored, err := run.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.runs[run.ID]
	if !ok {
		return ErrRunNotFound
	}
	if current.Version != expectedVersion {
		return ErrConcurrencyConflict
	}
	s.runs[run.ID] = stored
	return nil
}
