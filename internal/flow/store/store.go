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

// Package store provides the run state repository of the execution engine.
//
// A run is only ever changed through UpdateRun, which applies a mutation to a private copy of the
// latest persisted run and writes it back with a compare-and-swap on the run version. Concurrent
// callbacks for the same run therefore serialise without holding locks across requests.
package store

import (
	"context"
	"errors"

	"github.com/asgardeo/waypoint/internal/flow/model"
	dbutils "github.com/asgardeo/waypoint/internal/system/database/utils"
)

const loggerComponentName = "RunStore"

var (
	// ErrRunNotFound is returned when no run exists for the id. It is never retried.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunExists is returned when creating a run whose id is already taken.
	ErrRunExists = errors.New("run already exists")
	// ErrConcurrencyConflict is returned when an update kept losing the version race.
	ErrConcurrencyConflict = dbutils.ErrConcurrencyConflict
	// ErrNoChange may be returned by a mutation to leave the run untouched.
	ErrNoChange = dbutils.ErrNoChange
)

// MutateFunc changes a private copy of a run. It may be called more than once for one update and
// must not have side effects outside the run it is given.
type MutateFunc func(run *model.Run) error

// RunStoreInterface defines the operations of the run state repository.
type RunStoreInterface interface {
	// CreateRun persists a new run at version 1.
	CreateRun(ctx context.Context, run *model.Run) error
	// GetRun returns the latest persisted run.
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	// UpdateRun atomically applies mutate to the latest run and returns the stored result.
	UpdateRun(ctx context.Context, runID string, mutate MutateFunc) (*model.Run, error)
}

// casBackend is the storage primitive the update loop is built on.
type casBackend interface {
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	// swap replaces the run if its stored version still equals expectedVersion.
	swap(ctx context.Context, run *model.Run, expectedVersion int64) error
}

// updateRun implements the optimistic read, mutate and compare-and-swap loop.
func updateRun(ctx context.Context, backend casBackend, policy dbutils.RetryPolicy, runID string,
	mutate MutateFunc) (*model.Run, error) {
	return dbutils.RetryOnConflict(ctx, policy, func() (*model.Run, error) {
		current, err := backend.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		working, err := current.Clone()
		if err != nil {
			return nil, err
		}
		if err := mutate(working); err != nil {
			if errors.Is(err, ErrNoChange) {
				return current, nil
			}
			return nil, err
		}

		working.ID = current.ID
		working.Version = current.Version + 1
		working.UpdatedAt = now()
		if err := backend.swap(ctx, working, current.Version); err != nil {
			return nil, err
		}
		return working, nil
	})
}
