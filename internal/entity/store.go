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
	"errors"
	"time"

	dbutils "github.com/asgardeo/waypoint/internal/system/database/utils"
)

const storeLoggerComponentName = "EntityStore"

var (
	// ErrEntityNotFound is returned when no entity exists for the id.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrConcurrencyConflict is returned when an update kept losing the version race.
	ErrConcurrencyConflict = dbutils.ErrConcurrencyConflict
	// ErrNoChange may be returned by a mutation to leave the entity untouched.
	ErrNoChange = dbutils.ErrNoChange
)

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// EntityStoreInterface defines the persistence operations for entities and their journeys.
type EntityStoreInterface interface {
	// GetEntity returns the entity with its full journey.
	GetEntity(ctx context.Context, entityID string) (*Entity, error)
	// UpdateEntity atomically applies mutate to the latest entity. Journey events appended by
	// mutate are persisted with the entity.
	UpdateEntity(ctx context.Context, entityID string, mutate func(*Entity) error) (*Entity, error)
	// FindOrCreateByEmail returns the entity of the canvas with the given email key, or stores the
	// entity built by create. An empty email key always creates. The boolean reports creation.
	FindOrCreateByEmail(ctx context.Context, canvasID, emailKey string,
		create func() (*Entity, error)) (*Entity, bool, error)
}

// entityBackend is the storage primitive the update loop is built on.
type entityBackend interface {
	GetEntity(ctx context.Context, entityID string) (*Entity, error)
	// swap replaces the entity if its stored version still equals expectedVersion and appends events.
	swap(ctx context.Context, entity *Entity, expectedVersion int64, events []JourneyEvent) error
}

func updateEntity(ctx context.Context, backend entityBackend, policy dbutils.RetryPolicy, entityID string,
	mutate func(*Entity) error) (*Entity, error) {
	return dbutils.RetryOnConflict(ctx, policy, func() (*Entity, error) {
		current, err := backend.GetEntity(ctx, entityID)
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
		var events []JourneyEvent
		if len(working.Journey) > len(current.Journey) {
			events = working.Journey[len(current.Journey):]
		}
		if err := backend.swap(ctx, working, current.Version, events); err != nil {
			return nil, err
		}
		return working, nil
	})
}
