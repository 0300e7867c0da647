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

	"github.com/asgardeo/waypoint/internal/entity/constants"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
	"github.com/asgardeo/waypoint/internal/system/log"
	"github.com/asgardeo/waypoint/internal/system/messaging"
	sysutils "github.com/asgardeo/waypoint/internal/system/utils"
)

const serviceLoggerComponentName = "EntityService"

// EntityServiceInterface defines the operations on entities.
type EntityServiceInterface interface {
	// GetEntity returns the entity with its journey.
	GetEntity(ctx context.Context, entityID string) (*Entity, *serviceerror.ServiceError)
	// ApplyMove applies the movement caused by a node completion. Movements of completed entities
	// are dropped.
	ApplyMove(ctx context.Context, cmd MoveCommand) *serviceerror.ServiceError
	// Arrive moves a traveling entity to the destination of its edge. Repeated signals are absorbed.
	Arrive(ctx context.Context, entityID, edgeID string) (*Entity, *serviceerror.ServiceError)
	// SetProgress records how far a traveling entity is along its edge.
	SetProgress(ctx context.Context, entityID string, progress float64) (*Entity, *serviceerror.ServiceError)
	// PlaceOnEdge finds or creates an entity by email and puts it on the requested edge.
	PlaceOnEdge(ctx context.Context, req PlacementRequest) (*Entity, bool, *serviceerror.ServiceError)
}

// entityService is the default implementation of EntityServiceInterface.
type entityService struct {
	store         EntityStoreInterface
	publisher     messaging.PublisherInterface
	subjectPrefix string
}

// NewEntityService creates an entity service over the given store and publisher.
func NewEntityService(store EntityStoreInterface, publisher messaging.PublisherInterface,
	subjectPrefix string) EntityServiceInterface {
	if publisher == nil {
		publisher = messaging.NewNoopPublisher()
	}
	return &entityService{
		store:         store,
		publisher:     publisher,
		subjectPrefix: subjectPrefix,
	}
}

// GetEntity returns the entity with its journey.
func (s *entityService) GetEntity(ctx context.Context, entityID string) (*Entity, *serviceerror.ServiceError) {
	entity, err := s.store.GetEntity(ctx, entityID)
	if err != nil {
		return nil, s.toServiceError(err, entityID)
	}
	return entity, nil
}

// ApplyMove applies the movement caused by a node completion.
func (s *entityService) ApplyMove(ctx context.Context, cmd MoveCommand) *serviceerror.ServiceError {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, serviceLoggerComponentName),
		log.String(log.LoggerKeyEntityID, cmd.EntityID), log.String(log.LoggerKeyRunID, cmd.RunID),
		log.String(log.LoggerKeyNodeID, cmd.NodeID))

	var journeyBefore int
	dropped := false
	updated, err := s.store.UpdateEntity(ctx, cmd.EntityID, func(e *Entity) error {
		journeyBefore = len(e.Journey)
		dropped = false
		moved, err := ApplyMove(e, cmd, now())
		if errors.Is(err, ErrEntityTerminal) {
			dropped = true
			return ErrNoChange
		}
		if err != nil {
			return err
		}
		if !moved {
			return ErrNoChange
		}
		return nil
	})
	if err != nil {
		return s.toServiceError(err, cmd.EntityID)
	}
	if dropped {
		logger.Info("Dropped movement for completed entity", log.String("action", string(cmd.Action)))
		return nil
	}
	s.publishJourney(ctx, updated, journeyBefore)
	return nil
}

// Arrive moves a traveling entity to the destination of its edge.
func (s *entityService) Arrive(ctx context.Context, entityID, edgeID string) (*Entity, *serviceerror.ServiceError) {
	var journeyBefore int
	updated, err := s.store.UpdateEntity(ctx, entityID, func(e *Entity) error {
		journeyBefore = len(e.Journey)
		arrived, err := Arrive(e, edgeID, now())
		if err != nil {
			return err
		}
		if !arrived {
			return ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, s.toServiceError(err, entityID)
	}
	s.publishJourney(ctx, updated, journeyBefore)
	return updated, nil
}

// SetProgress records how far a traveling entity is along its edge.
func (s *entityService) SetProgress(ctx context.Context, entityID string,
	progress float64) (*Entity, *serviceerror.ServiceError) {
	updated, err := s.store.UpdateEntity(ctx, entityID, func(e *Entity) error {
		return SetProgress(e, progress)
	})
	if err != nil {
		return nil, s.toServiceError(err, entityID)
	}
	return updated, nil
}

// PlaceOnEdge finds or creates an entity by email and puts it on the requested edge.
func (s *entityService) PlaceOnEdge(ctx context.Context,
	req PlacementRequest) (*Entity, bool, *serviceerror.ServiceError) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, serviceLoggerComponentName))

	if req.EdgeID == "" || req.DestinationNodeID == "" {
		return nil, false, &constants.ErrorInvalidPlacement
	}

	entity, created, err := s.store.FindOrCreateByEmail(ctx, req.CanvasID, req.EmailKey, func() (*Entity, error) {
		ts := now()
		e := &Entity{
			ID:        sysutils.GenerateUUID(),
			CanvasID:  req.CanvasID,
			Name:      req.Name,
			Email:     req.Email,
			Metadata:  req.Metadata,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := Spawn(e, req.EdgeID, req.SourceNodeID, req.DestinationNodeID, ts); err != nil {
			return nil, err
		}
		return e, nil
	})
	if err != nil {
		return nil, false, s.toServiceError(err, "")
	}
	if created {
		logger.Debug("Entity spawned", log.String(log.LoggerKeyEntityID, entity.ID),
			log.String("edgeId", req.EdgeID))
		s.publishJourney(ctx, entity, 0)
		return entity, true, nil
	}

	var journeyBefore int
	updated, err := s.store.UpdateEntity(ctx, entity.ID, func(e *Entity) error {
		journeyBefore = len(e.Journey)
		if e.Name == nil {
			e.Name = req.Name
		}
		err := PlaceOnEdge(e, req.EdgeID, req.SourceNodeID, req.DestinationNodeID, now())
		if errors.Is(err, ErrEntityTerminal) {
			return ErrNoChange
		}
		return err
	})
	if err != nil {
		return nil, false, s.toServiceError(err, entity.ID)
	}
	if updated.IsTerminal() {
		logger.Info("Entity already completed its journey, placement dropped",
			log.String(log.LoggerKeyEntityID, updated.ID))
		return updated, false, nil
	}
	s.publishJourney(ctx, updated, journeyBefore)
	return updated, false, nil
}

// publishJourney publishes the journey events appended after index from.
func (s *entityService) publishJourney(ctx context.Context, entity *Entity, from int) {
	if from < 0 || from >= len(entity.Journey) {
		return
	}
	subject := messaging.EntityJourneySubject(s.subjectPrefix, entity.ID)
	for _, event := range entity.Journey[from:] {
		msg := JourneyMessage{EntityID: entity.ID, CanvasID: entity.CanvasID, Event: event}
		if err := s.publisher.Publish(ctx, subject, msg); err != nil {
			log.GetLogger().Warn("Failed to publish journey event",
				log.String(log.LoggerKeyComponentName, serviceLoggerComponentName),
				log.String(log.LoggerKeyEntityID, entity.ID), log.Error(err))
		}
	}
}

func (s *entityService) toServiceError(err error, entityID string) *serviceerror.ServiceError {
	switch {
	case errors.Is(err, ErrEntityNotFound):
		return &constants.ErrorEntityNotFound
	case errors.Is(err, ErrNotTraveling):
		return &constants.ErrorEntityNotTraveling
	case errors.Is(err, ErrInvalidProgress):
		return &constants.ErrorInvalidProgress
	case errors.Is(err, ErrInvalidPlacement):
		return &constants.ErrorInvalidPlacement
	case errors.Is(err, ErrConcurrencyConflict):
		return &constants.ErrorEntityUpdateConflict
	default:
		log.GetLogger().Error("Entity store failure",
			log.String(log.LoggerKeyComponentName, serviceLoggerComponentName),
			log.String(log.LoggerKeyEntityID, entityID), log.Error(err))
		return &constants.ErrorEntityStoreFailure
	}
}
