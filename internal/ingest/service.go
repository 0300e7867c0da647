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

// Package ingest provides the gateway that turns external webhook payloads into entities and runs.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/asgardeo/waypoint/internal/entity"
	"github.com/asgardeo/waypoint/internal/flow/engine"
	"github.com/asgardeo/waypoint/internal/flow/flowmgt"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/ingest/constants"
	"github.com/asgardeo/waypoint/internal/system/config"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
	"github.com/asgardeo/waypoint/internal/system/log"
)

const serviceLoggerComponentName = "IngestService"

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// EntityPlacerInterface places an entity found or created by email on an edge.
type EntityPlacerInterface interface {
	PlaceOnEdge(ctx context.Context, req entity.PlacementRequest) (*entity.Entity, bool, *serviceerror.ServiceError)
}

// IngestServiceInterface defines the operations of the ingestion gateway.
type IngestServiceInterface interface {
	Ingest(ctx context.Context, slug string, payload []byte) (*IngestResult, *serviceerror.ServiceError)
}

// ingestService is the default implementation of IngestServiceInterface.
type ingestService struct {
	webhooks map[string]config.IngestWebhook
	flows    flowmgt.FlowMgtServiceInterface
	entities EntityPlacerInterface
	engine   engine.EngineInterface
}

// NewIngestService creates an ingestion gateway for the configured webhooks.
// When two webhooks share a slug the first one wins.
func NewIngestService(webhooks []config.IngestWebhook, flows flowmgt.FlowMgtServiceInterface,
	entities EntityPlacerInterface, flowEngine engine.EngineInterface) IngestServiceInterface {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, serviceLoggerComponentName))

	bySlug := make(map[string]config.IngestWebhook, len(webhooks))
	for _, wh := range webhooks {
		if _, exists := bySlug[wh.Slug]; exists {
			logger.Warn("Duplicate ingest webhook slug ignored", log.String(log.LoggerKeySlug, wh.Slug))
			continue
		}
		bySlug[wh.Slug] = wh
	}
	return &ingestService{
		webhooks: bySlug,
		flows:    flows,
		entities: entities,
		engine:   flowEngine,
	}
}

// Ingest places the entity described by the payload on the entry edge of the webhook workflow and
// starts a run at the entry edge target. Malformed payloads still produce an entity with empty fields.
func (s *ingestService) Ingest(ctx context.Context, slug string,
	payload []byte) (*IngestResult, *serviceerror.ServiceError) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, serviceLoggerComponentName),
		log.String(log.LoggerKeySlug, slug))

	wh, ok := s.webhooks[slug]
	if !ok {
		return nil, &constants.ErrorUnknownSlug
	}
	flow, ok := s.flows.GetFlow(wh.WorkflowID)
	if !ok {
		logger.Error("Ingest webhook references an unknown workflow", log.String(log.LoggerKeyFlowID, wh.WorkflowID))
		return nil, &constants.ErrorWebhookMisconfigured
	}
	entryEdge, ok := flow.GetEdge(wh.EntryEdgeID)
	if !ok {
		logger.Error("Ingest webhook references an unknown entry edge", log.String("edgeId", wh.EntryEdgeID))
		return nil, &constants.ErrorWebhookMisconfigured
	}

	fields := extractFields(payload, wh.EntityMapping)
	if fields.Name == nil && fields.Email == nil {
		logger.Debug("No entity fields could be extracted from the payload")
	}

	ent, created, svcErr := s.entities.PlaceOnEdge(ctx, entity.PlacementRequest{
		CanvasID:          flow.ID,
		Name:              fields.Name,
		Email:             fields.Email,
		EmailKey:          fields.EmailKey,
		Metadata:          fields.Metadata,
		EdgeID:            entryEdge.ID,
		SourceNodeID:      entryEdge.Source,
		DestinationNodeID: entryEdge.Target,
	})
	if svcErr != nil {
		return nil, svcErr
	}

	body := decodePayload(payload)
	run, svcErr := s.engine.Start(ctx, engine.StartRequest{
		FlowID:      flow.ID,
		Input:       body,
		EntityID:    ent.ID,
		StartNodeID: entryEdge.Target,
		Trigger: &model.Trigger{
			Source:     wh.Source,
			Slug:       wh.Slug,
			ReceivedAt: now(),
			Payload:    body,
		},
	})
	if svcErr != nil {
		return nil, svcErr
	}

	logger.Info("Payload ingested", log.String(log.LoggerKeyEntityID, ent.ID),
		log.Bool("entityCreated", created), log.String(log.LoggerKeyRunID, run.ID))
	return &IngestResult{
		EntityID:      ent.ID,
		EntityCreated: created,
		RunID:         run.ID,
		RunStatus:     string(run.Status),
	}, nil
}

// decodePayload returns the decoded JSON payload, or the raw text when it is not JSON.
func decodePayload(payload []byte) any {
	if len(payload) == 0 {
		return nil
	}
	var body any
	if err := json.Unmarshal(payload, &body); err != nil {
		return string(payload)
	}
	return body
}
