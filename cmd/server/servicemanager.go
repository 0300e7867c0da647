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

package main

import (
	"context"
	"net/http"

	"github.com/asgardeo/waypoint/internal/entity"
	"github.com/asgardeo/waypoint/internal/flow/engine"
	"github.com/asgardeo/waypoint/internal/flow/flowexec"
	"github.com/asgardeo/waypoint/internal/flow/flowmgt"
	"github.com/asgardeo/waypoint/internal/flow/store"
	"github.com/asgardeo/waypoint/internal/flow/webhook"
	"github.com/asgardeo/waypoint/internal/ingest"
	"github.com/asgardeo/waypoint/internal/system/config"
	"github.com/asgardeo/waypoint/internal/system/database/provider"
	dbutils "github.com/asgardeo/waypoint/internal/system/database/utils"
	"github.com/asgardeo/waypoint/internal/system/healthcheck/handler"
	"github.com/asgardeo/waypoint/internal/system/healthcheck/service"
	syshttp "github.com/asgardeo/waypoint/internal/system/http"
	"github.com/asgardeo/waypoint/internal/system/log"
	"github.com/asgardeo/waypoint/internal/system/messaging"
)

const defaultSubjectPrefix = "waypoint"

// runningServices holds what has to be released on shutdown.
type runningServices struct {
	dbProvider provider.DBProviderInterface
	publisher  messaging.PublisherInterface
}

// registerServices wires the stores, the engine and the gateways, and registers their routes.
func registerServices(ctx context.Context, mux *http.ServeMux, cfg *config.Config) *runningServices {
	logger := log.GetLogger()

	dbProvider := provider.GetDBProvider()
	policy := dbutils.RetryPolicyFromConfig(cfg.Store)
	runStore, entityStore := initStores(logger, dbProvider, cfg, policy)

	publisher, subjectPrefix := initPublisher(ctx, logger, cfg.Messaging.NATS)

	flowMgtService := flowmgt.GetFlowMgtService()
	if err := flowMgtService.Init(); err != nil {
		logger.Fatal("Failed to initialize flow management service", log.Error(err))
	}

	entityService := entity.Initialize(mux, entityStore, publisher, subjectPrefix)

	signer := webhook.NewCallbackSigner(cfg.Server.PublicURL, cfg.Webhook.CallbackSecret)
	httpClient := syshttp.NewWebhookClient(cfg.Webhook)
	flowEngine := engine.NewEngine(engine.Dependencies{
		Flows:         flowMgtService,
		Runs:          runStore,
		Dispatcher:    webhook.NewDispatcher(httpClient),
		Signer:        signer,
		Mover:         entityService,
		Publisher:     publisher,
		SubjectPrefix: subjectPrefix,
		MaxWalkDepth:  cfg.Flow.MaxWalkDepth,
		Cache:         cfg.Cache,
	})
	flowexec.Initialize(mux, flowEngine, signer)

	ingest.Initialize(mux, cfg.Ingest.Webhooks, flowMgtService, entityService, flowEngine)

	registerHealthCheck(mux, service.NewHealthCheckService(
		service.RuntimeDBProbe(dbProvider),
		service.Probe{Name: "Messaging", Check: publisher.Check},
	))

	return &runningServices{dbProvider: dbProvider, publisher: publisher}
}

// initStores selects the SQL stores, or the in-memory stores for a memory data source.
func initStores(logger *log.Logger, dbProvider provider.DBProviderInterface, cfg *config.Config,
	policy dbutils.RetryPolicy) (store.RunStoreInterface, entity.EntityStoreInterface) {
	if cfg.Database.Runtime.Type == provider.DataSourceTypeMemory {
		logger.Warn("Runtime data source is in memory, runs and entities are lost on restart")
		return store.NewMemoryRunStore(policy), entity.NewMemoryEntityStore(policy)
	}
	return store.NewDBRunStore(dbProvider, policy), entity.NewDBEntityStore(dbProvider, policy)
}

// initPublisher connects to NATS when enabled. Events are discarded otherwise.
func initPublisher(ctx context.Context, logger *log.Logger,
	natsConfig config.NATSConfig) (messaging.PublisherInterface, string) {
	prefix := natsConfig.SubjectPrefix
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	if !natsConfig.Enabled {
		logger.Info("Event publishing is disabled")
		return messaging.NewNoopPublisher(), prefix
	}
	publisher, err := messaging.Connect(ctx, natsConfig)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", log.Error(err))
	}
	return publisher, prefix
}

func registerHealthCheck(mux *http.ServeMux, healthCheckService service.HealthCheckServiceInterface) {
	healthCheckHandler := handler.NewHealthCheckHandler(healthCheckService)
	mux.HandleFunc("GET /health/liveness", healthCheckHandler.HandleLivenessRequest)
	mux.HandleFunc("GET /health/readiness", healthCheckHandler.HandleReadinessRequest)
}

// close releases the broker connection and the database pool.
func (s *runningServices) close(logger *log.Logger) {
	if err := s.publisher.Close(); err != nil {
		logger.Error("Failed to close event publisher", log.Error(err))
	}
	if err := s.dbProvider.Close(); err != nil {
		logger.Error("Failed to close database connections", log.Error(err))
	}
}
