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

package ingest

import (
	"net/http"

	"github.com/asgardeo/waypoint/internal/flow/engine"
	"github.com/asgardeo/waypoint/internal/flow/flowmgt"
	"github.com/asgardeo/waypoint/internal/system/config"
	"github.com/asgardeo/waypoint/internal/system/middleware"
)

// Initialize initializes the ingestion gateway and registers its route.
func Initialize(
	mux *http.ServeMux,
	webhooks []config.IngestWebhook,
	flows flowmgt.FlowMgtServiceInterface,
	entities EntityPlacerInterface,
	flowEngine engine.EngineInterface,
) {
	ingestService := NewIngestService(webhooks, flows, entities, flowEngine)
	ingestHandler := newIngestHandler(ingestService)
	registerRoutes(mux, ingestHandler)
}

// registerRoutes registers the routes for ingestion.
func registerRoutes(mux *http.ServeMux, ingestHandler *ingestHandler) {
	opts := middleware.CORSOptions{
		AllowedMethods: "POST",
		AllowedHeaders: "Content-Type",
	}
	mux.HandleFunc(middleware.WithCORS("POST /ingest/{slug}", ingestHandler.HandleIngestRequest, opts))
}
