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

package flowexec

import (
	"net/http"

	"github.com/asgardeo/waypoint/internal/flow/engine"
	"github.com/asgardeo/waypoint/internal/flow/webhook"
	"github.com/asgardeo/waypoint/internal/system/middleware"
)

// Initialize registers the run execution routes backed by the given engine.
func Initialize(mux *http.ServeMux, flowEngine engine.EngineInterface, signer *webhook.CallbackSigner) {
	handler := newFlowExecHandler(flowEngine, signer)
	registerRoutes(mux, handler)
}

// registerRoutes registers the routes for run execution.
func registerRoutes(mux *http.ServeMux, handler *flowExecHandler) {
	opts := middleware.CORSOptions{
		AllowedMethods:   "GET, POST",
		AllowedHeaders:   "Content-Type, Authorization",
		AllowCredentials: true,
	}
	mux.HandleFunc(middleware.WithCORS("POST /start/{flowId}", handler.HandleStartRequest, opts))
	mux.HandleFunc(middleware.WithCORS("POST /callback/{runId}/{nodeId}", handler.HandleCallbackRequest, opts))
	mux.HandleFunc(middleware.WithCORS("POST /complete/{runId}/{nodeId}", handler.HandleCompleteRequest, opts))
	mux.HandleFunc(middleware.WithCORS("GET /status/{runId}", handler.HandleStatusRequest, opts))

	noContent := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
	mux.HandleFunc(middleware.WithCORS("OPTIONS /start/{flowId}", noContent, opts))
	mux.HandleFunc(middleware.WithCORS("OPTIONS /complete/{runId}/{nodeId}", noContent, opts))
	mux.HandleFunc(middleware.WithCORS("OPTIONS /status/{runId}", noContent, opts))
}
