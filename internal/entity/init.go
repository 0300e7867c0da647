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
	"net/http"

	"github.com/asgardeo/waypoint/internal/system/messaging"
	"github.com/asgardeo/waypoint/internal/system/middleware"
)

// Initialize initializes the entity service and registers its routes.
func Initialize(
	mux *http.ServeMux,
	store EntityStoreInterface,
	publisher messaging.PublisherInterface,
	subjectPrefix string,
) EntityServiceInterface {
	entityService := NewEntityService(store, publisher, subjectPrefix)
	entityHandler := newEntityHandler(entityService)
	registerRoutes(mux, entityHandler)
	return entityService
}

// registerRoutes registers the routes for entity operations.
func registerRoutes(mux *http.ServeMux, entityHandler *entityHandler) {
	opts := middleware.CORSOptions{
		AllowedMethods:   "GET, POST",
		AllowedHeaders:   "Content-Type",
		AllowCredentials: true,
	}
	mux.HandleFunc(middleware.WithCORS("GET /entities/{entityId}", entityHandler.HandleEntityGetRequest, opts))
	mux.HandleFunc(middleware.WithCORS("POST /entities/{entityId}/arrive",
		entityHandler.HandleEntityArriveRequest, opts))
	mux.HandleFunc(middleware.WithCORS("POST /entities/{entityId}/progress",
		entityHandler.HandleEntityProgressRequest, opts))
	mux.HandleFunc(middleware.WithCORS("OPTIONS /entities/{entityId}/{action}",
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}, opts))
}
