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
	"errors"
	"net/http"

	"github.com/asgardeo/waypoint/internal/entity/constants"
	"github.com/asgardeo/waypoint/internal/system/error/apierror"
	"github.com/asgardeo/waypoint/internal/system/log"
	sysutils "github.com/asgardeo/waypoint/internal/system/utils"
)

const handlerLoggerComponentName = "EntityHandler"

// entityHandler is the handler for entity operations.
type entityHandler struct {
	entityService EntityServiceInterface
}

// newEntityHandler creates a new instance of entityHandler.
func newEntityHandler(entityService EntityServiceInterface) *entityHandler {
	return &entityHandler{
		entityService: entityService,
	}
}

// HandleEntityGetRequest handles the get entity request.
func (eh *entityHandler) HandleEntityGetRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))
	entityID := r.PathValue("entityId")

	entity, svcErr := eh.entityService.GetEntity(r.Context(), entityID)
	if svcErr != nil {
		apierror.WriteServiceError(w, logger, svcErr)
		return
	}
	sysutils.WriteJSON(w, http.StatusOK, entity)
}

// HandleEntityArriveRequest handles the arrival signal of a traveling entity.
func (eh *entityHandler) HandleEntityArriveRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))
	entityID := r.PathValue("entityId")

	// The body is optional, an empty one matches the edge the entity is on.
	arriveRequest, err := sysutils.DecodeJSONBody[ArriveRequest](r)
	if errors.Is(err, sysutils.ErrEmptyBody) {
		arriveRequest, err = &ArriveRequest{}, nil
	}
	if err != nil {
		writeDecodeError(w, logger, err)
		return
	}

	entity, svcErr := eh.entityService.Arrive(r.Context(), entityID, arriveRequest.EdgeID)
	if svcErr != nil {
		apierror.WriteServiceError(w, logger, svcErr)
		return
	}
	logger.Debug("Arrival signal handled", log.String(log.LoggerKeyEntityID, entityID),
		log.String("status", string(entity.Status)))
	sysutils.WriteJSON(w, http.StatusOK, entity)
}

// HandleEntityProgressRequest handles a travel progress report.
func (eh *entityHandler) HandleEntityProgressRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))
	entityID := r.PathValue("entityId")

	progressRequest, err := sysutils.DecodeJSONBody[ProgressRequest](r)
	if err != nil {
		writeDecodeError(w, logger, err)
		return
	}
	if progressRequest.Progress == nil {
		apierror.WriteServiceError(w, logger, &constants.ErrorInvalidProgress)
		return
	}

	entity, svcErr := eh.entityService.SetProgress(r.Context(), entityID, *progressRequest.Progress)
	if svcErr != nil {
		apierror.WriteServiceError(w, logger, svcErr)
		return
	}
	sysutils.WriteJSON(w, http.StatusOK, entity)
}

func writeDecodeError(w http.ResponseWriter, logger *log.Logger, err error) {
	errResp := constants.APIErrorRequestJSONDecodeError
	errResp.Description = "Failed to parse request body: " + err.Error()
	apierror.WriteErrorResponse(w, logger, http.StatusBadRequest, errResp)
}
