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

	"github.com/asgardeo/waypoint/internal/ingest/constants"
	"github.com/asgardeo/waypoint/internal/system/error/apierror"
	"github.com/asgardeo/waypoint/internal/system/log"
	sysutils "github.com/asgardeo/waypoint/internal/system/utils"
)

const handlerLoggerComponentName = "IngestHandler"

// ingestHandler is the handler for inbound ingestion webhooks.
type ingestHandler struct {
	ingestService IngestServiceInterface
}

func newIngestHandler(ingestService IngestServiceInterface) *ingestHandler {
	return &ingestHandler{
		ingestService: ingestService,
	}
}

// HandleIngestRequest accepts an external payload. The body is read as is, it need not be JSON.
func (ih *ingestHandler) HandleIngestRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))
	slug := r.PathValue("slug")

	payload, err := sysutils.ReadBody(r)
	if err != nil {
		errResp := constants.APIErrorRequestBodyReadError
		errResp.Description = "Failed to read request body: " + err.Error()
		apierror.WriteErrorResponse(w, logger, http.StatusBadRequest, errResp)
		return
	}

	result, svcErr := ih.ingestService.Ingest(r.Context(), slug, payload)
	if svcErr != nil {
		apierror.WriteServiceError(w, logger, svcErr)
		return
	}
	sysutils.WriteJSON(w, http.StatusAccepted, result)
}
