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

// Package apierror defines the error structures for the API layer.
package apierror

import (
	"encoding/json"
	"net/http"

	serverconst "github.com/asgardeo/waypoint/internal/system/constants"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
	"github.com/asgardeo/waypoint/internal/system/log"
)

// ErrorResponse defines a generic error response structure for API errors.
type ErrorResponse struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

// StatusCode returns the HTTP status that corresponds to the given service error.
func StatusCode(svcErr *serviceerror.ServiceError) int {
	switch {
	case svcErr.Kind == serviceerror.KindNotFound:
		return http.StatusNotFound
	case svcErr.Kind == serviceerror.KindConcurrencyConflict:
		return http.StatusConflict
	case svcErr.Type == serviceerror.ClientErrorType:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes the service error to the response as an API error.
func WriteServiceError(w http.ResponseWriter, logger *log.Logger, svcErr *serviceerror.ServiceError) {
	errResp := ErrorResponse{
		Code:        svcErr.Code,
		Message:     svcErr.Error,
		Description: svcErr.ErrorDescription,
	}
	WriteErrorResponse(w, logger, StatusCode(svcErr), errResp)
}

// WriteErrorResponse writes an error response with the given status code.
func WriteErrorResponse(w http.ResponseWriter, logger *log.Logger, status int, errResp ErrorResponse) {
	w.Header().Set(serverconst.ContentTypeHeaderName, serverconst.ContentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		logger.Error("Error encoding error response", log.Error(err))
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
