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

// Package constants defines the constants and errors of the ingestion gateway.
package constants

import (
	"github.com/asgardeo/waypoint/internal/system/error/apierror"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
)

// APIErrorRequestBodyReadError is returned when the ingestion payload cannot be read.
var APIErrorRequestBodyReadError = apierror.ErrorResponse{
	Code:        "ING-60001",
	Message:     "Invalid request payload",
	Description: "Failed to read the request body",
}

// Client errors for the ingestion gateway.

// ErrorUnknownSlug is returned when no ingest webhook is configured for the slug.
var ErrorUnknownSlug = serviceerror.ServiceError{
	Code:             "ING-60002",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindNotFound,
	Error:            "Ingest webhook not found",
	ErrorDescription: "No ingest webhook is configured for the given slug",
}

// Server errors for the ingestion gateway.

// ErrorWebhookMisconfigured is returned when the configured workflow or entry edge does not exist.
var ErrorWebhookMisconfigured = serviceerror.ServiceError{
	Code:             "ING-65001",
	Type:             serviceerror.ServerErrorType,
	Kind:             serviceerror.KindInternal,
	Error:            "Ingest webhook misconfigured",
	ErrorDescription: "The workflow or entry edge of the ingest webhook does not exist",
}
