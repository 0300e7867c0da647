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

// Package constants defines the errors returned by the entity service.
package constants

import (
	"github.com/asgardeo/waypoint/internal/system/error/apierror"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
)

// Client error structs

// APIErrorRequestJSONDecodeError is returned when a request body cannot be decoded.
var APIErrorRequestJSONDecodeError = apierror.ErrorResponse{
	Code:        "ENT-60001",
	Message:     "Invalid request payload",
	Description: "Failed to decode request payload",
}

// ErrorEntityNotFound is returned when the entity id is unknown.
var ErrorEntityNotFound = serviceerror.ServiceError{
	Code:             "ENT-60002",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindNotFound,
	Error:            "Entity not found",
	ErrorDescription: "No entity exists for the given entity id",
}

// ErrorEntityNotTraveling is returned when a travel signal reaches an entity that is not on an edge.
var ErrorEntityNotTraveling = serviceerror.ServiceError{
	Code:             "ENT-60003",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindValidation,
	Error:            "Entity is not traveling",
	ErrorDescription: "Travel progress can only be reported while the entity is on an edge",
}

// ErrorInvalidProgress is returned when the reported edge progress is outside [0, 1].
var ErrorInvalidProgress = serviceerror.ServiceError{
	Code:             "ENT-60004",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindValidation,
	Error:            "Invalid progress",
	ErrorDescription: "Edge progress must be a number between 0 and 1",
}

// ErrorInvalidPlacement is returned when an entity cannot be placed on the requested edge.
var ErrorInvalidPlacement = serviceerror.ServiceError{
	Code:             "ENT-60005",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindValidation,
	Error:            "Invalid placement",
	ErrorDescription: "An entity must be placed on an edge with a destination node",
}

// Server error structs

// ErrorEntityStoreFailure is returned when the entity store fails unexpectedly.
var ErrorEntityStoreFailure = serviceerror.ServiceError{
	Code:             "ENT-65001",
	Type:             serviceerror.ServerErrorType,
	Kind:             serviceerror.KindInternal,
	Error:            "Entity store failure",
	ErrorDescription: "Failed to read or update the entity",
}

// ErrorEntityUpdateConflict is returned when an entity update kept losing against concurrent writers.
var ErrorEntityUpdateConflict = serviceerror.ServiceError{
	Code:             "ENT-65002",
	Type:             serviceerror.ServerErrorType,
	Kind:             serviceerror.KindConcurrencyConflict,
	Error:            "Entity update conflict",
	ErrorDescription: "The entity was modified concurrently, retry the request",
}
