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

package constants

import (
	"github.com/asgardeo/waypoint/internal/system/error/apierror"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
)

// Client error structs

// APIErrorRequestJSONDecodeError is returned when a request body cannot be decoded.
var APIErrorRequestJSONDecodeError = apierror.ErrorResponse{
	Code:        "FES-60001",
	Message:     "Invalid request payload",
	Description: "Failed to decode request payload",
}

// ErrorFlowNotFound is returned when the flow id does not match a loaded flow.
var ErrorFlowNotFound = serviceerror.ServiceError{
	Code:             "FES-60002",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindNotFound,
	Error:            "Flow not found",
	ErrorDescription: "No flow exists for the given flow id",
}

// ErrorRunNotFound is returned when the run id is unknown.
var ErrorRunNotFound = serviceerror.ServiceError{
	Code:             "FES-60003",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindNotFound,
	Error:            "Run not found",
	ErrorDescription: "No run exists for the given run id",
}

// ErrorNodeInstanceNotFound is returned when a run has no state for the given node or instance id.
var ErrorNodeInstanceNotFound = serviceerror.ServiceError{
	Code:             "FES-60004",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindNotFound,
	Error:            "Node not found",
	ErrorDescription: "The run has not reached the given node instance",
}

// ErrorInvalidCallbackStatus is returned when a callback carries an unknown status.
var ErrorInvalidCallbackStatus = serviceerror.ServiceError{
	Code:             "FES-60005",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindValidation,
	Error:            "Invalid callback",
	ErrorDescription: "Callback status must be either done or error",
}

// ErrorNodeNotAwaitingCallback is returned when a callback targets a node that is not a running worker.
var ErrorNodeNotAwaitingCallback = serviceerror.ServiceError{
	Code:             "FES-60006",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindValidation,
	Error:            "Invalid callback",
	ErrorDescription: "The node instance is not awaiting a worker callback",
}

// ErrorNodeNotAwaitingUser is returned when a human submission targets a node that is not an open gate.
var ErrorNodeNotAwaitingUser = serviceerror.ServiceError{
	Code:             "FES-60007",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindValidation,
	Error:            "Invalid submission",
	ErrorDescription: "The node is not waiting for user input",
}

// ErrorInvalidCallbackSignature is returned when a signed callback URL does not verify.
var ErrorInvalidCallbackSignature = serviceerror.ServiceError{
	Code:             "FES-60008",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindValidation,
	Error:            "Invalid callback",
	ErrorDescription: "The callback signature is missing or invalid",
}

// ErrorInvalidStartNode is returned when a requested start node does not exist in the flow.
var ErrorInvalidStartNode = serviceerror.ServiceError{
	Code:             "FES-60009",
	Type:             serviceerror.ClientErrorType,
	Kind:             serviceerror.KindValidation,
	Error:            "Invalid request",
	ErrorDescription: "The start node does not exist in the flow",
}

// Server error structs

// ErrorRunStoreFailure is returned when the run store fails unexpectedly.
var ErrorRunStoreFailure = serviceerror.ServiceError{
	Code:             "FES-65001",
	Type:             serviceerror.ServerErrorType,
	Kind:             serviceerror.KindInternal,
	Error:            "Something went wrong",
	ErrorDescription: "Failed to read or update the run state",
}

// ErrorRunUpdateConflict is returned when an update keeps losing the version race.
var ErrorRunUpdateConflict = serviceerror.ServiceError{
	Code:             "FES-65002",
	Type:             serviceerror.ServerErrorType,
	Kind:             serviceerror.KindConcurrencyConflict,
	Error:            "Something went wrong",
	ErrorDescription: "The run was updated concurrently too many times",
}
