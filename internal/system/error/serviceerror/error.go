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

// Package serviceerror defines the error structures for the service layer.
package serviceerror

// ServiceErrorType defines the type of service error.
type ServiceErrorType string

const (
	// ClientErrorType denotes the client error type.
	ClientErrorType ServiceErrorType = "client_error"
	// ServerErrorType denotes the server error type.
	ServerErrorType ServiceErrorType = "server_error"
)

// ErrorKind classifies a service error independently of its code.
type ErrorKind string

const (
	// KindValidation denotes malformed input or an invalid flow graph.
	KindValidation ErrorKind = "VALIDATION"
	// KindNotFound denotes an unknown flow, run, node, entity or ingest slug.
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindWorkerFailure denotes a worker that reported an error or could not be reached. It is recorded
	// on the failed node instance and its event, never returned to a caller.
	KindWorkerFailure ErrorKind = "WORKER_FAILURE"
	// KindDuplicateCallback denotes a callback for an already finished node instance. Duplicates are
	// acknowledged, so the kind only appears in logs.
	KindDuplicateCallback ErrorKind = "DUPLICATE_CALLBACK"
	// KindConcurrencyConflict denotes an update that kept losing the version race.
	KindConcurrencyConflict ErrorKind = "CONCURRENCY_CONFLICT"
	// KindInternal denotes an unexpected server side failure.
	KindInternal ErrorKind = "INTERNAL"
)

// ServiceError defines a generic error structure that can be used across the service layer.
type ServiceError struct {
	Code             string           `json:"code"`
	Type             ServiceErrorType `json:"type"`
	Kind             ErrorKind        `json:"kind,omitempty"`
	Error            string           `json:"error"`
	ErrorDescription string           `json:"error_description,omitempty"`
}

// WithDescription returns a copy of the error carrying the given description.
func (e ServiceError) WithDescription(description string) *ServiceError {
	e.ErrorDescription = description
	return &e
}

// InternalServerError is the generic server error returned when no specific error applies.
var InternalServerError = ServiceError{
	Code:             "SSE-5000",
	Type:             ServerErrorType,
	Kind:             KindInternal,
	Error:            "Internal server error",
	ErrorDescription: "An unexpected error occurred while processing the request",
}
