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
	"errors"
	"net/http"

	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/flow/engine"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/flow/webhook"
	"github.com/asgardeo/waypoint/internal/system/error/apierror"
	"github.com/asgardeo/waypoint/internal/system/log"
	sysutils "github.com/asgardeo/waypoint/internal/system/utils"
)

const handlerLoggerComponentName = "FlowExecHandler"

// flowExecHandler exposes the flow engine over HTTP.
type flowExecHandler struct {
	engine engine.EngineInterface
	signer *webhook.CallbackSigner
}

func newFlowExecHandler(flowEngine engine.EngineInterface, signer *webhook.CallbackSigner) *flowExecHandler {
	if signer == nil {
		signer = webhook.NewCallbackSigner("", "")
	}
	return &flowExecHandler{
		engine: flowEngine,
		signer: signer,
	}
}

// HandleStartRequest starts a run of the latest version of a flow.
func (h *flowExecHandler) HandleStartRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))
	flowID := r.PathValue("flowId")

	startRequest, err := sysutils.DecodeJSONBody[StartRunRequest](r)
	if errors.Is(err, sysutils.ErrEmptyBody) {
		startRequest, err = &StartRunRequest{}, nil
	}
	if err != nil {
		writeDecodeError(w, logger, err)
		return
	}

	run, svcErr := h.engine.Start(r.Context(), engine.StartRequest{
		FlowID:      flowID,
		Input:       startRequest.Input,
		EntityID:    startRequest.EntityID,
		StartNodeID: startRequest.StartNodeID,
	})
	if svcErr != nil {
		apierror.WriteServiceError(w, logger, svcErr)
		return
	}
	sysutils.WriteJSON(w, http.StatusAccepted, StartRunResponse{RunID: run.ID, Status: run.Status})
}

// HandleCallbackRequest records the result a worker posts back. Duplicates are acknowledged.
func (h *flowExecHandler) HandleCallbackRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))
	runID := r.PathValue("runId")
	instanceID := r.PathValue("nodeId")

	if !h.signer.Verify(runID, instanceID, r.URL.Query().Get(webhook.SignatureQueryParam)) {
		logger.Warn("Rejected callback with an invalid signature", log.String(log.LoggerKeyRunID, runID),
			log.String(log.LoggerKeyInstanceID, instanceID))
		apierror.WriteServiceError(w, logger, &constants.ErrorInvalidCallbackSignature)
		return
	}

	body, err := sysutils.ReadBody(r)
	if err != nil {
		writeDecodeError(w, logger, err)
		return
	}
	cb, err := webhook.ParseCallback(body)
	if err != nil {
		var statusErr *webhook.ErrInvalidStatus
		if errors.As(err, &statusErr) {
			apierror.WriteServiceError(w, logger, constants.ErrorInvalidCallbackStatus.WithDescription(err.Error()))
			return
		}
		writeDecodeError(w, logger, err)
		return
	}

	run, svcErr := h.engine.HandleCallback(r.Context(), runID, instanceID, *cb)
	if svcErr != nil {
		apierror.WriteServiceError(w, logger, svcErr)
		return
	}
	sysutils.WriteJSON(w, http.StatusOK, newNodeAck(run, instanceID))
}

// HandleCompleteRequest submits the output of an open human gate. The whole body is the output.
func (h *flowExecHandler) HandleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))
	runID := r.PathValue("runId")
	nodeID := r.PathValue("nodeId")

	var output any
	submission, err := sysutils.DecodeJSONBody[any](r)
	switch {
	case errors.Is(err, sysutils.ErrEmptyBody):
	case err != nil:
		writeDecodeError(w, logger, err)
		return
	default:
		output = *submission
	}

	run, svcErr := h.engine.CompleteUX(r.Context(), runID, nodeID, output)
	if svcErr != nil {
		apierror.WriteServiceError(w, logger, svcErr)
		return
	}
	sysutils.WriteJSON(w, http.StatusOK, newNodeAck(run, nodeID))
}

// HandleStatusRequest returns the run snapshot.
func (h *flowExecHandler) HandleStatusRequest(w http.ResponseWriter, r *http.Request) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, handlerLoggerComponentName))
	runID := r.PathValue("runId")

	run, svcErr := h.engine.GetRun(r.Context(), runID)
	if svcErr != nil {
		apierror.WriteServiceError(w, logger, svcErr)
		return
	}
	sysutils.WriteJSON(w, http.StatusOK, run)
}

func newNodeAck(run *model.Run, instanceID string) NodeAck {
	ack := NodeAck{RunID: run.ID, InstanceID: instanceID, RunStatus: run.Status}
	if state, ok := run.NodeStates[instanceID]; ok {
		ack.NodeStatus = state.Status
	}
	return ack
}

func writeDecodeError(w http.ResponseWriter, logger *log.Logger, err error) {
	errResp := constants.APIErrorRequestJSONDecodeError
	errResp.Description = "Failed to parse request body: " + err.Error()
	apierror.WriteErrorResponse(w, logger, http.StatusBadRequest, errResp)
}
