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

// Package engine executes flow runs by walking edges as node instances complete.
//
// Every operation is a single optimistic update of the run: the engine reads the run, computes the new
// node states together with the effects they cause, persists the result with a compare-and-swap and
// only then fires worker webhooks, entity movements and events. Nothing is kept in process memory
// between requests, so any number of engine instances may serve callbacks for the same run.
package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/asgardeo/waypoint/internal/entity"
	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/flow/flowmgt"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/flow/store"
	"github.com/asgardeo/waypoint/internal/flow/webhook"
	"github.com/asgardeo/waypoint/internal/system/config"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
	"github.com/asgardeo/waypoint/internal/system/log"
	"github.com/asgardeo/waypoint/internal/system/messaging"
	"github.com/asgardeo/waypoint/internal/system/tracing"
	sysutils "github.com/asgardeo/waypoint/internal/system/utils"
)

const loggerComponentName = "FlowEngine"

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

var (
	errFlowNotFound         = errors.New("flow version not found")
	errInstanceNotFound     = errors.New("node instance not found")
	errNotAwaitingCallback  = errors.New("node instance is not awaiting a callback")
	errNotAwaitingUser      = errors.New("node is not waiting for user input")
	errUnsupportedStartNode = errors.New("unsupported start node")
)

// EntityMoverInterface applies entity movements caused by node completions.
type EntityMoverInterface interface {
	ApplyMove(ctx context.Context, cmd entity.MoveCommand) *serviceerror.ServiceError
}

// EngineInterface defines the operations of the flow engine.
type EngineInterface interface {
	// Start creates a run of the latest flow version and enters its start node.
	Start(ctx context.Context, req StartRequest) (*model.Run, *serviceerror.ServiceError)
	// HandleCallback records a worker result and walks on. Duplicate callbacks are absorbed.
	HandleCallback(ctx context.Context, runID, instanceID string,
		cb webhook.InboundCallback) (*model.Run, *serviceerror.ServiceError)
	// CompleteUX records a human submission for an open gate and walks on.
	CompleteUX(ctx context.Context, runID, nodeID string, output any) (*model.Run, *serviceerror.ServiceError)
	// GetRun returns the persisted run.
	GetRun(ctx context.Context, runID string) (*model.Run, *serviceerror.ServiceError)
}

// StartRequest describes a new run.
type StartRequest struct {
	FlowID string
	Input  any
	// EntityID binds the run to an entity whose position follows the run.
	EntityID string
	// StartNodeID overrides the flow start node.
	StartNodeID string
	// Trigger defaults to an api trigger carrying Input.
	Trigger *model.Trigger
}

// Dependencies are the collaborators of the engine.
type Dependencies struct {
	Flows      flowmgt.FlowMgtServiceInterface
	Runs       store.RunStoreInterface
	Dispatcher webhook.DispatcherInterface
	Signer     *webhook.CallbackSigner
	// Mover is optional, runs bound to entities do not move them without it.
	Mover     EntityMoverInterface
	Publisher messaging.PublisherInterface
	// SubjectPrefix prefixes the subjects node events are published on.
	SubjectPrefix string
	MaxWalkDepth  int
	Cache         config.CacheConfig
}

// Engine is the default implementation of EngineInterface.
type Engine struct {
	flows         flowmgt.FlowMgtServiceInterface
	runs          store.RunStoreInterface
	dispatcher    webhook.DispatcherInterface
	signer        *webhook.CallbackSigner
	mover         EntityMoverInterface
	publisher     messaging.PublisherInterface
	subjectPrefix string
	maxWalkDepth  int
	conditions    *conditionEvaluator
	tracer        trace.Tracer
}

// NewEngine creates a flow engine.
func NewEngine(deps Dependencies) *Engine {
	e := &Engine{
		flows:         deps.Flows,
		runs:          deps.Runs,
		dispatcher:    deps.Dispatcher,
		signer:        deps.Signer,
		mover:         deps.Mover,
		publisher:     deps.Publisher,
		subjectPrefix: deps.SubjectPrefix,
		maxWalkDepth:  deps.MaxWalkDepth,
		conditions:    newConditionEvaluator(deps.Cache),
		tracer:        tracing.Tracer(),
	}
	if e.signer == nil {
		e.signer = webhook.NewCallbackSigner("", "")
	}
	if e.publisher == nil {
		e.publisher = messaging.NewNoopPublisher()
	}
	if e.maxWalkDepth <= 0 {
		e.maxWalkDepth = constants.DefaultMaxWalkDepth
	}
	return e
}

// Start creates a run of the latest flow version and enters its start node.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*model.Run, *serviceerror.ServiceError) {
	ctx, span := e.tracer.Start(ctx, "engine.start", trace.WithAttributes(
		attribute.String("waypoint.flow_id", req.FlowID)))
	defer span.End()

	flow, ok := e.flows.GetFlow(req.FlowID)
	if !ok {
		return nil, &constants.ErrorFlowNotFound
	}
	startNodeID := req.StartNodeID
	if startNodeID == "" {
		startNodeID = flow.StartNodeID
	}
	startNode, ok := flow.GetNode(startNodeID)
	if !ok {
		return nil, &constants.ErrorInvalidStartNode
	}

	trigger := req.Trigger
	if trigger == nil {
		trigger = &model.Trigger{Source: constants.TriggerSourceAPI, ReceivedAt: now(), Payload: req.Input}
	}
	run := model.NewRun(sysutils.GenerateUUID(), flow, req.EntityID, trigger, now())
	span.SetAttributes(attribute.String("waypoint.run_id", run.ID))

	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName),
		log.String(log.LoggerKeyRunID, run.ID), log.String(log.LoggerKeyFlowID, flow.ID))

	// The run is not visible to anyone else before it is created, so it is walked in place.
	t := e.newTransition(flow, run, logger)
	if startNode.Type == constants.NodeTypeCollector {
		t.failNew(startNode, nil, "%v: a collector cannot start a run", errUnsupportedStartNode)
	} else {
		t.enter(startNode, nil, nil, 0)
	}
	t.finish()

	if err := e.runs.CreateRun(ctx, run); err != nil {
		logger.Error("Failed to create run", log.Error(err))
		return nil, &constants.ErrorRunStoreFailure
	}
	logger.Info("Run started", log.String("startNode", startNode.ID), log.String("status", string(run.Status)),
		log.String(log.LoggerKeyEntityID, run.EntityID))

	return e.applyEffects(ctx, run, t, logger), nil
}

// HandleCallback records a worker result and walks on.
func (e *Engine) HandleCallback(ctx context.Context, runID, instanceID string,
	cb webhook.InboundCallback) (*model.Run, *serviceerror.ServiceError) {
	ctx, span := e.tracer.Start(ctx, "engine.callback", trace.WithAttributes(
		attribute.String("waypoint.run_id", runID), attribute.String("waypoint.node_id", instanceID),
		attribute.String("waypoint.callback_status", string(cb.Status))))
	defer span.End()

	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName),
		log.String(log.LoggerKeyRunID, runID), log.String(log.LoggerKeyInstanceID, instanceID))

	if err := cb.Validate(); err != nil {
		return nil, constants.ErrorInvalidCallbackStatus.WithDescription(err.Error())
	}

	var t *transition
	duplicate := false
	run, err := e.runs.UpdateRun(ctx, runID, func(run *model.Run) error {
		duplicate = false
		flow, ok := e.flows.GetFlowVersion(run.FlowID, run.FlowVersion)
		if !ok {
			return errFlowNotFound
		}
		state, ok := run.NodeStates[instanceID]
		if !ok {
			return errInstanceNotFound
		}
		if state.Status.IsTerminal() {
			duplicate = true
			return store.ErrNoChange
		}
		node, ok := flow.GetNode(state.NodeID)
		if !ok || node.Type != constants.NodeTypeWorker || state.Status != constants.NodeStatusRunning {
			return errNotAwaitingCallback
		}

		t = e.newTransition(flow, run, logger)
		if cb.Status == webhook.CallbackStatusError {
			t.markFailed(state, serviceerror.KindWorkerFailure, cb.Output)
		} else {
			t.completeAndWalk(state, cb.Output, 0)
		}
		t.finish()
		return nil
	})
	if err != nil {
		return nil, e.toServiceError(err, logger)
	}
	if duplicate {
		logger.Info("Duplicate callback absorbed", log.String("status", string(cb.Status)),
			log.String("errorKind", string(serviceerror.KindDuplicateCallback)))
		return run, nil
	}
	if run.Status == constants.RunStatusFailed && cb.Status == webhook.CallbackStatusDone {
		logger.Debug("Callback accepted for a failed run")
	}
	return e.applyEffects(ctx, run, t, logger), nil
}

// CompleteUX records a human submission for an open gate and walks on.
func (e *Engine) CompleteUX(ctx context.Context, runID, nodeID string,
	output any) (*model.Run, *serviceerror.ServiceError) {
	ctx, span := e.tracer.Start(ctx, "engine.complete", trace.WithAttributes(
		attribute.String("waypoint.run_id", runID), attribute.String("waypoint.node_id", nodeID)))
	defer span.End()

	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName),
		log.String(log.LoggerKeyRunID, runID), log.String(log.LoggerKeyNodeID, nodeID))

	var t *transition
	duplicate := false
	run, err := e.runs.UpdateRun(ctx, runID, func(run *model.Run) error {
		duplicate = false
		flow, ok := e.flows.GetFlowVersion(run.FlowID, run.FlowVersion)
		if !ok {
			return errFlowNotFound
		}
		state, ok := run.NodeStates[nodeID]
		if !ok {
			return errInstanceNotFound
		}
		if state.Status == constants.NodeStatusCompleted {
			duplicate = true
			return store.ErrNoChange
		}
		if state.Status != constants.NodeStatusWaitingForUser {
			return errNotAwaitingUser
		}

		t = e.newTransition(flow, run, logger)
		t.completeAndWalk(state, output, 0)
		t.finish()
		return nil
	})
	if err != nil {
		return nil, e.toServiceError(err, logger)
	}
	if duplicate {
		logger.Info("Duplicate submission absorbed")
		return run, nil
	}
	logger.Debug("Human gate completed", log.String("status", string(run.Status)))
	return e.applyEffects(ctx, run, t, logger), nil
}

// GetRun returns the persisted run.
func (e *Engine) GetRun(ctx context.Context, runID string) (*model.Run, *serviceerror.ServiceError) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, loggerComponentName),
		log.String(log.LoggerKeyRunID, runID))

	run, err := e.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, e.toServiceError(err, logger)
	}
	return run, nil
}

func (e *Engine) toServiceError(err error, logger *log.Logger) *serviceerror.ServiceError {
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		return &constants.ErrorRunNotFound
	case errors.Is(err, errInstanceNotFound):
		return &constants.ErrorNodeInstanceNotFound
	case errors.Is(err, errNotAwaitingCallback):
		return &constants.ErrorNodeNotAwaitingCallback
	case errors.Is(err, errNotAwaitingUser):
		return &constants.ErrorNodeNotAwaitingUser
	case errors.Is(err, errFlowNotFound):
		return &constants.ErrorFlowNotFound
	case errors.Is(err, store.ErrConcurrencyConflict):
		logger.Error("Run update kept conflicting", log.Error(err))
		return &constants.ErrorRunUpdateConflict
	default:
		logger.Error("Run store failure", log.Error(err))
		return &constants.ErrorRunStoreFailure
	}
}
