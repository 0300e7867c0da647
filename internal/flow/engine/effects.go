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

package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/asgardeo/waypoint/internal/flow/constants"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/flow/store"
	"github.com/asgardeo/waypoint/internal/flow/webhook"
	"github.com/asgardeo/waypoint/internal/system/error/serviceerror"
	"github.com/asgardeo/waypoint/internal/system/log"
	"github.com/asgardeo/waypoint/internal/system/messaging"
)

// applyEffects runs the effects of a committed transition and returns the latest run.
// Entity movements are applied in the order they were caused. Webhooks fire in parallel and are
// not cancelled with the inbound request, since their instances are already persisted as running.
func (e *Engine) applyEffects(ctx context.Context, run *model.Run, t *transition, logger *log.Logger) *model.Run {
	if t == nil {
		return run
	}
	e.publishEvents(ctx, t.events)

	if e.mover != nil {
		for _, cmd := range t.moves {
			if svcErr := e.mover.ApplyMove(ctx, cmd); svcErr != nil {
				logger.Error("Failed to move entity", log.String(log.LoggerKeyEntityID, cmd.EntityID),
					log.String(log.LoggerKeyNodeID, cmd.NodeID), log.String("code", svcErr.Code))
			}
		}
	}

	if len(t.dispatches) == 0 {
		return run
	}

	dispatchCtx := context.WithoutCancel(ctx)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed = map[string]error{}
	)
	for _, d := range t.dispatches {
		wg.Add(1)
		go func(d dispatch) {
			defer wg.Done()
			if err := e.dispatcher.Dispatch(dispatchCtx, d.url, d.headers, d.request); err != nil {
				logger.Warn("Webhook dispatch failed", log.String(log.LoggerKeyInstanceID, d.instanceID),
					log.Error(err))
				mu.Lock()
				failed[d.instanceID] = err
				mu.Unlock()
			}
		}(d)
	}
	wg.Wait()

	if len(failed) == 0 {
		return run
	}
	if updated := e.recordDispatchFailures(dispatchCtx, run.ID, failed, logger); updated != nil {
		return updated
	}
	return run
}

// recordDispatchFailures marks instances whose webhook could not be delivered as failed.
// An instance whose callback already arrived keeps its state.
func (e *Engine) recordDispatchFailures(ctx context.Context, runID string, failed map[string]error,
	logger *log.Logger) *model.Run {
	var events []model.NodeEvent
	run, err := e.runs.UpdateRun(ctx, runID, func(run *model.Run) error {
		events = nil
		flow, ok := e.flows.GetFlowVersion(run.FlowID, run.FlowVersion)
		if !ok {
			return errFlowNotFound
		}
		t := e.newTransition(flow, run, logger)
		for instanceID, cause := range failed {
			state, ok := run.NodeStates[instanceID]
			if !ok || state.Status != constants.NodeStatusRunning {
				continue
			}
			t.markFailed(state, serviceerror.KindWorkerFailure, dispatchErrorPayload(cause))
		}
		if len(t.events) == 0 {
			return store.ErrNoChange
		}
		t.finish()
		events = t.events
		return nil
	})
	if err != nil {
		logger.Error("Failed to record webhook dispatch failure", log.Error(err))
		return nil
	}
	e.publishEvents(ctx, events)
	return run
}

func (e *Engine) publishEvents(ctx context.Context, events []model.NodeEvent) {
	for _, event := range events {
		subject := messaging.RunNodeSubject(e.subjectPrefix, event.RunID)
		if err := e.publisher.Publish(ctx, subject, event); err != nil {
			log.GetLogger().Warn("Failed to publish node event",
				log.String(log.LoggerKeyComponentName, loggerComponentName),
				log.String(log.LoggerKeyRunID, event.RunID), log.Error(err))
		}
	}
}

func dispatchErrorPayload(err error) map[string]any {
	payload := errorPayload(err.Error())
	var dispatchErr *webhook.DispatchError
	if errors.As(err, &dispatchErr) && dispatchErr.StatusCode != 0 {
		payload["statusCode"] = dispatchErr.StatusCode
	}
	return payload
}
