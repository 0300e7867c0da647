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

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	serverconst "github.com/asgardeo/waypoint/internal/system/constants"
	syshttp "github.com/asgardeo/waypoint/internal/system/http"
	"github.com/asgardeo/waypoint/internal/system/log"
	"github.com/asgardeo/waypoint/internal/system/tracing"
)

// maxErrorBodyBytes bounds how much of a failed worker response is kept in the error.
const maxErrorBodyBytes = 512

// DispatcherInterface fires outbound webhooks to workers.
type DispatcherInterface interface {
	Dispatch(ctx context.Context, url string, headers map[string]string, req OutboundRequest) error
}

// DispatchError describes a worker that could not be reached or rejected the request.
type DispatchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("webhook %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Dispatcher posts outbound requests with the shared HTTP client.
type Dispatcher struct {
	client syshttp.HTTPClientInterface
	tracer trace.Tracer
}

// NewDispatcher creates a dispatcher over the given HTTP client.
func NewDispatcher(client syshttp.HTTPClientInterface) *Dispatcher {
	return &Dispatcher{client: client, tracer: tracing.Tracer()}
}

// Dispatch posts the request as JSON. Any non-2xx response is a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, url string, headers map[string]string,
	req OutboundRequest) (err error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "WebhookDispatcher"),
		log.String(log.LoggerKeyRunID, req.RunID), log.String(log.LoggerKeyInstanceID, req.NodeID))

	ctx, span := d.tracer.Start(ctx, "webhook.dispatch", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("waypoint.run_id", req.RunID),
			attribute.String("waypoint.node_id", req.NodeID),
			attribute.String("http.url", url),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return &DispatchError{URL: url, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &DispatchError{URL: url, Err: err}
	}
	httpReq.Header.Set(serverconst.ContentTypeHeaderName, serverconst.ContentTypeJSON)
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	tracing.InjectHeaders(ctx, httpReq.Header)

	logger.Debug("Dispatching webhook", log.String("url", url))
	resp, err := d.client.Do(httpReq)
	if err != nil {
		return &DispatchError{URL: url, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("Error closing webhook response body", log.Error(closeErr))
		}
	}()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &DispatchError{URL: url, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
