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

package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/asgardeo/waypoint/internal/system/config"
)

func TestSetupTracing_Disabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TracingConfig{}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInjectAndExtract(t *testing.T) {
	_, err := SetupTracing(context.Background(), config.TracingConfig{}, "test")
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, span := tp.Tracer("test").Start(context.Background(), "engine.start")
	defer span.End()

	headers := map[string][]string{}
	InjectHeaders(ctx, headers)
	require.NotEmpty(t, headers["Traceparent"])

	extracted := ExtractContext(context.Background(), headers)
	_, child := tp.Tracer("test").Start(extracted, "webhook.dispatch")
	child.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, span.SpanContext().TraceID(), ended[0].SpanContext().TraceID())
	assert.Equal(t, span.SpanContext().SpanID(), ended[0].Parent().SpanID())
}
