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

package log

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// routeFields maps a route prefix to the logger keys of the path segments that follow it.
var routeFields = map[string][]string{
	"callback": {LoggerKeyRunID, LoggerKeyInstanceID},
	"complete": {LoggerKeyRunID, LoggerKeyNodeID},
	"status":   {LoggerKeyRunID},
	"start":    {LoggerKeyFlowID},
	"entities": {LoggerKeyEntityID},
	"ingest":   {LoggerKeySlug},
}

// AccessLogHandler logs HTTP requests in Apache CLF with response time. Requests on run, entity and
// ingestion routes also carry the ids found in their path, and 5xx responses are logged as warnings.
func AccessLogHandler(logger *Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)

		elapsedMs := time.Since(start).Milliseconds()

		host, _, _ := net.SplitHostPort(r.RemoteAddr)
		if host == "" {
			host = r.RemoteAddr
		}

		// Last %d is the response time in milliseconds.
		msg := fmt.Sprintf(
			`%s - - [%s] "%s %s %s" %d %d %d`,
			host,
			start.Format("02/Jan/2006:15:04:05 -0700"),
			r.Method,
			r.RequestURI,
			r.Proto,
			lrw.statusCode,
			lrw.size,
			elapsedMs,
		)
		fields := pathFields(r.URL.Path)
		if lrw.statusCode >= http.StatusInternalServerError {
			logger.Warn(msg, fields...)
			return
		}
		logger.Info(msg, fields...)
	})
}

// pathFields extracts the ids of a known route, e.g. runId and instanceId from /callback/{run}/{inst}.
func pathFields(path string) []Field {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	keys, ok := routeFields[segments[0]]
	if !ok {
		return nil
	}
	var fields []Field
	for i, key := range keys {
		if i+1 >= len(segments) || segments[i+1] == "" {
			break
		}
		fields = append(fields, String(key, segments[i+1]))
	}
	return fields
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

// WriteHeader captures the status code and delegates to the original ResponseWriter.
func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Write captures the size of the response and delegates to the original ResponseWriter.
func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := lrw.ResponseWriter.Write(b)
	lrw.size += size
	return size, err
}
