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

// Package http provides the HTTP client used for outbound worker webhooks.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/asgardeo/waypoint/internal/system/config"
)

const (
	defaultTimeout      = 30 * time.Second
	maxIdleConnsPerHost = 32
	idleConnTimeout     = 90 * time.Second
)

// errRedirect is returned when a worker answers a webhook with a redirect.
var errRedirect = errors.New("webhook redirects are not followed")

// HTTPClientInterface defines the interface for HTTP client operations.
type HTTPClientInterface interface {
	// Do executes an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient implements HTTPClientInterface over a pooled http.Client.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a new HTTPClient with the default timeout.
func NewHTTPClient() HTTPClientInterface {
	return NewHTTPClientWithTimeout(defaultTimeout)
}

// NewWebhookClient creates the client for worker dispatches from the webhook configuration.
func NewWebhookClient(cfg config.WebhookConfig) HTTPClientInterface {
	if cfg.Timeout <= 0 {
		return NewHTTPClient()
	}
	return NewHTTPClientWithTimeout(time.Duration(cfg.Timeout) * time.Second)
}

// NewHTTPClientWithTimeout creates a new HTTPClient with a custom timeout. Redirects are never
// followed, since a redirected POST would silently change into a GET.
func NewHTTPClientWithTimeout(timeout time.Duration) HTTPClientInterface {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = maxIdleConnsPerHost
	transport.IdleConnTimeout = idleConnTimeout

	return &HTTPClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return errRedirect
			},
		},
	}
}

// Do executes an HTTP request and returns an HTTP response.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}
