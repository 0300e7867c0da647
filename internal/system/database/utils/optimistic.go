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

// Package utils provides helpers shared by the database backed stores.
package utils

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/asgardeo/waypoint/internal/system/config"
)

// ErrConcurrencyConflict is returned when a compare-and-swap lost against a concurrent writer.
var ErrConcurrencyConflict = errors.New("concurrent modification detected")

// ErrNoChange may be returned by a mutation to skip the write without failing the update.
var ErrNoChange = errors.New("no change")

// RetryPolicy bounds the retries of an optimistic update.
type RetryPolicy struct {
	MaxRetries      int
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when no store configuration is given.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      10,
		MaxElapsedTime:  5 * time.Second,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
	}
}

// RetryPolicyFromConfig builds a retry policy from the store configuration.
func RetryPolicyFromConfig(cfg config.StoreConfig) RetryPolicy {
	policy := DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	if cfg.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = time.Duration(cfg.MaxElapsedTime) * time.Millisecond
	}
	return policy
}

// RetryOnConflict runs attempt until it succeeds or fails with anything but ErrConcurrencyConflict.
// Conflicts are retried with jittered exponential backoff within the policy bounds.
func RetryOnConflict[T any](ctx context.Context, policy RetryPolicy, attempt func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval

	return backoff.Retry(ctx, func() (T, error) {
		result, err := attempt()
		if err != nil && !errors.Is(err, ErrConcurrencyConflict) {
			return result, backoff.Permanent(err)
		}
		return result, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(policy.MaxRetries)),
		backoff.WithMaxElapsedTime(policy.MaxElapsedTime),
	)
}
