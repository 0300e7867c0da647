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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// SignatureQueryParam is the callback URL query parameter carrying the signature.
const SignatureQueryParam = "sig"

// CallbackSigner builds callback URLs and verifies the signatures they carry.
// Without a secret callbacks are unsigned and every signature verifies.
type CallbackSigner struct {
	baseURL string
	secret  []byte
}

// NewCallbackSigner creates a signer for callback URLs under baseURL.
func NewCallbackSigner(baseURL, secret string) *CallbackSigner {
	s := &CallbackSigner{baseURL: strings.TrimRight(baseURL, "/")}
	if secret != "" {
		s.secret = []byte(secret)
	}
	return s
}

// CallbackURL returns the URL a worker posts its result to.
func (s *CallbackSigner) CallbackURL(runID, instanceID string) string {
	u := s.baseURL + "/callback/" + url.PathEscape(runID) + "/" + url.PathEscape(instanceID)
	if s.secret == nil {
		return u
	}
	return u + "?" + SignatureQueryParam + "=" + s.Sign(runID, instanceID)
}

// Sign returns the hex encoded HMAC-SHA256 of runID/instanceID.
func (s *CallbackSigner) Sign(runID, instanceID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(runID + "/" + instanceID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is valid for the callback.
func (s *CallbackSigner) Verify(runID, instanceID, signature string) bool {
	if s.secret == nil {
		return true
	}
	expected, err := hex.DecodeString(s.Sign(runID, instanceID))
	if err != nil {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, provided)
}

// IsEnabled reports whether callbacks are signed.
func (s *CallbackSigner) IsEnabled() bool {
	return s.secret != nil
}
