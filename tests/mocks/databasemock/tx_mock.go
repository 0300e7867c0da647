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

package databasemock

import (
	"github.com/asgardeo/waypoint/internal/system/database/client"
	"github.com/asgardeo/waypoint/internal/system/database/model"
)

// MockTx is a mock implementation of the TransactionInterface.
type MockTx struct {
	// MockQuery defines the behavior for the Query method.
	MockQuery func(query model.DBQuery, args ...interface{}) ([]map[string]interface{}, error)

	// MockExecute defines the behavior for the Execute method.
	MockExecute func(query model.DBQuery, args ...interface{}) (int64, error)

	// QueryCalls tracks the arguments passed to Query.
	QueryCalls []QueryCall

	// ExecuteCalls tracks the arguments passed to Execute.
	ExecuteCalls []QueryCall

	// Committed is set once Commit is called.
	Committed bool

	// RolledBack is set once Rollback is called.
	RolledBack bool
}

var _ client.TransactionInterface = (*MockTx)(nil)

// Query mocks the Query method of the TransactionInterface.
func (m *MockTx) Query(query model.DBQuery, args ...interface{}) ([]map[string]interface{}, error) {
	m.QueryCalls = append(m.QueryCalls, QueryCall{query, args})
	if m.MockQuery != nil {
		return m.MockQuery(query, args...)
	}
	return []map[string]interface{}{}, nil
}

// Execute mocks the Execute method of the TransactionInterface.
func (m *MockTx) Execute(query model.DBQuery, args ...interface{}) (int64, error) {
	m.ExecuteCalls = append(m.ExecuteCalls, QueryCall{query, args})
	if m.MockExecute != nil {
		return m.MockExecute(query, args...)
	}
	return 1, nil
}

// Commit mocks the Commit method of the TransactionInterface.
func (m *MockTx) Commit() error {
	m.Committed = true
	return nil
}

// Rollback mocks the Rollback method of the TransactionInterface.
func (m *MockTx) Rollback() error {
	m.RolledBack = true
	return nil
}
