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

package store

import (
	"github.com/asgardeo/waypoint/internal/system/database/model"
)

var (
	// QueryCreateRun is the query to create a new run.
	QueryCreateRun = model.DBQuery{
		ID: "FLQ-FLOW_RUN-01",
		Query: "INSERT INTO FLOW_RUN (RUN_ID, FLOW_ID, FLOW_VERSION, STATUS, ENTITY_ID, RUN_DOC, VERSION) " +
			"VALUES ($1, $2, $3, $4, $5, $6, $7)",
	}

	// QueryGetRun is the query to get a run with its version.
	QueryGetRun = model.DBQuery{
		ID:    "FLQ-FLOW_RUN-02",
		Query: "SELECT RUN_ID, RUN_DOC, VERSION FROM FLOW_RUN WHERE RUN_ID = $1",
	}

	// QueryUpdateRun is the compare-and-swap query to update a run at an expected version.
	QueryUpdateRun = model.DBQuery{
		ID: "FLQ-FLOW_RUN-03",
		Query: "UPDATE FLOW_RUN SET STATUS = $1, ENTITY_ID = $2, RUN_DOC = $3, VERSION = $4, " +
			"UPDATED_AT = CURRENT_TIMESTAMP WHERE RUN_ID = $5 AND VERSION = $6",
	}
)
