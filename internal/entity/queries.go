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

package entity

import (
	"github.com/asgardeo/waypoint/internal/system/database/model"
)

var (
	// QueryCreateEntity is the query to create a new entity.
	QueryCreateEntity = model.DBQuery{
		ID: "ENQ-ENTITY-01",
		Query: "INSERT INTO ENTITY (ENTITY_ID, CANVAS_ID, EMAIL_KEY, STATUS, ENTITY_DOC, VERSION) " +
			"VALUES ($1, $2, $3, $4, $5, $6)",
	}

	// QueryGetEntity is the query to get an entity with its version.
	QueryGetEntity = model.DBQuery{
		ID:    "ENQ-ENTITY-02",
		Query: "SELECT ENTITY_ID, ENTITY_DOC, VERSION FROM ENTITY WHERE ENTITY_ID = $1",
	}

	// QueryGetEntityByEmail is the query to find an entity of a canvas by its normalised email.
	QueryGetEntityByEmail = model.DBQuery{
		ID:    "ENQ-ENTITY-03",
		Query: "SELECT ENTITY_ID, ENTITY_DOC, VERSION FROM ENTITY WHERE CANVAS_ID = $1 AND EMAIL_KEY = $2",
	}

	// QueryUpdateEntity is the compare-and-swap query to update an entity at an expected version.
	QueryUpdateEntity = model.DBQuery{
		ID: "ENQ-ENTITY-04",
		Query: "UPDATE ENTITY SET STATUS = $1, ENTITY_DOC = $2, VERSION = $3, UPDATED_AT = CURRENT_TIMESTAMP " +
			"WHERE ENTITY_ID = $4 AND VERSION = $5",
	}

	// QueryInsertJourneyEvent is the query to append a journey event.
	QueryInsertJourneyEvent = model.DBQuery{
		ID: "ENQ-JOURNEY-01",
		Query: "INSERT INTO ENTITY_JOURNEY_EVENT (ENTITY_ID, SEQ, EVENT_TYPE, EVENT_DOC) " +
			"VALUES ($1, $2, $3, $4)",
	}

	// QueryGetJourney is the query to get the journey of an entity in causal order.
	QueryGetJourney = model.DBQuery{
		ID:    "ENQ-JOURNEY-02",
		Query: "SELECT SEQ, EVENT_DOC FROM ENTITY_JOURNEY_EVENT WHERE ENTITY_ID = $1 ORDER BY SEQ",
	}
)
