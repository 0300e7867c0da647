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

// Package service provides health check-related business logic and operations.
package service

import (
	"context"
	"errors"
	"time"

	dbmodel "github.com/asgardeo/waypoint/internal/system/database/model"
	"github.com/asgardeo/waypoint/internal/system/database/provider"
	"github.com/asgardeo/waypoint/internal/system/healthcheck/model"
	"github.com/asgardeo/waypoint/internal/system/log"
)

const probeTimeout = 3 * time.Second

var queryRuntimeDBTable = dbmodel.DBQuery{
	ID:          "HLC-00001",
	Query:       "SELECT RUN_ID FROM FLOW_RUN FETCH FIRST 1 ROWS ONLY",
	SQLiteQuery: "SELECT RUN_ID FROM FLOW_RUN LIMIT 1",
}

// Probe checks a single dependency of the server.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthCheckServiceInterface defines the interface for the health check service.
type HealthCheckServiceInterface interface {
	CheckReadiness(ctx context.Context) model.ServerStatus
}

// HealthCheckService is the default implementation of the HealthCheckServiceInterface.
type HealthCheckService struct {
	probes []Probe
}

// NewHealthCheckService creates a health check service over the given probes.
func NewHealthCheckService(probes ...Probe) HealthCheckServiceInterface {
	return &HealthCheckService{probes: probes}
}

// RuntimeDBProbe returns a probe that queries the run table of the runtime database.
// A memory data source has no database to probe and always reports up.
func RuntimeDBProbe(dbProvider provider.DBProviderInterface) Probe {
	return Probe{
		Name: "RuntimeDB",
		Check: func(ctx context.Context) error {
			dbClient, err := dbProvider.GetDBClient(provider.RuntimeDB)
			if errors.Is(err, provider.ErrNoDatabase) {
				return nil
			}
			if err != nil {
				return err
			}
			_, err = dbClient.Query(ctx, queryRuntimeDBTable)
			return err
		},
	}
}

// CheckReadiness checks the readiness of the server and its dependencies.
func (hcs *HealthCheckService) CheckReadiness(ctx context.Context) model.ServerStatus {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "HealthCheckService"))

	status := model.StatusUp
	statuses := make([]model.ServiceStatus, 0, len(hcs.probes))
	for _, probe := range hcs.probes {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := probe.Check(probeCtx)
		cancel()

		probeStatus := model.StatusUp
		if err != nil {
			logger.Error("Readiness probe failed", log.String("probe", probe.Name), log.Error(err))
			probeStatus = model.StatusDown
			status = model.StatusDown
		}
		statuses = append(statuses, model.ServiceStatus{ServiceName: probe.Name, Status: probeStatus})
	}

	return model.ServerStatus{
		Status:        status,
		ServiceStatus: statuses,
	}
}
