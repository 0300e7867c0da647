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

// Package flowmgt provides the flow management service implementation.
package flowmgt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/asgardeo/waypoint/internal/flow/jsonmodel"
	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/system/config"
	"github.com/asgardeo/waypoint/internal/system/log"
)

var (
	flowMgtInstance *FlowMgtService
	flowMgtOnce     sync.Once
)

// FlowMgtServiceInterface defines the interface for the flow management service.
type FlowMgtServiceInterface interface {
	Init() error
	RegisterFlow(flow *model.Flow)
	GetFlow(flowID string) (*model.Flow, bool)
	GetFlowVersion(flowID string, version int) (*model.Flow, bool)
}

// FlowMgtService is the implementation of FlowMgtServiceInterface.
type FlowMgtService struct {
	flows  map[string]map[int]*model.Flow
	latest map[string]*model.Flow
	mu     sync.RWMutex
}

// GetFlowMgtService returns a singleton instance of FlowMgtServiceInterface.
func GetFlowMgtService() FlowMgtServiceInterface {
	flowMgtOnce.Do(func() {
		flowMgtInstance = NewFlowMgtService()
	})
	return flowMgtInstance
}

// NewFlowMgtService creates an empty flow management service.
func NewFlowMgtService() *FlowMgtService {
	return &FlowMgtService{
		flows:  make(map[string]map[int]*model.Flow),
		latest: make(map[string]*model.Flow),
	}
}

// Init initializes the FlowMgtService by loading flow definitions into runtime.
func (s *FlowMgtService) Init() error {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "FlowMgtService"))
	logger.Debug("Initializing the flow management service")

	runtime := config.GetServerRuntime()
	configDir := runtime.Config.Flow.GraphDirectory
	if configDir == "" {
		logger.Info("Graph directory is not set. No flows will be loaded.")
		return nil
	}
	if !filepath.IsAbs(configDir) {
		configDir = filepath.Join(runtime.ServerHome, configDir)
	}
	configDir = filepath.Clean(configDir)

	logger.Debug("Loading flows from config directory", log.String("configDir", configDir))

	files, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("Config directory does not exist. No flows will be loaded.",
				log.String("configDir", configDir))
			return nil
		}
		return fmt.Errorf("failed to read config directory %s: %w", configDir, err)
	}

	loaded := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			logger.Debug("Skipping non-JSON file or directory",
				log.String("fileName", file.Name()), log.Bool("isDir", file.IsDir()))
			continue
		}
		filePath := filepath.Clean(filepath.Join(configDir, file.Name()))

		fileContent, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn("Failed to read flow file", log.String("filePath", filePath), log.Error(err))
			continue
		}

		var def jsonmodel.FlowDefinition
		if err := json.Unmarshal(fileContent, &def); err != nil {
			logger.Warn("Failed to parse JSON in file", log.String("filePath", filePath), log.Error(err))
			continue
		}

		flow, err := BuildFlowFromDefinition(&def)
		if err != nil {
			logger.Warn("Failed to convert flow definition to flow model",
				log.String("filePath", filePath), log.Error(err))
			continue
		}

		if logger.IsDebugEnabled() {
			if jsonString, err := flow.ToJSON(); err == nil {
				logger.Debug("Flow model loaded successfully", log.String(log.LoggerKeyFlowID, flow.ID),
					log.Int("version", flow.Version), log.String("json", jsonString))
			}
		}

		s.RegisterFlow(flow)
		loaded++
	}

	logger.Debug("Flow management service initialized successfully", log.Int("flowCount", loaded))
	return nil
}

// RegisterFlow registers a flow version. A registered version is never replaced.
func (s *FlowMgtService) RegisterFlow(flow *model.Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, ok := s.flows[flow.ID]
	if !ok {
		versions = make(map[int]*model.Flow)
		s.flows[flow.ID] = versions
	}
	if _, exists := versions[flow.Version]; exists {
		log.GetLogger().Warn("Ignoring duplicate flow version", log.String(log.LoggerKeyFlowID, flow.ID),
			log.Int("version", flow.Version))
		return
	}
	versions[flow.Version] = flow

	if current, ok := s.latest[flow.ID]; !ok || flow.Version > current.Version {
		s.latest[flow.ID] = flow
	}
}

// GetFlow returns the latest version of a flow.
func (s *FlowMgtService) GetFlow(flowID string) (*model.Flow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flow, ok := s.latest[flowID]
	return flow, ok
}

// GetFlowVersion returns a specific version of a flow.
func (s *FlowMgtService) GetFlowVersion(flowID string, version int) (*model.Flow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flow, ok := s.flows[flowID][version]
	return flow, ok
}
