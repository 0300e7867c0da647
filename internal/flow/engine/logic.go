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

package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/asgardeo/waypoint/internal/flow/model"
	"github.com/asgardeo/waypoint/internal/system/cache"
	"github.com/asgardeo/waypoint/internal/system/config"
)

const (
	conditionCacheName = "LogicConditionCache"
	conditionTimeout   = 100 * time.Millisecond
)

// errNoRoute is returned when a logic node has no branch, default or single edge to take.
var errNoRoute = errors.New("no condition matched and no default edge is configured")

// conditionEvaluator evaluates logic node conditions as JavaScript expressions.
// Each evaluation runs in a fresh runtime, compiled programs are shared through a cache.
type conditionEvaluator struct {
	programs cache.CacheInterface[*goja.Program]
}

func newConditionEvaluator(cacheConfig config.CacheConfig) *conditionEvaluator {
	return &conditionEvaluator{
		programs: cache.GetCache[*goja.Program](conditionCacheName, cacheConfig.ConditionPrograms,
			cacheConfig.Disabled),
	}
}

// route returns the edge a logic node continues on: the first truthy branch, else the default edge,
// else the only outgoing edge.
func (c *conditionEvaluator) route(cfg model.LogicConfig, outgoing []*model.Edge,
	globals map[string]any) (string, error) {
	for _, branch := range cfg.Branches {
		ok, err := c.evaluate(branch.Condition, globals)
		if err != nil {
			return "", fmt.Errorf("condition for edge %s: %w", branch.EdgeID, err)
		}
		if ok {
			return branch.EdgeID, nil
		}
	}
	if cfg.DefaultEdgeID != "" {
		return cfg.DefaultEdgeID, nil
	}
	if len(outgoing) == 1 {
		return outgoing[0].ID, nil
	}
	return "", errNoRoute
}

// evaluate runs a condition expression and reports its truthiness.
func (c *conditionEvaluator) evaluate(expression string, globals map[string]any) (bool, error) {
	program, err := c.compile(expression)
	if err != nil {
		return false, err
	}

	vm := goja.New()
	for _, name := range []string{"eval", "Function"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return false, err
		}
	}
	for name, value := range globals {
		if err := vm.Set(name, value); err != nil {
			return false, fmt.Errorf("failed to set %s: %w", name, err)
		}
	}

	timer := time.AfterFunc(conditionTimeout, func() {
		vm.Interrupt("condition timed out")
	})
	defer timer.Stop()

	value, err := vm.RunProgram(program)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return false, fmt.Errorf("condition timed out after %s", conditionTimeout)
		}
		return false, fmt.Errorf("condition failed: %w", err)
	}
	return value.ToBoolean(), nil
}

func (c *conditionEvaluator) compile(expression string) (*goja.Program, error) {
	key := cache.CacheKey{Key: expression}
	if program, ok := c.programs.Get(key); ok {
		return program, nil
	}
	program, err := goja.Compile("condition", "("+expression+")", false)
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", expression, err)
	}
	c.programs.Set(key, program)
	return program, nil
}
