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

// Package model defines the flow graph and run state models of the execution engine.
package model

import "encoding/json"

// Flow is an immutable, versioned graph of typed nodes and edges.
type Flow struct {
	ID          string
	Version     int
	Name        string
	StartNodeID string

	nodes     map[string]*Node
	edges     map[string]*Edge
	nodeOrder []string
	outgoing  map[string][]*Edge
	incoming  map[string][]*Edge
}

// NewFlow creates a flow from its nodes and edges. Edge order is preserved per source node.
func NewFlow(id string, version int, name string, nodes []*Node, edges []*Edge) *Flow {
	f := &Flow{
		ID:       id,
		Version:  version,
		Name:     name,
		nodes:    make(map[string]*Node, len(nodes)),
		edges:    make(map[string]*Edge, len(edges)),
		outgoing: make(map[string][]*Edge),
		incoming: make(map[string][]*Edge),
	}
	for _, n := range nodes {
		f.nodes[n.ID] = n
		f.nodeOrder = append(f.nodeOrder, n.ID)
	}
	for _, e := range edges {
		f.edges[e.ID] = e
		f.outgoing[e.Source] = append(f.outgoing[e.Source], e)
		f.incoming[e.Target] = append(f.incoming[e.Target], e)
	}
	return f
}

// GetNode returns the node with the given id.
func (f *Flow) GetNode(nodeID string) (*Node, bool) {
	n, ok := f.nodes[nodeID]
	return n, ok
}

// GetEdge returns the edge with the given id.
func (f *Flow) GetEdge(edgeID string) (*Edge, bool) {
	e, ok := f.edges[edgeID]
	return e, ok
}

// GetNodes returns the nodes in definition order.
func (f *Flow) GetNodes() []*Node {
	nodes := make([]*Node, 0, len(f.nodeOrder))
	for _, id := range f.nodeOrder {
		nodes = append(nodes, f.nodes[id])
	}
	return nodes
}

// OutgoingEdges returns the edges sourced at the node in definition order.
func (f *Flow) OutgoingEdges(nodeID string) []*Edge {
	return f.outgoing[nodeID]
}

// IncomingEdges returns the edges targeting the node in definition order.
func (f *Flow) IncomingEdges(nodeID string) []*Edge {
	return f.incoming[nodeID]
}

// ToJSON returns a JSON rendering of the flow for debug logging.
func (f *Flow) ToJSON() (string, error) {
	edges := make([]*Edge, 0, len(f.edges))
	for _, id := range f.nodeOrder {
		edges = append(edges, f.outgoing[id]...)
	}
	data, err := json.Marshal(struct {
		ID          string  `json:"id"`
		Version     int     `json:"version"`
		StartNodeID string  `json:"startNodeId"`
		Nodes       []*Node `json:"nodes"`
		Edges       []*Edge `json:"edges"`
	}{f.ID, f.Version, f.StartNodeID, f.GetNodes(), edges})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
