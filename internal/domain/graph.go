package domain

import (
	"fmt"
	"time"
)

// Graph is the derived view for vis-network visualization
type Graph struct {
	Owner string      `json:"owner"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode represents a neuron in the visualization
type GraphNode struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Group     string    `json:"group"` // "refractory" or "resting"
	Title     string    `json:"title"` // Tooltip content
	Threshold float64   `json:"threshold"`
	Potential float64   `json:"potential"`
	Position  *Position `json:"position,omitempty"`
}

// GraphEdge represents a connection in the visualization
type GraphEdge struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// DeriveGraph converts the resident network into a vis-network compatible Graph
func DeriveGraph(net *Network, now time.Time) *Graph {
	graph := &Graph{
		Owner: net.Owner(),
		Nodes: make([]GraphNode, 0, net.Len()),
		Edges: make([]GraphEdge, 0),
	}

	for _, n := range net.Neurons() {
		group := "resting"
		if n.IsRefractory(now) {
			group = "refractory"
		}
		graph.Nodes = append(graph.Nodes, GraphNode{
			ID:        n.ID,
			Label:     ShortID(n.ID),
			Group:     group,
			Title:     buildTooltip(n),
			Threshold: n.Threshold,
			Potential: n.Potential,
			Position:  n.Position,
		})
	}

	for _, c := range net.Connections() {
		graph.Edges = append(graph.Edges, GraphEdge{
			ID:   c.FromID + "->" + c.ToID,
			From: c.FromID,
			To:   c.ToID,
		})
	}

	return graph
}

// ShortID returns the first six characters of an ID for display
func ShortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[:6]
}

func buildTooltip(n *Neuron) string {
	return fmt.Sprintf("%s\nthreshold %.3f\npotential %.3f\n%d outgoing",
		n.ID, n.Threshold, n.Potential, len(n.ConnectedTo))
}
