// Package flow implements the post-convergence dispatch the network
// orchestrator hands off to once a major frame's minor-step loop confirms a
// solution: link outflow transport followed by node flow integration.
// Grounded on spec.md's "flow orchestrator" component and wired from
// network.Network.Step via the Orchestrator interface, the same way the
// teacher keeps device stepping and matrix solving as separate concerns
// the circuit ties together rather than folding into one method.
package flow

import (
	"github.com/nasa/gunns-sub009/pkg/link"
	"github.com/nasa/gunns-sub009/pkg/node"
)

// Orchestrator drives whatever must happen after a major frame's solution
// has converged, before the network reports success to its caller.
type Orchestrator interface {
	Update(dt float64) error
}

// Transporter is the optional capability a link implements to deliver its
// converged flow into node accumulators. Not every link needs one (a bare
// conductor has nothing to transport); links such as link.SourceBoundary and
// link.FireSource implement it.
type Transporter interface {
	TransportFlows(dt float64) error
}

// Default is the orchestrator Network uses unless the caller supplies its
// own: it transports every link's converged flow into the nodes first (so a
// node's accumulators hold the full picture for the frame), then integrates
// each node's net and through flux from those accumulators.
type Default struct {
	nodes []node.Node
	links []link.Link
}

// NewDefault builds the default flow orchestrator over the same node and
// link sets the network was initialized with.
func NewDefault(nodes []node.Node, links []link.Link) *Default {
	return &Default{nodes: nodes, links: links}
}

func (d *Default) Update(dt float64) error {
	for _, l := range d.links {
		if t, ok := l.(Transporter); ok {
			if err := t.TransportFlows(dt); err != nil {
				return err
			}
		}
	}
	for _, n := range d.nodes {
		n.IntegrateFlows(dt)
	}
	return nil
}
