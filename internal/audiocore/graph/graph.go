// Package graph wires sources, processors, and sinks into a directed
// acyclic processing pipeline with pull scheduling.
//
// One driver goroutine calls ProcessOnce repeatedly; each call walks the
// nodes in topological order, moving at most one buffer per producing
// node. Capture callbacks never enter the graph, they only fill the
// per-source rings that Read drains.
package graph

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/errors"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/logging"
)

// DefaultMaxQueueSize bounds each producing node's buffer queue.
const DefaultMaxQueueSize = 64

// NodeID identifies a node within one graph.
type NodeID string

func newNodeID(name string) NodeID {
	return NodeID(fmt.Sprintf("%s-%s", name, uuid.NewString()[:8]))
}

// State is the graph lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

type nodeKind uint8

const (
	kindSource nodeKind = iota
	kindProcessor
	kindSink
)

type node struct {
	id        NodeID
	kind      nodeKind
	source    audiocore.Source
	processor audiocore.Processor
	sink      audiocore.Sink
}

func (n *node) name() string {
	switch n.kind {
	case kindSource:
		return n.source.Name()
	case kindProcessor:
		return n.processor.Name()
	default:
		return n.sink.Name()
	}
}

type edge struct {
	from NodeID
	to   NodeID
}

// Config tunes a graph.
type Config struct {
	// MaxQueueSize bounds each producing node's queue. Zero selects
	// DefaultMaxQueueSize.
	MaxQueueSize int
	// Metrics receives per-node counters. Nil selects a no-op collector.
	Metrics audiocore.MetricsCollector
	// Logger overrides the package logger. Nil selects the service logger.
	Logger *slog.Logger
}

// Graph owns its nodes and edges. All methods are safe for concurrent
// use, but processing is designed for a single driver goroutine.
type Graph struct {
	mu       sync.Mutex
	nodes    map[NodeID]*node
	edges    []edge
	order    []NodeID
	queues   map[NodeID][]*audiocore.AudioBuffer
	maxQueue int
	state    State
	metrics  audiocore.MetricsCollector
	log      *slog.Logger
}

// New creates an empty graph.
func New(cfg Config) *Graph {
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = DefaultMaxQueueSize
	}
	if cfg.Metrics == nil {
		cfg.Metrics = audiocore.NoopMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.ForService("audiocore.graph")
	}
	return &Graph{
		nodes:    make(map[NodeID]*node),
		queues:   make(map[NodeID][]*audiocore.AudioBuffer),
		maxQueue: cfg.MaxQueueSize,
		state:    StateIdle,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
	}
}

// State returns the current lifecycle state.
func (g *Graph) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsActive reports whether the graph is processing.
func (g *Graph) IsActive() bool {
	return g.State() == StateActive
}

// NodeCount returns the number of registered nodes.
func (g *Graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// EdgeCount returns the number of connections.
func (g *Graph) EdgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.edges)
}

// QueueLen returns how many buffers wait on a producing node's queue.
func (g *Graph) QueueLen(id NodeID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queues[id])
}

func (g *Graph) structuralErr(op string) error {
	return errors.Newf("%s is not permitted while the graph is %s", op, g.state).
		Component("audiocore.graph").
		Category(errors.CategoryState).
		Build()
}

// AddSource registers a source node and returns its id.
func (g *Graph) AddSource(s audiocore.Source) (NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateActive {
		return "", g.structuralErr("add_source")
	}
	id := newNodeID(s.Name())
	g.nodes[id] = &node{id: id, kind: kindSource, source: s}
	return id, nil
}

// AddProcessor registers a processor node and returns its id.
func (g *Graph) AddProcessor(p audiocore.Processor) (NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateActive {
		return "", g.structuralErr("add_processor")
	}
	id := newNodeID(p.Name())
	g.nodes[id] = &node{id: id, kind: kindProcessor, processor: p}
	return id, nil
}

// AddSink registers a sink node and returns its id.
func (g *Graph) AddSink(s audiocore.Sink) (NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateActive {
		return "", g.structuralErr("add_sink")
	}
	id := newNodeID(s.Name())
	g.nodes[id] = &node{id: id, kind: kindSink, sink: s}
	return id, nil
}

// Connect adds a directed edge from one node to another. Unknown
// endpoints, duplicate edges, and edges that would close a cycle are
// rejected.
func (g *Graph) Connect(from, to NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateActive {
		return g.structuralErr("connect")
	}
	if _, ok := g.nodes[from]; !ok {
		return errors.Newf("connect: unknown node %q", from).
			Component("audiocore.graph").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if _, ok := g.nodes[to]; !ok {
		return errors.Newf("connect: unknown node %q", to).
			Component("audiocore.graph").
			Category(errors.CategoryConfiguration).
			Build()
	}
	for _, e := range g.edges {
		if e.from == from && e.to == to {
			return errors.Newf("connect: edge %q -> %q already exists", from, to).
				Component("audiocore.graph").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}

	// Add tentatively, roll back if the edge closes a cycle.
	g.edges = append(g.edges, edge{from: from, to: to})
	if g.hasCycle() {
		g.edges = g.edges[:len(g.edges)-1]
		return errors.Newf("connect: edge %q -> %q would create a cycle", from, to).
			Component("audiocore.graph").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// Disconnect removes a directed edge.
func (g *Graph) Disconnect(from, to NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateActive {
		return g.structuralErr("disconnect")
	}
	for i, e := range g.edges {
		if e.from == from && e.to == to {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return nil
		}
	}
	return errors.Newf("disconnect: no edge %q -> %q", from, to).
		Component("audiocore.graph").
		Category(errors.CategoryConfiguration).
		Build()
}

// RemoveNode unregisters a node and every edge touching it.
func (g *Graph) RemoveNode(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateActive {
		return g.structuralErr("remove_node")
	}
	if _, ok := g.nodes[id]; !ok {
		return errors.Newf("remove_node: unknown node %q", id).
			Component("audiocore.graph").
			Category(errors.CategoryConfiguration).
			Build()
	}

	delete(g.nodes, id)
	delete(g.queues, id)
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.from != id && e.to != id {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	return nil
}

// Start validates the topology, starts every source, and transitions to
// Active. Starting an already active graph is a no-op success.
func (g *Graph) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateActive {
		return nil
	}

	var sources, sinks int
	for _, n := range g.nodes {
		switch n.kind {
		case kindSource:
			sources++
		case kindSink:
			sinks++
		}
	}
	if sources == 0 {
		return errors.Newf("graph needs at least one source").
			Component("audiocore.graph").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if sinks == 0 {
		return errors.Newf("graph needs at least one sink").
			Component("audiocore.graph").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if g.hasCycle() {
		return errors.Newf("graph contains a cycle").
			Component("audiocore.graph").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if unreached := g.unreachable(); len(unreached) > 0 {
		return errors.Newf("nodes not reachable from any source: %v", unreached).
			Component("audiocore.graph").
			Category(errors.CategoryConfiguration).
			Build()
	}

	g.order = g.topologicalOrder()
	g.state = StateStarting

	for _, id := range g.order {
		n := g.nodes[id]
		if n.kind != kindSource {
			continue
		}
		if err := n.source.Start(); err != nil {
			// Sources already started stay up so the caller can
			// inspect and then call Stop.
			g.state = StateError
			g.log.Error("source start failed",
				"node", string(id), "source", n.name(), "error", err)
			return err
		}
	}

	g.state = StateActive
	g.log.Info("graph started",
		"nodes", len(g.nodes), "edges", len(g.edges), "max_queue", g.maxQueue)
	return nil
}

// Stop walks the processing order in reverse, stopping sources and
// flushing sinks. Stop is a cleanup path: failures are logged and the
// walk continues. Edge queues are cleared and the graph returns to Idle.
func (g *Graph) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateIdle {
		return nil
	}
	g.state = StateStopping

	for i := len(g.order) - 1; i >= 0; i-- {
		n, ok := g.nodes[g.order[i]]
		if !ok {
			continue
		}
		switch n.kind {
		case kindSource:
			if err := n.source.Stop(); err != nil {
				g.log.Warn("source stop failed",
					"node", string(n.id), "source", n.name(), "error", err)
			}
		case kindSink:
			if err := n.sink.Flush(); err != nil {
				g.log.Warn("sink flush failed",
					"node", string(n.id), "sink", n.name(), "error", err)
			}
		}
	}

	for id := range g.queues {
		delete(g.queues, id)
	}
	g.state = StateIdle
	g.log.Info("graph stopped")
	return nil
}

// upstreamsOf returns the producing node ids feeding id, in edge
// insertion order.
func (g *Graph) upstreamsOf(id NodeID) []NodeID {
	var ups []NodeID
	for _, e := range g.edges {
		if e.to == id {
			ups = append(ups, e.from)
		}
	}
	return ups
}

func (g *Graph) enqueue(id NodeID, buf *audiocore.AudioBuffer, n *node) error {
	if len(g.queues[id]) >= g.maxQueue {
		g.metrics.RecordBufferDropped(n.name())
		return errors.Newf("queue overflow for %s (%s)", n.name(), id).
			Component("audiocore.graph").
			Category(errors.CategoryBuffer).
			Context("max_queue", g.maxQueue).
			Build()
	}
	g.queues[id] = append(g.queues[id], buf)
	g.metrics.RecordQueueUsage(n.name(), float64(len(g.queues[id]))/float64(g.maxQueue))
	return nil
}

// ProcessOnce pulls at most one buffer through every node. It reports
// whether any buffer moved. Errors abort the iteration; queued buffers
// stay where they are.
func (g *Graph) ProcessOnce() (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateActive {
		return false, errors.Newf("graph is %s, not active", g.state).
			Component("audiocore.graph").
			Category(errors.CategoryState).
			Build()
	}

	active := false
	for _, id := range g.order {
		n := g.nodes[id]
		switch n.kind {
		case kindSource:
			buf, err := n.source.Read()
			if err != nil {
				return active, err
			}
			if buf == nil {
				continue
			}
			if err := g.enqueue(id, buf, n); err != nil {
				return active, err
			}
			active = true

		case kindProcessor:
			out, consumed, err := g.stepProcessor(n)
			if err != nil {
				return active, err
			}
			if !consumed {
				continue
			}
			active = true
			if out == nil {
				continue
			}
			if err := g.enqueue(id, out, n); err != nil {
				return active, err
			}

		case kindSink:
			for _, up := range g.upstreamsOf(id) {
				// Pop only after a successful write so a failing sink
				// leaves the unwritten tail queued for the next pass.
				for len(g.queues[up]) > 0 {
					buf := g.queues[up][0]
					if err := n.sink.Write(buf); err != nil {
						return active, err
					}
					g.queues[up] = g.queues[up][1:]
					g.metrics.RecordBufferProcessed(n.name(), len(buf.Samples))
					active = true
				}
			}
		}
	}
	return active, nil
}

// stepProcessor pops inputs for one processor node and runs it. Multi
// input processors wait until every upstream queue holds a buffer so no
// stream is consumed without its peers.
func (g *Graph) stepProcessor(n *node) (*audiocore.AudioBuffer, bool, error) {
	ups := g.upstreamsOf(n.id)
	if len(ups) == 0 {
		return nil, false, nil
	}

	multi, isMulti := n.processor.(audiocore.MultiInputProcessor)
	if isMulti && len(ups) > 1 {
		for _, up := range ups {
			if len(g.queues[up]) == 0 {
				return nil, false, nil
			}
		}
		inputs := make([]*audiocore.AudioBuffer, len(ups))
		for i, up := range ups {
			inputs[i] = g.queues[up][0]
			g.queues[up] = g.queues[up][1:]
		}
		out, err := multi.ProcessMulti(inputs)
		if err != nil {
			return nil, true, err
		}
		g.metrics.RecordBufferProcessed(n.name(), len(out.Samples))
		return out, true, nil
	}

	for _, up := range ups {
		if len(g.queues[up]) == 0 {
			continue
		}
		in := g.queues[up][0]
		g.queues[up] = g.queues[up][1:]
		out, err := n.processor.Process(in)
		if err != nil {
			return nil, true, err
		}
		g.metrics.RecordBufferProcessed(n.name(), len(out.Samples))
		return out, true, nil
	}
	return nil, false, nil
}
