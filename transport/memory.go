// Package transport holds demo raft.Sender implementations. Memory wires a
// fixed set of in-process raft.Server values together directly through a
// handlers map keyed by node id and guarded by a RWMutex, implementing
// raft.Sender's broadcast RequestVote plus single-peer AppendEntries, and
// dispatching each reply back to the caller itself since nothing else will.
package transport

import (
	"sync"

	"github.com/krantius/raftcore/raft"
)

// Handler is the subset of *raft.Server the transport needs to deliver
// messages to a registered peer and to report replies back to the sender.
type Handler interface {
	HandleVoteRequest(msg raft.MsgVoteReq, from raft.NodeId) (raft.MsgVoteRep, error)
	HandleVoteReply(msg raft.MsgVoteRep, from raft.NodeId) error
	HandleAppendEntriesRequest(msg raft.MsgAppendEntriesReq, from raft.NodeId) (raft.MsgAppendEntriesRep, error)
	HandleAppendEntriesReply(msg raft.MsgAppendEntriesRep, from raft.NodeId) error
}

// Hub is the shared registry a cluster of in-process nodes dials through.
// Each node gets its own *Memory (one per self id) backed by the same Hub.
type Hub struct {
	mu    sync.RWMutex
	nodes map[raft.NodeId]Handler
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{nodes: make(map[raft.NodeId]Handler)}
}

// Register makes handler reachable as id. Must be called once per node
// before that node can send or receive anything, including its own replies.
func (h *Hub) Register(id raft.NodeId, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes[id] = handler
}

func (h *Hub) get(id raft.NodeId) (Handler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.nodes[id]
	return n, ok
}

func (h *Hub) snapshot() map[raft.NodeId]Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[raft.NodeId]Handler, len(h.nodes))
	for id, n := range h.nodes {
		out[id] = n
	}
	return out
}

// Memory is a raft.Sender bound to one node id within a Hub.
type Memory struct {
	self raft.NodeId
	hub  *Hub
}

// For returns the Sender a node with the given id should pass to
// raft.NewServer. The node must already (or will eventually) Register
// itself on hub under the same id.
func (h *Hub) For(self raft.NodeId) *Memory {
	return &Memory{self: self, hub: h}
}

// RequestVote delivers msg to every other registered node and immediately
// routes each reply back to self, exactly as the synchronous test harness
// this is grounded on does.
func (m *Memory) RequestVote(msg raft.MsgVoteReq) error {
	self, ok := m.hub.get(m.self)
	for id, h := range m.hub.snapshot() {
		if id == m.self {
			continue
		}
		rep, err := h.HandleVoteRequest(msg, m.self)
		if err != nil {
			continue
		}
		if ok {
			_ = self.HandleVoteReply(rep, id)
		}
	}
	return nil
}

// AppendEntries delivers msg to peer and routes its reply back to self.
func (m *Memory) AppendEntries(peer raft.NodeId, msg raft.MsgAppendEntriesReq) error {
	h, ok := m.hub.get(peer)
	if !ok {
		return nil
	}
	rep, err := h.HandleAppendEntriesRequest(msg, m.self)
	if err != nil {
		return nil
	}
	if self, ok := m.hub.get(m.self); ok {
		_ = self.HandleAppendEntriesReply(rep, peer)
	}
	return nil
}
