// Package storage holds demo raft.Saver implementations. MemSaver keeps
// everything in process-local memory, satisfying raft.Saver's
// ApplyLog/PersistVote/PersistTerm/PushBack/PopFront/PopBack/Log contract,
// and wires its diagnostic Log calls through logrus instead of discarding
// them.
package storage

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/krantius/raftcore/fsm"
	"github.com/krantius/raftcore/raft"
)

// MemSaver is a volatile raft.Saver: every call is visible immediately, but
// nothing survives a process restart. Every call succeeds except ApplyLog,
// which returns the state machine's error for a payload it cannot decode.
type MemSaver struct {
	mu sync.Mutex

	entries map[uint64]raft.LogEntry

	votes []raft.NodeId
	terms []raft.Term

	store  fsm.Store
	logger *logrus.Entry
}

// NewMemSaver returns a MemSaver that applies committed commands to store
// and logs under the given field set (typically just "node").
func NewMemSaver(store fsm.Store, logger *logrus.Entry) *MemSaver {
	return &MemSaver{
		entries: make(map[uint64]raft.LogEntry),
		store:   store,
		logger:  logger,
	}
}

func (m *MemSaver) ApplyLog(entry raft.LogEntry, idx uint64) error {
	m.logger.WithFields(logrus.Fields{"idx": idx, "term": entry.Term, "kind": entry.Kind}).Debug("applying entry")
	return fsm.Apply(m.store, entry.Data)
}

func (m *MemSaver) PersistVote(id raft.NodeId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes = append(m.votes, id)
	m.logger.WithField("votedFor", id).Debug("persisted vote")
	return nil
}

func (m *MemSaver) PersistTerm(term raft.Term) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms = append(m.terms, term)
	m.logger.WithField("term", term).Debug("persisted term")
	return nil
}

func (m *MemSaver) PushBack(entry raft.LogEntry, idx uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[idx] = entry
	return nil
}

func (m *MemSaver) PopFront(entry raft.LogEntry, idx uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, idx)
	return nil
}

func (m *MemSaver) PopBack(entry raft.LogEntry, idx uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, idx)
	return nil
}

func (m *MemSaver) Log(id raft.NodeId, msg string) {
	m.logger.WithField("node", id).Trace(msg)
}
