package raft

import "errors"

// replicationBatchSize bounds how many entries a single AppendEntries
// message carries. A production implementation would size this from
// measured RPC payload limits; this engine has no transport of its own to
// measure, so it picks a fixed, generous batch.
const replicationBatchSize = 64

// becomeLeader resets per-peer replication state, appends a no-op entry in
// the new term (the standard trick that lets a leader commit prior-term
// entries by committing a same-term entry that follows them), and
// broadcasts immediately.
func (s *Server) becomeLeader() error {
	s.role = Leader
	leader := s.id
	s.currentLeader = &leader
	s.sinceHeartbeat = 0

	last := s.log.LastIdx()
	for _, n := range s.nodes.IterAll() {
		n.NextIdx = last + 1
		n.MatchIdx = 0
	}

	noop := LogEntry{Term: s.currentTerm, Id: s.nextInternalEntryID(), Kind: Normal}
	idx, err := s.log.Append(noop)
	if err != nil {
		if errors.Is(err, ErrShutdown) {
			return s.enterShutdown()
		}
		return err
	}
	if me := s.selfNode(); me != nil {
		me.MatchIdx = idx
		me.NextIdx = idx + 1
	}

	s.broadcastAppendEntries()
	return s.advanceCommitIndex()
}

// Submit accepts a new log entry from a client. Only the leader accepts
// submissions; everyone else returns ErrNotLeader so the caller can
// redirect to CurrentLeader.
func (s *Server) Submit(entry LogEntry) (MsgAddEntryRep, error) {
	if s.shutdown {
		return MsgAddEntryRep{}, ErrShutdown
	}
	if s.role != Leader {
		return MsgAddEntryRep{}, ErrNotLeader
	}
	if entry.IsVotingConfigChange() && s.votingCfgChangeInProgress {
		return MsgAddEntryRep{}, ErrOneVotingChangeOnly
	}

	entry.Term = s.currentTerm
	idx, err := s.log.Append(entry)
	if err != nil {
		if errors.Is(err, ErrShutdown) {
			return MsgAddEntryRep{}, s.enterShutdown()
		}
		return MsgAddEntryRep{}, err
	}

	if entry.IsConfigChange() {
		s.applyAppendTimeConfigChange(entry)
	}
	if me := s.selfNode(); me != nil {
		me.MatchIdx = idx
	}

	s.broadcastAppendEntries()
	if err := s.advanceCommitIndex(); err != nil {
		return MsgAddEntryRep{}, err
	}

	return MsgAddEntryRep{Term: entry.Term, Id: entry.Id, Idx: idx}, nil
}

// broadcastAppendEntries sends an AppendEntries exchange to every peer
// (everyone but self). Sender errors other than Shutdown are transient and
// dropped; the next heartbeat retries.
func (s *Server) broadcastAppendEntries() {
	for _, n := range s.nodes.IterAll() {
		if n.Id == s.id {
			continue
		}
		_ = s.sendAppendEntries(n.Id)
	}
}

// sendAppendEntries builds and sends the AppendEntries exchange for peer.
func (s *Server) sendAppendEntries(peer NodeId) error {
	n, ok := s.nodes.Get(peer)
	if !ok {
		return ErrNodeUnknown
	}

	prevIdx := uint64(0)
	if n.NextIdx > 1 {
		prevIdx = n.NextIdx - 1
	}

	var prevTerm Term
	if prevIdx > 0 {
		e, found := s.log.Get(prevIdx)
		if !found {
			// next_idx points before the log's first available entry: a
			// snapshot transfer would be required here, which is outside
			// this engine's scope.
			return s.enterShutdown()
		}
		prevTerm = e.Term
	}

	entries := s.log.Slice(n.NextIdx, replicationBatchSize)
	msg := MsgAppendEntriesReq{
		Term:         s.currentTerm,
		PrevLogIdx:   prevIdx,
		PrevLogTerm:  prevTerm,
		LeaderCommit: s.commitIdx,
		Entries:      entries,
	}

	if err := s.sender.AppendEntries(peer, msg); err != nil {
		if errors.Is(err, ErrShutdown) {
			return s.enterShutdown()
		}
		return nil
	}
	return nil
}

// HandleAppendEntriesRequest implements the follower side of log
// replication, in order: stale-term rejection, term adoption, heartbeat
// reset, previous-entry consistency check, per-entry append with
// conflict-truncation, then commit-index advancement.
func (s *Server) HandleAppendEntriesRequest(msg MsgAppendEntriesReq, from NodeId) (MsgAppendEntriesRep, error) {
	if s.shutdown {
		return MsgAppendEntriesRep{}, ErrShutdown
	}

	if msg.Term < s.currentTerm {
		return MsgAppendEntriesRep{Term: s.currentTerm, Success: false, CurrentIdx: s.log.LastIdx(), FirstIdx: 0}, nil
	}

	if msg.Term > s.currentTerm {
		if err := s.adoptTerm(msg.Term); err != nil {
			return MsgAppendEntriesRep{}, err
		}
	} else if s.role == Candidate {
		s.role = Follower
	}

	s.timeoutElapsed = 0
	leader := from
	s.currentLeader = &leader

	if msg.PrevLogIdx > 0 {
		e, found := s.log.Get(msg.PrevLogIdx)
		if !found || e.Term != msg.PrevLogTerm {
			return MsgAppendEntriesRep{Term: s.currentTerm, Success: false, CurrentIdx: s.log.LastIdx(), FirstIdx: 0}, nil
		}
	}

	firstAppended := uint64(0)
	for i, newEntry := range msg.Entries {
		idx := msg.PrevLogIdx + 1 + uint64(i)

		existing, found := s.log.Get(idx)
		if found && existing.Term == newEntry.Term {
			// Idempotent re-delivery: already have this exact entry.
			continue
		}
		if found {
			// Conflict: truncate this index and everything after it,
			// never crossing the commit floor, then fall through to
			// append the leader's entry in its place.
			if err := s.truncateFrom(idx); err != nil {
				return MsgAppendEntriesRep{}, err
			}
		}

		appendedIdx, err := s.log.Append(newEntry)
		if err != nil {
			if errors.Is(err, ErrShutdown) {
				return MsgAppendEntriesRep{}, s.enterShutdown()
			}
			return MsgAppendEntriesRep{}, err
		}
		if newEntry.IsConfigChange() {
			s.applyAppendTimeConfigChange(newEntry)
		}
		if firstAppended == 0 {
			firstAppended = appendedIdx
		}
	}

	if msg.LeaderCommit > s.commitIdx {
		newCommit := msg.LeaderCommit
		if last := s.log.LastIdx(); newCommit > last {
			newCommit = last
		}
		if newCommit > s.commitIdx {
			s.commitIdx = newCommit
			if err := s.applyCommitted(); err != nil {
				if errors.Is(err, ErrShutdown) {
					return MsgAppendEntriesRep{}, err
				}
			}
		}
	}

	return MsgAppendEntriesRep{Term: s.currentTerm, Success: true, CurrentIdx: s.log.LastIdx(), FirstIdx: firstAppended}, nil
}

// truncateFrom pops every entry from the log's current tail down to and
// including idx, rolling back any provisional configuration change each
// popped entry made.
func (s *Server) truncateFrom(idx uint64) error {
	for s.log.LastIdx() >= idx {
		last := s.log.LastIdx()
		e, _ := s.log.Get(last)
		if err := s.log.PopBack(s.commitIdx); err != nil {
			return err
		}
		if e.IsConfigChange() {
			s.rollbackConfigChange(e)
		}
	}
	return nil
}

// HandleAppendEntriesReply processes a follower's reply to an
// AppendEntries exchange: success advances MatchIdx/NextIdx and may
// complete a commit; failure backs NextIdx off by one and retries.
func (s *Server) HandleAppendEntriesReply(msg MsgAppendEntriesRep, from NodeId) error {
	if s.shutdown {
		return ErrShutdown
	}

	if msg.Term > s.currentTerm {
		return s.adoptTerm(msg.Term)
	}

	if s.role != Leader {
		return nil
	}

	n, ok := s.nodes.Get(from)
	if !ok {
		return ErrNodeUnknown
	}

	if msg.Success {
		if msg.CurrentIdx > n.MatchIdx {
			n.MatchIdx = msg.CurrentIdx
		}
		n.NextIdx = n.MatchIdx + 1
		if !n.HasSufficientLogs && n.MatchIdx >= s.log.LastIdx() {
			n.HasSufficientLogs = true
		}
		return s.advanceCommitIndex()
	}

	if n.NextIdx > 1 {
		n.NextIdx--
	}
	return s.sendAppendEntries(from)
}

// applyAppendTimeConfigChange performs the provisional membership effect a
// configuration-change entry has the instant it is appended:
// AddNonVotingNode/AddNode add the target as a non-voting, Connecting
// member; DemoteNode clears voting immediately; RemoveNode's effect is
// deferred to commit time.
func (s *Server) applyAppendTimeConfigChange(entry LogEntry) {
	if entry.IsVotingConfigChange() {
		s.votingCfgChangeInProgress = true
	}
	if entry.TargetNode == nil {
		return
	}
	target := *entry.TargetNode

	switch entry.Kind {
	case AddNonVotingNode, AddNode:
		n := s.nodes.AddNode(target, false)
		n.Status = Connecting
	case DemoteNode:
		_ = s.nodes.SetVoting(target, false)
	case RemoveNode:
		// Deferred until commit.
	}
}

// rollbackConfigChange undoes applyAppendTimeConfigChange's effect when
// the entry that caused it is invalidated by a leader's conflicting
// suffix before it ever commits.
func (s *Server) rollbackConfigChange(entry LogEntry) {
	if entry.IsVotingConfigChange() {
		s.votingCfgChangeInProgress = false
	}
	if entry.TargetNode == nil {
		return
	}
	target := *entry.TargetNode

	switch entry.Kind {
	case AddNonVotingNode, AddNode:
		_ = s.nodes.RemoveNode(target)
	case DemoteNode:
		_ = s.nodes.SetVoting(target, true)
	case RemoveNode:
		// Nothing provisional happened at append time.
	}
}

// applyConfigChangeAtCommit performs the commit-time membership
// transition once a configuration-change entry has reached commitIdx.
func (s *Server) applyConfigChangeAtCommit(entry LogEntry) {
	if entry.IsVotingConfigChange() {
		s.votingCfgChangeInProgress = false
	}
	if entry.TargetNode == nil {
		return
	}
	target := *entry.TargetNode

	switch entry.Kind {
	case AddNonVotingNode:
		if n, ok := s.nodes.Get(target); ok {
			n.Status = Connected
		}
	case AddNode:
		_ = s.nodes.SetVoting(target, true)
		if n, ok := s.nodes.Get(target); ok {
			n.Status = Connected
		}
	case DemoteNode:
		_ = s.nodes.SetVoting(target, false)
	case RemoveNode:
		removedSelf := target == s.id
		_ = s.nodes.RemoveNode(target)
		if removedSelf {
			s.shutdown = true
		}
	}
}
