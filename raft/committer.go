package raft

import "errors"

// computeCommitIndex finds the highest index N greater than the current
// commit index, whose entry was appended in the current term, that a
// quorum of voting members (self included) have replicated. Leaders only
// ever commit entries from their own term directly — a prior term's entries
// are committed only indirectly, by committing a later same-term entry that
// follows them (the Figure 8 safety rule).
func (s *Server) computeCommitIndex() (n uint64, ok bool) {
	last := s.log.LastIdx()
	quorum := s.nodes.QuorumSize()
	for idx := last; idx > s.commitIdx; idx-- {
		entry, found := s.log.Get(idx)
		if !found || entry.Term != s.currentTerm {
			continue
		}
		if s.nodes.CountVotingMatches(idx) >= quorum {
			return idx, true
		}
	}
	return 0, false
}

// advanceCommitIndex recomputes the commit index, applies any newly
// committed entries, and — if the commit index moved — re-broadcasts so
// followers learn about it promptly. Only meaningful while Leader.
func (s *Server) advanceCommitIndex() error {
	if s.role != Leader {
		return nil
	}
	if me := s.selfNode(); me != nil {
		if last := s.log.LastIdx(); me.MatchIdx < last {
			me.MatchIdx = last
		}
	}

	n, ok := s.computeCommitIndex()
	if !ok || n <= s.commitIdx {
		return nil
	}
	s.commitIdx = n

	if err := s.applyCommitted(); err != nil {
		if errors.Is(err, ErrShutdown) {
			return err
		}
	}
	s.broadcastAppendEntries()
	return nil
}

// applyOne applies the single next entry beyond lastAppliedIdx, performing
// the commit-time configuration transition first if it is a configuration
// change. Returns ErrNothingToApply if lastAppliedIdx has already caught up
// to commitIdx.
func (s *Server) applyOne() error {
	if s.lastAppliedIdx >= s.commitIdx {
		return ErrNothingToApply
	}
	idx := s.lastAppliedIdx + 1
	entry, ok := s.log.Get(idx)
	if !ok {
		return ErrNothingToApply
	}

	if entry.IsConfigChange() {
		// Applied before ApplyLog, so a non-Shutdown ApplyLog failure below
		// re-runs the membership transition on the next applyOne retry of
		// this same idx. Harmless for these four transitions (each is
		// idempotent against NodeSet/shutdown state), but worth knowing if a
		// future config-change kind isn't.
		s.applyConfigChangeAtCommit(entry)
	}

	if err := s.saver.ApplyLog(entry, idx); err != nil {
		if errors.Is(err, ErrShutdown) {
			s.shutdown = true
			return ErrShutdown
		}
		// Non-Shutdown application errors halt further application but
		// leave the engine up; lastAppliedIdx does not advance, so the next
		// call retries the same entry.
		return err
	}

	s.lastAppliedIdx = idx
	return nil
}

// applyCommitted drives applyOne until lastAppliedIdx catches up with
// commitIdx, or an error other than "nothing left to apply" stops it.
func (s *Server) applyCommitted() error {
	for {
		err := s.applyOne()
		if err == nil {
			continue
		}
		if errors.Is(err, ErrNothingToApply) {
			return nil
		}
		return err
	}
}
