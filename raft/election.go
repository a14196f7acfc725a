package raft

import (
	"errors"
	"time"
)

// Tick advances the virtual clock by delta and fires whichever timer has
// elapsed: a non-leader with an expired election timeout starts an
// election; a leader with an expired heartbeat interval re-broadcasts
// AppendEntries to every peer. A zero delta is a valid no-op.
func (s *Server) Tick(delta time.Duration) error {
	if s.shutdown {
		return ErrShutdown
	}

	s.timeoutElapsed += delta

	if s.role == Leader {
		s.sinceHeartbeat += delta
		if s.sinceHeartbeat >= s.requestTimeout {
			s.sinceHeartbeat = 0
			s.broadcastAppendEntries()
		}
		return nil
	}

	if s.selfIsVoting() && s.timeoutElapsed >= s.electionTimeout {
		return s.startElection()
	}
	return nil
}

// startElection transitions to Candidate, increments and persists the
// term, votes for self, and broadcasts MsgVoteReq to every peer. Persists
// before mutating in-memory state, so a non-Shutdown PersistTerm/PersistVote
// failure leaves role/currentTerm/votedFor exactly as they were.
func (s *Server) startElection() error {
	newTerm := s.currentTerm + 1
	if err := s.saver.PersistTerm(newTerm); err != nil {
		return err
	}

	self := s.id
	if err := s.saver.PersistVote(self); err != nil {
		return err
	}
	s.currentTerm = newTerm
	s.role = Candidate
	s.votedFor = &self

	if s.jitter != nil {
		s.timeoutElapsed = s.jitter()
	} else {
		s.timeoutElapsed = 0
	}

	for _, n := range s.nodes.IterAll() {
		n.VotedForMe = false
	}
	if me := s.selfNode(); me != nil {
		me.VotedForMe = true
	}

	msg := MsgVoteReq{
		Term:        s.currentTerm,
		LastLogIdx:  s.log.LastIdx(),
		LastLogTerm: s.log.LastTerm(),
	}
	if err := s.sender.RequestVote(msg); err != nil {
		if errors.Is(err, ErrShutdown) {
			return s.enterShutdown()
		}
		// Transient: the next Tick's election retry (or a vote reply that
		// never arrives) is the recovery path; nothing more to do here.
	}

	// A single-node voting cluster reaches quorum on its own vote alone.
	return s.checkElectionWon()
}

// HandleVoteRequest implements the follower-side (and candidate-side)
// voting rules, in the order below: stale term, adopt a higher term, unknown
// candidate, log up-to-date check, then the already-voted check.
func (s *Server) HandleVoteRequest(msg MsgVoteReq, from NodeId) (MsgVoteRep, error) {
	if s.shutdown {
		return MsgVoteRep{}, ErrShutdown
	}

	if msg.Term < s.currentTerm {
		return MsgVoteRep{Term: s.currentTerm, Vote: NotGranted}, nil
	}

	if msg.Term > s.currentTerm {
		if err := s.adoptTerm(msg.Term); err != nil {
			return MsgVoteRep{}, err
		}
	}

	candidate, known := s.nodes.Get(from)
	if !known {
		return MsgVoteRep{Term: s.currentTerm, Vote: UnknownNode}, nil
	}

	ourLastTerm := s.log.LastTerm()
	ourLastIdx := s.log.LastIdx()
	upToDate := msg.LastLogTerm > ourLastTerm ||
		(msg.LastLogTerm == ourLastTerm && msg.LastLogIdx >= ourLastIdx)

	alreadyVotedElsewhere := s.votedFor != nil && *s.votedFor != from
	grant := !alreadyVotedElsewhere && upToDate && candidate.Voting

	if !grant {
		return MsgVoteRep{Term: s.currentTerm, Vote: NotGranted}, nil
	}

	if err := s.saver.PersistVote(from); err != nil {
		return MsgVoteRep{}, err
	}
	voted := from
	s.votedFor = &voted
	s.timeoutElapsed = 0

	return MsgVoteRep{Term: s.currentTerm, Vote: Granted}, nil
}

// HandleVoteReply implements the candidate-side half of the voting
// protocol: a higher term forces a step-down; a granted vote in the current
// term may complete a quorum and trigger becomeLeader.
func (s *Server) HandleVoteReply(msg MsgVoteRep, from NodeId) error {
	if s.shutdown {
		return ErrShutdown
	}

	if msg.Term > s.currentTerm {
		return s.adoptTerm(msg.Term)
	}

	if s.role != Candidate || msg.Term != s.currentTerm {
		return nil
	}
	if msg.Vote != Granted {
		return nil
	}

	n, ok := s.nodes.Get(from)
	if !ok {
		return nil
	}
	n.VotedForMe = true

	return s.checkElectionWon()
}

// checkElectionWon promotes a Candidate to Leader once VotedForMe is set
// across a quorum of voting members.
func (s *Server) checkElectionWon() error {
	if s.role != Candidate {
		return nil
	}
	votes := 0
	for _, n := range s.nodes.IterVoting() {
		if n.VotedForMe {
			votes++
		}
	}
	if votes >= s.nodes.QuorumSize() {
		return s.becomeLeader()
	}
	return nil
}
