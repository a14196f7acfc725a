package raft

import "time"

// Server is the top-level façade (component C6): it owns role, term, and
// timers, dispatches stimuli to the election (C4) and replication (C5)
// logic, and drives the log (C1) and committer (C3).
//
// A Server is not safe for concurrent use. The caller must serialize every
// Tick/Handle*/Submit call.
type Server struct {
	id   NodeId
	role Role

	currentTerm   Term
	votedFor      *NodeId
	currentLeader *NodeId

	commitIdx      uint64
	lastAppliedIdx uint64

	timeoutElapsed  time.Duration
	electionTimeout time.Duration
	sinceHeartbeat  time.Duration
	requestTimeout  time.Duration
	jitter          func() time.Duration

	votingCfgChangeInProgress bool

	log   *Log
	nodes *NodeSet

	sender Sender
	saver  Saver

	shutdown bool

	nextInternalID uint64
}

// Member describes one bootstrap cluster member passed to NewServer.
type Member struct {
	Id     NodeId
	Voting bool
}

// NewServer constructs a Server for id, bootstrapped with members (which
// must not include id itself — self's voting status comes from
// cfg.SelfIsVoting). The new Server starts as a Follower in term 0.
func NewServer(id NodeId, cfg Config, sender Sender, saver Saver, members []Member) *Server {
	cfg = cfg.withDefaults()

	s := &Server{
		id:              id,
		role:            Follower,
		electionTimeout: cfg.ElectionTimeout,
		requestTimeout:  cfg.RequestTimeout,
		jitter:          cfg.Jitter,
		log:             NewLog(saver),
		nodes:           NewNodeSet(id),
		sender:          sender,
		saver:           saver,
	}

	self := s.nodes.AddNode(id, cfg.SelfIsVoting)
	self.Status = Connected

	for _, m := range members {
		if m.Id == id {
			continue
		}
		n := s.nodes.AddNode(m.Id, m.Voting)
		n.Status = Connected
	}

	return s
}

// Id returns this node's id.
func (s *Server) Id() NodeId { return s.id }

// Role returns the node's current role.
func (s *Server) Role() Role { return s.role }

// IsLeader reports whether this node currently believes itself the leader.
func (s *Server) IsLeader() bool { return s.role == Leader }

// Term returns the current term.
func (s *Server) Term() Term { return s.currentTerm }

// CommitIdx returns the highest index known safe to apply.
func (s *Server) CommitIdx() uint64 { return s.commitIdx }

// LastAppliedIdx returns the highest index actually applied to the state
// machine.
func (s *Server) LastAppliedIdx() uint64 { return s.lastAppliedIdx }

// CurrentLeader returns the node this server believes leads the current
// term, or ok=false if unknown.
func (s *Server) CurrentLeader() (id NodeId, ok bool) {
	if s.currentLeader == nil {
		return 0, false
	}
	return *s.currentLeader, true
}

// VotedFor returns who this node voted for in the current term, or
// ok=false if it hasn't voted yet.
func (s *Server) VotedFor() (id NodeId, ok bool) {
	if s.votedFor == nil {
		return 0, false
	}
	return *s.votedFor, true
}

// IsShutdown reports whether the engine has reached its terminal state and
// is no longer accepting stimuli.
func (s *Server) IsShutdown() bool { return s.shutdown }

// Status is a point-in-time snapshot of the fields an operator or test
// typically wants, gathered under one call instead of several getters.
type Status struct {
	Id             NodeId
	Role           Role
	Term           Term
	VotedFor       *NodeId
	CurrentLeader  *NodeId
	CommitIdx      uint64
	LastAppliedIdx uint64
	LastLogIdx     uint64
	LastLogTerm    Term
	Shutdown       bool
}

// Status returns a snapshot of the server's externally-visible state.
func (s *Server) Status() Status {
	return Status{
		Id:             s.id,
		Role:           s.role,
		Term:           s.currentTerm,
		VotedFor:       s.votedFor,
		CurrentLeader:  s.currentLeader,
		CommitIdx:      s.commitIdx,
		LastAppliedIdx: s.lastAppliedIdx,
		LastLogIdx:     s.log.LastIdx(),
		LastLogTerm:    s.log.LastTerm(),
		Shutdown:       s.shutdown,
	}
}

// Node returns the membership record for id, if known.
func (s *Server) Node(id NodeId) (*Node, bool) { return s.nodes.Get(id) }

// Nodes returns every membership record, self included, in deterministic
// insertion order. For diagnostics only — callers must not mutate the
// engine's membership through the returned records.
func (s *Server) Nodes() []*Node { return s.nodes.IterAll() }

// LogSlice returns up to count entries starting at from, for diagnostics
// (e.g. a debug HTTP surface). See Log.Slice for exact clamping behavior.
func (s *Server) LogSlice(from uint64, count int) []LogEntry { return s.log.Slice(from, count) }

// enterShutdown transitions the engine to its terminal state: no further
// stimulus will have any effect. Idempotent.
func (s *Server) enterShutdown() error {
	s.shutdown = true
	return ErrShutdown
}

func (s *Server) nextInternalEntryID() uint64 {
	s.nextInternalID++
	return s.nextInternalID
}

func (s *Server) selfNode() *Node {
	n, _ := s.nodes.Get(s.id)
	return n
}

func (s *Server) selfIsVoting() bool {
	n := s.selfNode()
	return n != nil && n.Voting
}

// adoptTerm persists and adopts a higher term, stepping down to Follower
// and clearing the current vote.
func (s *Server) adoptTerm(term Term) error {
	if err := s.saver.PersistTerm(term); err != nil {
		return err
	}
	s.currentTerm = term
	s.votedFor = nil
	s.role = Follower
	return nil
}
