package raft

// Node is the per-peer record kept by NodeSet, including one for self.
type Node struct {
	Id     NodeId
	Voting bool
	Status NodeStatus

	// NextIdx is the leader's guess of the next index to send this
	// follower. Meaningless on a non-leader.
	NextIdx uint64
	// MatchIdx is the highest index known replicated on this follower.
	MatchIdx uint64
	// VotedForMe is set by the local node, while Candidate, when this peer
	// grants its vote in the current term. Cleared at the start of every
	// new election.
	VotedForMe bool
	// HasSufficientLogs becomes true the first time this peer's MatchIdx
	// reaches the leader's last log index, i.e. once it has caught up
	// enough that the leader may consider promoting it to voting.
	HasSufficientLogs bool
}

// NodeSet is the cluster membership view (component C2): one Node per
// member, including self, plus per-peer replication bookkeeping.
//
// The set is mutated only when a configuration-change entry is appended
// (provisionally) and when that entry is committed or invalidated — never
// directly by callers — so that NodeSet always reflects the log's view of
// membership, not an out-of-band one.
type NodeSet struct {
	self NodeId
	// order preserves insertion order so iteration (and therefore message
	// fan-out and vote tallying) is deterministic; Go map iteration is not.
	order []NodeId
	nodes map[NodeId]*Node
}

// NewNodeSet returns a NodeSet with no members yet. self identifies which
// id is "us" for callers that need to distinguish self from peers.
func NewNodeSet(self NodeId) *NodeSet {
	return &NodeSet{self: self, nodes: make(map[NodeId]*Node)}
}

// AddNode adds id as a member with the given voting flag. Adding a node
// that already exists is idempotent: the existing record is returned
// unchanged.
func (s *NodeSet) AddNode(id NodeId, voting bool) *Node {
	if n, ok := s.nodes[id]; ok {
		return n
	}
	n := &Node{Id: id, Voting: voting, Status: Disconnected, NextIdx: 1}
	s.nodes[id] = n
	s.order = append(s.order, id)
	return n
}

// RemoveNode removes id from the set. Returns ErrNodeUnknown if absent.
func (s *NodeSet) RemoveNode(id NodeId) error {
	if _, ok := s.nodes[id]; !ok {
		return ErrNodeUnknown
	}
	delete(s.nodes, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetVoting toggles id's voting flag. Returns ErrNodeUnknown if absent.
func (s *NodeSet) SetVoting(id NodeId, voting bool) error {
	n, ok := s.nodes[id]
	if !ok {
		return ErrNodeUnknown
	}
	n.Voting = voting
	return nil
}

// Get returns id's record, or ok=false if it is not a member.
func (s *NodeSet) Get(id NodeId) (n *Node, ok bool) {
	n, ok = s.nodes[id]
	return n, ok
}

// IterVoting returns every voting member, self included, in insertion
// order.
func (s *NodeSet) IterVoting() []*Node {
	out := make([]*Node, 0, len(s.order))
	for _, id := range s.order {
		if n := s.nodes[id]; n.Voting {
			out = append(out, n)
		}
	}
	return out
}

// IterAll returns every member, self included, in insertion order.
func (s *NodeSet) IterAll() []*Node {
	out := make([]*Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

// QuorumSize returns floor(V/2)+1 where V is the current number of voting
// members.
func (s *NodeSet) QuorumSize() int {
	v := 0
	for _, id := range s.order {
		if s.nodes[id].Voting {
			v++
		}
	}
	return v/2 + 1
}

// CountVotingMatches returns how many voting members (self included) have
// MatchIdx >= idx.
func (s *NodeSet) CountVotingMatches(idx uint64) int {
	count := 0
	for _, n := range s.IterVoting() {
		if n.MatchIdx >= idx {
			count++
		}
	}
	return count
}
