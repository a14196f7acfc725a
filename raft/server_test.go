package raft

import "testing"

func TestNewServerBootstrapsSelfAndMembers(t *testing.T) {
	srv := NewServer(1, Config{SelfIsVoting: true}, &fakeSender{}, &fakeSaver{}, []Member{
		{Id: 2, Voting: true},
		{Id: 3, Voting: false},
	})

	self, ok := srv.Node(1)
	if !ok || !self.Voting || self.Status != Connected {
		t.Fatalf("self = %+v, ok=%v, want voting and Connected", self, ok)
	}
	n2, ok := srv.Node(2)
	if !ok || !n2.Voting {
		t.Fatalf("node 2 = %+v, ok=%v, want voting", n2, ok)
	}
	n3, ok := srv.Node(3)
	if !ok || n3.Voting {
		t.Fatalf("node 3 = %+v, ok=%v, want non-voting", n3, ok)
	}
	if srv.Role() != Follower || srv.Term() != 0 {
		t.Fatalf("new server = {role:%v term:%v}, want {Follower 0}", srv.Role(), srv.Term())
	}
}

func TestStatusSnapshot(t *testing.T) {
	srv, _, _ := newBareServer(t, 1, []NodeId{2})
	srv.role = Leader
	srv.currentTerm = 3
	if _, err := srv.log.Append(LogEntry{Term: 3, Id: 1}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	srv.commitIdx = 1
	srv.lastAppliedIdx = 1

	st := srv.Status()
	if st.Id != 1 || st.Role != Leader || st.Term != 3 || st.CommitIdx != 1 ||
		st.LastAppliedIdx != 1 || st.LastLogIdx != 1 || st.LastLogTerm != 3 || st.Shutdown {
		t.Fatalf("Status() = %+v, unexpected field", st)
	}
}

func TestRemoveSelfAtCommitTriggersShutdown(t *testing.T) {
	srv, _, _ := newBareServer(t, 1, []NodeId{2, 3})
	srv.role = Leader
	srv.currentTerm = 1

	self := NodeId(1)
	if _, err := srv.Submit(LogEntry{Id: 1, Kind: RemoveNode, TargetNode: &self}); err != nil {
		t.Fatalf("Submit(RemoveNode self) failed: %v", err)
	}
	if srv.IsShutdown() {
		t.Fatalf("removal must not take effect before it commits")
	}

	// Replicate to both peers and let the leader observe a quorum.
	n2, _ := srv.Node(2)
	n3, _ := srv.Node(3)
	n2.MatchIdx = 1
	n3.MatchIdx = 1
	if err := srv.advanceCommitIndex(); err != nil {
		t.Fatalf("advanceCommitIndex failed: %v", err)
	}

	if !srv.IsShutdown() {
		t.Fatalf("expected shutdown once the self-removal entry commits")
	}
}

func TestCurrentLeaderAndVotedForUnsetByDefault(t *testing.T) {
	srv, _, _ := newBareServer(t, 1, []NodeId{2})

	if _, ok := srv.CurrentLeader(); ok {
		t.Fatalf("expected no current leader on a fresh server")
	}
	if _, ok := srv.VotedFor(); ok {
		t.Fatalf("expected no vote cast on a fresh server")
	}
}
