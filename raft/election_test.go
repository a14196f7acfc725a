package raft

import "testing"

func TestHandleVoteRequestUnknownNode(t *testing.T) {
	srv, _, _ := newBareServer(t, 0, []NodeId{1})

	rep, err := srv.HandleVoteRequest(MsgVoteReq{Term: 1, LastLogIdx: 0, LastLogTerm: 0}, 99)
	if err != nil {
		t.Fatalf("HandleVoteRequest returned error: %v", err)
	}
	if rep.Vote != UnknownNode {
		t.Fatalf("Vote = %v, want UnknownNode", rep.Vote)
	}
}

func TestHandleVoteRequestRefusesNonVotingCandidate(t *testing.T) {
	srv, _, _ := newBareServer(t, 0, nil)
	srv.nodes.AddNode(1, false)

	rep, err := srv.HandleVoteRequest(MsgVoteReq{Term: 1, LastLogIdx: 0, LastLogTerm: 0}, 1)
	if err != nil {
		t.Fatalf("HandleVoteRequest returned error: %v", err)
	}
	if rep.Vote != NotGranted {
		t.Fatalf("Vote = %v, want NotGranted for a non-voting candidate", rep.Vote)
	}
}

func TestHandleVoteRequestRefusesStaleTerm(t *testing.T) {
	srv, _, _ := newBareServer(t, 0, []NodeId{1})
	srv.currentTerm = 5

	rep, err := srv.HandleVoteRequest(MsgVoteReq{Term: 3, LastLogIdx: 0, LastLogTerm: 0}, 1)
	if err != nil {
		t.Fatalf("HandleVoteRequest returned error: %v", err)
	}
	if rep.Vote != NotGranted || rep.Term != 5 {
		t.Fatalf("rep = %+v, want {Term:5 Vote:NotGranted}", rep)
	}
	if srv.currentTerm != 5 {
		t.Fatalf("currentTerm must not change on a stale vote request")
	}
}

func TestHandleVoteRequestGrantsOncePerTerm(t *testing.T) {
	srv, saver, _ := newBareServer(t, 0, []NodeId{1, 2})

	rep, err := srv.HandleVoteRequest(MsgVoteReq{Term: 1, LastLogIdx: 0, LastLogTerm: 0}, 1)
	if err != nil || rep.Vote != Granted {
		t.Fatalf("first vote request: rep=%+v err=%v, want Granted", rep, err)
	}
	if len(saver.votes) != 1 || saver.votes[0] != 1 {
		t.Fatalf("PersistVote calls = %v, want [1]", saver.votes)
	}

	// A second candidate in the same term must not also receive a grant.
	rep2, err := srv.HandleVoteRequest(MsgVoteReq{Term: 1, LastLogIdx: 0, LastLogTerm: 0}, 2)
	if err != nil {
		t.Fatalf("second vote request returned error: %v", err)
	}
	if rep2.Vote != NotGranted {
		t.Fatalf("second candidate in the same term got %v, want NotGranted", rep2.Vote)
	}

	// The same candidate re-requesting in the same term is granted again
	// (idempotent — it never retracts a vote already given to that
	// candidate).
	rep3, err := srv.HandleVoteRequest(MsgVoteReq{Term: 1, LastLogIdx: 0, LastLogTerm: 0}, 1)
	if err != nil || rep3.Vote != Granted {
		t.Fatalf("repeat vote request to the same candidate: rep=%+v err=%v, want Granted", rep3, err)
	}
}

func TestHandleVoteRequestHigherTermStepsDownLeader(t *testing.T) {
	srv, _, _ := newBareServer(t, 0, []NodeId{1, 2})
	srv.role = Leader
	srv.currentTerm = 2

	rep, err := srv.HandleVoteRequest(MsgVoteReq{Term: 4, LastLogIdx: 0, LastLogTerm: 0}, 1)
	if err != nil {
		t.Fatalf("HandleVoteRequest returned error: %v", err)
	}
	if srv.Role() != Follower {
		t.Fatalf("role = %v, want Follower after observing a higher term", srv.Role())
	}
	if rep.Vote != Granted {
		t.Fatalf("Vote = %v, want Granted", rep.Vote)
	}
}

func TestStartElectionSingleNodeClusterBecomesLeaderImmediately(t *testing.T) {
	srv, _, _ := newBareServer(t, 0, nil)

	if err := srv.startElection(); err != nil {
		t.Fatalf("startElection failed: %v", err)
	}
	if !srv.IsLeader() {
		t.Fatalf("a lone voting node should become leader off its own vote")
	}
}
