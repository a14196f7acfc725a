package raft

import "time"

// fakeSender queues outbound messages into a shared cluster mailbox rather
// than touching a real network, so tests can deliver them deterministically
// in lockstep delivery + tick rounds.
type fakeSender struct {
	from    NodeId
	cluster *testCluster
}

type voteEnvelope struct {
	from NodeId
	msg  MsgVoteReq
}

type voteReplyEnvelope struct {
	from, to NodeId
	msg      MsgVoteRep
}

type appendEnvelope struct {
	from, to NodeId
	msg      MsgAppendEntriesReq
}

type appendReplyEnvelope struct {
	from, to NodeId
	msg      MsgAppendEntriesRep
}

func (f *fakeSender) RequestVote(msg MsgVoteReq) error {
	f.cluster.votes = append(f.cluster.votes, voteEnvelope{from: f.from, msg: msg})
	return nil
}

func (f *fakeSender) AppendEntries(peer NodeId, msg MsgAppendEntriesReq) error {
	f.cluster.appends = append(f.cluster.appends, appendEnvelope{from: f.from, to: peer, msg: msg})
	return nil
}

// fakeSaver is an in-memory Saver that records applied entries, persisted
// terms and persisted votes for assertions; the log callbacks and Log are
// no-ops.
type fakeSaver struct {
	id NodeId

	applied []LogEntry
	terms   []Term
	votes   []NodeId

	shutdownOnApplyIdx uint64 // if >0, ApplyLog fails with ErrShutdown at this idx
}

func (f *fakeSaver) ApplyLog(entry LogEntry, idx uint64) error {
	if f.shutdownOnApplyIdx != 0 && idx == f.shutdownOnApplyIdx {
		return ErrShutdown
	}
	f.applied = append(f.applied, entry)
	return nil
}

func (f *fakeSaver) PersistVote(id NodeId) error {
	f.votes = append(f.votes, id)
	return nil
}

func (f *fakeSaver) PersistTerm(term Term) error {
	f.terms = append(f.terms, term)
	return nil
}

func (f *fakeSaver) PushBack(entry LogEntry, idx uint64) error { return nil }
func (f *fakeSaver) PopFront(entry LogEntry, idx uint64) error { return nil }
func (f *fakeSaver) PopBack(entry LogEntry, idx uint64) error  { return nil }
func (f *fakeSaver) Log(id NodeId, msg string)                 {}

// testCluster drives a fixed set of *Server values through synchronous
// deliver-then-tick rounds.
type testCluster struct {
	servers map[NodeId]*Server
	savers  map[NodeId]*fakeSaver
	order   []NodeId

	votes   []voteEnvelope
	appends []appendEnvelope
}

func newTestCluster(ids []NodeId, cfg Config) *testCluster {
	c := &testCluster{
		servers: make(map[NodeId]*Server),
		savers:  make(map[NodeId]*fakeSaver),
		order:   append([]NodeId{}, ids...),
	}

	for _, id := range ids {
		var members []Member
		for _, peer := range ids {
			if peer == id {
				continue
			}
			members = append(members, Member{Id: peer, Voting: true})
		}
		saver := &fakeSaver{id: id}
		sender := &fakeSender{from: id, cluster: c}
		c.savers[id] = saver
		nodeCfg := cfg
		if nodeCfg.Jitter == nil {
			// Identical nodes ticked in lockstep would otherwise all time out
			// together and split every vote; a fixed per-node offset
			// (id × RequestTimeout) staggers their election retries.
			offset := time.Duration(id) * cfg.RequestTimeout
			nodeCfg.Jitter = func() time.Duration { return offset }
		}
		c.servers[id] = NewServer(id, nodeCfg, sender, saver, members)
	}

	return c
}

// deliverAll hands every queued message to its recipient(s) exactly once,
// synchronously, then clears the queues.
func (c *testCluster) deliverAll() {
	votes := c.votes
	c.votes = nil
	for _, env := range votes {
		for _, id := range c.order {
			if id == env.from {
				continue
			}
			srv := c.servers[id]
			rep, err := srv.HandleVoteRequest(env.msg, env.from)
			if err != nil {
				continue
			}
			if from := c.servers[env.from]; from != nil {
				_ = from.HandleVoteReply(rep, id)
			}
		}
	}

	appends := c.appends
	c.appends = nil
	for _, env := range appends {
		srv := c.servers[env.to]
		if srv == nil {
			continue
		}
		rep, err := srv.HandleAppendEntriesRequest(env.msg, env.from)
		if err != nil {
			continue
		}
		if from := c.servers[env.from]; from != nil {
			_ = from.HandleAppendEntriesReply(rep, env.to)
		}
	}
}

// tickAll advances every server's clock by delta.
func (c *testCluster) tickAll(delta time.Duration) {
	for _, id := range c.order {
		_ = c.servers[id].Tick(delta)
	}
}

// run performs n rounds of deliver-then-tick.
func (c *testCluster) run(n int, delta time.Duration) {
	for i := 0; i < n; i++ {
		c.deliverAll()
		c.tickAll(delta)
	}
}

func (c *testCluster) leader() (*Server, bool) {
	var found *Server
	count := 0
	for _, id := range c.order {
		if c.servers[id].IsLeader() {
			found = c.servers[id]
			count++
		}
	}
	if count != 1 {
		return nil, false
	}
	return found, true
}
