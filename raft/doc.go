// Package raft implements the per-node consensus engine of a Raft-family
// replicated state machine: term/role transitions, pre-vote-free leader
// election, log replication with commit-index advancement, and single-step
// membership changes.
//
// The engine is single-threaded and cooperative. It never starts a
// goroutine and never blocks on I/O; every exported method is a synchronous
// stimulus (a tick, an inbound message, a client submission) that returns
// before yielding control. Callers are responsible for serializing calls
// into a single *Server, for delivering messages between nodes, and for
// driving a virtual clock via Tick.
package raft
