package raft

import "errors"

// Error kinds surfaced by the engine. All are return values; the engine
// never panics or logs in lieu of returning one of these.
var (
	// ErrShutdown is fatal: the caller should stop driving the engine.
	ErrShutdown = errors.New("raft: shutdown")

	// ErrNotLeader is returned by Submit when the local node is not the
	// leader. The caller should redirect the client to CurrentLeader.
	ErrNotLeader = errors.New("raft: not leader")

	// ErrOneVotingChangeOnly is returned by Submit when a voting
	// configuration change is already pending (index > commit index).
	ErrOneVotingChangeOnly = errors.New("raft: one voting configuration change at a time")

	// ErrNodeUnknown is returned when a message or operation references a
	// node id absent from the local NodeSet.
	ErrNodeUnknown = errors.New("raft: node unknown")

	// ErrNothingToApply is returned when apply is attempted with
	// lastAppliedIdx already equal to commitIdx.
	ErrNothingToApply = errors.New("raft: nothing to apply")

	// errInvariantViolation is wrapped into ErrShutdown wherever the engine
	// detects a condition that must never happen — a pop_back that would
	// cross commit_idx, most notably.
	errInvariantViolation = errors.New("raft: invariant violation")
)
