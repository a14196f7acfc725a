package raft

// Sender is the network transport collaborator. The engine never owns a
// connection; it borrows a Sender and calls it synchronously. A Shutdown
// error is fatal; any other error is treated as transient and dropped — the
// next Tick will retry.
type Sender interface {
	// RequestVote broadcasts a vote request to every other node the
	// transport knows about.
	RequestVote(msg MsgVoteReq) error
	// AppendEntries sends to a single peer.
	AppendEntries(peer NodeId, msg MsgAppendEntriesReq) error
}

// Saver is the persistence collaborator. Every call must be durable before
// it returns — the engine treats a successful return as "this happened".
// Saver.Log is the engine's only diagnostic output path; the core package
// never logs directly.
type Saver interface {
	// ApplyLog is called once entry at idx has reached commitIdx.
	ApplyLog(entry LogEntry, idx uint64) error
	// PersistVote records the vote granted in the current term.
	PersistVote(id NodeId) error
	// PersistTerm records a term advance. Always called before any action
	// that depends on the new term.
	PersistTerm(term Term) error
	// PushBack durably appends entry at idx to the log, before it becomes
	// visible to Log.Get/Slice/LastIdx.
	PushBack(entry LogEntry, idx uint64) error
	// PopFront durably removes the oldest entry (idx) from the log and
	// releases any buffers it owns.
	PopFront(entry LogEntry, idx uint64) error
	// PopBack durably removes the newest entry (idx) from the log and
	// releases any buffers it owns.
	PopBack(entry LogEntry, idx uint64) error
	// Log is an optional debug trace; implementations may no-op.
	Log(id NodeId, msg string)
}
