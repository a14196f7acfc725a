package raft

import "time"

// Config carries the options the engine recognizes. There is no CLI, no
// file format, and no environment variable binding at this layer — that is
// cmd/consensusd's concern.
type Config struct {
	// ElectionTimeout is how long a non-leader waits, without hearing from
	// a leader or granting a vote, before starting an election. Must
	// exceed RequestTimeout by several multiples. Default 1000ms.
	ElectionTimeout time.Duration
	// RequestTimeout is the leader's heartbeat interval. Default 200ms.
	RequestTimeout time.Duration
	// SelfIsVoting sets whether this node begins as a voting member.
	SelfIsVoting bool
	// Jitter, if non-nil, is called whenever an election starts to decide
	// the value timeoutElapsed resets to. The default policy (nil) resets
	// to zero; a caller-supplied jitter in [0, ElectionTimeout) reduces
	// split votes, but the choice is left to the caller.
	Jitter func() time.Duration
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		ElectionTimeout: 1000 * time.Millisecond,
		RequestTimeout:  200 * time.Millisecond,
		SelfIsVoting:    true,
	}
}

func (c Config) withDefaults() Config {
	if c.ElectionTimeout <= 0 {
		c.ElectionTimeout = 1000 * time.Millisecond
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 200 * time.Millisecond
	}
	return c
}
