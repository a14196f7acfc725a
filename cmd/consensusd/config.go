package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/krantius/raftcore/raft"
)

// PeerConfig describes one bootstrap cluster member.
type PeerConfig struct {
	ID     uint64 `json:"id"`
	Addr   string `json:"address"`
	Voting bool   `json:"voting"`
}

// Config is the process-level configuration loaded from a JSON file: a
// node id, its HTTP debug address, the bootstrap peer list, and the
// election/request timeouts.
type Config struct {
	Self            uint64       `json:"self"`
	SelfVoting      bool         `json:"self_voting"`
	HTTPAddr        string       `json:"http_address"`
	Peers           []PeerConfig `json:"peers"`
	ElectionTimeout int          `json:"election_timeout_ms"`
	RequestTimeout  int          `json:"request_timeout_ms"`
}

// LoadConfig reads and parses path, panicking on failure: a bad startup
// config is unrecoverable.
func LoadConfig(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Errorf("consensusd: reading config %s: %w", path, err))
	}

	c := &Config{}
	if err := json.Unmarshal(data, c); err != nil {
		panic(fmt.Errorf("consensusd: parsing config %s: %w", path, err))
	}
	return c
}

// raftConfig builds a raft.Config from the process config. The timeouts
// fall back to raft.DefaultConfig's values when unset or non-positive;
// SelfIsVoting always comes from self_voting, which is false when absent.
func (c *Config) raftConfig() raft.Config {
	cfg := raft.DefaultConfig()
	cfg.SelfIsVoting = c.SelfVoting
	if c.ElectionTimeout > 0 {
		cfg.ElectionTimeout = time.Duration(c.ElectionTimeout) * time.Millisecond
	}
	if c.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(c.RequestTimeout) * time.Millisecond
	}
	return cfg
}

func (c *Config) members() []raft.Member {
	var out []raft.Member
	for _, p := range c.Peers {
		if p.ID == c.Self {
			continue
		}
		out = append(out, raft.Member{Id: raft.NodeId(p.ID), Voting: p.Voting})
	}
	return out
}
