// Command consensusd runs a single raftcore node in-process over an
// in-memory transport and storage layer — a reference harness for
// exercising the engine, not a production deployment. Only this node is
// registered on its transport hub, so messages addressed to the configured
// peers are dropped. No real network transport or durable storage is
// shipped here.
package main

import (
	"encoding/binary"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/krantius/raftcore/fsm"
	"github.com/krantius/raftcore/raft"
	"github.com/krantius/raftcore/shared/logging"
	"github.com/krantius/raftcore/storage"
	"github.com/krantius/raftcore/transport"
)

// syncedServer guards a *raft.Server with a mutex so the tick loop and every
// HTTP handler serialize their Tick/Submit/Status/Nodes/LogSlice calls, as
// raft.Server's own single-threaded contract requires (see server.go: "not
// safe for concurrent use. The caller must serialize every Tick/Handle*/
// Submit call").
type syncedServer struct {
	mu  sync.Mutex
	srv *raft.Server
}

func newSyncedServer(srv *raft.Server) *syncedServer {
	return &syncedServer{srv: srv}
}

func (s *syncedServer) Tick(delta time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv.Tick(delta)
}

func (s *syncedServer) Submit(entry raft.LogEntry) (raft.MsgAddEntryRep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv.Submit(entry)
}

func (s *syncedServer) Status() raft.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv.Status()
}

func (s *syncedServer) Nodes() []*raft.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv.Nodes()
}

func (s *syncedServer) LogSlice(from uint64, count int) []raft.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv.LogSlice(from, count)
}

func (s *syncedServer) CurrentLeader() (raft.NodeId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv.CurrentLeader()
}

func main() {
	configPath := os.Getenv("CONSENSUSD_CONFIG")
	if configPath == "" {
		configPath = "./consensusd.json"
	}

	cfg := LoadConfig(configPath)
	if cfg.Self == 0 {
		panic("consensusd: config.self must be a non-zero node id")
	}

	logging.Infof("starting node %d", cfg.Self)

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	field := logger.WithField("node", cfg.Self)

	hub := transport.NewHub()
	store := fsm.NewMemStore()
	saver := storage.NewMemSaver(store, field)
	sender := hub.For(raft.NodeId(cfg.Self))

	rawSrv := raft.NewServer(raft.NodeId(cfg.Self), cfg.raftConfig(), sender, saver, cfg.members())
	hub.Register(raft.NodeId(cfg.Self), rawSrv)
	srv := newSyncedServer(rawSrv)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	last := time.Now()
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case now := <-ticker.C:
				delta := now.Sub(last)
				last = now
				if err := srv.Tick(delta); err != nil {
					logging.Errorf("tick failed, node shutting down: %v", err)
					close(stop)
					return
				}
			case <-stop:
				return
			}
		}
	}()

	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	router := newRouter(srv)
	router.PathPrefix("/api").Subrouter().Path("/submit").Methods("POST").HandlerFunc(submitHandler(srv))

	httpServer := &http.Server{Addr: addr, Handler: router}
	go func() {
		logging.Infof("debug HTTP surface listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("http server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Infof("node %d shutting down", cfg.Self)
	_ = httpServer.Close()
}

// submitRequest is the JSON body POST /api/submit accepts.
type submitRequest struct {
	Op  fsm.Operation `json:"op"`
	Key string        `json:"key"`
	Val []byte        `json:"val,omitempty"`
}

// submitHandler accepts an operator-submitted command, mints an entry id
// from a fresh UUID (the engine itself treats entry ids as opaque,
// caller-chosen values), and forwards it to raft.Server.Submit through the
// mutex-guarded wrapper.
func submitHandler(srv *syncedServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, err := fsm.Encode(fsm.Command{Op: req.Op, Key: req.Key, Val: req.Val})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		rep, err := srv.Submit(raft.LogEntry{Id: mintEntryID(), Kind: raft.Normal, Data: data})
		if err == raft.ErrNotLeader {
			leader, ok := srv.CurrentLeader()
			w.Header().Set("X-Raft-Not-Leader", "true")
			if ok {
				w.Header().Set("X-Raft-Current-Leader", strconv.FormatUint(uint64(leader), 10))
			}
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, rep)
	}
}

func mintEntryID() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8])
}
