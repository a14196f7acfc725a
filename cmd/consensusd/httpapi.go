package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// newRouter builds the read-only debug/status surface: cluster status, the
// whole log (committed and uncommitted entries), and the current membership
// list. It talks to srv only
// through the mutex-guarded wrapper, never the bare *raft.Server, so these
// handlers stay safe to run concurrently with the tick loop.
func newRouter(srv *syncedServer) *mux.Router {
	r := mux.NewRouter()
	sr := r.PathPrefix("/api").Subrouter()
	sr.Path("/status").Methods("GET").HandlerFunc(statusHandler(srv))
	sr.Path("/log").Methods("GET").HandlerFunc(logHandler(srv))
	sr.Path("/nodes").Methods("GET").HandlerFunc(nodesHandler(srv))
	return r
}

func statusHandler(srv *syncedServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, srv.Status())
	}
}

func logHandler(srv *syncedServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := srv.Status()
		entries := srv.LogSlice(1, int(status.LastLogIdx))
		writeJSON(w, entries)
	}
}

func nodesHandler(srv *syncedServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, srv.Nodes())
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
