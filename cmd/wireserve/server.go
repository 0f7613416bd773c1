package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// simulator is the subset of simfacade.Simulator the HTTP façade drives.
// Defining it locally keeps the handlers testable against a mock without
// simfacade needing to know about HTTP at all.
type simulator interface {
	InstanceID() string
	TopModule() string
	SetInput(name string, value uint32)
	Step()
	Run(n int)
	Reset()
	GetOutput(name string) uint32
	GetWire(probe string) uint32
	GetAllWires() map[string]uint32
}

type server struct {
	sim simulator
	log *slog.Logger
}

func newServer(sim simulator, log *slog.Logger) *server {
	return &server{sim: sim, log: log}
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/wires", s.handleWires).Methods(http.MethodGet)
	r.HandleFunc("/wires/{name}", s.handleWire).Methods(http.MethodGet)
	r.HandleFunc("/input", s.handleInput).Methods(http.MethodPost)
	r.HandleFunc("/step", s.handleStep).Methods(http.MethodPost)
	r.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"instance": s.sim.InstanceID(),
		"top":      s.sim.TopModule(),
	})
}

func (s *server) handleWires(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.GetAllWires())
}

func (s *server) handleWire(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	writeJSON(w, http.StatusOK, map[string]uint32{name: s.sim.GetWire(name)})
}

type inputRequest struct {
	Name  string `json:"name"`
	Value uint32 `json:"value"`
}

func (s *server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.sim.SetInput(req.Name, req.Value)
	w.WriteHeader(http.StatusNoContent)
}

type stepRequest struct {
	Cycles int `json:"cycles"`
}

func (s *server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.Cycles <= 0 {
		req.Cycles = 1
	}
	s.sim.Run(req.Cycles)
	writeJSON(w, http.StatusOK, s.sim.GetAllWires())
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.sim.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
