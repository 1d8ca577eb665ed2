package service

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/flowscan/indexer/logging"
	"github.com/flowscan/indexer/util"
)

// Server is the thin HTTP surface over the status service.
type Server struct {
	svc         *StatusService
	httpAddress string
}

func NewServer(svc *StatusService, httpAddress string) *Server {
	return &Server{svc: svc, httpAddress: httpAddress}
}

func (s *Server) Start() {
	router := mux.NewRouter()
	router.Path("/v1/status").Methods(http.MethodGet).HandlerFunc(s.handleStatus)
	router.Path("/v1/blocks/{height}").Methods(http.MethodGet).HandlerFunc(s.handleBlock)
	router.Path("/v1/blocks/{height}/transactions").Methods(http.MethodGet).HandlerFunc(s.handleBlockTransactions)
	router.Path("/v1/blocks/{height}/events").Methods(http.MethodGet).HandlerFunc(s.handleBlockEvents)
	router.Path("/v1/transactions/{id}").Methods(http.MethodGet).HandlerFunc(s.handleTransaction)
	router.Path("/v1/accounts/{address}/activities").Methods(http.MethodGet).HandlerFunc(s.handleActivities)
	router.Path("/v1/scripts/{hash}").Methods(http.MethodGet).HandlerFunc(s.handleScript)

	go func() {
		server := &http.Server{
			Addr:    s.httpAddress,
			Handler: router,
		}
		if err := server.ListenAndServe(); err != nil {
			logging.Logger.Errorf("failed to listen and serve", "error", err)
			panic(err)
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.GetStatus()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	block, err := s.svc.GetBlock(util.Uint64OrZero(mux.Vars(r)["height"]))
	if err != nil {
		writeError(w, err)
		return
	}
	if block.BlockHash == "" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, block)
}

func (s *Server) handleBlockTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.GetTransactionsByHeight(util.Uint64OrZero(mux.Vars(r)["height"]))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, txs)
}

func (s *Server) handleBlockEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.GetEventsByHeight(util.Uint64OrZero(mux.Vars(r)["height"]))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.GetTransaction(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if tx.TxID == "" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, tx)
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	activities, err := s.svc.GetActivitiesByAddress(mux.Vars(r)["address"], limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, activities)
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	script, err := s.svc.GetScript(mux.Vars(r)["hash"])
	if err != nil {
		writeError(w, err)
		return
	}
	if script.Hash == "" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, script)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("failed to encode response: %s", err.Error())
	}
}

func writeError(w http.ResponseWriter, err error) {
	logging.Logger.Errorf("request failed: %s", err.Error())
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}
