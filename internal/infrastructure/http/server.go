// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle. Handlers
// parse requests, delegate to use cases, and serialize responses; no
// business logic lives here.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/receiptlens/receiptlens-go/internal/domain/entities"
)

// Asker runs one question-answering invocation.
type Asker interface {
	Ask(ctx context.Context, sessionID, query string) (string, error)
}

// Ingestor processes one base64-encoded receipt image.
type Ingestor interface {
	ProcessImage(ctx context.Context, base64Image string) (*entities.Receipt, error)
}

// ReceiptLister exposes the stored receipts.
type ReceiptLister interface {
	ListAll(ctx context.Context) ([]entities.Receipt, error)
}

// Server is the HTTP server for the receipt QnA API.
type Server struct {
	pipeline  Asker
	ingestion Ingestor
	receipts  ReceiptLister
	addr      string
}

// NewServer creates a new HTTP server.
func NewServer(pipeline Asker, ingestion Ingestor, receipts ReceiptLister, addr string) *Server {
	return &Server{
		pipeline:  pipeline,
		ingestion: ingestion,
		receipts:  receipts,
		addr:      addr,
	}
}

// Router builds the API routes.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/query", s.handleQuery).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/process", s.handleProcess).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/receipts", s.handleReceipts).Methods(http.MethodGet)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	return corsMiddleware(loggingMiddleware(r))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // generation calls can be slow
	}

	log.Printf("[INFO] receipt QnA server starting on %s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

type queryRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type queryResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// handleQuery answers a question about stored receipts. A request without
// a session id starts a new session; the generated id is returned so the
// client can continue the conversation.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	answer, err := s.pipeline.Ask(r.Context(), req.SessionID, req.Query)
	if err != nil {
		log.Printf("[ERROR] query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to answer the question")
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{SessionID: req.SessionID, Answer: answer})
}

type processRequest struct {
	Base64Image string `json:"base64_image"`
}

type processResponse struct {
	Status string `json:"status"`
	DocID  string `json:"doc_id"`
}

// handleProcess ingests a receipt image.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Base64Image == "" {
		writeError(w, http.StatusBadRequest, "missing base64_image")
		return
	}

	receipt, err := s.ingestion.ProcessImage(r.Context(), req.Base64Image)
	if err != nil {
		log.Printf("[ERROR] ingestion failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to process receipt")
		return
	}

	writeJSON(w, http.StatusOK, processResponse{Status: "success", DocID: receipt.DocID})
}

// handleReceipts returns every stored receipt.
func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.receipts.ListAll(r.Context())
	if err != nil {
		log.Printf("[ERROR] listing receipts failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list receipts")
		return
	}
	if receipts == nil {
		receipts = []entities.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
