package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/atrium-fi/ace/internal/auction"
	"github.com/atrium-fi/ace/internal/logger"
	"github.com/atrium-fi/ace/internal/state"
	"github.com/atrium-fi/ace/internal/treasury"
	"github.com/atrium-fi/ace/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests for engine observability
type WebServer struct {
	router      *mux.Router
	port        string
	launchpad   *auction.Launchpad
	vault       *treasury.Vault
	recordLimit int
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, launchpad *auction.Launchpad, vault *treasury.Vault, recordLimit int) *WebServer {
	if port == "" {
		port = "8080"
	}
	if recordLimit <= 0 {
		recordLimit = 50
	}

	server := &WebServer{
		router:      mux.NewRouter(),
		port:        port,
		launchpad:   launchpad,
		vault:       vault,
		recordLimit: recordLimit,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/swaps", ws.handleGetSwaps).Methods("GET")
	api.HandleFunc("/mints", ws.handleGetMints).Methods("GET")
	api.HandleFunc("/sale/status", ws.handleGetSaleStatus).Methods("GET")
	api.HandleFunc("/sale/price", ws.handleGetSalePrice).Methods("GET")
	api.HandleFunc("/treasury/summary", ws.handleGetTreasurySummary).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "ace-custody-execution-engine",
			"version": "1.0.0",
		},
		"database_healthy": dbHealthy,
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetSwaps returns recent swap execution records
func (ws *WebServer) handleGetSwaps(w http.ResponseWriter, r *http.Request) {
	limit := ws.parseLimit(r)

	records, err := state.ListSwapRecords(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get swap records")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve swap records")
		return
	}

	response := map[string]interface{}{
		"swaps": records,
		"count": len(records),
		"limit": limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetMints returns recent mint records
func (ws *WebServer) handleGetMints(w http.ResponseWriter, r *http.Request) {
	limit := ws.parseLimit(r)

	records, err := state.ListMintRecords(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get mint records")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve mint records")
		return
	}

	response := map[string]interface{}{
		"mints": records,
		"count": len(records),
		"limit": limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetSaleStatus returns the launchpad's derived phase and counters
func (ws *WebServer) handleGetSaleStatus(w http.ResponseWriter, r *http.Request) {
	if ws.launchpad == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Launchpad not configured")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, ws.launchpad.Status())
}

// handleGetSalePrice returns the current Dutch-auction clearing price
func (ws *WebServer) handleGetSalePrice(w http.ResponseWriter, r *http.Request) {
	if ws.launchpad == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Launchpad not configured")
		return
	}
	price, err := ws.launchpad.CurrentPrice()
	if err != nil {
		ws.writeErrorResponse(w, http.StatusConflict, "Sale not configured")
		return
	}

	response := map[string]interface{}{
		"price":     price,
		"timestamp": time.Now().UTC(),
	}
	// Best-effort human-readable rendering alongside the exact integer.
	if decimal, err := utils.SDKIntToFloat64(price, 18); err == nil {
		response["price_decimal"] = decimal
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetTreasurySummary returns treasury vault summary statistics
func (ws *WebServer) handleGetTreasurySummary(w http.ResponseWriter, r *http.Request) {
	if ws.vault == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Treasury not configured")
		return
	}

	response := map[string]interface{}{
		"pooled_balance": ws.vault.PooledBalance(),
		"total_shares":   ws.vault.TotalShares(),
		"timestamp":      time.Now().UTC(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// parseLimit reads an optional positive limit query parameter
func (ws *WebServer) parseLimit(r *http.Request) int {
	limit := ws.recordLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}
	return limit
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs request method, path and duration
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
