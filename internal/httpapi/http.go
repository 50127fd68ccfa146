package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"billing_monitor/internal/billing"
	"billing_monitor/internal/config"
	"billing_monitor/internal/drive"
	"billing_monitor/internal/ingest"
	"billing_monitor/internal/metrics"
	"billing_monitor/internal/store"
)

// Router builds HTTP handlers for /api and /ops.
type Router struct {
	cfg     config.Config
	store   *store.Store
	service *ingest.Service
}

func NewRouter(cfg config.Config, st *store.Store, svc *ingest.Service) *Router {
	return &Router{cfg: cfg, store: st, service: svc}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", r.index)
	mux.HandleFunc("/api/health", r.health)
	mux.HandleFunc("/api/sync", r.sync)
	mux.HandleFunc("/api/clear", r.clear)
	mux.HandleFunc("/api/dashboard", r.dashboard)
	mux.HandleFunc("/api/dashboard/search", r.search)
	mux.HandleFunc("/api/dashboard/months", r.months)
	mux.HandleFunc("/api/stats", r.stats)
	mux.HandleFunc("/api/stats/top", r.topBills)
	mux.HandleFunc("/api/stats/summary", r.summary)
	mux.HandleFunc("/api/stats/monthly/", r.monthly)
	mux.HandleFunc("/api/analyze", r.analyze)
	mux.HandleFunc("/api/chat", r.chat)
	mux.HandleFunc("/ops/status", r.status)
}

func (r *Router) index(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(w, req)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "Electricity Department Billing Monitor",
		"endpoints": []string{
			"GET /api/health", "POST /api/sync", "DELETE /api/clear",
			"GET /api/dashboard", "GET /api/dashboard/search", "GET /api/dashboard/months",
			"GET /api/stats", "GET /api/stats/top", "GET /api/stats/summary", "GET /api/stats/monthly/{month}",
			"POST /api/analyze", "POST /api/chat", "GET /ops/status",
		},
	})
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	dbStatus := "connected"
	if err := r.store.Health(req.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	count, _ := r.store.Count(req.Context())
	llmStatus := "disabled"
	if r.service.AnalyzerAvailable() {
		llmStatus = "configured"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"database":        dbStatus,
		"llm":             llmStatus,
		"total_records":   count,
		"active_sessions": r.service.Sessions(),
		"metrics":         metrics.Snapshot(),
		"timestamp":       config.Now(),
	})
}

func (r *Router) sync(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	// optional body: {"folder_id": "..."} overrides the configured folder
	var body struct {
		FolderID string `json:"folder_id"`
	}
	if req.Body != nil {
		_ = json.NewDecoder(req.Body).Decode(&body)
	}
	summary, err := r.service.Sync(req.Context(), body.FolderID)
	if errors.Is(err, ingest.ErrNoFiles) {
		respondError(w, http.StatusNotFound, "No spreadsheet files found in the configured source", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Sync failed", err.Error())
		return
	}
	payload := map[string]any{
		"status":  "success",
		"message": "Sync completed",
		"summary": summary,
	}
	if n := len(summary.Errors); n > 0 {
		errs := summary.Errors
		if len(errs) > 10 {
			errs = errs[:10]
		}
		payload["errors"] = errs
		payload["warning"] = fmt.Sprintf("%d file(s) could not be processed", n)
	}
	respondJSON(w, http.StatusOK, payload)
}

func (r *Router) clear(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	n, err := r.store.Clear(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Clear failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"message":         "All records cleared",
		"records_removed": n,
	})
}

func (r *Router) dashboard(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	f := store.QueryFilter{
		Month:  q.Get("month"),
		SortBy: q.Get("sort_by"),
		Order:  q.Get("order"),
		Limit:  intParam(q.Get("limit"), 0),
	}
	bills, err := r.store.Query(req.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Dashboard query failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"count":  len(bills),
		"data":   emptyIfNil(bills),
		"filters": map[string]any{
			"month":   f.Month,
			"sort_by": f.SortBy,
			"order":   f.Order,
			"limit":   f.Limit,
		},
	})
}

func (r *Router) search(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	var minAmt, maxAmt *float64
	if v := q.Get("min_amount"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid min_amount", v)
			return
		}
		minAmt = &f
	}
	if v := q.Get("max_amount"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid max_amount", v)
			return
		}
		maxAmt = &f
	}
	bills, err := r.store.Search(req.Context(), q.Get("q"), minAmt, maxAmt)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Search failed", err.Error())
		return
	}
	criteria := map[string]any{"q": q.Get("q")}
	if minAmt != nil {
		criteria["min_amount"] = *minAmt
	}
	if maxAmt != nil {
		criteria["max_amount"] = *maxAmt
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"count":           len(bills),
		"data":            emptyIfNil(bills),
		"search_criteria": criteria,
	})
}

func (r *Router) months(w http.ResponseWriter, req *http.Request) {
	months, err := r.store.Months(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Months query failed", err.Error())
		return
	}
	if months == nil {
		months = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"months": months,
	})
}

func (r *Router) stats(w http.ResponseWriter, req *http.Request) {
	count, err := r.store.Count(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Stats query failed", err.Error())
		return
	}
	if count == 0 {
		respondJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "No data available",
			"stats":   map[string]any{},
		})
		return
	}
	overall, byMonth, err := r.store.Stats(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Stats query failed", err.Error())
		return
	}
	if byMonth == nil {
		byMonth = []store.MonthStats{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"stats": map[string]any{
			"total_records": count,
			"overall":       overall,
			"by_month":      byMonth,
		},
	})
}

func (r *Router) topBills(w http.ResponseWriter, req *http.Request) {
	limit := intParam(req.URL.Query().Get("limit"), 10)
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	bills, err := r.store.TopBills(req.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Top bills query failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"count":  len(bills),
		"data":   emptyIfNil(bills),
	})
}

func (r *Router) summary(w http.ResponseWriter, req *http.Request) {
	count, err := r.store.Count(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Summary query failed", err.Error())
		return
	}
	houses, months, err := r.store.UniqueCounts(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Summary query failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"total_records":  count,
		"unique_houses":  houses,
		"unique_months":  months,
		"high_threshold": billing.HighBillThreshold,
	})
}

func (r *Router) monthly(w http.ResponseWriter, req *http.Request) {
	month := strings.TrimPrefix(req.URL.Path, "/api/stats/monthly/")
	if month == "" || strings.Contains(month, "/") {
		respondError(w, http.StatusBadRequest, "Month is required", req.URL.Path)
		return
	}
	m, err := r.store.MonthlyStats(req.Context(), month)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Monthly stats query failed", err.Error())
		return
	}
	if m.Count == 0 {
		respondError(w, http.StatusNotFound, "No data for month", month)
		return
	}
	top, err := r.store.Query(req.Context(), store.QueryFilter{Month: month, Limit: 5})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Monthly stats query failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"stats":     m,
		"top_bills": emptyIfNil(top),
	})
}

func (r *Router) analyze(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded", "multipart form must carry a 'file' field")
		return
	}
	defer file.Close()
	if !drive.IsSpreadsheet(header.Filename) {
		respondError(w, http.StatusBadRequest, "Unsupported file type", header.Filename)
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Could not read upload", err.Error())
		return
	}

	result, err := r.service.Analyze(req.Context(), header.Filename, content)
	var missing *billing.MissingColumnsError
	if errors.As(err, &missing) {
		respondError(w, http.StatusBadRequest, "Missing required columns", missing.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "Analysis failed", err.Error())
		return
	}
	if result.Spikes == nil {
		result.Spikes = []billing.Spike{}
	}
	if result.Anomalies == nil {
		result.Anomalies = []billing.Anomaly{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "success",
		"filename":         result.Filename,
		"file_summary":     result.FileSummary,
		"summary":          result.Summary,
		"spikes":           result.Spikes,
		"consumers":        result.Consumers,
		"anomalies":        result.Anomalies,
		"commercial_stats": result.CommercialStats,
		"analysis":         result.Analysis,
		"row_stats":        result.RowStats,
		"raw_data":         result.RawData,
		"llm_used":         result.LLMUsed,
		"session_token":    result.SessionID,
	})
}

func (r *Router) chat(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	var body struct {
		SessionToken string `json:"session_token"`
		Question     string `json:"question"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		respondError(w, http.StatusBadRequest, "Question is required", "")
		return
	}
	answer, err := r.service.Chat(req.Context(), body.SessionToken, body.Question)
	if errors.Is(err, ingest.ErrUnknownSession) {
		respondError(w, http.StatusNotFound, "Session not found", "run /api/analyze first and use its session_token")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Chat failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"session_token": body.SessionToken,
		"answer":        answer,
	})
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	runs, _ := r.store.RecentSyncRuns(req.Context(), 10)
	if runs == nil {
		runs = []store.SyncRun{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"metrics":   metrics.Snapshot(),
		"sync_runs": runs,
		"sessions":  r.service.Sessions(),
	})
}

func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func emptyIfNil(bills []store.Bill) []store.Bill {
	if bills == nil {
		return []store.Bill{}
	}
	return bills
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg, details string) {
	respondJSON(w, status, map[string]any{
		"error":   msg,
		"details": details,
		"status":  status,
	})
}
