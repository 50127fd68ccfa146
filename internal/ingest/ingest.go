package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"billing_monitor/internal/billing"
	"billing_monitor/internal/config"
	"billing_monitor/internal/drive"
	"billing_monitor/internal/insight"
	"billing_monitor/internal/metrics"
	"billing_monitor/internal/sheet"
	"billing_monitor/internal/store"
)

// ErrNoFiles signals that the configured source had no spreadsheets.
var ErrNoFiles = errors.New("no spreadsheet files found")

// ErrUnknownSession signals a chat request against an expired or bogus
// session token.
var ErrUnknownSession = errors.New("unknown or expired analysis session")

// Service runs the two processing paths: the persisted sync from the
// configured file source, and the ad-hoc analysis of an uploaded file.
// Processing is deliberately synchronous; one sync batch runs at a
// time and the store's uniqueness constraint covers any overlap.
type Service struct {
	cfg      config.Config
	store    *store.Store
	source   drive.Source
	analyzer *insight.Analyzer
	sessions *insight.Registry
}

func New(cfg config.Config, st *store.Store, src drive.Source, an *insight.Analyzer) *Service {
	return &Service{
		cfg:      cfg,
		store:    st,
		source:   src,
		analyzer: an,
		sessions: insight.NewRegistry(),
	}
}

// SyncSummary reports one sync batch. duplicates_skipped counts both
// keys already persisted and repeats within the batch itself.
type SyncSummary struct {
	FilesProcessed      int      `json:"files_processed"`
	TotalHighBillsFound int      `json:"total_high_bills_found"`
	NewRecordsAdded     int      `json:"new_records_added"`
	DuplicatesSkipped   int      `json:"duplicates_skipped"`
	Errors              []string `json:"errors,omitempty"`
}

// Sync fetches every spreadsheet from the source, keeps the rows above
// the high-bill threshold and persists them. A bad file is reported in
// the summary and never aborts the batch. An empty folderID falls back
// to the configured folder.
func (s *Service) Sync(ctx context.Context, folderID string) (SyncSummary, error) {
	if folderID == "" {
		folderID = s.cfg.DriveFolderID
	}
	var summary SyncSummary
	now := config.Now()
	runID, err := s.store.StartSyncRun(ctx, now)
	if err != nil {
		log.Printf("sync: could not record run start: %v", err)
	}

	files, err := s.source.Fetch(ctx, folderID)
	if err != nil {
		metrics.IncSyncFailed()
		_ = s.store.FinishSyncRun(ctx, runID, "failed", 0, 0, 0, err.Error(), config.Now())
		return summary, fmt.Errorf("fetch files: %w", err)
	}
	if len(files) == 0 {
		metrics.IncSyncFailed()
		_ = s.store.FinishSyncRun(ctx, runID, "no_files", 0, 0, 0, ErrNoFiles.Error(), config.Now())
		return summary, ErrNoFiles
	}

	var batch []billing.Record
	for _, f := range files {
		high, err := s.processFile(f)
		if err != nil {
			log.Printf("sync: %v", err)
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		summary.FilesProcessed++
		summary.TotalHighBillsFound += len(high)
		batch = append(batch, high...)
	}

	deduped, dropped := billing.Dedupe(batch)
	inserted, conflicts, err := s.store.InsertBatch(ctx, deduped, now)
	if err != nil {
		metrics.IncSyncFailed()
		_ = s.store.FinishSyncRun(ctx, runID, "failed", summary.FilesProcessed, 0, 0, err.Error(), config.Now())
		return summary, fmt.Errorf("persist batch: %w", err)
	}
	summary.NewRecordsAdded = inserted
	summary.DuplicatesSkipped = dropped + conflicts

	metrics.IncSyncSucceeded()
	metrics.AddRecordsInserted(inserted)
	metrics.AddDuplicates(summary.DuplicatesSkipped)
	errMsg := ""
	if len(summary.Errors) > 0 {
		errMsg = fmt.Sprintf("%d file(s) failed: %s", len(summary.Errors), summary.Errors[0])
	}
	_ = s.store.FinishSyncRun(ctx, runID, "success", summary.FilesProcessed, inserted, summary.DuplicatesSkipped, errMsg, config.Now())

	log.Printf("sync: %d files, %d high bills, %d inserted, %d duplicates skipped",
		summary.FilesProcessed, summary.TotalHighBillsFound, summary.NewRecordsAdded, summary.DuplicatesSkipped)
	return summary, nil
}

// processFile decodes one source file and returns its high bills.
func (s *Service) processFile(f drive.File) ([]billing.Record, error) {
	t, err := sheet.Decode(f.Name, f.Content)
	if err != nil {
		return nil, err
	}
	if billing.IsWide(t) {
		t = billing.ToLong(t)
	}
	recs, stats, err := billing.SyncRecords(t)
	if err != nil {
		return nil, err
	}
	if stats.Dropped > 0 {
		log.Printf("sync: %s: dropped %d of %d rows (%d missing key, %d bad amount)",
			f.Name, stats.Dropped, stats.Total, stats.MissingKey, stats.BadBillAmount)
	}
	return billing.FilterHighBills(recs), nil
}

// FileSummary describes the uploaded file as a whole, independent of
// per-consumer analysis.
type FileSummary struct {
	TotalRecords int                      `json:"total_records"`
	Columns      []string                 `json:"columns"`
	BillStats    billing.DescriptiveStats `json:"bill_stats"`
	HighBills    int                      `json:"high_bills"`
}

// AnalysisResult is the full ad-hoc analysis payload. SessionID lets
// the chat endpoint ask follow-up questions against the same data.
type AnalysisResult struct {
	Filename        string                              `json:"filename"`
	FileSummary     FileSummary                         `json:"file_summary"`
	Summary         insight.Summary                     `json:"summary"`
	Spikes          []billing.Spike                     `json:"spikes"`
	Consumers       map[string]billing.ConsumerAnalysis `json:"consumers"`
	Anomalies       []billing.Anomaly                   `json:"anomalies"`
	CommercialStats billing.DescriptiveStats            `json:"commercial_stats"`
	Analysis        string                              `json:"analysis"`
	RowStats        billing.RowStats                    `json:"row_stats"`
	RawData         []insight.RawConsumer               `json:"raw_data"`
	LLMUsed         bool                                `json:"llm_used"`
	SessionID       string                              `json:"session_token"`
}

// Analyze runs spike detection over one uploaded spreadsheet without
// touching the persisted store.
func (s *Service) Analyze(ctx context.Context, filename string, content []byte) (*AnalysisResult, error) {
	metrics.IncAnalyzeRequests()

	t, err := sheet.Decode(filename, content)
	if err != nil {
		return nil, err
	}
	if billing.IsWide(t) {
		t = billing.ToLong(t)
	}
	m := billing.Reconcile(t)
	if err := m.RequireAdHoc(t); err != nil {
		return nil, err
	}
	recs, rowStats := m.Records(t)

	// Group per consumer in first-seen order so output is stable.
	var order []string
	series := map[string][]billing.MonthlyBill{}
	kinds := map[string]billing.Category{}
	for _, r := range recs {
		if _, seen := series[r.HouseID]; !seen {
			order = append(order, r.HouseID)
			kinds[r.HouseID] = r.Category
		}
		series[r.HouseID] = append(series[r.HouseID], billing.MonthlyBill{Month: r.Month, Amount: r.BillAmount})
	}

	res := &AnalysisResult{
		Filename:    filename,
		FileSummary: summarizeFile(t, recs),
		Consumers:   map[string]billing.ConsumerAnalysis{},
		RowStats:    rowStats,
		LLMUsed:     s.analyzer.Available(),
	}
	if !res.LLMUsed {
		metrics.IncLLMFallbacks()
	}

	var raw []insight.RawConsumer
	for _, id := range order {
		kind := kinds[id]
		res.Summary.TotalConsumers++
		if kind == billing.CategoryCommercial {
			res.Summary.CommercialCount++
		} else {
			res.Summary.ResidentialCount++
		}

		bills := series[id]
		analysis := s.analyzer.AnalyzeConsumer(ctx, id, kind, bills)
		res.Consumers[id] = analysis
		if analysis.HasSpikes {
			res.Summary.ConsumersWithSpikes++
			res.Summary.SpikeCount += len(analysis.Spikes)
			res.Spikes = append(res.Spikes, analysis.Spikes...)
		}

		byMonth := make(map[string]float64, len(bills))
		for _, b := range bills {
			byMonth[b.Month] = b.Amount
		}
		raw = append(raw, insight.RawConsumer{ConsumerID: id, ConsumerType: string(kind), MonthlyBills: byMonth})
	}

	res.Anomalies = billing.ClassifyAdHoc(recs)
	res.CommercialStats = billing.CommercialStats(recs)
	res.Analysis = s.analyzer.OverallInsights(ctx, res.Spikes, res.Summary)
	res.RawData = raw

	res.SessionID = s.sessions.Put(&insight.Session{
		Summary:  res.Summary,
		Spikes:   res.Spikes,
		Analysis: res.Analysis,
		RawData:  raw,
	})

	log.Printf("analyze: %s: %d consumers, %d spikes, %d rows dropped",
		filename, res.Summary.TotalConsumers, res.Summary.SpikeCount, rowStats.Dropped)
	return res, nil
}

// summarizeFile computes descriptive statistics over the kept records.
func summarizeFile(t *sheet.Table, recs []billing.Record) FileSummary {
	amounts := make([]float64, 0, len(recs))
	high := 0
	for _, r := range recs {
		amounts = append(amounts, r.BillAmount)
		if billing.IsHighBill(r) {
			high++
		}
	}
	return FileSummary{
		TotalRecords: len(recs),
		Columns:      append([]string(nil), t.Columns...),
		BillStats:    billing.Describe(amounts),
		HighBills:    high,
	}
}

// Chat answers a follow-up question against a prior analysis session.
func (s *Service) Chat(ctx context.Context, sessionID, question string) (string, error) {
	session := s.sessions.Get(sessionID)
	if session == nil {
		return "", ErrUnknownSession
	}
	return s.analyzer.Answer(ctx, question, session), nil
}

// Sessions exposes the registry size for health reporting.
func (s *Service) Sessions() int { return s.sessions.Len() }

// AnalyzerAvailable reports whether a live model is configured.
func (s *Service) AnalyzerAvailable() bool { return s.analyzer.Available() }
