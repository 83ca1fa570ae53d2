package cli

import (
	"time"

	"github.com/lu-zhengda/sendersweep/internal/app"
	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/scoring"
	"github.com/lu-zhengda/sendersweep/internal/store"
)

// ---------------------------------------------------------------------------
// Sender JSON types (scan)
// ---------------------------------------------------------------------------

type jsonSender struct {
	Rank           int      `json:"rank"`
	Email          string   `json:"email"`
	Name           string   `json:"name,omitempty"`
	MessageCount   int      `json:"message_count"`
	Score          float64  `json:"score"`
	Classification string   `json:"classification"`
	Signals        []string `json:"signals,omitempty"`
	SampleSubjects []string `json:"sample_subjects,omitempty"`
}

func toJSONSenders(engine *scoring.Engine, ranked []domain.SenderProfile) []jsonSender {
	out := make([]jsonSender, 0, len(ranked))
	for i, p := range ranked {
		var signals []string
		for _, s := range engine.Signals(p) {
			signals = append(signals, string(s))
		}
		out = append(out, jsonSender{
			Rank:           i + 1,
			Email:          p.Email,
			Name:           p.Name,
			MessageCount:   p.MessageCount,
			Score:          p.Score,
			Classification: string(engine.Classify(p.Score)),
			Signals:        signals,
			SampleSubjects: p.SampleSubjects,
		})
	}
	return out
}

type jsonScan struct {
	Query         string       `json:"query"`
	ScanDate      string       `json:"scan_date"`
	TotalMessages int          `json:"total_messages"`
	SenderCount   int          `json:"sender_count"`
	FromCache     bool         `json:"from_cache"`
	Skipped       int          `json:"skipped,omitempty"`
	MinScore      float64      `json:"min_score"`
	Senders       []jsonSender `json:"senders"`
}

func toJSONScan(engine *scoring.Engine, report *app.ScanReport, minScore float64) jsonScan {
	scan := report.Result
	return jsonScan{
		Query:         scan.Query,
		ScanDate:      scan.ScanDate.Format(time.RFC3339),
		TotalMessages: scan.TotalMessages,
		SenderCount:   len(scan.Senders),
		FromCache:     report.FromCache,
		Skipped:       report.Skipped,
		MinScore:      engine.Floor(minScore),
		Senders:       toJSONSenders(engine, engine.RankScan(scan, minScore)),
	}
}

// ---------------------------------------------------------------------------
// Clean summary JSON type (clean)
// ---------------------------------------------------------------------------

type jsonCleanSummary struct {
	Outcome         string `json:"outcome"`
	Execute         bool   `json:"execute"`
	SelectedSenders int    `json:"selected_senders"`
	TotalMessages   int    `json:"total_messages"`
	Trashed         int    `json:"trashed"`
}

func toJSONCleanSummary(s app.CleanSummary, execute bool) jsonCleanSummary {
	return jsonCleanSummary{
		Outcome:         string(s.Outcome),
		Execute:         execute,
		SelectedSenders: s.SelectedSenders,
		TotalMessages:   s.TotalMessages,
		Trashed:         s.Trashed,
	}
}

// ---------------------------------------------------------------------------
// Cache JSON type (cache info)
// ---------------------------------------------------------------------------

type jsonCacheInfo struct {
	Path         string `json:"path"`
	SizeBytes    int64  `json:"size_bytes"`
	Scans        int    `json:"scans"`
	LastScan     string `json:"last_scan,omitempty"`
	LastQuery    string `json:"last_query,omitempty"`
	Senders      int    `json:"senders"`
	Messages     int    `json:"messages"`
	AuditLog     string `json:"audit_log"`
	TrashRecords int    `json:"trash_records"`
}

func toJSONCacheInfo(info *store.Info, auditPath string, records int) jsonCacheInfo {
	out := jsonCacheInfo{
		Path:         info.Path,
		SizeBytes:    info.SizeBytes,
		Scans:        info.Scans,
		LastQuery:    info.LastQuery,
		Senders:      info.Senders,
		Messages:     info.Messages,
		AuditLog:     auditPath,
		TrashRecords: records,
	}
	if !info.LastScan.IsZero() {
		out.LastScan = info.LastScan.Format(time.RFC3339)
	}
	return out
}

// ---------------------------------------------------------------------------
// Action JSON type (auth, cache clear, export)
// ---------------------------------------------------------------------------

type jsonAction struct {
	OK     bool   `json:"ok"`
	Action string `json:"action"`
	Email  string `json:"email,omitempty"`
	Path   string `json:"path,omitempty"`
	Count  int    `json:"count,omitempty"`
}
