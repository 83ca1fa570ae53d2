package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/metrics"
	"github.com/lu-zhengda/sendersweep/internal/provider"
	"github.com/lu-zhengda/sendersweep/internal/scoring"
	"github.com/lu-zhengda/sendersweep/internal/store"
)

// ScanStage names a step of the scan pipeline for progress reporting.
type ScanStage string

const (
	StageList  ScanStage = "list"
	StageFetch ScanStage = "fetch"
)

// ScanProgress receives pipeline progress. total is 0 while unknown.
type ScanProgress func(stage ScanStage, done, total int)

// ScanOptions selects what a scan covers.
type ScanOptions struct {
	Query       string
	MaxMessages int
	// UseCache returns the latest snapshot for Query when one exists.
	UseCache bool
}

// ScanReport is the outcome of ScanService.Scan.
type ScanReport struct {
	Result    *domain.ScanResult
	FromCache bool
	Skipped   int
}

// ScanService runs the scan pipeline: list, fetch, aggregate, score, save.
type ScanService struct {
	provider provider.MailProvider
	store    store.Store
	engine   *scoring.Engine
	metrics  *metrics.Recorder
	log      *zap.Logger
	now      func() time.Time
}

// NewScanService wires a ScanService. log and rec may be nil.
func NewScanService(p provider.MailProvider, s store.Store, engine *scoring.Engine, rec *metrics.Recorder, log *zap.Logger) *ScanService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScanService{provider: p, store: s, engine: engine, metrics: rec, log: log, now: time.Now}
}

// Scan produces a scored snapshot for opts, persisting it unless it came
// from the cache.
func (s *ScanService) Scan(ctx context.Context, opts ScanOptions, progress ScanProgress) (*ScanReport, error) {
	if progress == nil {
		progress = func(ScanStage, int, int) {}
	}

	if opts.UseCache {
		cached, err := s.store.LoadLatestScanForQuery(ctx, opts.Query)
		switch {
		case err == nil:
			s.log.Info("using cached scan", zap.String("query", opts.Query), zap.Time("scan_date", cached.ScanDate))
			s.metrics.Senders(len(cached.Senders))
			return &ScanReport{Result: cached, FromCache: true}, nil
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("failed to load cached scan: %w", err)
		}
	}

	progress(StageList, 0, 0)
	ids, err := s.provider.ListMessageIDs(ctx, provider.ListOptions{Query: opts.Query, Limit: opts.MaxMessages})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	progress(StageList, len(ids), len(ids))
	s.log.Info("listed messages", zap.String("query", opts.Query), zap.Int("messages", len(ids)))

	var (
		metas   []domain.MessageMeta
		skipped int
	)
	if len(ids) > 0 {
		metas, err = s.provider.FetchMetadata(ctx, ids, func(done, total int) {
			progress(StageFetch, done, total)
		})
		var skipErr *provider.SkippedError
		switch {
		case errors.As(err, &skipErr):
			skipped = len(skipErr.IDs)
			s.log.Warn("some messages could not be read", zap.Int("skipped", skipped), zap.Error(skipErr.Err))
		case err != nil:
			return nil, fmt.Errorf("failed to fetch metadata: %w", err)
		}
	}

	senders := s.engine.ScoreAll(domain.GroupBySender(metas))
	result := domain.NewScanResult(len(metas), senders, opts.Query, s.now())

	if _, err := s.store.SaveScan(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save scan: %w", err)
	}
	s.log.Info("scan complete",
		zap.Int("messages", result.TotalMessages),
		zap.Int("senders", len(senders)),
		zap.Int("skipped", skipped),
	)
	s.metrics.Scanned(len(metas))
	s.metrics.Skipped(skipped)
	s.metrics.Senders(len(senders))

	return &ScanReport{Result: result, Skipped: skipped}, nil
}

// Latest returns the most recent snapshot regardless of query.
func (s *ScanService) Latest(ctx context.Context) (*domain.ScanResult, error) {
	scan, err := s.store.LoadLatestScan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest scan: %w", err)
	}
	return scan, nil
}
