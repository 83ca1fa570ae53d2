package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lu-zhengda/sendersweep/internal/audit"
	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/metrics"
	"github.com/lu-zhengda/sendersweep/internal/provider"
	"github.com/lu-zhengda/sendersweep/internal/scoring"
)

// Defaults for the cleanup workflow.
const (
	DefaultConfirmToken = "TRASH"
	MaxTrashBatch       = 1000
)

// Outcome is how a cleanup run ended.
type Outcome string

const (
	OutcomeEmpty     Outcome = "empty"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeAborted   Outcome = "aborted"
	OutcomeDryRun    Outcome = "dry_run"
	OutcomeSuccess   Outcome = "success"
)

// SenderIndex maps a sender to the message IDs of the latest snapshot.
type SenderIndex interface {
	MessageIDsForSender(ctx context.Context, email string) ([]string, error)
}

// Trasher moves one batch of messages to the trash.
type Trasher interface {
	TrashBatch(ctx context.Context, ids []string) (int, error)
}

// AuditLog records completed trash operations.
type AuditLog interface {
	Append(e audit.Entry) (audit.Entry, error)
}

// Prompter collects the two user decisions of a cleanup run.
type Prompter interface {
	// SelectSenders shows the ranked candidates and returns the raw
	// selection: "all", "q" or comma-separated 1-based indices.
	SelectSenders(ctx context.Context, candidates []domain.SenderProfile) (string, error)
	// Confirm shows the plan and returns what the user typed.
	Confirm(ctx context.Context, plan Plan, token string) (string, error)
}

// Plan is a resolved selection: the senders and every message ID to trash.
type Plan struct {
	Senders    []domain.SenderProfile
	MessageIDs []string
}

// ExecuteResult reports what Execute achieved, including after a failure.
type ExecuteResult struct {
	Trashed      int
	Batches      int
	TotalBatches int
	Entry        *audit.Entry
}

// CleanOptions configures CleanService.Run.
type CleanOptions struct {
	MinScore float64
	// Execute trashes messages; otherwise the run stops after resolving.
	Execute  bool
	Progress provider.ProgressFunc
}

// CleanSummary is the result of a whole cleanup run.
type CleanSummary struct {
	Outcome         Outcome
	SelectedSenders int
	TotalMessages   int
	Trashed         int
}

// CleanConfig holds the tunables of CleanService.
type CleanConfig struct {
	BatchSize    int
	ConfirmToken string
}

// CleanService turns a sender selection into trashed messages. Each step is
// exposed so it can be driven and tested on its own; Run chains them.
type CleanService struct {
	engine  *scoring.Engine
	index   SenderIndex
	trasher Trasher
	audit   AuditLog
	cfg     CleanConfig
	metrics *metrics.Recorder
	log     *zap.Logger
}

// NewCleanService wires a CleanService. Batch sizes outside (0, 1000] and
// an empty token fall back to the defaults.
func NewCleanService(engine *scoring.Engine, index SenderIndex, trasher Trasher, auditLog AuditLog, cfg CleanConfig, rec *metrics.Recorder, logger *zap.Logger) *CleanService {
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxTrashBatch {
		cfg.BatchSize = MaxTrashBatch
	}
	if cfg.ConfirmToken == "" {
		cfg.ConfirmToken = DefaultConfirmToken
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanService{
		engine:  engine,
		index:   index,
		trasher: trasher,
		audit:   auditLog,
		cfg:     cfg,
		metrics: rec,
		log:     logger,
	}
}

// ConfirmToken returns the text the user must type to proceed.
func (c *CleanService) ConfirmToken() string {
	return c.cfg.ConfirmToken
}

// Candidates ranks the scan's senders for selection.
func (c *CleanService) Candidates(scan *domain.ScanResult, minScore float64) []domain.SenderProfile {
	return c.engine.RankScan(scan, minScore)
}

// Resolve collects the message IDs of every selected sender from the most
// recent snapshot.
func (c *CleanService) Resolve(ctx context.Context, selected []domain.SenderProfile) (Plan, error) {
	plan := Plan{Senders: selected}
	for _, p := range selected {
		ids, err := c.index.MessageIDsForSender(ctx, p.Email)
		if err != nil {
			return Plan{}, fmt.Errorf("failed to resolve messages for %s: %w", p.Email, err)
		}
		plan.MessageIDs = append(plan.MessageIDs, ids...)
	}
	return plan, nil
}

// Confirm reports whether answer is exactly the confirmation token,
// ignoring surrounding whitespace.
func (c *CleanService) Confirm(answer string) bool {
	return strings.TrimSpace(answer) == c.cfg.ConfirmToken
}

// Execute trashes the plan's messages in sequential batches, calling
// progress after each acknowledged batch, then appends an audit entry.
// If a batch fails, the result still counts earlier batches and the entry
// is written as partial.
func (c *CleanService) Execute(ctx context.Context, plan Plan, progress provider.ProgressFunc) (ExecuteResult, error) {
	batches := provider.Chunk(plan.MessageIDs, c.cfg.BatchSize)
	res := ExecuteResult{TotalBatches: len(batches)}
	var (
		acked    []string
		batchErr error
	)
	for i, batch := range batches {
		n, err := c.trasher.TrashBatch(ctx, batch)
		if err != nil {
			batchErr = fmt.Errorf("failed to trash batch %d/%d: %w", i+1, len(batches), err)
			break
		}
		// Batches are all-or-nothing; a short count leaves the batch's state unknown.
		if n != len(batch) {
			batchErr = fmt.Errorf("failed to trash batch %d/%d: %d of %d messages acknowledged", i+1, len(batches), n, len(batch))
			break
		}
		acked = append(acked, batch...)
		res.Trashed += n
		res.Batches++
		c.metrics.TrashBatch(n)
		c.log.Info("trashed batch",
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
			zap.Int("trashed", res.Trashed),
		)
		if progress != nil {
			progress(i+1, len(batches))
		}
	}

	if batchErr != nil && res.Trashed == 0 {
		return res, batchErr
	}

	entry, err := c.audit.Append(audit.Entry{
		Senders:       senderRefs(plan.Senders),
		TotalMessages: res.Trashed,
		MessageIDs:    acked,
		Partial:       batchErr != nil,
	})
	if err != nil {
		return res, errors.Join(batchErr, fmt.Errorf("failed to write audit log: %w", err))
	}
	res.Entry = &entry
	return res, batchErr
}

// Run drives one full cleanup: rank, select, resolve, confirm, execute.
func (c *CleanService) Run(ctx context.Context, scan *domain.ScanResult, opts CleanOptions, prompt Prompter) (CleanSummary, error) {
	candidates := c.Candidates(scan, opts.MinScore)
	if len(candidates) == 0 {
		return CleanSummary{Outcome: OutcomeEmpty}, nil
	}

	input, err := prompt.SelectSenders(ctx, candidates)
	if err != nil {
		return CleanSummary{}, fmt.Errorf("failed to read selection: %w", err)
	}
	selected, err := Select(candidates, input)
	switch {
	case errors.Is(err, ErrCancelled):
		return CleanSummary{Outcome: OutcomeCancelled}, nil
	case errors.Is(err, ErrEmptySelection):
		return CleanSummary{Outcome: OutcomeEmpty}, nil
	case err != nil:
		return CleanSummary{Outcome: OutcomeInvalid}, err
	}

	plan, err := c.Resolve(ctx, selected)
	if err != nil {
		return CleanSummary{}, err
	}
	summary := CleanSummary{SelectedSenders: len(selected), TotalMessages: len(plan.MessageIDs)}
	if len(plan.MessageIDs) == 0 {
		summary.Outcome = OutcomeEmpty
		return summary, nil
	}
	if !opts.Execute {
		summary.Outcome = OutcomeDryRun
		return summary, nil
	}

	answer, err := prompt.Confirm(ctx, plan, c.cfg.ConfirmToken)
	if err != nil {
		return summary, fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !c.Confirm(answer) {
		summary.Outcome = OutcomeAborted
		return summary, nil
	}

	res, err := c.Execute(ctx, plan, opts.Progress)
	summary.Trashed = res.Trashed
	if err != nil {
		return summary, err
	}
	summary.Outcome = OutcomeSuccess
	return summary, nil
}

func senderRefs(profiles []domain.SenderProfile) []audit.SenderRef {
	refs := make([]audit.SenderRef, 0, len(profiles))
	for _, p := range profiles {
		refs = append(refs, audit.SenderRef{Email: p.Email, Name: p.Name, MessageCount: p.MessageCount})
	}
	return refs
}
