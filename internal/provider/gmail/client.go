package gmail

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/provider"
)

const userID = "me"

// Request size limits imposed by the Gmail API.
const (
	MaxPageSize      = 500
	MaxModifyBatch   = 1000
	defaultFetchSize = 50
)

// Options tunes paging, batching and pacing of API calls.
type Options struct {
	PageSize          int
	FetchBatchSize    int
	RequestsPerSecond float64
	Retry             RetryConfig
	Logger            *zap.Logger
}

// DefaultOptions returns the stock paging and retry settings.
func DefaultOptions() Options {
	return Options{
		PageSize:          MaxPageSize,
		FetchBatchSize:    defaultFetchSize,
		RequestsPerSecond: 10,
		Retry:             DefaultRetryConfig(),
	}
}

// Provider implements provider.MailProvider on top of the Gmail REST API.
type Provider struct {
	service   *gmailapi.Service
	pageSize  int
	batchSize int
	retry     RetryConfig
	limiter   *rate.Limiter
	log       *zap.Logger
}

var _ provider.MailProvider = (*Provider)(nil)

// New wraps an authorized Gmail service.
func New(service *gmailapi.Service, opts Options) *Provider {
	def := DefaultOptions()
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		opts.PageSize = def.PageSize
	}
	if opts.FetchBatchSize <= 0 {
		opts.FetchBatchSize = def.FetchBatchSize
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = def.Retry
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Provider{
		service:   service,
		pageSize:  opts.PageSize,
		batchSize: opts.FetchBatchSize,
		retry:     opts.Retry,
		limiter:   rate.NewLimiter(limit, 1),
		log:       opts.Logger,
	}
}

// ListMessageIDs pages through the message list until it is exhausted or
// opts.Limit IDs have been collected.
func (p *Provider) ListMessageIDs(ctx context.Context, opts provider.ListOptions) ([]string, error) {
	var (
		ids       []string
		pageToken string
	)
	for {
		pageSize := p.pageSize
		if opts.Limit > 0 {
			pageSize = min(pageSize, opts.Limit-len(ids))
		}

		call := p.service.Users.Messages.List(userID).MaxResults(int64(pageSize))
		if opts.Query != "" {
			call = call.Q(opts.Query)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmailapi.ListMessagesResponse
		err := p.call(ctx, "messages.list", func() error {
			var err error
			resp, err = call.Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list gmail messages (%d listed so far): %w", len(ids), err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		p.log.Debug("listed message page", zap.String("query", opts.Query), zap.Int("messages", len(ids)))

		if resp.NextPageToken == "" || (opts.Limit > 0 && len(ids) >= opts.Limit) {
			break
		}
		pageToken = resp.NextPageToken
	}
	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}
	return ids, nil
}

// fetchSlot carries one requested ID and its outcome. Slots are indexed by
// the ID's position in the request, so results never depend on completion
// order.
type fetchSlot struct {
	index int
	id    string
	meta  domain.MessageMeta
	err   error
}

// FetchMetadata reads metadata headers for ids in batches of FetchBatchSize.
// A message that fails with a permanent error is skipped; a transient error
// that outlasts every retry aborts the fetch.
func (p *Provider) FetchMetadata(ctx context.Context, ids []string, progress provider.ProgressFunc) ([]domain.MessageMeta, error) {
	slots := make([]fetchSlot, len(ids))
	for i, id := range ids {
		slots[i] = fetchSlot{index: i, id: id}
	}

	done := 0
	for _, batch := range chunkSlots(slots, p.batchSize) {
		for i := range batch {
			if err := p.fetchOne(ctx, &batch[i]); err != nil {
				return nil, err
			}
		}
		done += len(batch)
		if progress != nil {
			progress(done, len(ids))
		}
	}

	var (
		metas   = make([]domain.MessageMeta, 0, len(slots))
		skipped []string
		errs    *multierror.Error
	)
	for _, s := range slots {
		if s.err != nil {
			skipped = append(skipped, s.id)
			errs = multierror.Append(errs, fmt.Errorf("message %s: %w", s.id, s.err))
			continue
		}
		metas = append(metas, s.meta)
	}
	if len(skipped) > 0 {
		p.log.Warn("skipped unreadable messages",
			zap.Int("skipped", len(skipped)),
			zap.String("ids", provider.ShortList(skipped, 10)),
		)
		return metas, &provider.SkippedError{IDs: skipped, Err: errs.ErrorOrNil()}
	}
	return metas, nil
}

// fetchOne fills slot. It returns an error only when the whole fetch must
// stop; per-message failures are recorded on the slot.
func (p *Provider) fetchOne(ctx context.Context, slot *fetchSlot) error {
	var msg *gmailapi.Message
	err := p.call(ctx, "messages.get", func() error {
		var err error
		msg, err = p.service.Users.Messages.Get(userID, slot.id).
			Format("metadata").
			MetadataHeaders(metadataHeaders...).
			Context(ctx).Do()
		return err
	})
	switch {
	case errors.Is(err, ErrRetriesExhausted):
		return fmt.Errorf("failed to fetch message %s: %w", slot.id, err)
	case ctx.Err() != nil:
		return fmt.Errorf("failed to fetch message %s: %w", slot.id, ctx.Err())
	case err != nil:
		slot.err = err
		return nil
	}
	slot.meta, slot.err = mapMetadata(msg)
	return nil
}

func chunkSlots(slots []fetchSlot, size int) [][]fetchSlot {
	var out [][]fetchSlot
	for start := 0; start < len(slots); start += size {
		out = append(out, slots[start:min(start+size, len(slots))])
	}
	return out
}

// TrashBatch moves up to MaxModifyBatch messages to the trash with a single
// batchModify call. The API acknowledges all or nothing.
func (p *Provider) TrashBatch(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if len(ids) > MaxModifyBatch {
		return 0, fmt.Errorf("batch of %d exceeds the %d message limit", len(ids), MaxModifyBatch)
	}
	req := &gmailapi.BatchModifyMessagesRequest{
		Ids:            ids,
		AddLabelIds:    []string{domain.LabelTrash},
		RemoveLabelIds: []string{domain.LabelInbox},
	}
	err := p.call(ctx, "messages.batchModify", func() error {
		return p.service.Users.Messages.BatchModify(userID, req).Context(ctx).Do()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to trash %d messages: %w", len(ids), err)
	}
	return len(ids), nil
}

// Profile returns the authenticated user's email address.
func (p *Provider) Profile(ctx context.Context) (string, error) {
	var profile *gmailapi.Profile
	err := p.call(ctx, "users.getProfile", func() error {
		var err error
		profile, err = p.service.Users.GetProfile(userID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to get gmail profile: %w", err)
	}
	return profile.EmailAddress, nil
}
