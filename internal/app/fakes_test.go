package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/provider"
	"github.com/lu-zhengda/sendersweep/internal/store/sqlite"
)

// fakeProvider serves a fixed mailbox and records trash batches.
type fakeProvider struct {
	messages  []domain.MessageMeta
	skip      []string
	fetchErr  error
	listCalls int
	batches   [][]string
	// failAt makes the n-th TrashBatch call (1-based) fail.
	failAt int
	// shortAt makes the n-th TrashBatch call acknowledge one message less.
	shortAt int
}

func (f *fakeProvider) ListMessageIDs(_ context.Context, opts provider.ListOptions) ([]string, error) {
	f.listCalls++
	var ids []string
	for _, m := range f.messages {
		ids = append(ids, m.ID)
	}
	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
	}
	return ids, nil
}

func (f *fakeProvider) FetchMetadata(_ context.Context, ids []string, progress provider.ProgressFunc) ([]domain.MessageMeta, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	byID := make(map[string]domain.MessageMeta, len(f.messages))
	for _, m := range f.messages {
		byID[m.ID] = m
	}
	skip := make(map[string]bool)
	for _, id := range f.skip {
		skip[id] = true
	}
	var out []domain.MessageMeta
	for i, id := range ids {
		if !skip[id] {
			out = append(out, byID[id])
		}
		if progress != nil {
			progress(i+1, len(ids))
		}
	}
	if len(f.skip) > 0 {
		return out, &provider.SkippedError{IDs: f.skip, Err: errors.New("not found")}
	}
	return out, nil
}

func (f *fakeProvider) TrashBatch(_ context.Context, ids []string) (int, error) {
	if f.failAt > 0 && len(f.batches)+1 == f.failAt {
		return 0, errors.New("quota exhausted")
	}
	f.batches = append(f.batches, append([]string(nil), ids...))
	if f.shortAt > 0 && len(f.batches) == f.shortAt {
		return len(ids) - 1, nil
	}
	return len(ids), nil
}

func (f *fakeProvider) Profile(context.Context) (string, error) {
	return "me@example.com", nil
}

// scriptedPrompter returns canned answers and records what it was shown.
type scriptedPrompter struct {
	selection  string
	answer     string
	shown      []domain.SenderProfile
	confirmed  *Plan
	confirmCnt int
}

func (p *scriptedPrompter) SelectSenders(_ context.Context, candidates []domain.SenderProfile) (string, error) {
	p.shown = candidates
	return p.selection, nil
}

func (p *scriptedPrompter) Confirm(_ context.Context, plan Plan, _ string) (string, error) {
	p.confirmCnt++
	p.confirmed = &plan
	return p.answer, nil
}

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// newsletterMail returns n messages carrying every newsletter signal.
func newsletterMail(sender string, n int) []domain.MessageMeta {
	out := make([]domain.MessageMeta, 0, n)
	for i := range n {
		out = append(out, domain.NewMessageMeta(
			fmt.Sprintf("%s-%02d", sender, i),
			"Newsletter <"+sender+">",
			fmt.Sprintf("Issue %d", i),
			[]string{domain.LabelInbox, domain.LabelPromotions},
			true, "bulk", "",
		))
	}
	return out
}

func personalMail(sender string, n int) []domain.MessageMeta {
	out := make([]domain.MessageMeta, 0, n)
	for i := range n {
		out = append(out, domain.NewMessageMeta(
			fmt.Sprintf("%s-%02d", sender, i), sender, "hey", []string{domain.LabelInbox}, false, "", ""))
	}
	return out
}
