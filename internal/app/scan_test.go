package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/metrics"
	"github.com/lu-zhengda/sendersweep/internal/provider"
	"github.com/lu-zhengda/sendersweep/internal/scoring"
	"github.com/lu-zhengda/sendersweep/internal/store"
)

func newTestScanService(t *testing.T, p provider.MailProvider) (*ScanService, store.Store) {
	t.Helper()
	db := newTestStore(t)
	svc := NewScanService(p, db, scoring.New(scoring.DefaultConfig()), metrics.New(), zaptest.NewLogger(t))
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, db
}

func TestScan_EndToEndScoring(t *testing.T) {
	mail := append(newsletterMail("noreply@example-newsletter.com", 15), personalMail("alice.smith@gmail.com", 3)...)
	svc, db := newTestScanService(t, &fakeProvider{messages: mail})
	engine := scoring.New(scoring.DefaultConfig())

	report, err := svc.Scan(context.Background(), ScanOptions{}, nil)
	require.NoError(t, err)
	assert.False(t, report.FromCache)

	scan := report.Result
	assert.Equal(t, 18, scan.TotalMessages)
	require.Len(t, scan.Senders, 2)

	news := scan.Senders["noreply@example-newsletter.com"]
	assert.GreaterOrEqual(t, news.Score, 0.7)
	assert.Equal(t, domain.Newsletter, engine.Classify(news.Score))
	assert.Equal(t, "Newsletter", news.Name)

	alice := scan.Senders["alice.smith@gmail.com"]
	assert.Less(t, alice.Score, 0.3)
	assert.Equal(t, domain.Personal, engine.Classify(alice.Score))

	saved, err := db.LoadLatestScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scan.TotalMessages, saved.TotalMessages)
	assert.Equal(t, news.Score, saved.Senders["noreply@example-newsletter.com"].Score)
}

func TestScan_UsesCacheForSameQuery(t *testing.T) {
	fp := &fakeProvider{messages: personalMail("bob@example.com", 2)}
	svc, _ := newTestScanService(t, fp)
	ctx := context.Background()

	_, err := svc.Scan(ctx, ScanOptions{Query: "in:inbox"}, nil)
	require.NoError(t, err)

	report, err := svc.Scan(ctx, ScanOptions{Query: "in:inbox", UseCache: true}, nil)
	require.NoError(t, err)
	assert.True(t, report.FromCache)
	assert.Equal(t, 1, fp.listCalls)

	report, err = svc.Scan(ctx, ScanOptions{Query: "label:work", UseCache: true}, nil)
	require.NoError(t, err)
	assert.False(t, report.FromCache)
	assert.Equal(t, 2, fp.listCalls)
}

func TestScan_NoMessages(t *testing.T) {
	svc, db := newTestScanService(t, &fakeProvider{})

	report, err := svc.Scan(context.Background(), ScanOptions{Query: "from:nobody"}, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Result.TotalMessages)
	assert.Empty(t, report.Result.Senders)

	saved, err := db.LoadLatestScanForQuery(context.Background(), "from:nobody")
	require.NoError(t, err)
	assert.Empty(t, saved.Senders)
}

func TestScan_SkippedMessagesAreNotFatal(t *testing.T) {
	mail := personalMail("bob@example.com", 3)
	fp := &fakeProvider{messages: mail, skip: []string{mail[1].ID}}
	svc, _ := newTestScanService(t, fp)

	report, err := svc.Scan(context.Background(), ScanOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.Result.TotalMessages)
	assert.Equal(t, 2, report.Result.Senders["bob@example.com"].MessageCount)
}

func TestScan_FetchErrorIsFatal(t *testing.T) {
	fp := &fakeProvider{messages: personalMail("bob@example.com", 1), fetchErr: errors.New("retries exhausted")}
	svc, db := newTestScanService(t, fp)

	_, err := svc.Scan(context.Background(), ScanOptions{}, nil)
	require.Error(t, err)

	_, err = db.LoadLatestScan(context.Background())
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestScan_ProgressAndLimit(t *testing.T) {
	fp := &fakeProvider{messages: personalMail("bob@example.com", 5)}
	svc, _ := newTestScanService(t, fp)

	var fetch [][2]int
	report, err := svc.Scan(context.Background(), ScanOptions{MaxMessages: 3}, func(stage ScanStage, done, total int) {
		if stage == StageFetch {
			fetch = append(fetch, [2]int{done, total})
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Result.TotalMessages)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, fetch)
}

func TestLatest_NotFound(t *testing.T) {
	svc, _ := newTestScanService(t, &fakeProvider{})
	_, err := svc.Latest(context.Background())
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
