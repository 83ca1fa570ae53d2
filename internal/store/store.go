package store

import (
	"context"
	"errors"
	"time"

	"github.com/lu-zhengda/sendersweep/internal/domain"
)

// ErrNotFound is returned when no persisted scan matches a lookup.
var ErrNotFound = errors.New("no cached scan found")

// Store persists scan snapshots. Snapshots are append-only: every SaveScan
// creates a new one and the most recently inserted snapshot wins lookups.
type Store interface {
	SaveScan(ctx context.Context, scan *domain.ScanResult) (int64, error)
	// LoadLatestScan returns the most recent snapshot or ErrNotFound.
	LoadLatestScan(ctx context.Context) (*domain.ScanResult, error)
	// LoadLatestScanForQuery returns the most recent snapshot whose query
	// matches exactly, or ErrNotFound.
	LoadLatestScanForQuery(ctx context.Context, query string) (*domain.ScanResult, error)
	// MessageIDsForSender lists the message IDs recorded for email in the
	// most recent snapshot.
	MessageIDsForSender(ctx context.Context, email string) ([]string, error)

	Info(ctx context.Context) (*Info, error)
	Clear(ctx context.Context) error
	Close() error
}

// Info summarises the snapshot cache.
type Info struct {
	Path      string
	SizeBytes int64
	Scans     int
	LastScan  time.Time
	LastQuery string
	Senders   int
	Messages  int
}
