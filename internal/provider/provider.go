package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/lu-zhengda/sendersweep/internal/domain"
)

// ListOptions selects the messages a scan covers. An empty Query lists the
// whole mailbox; a Limit of 0 means no cap.
type ListOptions struct {
	Query string
	Limit int
}

// ProgressFunc is called after each completed batch.
type ProgressFunc func(done, total int)

// MailProvider is the mailbox capability the scanner and cleaner depend on.
type MailProvider interface {
	// ListMessageIDs returns message IDs in provider order.
	ListMessageIDs(ctx context.Context, opts ListOptions) ([]string, error)
	// FetchMetadata fetches header metadata for ids, preserving their order.
	// Messages that cannot be read are left out and reported through a
	// *SkippedError alongside the messages that were read.
	FetchMetadata(ctx context.Context, ids []string, progress ProgressFunc) ([]domain.MessageMeta, error)
	// TrashBatch moves ids to the trash and returns how many were
	// acknowledged.
	TrashBatch(ctx context.Context, ids []string) (int, error)
	// Profile returns the authenticated mailbox address.
	Profile(ctx context.Context) (string, error)
}

// SkippedError reports messages FetchMetadata had to leave out. It is not
// fatal: the returned messages are complete for every other ID.
type SkippedError struct {
	IDs []string
	Err error
}

func (e *SkippedError) Error() string {
	return fmt.Sprintf("skipped %d message(s): %v", len(e.IDs), e.Err)
}

func (e *SkippedError) Unwrap() error {
	return e.Err
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// ShortList renders at most n ids for log and error messages.
func ShortList(ids []string, n int) string {
	if len(ids) <= n {
		return strings.Join(ids, ",")
	}
	return fmt.Sprintf("%s,... (%d more)", strings.Join(ids[:n], ","), len(ids)-n)
}
