package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/lu-zhengda/sendersweep/internal/provider"
)

// fakeGmail serves the subset of the Gmail REST API the provider calls.
type fakeGmail struct {
	mu        sync.Mutex
	ids       []string
	messages  map[string]*gmailapi.Message
	failures  map[string][]int
	modified  []*gmailapi.BatchModifyMessagesRequest
	pageSizes []int64
	calls     map[string]int
}

func newFakeGmail() *fakeGmail {
	return &fakeGmail{
		messages: make(map[string]*gmailapi.Message),
		failures: make(map[string][]int),
		calls:    make(map[string]int),
	}
}

func (f *fakeGmail) addMessage(id, from string, labels ...string) {
	f.ids = append(f.ids, id)
	f.messages[id] = &gmailapi.Message{
		Id:       id,
		LabelIds: labels,
		Payload: &gmailapi.MessagePart{Headers: []*gmailapi.MessagePartHeader{
			{Name: "From", Value: from},
			{Name: "Subject", Value: "subject " + id},
		}},
	}
}

// fail pops the next scripted status code for key, or 0.
func (f *fakeGmail) fail(key string) int {
	codes := f.failures[key]
	if len(codes) == 0 {
		return 0
	}
	f.failures[key] = codes[1:]
	return codes[0]
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/")
	key := path
	if strings.HasPrefix(path, "messages/") && path != "messages/batchModify" {
		key = strings.TrimPrefix(path, "messages/")
	}
	f.calls[key]++
	if code := f.fail(key); code != 0 {
		writeError(w, code)
		return
	}

	switch {
	case path == "messages":
		start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
		size, _ := strconv.ParseInt(r.URL.Query().Get("maxResults"), 10, 64)
		f.pageSizes = append(f.pageSizes, size)
		end := min(start+int(size), len(f.ids))
		resp := gmailapi.ListMessagesResponse{}
		for _, id := range f.ids[start:end] {
			resp.Messages = append(resp.Messages, &gmailapi.Message{Id: id})
		}
		if end < len(f.ids) {
			resp.NextPageToken = strconv.Itoa(end)
		}
		writeJSON(w, resp)
	case path == "messages/batchModify":
		var req gmailapi.BatchModifyMessagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest)
			return
		}
		f.modified = append(f.modified, &req)
		w.WriteHeader(http.StatusNoContent)
	case path == "profile":
		writeJSON(w, gmailapi.Profile{EmailAddress: "me@example.com"})
	default:
		msg, ok := f.messages[key]
		if !ok {
			writeError(w, http.StatusNotFound)
			return
		}
		writeJSON(w, msg)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"fake error"}}`, code)
}

func newTestProvider(t *testing.T, f *fakeGmail, opts Options) *Provider {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	svc, err := gmailapi.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)

	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	}
	opts.Logger = zaptest.NewLogger(t)
	return New(svc, opts)
}

func TestListMessageIDs_Pages(t *testing.T) {
	f := newFakeGmail()
	for i := range 7 {
		f.addMessage(fmt.Sprintf("m%d", i), "a@x.com")
	}
	p := newTestProvider(t, f, Options{PageSize: 3})

	ids, err := p.ListMessageIDs(context.Background(), provider.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4", "m5", "m6"}, ids)
	assert.Equal(t, []int64{3, 3, 3}, f.pageSizes)
}

func TestListMessageIDs_Limit(t *testing.T) {
	f := newFakeGmail()
	for i := range 7 {
		f.addMessage(fmt.Sprintf("m%d", i), "a@x.com")
	}
	p := newTestProvider(t, f, Options{PageSize: 3})

	ids, err := p.ListMessageIDs(context.Background(), provider.ListOptions{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"m0", "m1", "m2", "m3", "m4"}, ids)
	assert.Equal(t, []int64{3, 2}, f.pageSizes)
}

func TestFetchMetadata_OrderAndProgress(t *testing.T) {
	f := newFakeGmail()
	for i := range 5 {
		f.addMessage(fmt.Sprintf("m%d", i), fmt.Sprintf("Sender %d <s%d@x.com>", i, i), "INBOX")
	}
	p := newTestProvider(t, f, Options{FetchBatchSize: 2})

	var progress [][2]int
	metas, err := p.FetchMetadata(context.Background(), f.ids, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)
	require.Len(t, metas, 5)
	for i, m := range metas {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.ID)
		assert.Equal(t, fmt.Sprintf("s%d@x.com", i), m.SenderEmail)
	}
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, progress)
}

func TestFetchMetadata_SkipsPermanentFailures(t *testing.T) {
	f := newFakeGmail()
	f.addMessage("m0", "a@x.com")
	f.addMessage("m2", "a@x.com")
	p := newTestProvider(t, f, Options{})

	metas, err := p.FetchMetadata(context.Background(), []string{"m0", "gone", "m2"}, nil)
	var skipped *provider.SkippedError
	require.True(t, errors.As(err, &skipped), "err = %v", err)
	assert.Equal(t, []string{"gone"}, skipped.IDs)
	require.Len(t, metas, 2)
	assert.Equal(t, "m0", metas[0].ID)
	assert.Equal(t, "m2", metas[1].ID)
	assert.Equal(t, 1, f.calls["gone"])
}

func TestFetchMetadata_RetriesTransient(t *testing.T) {
	f := newFakeGmail()
	f.addMessage("m0", "a@x.com")
	f.failures["m0"] = []int{http.StatusTooManyRequests, http.StatusServiceUnavailable}
	p := newTestProvider(t, f, Options{})

	metas, err := p.FetchMetadata(context.Background(), []string{"m0"}, nil)
	require.NoError(t, err)
	assert.Len(t, metas, 1)
	assert.Equal(t, 3, f.calls["m0"])
}

func TestFetchMetadata_RetriesExhaustedIsFatal(t *testing.T) {
	f := newFakeGmail()
	f.addMessage("m0", "a@x.com")
	f.addMessage("m1", "a@x.com")
	f.failures["m1"] = []int{500, 500, 500, 500}
	p := newTestProvider(t, f, Options{})

	metas, err := p.FetchMetadata(context.Background(), f.ids, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted), "err = %v", err)
	assert.Nil(t, metas)
	assert.Equal(t, 3, f.calls["m1"])
}

func TestTrashBatch(t *testing.T) {
	f := newFakeGmail()
	p := newTestProvider(t, f, Options{})

	n, err := p.TrashBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, f.modified, 1)
	assert.Equal(t, []string{"a", "b"}, f.modified[0].Ids)
	assert.Equal(t, []string{"TRASH"}, f.modified[0].AddLabelIds)
	assert.Equal(t, []string{"INBOX"}, f.modified[0].RemoveLabelIds)

	n, err = p.TrashBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = p.TrashBatch(context.Background(), make([]string, MaxModifyBatch+1))
	assert.Error(t, err)
	assert.Len(t, f.modified, 1)
}

func TestTrashBatch_PermanentError(t *testing.T) {
	f := newFakeGmail()
	f.failures["messages/batchModify"] = []int{http.StatusForbidden}
	p := newTestProvider(t, f, Options{})

	n, err := p.TrashBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.False(t, errors.Is(err, ErrRetriesExhausted))
	assert.Equal(t, 1, f.calls["messages/batchModify"])
}

func TestProfile(t *testing.T) {
	p := newTestProvider(t, newFakeGmail(), Options{})
	email, err := p.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", email)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429", &googleapi.Error{Code: 429}, true},
		{"500", &googleapi.Error{Code: 500}, true},
		{"503", &googleapi.Error{Code: 503}, true},
		{"wrapped 503", fmt.Errorf("call: %w", &googleapi.Error{Code: 503}), true},
		{"404", &googleapi.Error{Code: 404}, false},
		{"403", &googleapi.Error{Code: 403}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
