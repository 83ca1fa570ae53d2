package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.Scanned(40)
	r.Skipped(2)
	r.TrashBatch(1000)
	r.TrashBatch(500)
	r.Senders(12)

	assert.Equal(t, 40.0, testutil.ToFloat64(r.scanned))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.skipped))
	assert.Equal(t, 1500.0, testutil.ToFloat64(r.trashed))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.batches))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.senders))
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.Scanned(1)
	r.Skipped(1)
	r.TrashBatch(1)
	r.Senders(1)
	assert.NoError(t, r.WriteTextfile("/nonexistent/metrics.prom", time.Now()))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.TrashBatch(20)
	path := filepath.Join(t.TempDir(), "sendersweep.prom")

	require.NoError(t, r.WriteTextfile(path, time.Unix(1700000000, 0)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "sendersweep_messages_trashed_total 20")
	assert.Contains(t, out, "sendersweep_last_run_timestamp_seconds 1.7e+09")
	assert.True(t, strings.Contains(out, "# TYPE sendersweep_trash_batches_total counter"))
}
