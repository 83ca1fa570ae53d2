package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lu-zhengda/sendersweep/internal/domain"
)

type msgOpts struct {
	unsub      bool
	precedence string
	labels     []string
}

func profile(email string, n int, o msgOpts) domain.SenderProfile {
	msgs := make([]domain.MessageMeta, 0, n)
	for i := range n {
		msgs = append(msgs, domain.NewMessageMeta(fmt.Sprintf("%s-%d", email, i), email, "subject", o.labels, o.unsub, o.precedence, ""))
	}
	return domain.GroupBySender(msgs)[email]
}

func TestScore_NoSignals(t *testing.T) {
	e := New(DefaultConfig())
	p := profile("alice.smith@gmail.com", 3, msgOpts{})
	assert.Equal(t, 0.0, e.Score(p))
	assert.Equal(t, domain.Personal, e.Classify(e.Score(p)))
}

func TestScore_ListUnsubscribeOnly(t *testing.T) {
	e := New(DefaultConfig())
	p := profile("alice@shop.com", 2, msgOpts{unsub: true})
	assert.Equal(t, 0.40, e.Score(p))
	assert.Equal(t, []Signal{SignalListUnsubscribe}, e.Signals(p))
}

func TestScore_AllSignals(t *testing.T) {
	e := New(DefaultConfig())
	p := profile("noreply@example-newsletter.com", 15, msgOpts{
		unsub:      true,
		precedence: "Bulk",
		labels:     []string{domain.LabelPromotions},
	})
	assert.Equal(t, 1.0, e.Score(p))
	assert.Equal(t, domain.Newsletter, e.Classify(e.Score(p)))
	assert.Len(t, e.Signals(p), 5)
}

func TestScore_CappedAtOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = Weights{ListUnsubscribe: 1, AutomatedSender: 1, BulkPrecedence: 1, HighVolume: 1, Promotions: 1}
	e := New(cfg)
	p := profile("noreply@x.com", 10, msgOpts{unsub: true, precedence: "list", labels: []string{domain.LabelPromotions}})
	assert.Equal(t, 1.0, e.Score(p))
}

func TestScore_AnyMessageTriggers(t *testing.T) {
	e := New(DefaultConfig())
	msgs := []domain.MessageMeta{
		domain.NewMessageMeta("1", "deals@shop.com", "a", nil, false, "", ""),
		domain.NewMessageMeta("2", "deals@shop.com", "b", []string{domain.LabelPromotions}, false, "list", ""),
	}
	p := domain.GroupBySender(msgs)["deals@shop.com"]
	assert.Equal(t, []Signal{SignalBulkPrecedence, SignalPromotions}, e.Signals(p))
	assert.InDelta(t, 0.25, e.Score(p), 1e-9)
}

func TestScore_Monotonic(t *testing.T) {
	e := New(DefaultConfig())
	steps := []domain.SenderProfile{
		profile("bob@x.com", 1, msgOpts{}),
		profile("bob@x.com", 1, msgOpts{unsub: true}),
		profile("noreply@x.com", 1, msgOpts{unsub: true}),
		profile("noreply@x.com", 1, msgOpts{unsub: true, precedence: "bulk"}),
		profile("noreply@x.com", 12, msgOpts{unsub: true, precedence: "bulk"}),
		profile("noreply@x.com", 12, msgOpts{unsub: true, precedence: "bulk", labels: []string{domain.LabelPromotions}}),
	}
	prev := -1.0
	for i, p := range steps {
		s := e.Score(p)
		assert.GreaterOrEqual(t, s, prev, "step %d", i)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		prev = s
	}
}

func TestAutomatedPrefixes(t *testing.T) {
	e := New(DefaultConfig())
	assert.Len(t, DefaultAutomatedPrefixes, 23)
	tests := []struct {
		email string
		want  bool
	}{
		{"noreply@github.com", true},
		{"NoReply@GitHub.com", true},
		{"support@stripe.com", true},
		{"hello@startup.io", true},
		{"alice@example.com", false},
		{"mynews@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, e.isAutomated(tt.email))
		})
	}
}

func TestClassify_Boundaries(t *testing.T) {
	e := New(DefaultConfig())
	tests := []struct {
		score float64
		want  domain.Classification
	}{
		{1.0, domain.Newsletter},
		{0.7, domain.Newsletter},
		{0.69, domain.LikelyNewsletter},
		{0.5, domain.LikelyNewsletter},
		{0.49, domain.Uncertain},
		{0.3, domain.Uncertain},
		{0.29, domain.Personal},
		{0.0, domain.Personal},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.score), func(t *testing.T) {
			assert.Equal(t, tt.want, e.Classify(tt.score))
		})
	}
}

func TestScoreAll_DoesNotMutateInput(t *testing.T) {
	e := New(DefaultConfig())
	in := map[string]domain.SenderProfile{
		"noreply@x.com": profile("noreply@x.com", 2, msgOpts{unsub: true}),
		"bob@x.com":     profile("bob@x.com", 1, msgOpts{}),
	}
	out := e.ScoreAll(in)

	require.Len(t, out, 2)
	assert.InDelta(t, 0.6, out["noreply@x.com"].Score, 1e-9)
	assert.Zero(t, in["noreply@x.com"].Score)

	again := e.ScoreAll(out)
	assert.Equal(t, out, again)
}

func TestNew_CopiesConfig(t *testing.T) {
	cfg := DefaultConfig()
	e := New(cfg)
	cfg.AutomatedPrefixes[0] = "alice@"
	cfg.Weights.ListUnsubscribe = 0

	assert.False(t, e.isAutomated("alice@example.com"))
	assert.True(t, e.isAutomated("noreply@example.com"))
	assert.Equal(t, 0.40, e.Config().Weights.ListUnsubscribe)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"negative weight", func(c *Config) { c.Weights.Promotions = -0.1 }, true},
		{"weight above one", func(c *Config) { c.Weights.HighVolume = 1.5 }, true},
		{"thresholds out of order", func(c *Config) { c.Thresholds.Uncertain = 0.6 }, true},
		{"zero uncertain", func(c *Config) { c.Thresholds.Uncertain = 0 }, true},
		{"zero volume", func(c *Config) { c.HighVolumeCount = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
