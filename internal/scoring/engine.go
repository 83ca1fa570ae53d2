package scoring

import (
	"math"
	"strings"

	"github.com/lu-zhengda/sendersweep/internal/domain"
)

// Signal names a scoring rule.
type Signal string

const (
	SignalListUnsubscribe Signal = "list_unsubscribe"
	SignalAutomatedSender Signal = "automated_sender"
	SignalBulkPrecedence  Signal = "bulk_precedence"
	SignalHighVolume      Signal = "high_volume"
	SignalPromotions      Signal = "promotions"
)

// Engine scores and classifies sender profiles. It holds no mutable state
// and is safe to share.
type Engine struct {
	cfg Config
}

// New returns an Engine bound to a private copy of cfg.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.clone()}
}

// Config returns a copy of the engine's rule table.
func (e *Engine) Config() Config {
	return e.cfg.clone()
}

// Signals lists the rules a profile triggers, in weight order.
func (e *Engine) Signals(p domain.SenderProfile) []Signal {
	var (
		unsub, bulk, promo bool
		out                []Signal
	)
	for i := range p.Messages {
		m := &p.Messages[i]
		unsub = unsub || m.HasListUnsubscribe
		bulk = bulk || e.isBulk(m.Precedence)
		promo = promo || m.HasLabel(e.cfg.PromotionsLabel)
	}
	if unsub {
		out = append(out, SignalListUnsubscribe)
	}
	if e.isAutomated(p.Email) {
		out = append(out, SignalAutomatedSender)
	}
	if bulk {
		out = append(out, SignalBulkPrecedence)
	}
	if p.MessageCount >= e.cfg.HighVolumeCount {
		out = append(out, SignalHighVolume)
	}
	if promo {
		out = append(out, SignalPromotions)
	}
	return out
}

// Score sums the weights of every triggered signal, capped at 1.0.
func (e *Engine) Score(p domain.SenderProfile) float64 {
	var score float64
	for _, s := range e.Signals(p) {
		score += e.weight(s)
	}
	// Summed float weights drift off exact band boundaries; 0.4+0.2+0.15+0.15+0.1 must be 1.
	score = math.Round(score*1e9) / 1e9
	return min(score, 1.0)
}

// Classify maps a score onto its band. Bands include their lower bound.
func (e *Engine) Classify(score float64) domain.Classification {
	t := e.cfg.Thresholds
	switch {
	case score >= t.Newsletter:
		return domain.Newsletter
	case score >= t.LikelyNewsletter:
		return domain.LikelyNewsletter
	case score >= t.Uncertain:
		return domain.Uncertain
	default:
		return domain.Personal
	}
}

// ScoreAll returns a new map holding a scored copy of every profile. The
// input map and its profiles are left untouched.
func (e *Engine) ScoreAll(senders map[string]domain.SenderProfile) map[string]domain.SenderProfile {
	out := make(map[string]domain.SenderProfile, len(senders))
	for email, p := range senders {
		p.Score = e.Score(p)
		out[email] = p
	}
	return out
}

func (e *Engine) weight(s Signal) float64 {
	w := e.cfg.Weights
	switch s {
	case SignalListUnsubscribe:
		return w.ListUnsubscribe
	case SignalAutomatedSender:
		return w.AutomatedSender
	case SignalBulkPrecedence:
		return w.BulkPrecedence
	case SignalHighVolume:
		return w.HighVolume
	case SignalPromotions:
		return w.Promotions
	}
	return 0
}

func (e *Engine) isAutomated(email string) bool {
	email = strings.ToLower(email)
	for _, prefix := range e.cfg.AutomatedPrefixes {
		if strings.HasPrefix(email, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func (e *Engine) isBulk(precedence string) bool {
	precedence = strings.ToLower(precedence)
	for _, p := range e.cfg.BulkPrecedences {
		if precedence == p {
			return true
		}
	}
	return false
}
