// Package scoring rates senders on how newsletter-like their mail is and
// ranks them for cleanup.
package scoring

import (
	"errors"
	"fmt"

	"github.com/lu-zhengda/sendersweep/internal/domain"
)

// Weights holds the contribution of each signal to a sender score.
type Weights struct {
	ListUnsubscribe float64 `toml:"list_unsubscribe"`
	AutomatedSender float64 `toml:"automated_sender"`
	BulkPrecedence  float64 `toml:"bulk_precedence"`
	HighVolume      float64 `toml:"high_volume"`
	Promotions      float64 `toml:"promotions"`
}

// Thresholds are the inclusive lower bounds of each classification band.
type Thresholds struct {
	Newsletter       float64 `toml:"newsletter"`
	LikelyNewsletter float64 `toml:"likely_newsletter"`
	Uncertain        float64 `toml:"uncertain"`
}

// Config is the full rule table of the scoring engine. It is a plain value;
// New copies it so callers may reuse or modify theirs afterwards.
type Config struct {
	Weights           Weights    `toml:"weights"`
	Thresholds        Thresholds `toml:"thresholds"`
	HighVolumeCount   int        `toml:"high_volume_count"`
	AutomatedPrefixes []string   `toml:"automated_prefixes"`
	PromotionsLabel   string     `toml:"promotions_label"`
	BulkPrecedences   []string   `toml:"bulk_precedences"`
}

// DefaultAutomatedPrefixes are local-part prefixes of mailboxes that are
// rarely operated by a person.
var DefaultAutomatedPrefixes = []string{
	"noreply@", "no-reply@", "newsletter@", "newsletters@",
	"notifications@", "notification@", "info@", "mailer@",
	"marketing@", "news@", "updates@", "update@",
	"do-not-reply@", "donotreply@", "alert@", "alerts@",
	"digest@", "hello@", "support@", "team@",
	"mail@", "bounce@", "auto@",
}

// DefaultConfig returns the stock rule table.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			ListUnsubscribe: 0.40,
			AutomatedSender: 0.20,
			BulkPrecedence:  0.15,
			HighVolume:      0.15,
			Promotions:      0.10,
		},
		Thresholds: Thresholds{
			Newsletter:       0.7,
			LikelyNewsletter: 0.5,
			Uncertain:        0.3,
		},
		HighVolumeCount:   10,
		AutomatedPrefixes: append([]string(nil), DefaultAutomatedPrefixes...),
		PromotionsLabel:   domain.LabelPromotions,
		BulkPrecedences:   []string{"bulk", "list"},
	}
}

// Validate reports the first inconsistency in the rule table.
func (c Config) Validate() error {
	weights := map[string]float64{
		"list_unsubscribe": c.Weights.ListUnsubscribe,
		"automated_sender": c.Weights.AutomatedSender,
		"bulk_precedence":  c.Weights.BulkPrecedence,
		"high_volume":      c.Weights.HighVolume,
		"promotions":       c.Weights.Promotions,
	}
	for name, w := range weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("weight %s = %v, must be within [0, 1]", name, w)
		}
	}
	t := c.Thresholds
	if !(t.Newsletter > t.LikelyNewsletter && t.LikelyNewsletter > t.Uncertain && t.Uncertain > 0) {
		return errors.New("thresholds must be strictly descending: newsletter > likely_newsletter > uncertain > 0")
	}
	if t.Newsletter > 1 {
		return fmt.Errorf("newsletter threshold %v exceeds 1", t.Newsletter)
	}
	if c.HighVolumeCount < 1 {
		return fmt.Errorf("high_volume_count = %d, must be positive", c.HighVolumeCount)
	}
	return nil
}

func (c Config) clone() Config {
	c.AutomatedPrefixes = append([]string(nil), c.AutomatedPrefixes...)
	c.BulkPrecedences = append([]string(nil), c.BulkPrecedences...)
	return c
}
