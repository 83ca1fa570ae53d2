package scoring

import (
	"sort"

	"github.com/lu-zhengda/sendersweep/internal/domain"
)

// Floor is the effective minimum score Rank applies for a requested
// minScore. It never drops below the uncertain threshold, so personal
// senders are not offered for cleanup even when minScore is 0.
func (e *Engine) Floor(minScore float64) float64 {
	return max(minScore, e.cfg.Thresholds.Uncertain)
}

// Rank filters profiles to those scoring at least Floor(minScore) and
// orders them by classification, then by message count descending. Ties
// keep input order.
func (e *Engine) Rank(profiles []domain.SenderProfile, minScore float64) []domain.SenderProfile {
	floor := e.Floor(minScore)
	out := make([]domain.SenderProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.Score >= floor {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := e.Classify(out[i].Score).Rank(), e.Classify(out[j].Score).Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].MessageCount > out[j].MessageCount
	})
	return out
}

// RankScan ranks the senders of a scan. Map iteration order is random, so
// profiles are put in email order first to keep ties reproducible.
func (e *Engine) RankScan(scan *domain.ScanResult, minScore float64) []domain.SenderProfile {
	if scan == nil {
		return nil
	}
	profiles := scan.Profiles()
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Email < profiles[j].Email
	})
	return e.Rank(profiles, minScore)
}
