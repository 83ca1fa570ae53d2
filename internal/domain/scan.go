package domain

import "time"

// ScanResult is the snapshot produced by one full scan. An empty Query
// means the scan was unfiltered.
type ScanResult struct {
	TotalMessages int
	Senders       map[string]SenderProfile
	ScanDate      time.Time
	Query         string
}

// NewScanResult stamps a scan with its creation time.
func NewScanResult(total int, senders map[string]SenderProfile, query string, now time.Time) *ScanResult {
	if senders == nil {
		senders = map[string]SenderProfile{}
	}
	return &ScanResult{
		TotalMessages: total,
		Senders:       senders,
		ScanDate:      now,
		Query:         query,
	}
}

// Profiles returns the scan's sender profiles in no particular order.
func (r *ScanResult) Profiles() []SenderProfile {
	out := make([]SenderProfile, 0, len(r.Senders))
	for _, p := range r.Senders {
		out = append(out, p)
	}
	return out
}
