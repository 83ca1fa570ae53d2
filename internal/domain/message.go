package domain

import (
	"regexp"
	"strings"
)

// Gmail system label IDs the scorer and cleaner care about.
const (
	LabelInbox      = "INBOX"
	LabelTrash      = "TRASH"
	LabelPromotions = "CATEGORY_PROMOTIONS"
)

var fromRe = regexp.MustCompile(`^(.*?)\s*<([^>]+)>$`)

// Address is a parsed From header.
type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// ParseFrom splits a From header value into display name and address.
// It accepts "Name <addr>", "<addr>" and a bare "addr". The address is
// returned as written; callers lowercase it when they need a grouping key.
func ParseFrom(raw string) Address {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Address{}
	}
	if m := fromRe.FindStringSubmatch(raw); m != nil {
		return Address{
			Name:  unquote(strings.TrimSpace(m[1])),
			Email: strings.TrimSpace(m[2]),
		}
	}
	return Address{Email: strings.Trim(raw, "<>")}
}

// DisplayName returns the text before the first '<' of a From header,
// trimmed and unquoted. Headers without an angle-bracketed address have no
// display name.
func DisplayName(raw string) string {
	before, _, found := strings.Cut(raw, "<")
	if !found {
		return ""
	}
	return unquote(strings.TrimSpace(before))
}

func unquote(s string) string {
	return strings.Trim(strings.Trim(s, `"`), "'")
}

// MessageMeta holds the signals extracted from one message's metadata
// headers. Construct it with NewMessageMeta; the zero value is an empty
// message with no sender.
type MessageMeta struct {
	ID                 string
	SenderRaw          string
	SenderEmail        string
	Subject            string
	Labels             []string
	HasListUnsubscribe bool
	Precedence         string
	Date               string
}

// NewMessageMeta builds a MessageMeta, deriving the lowercased sender
// address from the raw From header and lowercasing the precedence.
// Duplicate labels are dropped, keeping first-seen order.
func NewMessageMeta(id, senderRaw, subject string, labels []string, hasListUnsubscribe bool, precedence, date string) MessageMeta {
	return MessageMeta{
		ID:                 id,
		SenderRaw:          senderRaw,
		SenderEmail:        strings.ToLower(ParseFrom(senderRaw).Email),
		Subject:            subject,
		Labels:             dedupe(labels),
		HasListUnsubscribe: hasListUnsubscribe,
		Precedence:         strings.ToLower(strings.TrimSpace(precedence)),
		Date:               date,
	}
}

// HasLabel reports whether the message carries the given label ID.
func (m MessageMeta) HasLabel(label string) bool {
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func dedupe(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
