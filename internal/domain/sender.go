package domain

// SampleSubjectsLimit caps SenderProfile.SampleSubjects.
const SampleSubjectsLimit = 5

// SenderProfile aggregates every message from one sender address in a scan.
type SenderProfile struct {
	Email          string
	Name           string
	MessageCount   int
	Messages       []MessageMeta
	Score          float64
	SampleSubjects []string
}

// GroupBySender builds one SenderProfile per lowercased sender address.
//
// Messages are consumed in input order: the first message seen for an
// address fixes the profile's Name, and the first five non-empty subjects
// become SampleSubjects. Profiles are returned unscored.
func GroupBySender(msgs []MessageMeta) map[string]SenderProfile {
	senders := make(map[string]*SenderProfile)
	for _, msg := range msgs {
		p, ok := senders[msg.SenderEmail]
		if !ok {
			p = &SenderProfile{
				Email: msg.SenderEmail,
				Name:  DisplayName(msg.SenderRaw),
			}
			senders[msg.SenderEmail] = p
		}
		p.Messages = append(p.Messages, msg)
		p.MessageCount++
		if len(p.SampleSubjects) < SampleSubjectsLimit && msg.Subject != "" {
			p.SampleSubjects = append(p.SampleSubjects, msg.Subject)
		}
	}

	out := make(map[string]SenderProfile, len(senders))
	for email, p := range senders {
		out[email] = *p
	}
	return out
}
