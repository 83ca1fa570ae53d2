package gmail

import (
	"errors"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/lu-zhengda/sendersweep/internal/domain"
)

// metadataHeaders are the only headers requested from the API.
var metadataHeaders = []string{"From", "Subject", "List-Unsubscribe", "Precedence", "Date"}

var errNoPayload = errors.New("message has no payload")

// mapMetadata converts a metadata-format Gmail message to a MessageMeta.
func mapMetadata(msg *gmailapi.Message) (domain.MessageMeta, error) {
	if msg == nil || msg.Payload == nil {
		return domain.MessageMeta{}, errNoPayload
	}
	headers := msg.Payload.Headers
	from, _ := findHeader(headers, "From")
	subject, _ := findHeader(headers, "Subject")
	_, unsub := findHeader(headers, "List-Unsubscribe")
	precedence, _ := findHeader(headers, "Precedence")
	date, _ := findHeader(headers, "Date")
	return domain.NewMessageMeta(msg.Id, from, subject, msg.LabelIds, unsub, precedence, date), nil
}

// findHeader performs a case-insensitive lookup for a header. ok reports
// whether the header is present, even with an empty value.
func findHeader(headers []*gmailapi.MessagePartHeader, name string) (value string, ok bool) {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
