package email_scrape

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// parsedMessage is the part of an alert email the parser cares about.
type parsedMessage struct {
	Subject string
	From    string
	Date    time.Time
	Plain   string
	HTML    string
}

const maxPartBytes = 20 << 20

// parseMessage decodes an RFC822 message, keeping the longest text/plain
// and text/html parts. Unknown charsets degrade to the raw bytes.
func parseMessage(raw []byte) (parsedMessage, error) {
	var pm parsedMessage
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return pm, errors.Wrap(err, "read message header")
	}
	defer mr.Close()

	pm.Subject, _ = mr.Header.Subject()
	pm.Date, _ = mr.Header.Date()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		pm.From = from[0].Address
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return pm, errors.Wrap(err, "read message part")
		}
		if p == nil {
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		b, err := io.ReadAll(io.LimitReader(p.Body, maxPartBytes))
		if err != nil {
			return pm, errors.Wrap(err, "read message body")
		}
		switch strings.ToLower(ct) {
		case "text/html":
			if len(b) > len(pm.HTML) {
				pm.HTML = string(b)
			}
		case "text/plain", "":
			if len(b) > len(pm.Plain) {
				pm.Plain = string(b)
			}
		}
	}
	return pm, nil
}

func containsAnyCI(s string, needles []string) bool {
	l := strings.ToLower(s)
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(l, n) {
			return true
		}
	}
	return false
}
