// internal/scrape/email/email.go
package email_scrape

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"
)

// EmailMessage is a fetched alert email.
type EmailMessage struct {
	UID     imap.UID
	From    string
	Subject string
	Date    time.Time

	// RawMessage is the full RFC822 message, fetched with BODY.PEEK[] so
	// the server does not set \Seen.
	RawMessage []byte
}

func TLSConfig(host string) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: host,
	}
}

// DialAndLoginIMAP connects over TLS and logs in. The connection is closed
// when ctx is done.
func DialAndLoginIMAP(ctx context.Context, addr, username, password string, tlsCfg *tls.Config) (*imapclient.Client, error) {
	if addr == "" {
		return nil, errors.New("imap addr is required")
	}
	if username == "" || password == "" {
		return nil, errors.New("imap username/password is required")
	}
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	c, err := imapclient.DialTLS(addr, &imapclient.Options{TLSConfig: tlsCfg})
	if err != nil {
		return nil, errors.Wrap(err, "imap dial tls")
	}

	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(username, password).Wait(); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "imap login")
	}
	return c, nil
}

func SelectMailbox(c *imapclient.Client, mailbox string) error {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		return errors.Wrapf(err, "imap select %s", mailbox)
	}
	return nil
}

// FetchUnseen pulls up to max unseen messages received since the given
// time, newest first.
func FetchUnseen(ctx context.Context, c *imapclient.Client, max int, since time.Time) ([]EmailMessage, error) {
	if c == nil {
		return nil, errors.New("imap client is nil")
	}
	if max <= 0 {
		max = 50
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   since,
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, errors.Wrap(err, "imap uid search unseen")
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > max {
		uids = uids[:max]
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]EmailMessage, 0, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, errors.Wrap(err, "imap fetch collect")
		}

		em := EmailMessage{UID: buf.UID}
		if buf.Envelope != nil {
			em.Subject = buf.Envelope.Subject
			em.Date = buf.Envelope.Date
			em.From = joinAddrs(buf.Envelope.From)
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			em.RawMessage = append([]byte(nil), b...)
		}
		out = append(out, em)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, errors.Wrap(err, "imap fetch close")
	}
	return out, nil
}

// MarkSeen sets \Seen on the given UIDs.
func MarkSeen(c *imapclient.Client, uids []imap.UID) error {
	if c == nil {
		return errors.New("imap client is nil")
	}
	if len(uids) == 0 {
		return nil
	}
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return errors.Wrap(err, "imap store add seen")
	}
	return nil
}

func LogoutAndClose(c *imapclient.Client, log *zap.SugaredLogger) {
	if c == nil {
		return
	}
	if err := c.Logout().Wait(); err != nil {
		log.Debugw("imap logout", "err", err)
	}
	_ = c.Close()
}

func joinAddrs(addrs []imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		a := &addrs[i]
		addr := strings.TrimSpace(a.Addr())
		if addr == "" {
			addr = strings.TrimSpace(a.Name)
		}
		if addr != "" {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}
