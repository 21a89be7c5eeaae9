package smtp

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"
	"testing"

	"github.com/gologme/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailhive/mailhive/server/store"
)

type fakeBackend struct {
	secrets   map[string]string
	mailboxes map[string][]*store.Message
	sent      map[string][]*store.Message
}

func newFakeBackend(users ...string) *fakeBackend {
	b := &fakeBackend{
		secrets:   make(map[string]string),
		mailboxes: make(map[string][]*store.Message),
		sent:      make(map[string][]*store.Message),
	}
	for _, u := range users {
		b.secrets[u] = "secret"
		b.mailboxes[u] = nil
	}
	return b
}

func (b *fakeBackend) Authenticate(id, secret string) bool {
	want, ok := b.secrets[id]
	return ok && want == secret
}

func (b *fakeBackend) Lookup(id string) (store.User, error) {
	if _, ok := b.secrets[id]; !ok {
		return store.User{}, store.ErrUnknownUser
	}
	return store.User{Name: id, Address: id + "@localhost"}, nil
}

func (b *fakeBackend) Deliver(rcpt string, msg *store.Message) error {
	if _, ok := b.mailboxes[rcpt]; !ok {
		return store.ErrUnknownUser
	}
	b.mailboxes[rcpt] = append(b.mailboxes[rcpt], msg)
	return nil
}

func (b *fakeBackend) RecordSent(id string, msg *store.Message) error {
	b.sent[id] = append(b.sent[id], msg)
	return nil
}

type duplex struct {
	io.Reader
	io.Writer
}

// runSession feeds the script to a session and returns the reply lines.
func runSession(be Backend, par Params, script ...string) []string {
	in := strings.NewReader(strings.Join(script, "\r\n") + "\r\n")
	var out bytes.Buffer
	Process(duplex{in, &out}, be, par, log.New(io.Discard, "", 0))
	return strings.Split(strings.TrimRight(out.String(), "\r\n"), "\r\n")
}

var par = Params{Hostname: "mx.test", MaxAuthAttempts: 3}

func plain(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte("\x00" + user + "\x00" + pass))
}

func TestSubmission(t *testing.T) {
	be := newFakeBackend("joe")
	lines := runSession(be, par,
		"HELO client",
		"MAIL FROM:<bob@x>",
		"RCPT TO:<joe>",
		"DATA",
		"Subject: Hi",
		"",
		"Hello",
		".",
		"QUIT",
	)

	var codes []string
	for _, l := range lines {
		codes = append(codes, strings.SplitN(l, " ", 2)[0])
	}
	assert.Equal(t, []string{"220", "250", "250", "250", "354", "250", "221"}, codes)

	require.Len(t, be.mailboxes["joe"], 1)
	msg := be.mailboxes["joe"][0]
	assert.Equal(t, "bob@x", msg.From)
	assert.Equal(t, []string{"joe"}, msg.To)
	assert.Equal(t, "Hi", msg.Subject)
	assert.Equal(t, "Hello\r\n", msg.Body)
}

func TestHeadersPassThrough(t *testing.T) {
	be := newFakeBackend("joe")
	runSession(be, par,
		"HELO client",
		"MAIL FROM:<bob@x>",
		"RCPT TO:<joe>",
		"DATA",
		"Subject: Hi",
		"X-Priority: 1",
		"",
		"body",
		".",
	)

	require.Len(t, be.mailboxes["joe"], 1)
	r := be.mailboxes["joe"][0].Render()
	assert.True(t, strings.HasPrefix(r, "Subject: Hi\r\nX-Priority: 1\r\n\r\n"), "got %q", r)
}

func TestBadSequences(t *testing.T) {
	t.Run("MAIL before HELO", func(t *testing.T) {
		lines := runSession(newFakeBackend("joe"), par, "MAIL FROM:<bob@x>")
		assert.True(t, strings.HasPrefix(lines[1], "503"))
	})

	t.Run("RCPT before MAIL", func(t *testing.T) {
		lines := runSession(newFakeBackend("joe"), par,
			"HELO client",
			"RCPT TO:<joe>",
			"MAIL FROM:<bob@x>",
		)
		// The rejected RCPT must not have changed state: MAIL still works.
		assert.True(t, strings.HasPrefix(lines[2], "503"))
		assert.True(t, strings.HasPrefix(lines[3], "250"))
	})

	t.Run("nested MAIL", func(t *testing.T) {
		lines := runSession(newFakeBackend("joe"), par,
			"HELO client",
			"MAIL FROM:<bob@x>",
			"MAIL FROM:<eve@x>",
			"RCPT TO:<joe>",
		)
		assert.True(t, strings.HasPrefix(lines[3], "503"))
		assert.True(t, strings.HasPrefix(lines[4], "250"), "sender state must survive a rejected command")
	})

	t.Run("DATA without recipients", func(t *testing.T) {
		lines := runSession(newFakeBackend("joe"), par,
			"HELO client",
			"MAIL FROM:<bob@x>",
			"DATA",
		)
		assert.True(t, strings.HasPrefix(lines[3], "503"))
	})
}

func TestMalformedAddresses(t *testing.T) {
	be := newFakeBackend("joe", "ann")
	lines := runSession(be, par,
		"HELO client",
		"MAIL FROM:<bob@x>",
		"RCPT TO:<joe>",
		"RCPT TO:no brackets",
		"RCPT TO:<ann>",
		"DATA",
		"Subject: multi",
		"",
		"hi",
		".",
	)

	assert.True(t, strings.HasPrefix(lines[4], "553"))
	// The collected recipient list survived the rejected one.
	assert.Len(t, be.mailboxes["joe"], 1)
	assert.Len(t, be.mailboxes["ann"], 1)
	_ = lines
}

func TestRsetDropsTransaction(t *testing.T) {
	be := newFakeBackend("joe")
	lines := runSession(be, par,
		"HELO client",
		"MAIL FROM:<bob@x>",
		"RCPT TO:<joe>",
		"RSET",
		"DATA",
		"MAIL FROM:<bob@x>",
	)
	assert.True(t, strings.HasPrefix(lines[5], "503"), "DATA after RSET must be out of sequence")
	assert.True(t, strings.HasPrefix(lines[6], "250"), "MAIL must be legal again after RSET")
}

func TestDotStuffing(t *testing.T) {
	be := newFakeBackend("joe")
	runSession(be, par,
		"HELO client",
		"MAIL FROM:<bob@x>",
		"RCPT TO:<joe>",
		"DATA",
		"Subject: dots",
		"",
		"..leading dot",
		"..",
		".middle",
		"plain",
		".",
	)

	require.Len(t, be.mailboxes["joe"], 1)
	assert.Equal(t, ".leading dot\r\n.\r\nmiddle\r\nplain\r\n", be.mailboxes["joe"][0].Body)
}

func TestPartialDeliveryFailure(t *testing.T) {
	be := newFakeBackend("a", "c")
	lines := runSession(be, par,
		"HELO client",
		"MAIL FROM:<bob@x>",
		"RCPT TO:<a>",
		"RCPT TO:<b>",
		"RCPT TO:<c>",
		"DATA",
		"Subject: partial",
		"",
		"hi",
		".",
		"MAIL FROM:<bob@x>",
	)

	final := lines[7]
	assert.True(t, strings.HasPrefix(final, "554"), "got %q", final)
	assert.Contains(t, final, "b")

	assert.Len(t, be.mailboxes["a"], 1, "successes are not rolled back")
	assert.Len(t, be.mailboxes["c"], 1)

	// The transaction is reset regardless of the delivery outcome.
	assert.True(t, strings.HasPrefix(lines[8], "250"))
}

func TestUnknownCommand(t *testing.T) {
	lines := runSession(newFakeBackend("joe"), par, "BOGUS thing", "HELO client")
	assert.True(t, strings.HasPrefix(lines[1], "500"))
	assert.True(t, strings.HasPrefix(lines[2], "250"))
}

func TestAuthPlain(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		be := newFakeBackend("joe")
		be.secrets["joe"] = "123"
		lines := runSession(be, par, "EHLO client", "AUTH PLAIN "+plain("joe", "123"))
		assert.True(t, strings.HasPrefix(lines[len(lines)-1], "235"))
	})

	t.Run("bad credentials", func(t *testing.T) {
		be := newFakeBackend("joe")
		required := par
		required.RequireAuth = true
		lines := runSession(be, required, "EHLO client", "AUTH PLAIN "+plain("joe", "wrong"))
		assert.True(t, strings.HasPrefix(lines[len(lines)-1], "535"))
	})

	t.Run("attempt limit closes the session", func(t *testing.T) {
		be := newFakeBackend("joe")
		required := par
		required.RequireAuth = true
		required.MaxAuthAttempts = 2
		bad := "AUTH PLAIN " + plain("joe", "wrong")
		lines := runSession(be, required, "EHLO client", bad, bad, "NOOP")
		// The NOOP never gets an answer: the session ended.
		assert.Contains(t, lines[len(lines)-1], "Too many")
	})

	t.Run("no-op when not required", func(t *testing.T) {
		be := newFakeBackend("joe")
		lines := runSession(be, par, "EHLO client", "AUTH PLAIN "+plain("joe", "wrong"))
		assert.True(t, strings.HasPrefix(lines[len(lines)-1], "235"))
	})
}

func TestRequireAuthGatesMail(t *testing.T) {
	be := newFakeBackend("joe")
	be.secrets["joe"] = "123"
	required := par
	required.RequireAuth = true

	lines := runSession(be, required, "HELO client", "MAIL FROM:<bob@x>")
	assert.True(t, strings.HasPrefix(lines[2], "530"))

	lines = runSession(be, required,
		"HELO client",
		"AUTH PLAIN "+plain("joe", "123"),
		"MAIL FROM:<joe@localhost>",
		"RCPT TO:<joe>",
		"DATA",
		"Subject: to self",
		"",
		"hi",
		".",
	)
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "250"))
	assert.Len(t, be.sent["joe"], 1, "an authenticated submission from an own address is recorded as sent")
}
