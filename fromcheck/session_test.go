package fromcheck

import (
	"bytes"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/andybalholm/fromcheck/milter"
)

// recorder is a milter.Modifier that remembers the headers added to it.
type recorder struct {
	headers []Header
}

func (r *recorder) AddHeader(name, value string) {
	r.headers = append(r.headers, Header{name, value})
}

func newTestSession() *Session {
	return NewSession(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func suspiciousFlags(headers []Header) []string {
	var flags []string
	for _, h := range headers {
		if h.Name == HeaderSuspicious {
			flags = append(flags, h.Value)
		}
	}
	return flags
}

func checkedValues(headers []Header) []string {
	var values []string
	for _, h := range headers {
		if h.Name == HeaderChecked {
			values = append(values, h.Value)
		}
	}
	return values
}

func TestSessionScenarios(t *testing.T) {
	type testCase struct {
		from    string
		flag    string
		checked string
	}

	testCases := []testCase{
		{`"Alice" <alice@example.com>`, "NO", "PASS - only one domain in decoded From (SINGLE_DOMAIN)"},
		{`"alice@bank.com" <alice@evil.com>`, "YES", "FAIL - multiple domains in decoded From are different (MULTIPLE_DOMAINS_MISMATCH)"},
		{``, "NO", "PASS - empty From header (EMPTY_FROM_HEADER)"},
		{`""`, "NO", "PASS - empty From header (EMPTY_FROM_HEADER)"},
		{`no-angle-brackets-address@example.com`, "NO", "PASS - only one domain in decoded From (SINGLE_DOMAIN)"},
		{`=?UTF-8?B?YWxpY2VAYmFuay5jb20=?= <alice@evil.com>`, "YES", "FAIL - multiple domains in decoded From are different (MULTIPLE_DOMAINS_MISMATCH)"},
		{`"Alice" <alice@example.com>`, "NO", "PASS - only one domain in decoded From (SINGLE_DOMAIN)"},
	}

	s := newTestSession()
	for _, testCase := range testCases {
		if resp := s.Header("From", testCase.from); resp != milter.Continue {
			t.Fatalf("Header(From, %#v) = %v expected continue", testCase.from, resp)
		}
		var r recorder
		if resp := s.EndOfMessage(&r, nil); resp != milter.Accept {
			t.Fatalf("EndOfMessage after From %#v = %v expected accept", testCase.from, resp)
		}
		if flags := suspiciousFlags(r.headers); !reflect.DeepEqual(flags, []string{testCase.flag}) {
			t.Errorf("From %#v: %s = %v expected [%s]", testCase.from, HeaderSuspicious, flags, testCase.flag)
		}
		if checked := checkedValues(r.headers); !reflect.DeepEqual(checked, []string{testCase.checked}) {
			t.Errorf("From %#v: %s = %v expected [%s]", testCase.from, HeaderChecked, checked, testCase.checked)
		}
	}
}

func TestSessionHeaderNameIsCaseInsensitive(t *testing.T) {
	for _, name := range []string{"From", "from", "FROM", "fRoM"} {
		s := newTestSession()
		s.Header(name, "alice@bank.com <alice@evil.com>")
		if got := len(s.Pending()); got != 2 {
			t.Errorf("Header(%q, ...) left %d pending headers expected 2", name, got)
		}
	}
}

func TestSessionIgnoresOtherHeaders(t *testing.T) {
	s := newTestSession()
	for _, name := range []string{"To", "Reply-To", "Sender", "Subject", "X-From"} {
		if resp := s.Header(name, "alice@bank.com <alice@evil.com>"); resp != milter.Continue {
			t.Fatalf("Header(%q) = %v expected continue", name, resp)
		}
	}
	if p := s.Pending(); len(p) != 0 {
		t.Fatalf("pending = %#v expected none", p)
	}
	if s.State() != StateInHeaders {
		t.Fatalf("state = %s expected %s", s.State(), StateInHeaders)
	}

	var r recorder
	s.EndOfMessage(&r, nil)
	if len(r.headers) != 0 {
		t.Fatalf("added headers %#v expected none", r.headers)
	}
}

func TestSessionMultipleFromHeaders(t *testing.T) {
	s := newTestSession()
	s.Header("Subject", "hello")
	s.Header("From", `"Alice" <alice@example.com>`)
	s.Header("To", "bob@example.org")
	s.Header("From", `"alice@bank.com" <alice@evil.com>`)

	var r recorder
	s.EndOfMessage(&r, map[string]string{"i": "4QxYz1234"})

	want := []Header{
		{HeaderChecked, "PASS - only one domain in decoded From (SINGLE_DOMAIN)"},
		{HeaderSuspicious, "NO"},
		{HeaderChecked, "FAIL - multiple domains in decoded From are different (MULTIPLE_DOMAINS_MISMATCH)"},
		{HeaderSuspicious, "YES"},
	}
	if !reflect.DeepEqual(r.headers, want) {
		t.Fatalf("added headers %#v expected %#v", r.headers, want)
	}
}

func TestSessionReuse(t *testing.T) {
	s := newTestSession()
	id := s.ID()

	s.Header("From", `"alice@bank.com" <alice@evil.com>`)
	var first recorder
	s.EndOfMessage(&first, nil)
	if len(first.headers) != 2 {
		t.Fatalf("first message got %d headers expected 2", len(first.headers))
	}

	if s.State() != StateFresh || len(s.Pending()) != 0 {
		t.Fatalf("after end of message: state %s, pending %#v", s.State(), s.Pending())
	}

	s.Header("Subject", "second message")
	var second recorder
	s.EndOfMessage(&second, nil)
	if len(second.headers) != 0 {
		t.Fatalf("second message got headers %#v from the first", second.headers)
	}

	if s.ID() != id {
		t.Fatalf("ID changed from %s to %s", id, s.ID())
	}
}

func TestSessionReset(t *testing.T) {
	fresh := newTestSession()

	s := newTestSession()
	s.Header("From", "alice@bank.com <alice@evil.com>")
	s.disposition = DispositionReject

	for i := 0; i < 2; i++ {
		s.Reset()
		if s.State() != fresh.State() ||
			!reflect.DeepEqual(s.Pending(), fresh.Pending()) ||
			s.Disposition() != fresh.Disposition() ||
			s.froms != fresh.froms {
			t.Fatalf("Reset #%d: state %s pending %#v disposition %s; fresh session has %s %#v %s",
				i+1, s.State(), s.Pending(), s.Disposition(), fresh.State(), fresh.Pending(), fresh.Disposition())
		}
	}
}

func TestSessionAbortDiscardsPending(t *testing.T) {
	s := newTestSession()
	s.Header("From", "alice@bank.com <alice@evil.com>")
	s.Abort()

	s.Header("From", "alice@example.com")
	var r recorder
	s.EndOfMessage(&r, nil)
	if flags := suspiciousFlags(r.headers); !reflect.DeepEqual(flags, []string{"NO"}) {
		t.Fatalf("after abort %s = %v expected [NO]", HeaderSuspicious, flags)
	}
}

func TestSessionStates(t *testing.T) {
	s := newTestSession()
	if s.State() != StateFresh {
		t.Fatalf("new session state %s expected %s", s.State(), StateFresh)
	}
	s.Header("Received", "from somewhere")
	if s.State() != StateInHeaders {
		t.Fatalf("state after header %s expected %s", s.State(), StateInHeaders)
	}

	var seen State = -1
	m := modifierFunc(func(name, value string) { seen = s.State() })
	s.Header("From", "a@b.c")
	s.EndOfMessage(m, nil)
	if seen != StateAtEOM {
		t.Fatalf("state while adding headers %s expected %s", seen, StateAtEOM)
	}
	if s.State() != StateFresh {
		t.Fatalf("state after end of message %s expected %s", s.State(), StateFresh)
	}
}

func TestSessionIDsAreDistinct(t *testing.T) {
	a, b := newTestSession(), newTestSession()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Fatalf("session IDs %q and %q should be distinct and non-empty", a.ID(), b.ID())
	}
}

type modifierFunc func(name, value string)

func (f modifierFunc) AddHeader(name, value string) { f(name, value) }

func TestSessionLogsDomains(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(slog.New(slog.NewTextHandler(&buf, nil)))
	s.Header("From", `"alice@bank.com" <alice@evil.com>`)

	out := buf.String()
	for _, want := range []string{"display_name_domain=bank.com", "address_domain=evil.com"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output %q does not contain %q", out, want)
		}
	}
}
