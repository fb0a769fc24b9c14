package fromcheck

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/andybalholm/fromcheck/milter"
)

// State is where a Session is in the message cycle.
type State int

const (
	// StateFresh is a session that was just created or reset.
	StateFresh State = iota
	// StateInHeaders is a session that has seen at least one header.
	StateInHeaders
	// StateAtEOM is a session that is applying its verdict.
	StateAtEOM
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateInHeaders:
		return "in-headers"
	case StateAtEOM:
		return "at-eom"
	}
	return "unknown"
}

// A Session checks the From: headers of the messages on one MTA connection.
// Diagnostic headers are collected while headers arrive and added to the
// message at end of message, after which the session is reset for the next
// message. A Session must only be used by one goroutine at a time.
type Session struct {
	milter.NoOpMilter

	id  string
	log *slog.Logger

	state       State
	pending     []Header
	disposition Disposition
	froms       int
}

var _ milter.Milter = (*Session)(nil)

// NewSession returns a fresh session with a new identifier. log must not be
// nil.
func NewSession(log *slog.Logger) *Session {
	id := uuid.NewString()
	s := &Session{
		id:  id,
		log: log.With(slog.String("session", id)),
	}
	s.Reset()
	s.log.Debug("session created")
	return s
}

// ID returns the identifier assigned when s was created.
func (s *Session) ID() string { return s.id }

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// Pending returns a copy of the headers that will be added at end of message.
func (s *Session) Pending() []Header {
	return append([]Header(nil), s.pending...)
}

// Disposition returns the disposition end of message will apply.
func (s *Session) Disposition() Disposition { return s.disposition }

// Reset discards all per-message state. The identifier is kept.
func (s *Session) Reset() {
	s.state = StateFresh
	s.pending = nil
	s.disposition = DispositionAccept
	s.froms = 0
}

// Header inspects From: headers and ignores the rest. It always returns
// milter.Continue so that EndOfMessage is reached.
func (s *Session) Header(name, value string) milter.Response {
	s.state = StateInHeaders
	if !strings.EqualFold(name, "From") {
		return milter.Continue
	}

	s.froms++
	if s.froms > 1 {
		s.log.Warn("message has more than one From header", slog.Int("count", s.froms))
	}

	v, ok := s.check(value)
	if !ok {
		return milter.Continue
	}
	s.pending = append(s.pending, v.Headers()...)
	if v.Disposition > s.disposition {
		s.disposition = v.Disposition
	}
	metricVerdicts.WithLabelValues(yesNo(v.Suspicious), string(v.Reason)).Inc()
	return milter.Continue
}

// check evaluates one raw From: value. ok is false only if evaluation
// panicked, in which case nothing is reported for this header.
func (s *Session) check(raw string) (v Verdict, ok bool) {
	defer func() {
		if x := recover(); x != nil {
			s.log.Error("checking From header", slog.Any("err", x), slog.String("raw", raw))
			v, ok = Verdict{}, false
		}
	}()

	s.log.Debug("From header", slog.String("raw", raw))
	decoded := DecodeHeader(raw)
	from := SplitFrom(decoded)
	labelDomain, _ := ExtractDomain(from.DisplayName)
	addrDomain, _ := ExtractDomain(from.Address)
	s.log.Info("From header decoded",
		slog.String("decoded", decoded),
		slog.String("display_name", from.DisplayName),
		slog.String("display_name_domain", labelDomain),
		slog.String("address", from.Address),
		slog.String("address_domain", addrDomain))

	v = Evaluate(decoded)
	attrs := []any{
		slog.Bool("suspicious", v.Suspicious),
		slog.String("reason", string(v.Reason)),
		slog.Any("domains", v.Domains.Domains),
	}
	switch v.Reason {
	case ReasonEmptyFromHeader, ReasonNoDomainFound:
		s.log.Info("From header has no domain to compare", attrs...)
	case ReasonMultipleDomains:
		s.log.Info("From header names different domains", attrs...)
	default:
		s.log.Debug("From header checked", attrs...)
	}
	return v, true
}

// EndOfMessage adds the pending diagnostic headers to the message in the
// order they were produced, resets the session and returns the disposition.
func (s *Session) EndOfMessage(m milter.Modifier, macros map[string]string) milter.Response {
	s.state = StateAtEOM

	log := s.log
	if qid := macros["i"]; qid != "" {
		log = log.With(slog.String("queue_id", qid))
	}
	log.Info("end of message",
		slog.String("disposition", s.disposition.String()),
		slog.Int("headers", len(s.pending)))

	for _, h := range s.pending {
		m.AddHeader(h.Name, h.Value)
	}
	resp := s.disposition.response()
	metricMessages.Inc()

	s.Reset()
	return resp
}

// Abort drops the current message's state.
func (s *Session) Abort() {
	s.log.Debug("message aborted", slog.Int("discarded_headers", len(s.pending)))
	s.Reset()
}

// Close is called when the MTA connection ends.
func (s *Session) Close() {
	s.log.Debug("session closed")
}

func (d Disposition) response() milter.Response {
	if d == DispositionReject {
		return milter.Reject
	}
	return milter.Accept
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
