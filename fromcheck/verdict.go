package fromcheck

import (
	"fmt"
	"strings"
)

// Reason says why Evaluate reached its verdict.
type Reason string

const (
	ReasonEmptyFromHeader    Reason = "EMPTY_FROM_HEADER"
	ReasonNoDomainFound      Reason = "NO_DOMAIN_FOUND"
	ReasonSingleDomain       Reason = "SINGLE_DOMAIN"
	ReasonSameDomainRepeated Reason = "MULTIPLE_OCCURRENCES_SAME_DOMAIN"
	ReasonMultipleDomains    Reason = "MULTIPLE_DOMAINS_MISMATCH"
)

var reasonDescriptions = map[Reason]string{
	ReasonEmptyFromHeader:    "empty From header",
	ReasonNoDomainFound:      "no domain in decoded From",
	ReasonSingleDomain:       "only one domain in decoded From",
	ReasonSameDomainRepeated: "multiple domains in decoded From match",
	ReasonMultipleDomains:    "multiple domains in decoded From are different",
}

// Description returns the human-readable form of r.
func (r Reason) Description() string {
	if d, ok := reasonDescriptions[r]; ok {
		return d
	}
	return string(r)
}

// Disposition is what should happen to the message as a whole.
type Disposition int

const (
	DispositionAccept Disposition = iota
	// DispositionReject is not produced by the current policy, which only
	// reports suspicious senders.
	DispositionReject
)

func (d Disposition) String() string {
	switch d {
	case DispositionAccept:
		return "accept"
	case DispositionReject:
		return "reject"
	}
	return fmt.Sprintf("Disposition(%d)", int(d))
}

// Verdict is the outcome of checking one From: header.
type Verdict struct {
	Suspicious  bool
	Reason      Reason
	Domains     DomainSet
	Disposition Disposition
}

// Evaluate classifies a decoded From: value. A value that is empty or only
// an empty quoted string has nothing to compare. Otherwise every @domain
// occurrence in the whole value is collected; the header is suspicious when
// they do not all name the same domain, as in
//
//	"alice@bank.com" <alice@evil.com>
//
// Domains are compared case-insensitively. The disposition is always
// DispositionAccept.
func Evaluate(decoded string) Verdict {
	if strings.Trim(decoded, " \t\"") == "" {
		return Verdict{Reason: ReasonEmptyFromHeader}
	}

	v := Verdict{Domains: ExtractAllDomains(decoded)}
	switch {
	case v.Domains.Occurrences == 0:
		v.Reason = ReasonNoDomainFound
	case v.Domains.Occurrences == 1:
		v.Reason = ReasonSingleDomain
	case v.Domains.Len() == 1:
		v.Reason = ReasonSameDomainRepeated
	default:
		v.Suspicious = true
		v.Reason = ReasonMultipleDomains
	}
	return v
}

// Diagnostic header names added to every checked message.
const (
	HeaderChecked    = "X-From-Checked"
	HeaderSuspicious = "X-From-Suspicious"
)

// A Header is a name/value pair waiting to be added to the message.
type Header struct {
	Name  string
	Value string
}

// Headers returns the diagnostic headers reporting v, X-From-Checked first.
func (v Verdict) Headers() []Header {
	status, flag := "PASS", "NO"
	if v.Suspicious {
		status, flag = "FAIL", "YES"
	}
	return []Header{
		{HeaderChecked, fmt.Sprintf("%s - %s (%s)", status, v.Reason.Description(), v.Reason)},
		{HeaderSuspicious, flag},
	}
}
