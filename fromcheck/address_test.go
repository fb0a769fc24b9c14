package fromcheck

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitFrom(t *testing.T) {
	type testCase struct {
		value  string
		parsed ParsedFrom
	}

	testCases := []testCase{
		{`"Alice" <alice@example.com>`, ParsedFrom{"Alice", "alice@example.com"}},
		{`Alice Smith <alice@example.com>`, ParsedFrom{"Alice Smith", "alice@example.com"}},
		{`  "alice@bank.com"   < alice@evil.com >  `, ParsedFrom{"alice@bank.com", "alice@evil.com"}},
		{`no-angle-brackets-address@example.com`, ParsedFrom{"", "no-angle-brackets-address@example.com"}},
		{`<alice@example.com>`, ParsedFrom{"", "alice@example.com"}},
		{`"Bob <bob@bank.com>" <bob@evil.com>`, ParsedFrom{"Bob <bob@bank.com>", "bob@evil.com"}},
		{`"Say \"hi\" <x@y>" <a@b.c>`, ParsedFrom{`Say \"hi\" <x@y>`, "a@b.c"}},
		{`"unterminated <alice@example.com>`, ParsedFrom{"unterminated", "alice@example.com"}},
		{`"quoted <only@example.com>"`, ParsedFrom{"", `"quoted <only@example.com>"`}},
		{`a <b@c.d> trailing`, ParsedFrom{"", "a <b@c.d> trailing"}},
		{`<a@b.c> <d@e.f>`, ParsedFrom{"<a@b.c>", "d@e.f"}},
		{`x >< y>`, ParsedFrom{"x >", "y"}},
		{`<>`, ParsedFrom{"", ""}},
		{`>>><<<`, ParsedFrom{"", ">>><<<"}},
		{``, ParsedFrom{"", ""}},
	}

	for _, testCase := range testCases {
		parsed := SplitFrom(testCase.value)
		if parsed != testCase.parsed {
			t.Errorf("SplitFrom(%#v) = %#v expected %#v", testCase.value, parsed, testCase.parsed)
		}
	}
}

func TestSplitFromAdversarial(t *testing.T) {
	inputs := []string{
		strings.Repeat("<", 10000),
		strings.Repeat(`"`, 10001),
		strings.Repeat(`\"<`, 5000) + ">",
		strings.Repeat("<a@b>", 2000),
	}
	for _, in := range inputs {
		// Must return without panicking.
		SplitFrom(in)
	}
}

func TestExtractDomain(t *testing.T) {
	type testCase struct {
		text   string
		domain string
		ok     bool
	}

	testCases := []testCase{
		{"alice@Example.COM", "Example.COM", true},
		{`"Alice" <alice@example.com>`, "example.com", true},
		{"alice@bank.com <alice@evil.com>", "bank.com", true},
		{"a@sub-domain_x.example.org.", "sub-domain_x.example.org", true},
		{"user@bücher.de>", "bücher.de", true},
		{"a@x²y.example", "x²y.example", true},
		{"a@ⅻ.example", "ⅻ.example", true},
		{"@ @. alice@bank.com", "bank.com", true},
		{"Alice Smith", "", false},
		{"alice@", "", false},
		{"alice@...", "", false},
		{"", "", false},
	}

	for _, testCase := range testCases {
		domain, ok := ExtractDomain(testCase.text)
		if domain != testCase.domain || ok != testCase.ok {
			t.Errorf("ExtractDomain(%#v) = %#v, %t expected %#v, %t",
				testCase.text, domain, ok, testCase.domain, testCase.ok)
		}
	}
}

func TestExtractAllDomains(t *testing.T) {
	type testCase struct {
		text string
		set  DomainSet
	}

	testCases := []testCase{
		{"Alice", DomainSet{}},
		{"alice@example.com", DomainSet{[]string{"example.com"}, 1}},
		{"alice@Example.com <alice@EXAMPLE.COM>", DomainSet{[]string{"example.com"}, 2}},
		{"alice@bank.com <alice@evil.com>", DomainSet{[]string{"bank.com", "evil.com"}, 2}},
		{"a@x.org b@y.org a@X.org", DomainSet{[]string{"x.org", "y.org"}, 3}},
	}

	for _, testCase := range testCases {
		set := ExtractAllDomains(testCase.text)
		if !reflect.DeepEqual(set, testCase.set) {
			t.Errorf("ExtractAllDomains(%#v) = %#v expected %#v", testCase.text, set, testCase.set)
		}
	}
}

func TestDomainSetContains(t *testing.T) {
	set := ExtractAllDomains("Foo@Example.COM")
	if !set.Contains("example.com") || !set.Contains("EXAMPLE.com") {
		t.Fatalf("%#v should contain example.com in any case", set)
	}
	if set.Contains("example.org") {
		t.Fatalf("%#v should not contain example.org", set)
	}
}
