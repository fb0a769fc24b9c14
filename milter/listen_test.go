package milter

import "testing"

func TestParseAddress(t *testing.T) {
	type testCase struct {
		spec    string
		network string
		address string
		isValid bool
	}

	testCases := []testCase{
		{"inet:8890@127.0.0.1", "tcp4", "127.0.0.1:8890", true},
		{"inet:8890@localhost", "tcp4", "localhost:8890", true},
		{"inet:8890", "tcp4", ":8890", true},
		{"INET:8890@0.0.0.0", "tcp4", "0.0.0.0:8890", true},
		{"inet6:8890@[::1]", "tcp6", "[::1]:8890", true},
		{"inet6:8890@::1", "tcp6", "[::1]:8890", true},
		{"unix:/run/fromcheck/milter.sock", "unix", "/run/fromcheck/milter.sock", true},
		{"local:/var/spool/postfix/fromcheck", "unix", "/var/spool/postfix/fromcheck", true},
		{"/tmp/milter.sock", "unix", "/tmp/milter.sock", true},
		{"inet:@127.0.0.1", "", "", false},
		{"tcp:8890", "", "", false},
		{"unix:", "", "", false},
		{"8890", "", "", false},
		{"", "", "", false},
	}

	for _, testCase := range testCases {
		network, address, err := ParseAddress(testCase.spec)
		if network != testCase.network || address != testCase.address || (err == nil) != testCase.isValid {
			t.Errorf("ParseAddress(%#v) = %#v, %#v, %v expected %#v, %#v, valid %t",
				testCase.spec, network, address, err, testCase.network, testCase.address, testCase.isValid)
		}
	}
}

func TestNegotiateMasksOffer(t *testing.T) {
	opts := Options{Actions: OptAddHeader | OptChangeHeader, Protocol: OptNoBody | OptNoRcptTo}
	reply := opts.negotiate(optNeg{Version: 2, Actions: uint32(OptAddHeader), Protocol: uint32(OptNoBody)})
	want := optNeg{Version: 2, Actions: uint32(OptAddHeader), Protocol: uint32(OptNoBody)}
	if reply != want {
		t.Fatalf("negotiate = %+v expected %+v", reply, want)
	}
}
