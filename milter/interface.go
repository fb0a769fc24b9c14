/*
The milter package is a framework for writing milters (mail filters) for
Sendmail and Postfix.

To implement a milter, make a type that implements the Milter interface
(usually by embedding NoOpMilter and overriding the callbacks it cares about),
listen on a Unix or TCP socket, and call Server.Serve with that socket and a
factory function that returns instances of your Milter type.
*/
package milter

// A Milter examines email messages and decides what to do with them. Users of
// this package implement the Milter interface, and the methods are called in
// order as the conversation with the mail transfer agent proceeds. A single
// Milter is used for every message on one connection; after EndOfMessage or
// Abort the flow jumps back to From (or Helo) for the next message.
//
// If a method pertains to a stage in the mail workflow that the milter is not
// interested in, it should just return Continue.
//
// The final argument to several of the methods is macros, a map of extra, MTA-
// specific information. (If the MTA sent the macro names enclosed in curly
// braces, they have been removed.)
type Milter interface {
	// Connect is called when a new SMTP connection is received. The values for
	// network and address are in the same format that would be passed to net.Dial.
	Connect(hostname string, network string, address string, macros map[string]string) Response

	// Helo is called when the client sends its HELO or EHLO message.
	Helo(name string, macros map[string]string) Response

	// From is called when the client sends its MAIL FROM message. The sender's
	// address is passed without <> brackets.
	From(sender string, macros map[string]string) Response

	// To is called when the client sends a RCPT TO message. The recipient's
	// address is passed without <> brackets. If it returns a rejection Response,
	// only the one recipient is rejected.
	To(recipient string, macros map[string]string) Response

	// Header is called once for every header of the message, in the order
	// they appear in the message.
	Header(name string, value string) Response

	// Headers is called when all the message headers have been received.
	Headers(macros map[string]string) Response

	// Body is called for each chunk of the message body.
	Body(chunk []byte) Response

	// EndOfMessage is called when the whole message has been received. It is
	// the only point where the milter may modify the message.
	EndOfMessage(m Modifier, macros map[string]string) Response

	// Abort is called when the MTA abandons the current message. The milter
	// should discard any per-message state; the connection stays open.
	Abort()

	// Close is called once when the connection is finished.
	Close()
}

// NoOpMilter implements every Milter method by returning Continue. Embed it
// in a type that only needs some of the callbacks.
type NoOpMilter struct{}

func (NoOpMilter) Connect(hostname, network, address string, macros map[string]string) Response {
	return Continue
}

func (NoOpMilter) Helo(name string, macros map[string]string) Response { return Continue }

func (NoOpMilter) From(sender string, macros map[string]string) Response { return Continue }

func (NoOpMilter) To(recipient string, macros map[string]string) Response { return Continue }

func (NoOpMilter) Header(name, value string) Response { return Continue }

func (NoOpMilter) Headers(macros map[string]string) Response { return Continue }

func (NoOpMilter) Body(chunk []byte) Response { return Continue }

func (NoOpMilter) EndOfMessage(m Modifier, macros map[string]string) Response { return Accept }

func (NoOpMilter) Abort() {}

func (NoOpMilter) Close() {}

// A Response determines what will be done with a message or recipient.
type Response interface {
	Response() (code byte, data []byte)
}

type simpleResponse byte

func (r simpleResponse) Response() (code byte, data []byte) {
	return byte(r), nil
}

func (r simpleResponse) String() string {
	switch r {
	case Accept:
		return "accept"
	case Continue:
		return "continue"
	case Discard:
		return "discard"
	case Reject:
		return "reject"
	case TempFail:
		return "tempfail"
	}
	return string(rune(r))
}

const (
	// Accept indicates that the message should be accepted and delivered, with
	// no further processing.
	Accept = simpleResponse('a')

	// Continue indicates that processing of the message should continue. Milter
	// methods should have Continue as their default return value.
	Continue = simpleResponse('c')

	// Discard indicates that the message should be discarded silently (without
	// giving an error to the sender).
	Discard = simpleResponse('d')

	// Reject rejects the message or recipient with a permanent error (5xx).
	Reject = simpleResponse('r')

	// TempFail rejects the message or recipient with a temporary error (4xx).
	TempFail = simpleResponse('t')
)
