package milter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// A Server accepts connections from a mail transfer agent and runs a fresh
// Milter for each of them.
type Server struct {
	// NewMilter returns the Milter for a new connection. It is called once
	// per connection, and again when the MTA asks to reuse the connection for
	// a new SMTP session.
	NewMilter func() Milter

	// Options are sent to the MTA during negotiation.
	Options Options

	// Timeout bounds each packet read and write. Zero means no timeout.
	Timeout time.Duration

	// Logger receives connection-level events. If nil, slog.Default is used.
	Logger *slog.Logger
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Serve accepts connections received on l, and processes them with milters
// returned by s.NewMilter. When ctx is cancelled, Serve closes l and any open
// connections, waits for their goroutines to finish and returns nil.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	if s.NewMilter == nil {
		return errors.New("milter: Server.NewMilter is nil")
	}

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		c, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		metricConnections.Inc()

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(ctx, c)
		}()
	}
}

// handle runs one MTA connection to completion.
func (s *Server) handle(ctx context.Context, c net.Conn) {
	log := s.logger().With(slog.Any("remote", c.RemoteAddr()))
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	defer func() {
		if x := recover(); x != nil {
			metricErrors.WithLabelValues("panic").Inc()
			log.Error("unhandled panic", slog.Any("err", x))
			c.Close()
		}
	}()

	log.Debug("milter connection")
	mc := newConn(c, s.Timeout)
	if err := mc.run(s.NewMilter, s.Options, log); err != nil {
		if ctx.Err() != nil && errors.Is(err, net.ErrClosed) {
			return
		}
		metricErrors.WithLabelValues("protocol").Inc()
		log.Info("milter connection ended with error", slog.Any("err", err))
	}
}

func (c *conn) run(newMilter func() Milter, opts Options, log *slog.Logger) error {
	defer c.conn.Close()

	milter := newMilter()
	defer func() { milter.Close() }()

	for {
		data, err := c.readPacket()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return errors.New("zero-length command packet")
		}

		command := data[0]
		data = data[1:]
		var resp Response = Continue

		if command != c.macrosFor {
			c.macros = nil
		}

		switch command {
		case 'O':
			// Negotiate connection options.
			var offer optNeg
			if err := decode(data, &offer); err != nil {
				return fmt.Errorf("error decoding options from server: %w", err)
			}
			reply := opts.negotiate(offer)
			log.Debug("negotiated options",
				slog.Uint64("version", uint64(reply.Version)),
				slog.Uint64("actions", uint64(reply.Actions)),
				slog.Uint64("protocol", uint64(reply.Protocol)))
			if err := c.writeResponse('O', encode(reply)); err != nil {
				return err
			}
			continue // Writing the 'O' response was all the response that was needed.

		case 'D':
			// Define macros.
			if len(data) == 0 {
				return errors.New("macro-definition packet with no data")
			}
			c.macrosFor = data[0]
			c.macros = map[string]string{}

			kv := splitCStrings(data[1:])
			for i := 0; i < len(kv)-1; i += 2 {
				c.macros[stripBrackets(kv[i], "{}")] = kv[i+1]
			}
			continue // A macro packet doesn't need a response.

		case 'A':
			// Abort (cancel current message and get ready to process a new one).
			milter.Abort()
			continue // An abort packet doesn't need a response.

		case 'Q':
			// Quit.
			return nil

		case 'K':
			// Quit, but keep the connection for a new SMTP session.
			milter.Close()
			milter = newMilter()
			continue

		case 'C':
			// Connect.
			var connInfo struct {
				Hostname       string
				ProtocolFamily byte
				Port           uint16
				Address        string
			}
			// Family 'U' (unknown) sends only the hostname and family.
			err := decode(data, &connInfo)
			if err != nil && !(connInfo.ProtocolFamily == 'U' && errors.Is(err, errNotEnoughData)) {
				return fmt.Errorf("error decoding connection info: %w", err)
			}
			var network, address string
			switch connInfo.ProtocolFamily {
			case 'L':
				network = "unix"
				address = connInfo.Address
			case '4':
				network = "tcp4"
				address = net.JoinHostPort(connInfo.Address, strconv.Itoa(int(connInfo.Port)))
			case '6':
				network = "tcp6"
				address = net.JoinHostPort(connInfo.Address, strconv.Itoa(int(connInfo.Port)))
			}
			resp = milter.Connect(connInfo.Hostname, network, address, c.macros)

		case 'H':
			// HELO.
			name := strings.TrimSuffix(string(data), "\x00")
			resp = milter.Helo(name, c.macros)

		case 'M':
			// MAIL FROM.
			args := splitCStrings(data)
			if len(args) == 0 {
				return errors.New("MAIL FROM with no address")
			}
			from := stripBrackets(args[0], "<>")
			resp = milter.From(from, c.macros)

		case 'R':
			// RCPT TO.
			args := splitCStrings(data)
			if len(args) == 0 {
				return errors.New("RCPT TO with no address")
			}
			to := stripBrackets(args[0], "<>")
			resp = milter.To(to, c.macros)

		case 'T':
			// DATA.
			// Just ignore it, to avoid complicating the milter interface further.

		case 'L':
			// a header
			keyVal := splitCStrings(data)
			if len(keyVal) != 2 {
				return fmt.Errorf("header key/value pair with %d items (should be 2)", len(keyVal))
			}
			resp = milter.Header(keyVal[0], keyVal[1])

		case 'N':
			// end of headers
			resp = milter.Headers(c.macros)

		case 'B':
			// a chunk of the body
			resp = milter.Body(data)

		case 'E':
			// the end of the body, possibly with a last chunk
			if len(data) > 0 {
				milter.Body(data)
			}
			resp = milter.EndOfMessage(c, c.macros)
			if c.err != nil {
				return c.err
			}

		case 'U':
			// an SMTP command the MTA did not recognize

		default:
			log.Warn("unrecognized command code", slog.String("code", string(rune(command))))
		}

		if err := c.writeResponse(resp.Response()); err != nil {
			return err
		}
	}
}
