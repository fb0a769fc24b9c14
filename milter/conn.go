package milter

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"
)

// maxPacketSize bounds the length prefix the MTA may send, so a corrupt
// stream cannot make us allocate without limit.
const maxPacketSize = 1 << 22

// A conn is a network connection from the mail transfer agent.
type conn struct {
	conn    io.ReadWriteCloser
	bw      *bufio.Writer
	timeout time.Duration
	err     error

	macros    map[string]string
	macrosFor byte
}

// newConn returns a new conn wrapping c. If timeout is positive and c
// supports deadlines, every packet read and write must finish within it.
func newConn(c io.ReadWriteCloser, timeout time.Duration) *conn {
	return &conn{
		conn:    c,
		bw:      bufio.NewWriter(c),
		timeout: timeout,
	}
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// readPacket reads a command packet and returns the packet data (excluding the
// length prefix).
func (c *conn) readPacket() ([]byte, error) {
	if d, ok := c.conn.(deadliner); ok && c.timeout > 0 {
		if err := d.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, err
		}
	}

	var length uint32
	if err := binary.Read(c.conn, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length > maxPacketSize {
		return nil, fmt.Errorf("command packet too large: %d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(c.conn, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return data, nil
}

// writeResponse sends a response packet.
func (c *conn) writeResponse(code byte, data []byte) error {
	if d, ok := c.conn.(deadliner); ok && c.timeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}
	if err := binary.Write(c.bw, binary.BigEndian, uint32(len(data)+1)); err != nil {
		return err
	}
	if err := c.bw.WriteByte(code); err != nil {
		return err
	}
	if _, err := c.bw.Write(data); err != nil {
		return err
	}
	return c.bw.Flush()
}

// splitCStrings takes a byte slice full of null-terminated strings, and
// returns them as a slice of Go strings.
func splitCStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	if data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}

	return strings.Split(string(data), "\x00")
}

// stripBrackets returns s without its surrounding brackets, if it is enclosed
// in the pair of brackets specified. brackets must be a two-character string
// containing the opening and closing brackets.
func stripBrackets(s, brackets string) string {
	if len(s) >= 2 && s[0] == brackets[0] && s[len(s)-1] == brackets[1] {
		return s[1 : len(s)-1]
	}
	return s
}
