package milter

// A Modifier provides methods for modifying the current message. It is only
// valid during EndOfMessage.
type Modifier interface {
	// AddHeader appends a header to the message. The MTA must have granted
	// OptAddHeader during negotiation.
	AddHeader(name, value string)
}

// writeModification is like writeResponse, but it stores any error encountered
// instead of returning it.
func (c *conn) writeModification(code byte, data []byte) {
	if c.err != nil {
		return
	}
	c.err = c.writeResponse(code, data)
}

func (c *conn) AddHeader(name, value string) {
	var data struct {
		Name  string
		Value string
	}
	data.Name = name
	data.Value = value
	c.writeModification('h', encode(data))
}
