package milter

// OptAction is a bit set of the modifications a milter may perform, as sent
// in the option negotiation packet.
type OptAction uint32

const (
	OptAddHeader    OptAction = 1 << 0 // SMFIF_ADDHDRS
	OptChangeBody   OptAction = 1 << 1 // SMFIF_CHGBODY
	OptAddRcpt      OptAction = 1 << 2 // SMFIF_ADDRCPT
	OptRemoveRcpt   OptAction = 1 << 3 // SMFIF_DELRCPT
	OptChangeHeader OptAction = 1 << 4 // SMFIF_CHGHDRS
	OptQuarantine   OptAction = 1 << 5 // SMFIF_QUARANTINE
)

// OptProtocol is a bit set of the protocol steps the MTA may leave out of
// the conversation.
type OptProtocol uint32

const (
	OptNoConnect  OptProtocol = 1 << 0 // SMFIP_NOCONNECT
	OptNoHelo     OptProtocol = 1 << 1 // SMFIP_NOHELO
	OptNoMailFrom OptProtocol = 1 << 2 // SMFIP_NOMAIL
	OptNoRcptTo   OptProtocol = 1 << 3 // SMFIP_NORCPT
	OptNoBody     OptProtocol = 1 << 4 // SMFIP_NOBODY
	OptNoHeaders  OptProtocol = 1 << 5 // SMFIP_NOHDRS
	OptNoEOH      OptProtocol = 1 << 6 // SMFIP_NOEOH
	OptNoUnknown  OptProtocol = 1 << 8 // SMFIP_NOUNKNOWN
	OptNoData     OptProtocol = 1 << 9 // SMFIP_NODATA
)

// Options are what the milter asks for during option negotiation. The MTA's
// offer is masked by them, so asking for something the MTA does not support
// is harmless.
type Options struct {
	// Actions lists the modifications the milter will make at end of message.
	Actions OptAction

	// Protocol lists the steps the milter does not need to see.
	Protocol OptProtocol
}

// optNeg is the payload of the 'O' packet, in both directions.
type optNeg struct {
	Version  uint32
	Actions  uint32
	Protocol uint32
}

// negotiate computes the reply to the MTA's offer.
func (o Options) negotiate(offer optNeg) optNeg {
	return optNeg{
		Version:  offer.Version,
		Actions:  offer.Actions & uint32(o.Actions),
		Protocol: offer.Protocol & uint32(o.Protocol),
	}
}
