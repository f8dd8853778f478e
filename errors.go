package mqtt

import (
	"errors"
	"fmt"

	"github.com/golang-io/mqtt-endpoint/packet"
)

// ErrPacketIDInUse is returned by Endpoint.ReleasePacketID when id is
// still held by a stored, unacknowledged publish (§9 Open Question:
// release-while-in-use is a caller misuse, not a protocol fault, so it
// is plain, non-fatal error rather than an *Error of some Kind).
var ErrPacketIDInUse = errors.New("mqtt: packet identifier is still in stored-publish use")

// ErrPacketIDRequired is returned by Send when a QoS>0 PUBLISH carries
// no packet identifier; callers must AcquirePacketID first (§6).
var ErrPacketIDRequired = errors.New("mqtt: qos>0 publish requires a packet identifier")

// Kind classifies an Error per the §7 taxonomy so callers can branch on
// category without string matching.
type Kind uint8

const (
	MalformedPacket Kind = iota
	ProtocolError
	PacketTooLarge
	ConnectionRefused
	KeepAliveTimeout
	ConnectTimeout
	ShutdownTimeout
	FlowControl
	PacketIdExhausted
	TransportError
	NotConnected
	Closed
)

func (k Kind) String() string {
	switch k {
	case MalformedPacket:
		return "malformed_packet"
	case ProtocolError:
		return "protocol_error"
	case PacketTooLarge:
		return "packet_too_large"
	case ConnectionRefused:
		return "connection_refused"
	case KeepAliveTimeout:
		return "keep_alive_timeout"
	case ConnectTimeout:
		return "connect_timeout"
	case ShutdownTimeout:
		return "shutdown_timeout"
	case FlowControl:
		return "flow_control"
	case PacketIdExhausted:
		return "packet_id_exhausted"
	case TransportError:
		return "transport_error"
	case NotConnected:
		return "not_connected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// fatalKinds lists the kinds Error.Fatal reports as fatal to the
// connection. The classification is informational only: returning or
// delivering an Error of one of these kinds does not by itself stop the
// orchestrator or fail other pending calls with Closed.
var fatalKinds = map[Kind]bool{
	MalformedPacket:   true,
	ProtocolError:     true,
	ConnectionRefused: true,
	KeepAliveTimeout:  true,
	ConnectTimeout:    true,
	TransportError:    true,
}

// Error is the endpoint-level error type. It wraps the underlying
// packet.ReasonCode where one applies (protocol-level failures always
// have one; local conditions like FlowControl or PacketIdExhausted do
// not and leave Reason at its zero value).
type Error struct {
	Kind   Kind
	Reason packet.ReasonCode
	Err    error // wrapped cause, e.g. a transport error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mqtt: %s: %v", e.Kind, e.Err)
	}
	if e.Reason != (packet.ReasonCode{}) {
		return fmt.Sprintf("mqtt: %s: %v", e.Kind, e.Reason)
	}
	return fmt.Sprintf("mqtt: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	if e.Err == nil && e.Reason != (packet.ReasonCode{}) {
		return e.Reason
	}
	return e.Err
}

func (e *Error) Fatal() bool { return fatalKinds[e.Kind] }

func newError(kind Kind, reason packet.ReasonCode) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func wrapError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// classifyDecodeErr maps a packet.ReasonCode returned by the codec into
// the endpoint-level taxonomy, per §7: code 0x82 (protocol error) maps
// to ProtocolError and every other codec code (the 0x81 malformed-packet
// variants) to MalformedPacket; an error that is not a ReasonCode is
// treated as a TransportError.
func classifyDecodeErr(err error) *Error {
	rc, ok := err.(packet.ReasonCode)
	if !ok {
		return wrapError(TransportError, err)
	}
	if rc.Code == packet.ErrProtocolError.Code {
		return newError(ProtocolError, rc)
	}
	return newError(MalformedPacket, rc)
}
