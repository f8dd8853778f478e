// Package mqtt implements the MQTT 3.1.1 and 5.0 protocol endpoint: the
// component that translates between application-level requests (send,
// recv, packet-id management) and a byte stream exchanged with a peer,
// enforcing session state, QoS handshakes, keep-alive, flow control and
// topic-alias substitution. Byte transport, broker-side logic and
// reconnect policy are callers' responsibility; see the transport
// package for the narrow interface this package consumes.
package mqtt

import "github.com/golang-io/mqtt-endpoint/packet"

// Version selects the protocol dialect an Endpoint speaks. Fixed at
// construction; every packet shape and feature availability is
// conditioned on it.
type Version byte

const (
	V311 Version = Version(packet.VERSION311)
	V500 Version = Version(packet.VERSION500)
)

func (v Version) String() string {
	switch v {
	case V311:
		return "3.1.1"
	case V500:
		return "5.0"
	default:
		return "unknown"
	}
}

func (v Version) byte() byte { return byte(v) }
