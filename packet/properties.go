package packet

import "bytes"

// Property identifiers, MQTT v5.0 §2.2.2.2.
const (
	PropPayloadFormatIndicator          uint8 = 0x01
	PropMessageExpiryInterval           uint8 = 0x02
	PropContentType                     uint8 = 0x03
	PropResponseTopic                   uint8 = 0x08
	PropCorrelationData                 uint8 = 0x09
	PropSubscriptionIdentifier          uint8 = 0x0B
	PropSessionExpiryInterval           uint8 = 0x11
	PropAssignedClientIdentifier        uint8 = 0x12
	PropServerKeepAlive                 uint8 = 0x13
	PropAuthenticationMethod            uint8 = 0x15
	PropAuthenticationData              uint8 = 0x16
	PropRequestProblemInformation       uint8 = 0x17
	PropWillDelayInterval                uint8 = 0x18
	PropRequestResponseInformation      uint8 = 0x19
	PropResponseInformation             uint8 = 0x1A
	PropServerReference                 uint8 = 0x1C
	PropReasonString                    uint8 = 0x1F
	PropReceiveMaximum                  uint8 = 0x21
	PropTopicAliasMaximum               uint8 = 0x22
	PropTopicAlias                       uint8 = 0x23
	PropMaximumQoS                       uint8 = 0x24
	PropRetainAvailable                  uint8 = 0x25
	PropUserProperty                     uint8 = 0x26
	PropMaximumPacketSize                uint8 = 0x27
	PropWildcardSubscriptionAvailable    uint8 = 0x28
	PropSubscriptionIdentifierAvailable  uint8 = 0x29
	PropSharedSubscriptionAvailable      uint8 = 0x2A
)

// presence bits, one per scalar property. PropUserProperty and
// PropSubscriptionIdentifier are slice fields and have no bit: user
// properties may repeat (§4.A), while unpacking accepts at most one
// subscription identifier per property set, like every other property.
const (
	presPayloadFormatIndicator uint32 = 1 << iota
	presMessageExpiryInterval
	presContentType
	presResponseTopic
	presCorrelationData
	presSessionExpiryInterval
	presAssignedClientIdentifier
	presServerKeepAlive
	presAuthenticationMethod
	presAuthenticationData
	presRequestProblemInformation
	presWillDelayInterval
	presRequestResponseInformation
	presResponseInformation
	presServerReference
	presReasonString
	presReceiveMaximum
	presTopicAliasMaximum
	presTopicAlias
	presMaximumQoS
	presRetainAvailable
	presMaximumPacketSize
	presWildcardSubscriptionAvailable
	presSubscriptionIdentifierAvailable
	presSharedSubscriptionAvailable
)

// UserProperty is a single MQTT v5.0 user property; unlike every other
// property it may repeat within one packet.
type UserProperty struct {
	Key   string
	Value string
}

// Properties holds the union of every MQTT v5.0 property. A single type
// is shared across all fifteen packet types rather than one struct per
// packet type: each packet's Pack/Unpack consults allowedProperties to
// enforce the per-packet allow-list, and Presence tracks which scalar
// fields were actually set (so a zero value and "absent" are distinguishable).
//
// Grounded on gonzalop/mq's internal/packets.Properties, which uses the
// same presence-bitmask shape to decode without per-property allocation.
type Properties struct {
	Presence uint32

	PayloadFormatIndicator     uint8
	MessageExpiryInterval      uint32
	ContentType                string
	ResponseTopic              string
	CorrelationData            []byte
	SubscriptionIdentifier     []uint32
	SessionExpiryInterval      uint32
	AssignedClientIdentifier   string
	ServerKeepAlive            uint16
	AuthenticationMethod       string
	AuthenticationData         []byte
	RequestProblemInformation  uint8
	WillDelayInterval          uint32
	RequestResponseInformation uint8
	ResponseInformation        string
	ServerReference            string
	ReasonString               string
	ReceiveMaximum             uint16
	TopicAliasMaximum          uint16
	TopicAlias                 uint16
	MaximumQoS                 uint8
	RetainAvailable            bool
	UserProperties             []UserProperty
	MaximumPacketSize          uint32
	WildcardSubscriptionAvail  bool
	SubscriptionIDAvailable    bool
	SharedSubscriptionAvail    bool
}

func (p *Properties) has(bit uint32) bool { return p != nil && p.Presence&bit != 0 }

func (p *Properties) SetTopicAlias(v uint16) {
	p.TopicAlias, p.Presence = v, p.Presence|presTopicAlias
}
func (p *Properties) HasTopicAlias() bool { return p.has(presTopicAlias) }

func (p *Properties) SetReceiveMaximum(v uint16) {
	p.ReceiveMaximum, p.Presence = v, p.Presence|presReceiveMaximum
}
func (p *Properties) HasReceiveMaximum() bool { return p.has(presReceiveMaximum) }

func (p *Properties) SetTopicAliasMaximum(v uint16) {
	p.TopicAliasMaximum, p.Presence = v, p.Presence|presTopicAliasMaximum
}
func (p *Properties) HasTopicAliasMaximum() bool { return p.has(presTopicAliasMaximum) }

func (p *Properties) SetServerKeepAlive(v uint16) {
	p.ServerKeepAlive, p.Presence = v, p.Presence|presServerKeepAlive
}
func (p *Properties) HasServerKeepAlive() bool { return p.has(presServerKeepAlive) }

func (p *Properties) SetMaximumPacketSize(v uint32) {
	p.MaximumPacketSize, p.Presence = v, p.Presence|presMaximumPacketSize
}
func (p *Properties) HasMaximumPacketSize() bool { return p.has(presMaximumPacketSize) }

func (p *Properties) SetSessionExpiryInterval(v uint32) {
	p.SessionExpiryInterval, p.Presence = v, p.Presence|presSessionExpiryInterval
}

// allowedProperties lists, per packet kind, the property ids legal on
// that packet. PropUserProperty is implicitly allowed everywhere.
var allowedProperties = map[byte]map[uint8]bool{
	0x1: { // CONNECT
		PropSessionExpiryInterval: true, PropReceiveMaximum: true, PropMaximumPacketSize: true,
		PropTopicAliasMaximum: true, PropRequestResponseInformation: true, PropRequestProblemInformation: true,
		PropAuthenticationMethod: true, PropAuthenticationData: true,
	},
	0x2: { // CONNACK
		PropSessionExpiryInterval: true, PropReceiveMaximum: true, PropMaximumQoS: true,
		PropRetainAvailable: true, PropMaximumPacketSize: true, PropAssignedClientIdentifier: true,
		PropTopicAliasMaximum: true, PropReasonString: true, PropWildcardSubscriptionAvailable: true,
		PropSubscriptionIdentifierAvailable: true, PropSharedSubscriptionAvailable: true,
		PropServerKeepAlive: true, PropResponseInformation: true, PropServerReference: true,
		PropAuthenticationMethod: true, PropAuthenticationData: true,
	},
	0x3: { // PUBLISH
		PropPayloadFormatIndicator: true, PropMessageExpiryInterval: true, PropContentType: true,
		PropResponseTopic: true, PropCorrelationData: true, PropSubscriptionIdentifier: true,
		PropTopicAlias: true,
	},
	0x4: {PropReasonString: true}, // PUBACK
	0x5: {PropReasonString: true}, // PUBREC
	0x6: {PropReasonString: true}, // PUBREL
	0x7: {PropReasonString: true}, // PUBCOMP
	0x8: {PropSubscriptionIdentifier: true},   // SUBSCRIBE
	0x9: {PropReasonString: true},             // SUBACK
	0xA: {},                                   // UNSUBSCRIBE (user properties only)
	0xB: {PropReasonString: true},             // UNSUBACK
	0xC: {}, 0xD: {}, // PINGREQ/PINGRESP carry no properties
	0xE: { // DISCONNECT
		PropSessionExpiryInterval: true, PropReasonString: true, PropServerReference: true,
	},
	0xF: { // AUTH
		PropAuthenticationMethod: true, PropAuthenticationData: true, PropReasonString: true,
	},
}

// will properties (CONNECT payload's Will Properties, distinct allow-list).
var allowedWillProperties = map[uint8]bool{
	PropWillDelayInterval: true, PropPayloadFormatIndicator: true, PropMessageExpiryInterval: true,
	PropContentType: true, PropResponseTopic: true, PropCorrelationData: true,
}

// packScalarProperties appends the TLV encoding of every property set in
// p to buf: the scalar ones, then each subscription identifier and user
// property.
func packScalarProperties(buf *bytes.Buffer, p *Properties, allowed map[uint8]bool) error {
	if p == nil {
		return nil
	}
	write := func(id uint8, present bool, enc func()) error {
		if !present {
			return nil
		}
		if !allowed[id] {
			return ErrMalformedBadProperty
		}
		buf.WriteByte(id)
		enc()
		return nil
	}
	if err := write(PropPayloadFormatIndicator, p.has(presPayloadFormatIndicator), func() { buf.WriteByte(p.PayloadFormatIndicator) }); err != nil {
		return err
	}
	if err := write(PropMessageExpiryInterval, p.has(presMessageExpiryInterval), func() { buf.Write(i4b(p.MessageExpiryInterval)) }); err != nil {
		return err
	}
	if err := write(PropContentType, p.has(presContentType), func() { buf.Write(encodeUTF8(p.ContentType)) }); err != nil {
		return err
	}
	if err := write(PropResponseTopic, p.has(presResponseTopic), func() { buf.Write(encodeUTF8(p.ResponseTopic)) }); err != nil {
		return err
	}
	if err := write(PropCorrelationData, p.has(presCorrelationData), func() { buf.Write(s2b(p.CorrelationData)) }); err != nil {
		return err
	}
	if err := write(PropSessionExpiryInterval, p.has(presSessionExpiryInterval), func() { buf.Write(i4b(p.SessionExpiryInterval)) }); err != nil {
		return err
	}
	if err := write(PropAssignedClientIdentifier, p.has(presAssignedClientIdentifier), func() { buf.Write(encodeUTF8(p.AssignedClientIdentifier)) }); err != nil {
		return err
	}
	if err := write(PropServerKeepAlive, p.has(presServerKeepAlive), func() { buf.Write(i2b(p.ServerKeepAlive)) }); err != nil {
		return err
	}
	if err := write(PropAuthenticationMethod, p.has(presAuthenticationMethod), func() { buf.Write(encodeUTF8(p.AuthenticationMethod)) }); err != nil {
		return err
	}
	if err := write(PropAuthenticationData, p.has(presAuthenticationData), func() { buf.Write(s2b(p.AuthenticationData)) }); err != nil {
		return err
	}
	if err := write(PropRequestProblemInformation, p.has(presRequestProblemInformation), func() { buf.WriteByte(p.RequestProblemInformation) }); err != nil {
		return err
	}
	if err := write(PropWillDelayInterval, p.has(presWillDelayInterval), func() { buf.Write(i4b(p.WillDelayInterval)) }); err != nil {
		return err
	}
	if err := write(PropRequestResponseInformation, p.has(presRequestResponseInformation), func() { buf.WriteByte(p.RequestResponseInformation) }); err != nil {
		return err
	}
	if err := write(PropResponseInformation, p.has(presResponseInformation), func() { buf.Write(encodeUTF8(p.ResponseInformation)) }); err != nil {
		return err
	}
	if err := write(PropServerReference, p.has(presServerReference), func() { buf.Write(encodeUTF8(p.ServerReference)) }); err != nil {
		return err
	}
	if err := write(PropReasonString, p.has(presReasonString), func() { buf.Write(encodeUTF8(p.ReasonString)) }); err != nil {
		return err
	}
	if err := write(PropReceiveMaximum, p.has(presReceiveMaximum), func() { buf.Write(i2b(p.ReceiveMaximum)) }); err != nil {
		return err
	}
	if err := write(PropTopicAliasMaximum, p.has(presTopicAliasMaximum), func() { buf.Write(i2b(p.TopicAliasMaximum)) }); err != nil {
		return err
	}
	if err := write(PropTopicAlias, p.has(presTopicAlias), func() { buf.Write(i2b(p.TopicAlias)) }); err != nil {
		return err
	}
	if err := write(PropMaximumQoS, p.has(presMaximumQoS), func() { buf.WriteByte(p.MaximumQoS) }); err != nil {
		return err
	}
	if err := write(PropRetainAvailable, p.has(presRetainAvailable), func() { buf.WriteByte(boolByte(p.RetainAvailable)) }); err != nil {
		return err
	}
	if err := write(PropMaximumPacketSize, p.has(presMaximumPacketSize), func() { buf.Write(i4b(p.MaximumPacketSize)) }); err != nil {
		return err
	}
	if err := write(PropWildcardSubscriptionAvailable, p.has(presWildcardSubscriptionAvailable), func() { buf.WriteByte(boolByte(p.WildcardSubscriptionAvail)) }); err != nil {
		return err
	}
	if err := write(PropSubscriptionIdentifierAvailable, p.has(presSubscriptionIdentifierAvailable), func() { buf.WriteByte(boolByte(p.SubscriptionIDAvailable)) }); err != nil {
		return err
	}
	if err := write(PropSharedSubscriptionAvailable, p.has(presSharedSubscriptionAvailable), func() { buf.WriteByte(boolByte(p.SharedSubscriptionAvail)) }); err != nil {
		return err
	}
	for _, id := range p.SubscriptionIdentifier {
		if !allowed[PropSubscriptionIdentifier] {
			return ErrMalformedBadProperty
		}
		buf.WriteByte(PropSubscriptionIdentifier)
		enc, err := encodeLength(id)
		if err != nil {
			return err
		}
		buf.Write(enc)
	}
	for _, up := range p.UserProperties {
		buf.WriteByte(PropUserProperty)
		buf.Write(encodeUTF8(up.Key))
		buf.Write(encodeUTF8(up.Value))
	}
	return nil
}

// PackProperties serializes p (length-prefixed) honoring the allow-list
// for the given packet kind. A nil Properties packs as a zero length.
func PackProperties(kind byte, p *Properties) ([]byte, error) {
	allowed := allowedProperties[kind]
	var body bytes.Buffer
	if err := packScalarProperties(&body, p, allowed); err != nil {
		return nil, err
	}
	lenPrefix, err := encodeLength(body.Len())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(lenPrefix)+body.Len())
	out = append(out, lenPrefix...)
	out = append(out, body.Bytes()...)
	return out, nil
}

// PackWillProperties serializes the CONNECT payload's Will Properties.
func PackWillProperties(p *Properties) ([]byte, error) {
	var body bytes.Buffer
	if err := packScalarProperties(&body, p, allowedWillProperties); err != nil {
		return nil, err
	}
	lenPrefix, err := encodeLength(body.Len())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(lenPrefix)+body.Len())
	out = append(out, lenPrefix...)
	out = append(out, body.Bytes()...)
	return out, nil
}

// UnpackProperties reads a length-prefixed property set from buf,
// validating against the allow-list for kind and the at-most-once rule
// (except PropUserProperty, which may repeat).
func UnpackProperties(kind byte, buf *bytes.Buffer) (*Properties, error) {
	return unpackProperties(buf, allowedProperties[kind])
}

// UnpackWillProperties reads the CONNECT payload's Will Properties.
func UnpackWillProperties(buf *bytes.Buffer) (*Properties, error) {
	return unpackProperties(buf, allowedWillProperties)
}

func unpackProperties(buf *bytes.Buffer, allowed map[uint8]bool) (*Properties, error) {
	n, err := decodeLength(buf)
	if err != nil {
		return nil, err
	}
	if buf.Len() < int(n) {
		return nil, ErrMalformedProperties
	}
	sub := bytes.NewBuffer(buf.Next(int(n)))
	p := &Properties{}
	seen := map[uint8]bool{}
	for sub.Len() > 0 {
		id, err := decodeByte(sub)
		if err != nil {
			return nil, ErrMalformedProperties
		}
		if id != PropUserProperty && seen[id] {
			return nil, ErrMalformedDuplicateProperty
		}
		if id != PropUserProperty && !allowed[id] {
			return nil, ErrMalformedBadProperty
		}
		seen[id] = true
		switch id {
		case PropPayloadFormatIndicator:
			v, err := decodeByte(sub)
			if err != nil {
				return nil, err
			}
			p.PayloadFormatIndicator, p.Presence = v, p.Presence|presPayloadFormatIndicator
		case PropMessageExpiryInterval:
			v, err := decodeUint32(sub)
			if err != nil {
				return nil, err
			}
			p.MessageExpiryInterval, p.Presence = v, p.Presence|presMessageExpiryInterval
		case PropContentType:
			v, err := decodeUTF8[string](sub)
			if err != nil {
				return nil, err
			}
			p.ContentType, p.Presence = v, p.Presence|presContentType
		case PropResponseTopic:
			v, err := decodeUTF8[string](sub)
			if err != nil {
				return nil, err
			}
			p.ResponseTopic, p.Presence = v, p.Presence|presResponseTopic
		case PropCorrelationData:
			v, err := decodeUTF8[[]byte](sub)
			if err != nil {
				return nil, err
			}
			p.CorrelationData, p.Presence = v, p.Presence|presCorrelationData
		case PropSubscriptionIdentifier:
			v, err := decodeLength(sub)
			if err != nil {
				return nil, err
			}
			p.SubscriptionIdentifier = append(p.SubscriptionIdentifier, v)
		case PropSessionExpiryInterval:
			v, err := decodeUint32(sub)
			if err != nil {
				return nil, err
			}
			p.SessionExpiryInterval, p.Presence = v, p.Presence|presSessionExpiryInterval
		case PropAssignedClientIdentifier:
			v, err := decodeUTF8[string](sub)
			if err != nil {
				return nil, err
			}
			p.AssignedClientIdentifier, p.Presence = v, p.Presence|presAssignedClientIdentifier
		case PropServerKeepAlive:
			v, err := decodeUint16(sub)
			if err != nil {
				return nil, err
			}
			p.ServerKeepAlive, p.Presence = v, p.Presence|presServerKeepAlive
		case PropAuthenticationMethod:
			v, err := decodeUTF8[string](sub)
			if err != nil {
				return nil, err
			}
			p.AuthenticationMethod, p.Presence = v, p.Presence|presAuthenticationMethod
		case PropAuthenticationData:
			v, err := decodeUTF8[[]byte](sub)
			if err != nil {
				return nil, err
			}
			p.AuthenticationData, p.Presence = v, p.Presence|presAuthenticationData
		case PropRequestProblemInformation:
			v, err := decodeByte(sub)
			if err != nil {
				return nil, err
			}
			p.RequestProblemInformation, p.Presence = v, p.Presence|presRequestProblemInformation
		case PropWillDelayInterval:
			v, err := decodeUint32(sub)
			if err != nil {
				return nil, err
			}
			p.WillDelayInterval, p.Presence = v, p.Presence|presWillDelayInterval
		case PropRequestResponseInformation:
			v, err := decodeByte(sub)
			if err != nil {
				return nil, err
			}
			p.RequestResponseInformation, p.Presence = v, p.Presence|presRequestResponseInformation
		case PropResponseInformation:
			v, err := decodeUTF8[string](sub)
			if err != nil {
				return nil, err
			}
			p.ResponseInformation, p.Presence = v, p.Presence|presResponseInformation
		case PropServerReference:
			v, err := decodeUTF8[string](sub)
			if err != nil {
				return nil, err
			}
			p.ServerReference, p.Presence = v, p.Presence|presServerReference
		case PropReasonString:
			v, err := decodeUTF8[string](sub)
			if err != nil {
				return nil, err
			}
			p.ReasonString, p.Presence = v, p.Presence|presReasonString
		case PropReceiveMaximum:
			v, err := decodeUint16(sub)
			if err != nil {
				return nil, err
			}
			p.ReceiveMaximum, p.Presence = v, p.Presence|presReceiveMaximum
		case PropTopicAliasMaximum:
			v, err := decodeUint16(sub)
			if err != nil {
				return nil, err
			}
			p.TopicAliasMaximum, p.Presence = v, p.Presence|presTopicAliasMaximum
		case PropTopicAlias:
			v, err := decodeUint16(sub)
			if err != nil {
				return nil, err
			}
			p.TopicAlias, p.Presence = v, p.Presence|presTopicAlias
		case PropMaximumQoS:
			v, err := decodeByte(sub)
			if err != nil {
				return nil, err
			}
			p.MaximumQoS, p.Presence = v, p.Presence|presMaximumQoS
		case PropRetainAvailable:
			v, err := decodeByte(sub)
			if err != nil {
				return nil, err
			}
			p.RetainAvailable, p.Presence = v != 0, p.Presence|presRetainAvailable
		case PropMaximumPacketSize:
			v, err := decodeUint32(sub)
			if err != nil {
				return nil, err
			}
			p.MaximumPacketSize, p.Presence = v, p.Presence|presMaximumPacketSize
		case PropWildcardSubscriptionAvailable:
			v, err := decodeByte(sub)
			if err != nil {
				return nil, err
			}
			p.WildcardSubscriptionAvail, p.Presence = v != 0, p.Presence|presWildcardSubscriptionAvailable
		case PropSubscriptionIdentifierAvailable:
			v, err := decodeByte(sub)
			if err != nil {
				return nil, err
			}
			p.SubscriptionIDAvailable, p.Presence = v != 0, p.Presence|presSubscriptionIdentifierAvailable
		case PropSharedSubscriptionAvailable:
			v, err := decodeByte(sub)
			if err != nil {
				return nil, err
			}
			p.SharedSubscriptionAvail, p.Presence = v != 0, p.Presence|presSharedSubscriptionAvailable
		case PropUserProperty:
			k, err := decodeUTF8[string](sub)
			if err != nil {
				return nil, err
			}
			v, err := decodeUTF8[string](sub)
			if err != nil {
				return nil, err
			}
			p.UserProperties = append(p.UserProperties, UserProperty{Key: k, Value: v})
		default:
			return nil, ErrMalformedBadProperty
		}
	}
	return p, nil
}
