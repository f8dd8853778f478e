package packet

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, version byte, pkt Packet) Packet {
	t.Helper()
	var buf bytes.Buffer
	if err := pkt.Pack(&buf); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	got, err := Unpack(version, &buf)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	return got
}

func TestConnectRoundTrip311(t *testing.T) {
	pkt := &CONNECT{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x1},
		CleanStart:  true,
		KeepAlive:   60,
		ClientID:    "client-1",
		Username:    "alice",
		Password:    []byte("secret"),
		Will: &Will{
			Topic:   "clients/1/lwt",
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
	}
	got := roundTrip(t, VERSION311, pkt).(*CONNECT)
	if got.ClientID != pkt.ClientID || got.Username != pkt.Username {
		t.Fatalf("identity fields mismatch: %+v", got)
	}
	if !got.CleanStart || got.KeepAlive != 60 {
		t.Fatalf("session fields mismatch: %+v", got)
	}
	if got.Will == nil || got.Will.Topic != pkt.Will.Topic || got.Will.QoS != 1 || !got.Will.Retain {
		t.Fatalf("will mismatch: %+v", got.Will)
	}
	if !bytes.Equal(got.Password, pkt.Password) {
		t.Fatalf("password mismatch: %q", got.Password)
	}
}

func TestConnectRoundTrip500WithProperties(t *testing.T) {
	props := &Properties{}
	props.SetSessionExpiryInterval(3600)
	props.SetReceiveMaximum(20)
	pkt := &CONNECT{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0x1},
		KeepAlive:   30,
		ClientID:    "client-v5",
		Props:       props,
	}
	got := roundTrip(t, VERSION500, pkt).(*CONNECT)
	if got.Props == nil || !got.Props.HasReceiveMaximum() || got.Props.ReceiveMaximum != 20 {
		t.Fatalf("receive maximum not preserved: %+v", got.Props)
	}
	if got.Props.SessionExpiryInterval != 3600 {
		t.Fatalf("session expiry not preserved: %+v", got.Props)
	}
}

func TestPublishQoS1RoundTrip(t *testing.T) {
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x3, QoS: 1},
		Message:     Message{TopicName: "sensors/temp", Content: []byte("21.5")},
		PacketID:    42,
	}
	got := roundTrip(t, VERSION311, pkt).(*PUBLISH)
	if got.Message.TopicName != "sensors/temp" || !bytes.Equal(got.Message.Content, []byte("21.5")) {
		t.Fatalf("message mismatch: %+v", got.Message)
	}
	if got.PacketID != 42 {
		t.Fatalf("packet id mismatch: %d", got.PacketID)
	}
}

func TestPublishV5TopicAliasNoTopicName(t *testing.T) {
	props := &Properties{}
	props.SetTopicAlias(7)
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0x3, QoS: 0},
		Message:     Message{TopicName: "", Content: []byte("x")},
		Props:       props,
	}
	got := roundTrip(t, VERSION500, pkt).(*PUBLISH)
	if !got.Props.HasTopicAlias() || got.Props.TopicAlias != 7 {
		t.Fatalf("alias not preserved: %+v", got.Props)
	}
}

func TestPublishEmptyTopicNoAliasIsProtocolError(t *testing.T) {
	var buf bytes.Buffer
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0x3, QoS: 0},
		Message:     Message{TopicName: "", Content: []byte("x")},
	}
	if err := pkt.Pack(&buf); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if _, err := Unpack(VERSION500, &buf); err != ErrProtocolViolationNoTopic {
		t.Fatalf("expected ErrProtocolViolationNoTopic, got %v", err)
	}
}

func TestPubackShorthandOmitsReasonAndProps(t *testing.T) {
	pkt := &PUBACK{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0x4},
		PacketID:    9,
		ReasonCode:  CodeSuccess,
	}
	var buf bytes.Buffer
	if err := pkt.Pack(&buf); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if buf.Len() != 4 { // fixed header (2 bytes) + packet id (2 bytes), no reason/props
		t.Fatalf("expected shorthand encoding, got %d bytes", buf.Len())
	}
	got := roundTrip(t, VERSION500, &PUBACK{FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0x4}, PacketID: 9, ReasonCode: CodeSuccess}).(*PUBACK)
	if got.ReasonCode != CodeSuccess {
		t.Fatalf("reason code mismatch: %+v", got.ReasonCode)
	}
}

func TestSubscribeRoundTrip(t *testing.T) {
	pkt := &SUBSCRIBE{
		FixedHeader: &FixedHeader{Version: VERSION500, Kind: 0x8, QoS: 1},
		PacketID:    5,
		Subscriptions: []Subscription{
			{TopicFilter: "a/b", MaximumQoS: 2, NoLocal: true, RetainHandling: 1},
			{TopicFilter: "c/+/d", MaximumQoS: 0},
		},
	}
	got := roundTrip(t, VERSION500, pkt).(*SUBSCRIBE)
	if len(got.Subscriptions) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(got.Subscriptions))
	}
	if got.Subscriptions[0].MaximumQoS != 2 || !got.Subscriptions[0].NoLocal || got.Subscriptions[0].RetainHandling != 1 {
		t.Fatalf("subscription options mismatch: %+v", got.Subscriptions[0])
	}
}

func TestSubscribeNoFiltersRejected(t *testing.T) {
	fh := &FixedHeader{Version: VERSION311, Kind: 0x8, QoS: 1}
	var buf bytes.Buffer
	fh.RemainingLength = 2
	if err := fh.Pack(&buf); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	buf.Write(i2b(1))
	if _, err := Unpack(VERSION311, &buf); err != ErrProtocolViolationNoFilters {
		t.Fatalf("expected ErrProtocolViolationNoFilters, got %v", err)
	}
}

func TestPingReqPingResp(t *testing.T) {
	got := roundTrip(t, VERSION311, &PINGREQ{FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0xC}})
	if _, ok := got.(*PINGREQ); !ok {
		t.Fatalf("expected *PINGREQ, got %T", got)
	}
}

func TestReservedPacketTypeIsMalformed(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00}) // kind 0x0, flags 0, remaining length 0
	if _, err := Unpack(VERSION311, &buf); err != ErrMalformedPacket {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestOverlongVariableByteIntegerRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x1 << 4) // CONNECT fixed header byte
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	if _, err := Unpack(VERSION311, &buf); err != ErrMalformedVariableByteInteger {
		t.Fatalf("expected ErrMalformedVariableByteInteger, got %v", err)
	}
}

func TestPublishQoS0DupSetIsProtocolError(t *testing.T) {
	var buf bytes.Buffer
	b := byte(0x3<<4) | (1 << 3) // PUBLISH, DUP=1, QoS=0
	buf.WriteByte(b)
	buf.WriteByte(0x00)
	if _, err := Unpack(VERSION311, &buf); err != ErrProtocolViolationDupNoQos {
		t.Fatalf("expected ErrProtocolViolationDupNoQos, got %v", err)
	}
}

func TestSubscribeQoS3Rejected(t *testing.T) {
	var buf bytes.Buffer
	fh := &FixedHeader{Version: VERSION311, Kind: 0x8, QoS: 1}
	fh.RemainingLength = 0 // placeholder, fixed below
	body := append(i2b(1), encodeUTF8("a/b")...)
	body = append(body, 0x3) // QoS 3: invalid
	fh.RemainingLength = uint32(len(body))
	if err := fh.Pack(&buf); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	buf.Write(body)
	if _, err := Unpack(VERSION311, &buf); err != ErrProtocolViolationQosOutOfRange {
		t.Fatalf("expected ErrProtocolViolationQosOutOfRange, got %v", err)
	}
}

func TestDecodeFromBufferNeedsMore(t *testing.T) {
	pkt := &PUBLISH{
		FixedHeader: &FixedHeader{Version: VERSION311, Kind: 0x3, QoS: 0},
		Message:     Message{TopicName: "a/b", Content: []byte("hello")},
	}
	var full bytes.Buffer
	if err := pkt.Pack(&full); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	partial := bytes.NewBuffer(full.Bytes()[:full.Len()-1])
	if _, err := DecodeFromBuffer(VERSION311, partial); err != ErrNeedMore {
		t.Fatalf("expected ErrNeedMore, got %v", err)
	}
	if partial.Len() != full.Len()-1 {
		t.Fatalf("NeedMore must leave buffer untouched, len=%d", partial.Len())
	}

	complete := bytes.NewBuffer(full.Bytes())
	got, err := DecodeFromBuffer(VERSION311, complete)
	if err != nil {
		t.Fatalf("DecodeFromBuffer: %v", err)
	}
	if complete.Len() != 0 {
		t.Fatalf("expected buffer fully consumed, got %d remaining", complete.Len())
	}
	pub, ok := got.(*PUBLISH)
	if !ok || pub.Message.TopicName != "a/b" {
		t.Fatalf("unexpected decode result: %+v", got)
	}
}

func TestDuplicatePropertyRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(PropReceiveMaximum)
	buf.Write(i2b(10))
	buf.WriteByte(PropReceiveMaximum)
	buf.Write(i2b(20))
	lenPrefix, err := encodeLength(buf.Len())
	if err != nil {
		t.Fatalf("encodeLength: %v", err)
	}
	full := bytes.NewBuffer(append(append([]byte(nil), lenPrefix...), buf.Bytes()...))
	if _, err := UnpackProperties(0x1, full); err != ErrMalformedDuplicateProperty {
		t.Fatalf("expected ErrMalformedDuplicateProperty, got %v", err)
	}
}

func TestRepeatedUserPropertyAllowed(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(PropUserProperty)
	buf.Write(encodeUTF8("k"))
	buf.Write(encodeUTF8("v1"))
	buf.WriteByte(PropUserProperty)
	buf.Write(encodeUTF8("k"))
	buf.Write(encodeUTF8("v2"))
	lenPrefix, err := encodeLength(buf.Len())
	if err != nil {
		t.Fatalf("encodeLength: %v", err)
	}
	full := bytes.NewBuffer(append(append([]byte(nil), lenPrefix...), buf.Bytes()...))
	props, err := UnpackProperties(0x1, full)
	if err != nil {
		t.Fatalf("UnpackProperties: %v", err)
	}
	if len(props.UserProperties) != 2 {
		t.Fatalf("expected 2 user properties, got %d", len(props.UserProperties))
	}
}

func TestPropertyNotAllowedOnPacketRejected(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(PropTopicAlias) // not allowed on PINGREQ
	buf.Write(i2b(1))
	lenPrefix, err := encodeLength(buf.Len())
	if err != nil {
		t.Fatalf("encodeLength: %v", err)
	}
	full := bytes.NewBuffer(append(append([]byte(nil), lenPrefix...), buf.Bytes()...))
	if _, err := UnpackProperties(0xC, full); err != ErrMalformedBadProperty {
		t.Fatalf("expected ErrMalformedBadProperty, got %v", err)
	}
}
