package mqtt

import (
	"bufio"
	"context"
	"testing"

	"github.com/golang-io/mqtt-endpoint/packet"
	"github.com/golang-io/mqtt-endpoint/transport/transporttest"
)

// newConnectedPair builds an Endpoint over a transporttest.Pipe, drives it
// through CONNECT/CONNACK to Connected, and returns it alongside a buffered
// reader over the simulated peer so tests can assert on written bytes.
func newConnectedPair(t *testing.T, version Version, sessionPresent bool, opts ...Option) (*Endpoint, *bufio.Reader, func(packet.Packet)) {
	t.Helper()
	ep := New(append([]Option{WithVersion(version), WithClientID("t")}, opts...)...)
	pipe, peer := transporttest.NewPipe()
	ep.Attach(pipe)
	if err := pipe.Connect(context.Background(), ""); err != nil {
		t.Fatalf("pipe connect: %v", err)
	}

	peerReader := bufio.NewReader(peer)
	writeFromPeer := func(pkt packet.Packet) {
		if err := pkt.Pack(peer); err != nil {
			t.Fatalf("pack from peer: %v", err)
		}
	}

	if err := ep.Send(&packet.CONNECT{
		FixedHeader: &packet.FixedHeader{Version: version.byte(), Kind: 0x1},
		ClientID:    "t",
		CleanStart:  !sessionPresent,
		KeepAlive:   30,
	}); err != nil {
		t.Fatalf("send connect: %v", err)
	}
	if _, err := packet.Unpack(version.byte(), peerReader); err != nil {
		t.Fatalf("peer read connect: %v", err)
	}

	writeFromPeer(&packet.CONNACK{
		FixedHeader:    &packet.FixedHeader{Version: version.byte(), Kind: 0x2},
		SessionPresent: sessionPresent,
		ReasonCode:     packet.CodeSuccess,
	})

	pkt, _, err := ep.Recv()
	if err != nil {
		t.Fatalf("recv connack: %v", err)
	}
	if _, ok := pkt.(*packet.CONNACK); !ok {
		t.Fatalf("expected CONNACK, got %T", pkt)
	}
	if !ep.IsConnected() {
		t.Fatal("expected Connected after success CONNACK")
	}
	return ep, peerReader, writeFromPeer
}

func TestConnectConnackTransitionsToConnected(t *testing.T) {
	ep, _, _ := newConnectedPair(t, V311, false)
	defer ep.Close()
}

func TestConnectRefusedReturnsToDisconnected(t *testing.T) {
	ep := New(WithVersion(V311), WithClientID("t"))
	pipe, peer := transporttest.NewPipe()
	ep.Attach(pipe)
	if err := pipe.Connect(context.Background(), ""); err != nil {
		t.Fatalf("pipe connect: %v", err)
	}
	peerReader := bufio.NewReader(peer)

	if err := ep.Send(&packet.CONNECT{
		FixedHeader: &packet.FixedHeader{Version: V311.byte(), Kind: 0x1},
		ClientID:    "t",
		CleanStart:  true,
	}); err != nil {
		t.Fatalf("send connect: %v", err)
	}
	if _, err := packet.Unpack(V311.byte(), peerReader); err != nil {
		t.Fatalf("peer read connect: %v", err)
	}
	if err := (&packet.CONNACK{
		FixedHeader: &packet.FixedHeader{Version: V311.byte(), Kind: 0x2},
		ReasonCode:  packet.Err3NotAuthorized,
	}).Pack(peer); err != nil {
		t.Fatalf("pack connack: %v", err)
	}

	_, _, err := ep.Recv()
	epErr, ok := err.(*Error)
	if !ok || epErr.Kind != ConnectionRefused {
		t.Fatalf("expected ConnectionRefused, got %v", err)
	}
	if ep.IsConnected() {
		t.Fatal("must not be connected after a refused CONNACK")
	}
}

func TestQoS1PublishHandshakeReturnsQuota(t *testing.T) {
	ep, peerReader, writeFromPeer := newConnectedPair(t, V311, false)
	defer ep.Close()

	id, err := ep.AcquirePacketID()
	if err != nil {
		t.Fatalf("acquire packet id: %v", err)
	}
	pub := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{Version: V311.byte(), Kind: 0x3, QoS: 1},
		Message:     packet.Message{TopicName: "a/b", Content: []byte("hi")},
		PacketID:    id,
	}
	if err := ep.Send(pub); err != nil {
		t.Fatalf("send publish: %v", err)
	}

	got, err := packet.Unpack(V311.byte(), peerReader)
	if err != nil {
		t.Fatalf("peer read publish: %v", err)
	}
	gotPub, ok := got.(*packet.PUBLISH)
	if !ok || gotPub.PacketID != id || gotPub.Message.TopicName != "a/b" {
		t.Fatalf("unexpected publish on wire: %+v", got)
	}

	writeFromPeer(&packet.PUBACK{
		FixedHeader: &packet.FixedHeader{Version: V311.byte(), Kind: 0x4},
		PacketID:    id,
		ReasonCode:  packet.CodeSuccess,
	})

	ackPkt, _, err := ep.Recv()
	if err != nil {
		t.Fatalf("recv puback: %v", err)
	}
	if _, ok := ackPkt.(*packet.PUBACK); !ok {
		t.Fatalf("expected PUBACK, got %T", ackPkt)
	}
	if q := ep.store.SendQuota(); q != 65535 {
		t.Fatalf("send quota after PUBACK = %d, want 65535", q)
	}
	if err := ep.ReleasePacketID(id); err != nil {
		t.Fatalf("release after ack should succeed: %v", err)
	}
}

func TestStoredPublishRetransmitsOnSessionPresent(t *testing.T) {
	ep, peerReader, _ := newConnectedPair(t, V311, false)

	id, err := ep.AcquirePacketID()
	if err != nil {
		t.Fatalf("acquire packet id: %v", err)
	}
	pub := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{Version: V311.byte(), Kind: 0x3, QoS: 1},
		Message:     packet.Message{TopicName: "a/b", Content: []byte("hi")},
		PacketID:    id,
	}
	if err := ep.Send(pub); err != nil {
		t.Fatalf("send publish: %v", err)
	}
	if _, err := packet.Unpack(V311.byte(), peerReader); err != nil {
		t.Fatalf("peer read first publish: %v", err)
	}

	// Simulate a reconnect: close this endpoint (the transport dies) but
	// keep its session store, the way a caller would persist it across a
	// real reconnect.
	ep.Close()

	ep2 := New(WithVersion(V311), WithClientID("t"))
	ep2.store = ep.store
	pipe2, peer2 := transporttest.NewPipe()
	ep2.Attach(pipe2)
	if err := pipe2.Connect(context.Background(), ""); err != nil {
		t.Fatalf("pipe connect: %v", err)
	}
	peer2Reader := bufio.NewReader(peer2)

	if err := ep2.Send(&packet.CONNECT{
		FixedHeader: &packet.FixedHeader{Version: V311.byte(), Kind: 0x1},
		ClientID:    "t",
		CleanStart:  false,
	}); err != nil {
		t.Fatalf("send connect: %v", err)
	}
	if _, err := packet.Unpack(V311.byte(), peer2Reader); err != nil {
		t.Fatalf("peer read connect: %v", err)
	}
	if err := (&packet.CONNACK{
		FixedHeader:    &packet.FixedHeader{Version: V311.byte(), Kind: 0x2},
		SessionPresent: true,
		ReasonCode:     packet.CodeSuccess,
	}).Pack(peer2); err != nil {
		t.Fatalf("pack connack: %v", err)
	}
	if _, _, err := ep2.Recv(); err != nil {
		t.Fatalf("recv connack: %v", err)
	}

	retransmitted, err := packet.Unpack(V311.byte(), peer2Reader)
	if err != nil {
		t.Fatalf("peer read retransmit: %v", err)
	}
	rp, ok := retransmitted.(*packet.PUBLISH)
	if !ok || rp.PacketID != id || rp.Dup != 1 || rp.Message.TopicName != "a/b" {
		t.Fatalf("expected DUP retransmit of stored publish, got %+v", retransmitted)
	}
	ep2.Close()
}

func TestInboundTopicAliasRoundTrip(t *testing.T) {
	ep, _, writeFromPeer := newConnectedPair(t, V500, false, WithTopicAliasMaximum(10))
	defer ep.Close()

	pubWithTopic := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{Version: V500.byte(), Kind: 0x3, QoS: 0},
		Message:     packet.Message{TopicName: "a/b"},
		Props:       &packet.Properties{},
	}
	pubWithTopic.Props.SetTopicAlias(7)
	writeFromPeer(pubWithTopic)

	first, extracted, err := ep.Recv()
	if err != nil {
		t.Fatalf("recv first publish: %v", err)
	}
	if extracted {
		t.Fatal("first publish carried its own topic name, should not be reported extracted")
	}
	if first.(*packet.PUBLISH).Message.TopicName != "a/b" {
		t.Fatalf("unexpected topic: %+v", first)
	}

	pubAliasOnly := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{Version: V500.byte(), Kind: 0x3, QoS: 0},
		Message:     packet.Message{},
		Props:       &packet.Properties{},
	}
	pubAliasOnly.Props.SetTopicAlias(7)
	writeFromPeer(pubAliasOnly)

	second, extracted, err := ep.Recv()
	if err != nil {
		t.Fatalf("recv second publish: %v", err)
	}
	if !extracted {
		t.Fatal("second publish resolved its topic from an alias, should be reported extracted")
	}
	if second.(*packet.PUBLISH).Message.TopicName != "a/b" {
		t.Fatalf("alias did not resolve to the expected topic: %+v", second)
	}
}

func TestReleasePacketIDWhileStoredIsRejected(t *testing.T) {
	ep, peerReader, _ := newConnectedPair(t, V311, false)
	defer ep.Close()

	id, err := ep.AcquirePacketID()
	if err != nil {
		t.Fatalf("acquire packet id: %v", err)
	}
	pub := &packet.PUBLISH{
		FixedHeader: &packet.FixedHeader{Version: V311.byte(), Kind: 0x3, QoS: 1},
		Message:     packet.Message{TopicName: "a/b", Content: []byte("hi")},
		PacketID:    id,
	}
	if err := ep.Send(pub); err != nil {
		t.Fatalf("send publish: %v", err)
	}
	if _, err := packet.Unpack(V311.byte(), peerReader); err != nil {
		t.Fatalf("peer read publish: %v", err)
	}

	if err := ep.ReleasePacketID(id); err != ErrPacketIDInUse {
		t.Fatalf("expected ErrPacketIDInUse, got %v", err)
	}
}

func TestPacketIDUniqueAcrossRepeatedAcquires(t *testing.T) {
	ep, _, _ := newConnectedPair(t, V311, false)
	defer ep.Close()

	seen := make(map[uint16]bool)
	for i := 0; i < 50; i++ {
		id, err := ep.AcquirePacketID()
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate packet id %d", id)
		}
		seen[id] = true
	}
}
