package session

import "testing"

func TestPacketIDAcquireRelease(t *testing.T) {
	p := NewPacketIDPool()
	id1, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if id1 == 0 {
		t.Fatal("acquired id must be nonzero")
	}
	id2, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}
	p.Release(id1)
	if p.InUse(id1) {
		t.Fatal("id1 should be free after release")
	}
}

func TestPacketIDRegisterRejectsDuplicate(t *testing.T) {
	p := NewPacketIDPool()
	if !p.Register(100) {
		t.Fatal("first register should succeed")
	}
	if p.Register(100) {
		t.Fatal("second register of same id should fail")
	}
}

func TestPacketIDExhaustion(t *testing.T) {
	p := NewPacketIDPool()
	for i := 0; i < maxPacketID; i++ {
		if _, err := p.Acquire(); err != nil {
			t.Fatalf("unexpected exhaustion at %d: %v", i, err)
		}
	}
	if _, err := p.Acquire(); err != ErrExhausted {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestStoredPublishOrderPreserved(t *testing.T) {
	s := NewStore()
	s.StorePublish(StoredPublish{PacketID: 3, Topic: "a"})
	s.StorePublish(StoredPublish{PacketID: 1, Topic: "b"})
	s.StorePublish(StoredPublish{PacketID: 2, Topic: "c"})
	ordered := s.Ordered()
	if len(ordered) != 3 || ordered[0].PacketID != 3 || ordered[1].PacketID != 1 || ordered[2].PacketID != 2 {
		t.Fatalf("order not preserved: %+v", ordered)
	}
}

func TestSendQuotaTracksInFlight(t *testing.T) {
	s := NewStore()
	s.SetPeerReceiveMaximum(2)
	if s.SendQuota() != 2 {
		t.Fatalf("expected quota 2, got %d", s.SendQuota())
	}
	s.StorePublish(StoredPublish{PacketID: 1})
	if s.SendQuota() != 1 {
		t.Fatalf("expected quota 1, got %d", s.SendQuota())
	}
	s.StorePublish(StoredPublish{PacketID: 2})
	if s.SendQuota() != 0 {
		t.Fatalf("expected quota 0, got %d", s.SendQuota())
	}
	s.CompleteOutbound(1)
	if s.SendQuota() != 1 {
		t.Fatalf("expected quota 1 after complete, got %d", s.SendQuota())
	}
}

func TestClearSessionReleasesEverything(t *testing.T) {
	s := NewStore()
	s.StorePublish(StoredPublish{PacketID: 5})
	s.RecordIncoming(7)
	s.ClearSession()
	if s.Len() != 0 {
		t.Fatalf("expected empty log, got %d", s.Len())
	}
	if s.IsIncomingRecorded(7) {
		t.Fatal("incoming record should be cleared")
	}
	if s.PacketIDs.InUse(5) {
		t.Fatal("packet id 5 should be released")
	}
}

func TestOutboundAliasesLRUEviction(t *testing.T) {
	o := NewOutboundAliases(2)
	o.Assign("a")
	o.Assign("b")
	if o.HasCapacity() {
		t.Fatal("expected no capacity left")
	}
	if _, ok := o.Lookup("a"); !ok {
		t.Fatal("a should still be mapped")
	}
	// b is now LRU since a was just touched by Lookup.
	evicted := o.EvictLRUForReuse()
	if _, ok := o.Lookup("b"); ok {
		t.Fatalf("b should have been evicted, got alias %d", evicted)
	}
}

func TestInboundAliasesRejectOverMaximum(t *testing.T) {
	i := NewInboundAliases(5)
	if i.Update(6, "x") {
		t.Fatal("alias exceeding maximum should be rejected")
	}
	if !i.Update(5, "x") {
		t.Fatal("alias at maximum should be accepted")
	}
	topic, ok := i.Lookup(5)
	if !ok || topic != "x" {
		t.Fatalf("lookup mismatch: %q, %v", topic, ok)
	}
}
