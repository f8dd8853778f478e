package session

import "container/list"

// OutboundAliases is a bijective topic_name <-> alias map bounded by the
// peer's declared topic_alias_maximum, with LRU eviction so that
// auto-mapping can keep substituting aliases once capacity is full.
// Grounded on the container/list-based LRU shape gonzalop/mq's
// topic_alias.go uses for the same bidirectional contract.
type OutboundAliases struct {
	capacity int
	lru      *list.List
	byTopic  map[string]*list.Element
	byAlias  map[uint16]*list.Element
}

type outboundEntry struct {
	topic string
	alias uint16
}

func NewOutboundAliases(capacity int) *OutboundAliases {
	return &OutboundAliases{
		capacity: capacity,
		lru:      list.New(),
		byTopic:  make(map[string]*list.Element),
		byAlias:  make(map[uint16]*list.Element),
	}
}

// SetCapacity updates the bound (e.g. on (re)connect, from the peer's
// freshly negotiated topic_alias_maximum), evicting LRU entries above it.
func (o *OutboundAliases) SetCapacity(n int) {
	o.capacity = n
	for o.lru.Len() > o.capacity {
		o.evictOldest()
	}
}

func (o *OutboundAliases) Capacity() int { return o.capacity }
func (o *OutboundAliases) Len() int      { return o.lru.Len() }

// Lookup returns the alias already mapped to topic, if any, and touches
// its LRU position.
func (o *OutboundAliases) Lookup(topic string) (uint16, bool) {
	el, ok := o.byTopic[topic]
	if !ok {
		return 0, false
	}
	o.lru.MoveToFront(el)
	return el.Value.(*outboundEntry).alias, true
}

// HasCapacity reports whether a new mapping can be added without eviction.
func (o *OutboundAliases) HasCapacity() bool { return o.lru.Len() < o.capacity }

// Assign registers topic under the next unused alias (1..capacity) and
// returns it. Caller must have checked HasCapacity first.
func (o *OutboundAliases) Assign(topic string) uint16 {
	alias := uint16(1)
	for {
		if _, taken := o.byAlias[alias]; !taken {
			break
		}
		alias++
	}
	el := o.lru.PushFront(&outboundEntry{topic: topic, alias: alias})
	o.byTopic[topic] = el
	o.byAlias[alias] = el
	return alias
}

// EvictLRUForReuse removes the least-recently-used mapping and returns
// its alias so the caller can immediately reassign it to a new topic.
func (o *OutboundAliases) EvictLRUForReuse() uint16 {
	back := o.lru.Back()
	entry := back.Value.(*outboundEntry)
	alias := entry.alias
	o.remove(back)
	return alias
}

// AssignAlias registers topic under a specific (typically just-evicted)
// alias value.
func (o *OutboundAliases) AssignAlias(topic string, alias uint16) {
	el := o.lru.PushFront(&outboundEntry{topic: topic, alias: alias})
	o.byTopic[topic] = el
	o.byAlias[alias] = el
}

func (o *OutboundAliases) evictOldest() {
	if back := o.lru.Back(); back != nil {
		o.remove(back)
	}
}

func (o *OutboundAliases) remove(el *list.Element) {
	entry := el.Value.(*outboundEntry)
	delete(o.byTopic, entry.topic)
	delete(o.byAlias, entry.alias)
	o.lru.Remove(el)
}

// Reset clears all mappings; called on every transport reopen since
// topic aliases are not part of MQTT session state (§3 Lifecycle).
func (o *OutboundAliases) Reset() {
	o.lru.Init()
	o.byTopic = make(map[string]*list.Element)
	o.byAlias = make(map[uint16]*list.Element)
}

// InboundAliases maps alias -> topic_name for substitution of incoming
// PUBLISHes that reference an alias instead of a full topic name.
type InboundAliases struct {
	maximum int
	byAlias map[uint16]string
}

func NewInboundAliases(maximum int) *InboundAliases {
	return &InboundAliases{maximum: maximum, byAlias: make(map[uint16]string)}
}

// Update registers/overwrites the mapping for alias. Returns false if
// alias exceeds our declared maximum (caller must treat this as a
// protocol error, per §4.B).
func (i *InboundAliases) Update(alias uint16, topic string) bool {
	if int(alias) == 0 || int(alias) > i.maximum {
		return false
	}
	i.byAlias[alias] = topic
	return true
}

// Lookup resolves alias to a previously registered topic name.
func (i *InboundAliases) Lookup(alias uint16) (string, bool) {
	t, ok := i.byAlias[alias]
	return t, ok
}

func (i *InboundAliases) Reset() {
	i.byAlias = make(map[uint16]string)
}
