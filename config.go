package mqtt

import "time"

// Config is immutable after construction (§3 Configuration); built
// through functional Options mirroring the teacher's Option pattern.
type Config struct {
	Version  Version
	ClientID string

	AutoPubResponse  bool
	AutoPingResponse bool

	PingreqSendInterval       time.Duration // 0 means derive from effective keep-alive
	PingrespRecvTimeout       time.Duration
	ConnectionEstablishTimeout time.Duration
	ShutdownTimeout           time.Duration

	AutoMapTopicAliasSend     bool
	AutoReplaceTopicAliasSend bool

	// OurTopicAliasMaximum bounds the inbound alias map; advertised to
	// the peer via CONNECT's topic_alias_maximum property (V5.0 only).
	OurTopicAliasMaximum uint16

	// OurMaximumPacketSize, 0 means no limit, advertised via CONNECT's
	// maximum_packet_size property (V5.0 only).
	OurMaximumPacketSize uint32

	// OurReceiveMaximum bounds inbound QoS 2 exchanges that have been
	// PUBRECed but not yet released by PUBREL (inbound QoS 1 PUBLISHes
	// are not counted), advertised via CONNECT's receive_maximum
	// property (V5.0 only).
	OurReceiveMaximum uint16
}

type Option func(*Config)

func newConfig(opts ...Option) Config {
	cfg := Config{
		Version:                    V311,
		AutoPubResponse:            true,
		AutoPingResponse:           true,
		PingrespRecvTimeout:        20 * time.Second,
		ConnectionEstablishTimeout: 20 * time.Second,
		ShutdownTimeout:            5 * time.Second,
		OurTopicAliasMaximum:       0,
		OurReceiveMaximum:          65535,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

func WithVersion(v Version) Option {
	return func(c *Config) { c.Version = v }
}

func WithClientID(id string) Option {
	return func(c *Config) { c.ClientID = id }
}

func WithAutoPubResponse(v bool) Option {
	return func(c *Config) { c.AutoPubResponse = v }
}

func WithAutoPingResponse(v bool) Option {
	return func(c *Config) { c.AutoPingResponse = v }
}

func WithPingreqSendInterval(d time.Duration) Option {
	return func(c *Config) { c.PingreqSendInterval = d }
}

func WithPingrespRecvTimeout(d time.Duration) Option {
	return func(c *Config) { c.PingrespRecvTimeout = d }
}

func WithConnectionEstablishTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectionEstablishTimeout = d }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) { c.ShutdownTimeout = d }
}

func WithAutoMapTopicAliasSend(v bool) Option {
	return func(c *Config) { c.AutoMapTopicAliasSend = v }
}

func WithAutoReplaceTopicAliasSend(v bool) Option {
	return func(c *Config) { c.AutoReplaceTopicAliasSend = v }
}

func WithTopicAliasMaximum(n uint16) Option {
	return func(c *Config) { c.OurTopicAliasMaximum = n }
}

func WithMaximumPacketSize(n uint32) Option {
	return func(c *Config) { c.OurMaximumPacketSize = n }
}

func WithReceiveMaximum(n uint16) Option {
	return func(c *Config) { c.OurReceiveMaximum = n }
}
