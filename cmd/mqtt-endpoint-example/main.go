// Command mqtt-endpoint-example drives an Endpoint against a live broker
// over plain TCP: connect, subscribe, publish on a tick, print everything
// received, and shut down cleanly on signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/golang-io/mqtt-endpoint"
	"github.com/golang-io/mqtt-endpoint/packet"
	"github.com/golang-io/mqtt-endpoint/transport"
	"golang.org/x/sync/errgroup"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:1883", "broker address")
	topic := flag.String("topic", "mqtt-endpoint-example", "topic to subscribe and publish to")
	clientID := flag.String("client-id", "mqtt-endpoint-example", "MQTT client identifier")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	ep := mqtt.New(
		mqtt.WithClientID(*clientID),
		mqtt.WithVersion(mqtt.V500),
	)
	tcp := &transport.TCP{}
	ep.Attach(tcp)

	if err := tcp.Connect(ctx, *addr); err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	if err := ep.Send(&packet.CONNECT{
		FixedHeader: &packet.FixedHeader{Version: packet.VERSION500, Kind: 0x1},
		ClientID:    *clientID,
		CleanStart:  true,
		KeepAlive:   30,
	}); err != nil {
		log.Fatalf("send connect: %v", err)
	}

	group.Go(func() error {
		for {
			pkt, extracted, err := ep.Recv()
			if err != nil {
				return err
			}
			switch p := pkt.(type) {
			case *packet.CONNACK:
				log.Printf("connack: reason=%v session_present=%v", p.ReasonCode, p.SessionPresent)
				id, err := ep.AcquirePacketID()
				if err != nil {
					return err
				}
				sub := &packet.SUBSCRIBE{
					FixedHeader:   &packet.FixedHeader{Version: packet.VERSION500, Kind: 0x8, QoS: 1},
					PacketID:      id,
					Subscriptions: []packet.Subscription{{TopicFilter: *topic, MaximumQoS: 1}},
				}
				if err := ep.Send(sub); err != nil {
					return err
				}
			case *packet.PUBLISH:
				log.Printf("publish: topic=%s extracted=%v payload=%s", p.Message.TopicName, extracted, p.Message.Content)
			default:
				log.Printf("recv: %T", p)
			}
		}
	})

	group.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if !ep.IsConnected() {
					continue
				}
				id, err := ep.AcquirePacketID()
				if err != nil {
					log.Printf("acquire packet id: %v", err)
					continue
				}
				pub := &packet.PUBLISH{
					FixedHeader: &packet.FixedHeader{Version: packet.VERSION500, Kind: 0x3, QoS: 1},
					Message: packet.Message{
						TopicName: *topic,
						Content:   []byte(time.Now().Format(time.RFC3339)),
					},
					PacketID: id,
				}
				if err := ep.Send(pub); err != nil {
					log.Printf("publish: %v", err)
				}
			}
		}
	})

	group.Go(func() error {
		// Closing the endpoint is what unblocks the Recv loop above.
		defer ep.Close()
		defer cancel()
		sign := make(chan os.Signal, 1)
		signal.Notify(sign, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-sign:
			return fmt.Errorf("got signal: %s", sig)
		}
	})

	if err := group.Wait(); err != nil {
		log.Printf("shutting down: %v", err)
	}
	if err := ep.Close(); err != nil {
		log.Printf("close: %v", err)
	}
}
