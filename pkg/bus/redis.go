package bus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Relay carries raw frames between panel processes on the same device.
// GoRedisRelay implements it with Redis pub/sub.
type Relay interface {
	// Publish sends payload on channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe starts receiving frames on channel. The returned func
	// stops the subscription and closes the frame channel.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error, error)
}

// GoRedisRelay adapts a go-redis client to Relay.
func GoRedisRelay(client redis.UniversalClient) Relay {
	return goRedisRelay{client: client}
}

type goRedisRelay struct {
	client redis.UniversalClient
}

func (r goRedisRelay) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r goRedisRelay) Subscribe(ctx context.Context, channel string) (<-chan []byte, func() error, error) {
	ps := r.client.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so no frame published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 64)
	done := make(chan struct{})
	go forward(ps.Channel(), out, done)

	var once sync.Once
	stop := func() error {
		once.Do(func() { close(done) })
		return ps.Close()
	}
	return out, stop, nil
}

// forward copies pub/sub payloads to out until in closes or done is
// closed. A send never outlives done.
func forward(in <-chan *redis.Message, out chan<- []byte, done <-chan struct{}) {
	defer close(out)
	for {
		select {
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-done:
				return
			}
		case <-done:
			return
		}
	}
}

// envelope tags relayed frames with the bridge that sent them so a bridge
// never re-injects its own traffic.
type envelope struct {
	Origin  string  `json:"origin"`
	Message Message `json:"message"`
}

// RedisBridge joins one hub channel to the same channel in every other
// process bridged through the relay. Local messages are forwarded to the
// relay; relayed messages are published into the hub from the bridge's
// own endpoint, so local contexts see them like any other peer.
type RedisBridge struct {
	hub     *Hub
	relay   Relay
	channel string
	origin  string
	logger  *slog.Logger

	mu       sync.Mutex
	endpoint *Endpoint
	stop     func() error
	wg       sync.WaitGroup
}

// NewRedisBridge creates a bridge for channel. Call Start to begin relaying.
func NewRedisBridge(hub *Hub, relay Relay, channel string) *RedisBridge {
	return &RedisBridge{
		hub:     hub,
		relay:   relay,
		channel: channel,
		origin:  newOrigin(),
		logger:  slog.Default().With("component", "bus.bridge", "channel", channel),
	}
}

// Start subscribes to the relay and to the local channel.
func (b *RedisBridge) Start(ctx context.Context) error {
	frames, stop, err := b.relay.Subscribe(ctx, b.channel)
	if err != nil {
		return err
	}

	ep := b.hub.Open(b.channel)
	ep.Subscribe(func(msg Message) {
		data, err := json.Marshal(envelope{Origin: b.origin, Message: msg})
		if err != nil {
			b.logger.Warn("encode relayed message", "error", err)
			return
		}
		if err := b.relay.Publish(context.Background(), b.channel, data); err != nil {
			b.logger.Warn("relay publish failed", "type", msg.Type, "error", err)
		}
	})

	b.mu.Lock()
	b.endpoint = ep
	b.stop = stop
	b.mu.Unlock()

	b.wg.Add(1)
	go b.receive(ep, frames)
	return nil
}

func (b *RedisBridge) receive(ep *Endpoint, frames <-chan []byte) {
	defer b.wg.Done()
	for data := range frames {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			b.logger.Debug("drop malformed relay frame", "error", err)
			continue
		}
		if env.Origin == b.origin {
			continue
		}
		// Keep draining after the endpoint closes so the relay never
		// blocks on a full frame channel.
		if err := ep.Publish(env.Message); err != nil {
			b.logger.Debug("drop relayed message", "type", env.Message.Type, "error", err)
		}
	}
}

// Close stops relaying and leaves the local channel.
func (b *RedisBridge) Close() error {
	b.mu.Lock()
	ep, stop := b.endpoint, b.stop
	b.endpoint, b.stop = nil, nil
	b.mu.Unlock()

	var err error
	if stop != nil {
		err = stop()
	}
	if ep != nil {
		ep.Close()
	}
	b.wg.Wait()
	return err
}

// Origin returns the identifier stamped on frames sent by this bridge.
func (b *RedisBridge) Origin() string {
	return b.origin
}

func newOrigin() string {
	buf := make([]byte, 8)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
