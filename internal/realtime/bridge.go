// Package realtime fans cache invalidations out across engine instances.
//
// Every instance runs a Bridge over one pub/sub channel. Local invalidations
// are published as {origin, keys}; messages from other origins are applied
// to the local cache without being republished.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-listing-credits/internal/cache"
)

// maxBatch bounds the keys sent in one message.
const maxBatch = 64

// Message is the wire payload on the invalidation channel.
type Message struct {
	Origin string   `json:"origin"`
	Keys   []string `json:"keys"`
}

// PubSub is the transport a Bridge runs over.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe delivers payloads until ctx is done or close is called.
	Subscribe(ctx context.Context, channel string) (msgs <-chan []byte, close func() error, err error)
}

var bridgeMessages = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "credits_invalidation_bridge_messages_total",
		Help: "Invalidation bridge messages by direction and outcome.",
	},
	[]string{"direction", "outcome"},
)

func init() { prometheus.MustRegister(bridgeMessages) }

// Bridge links a local cache to the shared channel.
type Bridge struct {
	ps      PubSub
	cache   *cache.Cache
	channel string
	origin  string

	mu       sync.Mutex
	applying map[string]int

	out     chan string
	dropped atomic.Int64
}

// NewBridge builds a bridge for cache c publishing as origin on channel.
func NewBridge(ps PubSub, c *cache.Cache, channel, origin string) *Bridge {
	return &Bridge{
		ps:       ps,
		cache:    c,
		channel:  channel,
		origin:   origin,
		applying: make(map[string]int),
		out:      make(chan string, 256),
	}
}

// Run subscribes and relays in both directions until ctx is done. It
// returns ctx.Err() on a clean stop.
func (b *Bridge) Run(ctx context.Context) error {
	unsubscribe := b.cache.AddInvalidationListener(b.onLocal)
	defer unsubscribe()

	msgs, closeSub, err := b.ps.Subscribe(ctx, b.channel)
	if err != nil {
		return err
	}
	defer func() { _ = closeSub() }()

	l := log.Ctx(ctx).With().Str("component", "invalidation_bridge").Str("channel", b.channel).Logger()
	l.Info().Str("origin", b.origin).Msg("invalidation bridge started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.publishLoop(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			l.Info().Int64("dropped", b.dropped.Load()).Msg("invalidation bridge stopped")
			return ctx.Err()
		case raw, ok := <-msgs:
			if !ok {
				wg.Wait()
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("realtime: subscription closed")
			}
			b.apply(ctx, raw)
		}
	}
}

func (b *Bridge) onLocal(key string) {
	b.mu.Lock()
	remote := b.applying[key] > 0
	b.mu.Unlock()
	if remote {
		return
	}
	select {
	case b.out <- key:
	default:
		b.dropped.Add(1)
		bridgeMessages.WithLabelValues("out", "dropped").Inc()
	}
}

func (b *Bridge) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case k := <-b.out:
			keys := []string{k}
		drain:
			for len(keys) < maxBatch {
				select {
				case k := <-b.out:
					keys = append(keys, k)
				default:
					break drain
				}
			}
			b.publish(ctx, keys)
		}
	}
}

func (b *Bridge) publish(ctx context.Context, keys []string) {
	payload, err := json.Marshal(Message{Origin: b.origin, Keys: keys})
	if err != nil {
		return
	}
	if err := b.ps.Publish(ctx, b.channel, payload); err != nil {
		bridgeMessages.WithLabelValues("out", "error").Inc()
		log.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("publish invalidation failed")
		return
	}
	bridgeMessages.WithLabelValues("out", "ok").Inc()
}

func (b *Bridge) apply(ctx context.Context, raw []byte) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		bridgeMessages.WithLabelValues("in", "malformed").Inc()
		log.Ctx(ctx).Warn().Err(err).Msg("malformed invalidation message")
		return
	}
	if m.Origin == b.origin {
		bridgeMessages.WithLabelValues("in", "self").Inc()
		return
	}
	for _, k := range m.Keys {
		b.mu.Lock()
		b.applying[k]++
		b.mu.Unlock()

		b.cache.Invalidate(k)

		b.mu.Lock()
		if b.applying[k]--; b.applying[k] == 0 {
			delete(b.applying, k)
		}
		b.mu.Unlock()
	}
	bridgeMessages.WithLabelValues("in", "ok").Inc()
}
