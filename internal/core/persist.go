package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatroom-server/internal/store"
)

// PersistRequest is one message handed to storage after it has been fanned out.
type PersistRequest struct {
	ChatID   string
	SenderID string
	Content  string
	SentAt   time.Time
}

// Persister accepts messages for asynchronous storage. Submit must not block.
type Persister interface {
	Submit(req PersistRequest)
}

// BridgeConfig sizes the persistence bridge.
type BridgeConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Bridge writes messages to storage off the dispatch path.
// Failures are logged and counted; they never reach the sender.
type Bridge struct {
	store   store.MessageStore
	queue   chan PersistRequest
	workers int
	timeout time.Duration
	metrics *Metrics
	log     *zerolog.Logger

	// mu guards stopped; Submit holds it shared so nothing is queued after the final drain starts.
	mu      sync.RWMutex
	stopped bool
}

// NewBridge creates a bridge over st. Zero config values fall back to small defaults.
func NewBridge(st store.MessageStore, cfg BridgeConfig, metrics *Metrics, logger *zerolog.Logger) *Bridge {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bridge{
		store:   st,
		queue:   make(chan PersistRequest, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		metrics: metrics,
		log:     logger,
	}
}

// Submit queues req without blocking. A full queue or a stopped bridge
// counts as a failed write.
func (b *Bridge) Submit(req PersistRequest) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		b.reject(req, "persist bridge stopped, message dropped")
		return
	}
	select {
	case b.queue <- req:
	default:
		b.reject(req, "persist queue full, message dropped")
	}
}

func (b *Bridge) reject(req PersistRequest, msg string) {
	b.metrics.persistFailed()
	b.log.Warn().
		Str("chat_id", req.ChatID).
		Str("sender_id", req.SenderID).
		Msg(msg)
}

func (b *Bridge) stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
}

// Run starts the workers and blocks until ctx is done and queued messages are written.
func (b *Bridge) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for range b.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.work(ctx)
		}()
	}
	wg.Wait()
}

func (b *Bridge) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.stop()
			b.drain()
			return
		case req := <-b.queue:
			b.save(context.Background(), req)
		}
	}
}

func (b *Bridge) drain() {
	for {
		select {
		case req := <-b.queue:
			b.save(context.Background(), req)
		default:
			return
		}
	}
}

func (b *Bridge) save(parent context.Context, req PersistRequest) {
	ctx, cancel := context.WithTimeout(parent, b.timeout)
	defer cancel()

	msg := &store.Message{
		ChatID:    req.ChatID,
		SenderID:  req.SenderID,
		Content:   req.Content,
		CreatedAt: req.SentAt,
	}
	if err := b.store.SaveMessage(ctx, msg); err != nil {
		b.metrics.persistFailed()
		b.log.Error().
			Err(err).
			Str("chat_id", req.ChatID).
			Str("sender_id", req.SenderID).
			Msg("persist message failed")
		return
	}
	b.metrics.messagePersisted()
}
