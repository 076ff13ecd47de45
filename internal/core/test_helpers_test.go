package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/chatroom-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

type recordingPersister struct {
	mu   sync.Mutex
	reqs []PersistRequest
}

func (p *recordingPersister) Submit(req PersistRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqs = append(p.reqs, req)
}

func (p *recordingPersister) requests() []PersistRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PersistRequest(nil), p.reqs...)
}

type fakeMessageStore struct {
	mu      sync.Mutex
	saved   []*store.Message
	err     error
	release chan struct{}
}

func (s *fakeMessageStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, msg)
	return nil
}

func (s *fakeMessageStore) ListMessages(context.Context, string, int, int) ([]*store.Message, error) {
	return nil, nil
}

func (s *fakeMessageStore) CountMessages(context.Context, string) (int, error) {
	return 0, nil
}

func (s *fakeMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}
