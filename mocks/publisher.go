package mocks

import (
	"context"
	"sync"
	"testing"
)

// MockEventPublisher records published events for testing purposes
type MockEventPublisher struct {
	mu sync.Mutex
	t  *testing.T

	PublishFunc func(ctx context.Context, event any) error
	Published   []any
}

// NewMockEventPublisher creates a new mock for EventPublisher
func NewMockEventPublisher(t *testing.T) *MockEventPublisher {
	if t == nil {
		panic("missing required argument 't'")
	}

	return &MockEventPublisher{t: t}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event any) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, event); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, event)
	return nil
}

func (m *MockEventPublisher) Events() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.Published...)
}
