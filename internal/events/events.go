// Package events decouples core state changes from outbound FI
// notifications. Core components publish; the dispatcher owns delivery,
// retry, and backoff, so network reachability never affects core
// correctness.
package events

import (
	"log/slog"

	"centralledger/internal/domain"
)

// Publisher is a buffered fan-in of domain events. Publish never
// blocks: when the buffer is full the event is dropped and logged,
// keeping the publishing path non-blocking by contract.
type Publisher struct {
	ch     chan domain.Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{ch: make(chan domain.Event, buffer), logger: logger}
}

func (p *Publisher) Publish(ev domain.Event) {
	select {
	case p.ch <- ev:
	default:
		p.logger.Warn("event buffer full, dropping event",
			"kind", ev.Kind,
			"fi_id", ev.FIID)
	}
}

// Events exposes the consuming side to the dispatcher.
func (p *Publisher) Events() <-chan domain.Event {
	return p.ch
}
