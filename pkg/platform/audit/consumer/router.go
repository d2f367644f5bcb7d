package consumer

import (
	"context"
	"log/slog"

	"velum/internal/platform/kafka/consumer"
)

// TopicHandler consumes messages from one topic.
type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router fans one consumer group's messages out to per-topic handlers, so
// the clinical, security, and ops topics share a single subscription.
type Router struct {
	handlers map[string]TopicHandler
	fallback TopicHandler
	logger   *slog.Logger
}

// NewRouter constructs a Router. fallback may be nil; messages on unrouted
// topics are then logged and committed.
func NewRouter(logger *slog.Logger, fallback TopicHandler) *Router {
	return &Router{
		handlers: make(map[string]TopicHandler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register binds a topic to its handler. Call before consuming starts; the
// map is read without locking afterwards.
func (r *Router) Register(topic string, handler TopicHandler) {
	r.handlers[topic] = handler
}

// Handle routes by topic. Unrouted messages return nil so the group offset
// advances past them.
func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	if handler, ok := r.handlers[msg.Topic]; ok {
		return handler.Handle(ctx, msg)
	}
	if r.fallback != nil {
		return r.fallback.Handle(ctx, msg)
	}
	r.logger.WarnContext(ctx, "message on unrouted topic dropped",
		"topic", msg.Topic,
		"key", string(msg.Key),
	)
	return nil
}
