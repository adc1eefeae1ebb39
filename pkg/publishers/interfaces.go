package publishers

import "context"

// Publisher sends events to a downstream sink such as a queue, topic or webhook.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
