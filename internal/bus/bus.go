// Package bus carries timer state-change and finished events to the outside
// world, either over NATS JetStream or in-process.
package bus

import "context"

// Bus is the outbound event contract. Subjects are relative names
// ("state_changed", "finished"); implementations apply their own prefix.
type Bus interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}
