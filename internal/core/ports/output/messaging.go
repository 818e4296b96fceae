package ports

import "github.com/camthink-ai/AIToolStack/internal/core/domain"

// AckPublisher delivers acknowledgements to a device's response topic.
type AckPublisher interface {
	PublishAck(deviceID string, ack domain.Ack) error
}

// Notifier hands a committed update event to the viewer fan-out. Delivery
// is fire-and-forget: a failed or dropped event never un-does the write.
type Notifier interface {
	Notify(event domain.UpdateEvent)
}
