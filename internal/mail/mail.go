// Package mail defines the outbound message transport used by the worker.
package mail

import "context"

// Message is one rendered email ready for delivery.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Body    string
}

// Sender delivers rendered messages. The worker treats a nil Sender as a
// permanent configuration failure for jobs, never a retryable one.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
