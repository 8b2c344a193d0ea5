// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketCreatedEvent is published when a ticket is successfully created.
// It carries enough for downstream consumers to log or notify the service
// desk without querying the primary database.
type TicketCreatedEvent struct {
	TicketID   uint64 `json:"ticket_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	CreatedBy  uint64 `json:"created_by"`
	MediaCount int    `json:"media_count"`
	CreatedAt  string `json:"created_at"`
}
