package model

import "time"

// TicketStatus is the closed set of states a ticket moves through.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusAssigned   TicketStatus = "assigned"
	StatusInProgress TicketStatus = "in_progress"
	StatusClosed     TicketStatus = "closed"
)

// IsValid reports whether s is one of the known ticket statuses.
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// Location is an optional geographic hint attached to a ticket.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Ticket mirrors the `tickets` table. Media holds upload URLs and is
// persisted as a JSON column. AIAnalysis carries the joined results of the
// image-analysis service, empty when no media was analyzed.
type Ticket struct {
	ID          uint64
	Title       string
	Description string
	Status      TicketStatus
	Media       []string
	Location    *Location
	AIAnalysis  string
	CreatedBy   uint64
	AssignedTo  *uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TicketView is a ticket joined with the names of the people around it,
// as returned by list and detail endpoints.
type TicketView struct {
	Ticket
	CreatorName   string
	CreatorEmail  string
	AssigneeName  string
	AssigneeEmail string
}
