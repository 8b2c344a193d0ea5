package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/servicedeskai/helpdesk/internal/model"
)

// TicketRepo persists tickets in the 'tickets' table. Media URLs are kept
// in a JSON column; location is a pair of nullable coordinate columns.
type TicketRepo struct{ DB *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{DB: db} }

const ticketViewCols = `t.id, t.title, t.description, t.status, t.media, t.lat, t.lng,
	t.ai_analysis, t.created_by, t.assigned_to, t.created_at, t.updated_at,
	c.name, c.email, COALESCE(a.name,''), COALESCE(a.email,'')`

const ticketViewJoin = ` FROM tickets t
	JOIN users c ON c.id = t.created_by
	LEFT JOIN users a ON a.id = t.assigned_to`

// Create inserts a ticket and returns its ID.
func (r *TicketRepo) Create(ctx context.Context, t model.Ticket) (uint64, error) {
	media, err := json.Marshal(t.Media)
	if err != nil {
		return 0, err
	}
	var lat, lng sql.NullFloat64
	if t.Location != nil {
		lat = sql.NullFloat64{Float64: t.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: t.Location.Lng, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO tickets (title, description, status, media, lat, lng, ai_analysis, created_by) VALUES (?,?,?,?,?,?,?,?)",
		t.Title, t.Description, model.StatusOpen, media, lat, lng, t.AIAnalysis, t.CreatedBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// List returns all tickets, or only those created by createdBy when it is
// non-zero. Standard users pass their own id; service desk and admins see
// everything.
func (r *TicketRepo) List(ctx context.Context, createdBy uint64) ([]model.TicketView, error) {
	q := "SELECT " + ticketViewCols + ticketViewJoin
	args := []interface{}{}
	if createdBy != 0 {
		q += " WHERE t.created_by=?"
		args = append(args, createdBy)
	}
	q += " ORDER BY t.created_at DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TicketView
	for rows.Next() {
		tv, err := scanTicketView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tv)
	}
	return out, rows.Err()
}

// Get fetches a single ticket with creator/assignee details.
func (r *TicketRepo) Get(ctx context.Context, id uint64) (model.TicketView, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+ticketViewCols+ticketViewJoin+" WHERE t.id=? LIMIT 1", id)
	tv, err := scanTicketView(row)
	if err == sql.ErrNoRows {
		return model.TicketView{}, ErrNotFound
	}
	return tv, err
}

// UpdateStatus sets a ticket's status. ErrNotFound when no ticket exists.
func (r *TicketRepo) UpdateStatus(ctx context.Context, id uint64, status model.TicketStatus) error {
	return r.execOnTicket(ctx, id,
		"UPDATE tickets SET status=? WHERE id=?", status, id)
}

// Assign sets the assignee and moves the ticket to in_progress, mirroring
// the service-desk "take this ticket" action.
func (r *TicketRepo) Assign(ctx context.Context, id, assigneeID uint64) error {
	return r.execOnTicket(ctx, id,
		"UPDATE tickets SET assigned_to=?, status=? WHERE id=?", assigneeID, model.StatusInProgress, id)
}

// SetAnalysis stores the AI analysis text produced after creation.
func (r *TicketRepo) SetAnalysis(ctx context.Context, id uint64, analysis string) error {
	return r.execOnTicket(ctx, id,
		"UPDATE tickets SET ai_analysis=? WHERE id=?", analysis, id)
}

// Delete removes a ticket. ErrNotFound when no ticket exists.
func (r *TicketRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tickets WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns ticket counts grouped by status plus the overall total.
func (r *TicketRepo) Stats(ctx context.Context) (map[model.TicketStatus]int64, int64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM tickets GROUP BY status")
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	counts := map[model.TicketStatus]int64{}
	var total int64
	for rows.Next() {
		var st model.TicketStatus
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, 0, err
		}
		counts[st] = n
		total += n
	}
	return counts, total, rows.Err()
}

// Recent returns the newest tickets, capped at limit.
func (r *TicketRepo) Recent(ctx context.Context, limit int) ([]model.TicketView, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+ticketViewCols+ticketViewJoin+" ORDER BY t.created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TicketView
	for rows.Next() {
		tv, err := scanTicketView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tv)
	}
	return out, rows.Err()
}

func (r *TicketRepo) execOnTicket(ctx context.Context, id uint64, q string, args ...interface{}) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM tickets WHERE id=? LIMIT 1", id).Scan(&exists); err == sql.ErrNoRows {
			return ErrNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...interface{}) error }

func scanTicketView(s scanner) (model.TicketView, error) {
	var (
		tv         model.TicketView
		media      []byte
		lat, lng   sql.NullFloat64
		assignedTo sql.NullInt64
	)
	err := s.Scan(&tv.ID, &tv.Title, &tv.Description, &tv.Status, &media, &lat, &lng,
		&tv.AIAnalysis, &tv.CreatedBy, &assignedTo, &tv.CreatedAt, &tv.UpdatedAt,
		&tv.CreatorName, &tv.CreatorEmail, &tv.AssigneeName, &tv.AssigneeEmail)
	if err != nil {
		return model.TicketView{}, err
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &tv.Media); err != nil {
			return model.TicketView{}, err
		}
	}
	if lat.Valid && lng.Valid {
		tv.Location = &model.Location{Lat: lat.Float64, Lng: lng.Float64}
	}
	if assignedTo.Valid {
		id := uint64(assignedTo.Int64)
		tv.AssignedTo = &id
	}
	return tv, nil
}
