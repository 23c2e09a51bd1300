package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lunchbook/internal/models"
)

// Queryable represents a database connection that can execute queries.
// Both *sql.DB and *sql.Tx implement this interface.
type Queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository provides data access for lunches, guests and attendances.
type Repository struct {
	q Queryable
}

// NewRepository creates a repository on top of a connection or transaction.
func NewRepository(q Queryable) *Repository {
	return &Repository{q: q}
}

// CreateLunch inserts a new lunch and sets its ID.
func (r *Repository) CreateLunch(ctx context.Context, lunch *models.Lunch) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO lunch (date, facebook_event) VALUES (?, ?)`,
		lunch.Date.Format(models.DateLayout), nullString(lunch.FacebookEvent),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: lunch on %s already exists", ErrUniqueViolation, lunch.Date.Format(models.DateLayout))
		}
		return fmt.Errorf("inserting lunch: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading lunch id: %w", err)
	}
	lunch.ID = id
	return nil
}

// LunchesBetween returns the lunches dated in the half-open range [from, to).
func (r *Repository) LunchesBetween(ctx context.Context, from, to time.Time) ([]models.Lunch, error) {
	return r.queryLunches(ctx, `
		SELECT id, date, facebook_event FROM lunch
		WHERE date >= ? AND date < ?
		ORDER BY date
	`, from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// ListLunches returns every lunch in chronological order.
func (r *Repository) ListLunches(ctx context.Context) ([]models.Lunch, error) {
	return r.queryLunches(ctx, `SELECT id, date, facebook_event FROM lunch ORDER BY date`)
}

func (r *Repository) queryLunches(ctx context.Context, query string, args ...any) ([]models.Lunch, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lunches: %w", err)
	}
	defer rows.Close()

	var lunches []models.Lunch
	for rows.Next() {
		var (
			lunch models.Lunch
			date  string
			event sql.NullString
		)
		if err := rows.Scan(&lunch.ID, &date, &event); err != nil {
			return nil, fmt.Errorf("scanning lunch: %w", err)
		}
		if lunch.Date, err = time.Parse(models.DateLayout, date); err != nil {
			return nil, fmt.Errorf("lunch %d has invalid date %q: %w", lunch.ID, date, err)
		}
		lunch.FacebookEvent = stringPtr(event)
		lunches = append(lunches, lunch)
	}
	return lunches, rows.Err()
}

// GuestByFacebookName looks a guest up by the reconciliation key.
func (r *Repository) GuestByFacebookName(ctx context.Context, name string) (*models.Guest, error) {
	var (
		guest       models.Guest
		nationality sql.NullString
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, facebook_name, nationality
		FROM guest WHERE facebook_name = ?
	`, name).Scan(&guest.ID, &guest.FirstName, &guest.LastName, &guest.FacebookName, &nationality)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: guest %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying guest: %w", err)
	}
	guest.Nationality = stringPtr(nationality)
	return &guest, nil
}

// CreateGuest inserts a new guest and sets its ID.
func (r *Repository) CreateGuest(ctx context.Context, guest *models.Guest) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO guest (first_name, last_name, facebook_name, nationality)
		VALUES (?, ?, ?, ?)
	`, guest.FirstName, guest.LastName, guest.FacebookName, nullString(guest.Nationality))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: guest %q already exists", ErrUniqueViolation, guest.FacebookName)
		}
		return fmt.Errorf("inserting guest: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading guest id: %w", err)
	}
	guest.ID = id
	return nil
}

// AddAttendance links a guest to a lunch. It reports false without error
// when the pair is already recorded.
func (r *Repository) AddAttendance(ctx context.Context, a models.Attendance) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO attendance (guest_id, lunch_id) VALUES (?, ?)
		ON CONFLICT (guest_id, lunch_id) DO NOTHING
	`, a.GuestID, a.LunchID)
	if err != nil {
		return false, fmt.Errorf("inserting attendance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading attendance result: %w", err)
	}
	return n == 1, nil
}

// Attendees returns the guests who attended a lunch, ordered by guest ID.
func (r *Repository) Attendees(ctx context.Context, lunchID int64) ([]models.Guest, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT g.id, g.first_name, g.last_name, g.facebook_name, g.nationality
		FROM attendance a
		JOIN guest g ON g.id = a.guest_id
		WHERE a.lunch_id = ?
		ORDER BY a.guest_id
	`, lunchID)
	if err != nil {
		return nil, fmt.Errorf("querying attendees: %w", err)
	}
	defer rows.Close()

	var guests []models.Guest
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, guest)
	}
	return guests, rows.Err()
}

// DeleteAttendances removes every attendance of a lunch and returns how many were removed.
func (r *Repository) DeleteAttendances(ctx context.Context, lunchID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM attendance WHERE lunch_id = ?`, lunchID)
	if err != nil {
		return 0, fmt.Errorf("deleting attendances: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading delete result: %w", err)
	}
	return n, nil
}

// CountAttendances returns the number of attendance rows, optionally limited to one lunch.
func (r *Repository) CountAttendances(ctx context.Context, lunchID *int64) (int, error) {
	query := `SELECT COUNT(*) FROM attendance`
	var args []any
	if lunchID != nil {
		query += ` WHERE lunch_id = ?`
		args = append(args, *lunchID)
	}

	var n int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting attendances: %w", err)
	}
	return n, nil
}

// RankGuests counts attendances per guest, most frequent first. Ties are
// ordered by first name, then last name, then guest ID.
func (r *Repository) RankGuests(ctx context.Context) ([]models.GuestAttendance, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT g.id, g.first_name, g.last_name, g.facebook_name, g.nationality,
		       COUNT(a.lunch_id) AS attendances
		FROM attendance a
		JOIN guest g ON g.id = a.guest_id
		GROUP BY g.id
		ORDER BY attendances DESC, g.first_name, g.last_name, g.id
	`)
	if err != nil {
		return nil, fmt.Errorf("ranking guests: %w", err)
	}
	defer rows.Close()

	var ranking []models.GuestAttendance
	for rows.Next() {
		var (
			entry       models.GuestAttendance
			nationality sql.NullString
		)
		if err := rows.Scan(
			&entry.Guest.ID, &entry.Guest.FirstName, &entry.Guest.LastName,
			&entry.Guest.FacebookName, &nationality, &entry.Attendances,
		); err != nil {
			return nil, fmt.Errorf("scanning ranking: %w", err)
		}
		entry.Guest.Nationality = stringPtr(nationality)
		ranking = append(ranking, entry)
	}
	return ranking, rows.Err()
}

func scanGuest(rows *sql.Rows) (models.Guest, error) {
	var (
		guest       models.Guest
		nationality sql.NullString
	)
	if err := rows.Scan(&guest.ID, &guest.FirstName, &guest.LastName, &guest.FacebookName, &nationality); err != nil {
		return models.Guest{}, fmt.Errorf("scanning guest: %w", err)
	}
	guest.Nationality = stringPtr(nationality)
	return guest, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
