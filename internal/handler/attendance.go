package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lunchbook/internal/guestlist"
	"lunchbook/internal/models"
	"lunchbook/internal/storage"
)

type AttendanceHandler struct {
	storage *storage.Storage
	log     zerolog.Logger
}

// ImportReport summarizes one guest list import
type ImportReport struct {
	RunID              string
	Lunch              models.Lunch
	GuestsCreated      int
	AttendancesAdded   int
	AttendancesSkipped int
	NotAttending       int
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(s *storage.Storage, log zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		storage: s,
		log:     log.With().Str("component", "attendance").Logger(),
	}
}

// CreateLunch registers a lunch on the given date
func (h *AttendanceHandler) CreateLunch(ctx context.Context, date time.Time, facebookEvent *string) (models.Lunch, error) {
	lunch := models.Lunch{Date: models.TruncateDate(date), FacebookEvent: facebookEvent}

	err := h.storage.Transaction(ctx, func(repo *storage.Repository) error {
		return repo.CreateLunch(ctx, &lunch)
	})
	if errors.Is(err, storage.ErrUniqueViolation) {
		return models.Lunch{}, fmt.Errorf("%w on %s: %w", ErrDuplicateLunch, lunch.Date.Format(models.DateLayout), err)
	}
	if err != nil {
		return models.Lunch{}, fmt.Errorf("failed to create lunch: %w", err)
	}

	h.log.Info().Int64("lunch_id", lunch.ID).Str("date", lunch.Date.Format(models.DateLayout)).Msg("Lunch created")
	return lunch, nil
}

// ResolveLunch finds the single lunch held for an event in a given year
func (h *AttendanceHandler) ResolveLunch(ctx context.Context, kind models.EventKind, year int) (models.Lunch, error) {
	return resolveLunch(ctx, h.storage.Repository(), kind, year)
}

func resolveLunch(ctx context.Context, repo *storage.Repository, kind models.EventKind, year int) (models.Lunch, error) {
	interval, err := kind.Interval(year)
	if err != nil {
		return models.Lunch{}, err
	}

	lunches, err := repo.LunchesBetween(ctx, interval.From, interval.To)
	if err != nil {
		return models.Lunch{}, fmt.Errorf("failed to look up %s %d lunch: %w", kind, year, err)
	}

	switch len(lunches) {
	case 0:
		return models.Lunch{}, fmt.Errorf("%w for %s %d in %s", ErrLunchNotFound, kind, year, interval)
	case 1:
		return lunches[0], nil
	default:
		return models.Lunch{}, fmt.Errorf("%w for %s %d in %s: %d lunches", ErrAmbiguousLunch, kind, year, interval, len(lunches))
	}
}

// ResolveOrCreateGuest returns the guest with the given Facebook name, creating it on first encounter
func (h *AttendanceHandler) ResolveOrCreateGuest(ctx context.Context, facebookName string) (models.Guest, error) {
	var guest models.Guest
	err := h.storage.Transaction(ctx, func(repo *storage.Repository) error {
		var err error
		guest, _, err = resolveOrCreateGuest(ctx, repo, facebookName)
		return err
	})
	if err != nil {
		return models.Guest{}, err
	}
	return guest, nil
}

func resolveOrCreateGuest(ctx context.Context, repo *storage.Repository, facebookName string) (models.Guest, bool, error) {
	existing, err := repo.GuestByFacebookName(ctx, facebookName)
	if err == nil {
		return *existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Guest{}, false, err
	}

	guest := models.NewGuest(facebookName)
	if err := repo.CreateGuest(ctx, &guest); err != nil {
		return models.Guest{}, false, fmt.Errorf("failed to add guest %q: %w", facebookName, err)
	}
	return guest, true, nil
}

// ImportAttendance records the guests of a lunch from a guest list. Unknown
// guests are created and attending guests are linked to the lunch. Pairs
// that are already recorded are skipped, so re-importing a list is safe.
// Any failure rolls back the whole import.
func (h *AttendanceHandler) ImportAttendance(ctx context.Context, kind models.EventKind, year int, records []guestlist.Record, policy guestlist.Policy) (ImportReport, error) {
	report := ImportReport{RunID: uuid.NewString()}
	log := h.log.With().Str("run_id", report.RunID).Str("event", kind.String()).Int("year", year).Logger()

	err := h.storage.Transaction(ctx, func(repo *storage.Repository) error {
		lunch, err := resolveLunch(ctx, repo, kind, year)
		if err != nil {
			return err
		}
		report.Lunch = lunch
		log.Info().Int64("lunch_id", lunch.ID).Str("policy", policy.String()).Int("rows", len(records)).Msg("Importing guest list")

		for _, record := range records {
			guest, created, err := resolveOrCreateGuest(ctx, repo, record.FacebookName)
			if err != nil {
				return fmt.Errorf("line %d: %w", record.Line, err)
			}
			if created {
				report.GuestsCreated++
				log.Info().Int64("guest_id", guest.ID).Str("first_name", guest.FirstName).Str("last_name", guest.LastName).Msg("Creating new guest")
			}

			if !policy.Attending(record) {
				report.NotAttending++
				log.Info().Str("guest", record.FacebookName).Str("marker", record.Marker).Msg("Guest did not mark attendance")
				continue
			}

			added, err := repo.AddAttendance(ctx, models.Attendance{GuestID: guest.ID, LunchID: lunch.ID})
			if err != nil {
				return fmt.Errorf("line %d: %w", record.Line, err)
			}
			if added {
				report.AttendancesAdded++
				log.Info().Int64("guest_id", guest.ID).Str("guest", guest.String()).Msg("Adding attendance")
			} else {
				report.AttendancesSkipped++
				log.Debug().Int64("guest_id", guest.ID).Msg("Attendance already recorded")
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Import rolled back")
		return ImportReport{}, err
	}

	log.Info().
		Int("guests_created", report.GuestsCreated).
		Int("attendances_added", report.AttendancesAdded).
		Int("attendances_skipped", report.AttendancesSkipped).
		Int("not_attending", report.NotAttending).
		Msg("Import committed")
	return report, nil
}

// ListAttendees returns the lunch for an event and the guests who attended it, ordered by guest ID
func (h *AttendanceHandler) ListAttendees(ctx context.Context, kind models.EventKind, year int) (models.Lunch, []models.Guest, error) {
	repo := h.storage.Repository()
	lunch, err := resolveLunch(ctx, repo, kind, year)
	if err != nil {
		return models.Lunch{}, nil, err
	}

	guests, err := repo.Attendees(ctx, lunch.ID)
	if err != nil {
		return models.Lunch{}, nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	return lunch, guests, nil
}

// RankGuestsByAttendance returns every guest who attended at least once, most frequent first
func (h *AttendanceHandler) RankGuestsByAttendance(ctx context.Context) ([]models.GuestAttendance, error) {
	ranking, err := h.storage.Repository().RankGuests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to rank guests: %w", err)
	}
	return ranking, nil
}

// ListLunches returns all lunches in chronological order
func (h *AttendanceHandler) ListLunches(ctx context.Context) ([]models.Lunch, error) {
	lunches, err := h.storage.Repository().ListLunches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lunches: %w", err)
	}
	return lunches, nil
}

// DeleteAttendances removes all attendances of an event's lunch once the
// operator confirms. A declined confirmation returns ErrCancelled and leaves
// every row in place.
func (h *AttendanceHandler) DeleteAttendances(ctx context.Context, kind models.EventKind, year int, confirmer Confirmer) (int64, error) {
	var deleted int64
	err := h.storage.Transaction(ctx, func(repo *storage.Repository) error {
		lunch, err := resolveLunch(ctx, repo, kind, year)
		if err != nil {
			return err
		}

		n, err := repo.DeleteAttendances(ctx, lunch.ID)
		if err != nil {
			return err
		}

		ok, err := confirmer.Confirm(fmt.Sprintf("Are you sure you want to remove %d attendances?", n))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !ok {
			return ErrCancelled
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	h.log.Info().Str("event", kind.String()).Int("year", year).Int64("deleted", deleted).Msg("Attendances removed")
	return deleted, nil
}
