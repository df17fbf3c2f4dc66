package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence"
)

var reservationColumns = []string{
	"id",
	"resource_id",
	"start_at",
	"end_at",
	"participant_count",
	"status",
	"recurrence_parent_id",
	"title",
	"created_at",
	"updated_at",
}

// CreateReservations inserts the batch inside one transaction. Parents must
// precede their children in the slice.
func (s *Storage) CreateReservations(ctx context.Context, reservations []persistence.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	insert := s.builder.Insert("reservations").Columns(reservationColumns...)
	for _, r := range reservations {
		if r.ID == "" || !r.Start.Before(r.End) {
			return persistence.ErrConstraintViolation
		}
		var parent any
		if r.RecurrenceParentID != nil {
			parent = *r.RecurrenceParentID
		}
		insert = insert.Values(
			r.ID,
			r.ResourceID,
			formatTime(r.Start),
			formatTime(r.End),
			r.ParticipantCount,
			r.Status,
			parent,
			r.Title,
			formatTime(r.CreatedAt),
			formatTime(r.UpdatedAt),
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: CreateReservations - build insert: %w", err)
	}

	return withRetry(ctx, s.retry, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return mapError(err)
			}
			return nil
		})
	})
}

// GetReservation fetches a reservation by identifier.
func (s *Storage) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	query, args, err := s.builder.Select(reservationColumns...).
		From("reservations").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return persistence.Reservation{}, fmt.Errorf("sqlite: GetReservation - build select: %w", err)
	}

	reservation, err := scanReservation(s.pool.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	return reservation, nil
}

// ListReservations returns matching reservations ordered by start time.
func (s *Storage) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	selectBuilder := s.builder.Select(reservationColumns...).From("reservations")

	if filter.ResourceID != "" {
		selectBuilder = selectBuilder.Where(sq.Eq{"resource_id": filter.ResourceID})
	}
	if filter.ParentID != "" {
		selectBuilder = selectBuilder.Where(sq.Eq{"recurrence_parent_id": filter.ParentID})
	}
	if len(filter.Statuses) > 0 {
		selectBuilder = selectBuilder.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.EndsAfter != nil {
		selectBuilder = selectBuilder.Where(sq.Gt{"end_at": formatTime(*filter.EndsAfter)})
	}
	if filter.StartsBefore != nil {
		selectBuilder = selectBuilder.Where(sq.Lt{"start_at": formatTime(*filter.StartsBefore)})
	}

	query, args, err := selectBuilder.OrderBy("start_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListReservations - build select: %w", err)
	}

	rows, err := s.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return reservations, nil
}

// UpdateReservationStatus sets status on every listed reservation inside one
// transaction. The update only touches rows whose status is in from; unknown
// identifiers or a row in another status roll the whole update back.
func (s *Storage) UpdateReservationStatus(ctx context.Context, ids []string, from []string, status string, updatedAt time.Time) error {
	unique := slices.Compact(slices.Sorted(slices.Values(ids)))
	if len(unique) == 0 {
		return nil
	}

	update := s.builder.Update("reservations").
		Set("status", status).
		Set("updated_at", formatTime(updatedAt)).
		Where(sq.Eq{"id": unique})
	if len(from) > 0 {
		update = update.Where(sq.Eq{"status": from})
	}
	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: UpdateReservationStatus - build update: %w", err)
	}
	countQuery, countArgs, err := s.builder.Select("COUNT(*)").
		From("reservations").
		Where(sq.Eq{"id": unique}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: UpdateReservationStatus - build count: %w", err)
	}

	return withRetry(ctx, s.retry, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return mapError(err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("sqlite: UpdateReservationStatus - rows affected: %w", err)
			}
			if affected == int64(len(unique)) {
				return nil
			}

			var existing int64
			if err := tx.QueryRowContext(ctx, countQuery, countArgs...).Scan(&existing); err != nil {
				return mapError(err)
			}
			if existing != int64(len(unique)) {
				return fmt.Errorf("sqlite: %d of %d reservations missing: %w", int64(len(unique))-existing, len(unique), persistence.ErrNotFound)
			}
			return fmt.Errorf("sqlite: %d of %d reservations changed status: %w", existing-affected, len(unique), persistence.ErrStatusMismatch)
		})
	})
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation                      persistence.Reservation
		start, end, createdAt, updatedAt string
		parent                           sql.NullString
	)
	if err := row.Scan(
		&reservation.ID,
		&reservation.ResourceID,
		&start,
		&end,
		&reservation.ParticipantCount,
		&reservation.Status,
		&parent,
		&reservation.Title,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Reservation{}, err
	}

	if parent.Valid {
		id := parent.String
		reservation.RecurrenceParentID = &id
	}

	var err error
	for _, field := range []struct {
		dst *time.Time
		raw string
	}{
		{&reservation.Start, start},
		{&reservation.End, end},
		{&reservation.CreatedAt, createdAt},
		{&reservation.UpdatedAt, updatedAt},
	} {
		if *field.dst, err = parseTime(field.raw); err != nil {
			return persistence.Reservation{}, err
		}
	}
	return reservation, nil
}
