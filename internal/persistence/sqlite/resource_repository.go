package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/YoussefMachkour/Reservation-room-sub001/internal/persistence"
)

var resourceColumns = []string{
	"id",
	"name",
	"kind",
	"capacity",
	"slot_granularity_minutes",
	"min_advance_minutes",
	"max_duration_minutes",
	"requires_approval",
	"created_at",
	"updated_at",
}

// CreateResource inserts the resource and its operating hours.
func (s *Storage) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" || resource.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	query, args, err := s.builder.Insert("resources").
		Columns(resourceColumns...).
		Values(
			resource.ID,
			resource.Name,
			resource.Kind,
			resource.Capacity,
			resource.SlotGranularityMinutes,
			resource.MinAdvanceMinutes,
			resource.MaxDurationMinutes,
			resource.RequiresApproval,
			formatTime(resource.CreatedAt),
			formatTime(resource.UpdatedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: CreateResource - build insert: %w", err)
	}

	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return mapError(err)
		}
		return s.insertHours(ctx, tx, resource.ID, resource.Hours)
	})
}

// UpdateResource replaces the resource attributes and its operating hours.
// CreatedAt is preserved.
func (s *Storage) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" || resource.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	query, args, err := s.builder.Update("resources").
		Set("name", resource.Name).
		Set("kind", resource.Kind).
		Set("capacity", resource.Capacity).
		Set("slot_granularity_minutes", resource.SlotGranularityMinutes).
		Set("min_advance_minutes", resource.MinAdvanceMinutes).
		Set("max_duration_minutes", resource.MaxDurationMinutes).
		Set("requires_approval", resource.RequiresApproval).
		Set("updated_at", formatTime(resource.UpdatedAt)).
		Where(sq.Eq{"id": resource.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: UpdateResource - build update: %w", err)
	}

	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: UpdateResource - rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		deleteQuery, deleteArgs, err := s.builder.Delete("resource_hours").
			Where(sq.Eq{"resource_id": resource.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("sqlite: UpdateResource - build hours delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
			return mapError(err)
		}
		return s.insertHours(ctx, tx, resource.ID, resource.Hours)
	})
}

// GetResource fetches a resource with its operating hours.
func (s *Storage) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	query, args, err := s.builder.Select(resourceColumns...).
		From("resources").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return persistence.Resource{}, fmt.Errorf("sqlite: GetResource - build select: %w", err)
	}

	resource, err := scanResource(s.pool.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		return persistence.Resource{}, mapError(err)
	}

	hours, err := s.loadHours(ctx, sq.Eq{"resource_id": id})
	if err != nil {
		return persistence.Resource{}, err
	}
	resource.Hours = hours[id]
	return resource, nil
}

// ListResources returns every resource ordered by name, then identifier.
func (s *Storage) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	query, args, err := s.builder.Select(resourceColumns...).
		From("resources").
		OrderBy("name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListResources - build select: %w", err)
	}

	rows, err := s.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	resources := make([]persistence.Resource, 0)
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	hours, err := s.loadHours(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range resources {
		resources[i].Hours = hours[resources[i].ID]
	}
	return resources, nil
}

// DeleteResource removes a resource. Resources referenced by reservations
// cannot be deleted.
func (s *Storage) DeleteResource(ctx context.Context, id string) error {
	query, args, err := s.builder.Delete("resources").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: DeleteResource - build delete: %w", err)
	}

	result, err := s.pool.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: DeleteResource - rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (s *Storage) insertHours(ctx context.Context, tx *sql.Tx, resourceID string, hours []persistence.OperatingHours) error {
	if len(hours) == 0 {
		return nil
	}

	insert := s.builder.Insert("resource_hours").
		Columns("resource_id", "weekday", "open_time", "close_time")
	for _, h := range hours {
		insert = insert.Values(resourceID, int(h.Weekday), h.Open, h.Close)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build hours insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return mapError(err)
	}
	return nil
}

// loadHours returns operating hours grouped by resource id.
func (s *Storage) loadHours(ctx context.Context, where sq.Sqlizer) (map[string][]persistence.OperatingHours, error) {
	selectBuilder := s.builder.Select("resource_id", "weekday", "open_time", "close_time").
		From("resource_hours").
		OrderBy("resource_id ASC", "weekday ASC")
	if where != nil {
		selectBuilder = selectBuilder.Where(where)
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build hours select: %w", err)
	}

	rows, err := s.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := make(map[string][]persistence.OperatingHours)
	for rows.Next() {
		var (
			resourceID string
			weekday    int
			h          persistence.OperatingHours
		)
		if err := rows.Scan(&resourceID, &weekday, &h.Open, &h.Close); err != nil {
			return nil, fmt.Errorf("sqlite: scan hours: %w", err)
		}
		h.Weekday = time.Weekday(weekday)
		result[resourceID] = append(result[resourceID], h)
	}
	return result, mapError(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var (
		resource             persistence.Resource
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&resource.ID,
		&resource.Name,
		&resource.Kind,
		&resource.Capacity,
		&resource.SlotGranularityMinutes,
		&resource.MinAdvanceMinutes,
		&resource.MaxDurationMinutes,
		&resource.RequiresApproval,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Resource{}, err
	}

	var err error
	if resource.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Resource{}, err
	}
	if resource.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Resource{}, err
	}
	return resource, nil
}
