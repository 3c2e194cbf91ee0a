package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"frontdesk-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// ListGroups retrieves all appointment groups for the board
func (s *Store) ListGroups(ctx context.Context) ([]models.AppointmentGroup, error) {
	var groups []models.AppointmentGroup
	err := s.db.SelectContext(ctx, &groups,
		"SELECT * FROM appointment_groups ORDER BY start_time, id")
	return groups, err
}

// GetGroupByID retrieves an appointment group by ID
func (s *Store) GetGroupByID(ctx context.Context, id string) (*models.AppointmentGroup, error) {
	var group models.AppointmentGroup
	err := s.db.GetContext(ctx, &group, "SELECT * FROM appointment_groups WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetGroupsByIDs retrieves multiple appointment groups by ID
func (s *Store) GetGroupsByIDs(ctx context.Context, ids []string) ([]models.AppointmentGroup, error) {
	if len(ids) == 0 {
		return []models.AppointmentGroup{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM appointment_groups WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var groups []models.AppointmentGroup
	err = s.db.SelectContext(ctx, &groups, query, args...)
	return groups, err
}

// UpdateGroupStatus persists a status transition
func (s *Store) UpdateGroupStatus(ctx context.Context, groupID string, status models.GroupStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE appointment_groups SET status = $1, updated_at = NOW() WHERE id = $2",
		status, groupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrGroupNotFound
	}
	return nil
}

// CompleteGroups marks every group in the set as COMPLETED
func (s *Store) CompleteGroups(ctx context.Context, groupIDs []string) error {
	if len(groupIDs) == 0 {
		return models.ErrEmptyGroupSet
	}

	query, args, err := sqlx.In(
		"UPDATE appointment_groups SET status = ?, updated_at = NOW() WHERE id IN (?)",
		models.StatusCompleted, groupIDs)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// CreateWalkIn inserts a new walk-in appointment group together with its
// initial service line items.
func (s *Store) CreateWalkIn(ctx context.Context, group *models.AppointmentGroup, services []models.ServiceLineItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO appointment_groups
			(id, client_id, client_name, status, service_names, total_price, total_duration_minutes, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	row := tx.QueryRowxContext(ctx, query,
		group.ID, group.ClientID, group.ClientName, group.Status,
		group.ServiceNames, group.TotalPrice, group.TotalDurationMinutes, group.StartTime)
	if err := row.Scan(&group.CreatedAt, &group.UpdatedAt); err != nil {
		return err
	}

	for _, svc := range services {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_services (id, group_id, name, price, duration_minutes, professional_name)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			svc.ID, group.ID, svc.Name, svc.Price, svc.DurationMinutes, svc.ProfessionalName); err != nil {
			return fmt.Errorf("failed to insert walk-in service: %w", err)
		}
	}

	return tx.Commit()
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
