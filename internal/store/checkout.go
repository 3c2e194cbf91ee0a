package store

import (
	"context"
	"database/sql"
	"fmt"

	"frontdesk-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// ListServicesForGroups retrieves all service line items for a group id
// set, ordered for stable session rendering.
func (s *Store) ListServicesForGroups(ctx context.Context, groupIDs []string) ([]models.ServiceLineItem, error) {
	if len(groupIDs) == 0 {
		return []models.ServiceLineItem{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT * FROM group_services WHERE group_id IN (?) ORDER BY group_id, id", groupIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var services []models.ServiceLineItem
	err = s.db.SelectContext(ctx, &services, query, args...)
	return services, err
}

// FetchCheckoutSession builds the merged checkout session for exactly the
// given group id set. The single-client invariant is enforced here:
// merging groups that belong to different clients fails with
// models.ErrMixedClients.
func (s *Store) FetchCheckoutSession(ctx context.Context, groupIDs []string) (*models.CheckoutSession, error) {
	if len(groupIDs) == 0 {
		return nil, models.ErrEmptyGroupSet
	}

	groups, err := s.GetGroupsByIDs(ctx, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}
	if len(groups) != len(groupIDs) {
		return nil, models.ErrGroupNotFound
	}

	clientID := groups[0].ClientID
	clientName := groups[0].ClientName
	for _, g := range groups[1:] {
		if g.ClientID != clientID {
			return nil, models.ErrMixedClients
		}
	}

	services, err := s.ListServicesForGroups(ctx, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch services: %w", err)
	}

	return &models.CheckoutSession{
		GroupIDs:   append([]string(nil), groupIDs...),
		ClientID:   clientID,
		ClientName: clientName,
		Services:   services,
	}, nil
}

// AddServices appends service line items to a group and refreshes the
// group's derived aggregate columns.
func (s *Store) AddServices(ctx context.Context, groupID string, services []models.ServiceLineItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO group_services (id, group_id, name, price, duration_minutes, professional_name)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, svc := range services {
		if _, err := tx.ExecContext(ctx, query,
			svc.ID, groupID, svc.Name, svc.Price, svc.DurationMinutes, svc.ProfessionalName); err != nil {
			return fmt.Errorf("failed to insert service: %w", err)
		}
	}

	if err := refreshGroupAggregates(ctx, tx, groupID); err != nil {
		return err
	}

	return tx.Commit()
}

// RemoveService deletes one service line item from a group and refreshes
// the group's derived aggregate columns.
func (s *Store) RemoveService(ctx context.Context, groupID, serviceID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM group_services WHERE id = $1 AND group_id = $2", serviceID, groupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrServiceNotFound
	}

	if err := refreshGroupAggregates(ctx, tx, groupID); err != nil {
		return err
	}

	return tx.Commit()
}

// refreshGroupAggregates recomputes the denormalized summary columns on
// appointment_groups from the group's line items. These columns are only
// authoritative as last known values; the session view never reads them.
func refreshGroupAggregates(ctx context.Context, tx *sqlx.Tx, groupID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE appointment_groups g SET
			service_names = COALESCE((
				SELECT string_agg(name, ', ' ORDER BY id) FROM group_services WHERE group_id = g.id), ''),
			total_price = COALESCE((
				SELECT SUM(price) FROM group_services WHERE group_id = g.id), 0),
			total_duration_minutes = COALESCE((
				SELECT SUM(duration_minutes) FROM group_services WHERE group_id = g.id), 0),
			updated_at = NOW()
		WHERE g.id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("failed to refresh group aggregates: %w", err)
	}
	return nil
}

// CreatePayment inserts a payment row
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, group_ids, subtotal, discount_amount, tip_amount, total_amount, payment_method, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	row := s.db.QueryRowxContext(ctx, query,
		payment.ID, payment.GroupIDs, payment.Subtotal, payment.DiscountAmount,
		payment.TipAmount, payment.TotalAmount, payment.PaymentMethod, payment.IdempotencyKey)
	return row.Scan(&payment.CreatedAt)
}

// CreatePaymentProduct inserts a retail add-on sold with a payment
func (s *Store) CreatePaymentProduct(ctx context.Context, product *models.PaymentProduct) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_products (id, payment_id, name, price, quantity)
		VALUES ($1, $2, $3, $4, $5)`,
		product.ID, product.PaymentID, product.Name, product.Price, product.Quantity)
	return err
}

// GetPaymentByIdempotencyKey retrieves a payment by idempotency key
func (s *Store) GetPaymentByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
