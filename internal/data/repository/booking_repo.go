package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

/// TransitionWrite is one atomic booking state change: the conditional row
// update plus the idempotency record and effect rows that belong to it.
type TransitionWrite struct {
	Booking         *entity.Booking // field values to persist; version left alone when nothing changed
	ExpectedVersion int64
	Idempotency     *entity.IdempotencyRecord // nil for actor events
	ResolveKinds    []entity.EffectKind       // in-flight request rows settled by this event
	Effects         []*entity.Effect
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByPaymentReference(ctx context.Context, ref string) (*entity.Booking, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error)

	// CommitTransition applies a TransitionWrite in a single transaction.
	// committed=false means the version check lost a race; duplicate=true
	// means the idempotency key already existed and nothing was written.
	CommitTransition(ctx context.Context, w TransitionWrite) (committed bool, duplicate bool, err error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, reference, customer_id, service_id, event_id, status, payment_status,
		                      payment_reference, amount, currency, start_time, end_time, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.Reference,
		booking.CustomerID,
		booking.ServiceID,
		booking.EventID,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentReference,
		booking.Amount,
		booking.Currency,
		booking.StartTime,
		booking.EndTime,
		booking.Version,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("reference", booking.Reference),
			zap.String("customer_id", booking.CustomerID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.Reference, err)
	}

	return nil
}

const bookingColumns = `id, reference, customer_id, service_id, event_id, status, payment_status,
       payment_reference, amount, currency, start_time, end_time, version, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.CustomerID,
		&booking.ServiceID,
		&booking.EventID,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.PaymentReference,
		&booking.Amount,
		&booking.Currency,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Version,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByPaymentReference(ctx context.Context, ref string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_reference = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by payment reference",
			zap.Error(err),
			zap.String("payment_reference", ref),
		)
		return nil, fmt.Errorf("find booking by payment reference %s: %w", ref, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by customer ID",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by customer ID %s: %w", customerID.String(), err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

func (r *bookingRepository) CountByCustomerID(ctx context.Context, customerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE customer_id = $1`

	var count int64
	err := r.db.QueryRow(ctx, query, customerID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by customer ID",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
		)
		return 0, fmt.Errorf("count bookings by customer ID %s: %w", customerID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) CommitTransition(ctx context.Context, w TransitionWrite) (bool, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, false, fmt.Errorf("begin transition tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if w.Idempotency != nil {
		tag, err := tx.Exec(ctx, `
			INSERT INTO idempotency_records (key, gateway_reference, kind, payload_hash, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (key) DO NOTHING
		`,
			w.Idempotency.Key,
			w.Idempotency.GatewayReference,
			w.Idempotency.Kind,
			w.Idempotency.PayloadHash,
			w.Idempotency.CreatedAt,
		)
		if err != nil {
			return false, false, fmt.Errorf("insert idempotency record %s: %w", w.Idempotency.Key, err)
		}
		if tag.RowsAffected() == 0 {
			// Already applied by an earlier delivery.
			return false, true, nil
		}
	}

	booking := w.Booking
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $2, payment_status = $3, payment_reference = $4, version = $5, updated_at = $6
		WHERE id = $1 AND version = $7
	`,
		booking.ID,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentReference,
		booking.Version,
		booking.UpdatedAt,
		w.ExpectedVersion,
	)
	if err != nil {
		return false, false, fmt.Errorf("conditional update booking %s: %w", booking.ID.String(), err)
	}
	if tag.RowsAffected() == 0 {
		// Version moved under us; the caller reloads and retries.
		return false, false, nil
	}

	for _, kind := range w.ResolveKinds {
		_, err := tx.Exec(ctx, `
			UPDATE effects
			SET status = $3, updated_at = $4
			WHERE booking_id = $1 AND kind = $2 AND status IN ($5, $6)
		`,
			booking.ID,
			kind,
			entity.EffectStatusResolved,
			booking.UpdatedAt,
			entity.EffectStatusPending,
			entity.EffectStatusDispatched,
		)
		if err != nil {
			return false, false, fmt.Errorf("resolve %s effects for booking %s: %w", kind, booking.ID.String(), err)
		}
	}

	if err := insertEffects(ctx, tx, w.Effects); err != nil {
		return false, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, false, fmt.Errorf("commit transition for booking %s: %w", booking.ID.String(), err)
	}

	return true, false, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertEffects(ctx context.Context, db execer, effects []*entity.Effect) error {
	for _, effect := range effects {
		_, err := db.Exec(ctx, `
			INSERT INTO effects (id, booking_id, kind, template, status, attempts, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			effect.ID,
			effect.BookingID,
			effect.Kind,
			effect.Template,
			effect.Status,
			effect.Attempts,
			effect.CreatedAt,
			effect.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert %s effect for booking %s: %w", effect.Kind, effect.BookingID.String(), err)
		}
	}
	return nil
}
