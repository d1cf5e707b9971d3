package reminder

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/futsal-booking-backend/internal/booking"
	"github.com/nekogravitycat/futsal-booking-backend/internal/db"
	"github.com/nekogravitycat/futsal-booking-backend/internal/notification"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
)

// Candidate is a settled booking with at least one reminder still owed,
// together with whoever should hear about it.
type Candidate struct {
	Booking   *booking.Booking
	Recipient notification.Recipient
}

type Repository interface {
	// Candidates returns settled bookings dated within [from, to] that still owe a reminder.
	Candidates(ctx context.Context, from, to time.Time) ([]Candidate, error)
	// MarkSent sets the flag for threshold and reports whether this call set it.
	MarkSent(ctx context.Context, bookingID string, t Threshold) (bool, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func (r *pgxRepository) Candidates(ctx context.Context, from, to time.Time) ([]Candidate, error) {
	sql, args, err := psql.Select(
		"b.id", "b.court_id", "c.name", "c.vendor_id", "b.user_id", "b.customer_name",
		"b.date", "b.start_time::text", "b.end_time::text",
		"b.payment_method", "b.payment_status", "b.status",
		"b.reminder_30_sent", "b.reminder_10_sent",
		"u.id", "u.email", "COALESCE(u.display_name, u.email)", "COALESCE(u.push_token, '')",
	).
		From("public.bookings b").
		Join("public.courts c ON c.id = b.court_id").
		// Walk-in bookings are reminded to the vendor.
		Join("public.users u ON u.id = COALESCE(b.user_id, c.vendor_id)").
		Where(squirrel.Eq{"b.status": string(booking.StatusConfirmed)}).
		Where(squirrel.Or{
			squirrel.Eq{"b.payment_status": string(booking.PaymentPaid)},
			squirrel.Eq{"b.payment_method": string(booking.PaymentCash)},
		}).
		Where(squirrel.Or{
			squirrel.Eq{"b.reminder_30_sent": false},
			squirrel.Eq{"b.reminder_10_sent": false},
		}).
		Where("b.date BETWEEN ?::date AND ?::date", daytime.FormatDate(from), daytime.FormatDate(to)).
		Where(squirrel.Eq{"u.is_active": true}).
		OrderBy("b.date", "b.start_time").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Classify(err, "reminder candidates query failed")
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var b booking.Booking
		var rc notification.Recipient
		var start, end string
		if err := rows.Scan(
			&b.ID, &b.CourtID, &b.CourtName, &b.VendorID, &b.UserID, &b.CustomerName,
			&b.Date, &start, &end,
			&b.PaymentMethod, &b.PaymentStatus, &b.Status,
			&b.Reminder30Sent, &b.Reminder10Sent,
			&rc.UserID, &rc.Email, &rc.Name, &rc.PushToken,
		); err != nil {
			return nil, err
		}
		if b.StartTime, err = daytime.Parse(start); err != nil {
			return nil, err
		}
		if b.EndTime, err = daytime.Parse(end); err != nil {
			return nil, err
		}
		out = append(out, Candidate{Booking: &b, Recipient: rc})
	}
	return out, rows.Err()
}

func (r *pgxRepository) MarkSent(ctx context.Context, bookingID string, t Threshold) (bool, error) {
	sql, args, err := psql.Update("public.bookings").
		Set(t.Column, true).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": bookingID, t.Column: false}).
		ToSql()
	if err != nil {
		return false, err
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, db.Classify(err, "mark reminder sent failed")
	}
	return tag.RowsAffected() == 1, nil
}
