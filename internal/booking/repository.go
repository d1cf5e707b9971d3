package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/futsal-booking-backend/internal/db"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
)

// Transition describes one guarded status change applied as a single UPDATE.
type Transition struct {
	// Exactly one of ID or TransactionUUID selects the row.
	ID              string
	TransactionUUID string

	From []Status
	To   Status

	// Optional payment guards and effects.
	PaymentNot    PaymentStatus
	RequireSettle bool // Cash, or Gateway already Paid
	SetPayment    PaymentStatus
}

// Reschedule moves a booking to a new slot while it is still in one of From.
type Reschedule struct {
	ID        string
	From      []Status
	Date      time.Time
	StartTime daytime.Time
	EndTime   daytime.Time
	Notes     *string
}

type Repository interface {
	// CreateIfAvailable inserts b unless an active booking overlaps it.
	CreateIfAvailable(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	GetByTransactionUUID(ctx context.Context, txn string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	HasOverlap(ctx context.Context, courtID string, date time.Time, start, end daytime.Time, excludeID string) (bool, error)
	BookedSlots(ctx context.Context, courtID string, date time.Time) ([]Slot, error)

	// Reschedule returns applied=false when the booking left the From statuses.
	Reschedule(ctx context.Context, r Reschedule) (*Booking, bool, error)

	// Apply returns applied=false when the guard matched no row.
	Apply(ctx context.Context, t Transition) (*Booking, bool, error)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"b.id", "b.transaction_uuid", "b.court_id", "c.name", "c.vendor_id",
	"b.user_id", "b.customer_name", "b.customer_phone", "b.created_by",
	"b.date", "b.start_time::text", "b.end_time::text", "b.price_cents",
	"b.payment_method", "b.payment_status", "b.status", "b.notes",
	"b.reminder_30_sent", "b.reminder_10_sent", "b.created_at", "b.updated_at",
}

const courtJoin = "public.courts c ON c.id = b.court_id"

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	var start, end string

	dest := []any{
		&b.ID, &b.TransactionUUID, &b.CourtID, &b.CourtName, &b.VendorID,
		&b.UserID, &b.CustomerName, &b.CustomerPhone, &b.CreatedBy,
		&b.Date, &start, &end, &b.Price,
		&b.PaymentMethod, &b.PaymentStatus, &b.Status, &b.Notes,
		&b.Reminder30Sent, &b.Reminder10Sent, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	var err error
	if b.StartTime, err = daytime.Parse(start); err != nil {
		return nil, err
	}
	if b.EndTime, err = daytime.Parse(end); err != nil {
		return nil, err
	}
	return &b, nil
}

// activeOverlapPredicate is the SQL form of Conflicts.
func activeOverlapPredicate(courtID string, date time.Time, start, end daytime.Time) squirrel.Sqlizer {
	return squirrel.And{
		squirrel.Eq{"b.court_id": courtID},
		squirrel.Eq{"b.date": daytime.FormatDate(date)},
		squirrel.NotEq{"b.status": statusArgs(releasedStatuses)},
		squirrel.Expr("b.start_time < ?::time", end.String()),
		squirrel.Expr("?::time < b.end_time", start.String()),
	}
}

func statusArgs(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// slotLockKey serializes writers per court and day.
func slotLockKey(courtID string, date time.Time) string {
	return courtID + "/" + daytime.FormatDate(date)
}

func lockSlotDay(ctx context.Context, tx pgx.Tx, courtID string, date time.Time) error {
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", slotLockKey(courtID, date))
	return err
}

func overlapExists(ctx context.Context, q querier, courtID string, date time.Time, start, end daytime.Time, excludeID string) (bool, error) {
	sub := psql.Select("1").
		From("public.bookings b").
		Where(activeOverlapPredicate(courtID, date, start, end))
	if excludeID != "" {
		sub = sub.Where(squirrel.NotEq{"b.id": excludeID})
	}

	sql, args, err := sub.ToSql()
	if err != nil {
		return false, fmt.Errorf("build overlap query failed: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS ("+sql+")", args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func mapWriteError(err error, msg string) error {
	switch {
	case db.IsExclusionViolation(err):
		return ErrTimeConflict
	case db.IsUniqueViolation(err):
		return ErrDuplicateTransaction
	}
	return db.Classify(err, msg)
}

func (r *pgxRepository) CreateIfAvailable(ctx context.Context, b *Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return db.Classify(err, "begin create booking")
	}
	defer tx.Rollback(ctx)

	if err := lockSlotDay(ctx, tx, b.CourtID, b.Date); err != nil {
		return db.Classify(err, "lock booking slot")
	}

	taken, err := overlapExists(ctx, tx, b.CourtID, b.Date, b.StartTime, b.EndTime, "")
	if err != nil {
		return db.Classify(err, "check booking overlap")
	}
	if taken {
		return ErrTimeConflict
	}

	query, args, err := psql.Insert("public.bookings").
		Columns("transaction_uuid", "court_id", "user_id", "customer_name", "customer_phone", "created_by",
			"date", "start_time", "end_time", "price_cents", "payment_method", "payment_status", "status", "notes").
		Values(b.TransactionUUID, b.CourtID, b.UserID, b.CustomerName, b.CustomerPhone, b.CreatedBy,
			daytime.FormatDate(b.Date), b.StartTime.String(), b.EndTime.String(), b.Price,
			b.PaymentMethod, b.PaymentStatus, b.Status, b.Notes).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return mapWriteError(err, "create booking failed")
	}

	if err := tx.Commit(ctx); err != nil {
		return mapWriteError(err, "commit booking failed")
	}
	return nil
}

func (r *pgxRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Join(courtJoin).
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(err, "get booking failed")
	}
	return b, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, squirrel.Eq{"b.id": id})
}

func (r *pgxRepository) GetByTransactionUUID(ctx context.Context, txn string) (*Booking, error) {
	if uuid.Validate(txn) != nil {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, squirrel.Eq{"b.transaction_uuid": txn})
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := psql.Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings b").
		Join(courtJoin)

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.VendorID != "" {
		query = query.Where(squirrel.Eq{"c.vendor_id": filter.VendorID})
	}
	if filter.CourtID != "" {
		query = query.Where(squirrel.Eq{"b.court_id": filter.CourtID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}
	if filter.Date != nil {
		query = query.Where(squirrel.Eq{"b.date": daytime.FormatDate(*filter.Date)})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("b.date DESC", "b.start_time DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.Classify(err, "list bookings failed")
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, db.Classify(err, "scan booking failed")
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify(err, "iterate bookings failed")
	}

	return bookings, total, nil
}

func (r *pgxRepository) HasOverlap(ctx context.Context, courtID string, date time.Time, start, end daytime.Time, excludeID string) (bool, error) {
	exists, err := overlapExists(ctx, r.pool, courtID, date, start, end, excludeID)
	if err != nil {
		return false, db.Classify(err, "check overlap failed")
	}
	return exists, nil
}

func (r *pgxRepository) BookedSlots(ctx context.Context, courtID string, date time.Time) ([]Slot, error) {
	// The whole day as the candidate interval selects every active booking.
	query, args, err := psql.Select("b.start_time::text", "b.end_time::text", "b.status").
		From("public.bookings b").
		Where(activeOverlapPredicate(courtID, date, 0, EndOfDay)).
		OrderBy("b.start_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build booked slots query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(err, "list booked slots failed")
	}
	defer rows.Close()

	slots := []Slot{}
	for rows.Next() {
		var start, end string
		var s Slot
		if err := rows.Scan(&start, &end, &s.Status); err != nil {
			return nil, db.Classify(err, "scan booked slot failed")
		}
		if s.StartTime, err = daytime.Parse(start); err != nil {
			return nil, err
		}
		if s.EndTime, err = daytime.Parse(end); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, db.Classify(rows.Err(), "iterate booked slots failed")
}

// returningBooking wraps an UPDATE so the changed row comes back joined with its court.
func returningBooking(ctx context.Context, q querier, update squirrel.UpdateBuilder) (*Booking, bool, error) {
	sql, args, err := update.Suffix("RETURNING *").ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build booking update failed: %w", err)
	}
	full := "WITH b AS (" + sql + ") SELECT " + strings.Join(bookingColumns, ", ") + " FROM b JOIN " + courtJoin

	b, err := scanBooking(q.QueryRow(ctx, full, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, mapWriteError(err, "update booking failed")
	}
	return b, true, nil
}

func (r *pgxRepository) Reschedule(ctx context.Context, rs Reschedule) (*Booking, bool, error) {
	current, err := r.GetByID(ctx, rs.ID)
	if err != nil {
		return nil, false, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, db.Classify(err, "begin reschedule")
	}
	defer tx.Rollback(ctx)

	if err := lockSlotDay(ctx, tx, current.CourtID, rs.Date); err != nil {
		return nil, false, db.Classify(err, "lock booking slot")
	}

	taken, err := overlapExists(ctx, tx, current.CourtID, rs.Date, rs.StartTime, rs.EndTime, rs.ID)
	if err != nil {
		return nil, false, db.Classify(err, "check booking overlap")
	}
	if taken {
		return nil, false, ErrTimeConflict
	}

	update := psql.Update("public.bookings").
		Set("date", daytime.FormatDate(rs.Date)).
		Set("start_time", rs.StartTime.String()).
		Set("end_time", rs.EndTime.String()).
		Set("notes", rs.Notes).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": rs.ID, "status": statusArgs(rs.From)})

	b, applied, err := returningBooking(ctx, tx, update)
	if err != nil || !applied {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, mapWriteError(err, "commit reschedule failed")
	}
	return b, true, nil
}

func (r *pgxRepository) Apply(ctx context.Context, t Transition) (*Booking, bool, error) {
	update := psql.Update("public.bookings").
		Set("status", t.To).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"status": statusArgs(t.From)})

	switch {
	case t.ID != "":
		if uuid.Validate(t.ID) != nil {
			return nil, false, nil
		}
		update = update.Where(squirrel.Eq{"id": t.ID})
	case t.TransactionUUID != "":
		if uuid.Validate(t.TransactionUUID) != nil {
			return nil, false, nil
		}
		update = update.Where(squirrel.Eq{"transaction_uuid": t.TransactionUUID})
	default:
		return nil, false, errors.New("transition needs an id or transaction uuid")
	}

	if t.PaymentNot != "" {
		update = update.Where(squirrel.NotEq{"payment_status": t.PaymentNot})
	}
	if t.RequireSettle {
		update = update.Where(squirrel.Or{
			squirrel.Eq{"payment_method": PaymentCash},
			squirrel.Eq{"payment_status": PaymentPaid},
		})
	}
	if t.SetPayment != "" {
		update = update.Set("payment_status", t.SetPayment)
	}

	return returningBooking(ctx, r.pool, update)
}
