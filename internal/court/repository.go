package court

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/futsal-booking-backend/internal/db"
	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
)

type Repository interface {
	Create(ctx context.Context, c *Court) error
	GetByID(ctx context.Context, id string) (*Court, error)
	List(ctx context.Context, filter Filter) ([]*Court, int, error)
	Update(ctx context.Context, c *Court) error
	SetImage(ctx context.Context, id string, imagePath, thumbnailPath *string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var courtColumns = []string{
	"c.id", "c.vendor_id", "c.name", "c.location", "c.description", "c.price_cents",
	"c.latitude", "c.longitude", "c.opening_time::text", "c.closing_time::text",
	"c.status", "c.image_path", "c.thumbnail_path", "c.created_at",
}

func scanCourt(row pgx.Row, extra ...any) (*Court, error) {
	var c Court
	var opening, closing *string

	dest := []any{
		&c.ID, &c.VendorID, &c.Name, &c.Location, &c.Description, &c.Price,
		&c.Latitude, &c.Longitude, &opening, &closing,
		&c.Status, &c.ImagePath, &c.ThumbnailPath, &c.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	var err error
	if c.OpeningTime, err = parseOptionalTime(opening); err != nil {
		return nil, err
	}
	if c.ClosingTime, err = parseOptionalTime(closing); err != nil {
		return nil, err
	}
	return &c, nil
}

func parseOptionalTime(s *string) (*daytime.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := daytime.Parse(*s)
	if err != nil {
		return nil, fmt.Errorf("scan court hours: %w", err)
	}
	return &t, nil
}

func optionalTimeArg(t *daytime.Time) any {
	if t == nil {
		return nil
	}
	return t.String()
}

func (r *pgxRepository) Create(ctx context.Context, c *Court) error {
	query, args, err := psql.Insert("public.courts").
		Columns("vendor_id", "name", "location", "description", "price_cents",
			"latitude", "longitude", "opening_time", "closing_time", "status").
		Values(c.VendorID, c.Name, c.Location, c.Description, c.Price,
			c.Latitude, c.Longitude, optionalTimeArg(c.OpeningTime), optionalTimeArg(c.ClosingTime), c.Status).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create court query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.CreatedAt); err != nil {
		return db.Classify(err, "create court failed")
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Court, error) {
	query, args, err := psql.Select(courtColumns...).
		From("public.courts c").
		Where(squirrel.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get court query failed: %w", err)
	}

	c, err := scanCourt(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(err, "get court failed")
	}
	return c, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Court, int, error) {
	query := psql.Select(append(courtColumns, "count(*) OVER() AS total_count")...).
		From("public.courts c")

	if filter.VendorID != "" {
		query = query.Where(squirrel.Eq{"c.vendor_id": filter.VendorID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"c.status": filter.Status})
	}
	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"c.name": kw},
			squirrel.ILike{"c.location": kw},
		})
	}

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("c.created_at DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list courts query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, db.Classify(err, "list courts failed")
	}
	defer rows.Close()

	var courts []*Court
	var total int
	for rows.Next() {
		c, err := scanCourt(rows, &total)
		if err != nil {
			return nil, 0, db.Classify(err, "scan court failed")
		}
		courts = append(courts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Classify(err, "iterate courts failed")
	}

	return courts, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, c *Court) error {
	query, args, err := psql.Update("public.courts").
		Set("name", c.Name).
		Set("location", c.Location).
		Set("description", c.Description).
		Set("price_cents", c.Price).
		Set("latitude", c.Latitude).
		Set("longitude", c.Longitude).
		Set("opening_time", optionalTimeArg(c.OpeningTime)).
		Set("closing_time", optionalTimeArg(c.ClosingTime)).
		Set("status", c.Status).
		Where(squirrel.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update court query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return db.Classify(err, "update court failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) SetImage(ctx context.Context, id string, imagePath, thumbnailPath *string) error {
	query, args, err := psql.Update("public.courts").
		Set("image_path", imagePath).
		Set("thumbnail_path", thumbnailPath).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set court image query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return db.Classify(err, "set court image failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
