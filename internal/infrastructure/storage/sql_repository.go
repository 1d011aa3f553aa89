package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"CameraUpdates/internal/domain"
	"CameraUpdates/internal/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	// DefaultDSN is the embedded database used when nothing is configured.
	DefaultDSN = "file:cameraupdates.db"

	table      = "camera_updates"
	dateLayout = "2006-01-02"
)

// ErrUnsupportedDriver is returned by Open for unknown driver names.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

var columns = []string{
	"id", "brand", "type", "title", "update_date", "version", "description",
	"features", "download_link", "image_url", "source_url", "source_name",
	"priority", "priority_rank", "category",
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS camera_updates (
		id            TEXT PRIMARY KEY,
		brand         TEXT NOT NULL,
		type          TEXT NOT NULL,
		title         TEXT NOT NULL,
		update_date   TEXT NOT NULL,
		version       TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL,
		features      TEXT NOT NULL DEFAULT '[]',
		download_link TEXT NOT NULL DEFAULT '',
		image_url     TEXT NOT NULL DEFAULT '',
		source_url    TEXT NOT NULL DEFAULT '',
		source_name   TEXT NOT NULL DEFAULT '',
		priority      TEXT NOT NULL DEFAULT 'normal',
		priority_rank INTEGER NOT NULL DEFAULT 0,
		category      TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS camera_updates_brand_date ON camera_updates (brand, update_date)`,
}

// SQLRepository persists camera updates through database/sql; queries are
// built with squirrel so SQLite and Postgres share one code path.
type SQLRepository struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

var _ ports.UpdateRepository = (*SQLRepository)(nil)

// NewSQLRepository wires a sql.DB with the driver's placeholder format.
func NewSQLRepository(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLRepository {
	return &SQLRepository{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(placeholder),
		now: time.Now,
	}
}

// Open connects to driver (sqlite or pgx) and migrates the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverSQLite, "":
		driver, placeholder = DriverSQLite, sq.Question
		if dsn == "" {
			dsn = DefaultDSN
		}
	case DriverPostgres, "postgres":
		driver, placeholder = DriverPostgres, sq.Dollar
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	repo := NewSQLRepository(db, placeholder)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Migrate creates the table and index when absent.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// Upsert inserts unknown ids, rewrites stored records whose tracked fields
// changed and skips the rest, all in one transaction.
func (r *SQLRepository) Upsert(ctx context.Context, updates []domain.CameraUpdate) (ports.UpsertStats, error) {
	var stats ports.UpsertStats
	if r.db == nil || len(updates) == 0 {
		return stats, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stamp := r.now().UTC().Format(time.RFC3339)
	seen := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		if _, dup := seen[u.ID]; dup || u.ID == "" {
			stats.Skipped++
			continue
		}
		seen[u.ID] = struct{}{}

		existing, found, err := r.get(ctx, tx, u.ID)
		if err != nil {
			return ports.UpsertStats{}, err
		}

		switch {
		case !found:
			if err := r.insert(ctx, tx, u, stamp); err != nil {
				return ports.UpsertStats{}, err
			}
			stats.Inserted++
		case Changed(existing, u):
			if err := r.update(ctx, tx, u, stamp); err != nil {
				return ports.UpsertStats{}, err
			}
			stats.Updated++
		default:
			stats.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return ports.UpsertStats{}, fmt.Errorf("commit upsert: %w", err)
	}
	return stats, nil
}

// Changed compares the tracked fields; feature order is ignored.
func Changed(stored, incoming domain.CameraUpdate) bool {
	return stored.Title != incoming.Title ||
		stored.Description != incoming.Description ||
		stored.Version != incoming.Version ||
		normalPriority(stored.Priority) != normalPriority(incoming.Priority) ||
		!domain.Day(stored.Date).Equal(domain.Day(incoming.Date)) ||
		!sameFeatures(stored.Features, incoming.Features)
}

func normalPriority(p domain.Priority) domain.Priority {
	if p == "" {
		return domain.PriorityNormal
	}
	return p
}

func sameFeatures(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := slices.Clone(a), slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}

func (r *SQLRepository) get(ctx context.Context, tx *sql.Tx, id string) (domain.CameraUpdate, bool, error) {
	query, args, err := r.sb.Select(columns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.CameraUpdate{}, false, fmt.Errorf("build select: %w", err)
	}
	u, err := scanUpdate(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CameraUpdate{}, false, nil
	}
	if err != nil {
		return domain.CameraUpdate{}, false, fmt.Errorf("load %s: %w", id, err)
	}
	return u, true, nil
}

func (r *SQLRepository) insert(ctx context.Context, tx *sql.Tx, u domain.CameraUpdate, stamp string) error {
	values, err := rowValues(u)
	if err != nil {
		return err
	}
	query, args, err := r.sb.Insert(table).
		Columns(append(slices.Clone(columns), "created_at", "updated_at")...).
		Values(append(values, stamp, stamp)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", u.ID, err)
	}
	return nil
}

func (r *SQLRepository) update(ctx context.Context, tx *sql.Tx, u domain.CameraUpdate, stamp string) error {
	values, err := rowValues(u)
	if err != nil {
		return err
	}
	set := map[string]any{"updated_at": stamp}
	for i, col := range columns[1:] {
		set[col] = values[i+1]
	}
	query, args, err := r.sb.Update(table).SetMap(set).Where(sq.Eq{"id": u.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s: %w", u.ID, err)
	}
	return nil
}

// List returns stored updates matching filter, newest first unless sorted
// by priority.
func (r *SQLRepository) List(ctx context.Context, filter ports.UpdateFilter) ([]domain.CameraUpdate, error) {
	if r.db == nil {
		return nil, nil
	}

	q := r.sb.Select(columns...).From(table)
	if filter.Brand != "" {
		q = q.Where(sq.Expr("LOWER(brand) = ?", strings.ToLower(filter.Brand)))
	}
	if filter.Type != "" {
		q = q.Where(sq.Eq{"type": string(filter.Type)})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where(sq.Or{
			sq.Like{"LOWER(title)": pattern},
			sq.Like{"LOWER(description)": pattern},
		})
	}
	if !filter.From.IsZero() {
		q = q.Where(sq.GtOrEq{"update_date": filter.From.UTC().Format(dateLayout)})
	}
	if !filter.To.IsZero() {
		q = q.Where(sq.LtOrEq{"update_date": filter.To.UTC().Format(dateLayout)})
	}
	if filter.SortBy == ports.SortByPriority {
		q = q.OrderBy("priority_rank DESC", "update_date DESC", "id")
	} else {
		q = q.OrderBy("update_date DESC", "id")
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	defer rows.Close()

	var result []domain.CameraUpdate
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpdate(row rowScanner) (domain.CameraUpdate, error) {
	var (
		u         domain.CameraUpdate
		typ       string
		date      string
		features  string
		priority  string
		priorRank int
	)
	err := row.Scan(&u.ID, &u.Brand, &typ, &u.Title, &date, &u.Version, &u.Description,
		&features, &u.DownloadLink, &u.ImageURL, &u.SourceURL, &u.SourceName,
		&priority, &priorRank, &u.Category)
	if err != nil {
		return domain.CameraUpdate{}, err
	}

	u.Type = domain.UpdateType(typ)
	u.Priority = domain.Priority(priority)
	if u.Date, err = time.Parse(dateLayout, date); err != nil {
		return domain.CameraUpdate{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	if err := json.Unmarshal([]byte(features), &u.Features); err != nil {
		return domain.CameraUpdate{}, fmt.Errorf("decode features: %w", err)
	}
	if len(u.Features) == 0 {
		u.Features = nil
	}
	return u, nil
}

func rowValues(u domain.CameraUpdate) ([]any, error) {
	features := u.Features
	if features == nil {
		features = []string{}
	}
	encoded, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}
	priority := normalPriority(u.Priority)
	return []any{
		u.ID, u.Brand, string(u.Type), u.Title, domain.Day(u.Date).Format(dateLayout), u.Version,
		u.Description, string(encoded), u.DownloadLink, u.ImageURL, u.SourceURL, u.SourceName,
		string(priority), priority.Rank(), u.Category,
	}, nil
}
