package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/giannis84/gallery-sync/internal/models"
)

// SQLiteRepository implements FavouritesRepository on an embedded SQLite
// database. SQLite is the on-device store; the server remains the source of
// truth and this cache is the offline fallback.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository wraps an already opened *sql.DB.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Open opens (or creates) the cache database at path and initialises the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	db.SetMaxOpenConns(1) // single-process client; avoids SQLITE_BUSY on concurrent writes
	db.SetConnMaxLifetime(time.Hour)

	// WAL keeps cache reads responsive while a sync is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS favourites (
		image_id    INTEGER NOT NULL,
		image_url   TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL DEFAULT '',
		user_id     INTEGER NOT NULL,
		PRIMARY KEY (image_id, user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_favourites_user ON favourites(user_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("initialising cache schema: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, record models.FavouriteRecord) error {
	if !record.Valid() {
		return ErrInvalidRecord
	}

	const query = `
		INSERT INTO favourites (image_id, image_url, description, category, user_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (image_id, user_id) DO UPDATE SET
			image_url = excluded.image_url,
			description = excluded.description,
			category = excluded.category`

	_, err := r.db.ExecContext(ctx, query,
		record.ImageID, record.ImageURL, record.Description, record.Category, record.UserID,
	)
	if err != nil {
		return fmt.Errorf("inserting favourite: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) InsertMany(ctx context.Context, records []models.FavouriteRecord) error {
	for _, record := range records {
		if !record.Valid() {
			return ErrInvalidRecord
		}
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning bulk insert: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO favourites (image_id, image_url, description, category, user_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (image_id, user_id) DO UPDATE SET
			image_url = excluded.image_url,
			description = excluded.description,
			category = excluded.category`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing bulk insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx,
			record.ImageID, record.ImageURL, record.Description, record.Category, record.UserID,
		); err != nil {
			return fmt.Errorf("inserting favourite %d: %w", record.ImageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing bulk insert: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, imageID, userID int64) (*models.FavouriteRecord, error) {
	const query = `
		SELECT image_id, image_url, description, category, user_id
		FROM favourites
		WHERE image_id = ? AND user_id = ?`

	row := r.db.QueryRowContext(ctx, query, imageID, userID)

	var rec models.FavouriteRecord
	err := row.Scan(&rec.ImageID, &rec.ImageURL, &rec.Description, &rec.Category, &rec.UserID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning favourite: %w", err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) GetAllForUser(ctx context.Context, userID int64) ([]models.FavouriteRecord, error) {
	const query = `
		SELECT image_id, image_url, description, category, user_id
		FROM favourites
		WHERE user_id = ?`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying user favourites: %w", err)
	}
	defer rows.Close()

	var favourites []models.FavouriteRecord
	for rows.Next() {
		var rec models.FavouriteRecord
		if err := rows.Scan(&rec.ImageID, &rec.ImageURL, &rec.Description, &rec.Category, &rec.UserID); err != nil {
			return nil, fmt.Errorf("scanning favourite row: %w", err)
		}
		favourites = append(favourites, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user favourites: %w", err)
	}

	if favourites == nil {
		favourites = []models.FavouriteRecord{}
	}
	return favourites, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, imageID, userID int64) (int64, error) {
	const query = `DELETE FROM favourites WHERE image_id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query, imageID, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting favourite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

func (r *SQLiteRepository) ClearForUser(ctx context.Context, userID int64) error {
	const query = `DELETE FROM favourites WHERE user_id = ?`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("clearing user favourites: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ClearAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM favourites`); err != nil {
		return fmt.Errorf("clearing favourites cache: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ClearInvalid(ctx context.Context) error {
	// Defensive cleanup for rows written before owner validation existed.
	if _, err := r.db.ExecContext(ctx, `DELETE FROM favourites WHERE user_id IS NULL OR user_id <= 0`); err != nil {
		return fmt.Errorf("clearing invalid favourites: %w", err)
	}
	return nil
}
