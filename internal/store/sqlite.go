package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/photomanager/api/internal/model"
)

// migrations run in order at startup; each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		original_name TEXT NOT NULL,
		path TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS photo_tags (
		photo_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (photo_id, tag_id),
		FOREIGN KEY (photo_id) REFERENCES photos(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_photo_tags_photo ON photo_tags(photo_id)`,
	`CREATE TABLE IF NOT EXISTS photo_metadata (
		photo_id INTEGER PRIMARY KEY,
		description TEXT,
		atmosphere TEXT,
		dominant_colors TEXT,
		quality_score INTEGER,
		quality_sharpness TEXT,
		quality_lighting TEXT,
		quality_composition TEXT,
		quality_overall TEXT,
		ai_model TEXT,
		analyzed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (photo_id) REFERENCES photos(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// migrations. SQLite has a single writer; the pool is capped at one
// connection so concurrent jobs serialize on the driver instead of
// returning busy errors.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreatePhoto(ctx context.Context, p *model.Photo) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO photos (filename, original_name, path, mime_type, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Filename, p.OriginalName, p.Path, p.MimeType, p.Size, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting photo: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) GetPhotoByID(ctx context.Context, id int64) (*model.Photo, error) {
	var p model.Photo
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, original_name, path, mime_type, size, created_at
		 FROM photos WHERE id = ?`, id).
		Scan(&p.ID, &p.Filename, &p.OriginalName, &p.Path, &p.MimeType, &p.Size, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting photo %d: %w", id, err)
	}
	return &p, nil
}

func (s *SQLiteStore) ListPhotos(ctx context.Context) ([]model.Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, original_name, path, mime_type, size, created_at
		 FROM photos ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		var p model.Photo
		if err := rows.Scan(&p.ID, &p.Filename, &p.OriginalName, &p.Path, &p.MimeType, &p.Size, &p.CreatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (s *SQLiteStore) RenamePhoto(ctx context.Context, id int64, originalName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE photos SET original_name = ? WHERE id = ?`, originalName, id)
	if err != nil {
		return fmt.Errorf("renaming photo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeletePhoto(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) CreateTag(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, name)
	return err
}

func (s *SQLiteStore) GetTagByName(ctx context.Context, name string) (*model.Tag, error) {
	var t model.Tag
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting tag %q: %w", name, err)
	}
	return &t, nil
}

func (s *SQLiteStore) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *SQLiteStore) AddPhotoTag(ctx context.Context, photoID, tagID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO photo_tags (photo_id, tag_id) VALUES (?, ?)`, photoID, tagID)
	return err
}

func (s *SQLiteStore) GetPhotoTags(ctx context.Context, photoID int64) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.created_at FROM tags t
		 JOIN photo_tags pt ON t.id = pt.tag_id
		 WHERE pt.photo_id = ? ORDER BY t.name`, photoID)
	if err != nil {
		return nil, fmt.Errorf("selecting tags for photo %d: %w", photoID, err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *SQLiteStore) RemovePhotoTag(ctx context.Context, photoID, tagID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM photo_tags WHERE photo_id = ? AND tag_id = ?`, photoID, tagID)
	return err
}

func (s *SQLiteStore) ClearPhotoTags(ctx context.Context, photoID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM photo_tags WHERE photo_id = ?`, photoID)
	return err
}

func (s *SQLiteStore) SavePhotoMetadata(ctx context.Context, m *model.PhotoMetadata) error {
	colors := m.Colors
	if colors == nil {
		colors = []model.ColorInfo{}
	}
	colorsJSON, err := json.Marshal(colors)
	if err != nil {
		return fmt.Errorf("marshaling colors: %w", err)
	}
	if m.AnalyzedAt.IsZero() {
		m.AnalyzedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO photo_metadata
		 (photo_id, description, atmosphere, dominant_colors, quality_score,
		  quality_sharpness, quality_lighting, quality_composition, quality_overall,
		  ai_model, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.PhotoID, m.Description, m.Atmosphere, string(colorsJSON), m.QualityScore,
		m.Sharpness, m.Lighting, m.Composition, m.OverallRating,
		m.AIModel, m.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("upserting metadata for photo %d: %w", m.PhotoID, err)
	}
	return nil
}

func (s *SQLiteStore) GetPhotoMetadata(ctx context.Context, photoID int64) (*model.PhotoMetadata, error) {
	var m model.PhotoMetadata
	var colorsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT photo_id, description, atmosphere, dominant_colors, quality_score,
		        quality_sharpness, quality_lighting, quality_composition, quality_overall,
		        ai_model, analyzed_at
		 FROM photo_metadata WHERE photo_id = ?`, photoID).
		Scan(&m.PhotoID, &m.Description, &m.Atmosphere, &colorsJSON, &m.QualityScore,
			&m.Sharpness, &m.Lighting, &m.Composition, &m.OverallRating,
			&m.AIModel, &m.AnalyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting metadata for photo %d: %w", photoID, err)
	}

	if err := json.Unmarshal([]byte(colorsJSON), &m.Colors); err != nil {
		m.Colors = []model.ColorInfo{}
	}
	return &m, nil
}

func (s *SQLiteStore) DeletePhotoMetadata(ctx context.Context, photoID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM photo_metadata WHERE photo_id = ?`, photoID)
	return err
}

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("selecting setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	return err
}

var _ Store = (*SQLiteStore)(nil)
