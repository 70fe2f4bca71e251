package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"athena-feed/internal/domain"
	"athena-feed/internal/repository"
)

const createMediaTable = `
CREATE TABLE IF NOT EXISTS media_uploads (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	status TEXT NOT NULL,
	file_name TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL DEFAULT '',
	size BIGINT NOT NULL DEFAULT 0,
	local_path TEXT NOT NULL DEFAULT '',
	object_key TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	uploaded_at TIMESTAMP NULL
)`

const mediaColumns = `id, owner_id, status, file_name, content_type, size, local_path, object_key, url,
	error_message, created_at, updated_at, uploaded_at`

type MediaRepository struct {
	db *DB
}

func NewMediaRepository(db *DB) repository.MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createMediaTable); err != nil {
		return fmt.Errorf("create media table: %w", err)
	}
	return nil
}

func (r *MediaRepository) Create(ctx context.Context, m *domain.MediaUpload) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = domain.MediaStatusPending
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO media_uploads (`+mediaColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.OwnerID,
		string(m.Status),
		m.FileName,
		m.ContentType,
		m.Size,
		m.LocalPath,
		m.ObjectKey,
		m.URL,
		m.ErrorMessage,
		m.CreatedAt,
		m.UpdatedAt,
		nullTime(m.UploadedAt),
	)
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

func (r *MediaRepository) Get(ctx context.Context, id string) (*domain.MediaUpload, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media_uploads WHERE id = ?`, id)
	return scanMedia(row)
}

func (r *MediaRepository) UpdateStatus(ctx context.Context, id string, status domain.MediaStatus, errorMessage *string) error {
	msg := ""
	if errorMessage != nil {
		msg = *errorMessage
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE media_uploads
SET status = ?, error_message = ?, updated_at = ?
WHERE id = ?`,
		string(status),
		msg,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update media status: %w", err)
	}
	return nil
}

func (r *MediaRepository) MarkCompleted(ctx context.Context, id, objectKey, url string, uploadedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE media_uploads
SET status = ?, object_key = ?, url = ?, local_path = '', error_message = '', uploaded_at = ?, updated_at = ?
WHERE id = ?`,
		string(domain.MediaStatusCompleted),
		objectKey,
		url,
		uploadedAt.UTC(),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark media completed: %w", err)
	}
	return nil
}

func (r *MediaRepository) ListByStatuses(ctx context.Context, statuses ...domain.MediaStatus) ([]domain.MediaUpload, error) {
	if len(statuses) == 0 {
		return []domain.MediaUpload{}, nil
	}
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+mediaColumns+`
FROM media_uploads
WHERE status IN (`+placeholders(len(statuses))+`)
ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query media by status: %w", err)
	}
	defer rows.Close()

	var out []domain.MediaUpload
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media_uploads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if ok, err := rowsAffected(res); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("media %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func scanMedia(row scanner) (*domain.MediaUpload, error) {
	var (
		m          domain.MediaUpload
		status     string
		uploadedAt sql.NullTime
	)
	if err := row.Scan(
		&m.ID,
		&m.OwnerID,
		&status,
		&m.FileName,
		&m.ContentType,
		&m.Size,
		&m.LocalPath,
		&m.ObjectKey,
		&m.URL,
		&m.ErrorMessage,
		&m.CreatedAt,
		&m.UpdatedAt,
		&uploadedAt,
	); err != nil {
		return nil, notFound(err, "media")
	}
	m.Status = domain.MediaStatus(status)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	m.UploadedAt = timePtr(uploadedAt)
	return &m, nil
}
