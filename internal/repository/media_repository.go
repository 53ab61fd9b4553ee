package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"postuploadCPT/internal/models"
)

type MediaRepositoryImpl struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) *MediaRepositoryImpl {
	return &MediaRepositoryImpl{db: db}
}

func (r *MediaRepositoryImpl) Create(ctx context.Context, media *models.Media) error {
	query := `
		INSERT INTO media
		(media_id, post_id, upload_id, media_type, remote_status, remote_media_id,
		 remote_url, video_guid, local_path, filename, filesize, created_at, updated_at)
		VALUES
		(:media_id, :post_id, :upload_id, :media_type, :remote_status, :remote_media_id,
		 :remote_url, :video_guid, :local_path, :filename, :filesize, :created_at, :updated_at)
	`

	if media.MediaID == "" {
		media.MediaID = uuid.New().String()
	}
	if media.UploadID == "" {
		media.UploadID = uuid.New().String()
	}
	if media.RemoteStatus == "" {
		media.RemoteStatus = models.MediaStatusLocal
	}

	now := time.Now()
	media.CreatedAt = now
	media.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, query, media)
	if err != nil {
		return fmt.Errorf("ошибка при создании медиафайла: %w", err)
	}

	return nil
}

func (r *MediaRepositoryImpl) GetByPostID(ctx context.Context, postID string) ([]*models.Media, error) {
	query := `SELECT * FROM media WHERE post_id = $1 ORDER BY created_at`

	var media []*models.Media
	err := r.db.SelectContext(ctx, &media, query, postID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении медиафайлов: %w", err)
	}

	return media, nil
}

func (r *MediaRepositoryImpl) SetRemoteStatus(ctx context.Context, mediaID, remoteStatus string) error {
	query := `
		UPDATE media SET
			remote_status = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE media_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, mediaID, remoteStatus)
	if err != nil {
		return fmt.Errorf("ошибка при смене статуса медиафайла: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return errors.New("медиафайл не найден")
	}

	return nil
}

// SetRemoteResult сохраняет URL и идентификатор, полученные после загрузки
func (r *MediaRepositoryImpl) SetRemoteResult(ctx context.Context, media *models.Media) error {
	query := `
		UPDATE media SET
			remote_status = :remote_status,
			remote_media_id = :remote_media_id,
			remote_url = :remote_url,
			video_guid = :video_guid,
			updated_at = :updated_at
		WHERE media_id = :media_id
	`

	media.UpdatedAt = time.Now()

	_, err := r.db.NamedExecContext(ctx, query, media)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении результата загрузки медиафайла: %w", err)
	}

	return nil
}

func (r *MediaRepositoryImpl) DeleteByPostID(ctx context.Context, postID string) error {
	query := `DELETE FROM media WHERE post_id = $1`

	_, err := r.db.ExecContext(ctx, query, postID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении медиафайлов поста: %w", err)
	}

	return nil
}
