package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"postuploadCPT/internal/models"
)

type PostRepositoryImpl struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{db: db}
}

func (r *PostRepositoryImpl) Create(ctx context.Context, post *models.Post) error {
	query := `
        INSERT INTO posts
        (post_id, blog_id, remote_id, title, content, status, remote_status,
         auto_upload_attempts, should_attempt_auto_upload, date_published, created_at, updated_at)
        VALUES
        (:post_id, :blog_id, :remote_id, :title, :content, :status, :remote_status,
         :auto_upload_attempts, :should_attempt_auto_upload, :date_published, :created_at, :updated_at)
    `

	if post.PostID == "" {
		post.PostID = uuid.New().String()
	}
	if post.Status == "" {
		post.Status = models.PostStatusDraft
	}
	if post.RemoteStatus == "" {
		post.RemoteStatus = models.RemoteStatusNone
	}

	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("ошибка при создании поста: %w", err)
	}

	return nil
}

func (r *PostRepositoryImpl) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	query := `
        SELECT * FROM posts
        WHERE post_id = $1
    `

	var post models.Post
	err := r.db.GetContext(ctx, &post, query, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("пост с ID %s не найден", postID)
		}
		return nil, fmt.Errorf("ошибка при получении поста: %w", err)
	}

	return &post, nil
}

func (r *PostRepositoryImpl) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts SET
			title = :title,
			content = :content,
			status = :status,
			remote_status = :remote_status,
			date_published = :date_published,
			updated_at = :updated_at
		WHERE post_id = :post_id
	`

	post.UpdatedAt = time.Now()

	result, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении поста: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return errors.New("пост не найден")
	}

	return nil
}

// SetStatuses синхронно фиксирует переход статусов ("save and wait")
func (r *PostRepositoryImpl) SetStatuses(ctx context.Context, postID, status, remoteStatus string) error {
	query := `
		UPDATE posts SET
			status = $2,
			remote_status = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE post_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, postID, status, remoteStatus)
	if err != nil {
		return fmt.Errorf("ошибка при смене статуса поста: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return errors.New("пост не найден")
	}

	return nil
}

// SetRemoteResult сохраняет результат, подтвержденный удаленным сервисом
func (r *PostRepositoryImpl) SetRemoteResult(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts SET
			remote_id = :remote_id,
			content = :content,
			status = :status,
			remote_status = :remote_status,
			date_published = :date_published,
			updated_at = :updated_at
		WHERE post_id = :post_id
	`

	post.UpdatedAt = time.Now()

	_, err := r.db.NamedExecContext(ctx, query, post)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении результата загрузки: %w", err)
	}

	return nil
}

func (r *PostRepositoryImpl) SetAutoUpload(ctx context.Context, postID string, shouldAttempt bool, attempts int) error {
	query := `
		UPDATE posts SET
			should_attempt_auto_upload = $2,
			auto_upload_attempts = $3,
			updated_at = CURRENT_TIMESTAMP
		WHERE post_id = $1
	`

	_, err := r.db.ExecContext(ctx, query, postID, shouldAttempt, attempts)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении флага автозагрузки: %w", err)
	}

	return nil
}

func (r *PostRepositoryImpl) Trash(ctx context.Context, postID string) error {
	query := `
		UPDATE posts SET
			status = 'trash',
			updated_at = CURRENT_TIMESTAMP
		WHERE post_id = $1 AND status <> 'trash'
	`

	result, err := r.db.ExecContext(ctx, query, postID)
	if err != nil {
		return fmt.Errorf("ошибка при перемещении поста в корзину: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return errors.New("пост не найден или уже в корзине")
	}

	return nil
}

func (r *PostRepositoryImpl) Delete(ctx context.Context, postID string) error {
	query := `DELETE FROM posts WHERE post_id = $1`

	result, err := r.db.ExecContext(ctx, query, postID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении поста: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке удаленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return errors.New("пост не найден")
	}

	mediaRepositoryImpl := MediaRepositoryImpl{db: r.db}
	err = mediaRepositoryImpl.DeleteByPostID(ctx, postID)
	if err != nil {
		return err
	}

	return nil
}

// ListFailed возвращает посты, последняя загрузка которых завершилась ошибкой
func (r *PostRepositoryImpl) ListFailed(ctx context.Context) ([]*models.Post, error) {
	query := `
        SELECT * FROM posts
        WHERE remote_status = 'failed'
        ORDER BY updated_at
    `

	var posts []*models.Post
	err := r.db.SelectContext(ctx, &posts, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении постов с ошибкой загрузки: %w", err)
	}

	return posts, nil
}
