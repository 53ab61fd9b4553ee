package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postuploadCPT/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func postColumns() []string {
	return []string{
		"post_id", "blog_id", "remote_id", "title", "content", "status",
		"remote_status", "auto_upload_attempts", "should_attempt_auto_upload",
		"date_published", "created_at", "updated_at",
	}
}

func postRow(post *models.Post) *sqlmock.Rows {
	return sqlmock.NewRows(postColumns()).AddRow(
		post.PostID, post.BlogID, post.RemoteID, post.Title, post.Content,
		post.Status, post.RemoteStatus, post.AutoUploadAttempts,
		post.ShouldAttemptAutoUpload, post.DatePublished,
		post.CreatedAt, post.UpdatedAt,
	)
}

func TestPostRepository_Create(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPostRepository(sqlxDB)
	ctx := context.Background()

	t.Run("Успешное создание поста", func(t *testing.T) {
		post := &models.Post{
			BlogID:  uuid.New().String(),
			Title:   "Заголовок",
			Content: "Текст поста",
		}

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO posts")).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Create(ctx, post)

		require.NoError(t, err)
		assert.NotEmpty(t, post.PostID)
		assert.Equal(t, models.PostStatusDraft, post.Status)
		assert.Equal(t, models.RemoteStatusNone, post.RemoteStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка базы данных", func(t *testing.T) {
		post := &models.Post{BlogID: uuid.New().String(), Title: "Заголовок"}

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO posts")).
			WillReturnError(errors.New("connection failed"))

		err := repo.Create(ctx, post)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка при создании поста")
	})
}

func TestPostRepository_GetByID(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPostRepository(sqlxDB)
	ctx := context.Background()

	postID := uuid.New().String()
	expected := &models.Post{
		PostID:       postID,
		BlogID:       uuid.New().String(),
		RemoteID:     42,
		Title:        "Заголовок",
		Content:      "Текст",
		Status:       models.PostStatusPublish,
		RemoteStatus: models.RemoteStatusPushed,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	t.Run("Успешное получение поста", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts")).
			WithArgs(postID).
			WillReturnRows(postRow(expected))

		post, err := repo.GetByID(ctx, postID)

		require.NoError(t, err)
		assert.Equal(t, expected.PostID, post.PostID)
		assert.Equal(t, expected.RemoteID, post.RemoteID)
		assert.Equal(t, expected.Status, post.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пост не найден", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts")).
			WithArgs(postID).
			WillReturnError(sql.ErrNoRows)

		post, err := repo.GetByID(ctx, postID)

		assert.Error(t, err)
		assert.Nil(t, post)
		assert.Contains(t, err.Error(), "не найден")
	})
}

func TestPostRepository_Update(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPostRepository(sqlxDB)
	ctx := context.Background()

	post := &models.Post{
		PostID:  uuid.New().String(),
		Title:   "Новый заголовок",
		Content: "Новый текст",
		Status:  models.PostStatusDraft,
	}

	t.Run("Успешное обновление", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(ctx, post)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пост не найден при обновлении", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, post)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "не найден")
	})
}

func TestPostRepository_SetStatuses(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPostRepository(sqlxDB)
	ctx := context.Background()
	postID := uuid.New().String()

	t.Run("Успешная смена статусов", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET")).
			WithArgs(postID, models.PostStatusPublish, models.RemoteStatusPushing).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetStatuses(ctx, postID, models.PostStatusPublish, models.RemoteStatusPushing)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пост не найден", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET")).
			WithArgs(postID, models.PostStatusDraft, models.RemoteStatusFailed).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetStatuses(ctx, postID, models.PostStatusDraft, models.RemoteStatusFailed)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "не найден")
	})
}

func TestPostRepository_SetAutoUpload(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPostRepository(sqlxDB)
	ctx := context.Background()
	postID := uuid.New().String()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET")).
		WithArgs(postID, false, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetAutoUpload(ctx, postID, false, 2)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_Trash(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPostRepository(sqlxDB)
	ctx := context.Background()
	postID := uuid.New().String()

	t.Run("Успешное перемещение в корзину", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET")).
			WithArgs(postID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Trash(ctx, postID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пост уже в корзине", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE posts SET")).
			WithArgs(postID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Trash(ctx, postID)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "уже в корзине")
	})
}

func TestPostRepository_Delete(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPostRepository(sqlxDB)
	ctx := context.Background()
	postID := uuid.New().String()

	t.Run("Удаление поста вместе с медиафайлами", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE post_id = $1")).
			WithArgs(postID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM media WHERE post_id = $1")).
			WithArgs(postID).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := repo.Delete(ctx, postID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пост не найден при удалении", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM posts WHERE post_id = $1")).
			WithArgs(postID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(ctx, postID)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "не найден")
	})
}

func TestPostRepository_ListFailed(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPostRepository(sqlxDB)
	ctx := context.Background()

	t.Run("Возвращаются посты с ошибкой загрузки", func(t *testing.T) {
		first := &models.Post{
			PostID:       uuid.New().String(),
			Status:       models.PostStatusPublish,
			RemoteStatus: models.RemoteStatusFailed,
		}
		second := &models.Post{
			PostID:       uuid.New().String(),
			Status:       models.PostStatusDraft,
			RemoteStatus: models.RemoteStatusFailed,
		}

		rows := postRow(first).AddRow(
			second.PostID, second.BlogID, second.RemoteID, second.Title,
			second.Content, second.Status, second.RemoteStatus,
			second.AutoUploadAttempts, second.ShouldAttemptAutoUpload,
			second.DatePublished, second.CreatedAt, second.UpdatedAt,
		)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts")).
			WillReturnRows(rows)

		posts, err := repo.ListFailed(ctx)

		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, first.PostID, posts[0].PostID)
		assert.Equal(t, second.PostID, posts[1].PostID)
	})

	t.Run("Ошибка базы данных", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts")).
			WillReturnError(errors.New("connection failed"))

		posts, err := repo.ListFailed(ctx)

		assert.Error(t, err)
		assert.Nil(t, posts)
	})
}
