package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"postuploadCPT/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, postID string) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	SetStatuses(ctx context.Context, postID, status, remoteStatus string) error
	SetRemoteResult(ctx context.Context, post *models.Post) error
	SetAutoUpload(ctx context.Context, postID string, shouldAttempt bool, attempts int) error
	Trash(ctx context.Context, postID string) error
	Delete(ctx context.Context, postID string) error
	ListFailed(ctx context.Context) ([]*models.Post, error)
}

type MediaRepository interface {
	Create(ctx context.Context, media *models.Media) error
	GetByPostID(ctx context.Context, postID string) ([]*models.Media, error)
	SetRemoteStatus(ctx context.Context, mediaID, remoteStatus string) error
	SetRemoteResult(ctx context.Context, media *models.Media) error
	DeleteByPostID(ctx context.Context, postID string) error
}

type BlogRepository interface {
	GetByID(ctx context.Context, blogID string) (*models.Blog, error)
	SetNeedsCredentials(ctx context.Context, blogID string, needs bool) error
}

type Repository struct {
	Post  PostRepository
	Media MediaRepository
	Blog  BlogRepository
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		Post:  NewPostRepository(db),
		Media: NewMediaRepository(db),
		Blog:  NewBlogRepository(db),
	}
}
