package search

import (
	"context"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"postuploadCPT/internal/models"
)

// Index - поисковый индекс по принципу best-effort: ошибки логируются,
// но наверх не передаются
type Index interface {
	IndexPost(ctx context.Context, post *models.Post)
	DeletePost(ctx context.Context, postID string)
}

type PostgresIndex struct {
	db *sqlx.DB
}

func NewPostgresIndex(db *sqlx.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

func (i *PostgresIndex) IndexPost(ctx context.Context, post *models.Post) {
	query := `
		INSERT INTO search_index (post_id, title, body, indexed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			indexed_at = EXCLUDED.indexed_at
	`

	_, err := i.db.ExecContext(ctx, query, post.PostID, post.Title, post.Content, time.Now())
	if err != nil {
		log.Printf("Внимание: не удалось проиндексировать пост %s: %v", post.PostID, err)
	}
}

func (i *PostgresIndex) DeletePost(ctx context.Context, postID string) {
	query := `DELETE FROM search_index WHERE post_id = $1`

	_, err := i.db.ExecContext(ctx, query, postID)
	if err != nil {
		log.Printf("Внимание: не удалось удалить пост %s из индекса: %v", postID, err)
	}
}
