package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"postuploadCPT/internal/models"
)

type BlogRepositoryImpl struct {
	db *sqlx.DB
}

func NewBlogRepository(db *sqlx.DB) *BlogRepositoryImpl {
	return &BlogRepositoryImpl{db: db}
}

func (r *BlogRepositoryImpl) GetByID(ctx context.Context, blogID string) (*models.Blog, error) {
	query := `SELECT * FROM blogs WHERE blog_id = $1`

	var blog models.Blog
	err := r.db.GetContext(ctx, &blog, query, blogID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("блог с ID %s не найден", blogID)
		}
		return nil, fmt.Errorf("ошибка при получении блога: %w", err)
	}

	return &blog, nil
}

// SetNeedsCredentials помечает блог как требующий повторного ввода пароля
func (r *BlogRepositoryImpl) SetNeedsCredentials(ctx context.Context, blogID string, needs bool) error {
	query := `
		UPDATE blogs SET
			needs_credentials = $2
		WHERE blog_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, blogID, needs)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении блога: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return errors.New("блог не найден")
	}

	return nil
}
