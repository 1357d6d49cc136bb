package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/cms-backend/internal/models"
	"github.com/ignatzorin/cms-backend/internal/pkg/apperror"
)

// PostRepository отвечает за работу с таблицей posts.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository создаёт экземпляр репозитория.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create вставляет пост в рамках одной транзакции и заполняет id и created_at.
// Вставка единственной строки — всё или ничего.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (user_id, original_description, generated_description, hashtags, photo_path, size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	return WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.QueryRowxContext(
			ctx, query,
			post.UserID,
			post.OriginalDescription,
			post.GeneratedDescription,
			post.Hashtags,
			post.PhotoPath,
			post.Size,
		).Scan(&post.ID, &post.CreatedAt); err != nil {
			return fmt.Errorf("post repository: create %w", err)
		}
		return nil
	})
}

// GetByIDAndUserID возвращает пост только если он принадлежит пользователю.
// Отсутствие и чужое владение неразличимы — обе ситуации дают ErrPostNotFound.
func (r *PostRepository) GetByIDAndUserID(ctx context.Context, id, userID uuid.UUID) (*models.Post, error) {
	var post models.Post
	query := `
		SELECT id, user_id, original_description, generated_description, hashtags, photo_path, size, created_at
		FROM posts
		WHERE id = $1 AND user_id = $2
	`
	if err := r.db.GetContext(ctx, &post, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrPostNotFound
		}
		return nil, fmt.Errorf("post repository: get by id and user id %w", err)
	}

	return &post, nil
}

// ListByUserID возвращает посты пользователя от новых к старым.
func (r *PostRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Post, error) {
	query := `
		SELECT id, user_id, original_description, generated_description, hashtags, photo_path, size, created_at
		FROM posts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var posts []models.Post
	if err := r.db.SelectContext(ctx, &posts, query, userID); err != nil {
		return nil, fmt.Errorf("post repository: list by user id %w", err)
	}

	return posts, nil
}

// CountByUserID возвращает количество постов пользователя.
func (r *PostRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("post repository: count by user id %w", err)
	}
	return count, nil
}

// Delete удаляет пост по идентификатору.
func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("post repository: delete %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("post repository: delete rows affected %w", err)
	}

	if rowsAffected == 0 {
		return apperror.ErrPostNotFound
	}

	return nil
}
