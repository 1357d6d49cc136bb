package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/cms-backend/internal/models"
)

// ErrorResponse — стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthResponse возвращается после регистрации, входа и обновления токенов.
type AuthResponse struct {
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserInfoResponse — данные текущего пользователя.
type UserInfoResponse struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	TotalPosts int64     `json:"total_posts"`
}

// GeneratedPostResponse — эфемерный результат генерации без сохранения.
type GeneratedPostResponse struct {
	GeneratedDescription string    `json:"generated_description"`
	OriginalDescription  string    `json:"original_description"`
	Hashtags             string    `json:"hashtags"`
	TempPhotoPath        string    `json:"temp_photo_path,omitempty"`
	Size                 string    `json:"size"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// PostResponse — сохранённый пост.
type PostResponse struct {
	ID                   uuid.UUID `json:"id"`
	GeneratedDescription string    `json:"generated_description"`
	OriginalDescription  *string   `json:"original_description,omitempty"`
	Hashtags             string    `json:"hashtags"`
	PhotoPath            *string   `json:"photo_path,omitempty"`
	Size                 string    `json:"size"`
	CreatedAt            time.Time `json:"created_at"`
}

// NewPostResponse мапит модель поста в ответ API.
func NewPostResponse(post *models.Post) PostResponse {
	return PostResponse{
		ID:                   post.ID,
		GeneratedDescription: post.GeneratedDescription,
		OriginalDescription:  post.OriginalDescription,
		Hashtags:             post.Hashtags,
		PhotoPath:            post.PhotoPath,
		Size:                 post.Size,
		CreatedAt:            post.CreatedAt,
	}
}
