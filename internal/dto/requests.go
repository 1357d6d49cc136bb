package dto

// RegisterRequest — тело запроса регистрации.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest — тело запроса входа.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest — тело запроса обновления пары токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SavePostRequest — сохранение ранее сгенерированного поста.
// Hashtags приходят уже отформатированной строкой и передаются как есть.
type SavePostRequest struct {
	GeneratedDescription string `json:"generated_description" binding:"required"`
	OriginalDescription  string `json:"original_description"`
	Hashtags             string `json:"hashtags"`
	TempPhotoPath        string `json:"temp_photo_path"`
	Size                 string `json:"size" binding:"required"`
}
