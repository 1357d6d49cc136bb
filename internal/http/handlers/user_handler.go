package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/cms-backend/internal/dto"
	"github.com/ignatzorin/cms-backend/internal/http/handlers/common"
	"github.com/ignatzorin/cms-backend/internal/service"
)

// UserHandler отдаёт сведения о текущем пользователе.
type UserHandler struct {
	auth *service.AuthService
}

// NewUserHandler создаёт хэндлер.
func NewUserHandler(auth *service.AuthService) *UserHandler {
	return &UserHandler{auth: auth}
}

// Me обрабатывает GET /api/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	username, err := common.CurrentUsername(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	info, err := h.auth.GetUserInfo(c.Request.Context(), username)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserInfoResponse{
		ID:         info.User.ID,
		Username:   info.User.Username,
		CreatedAt:  info.User.CreatedAt,
		TotalPosts: info.TotalPosts,
	})
}
