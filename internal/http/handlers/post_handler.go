package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/cms-backend/internal/ai"
	"github.com/ignatzorin/cms-backend/internal/dto"
	"github.com/ignatzorin/cms-backend/internal/http/handlers/common"
	"github.com/ignatzorin/cms-backend/internal/models"
	"github.com/ignatzorin/cms-backend/internal/service"
)

// Разрешённые типы фотографий
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Разрешённые расширения файлов
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// PostHandler предоставляет HTTP слой генерации и управления постами.
type PostHandler struct {
	posts *service.PostService
}

// NewPostHandler создаёт хэндлер.
func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// Generate обрабатывает POST /api/posts/generate (multipart/form-data).
// Генерирует описание без сохранения поста.
func (h *PostHandler) Generate(c *gin.Context) {
	username, err := common.CurrentUsername(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	input, ok := h.bindGenerateForm(c)
	if !ok {
		return
	}

	result, err := h.posts.Generate(c.Request.Context(), input, username)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.GeneratedPostResponse{
		GeneratedDescription: result.GeneratedDescription,
		OriginalDescription:  result.OriginalDescription,
		Hashtags:             result.Hashtags,
		TempPhotoPath:        result.TempPhotoPath,
		Size:                 result.Size,
		GeneratedAt:          result.GeneratedAt,
	})
}

// Save обрабатывает POST /api/posts/save (JSON).
// Сохраняет ранее сгенерированный пост, перенося временную фотографию.
func (h *PostHandler) Save(c *gin.Context) {
	username, err := common.CurrentUsername(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.SavePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.SaveGenerated(c.Request.Context(), service.SavePostInput{
		GeneratedDescription: req.GeneratedDescription,
		OriginalDescription:  req.OriginalDescription,
		Hashtags:             req.Hashtags,
		TempPhotoPath:        req.TempPhotoPath,
		Size:                 req.Size,
	}, username)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewPostResponse(post))
}

// GenerateAndSave обрабатывает POST /api/posts/generate-and-save (multipart/form-data).
// Генерирует описание и сразу сохраняет пост.
func (h *PostHandler) GenerateAndSave(c *gin.Context) {
	username, err := common.CurrentUsername(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	input, ok := h.bindGenerateForm(c)
	if !ok {
		return
	}

	post, err := h.posts.GenerateAndSave(c.Request.Context(), input, username)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewPostResponse(post))
}

// List обрабатывает GET /api/posts.
func (h *PostHandler) List(c *gin.Context) {
	username, err := common.CurrentUsername(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	posts, err := h.posts.ListPosts(c.Request.Context(), username)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	responses := make([]dto.PostResponse, 0, len(posts))
	for i := range posts {
		responses = append(responses, dto.NewPostResponse(&posts[i]))
	}

	c.JSON(http.StatusOK, responses)
}

// GetByID обрабатывает GET /api/posts/:id.
func (h *PostHandler) GetByID(c *gin.Context) {
	username, err := common.CurrentUsername(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	postID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.GetPost(c.Request.Context(), postID, username)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPostResponse(post))
}

// Delete обрабатывает DELETE /api/posts/:id.
func (h *PostHandler) Delete(c *gin.Context) {
	username, err := common.CurrentUsername(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	postID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.posts.DeletePost(c.Request.Context(), postID, username); err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPhoto обрабатывает GET /api/posts/:id/photo.
// Отдаёт файл фотографии сохранённого поста.
func (h *PostHandler) GetPhoto(c *gin.Context) {
	username, err := common.CurrentUsername(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	postID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.GetPost(c.Request.Context(), postID, username)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	if post.PhotoPath == nil {
		common.RespondError(c, http.StatusNotFound, "у поста нет фотографии")
		return
	}

	c.File(*post.PhotoPath)
}

// bindGenerateForm разбирает multipart-форму генерации. При ошибке сам пишет
// ответ и возвращает ok=false.
func (h *PostHandler) bindGenerateForm(c *gin.Context) (service.GeneratePostInput, bool) {
	description := c.PostForm("description")
	size := c.PostForm("size")
	hashtags := parseHashtagsForm(c)

	input := service.GeneratePostInput{
		Description: description,
		Hashtags:    hashtags,
		Size:        models.DescriptionSize(strings.ToUpper(strings.TrimSpace(size))),
	}

	file, err := c.FormFile("photo")
	if err != nil {
		if err == http.ErrMissingFile {
			return input, true
		}
		common.RespondError(c, http.StatusBadRequest, "не удалось прочитать поле photo")
		return input, false
	}

	photo, ok := h.readPhoto(c, file)
	if !ok {
		return input, false
	}
	input.Photo = photo

	return input, true
}

// readPhoto читает и валидирует загруженную фотографию: лимит размера,
// расширение и магические байты. При ошибке сам пишет ответ.
func (h *PostHandler) readPhoto(c *gin.Context, file *multipart.FileHeader) (*ai.PhotoInput, bool) {
	if file.Size == 0 {
		common.RespondError(c, http.StatusBadRequest, "файл не может быть пустым")
		return nil, false
	}

	if file.Size > ai.MaxPhotoBytes {
		common.RespondError(c, http.StatusRequestEntityTooLarge, "фотография превышает допустимый размер 20 МБ")
		return nil, false
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		common.RespondError(c, http.StatusBadRequest, fmt.Sprintf("неподдерживаемый формат файла. Разрешены: %s", strings.Join(extensionList(), ", ")))
		return nil, false
	}

	src, err := file.Open()
	if err != nil {
		common.RespondError(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, ai.MaxPhotoBytes+1))
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "не удалось прочитать файл")
		return nil, false
	}

	// Content-Length мог врать, проверяем фактический размер
	if int64(len(data)) > ai.MaxPhotoBytes {
		common.RespondError(c, http.StatusRequestEntityTooLarge, "фотография превышает допустимый размер 20 МБ")
		return nil, false
	}

	// Проверяем магические байты (реальный тип файла)
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		common.RespondError(c, http.StatusBadRequest, "не удалось определить тип файла. Разрешены только изображения")
		return nil, false
	}

	contentType := kind.MIME.Value
	if !allowedMimeTypes[contentType] {
		common.RespondError(c, http.StatusBadRequest, fmt.Sprintf("неподдерживаемый тип файла (%s)", contentType))
		return nil, false
	}

	return &ai.PhotoInput{
		Data:     data,
		MIME:     contentType,
		Filename: file.Filename,
	}, true
}

// parseHashtagsForm собирает хэштеги из повторяющихся полей формы,
// допуская также одно поле со значениями через запятую.
func parseHashtagsForm(c *gin.Context) []string {
	values := c.PostFormArray("hashtags")

	var tags []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				tags = append(tags, part)
			}
		}
	}
	return tags
}

// extensionList возвращает список разрешённых расширений.
func extensionList() []string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	return exts
}
