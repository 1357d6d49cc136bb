package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/cms-backend/internal/ai"
	"github.com/ignatzorin/cms-backend/internal/logger"
	"github.com/ignatzorin/cms-backend/internal/models"
	"github.com/ignatzorin/cms-backend/internal/pkg/apperror"
	"github.com/ignatzorin/cms-backend/internal/validation"
)

// PostRepository описывает зависимости PostService от слоя хранилища постов.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByIDAndUserID(ctx context.Context, id, userID uuid.UUID) (*models.Post, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserResolver находит владельца по имени пользователя.
type UserResolver interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// DescriptionGenerator — клиент провайдера генерации.
type DescriptionGenerator interface {
	GenerateDescription(ctx context.Context, in ai.GenerateInput) (string, error)
}

// PhotoStore — двухфазное файловое хранилище фотографий.
type PhotoStore interface {
	SaveTemp(data []byte, originalName string) (string, error)
	SavePermanent(data []byte, originalName string) (string, error)
	Promote(tempPath string) (string, error)
	Remove(path string)
}

// PostService оркестрирует генерацию описаний и жизненный цикл постов.
type PostService struct {
	posts     PostRepository
	users     UserResolver
	generator DescriptionGenerator
	storage   PhotoStore
}

// GeneratePostInput — вход генерации (с сохранением или без).
type GeneratePostInput struct {
	Description string
	Hashtags    []string
	Size        models.DescriptionSize
	Photo       *ai.PhotoInput
}

// SavePostInput — сохранение ранее сгенерированного поста.
// Hashtags приходят уже отформатированной строкой и не переформатируются.
type SavePostInput struct {
	GeneratedDescription string
	OriginalDescription  string
	Hashtags             string
	TempPhotoPath        string
	Size                 string
}

// GeneratedPost — эфемерный результат генерации, в базу не записывается.
type GeneratedPost struct {
	GeneratedDescription string
	OriginalDescription  string
	Hashtags             string
	TempPhotoPath        string
	Size                 string
	GeneratedAt          time.Time
}

// NewPostService создаёт сервис постов.
func NewPostService(posts PostRepository, users UserResolver, generator DescriptionGenerator, storage PhotoStore) *PostService {
	return &PostService{
		posts:     posts,
		users:     users,
		generator: generator,
		storage:   storage,
	}
}

// Generate генерирует описание без сохранения поста. Фотография, если есть,
// откладывается во временную область; при любой последующей ошибке временный
// файл остаётся на месте, его подберёт фоновая чистка по TTL.
func (s *PostService) Generate(ctx context.Context, in GeneratePostInput, username string) (*GeneratedPost, error) {
	if err := s.validateGenerateInput(in); err != nil {
		return nil, err
	}

	var tempPhotoPath string
	if in.Photo != nil {
		path, err := s.storage.SaveTemp(in.Photo.Data, in.Photo.Filename)
		if err != nil {
			return nil, err
		}
		tempPhotoPath = path
		s.log(logrus.Fields{"user": username, "temp_path": path}).Info("post service: фото сохранено во временную область")
	}

	generated, err := s.generator.GenerateDescription(ctx, ai.GenerateInput{
		Description: in.Description,
		Hashtags:    in.Hashtags,
		Size:        in.Size,
		Photo:       in.Photo,
	})
	if err != nil {
		return nil, err
	}

	return &GeneratedPost{
		GeneratedDescription: generated,
		OriginalDescription:  in.Description,
		Hashtags:             ai.FormatHashtags(in.Hashtags),
		TempPhotoPath:        tempPhotoPath,
		Size:                 string(in.Size),
		GeneratedAt:          time.Now(),
	}, nil
}

// SaveGenerated сохраняет ранее сгенерированный пост. Временная фотография,
// если указана, переносится в постоянное хранилище до записи в базу.
// Перенос файла не откатывается при неудачном коммите — известное окно
// несогласованности, см. DESIGN.md.
func (s *PostService) SaveGenerated(ctx context.Context, in SavePostInput, username string) (*models.Post, error) {
	if in.GeneratedDescription == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "сгенерированное описание обязательно")
	}
	if !models.DescriptionSize(in.Size).Valid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "size должен быть SHORT, MEDIUM или LONG")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	var photoPath *string
	if in.TempPhotoPath != "" {
		permanent, err := s.storage.Promote(in.TempPhotoPath)
		if err != nil {
			return nil, err
		}
		photoPath = &permanent
		s.log(logrus.Fields{"user": username, "photo_path": permanent}).Info("post service: фото перенесено в постоянное хранилище")
	}

	post := &models.Post{
		UserID:               user.ID,
		OriginalDescription:  optionalString(in.OriginalDescription),
		GeneratedDescription: in.GeneratedDescription,
		Hashtags:             in.Hashtags,
		PhotoPath:            photoPath,
		Size:                 in.Size,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.log(logrus.Fields{"user": username, "post_id": post.ID}).Info("post service: пост сохранён")

	return post, nil
}

// GenerateAndSave генерирует описание и сразу сохраняет пост. Владелец
// резолвится до обращения к провайдеру, чтобы не тратить вызов API на запрос,
// который нельзя сохранить. Фотография пишется сразу в постоянное хранилище:
// генерация и сохранение здесь атомарны с точки зрения пользователя,
// staging не нужен.
func (s *PostService) GenerateAndSave(ctx context.Context, in GeneratePostInput, username string) (*models.Post, error) {
	if err := s.validateGenerateInput(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	var photoPath *string
	if in.Photo != nil {
		permanent, err := s.storage.SavePermanent(in.Photo.Data, in.Photo.Filename)
		if err != nil {
			return nil, err
		}
		photoPath = &permanent
		s.log(logrus.Fields{"user": username, "photo_path": permanent}).Info("post service: фото сохранено")
	}

	generated, err := s.generator.GenerateDescription(ctx, ai.GenerateInput{
		Description: in.Description,
		Hashtags:    in.Hashtags,
		Size:        in.Size,
		Photo:       in.Photo,
	})
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:               user.ID,
		OriginalDescription:  optionalString(in.Description),
		GeneratedDescription: generated,
		Hashtags:             ai.FormatHashtags(in.Hashtags),
		PhotoPath:            photoPath,
		Size:                 string(in.Size),
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.log(logrus.Fields{"user": username, "post_id": post.ID}).Info("post service: пост сгенерирован и сохранён")

	return post, nil
}

// ListPosts возвращает посты пользователя от новых к старым.
func (s *PostService) ListPosts(ctx context.Context, username string) ([]models.Post, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	return s.posts.ListByUserID(ctx, user.ID)
}

// GetPost возвращает пост пользователя. Чужой или несуществующий пост
// дают одинаковую ошибку ErrPostNotFound.
func (s *PostService) GetPost(ctx context.Context, id uuid.UUID, username string) (*models.Post, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	return s.posts.GetByIDAndUserID(ctx, id, user.ID)
}

// DeletePost удаляет пост пользователя вместе с фотографией.
// Удаление файла best-effort: неудача логируется и не отменяет удаление записи.
func (s *PostService) DeletePost(ctx context.Context, id uuid.UUID, username string) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	post, err := s.posts.GetByIDAndUserID(ctx, id, user.ID)
	if err != nil {
		return err
	}

	if post.PhotoPath != nil {
		s.storage.Remove(*post.PhotoPath)
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}

	s.log(logrus.Fields{"user": username, "post_id": post.ID}).Info("post service: пост удалён")

	return nil
}

// validateGenerateInput проверяет обязательные поля до какого-либо I/O.
func (s *PostService) validateGenerateInput(in GeneratePostInput) error {
	if err := validation.ValidateDescription(in.Description); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if !in.Size.Valid() {
		return apperror.New(apperror.ErrCodeValidation, "size должен быть SHORT, MEDIUM или LONG")
	}
	if err := validation.ValidateHashtags(in.Hashtags); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return nil
}

// optionalString превращает пустую строку в nil.
func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// log возвращает entry логгера, безопасно переживая неинициализированный логгер в тестах.
func (s *PostService) log(fields logrus.Fields) *logrus.Entry {
	if logger.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		return l.WithFields(fields)
	}
	return logger.Log.WithFields(fields)
}
