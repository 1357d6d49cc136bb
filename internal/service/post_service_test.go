package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/cms-backend/internal/ai"
	"github.com/ignatzorin/cms-backend/internal/models"
	"github.com/ignatzorin/cms-backend/internal/pkg/apperror"
)

type mockPostRepo struct {
	mock.Mock
}

func (m *mockPostRepo) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	if args.Error(0) == nil {
		post.ID = uuid.New()
		post.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *mockPostRepo) GetByIDAndUserID(ctx context.Context, id, userID uuid.UUID) (*models.Post, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *mockPostRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Post, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Post), args.Error(1)
}

func (m *mockPostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockUserResolver struct {
	mock.Mock
}

func (m *mockUserResolver) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateDescription(ctx context.Context, in ai.GenerateInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

type mockPhotoStore struct {
	mock.Mock
}

func (m *mockPhotoStore) SaveTemp(data []byte, originalName string) (string, error) {
	args := m.Called(data, originalName)
	return args.String(0), args.Error(1)
}

func (m *mockPhotoStore) SavePermanent(data []byte, originalName string) (string, error) {
	args := m.Called(data, originalName)
	return args.String(0), args.Error(1)
}

func (m *mockPhotoStore) Promote(tempPath string) (string, error) {
	args := m.Called(tempPath)
	return args.String(0), args.Error(1)
}

func (m *mockPhotoStore) Remove(path string) {
	m.Called(path)
}

func newPostServiceWithMocks() (*PostService, *mockPostRepo, *mockUserResolver, *mockGenerator, *mockPhotoStore) {
	posts := new(mockPostRepo)
	users := new(mockUserResolver)
	generator := new(mockGenerator)
	store := new(mockPhotoStore)
	return NewPostService(posts, users, generator, store), posts, users, generator, store
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Username: "ivan"}
}

func TestPostService_Generate_WithoutPhoto(t *testing.T) {
	svc, _, _, generator, store := newPostServiceWithMocks()
	ctx := context.Background()

	generator.On("GenerateDescription", ctx, mock.MatchedBy(func(in ai.GenerateInput) bool {
		return in.Description == "закат на море" && in.Photo == nil
	})).Return("Золотой закат над морем.", nil)

	result, err := svc.Generate(ctx, GeneratePostInput{
		Description: "закат на море",
		Hashtags:    []string{"море", "отпуск"},
		Size:        models.SizeShort,
	}, "ivan")

	assert.NoError(t, err)
	assert.Equal(t, "Золотой закат над морем.", result.GeneratedDescription)
	assert.Equal(t, "закат на море", result.OriginalDescription)
	assert.Equal(t, "#море #отпуск", result.Hashtags)
	assert.Equal(t, "SHORT", result.Size)
	assert.Empty(t, result.TempPhotoPath)
	assert.False(t, result.GeneratedAt.IsZero())

	// Без фото хранилище не трогаем
	store.AssertNotCalled(t, "SaveTemp", mock.Anything, mock.Anything)
}

func TestPostService_Generate_WithPhoto(t *testing.T) {
	svc, _, _, generator, store := newPostServiceWithMocks()
	ctx := context.Background()

	photo := &ai.PhotoInput{Data: []byte("img"), MIME: "image/jpeg", Filename: "sunset.jpg"}

	store.On("SaveTemp", photo.Data, "sunset.jpg").Return("storage/uploads/temp/temp_abc.jpg", nil)
	generator.On("GenerateDescription", ctx, mock.Anything).Return("Описание с фото.", nil)

	result, err := svc.Generate(ctx, GeneratePostInput{
		Description: "фото с пляжа",
		Size:        models.SizeMedium,
		Photo:       photo,
	}, "ivan")

	assert.NoError(t, err)
	assert.Equal(t, "storage/uploads/temp/temp_abc.jpg", result.TempPhotoPath)
	store.AssertExpectations(t)
}

func TestPostService_Generate_ValidationStopsEarly(t *testing.T) {
	svc, _, _, generator, store := newPostServiceWithMocks()
	ctx := context.Background()

	_, err := svc.Generate(ctx, GeneratePostInput{
		Description: "   ",
		Size:        models.SizeShort,
	}, "ivan")
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Generate(ctx, GeneratePostInput{
		Description: "пост",
		Size:        models.DescriptionSize("GIGANTIC"),
	}, "ivan")
	assert.True(t, apperror.IsValidation(err))

	generator.AssertNotCalled(t, "GenerateDescription", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "SaveTemp", mock.Anything, mock.Anything)
}

func TestPostService_Generate_StagedFileKeptOnFailure(t *testing.T) {
	svc, _, _, generator, store := newPostServiceWithMocks()
	ctx := context.Background()

	photo := &ai.PhotoInput{Data: []byte("img"), MIME: "image/png", Filename: "cat.png"}

	store.On("SaveTemp", photo.Data, "cat.png").Return("storage/uploads/temp/temp_cat.png", nil)
	generator.On("GenerateDescription", ctx, mock.Anything).Return("", apperror.New(apperror.ErrCodeUpstream, "провайдер недоступен"))

	_, err := svc.Generate(ctx, GeneratePostInput{
		Description: "кот",
		Size:        models.SizeShort,
		Photo:       photo,
	}, "ivan")

	assert.True(t, apperror.IsUpstream(err))
	// Временный файл остаётся, его подберёт фоновая чистка
	store.AssertNotCalled(t, "Remove", mock.Anything)
}

func TestPostService_SaveGenerated_PromotesPhoto(t *testing.T) {
	svc, posts, users, _, store := newPostServiceWithMocks()
	ctx := context.Background()
	user := testUser()

	users.On("GetByUsername", ctx, "ivan").Return(user, nil)
	store.On("Promote", "storage/uploads/temp/temp_abc.jpg").Return("storage/uploads/abc.jpg", nil)
	posts.On("Create", ctx, mock.MatchedBy(func(p *models.Post) bool {
		return p.UserID == user.ID &&
			p.GeneratedDescription == "Готовое описание." &&
			p.Hashtags == "#море #отпуск" &&
			p.PhotoPath != nil && *p.PhotoPath == "storage/uploads/abc.jpg"
	})).Return(nil)

	post, err := svc.SaveGenerated(ctx, SavePostInput{
		GeneratedDescription: "Готовое описание.",
		OriginalDescription:  "закат на море",
		Hashtags:             "#море #отпуск",
		TempPhotoPath:        "storage/uploads/temp/temp_abc.jpg",
		Size:                 "SHORT",
	}, "ivan")

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, post.ID)
	posts.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestPostService_SaveGenerated_WithoutPhoto(t *testing.T) {
	svc, posts, users, _, store := newPostServiceWithMocks()
	ctx := context.Background()
	user := testUser()

	users.On("GetByUsername", ctx, "ivan").Return(user, nil)
	posts.On("Create", ctx, mock.MatchedBy(func(p *models.Post) bool {
		return p.PhotoPath == nil
	})).Return(nil)

	_, err := svc.SaveGenerated(ctx, SavePostInput{
		GeneratedDescription: "Описание.",
		Size:                 "MEDIUM",
	}, "ivan")

	assert.NoError(t, err)
	store.AssertNotCalled(t, "Promote", mock.Anything)
}

func TestPostService_SaveGenerated_Validation(t *testing.T) {
	svc, _, users, _, _ := newPostServiceWithMocks()
	ctx := context.Background()

	_, err := svc.SaveGenerated(ctx, SavePostInput{Size: "SHORT"}, "ivan")
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.SaveGenerated(ctx, SavePostInput{GeneratedDescription: "x", Size: "tiny"}, "ivan")
	assert.True(t, apperror.IsValidation(err))

	users.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
}

func TestPostService_SaveGenerated_PromoteMissingFile(t *testing.T) {
	svc, posts, users, _, store := newPostServiceWithMocks()
	ctx := context.Background()

	users.On("GetByUsername", ctx, "ivan").Return(testUser(), nil)
	store.On("Promote", "storage/uploads/temp/temp_gone.jpg").Return("", apperror.ErrFileNotFound)

	_, err := svc.SaveGenerated(ctx, SavePostInput{
		GeneratedDescription: "Описание.",
		TempPhotoPath:        "storage/uploads/temp/temp_gone.jpg",
		Size:                 "LONG",
	}, "ivan")

	assert.ErrorIs(t, err, apperror.ErrFileNotFound)
	posts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPostService_GenerateAndSave(t *testing.T) {
	svc, posts, users, generator, store := newPostServiceWithMocks()
	ctx := context.Background()
	user := testUser()

	photo := &ai.PhotoInput{Data: []byte("img"), MIME: "image/jpeg", Filename: "sea.jpg"}

	users.On("GetByUsername", ctx, "ivan").Return(user, nil)
	store.On("SavePermanent", photo.Data, "sea.jpg").Return("storage/uploads/sea.jpg", nil)
	generator.On("GenerateDescription", ctx, mock.Anything).Return("Море зовёт.", nil)
	posts.On("Create", ctx, mock.MatchedBy(func(p *models.Post) bool {
		return p.UserID == user.ID &&
			p.GeneratedDescription == "Море зовёт." &&
			p.Hashtags == "#море #отпуск" &&
			p.OriginalDescription != nil && *p.OriginalDescription == "закат на море" &&
			p.PhotoPath != nil && *p.PhotoPath == "storage/uploads/sea.jpg" &&
			p.Size == "SHORT"
	})).Return(nil)

	post, err := svc.GenerateAndSave(ctx, GeneratePostInput{
		Description: "закат на море",
		Hashtags:    []string{"море", "отпуск"},
		Size:        models.SizeShort,
		Photo:       photo,
	}, "ivan")

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, post.ID)
	posts.AssertExpectations(t)
}

func TestPostService_GenerateAndSave_UnknownUserSkipsGeneration(t *testing.T) {
	svc, _, users, generator, store := newPostServiceWithMocks()
	ctx := context.Background()

	users.On("GetByUsername", ctx, "ghost").Return(nil, apperror.ErrUserNotFound)

	_, err := svc.GenerateAndSave(ctx, GeneratePostInput{
		Description: "пост",
		Size:        models.SizeMedium,
	}, "ghost")

	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
	// Владелец резолвится до обращения к провайдеру
	generator.AssertNotCalled(t, "GenerateDescription", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "SavePermanent", mock.Anything, mock.Anything)
}

func TestPostService_ListPosts(t *testing.T) {
	svc, posts, users, _, _ := newPostServiceWithMocks()
	ctx := context.Background()
	user := testUser()

	newer := models.Post{ID: uuid.New(), UserID: user.ID, GeneratedDescription: "второй"}
	older := models.Post{ID: uuid.New(), UserID: user.ID, GeneratedDescription: "первый"}

	users.On("GetByUsername", ctx, "ivan").Return(user, nil)
	posts.On("ListByUserID", ctx, user.ID).Return([]models.Post{newer, older}, nil)

	result, err := svc.ListPosts(ctx, "ivan")

	assert.NoError(t, err)
	// Порядок репозитория (новые первыми) сохраняется
	assert.Equal(t, []models.Post{newer, older}, result)
}

func TestPostService_GetPost_Foreign(t *testing.T) {
	svc, posts, users, _, _ := newPostServiceWithMocks()
	ctx := context.Background()
	user := testUser()
	postID := uuid.New()

	users.On("GetByUsername", ctx, "ivan").Return(user, nil)
	// Чужой пост неотличим от несуществующего
	posts.On("GetByIDAndUserID", ctx, postID, user.ID).Return(nil, apperror.ErrPostNotFound)

	_, err := svc.GetPost(ctx, postID, "ivan")
	assert.ErrorIs(t, err, apperror.ErrPostNotFound)
}

func TestPostService_DeletePost_RemovesPhoto(t *testing.T) {
	svc, posts, users, _, store := newPostServiceWithMocks()
	ctx := context.Background()
	user := testUser()
	postID := uuid.New()
	photoPath := "storage/uploads/abc.jpg"

	users.On("GetByUsername", ctx, "ivan").Return(user, nil)
	posts.On("GetByIDAndUserID", ctx, postID, user.ID).Return(&models.Post{
		ID:        postID,
		UserID:    user.ID,
		PhotoPath: &photoPath,
	}, nil)
	store.On("Remove", photoPath).Return()
	posts.On("Delete", ctx, postID).Return(nil)

	err := svc.DeletePost(ctx, postID, "ivan")

	assert.NoError(t, err)
	store.AssertExpectations(t)
	posts.AssertExpectations(t)
}

func TestPostService_DeletePost_WithoutPhoto(t *testing.T) {
	svc, posts, users, _, store := newPostServiceWithMocks()
	ctx := context.Background()
	user := testUser()
	postID := uuid.New()

	users.On("GetByUsername", ctx, "ivan").Return(user, nil)
	posts.On("GetByIDAndUserID", ctx, postID, user.ID).Return(&models.Post{ID: postID, UserID: user.ID}, nil)
	posts.On("Delete", ctx, postID).Return(nil)

	err := svc.DeletePost(ctx, postID, "ivan")

	assert.NoError(t, err)
	store.AssertNotCalled(t, "Remove", mock.Anything)
}
