package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/cms-backend/internal/models"
)

func TestMaxTokensFor(t *testing.T) {
	assert.Equal(t, 200, MaxTokensFor(models.SizeShort))
	assert.Equal(t, 500, MaxTokensFor(models.SizeMedium))
	assert.Equal(t, 1000, MaxTokensFor(models.SizeLong))

	// Неизвестный размер падает в MEDIUM
	assert.Equal(t, 500, MaxTokensFor(models.DescriptionSize("HUGE")))
}

func TestFormatHashtags(t *testing.T) {
	assert.Equal(t, "#море #лето", FormatHashtags([]string{"море", "лето"}))

	// Уже имеющийся # не дублируется
	assert.Equal(t, "#a #b", FormatHashtags([]string{"a", "#b"}))

	// Пустые и пробельные элементы пропускаются
	assert.Equal(t, "#закат", FormatHashtags([]string{"", "  ", "закат"}))

	assert.Equal(t, "", FormatHashtags(nil))
	assert.Equal(t, "", FormatHashtags([]string{}))
}

func TestBuildPrompt_TextOnly(t *testing.T) {
	prompt := BuildPrompt(GenerateInput{
		Description: "закат на море",
		Hashtags:    []string{"море", "отпуск"},
		Size:        models.SizeShort,
	})

	assert.Contains(t, prompt, "Тема и контекст поста: закат на море")
	assert.Contains(t, prompt, "#море #отпуск")
	assert.Contains(t, prompt, lengthDirectives[models.SizeShort])
	assert.NotContains(t, prompt, "фотография")
}

func TestBuildPrompt_WithPhoto(t *testing.T) {
	prompt := BuildPrompt(GenerateInput{
		Description: "утро в горах",
		Size:        models.SizeLong,
		Photo:       &PhotoInput{Data: []byte{0x01}, MIME: "image/png", Filename: "morning.png"},
	})

	assert.Contains(t, prompt, lengthDirectives[models.SizeLong])
	assert.Contains(t, prompt, "проанализируй изображение")
}

func TestBuildPrompt_NoHashtagsSection(t *testing.T) {
	prompt := BuildPrompt(GenerateInput{
		Description: "новый пост",
		Size:        models.SizeMedium,
	})

	assert.NotContains(t, prompt, "хэштеги")
}

func TestBuildUserContent_TextOnly(t *testing.T) {
	content := buildUserContent("промпт", nil)

	text, ok := content.(string)
	assert.True(t, ok, "без фото содержимое должно быть строкой")
	assert.Equal(t, "промпт", text)
}

func TestBuildUserContent_WithPhoto(t *testing.T) {
	photo := &PhotoInput{Data: []byte("abc"), MIME: "image/jpeg", Filename: "photo.jpg"}
	content := buildUserContent("промпт", photo)

	parts, ok := content.([]any)
	if !ok {
		t.Fatalf("с фото содержимое должно быть массивом частей")
	}
	assert.Len(t, parts, 2)

	text, ok := parts[0].(textPart)
	assert.True(t, ok)
	assert.Equal(t, "промпт", text.Text)

	image, ok := parts[1].(imagePart)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(image.ImageURL.URL, "data:image/jpeg;base64,"))
	assert.Contains(t, image.ImageURL.URL, "YWJj")
}

func TestPhotoMIME(t *testing.T) {
	// Заявленный image/* тип используется как есть
	assert.Equal(t, "image/webp", photoMIME(&PhotoInput{MIME: "image/webp"}))

	// PNG определяется по магическим байтам
	pngHeader := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	assert.Equal(t, "image/png", photoMIME(&PhotoInput{MIME: "application/octet-stream", Data: pngHeader}))

	// Нераспознанные данные падают в image/jpeg
	assert.Equal(t, "image/jpeg", photoMIME(&PhotoInput{MIME: "text/plain", Data: []byte("not an image")}))
}
