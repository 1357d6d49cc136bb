package ai

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/h2non/filetype"

	"github.com/ignatzorin/cms-backend/internal/models"
)

// PhotoInput содержит загруженную фотографию для анализа.
type PhotoInput struct {
	Data     []byte
	MIME     string
	Filename string
}

// GenerateInput описывает запрос на генерацию описания поста.
type GenerateInput struct {
	Description string
	Hashtags    []string
	Size        models.DescriptionSize
	Photo       *PhotoInput
}

// systemMessage — фиксированная инструкция для модели.
const systemMessage = "Ты — опытный SMM-копирайтер. Пишешь живые, цепляющие описания " +
	"для постов в социальных сетях на языке пользователя. Не используешь нумерацию, " +
	"не объясняешь свои действия, возвращаешь только готовый текст поста."

// maxTokensBySize задаёт потолок генерации на размер.
// Таблица настраивается отдельно на каждое значение, не вычисляется из текста.
var maxTokensBySize = map[models.DescriptionSize]int{
	models.SizeShort:  200,
	models.SizeMedium: 500,
	models.SizeLong:   1000,
}

// lengthDirectives переводят размер в явное указание модели.
var lengthDirectives = map[models.DescriptionSize]string{
	models.SizeShort:  "Сделай описание коротким: одно-два предложения, не более 30 слов.",
	models.SizeMedium: "Сделай описание средней длины: небольшой абзац из трёх-пяти предложений.",
	models.SizeLong:   "Сделай описание развёрнутым: несколько абзацев, до 200 слов.",
}

// MaxTokensFor возвращает бюджет токенов для размера.
func MaxTokensFor(size models.DescriptionSize) int {
	if tokens, ok := maxTokensBySize[size]; ok {
		return tokens
	}
	return maxTokensBySize[models.SizeMedium]
}

// BuildPrompt собирает текстовую инструкцию из запроса.
// Чистая детерминированная сборка строки, без побочных эффектов.
func BuildPrompt(in GenerateInput) string {
	var b strings.Builder

	b.WriteString("Напиши описание для поста в социальной сети.")

	if desc := strings.TrimSpace(in.Description); desc != "" {
		b.WriteString("\n\nТема и контекст поста: ")
		b.WriteString(desc)
	}

	if tags := FormatHashtags(in.Hashtags); tags != "" {
		b.WriteString("\n\nОбязательно используй хэштеги: ")
		b.WriteString(tags)
	}

	b.WriteString("\n\n")
	if directive, ok := lengthDirectives[in.Size]; ok {
		b.WriteString(directive)
	} else {
		b.WriteString(lengthDirectives[models.SizeMedium])
	}

	if in.Photo != nil {
		b.WriteString("\n\nК посту приложена фотография. Внимательно проанализируй изображение " +
			"и вплети в описание конкретные визуальные детали: что изображено, атмосфера, цвета, настроение.")
	}

	return b.String()
}

// FormatHashtags нормализует хэштеги: каждому добавляется ведущий #,
// теги соединяются одним пробелом. Пустой список даёт пустую строку.
func FormatHashtags(hashtags []string) string {
	if len(hashtags) == 0 {
		return ""
	}

	formatted := make([]string, 0, len(hashtags))
	for _, tag := range hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		formatted = append(formatted, tag)
	}

	return strings.Join(formatted, " ")
}

// textPart и imagePart — части мультимодального сообщения user.
type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imagePart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL string `json:"url"`
}

// buildUserContent собирает содержимое user-сообщения: чистый текст без фото,
// массив из текстовой и графической части — с фото.
func buildUserContent(prompt string, photo *PhotoInput) any {
	if photo == nil {
		return prompt
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s",
		photoMIME(photo),
		base64.StdEncoding.EncodeToString(photo.Data),
	)

	return []any{
		textPart{Type: "text", Text: prompt},
		imagePart{Type: "image_url", ImageURL: imageURL{URL: dataURI}},
	}
}

// photoMIME возвращает заявленный MIME тип, если он похож на изображение.
// Иначе пробует определить тип по магическим байтам, с дефолтом image/jpeg.
func photoMIME(photo *PhotoInput) string {
	if strings.HasPrefix(photo.MIME, "image/") {
		return photo.MIME
	}

	if kind, err := filetype.Match(photo.Data); err == nil && kind != filetype.Unknown &&
		strings.HasPrefix(kind.MIME.Value, "image/") {
		return kind.MIME.Value
	}

	return "image/jpeg"
}
