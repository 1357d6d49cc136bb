package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignatzorin/cms-backend/internal/pkg/apperror"
)

// MaxPhotoBytes — жёсткий потолок размера фотографии (20 MiB).
// Превышение отклоняется до какого-либо сетевого вызова.
const MaxPhotoBytes = 20 << 20

// Client выполняет запросы к OpenAI-совместимому chat/completions API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента.
func NewClient(baseURL, apiKey, model string) *Client {
	if model == "" {
		model = "gpt-4o"
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// message — элемент массива messages.
type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// GenerateDescription строит промпт и запрашивает у провайдера описание поста.
// Один запрос на вызов, без повторов: неудача сразу возвращается вызывающему.
func (c *Client) GenerateDescription(ctx context.Context, in GenerateInput) (string, error) {
	if in.Photo != nil && int64(len(in.Photo.Data)) > MaxPhotoBytes {
		return "", apperror.ErrPayloadTooLarge
	}

	prompt := BuildPrompt(in)

	payload := map[string]any{
		"model":             c.model,
		"temperature":       0.85,
		"max_tokens":        MaxTokensFor(in.Size),
		"top_p":             0.95,
		"frequency_penalty": 0.3,
		"presence_penalty":  0.3,
		"messages": []message{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: buildUserContent(prompt, in.Photo)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ai: не удалось сериализовать запрос: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: не удалось создать запрос: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeUpstream, "ошибка обращения к провайдеру генерации")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Тело ответа нужно для диагностики; сырые байты фото сюда не попадают.
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperror.Wrap(
			fmt.Errorf("код ответа %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
			apperror.ErrCodeUpstream,
			"провайдер генерации вернул ошибку",
		)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeMalformedResponse, "не удалось разобрать ответ провайдера")
	}

	// Контракт провайдера может измениться — проверяем путь choices[0].message.content явно.
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", apperror.New(apperror.ErrCodeMalformedResponse, "ответ провайдера не содержит текста")
	}

	return result.Choices[0].Message.Content, nil
}
