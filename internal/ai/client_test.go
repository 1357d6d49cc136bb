package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/cms-backend/internal/models"
	"github.com/ignatzorin/cms-backend/internal/pkg/apperror"
)

func TestClient_GenerateDescription_Success(t *testing.T) {
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("не удалось разобрать тело запроса: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Закат окрасил море в золото."}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "gpt-4o")

	result, err := client.GenerateDescription(context.Background(), GenerateInput{
		Description: "закат на море",
		Hashtags:    []string{"море"},
		Size:        models.SizeShort,
	})

	assert.NoError(t, err)
	assert.Equal(t, "Закат окрасил море в золото.", result)

	// Параметры запроса фиксированы
	assert.Equal(t, "gpt-4o", gotPayload["model"])
	assert.Equal(t, 0.85, gotPayload["temperature"])
	assert.Equal(t, 0.95, gotPayload["top_p"])
	assert.Equal(t, 0.3, gotPayload["frequency_penalty"])
	assert.Equal(t, 0.3, gotPayload["presence_penalty"])
	assert.Equal(t, float64(200), gotPayload["max_tokens"])

	messages, ok := gotPayload["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("ожидались два сообщения (system и user), получили %v", gotPayload["messages"])
	}
}

func TestClient_GenerateDescription_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream down"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "gpt-4o")

	_, err := client.GenerateDescription(context.Background(), GenerateInput{
		Description: "пост",
		Size:        models.SizeMedium,
	})

	assert.Error(t, err)
	assert.True(t, apperror.IsUpstream(err))
}

func TestClient_GenerateDescription_TransportError(t *testing.T) {
	// Сервер сразу закрыт, соединение не установится
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "key", "gpt-4o")

	_, err := client.GenerateDescription(context.Background(), GenerateInput{
		Description: "пост",
		Size:        models.SizeMedium,
	})

	assert.Error(t, err)
	assert.True(t, apperror.IsUpstream(err))
}

func TestClient_GenerateDescription_MalformedResponse(t *testing.T) {
	cases := map[string]string{
		"не json":        `это не json`,
		"пустые choices": `{"choices":[]}`,
		"пустой content": `{"choices":[{"message":{"content":""}}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "key", "gpt-4o")

			_, err := client.GenerateDescription(context.Background(), GenerateInput{
				Description: "пост",
				Size:        models.SizeMedium,
			})

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("ожидалась AppError, получили %v", err)
			}
			assert.Equal(t, apperror.ErrCodeMalformedResponse, appErr.Code)
		})
	}
}

func TestClient_GenerateDescription_PhotoTooLarge(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "gpt-4o")

	oversized := make([]byte, MaxPhotoBytes+1)
	_, err := client.GenerateDescription(context.Background(), GenerateInput{
		Description: "пост",
		Size:        models.SizeShort,
		Photo:       &PhotoInput{Data: oversized, MIME: "image/jpeg", Filename: "big.jpg"},
	})

	assert.True(t, apperror.IsPayloadTooLarge(err))
	// Проверка размера срабатывает до сетевого вызова
	assert.Equal(t, int32(0), hits.Load())
}
