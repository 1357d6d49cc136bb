package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/cms-backend/internal/logger"
	"github.com/ignatzorin/cms-backend/internal/pkg/apperror"
)

// tempPrefix помечает файл как временный до подтверждения поста.
const tempPrefix = "temp_"

// PhotoStorage отвечает за двухфазное файловое хранилище фотографий:
// временная область для черновиков и постоянная для сохранённых постов.
type PhotoStorage struct {
	uploadDir string
	tempDir   string
}

// NewPhotoStorage создаёт хранилище и готовит оба каталога.
func NewPhotoStorage(uploadDir, tempDir string) (*PhotoStorage, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", uploadDir, err)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", tempDir, err)
	}

	return &PhotoStorage{
		uploadDir: uploadDir,
		tempDir:   tempDir,
	}, nil
}

// SaveTemp сохраняет фотографию во временную область и возвращает путь к файлу.
// Имя генерируется случайно с сохранением исходного расширения; коллизии
// криптографически неправдоподобны и отдельно не обрабатываются.
func (s *PhotoStorage) SaveTemp(data []byte, originalName string) (string, error) {
	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeStagingIO, "не удалось подготовить временный каталог")
	}

	fileName := tempPrefix + uuid.NewString() + fileExt(originalName)
	target := filepath.Join(s.tempDir, fileName)

	if err := writeFileAtomic(target, data); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeStagingIO, "не удалось сохранить временный файл")
	}

	return target, nil
}

// SavePermanent сохраняет фотографию сразу в постоянную область, минуя staging.
func (s *PhotoStorage) SavePermanent(data []byte, originalName string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeStagingIO, "не удалось подготовить каталог хранилища")
	}

	fileName := uuid.NewString() + fileExt(originalName)
	target := filepath.Join(s.uploadDir, fileName)

	if err := writeFileAtomic(target, data); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeStagingIO, "не удалось сохранить файл")
	}

	return target, nil
}

// Promote переносит временный файл в постоянную область, снимая temp-префикс.
// Перенос выполняется через rename, существующий файл с тем же именем перезаписывается.
// Повторный Promote одного и того же пути не поддерживается: файл уже переименован.
func (s *PhotoStorage) Promote(tempPath string) (string, error) {
	if _, err := os.Stat(tempPath); err != nil {
		if os.IsNotExist(err) {
			return "", apperror.ErrFileNotFound
		}
		return "", apperror.Wrap(err, apperror.ErrCodeStagingIO, "не удалось проверить временный файл")
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeStagingIO, "не удалось подготовить каталог хранилища")
	}

	fileName := strings.TrimPrefix(filepath.Base(tempPath), tempPrefix)
	target := filepath.Join(s.uploadDir, fileName)

	if err := os.Rename(tempPath, target); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeStagingIO, "не удалось перенести файл в хранилище")
	}

	return target, nil
}

// Remove удаляет файл в best-effort режиме: неудача логируется и не прерывает
// основную операцию.
func (s *PhotoStorage) Remove(path string) {
	if path == "" {
		return
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		if logger.Log != nil {
			logger.Log.WithFields(map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			}).Warn("storage: не удалось удалить файл")
		}
	}
}

// SweepTemp удаляет временные файлы старше ttl и возвращает количество удалённых.
// Черновики, которые пользователь так и не сохранил, иначе копились бы бесконечно.
func (s *PhotoStorage) SweepTemp(ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("storage: не удалось прочитать временный каталог: %w", err)
	}

	deadline := time.Now().Add(-ttl)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(deadline) {
			s.Remove(filepath.Join(s.tempDir, entry.Name()))
			removed++
		}
	}

	return removed, nil
}

// writeFileAtomic пишет во временный файл и переименовывает, чтобы читатели
// не видели частично записанных данных.
func writeFileAtomic(target string, data []byte) error {
	tmp := target + ".part"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}

// fileExt возвращает расширение исходного имени файла или пустую строку.
func fileExt(originalName string) string {
	ext := filepath.Ext(filepath.Base(originalName))
	// Защита от мусора вида "photo." и имён без расширения
	if ext == "." {
		return ""
	}
	return ext
}
