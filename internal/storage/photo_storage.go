package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lostfoundhub/lostfound-backend/internal/pkg/apperror"
)

// Пространства имён хранилища: картинки предметов и аватары лежат отдельно.
const (
	NamespaceItems   = "items"
	NamespaceAvatars = "avatars"
)

// PhotoStorage отвечает за файловое хранилище изображений.
type PhotoStorage struct {
	rootPath string
}

// NewPhotoStorage создаёт файловое хранилище.
func NewPhotoStorage(rootPath string) (*PhotoStorage, error) {
	for _, ns := range []string{NamespaceItems, NamespaceAvatars} {
		if err := os.MkdirAll(filepath.Join(rootPath, ns), 0o755); err != nil {
			return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", ns, err)
		}
	}

	return &PhotoStorage{rootPath: rootPath}, nil
}

// Save сохраняет файл в указанное пространство имён и возвращает относительный путь.
// maxBytes ограничивает размер, запись идёт через временный файл с переименованием.
func (s *PhotoStorage) Save(ctx context.Context, namespace, originalName string, r io.Reader, maxBytes int64) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	safeName := sanitizeFilename(originalName)
	fileName := fmt.Sprintf("%s_%d%s", uuid.NewString(), time.Now().UnixNano(), filepath.Ext(safeName))

	targetPath := filepath.Join(s.rootPath, namespace, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, fmt.Errorf("storage: не удалось создать файл: %w", err)
	}
	defer f.Close()

	limitedReader := io.LimitedReader{R: r, N: maxBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", 0, fmt.Errorf("storage: ошибка записи файла: %w", err)
	}

	if written > maxBytes {
		_ = os.Remove(tempPath)
		return "", 0, apperror.Newf(apperror.ErrCodeValidation,
			"размер файла превышает лимит %d байт", maxBytes)
	}

	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("storage: ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", 0, fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return filepath.ToSlash(filepath.Join(namespace, fileName)), written, nil
}

// Delete удаляет файл из хранилища. Отсутствие файла не считается ошибкой.
func (s *PhotoStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.rootPath, filepath.FromSlash(relativePath))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "photo"
	}
	return name
}
