// Package filestore сохраняет загруженные рецепты на локальный диск.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// DefaultPublicPath - URL-префикс, под которым раздаются файлы.
const DefaultPublicPath = "/uploads"

var (
	// ErrInvalidFolder - имя папки содержит недопустимые символы.
	ErrInvalidFolder = errors.New("invalid upload folder")
	// ErrForeignURL - ссылка не указывает на файл этого хранилища.
	ErrForeignURL = errors.New("url does not belong to the upload store")

	folderPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	extPattern    = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,8}$`)
	// storedNamePattern - имя, которое выдаёт Save: uuid и необязательное расширение.
	storedNamePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}(\.[a-z0-9]{1,8})?$`)
)

// LocalStore пишет файлы в baseDir/<folder>/<uuid><ext>.
type LocalStore struct {
	baseDir    string
	publicPath string
	maxSize    int64
}

// Option настраивает LocalStore.
type Option func(*LocalStore)

// WithPublicPath меняет URL-префикс возвращаемых ссылок.
func WithPublicPath(p string) Option {
	return func(s *LocalStore) {
		if p = strings.TrimRight(p, "/"); p != "" {
			s.publicPath = p
		}
	}
}

// WithMaxSize ограничивает размер одного файла.
func WithMaxSize(n int64) Option {
	return func(s *LocalStore) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// NewLocalStore создаёт хранилище и каталог baseDir.
func NewLocalStore(baseDir string, opts ...Option) (*LocalStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("upload directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	s := &LocalStore{baseDir: baseDir, publicPath: DefaultPublicPath}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save записывает файл. Исходное имя используется только для расширения.
// Недописанный файл удаляется.
func (s *LocalStore) Save(ctx context.Context, folder, name, _ string, r io.Reader) (domain.StoredFile, error) {
	if !folderPattern.MatchString(folder) {
		return domain.StoredFile{}, fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	if err := ctx.Err(); err != nil {
		return domain.StoredFile{}, err
	}

	dir := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.StoredFile{}, fmt.Errorf("create folder: %w", err)
	}

	fileName := uuid.NewString() + safeExt(name)
	target := filepath.Join(dir, fileName)
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return domain.StoredFile{}, fmt.Errorf("create file: %w", err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		err = fmt.Errorf("write file: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close file: %w", closeErr)
	case s.maxSize > 0 && n > s.maxSize:
		err = fmt.Errorf("file exceeds %d bytes", s.maxSize)
	}
	if err != nil {
		_ = os.Remove(target)
		return domain.StoredFile{}, err
	}

	return domain.StoredFile{URL: path.Join(s.publicPath, folder, fileName), Size: n}, nil
}

// Delete удаляет файл по ссылке, выданной Save.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, ok := strings.CutPrefix(url, s.publicPath+"/")
	if !ok {
		return fmt.Errorf("%w: %q", ErrForeignURL, url)
	}
	folder, name, ok := strings.Cut(rel, "/")
	if !ok || !folderPattern.MatchString(folder) || !storedNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrForeignURL, url)
	}

	err := os.Remove(filepath.Join(s.baseDir, folder, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// PublicPath возвращает URL-префикс файлов.
func (s *LocalStore) PublicPath() string {
	return s.publicPath
}

// Handler раздаёт сохранённые файлы; монтируется под PublicPath.
func (s *LocalStore) Handler() http.Handler {
	return http.StripPrefix(s.publicPath+"/", http.FileServer(noListing{http.Dir(s.baseDir)}))
}

// noListing запрещает листинг каталогов.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

var _ domain.FileStore = (*LocalStore)(nil)
