package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// ProductImageDir is the upload directory of product images; the date
// components are appended per upload.
const ProductImageDir = "products/products"

// maxStoredNameLength keeps relative paths inside the image column.
const maxStoredNameLength = 100

var (
	ErrEmptyFile       = errors.New("uploaded file is empty")
	ErrFileTooLarge    = errors.New("uploaded file exceeds the size limit")
	ErrUnsupportedType = errors.New("uploaded file is not a supported image")
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Image describes a stored image asset.
type Image struct {
	// Path is relative to the storage root and always uses forward slashes.
	Path     string
	MIMEType string
	Size     int64
}

// ImageStorage keeps uploaded images on the local filesystem and maps them
// to public URLs.
type ImageStorage struct {
	rootPath       string
	baseURL        string
	maxUploadBytes int64
	now            func() time.Time
}

// NewImageStorage creates the storage root if needed.
func NewImageStorage(rootPath, baseURL string, maxUploadMB int64) (*ImageStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory %s: %w", rootPath, err)
	}

	return &ImageStorage{
		rootPath:       rootPath,
		baseURL:        strings.TrimSuffix(baseURL, "/") + "/",
		maxUploadBytes: maxUploadMB * 1024 * 1024,
		now:            time.Now,
	}, nil
}

// Root returns the directory images are stored under.
func (s *ImageStorage) Root() string {
	return s.rootPath
}

// SaveProductImage stores an image under products/products/YYYY/MM/DD.
// The content is sniffed; anything that is not a supported image is rejected.
func (s *ImageStorage) SaveProductImage(ctx context.Context, originalName string, r io.Reader) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(261)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("storage: failed to read upload: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown || !allowedMimeTypes[kind.MIME.Value] {
		return nil, ErrUnsupportedType
	}

	dir := path.Join(ProductImageDir, s.now().UTC().Format("2006/01/02"))
	fileName := storedFileName(originalName, kind.Extension)
	relative := path.Join(dir, fileName)

	targetDir := filepath.Join(s.rootPath, filepath.FromSlash(dir))
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory: %w", err)
	}

	targetPath := filepath.Join(targetDir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create file: %w", err)
	}
	defer f.Close()

	limitedReader := io.LimitedReader{R: br, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limitedReader)
	if err != nil {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("storage: failed to write file: %w", err)
	}

	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxUploadBytes)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("storage: failed to close file: %w", err)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return nil, fmt.Errorf("storage: failed to rename file: %w", err)
	}

	return &Image{Path: relative, MIMEType: kind.MIME.Value, Size: written}, nil
}

// Delete removes a stored image. Missing files are not an error.
func (s *ImageStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if relativePath == "" {
		return nil
	}

	target := filepath.Join(s.rootPath, filepath.FromSlash(path.Clean("/" + relativePath)))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: failed to delete file: %w", err)
	}
	return nil
}

// URL returns the public URL of a stored image, or "" when there is none.
func (s *ImageStorage) URL(relativePath string) string {
	if relativePath == "" {
		return ""
	}
	return s.baseURL + strings.TrimPrefix(relativePath, "/")
}

// storedFileName keeps a sanitized stem of the original name and appends a
// unique suffix so concurrent uploads of the same file never collide.
func storedFileName(originalName, ext string) string {
	safe := sanitizeFilename(originalName)
	stem := strings.TrimSuffix(safe, filepath.Ext(safe))
	suffix := "_" + uuid.NewString()[:8] + "." + ext

	budget := maxStoredNameLength - len(ProductImageDir) - len("/2006/01/02/") - len(suffix)
	if len(stem) > budget {
		stem = stem[:budget]
	}
	if stem == "" {
		stem = "image"
	}
	return stem + suffix
}

// sanitizeFilename strips directory components and characters that are
// unsafe in a path or URL.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "." || name == "/" {
		return ""
	}
	return name
}
