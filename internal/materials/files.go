package materials

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"materials/internal/domain"
	"materials/internal/storage"
)

// AllowedExtensions lists the accepted upload extensions, lower-case.
var AllowedExtensions = []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".svg", ".webp"}

const (
	materialsDir      = "materials"
	generatedBaseName = "material"
	fallbackExt       = ".png"
)

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// StoredFile describes where a material's bytes ended up.
type StoredFile struct {
	Filename     string
	RelativePath string
	URL          string
}

// FileAdapter names material files and writes them through a storage.Store.
// It never touches the database.
type FileAdapter struct {
	store     storage.Store
	urlPrefix string
	now       func() time.Time
}

func NewFileAdapter(store storage.Store, urlPrefix string) *FileAdapter {
	prefix := strings.TrimRight(strings.TrimSpace(urlPrefix), "/")
	if prefix == "" {
		prefix = "/files"
	}
	return &FileAdapter{store: store, urlPrefix: prefix, now: time.Now}
}

// Store validates an uploaded file and persists it under a unique name.
func (a *FileAdapter) Store(ctx context.Context, upload Upload, projectID *string) (StoredFile, error) {
	if strings.TrimSpace(upload.Filename) == "" || len(upload.Data) == 0 {
		return StoredFile{}, domain.InvalidInput("file is required", nil)
	}

	name := storage.SanitizeFilename(upload.Filename)
	ext := strings.ToLower(path.Ext(name))
	if !isAllowedExtension(ext) {
		return StoredFile{}, domain.InvalidInput(
			"Unsupported file type. Allowed: "+strings.Join(AllowedExtensions, ", "), nil)
	}
	base := strings.TrimSuffix(name, path.Ext(name))

	return a.put(ctx, a.uniqueName(base, ext), upload.Data, projectID)
}

// StoreGenerated persists generator output as material_<millis><ext>, with the
// extension taken from the content.
func (a *FileAdapter) StoreGenerated(ctx context.Context, data []byte, projectID *string) (StoredFile, error) {
	if len(data) == 0 {
		return StoredFile{}, domain.Internal("generated image is empty", nil)
	}
	return a.put(ctx, a.uniqueName(generatedBaseName, detectExtension(data)), data, projectID)
}

func (a *FileAdapter) put(ctx context.Context, filename string, data []byte, projectID *string) (StoredFile, error) {
	key := path.Join(materialsDir, filename)
	if projectID != nil {
		key = path.Join(*projectID, materialsDir, filename)
	}

	relative, err := a.store.Write(ctx, key, data)
	if err != nil {
		return StoredFile{}, domain.Internal("failed to store file", fmt.Errorf("write %s: %w", key, err))
	}
	return StoredFile{
		Filename:     filename,
		RelativePath: relative,
		URL:          a.urlPrefix + "/" + relative,
	}, nil
}

// uniqueName appends the current unix milliseconds. Two identical names in the
// same millisecond collide.
func (a *FileAdapter) uniqueName(base, ext string) string {
	return fmt.Sprintf("%s_%d%s", base, a.now().UnixMilli(), ext)
}

func isAllowedExtension(ext string) bool {
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func detectExtension(data []byte) string {
	ext := strings.ToLower(mimetype.Detect(data).Extension())
	if isAllowedExtension(ext) {
		return ext
	}
	return fallbackExt
}
