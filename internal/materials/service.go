package materials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"materials/internal/domain"
	"materials/internal/infra"
	"materials/internal/providers/image"
	"materials/internal/storage"
)

const (
	sourceUpload    = "upload"
	sourceGenerated = "generated"

	defaultReferenceName = "ref.png"
	defaultExtraName     = "extra.png"
)

// Options wires the collaborators of a Service.
type Options struct {
	Materials   domain.MaterialRepository
	Projects    domain.ProjectRepository
	Store       storage.Store
	Generator   image.Generator
	Logger      infra.Logger
	Metrics     *infra.Metrics
	URLPrefix   string
	ScratchDir  string
	AspectRatio string
	Resolution  string
}

// Service drives the upload, generate, delete and list flows. File writes and
// row writes are not atomic: a failed insert leaves the file behind.
type Service struct {
	gateway     *Gateway
	files       *FileAdapter
	materials   domain.MaterialRepository
	generator   image.Generator
	logger      infra.Logger
	metrics     *infra.Metrics
	tracer      trace.Tracer
	scratchDir  string
	aspectRatio string
	resolution  string
	now         func() time.Time
	newID       func() string
}

func NewService(opts Options) *Service {
	files := NewFileAdapter(opts.Store, opts.URLPrefix)
	s := &Service{
		gateway:     NewGateway(opts.Materials, opts.Projects),
		files:       files,
		materials:   opts.Materials,
		generator:   opts.Generator,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		tracer:      otel.Tracer("materials/internal/materials"),
		scratchDir:  opts.ScratchDir,
		aspectRatio: opts.AspectRatio,
		resolution:  opts.Resolution,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
	files.now = func() time.Time { return s.now() }
	return s
}

// GenerateInput carries the prompt and optional reference images of a
// generation request.
type GenerateInput struct {
	Prompt    string
	Reference *Upload
	Extras    []Upload
}

// GenerateResult is returned after a generated image has been stored.
type GenerateResult struct {
	ImageURL     string `json:"image_url"`
	RelativePath string `json:"relative_path"`
	MaterialID   string `json:"material_id"`
}

// List parses the selector for listing and returns the matching materials.
func (s *Service) List(ctx context.Context, rawScope string) (_ []domain.Material, err error) {
	ctx, span := s.tracer.Start(ctx, "materials.List")
	defer func() { endSpan(span, err) }()

	scope, err := domain.ParseScope(rawScope, domain.ScopeForList)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("materials.scope", scope.Kind.String()))
	return s.gateway.List(ctx, scope)
}

// Upload stores an uploaded image and records it. The selector may be blank,
// none or a project id.
func (s *Service) Upload(ctx context.Context, rawScope string, upload Upload) (_ *domain.Material, err error) {
	ctx, span := s.tracer.Start(ctx, "materials.Upload")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(upload.Filename) == "" || len(upload.Data) == 0 {
		return nil, domain.InvalidInput("file is required", nil)
	}
	scope, err := domain.ParseScope(rawScope, domain.ScopeForUpload)
	if err != nil {
		return nil, err
	}
	projectID, err := s.gateway.ResolveTarget(ctx, scope)
	if err != nil {
		return nil, err
	}

	stored, err := s.files.Store(ctx, upload, projectID)
	if err != nil {
		return nil, err
	}
	material, err := s.record(ctx, stored, projectID)
	if err != nil {
		return nil, err
	}

	s.metrics.MaterialCreated(sourceUpload)
	s.logger.Info().
		Str("material_id", material.ID).
		Str("relative_path", material.RelativePath).
		Bool("global", material.IsGlobal()).
		Msg("materials: uploaded")
	return material, nil
}

// Generate asks the image generator for a new material and stores the result
// under the project.
func (s *Service) Generate(ctx context.Context, projectID string, in GenerateInput) (_ *GenerateResult, err error) {
	ctx, span := s.tracer.Start(ctx, "materials.Generate",
		trace.WithAttributes(attribute.String("materials.project_id", projectID)))
	defer func() { endSpan(span, err) }()

	target, err := s.gateway.ResolveTarget(ctx, domain.ProjectScope(projectID))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, domain.InvalidInput("prompt is required", nil)
	}

	if s.scratchDir != "" {
		if err := os.MkdirAll(s.scratchDir, 0o755); err != nil {
			return nil, domain.Internal("failed to prepare scratch directory", err)
		}
	}
	scratch, err := os.MkdirTemp(s.scratchDir, "material-gen-")
	if err != nil {
		return nil, domain.Internal("failed to prepare scratch directory", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("dir", scratch).Msg("materials: remove scratch dir")
		}
	}()

	req := image.GenerateRequest{
		Prompt:      strings.TrimSpace(in.Prompt),
		AspectRatio: s.aspectRatio,
		Resolution:  s.resolution,
	}
	if in.Reference != nil && in.Reference.Filename != "" && len(in.Reference.Data) > 0 {
		p, err := stageReference(scratch, "", *in.Reference, defaultReferenceName)
		if err != nil {
			return nil, domain.Internal("failed to stage reference image", err)
		}
		req.ReferenceImage = p
	}
	for i, extra := range in.Extras {
		if extra.Filename == "" || len(extra.Data) == 0 {
			continue
		}
		p, err := stageReference(scratch, fmt.Sprintf("extra_%d_", i), extra, defaultExtraName)
		if err != nil {
			return nil, domain.Internal("failed to stage reference image", err)
		}
		req.AdditionalReferences = append(req.AdditionalReferences, p)
	}
	span.SetAttributes(attribute.Int("materials.references", len(req.References())))

	started := s.now()
	data, genErr := s.generator.Generate(ctx, req)
	s.metrics.ObserveGeneration(s.now().Sub(started).Seconds())
	if genErr == nil && len(data) == 0 {
		genErr = image.ErrNoImage
	}
	if genErr != nil {
		s.metrics.GenerationFailed()
		s.logger.Error().
			Err(genErr).
			Str("project_id", projectID).
			Bool("no_image", errors.Is(genErr, image.ErrNoImage)).
			Msg("materials: image generation failed")
		return nil, domain.Unavailable("Failed to generate image", genErr)
	}

	stored, err := s.files.StoreGenerated(ctx, data, target)
	if err != nil {
		return nil, err
	}
	material, err := s.record(ctx, stored, target)
	if err != nil {
		return nil, err
	}

	s.metrics.MaterialCreated(sourceGenerated)
	s.logger.Info().
		Str("material_id", material.ID).
		Str("project_id", projectID).
		Str("relative_path", material.RelativePath).
		Msg("materials: generated")
	return &GenerateResult{
		ImageURL:     material.URL,
		RelativePath: material.RelativePath,
		MaterialID:   material.ID,
	}, nil
}

// Delete removes the material's file and then its row. A file that is already
// gone, or that cannot be removed, does not block the row deletion.
func (s *Service) Delete(ctx context.Context, id string) (_ string, err error) {
	ctx, span := s.tracer.Start(ctx, "materials.Delete",
		trace.WithAttributes(attribute.String("materials.id", id)))
	defer func() { endSpan(span, err) }()

	material, err := s.materials.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.NotFound("Material not found", err)
	}
	if err != nil {
		return "", domain.Internal("failed to load material", err)
	}

	if rmErr := s.files.store.Remove(ctx, material.RelativePath); rmErr != nil {
		s.logger.Warn().
			Err(rmErr).
			Str("material_id", id).
			Str("relative_path", material.RelativePath).
			Msg("materials: remove file failed; deleting record anyway")
	}

	if err := s.materials.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.NotFound("Material not found", err)
		}
		return "", domain.Internal("failed to delete material", err)
	}

	s.metrics.MaterialDeleted()
	s.logger.Info().Str("material_id", id).Msg("materials: deleted")
	return id, nil
}

func (s *Service) record(ctx context.Context, stored StoredFile, projectID *string) (*domain.Material, error) {
	material := &domain.Material{
		ID:           s.newID(),
		ProjectID:    projectID,
		Filename:     stored.Filename,
		RelativePath: stored.RelativePath,
		URL:          stored.URL,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.materials.Create(ctx, material); err != nil {
		s.metrics.OrphanedFile()
		s.logger.Warn().
			Err(err).
			Str("relative_path", stored.RelativePath).
			Msg("materials: insert failed; file left on storage")
		return nil, domain.Internal("failed to save material", err)
	}
	return material, nil
}

// stageReference writes a reference image into the scratch directory under a
// sanitized name and returns its path.
func stageReference(dir, prefix string, upload Upload, fallback string) (string, error) {
	name := storage.SanitizeFilename(upload.Filename)
	if name == "" {
		name = fallback
	}
	p := filepath.Join(dir, prefix+name)
	if err := os.WriteFile(p, upload.Data, 0o600); err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	return p, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.MessageOf(err))
	}
	span.End()
}
