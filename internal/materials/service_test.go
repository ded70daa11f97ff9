package materials

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"materials/internal/domain"
	"materials/internal/domain/domaintest"
	"materials/internal/providers/image"
	"materials/internal/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubGenerator struct {
	data     []byte
	err      error
	calls    int
	lastReq  image.GenerateRequest
	observed []string
}

func (g *stubGenerator) Generate(_ context.Context, req image.GenerateRequest) ([]byte, error) {
	g.calls++
	g.lastReq = req
	for _, p := range req.References() {
		if _, err := os.Stat(p); err == nil {
			g.observed = append(g.observed, p)
		}
	}
	return g.data, g.err
}

type failingRemoveStore struct {
	storage.Store
}

func (failingRemoveStore) Remove(context.Context, string) error {
	return errors.New("permission denied")
}

type fixture struct {
	svc       *Service
	materials *domaintest.Materials
	store     *storage.FileStore
	gen       *stubGenerator
	root      string
	scratch   string
	clock     time.Time
}

func newFixture(t *testing.T, projects ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFileStore(root)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	f := &fixture{
		materials: domaintest.NewMaterials(),
		store:     store,
		gen:       &stubGenerator{data: pngBytes},
		root:      root,
		scratch:   filepath.Join(t.TempDir(), "scratch"),
		clock:     time.UnixMilli(1_700_000_000_000),
	}
	f.svc = NewService(Options{
		Materials:   f.materials,
		Projects:    domaintest.NewProjects(projects...),
		Store:       store,
		Generator:   f.gen,
		Logger:      zerolog.Nop(),
		ScratchDir:  f.scratch,
		AspectRatio: "16:9",
		Resolution:  "2K",
	})
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Millisecond)
		return f.clock
	}
	return f
}

func requireKind(t *testing.T, err error, kind domain.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("kind = %s, want %s (err=%v)", got, kind, err)
	}
}

func TestUploadStoresBytesAndRecord(t *testing.T) {
	f := newFixture(t, "p1")
	data := []byte("fake image payload")

	m, err := f.svc.Upload(context.Background(), "p1", Upload{Filename: "My Photo.PNG", Data: data})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if m.ProjectID == nil || *m.ProjectID != "p1" {
		t.Fatalf("project id = %v, want p1", m.ProjectID)
	}
	if !strings.HasPrefix(m.Filename, "My_Photo_") || !strings.HasSuffix(m.Filename, ".png") {
		t.Fatalf("filename = %q", m.Filename)
	}
	if m.RelativePath != "p1/materials/"+m.Filename {
		t.Fatalf("relative path = %q", m.RelativePath)
	}
	if m.URL != "/files/"+m.RelativePath {
		t.Fatalf("url = %q", m.URL)
	}
	got, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(m.RelativePath)))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("stored bytes differ")
	}
	if f.materials.Len() != 1 {
		t.Fatalf("rows = %d, want 1", f.materials.Len())
	}
}

func TestUploadGlobalScopes(t *testing.T) {
	for _, raw := range []string{"", "none", "  "} {
		f := newFixture(t)
		m, err := f.svc.Upload(context.Background(), raw, Upload{Filename: "a.jpg", Data: []byte("x")})
		if err != nil {
			t.Fatalf("upload(%q): %v", raw, err)
		}
		if !m.IsGlobal() {
			t.Fatalf("upload(%q) should be global", raw)
		}
		if !strings.HasPrefix(m.RelativePath, "materials/") || m.URL != "/files/"+m.RelativePath {
			t.Fatalf("upload(%q) path=%q url=%q", raw, m.RelativePath, m.URL)
		}
	}
}

func TestUploadRejections(t *testing.T) {
	cases := []struct {
		name    string
		scope   string
		upload  Upload
		kind    domain.Kind
		message string
	}{
		{"missing file", "", Upload{}, domain.KindInvalidInput, "file is required"},
		{"empty data", "", Upload{Filename: "a.png"}, domain.KindInvalidInput, "file is required"},
		{"bad extension", "", Upload{Filename: "notes.txt", Data: []byte("x")}, domain.KindInvalidInput,
			"Unsupported file type. Allowed: .bmp, .gif, .jpeg, .jpg, .png, .svg, .webp"},
		{"no extension", "", Upload{Filename: "image", Data: []byte("x")}, domain.KindInvalidInput, ""},
		{"all scope", "all", Upload{Filename: "a.png", Data: []byte("x")}, domain.KindInvalidInput,
			"project_id cannot be 'all' when uploading materials"},
		{"unknown project", "ghost", Upload{Filename: "a.png", Data: []byte("x")}, domain.KindNotFound, "Project not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, "p1")
			_, err := f.svc.Upload(context.Background(), tc.scope, tc.upload)
			requireKind(t, err, tc.kind)
			if tc.message != "" && domain.MessageOf(err) != tc.message {
				t.Fatalf("message = %q, want %q", domain.MessageOf(err), tc.message)
			}
			if f.materials.Len() != 0 {
				t.Fatalf("no row should be inserted")
			}
			entries, _ := os.ReadDir(f.root)
			if len(entries) != 0 {
				t.Fatalf("no file should be written, found %d entries", len(entries))
			}
		})
	}
}

func TestUploadSameNameTwiceGivesDistinctFiles(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Upload(context.Background(), "", Upload{Filename: "logo.png", Data: []byte("1")})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	b, err := f.svc.Upload(context.Background(), "", Upload{Filename: "logo.png", Data: []byte("2")})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if a.Filename == b.Filename || a.ID == b.ID {
		t.Fatalf("expected distinct materials, got %q and %q", a.Filename, b.Filename)
	}
	if f.materials.Len() != 2 {
		t.Fatalf("rows = %d, want 2", f.materials.Len())
	}
}

func TestUploadInsertFailureLeavesOrphanFile(t *testing.T) {
	f := newFixture(t)
	f.materials.CreateErr = errors.New("db down")

	_, err := f.svc.Upload(context.Background(), "", Upload{Filename: "a.png", Data: []byte("x")})
	requireKind(t, err, domain.KindInternal)

	entries, err := os.ReadDir(filepath.Join(f.root, "materials"))
	if err != nil {
		t.Fatalf("read materials dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected orphan file to remain, found %d", len(entries))
	}
}

func TestListSemantics(t *testing.T) {
	f := newFixture(t, "p1", "p2")
	ctx := context.Background()
	first, err := f.svc.Upload(ctx, "p1", Upload{Filename: "a.png", Data: []byte("a")})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.Upload(ctx, "p1", Upload{Filename: "b.png", Data: []byte("b")})
	if err != nil {
		t.Fatal(err)
	}
	global, err := f.svc.Upload(ctx, "none", Upload{Filename: "g.png", Data: []byte("g")})
	if err != nil {
		t.Fatal(err)
	}

	rows, err := f.svc.List(ctx, "p1")
	if err != nil {
		t.Fatalf("list p1: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != second.ID || rows[1].ID != first.ID {
		t.Fatalf("list p1 order = %v, want [B, A]", ids(rows))
	}

	rows, err = f.svc.List(ctx, "none")
	if err != nil {
		t.Fatalf("list none: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != global.ID {
		t.Fatalf("list none = %v", ids(rows))
	}

	rows, err = f.svc.List(ctx, "all")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(rows) != 3 || rows[0].ID != global.ID {
		t.Fatalf("list all = %v", ids(rows))
	}

	rows, err = f.svc.List(ctx, "p2")
	if err != nil {
		t.Fatalf("list p2: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("list p2 should be an empty, non-nil slice, got %v", rows)
	}

	_, err = f.svc.List(ctx, "ghost")
	requireKind(t, err, domain.KindNotFound)

	_, err = f.svc.List(ctx, "")
	requireKind(t, err, domain.KindInvalidInput)
}

func ids(rows []domain.Material) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestGenerateStoresImage(t *testing.T) {
	f := newFixture(t, "p1")
	result, err := f.svc.Generate(context.Background(), "p1", GenerateInput{
		Prompt:    "  a lamp\n",
		Reference: &Upload{Filename: "../ref shot.png", Data: []byte("ref")},
		Extras: []Upload{
			{Filename: "one.png", Data: []byte("1")},
			{Filename: "", Data: []byte("skipped")},
			{Filename: "one.png", Data: []byte("2")},
		},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if f.gen.calls != 1 {
		t.Fatalf("generator calls = %d", f.gen.calls)
	}
	req := f.gen.lastReq
	if req.Prompt != "a lamp" || req.AspectRatio != "16:9" || req.Resolution != "2K" {
		t.Fatalf("request = %+v", req)
	}
	if req.ReferenceImage == "" || len(req.AdditionalReferences) != 2 {
		t.Fatalf("references = %q %v", req.ReferenceImage, req.AdditionalReferences)
	}
	if req.AdditionalReferences[0] == req.AdditionalReferences[1] {
		t.Fatalf("extras with the same name must not overwrite each other")
	}
	if len(f.gen.observed) != 3 {
		t.Fatalf("references should exist during the call, saw %d", len(f.gen.observed))
	}
	entries, err := os.ReadDir(f.scratch)
	if err != nil {
		t.Fatalf("read scratch root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch directory should be removed, found %d entries", len(entries))
	}

	if !strings.HasPrefix(result.RelativePath, "p1/materials/material_") || !strings.HasSuffix(result.RelativePath, ".png") {
		t.Fatalf("relative path = %q", result.RelativePath)
	}
	if result.ImageURL != "/files/"+result.RelativePath {
		t.Fatalf("image url = %q", result.ImageURL)
	}
	stored, err := f.materials.GetByID(context.Background(), result.MaterialID)
	if err != nil {
		t.Fatalf("get material: %v", err)
	}
	if stored.ProjectID == nil || *stored.ProjectID != "p1" {
		t.Fatalf("generated material should belong to p1")
	}
	got, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(result.RelativePath)))
	if err != nil || !bytes.Equal(got, pngBytes) {
		t.Fatalf("stored bytes mismatch (err=%v)", err)
	}
}

func TestGenerateDetectsExtension(t *testing.T) {
	f := newFixture(t, "p1")
	f.gen.data = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	result, err := f.svc.Generate(context.Background(), "p1", GenerateInput{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasSuffix(result.RelativePath, ".jpg") {
		t.Fatalf("relative path = %q, want .jpg", result.RelativePath)
	}

	f.gen.data = []byte("plain bytes")
	result, err = f.svc.Generate(context.Background(), "p1", GenerateInput{Prompt: "x"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasSuffix(result.RelativePath, ".png") {
		t.Fatalf("relative path = %q, want .png fallback", result.RelativePath)
	}
}

func TestGenerateRejections(t *testing.T) {
	t.Run("unknown project", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Generate(context.Background(), "ghost", GenerateInput{Prompt: "x"})
		requireKind(t, err, domain.KindNotFound)
		if f.gen.calls != 0 {
			t.Fatalf("generator should not be called")
		}
	})
	t.Run("empty prompt", func(t *testing.T) {
		f := newFixture(t, "p1")
		_, err := f.svc.Generate(context.Background(), "p1", GenerateInput{Prompt: "   "})
		requireKind(t, err, domain.KindInvalidInput)
		if f.gen.calls != 0 {
			t.Fatalf("generator should not be called")
		}
	})
}

func TestGenerateFailuresPersistNothing(t *testing.T) {
	cases := map[string]*stubGenerator{
		"no image":     {err: image.ErrNoImage},
		"empty bytes":  {data: nil},
		"remote error": {err: errors.New("quota")},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, "p1")
			f.svc.generator = gen
			_, err := f.svc.Generate(context.Background(), "p1", GenerateInput{
				Prompt:    "x",
				Reference: &Upload{Filename: "r.png", Data: []byte("r")},
			})
			requireKind(t, err, domain.KindUnavailable)
			if domain.MessageOf(err) != "Failed to generate image" {
				t.Fatalf("message = %q", domain.MessageOf(err))
			}
			if f.materials.Len() != 0 {
				t.Fatalf("no row should be inserted")
			}
			if entries, _ := os.ReadDir(f.root); len(entries) != 0 {
				t.Fatalf("no file should be written")
			}
			if entries, _ := os.ReadDir(f.scratch); len(entries) != 0 {
				t.Fatalf("scratch directory should be removed")
			}
		})
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.svc.Upload(ctx, "", Upload{Filename: "a.png", Data: []byte("a")})
	if err != nil {
		t.Fatal(err)
	}

	id, err := f.svc.Delete(ctx, m.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if id != m.ID {
		t.Fatalf("id = %q", id)
	}
	if f.materials.Len() != 0 {
		t.Fatalf("row should be gone")
	}
	if _, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(m.RelativePath))); !os.IsNotExist(err) {
		t.Fatalf("file should be removed, stat err = %v", err)
	}

	_, err = f.svc.Delete(ctx, m.ID)
	requireKind(t, err, domain.KindNotFound)
	if domain.MessageOf(err) != "Material not found" {
		t.Fatalf("message = %q", domain.MessageOf(err))
	}
}

func TestDeleteWithMissingFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.svc.Upload(ctx, "", Upload{Filename: "a.png", Data: []byte("a")})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(f.root, filepath.FromSlash(m.RelativePath))); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.materials.Len() != 0 {
		t.Fatalf("row should be gone")
	}
}

func TestDeleteRemoveFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.svc.Upload(ctx, "", Upload{Filename: "a.png", Data: []byte("a")})
	if err != nil {
		t.Fatal(err)
	}
	f.svc.files.store = failingRemoveStore{Store: f.store}
	if _, err := f.svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.materials.Len() != 0 {
		t.Fatalf("row should be gone")
	}
}

func TestDeleteRowFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m, err := f.svc.Upload(ctx, "", Upload{Filename: "a.png", Data: []byte("a")})
	if err != nil {
		t.Fatal(err)
	}
	f.materials.DeleteErr = errors.New("tx aborted")
	_, err = f.svc.Delete(ctx, m.ID)
	requireKind(t, err, domain.KindInternal)
}
