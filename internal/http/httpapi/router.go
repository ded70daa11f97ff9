package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"materials/internal/http/handlers"
	"materials/internal/infra"
	"materials/internal/middleware"
)

// Options configures the router beyond the handler set.
type Options struct {
	Logger         infra.Logger
	Metrics        *infra.Metrics
	CORSOrigins    []string
	RateLimit      int
	FilesURLPrefix string
	// FilesRoot is served read-only under FilesURLPrefix when non-empty.
	FilesRoot string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))

		r.Route("/projects/{projectId}/materials", func(r chi.Router) {
			r.Get("/", app.ProjectMaterialsList)
			r.Post("/upload", app.ProjectMaterialsUpload)
			r.Post("/generate", app.ProjectMaterialsGenerate)
		})

		r.Route("/materials", func(r chi.Router) {
			r.Get("/", app.MaterialsList)
			r.Post("/upload", app.MaterialsUpload)
			r.Delete("/{materialId}", app.MaterialsDelete)
		})
	})

	if opts.FilesRoot != "" {
		prefix := opts.FilesURLPrefix
		if prefix == "" {
			prefix = "/files"
		}
		fs := http.StripPrefix(prefix+"/", http.FileServer(filesOnly{http.Dir(opts.FilesRoot)}))
		r.Get(prefix+"/*", func(w http.ResponseWriter, r *http.Request) {
			fs.ServeHTTP(w, r)
		})
	}

	return r
}

// filesOnly hides directories so the file server never renders listings.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
