package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"materials/internal/domain"
	"materials/internal/materials"
)

const (
	defaultMaxUploadBytes = 32 << 20
	multipartMemory       = 8 << 20
)

type listResponse struct {
	Materials []domain.Material `json:"materials"`
	Count     int               `json:"count"`
}

type generateJSONRequest struct {
	Prompt string `json:"prompt"`
}

// ProjectMaterialsList lists a project's materials; ?project_id= overrides
// the path selector.
func (a *App) ProjectMaterialsList(w http.ResponseWriter, r *http.Request) {
	raw := selector(r, chi.URLParam(r, "projectId"))
	a.list(w, r, raw)
}

// MaterialsList lists materials across projects, defaulting to all of them.
func (a *App) MaterialsList(w http.ResponseWriter, r *http.Request) {
	a.list(w, r, selector(r, "all"))
}

func (a *App) list(w http.ResponseWriter, r *http.Request, raw string) {
	rows, err := a.Materials.List(r.Context(), raw)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, listResponse{Materials: rows, Count: len(rows)})
}

func (a *App) ProjectMaterialsUpload(w http.ResponseWriter, r *http.Request) {
	a.upload(w, r, selector(r, chi.URLParam(r, "projectId")))
}

func (a *App) MaterialsUpload(w http.ResponseWriter, r *http.Request) {
	a.upload(w, r, selector(r, ""))
}

func (a *App) upload(w http.ResponseWriter, r *http.Request, raw string) {
	if err := a.parseMultipart(w, r); err != nil {
		a.fail(w, r, err)
		return
	}
	file, err := readFormFile(r.MultipartForm, "file")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var upload materials.Upload
	if file != nil {
		upload = *file
	}

	material, err := a.Materials.Upload(r.Context(), raw, upload)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, material)
}

// ProjectMaterialsGenerate accepts either multipart (prompt, ref_image,
// extra_images) or a JSON body carrying only the prompt.
func (a *App) ProjectMaterialsGenerate(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")

	in, err := a.parseGenerateInput(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	result, err := a.Materials.Generate(r.Context(), projectID, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

func (a *App) MaterialsDelete(w http.ResponseWriter, r *http.Request) {
	id, err := a.Materials.Delete(r.Context(), chi.URLParam(r, "materialId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"id": id})
}

func (a *App) parseGenerateInput(w http.ResponseWriter, r *http.Request) (materials.GenerateInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes())

	switch mediaType {
	case "application/json":
		var body generateJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return materials.GenerateInput{}, err
			}
			if errors.Is(err, io.EOF) {
				return materials.GenerateInput{}, nil
			}
			return materials.GenerateInput{}, domain.InvalidInput("invalid payload", err)
		}
		return materials.GenerateInput{Prompt: body.Prompt}, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return materials.GenerateInput{}, multipartError(err)
		}
		in := materials.GenerateInput{Prompt: r.FormValue("prompt")}
		ref, err := readFormFile(r.MultipartForm, "ref_image")
		if err != nil {
			return materials.GenerateInput{}, err
		}
		in.Reference = ref
		for _, fh := range r.MultipartForm.File["extra_images"] {
			upload, err := readFileHeader(fh)
			if err != nil {
				return materials.GenerateInput{}, err
			}
			in.Extras = append(in.Extras, upload)
		}
		return in, nil
	default:
		if err := r.ParseForm(); err != nil {
			return materials.GenerateInput{}, multipartError(err)
		}
		return materials.GenerateInput{Prompt: r.PostFormValue("prompt")}, nil
	}
}

func (a *App) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return domain.InvalidInput("file is required", err)
		}
		return multipartError(err)
	}
	return nil
}

func (a *App) maxUploadBytes() int64 {
	if a.MaxUploadBytes > 0 {
		return a.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return domain.InvalidInput("invalid form data", err)
}

// readFormFile returns the first file under field, or nil when absent.
func readFormFile(form *multipart.Form, field string) (*materials.Upload, error) {
	if form == nil || len(form.File[field]) == 0 {
		return nil, nil
	}
	upload, err := readFileHeader(form.File[field][0])
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func readFileHeader(fh *multipart.FileHeader) (materials.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return materials.Upload{}, domain.InvalidInput("invalid form data", fmt.Errorf("open %s: %w", fh.Filename, err))
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return materials.Upload{}, domain.Internal("failed to read upload", fmt.Errorf("read %s: %w", fh.Filename, err))
	}
	return materials.Upload{Filename: fh.Filename, Data: data}, nil
}

// selector returns ?project_id= when set, else fallback.
func selector(r *http.Request, fallback string) string {
	if v := strings.TrimSpace(r.URL.Query().Get("project_id")); v != "" {
		return v
	}
	return fallback
}
