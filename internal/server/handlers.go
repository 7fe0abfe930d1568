package server

import (
	"encoding/json"
	stderrors "errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/spikeraster/pkg/buildinfo"
	"github.com/matzehuels/spikeraster/pkg/dataset"
	"github.com/matzehuels/spikeraster/pkg/errors"
	"github.com/matzehuels/spikeraster/pkg/pipeline"
	"github.com/matzehuels/spikeraster/pkg/raster"
)

// contentTypes maps output formats to response content types.
var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatPDF:  "application/pdf",
	pipeline.FormatJSON: "application/json",
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error       string              `json:"error"`
	Code        errors.Code         `json:"code"`
	RequestID   string              `json:"request_id,omitempty"`
	Diagnostics []raster.Diagnostic `json:"diagnostics,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	ds, err := s.decodeDataset(w, r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.run(w, r, pipeline.StaticSource{Dataset: ds}, pipeline.FormatJSON)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidFormat, err.Error(), nil)
		return
	}
	ds, err := s.decodeDataset(w, r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.run(w, r, pipeline.StaticSource{Dataset: ds}, format)
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	ids, err := s.cfg.List(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": ids})
}

func (s *Server) handleStoredLayout(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, s.cfg.Sources(chi.URLParam(r, "id")), pipeline.FormatJSON)
}

func (s *Server) handleStoredRender(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidFormat, err.Error(), nil)
		return
	}
	s.run(w, r, s.cfg.Sources(chi.URLParam(r, "id")), format)
}

// run executes the pipeline for one output format and writes the artifact.
func (s *Server) run(w http.ResponseWriter, r *http.Request, src pipeline.Source, format string) {
	opts, err := optionsFromQuery(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	opts.Formats = []string{format}
	opts.Logger = s.logger.With("request_id", RequestIDFromContext(r.Context()))

	result, err := s.runner.Execute(r.Context(), src, opts)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if result.Suppressed {
		d := firstFatal(result.Diagnostics)
		writeError(w, r, http.StatusUnprocessableEntity, d.Code, d.Message, result.Diagnostics)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Run-ID", result.RunID)
	w.Header().Set("X-Cache", cacheStatus(result.CacheInfo))
	w.Header().Set("X-Diagnostics", strconv.Itoa(len(result.Diagnostics)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Artifacts[format])
}

// decodeDataset reads the request body in the format named by Content-Type.
func (s *Server) decodeDataset(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, error) {
	format, err := bodyFormat(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	unit := dataset.DefaultUnit
	if u := r.URL.Query().Get("unit"); u != "" {
		if unit, err = dataset.ParseUnit(u); err != nil {
			return nil, err
		}
	}
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	ds, err := dataset.ReadUnit(body, format, unit)
	if err != nil {
		return nil, err
	}
	if name := r.URL.Query().Get("name"); name != "" {
		ds.Name = name
	}
	return ds, nil
}

func bodyFormat(contentType string) (dataset.Format, error) {
	if contentType == "" {
		return dataset.FormatJSON, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid content type")
	}
	switch mediaType {
	case "application/json":
		return dataset.FormatJSON, nil
	case "application/yaml", "application/x-yaml", "text/yaml":
		return dataset.FormatYAML, nil
	case "text/csv":
		return dataset.FormatCSV, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported content type %q", mediaType)
}

// optionsFromQuery reads render settings from the query string.
func optionsFromQuery(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Title:  q.Get("title"),
		XLabel: q.Get("xlabel"),
		YLabel: q.Get("ylabel"),
	}

	var err error
	if opts.Width, err = floatParam(q.Get("width"), "width"); err != nil {
		return opts, err
	}
	if opts.Height, err = floatParam(q.Get("height"), "height"); err != nil {
		return opts, err
	}
	if opts.Grid, err = boolParam(q.Get("grid"), "grid"); err != nil {
		return opts, err
	}
	if opts.Refresh, err = boolParam(q.Get("refresh"), "refresh"); err != nil {
		return opts, err
	}
	if opts.Width != 0 {
		if err := pipeline.ValidateDimension("width", opts.Width); err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "width")
		}
	}
	if opts.Height != 0 {
		if err := pipeline.ValidateDimension("height", opts.Height); err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "height")
		}
	}
	return opts, nil
}

func floatParam(v, name string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s must be a number", name)
	}
	return f, nil
}

func boolParam(v, name string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "%s must be true or false", name)
	}
	return b, nil
}

func cacheStatus(info pipeline.CacheInfo) string {
	if info.LayoutHit && info.RenderHit {
		return "hit"
	}
	return "miss"
}

func firstFatal(diags []raster.Diagnostic) raster.Diagnostic {
	for _, d := range diags {
		if d.Fatal {
			return d
		}
	}
	return raster.Diagnostic{Code: raster.DataLengthMismatch, Message: "dataset failed validation"}
}

// writeErr maps err to a status code and writes it.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput,
			"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", nil)
		return
	}

	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeError(w, r, statusFor(code), code, errors.UserMessage(err), nil)
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidUnit,
		errors.ErrCodeInvalidDataset, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound, errors.ErrCodeDatasetNotFound:
		return http.StatusNotFound
	case errors.ErrCodeDataLengthMismatch:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code errors.Code, msg string, diags []raster.Diagnostic) {
	writeJSON(w, status, errorResponse{
		Error:       msg,
		Code:        code,
		RequestID:   RequestIDFromContext(r.Context()),
		Diagnostics: diags,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
