// Package httpapi exposes the part extraction pipeline over HTTP uploads.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/mcp-pdf-parts/internal/export"
	"github.com/a3tai/mcp-pdf-parts/internal/parts"
	"github.com/a3tai/mcp-pdf-parts/internal/pdf"
	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
)

const (
	// MaxFilesPerRequest bounds the number of uploads in one request.
	MaxFilesPerRequest = 64

	// multipartMemory is the part of a multipart body kept in memory
	// before spilling to temporary files.
	multipartMemory = 32 << 20

	warningsHeader  = "X-Extraction-Warnings"
	categoryRequest = "BAD_REQUEST"
	shutdownTimeout = 10 * time.Second
	readTimeout     = 60 * time.Second
	writeTimeout    = 10 * time.Minute
)

// Server routes upload requests to a pipeline.
type Server struct {
	pipeline    *parts.Pipeline
	maxFileSize int64
	logger      *logrus.Entry
	mux         *http.ServeMux
}

// NewServer creates the HTTP API for pipeline. Each uploaded file may be
// at most maxFileSize bytes.
func NewServer(pipeline *parts.Pipeline, maxFileSize int64, logger *logrus.Entry) (*Server, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("max file size must be positive")
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Server{
		pipeline:    pipeline,
		maxFileSize: maxFileSize,
		logger:      logger.WithField("component", "httpapi"),
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("POST /parts", s.handleParts)
	s.mux.HandleFunc("POST /extract_lines_csv", s.handleExtractLines)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s, nil
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(started),
		}).Info("request handled")
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", listener.Addr().String()).Info("http api listening")
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http api: %w", err)
	}
	return <-errCh
}

// handleSearch runs a line search when any criterion is given and a parts
// list otherwise.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.handleRun(w, r, parts.ModeAuto)
}

func (s *Server) handleParts(w http.ResponseWriter, r *http.Request) {
	s.handleRun(w, r, parts.ModePartsList)
}

func (s *Server) handleExtractLines(w http.ResponseWriter, r *http.Request) {
	s.handleRun(w, r, parts.ModeLines)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, mode parts.Mode) {
	files, err := s.readUploads(w, r)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}

	returnCSV := mode == parts.ModeLines
	if raw := r.FormValue("return_csv"); raw != "" && !returnCSV {
		returnCSV, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("return_csv must be a boolean, got %q", raw), categoryRequest)
			return
		}
	}

	req := parts.Request{Files: files, Mode: mode}
	if mode == parts.ModeAuto {
		req.L = r.FormValue("l_value")
		req.W = r.FormValue("w_value")
		req.T = r.FormValue("t_value")
	}

	resp, err := s.pipeline.Run(r.Context(), req)
	if err != nil {
		category := pdferrors.TypeOf(err)
		s.logger.WithError(err).WithField("category", category.String()).Warn("pipeline run failed")
		writeError(w, statusFor(category), pdferrors.Describe(err), category.String())
		return
	}

	if !returnCSV {
		writeJSON(w, http.StatusOK, export.NewPayload(resp))
		return
	}
	s.writeCSV(w, resp)
}

func (s *Server) writeCSV(w http.ResponseWriter, resp *parts.Response) {
	var b strings.Builder
	fileName, err := export.WriteResponse(&b, resp)
	if err != nil {
		s.logger.WithError(err).Error("failed to write CSV")
		writeError(w, http.StatusInternalServerError, "failed to write CSV", pdferrors.ErrorTypeUnknown.String())
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	if warnings := warningsValue(resp.Annotations); warnings != "" {
		w.Header().Set(warningsHeader, warnings)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, b.String()); err != nil {
		s.logger.WithError(err).Debug("client went away while writing CSV")
	}
}

// uploadError is a client mistake in the multipart request.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

// readUploads reads the "files" parts in request order.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]pdf.NamedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxFileSize*MaxFilesPerRequest+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &uploadError{http.StatusRequestEntityTooLarge, "request body too large"}
		}
		return nil, &uploadError{http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err)}
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, &uploadError{http.StatusBadRequest, "no files uploaded (expected multipart field \"files\")"}
	}
	if len(headers) > MaxFilesPerRequest {
		return nil, &uploadError{http.StatusBadRequest,
			fmt.Sprintf("too many files: %d (max: %d)", len(headers), MaxFilesPerRequest)}
	}

	files := make([]pdf.NamedFile, 0, len(headers))
	for _, h := range headers {
		if h.Size > s.maxFileSize {
			return nil, &uploadError{http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file %s too large: %d bytes (max: %d bytes)", h.Filename, h.Size, s.maxFileSize)}
		}
		data, err := readPart(h)
		if err != nil {
			return nil, &uploadError{http.StatusBadRequest, fmt.Sprintf("failed to read %s: %v", h.Filename, err)}
		}
		files = append(files, pdf.NamedFile{Name: filepath.Base(h.Filename), Data: data})
	}
	return files, nil
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) writeUploadError(w http.ResponseWriter, err error) {
	var ue *uploadError
	if !errors.As(err, &ue) {
		writeError(w, http.StatusBadRequest, err.Error(), categoryRequest)
		return
	}
	category := categoryRequest
	if ue.status == http.StatusRequestEntityTooLarge {
		category = pdferrors.ErrorTypeFileTooLarge.String()
	}
	s.logger.WithField("status", ue.status).Debug(ue.msg)
	writeError(w, ue.status, ue.msg, category)
}

// statusFor maps a terminating pipeline error to its HTTP status.
func statusFor(t pdferrors.ErrorType) int {
	switch t {
	case pdferrors.ErrorTypeInvalidCriteria:
		return http.StatusBadRequest
	case pdferrors.ErrorTypeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case pdferrors.ErrorTypeOCRUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// warningsValue folds annotations into one header value.
func warningsValue(annotations []parts.Annotation) string {
	if len(annotations) == 0 {
		return ""
	}
	values := make([]string, 0, len(annotations))
	for _, a := range annotations {
		values = append(values, strings.Join(strings.Fields(export.FormatAnnotation(a)), " "))
	}
	return strings.Join(values, "; ")
}

type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

func writeError(w http.ResponseWriter, status int, message, category string) {
	writeJSON(w, status, errorBody{Error: message, Category: category})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
