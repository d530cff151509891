package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/ocrdown/internal/ocr"
	"github.com/hyperjump/ocrdown/internal/session"
	"github.com/hyperjump/ocrdown/internal/storage"
	"github.com/hyperjump/ocrdown/pkg/utils"
)

const (
	msgNoFilePart     = "No file part"
	msgNoSelectedFile = "No selected file"
	msgNoResult       = "No result found or session expired. Please upload again."
	msgFileNotFound   = "File not found or result expired. Please upload again."

	// fallbackStem names uploads whose stem has no safe characters left.
	fallbackStem = "ocr_result"

	// multipartMemory is the part of an upload kept in memory before spilling to disk.
	multipartMemory = 8 << 20
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Load(r)
	flashes := st.PopFlashes()
	st.ClearResult()
	s.saveSession(w, st)
	s.render(w, "index.html", indexData{
		pageData:    pageData{Flashes: flashes},
		Extensions:  s.extensions,
		MaxUploadMB: s.config.Server.MaxUploadMB,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Load(r)

	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.logger.Info("upload rejected: too large", zap.Int64("limit", tooLarge.Limit))
			s.redirectWithFlash(w, r, st, "/", session.CategoryError,
				fmt.Sprintf("File is too large. Maximum upload size is %d MB.", s.config.Server.MaxUploadMB))
			return
		}
		s.logger.Debug("upload without multipart body", zap.Error(err))
		s.redirectWithFlash(w, r, st, "/", session.CategoryError, msgNoFilePart)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		// a part named "file" without a filename is what browsers send when nothing was chosen
		msg := msgNoFilePart
		if _, ok := r.MultipartForm.Value["file"]; ok {
			msg = msgNoSelectedFile
		}
		s.redirectWithFlash(w, r, st, "/", session.CategoryError, msg)
		return
	}
	defer file.Close()
	if header.Filename == "" {
		s.redirectWithFlash(w, r, st, "/", session.CategoryError, msgNoSelectedFile)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("failed to read upload", zap.String("filename", header.Filename), zap.Error(err))
		s.redirectWithFlash(w, r, st, "/", session.CategoryError, ocr.GenericMessage)
		return
	}

	filename := uploadName(header.Filename)
	result, err := s.processor.Process(r.Context(), filename, data)
	if err != nil {
		if ocr.IsValidation(err) {
			s.logger.Info("upload rejected", zap.String("filename", header.Filename), zap.Error(err))
		} else {
			s.logger.Error("processing failed", zap.String("filename", filename), zap.Error(err))
		}
		s.redirectWithFlash(w, r, st, "/", session.CategoryError, ocr.UserMessage(err))
		return
	}

	st.ResultID = result.ID
	st.Filename = result.Filename
	s.saveSession(w, st)
	http.Redirect(w, r, "/results", http.StatusSeeOther)
}

// uploadName secures a client filename. When securing changes the
// extension, as with "文档.pdf" which secures to "pdf", the original
// extension is kept so the file is still classified by what was uploaded.
func uploadName(raw string) string {
	name := utils.SecureFilename(raw)
	ext := ocr.Extension(raw)
	if ext == "" || ocr.Extension(name) == ext {
		return name
	}
	stem := utils.SecureFilename(strings.TrimSuffix(raw, filepath.Ext(raw)))
	if stem == "" {
		stem = fallbackStem
	}
	return stem + "." + ext
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.Load(r)
	if st.ResultID == "" {
		s.redirectWithFlash(w, r, st, "/", session.CategoryInfo, msgNoResult)
		return
	}
	result, err := s.store.Get(r.Context(), st.ResultID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("failed to load result", zap.String("id", st.ResultID), zap.Error(err))
		}
		st.ClearResult()
		s.redirectWithFlash(w, r, st, "/", session.CategoryInfo, msgNoResult)
		return
	}
	s.logger.Debug("rendering result",
		zap.String("id", result.ID),
		zap.Int("length", len(result.Markdown)),
		zap.String("markdown_preview", utils.Truncate(result.Markdown, 500)),
	)

	html, err := s.renderer.Render(result.Markdown)
	if err != nil {
		s.logger.Warn("markdown render failed, showing source", zap.String("id", result.ID), zap.Error(err))
		html = template.HTML("<pre>" + template.HTMLEscapeString(result.Markdown) + "</pre>")
	}

	flashes := st.PopFlashes()
	s.saveSession(w, st)
	s.render(w, "results.html", resultsData{
		pageData:     pageData{Flashes: flashes},
		HTML:         html,
		Markdown:     result.Markdown,
		ResultID:     result.ID,
		Filename:     result.Filename,
		DownloadName: result.DownloadName(),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "resultID")
	result, err := s.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("failed to load result for download", zap.String("id", id), zap.Error(err))
		}
		st := s.sessions.Load(r)
		s.redirectWithFlash(w, r, st, "/", session.CategoryError, msgFileNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": result.DownloadName(),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, result.Markdown)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Error("status: count results failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "count results failed")
		return
	}
	resp := map[string]interface{}{
		"results": count,
	}
	configInfo := map[string]interface{}{
		"storage_backend": s.config.Storage.Backend,
		"ocr_model":       s.config.OCR.Model,
		"max_upload_mb":   s.config.Server.MaxUploadMB,
		"extensions":      s.extensions,
	}
	if storage.Backend(s.config.Storage.Backend) == storage.BackendSQLite {
		configInfo["database_path"] = s.config.Storage.DatabasePath
		if n, err := storage.DiskUsageBytes(storage.SQLiteFiles(s.config.Storage.DatabasePath)...); err == nil {
			resp["disk_usage_bytes"] = n
		}
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, st *session.State, to, category, message string) {
	st.AddFlash(category, message)
	s.saveSession(w, st)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (s *Server) saveSession(w http.ResponseWriter, st *session.State) {
	if err := s.sessions.Save(w, st); err != nil {
		s.logger.Warn("failed to save session", zap.Error(err))
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
