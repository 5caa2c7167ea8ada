package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

const maxUploadMemory = 32 << 20 // buffer non-file form fields only; the file part streams to disk

// HandleUpload accepts a multipart .zip upload, streams it straight to a
// temp file under uploadDir (never buffering the whole archive in memory,
// spec.md 6), and hands off to the import pipeline asynchronously.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	log.Printf("📥 Upload request received from %s", r.RemoteAddr)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		log.Printf("❌ Failed to parse multipart form: %v", err)
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		log.Printf("❌ Missing file part: %v", err)
		h.writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".zip") {
		log.Printf("❌ Rejected non-zip upload: %s", header.Filename)
		h.writeError(w, http.StatusBadRequest, "only .zip archives are accepted")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		log.Printf("❌ Failed to create upload dir: %v", err)
		h.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	destPath := filepath.Join(h.uploadDir, fmt.Sprintf("%s-%s", ulid.Make().String(), filepath.Base(header.Filename)))
	dest, err := os.Create(destPath)
	if err != nil {
		log.Printf("❌ Failed to create destination file: %v", err)
		h.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer dest.Close()

	size, err := io.Copy(dest, file)
	if err != nil {
		log.Printf("❌ Failed to stream upload to disk: %v", err)
		h.writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	teamName := r.FormValue("team_name")
	if teamName == "" {
		teamName = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}

	job, err := h.supervisor.StartImport(r.Context(), teamName, destPath)
	if err != nil {
		log.Printf("❌ Failed to start import job: %v", err)
		h.writeError(w, http.StatusInternalServerError, "failed to start import")
		return
	}

	log.Printf("✅ Upload accepted: job %d, %s (%d bytes)", job.ID, header.Filename, size)
	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"filename": header.Filename,
		"size":     size,
		"status":   "processing",
	})
}
