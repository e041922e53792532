package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/livetemplate/pagecraft"
	"github.com/livetemplate/pagecraft/internal/tree"
)

// maxBodySize caps uploaded documents and markdown.
const maxBodySize = 4 << 20

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.Document())
}

// putDocument replaces the document with the posted snapshot.
func (s *Server) putDocument(w http.ResponseWriter, r *http.Request) {
	var snap tree.Snapshot
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid document: "+err.Error())
		return
	}

	s.actionMu.Lock()
	err := s.editor.Load(snap)
	s.actionMu.Unlock()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.broadcastDocument()
	writeJSON(w, http.StatusOK, s.editor.Document())
}

// importMarkdown replaces the document with the markdown request body.
func (s *Server) importMarkdown(w http.ResponseWriter, r *http.Request) {
	src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.actionMu.Lock()
	_, err = s.editor.ImportMarkdown(src)
	s.actionMu.Unlock()
	if err != nil {
		var perr *pagecraft.ParseError
		if errors.As(err, &perr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": perr.Message,
				"line":  perr.Line,
				"hint":  perr.Hint,
			})
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.broadcastDocument()
	writeJSON(w, http.StatusOK, s.editor.Document())
}

func (s *Server) getTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.Registry().Definitions())
}

func (s *Server) getPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.editor.Presets())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
