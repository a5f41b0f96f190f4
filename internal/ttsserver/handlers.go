package ttsserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/talkback-bot/talkback/internal/synth"
)

// suggestionThreshold is the minimum Jaro-Winkler similarity for a voice
// name to be offered as a "did you mean" suggestion.
const suggestionThreshold = 0.7

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Snapshot())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.settings.Apply(patch)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Configuration updated successfully"})
}

func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	voices, err := synth.ListVoices(s.cfg.VoicesDir)
	if err != nil {
		slog.Error("failed to list voices", "dir", s.cfg.VoicesDir, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list voices")
		return
	}
	sort.Strings(voices)
	writeJSON(w, http.StatusOK, map[string][]string{"voices": voices})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if s.models == nil {
		writeError(w, http.StatusServiceUnavailable, "model listing not supported by backend")
		return
	}
	models, err := s.models.ListModels(r.Context())
	if err != nil {
		slog.Error("failed to fetch models", "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to fetch models from backend")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  models,
		"current": s.settings.Snapshot().Model,
	})
}

func (s *Server) handleGetConversations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	entries := s.log.Recent(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": entries,
		"total":         s.log.Len(),
	})
}

func (s *Server) handleClearConversations(w http.ResponseWriter, _ *http.Request) {
	s.log.Clear()
	slog.Info("conversation log cleared")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation log cleared"})
}

func (s *Server) handleListPersonalities(w http.ResponseWriter, _ *http.Request) {
	matches, err := filepath.Glob(filepath.Join(s.cfg.PersonalitiesDir, "*.txt"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list personalities")
		return
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".txt"))
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string][]string{"personalities": names})
}

func (s *Server) handleGetPersonality(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !validPersonalityName(name) {
		writeError(w, http.StatusBadRequest, "Invalid personality name")
		return
	}
	data, err := os.ReadFile(filepath.Join(s.cfg.PersonalitiesDir, name+".txt"))
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Personality %q not found", name))
			return
		}
		slog.Error("failed to read personality", "personality", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read personality")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": string(data)})
}

func (s *Server) handleSavePersonality(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !validPersonalityName(name) {
		writeError(w, http.StatusBadRequest, "Invalid personality name")
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Content == "" {
		writeError(w, http.StatusBadRequest, "content must be non-empty")
		return
	}
	if err := os.MkdirAll(s.cfg.PersonalitiesDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save personality")
		return
	}
	path := filepath.Join(s.cfg.PersonalitiesDir, name+".txt")
	if err := os.WriteFile(path, []byte(body.Content), 0o644); err != nil {
		slog.Error("failed to save personality", "personality", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save personality")
		return
	}
	slog.Info("saved personality", "personality", name)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Personality %q saved successfully", name),
	})
}

// validPersonalityName rejects names that could escape the personalities
// directory.
func validPersonalityName(name string) bool {
	if name == "" {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return true
}

// unknownVoiceDetail builds the 400 detail for a missing voice, including
// the closest available name when one is similar enough.
func (s *Server) unknownVoiceDetail(voice string) string {
	detail := fmt.Sprintf("unknown voice %q", voice)
	voices, err := synth.ListVoices(s.cfg.VoicesDir)
	if err != nil {
		return detail
	}
	best, score := "", 0.0
	for _, v := range voices {
		if sc := matchr.JaroWinkler(strings.ToLower(voice), strings.ToLower(v), false); sc > score {
			best, score = v, sc
		}
	}
	if best != "" && score >= suggestionThreshold {
		return fmt.Sprintf("%s (did you mean %q?)", detail, best)
	}
	return detail
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
