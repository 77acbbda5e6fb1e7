package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mindspeak/mindspeak-backend/internal/api/respond"
	"github.com/mindspeak/mindspeak-backend/internal/model"
	"github.com/mindspeak/mindspeak-backend/internal/pipeline"
	"github.com/mindspeak/mindspeak-backend/internal/services"
	"github.com/mindspeak/mindspeak-backend/internal/uploads"
	"github.com/mindspeak/mindspeak-backend/internal/validate"
)

const (
	// recordings must be between 5 seconds and 2 minutes, with a small
	// buffer for client-side rounding
	minRecordingSeconds = 5
	maxRecordingSeconds = 125

	maxUploadBytes = 32 << 20
)

type EntryHandler struct {
	svc   *services.EntryService
	files *uploads.Dir
}

func NewEntryHandler(svc *services.EntryService, files *uploads.Dir) *EntryHandler {
	return &EntryHandler{svc: svc, files: files}
}

// entryView is the wire shape for a journal entry, adding derived
// fields the clients render directly.
type entryView struct {
	*model.JournalEntry
	MoodEmoji   string          `json:"moodEmoji"`
	TopEmotions []model.Emotion `json:"topEmotions"`
	WordCount   int             `json:"wordCount"`
	HasAudio    bool            `json:"hasAudio"`
}

func viewOf(e *model.JournalEntry, includeContent bool) entryView {
	v := entryView{
		JournalEntry: e,
		MoodEmoji:    e.MoodEmoji(),
		TopEmotions:  e.TopEmotions(3),
		WordCount:    e.WordCount(),
		HasAudio:     e.AudioFilename != nil,
	}
	if !includeContent {
		trimmed := *e
		trimmed.RawTranscript = ""
		trimmed.FormattedContent = ""
		v.JournalEntry = &trimmed
	}
	return v
}

// UploadAudio handles POST /api/users/{userId}/entries/upload-audio.
// Multipart form: "audio" file plus a "duration" field in seconds.
func (h *EntryHandler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respond.WriteBadRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		respond.WriteBadRequest(w, "No audio file provided")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		respond.WriteBadRequest(w, "No file selected")
		return
	}
	if !uploads.AllowedExtension(header.Filename) {
		respond.WriteBadRequest(w, "Invalid file format")
		return
	}

	duration, err := strconv.ParseFloat(r.FormValue("duration"), 64)
	if err != nil {
		respond.WriteBadRequest(w, "Recording duration is required")
		return
	}
	if err := validate.Duration(duration, minRecordingSeconds, maxRecordingSeconds); err != nil {
		respond.WriteServiceError(w, err)
		return
	}

	filename, _, err := h.files.SaveAudio(userID, header.Filename, file)
	if err != nil {
		respond.WriteInternalError(w, "failed to store recording")
		return
	}

	entry, err := h.svc.CreateAudioEntry(r.Context(), userID, filename)
	if err != nil {
		_ = h.files.Remove(userID, filename)
		respond.WriteServiceError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"entryId": entry.EntryID,
		"status":  entry.ProcessingStatus,
		"message": "Audio uploaded successfully",
	})
}

// ProcessEntry handles POST /api/users/{userId}/entries/{entryId}/process.
// When the client accepts text/event-stream, progress is streamed as
// server-sent events; otherwise the handler blocks and returns the
// final outcome as JSON.
func (h *EntryHandler) ProcessEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, entryID := vars["userId"], vars["entryId"]

	events, err := h.svc.ProcessEntry(r.Context(), userID, entryID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		h.streamEvents(w, events)
		return
	}

	var last pipeline.Event
	for ev := range events {
		last = ev
	}
	switch last.Status {
	case pipeline.StageComplete:
		respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"entryId": entryID,
			"status":  "completed",
			"message": "Processing completed successfully",
			"result":  last.Result,
		})
	default:
		respond.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"entryId": entryID,
			"status":  "error",
			"message": last.Message,
		})
	}
}

func (h *EntryHandler) streamEvents(w http.ResponseWriter, events <-chan pipeline.Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.WriteInternalError(w, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

// CreateTextEntry handles POST /api/users/{userId}/entries/text.
func (h *EntryHandler) CreateTextEntry(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var in struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	if err := validate.NonEmpty("text", in.Text); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	entry, err := h.svc.CreateTextEntry(r.Context(), userID, in.Text)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{"entry": viewOf(entry, true)})
}

func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entry, err := h.svc.GetEntry(r.Context(), vars["userId"], vars["entryId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"entry": viewOf(entry, true)})
}

func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	entries, err := h.svc.ListEntries(r.Context(), model.ListEntriesRequest{
		UserID: userID,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}

	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, viewOf(e, false))
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": views,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
		},
	})
}

func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var in struct {
		Title            string `json:"title"`
		FormattedContent string `json:"formattedContent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	entry, err := h.svc.UpdateEntry(r.Context(), vars["userId"], vars["entryId"], in.Title, in.FormattedContent)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Entry updated successfully",
		"entry":   viewOf(entry, true),
	})
}

func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.DeleteEntry(r.Context(), vars["userId"], vars["entryId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"message": "Entry deleted successfully"})
}

func (h *EntryHandler) RestoreEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.RestoreEntry(r.Context(), vars["userId"], vars["entryId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"message": "Entry restored successfully"})
}

func (h *EntryHandler) GetTrash(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	trash, err := h.svc.ListTrash(r.Context(), userID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	views := make([]entryView, 0, len(trash))
	for _, e := range trash {
		views = append(views, viewOf(e, false))
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": views,
		"count":   len(views),
	})
}

func (h *EntryHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	removed, err := h.svc.EmptyTrash(r.Context(), userID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Trash emptied successfully",
		"removed": removed,
	})
}

func (h *EntryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	recent, err := h.svc.ListEntries(r.Context(), model.ListEntriesRequest{UserID: userID, Limit: 3})
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	recentViews := make([]entryView, 0, len(recent))
	for _, e := range recent {
		recentViews = append(recentViews, viewOf(e, false))
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stats":     stats,
		"recent":    recentViews,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// FixStreaks handles POST /api/users/{userId}/entries/fix-streaks,
// recomputing streak counters from the stored entry history.
func (h *EntryHandler) FixStreaks(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	prefs, err := h.svc.RecomputeStreak(r.Context(), userID)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Streaks recalculated successfully",
		"currentStreak": prefs.CurrentStreak,
		"longestStreak": prefs.LongestStreak,
		"lastEntryDate": prefs.LastEntryDate,
	})
}
