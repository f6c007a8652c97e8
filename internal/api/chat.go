package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/smartbiz/smartbiz/internal/store"
)

type chatRequest struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
	Context string `json:"context"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Assistant == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ASSISTANT_MISSING", "assistant service is not configured", false, nil)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", false, nil)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "message is required", false, nil)
		return
	}

	reply := deps.Assistant.Respond(r.Context(), req.Message, req.Context)

	if deps.Chat != nil && req.UserID > 0 {
		in := store.AppendChatInput{UserID: req.UserID, Message: req.Message, Response: reply}
		if _, err := deps.Chat.AppendChat(r.Context(), in); err != nil && deps.Logger != nil {
			deps.Logger.WarnContext(r.Context(), "chat history write failed",
				slog.Int64("user_id", req.UserID),
				slog.Any("error", err),
			)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"response": reply})
}

func handleChatHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CHAT_STORE_MISSING", "chat store is not configured", false, nil)
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "user_id query parameter is required", false, nil)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", false, nil)
			return
		}
		limit = parsed
	}

	messages, err := deps.Chat.ListChatHistory(r.Context(), userID, limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CHAT_HISTORY_FAILED", "failed to load chat history", true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

type voiceChatRequest struct {
	Message     string `json:"message"`
	Context     string `json:"context"`
	EnableVoice *bool  `json:"enable_voice"`
	VoiceID     string `json:"voice_id"`
}

// handleChatVoice is the voice variant of /api/chat: the assistant reply
// is synthesized to MP3. Voice defaults to on and can be turned off per
// request; a synthesis failure degrades to the text reply with a
// voice_error note rather than failing the chat.
func handleChatVoice(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Assistant == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ASSISTANT_MISSING", "assistant service is not configured", false, nil)
		return
	}

	var req voiceChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", false, nil)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "message is required", false, nil)
		return
	}

	reply := deps.Assistant.Respond(r.Context(), req.Message, req.Context)

	if req.EnableVoice != nil && !*req.EnableVoice {
		writeJSON(w, http.StatusOK, map[string]any{"response": reply})
		return
	}
	if deps.Speech == nil {
		writeJSON(w, http.StatusOK, map[string]any{"response": reply, "voice_error": "speech service is not configured"})
		return
	}

	audio, err := deps.Speech.Synthesize(r.Context(), reply, req.VoiceID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"response": reply, "voice_error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `inline; filename="response.mp3"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

func handleChatVoices(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Speech == nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SPEECH_MISSING", "speech service is not configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": deps.Speech.Voices(r.Context())})
}
