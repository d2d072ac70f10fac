// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/chat"
	"github.com/campusforum/chatlink/backend/media"
	"github.com/campusforum/chatlink/backend/middleware"
	"github.com/campusforum/chatlink/backend/telemetry"
)

// maxSendBody bounds multipart sends; attachments beyond this are
// rejected before any upload starts.
const maxSendBody = 64 << 20

type MessageHandler struct {
	composer  *chat.Composer
	lifecycle *chat.Lifecycle
	log       zerolog.Logger
}

func NewMessageHandler(composer *chat.Composer, lifecycle *chat.Lifecycle, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		composer:  composer,
		lifecycle: lifecycle,
		log:       log.With().Str("handler", "messages").Logger(),
	}
}

// Send accepts either a JSON body (text-only message) or a multipart
// form with a content field and any number of file parts. Files go
// through the media adapter before the message is persisted.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversationID := mux.Vars(r)["conversationId"]

	draft, err := h.parseDraft(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.composer.Send(r.Context(), conversationID, userID, draft)
	if err != nil {
		telemetry.SendFailures.Inc()
		writeError(w, err)
		return
	}

	telemetry.MessagesSent.Inc()
	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) parseDraft(r *http.Request) (*chat.Draft, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		var req struct {
			Content string `json:"content"`
			ReplyTo string `json:"reply_to"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return &chat.Draft{Text: req.Content, ReplyTo: req.ReplyTo}, nil
	}

	if err := r.ParseMultipartForm(maxSendBody); err != nil {
		return nil, err
	}

	draft := &chat.Draft{
		Text:    r.FormValue("content"),
		ReplyTo: r.FormValue("reply_to"),
	}
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		draft.Files = append(draft.Files, media.File{
			Name:    fh.Filename,
			MIME:    fh.Header.Get("Content-Type"),
			Size:    fh.Size,
			Content: f,
		})
	}
	return draft, nil
}

// Edit replaces the text of the caller's own message.
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	messageID := mux.Vars(r)["messageId"]

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.lifecycle.Edit(r.Context(), userID, messageID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// DeleteForEveryone tombstones the caller's own message for all
// participants.
func (h *MessageHandler) DeleteForEveryone(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	messageID := mux.Vars(r)["messageId"]
	msg, err := h.lifecycle.DeleteForEveryone(r.Context(), userID, messageID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// DeleteForMe hides a message from the caller only.
func (h *MessageHandler) DeleteForMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	messageID := mux.Vars(r)["messageId"]
	msg, err := h.lifecycle.DeleteForMe(r.Context(), userID, messageID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// Forward copies a message into another conversation, or into the
// direct conversation with a peer when peer_id is given instead.
func (h *MessageHandler) Forward(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	messageID := mux.Vars(r)["messageId"]

	var req struct {
		ConversationID string `json:"conversation_id"`
		PeerID         string `json:"peer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.lifecycle.Forward(r.Context(), userID, messageID, chat.ForwardTarget{
		ConversationID: req.ConversationID,
		PeerID:         req.PeerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// MarkRead records that the caller has read a message.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	messageID := mux.Vars(r)["messageId"]
	msg, err := h.lifecycle.MarkRead(r.Context(), userID, messageID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}
