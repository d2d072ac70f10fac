// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/chat"
	"github.com/campusforum/chatlink/backend/middleware"
	"github.com/campusforum/chatlink/backend/models"
	"github.com/campusforum/chatlink/backend/storage"
)

type ConversationHandler struct {
	directory *chat.Directory
	store     storage.Store
	log       zerolog.Logger
}

func NewConversationHandler(directory *chat.Directory, store storage.Store, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		directory: directory,
		store:     store,
		log:       log.With().Str("handler", "conversations").Logger(),
	}
}

// List returns the caller's conversations, newest activity first.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summaries, err := h.directory.ListConversations(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": summaries,
		"count":         len(summaries),
	})
}

// CreateDirect finds or creates the direct conversation with a peer.
// Repeated calls for the same pair, in either order, return the same
// conversation id.
func (h *ConversationHandler) CreateDirect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		PeerID string `json:"peer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	conversationID, err := h.directory.FindOrCreateDirect(r.Context(), userID, req.PeerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"conversation_id": conversationID,
	})
}

// CreateGroup creates a group or community conversation with the
// caller plus the listed members.
func (h *ConversationHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Type        string   `json:"type"`
		MemberIDs   []string `json:"member_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	convType := models.ConversationType(req.Type)
	if convType == "" {
		convType = models.ConversationGroup
	}
	if convType != models.ConversationGroup && convType != models.ConversationCommunity {
		writeError(w, fmt.Errorf("%w: unknown conversation type %q", models.ErrValidation, req.Type))
		return
	}
	if req.Name == "" {
		writeError(w, fmt.Errorf("%w: group name is required", models.ErrValidation))
		return
	}

	conv := models.Conversation{
		ID:          uuid.New().String(),
		Type:        convType,
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   userID,
	}

	members := append([]string{userID}, req.MemberIDs...)
	if err := h.store.CreateGroup(r.Context(), conv, members); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"conversation_id": conv.ID,
	})
}

// Delete removes a conversation and everything under it.
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversationID := mux.Vars(r)["conversationId"]
	if err := h.directory.DeleteConversation(r.Context(), userID, conversationID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// History returns the full message list of a conversation, ascending
// by creation time. Participants only.
func (h *ConversationHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversationID := mux.Vars(r)["conversationId"]

	member, err := h.store.IsParticipant(r.Context(), conversationID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !member {
		writeError(w, fmt.Errorf("%w: not a participant", models.ErrPermission))
		return
	}

	messages, err := h.store.FetchHistory(r.Context(), conversationID)
	if err != nil {
		writeError(w, err)
		return
	}

	// Delete-for-me filtering happens server side so the deleting
	// viewer never sees the row again on any device. Tombstoned rows
	// stay visible regardless of the per-viewer delete set.
	visible := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if !m.VisibleTo(userID) {
			continue
		}
		visible = append(visible, m)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": visible,
		"count":    len(visible),
	})
}
