// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/middleware"
	"github.com/campusforum/chatlink/backend/storage"
)

const defaultSearchLimit = 20

type UserHandler struct {
	store storage.ProfileStore
	log   zerolog.Logger
}

func NewUserHandler(store storage.ProfileStore, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		store: store,
		log:   log.With().Str("handler", "users").Logger(),
	}
}

// Search finds forum users by username substring, the start-new-chat
// path in the client.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	term := r.URL.Query().Get("q")
	if term == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"users": []struct{}{}, "count": 0})
		return
	}

	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	users, err := h.store.SearchProfiles(r.Context(), term, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// GetProfile returns one user's public profile.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	profile, err := h.store.GetProfile(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
