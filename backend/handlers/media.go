// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/media"
	"github.com/campusforum/chatlink/backend/middleware"
)

type MediaHandler struct {
	uploader media.Uploader
	log      zerolog.Logger
}

func NewMediaHandler(uploader media.Uploader, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		uploader: uploader,
		log:      log.With().Str("handler", "media").Logger(),
	}
}

// Upload pushes a single file through the media adapter and returns
// the resulting attachment record so the client can reference it.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxSendBody); err != nil {
		http.Error(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file part", http.StatusBadRequest)
		return
	}
	defer f.Close()

	att, err := h.uploader.Upload(r.Context(), media.File{
		Name:    fh.Filename,
		MIME:    fh.Header.Get("Content-Type"),
		Size:    fh.Size,
		Content: f,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, att)
}
