// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import "strings"

// AttachmentType is the render category of an uploaded file, resolved
// once at classification time rather than re-inferred at render time.
type AttachmentType string

const (
	AttachmentImage       AttachmentType = "image"
	AttachmentVideo       AttachmentType = "video"
	AttachmentAudio       AttachmentType = "audio"
	AttachmentPDF         AttachmentType = "pdf"
	AttachmentDocument    AttachmentType = "document"
	AttachmentSpreadsheet AttachmentType = "spreadsheet"
	AttachmentFile        AttachmentType = "file"
)

// Attachment describes one uploaded file on a message. The URL points
// at the media service; attachments are set at creation and never
// mutated by edits.
type Attachment struct {
	Type      AttachmentType `json:"type"`
	URL       string         `json:"url"`
	Name      string         `json:"name,omitempty"`
	Format    string         `json:"format,omitempty"`
	SizeBytes int64          `json:"size_bytes,omitempty"`
}

// ClassifyMIME maps a declared MIME type to an AttachmentType. Pure
// function of the MIME string, independent of the upload backend.
func ClassifyMIME(mime string) AttachmentType {
	m := strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(m, ";"); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	switch {
	case strings.HasPrefix(m, "image/"):
		return AttachmentImage
	case strings.HasPrefix(m, "video/"):
		return AttachmentVideo
	case strings.HasPrefix(m, "audio/"):
		return AttachmentAudio
	case m == "application/pdf":
		return AttachmentPDF
	case m == "application/msword",
		m == "text/plain",
		m == "application/rtf",
		strings.Contains(m, "wordprocessingml"),
		strings.Contains(m, "opendocument.text"):
		return AttachmentDocument
	case m == "application/vnd.ms-excel",
		m == "text/csv",
		strings.Contains(m, "spreadsheetml"),
		strings.Contains(m, "opendocument.spreadsheet"):
		return AttachmentSpreadsheet
	default:
		return AttachmentFile
	}
}
