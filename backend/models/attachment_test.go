// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMIME(t *testing.T) {
	cases := []struct {
		mime string
		want AttachmentType
	}{
		{"image/png", AttachmentImage},
		{"image/jpeg", AttachmentImage},
		{"IMAGE/GIF", AttachmentImage},
		{"video/mp4", AttachmentVideo},
		{"audio/mpeg", AttachmentAudio},
		{"application/pdf", AttachmentPDF},
		{"application/msword", AttachmentDocument},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", AttachmentDocument},
		{"application/vnd.oasis.opendocument.text", AttachmentDocument},
		{"text/plain", AttachmentDocument},
		{"text/plain; charset=utf-8", AttachmentDocument},
		{"application/vnd.ms-excel", AttachmentSpreadsheet},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", AttachmentSpreadsheet},
		{"text/csv", AttachmentSpreadsheet},
		{"application/zip", AttachmentFile},
		{"application/octet-stream", AttachmentFile},
		{"", AttachmentFile},
		{"nonsense", AttachmentFile},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyMIME(tc.mime), "mime %q", tc.mime)
	}
}
