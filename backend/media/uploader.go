// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusforum/chatlink/backend/models"
	"github.com/campusforum/chatlink/backend/telemetry"
)

// File is one attachment candidate selected by the user.
type File struct {
	Name    string
	MIME    string
	Size    int64
	Content io.Reader
}

// Uploader hands a file to the media service and returns a durable
// attachment descriptor. No retry policy; the caller decides whether
// to retry a failed upload.
type Uploader interface {
	Upload(ctx context.Context, f File) (models.Attachment, error)
}

// HTTPUploader posts files to a Cloudinary-style unsigned upload
// endpoint: multipart form with "file" and "upload_preset" fields,
// JSON response carrying secure_url / original_filename / bytes.
type HTTPUploader struct {
	endpoint string
	preset   string
	client   *http.Client
	log      zerolog.Logger
}

func NewHTTPUploader(endpoint, preset string, log zerolog.Logger) *HTTPUploader {
	return &HTTPUploader{
		endpoint: endpoint,
		preset:   preset,
		client:   &http.Client{Timeout: 60 * time.Second},
		log:      log.With().Str("component", "media").Logger(),
	}
}

type uploadResponse struct {
	SecureURL        string `json:"secure_url"`
	ResourceType     string `json:"resource_type"`
	OriginalFilename string `json:"original_filename"`
	Format           string `json:"format"`
	Bytes            int64  `json:"bytes"`
}

func (u *HTTPUploader) Upload(ctx context.Context, f File) (att models.Attachment, err error) {
	telemetry.UploadsStarted.Inc()
	defer func() {
		if err != nil {
			telemetry.UploadFailures.Inc()
		}
	}()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		part, err := form.CreateFormFile("file", f.Name)
		if err == nil {
			_, err = io.Copy(part, f.Content)
		}
		if err == nil {
			err = form.WriteField("upload_preset", u.preset)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, pr)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: %v", models.ErrUpload, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	res, err := u.client.Do(req)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: %v", models.ErrUpload, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		u.log.Warn().Int("status", res.StatusCode).Str("file", f.Name).Msg("media service rejected upload")
		return models.Attachment{}, fmt.Errorf("%w: media service returned %d", models.ErrUpload, res.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return models.Attachment{}, fmt.Errorf("%w: malformed upload response: %v", models.ErrUpload, err)
	}
	if out.SecureURL == "" {
		return models.Attachment{}, fmt.Errorf("%w: upload response missing url", models.ErrUpload)
	}

	name := out.OriginalFilename
	if name == "" {
		name = f.Name
	}
	size := out.Bytes
	if size == 0 {
		size = f.Size
	}

	return models.Attachment{
		// Classification is by the declared MIME type, not by what the
		// backend thinks the resource is.
		Type:      models.ClassifyMIME(f.MIME),
		URL:       out.SecureURL,
		Name:      name,
		Format:    out.Format,
		SizeBytes: size,
	}, nil
}
