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

package models

import "errors"

// Error taxonomy shared across storage, chat and handlers. Call sites
// wrap these with fmt.Errorf("...: %w", err) so handlers can map them
// to HTTP status codes with errors.Is.
var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermission means the actor is not authorized for the mutation.
	ErrPermission = errors.New("permission denied")

	// ErrValidation means the input is malformed or violates an invariant.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyMessage means a send was attempted with no text and no
	// surviving attachments.
	ErrEmptyMessage = errors.New("empty message")

	// ErrUpload means the media upload service rejected or failed a file.
	ErrUpload = errors.New("upload failed")

	// ErrSendFailed means persistence failed after upload; the caller's
	// draft must be preserved.
	ErrSendFailed = errors.New("send failed")

	// ErrSubscription means the realtime feed connection was lost. The
	// consumer recovers with a full history re-fetch, not incrementally.
	ErrSubscription = errors.New("subscription lost")
)
