// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

// Profile is the display identity of a forum user. The identity
// provider owns the record; this service only reads it.
type Profile struct {
	ID           string `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	ProfilePhoto string `json:"profile_photo,omitempty" db:"profile_photo"`
}
