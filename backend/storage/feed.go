// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package storage

import (
	"context"

	"github.com/campusforum/chatlink/backend/models"
)

type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
)

// Event is one row-level change on a conversation's messages. Delivery
// is at least once; ordering across rows is not guaranteed, but a row's
// update is never delivered before its insert.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Message models.Message `json:"message"`
}

// Subscription is a live tail on one conversation. Close is safe to
// call more than once; after it returns no further callbacks run.
type Subscription interface {
	Close()
}

// Feed is the realtime change stream over the message table. The
// postgres store publishes after every successful write; consumers
// subscribe per conversation.
type Feed interface {
	PublishInsert(ctx context.Context, msg models.Message) error
	PublishUpdate(ctx context.Context, msg models.Message) error

	Subscribe(ctx context.Context, conversationID string, onInsert, onUpdate func(models.Message)) (Subscription, error)
}
