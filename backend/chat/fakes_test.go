// Copyright (C) 2025 campusforum <dev@campusforum.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusforum/chatlink/backend/media"
	"github.com/campusforum/chatlink/backend/models"
	"github.com/campusforum/chatlink/backend/storage"
)

// fakeStore is an in-memory storage.Store with the same error
// semantics as the postgres implementation.
type fakeStore struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation
	participants  map[string][]models.Participant
	pairs         map[string]string // "user1|user2" -> conversation id
	messages      map[string]*models.Message
	order         []string // message ids in insert order
	profiles      map[string]*models.Profile
	unread        map[string]int64 // "user|conv"

	feed storage.Feed // optional; Insert/updates publish when set

	insertErr   error
	createErr   error
	findErr     error
	findNilOnce bool // first FindDirect reports no row, simulating a lost create race
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[string]*models.Conversation),
		participants:  make(map[string][]models.Participant),
		pairs:         make(map[string]string),
		messages:      make(map[string]*models.Message),
		profiles:      make(map[string]*models.Profile),
		unread:        make(map[string]int64),
	}
}

func (s *fakeStore) addProfile(id, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[id] = &models.Profile{ID: id, Username: username}
}

func (s *fakeStore) addDirect(conversationID, user1, user2 string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user1 > user2 {
		user1, user2 = user2, user1
	}
	s.conversations[conversationID] = &models.Conversation{
		ID: conversationID, Type: models.ConversationDirect, CreatedAt: time.Now(),
	}
	s.pairs[user1+"|"+user2] = conversationID
	s.participants[conversationID] = []models.Participant{
		{ConversationID: conversationID, UserID: user1},
		{ConversationID: conversationID, UserID: user2},
	}
}

func (s *fakeStore) addMessage(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := msg
	s.messages[m.ID] = &m
	s.order = append(s.order, m.ID)
}

func (s *fakeStore) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: conversation %s", models.ErrNotFound, conversationID)
	}
	out := *conv
	return &out, nil
}

func (s *fakeStore) CreateDirect(ctx context.Context, conversationID, creatorID, user1, user2 string) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := user1 + "|" + user2
	if _, exists := s.pairs[key]; exists {
		return fmt.Errorf("%w: direct conversation already exists", models.ErrValidation)
	}
	s.pairs[key] = conversationID
	s.conversations[conversationID] = &models.Conversation{
		ID: conversationID, Type: models.ConversationDirect, CreatedBy: creatorID, CreatedAt: time.Now(),
	}
	s.participants[conversationID] = []models.Participant{
		{ConversationID: conversationID, UserID: user1},
		{ConversationID: conversationID, UserID: user2},
	}
	return nil
}

func (s *fakeStore) FindDirect(ctx context.Context, user1, user2 string) (*models.Conversation, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findNilOnce {
		s.findNilOnce = false
		return nil, nil
	}
	if user1 > user2 {
		user1, user2 = user2, user1
	}
	id, ok := s.pairs[user1+"|"+user2]
	if !ok {
		return nil, nil
	}
	out := *s.conversations[id]
	return &out, nil
}

func (s *fakeStore) CreateGroup(ctx context.Context, conv models.Conversation, memberIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := conv
	s.conversations[c.ID] = &c
	for _, id := range memberIDs {
		s.participants[c.ID] = append(s.participants[c.ID], models.Participant{ConversationID: c.ID, UserID: id})
	}
	return nil
}

func (s *fakeStore) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for id, parts := range s.participants {
		for _, p := range parts {
			if p.UserID == userID {
				out = append(out, *s.conversations[id])
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) Participants(ctx context.Context, conversationID string) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Participant(nil), s.participants[conversationID]...), nil
}

func (s *fakeStore) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants[conversationID] {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) DeleteCascade(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return fmt.Errorf("%w: conversation %s", models.ErrNotFound, conversationID)
	}
	for id, m := range s.messages {
		if m.ConversationID == conversationID {
			delete(s.messages, id)
		}
	}
	delete(s.participants, conversationID)
	delete(s.conversations, conversationID)
	return nil
}

func (s *fakeStore) FetchHistory(ctx context.Context, conversationID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, id := range s.order {
		m, ok := s.messages[id]
		if ok && m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeStore) LastMessage(ctx context.Context, conversationID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		m, ok := s.messages[s.order[i]]
		if ok && m.ConversationID == conversationID {
			out := *m
			return &out, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetMessage(ctx context.Context, messageID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	out := *m
	return &out, nil
}

func (s *fakeStore) Insert(ctx context.Context, draft models.MessageDraft) (*models.Message, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	if draft.Empty() {
		return nil, fmt.Errorf("%w: message has no content", models.ErrValidation)
	}

	s.mu.Lock()
	member := false
	for _, p := range s.participants[draft.ConversationID] {
		if p.UserID == draft.SenderID {
			member = true
			break
		}
	}
	if !member {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: sender is not a participant", models.ErrPermission)
	}
	if draft.ReplyTo != "" {
		ref, ok := s.messages[draft.ReplyTo]
		if !ok || ref.ConversationID != draft.ConversationID {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: reply must reference a message in the same conversation", models.ErrValidation)
		}
	}

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: draft.ConversationID,
		SenderID:       draft.SenderID,
		Content:        draft.Content,
		Attachments:    draft.Attachments,
		ReplyTo:        draft.ReplyTo,
		ForwardedFrom:  draft.ForwardedFrom,
		Status:         models.StatusSent,
		CreatedAt:      time.Now(),
	}
	s.messages[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	out := *msg
	s.mu.Unlock()

	if s.feed != nil {
		s.feed.PublishInsert(ctx, out)
	}
	return &out, nil
}

func (s *fakeStore) UpdateContent(ctx context.Context, messageID, callerID, content string) (*models.Message, error) {
	s.mu.Lock()
	m, ok := s.messages[messageID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	if m.SenderID != callerID {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: only the sender can edit", models.ErrPermission)
	}
	now := time.Now()
	m.Content = content
	m.Edited = true
	m.UpdatedAt = &now
	out := *m
	s.mu.Unlock()

	if s.feed != nil {
		s.feed.PublishUpdate(ctx, out)
	}
	return &out, nil
}

func (s *fakeStore) MarkDeletedForEveryone(ctx context.Context, messageID, callerID string) (*models.Message, error) {
	s.mu.Lock()
	m, ok := s.messages[messageID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	if m.SenderID != callerID {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: only the sender can delete for everyone", models.ErrPermission)
	}
	m.IsDeleted = true
	out := *m
	s.mu.Unlock()

	if s.feed != nil {
		s.feed.PublishUpdate(ctx, out)
	}
	return &out, nil
}

func (s *fakeStore) MarkDeletedForMe(ctx context.Context, messageID, userID string) (*models.Message, error) {
	s.mu.Lock()
	m, ok := s.messages[messageID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	if !m.DeletedForUser(userID) {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
	out := *m
	s.mu.Unlock()

	if s.feed != nil {
		s.feed.PublishUpdate(ctx, out)
	}
	return &out, nil
}

func (s *fakeStore) MarkRead(ctx context.Context, messageID, userID string) (*models.Message, error) {
	s.mu.Lock()
	m, ok := s.messages[messageID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	if m.SenderID != userID {
		m.Status = models.StatusRead
		s.unread[userID+"|"+m.ConversationID] = 0
	}
	out := *m
	s.mu.Unlock()
	return &out, nil
}

func (s *fakeStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
	}
	out := *p
	return &out, nil
}

func (s *fakeStore) SearchProfiles(ctx context.Context, term string, limit int) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Profile
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) UnreadCount(ctx context.Context, userID, conversationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[userID+"|"+conversationID], nil
}

func (s *fakeStore) ClearUnread(ctx context.Context, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread[userID+"|"+conversationID] = 0
	return nil
}

// fakeFeed delivers published events synchronously to the matching
// subscription, standing in for redis pub/sub.
type fakeFeed struct {
	mu           sync.Mutex
	subs         map[*fakeSub]struct{}
	subscribed   int
	subscribeErr error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subs: make(map[*fakeSub]struct{})}
}

type fakeSub struct {
	feed           *fakeFeed
	conversationID string
	onInsert       func(models.Message)
	onUpdate       func(models.Message)
	closed         bool
}

func (f *fakeFeed) Subscribe(ctx context.Context, conversationID string, onInsert, onUpdate func(models.Message)) (storage.Subscription, error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSub{feed: f, conversationID: conversationID, onInsert: onInsert, onUpdate: onUpdate}
	f.subs[sub] = struct{}{}
	f.subscribed++
	return sub, nil
}

func (f *fakeFeed) PublishInsert(ctx context.Context, msg models.Message) error {
	for _, s := range f.snapshot(msg.ConversationID) {
		s.onInsert(msg)
	}
	return nil
}

func (f *fakeFeed) PublishUpdate(ctx context.Context, msg models.Message) error {
	for _, s := range f.snapshot(msg.ConversationID) {
		s.onUpdate(msg)
	}
	return nil
}

func (f *fakeFeed) snapshot(conversationID string) []*fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeSub
	for s := range f.subs {
		if s.conversationID == conversationID && !s.closed {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeFeed) openSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (s *fakeSub) Close() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	s.closed = true
	delete(s.feed.subs, s)
}

// fakeUploader succeeds unless the file name is listed in fail.
type fakeUploader struct {
	mu       sync.Mutex
	fail     map[string]bool
	uploaded []string
}

func newFakeUploader(failNames ...string) *fakeUploader {
	fail := make(map[string]bool)
	for _, n := range failNames {
		fail[n] = true
	}
	return &fakeUploader{fail: fail}
}

func (u *fakeUploader) Upload(ctx context.Context, f media.File) (models.Attachment, error) {
	u.mu.Lock()
	u.uploaded = append(u.uploaded, f.Name)
	u.mu.Unlock()
	if u.fail[f.Name] {
		return models.Attachment{}, fmt.Errorf("%w: media service rejected %s", models.ErrUpload, f.Name)
	}
	return models.Attachment{
		Type: models.ClassifyMIME(f.MIME),
		URL:  "https://cdn.campusforum.net/" + f.Name,
		Name: f.Name,
	}, nil
}
