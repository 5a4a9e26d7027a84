// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"errors"
	"math"

	"github.com/ava-labs/avalanchego/database"
)

const (
	// MaxChatMessages is the number of messages kept per session. Older
	// messages are dropped first.
	MaxChatMessages = 256

	UserRole      = "user"
	AssistantRole = "assistant"
)

var (
	errMissingSession = errors.New("session id is required")

	_ ChatState = &chatState{}
)

// ChatMessage is one turn of a tutoring conversation.
type ChatMessage struct {
	Role      string `serialize:"true" json:"role"`
	Content   string `serialize:"true" json:"content"`
	Topic     string `serialize:"true" json:"topic,omitempty"`
	Timestamp int64  `serialize:"true" json:"timestamp"`
}

// ChatHistory is the conversation of one user in one session.
type ChatHistory struct {
	UserID    string        `serialize:"true" json:"userID"`
	SessionID string        `serialize:"true" json:"sessionID"`
	Messages  []ChatMessage `serialize:"true" json:"messages"`
	CreatedAt int64         `serialize:"true" json:"createdAt"`
	UpdatedAt int64         `serialize:"true" json:"updatedAt"`
}

type ChatState interface {
	// AppendChat adds [messages] to the history of (userID, sessionID),
	// creating it at [now] when it doesn't exist yet.
	AppendChat(userID, sessionID string, now int64, messages ...ChatMessage) (ChatHistory, error)
	GetChatHistory(userID, sessionID string) (ChatHistory, error)
}

type chatState struct {
	chatDB database.Database
}

func NewChatState(db database.Database) ChatState {
	return &chatState{chatDB: db}
}

func chatKey(userID, sessionID string) []byte {
	return append(userPrefix(userID), sessionID...)
}

func (s *chatState) AppendChat(userID, sessionID string, now int64, messages ...ChatMessage) (ChatHistory, error) {
	switch {
	case userID == "":
		return ChatHistory{}, errMissingUser
	case sessionID == "":
		return ChatHistory{}, errMissingSession
	}
	for _, m := range messages {
		if len(m.Content) > math.MaxUint16 {
			return ChatHistory{}, errFieldTooLong
		}
	}

	history, err := s.GetChatHistory(userID, sessionID)
	switch {
	case err == database.ErrNotFound:
		history = ChatHistory{
			UserID:    userID,
			SessionID: sessionID,
			CreatedAt: now,
		}
	case err != nil:
		return ChatHistory{}, err
	}

	history.Messages = append(history.Messages, messages...)
	if extra := len(history.Messages) - MaxChatMessages; extra > 0 {
		history.Messages = append([]ChatMessage(nil), history.Messages[extra:]...)
	}
	history.UpdatedAt = now

	bytes, err := Codec.Marshal(CodecVersion, &history)
	if err != nil {
		return ChatHistory{}, err
	}
	if err := s.chatDB.Put(chatKey(userID, sessionID), bytes); err != nil {
		return ChatHistory{}, err
	}
	return history, nil
}

func (s *chatState) GetChatHistory(userID, sessionID string) (ChatHistory, error) {
	bytes, err := s.chatDB.Get(chatKey(userID, sessionID))
	if err != nil {
		return ChatHistory{}, err
	}
	history := ChatHistory{}
	parsedVersion, err := Codec.Unmarshal(bytes, &history)
	if err != nil {
		return ChatHistory{}, err
	}
	if parsedVersion != CodecVersion {
		return ChatHistory{}, errWrongVersion
	}
	return history, nil
}
