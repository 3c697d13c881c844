package models

import "time"

// MessageType classifies an inbound message.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeAudio MessageType = "audio"
	MessageTypeVideo MessageType = "video"
)

// InboundMessage is one normalized webhook payload. It is ephemeral: it
// exists only for the duration of a single processing pass.
type InboundMessage struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenantId"`
	ChatID      string      `json:"chatId"`
	Body        string      `json:"body"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	Timestamp   time.Time   `json:"timestamp"`
	MessageType MessageType `json:"messageType"`
	Status      string      `json:"status"`
}

// EventSessionStatus marks a webhook carrying a session status change
// instead of a message.
const EventSessionStatus = "session.status"

// WebhookPayload is the raw inbound webhook body. Missing fields are
// defaulted during normalization. Event distinguishes message deliveries
// (empty event) from gateway lifecycle notifications.
type WebhookPayload struct {
	Event       string `json:"event,omitempty"`
	Status      string `json:"status,omitempty"`
	ID          string `json:"id"`
	ChatID      string `json:"chatId"`
	Body        string `json:"body"`
	From        string `json:"from"`
	To          string `json:"to"`
	Timestamp   int64  `json:"timestamp"`
	MessageType string `json:"messageType"`
}

// OutboundKind discriminates outbound message variants.
type OutboundKind string

const (
	OutboundText  OutboundKind = "text"
	OutboundImage OutboundKind = "image"
	OutboundFile  OutboundKind = "file"
)

// OutboundMessage is a tagged union of the three send variants. Exactly the
// fields for its Kind are meaningful.
type OutboundMessage struct {
	Kind     OutboundKind `json:"kind"`
	ChatID   string       `json:"chatId"`
	Text     string       `json:"text,omitempty"`
	URL      string       `json:"url,omitempty"`
	Caption  string       `json:"caption,omitempty"`
	Filename string       `json:"filename,omitempty"`
}

// NewTextMessage builds a text variant.
func NewTextMessage(chatID, text string) OutboundMessage {
	return OutboundMessage{Kind: OutboundText, ChatID: chatID, Text: text}
}

// NewImageMessage builds an image variant.
func NewImageMessage(chatID, url, caption string) OutboundMessage {
	return OutboundMessage{Kind: OutboundImage, ChatID: chatID, URL: url, Caption: caption}
}

// NewFileMessage builds a file variant.
func NewFileMessage(chatID, url, filename string) OutboundMessage {
	return OutboundMessage{Kind: OutboundFile, ChatID: chatID, URL: url, Filename: filename}
}
