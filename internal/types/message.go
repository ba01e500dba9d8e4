package types

import "time"

// Author is the sender of a message. Webhook senders are folded into the
// same shape with Webhook set.
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Webhook   bool   `json:"webhook,omitempty"`
}

type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Message is one produced item. The engine always emits messages
// oldest-first regardless of the service's native ordering.
type Message struct {
	ID          string       `json:"id"`
	ChannelID   string       `json:"channel_id"`
	Author      Author       `json:"author"`
	Timestamp   time.Time    `json:"timestamp"`
	Body        string       `json:"body,omitempty"`
	Embeds      []Embed      `json:"embeds,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}
