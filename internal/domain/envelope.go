package domain

import (
	"strings"
	"time"
)

// Envelope content item types.
const (
	ContentText         = "text"
	ContentStartSession = "start-session"
	ContentEndSession   = "end-session"
)

// Content is one typed item of a chat envelope.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Envelope is a chat message as carried by the transport.
type Envelope struct {
	MsgID     string    `json:"msg_id"`
	Timestamp time.Time `json:"timestamp"`
	Content   []Content `json:"content"`
}

// Text concatenates every text item in the envelope.
func (e Envelope) Text() string {
	var b strings.Builder
	for _, c := range e.Content {
		if c.Type == ContentText {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// StartsSession reports whether the envelope carries a session-start marker.
func (e Envelope) StartsSession() bool {
	return e.has(ContentStartSession)
}

// EndsSession reports whether the envelope carries an end-of-session marker.
func (e Envelope) EndsSession() bool {
	return e.has(ContentEndSession)
}

func (e Envelope) has(kind string) bool {
	for _, c := range e.Content {
		if c.Type == kind {
			return true
		}
	}
	return false
}

// Acknowledgement confirms receipt of an inbound envelope.
type Acknowledgement struct {
	Timestamp         time.Time `json:"timestamp"`
	AcknowledgedMsgID string    `json:"acknowledged_msg_id"`
}

// Inbound is an envelope together with the address of the counterparty that sent it.
type Inbound struct {
	Sender  string   `json:"sender"`
	Message Envelope `json:"message"`
}
