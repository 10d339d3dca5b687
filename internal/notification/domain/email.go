package domain

import (
	"context"
	"errors"
	"fmt"
)

// 信件驗證錯誤
var (
	// ErrNoRecipient email missing recipient address
	ErrNoRecipient = errors.New("email missing recipient address")
	// ErrEmptyBody email missing body
	ErrEmptyBody = errors.New("email missing body")
)

// EmailMessage 定義一封待寄出的通知信
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// Validate checks that the email has all required fields
func (m *EmailMessage) Validate() error {
	if m.To == "" {
		return ErrNoRecipient
	}
	if m.Body == "" {
		return ErrEmptyBody
	}
	return nil
}

// EmailSender defines the interface for sending emails
type EmailSender interface {
	Send(ctx context.Context, msg *EmailMessage) error
}

// ComposeReadyMail 組出轉檔完成通知信
func ComposeReadyMail(to, mp3FID string) *EmailMessage {
	return &EmailMessage{
		To:      to,
		Subject: "MP3 Download",
		Body:    fmt.Sprintf("mp3 file_id: %s is now ready!", mp3FID),
	}
}
