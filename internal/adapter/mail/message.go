// Package mail delivers the service's outgoing email.
package mail

import (
	"context"
	"errors"
	"strings"
)

// Message is a plain-text email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Validate checks the fields every transport needs.
func (m Message) Validate() error {
	if !strings.Contains(m.To, "@") {
		return errors.New("mail: recipient must be an email address")
	}
	if strings.ContainsAny(m.To, "\r\n") || strings.ContainsAny(m.Subject, "\r\n") {
		return errors.New("mail: header fields must not contain line breaks")
	}
	return nil
}

// Sender hands a message to some delivery mechanism.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
