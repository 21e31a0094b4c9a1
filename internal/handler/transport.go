package handler

import (
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// ErrTransport wraps failures to deliver a message to Telegram.
var ErrTransport = errors.New("transport failure")

func reply(c tele.Context, what interface{}, opts ...interface{}) error {
	if err := c.Reply(what, opts...); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

func send(c tele.Context, what interface{}, opts ...interface{}) error {
	if err := c.Send(what, opts...); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}
