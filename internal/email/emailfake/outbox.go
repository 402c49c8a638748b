package emailfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/takemethere/internal/email"
)

var _ email.Sender = (*Outbox)(nil)

// Outbox records messages instead of sending them.
type Outbox struct {
	mu       sync.Mutex
	messages []email.Message
	Err      error
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Send(_ context.Context, msg email.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.messages = append(o.messages, msg)
	return nil
}

func (o *Outbox) Messages() []email.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]email.Message(nil), o.messages...)
}

// Last returns the most recent message sent to the address.
func (o *Outbox) Last(to string) (email.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].To == to {
			return o.messages[i], true
		}
	}
	return email.Message{}, false
}
