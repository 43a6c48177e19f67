package dummymail

import (
	"sync"

	"github.com/fnelms/backend/core"
)

// Service records rendered messages without sending anything. Test use only.
type Service struct {
	mu           sync.Mutex
	sentMessages []core.EmailMessage
}

var _ core.EmailService = (*Service)(nil)

func NewService() *Service {
	return &Service{}
}

func (svc *Service) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if err := msg.Render(); err != nil {
			continue
		}
		if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
			svc.mu.Lock()
			svc.sentMessages = append(svc.sentMessages, *msg)
			svc.mu.Unlock()
		}
	}
}

func (svc *Service) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	msgs := make([]core.EmailMessage, len(svc.sentMessages))
	copy(msgs, svc.sentMessages)
	return msgs
}

func (svc *Service) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sentMessages = nil
}
