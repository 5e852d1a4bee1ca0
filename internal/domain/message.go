package domain

// MessageType classifies a transient board notice.
type MessageType string

const (
	MessageSuccess MessageType = "success"
	MessageError   MessageType = "error"
	MessageWarning MessageType = "warning"
)

// Message is a transient notice shown to the user.
type Message struct {
	Type MessageType
	Text string
}

// NewMessage validates the type and returns a message.
func NewMessage(kind MessageType, text string) (Message, error) {
	switch kind {
	case MessageSuccess, MessageError, MessageWarning:
	default:
		return Message{}, ErrInvalidMessage
	}
	return Message{Type: kind, Text: text}, nil
}
