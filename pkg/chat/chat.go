package chat

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single role-tagged message sent to the LLM.
// The shape matches the chat-completion APIs of every supported provider.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Options are the generation knobs passed alongside the message list.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// System returns a system-role message with the given content.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user-role message with the given content.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant returns an assistant-role message with the given content.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
