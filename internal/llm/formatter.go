package llm

import "wellness-chatbot/pkg"

// Formatter turns a system prompt and the client's chat history into the
// message list a provider accepts.
type Formatter interface {
	Format(system string, history []pkg.ChatMessage) []Message
}

// RoleFor maps a chat sender to a provider role.
func RoleFor(sender pkg.Sender) string {
	if sender == pkg.SenderAI {
		return RoleAssistant
	}
	return RoleUser
}

// OpenAIFormatter passes the history through verbatim after the system
// prompt.
type OpenAIFormatter struct{}

func (OpenAIFormatter) Format(system string, history []pkg.ChatMessage) []Message {
	out := make([]Message, 0, len(history)+1)
	out = append(out, Message{Role: RoleSystem, Content: system})
	for _, m := range history {
		out = append(out, Message{Role: RoleFor(m.Sender), Content: m.Content})
	}
	return out
}

// PerplexityFormatter produces a strictly alternating user/assistant list
// after a single system message.  Consecutive turns from the same side are
// merged with a newline and assistant turns before the first user turn are
// dropped.
type PerplexityFormatter struct{}

func (PerplexityFormatter) Format(system string, history []pkg.ChatMessage) []Message {
	out := make([]Message, 0, len(history)+1)
	out = append(out, Message{Role: RoleSystem, Content: system})
	for _, m := range history {
		role := RoleFor(m.Sender)
		last := &out[len(out)-1]
		switch {
		case last.Role == role:
			last.Content += "\n" + m.Content
		case last.Role == RoleSystem && role == RoleAssistant:
			continue
		default:
			out = append(out, Message{Role: role, Content: m.Content})
		}
	}
	return out
}
