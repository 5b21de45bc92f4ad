package chat

import "fmt"

// TypingStatus renders the indicator text for a set of typists.
func TypingStatus(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s is typing...", names[0])
	case 2:
		return fmt.Sprintf("%s and %s are typing...", names[0], names[1])
	default:
		return "Several people are typing..."
	}
}

// TypingStatusFor renders the indicator as seen by viewer, who is never told
// about their own typing.
func TypingStatusFor(names []string, viewer string) string {
	others := make([]string, 0, len(names))
	for _, name := range names {
		if name != viewer {
			others = append(others, name)
		}
	}
	return TypingStatus(others)
}
