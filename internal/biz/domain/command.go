package domain

import "strings"

// Command is an operator command typed into a chat
type Command string

const (
	CommandStart Command = "start"
	CommandInfo  Command = "info"
	CommandStats Command = "stats"
	CommandClear Command = "clear"
)

var commandAliases = map[string]Command{
	"start": CommandStart,
	"info":  CommandInfo,
	"help":  CommandInfo,
	"stats": CommandStats,
	"clear": CommandClear,
}

// ParseCommand recognizes "/name" or "/name@handle" at the start of text
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return "", false
	}
	head := name[0]
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	cmd, ok := commandAliases[strings.ToLower(head)]
	return cmd, ok
}
