package tui

import "strings"

// Command is a parsed command-bar entry.
type Command struct {
	Name string
	Args []string
}

// ParseCommand parses command-bar input into a Command. The leading slash
// is optional — the bar itself already signals command mode. Returns nil
// for blank input.
func ParseCommand(input string) *Command {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "/")

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	return &Command{
		Name: parts[0],
		Args: parts[1:],
	}
}
