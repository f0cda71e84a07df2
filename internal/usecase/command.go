package usecase

import "strings"

// DefaultAwakenedBy is used when a curate command names no address.
const DefaultAwakenedBy = "Unknown"

type CommandKind int

const (
	CommandSubmit CommandKind = iota
	CommandSearch
	CommandCurate
)

func (k CommandKind) String() string {
	switch k {
	case CommandSearch:
		return "search"
	case CommandCurate:
		return "curate"
	default:
		return "submit"
	}
}

// Command is a parsed chat message. Data is set for submissions and
// AwakenedBy for curate commands.
type Command struct {
	Kind       CommandKind
	Data       string
	AwakenedBy string
}

// ParseCommand classifies message text. "search" must match exactly after
// trimming; anything starting with "curate" is a curate command whose second
// whitespace-separated token, if any, names the awakener. Everything else is
// a data submission.
func ParseCommand(text string) Command {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch {
	case normalized == "search":
		return Command{Kind: CommandSearch}
	case strings.HasPrefix(normalized, "curate"):
		awakenedBy := DefaultAwakenedBy
		if fields := strings.Fields(text); len(fields) > 1 {
			awakenedBy = fields[1]
		}
		return Command{Kind: CommandCurate, AwakenedBy: awakenedBy}
	default:
		return Command{Kind: CommandSubmit, Data: text}
	}
}
