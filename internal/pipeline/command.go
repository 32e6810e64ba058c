package pipeline

// Command is one step of the pipeline. Its string form is what the WAL
// records.
type Command string

const (
	// Analyze parses the source file into an entry.
	Analyze Command = "ANALYZE"
	// Insert persists the parsed entry.
	Insert Command = "INSERT"
	// Move relocates the source file and ends the run.
	Move Command = "MOVE"
)

// DefaultCommands is the fixed sequence every file runs through.
// Treat it as read-only.
var DefaultCommands = []Command{Analyze, Insert, Move}

// indexOf returns the position of the command named name.
func indexOf(commands []Command, name string) (int, bool) {
	for i, c := range commands {
		if string(c) == name {
			return i, true
		}
	}
	return 0, false
}
