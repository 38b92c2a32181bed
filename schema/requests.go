package schema

// CommandType is the top-level type of an outgoing protocol command.
type CommandType string

const (
	// CommandSendKeys delivers key tokens to the target command.
	CommandSendKeys CommandType = "sendKeys"
	// CommandTakeSnapshot requests a rendering of the current display.
	CommandTakeSnapshot CommandType = "takeSnapshot"
	// CommandResize changes the virtual terminal dimensions.
	CommandResize CommandType = "resize"
	// CommandExit asks the engine to shut itself down.
	CommandExit CommandType = "exit"
)

// Command is one outgoing protocol message, serialized as a single
// JSON line on the engine's stdin.
type Command struct {
	Type CommandType `json:"type"`
	Keys []string    `json:"keys,omitempty"`
	Rows int         `json:"rows,omitempty"`
	Cols int         `json:"cols,omitempty"`
}

// SendKeysCommand builds a sendKeys command from encoded tokens.
func SendKeysCommand(tokens []KeyToken) Command {
	return Command{Type: CommandSendKeys, Keys: KeysToWire(tokens)}
}

// TakeSnapshotCommand builds a takeSnapshot command.
func TakeSnapshotCommand() Command {
	return Command{Type: CommandTakeSnapshot}
}

// ResizeCommand builds a resize command.
func ResizeCommand(rows, cols int) Command {
	return Command{Type: CommandResize, Rows: rows, Cols: cols}
}

// ExitCommand builds an exit command.
func ExitCommand() Command {
	return Command{Type: CommandExit}
}
