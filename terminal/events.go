package terminal

// Event topics emitted on a Terminal. Subscribe with Terminal.On.
//
// The connect, data, end, timeout and drain topics forward the output and
// input channel signals verbatim. exit fires once when the output channel
// closes; its payload is nil because the exit code is unknown in this
// binding. error carries the underlying error.
const (
	EventConnect = "connect"
	EventData    = "data"
	EventEnd     = "end"
	EventTimeout = "timeout"
	EventDrain   = "drain"
	EventExit    = "exit"
	EventError   = "error"
)
