package supervisor

// State is the lifecycle state of one player's process.
type State string

const (
	Stopped  State = "stopped"
	Starting State = "starting"
	Running  State = "running"
	Stopping State = "stopping"
	// Crashed means the process exited without being asked to.
	Crashed State = "crashed"
)
