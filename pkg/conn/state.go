package conn

type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
	Reconnecting State = "reconnecting"
)

func (s State) Live() bool {
	return s == Connecting || s == Connected
}
