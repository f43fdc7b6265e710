package tui

// UI envelope types published on bus.TopicState next to the store snapshots.
const (
	TypeEventLine = "ui.event.line"
	TypeConnState = "ui.conn.state"
)
