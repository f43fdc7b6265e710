package bus

const (
	// TopicActions carries store actions (queue fetch, incremental updates).
	TopicActions = "cdslive.actions"
	// TopicState carries snapshots published after store writes.
	TopicState = "cdslive.state"
)
