package eventjs

// Line is what a script made of one push message.
type Line struct {
	Module string         `json:"module"`
	Kind   string         `json:"kind"`
	Type   string         `json:"type,omitempty"`
	Text   string         `json:"text"`
	Fields map[string]any `json:"fields,omitempty"`
}

type Stats struct {
	Processed    int64
	Emitted      int64
	Dropped      int64
	HookErrors   int64
	HookTimeouts int64
}

type Options struct {
	HookTimeout string
}

type ModuleInfo struct {
	Name        string
	HasFilter   bool
	HasFormat   bool
	HasInit     bool
	HasShutdown bool
	HasOnError  bool
}

type ErrorRecord struct {
	Module  string `json:"module"`
	Hook    string `json:"hook"`
	Kind    string `json:"kind"`
	Timeout bool   `json:"timeout"`
	Message string `json:"message"`
}
