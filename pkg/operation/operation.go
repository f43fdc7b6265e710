package operation

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Status is the numeric progress code of a repository operation.
type Status int

const (
	StatusPending Status = iota
	StatusProcessing
	StatusDone
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Operation is an asynchronous repository action (import, save as code)
// tracked by UUID. JSON names follow the backend push payload.
type Operation struct {
	UUID         string    `json:"UUID"`
	URL          string    `json:"URL,omitempty"`
	Date         string    `json:"Date,omitempty"`
	VCSServer    string    `json:"VCSServer,omitempty"`
	RepoFullName string    `json:"RepoFullName,omitempty"`
	Status       Status    `json:"Status"`
	Error        string    `json:"Error,omitempty"`
	Setup        Setup     `json:"Setup"`
	LoadFiles    LoadFiles `json:"LoadFiles"`
}

type Setup struct {
	Checkout Checkout `json:"Checkout"`
	Push     Push     `json:"Push"`
}

type Checkout struct {
	Branch string `json:"Branch,omitempty"`
	Commit string `json:"Commit,omitempty"`
}

type Push struct {
	FromBranch string `json:"FromBranch,omitempty"`
	ToBranch   string `json:"ToBranch,omitempty"`
	Message    string `json:"Message,omitempty"`
	PRLink     string `json:"PRLink,omitempty"`
}

type LoadFiles struct {
	Pattern string            `json:"Pattern,omitempty"`
	Results map[string][]byte `json:"Results,omitempty"`
}

// Terminal reports whether no further updates are expected.
func (o Operation) Terminal() bool {
	return o.Status == StatusDone || o.Status == StatusError || strings.TrimSpace(o.Error) != ""
}

func (o Operation) Failed() bool {
	return o.Status == StatusError || strings.TrimSpace(o.Error) != ""
}

// Time parses Date, which the backend formats in more than one layout.
func (o Operation) Time() (time.Time, bool) {
	if strings.TrimSpace(o.Date) == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(o.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
