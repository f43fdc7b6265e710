package queue

type Status string

const (
	StatusWaiting    Status = "Waiting"
	StatusBuilding   Status = "Building"
	StatusSuccess    Status = "Success"
	StatusFail       Status = "Fail"
	StatusStopped    Status = "Stopped"
	StatusSkipped    Status = "Skipped"
	StatusDisabled   Status = "Disabled"
	StatusChecking   Status = "Checking"
	StatusPending    Status = "Pending"
	StatusNeverBuilt Status = "Never Built"
)

// DefaultStatuses is what the queue page shows when no status is selected.
var DefaultStatuses = []Status{StatusWaiting, StatusBuilding}

func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFail, StatusStopped, StatusSkipped, StatusDisabled:
		return true
	}
	return false
}

// Entry is one job of the build queue, as pushed by the backend. JSON names
// follow the backend payload.
type Entry struct {
	ID                int64         `json:"ID"`
	WorkflowNodeRunID int64         `json:"WorkflowNodeRunID,omitempty"`
	Status            Status        `json:"Status"`
	Model             string        `json:"Model,omitempty"`
	WorkerName        string        `json:"WorkerName,omitempty"`
	BookByName        string        `json:"BookByName,omitempty"`
	Requirements      []Requirement `json:"Requirements,omitempty"`
	Parameters        []Parameter   `json:"Parameters,omitempty"`
	Queued            int64         `json:"Queued,omitempty"`
	Start             int64         `json:"Start,omitempty"`
	Done              int64         `json:"Done,omitempty"`
}

type Requirement struct {
	Name  string `json:"Name,omitempty"`
	Type  string `json:"Type"`
	Value string `json:"Value"`
}

type Parameter struct {
	Name  string `json:"Name"`
	Type  string `json:"Type,omitempty"`
	Value string `json:"Value"`
}

// Param returns the value of the named parameter, e.g. "cds.project".
func (e Entry) Param(name string) (string, bool) {
	for _, p := range e.Parameters {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// AssignedTo is the worker building the job, or whoever booked it.
func (e Entry) AssignedTo() string {
	if e.Status == StatusBuilding {
		return e.WorkerName
	}
	return e.BookByName
}

func (e Entry) clone() Entry {
	out := e
	if e.Requirements != nil {
		out.Requirements = append([]Requirement{}, e.Requirements...)
	}
	if e.Parameters != nil {
		out.Parameters = append([]Parameter{}, e.Parameters...)
	}
	return out
}
