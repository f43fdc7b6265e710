package filter

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Filter is the subscription descriptor sent to the event source. The zero
// value means "no scoping". Numeric fields use 0 for unset.
type Filter struct {
	Favorites         bool   `json:"favorites,omitempty"`
	ProjectKey        string `json:"project_key,omitempty"`
	ApplicationName   string `json:"application_name,omitempty"`
	PipelineName      string `json:"pipeline_name,omitempty"`
	EnvironmentName   string `json:"environment_name,omitempty"`
	WorkflowName      string `json:"workflow_name,omitempty"`
	WorkflowRunNumber int64  `json:"workflow_run_num,omitempty"`
	WorkflowNodeRunID int64  `json:"workflow_node_run_id,omitempty"`
	Queue             bool   `json:"queue,omitempty"`
	OperationUUID     string `json:"operation_uuid,omitempty"`
}

func (f Filter) IsZero() bool {
	return f == Filter{}
}

// WithOperation returns a copy of f that also follows the given operation.
func (f Filter) WithOperation(uuid string) Filter {
	f.OperationUUID = uuid
	return f
}

func (f Filter) Scope() string {
	switch {
	case f.Favorites:
		return "favorites"
	case f.Queue:
		return "queue"
	case f.WorkflowName != "":
		return "workflow"
	case f.PipelineName != "":
		return "pipeline"
	case f.ApplicationName != "":
		return "application"
	case f.EnvironmentName != "":
		return "environment"
	case f.ProjectKey != "":
		return "project"
	default:
		return "none"
	}
}

func (f Filter) MarshalJSONBytes() ([]byte, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, errors.Wrap(err, "marshal filter")
	}
	return b, nil
}
