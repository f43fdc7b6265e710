package events

import (
	"encoding/json"
	"time"
)

// Backend event types carried in Event.Type.
const (
	TypeRunWorkflowJob  = "sdk.EventRunWorkflowJob"
	TypeRunWorkflow     = "sdk.EventRunWorkflow"
	TypeRunWorkflowNode = "sdk.EventRunWorkflowNode"
	TypeOperation       = "sdk.Operation"
)

const (
	StatusOK = "OK"
	StatusKO = "KO"
)

// Envelope is one inbound websocket frame.
type Envelope struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Event  Event  `json:"event"`
}

// Event is the backend event header. Payload is keyed by the backend's Go
// field names and decoded per Type.
type Event struct {
	Type              string          `json:"type_event"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
	Username          string          `json:"username,omitempty"`
	ProjectKey        string          `json:"project_key,omitempty"`
	ApplicationName   string          `json:"application_name,omitempty"`
	PipelineName      string          `json:"pipeline_name,omitempty"`
	EnvironmentName   string          `json:"environment_name,omitempty"`
	WorkflowName      string          `json:"workflow_name,omitempty"`
	WorkflowRunNum    int64           `json:"workflow_run_num,omitempty"`
	WorkflowNodeRunID int64           `json:"workflow_node_run_id,omitempty"`
	OperationUUID     string          `json:"operation_uuid,omitempty"`
	Status            string          `json:"status,omitempty"`
}

type runPayload struct {
	Number       int64    `json:"Number"`
	Status       string   `json:"Status"`
	Start        int64    `json:"Start"`
	LastModified int64    `json:"LastModified"`
	Tags         []runTag `json:"Tags"`
}

type runTag struct {
	Tag   string `json:"Tag"`
	Value string `json:"Value"`
}

type nodeRunPayload struct {
	ID        int64  `json:"ID"`
	Number    int64  `json:"Number"`
	SubNumber int64  `json:"SubNumber"`
	NodeName  string `json:"NodeName"`
	Status    string `json:"Status"`
	Start     int64  `json:"Start"`
	Done      int64  `json:"Done"`
}
