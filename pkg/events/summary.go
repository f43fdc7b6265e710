package events

import (
	"fmt"
	"strings"
)

// Summary renders a one-line human description of m, in the
// "<type>: <project> <workflow> <status>" shape of the cdsctl listener.
func Summary(m Message) string {
	h := m.Header()
	switch v := m.(type) {
	case FilterRejected:
		return "filter rejected: " + v.Error
	case QueueUpdate:
		return join(h.Type+":", h.ProjectKey, h.WorkflowName, fmt.Sprintf("job=%d", v.Entry.ID), string(v.Entry.Status), v.Entry.AssignedTo())
	case WorkflowRunUpdate:
		run := fmt.Sprintf("#%d", v.Update.Key.Number)
		if v.Update.Node != nil {
			run = fmt.Sprintf("%s node=%s", run, v.Update.Node.NodeName)
		}
		return join(h.Type+":", v.Update.Key.ProjectKey, v.Update.Key.WorkflowName, run, v.Update.Status)
	case OperationUpdate:
		return join(h.Type+":", h.ProjectKey, v.Operation.UUID, v.Operation.Status.String(), v.Operation.Error)
	}
	return join(h.Type+":", h.ProjectKey, h.WorkflowName, h.Status)
}

func join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
