package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDerive_Table(t *testing.T) {
	cases := []struct {
		name string
		path string
		want Filter
	}{
		{"home", "/home", Filter{Favorites: true}},
		{"queue", "/settings/queue", Filter{Queue: true}},
		{"settings other", "/settings/user", Filter{}},
		{"settings queue too deep", "/settings/queue/x", Filter{}},
		{"project creation", "/project", Filter{}},
		{"project", "/project/XYZ", Filter{ProjectKey: "XYZ"}},
		{"project query", "/project/XYZ?tab=workflows", Filter{ProjectKey: "XYZ"}},
		{"pipeline", "/project/XYZ/pipeline/build", Filter{ProjectKey: "XYZ", PipelineName: "build"}},
		{"application", "/project/XYZ/application/api?tab=vcs", Filter{ProjectKey: "XYZ", ApplicationName: "api"}},
		{"environment", "/project/XYZ/environment/prod", Filter{ProjectKey: "XYZ", EnvironmentName: "prod"}},
		{"pipeline missing name", "/project/XYZ/pipeline", Filter{ProjectKey: "XYZ"}},
		{"workflow", "/project/XYZ/workflow/wf1", Filter{ProjectKey: "XYZ", WorkflowName: "wf1"}},
		{"workflow run", "/project/XYZ/workflow/wf1/run/42", Filter{ProjectKey: "XYZ", WorkflowName: "wf1", WorkflowRunNumber: 42}},
		{
			"workflow node run",
			"/project/XYZ/workflow/wf1/run/42/node/7",
			Filter{ProjectKey: "XYZ", WorkflowName: "wf1", WorkflowRunNumber: 42, WorkflowNodeRunID: 7},
		},
		{
			"workflow node run query",
			"/project/XYZ/workflow/wf1/run/42/node/7?name=deploy",
			Filter{ProjectKey: "XYZ", WorkflowName: "wf1", WorkflowRunNumber: 42, WorkflowNodeRunID: 7},
		},
		{"unknown child", "/project/XYZ/keys", Filter{ProjectKey: "XYZ"}},
		{"unknown root", "/admin/services", Filter{}},
		{"empty", "", Filter{}},
		{"root", "/", Filter{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Derive(tc.path))
		})
	}
}

func TestDerive_NonNumericFieldsAreOmitted(t *testing.T) {
	got := Derive("/project/XYZ/workflow/wf1/run/latest/node/7")
	require.Equal(t, Filter{ProjectKey: "XYZ", WorkflowName: "wf1", WorkflowNodeRunID: 7}, got)

	got = Derive("/project/XYZ/workflow/wf1/run/3/node/abc")
	require.Equal(t, Filter{ProjectKey: "XYZ", WorkflowName: "wf1", WorkflowRunNumber: 3}, got)
}

func TestDerive_Deterministic(t *testing.T) {
	paths := []string{"/home", "/project/A/workflow/w/run/1", "/settings/queue", "/nope"}
	for _, p := range paths {
		require.Equal(t, Derive(p), Derive(p), p)
	}
}

func TestFilter_JSONOmitsUnsetFields(t *testing.T) {
	b, err := Filter{ProjectKey: "XYZ", WorkflowName: "wf1", WorkflowRunNumber: 42}.MarshalJSONBytes()
	require.NoError(t, err)
	require.JSONEq(t, `{"project_key":"XYZ","workflow_name":"wf1","workflow_run_num":42}`, string(b))

	b, err = Filter{}.MarshalJSONBytes()
	require.NoError(t, err)
	require.Equal(t, "{}", string(b))

	var back Filter
	require.NoError(t, json.Unmarshal([]byte(`{"favorites":true}`), &back))
	require.Equal(t, Filter{Favorites: true}, back)
}

func TestFilter_WithOperationKeepsScope(t *testing.T) {
	base := Derive("/project/XYZ/workflow/wf1")
	withOp := base.WithOperation("op-1")
	require.Equal(t, "op-1", withOp.OperationUUID)
	require.Equal(t, "", base.OperationUUID)
	require.Equal(t, "workflow", withOp.Scope())
}

func TestFilter_Scope(t *testing.T) {
	require.Equal(t, "favorites", Derive("/home").Scope())
	require.Equal(t, "queue", Derive("/settings/queue").Scope())
	require.Equal(t, "project", Derive("/project/A").Scope())
	require.Equal(t, "none", Derive("/project").Scope())
	require.True(t, Derive("/project").IsZero())
}
