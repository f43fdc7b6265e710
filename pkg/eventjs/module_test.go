package eventjs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/cdslive/pkg/events"
	"github.com/stretchr/testify/require"
)

func writeTempScript(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	return p
}

func decode(t *testing.T, raw string) events.Message {
	t.Helper()
	msg, err := events.Decode([]byte(raw))
	require.NoError(t, err)
	return msg
}

const jobBuilding = `{"status":"OK","event":{"type_event":"sdk.EventRunWorkflowJob","project_key":"XYZ","payload":{"ID":3,"Status":"Building","WorkerName":"w1","Parameters":[{"Name":"cds.workflow","Value":"wf1"}]}}}`
const jobWaiting = `{"status":"OK","event":{"type_event":"sdk.EventRunWorkflowJob","project_key":"XYZ","payload":{"ID":4,"Status":"Waiting"}}}`

func TestModule_FilterFormat(t *testing.T) {
	p := writeTempScript(t, t.TempDir(), "building.js", `
register({
  name: "building",
  filter(ev, ctx) { return ev.kind === "queue" && ev.payload.Status === "Building"; },
  format(ev, ctx) {
    return { text: ev.project_key + "/" + cds.param(ev.payload, "cds.workflow") + " on " + ev.payload.WorkerName, id: ev.payload.ID };
  },
});
`)
	m, err := LoadFromFile(p, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(context.Background()) })

	line, rec := m.Process(context.Background(), decode(t, jobBuilding))
	require.Nil(t, rec)
	require.NotNil(t, line)
	require.Equal(t, "building", line.Module)
	require.Equal(t, "queue", line.Kind)
	require.Equal(t, "XYZ/wf1 on w1", line.Text)
	require.Equal(t, int64(3), line.Fields["id"])

	line, rec = m.Process(context.Background(), decode(t, jobWaiting))
	require.Nil(t, rec)
	require.Nil(t, line)

	st := m.Stats()
	require.Equal(t, int64(2), st.Processed)
	require.Equal(t, int64(1), st.Emitted)
	require.Equal(t, int64(1), st.Dropped)
}

func TestModule_FilterOnlyUsesSummary(t *testing.T) {
	m, err := Load("inline.js", `register({ name: "all", filter(ev) { return true; } });`, Options{})
	require.NoError(t, err)

	msg := decode(t, jobWaiting)
	line, rec := m.Process(context.Background(), msg)
	require.Nil(t, rec)
	require.Equal(t, events.Summary(msg), line.Text)
}

func TestModule_StateAndParseDate(t *testing.T) {
	m, err := Load("state.js", `
register({
  name: "count",
  init(ctx) { ctx.state.n = 0; },
  format(ev, ctx) {
    ctx.state.n++;
    const d = cds.parseDate("2021-03-04 05:06:07");
    return "n=" + ctx.state.n + " y=" + d.getUTCFullYear();
  },
});
`, Options{})
	require.NoError(t, err)

	line, _ := m.Process(context.Background(), decode(t, jobWaiting))
	require.Equal(t, "n=1 y=2021", line.Text)
	line, _ = m.Process(context.Background(), decode(t, jobWaiting))
	require.Equal(t, "n=2 y=2021", line.Text)
}

func TestModule_RegisterErrors(t *testing.T) {
	_, err := Load("none.js", `var x = 1;`, Options{})
	require.ErrorIs(t, err, ErrNoRegister)

	_, err = Load("noname.js", `register({ format(ev) { return "x"; } });`, Options{})
	require.Error(t, err)

	_, err = Load("nohooks.js", `register({ name: "x" });`, Options{})
	require.Error(t, err)

	_, err = Load("x.js", `register({ name: "x", format() {} })`, Options{HookTimeout: "nope"})
	require.Error(t, err)
}

func TestModule_Timeout(t *testing.T) {
	m, err := Load("loop.js", `
register({
  name: "loop",
  filter(ev, ctx) { while (true) {} },
  onError(err, ev, ctx) {},
});
`, Options{HookTimeout: "10ms"})
	require.NoError(t, err)

	line, rec := m.Process(context.Background(), decode(t, jobWaiting))
	require.Nil(t, line)
	require.NotNil(t, rec)
	require.True(t, rec.Timeout)
	require.Equal(t, "filter", rec.Hook)

	st := m.Stats()
	require.Equal(t, int64(1), st.HookTimeouts)
	require.Equal(t, int64(1), st.HookErrors)
}

func TestSet_Process(t *testing.T) {
	dir := t.TempDir()
	a := writeTempScript(t, dir, "a.js", `register({ name: "a", format(ev) { return "a:" + ev.kind; } });`)
	b := writeTempScript(t, dir, "b.js", `register({ name: "b", filter(ev) { return ev.kind === "rejected"; } });`)

	s, err := LoadSetFromFiles([]string{a, "", b}, Options{})
	require.NoError(t, err)
	require.Len(t, s.Modules, 2)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	lines, errs := s.Process(context.Background(), decode(t, jobWaiting))
	require.Empty(t, errs)
	require.Len(t, lines, 1)
	require.Equal(t, "a:queue", lines[0].Text)

	lines, _ = s.Process(context.Background(), decode(t, `{"status":"KO","error":"bad filter"}`))
	require.Len(t, lines, 2)
	require.Equal(t, "filter rejected: bad filter", lines[1].Text)

	_, err = LoadSetFromFiles(nil, Options{})
	require.Error(t, err)
}
