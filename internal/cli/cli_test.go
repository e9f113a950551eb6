package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// env is an isolated config and data directory pair.
type env struct {
	configDir string
	dataDir   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	return env{configDir: filepath.Join(root, "config"), dataDir: filepath.Join(root, "data")}
}

// run executes the CLI with the environment's directories and returns
// stdout.
func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "linkgraph %v", args)
	return out
}

func TestVersion(t *testing.T) {
	out := newEnv(t).mustRun(t, "version")
	assert.Contains(t, out, "linkgraph v")
	assert.Contains(t, out, modulePath)
}

func TestInitWritesConfigOnce(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "init")
	assert.Contains(t, out, "linkgraph initialized (sqlite backend)")

	cfgPath := filepath.Join(e.configDir, configFileExt)
	first, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(first), "backend: sqlite")
	assert.FileExists(t, filepath.Join(e.dataDir, "linkgraph.db"))

	require.NoError(t, os.WriteFile(cfgPath, []byte("backend: sqlite\nscope: edited\n"), 0o644))
	out = e.mustRun(t, "--json", "init")
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, false, result["config_written"])

	after, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(after), "scope: edited")
}

// seedHostRoom builds Host→Room with capacity 1 and hosts/rooms.
func seedHostRoom(t *testing.T, e env) {
	t.Helper()
	e.mustRun(t, "init")
	e.mustRun(t, "class", "create", "Host")
	e.mustRun(t, "class", "create", "Room")
	e.mustRun(t, "class", "create", "Building")
	e.mustRun(t, "linktype", "create", "Host", "Room", "--max-links", "1")
	e.mustRun(t, "linktype", "create", "Room", "Building")
	for _, o := range [][2]string{{"Host", "h1"}, {"Room", "r1"}, {"Room", "r2"}, {"Building", "b1"}} {
		e.mustRun(t, "object", "create", o[0], o[1])
	}
	e.mustRun(t, "link", "create", "Host/h1", "Room/r1")
	e.mustRun(t, "link", "create", "Room/r1", "Building/b1")
}

func TestLinkLifecycle(t *testing.T) {
	e := newEnv(t)
	seedHostRoom(t, e)

	_, err := e.run(t, "link", "create", "Host/h1", "Room/r2")
	require.ErrorIs(t, err, types.ErrCapacityExceeded)
	assert.Equal(t, exitUserError, exitCode(err))

	out := e.mustRun(t, "link", "get", "Room/r1", "Host/h1")
	assert.Contains(t, out, "Room/r1")

	out = e.mustRun(t, "--json", "link", "list", "Host/h1")
	var links []types.Link
	require.NoError(t, json.Unmarshal([]byte(out), &links))
	require.Len(t, links, 1)
	assert.Equal(t, "r1", links[0].Target.Name)
	assert.Equal(t, "Host", links[0].LinkType.SourceClass)
	assert.False(t, links[0].LinkType.Reverse)

	e.mustRun(t, "link", "delete", "Host/h1", "Room/r1")
	_, err = e.run(t, "link", "get", "Room/r1", "Host/h1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	e.mustRun(t, "link", "create", "Host/h1", "Room/r2")
}

func TestLinkTypeCommands(t *testing.T) {
	e := newEnv(t)
	seedHostRoom(t, e)

	out := e.mustRun(t, "--json", "linktype", "get", "Room", "Host")
	var lt types.LinkType
	require.NoError(t, json.Unmarshal([]byte(out), &lt))
	assert.True(t, lt.Reverse)
	assert.Equal(t, 1, lt.MaxLinks)

	e.mustRun(t, "linktype", "update", "Host", "Room", "--max-links", "0")
	out = e.mustRun(t, "linktype", "list", "--class", "Room")
	assert.Contains(t, out, "unlimited")
	assert.Contains(t, out, "mirror")

	_, err := e.run(t, "linktype", "update", "Host", "Room")
	assert.Equal(t, exitUserError, exitCode(err))

	e.mustRun(t, "linktype", "delete", "Host", "Room")
	_, err = e.run(t, "link", "get", "Host/h1", "Room/r1")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestReach(t *testing.T) {
	e := newEnv(t)
	seedHostRoom(t, e)

	out := e.mustRun(t, "--json", "reach", "Host/h1", "--class", "Building")
	var res []types.Reachable
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res, 1)
	assert.Equal(t, "b1", res[0].Terminal.Name)
	assert.Equal(t, 2, res[0].Depth())

	out = e.mustRun(t, "reach", "Host/h1", "--depth", "1")
	assert.Contains(t, out, "Host/h1 -> Room/r1")
	assert.NotContains(t, out, "Building/b1")

	_, err := e.run(t, "reach", "Host/h1", "--depth", "0")
	require.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.ErrorContains(t, err, "unbounded")

	out = e.mustRun(t, "reach", "Room/r2")
	assert.Contains(t, out, "nothing reachable from Room/r2")

	_, err = e.run(t, "reach", "Host/h1", "--depth", "-2")
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	_, err = e.run(t, "reach", "Host/nobody")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCheckAndTransfer(t *testing.T) {
	e := newEnv(t)
	seedHostRoom(t, e)

	out := e.mustRun(t, "check")
	assert.Contains(t, out, "no violations")

	dump := t.TempDir()
	e.mustRun(t, "export", dump)
	assert.FileExists(t, filepath.Join(dump, "links.jsonl"))

	fresh := newEnv(t)
	fresh.mustRun(t, "init")
	fresh.mustRun(t, "import", dump)
	out = fresh.mustRun(t, "reach", "Host/h1", "--class", "Building")
	assert.Contains(t, out, "Building/b1")
}

func TestObjectCommands(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "init")
	e.mustRun(t, "class", "create", "Host", "--description", "compute node")
	e.mustRun(t, "object", "create", "Host", "h1", "--data", `{"ip":"10.0.0.1"}`, "--scope", "lab")

	out := e.mustRun(t, "object", "get", "Host/h1")
	var o types.Object
	require.NoError(t, json.Unmarshal([]byte(out), &o))
	assert.Equal(t, "lab", o.Scope)
	assert.Equal(t, "10.0.0.1", o.Data["ip"])

	_, err := e.run(t, "object", "create", "Host", "h2", "--data", "[1,2]")
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = e.run(t, "object", "get", "h1")
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	e.mustRun(t, "object", "delete", "Host/h1")
	out = e.mustRun(t, "object", "list", "Host")
	assert.NotContains(t, out, "h1")

	e.mustRun(t, "class", "delete", "Host")
	_, err = e.run(t, "class", "get", "Host")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestWatchRejectsBadSchedule(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "init")
	_, err := e.run(t, "watch", "--schedule", "not a schedule")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestPostgresWithoutDSN(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "--backend", "postgres", "class", "list")
	require.ErrorContains(t, err, "dsn")
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitSuccess},
		{fmt.Errorf("class %q: %w", "Host", types.ErrNotFound), exitUserError},
		{types.ErrCapacityExceeded, exitUserError},
		{fmt.Errorf("link: %w", types.ErrInvariantViolation), exitViolation},
		{usagef("bad flag"), exitUserError},
		{errors.New("disk on fire"), exitSysError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestUnresolved(t *testing.T) {
	r := &types.ConsistencyReport{Violations: []types.Violation{
		{Kind: types.ViolationLinkUnpaired},
		{Kind: types.ViolationLinkTypeDivergent},
		{Kind: types.ViolationLinkTypeMismatch},
	}}
	assert.Equal(t, 3, unresolved(r, false))
	assert.Equal(t, 2, unresolved(r, true))
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	_, err := writeConfigIfMissing(dir, configFile{Backend: "sqlite", Scope: "from-file", LogLevel: "info"})
	require.NoError(t, err)

	t.Setenv("LINKGRAPH_SCOPE", "from-env")
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "", "")
	require.NoError(t, cmd.Flags().Set("log-level", "debug"))

	v, err := loadConfig(dir, cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, "from-env", v.GetString(cfgKeyScope))
	assert.Equal(t, "debug", v.GetString(cfgKeyLogLevel))
	assert.Equal(t, "sqlite", v.GetString(cfgKeyBackend))
	assert.Equal(t, defaultMetricsAddr, v.GetString(cfgKeyMetricsAddr))
}

func TestLoadConfigMissingFile(t *testing.T) {
	v, err := loadConfig(t.TempDir(), (&cobra.Command{}).Flags())
	require.NoError(t, err)
	assert.Equal(t, types.BackendSQLite, v.GetString(cfgKeyBackend))
	assert.Equal(t, defaultScope, v.GetString(cfgKeyScope))
}
