package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/hbnb/internal/filestore"
	"github.com/mesh-intelligence/hbnb/internal/sqlite"
)

// testEnv isolates config and data directories for one test.
type testEnv struct {
	ConfigDir string
	DataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{ConfigDir: t.TempDir(), DataDir: t.TempDir()}
}

// run executes the CLI with stdin set to in and returns stdout.
func (env *testEnv) run(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(in))
	root.SetArgs(append([]string{"--config-dir", env.ConfigDir, "--data-dir", env.DataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (env *testEnv) mustRun(t *testing.T, in string, args ...string) string {
	t.Helper()
	out, err := env.run(t, in, args...)
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

func (env *testEnv) backingFile() string {
	return filepath.Join(env.DataDir, filestore.DefaultFileName)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "", "version")
	assert.Contains(t, out, "hbnb v")
	assert.Contains(t, out, "github.com/mesh-intelligence/hbnb")
}

func TestCreateThenListAcrossProcesses(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustRun(t, "", "create", "BaseModel")
	require.NotEmpty(t, id)

	out := env.mustRun(t, "", "all", "BaseModel")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], id)

	assert.Equal(t, "1", env.mustRun(t, "", "count", "BaseModel"))
	assert.Equal(t, "0", env.mustRun(t, "", "count", "User"))

	_, err := os.Stat(filepath.Join(env.DataDir, sqlite.DBFileName))
	assert.NoError(t, err, "index database should be created by default")
}

func TestUpdateSubcommand(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustRun(t, "", "create", "User")

	assert.Empty(t, env.mustRun(t, "", "update", "User", id, "first_name", "Betty Ann"))
	assert.Empty(t, env.mustRun(t, "", "update", "User", id, "age", "21"))

	out := env.mustRun(t, "", "show", "User", id)
	assert.Contains(t, out, `"first_name":"Betty Ann"`)
	assert.Contains(t, out, `"age":21`)
}

func TestUpdateMissingInstanceLeavesFile(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "", "create", "User")
	before, err := os.ReadFile(env.backingFile())
	require.NoError(t, err)

	out := env.mustRun(t, "", "update", "User", "does-not-exist", "email", "x")
	assert.Equal(t, "** no instance found **", out)

	after, err := os.ReadFile(env.backingFile())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestValidationMessages(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"create"}, "** class name missing **"},
		{[]string{"create", "Nope"}, "** class doesn't exist **"},
		{[]string{"show", "User"}, "** instance id missing **"},
		{[]string{"destroy", "User", "x"}, "** no instance found **"},
		{[]string{"all", "Nope"}, "** class doesn't exist **"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, env.mustRun(t, "", tt.args...), strings.Join(tt.args, " "))
	}
}

func TestConsoleFromStdin(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "create User\ncreate User\ncount User\nquit\n")

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2", lines[2])
	assert.NotContains(t, out, "(hbnb)", "no prompt when stdin is not a terminal")

	assert.Equal(t, "2", env.mustRun(t, "", "count"))
}

func TestInitWritesConfig(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "", "init")
	assert.Contains(t, out, env.backingFile())

	data, err := os.ReadFile(env.backingFile())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	cfg, err := loadConfig(env.ConfigDir)
	require.NoError(t, err)
	assert.Equal(t, env.DataDir, cfg.GetString(cfgKeyDataDir))
	assert.Equal(t, filestore.DefaultFileName, cfg.GetString(cfgKeyFileName))
	assert.True(t, cfg.GetBool(cfgKeyIndex))

	// A second init keeps existing data.
	id := env.mustRun(t, "", "create", "BaseModel")
	env.mustRun(t, "", "init")
	assert.Contains(t, env.mustRun(t, "", "all"), id)
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")
	cfg, err := loadConfig(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, configFileExt))
	assert.NoError(t, err)
	assert.Equal(t, filestore.DefaultFileName, cfg.GetString(cfgKeyFileName))
	assert.Equal(t, defaultLogLevel, cfg.GetString(cfgKeyLogLevel))
	assert.Empty(t, cfg.GetString(cfgKeyDataDir))
}

func TestConfiguredFileNameAndIndexOff(t *testing.T) {
	env := newTestEnv(t)
	cfg := "file_name: objects.json\nindex: false\nlog_level: error\n"
	require.NoError(t, os.WriteFile(filepath.Join(env.ConfigDir, configFileExt), []byte(cfg), 0o644))

	env.mustRun(t, "", "create", "User")
	_, err := os.Stat(filepath.Join(env.DataDir, "objects.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(env.DataDir, sqlite.DBFileName))
	assert.True(t, os.IsNotExist(err), "index disabled by config")
	assert.Equal(t, "1", env.mustRun(t, "", "count", "User"))
}

func TestBadLogLevelIsSystemError(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.ConfigDir, configFileExt), []byte("log_level: loud\n"), 0o644))

	_, err := env.run(t, "", "count")
	require.Error(t, err)
	assert.Equal(t, exitSysError, exitCode(err))
}

func TestPersistFailureIsSystemError(t *testing.T) {
	env := newTestEnv(t)
	// A directory where the backing file should be makes the rename fail.
	require.NoError(t, os.Mkdir(env.backingFile(), 0o755))

	_, err := env.run(t, "", "create", "BaseModel")
	require.Error(t, err)
	assert.Equal(t, exitSysError, exitCode(err))
}

func TestExitCodes(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "", "--no-such-flag")
	require.Error(t, err)
	assert.Equal(t, exitUserError, exitCode(err))
	assert.Equal(t, exitSuccess, exitCode(nil))
}
