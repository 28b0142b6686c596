package console

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/hbnb/internal/filestore"
	"github.com/mesh-intelligence/hbnb/pkg/types"
)

type testEnv struct {
	store *filestore.Store
	out   *bytes.Buffer
	con   *Console
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := filestore.New(filepath.Join(t.TempDir(), filestore.DefaultFileName))
	s.Reload()
	out := &bytes.Buffer{}
	return &testEnv{store: s, out: out, con: New(s, out)}
}

// run executes line and returns its trimmed output.
func (env *testEnv) run(t *testing.T, line string) string {
	t.Helper()
	env.out.Reset()
	stop, err := env.con.Execute(line)
	require.NoError(t, err)
	require.False(t, stop)
	return strings.TrimSpace(env.out.String())
}

func (env *testEnv) create(t *testing.T, class string) string {
	t.Helper()
	id := env.run(t, "create "+class)
	require.NotEmpty(t, id)
	return id
}

func TestCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, "BaseModel")

	out := env.run(t, "all BaseModel")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], id)
	assert.True(t, strings.HasPrefix(lines[0], "[BaseModel] ("+id+")"), lines[0])

	assert.Empty(t, env.run(t, "all User"))

	data, err := os.ReadFile(env.store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"BaseModel.`+id+`"`)
}

func TestCreateErrors(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, msgClassMissing, env.run(t, "create"))
	assert.Equal(t, msgClassUnknown, env.run(t, "create MyModel"))
	assert.Equal(t, msgClassUnknown, env.run(t, "create basemodel"))
	assert.Empty(t, env.store.All())
	_, err := os.Stat(env.store.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist), "failed commands must not write the file")
}

func TestShow(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, "User")

	out := env.run(t, "show User "+id)
	assert.True(t, strings.HasPrefix(out, "[User] ("+id+")"), out)

	tests := []struct {
		line string
		want string
	}{
		{"show", msgClassMissing},
		{"show Nope", msgClassUnknown},
		{"show User", msgIDMissing},
		{"show User 1234-1234", msgNoInstance},
		{"show BaseModel " + id, msgNoInstance},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, env.run(t, tt.line), tt.line)
	}
}

func TestDestroy(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, "BaseModel")
	other := env.create(t, "BaseModel")

	assert.Empty(t, env.run(t, "destroy BaseModel "+id))
	assert.Equal(t, msgNoInstance, env.run(t, "show BaseModel "+id))
	assert.Equal(t, msgNoInstance, env.run(t, "destroy BaseModel "+id))

	// The removal is on disk.
	fresh := filestore.New(env.store.Path())
	fresh.Reload()
	assert.Equal(t, []string{"BaseModel." + other}, fresh.Keys(""))
}

func TestDestroyErrors(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, msgClassMissing, env.run(t, "destroy"))
	assert.Equal(t, msgClassUnknown, env.run(t, "destroy Nope 1"))
	assert.Equal(t, msgIDMissing, env.run(t, "destroy User"))
}

func TestAll(t *testing.T) {
	env := newTestEnv(t)
	a := env.create(t, "BaseModel")
	u := env.create(t, "User")
	b := env.create(t, "BaseModel")

	lines := strings.Split(env.run(t, "all"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], a)
	assert.Contains(t, lines[1], u)
	assert.Contains(t, lines[2], b)

	assert.Equal(t, msgClassUnknown, env.run(t, "all Nope"))
}

func TestCount(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "BaseModel")
	env.create(t, "User")
	env.create(t, "User")

	assert.Equal(t, "3", env.run(t, "count"))
	assert.Equal(t, "2", env.run(t, "count User"))
	assert.Equal(t, "1", env.run(t, "count BaseModel"))
	assert.Equal(t, msgClassUnknown, env.run(t, "count Nope"))
}

func TestUpdateCoercesValues(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, "BaseModel")
	key := "BaseModel." + id

	tests := []struct {
		line string
		attr string
		want any
	}{
		{`update BaseModel ` + id + ` age "21"`, "age", 21},
		{`update BaseModel ` + id + ` ratio "0.5"`, "ratio", 0.5},
		{`update BaseModel ` + id + ` first_name "hello"`, "first_name", "hello"},
		{`update BaseModel ` + id + ` name "Betty Holberton"`, "name", "Betty Holberton"},
		{`update BaseModel ` + id + ` version 1.2.3`, "version", "1.2.3"},
		{`update BaseModel ` + id + ` neg -7`, "neg", -7},
		{`update BaseModel ` + id + ` price 1.0`, "price", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			before := env.store.All()[key].Core().UpdatedAt
			assert.Empty(t, env.run(t, tt.line))

			e := env.store.All()[key]
			got, ok := e.Core().Get(tt.attr)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.True(t, e.Core().UpdatedAt.After(before), "update must save")

			// The value survives a reload with the same type.
			fresh := filestore.New(env.store.Path())
			fresh.Reload()
			reloaded, ok := fresh.All()[key].Core().Get(tt.attr)
			require.True(t, ok)
			assert.Equal(t, tt.want, reloaded)
		})
	}
}

func TestUpdateErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, "User")

	before, err := os.ReadFile(env.store.Path())
	require.NoError(t, err)

	tests := []struct {
		line string
		want string
	}{
		{"update", msgClassMissing},
		{"update Nope", msgClassUnknown},
		{"update User", msgIDMissing},
		{"update User 1234 email x", msgNoInstance},
		{"update User " + id, msgAttrMissing},
		{"update User " + id + " email", msgValueMissing},
		{"update User " + id + " id other", msgAttrReadOnly},
		{"update User " + id + " created_at 2020", msgAttrReadOnly},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, env.run(t, tt.line), tt.line)
	}

	after, err := os.ReadFile(env.store.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "failed updates must not touch the file")
}

func TestUnknownSyntax(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "*** Unknown syntax: frobnicate", env.run(t, "frobnicate"))
	assert.Equal(t, `*** Unknown syntax: update "open`, env.run(t, `update "open`))
	assert.Empty(t, env.run(t, "   "))
}

func TestHelp(t *testing.T) {
	env := newTestEnv(t)
	out := env.run(t, "help")
	for _, name := range Commands() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, env.run(t, "help quit"), "exit")
	assert.Equal(t, "*** No help on nope", env.run(t, "help nope"))
}

func TestRun(t *testing.T) {
	s := filestore.New(filepath.Join(t.TempDir(), filestore.DefaultFileName))
	out := &bytes.Buffer{}
	con := New(s, out)

	in := strings.NewReader("create User\ncount User\nquit\ncreate User\n")
	require.NoError(t, con.Run(in))
	assert.Equal(t, 1, s.Count(types.KindUser), "lines after quit must not run")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1", lines[1])
}

func TestRunInteractivePrompt(t *testing.T) {
	s := filestore.New(filepath.Join(t.TempDir(), filestore.DefaultFileName))
	out := &bytes.Buffer{}
	con := New(s, out, Interactive(true))

	require.NoError(t, con.Run(strings.NewReader("\nEOF\n")))
	assert.Equal(t, Prompt+Prompt+"\n", out.String())
}

func TestRunPropagatesPersistError(t *testing.T) {
	s := filestore.New(filepath.Join(t.TempDir(), "missing", filestore.DefaultFileName))
	con := New(s, &bytes.Buffer{})

	err := con.Run(strings.NewReader("create BaseModel\ncount\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create BaseModel")
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"21", 21},
		{"0.5", 0.5},
		{"hello", "hello"},
		{"1e5", "1e5"},
		{"1.5e999", "1.5e999"},
		{"", ""},
		{"-3.25", -3.25},
		{"1.0", 1.0},
		{"0x1.8p1", "0x1.8p1"},
		{"1_000.5", "1_000.5"},
		{"0x10", "0x10"},
		{"inf", "inf"},
		{"NaN", "NaN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, coerce(tt.in), tt.in)
	}
}

func TestExecuteArgsKeepsSpaces(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t, "User")

	_, err := env.con.ExecuteArgs([]string{"update", "User", id, "first_name", "Betty Ann"})
	require.NoError(t, err)
	v, _ := env.store.All()["User."+id].Core().Get("first_name")
	assert.Equal(t, "Betty Ann", v)

	stop, err := env.con.ExecuteArgs(nil)
	assert.NoError(t, err)
	assert.False(t, stop)
}
