package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/briefd/internal/apperr"
	"github.com/fyrsmithlabs/briefd/internal/tasks"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const reply = `Sure! Here is the plan.
1. **Set up repository**: Initialize the repo and CI.
2. **Design schema**: Model users and projects.
Good luck!`

func TestExtractCmd_Stdin(t *testing.T) {
	out, err := execute(t, reply, "extract", "-")
	require.NoError(t, err)

	var got struct {
		Tasks []tasks.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, tasks.Task{ID: "TASK-1", Title: "Set up repository", Description: "Initialize the repo and CI.", Order: 0}, got.Tasks[0])
	assert.Equal(t, 1, got.Tasks[1].Order)
}

func TestExtractCmd_FileText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte(reply), 0o600))

	out, err := execute(t, "", "extract", "--text", path)
	require.NoError(t, err)
	assert.Equal(t,
		"TASK-1\tSet up repository\tInitialize the repo and CI.\nTASK-2\tDesign schema\tModel users and projects.\n",
		out)
}

func TestExtractCmd_NoMatches(t *testing.T) {
	out, err := execute(t, "nothing useful here", "extract")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tasks": []}`, out)
}

func TestReadCmd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Brief.TXT")
	require.NoError(t, os.WriteFile(path, []byte("A budgeting app for students."), 0o600))

	out, err := execute(t, "", "read", path)
	require.NoError(t, err)
	assert.Equal(t, "A budgeting app for students.\n", out)
}

func TestReadCmd_Unsupported(t *testing.T) {
	_, err := execute(t, "", "read", filepath.Join(t.TempDir(), "data.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)
}

func TestReadCmd_CorruptDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brief.docx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip archive"), 0o600))

	_, err := execute(t, "", "read", path)
	assert.ErrorIs(t, err, apperr.ErrExtraction)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "mcp", "extract", "read", "version"} {
		assert.True(t, names[want], want)
	}
}
