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
)

func TestRun_Script(t *testing.T) {
	script := "EDIT doc1 \"v1\"\nGET doc1\n"
	var stdout, stderr bytes.Buffer

	err := run([]string{"--servers", "1:2", "--write-policy", "write-around"}, strings.NewReader(script), &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Equal(t, "[server 1] EDIT doc1: queued (depth 1)\n[server 1] GET doc1: MISS \"v1\"\n", stdout.String())
}

func TestRun_ConfigFileAndSnapshot(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("enable_vnodes: true\nlog:\n  format: json\n"), 0644))
	scriptPath := filepath.Join(dir, "script.txt")
	require.NoError(t, os.WriteFile(scriptPath, []byte("ADD_SERVER 1 2\nADD_SERVER 2 2\n"), 0644))

	var stdout, stderr bytes.Buffer
	err := run([]string{"--config", cfgPath, "--input", scriptPath, "--snapshot"}, strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	out := stdout.String()
	idx := strings.Index(out, "{")
	require.GreaterOrEqual(t, idx, 0, out)

	var snap struct {
		Servers []map[string]any `json:"servers"`
		Ring    []map[string]any `json:"ring"`
	}
	require.NoError(t, json.Unmarshal([]byte(out[idx:]), &snap))
	assert.Len(t, snap.Servers, 2)
	assert.Len(t, snap.Ring, 6)
}

func TestRun_Errors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run([]string{"--key-hash", "md5"}, strings.NewReader(""), &stdout, &stderr)
	assert.Error(t, err)

	err = run([]string{"--servers", "1"}, strings.NewReader(""), &stdout, &stderr)
	assert.Error(t, err)

	err = run(nil, strings.NewReader("FLY doc1\n"), &stdout, &stderr)
	assert.ErrorContains(t, err, "line 1")

	stdout.Reset()
	err = run(nil, strings.NewReader("GET doc1\n"), &stdout, &stderr)
	assert.ErrorContains(t, err, "1 of 1 commands failed")
	assert.Contains(t, stdout.String(), "no servers on the ring")
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--version"}, nil, &stdout, &stderr))
	assert.Equal(t, "kvbalancer version dev\n", stdout.String())
}
