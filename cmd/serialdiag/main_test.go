package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--help"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr.String(), "--port")
}

func TestRunUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run([]string{"--baud", "115200"}, &stdout, &stderr))
}

func TestRunInvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--format", "bogus"}, &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "config:")
	assert.Empty(t, stdout.String())
}

func TestRunMissingPort(t *testing.T) {
	port := filepath.Join(t.TempDir(), "ttyNOPE0")
	var stdout, stderr bytes.Buffer

	code := run([]string{"--port", port, "--log-level", "disabled"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, "Port: "+port+" was not found\n", stdout.String())
}

func TestRunMissingPortJSON(t *testing.T) {
	port := filepath.Join(t.TempDir(), "ttyNOPE0")
	var stdout, stderr bytes.Buffer

	code := run([]string{"--port", port, "--format", "json", "--log-level", "disabled"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), `"health": "down"`)
	assert.Contains(t, stdout.String(), "was not found")
}
