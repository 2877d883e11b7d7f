package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", newFlagSet(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultPortName(), cfg.Port.Name)
	assert.Equal(t, "text", cfg.Report.Format)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Log.File)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, 3, cfg.Log.MaxBackups)
	assert.Equal(t, 28, cfg.Log.MaxAgeDays)
}

func TestLoadNilFlagSet(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPortName(), cfg.Port.Name)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serialdiag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port:
  name: COM7
report:
  format: json
log:
  level: debug
  max_backups: 5
`), 0o600))

	cfg, err := Load(path, newFlagSet(t))
	require.NoError(t, err)
	assert.Equal(t, "COM7", cfg.Port.Name)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Log.MaxBackups)
	assert.Equal(t, 28, cfg.Log.MaxAgeDays, "unset keys keep their defaults")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("SERIALDIAG_PORT_NAME", "/dev/ttyACM0")
	t.Setenv("SERIALDIAG_LOG_LEVEL", "error")

	cfg, err := Load("", newFlagSet(t))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Port.Name)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoadFlagsOverrideEnvironmentAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serialdiag.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port:\n  name: COM7\n"), 0o600))
	t.Setenv("SERIALDIAG_REPORT_FORMAT", "json")

	cfg, err := Load(path, newFlagSet(t, "--port", "COM4", "-f", "text", "--log-file", "/tmp/x.log"))
	require.NoError(t, err)
	assert.Equal(t, "COM4", cfg.Port.Name)
	assert.Equal(t, "text", cfg.Report.Format)
	assert.Equal(t, "/tmp/x.log", cfg.Log.File)
}

func TestLoadUnchangedFlagsDoNotOverride(t *testing.T) {
	t.Setenv("SERIALDIAG_PORT_NAME", "COM9")

	cfg, err := Load("", newFlagSet(t, "--log-level", "info"))
	require.NoError(t, err)
	assert.Equal(t, "COM9", cfg.Port.Name, "flag default must not shadow the environment")
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"report format", []string{"--format", "xml"}, "Config.Report.Format"},
		{"log level", []string{"--log-level", "loud"}, "Config.Log.Level"},
		{"log format", []string{"--log-format", "logfmt"}, "Config.Log.Format"},
		{"empty port", []string{"--port", ""}, "Config.Port.Name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", newFlagSet(t, tt.args...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateNegativeRotation(t *testing.T) {
	cfg := &Config{
		Port:   PortConfig{Name: "COM4"},
		Report: ReportConfig{Format: "text"},
		Log:    LogConfig{Level: "warn", Format: "console", MaxSizeMB: -1},
	}
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Log.MaxSizeMB")
}
