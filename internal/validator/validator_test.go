package validator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCfg(t *testing.T, content string) (cfgPath, dataPath string) {
	t.Helper()
	dataPath = t.TempDir()
	cfgPath = filepath.Join(dataPath, "server.cfg")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write cfg: %v", err)
	}
	return cfgPath, dataPath
}

func TestValidateHappyPath(t *testing.T) {
	cfgPath, dataPath := writeCfg(t, `
# main server config
endpoint_add_tcp "0.0.0.0:30120"
endpoint_add_udp "0.0.0.0:30120"
sv_maxclients 48
`)

	result := New().Validate(cfgPath, dataPath)

	if result.Errors != "" {
		t.Fatalf("unexpected errors: %s", result.Errors)
	}
	if result.Warnings != "" {
		t.Fatalf("unexpected warnings: %s", result.Warnings)
	}
	if result.ConnectEndpoint != "0.0.0.0:30120" {
		t.Fatalf("unexpected endpoint: %s", result.ConnectEndpoint)
	}
}

func TestValidateMissingEndpointIsError(t *testing.T) {
	cfgPath, dataPath := writeCfg(t, `
sv_maxclients 48
sv_hostname "my server"
`)

	result := New().Validate(cfgPath, dataPath)

	if result.Errors == "" {
		t.Fatal("a config without an endpoint must be rejected")
	}
	if !strings.Contains(result.Errors, "endpoint") {
		t.Fatalf("error should mention the missing endpoint: %s", result.Errors)
	}
}

func TestValidateMissingMaxClientsIsWarning(t *testing.T) {
	cfgPath, dataPath := writeCfg(t, `endpoint_add_tcp "0.0.0.0:30120"`)

	result := New().Validate(cfgPath, dataPath)

	if result.Errors != "" {
		t.Fatalf("unexpected errors: %s", result.Errors)
	}
	if !strings.Contains(result.Warnings, "sv_maxclients") {
		t.Fatalf("expected an sv_maxclients warning, got %q", result.Warnings)
	}
}

func TestValidateCommentedEndpointIsIgnored(t *testing.T) {
	cfgPath, dataPath := writeCfg(t, `
# endpoint_add_tcp "0.0.0.0:30120"
// endpoint_add_udp "0.0.0.0:30120"
sv_maxclients 32
`)

	result := New().Validate(cfgPath, dataPath)

	if result.Errors == "" {
		t.Fatal("commented-out endpoints must not count")
	}
}

func TestValidateFirstEndpointWins(t *testing.T) {
	cfgPath, dataPath := writeCfg(t, `
endpoint_add_udp "0.0.0.0:30110"
endpoint_add_tcp "0.0.0.0:30120"
sv_maxclients 32
`)

	result := New().Validate(cfgPath, dataPath)

	if result.ConnectEndpoint != "0.0.0.0:30110" {
		t.Fatalf("expected the first declared endpoint, got %s", result.ConnectEndpoint)
	}
}

func TestValidateMissingDataDir(t *testing.T) {
	cfgPath, _ := writeCfg(t, `endpoint_add_tcp "0.0.0.0:30120"`)

	result := New().Validate(cfgPath, "/nonexistent/data/dir")

	if !strings.Contains(result.Errors, "data directory") {
		t.Fatalf("expected a data directory error, got %q", result.Errors)
	}
}

func TestValidateUnreadableCfgFile(t *testing.T) {
	dataPath := t.TempDir()

	result := New().Validate(filepath.Join(dataPath, "missing.cfg"), dataPath)

	if result.Errors == "" {
		t.Fatal("a missing cfg file must be an error")
	}
}
