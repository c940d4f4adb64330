package validator

import (
	"fmt"
	"os"
	"strings"

	"github.com/yourusername/game-server-supervisor/internal/supervisor"
)

// CfgValidator checks the server's textual config file before each spawn
// and extracts the connection endpoint it declares.
type CfgValidator struct{}

// New creates a config file validator
func New() *CfgValidator {
	return &CfgValidator{}
}

// Validate reads the cfg file and reports errors (which block the spawn),
// advisory warnings, and the first declared connection endpoint.
func (v *CfgValidator) Validate(cfgPath, dataPath string) supervisor.ValidationResult {
	var result supervisor.ValidationResult

	if info, err := os.Stat(dataPath); err != nil || !info.IsDir() {
		result.Errors = fmt.Sprintf("server data directory not found: %s", dataPath)
		return result
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		result.Errors = fmt.Sprintf("cannot read server config file: %v", err)
		return result
	}

	var warnings []string
	var endpoint string
	sawMaxClients := false

	for _, raw := range strings.Split(string(data), "\n") {
		line := stripComment(strings.TrimSpace(raw))
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		directive := strings.ToLower(fields[0])

		switch directive {
		case "endpoint_add_tcp", "endpoint_add_udp":
			if len(fields) < 2 {
				warnings = append(warnings, fmt.Sprintf("%s directive without an address", directive))
				continue
			}
			if endpoint == "" {
				endpoint = strings.Trim(fields[1], `"`)
			}
		case "sv_maxclients":
			sawMaxClients = true
		}
	}

	if endpoint == "" {
		result.Errors = "no network endpoint (endpoint_add_tcp/endpoint_add_udp) declared in the config file"
		return result
	}

	if !sawMaxClients {
		warnings = append(warnings, "sv_maxclients is not set; the server default will apply")
	}

	result.ConnectEndpoint = endpoint
	result.Warnings = strings.Join(warnings, "; ")
	return result
}

func stripComment(line string) string {
	for _, marker := range []string{"#", "//"} {
		if idx := strings.Index(line, marker); idx >= 0 {
			line = line[:idx]
		}
	}
	return strings.TrimSpace(line)
}
