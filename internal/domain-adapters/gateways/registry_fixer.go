package gateways

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
)

// RegistryOutcome reports what Fix did
type RegistryOutcome string

// Registry fix outcomes
const (
	RegistryRenamed       RegistryOutcome = "renamed"
	RegistryKeyMissing    RegistryOutcome = "key missing"
	RegistryAlreadyExists RegistryOutcome = "version exists"
)

const regMachinePrefix = `HKEY_LOCAL_MACHINE\`

// RegistryFixer renames the per-version key an MSI install leaves under
// HKLM\Software\Unknown\<appId> so it matches the release version
type RegistryFixer struct {
	runner gateways.CommandRunner
	hostOS entities.OperatingSystem
	logger interfaces.Logger
}

// NewRegistryFixer creates a registry fixer
func NewRegistryFixer(runner gateways.CommandRunner, logger interfaces.Logger) *RegistryFixer {
	return &RegistryFixer{
		runner: runner,
		hostOS: HostOS(),
		logger: interfaces.OrNoOp(logger),
	}
}

// WithHostOS overrides the detected host
func (f *RegistryFixer) WithHostOS(os entities.OperatingSystem) *RegistryFixer {
	f.hostOS = os
	return f
}

// KeyPath is the registry key below HKLM that holds the version subkeys
func KeyPath(appID string) string {
	return `Software\Unknown\` + appID
}

// Fix renames the single version subkey to version. A missing key or an existing
// version subkey is a warning; more or fewer than one subkey is an error.
func (f *RegistryFixer) Fix(ctx context.Context, appID, version string) (RegistryOutcome, error) {
	if f.hostOS != entities.OSWindows {
		return "", fmt.Errorf("%w: the registry can only be modified on Windows", entities.ErrValidation)
	}
	if appID == "" || version == "" {
		return "", fmt.Errorf("%w: app id and version are required", entities.ErrValidation)
	}

	key := KeyPath(appID)
	subkeys, err := f.subkeys(ctx, key)
	if err != nil {
		if errors.Is(err, entities.ErrMissingResource) {
			f.logger.Warn("The registry key does not exist", interfaces.F("key", `HKLM\`+key))
			return RegistryKeyMissing, nil
		}
		return "", err
	}

	for _, k := range subkeys {
		if strings.EqualFold(k, version) {
			f.logger.Warn("The registry key for the specified version already exists", interfaces.F("version", version))
			return RegistryAlreadyExists, nil
		}
	}
	if len(subkeys) != 1 {
		return "", fmt.Errorf("%w: expected a single key under HKLM\\%s, found %d", entities.ErrValidation, key, len(subkeys))
	}

	existing := subkeys[0]
	f.logger.Info("Renaming registry key", interfaces.F("from", existing), interfaces.F("to", version))
	if _, err := f.runner.Run(ctx, gateways.Command{
		Name:        "powershell.exe",
		Args:        RenameArgs(key, existing, version),
		Description: "powershell Rename-Item",
	}); err != nil {
		return "", fmt.Errorf("failed to rename registry key: %w", err)
	}

	f.logger.Info("Renamed registry key", interfaces.F("version", version))
	return RegistryRenamed, nil
}

// RenameArgs builds the elevated powershell call that renames one subkey
func RenameArgs(key, existing, version string) []string {
	inner := fmt.Sprintf(`'-NoProfile -Command "Rename-Item -Path "HKLM:\%s\%s" -NewName "%s""'`, key, existing, version)
	return []string{"-NoProfile", "Start-Process", "powershell.exe", "-Verb", "RunAs", "-ArgumentList", inner}
}

// subkeys lists the direct subkey names of HKLM\key via reg query
func (f *RegistryFixer) subkeys(ctx context.Context, key string) ([]string, error) {
	res, err := f.runner.Run(ctx, gateways.Command{
		Name:        "reg",
		Args:        []string{"query", `HKLM\` + key},
		Description: "reg query",
	})
	if err != nil {
		// reg exits with 1 when the key does not exist
		if res != nil && res.ExitCode == 1 {
			return nil, fmt.Errorf("%w: HKLM\\%s", entities.ErrMissingResource, key)
		}
		return nil, fmt.Errorf("failed to query registry: %w", err)
	}
	return ParseRegQuery(res.Stdout, key), nil
}

// ParseRegQuery extracts direct subkey names of key from `reg query` output
func ParseRegQuery(output, key string) []string {
	parent := strings.ToLower(regMachinePrefix + key + `\`)
	var names []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r ")
		if !strings.HasPrefix(strings.ToLower(line), parent) {
			continue
		}
		name := line[len(parent):]
		if name == "" || strings.Contains(name, `\`) {
			continue
		}
		names = append(names, name)
	}
	return names
}
