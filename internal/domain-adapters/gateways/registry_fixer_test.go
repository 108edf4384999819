package gateways

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
)

const regOutput = "\r\nHKEY_LOCAL_MACHINE\\Software\\Unknown\\AstroImageJ\r\n    InstallPath    REG_SZ    C:\\Program Files\\AstroImageJ\r\n\r\nHKEY_LOCAL_MACHINE\\Software\\Unknown\\AstroImageJ\\6.0.0.00\r\n"

func TestParseRegQuery(t *testing.T) {
	got := ParseRegQuery(regOutput+"HKEY_LOCAL_MACHINE\\Software\\Unknown\\AstroImageJ\\6.0.0.00\\Nested\r\n", KeyPath("AstroImageJ"))
	if diff := cmp.Diff([]string{"6.0.0.00"}, got); diff != "" {
		t.Errorf("ParseRegQuery() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryFixer_Fix(t *testing.T) {
	regQuery := func(stdout string, exit int) func(gateways.Command) (*gateways.CommandResult, error) {
		return func(cmd gateways.Command) (*gateways.CommandResult, error) {
			if cmd.Name != "reg" {
				return &gateways.CommandResult{}, nil
			}
			if exit != 0 {
				return &gateways.CommandResult{ExitCode: exit}, entities.ErrToolFailed
			}
			return &gateways.CommandResult{Stdout: stdout}, nil
		}
	}

	tests := []struct {
		name    string
		handler func(gateways.Command) (*gateways.CommandResult, error)
		version string
		want    RegistryOutcome
		wantErr error
		renames bool
	}{
		{"renames single subkey", regQuery(regOutput, 0), "6.0.1.00", RegistryRenamed, nil, true},
		{"missing key warns", regQuery("", 1), "6.0.1.00", RegistryKeyMissing, nil, false},
		{"version already present", regQuery(regOutput, 0), "6.0.0.00", RegistryAlreadyExists, nil, false},
		{"no subkeys", regQuery("HKEY_LOCAL_MACHINE\\Software\\Unknown\\AstroImageJ\r\n", 0), "6.0.1.00", "", entities.ErrValidation, false},
		{"two subkeys", regQuery(regOutput+"HKEY_LOCAL_MACHINE\\Software\\Unknown\\AstroImageJ\\5.0.0.00\r\n", 0), "6.0.1.00", "", entities.ErrValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{handler: tt.handler}
			fixer := NewRegistryFixer(runner, nil).WithHostOS(entities.OSWindows)

			got, err := fixer.Fix(context.Background(), "AstroImageJ", tt.version)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fix() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Fix() = %s, want %s", got, tt.want)
			}

			renamed := false
			for _, line := range runner.lines() {
				if strings.HasPrefix(line, "powershell.exe") {
					renamed = true
					if !strings.Contains(line, `Rename-Item -Path "HKLM:\Software\Unknown\AstroImageJ\6.0.0.00" -NewName "6.0.1.00"`) {
						t.Errorf("unexpected rename call: %s", line)
					}
				}
			}
			if renamed != tt.renames {
				t.Errorf("renamed = %v, want %v", renamed, tt.renames)
			}
		})
	}
}

func TestRegistryFixer_Fix_NotWindows(t *testing.T) {
	fixer := NewRegistryFixer(&fakeRunner{}, nil).WithHostOS(entities.OSLinux)
	if _, err := fixer.Fix(context.Background(), "AstroImageJ", "6.0.0.00"); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
