package gateways

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces/gateways"
)

// fakeHdiutil emulates hdiutil convert/attach on the file system
func fakeHdiutil(t *testing.T, withIcon, setFile bool) func(gateways.Command) (*gateways.CommandResult, error) {
	return func(cmd gateways.Command) (*gateways.CommandResult, error) {
		switch {
		case cmd.Name == "hdiutil" && cmd.Args[0] == "convert":
			writeTestFile(t, cmd.Args[len(cmd.Args)-1], "image:"+cmd.Args[3])
		case cmd.Name == "hdiutil" && cmd.Args[0] == "attach" && withIcon:
			writeTestFile(t, filepath.Join(cmd.Args[3], volumeIconName), "icns")
		case cmd.Name == "sh" && !setFile:
			return &gateways.CommandResult{ExitCode: 1}, entities.ErrToolFailed
		}
		return &gateways.CommandResult{}, nil
	}
}

func TestDmgVolumeRenamer_Rename(t *testing.T) {
	dir := t.TempDir()
	dmg := filepath.Join(dir, "AstroImageJ-6.0.0.dmg")
	writeTestFile(t, dmg, "original")

	runner := &fakeRunner{handler: fakeHdiutil(t, true, true)}
	got, err := NewDmgVolumeRenamer(runner, nil).RenameInDir(context.Background(), dir, "AstroImageJ")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got != dmg {
		t.Errorf("RenameInDir() = %s, want %s", got, dmg)
	}

	var names []string
	for _, c := range runner.calls {
		names = append(names, c.Name+" "+c.Args[0])
	}
	want := "hdiutil convert,hdiutil attach,diskutil rename,sh -c,SetFile -c,SetFile -a,hdiutil detach,hdiutil convert"
	if strings.Join(names, ",") != want {
		t.Errorf("commands = %s\nwant %s", strings.Join(names, ","), want)
	}

	//nolint:gosec // G304: test fixture path
	data, err := os.ReadFile(dmg)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "image:UDZO" {
		t.Errorf("dmg was not replaced by the recompressed image: %s", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", listDir(t, dir))
	}
}

// Test the icon step is skipped without SetFile
func TestDmgVolumeRenamer_Rename_NoSetFile(t *testing.T) {
	dir := t.TempDir()
	dmg := filepath.Join(dir, "a.dmg")
	writeTestFile(t, dmg, "original")

	runner := &fakeRunner{handler: fakeHdiutil(t, true, false)}
	if err := NewDmgVolumeRenamer(runner, nil).Rename(context.Background(), dmg, "Vol"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	for _, line := range runner.lines() {
		if strings.HasPrefix(line, "SetFile") {
			t.Errorf("SetFile should not run: %s", line)
		}
	}
}

// Test a failed rename force-detaches and keeps the original image
func TestDmgVolumeRenamer_Rename_Failure(t *testing.T) {
	dir := t.TempDir()
	dmg := filepath.Join(dir, "a.dmg")
	writeTestFile(t, dmg, "original")

	base := fakeHdiutil(t, false, false)
	runner := &fakeRunner{handler: func(cmd gateways.Command) (*gateways.CommandResult, error) {
		if cmd.Name == "diskutil" {
			return &gateways.CommandResult{ExitCode: 1}, entities.ErrToolFailed
		}
		return base(cmd)
	}}

	err := NewDmgVolumeRenamer(runner, nil).Rename(context.Background(), dmg, "Vol")
	if !errors.Is(err, entities.ErrToolFailed) {
		t.Fatalf("expected ErrToolFailed, got %v", err)
	}

	lines := runner.lines()
	if last := lines[len(lines)-1]; !strings.HasPrefix(last, "hdiutil detach -force") {
		t.Errorf("last command = %s, want forced detach", last)
	}
	//nolint:gosec // G304: test fixture path
	data, _ := os.ReadFile(dmg)
	if string(data) != "original" {
		t.Errorf("original dmg was modified: %s", data)
	}
}
