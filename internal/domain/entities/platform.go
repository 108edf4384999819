package entities

import (
	"fmt"
	"strings"
)

// OperatingSystem is a packaging target OS, spelled the way the Adoptium API expects it
type OperatingSystem string

// Supported target operating systems
const (
	OSMac     OperatingSystem = "mac"
	OSLinux   OperatingSystem = "linux"
	OSWindows OperatingSystem = "windows"
)

// ParseOperatingSystem converts a config or CLI string to an OperatingSystem
func ParseOperatingSystem(s string) (OperatingSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mac", "macos", "darwin", "osx":
		return OSMac, nil
	case "linux":
		return OSLinux, nil
	case "windows", "win":
		return OSWindows, nil
	default:
		return "", fmt.Errorf("unsupported operating system: %q", s)
	}
}

// Title returns the OS name with its first letter upper-cased (Mac, Linux, Windows)
func (o OperatingSystem) Title() string {
	s := string(o)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ExecutableSuffix returns ".exe" on Windows and "" elsewhere
func (o OperatingSystem) ExecutableSuffix() string {
	if o == OSWindows {
		return ".exe"
	}
	return ""
}

// JPackagePlatform is the platform attribute written to .jpackage.xml
func (o OperatingSystem) JPackagePlatform() string {
	if o == OSMac {
		return "macOS"
	}
	return string(o)
}

// Architecture is a CPU architecture in Adoptium spelling
type Architecture string

// Supported architectures
const (
	ArchX64     Architecture = "x64"
	ArchAArch64 Architecture = "aarch64"
)

// ParseArchitecture converts a config or CLI string to an Architecture
func ParseArchitecture(s string) (Architecture, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x64", "amd64", "x86_64":
		return ArchX64, nil
	case "aarch64", "arm64":
		return ArchAArch64, nil
	default:
		return "", fmt.Errorf("unsupported architecture: %q", s)
	}
}

// RuntimeKind selects which Adoptium image is fetched for a target
type RuntimeKind string

// Runtime kinds
const (
	RuntimeJDK   RuntimeKind = "jdk"
	RuntimeJRE   RuntimeKind = "jre"
	RuntimeJMODS RuntimeKind = "jmods"
)

// ParseRuntimeKind converts a config string to a RuntimeKind
func ParseRuntimeKind(s string) (RuntimeKind, error) {
	switch RuntimeKind(strings.ToLower(strings.TrimSpace(s))) {
	case RuntimeJDK:
		return RuntimeJDK, nil
	case RuntimeJRE:
		return RuntimeJRE, nil
	case RuntimeJMODS:
		return RuntimeJMODS, nil
	default:
		return "", fmt.Errorf("unsupported runtime type: %q", s)
	}
}

// Target is one packaging target, e.g. "armMac" = mac/aarch64 JDK in a tar.gz
type Target struct {
	ID    string
	OS    OperatingSystem
	Arch  Architecture
	Ext   string
	Kind  RuntimeKind
	Jmods bool
}

// SystemID returns the on-disk prefix used for downloaded runtime files (e.g. Mac_aarch64)
func (t Target) SystemID() string {
	return t.OS.Title() + "_" + string(t.Arch)
}

// Platform returns the os-arch pair used in artifact names and summaries
func (t Target) Platform() string {
	return fmt.Sprintf("%s-%s", t.OS, t.Arch)
}
