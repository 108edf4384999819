package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/astroimagej/aijpack/internal/domain/entities"
)

// DefaultJlinkArgs trims the runtime the same way jpackage does
var DefaultJlinkArgs = []string{
	"--strip-native-commands",
	"--strip-debug",
	"--no-man-pages",
	"--no-header-files",
}

// jlink cannot link itself into a runtime built from a module list
var excludedModules = map[string]bool{
	"jdk.jlink":    true,
	"jdk.jpackage": true,
}

// InstallerType is the jpackage --type value
type InstallerType string

// Installer types produced per OS
const (
	InstallerDMG      InstallerType = "dmg"
	InstallerMSI      InstallerType = "msi"
	InstallerAppImage InstallerType = "app-image"
)

// InstallerSpec carries everything needed to build jpackage arguments
type InstallerSpec struct {
	Type         InstallerType
	OS           entities.OperatingSystem
	App          entities.AppDefinition
	Version      string
	Dest         string
	ResourceDir  string
	AppImage     string // prebuilt app image; mutually exclusive with InputDir
	InputDir     string
	RuntimeImage string
	UpgradeUUID  string
	MacSignID    string
	Associations []string
}

// PackagingService builds tool arguments and generated text files for app images
type PackagingService struct{}

// NewPackagingService creates a new packaging service
func NewPackagingService() *PackagingService {
	return &PackagingService{}
}

// InstallerTypeFor returns the installer produced for a target OS
func (s *PackagingService) InstallerTypeFor(os entities.OperatingSystem) InstallerType {
	switch os {
	case entities.OSMac:
		return InstallerDMG
	case entities.OSWindows:
		return InstallerMSI
	default:
		return InstallerAppImage
	}
}

// ParseModuleList turns `java --list-modules` output into module names suitable for jlink
func (s *PackagingService) ParseModuleList(output string) []string {
	var modules []string
	for _, line := range strings.Split(output, "\n") {
		name := strings.TrimSpace(line)
		if i := strings.IndexByte(name, '@'); i >= 0 {
			name = name[:i]
		}
		if name == "" || excludedModules[name] {
			continue
		}
		modules = append(modules, name)
	}
	return modules
}

// JlinkModuleArgs builds the jlink invocation for a module list taken from the unpacked JDK
func (s *PackagingService) JlinkModuleArgs(outputDir string, flags, modules []string) []string {
	args := []string{"--output", outputDir}
	args = append(args, flagsOrDefault(flags)...)
	return append(args, "--add-modules", strings.Join(modules, ","))
}

// JlinkModulePathArgs builds the jlink invocation that links every module in a jmods directory
func (s *PackagingService) JlinkModulePathArgs(outputDir string, flags []string, jmodsDir string) []string {
	args := []string{"--output", outputDir}
	args = append(args, flagsOrDefault(flags)...)
	return append(args, "--module-path", jmodsDir, "--add-modules", "ALL-MODULE-PATH")
}

// LauncherConfig renders the <Name>.cfg file read by the native launcher
func (s *PackagingService) LauncherConfig(mainJar, version string, javaOptions []string) string {
	var sb strings.Builder
	sb.WriteString("[Application]\n")
	if mainJar != "" {
		fmt.Fprintf(&sb, "app.mainjar=%s\n", mainJar)
	}
	sb.WriteString("\n[JavaOptions]\n")
	fmt.Fprintf(&sb, "java-options=-Djpackage.app-version=%s\n", version)
	for _, opt := range javaOptions {
		fmt.Fprintf(&sb, "java-options=%s\n", opt)
	}
	return sb.String()
}

// JPackageStatePlaceholder is replaced by the packaging JDK's version once it is known
const JPackageStatePlaceholder = "$VERSION"

// JPackageState renders .jpackage.xml so jpackage accepts a hand-built app image
func (s *PackagingService) JPackageState(os entities.OperatingSystem, app entities.AppDefinition, version string) string {
	appVersion := version
	if os == entities.OSMac {
		appVersion = ShortVersion(version)
	}
	isMac := os == entities.OSMac

	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" ?>\n")
	fmt.Fprintf(&sb, "<jpackage-state version=\"%s\" platform=\"%s\">\n", JPackageStatePlaceholder, os.JPackagePlatform())
	fmt.Fprintf(&sb, "  <app-version>%s</app-version>\n", appVersion)
	fmt.Fprintf(&sb, "  <main-launcher>%s</main-launcher>\n", app.Name)
	fmt.Fprintf(&sb, "  <main-class>%s</main-class>\n", app.MainClass)
	fmt.Fprintf(&sb, "  <signed>%t</signed>\n", isMac)
	fmt.Fprintf(&sb, "  <app-store>%t</app-store></jpackage-state>", isMac)
	return sb.String()
}

// FixJPackageState substitutes the packaging JDK version into rendered .jpackage.xml content
func (s *PackagingService) FixJPackageState(content, javaVersion string) string {
	return strings.ReplaceAll(content, JPackageStatePlaceholder, javaVersion)
}

// ExpandVersion fills ${VERSION} and $VERSION in a plist template with the three-component version
func (s *PackagingService) ExpandVersion(template, version string) string {
	short := ShortVersion(version)
	out := strings.ReplaceAll(template, "${VERSION}", short)
	return strings.ReplaceAll(out, "$VERSION", short)
}

// ParseReleaseFile reads JAVA_VERSION from a JDK `release` file
func (s *PackagingService) ParseReleaseFile(content string) (string, error) {
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if ok && key == "JAVA_VERSION" {
			return strings.Trim(value, "\""), nil
		}
	}
	return "", fmt.Errorf("%w: JAVA_VERSION not found in release file", entities.ErrMissingResource)
}

// InstallerArgs builds the jpackage argument list for an installer or app image
func (s *PackagingService) InstallerArgs(spec InstallerSpec) ([]string, error) {
	if spec.App.Name == "" || spec.Dest == "" {
		return nil, fmt.Errorf("%w: app name and destination are required", entities.ErrValidation)
	}

	args := []string{"--name", spec.App.Name, "--dest", spec.Dest, "--type", string(spec.Type)}
	if spec.Version != "" {
		args = append(args, "--app-version", spec.Version)
	}
	if spec.ResourceDir != "" {
		args = append(args, "--resource-dir", spec.ResourceDir)
	}

	switch {
	case spec.AppImage != "":
		if spec.Type == InstallerAppImage {
			return nil, fmt.Errorf("%w: an app image cannot be repackaged as an app image", entities.ErrValidation)
		}
		args = append(args, "--app-image", spec.AppImage)
	case spec.InputDir != "":
		if spec.App.MainJar == "" {
			return nil, fmt.Errorf("%w: main jar is required with an input directory", entities.ErrValidation)
		}
		args = append(args, "--input", spec.InputDir, "--main-jar", spec.App.MainJar)
		if spec.RuntimeImage != "" {
			args = append(args, "--runtime-image", spec.RuntimeImage)
		}
		for _, opt := range spec.App.JavaOptions {
			args = append(args, "--java-options", opt)
		}
	default:
		return nil, fmt.Errorf("%w: either an app image or an input directory is required", entities.ErrValidation)
	}

	switch spec.OS {
	case entities.OSMac:
		if spec.App.Identifier != "" {
			args = append(args, "--mac-package-identifier", spec.App.Identifier)
		}
		if spec.Type != InstallerAppImage {
			args = appendIf(args, "--about-url", spec.App.AboutURL)
			args = appendIf(args, "--license-file", spec.App.LicenseFile)
		}
		args = append(args, "--mac-app-store")
		if spec.MacSignID != "" {
			args = append(args, "--mac-sign", "--mac-signing-key-user-name", spec.MacSignID)
		}
	case entities.OSWindows:
		if spec.Type == InstallerMSI {
			args = append(args, "--win-dir-chooser")
			args = appendIf(args, "--win-help-url", spec.App.HelpURL)
			args = append(args, "--win-shortcut", "--win-shortcut-prompt")
			args = appendIf(args, "--win-update-url", spec.App.UpdateURL)
			args = appendIf(args, "--about-url", spec.App.AboutURL)
			args = appendIf(args, "--license-file", spec.App.LicenseFile)
			args = appendIf(args, "--win-upgrade-uuid", spec.UpgradeUUID)
		}
	}

	// app-image type cannot carry file associations
	if spec.Type != InstallerAppImage {
		assoc := append([]string(nil), spec.Associations...)
		sort.Strings(assoc)
		for _, a := range assoc {
			args = append(args, "--file-associations", a)
		}
	}

	return args, nil
}

// ArchiveName is the Linux bundle tarball name
func (s *PackagingService) ArchiveName(appName, version string) string {
	return fmt.Sprintf("%s-%s.tgz", appName, version)
}

// LauncherAsset is the path of the prebuilt native launcher for a target below the assets dir
func (s *PackagingService) LauncherAsset(assetsDir string, target entities.Target) string {
	return filepath.Join(assetsDir, "launchers", target.SystemID(), "JavaLauncher"+target.OS.ExecutableSuffix())
}

// ResourceDir is the per-OS resource override directory below the assets dir
func (s *PackagingService) ResourceDir(assetsDir string, os entities.OperatingSystem) string {
	return filepath.Join(assetsDir, string(os))
}

// AssociationsDir holds one jpackage file-association descriptor per file
func (s *PackagingService) AssociationsDir(assetsDir string) string {
	return filepath.Join(assetsDir, "associations")
}

func flagsOrDefault(flags []string) []string {
	if len(flags) == 0 {
		return DefaultJlinkArgs
	}
	return flags
}

func appendIf(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag, value)
}
