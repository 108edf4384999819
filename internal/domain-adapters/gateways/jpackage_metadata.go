package gateways

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/services"
)

// JPackageMetadataFixer stamps the packaging JDK's version into a hand-built app image
type JPackageMetadataFixer struct {
	finder    *ArtifactFinder
	packaging *services.PackagingService
}

// NewJPackageMetadataFixer creates a metadata fixer
func NewJPackageMetadataFixer() *JPackageMetadataFixer {
	return &JPackageMetadataFixer{
		finder:    NewArtifactFinder(),
		packaging: services.NewPackagingService(),
	}
}

// StatePath is the .jpackage.xml location relative to the bundle root
func (f *JPackageMetadataFixer) StatePath(os entities.OperatingSystem) (string, error) {
	switch os {
	case entities.OSWindows:
		return "app/.jpackage.xml", nil
	case entities.OSLinux:
		return "lib/app/.jpackage.xml", nil
	case entities.OSMac:
		return "Contents/app/.jpackage.xml", nil
	default:
		return "", fmt.Errorf("no app image layout for operating system %q", os)
	}
}

// JavaVersion reads JAVA_VERSION from the release file of the JDK at jdkHome
func (f *JPackageMetadataFixer) JavaVersion(jdkHome string) (string, error) {
	release := filepath.Join(jdkHome, "release")
	if !fileExists(release) {
		found, err := f.finder.FindFile(jdkHome, "release")
		if err != nil {
			return "", err
		}
		release = found
	}

	//nolint:gosec // G304: release file of a configured JDK
	data, err := os.ReadFile(release)
	if err != nil {
		return "", fmt.Errorf("failed to read JDK release file: %w", err)
	}
	return f.packaging.ParseReleaseFile(string(data))
}

// Fix replaces the version placeholder in bundleDir's .jpackage.xml and returns the
// Java version written
func (f *JPackageMetadataFixer) Fix(bundleDir string, target entities.OperatingSystem, jdkHome string) (string, error) {
	rel, err := f.StatePath(target)
	if err != nil {
		return "", err
	}

	version, err := f.JavaVersion(jdkHome)
	if err != nil {
		return "", err
	}

	statePath := filepath.Join(bundleDir, filepath.FromSlash(path.Clean(rel)))
	//nolint:gosec // G304: path inside the app image
	data, err := os.ReadFile(statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", entities.ErrMissingResource, statePath)
		}
		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}

	content := string(data)
	if !strings.Contains(content, services.JPackageStatePlaceholder) {
		return version, nil
	}
	if err := writeFile(statePath, f.packaging.FixJPackageState(content, version)); err != nil {
		return "", err
	}
	return version, nil
}
