package entities

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// BundleLayout describes where the pieces of an app image live, relative to the output directory.
// Paths use forward slashes; use Resolve to get an OS path.
type BundleLayout struct {
	OS         OperatingSystem
	AppName    string
	Root       string
	ExecDir    string
	AppDir     string
	RuntimeDir string
}

// LayoutFor returns the bundle layout jpackage would produce for an app on the given OS
func LayoutFor(os OperatingSystem, appName string) (BundleLayout, error) {
	if appName == "" {
		return BundleLayout{}, fmt.Errorf("app name is required")
	}

	switch os {
	case OSMac:
		root := appName + ".app"
		return BundleLayout{
			OS:         os,
			AppName:    appName,
			Root:       root,
			ExecDir:    path.Join(root, "Contents/MacOS"),
			AppDir:     path.Join(root, "Contents/app"),
			RuntimeDir: path.Join(root, "Contents/runtime/Contents/Home"),
		}, nil
	case OSLinux:
		root := strings.ToLower(appName)
		return BundleLayout{
			OS:         os,
			AppName:    appName,
			Root:       root,
			ExecDir:    path.Join(root, "bin"),
			AppDir:     path.Join(root, "lib/app"),
			RuntimeDir: path.Join(root, "lib/runtime"),
		}, nil
	case OSWindows:
		return BundleLayout{
			OS:         os,
			AppName:    appName,
			Root:       appName,
			ExecDir:    appName,
			AppDir:     path.Join(appName, "app"),
			RuntimeDir: path.Join(appName, "runtime"),
		}, nil
	default:
		return BundleLayout{}, fmt.Errorf("no bundle layout for operating system %q", os)
	}
}

// Validate checks that the app and runtime directories are distinct, non-empty and not nested
func (l BundleLayout) Validate() error {
	dirs := map[string]string{
		"root":    l.Root,
		"exec":    l.ExecDir,
		"app":     l.AppDir,
		"runtime": l.RuntimeDir,
	}
	for name, dir := range dirs {
		if dir == "" || dir == "." {
			return fmt.Errorf("%s directory is empty", name)
		}
		if path.IsAbs(dir) || strings.HasPrefix(dir, "..") {
			return fmt.Errorf("%s directory must be relative: %s", name, dir)
		}
	}
	if l.AppDir == l.RuntimeDir || l.AppDir == l.ExecDir || l.RuntimeDir == l.ExecDir {
		return fmt.Errorf("layout directories overlap")
	}
	if within(l.AppDir, l.RuntimeDir) || within(l.RuntimeDir, l.AppDir) {
		return fmt.Errorf("app directory %s and runtime directory %s are nested", l.AppDir, l.RuntimeDir)
	}
	return nil
}

// Resolve joins a layout-relative path onto the output directory
func (l BundleLayout) Resolve(outputDir, rel string) string {
	return filepath.Join(outputDir, filepath.FromSlash(rel))
}

// LauncherName is the file name of the main launcher inside ExecDir
func (l BundleLayout) LauncherName() string {
	return l.AppName + l.OS.ExecutableSuffix()
}

// LauncherPath is the layout-relative path of the main launcher
func (l BundleLayout) LauncherPath() string {
	return path.Join(l.ExecDir, l.LauncherName())
}

// ContentsDir is the macOS Contents directory; empty on other systems
func (l BundleLayout) ContentsDir() string {
	if l.OS != OSMac {
		return ""
	}
	return path.Join(l.Root, "Contents")
}

func within(parent, child string) bool {
	return strings.HasPrefix(child, parent+"/")
}
