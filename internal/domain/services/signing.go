package services

import (
	"io/fs"
	"path"
	"strings"
)

// SignOptions are the codesign settings shared by every signing call
type SignOptions struct {
	Identity              string
	Prefix                string // identifier prefix, e.g. "com.astroimagej.AstroImageJ."
	Keychain              string
	Entitlements          string // for the bundle and main launcher
	InheritedEntitlements string // for nested helper executables
}

// SigningService decides what gets signed inside a macOS bundle and how
type SigningService struct{}

// NewSigningService creates a new signing service
func NewSigningService() *SigningService {
	return &SigningService{}
}

// IsCandidate reports whether a bundle entry is signed individually during the walk.
// relPath is slash-separated and relative to the output directory; mode must come from Lstat.
func (s *SigningService) IsCandidate(relPath string, mode fs.FileMode, mainLauncher string) bool {
	if !mode.IsRegular() {
		return false
	}
	if relPath == mainLauncher {
		return false
	}
	if strings.Contains(relPath, ".dSYM/Contents") {
		return false
	}
	ext := path.Ext(relPath)
	return IsExecutable(mode) || ext == ".dylib" || ext == ".jar"
}

// IsExecutable reports whether any execute bit is set
func IsExecutable(mode fs.FileMode) bool {
	return mode.Perm()&0o111 != 0
}

// SignArgs builds codesign arguments. An empty entitlements path omits --entitlements.
func (s *SigningService) SignArgs(opts SignOptions, target, entitlements string, force bool) []string {
	args := []string{"-s", opts.Identity, "-vvvv", "--timestamp", "--options", "runtime"}
	if opts.Keychain != "" {
		args = append(args, "--keychain", opts.Keychain)
	}
	if entitlements != "" {
		args = append(args, "--entitlements", entitlements)
	}
	if opts.Prefix != "" {
		args = append(args, "--prefix", opts.Prefix)
	}
	if force {
		args = append(args, "--force")
	}
	return append(args, target)
}

// UnsignArgs builds the codesign call that strips an existing signature
func (s *SigningService) UnsignArgs(target string) []string {
	return []string{"--remove-signature", target}
}

// HelperEntitlements picks the entitlements for a nested executable
func (s *SigningService) HelperEntitlements(opts SignOptions) string {
	if opts.InheritedEntitlements != "" {
		return opts.InheritedEntitlements
	}
	return opts.Entitlements
}

// Prefix turns an app identifier into a codesign identifier prefix
func Prefix(identifier string) string {
	if identifier == "" || strings.HasSuffix(identifier, ".") {
		return identifier
	}
	return identifier + "."
}
