package entry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Keys double as queue-store file names, so they must be flat: a single
// filesystem-legal token with no separators. Path-derived keys replace
// every separator with this placeholder, keeping the key recognizable as
// its origin ("/usr/local/bin/sync.sh" -> "_usr_local_bin_sync.sh").
const pathPlaceholder = "_"

// KeyFromPath derives the queue key for a resolved executable path.
// The derivation is pure string munging: two enqueues naming the same
// resolved path always collide, which is the path-based dedup mechanism.
func KeyFromPath(resolved string) string {
	return strings.ReplaceAll(resolved, string(filepath.Separator), pathPlaceholder)
}

// KeyFromContent derives the queue key for inline payload bytes: the hex
// digest of the payload under the configured hasher. The environment is
// deliberately excluded (see package doc).
func KeyFromContent(payload []byte, h Hasher) string {
	return h.Sum(payload)
}

// resolveExecutable validates that path names an existing, executable,
// regular file and returns its resolved absolute form. Symlinks are
// followed so that distinct links to one file share a key.
func resolveExecutable(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidInput, path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: no such file", ErrInvalidInput, path)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidInput, path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrInvalidInput, path)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrInvalidInput, path)
	}
	if info.Mode().Perm()&0111 == 0 {
		return "", fmt.Errorf("%w: %s is not executable", ErrInvalidInput, path)
	}
	return resolved, nil
}
