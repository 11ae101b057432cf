package disasm

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultShell is the engine shell looked up in PATH when none is given.
const DefaultShell = "js"

// ResolveShellPath resolves the shell executable from an explicit path or
// name, falling back to DefaultShell in PATH.
func ResolveShellPath(explicit string) (string, error) {
	if explicit == "" {
		explicit = DefaultShell
	}
	if filepath.Base(explicit) == explicit {
		path, err := exec.LookPath(explicit)
		if err != nil {
			return "", fmt.Errorf("%s not found in PATH: %w", explicit, err)
		}
		return path, nil
	}
	info, err := os.Stat(explicit)
	if err != nil {
		return "", fmt.Errorf("shell path not found: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("shell path %s is a directory", explicit)
	}
	return explicit, nil
}
