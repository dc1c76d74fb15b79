package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading ~ and $VAR references in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	return os.ExpandEnv(path)
}

// ResolveRelative expands path and, when it is relative, anchors it at the
// directory holding the protocol file so protocols can reference their own
// stimulus folder.
func ResolveRelative(protocolPath, path string) string {
	path = ExpandPath(path)
	if path == "" || filepath.IsAbs(path) || protocolPath == "" {
		return path
	}
	return filepath.Join(filepath.Dir(ExpandPath(protocolPath)), path)
}
