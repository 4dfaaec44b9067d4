// Package security produces collision-free storage names from untrusted
// client file names and gates which stored files may be served back.
package security

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// reservedNames are device names some filesystems refuse regardless of extension.
var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// SecureFilename turns an untrusted client file name into a safe storage name
// of the form "<uniqueID>_<base><ext>". Path fragments, control characters and
// anything outside [A-Za-z0-9_.-] are dropped, and the base is truncated so
// the whole stored name fits maxLen, always keeping at least one base
// character even when the id and extension leave no room. A base that
// sanitizes away entirely falls back to the extension body ("###.png" stores
// as "png"). Only names with nothing left after sanitizing, or whose base is
// a reserved device name, are rejected.
func SecureFilename(name, uniqueID string, maxLen int) (string, error) {
	base := name
	ext := ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		base = name[:i]
		ext = "." + sanitizeComponent(name[i+1:])
		if ext == "." {
			ext = ""
		}
	}
	base = sanitizeComponent(base)
	if base == "" && ext != "" {
		base = strings.TrimPrefix(ext, ".")
		ext = ""
	}
	if base == "" {
		return "", fmt.Errorf("file name %q sanitizes to nothing", name)
	}

	// Budget for the base once the id prefix and extension are accounted for.
	maxBase := maxLen - len(ext) - len(uniqueID) - 1
	if maxBase < 1 {
		maxBase = 1
	}
	if len(base) > maxBase {
		base = base[:maxBase]
	}

	if reservedNames[strings.ToLower(base)] {
		return "", fmt.Errorf("file name %q is a reserved device name", name)
	}

	return uniqueID + "_" + base + ext, nil
}

// UniqueFilename generates a fresh task id and the matching storage name.
func UniqueFilename(name string, maxLen int) (taskID, safeName string, err error) {
	taskID = uuid.New().String()
	safeName, err = SecureFilename(name, taskID, maxLen)
	if err != nil {
		return "", "", err
	}
	return taskID, safeName, nil
}

// IsSafeToServe reports whether name resolves to a file strictly inside
// uploadDir. The resolved path must sit past a path separator boundary, so a
// sibling directory sharing the prefix (uploads vs uploads_evil) never passes.
// Backslashes are rejected outright; stored names never contain them, and on
// Unix they are literal bytes that filepath.Join leaves in place.
func IsSafeToServe(uploadDir, name string) bool {
	if name == "" || filepath.IsAbs(name) || strings.ContainsRune(name, '\\') {
		return false
	}
	absDir, err := filepath.Abs(uploadDir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(filepath.Join(uploadDir, name))
	if err != nil {
		return false
	}
	return strings.HasPrefix(absPath, absDir+string(filepath.Separator))
}

// sanitizeComponent collapses whitespace to underscores, drops every character
// outside [A-Za-z0-9_.-] (path separators and control bytes included) and
// trims leading/trailing dots and underscores.
func sanitizeComponent(s string) string {
	s = strings.ReplaceAll(s, "/", " ")
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.Join(strings.Fields(s), "_")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
