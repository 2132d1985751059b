package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRejected is matched by every rejection returned from this package.
var ErrRejected = errors.New("sanitization rejected")

// RejectKind identifies which check refused an input.
type RejectKind int

const (
	KindIdentifier RejectKind = iota
	KindPath
	KindCommand
)

func (k RejectKind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindPath:
		return "path"
	case KindCommand:
		return "command"
	default:
		return fmt.Sprintf("RejectKind(%d)", int(k))
	}
}

// RejectedError reports an input that failed validation. Callers must not
// perform the filesystem or process action the input was meant for.
type RejectedError struct {
	Kind   RejectKind
	Input  string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected %s %q: %s", e.Kind, e.Input, e.Reason)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

func reject(kind RejectKind, input, format string, args ...any) error {
	return &RejectedError{Kind: kind, Input: input, Reason: fmt.Sprintf(format, args...)}
}

// SanitizeIdentifier accepts names made only of ASCII letters, digits, '-' and '_'.
func SanitizeIdentifier(s string) (string, error) {
	if s == "" {
		return "", reject(KindIdentifier, s, "empty identifier")
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", reject(KindIdentifier, s, "invalid character %q at offset %d", r, i)
		}
	}
	return s, nil
}

// SanitizePath joins candidate onto base and returns the absolute result,
// refusing anything that could land outside base.
func SanitizePath(base, candidate string) (string, error) {
	if candidate == "" {
		return "", reject(KindPath, candidate, "empty path")
	}
	if strings.ContainsRune(candidate, 0) {
		return "", reject(KindPath, candidate, "null byte in path")
	}
	if strings.HasPrefix(candidate, "/") || strings.HasPrefix(candidate, `\`) ||
		filepath.IsAbs(candidate) || filepath.VolumeName(candidate) != "" {
		return "", reject(KindPath, candidate, "absolute path not allowed")
	}

	normalized := strings.ReplaceAll(candidate, `\`, "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return "", reject(KindPath, candidate, "path contains .. component")
		}
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", reject(KindPath, candidate, "resolving base %q: %v", base, err)
	}
	joined := filepath.Join(absBase, filepath.FromSlash(normalized))
	if !within(absBase, joined) {
		return "", reject(KindPath, candidate, "escapes base directory")
	}

	// A symlink inside base may still point outside of it.
	if resolved, err := filepath.EvalSymlinks(joined); err == nil {
		realBase := absBase
		if rb, err := filepath.EvalSymlinks(absBase); err == nil {
			realBase = rb
		}
		if !within(realBase, resolved) {
			return "", reject(KindPath, candidate, "symlink escapes base directory")
		}
	} else if !os.IsNotExist(err) {
		return "", reject(KindPath, candidate, "resolving path: %v", err)
	}

	return joined, nil
}

func within(base, path string) bool {
	if path == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
