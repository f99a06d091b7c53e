// Package parse extracts component metadata from React source text using
// lightweight regex heuristics. Full AST parsing is out of scope; the name is
// only needed to label prompts and history entries.
package parse

import (
	"path/filepath"
	"regexp"
	"strings"
)

const fallbackName = "Unnamed Component"

var (
	defaultExportFunc  = regexp.MustCompile(`export\s+default\s+function\s+([A-Za-z_]\w*)`)
	defaultExportIdent = regexp.MustCompile(`export\s+default\s+([A-Z]\w*)\s*;?\s*$`)
	capitalizedArrow   = regexp.MustCompile(`(?:export\s+)?const\s+([A-Z]\w*)\s*(?::[^=]+)?=\s*(?:\([^)]*\)|[A-Za-z_]\w*)\s*(?:=>|\{)`)
	functionDecl       = regexp.MustCompile(`function\s+([A-Z]\w*)\s*\(`)
)

// ComponentName guesses the React component name from source text, falling
// back to the file name stem and finally a generic label.
func ComponentName(source, fileName string) string {
	if name := nameFromSource(source); name != "" {
		return name
	}
	if name := nameFromFileName(fileName); name != "" {
		return name
	}
	return fallbackName
}

func nameFromSource(source string) string {
	if m := defaultExportFunc.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	for _, line := range strings.Split(source, "\n") {
		if m := defaultExportIdent.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return m[1]
		}
	}
	if m := capitalizedArrow.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	if m := functionDecl.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	return ""
}

func nameFromFileName(fileName string) string {
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	stem = strings.TrimSpace(stem)
	if stem == "" || stem == "." {
		return ""
	}
	// Only trust file names that look like component files.
	if stem[0] >= 'A' && stem[0] <= 'Z' {
		return stem
	}
	return ""
}
