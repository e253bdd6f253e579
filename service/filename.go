package service

import (
	"recipe-server/core"
	"strings"
	"unicode"
)

// documentFilename builds an ASCII-only "<name>.pdf" safe for a Content-Disposition header.
func documentFilename(r core.Recipe) string {
	name := baseName(r)

	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b.WriteRune(c)
		case c == ' ':
			b.WriteByte('_')
		}
	}

	safe := strings.Trim(b.String(), "._")
	if safe == "" {
		safe = "recipe-" + strings.ToLower(r.ID)
	}
	return safe + ".pdf"
}

// documentDisplayName keeps every printable rune of the recipe name except path separators and
// quotes. It is empty when nothing printable is left.
func documentDisplayName(r core.Recipe) string {
	name := strings.Map(func(c rune) rune {
		switch {
		case c == '/', c == '\\', c == '"':
			return '_'
		case !unicode.IsPrint(c):
			return -1
		}
		return c
	}, baseName(r))

	name = strings.TrimSpace(name)
	if strings.Trim(name, "._") == "" {
		return ""
	}
	return name + ".pdf"
}

func baseName(r core.Recipe) string {
	name := strings.TrimSpace(r.Name)
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}
	return name
}
