package ident

import (
	"strings"
	"unicode"
)

// Tag is a parsed `trail` struct tag.
type Tag struct {
	Name  string
	Extra bool
}

// ParseTag splits a `trail:"name,opt"` tag value into its name and options.
// Unknown options are ignored.
func ParseTag(tag string) Tag {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Tag{}
	}
	name, rest, _ := strings.Cut(tag, ",")
	out := Tag{Name: strings.TrimSpace(name)}
	for _, opt := range strings.Split(rest, ",") {
		if strings.TrimSpace(opt) == "extra" {
			out.Extra = true
		}
	}
	return out
}

// Snake converts a Go identifier to snake_case, keeping acronyms together.
func Snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BaseTypeName strips type arguments and any package qualifier from a type name
// as reported by reflect (e.g. "pkg.Box[int]" -> "Box").
func BaseTypeName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
