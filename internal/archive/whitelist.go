// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"strings"

	"github.com/pdiddy/case-intake/pkg/types"
)

// Whitelist is the set of file extensions eligible for extraction.
// Extensions include the leading dot.
type Whitelist struct {
	exts map[string]struct{}
	fold bool
}

// ParseWhitelist splits a comma-separated extension list such as
// ".pdf,.docx". Surrounding whitespace and empty items are dropped. With
// MatchFold, comparison ignores case.
func ParseWhitelist(csv string, match types.ExtensionMatch) Whitelist {
	wl := Whitelist{exts: make(map[string]struct{}), fold: match == types.MatchFold}
	for _, item := range strings.Split(csv, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		wl.exts[wl.key(item)] = struct{}{}
	}
	return wl
}

// Allows reports whether ext is whitelisted. The empty extension is never
// allowed.
func (w Whitelist) Allows(ext string) bool {
	if ext == "" {
		return false
	}
	_, ok := w.exts[w.key(ext)]
	return ok
}

// Len returns the number of distinct extensions.
func (w Whitelist) Len() int { return len(w.exts) }

func (w Whitelist) key(ext string) string {
	if w.fold {
		return strings.ToLower(ext)
	}
	return ext
}
