// Package classify decides whether an element is eligible for keyboard navigation.
// All functions are pure and operate on a dom.Info read.
package classify

import (
	"strconv"
	"strings"

	"github.com/v0xg/navaz/internal/dom"
)

var nativeFocusable = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"textarea": true,
	"select":   true,
}

var typingTags = map[string]bool{
	"input":    true,
	"textarea": true,
	"select":   true,
}

var typingRoles = map[string]bool{
	"textbox":    true,
	"searchbox":  true,
	"combobox":   true,
	"spinbutton": true,
}

// NativelyFocusable reports whether the tag takes focus without a tabindex
func NativelyFocusable(tag string) bool {
	return nativeFocusable[strings.ToLower(tag)]
}

// Visible reports whether the element renders something the user can see
func Visible(info dom.Info) bool {
	if !info.HasLayoutBox {
		return false
	}
	if info.Rect.Width == 0 && info.Rect.Height == 0 {
		return false
	}
	if info.Style.Display == "none" || info.Style.Visibility == "hidden" {
		return false
	}
	if op := strings.TrimSpace(info.Style.Opacity); op != "" {
		if v, err := strconv.ParseFloat(op, 64); err == nil && v == 0 {
			return false
		}
	}
	return true
}

// Focusable reports whether the element may take programmatic focus as a navigation target
func Focusable(info dom.Info) bool {
	if info.Disabled {
		return false
	}
	if v, ok := info.Attr("tabindex"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n < 0 && !NativelyFocusable(info.Tag) {
			return false
		}
	}
	return true
}

// HasAccessibleContent reports whether the element exposes a name to assistive technology
func HasAccessibleContent(info dom.Info) bool {
	if strings.TrimSpace(info.Text) != "" {
		return true
	}
	if v, _ := info.Attr("aria-label"); strings.TrimSpace(v) != "" {
		return true
	}
	if _, ok := info.Attr("aria-labelledby"); ok {
		return true
	}
	if info.Tag == "img" {
		if v, _ := info.Attr("alt"); strings.TrimSpace(v) != "" {
			return true
		}
	}
	if v, _ := info.Attr("title"); strings.TrimSpace(v) != "" {
		return true
	}
	return false
}

// Typing reports whether keys pressed while info is focused belong to the
// element (form fields, editable regions, input-like ARIA roles).
func Typing(info dom.Info) bool {
	if typingTags[info.Tag] {
		return true
	}
	if info.ContentEditable {
		return true
	}
	role, _ := info.Attr("role")
	return typingRoles[role]
}
