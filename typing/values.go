package typing

import (
	"github.com/otl-lang/otl/script"
)

// Markdown is formatted text written with the md tag.
type Markdown struct {
	Source string
}

// Prefix is the template prepended to the title of new notes.
type Prefix struct {
	Template string
}

// Display holds presentation metadata of a type.
type Display struct {
	Title       string
	Description string
	Category    string
}

func (d *Display) inherit(parent Display) {
	if d.Title == "" {
		d.Title = parent.Title
	}

	if d.Description == "" {
		d.Description = parent.Description
	}

	if d.Category == "" {
		d.Category = parent.Category
	}
}

// ShowPrefix controls when the prefix is shown in links.
type ShowPrefix string

// ShowPrefix values.
const (
	ShowPrefixAlways ShowPrefix = "always"
	ShowPrefixSmart  ShowPrefix = "smart"
	ShowPrefixNever  ShowPrefix = "never"
)

// HideInlineFields controls which inline fields are hidden in notes.
type HideInlineFields string

// HideInlineFields values.
const (
	HideInlineFieldsAll     HideInlineFields = "all"
	HideInlineFieldsNone    HideInlineFields = "none"
	HideInlineFieldsDefined HideInlineFields = "defined"
)

// Template is note chrome produced either by a script or by markdown.
type Template struct {
	Script   *script.Script
	Markdown *Markdown
}

// Style customizes how notes of a type are rendered.
type Style struct {
	Link             *script.Script
	Header           *Template
	Footer           *Template
	CSS              string
	CSSClasses       []string
	ShowPrefix       ShowPrefix
	HideInlineFields HideInlineFields
}

// EffectiveShowPrefix returns ShowPrefix, defaulting to smart.
func (s Style) EffectiveShowPrefix() ShowPrefix {
	if s.ShowPrefix == "" {
		return ShowPrefixSmart
	}

	return s.ShowPrefix
}

func (s *Style) inherit(parent Style) {
	if s.Link == nil {
		s.Link = parent.Link
	}

	if s.Header == nil {
		s.Header = parent.Header
	}

	if s.Footer == nil {
		s.Footer = parent.Footer
	}

	if s.CSS == "" {
		s.CSS = parent.CSS
	}

	if s.CSSClasses == nil {
		s.CSSClasses = parent.CSSClasses
	}

	if s.ShowPrefix == "" {
		s.ShowPrefix = parent.ShowPrefix
	}

	if s.HideInlineFields == "" {
		s.HideInlineFields = parent.HideInlineFields
	}
}

// Action is a command offered on notes of a type.
type Action struct {
	ID       string
	Name     string
	Icon     string
	Script   *script.Script
	Shortcut string
	Pinned   bool
}

// Run invokes the action script with the given note context.
func (a *Action) Run(env map[string]any) (any, error) {
	return a.Script.Call(env)
}

// Method is a named script callable on notes of a type.
type Method struct {
	Name     string
	Function *script.Script
}

// Call invokes the method.
func (m *Method) Call(env map[string]any) (any, error) {
	return m.Function.Call(env)
}

// Hook names.
const (
	HookCreate           = "create"
	HookOnCreate         = "on_create"
	HookOnRename         = "on_rename"
	HookOnOpen           = "on_open"
	HookOnClose          = "on_close"
	HookOnMetadataChange = "on_metadata_change"
	HookOnValidate       = "on_validate"
)

// HookNames lists the hooks a type may declare, in completion order.
var HookNames = []string{
	HookCreate, HookOnCreate, HookOnRename, HookOnOpen, HookOnClose, HookOnMetadataChange, HookOnValidate,
}

// Hook is a lifecycle script.
type Hook struct {
	Func *script.Script
}

// Run invokes the hook script.
func (h *Hook) Run(env map[string]any) (any, error) {
	return h.Func.Call(env)
}

// Hooks maps hook names to hooks.
type Hooks map[string]*Hook

// Has reports whether the hook is declared.
func (h Hooks) Has(name string) bool {
	return h[name] != nil
}

// Run invokes the named hook. A missing hook is a no-op.
func (h Hooks) Run(name string, env map[string]any) (any, error) {
	hook := h[name]
	if hook == nil {
		return nil, nil
	}

	return hook.Run(env)
}
