package handlers

import (
	"errors"
	"slices"
	"strings"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/script"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
)

// SafeModeMessage is the warning attached to scripts while scripting is
// disabled.
const SafeModeMessage = "Safe mode: scripting is currently disabled. Until you enable it in the settings, this script will be ignored."

// Script tags. A tag may carry a mode suffix, e.g. fn.ts; bare modes
// (js, ts, ...) select function scripts.
var (
	FnScriptTags   = scriptTags(script.Modes, "fn", "function")
	ExprScriptTags = scriptTags(nil, "expr", "expression")
)

func scriptTags(bare []string, names ...string) []string {
	tags := slices.Clone(names)
	tags = append(tags, bare...)

	for _, mode := range script.Modes {
		for _, kind := range names {
			tags = append(tags, kind+"."+mode)
		}
	}

	return tags
}

// modeOf returns the script mode selected by tag, or "" for the default.
func modeOf(tag string) string {
	if slices.Contains(script.Modes, tag) {
		return tag
	}

	if _, mode, ok := strings.Cut(tag, "."); ok && slices.Contains(script.Modes, mode) {
		return mode
	}

	return ""
}

// TaggedValue is the content of a tagged string.
type TaggedValue struct {
	Tag  string
	Code string
}

// Tag evaluates the tag of a tagged string, e.g. "fn.ts".
var Tag = visitor.New(visitor.Args{
	Name:  "Tag",
	Rules: kinds(otl.KindTag),
	Run: func(c *visitor.Call) any {
		var b strings.Builder

		for _, n := range c.Node().Children {
			if n.Kind == otl.KindIdentifier || n.Kind == otl.KindDot {
				b.WriteString(c.Text(n))
			}
		}

		return b.String()
	},
})

// taggedValue evaluates the tag and the dedented code of the frame node.
func taggedValue(c *visitor.Call) TaggedValue {
	values := c.RunChildren("tag", "code")
	tag, _ := values["tag"].(string)
	code, _ := values["code"].(string)

	return TaggedValue{Tag: tag, Code: Dedent(code)}
}

// TaggedString is a `tag"..."` literal. With strict only the given tags are
// accepted; otherwise other tags are accepted and reported.
func TaggedString(tags []string, strict bool) *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:  "TaggedString",
		Rules: kinds(otl.KindTaggedString),
		Children: []visitor.Child{
			visitor.Named("tag", Tag),
			visitor.Named("code", String),
		},
		Accept: func(c *visitor.Call) bool {
			if !strict {
				return true
			}

			tag := c.Node().Child(otl.KindTag)

			return tag != nil && slices.Contains(tags, c.Text(tag))
		},
		Lint: func(c *visitor.Call) {
			tag := c.Node().Child(otl.KindTag)
			if tag == nil {
				return
			}

			if !slices.Contains(tags, c.Text(tag)) {
				c.Error("Invalid tag: "+c.Text(tag)+", allowed tags: "+strings.Join(tags, ","), tag)
			}
		},
		Run: func(c *visitor.Call) any {
			return taggedValue(c)
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			return taggedSnippets(tags, "\n\t${}\n", "string")
		},
	})
}

func taggedSnippets(tags []string, content, info string) []visitor.Completion {
	out := make([]visitor.Completion, 0, len(tags))
	for _, tag := range tags {
		out = append(out, visitor.Completion{
			Label:   tag + `"""` + strings.ReplaceAll(content, "${}", "...") + `"""`,
			Apply:   tag + `"""` + content + `"""`,
			Snippet: true,
			Info:    info,
			Detail:  "tagged string",
			Kind:    visitor.CompletionValue,
		})
	}

	return out
}

// scriptString compiles the tagged code as a script of the given kind.
func scriptString(kind script.Kind, tags []string, content, info string) *visitor.Handler {
	return TaggedString(tags, true).Override(visitor.Args{
		Name: kind.String() + "Script",
		Lint: func(c *visitor.Call) {
			tag := c.Node().Child(otl.KindTag)

			if EnvOf(c).SafeMode {
				c.Warning(SafeModeMessage, tag)

				return
			}

			v := taggedValue(c)
			if _, err := script.Compile(v.Code, kind, modeOf(v.Tag)); err != nil {
				c.Error(scriptMessage(err), tag)
			}
		},
		Run: func(c *visitor.Call) any {
			if EnvOf(c).SafeMode {
				return nil
			}

			v := taggedValue(c)

			s, err := script.Compile(v.Code, kind, modeOf(v.Tag))
			if err != nil {
				return nil
			}

			return s
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			return taggedSnippets(tags, content, info)
		},
	})
}

func scriptMessage(err error) string {
	var ce *script.CompileError

	switch {
	case errors.As(err, &ce):
		return ce.Error()
	case errors.Is(err, script.ErrEmptyScript):
		return "Empty script"
	default:
		return err.Error()
	}
}

// FnScriptString is a function script, e.g. fn"""return a + b""". It
// evaluates to a *script.Script, or nil in safe mode.
func FnScriptString() *visitor.Handler {
	return scriptString(script.KindFn, FnScriptTags, "\n\t${}\n", "Function script")
}

// ExprScriptString is an expression script, e.g. expr"a + b". The
// snippet inserts content inside the quotes.
func ExprScriptString(content string) *visitor.Handler {
	if content == "" {
		content = "\n\t${}\n"
	}

	return scriptString(script.KindExpr, ExprScriptTags, content, "Expression script")
}

// MarkdownString is md"..." text evaluating to a *typing.Markdown.
func MarkdownString() *visitor.Handler {
	tags := []string{"md", "markdown"}

	return TaggedString(tags, true).Override(visitor.Args{
		Name: "MarkdownString",
		Run: func(c *visitor.Call) any {
			return &typing.Markdown{Source: taggedValue(c).Code}
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			return taggedSnippets(tags, "${}", "Markdown string")
		},
	})
}

// CSSString is css"..." text evaluating to the stylesheet source.
func CSSString() *visitor.Handler {
	tags := []string{"css"}

	return TaggedString(tags, true).Override(visitor.Args{
		Name: "CSSString",
		Run: func(c *visitor.Call) any {
			return taggedValue(c).Code
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			return taggedSnippets(tags, "${}", "CSS string")
		},
	})
}

// Dedent removes the indentation common to every non-blank line, a blank
// first line and trailing blank space, so triple-quoted blocks can be
// indented with the surrounding code.
func Dedent(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 && strings.TrimSpace(s[:i]) == "" {
		s = s[i+1:]
	}

	s = strings.TrimRight(s, " \t\r\n")

	lines := strings.Split(s, "\n")

	indent := -1

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}

	if indent <= 0 {
		return s
	}

	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}

	return strings.Join(lines, "\n")
}
