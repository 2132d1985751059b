package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/lipgloss"
)

// Helper functions for style pointers
func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }

// GetMarkdownRenderer returns a glamour TermRenderer for command bodies
func GetMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithStyles(markdownStyleConfig(DefaultTheme())),
		glamour.WithWordWrap(width),
	)
}

// RenderMarkdown renders content, falling back to the raw text if glamour fails.
func RenderMarkdown(content string, width int) string {
	r, err := GetMarkdownRenderer(width)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}

func pick(c lipgloss.AdaptiveColor) *string {
	if lipgloss.HasDarkBackground() {
		return stringPtr(c.Dark)
	}
	return stringPtr(c.Light)
}

// markdownStyleConfig keeps glamour's layout compact: no document margin and
// no background, so rendered commands line up with the rest of the output.
func markdownStyleConfig(theme Theme) ansi.StyleConfig {
	text := pick(theme.Text)
	muted := pick(theme.Muted)
	heading := pick(theme.Primary)
	code := pick(theme.Warning)
	link := pick(theme.Info)

	headingLevel := func(prefix string) ansi.StyleBlock {
		return ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Prefix: prefix, Color: heading, Bold: boolPtr(true)}}
	}

	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: text},
			Margin:         uintPtr(0),
		},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: muted, Italic: boolPtr(true), Prefix: "┃ "},
			Indent:         uintPtr(1),
		},
		List: ansi.StyleList{
			StyleBlock: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: text}},
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{BlockSuffix: "\n", Color: heading, Bold: boolPtr(true)},
		},
		H1: headingLevel("# "),
		H2: headingLevel("## "),
		H3: headingLevel("### "),
		H4: headingLevel("#### "),
		H5: headingLevel("##### "),
		H6: headingLevel("###### "),
		Emph:   ansi.StylePrimitive{Italic: boolPtr(true)},
		Strong: ansi.StylePrimitive{Bold: boolPtr(true)},
		HorizontalRule: ansi.StylePrimitive{
			Color:  muted,
			Format: "\n────────────────────────────────────────\n",
		},
		Item:        ansi.StylePrimitive{BlockPrefix: "• "},
		Enumeration: ansi.StylePrimitive{BlockPrefix: ". "},
		Link:        ansi.StylePrimitive{Color: link, Underline: boolPtr(true)},
		LinkText:    ansi.StylePrimitive{Color: link, Bold: boolPtr(true)},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: code},
		},
		CodeBlock: ansi.StyleCodeBlock{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{Color: code},
				Margin:         uintPtr(0),
			},
		},
		Text:      ansi.StylePrimitive{Color: text},
		Paragraph: ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{Color: text}},
	}
}
