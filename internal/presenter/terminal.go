package presenter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#7D56F4")
	colorError   = lipgloss.Color("#FF5F87")
	colorMuted   = lipgloss.Color("#888888")
	colorMark    = lipgloss.Color("#FFD75F")

	titleStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	markStyle  = lipgloss.NewStyle().Foreground(colorMark).Bold(true).Underline(true)
	boxStyle   = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)
)

// RenderTerminal draws a View for a terminal of the given width. A width of
// zero or less disables wrapping.
func RenderTerminal(v View, width int) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Visual Search Assistant"))
	b.WriteString("\n\n")

	if v.HasImage {
		b.WriteString(labelStyle.Render("Image: "))
		b.WriteString(v.ImageName)
		if v.ImageSummary != "" {
			b.WriteString(labelStyle.Render(" (" + v.ImageSummary + ")"))
		}
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render("Speaker: "))
	b.WriteString(selectedLabel(v.SpeakerChoices))
	b.WriteString(labelStyle.Render("  Detail: "))
	b.WriteString(selectedLabel(v.DetailChoices))
	b.WriteString("\n")

	if v.Submitting {
		b.WriteString(labelStyle.Render(v.SubmitLabel))
		b.WriteString("\n")
	}
	if v.Error != "" {
		b.WriteString(errorStyle.Render(v.Error))
		b.WriteString("\n")
	}

	if v.HasResult {
		var desc strings.Builder
		for _, seg := range v.Description {
			if seg.Highlight {
				desc.WriteString(markStyle.Render(seg.Text))
			} else {
				desc.WriteString(seg.Text)
			}
		}

		box := boxStyle
		if width > 4 {
			box = box.Width(width - 2)
		}
		b.WriteString("\n")
		b.WriteString(box.Render(desc.String()))
		b.WriteString("\n")
		if len(v.Keywords) > 0 {
			b.WriteString(labelStyle.Render("Keywords: "))
			b.WriteString(strings.Join(v.Keywords, ", "))
			b.WriteString("\n")
		}
		b.WriteString(labelStyle.Render("Audio: "))
		b.WriteString(v.AudioURL)
		b.WriteString("\n")
	}

	return b.String()
}

func selectedLabel(choices []Choice) string {
	for _, c := range choices {
		if c.Selected {
			return c.Label
		}
	}
	return "-"
}
