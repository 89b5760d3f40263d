package components

import (
	"fmt"
	"strings"

	"github.com/Rorical/farmchat/internal/models"
	"github.com/Rorical/farmchat/ui/styles"
)

// RenderSuggestions renders the suggestion list with the selected entry
// highlighted and the spinner next to the entry being translated.
func RenderSuggestions(snap models.Snapshot, selected int, spinner string) string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle().Render("Suggested questions") + "\n")
	if len(snap.Suggestions) == 0 {
		b.WriteString(styles.HintStyle().Render("No suggestions yet") + "\n")
	}

	for _, sug := range snap.Suggestions {
		marker := "  "
		style := styles.SuggestionStyle()
		if sug.Pending {
			style = styles.PendingStyle()
		}
		if sug.Index == selected {
			marker = "> "
			style = styles.SelectedSuggestionStyle()
		}

		line := fmt.Sprintf("%s%d. %s", marker, sug.Index+1, sug.Label())
		if snap.Translating && sug.Index == snap.TranslatingIndex {
			line += " " + spinner
		}
		b.WriteString(style.Render(line) + "\n")
	}

	if hints := actionHints(snap); hints != "" {
		b.WriteString(styles.HintStyle().Render(hints) + "\n")
	}
	return b.String()
}

func actionHints(snap models.Snapshot) string {
	var hints []string
	if len(snap.Suggestions) > 0 {
		hints = append(hints, "enter ask", "ctrl+o more")
	}
	if snap.HasHistory {
		hints = append(hints, "ctrl+b back")
	}
	if len(snap.Languages) > 1 {
		hints = append(hints, "ctrl+l language")
	}
	return strings.Join(hints, " | ")
}
