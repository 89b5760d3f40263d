package components

import (
	"strings"

	"github.com/Rorical/farmchat/internal/models"
	"github.com/Rorical/farmchat/ui/styles"
)

// RenderMessages renders the conversation log. Assistant answers are
// treated as markdown.
func RenderMessages(turns []models.Turn, md *MarkdownRenderer) string {
	var b strings.Builder

	userStyle := styles.UserStyle()
	assistantStyle := styles.AssistantStyle()

	for _, turn := range turns {
		switch turn.Role {
		case models.User:
			b.WriteString(userStyle.Render("You: "+turn.Content) + "\n\n")
		case models.Assistant:
			b.WriteString(assistantStyle.Render(md.Render(turn.Content)) + "\n\n")
		}
	}

	return b.String()
}
