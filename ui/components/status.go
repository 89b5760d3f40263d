package components

import (
	"github.com/Rorical/farmchat/internal/models"
	"github.com/Rorical/farmchat/ui/styles"
)

func RenderStatus(status string, language models.Language, busy bool, spinner string, width int) string {
	content := status
	if busy {
		content = spinner + " " + content
	}
	if language.Name != "" {
		content += "  [" + language.Name + "]"
	}
	return styles.StatusStyle(width).Render(content)
}
