package components

import (
	"github.com/Rorical/farmchat/ui/styles"
)

// RenderInput frames the text input view.
func RenderInput(view string, width int) string {
	return styles.InputStyle(width).Render(view)
}
