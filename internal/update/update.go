package update

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/farmchat/internal/models"
)

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
}
