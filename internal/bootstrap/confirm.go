package bootstrap

import (
	"fmt"
	"path/filepath"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// dialogConfirmer answers pipeline confirmation prompts through native
// question dialogs. Without a runtime context every prompt answers no, so a
// headless run can never overwrite anything.
type dialogConfirmer struct {
	app *App
}

func (c *dialogConfirmer) ConfirmOverwrite(path string) bool {
	return c.ask(
		"File already exists",
		fmt.Sprintf("%s already exists.\n\nOverwrite it?", filepath.Base(path)),
	)
}

func (c *dialogConfirmer) ConfirmFirstFrame(framePath, folder string) bool {
	return c.ask(
		"Confirm image sequence",
		fmt.Sprintf("First frame:\n%s\n\nFolder:\n%s\n\nStart the conversion from this frame?", framePath, folder),
	)
}

func (c *dialogConfirmer) ConfirmCombineStems() bool {
	return c.ask(
		"Discrete audio stems found",
		"The selected file is part of a complete 5.1 stem set.\n\nCombine all six stems into one file?",
	)
}

// ask shows a yes/no question dialog and maps the answer to a bool.
func (c *dialogConfirmer) ask(title, message string) bool {
	ctx, err := c.app.runtimeContext()
	if err != nil {
		return false
	}

	choice, err := wailsruntime.MessageDialog(ctx, wailsruntime.MessageDialogOptions{
		Type:          wailsruntime.QuestionDialog,
		Title:         title,
		Message:       message,
		Buttons:       []string{"Yes", "No"},
		DefaultButton: "No",
	})
	if err != nil {
		return false
	}
	return choice == "Yes"
}
