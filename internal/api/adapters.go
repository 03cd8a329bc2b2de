package api

import (
	"github.com/atotto/clipboard"
)

// systemClipboard bridges the copy-path commands to the OS clipboard.
// Headless hosts have no clipboard utility installed; WriteAll then
// returns an error and the command surfaces it as a notification.
type systemClipboard struct{}

func (systemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}
