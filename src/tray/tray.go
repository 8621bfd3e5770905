// Package tray installs the resident instance's system tray menu.
package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"floating-dictionary/src/logutil"
)

// Title names the app in the tray and on its windows.
const Title = "Floating Dictionary"

// Menu builds the tray menu. The hotkey is shown in a disabled first item.
func Menu(hotkey string, onCapture, onQuit func()) *fyne.Menu {
	hint := fyne.NewMenuItem(fmt.Sprintf("Press %s to capture", hotkey), nil)
	hint.Disabled = true

	capture := fyne.NewMenuItem("Capture", onCapture)

	// IsQuit stops fyne from appending its own Quit item.
	quit := fyne.NewMenuItem("Quit", onQuit)
	quit.IsQuit = true

	return fyne.NewMenu(Title, hint, fyne.NewMenuItemSeparator(), capture, quit)
}

// Install sets the menu and icon on a. It reports false when the driver has
// no system tray, in which case only the hotkey can trigger a capture.
func Install(a fyne.App, menu *fyne.Menu) bool {
	logger := logutil.Component("tray")
	d, ok := a.(desktop.App)
	if !ok {
		logger.Warn().Msg("system tray not supported by driver")
		return false
	}
	d.SetSystemTrayMenu(menu)
	d.SetSystemTrayIcon(Icon)
	logger.Info().Msg("tray installed")
	return true
}
