//go:build !darwin

package platform

import "golang.design/x/hotkey"

// QuitModifiers are the modifiers of the usual quit shortcut (Ctrl+Q)
func QuitModifiers() []hotkey.Modifier {
	return []hotkey.Modifier{hotkey.ModCtrl}
}
