//go:build darwin

package platform

import "golang.design/x/hotkey"

// QuitModifiers are the modifiers of the system quit shortcut (Cmd+Q)
func QuitModifiers() []hotkey.Modifier {
	return []hotkey.Modifier{hotkey.ModCmd}
}
