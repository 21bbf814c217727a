//go:build !darwin

package platform

// IsAppActive always returns true where focus cannot be queried
func IsAppActive() bool {
	return true
}

// ActivateApp is a no-op where the app cannot raise itself; the dismissal
// window is re-shown instead
func ActivateApp() {}

// HideFromDock is a no-op outside macOS
func HideFromDock() {}

// SetKiosk is a no-op outside macOS; the full-screen window is all there is
func SetKiosk(on bool) {}
