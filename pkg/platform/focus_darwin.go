//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework AppKit
#import <Cocoa/Cocoa.h>
#import <AppKit/AppKit.h>

static int appIsActive(void) {
    return [NSApp isActive] ? 1 : 0;
}

static void bringToFront(void) {
    [NSApp activateIgnoringOtherApps:YES];
}

static void useAccessoryPolicy(void) {
    [NSApp setActivationPolicy:NSApplicationActivationPolicyAccessory];
}

static void setKiosk(int on) {
    NSApplicationPresentationOptions opts = NSApplicationPresentationDefault;
    if (on) {
        opts = NSApplicationPresentationHideDock |
            NSApplicationPresentationHideMenuBar |
            NSApplicationPresentationDisableProcessSwitching |
            NSApplicationPresentationDisableForceQuit;
    }
    @try {
        [NSApp setPresentationOptions:opts];
    } @catch (NSException *e) {
    }
}
*/
import "C"

// IsAppActive reports whether the application owns keyboard focus
func IsAppActive() bool {
	return C.appIsActive() == 1
}

// ActivateApp brings the application in front of every other app
func ActivateApp() {
	C.bringToFront()
}

// HideFromDock runs the app as a menu-bar accessory without a Dock icon
func HideFromDock() {
	C.useAccessoryPolicy()
}

// SetKiosk hides the Dock and menu bar and disables app switching and the
// Force Quit panel while on is true. It must be called on the main thread.
func SetKiosk(on bool) {
	var flag C.int
	if on {
		flag = 1
	}
	C.setKiosk(flag)
}
