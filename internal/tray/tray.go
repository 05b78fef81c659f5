// Package tray provides a system tray menu for the curl counter.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onReset     func()
	onDashboard func()
	onQuit      func()
	enabled     bool
	countsTitle string
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuCounts *systray.MenuItem
}

// New creates a new Tray instance with counting enabled.
func New() *Tray {
	return &Tray{
		enabled:     true,
		countsTitle: CountsTitle(0, 0),
	}
}

// CountsTitle formats the counts menu line.
func CountsTitle(left, right uint) string {
	return fmt.Sprintf("Left: %d | Right: %d", left, right)
}

// OnToggle sets the callback invoked when counting is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnReset sets the callback invoked when the counters are reset.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnDashboard sets the callback invoked when the dashboard item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback invoked when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Curls")
	systray.SetTooltip("Curl Counter")

	t.mu.Lock()
	t.menuCounts = systray.AddMenuItem(t.countsTitle, "Reps counted this session")
	t.menuCounts.Disable()
	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume counting")
	t.mu.Unlock()

	menuReset := systray.AddMenuItem("Reset counters", "Start a new session")
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit the curl counter")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuReset.ClickedCh:
				t.handleReset()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "Pause"
	}
	return "Resume"
}

// handleToggle flips the enabled state and notifies the callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleReset() {
	t.mu.RLock()
	callback := t.onReset
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetCounts updates the counts line in the menu.
func (t *Tray) SetCounts(left, right uint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.countsTitle = CountsTitle(left, right)
	if t.menuCounts != nil {
		t.menuCounts.SetTitle(t.countsTitle)
	}
}

// Counts returns the current counts line.
func (t *Tray) Counts() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.countsTitle
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
