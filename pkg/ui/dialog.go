package ui

import "sync"

// ConfirmDialog gates destructive actions behind an explicit confirmation.
// It is constructed once and shared; showing it while one is already open
// replaces the pending callback instead of stacking dialogs. Confirming
// fires the callback exactly once; canceling or dismissing fires nothing.
type ConfirmDialog struct {
	mu        sync.Mutex
	open      bool
	prompt    string
	onConfirm func()
}

func NewConfirmDialog() *ConfirmDialog {
	return &ConfirmDialog{}
}

// Show opens the dialog with the given prompt and pending callback. Any
// previously pending callback is discarded.
func (d *ConfirmDialog) Show(prompt string, onConfirm func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	d.prompt = prompt
	d.onConfirm = onConfirm
}

// Confirm closes the dialog and fires the pending callback. Returns false
// if no dialog was open.
func (d *ConfirmDialog) Confirm() bool {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return false
	}
	fn := d.onConfirm
	d.open = false
	d.prompt = ""
	d.onConfirm = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// Cancel closes the dialog without firing the callback. Dismissing (e.g.
// clicking outside) goes through the same path. Returns false if no dialog
// was open.
func (d *ConfirmDialog) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return false
	}
	d.open = false
	d.prompt = ""
	d.onConfirm = nil
	return true
}

// State reports whether the dialog is open and with which prompt.
func (d *ConfirmDialog) State() (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open, d.prompt
}
