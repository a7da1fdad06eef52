package session

import "sync"

// Mode is where the UI is in the select/edit/delete flow.
type Mode string

const (
	ModeIdle          Mode = "idle"
	ModeRowSelected   Mode = "rowSelected"
	ModeEditing       Mode = "editing"
	ModePendingDelete Mode = "pendingDelete"
)

// ViewState is the per-session selection state machine. At most one
// transaction is selected; selecting another row replaces the selection.
// Edit and delete always act on the selected row.
type ViewState struct {
	mu       sync.Mutex
	mode     Mode
	selected string
}

func NewViewState() *ViewState {
	return &ViewState{mode: ModeIdle}
}

// Mode returns the current mode.
func (v *ViewState) Current() (Mode, string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode, v.selected
}

// Select marks a row as selected. Selecting the already selected row in
// rowSelected mode deselects it. Any in-flight edit or delete is abandoned.
func (v *ViewState) Select(txID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.mode == ModeRowSelected && v.selected == txID {
		v.mode = ModeIdle
		v.selected = ""
		return
	}
	v.mode = ModeRowSelected
	v.selected = txID
}

// StartEdit moves to editing. Returns the selected id, or "" if nothing is
// selected.
func (v *ViewState) StartEdit() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.selected == "" {
		return ""
	}
	v.mode = ModeEditing
	return v.selected
}

// RequestDelete moves to the delete confirmation. Returns the selected id,
// or "" if nothing is selected.
func (v *ViewState) RequestDelete() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.selected == "" {
		return ""
	}
	v.mode = ModePendingDelete
	return v.selected
}

// ConfirmDelete resolves a pending delete and resets to idle. Returns the id
// to delete, or "" if no delete was pending.
func (v *ViewState) ConfirmDelete() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.mode != ModePendingDelete {
		return ""
	}
	id := v.selected
	v.mode = ModeIdle
	v.selected = ""
	return id
}

// FinishEdit leaves editing after a successful save and resets to idle.
func (v *ViewState) FinishEdit() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.mode == ModeEditing {
		v.mode = ModeIdle
		v.selected = ""
	}
}

// Cancel abandons an edit or pending delete and resets to idle with no
// selection, same as a successful save.
func (v *ViewState) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.mode {
	case ModeEditing, ModePendingDelete:
		v.mode = ModeIdle
		v.selected = ""
	}
}

// Reset clears everything, used on logout and on snapshot replacement when
// the selected row disappeared.
func (v *ViewState) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = ModeIdle
	v.selected = ""
}
