package frontdesk

import "frontdesk-service/internal/models"

// Column maps one board column to the status it renders
type Column struct {
	Key    string             `json:"key"`
	Title  string             `json:"title"`
	Status models.GroupStatus `json:"status"`
}

// Shortcut describes one keyboard binding the UI layer honors. Shortcuts
// are suppressed by the UI while a text input has focus; that gating
// lives on the UI side of this contract.
type Shortcut struct {
	Key         string `json:"key"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// DragPayload describes the drag-and-drop transfer contract: the dragged
// card carries a serialized appointment group, consumed by the drop
// target to request a transition or merge into checkout.
type DragPayload struct {
	ContentType string   `json:"content_type"`
	Fields      []string `json:"fields"`
}

// BoardContract is the full UI-facing contract: the fixed column set,
// the shortcut table, the drag payload shape and the tip preset menu.
type BoardContract struct {
	Columns     []Column    `json:"columns"`
	Shortcuts   []Shortcut  `json:"shortcuts"`
	DragPayload DragPayload `json:"drag_payload"`
	TipPresets  []int       `json:"tip_presets"`
}

// Columns returns the board's 7 fixed columns in display order
func Columns() []Column {
	return []Column{
		{Key: "scheduled", Title: "Scheduled", Status: models.StatusScheduled},
		{Key: "confirmed", Title: "Confirmed", Status: models.StatusConfirmed},
		{Key: "walk_in", Title: "Walk-ins", Status: models.StatusWalkIn},
		{Key: "arrived", Title: "Arrived", Status: models.StatusArrived},
		{Key: "in_service", Title: "In Service", Status: models.StatusInService},
		{Key: "ready_to_pay", Title: "Ready to Pay", Status: models.StatusReadyToPay},
		{Key: "completed", Title: "Completed", Status: models.StatusCompleted},
	}
}

// Shortcuts returns the keyboard shortcut table
func Shortcuts() []Shortcut {
	return []Shortcut{
		{Key: "A", Action: "move_to_arrived", Description: "Move selected card to Arrived"},
		{Key: "C", Action: "open_checkout", Description: "Open checkout for the selected Ready to Pay card"},
		{Key: "ESC", Action: "close_overlay", Description: "Close the active overlay"},
		{Key: "?", Action: "toggle_help", Description: "Toggle the shortcut help panel"},
	}
}

// Contract assembles the board contract for this deployment
func (o *Orchestrator) Contract() BoardContract {
	return BoardContract{
		Columns:   Columns(),
		Shortcuts: Shortcuts(),
		DragPayload: DragPayload{
			ContentType: "application/json",
			Fields: []string{
				"id", "client_id", "client_name", "status",
				"service_names", "total_price", "total_duration_minutes", "start_time",
			},
		},
		TipPresets: o.tipPresets,
	}
}
