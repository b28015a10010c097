package orders

import (
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/store"
)

// MaxBulkIDs caps how many orders one bulk request may touch.
const MaxBulkIDs = 100

type bulkAction int

const (
	actionConfirm bulkAction = iota
	actionShip
	actionDeliver
	actionCancel
	actionSetStatus
)

// BulkCommand is the closed set of administrative bulk transitions. Invalid
// actions and set_status values are rejected at parse time, so an applied
// command is always one of the five known variants.
type BulkCommand struct {
	action bulkAction
	status string // only for actionSetStatus
}

func ParseBulkCommand(action, value string) (BulkCommand, error) {
	switch action {
	case "confirm":
		return BulkCommand{action: actionConfirm}, nil
	case "ship":
		return BulkCommand{action: actionShip}, nil
	case "deliver":
		return BulkCommand{action: actionDeliver}, nil
	case "cancel":
		return BulkCommand{action: actionCancel}, nil
	case "set_status":
		switch value {
		case "pending", "processing", "shipped", "delivered", "cancelled":
			return BulkCommand{action: actionSetStatus, status: value}, nil
		}
		return BulkCommand{}, apperr.Newf(apperr.CodeInvalidArgument, "invalid status value %q", value)
	}
	return BulkCommand{}, apperr.Newf(apperr.CodeInvalidArgument, "invalid bulk action %q", action)
}

// patch translates the command into the flag update applied to every order.
// confirm/ship/deliver are cumulative; cancel raises only the cancelled
// flag; set_status resets everything and then applies what the status
// implies.
func (c BulkCommand) patch() store.FlagsPatch {
	switch c.action {
	case actionConfirm:
		return store.FlagsPatch{Confirm: true}
	case actionShip:
		return store.FlagsPatch{Confirm: true, Ship: true}
	case actionDeliver:
		return store.FlagsPatch{Confirm: true, Ship: true, Deliver: true}
	case actionCancel:
		return store.FlagsPatch{Cancel: true}
	case actionSetStatus:
		p := store.FlagsPatch{Reset: true}
		switch c.status {
		case "processing":
			p.Confirm = true
		case "shipped":
			p.Confirm, p.Ship = true, true
		case "delivered":
			p.Confirm, p.Ship, p.Deliver = true, true, true
		case "cancelled":
			p.Cancel = true
		}
		return p
	}
	return store.FlagsPatch{}
}
