package realtime

import (
	"github.com/d60-Lab/skycial/internal/model"
	"github.com/d60-Lab/skycial/internal/visibility"
)

// ForViewer decides what a subscriber may receive. Visible rows pass through
// unchanged and invisible inserts are dropped. An update to a row the viewer
// can no longer see goes out stripped to its id, author and scope so a client
// holding an older copy can remove it.
func ForViewer(viewer *model.Viewer, ev ChangeEvent) (ChangeEvent, bool) {
	if visibility.CanSee(viewer, ev.New.UserID, ev.New.Privacy) {
		return ev, true
	}
	if ev.Event != EventUpdate {
		return ChangeEvent{}, false
	}
	return ChangeEvent{
		Event: ev.Event,
		Table: ev.Table,
		New: model.PostRow{
			ID:        ev.New.ID,
			UserID:    ev.New.UserID,
			Privacy:   ev.New.Privacy,
			Tags:      []string{},
			UpdatedBy: ev.New.UpdatedBy,
			CreatedAt: ev.New.CreatedAt,
		},
	}, true
}
