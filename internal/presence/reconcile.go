package presence

import (
	"sort"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/domain"
)

// View is the merged online/offline presence state for one session.
type View struct {
	Viewers     []domain.ViewerPresence
	OnlineCount int
}

// Reconcile merges the last authoritative full pull with incremental
// change-feed events into one presence view. The feed is advisory: an
// event only overrides a pulled row when it is strictly newer, and a row
// the pull never reported is admitted provisionally until the next pull
// confirms or removes it.
func Reconcile(lastFullPull []domain.ViewerPresence, incrementalEvents []domain.PresenceEvent) View {
	byUser := make(map[string]domain.ViewerPresence, len(lastFullPull))
	for _, v := range lastFullPull {
		byUser[v.UserID] = v
	}

	for _, ev := range incrementalEvents {
		cur, ok := byUser[ev.UserID]
		if ok {
			if !ev.LastSeenAt.After(cur.LastSeenAt) {
				continue // pull is as fresh or fresher, it wins
			}
			cur.IsOnline = ev.IsOnline
			cur.LastSeenAt = ev.LastSeenAt
			if ev.DisplayName != "" {
				cur.DisplayName = ev.DisplayName
			}
			byUser[ev.UserID] = cur
			continue
		}

		byUser[ev.UserID] = domain.ViewerPresence{
			UserID:      ev.UserID,
			DisplayName: ev.DisplayName,
			IsOnline:    ev.IsOnline,
			JoinedAt:    ev.LastSeenAt,
			LastSeenAt:  ev.LastSeenAt,
		}
	}

	view := View{Viewers: make([]domain.ViewerPresence, 0, len(byUser))}
	for _, v := range byUser {
		view.Viewers = append(view.Viewers, v)
		if v.IsOnline {
			view.OnlineCount++
		}
	}

	sort.Slice(view.Viewers, func(i, j int) bool {
		a, b := view.Viewers[i], view.Viewers[j]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})

	return view
}
