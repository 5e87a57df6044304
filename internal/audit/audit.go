package audit

import (
	"context"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
)

// Audit actions for the broadcast service.
const (
	ActionStartBroadcast = "broadcast.start"
	ActionStopBroadcast  = "broadcast.stop"
	ActionSetLiveState   = "broadcast.set_live_state"
	ActionBan            = "moderation.ban"
	ActionUnban          = "moderation.unban"
	ActionPushDispatch   = "notify.push_dispatch"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
