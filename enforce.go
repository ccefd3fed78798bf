package main

import (
	"fmt"
	"strings"
	"time"
)

// ==================== ENFORCEMENT EXECUTOR ====================

// execute performs one decision against the gateway. Steps run
// sequentially and each failure is logged and swallowed: a failed
// delete must not stop the kick, a failed kick must not stop the
// notice. Ordering is load-bearing -- delete always precedes any
// notice, kick follows delete, and a ban is persisted before the
// group-removal attempt.
func (m *Moderation) execute(d Decision, v Verdict, nm *NormalizedMessage) {
	if d.Action == ActionNone {
		return
	}

	if d.DeleteFirst {
		if err := m.gw.DeleteMessage(nm.ChatID, nm.SenderID, nm.ID); err != nil {
			m.log.Warnf("delete failed in %s: %v", nm.ChatID, err)
		}
	}

	switch d.Action {
	case ActionDelete:
		m.notice(nm, deletedCard(v.Feature, nm.SenderID))

	case ActionNotify:
		m.notice(nm, warnCard(v.Feature, nm.SenderID, d.WarnCount, m.warnLimit))

	case ActionKick:
		if err := m.gw.RemoveParticipant(nm.ChatID, nm.SenderID); err != nil {
			m.log.Warnf("kick failed for %s in %s: %v", nm.SenderID, nm.ChatID, err)
		}
		m.notice(nm, kickCard(v.Feature, nm.SenderID, d.ResetWarnings, m.warnLimit))

	case ActionBan:
		// Ban record first: it must survive a failed removal (the bot
		// may not be a group admin).
		if err := m.bans.Add(nm.SenderID, v.Reason); err != nil {
			m.log.Warnf("ban persist failed for %s: %v", nm.SenderID, err)
		}
		if nm.IsGroup {
			if err := m.gw.RemoveParticipant(nm.ChatID, nm.SenderID); err != nil {
				m.log.Warnf("ban removal failed for %s in %s: %v", nm.SenderID, nm.ChatID, err)
			}
		}
		m.notice(nm, banCard(v.Feature, nm.SenderID))

	case ActionMute:
		m.muteUser(nm.SenderID)
		m.notice(nm, muteCard(v.Feature, nm.SenderID))
	}

	evt := ModerationEvent{
		Feature:   v.Feature,
		ChatID:    nm.ChatID,
		UserID:    nm.SenderID,
		Action:    d.Action,
		Reason:    v.Reason,
		Timestamp: time.Now(),
	}
	m.audit.Record(evt)
	m.broadcast(evt)
}

// notice sends the room card after the delete step. Failures stay
// silent to the room.
func (m *Moderation) notice(nm *NormalizedMessage, text string) {
	if err := m.gw.SendText(nm.ChatID, text, []string{nm.SenderID}); err != nil {
		m.log.Warnf("notice failed in %s: %v", nm.ChatID, err)
	}
}

func mentionUser(jid string) string {
	return "@" + getCleanID(jid)
}

func deletedCard(feature, jid string) string {
	return fmt.Sprintf(`╔═══════════════════╗
║ 🚫 MESSAGE DELETED
╠═══════════════════╣
║ 👤 User: %s
║ 🛡️ Feature: %s
╚═══════════════════╝`, mentionUser(jid), strings.ToUpper(feature))
}

func warnCard(feature, jid string, count, limit int) string {
	return fmt.Sprintf(`╔═══════════════════╗
║ ⚠️ WARNING ISSUED
╠═══════════════════╣
║ 👤 User: %s
║ 🛡️ Feature: %s
║ 📊 Warning: %d/%d
║ 🚨 %d warnings = Kick
╚═══════════════════╝`, mentionUser(jid), strings.ToUpper(feature), count, limit, limit)
}

func kickCard(feature, jid string, byWarnings bool, limit int) string {
	if byWarnings {
		return fmt.Sprintf(`╔═══════════════════╗
║ 👢 USER KICKED (%d WARNS)
╠═══════════════════╣
║ 👤 User: %s
║ 🛡️ Feature: %s
║ 🔄 Warnings reset
╚═══════════════════╝`, limit, mentionUser(jid), strings.ToUpper(feature))
	}
	return fmt.Sprintf(`╔═══════════════════╗
║ 👢 USER KICKED
╠═══════════════════╣
║ 👤 User: %s
║ 🛡️ Feature: %s
╚═══════════════════╝`, mentionUser(jid), strings.ToUpper(feature))
}

func banCard(feature, jid string) string {
	return fmt.Sprintf(`╔═══════════════════╗
║ 🔨 USER BANNED
╠═══════════════════╣
║ 👤 User: %s
║ 🛡️ Feature: %s
║ 🌐 Scope: all groups
╚═══════════════════╝`, mentionUser(jid), strings.ToUpper(feature))
}

func muteCard(feature, jid string) string {
	return fmt.Sprintf(`╔═══════════════════╗
║ 🔇 USER MUTED
╠═══════════════════╣
║ 👤 User: %s
║ 🛡️ Feature: %s
╚═══════════════════╝`, mentionUser(jid), strings.ToUpper(feature))
}
