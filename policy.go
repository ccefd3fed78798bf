package main

// ==================== POLICY ENGINE ====================

// decide maps a verdict plus the feature's configured action to a
// concrete enforcement decision, consulting the warning ledger for
// escalation. Exemption checks happen upstream in the dispatcher.
//
// Warn escalation: the increment happens here, as part of issuing the
// decision, and the ledger is reset the moment the threshold kick is
// issued. The reset is not contingent on the gateway kick succeeding.
func decide(v Verdict, enabled bool, action string, warns *WarningLedger, chatID, userID string, warnLimit int) Decision {
	if !enabled || !v.Matched {
		return Decision{Action: ActionNone}
	}

	switch action {
	case ActionDelete:
		return Decision{Action: ActionDelete, DeleteFirst: true}

	case ActionKick:
		// Offending content disappears before the user does.
		return Decision{Action: ActionKick, DeleteFirst: true}

	case ActionWarn:
		count := warns.Bump(chatID, userID)
		if count >= warnLimit {
			warns.Reset(chatID, userID)
			return Decision{Action: ActionKick, DeleteFirst: true, ResetWarnings: true}
		}
		return Decision{Action: ActionNotify, DeleteFirst: true, WarnCount: count}

	case ActionBan:
		return Decision{Action: ActionBan, DeleteFirst: true}

	case ActionMute:
		return Decision{Action: ActionMute, DeleteFirst: true}
	}

	// Unknown configured action: fail open.
	return Decision{Action: ActionNone}
}
