package main

import (
	"fmt"
	"strings"
	"time"
)

// ==================== ANTICALL ====================

const (
	callNoticeCooldown = 60 * time.Second
	callBlockDelay     = 2 * time.Second
	callSeenCacheSize  = 1024
)

const defaultCallMessage = "🚫 Calls to this number are not accepted. Please send a text message instead."

// HandleCall runs the anticall pipeline for one incoming call event.
// Every call is a match while the feature is enabled; there is no
// sender-identity exemption for calls.
func (m *Moderation) HandleCall(callFrom, callID string) {
	cfg := m.callConfig()
	if !cfg.Enabled {
		return
	}

	caller := callFrom
	m.log.Infof("📞 Rejecting call %s from %s", callID, caller)

	// Reject first, best effort. Some server builds do not support the
	// reject stanza; that failure is logged and swallowed.
	if err := m.gw.RejectCall(caller, callID); err != nil {
		m.log.Warnf("call reject failed for %s: %v", caller, err)
	}

	// One notice per caller per cooldown window, so rapid redials do not
	// spam the chat.
	if _, seen := m.callSeen.Get(caller); !seen {
		m.callSeen.Add(caller, struct{}{})
		notice := cfg.Message
		if notice == "" {
			notice = defaultCallMessage
		}
		if err := m.gw.SendText(caller, notice, nil); err != nil {
			m.log.Warnf("call notice failed for %s: %v", caller, err)
		}
	}

	m.audit.Record(ModerationEvent{
		Feature: FeatAnticall, ChatID: caller, UserID: caller,
		Action: "reject", Reason: "incoming call", Timestamp: time.Now(),
	})
	m.broadcast(ModerationEvent{Feature: FeatAnticall, ChatID: caller, UserID: caller, Action: "reject"})

	if cfg.Mode == "block" {
		// Give the notice time to land before the block cuts delivery.
		time.AfterFunc(callBlockDelay, func() {
			if err := m.gw.SetBlocked(caller, true); err != nil {
				m.log.Warnf("caller block failed for %s: %v", caller, err)
			}
		})
	}
}

func (m *Moderation) callConfig() CallConfig {
	var cfg CallConfig
	found, err := m.store.Get(FeatAnticall, "global", &cfg)
	if err != nil || !found {
		return CallConfig{Mode: "decline"}
	}
	return cfg
}

// handleAnticall services .anticall {on|off|block|decline|message <text>|status}.
func (m *Moderation) handleAnticall(args []string) string {
	if len(args) == 0 {
		return usageCard("anticall", "on | off | block | decline | message <text> | status")
	}

	cfg := m.callConfig()
	switch strings.ToLower(args[0]) {
	case "on":
		cfg.Enabled = true
		if cfg.Mode == "" {
			cfg.Mode = "decline"
		}
		m.store.Set(FeatAnticall, "global", cfg)
		return statusCard("ANTICALL", "ON 🟢", cfg.Mode)

	case "off":
		m.store.Delete(FeatAnticall, "global")
		return statusCard("ANTICALL", "OFF 🔴", "-")

	case "block", "decline":
		if !cfg.Enabled {
			return errorCard("Enable anticall first with .anticall on")
		}
		cfg.Mode = strings.ToLower(args[0])
		m.store.Set(FeatAnticall, "global", cfg)
		return statusCard("ANTICALL", "ON 🟢", cfg.Mode)

	case "message":
		if len(args) < 2 {
			return usageCard("anticall message", "<text>")
		}
		cfg.Message = strings.Join(args[1:], " ")
		m.store.Set(FeatAnticall, "global", cfg)
		return statusCard("ANTICALL", "MESSAGE SET", "custom")

	case "status":
		status := "OFF 🔴"
		if cfg.Enabled {
			status = "ON 🟢"
		}
		msg := cfg.Message
		if msg == "" {
			msg = "(default)"
		}
		return fmt.Sprintf(`╔═══════════════════╗
║ 📞 ANTICALL STATUS
╠═══════════════════╣
║ 📊 Status: %s
║ ⚡ Mode: %s
║ 💬 Notice: %s
╚═══════════════════╝`, status, cfg.Mode, msg)
	}

	return usageCard("anticall", "on | off | block | decline | message <text> | status")
}
