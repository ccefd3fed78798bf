package main

import (
	"fmt"
	"regexp"
	"strings"
)

// ==================== ANTILINK ====================

// Matches scheme-prefixed URLs, www. hosts, and bare label.label.tld
// sequences. Matching is raw-substring on the message text; obfuscated
// links ("h t t p") are not normalized.
var linkRegex = regexp.MustCompile(`(?i)(https?://[^\s]+|www\.[^\s]+|\b[a-z0-9][a-z0-9-]*\.[a-z0-9][a-z0-9-]*\.[a-z]{2,}\b)`)

func classifyLink(m *NormalizedMessage) Verdict {
	if m.Text == "" {
		return Verdict{Feature: FeatAntilink}
	}
	if match := linkRegex.FindString(m.Text); match != "" {
		return Verdict{Matched: true, Feature: FeatAntilink, Reason: "link: " + match}
	}
	return Verdict{Feature: FeatAntilink}
}

// handleAntilink services .antilink {on|off|set <delete|kick|warn>|get}.
func (m *Moderation) handleAntilink(chatID string, args []string) string {
	if len(args) == 0 {
		return usageCard("antilink", "on | off | set <delete|kick|warn> | get")
	}

	switch strings.ToLower(args[0]) {
	case "on":
		cfg := FeatureConfig{Enabled: true, Action: ActionDelete}
		if old, ok := m.featureConfig(FeatAntilink, chatID); ok && old.Enabled {
			cfg.Action = old.Action
		}
		m.store.Set(FeatAntilink, chatID, cfg)
		return statusCard("ANTILINK", "ON 🟢", cfg.Action)

	case "off":
		// Already-disabled off is a no-op; the record is simply removed.
		m.store.Delete(FeatAntilink, chatID)
		return statusCard("ANTILINK", "OFF 🔴", "-")

	case "set":
		if len(args) < 2 || !validWarnAction(args[1]) {
			return usageCard("antilink set", "delete | kick | warn")
		}
		cfg, ok := m.featureConfig(FeatAntilink, chatID)
		if !ok || !cfg.Enabled {
			return errorCard("Enable antilink first with .antilink on")
		}
		cfg.Action = strings.ToLower(args[1])
		m.store.Set(FeatAntilink, chatID, cfg)
		return statusCard("ANTILINK", "ON 🟢", cfg.Action)

	case "get":
		cfg, ok := m.featureConfig(FeatAntilink, chatID)
		if !ok || !cfg.Enabled {
			return statusCard("ANTILINK", "OFF 🔴", "-")
		}
		return statusCard("ANTILINK", "ON 🟢", cfg.Action)
	}

	return usageCard("antilink", "on | off | set <delete|kick|warn> | get")
}

func validWarnAction(action string) bool {
	switch strings.ToLower(action) {
	case ActionDelete, ActionKick, ActionWarn:
		return true
	}
	return false
}

// ==================== REPLY CARDS ====================

func usageCard(cmd, options string) string {
	return fmt.Sprintf(`╔═══════════════════╗
║ ⚠️ INVALID FORMAT
╠═══════════════════╣
║ 📝 Usage: .%s
║ 🎯 Options: %s
╚═══════════════════╝`, cmd, options)
}

func statusCard(feature, status, action string) string {
	return fmt.Sprintf(`╔═══════════════════╗
║ 🛡️ %s
╠═══════════════════╣
║ 📊 Status: %s
║ ⚡ Action: %s
╚═══════════════════╝`, feature, status, action)
}

func errorCard(text string) string {
	return fmt.Sprintf(`╔═══════════════════╗
║ ❌ ERROR
╠═══════════════════╣
║ %s
╚═══════════════════╝`, text)
}
