package main

import (
	"regexp"
	"strings"
)

// ==================== ANTITAG ====================

const (
	tagStormMinMentions = 3
	tagStormNumericHard = 10
	tagStormNumericSoft = 5
)

// Text-form mentions like "@923001234567" that spoofed tag-storms use
// without a structured mention list.
var numericMentionRegex = regexp.MustCompile(`@(\d{10,})`)

// classifyTagStorm counts mentions two ways: the structured mention
// list and distinct numeric @-patterns in the raw text, taking the max.
// Group metadata failures fail open to non-match; a transient gateway
// error must never turn into a kick.
func classifyTagStorm(m *NormalizedMessage, gw Gateway) Verdict {
	structured := len(m.Mentions)

	seen := make(map[string]bool)
	for _, match := range numericMentionRegex.FindAllStringSubmatch(m.Text, -1) {
		seen[match[1]] = true
	}
	numeric := len(seen)

	total := structured
	if numeric > total {
		total = numeric
	}
	if total < tagStormMinMentions {
		return Verdict{Feature: FeatAntitag}
	}

	info, err := gw.GroupMetadata(m.ChatID)
	if err != nil || info == nil {
		return Verdict{Feature: FeatAntitag}
	}
	// ceil(participants * 0.5)
	threshold := (len(info.Participants) + 1) / 2

	if total >= threshold ||
		numeric >= tagStormNumericHard ||
		(numeric >= tagStormNumericSoft && numeric >= threshold) {
		return Verdict{Matched: true, Feature: FeatAntitag, Reason: "tag storm"}
	}
	return Verdict{Feature: FeatAntitag}
}

// handleAntitag services .antitag {on|off|set <delete|kick>|get}.
func (m *Moderation) handleAntitag(chatID string, args []string) string {
	if len(args) == 0 {
		return usageCard("antitag", "on | off | set <delete|kick> | get")
	}

	switch strings.ToLower(args[0]) {
	case "on":
		cfg := FeatureConfig{Enabled: true, Action: ActionDelete}
		if old, ok := m.featureConfig(FeatAntitag, chatID); ok && old.Enabled {
			cfg.Action = old.Action
		}
		m.store.Set(FeatAntitag, chatID, cfg)
		return statusCard("ANTITAG", "ON 🟢", cfg.Action)

	case "off":
		m.store.Delete(FeatAntitag, chatID)
		return statusCard("ANTITAG", "OFF 🔴", "-")

	case "set":
		if len(args) < 2 {
			return usageCard("antitag set", "delete | kick")
		}
		action := strings.ToLower(args[1])
		if action != ActionDelete && action != ActionKick {
			return usageCard("antitag set", "delete | kick")
		}
		cfg, ok := m.featureConfig(FeatAntitag, chatID)
		if !ok || !cfg.Enabled {
			return errorCard("Enable antitag first with .antitag on")
		}
		cfg.Action = action
		m.store.Set(FeatAntitag, chatID, cfg)
		return statusCard("ANTITAG", "ON 🟢", cfg.Action)

	case "get":
		cfg, ok := m.featureConfig(FeatAntitag, chatID)
		if !ok || !cfg.Enabled {
			return statusCard("ANTITAG", "OFF 🔴", "-")
		}
		return statusCard("ANTITAG", "ON 🟢", cfg.Action)
	}

	return usageCard("antitag", "on | off | set <delete|kick> | get")
}
