package main

import (
	"fmt"
	"strings"
)

// ==================== ANTIFOREIGN ====================

// Ordered prefix/length rules for pulling a country code out of a phone
// number. This is deliberately not a canonical E.164 table: numbers
// outside the rule set resolve to "unknown" and are never blocked.
type ccRule struct {
	prefix string
	minLen int
	maxLen int
}

var ccRules = []ccRule{
	// three-digit prefixes first so "234..." never resolves as "23"
	{"234", 13, 13}, // nigeria
	{"233", 12, 12}, // ghana
	{"254", 12, 12}, // kenya
	{"255", 12, 12}, // tanzania
	{"256", 12, 12}, // uganda
	{"880", 13, 13}, // bangladesh
	{"971", 12, 12}, // uae
	{"966", 12, 12}, // saudi arabia
	{"212", 12, 12}, // morocco
	{"91", 12, 12},  // india
	{"92", 12, 12},  // pakistan
	{"90", 12, 12},  // turkey
	{"94", 11, 11},  // sri lanka
	{"81", 11, 12},  // japan
	{"86", 13, 13},  // china
	{"62", 11, 13},  // indonesia
	{"63", 12, 12},  // philippines
	{"60", 11, 12},  // malaysia
	{"55", 12, 13},  // brazil
	{"52", 12, 13},  // mexico
	{"49", 12, 13},  // germany
	{"44", 12, 12},  // uk
	{"33", 11, 11},  // france
	{"27", 11, 11},  // south africa
	{"20", 12, 12},  // egypt
	{"7", 11, 11},   // russia/kazakhstan
	{"1", 11, 11},   // nanp
}

// extractCountryCode resolves the country-code prefix of a bare number
// (no plus sign, as found in a JID user part).
func extractCountryCode(number string) string {
	number = strings.TrimSpace(number)
	for _, r := range number {
		if r < '0' || r > '9' {
			return "unknown"
		}
	}
	for _, rule := range ccRules {
		if len(number) >= rule.minLen && len(number) <= rule.maxLen &&
			strings.HasPrefix(number, rule.prefix) {
			return rule.prefix
		}
	}
	return "unknown"
}

func classifyForeign(m *NormalizedMessage, cfg ForeignConfig) Verdict {
	number := getCleanID(m.SenderID)
	code := extractCountryCode(number)
	if code == "unknown" {
		return Verdict{Feature: FeatAntiforeign}
	}
	for _, blocked := range cfg.Codes {
		if code == blocked {
			return Verdict{Matched: true, Feature: FeatAntiforeign, Reason: "blocked country code +" + code}
		}
	}
	return Verdict{Feature: FeatAntiforeign}
}

func (m *Moderation) foreignConfig(chatID string) ForeignConfig {
	var cfg ForeignConfig
	found, err := m.store.Get(FeatAntiforeign, chatID, &cfg)
	if err != nil || !found {
		return ForeignConfig{}
	}
	return cfg
}

// handleAntiforeign services
// .antiforeign {on|off|add <code>|remove <code>|list|message <text>|status}.
func (m *Moderation) handleAntiforeign(chatID string, args []string) string {
	if len(args) == 0 {
		return usageCard("antiforeign", "on | off | add <code> | remove <code> | list | message <text> | status")
	}

	cfg := m.foreignConfig(chatID)
	switch strings.ToLower(args[0]) {
	case "on":
		cfg.Enabled = true
		m.store.Set(FeatAntiforeign, chatID, cfg)
		return statusCard("ANTIFOREIGN", "ON 🟢", "remove")

	case "off":
		m.store.Delete(FeatAntiforeign, chatID)
		return statusCard("ANTIFOREIGN", "OFF 🔴", "-")

	case "add":
		if len(args) < 2 {
			return usageCard("antiforeign add", "<country code, e.g. 91>")
		}
		code := strings.TrimPrefix(args[1], "+")
		for _, existing := range cfg.Codes {
			if existing == code {
				return errorCard("Code +" + code + " already blocked")
			}
		}
		cfg.Codes = append(cfg.Codes, code)
		m.store.Set(FeatAntiforeign, chatID, cfg)
		return fmt.Sprintf(`╔═══════════════════╗
║ ✅ CODE BLOCKED
╠═══════════════════╣
║ 🌍 Code: +%s
║ 📊 Total: %d codes
╚═══════════════════╝`, code, len(cfg.Codes))

	case "remove":
		if len(args) < 2 {
			return usageCard("antiforeign remove", "<country code>")
		}
		code := strings.TrimPrefix(args[1], "+")
		kept := cfg.Codes[:0]
		found := false
		for _, existing := range cfg.Codes {
			if existing == code {
				found = true
				continue
			}
			kept = append(kept, existing)
		}
		if !found {
			return errorCard("Code +" + code + " is not blocked")
		}
		cfg.Codes = kept
		m.store.Set(FeatAntiforeign, chatID, cfg)
		return statusCard("ANTIFOREIGN", "CODE REMOVED", "+"+code)

	case "list":
		if len(cfg.Codes) == 0 {
			return errorCard("No country codes blocked")
		}
		out := "╔═══════════════════╗\n║ 🌍 BLOCKED CODES\n╠═══════════════════╣"
		for i, code := range cfg.Codes {
			out += fmt.Sprintf("\n║ %d. +%s", i+1, code)
		}
		out += "\n╚═══════════════════╝"
		return out

	case "message":
		if len(args) < 2 {
			return usageCard("antiforeign message", "<text>")
		}
		cfg.Message = strings.Join(args[1:], " ")
		m.store.Set(FeatAntiforeign, chatID, cfg)
		return statusCard("ANTIFOREIGN", "MESSAGE SET", "custom")

	case "status":
		status := "OFF 🔴"
		if cfg.Enabled {
			status = "ON 🟢"
		}
		return fmt.Sprintf(`╔═══════════════════╗
║ 🌍 ANTIFOREIGN STATUS
╠═══════════════════╣
║ 📊 Status: %s
║ 🚫 Blocked: %d codes
╚═══════════════════╝`, status, len(cfg.Codes))
	}

	return usageCard("antiforeign", "on | off | add <code> | remove <code> | list | message <text> | status")
}
