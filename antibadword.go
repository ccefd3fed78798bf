package main

import "strings"

// ==================== ANTIBADWORD ====================

// Fixed multi-language blocklist. Single words are matched token-exact
// on the cleaned message; entries containing a space are matched as
// substrings of the cleaned message.
var badwordList = []string{
	// english
	"fuck", "fucker", "fucking", "motherfucker", "shit", "bullshit",
	"bitch", "bastard", "asshole", "dickhead", "cunt", "whore", "slut",
	"retard", "nigger", "faggot",
	// spanish
	"puta", "puto", "mierda", "pendejo", "cabron", "gilipollas",
	// hindi / urdu (romanized)
	"madarchod", "behenchod", "bhenchod", "chutiya", "gandu", "harami",
	"kutta", "kamina", "randi", "lund", "gaand",
	// arabic (romanized)
	"sharmoota", "kalb", "ibn el kalb",
	// phrases
	"son of a bitch", "piece of shit", "ghapa ghap",
}

var badwordSet = func() map[string]bool {
	set := make(map[string]bool, len(badwordList))
	for _, w := range badwordList {
		// Short entries cause too many false positives.
		if len(w) < 2 || strings.Contains(w, " ") {
			continue
		}
		set[w] = true
	}
	return set
}()

var badwordPhrases = func() []string {
	var phrases []string
	for _, w := range badwordList {
		if strings.Contains(w, " ") {
			phrases = append(phrases, w)
		}
	}
	return phrases
}()

// cleanBadwordText lowercases and strips punctuation so "f.u?ck" style
// spacing tricks inside a token do not dodge the token match.
func cleanBadwordText(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\n', r == '\t':
			b.WriteRune(r)
		case r > 127:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func classifyBadword(m *NormalizedMessage) Verdict {
	if m.Text == "" {
		return Verdict{Feature: FeatAntibadword}
	}
	cleaned := cleanBadwordText(m.Text)

	for _, token := range strings.Fields(cleaned) {
		if len(token) < 2 {
			continue
		}
		if badwordSet[token] {
			return Verdict{Matched: true, Feature: FeatAntibadword, Reason: "badword: " + token}
		}
	}
	for _, phrase := range badwordPhrases {
		if strings.Contains(cleaned, phrase) {
			return Verdict{Matched: true, Feature: FeatAntibadword, Reason: "badword phrase"}
		}
	}
	return Verdict{Feature: FeatAntibadword}
}

// handleAntibadword services .antibadword {on|off|set <delete|kick|warn>}.
func (m *Moderation) handleAntibadword(chatID string, args []string) string {
	if len(args) == 0 {
		return usageCard("antibadword", "on | off | set <delete|kick|warn>")
	}

	switch strings.ToLower(args[0]) {
	case "on":
		cfg := FeatureConfig{Enabled: true, Action: ActionDelete}
		if old, ok := m.featureConfig(FeatAntibadword, chatID); ok && old.Enabled {
			cfg.Action = old.Action
		}
		m.store.Set(FeatAntibadword, chatID, cfg)
		return statusCard("ANTIBADWORD", "ON 🟢", cfg.Action)

	case "off":
		m.store.Delete(FeatAntibadword, chatID)
		return statusCard("ANTIBADWORD", "OFF 🔴", "-")

	case "set":
		if len(args) < 2 || !validWarnAction(args[1]) {
			return usageCard("antibadword set", "delete | kick | warn")
		}
		cfg, ok := m.featureConfig(FeatAntibadword, chatID)
		if !ok || !cfg.Enabled {
			return errorCard("Enable antibadword first with .antibadword on")
		}
		cfg.Action = strings.ToLower(args[1])
		m.store.Set(FeatAntibadword, chatID, cfg)
		return statusCard("ANTIBADWORD", "ON 🟢", cfg.Action)
	}

	return usageCard("antibadword", "on | off | set <delete|kick|warn>")
}
