package main

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ==================== ANTIBOT ====================

// Additive score weights. A sender at or above BotScoreLimit is flagged.
const (
	botScoreName     = 30
	botScorePattern  = 20
	botScoreCommands = 15
	botScoreRapid    = 35

	botRapidWindow  = 1000 * time.Millisecond
	botRapidMsgs    = 5 // strictly more than this many inside the window
	botCmdWindow    = 5 * time.Second
	botCmdBurst     = 3 // strictly more than this many inside botCmdWindow
	botCmdTightWin  = 2 * time.Second
	botCmdTightMax  = 2 // strictly more than this many inside botCmdTightWin
	botActivityTTL  = 60 * time.Second
	botActivitySize = 4096
)

var botNameKeywords = []string{
	"bot", "wabot", "whatsapp-bot", "md-bot", "xmd", "bug bot", "autoresponder",
}

var (
	botCmdTokenRegex    = regexp.MustCompile(`(^|\s)[.!/#][a-zA-Z]\w*`)
	botCmdMentionRegex  = regexp.MustCompile(`[.!/#]\w+.*@\d{8,}`)
	botURLRegex         = regexp.MustCompile(`(?i)https?://\S+`)
	botLongMentionRegex = regexp.MustCompile(`@\d{13,}`)
	botLongDigitsRegex  = regexp.MustCompile(`\d{15,}`)
)

type botActivity struct {
	msgStamps []int64 // unix millis, pruned to botActivityTTL
	cmdStamps []int64
}

// BotRegistry holds the process-wide antibot state: the detected set
// (short-circuited on every later message until cleared) and rolling
// per-sender activity windows. Windows live in a size-capped TTL cache
// so a long-lived process cannot grow them without bound.
type BotRegistry struct {
	mu       sync.Mutex
	detected map[string]string // jid -> reason
	activity *expirable.LRU[string, *botActivity]
}

func NewBotRegistry() *BotRegistry {
	return &BotRegistry{
		detected: make(map[string]string),
		activity: expirable.NewLRU[string, *botActivity](botActivitySize, nil, botActivityTTL),
	}
}

func (r *BotRegistry) IsDetected(jid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.detected[getCleanID(jid)]
	return ok
}

func (r *BotRegistry) MarkDetected(jid, reason string) {
	r.mu.Lock()
	r.detected[getCleanID(jid)] = reason
	r.mu.Unlock()
}

func (r *BotRegistry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.detected)
	r.detected = make(map[string]string)
	return n
}

func (r *BotRegistry) Detected() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.detected))
	for jid, reason := range r.detected {
		out[jid] = reason
	}
	return out
}

func pruneStamps(stamps []int64, cutoff int64) []int64 {
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	return kept
}

func countSince(stamps []int64, cutoff int64) int {
	n := 0
	for _, ts := range stamps {
		if ts >= cutoff {
			n++
		}
	}
	return n
}

// Classify scores one message. The caller passes the clock so the
// window logic is testable.
func (r *BotRegistry) Classify(m *NormalizedMessage, now time.Time) (Verdict, int) {
	score := 0
	var reasons []string

	name := strings.ToLower(m.SenderName)
	for _, kw := range botNameKeywords {
		if name != "" && strings.Contains(name, kw) {
			score += botScoreName
			reasons = append(reasons, "bot name")
			break
		}
	}

	if reason := suspiciousPattern(m.Text); reason != "" {
		// First matching pattern only.
		score += botScorePattern
		reasons = append(reasons, reason)
	}

	cmdTokens := len(botCmdTokenRegex.FindAllString(m.Text, -1))
	nowMs := now.UnixMilli()

	r.mu.Lock()
	act, ok := r.activity.Get(m.SenderID)
	if !ok {
		act = &botActivity{}
	}
	act.msgStamps = pruneStamps(act.msgStamps, nowMs-botActivityTTL.Milliseconds())
	act.msgStamps = append(act.msgStamps, nowMs)
	if cmdTokens > 0 {
		act.cmdStamps = pruneStamps(act.cmdStamps, nowMs-botCmdWindow.Milliseconds())
		act.cmdStamps = append(act.cmdStamps, nowMs)
	}
	rapidMsgs := countSince(act.msgStamps, nowMs-botRapidWindow.Milliseconds())
	cmdBurst := len(act.cmdStamps)
	cmdTight := countSince(act.cmdStamps, nowMs-botCmdTightWin.Milliseconds())
	r.activity.Add(m.SenderID, act)
	r.mu.Unlock()

	if cmdTokens > 3 || cmdBurst > botCmdBurst || cmdTight > botCmdTightMax {
		score += botScoreCommands
		reasons = append(reasons, "command spam")
	}
	if rapidMsgs > botRapidMsgs {
		score += botScoreRapid
		reasons = append(reasons, "rapid messaging")
	}

	if score >= BotScoreLimit {
		return Verdict{Matched: true, Feature: FeatAntibot,
			Reason: fmt.Sprintf("score %d: %s", score, strings.Join(reasons, ", "))}, score
	}
	return Verdict{Feature: FeatAntibot}, score
}

func suspiciousPattern(text string) string {
	switch {
	case botCmdMentionRegex.MatchString(text):
		return "command with long mention"
	case botURLRegex.MatchString(text):
		return "raw url"
	case botLongMentionRegex.MatchString(text):
		return "long mention number"
	case hasEmojiRun(text, 5):
		return "emoji run"
	case hasRepeatRun(text, 10):
		return "repeated characters"
	case botLongDigitsRegex.MatchString(text):
		return "long digit string"
	}
	return ""
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0xFE0F || r == 0x200D: // variation selector / ZWJ continue a run
		return true
	}
	return false
}

func hasEmojiRun(text string, min int) bool {
	run := 0
	for _, r := range text {
		if isEmojiRune(r) {
			run++
			if run >= min {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func hasRepeatRun(text string, min int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run >= min {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// handleAntibot services .antibot {on|off|action <warn|mute|kick|ban>|list|status|clear}.
func (m *Moderation) handleAntibot(args []string) string {
	if len(args) == 0 {
		return usageCard("antibot", "on | off | action <warn|mute|kick|ban> | list | status | clear")
	}

	cfg := m.botConfig()
	switch strings.ToLower(args[0]) {
	case "on":
		cfg.Enabled = true
		if cfg.Action == "" {
			cfg.Action = ActionWarn
		}
		m.store.Set(FeatAntibot, "global", cfg)
		return statusCard("ANTIBOT", "ON 🟢", cfg.Action)

	case "off":
		m.store.Delete(FeatAntibot, "global")
		return statusCard("ANTIBOT", "OFF 🔴", "-")

	case "action":
		if len(args) < 2 {
			return usageCard("antibot action", "warn | mute | kick | ban")
		}
		action := strings.ToLower(args[1])
		switch action {
		case ActionWarn, ActionMute, ActionKick, ActionBan:
		default:
			return usageCard("antibot action", "warn | mute | kick | ban")
		}
		if !cfg.Enabled {
			return errorCard("Enable antibot first with .antibot on")
		}
		cfg.Action = action
		m.store.Set(FeatAntibot, "global", cfg)
		return statusCard("ANTIBOT", "ON 🟢", cfg.Action)

	case "list":
		detected := m.bots.Detected()
		if len(detected) == 0 {
			return errorCard("No bots detected yet")
		}
		out := "╔═══════════════════╗\n║ 🤖 DETECTED BOTS\n╠═══════════════════╣"
		i := 1
		for jid, reason := range detected {
			out += fmt.Sprintf("\n║ %d. %s\n║    └ %s", i, jid, reason)
			i++
		}
		out += "\n╚═══════════════════╝"
		return out

	case "status":
		status := "OFF 🔴"
		if cfg.Enabled {
			status = "ON 🟢"
		}
		return fmt.Sprintf(`╔═══════════════════╗
║ 🤖 ANTIBOT STATUS
╠═══════════════════╣
║ 📊 Status: %s
║ ⚡ Action: %s
║ 🎯 Detected: %d
╚═══════════════════╝`, status, cfg.Action, len(m.bots.Detected()))

	case "clear":
		n := m.bots.Clear()
		return fmt.Sprintf(`╔═══════════════════╗
║ 🧹 ANTIBOT CLEARED
╠═══════════════════╣
║ 🗑️ Removed: %d entries
╚═══════════════════╝`, n)
	}

	return usageCard("antibot", "on | off | action <warn|mute|kick|ban> | list | status | clear")
}

func (m *Moderation) botConfig() BotConfig {
	var cfg BotConfig
	found, err := m.store.Get(FeatAntibot, "global", &cfg)
	if err != nil || !found {
		return BotConfig{Action: ActionWarn}
	}
	return cfg
}
