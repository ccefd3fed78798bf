package main

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// ==================== MODERATION DISPATCHER ====================

// Moderation owns all moderation state and collaborators. It is built
// once at startup and injected wherever messages and calls arrive;
// nothing here lives in module-level globals.
type Moderation struct {
	gw    Gateway
	store ConfigStore
	warns *WarningLedger
	bans  *BanList
	bots  *BotRegistry
	audit *AuditLog
	log   waLog.Logger

	callSeen *expirable.LRU[string, struct{}]

	mutedMu sync.RWMutex
	muted   map[string]bool

	selfID    string
	sudoIDs   map[string]bool
	warnLimit int

	onEvent func(ModerationEvent)
}

func NewModeration(gw Gateway, store ConfigStore, bans *BanList, audit *AuditLog, log waLog.Logger, warnLimit int) *Moderation {
	if warnLimit <= 0 {
		warnLimit = DefaultWarnLimit
	}
	m := &Moderation{
		gw:        gw,
		store:     store,
		warns:     NewWarningLedger(store),
		bans:      bans,
		bots:      NewBotRegistry(),
		audit:     audit,
		log:       log,
		callSeen:  expirable.NewLRU[string, struct{}](callSeenCacheSize, nil, callNoticeCooldown),
		muted:     make(map[string]bool),
		sudoIDs:   make(map[string]bool),
		warnLimit: warnLimit,
	}
	m.loadMuted()
	return m
}

// SetSelf records the bot's own JID once the session is known; the
// bot's own messages are always exempt.
func (m *Moderation) SetSelf(jid string) {
	m.selfID = getCleanID(jid)
}

func (m *Moderation) AddSudo(number string) {
	m.sudoIDs[getCleanID(number)] = true
}

// OnEvent registers the web-panel broadcast hook.
func (m *Moderation) OnEvent(fn func(ModerationEvent)) {
	m.onEvent = fn
}

func (m *Moderation) broadcast(evt ModerationEvent) {
	if m.onEvent != nil {
		m.onEvent(evt)
	}
}

func (m *Moderation) isSudo(jid string) bool {
	clean := getCleanID(jid)
	return clean == m.selfID || m.sudoIDs[clean]
}

// featureConfig loads a per-group record. Corrupt or unreadable config
// reports disabled: enforcement never runs on defaults it cannot read.
func (m *Moderation) featureConfig(feature, chatID string) (FeatureConfig, bool) {
	var cfg FeatureConfig
	found, err := m.store.Get(feature, chatID, &cfg)
	if err != nil {
		m.log.Warnf("config read failed for %s/%s: %v", feature, chatID, err)
		return FeatureConfig{}, false
	}
	return cfg, found
}

// HandleMessage runs the full pipeline for one normalized inbound
// message: exemption checks, classifier fan-in, policy, enforcement.
// The first matching feature wins; one decision per message.
func (m *Moderation) HandleMessage(nm *NormalizedMessage) {
	if getCleanID(nm.SenderID) == m.selfID {
		return
	}

	// Muted senders get their group messages removed without ceremony.
	if nm.IsGroup && m.isMuted(nm.SenderID) {
		if err := m.gw.DeleteMessage(nm.ChatID, nm.SenderID, nm.ID); err != nil {
			m.log.Warnf("muted delete failed in %s: %v", nm.ChatID, err)
		}
		return
	}

	// Owner and sudo users are exempt from everything.
	if m.isSudo(nm.SenderID) {
		return
	}

	// A sender already flagged as a bot is re-enforced on every message
	// without re-scoring, until cleared.
	botCfg := m.botConfig()
	if botCfg.Enabled && m.bots.IsDetected(nm.SenderID) {
		v := Verdict{Matched: true, Feature: FeatAntibot, Reason: "previously detected bot"}
		d := decide(v, true, botCfg.Action, m.warns, nm.ChatID, nm.SenderID, m.warnLimit)
		m.execute(d, v, nm)
		return
	}

	if nm.IsGroup {
		if m.runGroupClassifiers(nm) {
			return
		}
	}

	if botCfg.Enabled {
		v, score := m.bots.Classify(nm, time.Now())
		if v.Matched {
			m.log.Infof("🤖 Bot detected: %s (score %d)", nm.SenderID, score)
			m.bots.MarkDetected(nm.SenderID, v.Reason)
			d := decide(v, true, botCfg.Action, m.warns, nm.ChatID, nm.SenderID, m.warnLimit)
			m.execute(d, v, nm)
		}
	}
}

// runGroupClassifiers evaluates the per-group features. Returns true if
// a decision was executed.
func (m *Moderation) runGroupClassifiers(nm *NormalizedMessage) bool {
	linkCfg, _ := m.featureConfig(FeatAntilink, nm.ChatID)
	tagCfg, _ := m.featureConfig(FeatAntitag, nm.ChatID)
	wordCfg, _ := m.featureConfig(FeatAntibadword, nm.ChatID)
	foreignCfg := m.foreignConfig(nm.ChatID)

	// Group admins are exempt from antilink/antitag/antibadword. If the
	// admin status cannot be determined the whole admin-exempt set is
	// skipped: a metadata failure must never cause a wrongful kick.
	if linkCfg.Enabled || tagCfg.Enabled || wordCfg.Enabled {
		isAdmin, err := m.senderIsAdmin(nm)
		if err != nil {
			m.log.Warnf("admin lookup failed in %s, skipping admin-exempt classifiers: %v", nm.ChatID, err)
		} else if !isAdmin {
			if linkCfg.Enabled {
				if v := classifyLink(nm); v.Matched {
					m.execute(decide(v, true, linkCfg.Action, m.warns, nm.ChatID, nm.SenderID, m.warnLimit), v, nm)
					return true
				}
			}
			if tagCfg.Enabled {
				if v := classifyTagStorm(nm, m.gw); v.Matched {
					m.execute(decide(v, true, tagCfg.Action, m.warns, nm.ChatID, nm.SenderID, m.warnLimit), v, nm)
					return true
				}
			}
			if wordCfg.Enabled {
				if v := classifyBadword(nm); v.Matched {
					m.execute(decide(v, true, wordCfg.Action, m.warns, nm.ChatID, nm.SenderID, m.warnLimit), v, nm)
					return true
				}
			}
		}
	}

	// Antiforeign has no admin exemption: it acts on the sender's
	// number, not their role.
	if foreignCfg.Enabled {
		if v := classifyForeign(nm, foreignCfg); v.Matched {
			m.execute(Decision{Action: ActionKick, DeleteFirst: true}, v, nm)
			if foreignCfg.Message != "" {
				m.notice(nm, foreignCfg.Message)
			}
			return true
		}
	}
	return false
}

func (m *Moderation) senderIsAdmin(nm *NormalizedMessage) (bool, error) {
	info, err := m.gw.GroupMetadata(nm.ChatID)
	if err != nil {
		return false, err
	}
	sender := getCleanID(nm.SenderID)
	for _, p := range info.Participants {
		if getCleanID(p.JID) == sender {
			return p.IsAdmin, nil
		}
	}
	return false, nil
}

// ==================== MUTED SET ====================

func (m *Moderation) loadMuted() {
	var jids []string
	if found, err := m.store.Get("muted", "global", &jids); err != nil || !found {
		return
	}
	for _, jid := range jids {
		m.muted[jid] = true
	}
}

func (m *Moderation) saveMuted() {
	jids := make([]string, 0, len(m.muted))
	for jid := range m.muted {
		jids = append(jids, jid)
	}
	m.store.Set("muted", "global", jids)
}

func (m *Moderation) muteUser(jid string) {
	m.mutedMu.Lock()
	m.muted[getCleanID(jid)] = true
	m.saveMuted()
	m.mutedMu.Unlock()
}

func (m *Moderation) unmuteUser(jid string) {
	m.mutedMu.Lock()
	delete(m.muted, getCleanID(jid))
	m.saveMuted()
	m.mutedMu.Unlock()
}

func (m *Moderation) isMuted(jid string) bool {
	m.mutedMu.RLock()
	defer m.mutedMu.RUnlock()
	return m.muted[getCleanID(jid)]
}

// ==================== GROUP SETTINGS ====================

func (m *Moderation) groupSettings(chatID string) GroupSettings {
	var s GroupSettings
	found, err := m.store.Get("groups", chatID, &s)
	if err != nil || !found {
		return GroupSettings{ChatID: chatID, Mode: "public"}
	}
	if s.Mode == "" {
		s.Mode = "public"
	}
	return s
}

func (m *Moderation) setGroupMode(chatID, mode string) {
	s := m.groupSettings(chatID)
	s.ChatID = chatID
	s.Mode = strings.ToLower(mode)
	m.store.Set("groups", chatID, s)
}
