package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func botMsg(text string) *NormalizedMessage {
	return &NormalizedMessage{
		ID:         "m1",
		Text:       text,
		SenderID:   "555123456789@s.whatsapp.net",
		SenderName: "wabot deluxe",
		ChatID:     "120363011111111111@g.us",
		IsGroup:    true,
	}
}

func TestBotScoreAccumulation(t *testing.T) {
	r := NewBotRegistry()
	base := time.Now()

	// Name keyword (+30) and >3 command tokens (+15) alone stay under
	// the limit.
	v, score := r.Classify(botMsg(".play .skip .queue .loop"), base)
	assert.False(t, v.Matched)
	assert.Equal(t, 45, score)

	// Six messages inside 900ms add the rapid-messaging weight (+35).
	r2 := NewBotRegistry()
	var last Verdict
	var lastScore int
	for i := 0; i < 6; i++ {
		last, lastScore = r2.Classify(botMsg(".play .skip .queue .loop"), base.Add(time.Duration(i)*150*time.Millisecond))
	}
	assert.True(t, last.Matched)
	assert.Equal(t, 80, lastScore)
}

func TestBotScoreSuspiciousPatternCountedOnce(t *testing.T) {
	r := NewBotRegistry()
	nm := botMsg("visit https://spam.example and https://more.example @1234567890123")
	// Two pattern hits (url + long mention) still add one +20.
	_, score := r.Classify(nm, time.Now())
	assert.Equal(t, 30+20, score)
}

func TestBotScorePlainUserStaysClean(t *testing.T) {
	r := NewBotRegistry()
	nm := botMsg("hello, how is everyone doing today?")
	nm.SenderName = "Ayesha"
	v, score := r.Classify(nm, time.Now())
	assert.False(t, v.Matched)
	assert.Zero(t, score)
}

func TestDetectedBotShortCircuit(t *testing.T) {
	sender := "555123456789@s.whatsapp.net"
	gw := &fakeGateway{metadata: testGroupInfo(nil, []string{sender})}
	m := newTestModeration(gw)
	m.store.Set(FeatAntibot, "global", BotConfig{Enabled: true, Action: ActionKick})
	m.bots.MarkDetected(sender, "test")

	// No re-scoring: an innocuous message from a flagged sender is
	// re-enforced immediately.
	m.HandleMessage(groupMsg("m1", "good morning", sender))

	assert.Equal(t, 1, gw.callCount("remove"))
}

func TestBotRegistryClear(t *testing.T) {
	r := NewBotRegistry()
	r.MarkDetected("1@s.whatsapp.net", "a")
	r.MarkDetected("2@s.whatsapp.net", "b")
	assert.True(t, r.IsDetected("1@s.whatsapp.net"))
	assert.Equal(t, 2, r.Clear())
	assert.False(t, r.IsDetected("1@s.whatsapp.net"))
}

func TestBotBanPersistsBeforeRemoval(t *testing.T) {
	sender := "555123456789@s.whatsapp.net"
	gw := &fakeGateway{metadata: testGroupInfo(nil, []string{sender})}
	m := newTestModeration(gw)
	m.store.Set(FeatAntibot, "global", BotConfig{Enabled: true, Action: ActionBan})
	m.bots.MarkDetected(sender, "test")
	gw.removeErr = assert.AnError

	m.HandleMessage(groupMsg("m1", "hello", sender))

	assert.True(t, m.bans.Contains(sender), "ban record survives a failed group removal")
}

func TestBotMuteActionSilencesSender(t *testing.T) {
	sender := "555123456789@s.whatsapp.net"
	gw := &fakeGateway{metadata: testGroupInfo(nil, []string{sender})}
	m := newTestModeration(gw)
	m.store.Set(FeatAntibot, "global", BotConfig{Enabled: true, Action: ActionMute})
	m.bots.MarkDetected(sender, "test")

	m.HandleMessage(groupMsg("m1", "spam", sender))
	assert.True(t, m.isMuted(sender))

	// Follow-up messages are silently removed.
	before := gw.callCount("delete")
	m.HandleMessage(groupMsg("m2", "more spam", sender))
	assert.Equal(t, before+1, gw.callCount("delete"))
}
