package main

import (
	"testing"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stretchr/testify/assert"
)

func TestAnticallDisabledIgnoresCalls(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModeration(gw)

	m.HandleCall("555000111222@s.whatsapp.net", "call-1")

	assert.Empty(t, gw.calls)
}

func TestAnticallNoticeCooldown(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModeration(gw)
	m.store.Set(FeatAnticall, "global", CallConfig{Enabled: true, Mode: "decline"})
	// Shrink the cooldown window so the test does not sleep for a minute.
	m.callSeen = expirable.NewLRU[string, struct{}](callSeenCacheSize, nil, 100*time.Millisecond)

	caller := "555000111222@s.whatsapp.net"
	m.HandleCall(caller, "call-1")
	m.HandleCall(caller, "call-2")

	assert.Equal(t, 2, gw.callCount("reject"), "every call is rejected")
	assert.Equal(t, 1, gw.callCount("send"), "one notice per cooldown window")

	time.Sleep(150 * time.Millisecond)
	m.HandleCall(caller, "call-3")
	assert.Equal(t, 2, gw.callCount("send"), "cooldown expiry allows a fresh notice")
}

func TestAnticallCooldownIsPerCaller(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModeration(gw)
	m.store.Set(FeatAnticall, "global", CallConfig{Enabled: true, Mode: "decline"})

	m.HandleCall("111@s.whatsapp.net", "call-1")
	m.HandleCall("222@s.whatsapp.net", "call-2")

	assert.Equal(t, 2, gw.callCount("send"))
}

func TestAnticallCustomMessage(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModeration(gw)
	m.store.Set(FeatAnticall, "global", CallConfig{Enabled: true, Mode: "decline", Message: "no calls please"})

	m.HandleCall("111@s.whatsapp.net", "call-1")

	assert.Contains(t, gw.sentTexts, "no calls please")
}

func TestAnticallBlockModeBlocksAfterDelay(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModeration(gw)
	m.store.Set(FeatAnticall, "global", CallConfig{Enabled: true, Mode: "block"})

	m.HandleCall("111@s.whatsapp.net", "call-1")

	assert.Zero(t, gw.callCount("block"), "block waits for the notice to land")
	assert.Eventually(t, func() bool {
		return gw.callCount("block") == 1
	}, 4*time.Second, 50*time.Millisecond)
}

func TestAnticallCommandRoundTrip(t *testing.T) {
	m := newTestModeration(&fakeGateway{})

	m.handleAnticall([]string{"on"})
	cfg := m.callConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "decline", cfg.Mode)

	m.handleAnticall([]string{"block"})
	assert.Equal(t, "block", m.callConfig().Mode)

	m.handleAnticall([]string{"message", "do", "not", "call"})
	assert.Equal(t, "do not call", m.callConfig().Message)

	m.handleAnticall([]string{"off"})
	assert.False(t, m.callConfig().Enabled)
}
