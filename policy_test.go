package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideDisabledOrUnmatched(t *testing.T) {
	warns := NewWarningLedger(NewMemoryStore())

	d := decide(Verdict{Matched: true, Feature: FeatAntilink}, false, ActionKick, warns, "g", "u", 3)
	assert.Equal(t, ActionNone, d.Action, "disabled feature never enforces")

	d = decide(Verdict{Feature: FeatAntilink}, true, ActionKick, warns, "g", "u", 3)
	assert.Equal(t, ActionNone, d.Action, "unmatched verdict never enforces")

	assert.Zero(t, warns.Count("g", "u"))
}

func TestDecideDeleteAndKick(t *testing.T) {
	warns := NewWarningLedger(NewMemoryStore())
	v := Verdict{Matched: true, Feature: FeatAntilink}

	d := decide(v, true, ActionDelete, warns, "g", "u", 3)
	assert.Equal(t, ActionDelete, d.Action)
	assert.True(t, d.DeleteFirst)

	d = decide(v, true, ActionKick, warns, "g", "u", 3)
	assert.Equal(t, ActionKick, d.Action)
	assert.True(t, d.DeleteFirst, "content is removed before the user")
	assert.False(t, d.ResetWarnings)
}

func TestDecideWarnEscalation(t *testing.T) {
	warns := NewWarningLedger(NewMemoryStore())
	v := Verdict{Matched: true, Feature: FeatAntibadword}

	d := decide(v, true, ActionWarn, warns, "g", "u", 3)
	assert.Equal(t, ActionNotify, d.Action)
	assert.Equal(t, 1, d.WarnCount)

	d = decide(v, true, ActionWarn, warns, "g", "u", 3)
	assert.Equal(t, ActionNotify, d.Action)
	assert.Equal(t, 2, d.WarnCount)

	d = decide(v, true, ActionWarn, warns, "g", "u", 3)
	assert.Equal(t, ActionKick, d.Action)
	assert.True(t, d.ResetWarnings)
	assert.Equal(t, 0, warns.Count("g", "u"), "ledger resets as part of issuing the kick")
}

func TestDecideWarnCountsArePerGroupAndUser(t *testing.T) {
	warns := NewWarningLedger(NewMemoryStore())
	v := Verdict{Matched: true, Feature: FeatAntilink}

	decide(v, true, ActionWarn, warns, "g1", "u1", 3)
	decide(v, true, ActionWarn, warns, "g1", "u2", 3)
	decide(v, true, ActionWarn, warns, "g2", "u1", 3)

	assert.Equal(t, 1, warns.Count("g1", "u1"))
	assert.Equal(t, 1, warns.Count("g1", "u2"))
	assert.Equal(t, 1, warns.Count("g2", "u1"))
}

func TestDecideUnknownActionFailsOpen(t *testing.T) {
	warns := NewWarningLedger(NewMemoryStore())
	d := decide(Verdict{Matched: true}, true, "explode", warns, "g", "u", 3)
	assert.Equal(t, ActionNone, d.Action)
}

func TestIdempotentDisable(t *testing.T) {
	m := newTestModeration(&fakeGateway{})
	chatID := "120363011111111111@g.us"

	m.handleAntilink(chatID, []string{"on"})
	cfg, found := m.featureConfig(FeatAntilink, chatID)
	assert.True(t, found)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, ActionDelete, cfg.Action, "enabling starts at the default action")

	m.handleAntilink(chatID, []string{"off"})
	_, found = m.featureConfig(FeatAntilink, chatID)
	assert.False(t, found)

	// Disabling again is a no-op, not an error.
	assert.NotPanics(t, func() { m.handleAntilink(chatID, []string{"off"}) })
	_, found = m.featureConfig(FeatAntilink, chatID)
	assert.False(t, found)
}

func TestSetPreservesEnabledAndReEnableDefaults(t *testing.T) {
	m := newTestModeration(&fakeGateway{})
	chatID := "120363011111111111@g.us"

	m.handleAntilink(chatID, []string{"on"})
	m.handleAntilink(chatID, []string{"set", "kick"})
	cfg, _ := m.featureConfig(FeatAntilink, chatID)
	assert.Equal(t, ActionKick, cfg.Action)

	// off deletes the record; a later on re-creates the default action.
	m.handleAntilink(chatID, []string{"off"})
	m.handleAntilink(chatID, []string{"on"})
	cfg, _ = m.featureConfig(FeatAntilink, chatID)
	assert.Equal(t, ActionDelete, cfg.Action)
}
