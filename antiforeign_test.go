package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCountryCode(t *testing.T) {
	cases := []struct {
		number string
		code   string
	}{
		{"2348144317152", "234"}, // nigeria
		{"919876543210", "91"},   // india
		{"923001234567", "92"},   // pakistan
		{"12025550123", "1"},     // nanp
		{"447911123456", "44"},   // uk
		{"12345678", "unknown"},  // unrecognized 8-digit number
		{"abc123", "unknown"},    // not a number
		{"", "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, extractCountryCode(tc.number), "number: %q", tc.number)
	}
}

func TestClassifyForeign(t *testing.T) {
	cfg := ForeignConfig{Enabled: true, Codes: []string{"234", "91"}}

	v := classifyForeign(&NormalizedMessage{SenderID: "2348144317152@s.whatsapp.net"}, cfg)
	assert.True(t, v.Matched)

	v = classifyForeign(&NormalizedMessage{SenderID: "923001234567@s.whatsapp.net"}, cfg)
	assert.False(t, v.Matched, "code 92 is not on the blocklist")

	// Unknown numbers are never blocked, whatever the blocklist says.
	v = classifyForeign(&NormalizedMessage{SenderID: "12345678@s.whatsapp.net"}, cfg)
	assert.False(t, v.Matched)
}

func TestAntiforeignCommandRoundTrip(t *testing.T) {
	m := newTestModeration(&fakeGateway{})
	chatID := "120363011111111111@g.us"

	m.handleAntiforeign(chatID, []string{"on"})
	m.handleAntiforeign(chatID, []string{"add", "+234"})
	m.handleAntiforeign(chatID, []string{"add", "91"})

	cfg := m.foreignConfig(chatID)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"234", "91"}, cfg.Codes)

	m.handleAntiforeign(chatID, []string{"remove", "91"})
	cfg = m.foreignConfig(chatID)
	assert.Equal(t, []string{"234"}, cfg.Codes)

	m.handleAntiforeign(chatID, []string{"off"})
	cfg = m.foreignConfig(chatID)
	assert.False(t, cfg.Enabled, "off removes the record entirely")
}
