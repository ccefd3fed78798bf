package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLink(t *testing.T) {
	cases := []struct {
		text  string
		match bool
	}{
		{"check https://spam.example/free", true},
		{"HTTP://CAPS.EXAMPLE", true},
		{"visit www.spam.example today", true},
		{"join chat.whatsapp.com/AbCdEf", true},
		{"plain text message", false},
		{"version 1.2.3 released", false},
		{"", false},
	}
	for _, tc := range cases {
		v := classifyLink(&NormalizedMessage{Text: tc.text})
		assert.Equal(t, tc.match, v.Matched, "text: %q", tc.text)
	}
}

func TestClassifyBadword(t *testing.T) {
	cases := []struct {
		text  string
		match bool
	}{
		{"you are a chutiya", true},
		{"CHUTIYA!!!", true},             // case and punctuation stripped
		{"what a piece of shit move", true}, // phrase substring
		{"scunthorpe is a town", false},  // token must match exactly
		{"perfectly clean message", false},
		{"", false},
	}
	for _, tc := range cases {
		v := classifyBadword(&NormalizedMessage{Text: tc.text})
		assert.Equal(t, tc.match, v.Matched, "text: %q", tc.text)
	}
}

func TestTagStormStructuredMentions(t *testing.T) {
	members := []string{"1@s.whatsapp.net", "2@s.whatsapp.net", "3@s.whatsapp.net", "4@s.whatsapp.net"}
	gw := &fakeGateway{metadata: testGroupInfo(nil, members)}

	nm := groupMsg("m1", "wake up everyone", "1@s.whatsapp.net")
	nm.Mentions = []string{"2@s.whatsapp.net", "3@s.whatsapp.net", "4@s.whatsapp.net"}

	v := classifyTagStorm(nm, gw)
	assert.True(t, v.Matched, "3 mentions in a 4-member group is over half")
}

func TestTagStormBelowMinimum(t *testing.T) {
	gw := &fakeGateway{metadata: testGroupInfo(nil, []string{"1@s.whatsapp.net", "2@s.whatsapp.net"})}
	nm := groupMsg("m1", "hi @1234567890 and @1234567891", "1@s.whatsapp.net")

	v := classifyTagStorm(nm, gw)
	assert.False(t, v.Matched, "fewer than 3 total mentions never matches")
	assert.Zero(t, gw.callCount("metadata"), "metadata not fetched below the minimum")
}

func TestTagStormNumericMentions(t *testing.T) {
	// 30-member group, 10 distinct text-form mentions: hard numeric
	// trigger regardless of the participant fraction.
	var members []string
	for i := 0; i < 30; i++ {
		members = append(members, fmt.Sprintf("%d@s.whatsapp.net", 1000+i))
	}
	gw := &fakeGateway{metadata: testGroupInfo(nil, members)}

	text := ""
	for i := 0; i < 10; i++ {
		text += fmt.Sprintf("@123456789%d ", i)
	}
	v := classifyTagStorm(groupMsg("m1", text, "x@s.whatsapp.net"), gw)
	assert.True(t, v.Matched)
}

func TestTagStormDuplicateNumericMentionsCountOnce(t *testing.T) {
	gw := &fakeGateway{metadata: testGroupInfo(nil, []string{"1@s.whatsapp.net"})}
	text := "@1234567890 @1234567890 @1234567890 @1234567890"
	v := classifyTagStorm(groupMsg("m1", text, "x@s.whatsapp.net"), gw)
	assert.False(t, v.Matched, "repeated mention of one number is one mention")
}

func TestTagStormFailsOpenOnMetadataError(t *testing.T) {
	gw := &fakeGateway{metadataErr: errors.New("rate limited")}
	nm := groupMsg("m1", "storm", "x@s.whatsapp.net")
	nm.Mentions = []string{"a@s", "b@s", "c@s", "d@s", "e@s"}

	v := classifyTagStorm(nm, gw)
	assert.False(t, v.Matched, "metadata failure must not become an enforcement action")
}
