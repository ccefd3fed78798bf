package main

import (
	"context"
	"time"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// A hung transport call must not stall the dispatcher; expiry is treated
// like any other gateway failure.
const gatewayTimeout = 10 * time.Second

// GroupParticipant is the slice of group metadata the classifiers need.
type GroupParticipant struct {
	JID     string
	IsAdmin bool
}

type GroupInfo struct {
	Subject      string
	Participants []GroupParticipant
}

// Gateway is the messaging transport as the moderation core sees it.
// The core never touches the whatsmeow client directly; tests substitute
// a recording fake.
type Gateway interface {
	SendText(chatID, text string, mentions []string) error
	DeleteMessage(chatID, senderID, messageID string) error
	RemoveParticipant(chatID, userID string) error
	GroupMetadata(chatID string) (*GroupInfo, error)
	SetBlocked(userID string, blocked bool) error
	RejectCall(callFrom, callID string) error
}

// ==================== WHATSMEOW GATEWAY ====================

type waGateway struct {
	client *whatsmeow.Client
}

func NewWAGateway(client *whatsmeow.Client) Gateway {
	return &waGateway{client: client}
}

func (g *waGateway) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), gatewayTimeout)
}

func (g *waGateway) SendText(chatID, text string, mentions []string) error {
	chat, err := types.ParseJID(chatID)
	if err != nil {
		return err
	}
	ctx, cancel := g.ctx()
	defer cancel()
	_, err = g.client.SendMessage(ctx, chat, &waProto.Message{
		ExtendedTextMessage: &waProto.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waProto.ContextInfo{
				MentionedJID: mentions,
			},
		},
	})
	return err
}

func (g *waGateway) DeleteMessage(chatID, senderID, messageID string) error {
	chat, err := types.ParseJID(chatID)
	if err != nil {
		return err
	}
	sender, err := types.ParseJID(senderID)
	if err != nil {
		return err
	}
	ctx, cancel := g.ctx()
	defer cancel()
	_, err = g.client.SendMessage(ctx, chat, g.client.BuildRevoke(chat, sender, types.MessageID(messageID)))
	return err
}

func (g *waGateway) RemoveParticipant(chatID, userID string) error {
	chat, err := types.ParseJID(chatID)
	if err != nil {
		return err
	}
	user, err := types.ParseJID(userID)
	if err != nil {
		return err
	}
	ctx, cancel := g.ctx()
	defer cancel()
	_, err = g.client.UpdateGroupParticipants(ctx, chat, []types.JID{user}, whatsmeow.ParticipantChangeRemove)
	return err
}

func (g *waGateway) GroupMetadata(chatID string) (*GroupInfo, error) {
	chat, err := types.ParseJID(chatID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := g.ctx()
	defer cancel()
	info, err := g.client.GetGroupInfo(ctx, chat)
	if err != nil {
		return nil, err
	}
	out := &GroupInfo{Subject: info.Name}
	for _, p := range info.Participants {
		out.Participants = append(out.Participants, GroupParticipant{
			JID:     p.JID.String(),
			IsAdmin: p.IsAdmin || p.IsSuperAdmin,
		})
	}
	return out, nil
}

func (g *waGateway) SetBlocked(userID string, blocked bool) error {
	user, err := types.ParseJID(userID)
	if err != nil {
		return err
	}
	action := events.BlocklistChangeActionBlock
	if !blocked {
		action = events.BlocklistChangeActionUnblock
	}
	ctx, cancel := g.ctx()
	defer cancel()
	_, err = g.client.UpdateBlocklist(ctx, user, action)
	return err
}

func (g *waGateway) RejectCall(callFrom, callID string) error {
	from, err := types.ParseJID(callFrom)
	if err != nil {
		return err
	}
	ctx, cancel := g.ctx()
	defer cancel()
	return g.client.RejectCall(ctx, from, callID)
}
