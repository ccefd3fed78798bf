package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

// ==================== EVENT HANDLER ====================

func handleEvent(client *whatsmeow.Client, mod *Moderation, evt interface{}) {
	// One misbehaving event must not take the whole bot down.
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("⚠️ [CRASH PREVENTED] Event handler error: %v\n", r)
		}
	}()

	switch v := evt.(type) {
	case *events.Message:
		go processMessage(client, mod, v)
	case *events.CallOffer:
		go mod.HandleCall(v.From.String(), v.CallID)
	case *events.Connected:
		if client.Store.ID != nil {
			mod.SetSelf(client.Store.ID.User)
		}
		fmt.Println("✅ [STATUS] Connected")
	case *events.LoggedOut:
		fmt.Println("ℹ️ [STATUS] Logged out")
	}
}

func normalizeMessage(v *events.Message) *NormalizedMessage {
	var mentions []string
	if ext := v.Message.GetExtendedTextMessage(); ext != nil && ext.ContextInfo != nil {
		mentions = ext.ContextInfo.MentionedJID
	}
	return &NormalizedMessage{
		ID:         string(v.Info.ID),
		Text:       getText(v.Message),
		Mentions:   mentions,
		SenderID:   v.Info.Sender.String(),
		SenderName: v.Info.PushName,
		ChatID:     v.Info.Chat.String(),
		IsGroup:    v.Info.IsGroup,
		Timestamp:  v.Info.Timestamp,
	}
}

func processMessage(client *whatsmeow.Client, mod *Moderation, v *events.Message) {
	nm := normalizeMessage(v)

	// Moderation sees every message, including from banned users. Each
	// message gets its own pipeline; pipelines for different senders may
	// interleave freely.
	go mod.HandleMessage(nm)

	// Banned users get no command surface at all.
	if mod.bans.Contains(nm.SenderID) {
		return
	}

	body := strings.TrimSpace(nm.Text)
	prefix := mod.prefix()
	if body == "" || !strings.HasPrefix(body, prefix) {
		return
	}

	split := strings.Fields(strings.TrimPrefix(body, prefix))
	if len(split) == 0 {
		return
	}
	cmd := strings.ToLower(split[0])
	args := split[1:]

	if !canExecute(client, mod, v, cmd) {
		return
	}

	fmt.Printf("🚀 [EXEC] CMD: %s | Chat: %s\n", cmd, nm.ChatID)

	switch cmd {
	// moderation feature config
	case "antilink":
		if requireGroupAdmin(client, mod, v) {
			replyMessage(client, v, mod.handleAntilink(nm.ChatID, args))
		}
	case "antitag":
		if requireGroupAdmin(client, mod, v) {
			replyMessage(client, v, mod.handleAntitag(nm.ChatID, args))
		}
	case "antibadword":
		if requireGroupAdmin(client, mod, v) {
			replyMessage(client, v, mod.handleAntibadword(nm.ChatID, args))
		}
	case "antiforeign":
		if requireGroupAdmin(client, mod, v) {
			replyMessage(client, v, mod.handleAntiforeign(nm.ChatID, args))
		}
	case "antibot":
		if requireOwner(client, mod, v) {
			replyMessage(client, v, mod.handleAntibot(args))
		}
	case "anticall":
		if requireOwner(client, mod, v) {
			replyMessage(client, v, mod.handleAnticall(args))
		}

	// warning ledger
	case "warn":
		if requireGroupAdmin(client, mod, v) {
			handleWarnCommand(client, mod, v, args)
		}
	case "resetwarns":
		if requireGroupAdmin(client, mod, v) {
			handleResetWarns(client, mod, v, args)
		}

	// ban list
	case "ban":
		if requireOwner(client, mod, v) {
			handleBan(client, mod, v, args)
		}
	case "unban":
		if requireOwner(client, mod, v) {
			handleUnban(client, mod, v, args)
		}
	case "banlist":
		if requireOwner(client, mod, v) {
			handleBanlist(client, mod, v)
		}
	case "unmute":
		if requireOwner(client, mod, v) {
			handleUnmute(client, mod, v, args)
		}

	// group admin tools
	case "kick":
		groupAction(client, mod, v, args, whatsmeow.ParticipantChangeRemove, "Kicked", "👢")
	case "promote":
		groupAction(client, mod, v, args, whatsmeow.ParticipantChangePromote, "Promoted", "⬆️")
	case "demote":
		groupAction(client, mod, v, args, whatsmeow.ParticipantChangeDemote, "Demoted", "⬇️")
	case "mode":
		handleMode(client, mod, v, args)

	// misc
	case "setprefix":
		if requireOwner(client, mod, v) {
			handleSetPrefix(client, mod, v, args)
		}
	case "ping":
		sendPing(client, v)
	case "menu", "help":
		sendMenu(client, mod, v)
	}
}

// ==================== PERMISSIONS ====================

func isOwner(mod *Moderation, sender types.JID) bool {
	return mod.isSudo(sender.String())
}

func isAdmin(client *whatsmeow.Client, chat, user types.JID) bool {
	info, err := client.GetGroupInfo(context.Background(), chat)
	if err != nil {
		return false
	}
	userClean := getCleanID(user.String())
	for _, p := range info.Participants {
		if getCleanID(p.JID.String()) == userClean && (p.IsAdmin || p.IsSuperAdmin) {
			return true
		}
	}
	return false
}

func canExecute(client *whatsmeow.Client, mod *Moderation, v *events.Message, cmd string) bool {
	if isOwner(mod, v.Info.Sender) {
		return true
	}
	if !v.Info.IsGroup {
		return true
	}
	s := mod.groupSettings(v.Info.Chat.String())
	if s.Mode == "private" {
		return false
	}
	if s.Mode == "admin" {
		return isAdmin(client, v.Info.Chat, v.Info.Sender)
	}
	return true
}

func requireGroupAdmin(client *whatsmeow.Client, mod *Moderation, v *events.Message) bool {
	if !v.Info.IsGroup {
		replyMessage(client, v, errorCard("This command works only in group chats"))
		return false
	}
	if !isAdmin(client, v.Info.Chat, v.Info.Sender) && !isOwner(mod, v.Info.Sender) {
		replyMessage(client, v, errorCard("🔒 Admin only command"))
		return false
	}
	return true
}

func requireOwner(client *whatsmeow.Client, mod *Moderation, v *events.Message) bool {
	if !isOwner(mod, v.Info.Sender) {
		replyMessage(client, v, errorCard("🔒 Owner only command"))
		return false
	}
	return true
}

// ==================== COMMAND HANDLERS ====================

// targetJID resolves a command target from args, reply context or the
// first mention.
func targetJID(v *events.Message, args []string) (types.JID, bool) {
	if len(args) > 0 {
		return parseJID(strings.ReplaceAll(args[0], "+", ""))
	}
	if ext := v.Message.GetExtendedTextMessage(); ext != nil && ext.ContextInfo != nil {
		if ext.ContextInfo.Participant != nil {
			return parseJID(*ext.ContextInfo.Participant)
		}
		if len(ext.ContextInfo.MentionedJID) > 0 {
			return parseJID(ext.ContextInfo.MentionedJID[0])
		}
	}
	return types.EmptyJID, false
}

func handleWarnCommand(client *whatsmeow.Client, mod *Moderation, v *events.Message, args []string) {
	target, ok := targetJID(v, args)
	if !ok {
		replyMessage(client, v, errorCard("Mention or reply to a user"))
		return
	}
	chatID := v.Info.Chat.String()
	count := mod.warns.Bump(chatID, target.String())
	if count >= mod.warnLimit {
		mod.warns.Reset(chatID, target.String())
		if err := mod.gw.RemoveParticipant(chatID, target.String()); err != nil {
			mod.log.Warnf("manual warn kick failed: %v", err)
		}
		replyMessage(client, v, kickCard("manual warn", target.String(), true, mod.warnLimit))
		return
	}
	replyMessage(client, v, warnCard("manual warn", target.String(), count, mod.warnLimit))
}

func handleResetWarns(client *whatsmeow.Client, mod *Moderation, v *events.Message, args []string) {
	target, ok := targetJID(v, args)
	if !ok {
		replyMessage(client, v, errorCard("Mention or reply to a user"))
		return
	}
	mod.warns.Reset(v.Info.Chat.String(), target.String())
	replyMessage(client, v, fmt.Sprintf(`╔═══════════════════╗
║ 🔄 WARNINGS RESET
╠═══════════════════╣
║ 👤 User: @%s
╚═══════════════════╝`, target.User))
}

func handleBan(client *whatsmeow.Client, mod *Moderation, v *events.Message, args []string) {
	target, ok := targetJID(v, args)
	if !ok {
		replyMessage(client, v, errorCard("Mention or reply to a user"))
		return
	}
	if err := mod.bans.Add(target.String(), "manual ban"); err != nil {
		mod.log.Warnf("ban persist failed: %v", err)
	}
	replyMessage(client, v, banCard("manual", target.String()))
}

func handleUnban(client *whatsmeow.Client, mod *Moderation, v *events.Message, args []string) {
	target, ok := targetJID(v, args)
	if !ok {
		replyMessage(client, v, errorCard("Mention or reply to a user"))
		return
	}
	if err := mod.bans.Remove(target.String()); err != nil {
		mod.log.Warnf("unban failed: %v", err)
	}
	replyMessage(client, v, fmt.Sprintf(`╔═══════════════════╗
║ ✅ USER UNBANNED
╠═══════════════════╣
║ 👤 User: @%s
╚═══════════════════╝`, target.User))
}

func handleBanlist(client *whatsmeow.Client, mod *Moderation, v *events.Message) {
	banned := mod.bans.All()
	if len(banned) == 0 {
		replyMessage(client, v, errorCard("Ban list is empty"))
		return
	}
	out := "╔═══════════════════╗\n║ 🔨 BAN LIST\n╠═══════════════════╣"
	for i, jid := range banned {
		out += fmt.Sprintf("\n║ %d. %s", i+1, jid)
	}
	out += fmt.Sprintf("\n╠═══════════════════╣\n║ 📊 Total: %d\n╚═══════════════════╝", len(banned))
	replyMessage(client, v, out)
}

func handleUnmute(client *whatsmeow.Client, mod *Moderation, v *events.Message, args []string) {
	target, ok := targetJID(v, args)
	if !ok {
		replyMessage(client, v, errorCard("Mention or reply to a user"))
		return
	}
	mod.unmuteUser(target.String())
	replyMessage(client, v, fmt.Sprintf(`╔═══════════════════╗
║ 🔊 USER UNMUTED
╠═══════════════════╣
║ 👤 User: @%s
╚═══════════════════╝`, target.User))
}

func groupAction(client *whatsmeow.Client, mod *Moderation, v *events.Message, args []string, change whatsmeow.ParticipantChange, actionText, emoji string) {
	if !requireGroupAdmin(client, mod, v) {
		return
	}
	target, ok := targetJID(v, args)
	if !ok {
		replyMessage(client, v, errorCard("Mention or reply to a user"))
		return
	}
	if target.User == v.Info.Sender.User && change == whatsmeow.ParticipantChangeRemove {
		replyMessage(client, v, errorCard("You cannot kick yourself"))
		return
	}

	_, err := client.UpdateGroupParticipants(context.Background(), v.Info.Chat, []types.JID{target}, change)
	if err != nil {
		replyMessage(client, v, errorCard("Action failed, am I admin?"))
		return
	}

	msg := fmt.Sprintf(`╔═══════════════════╗
║ %s %s
╠═══════════════════╣
║ 👤 User: @%s
║ ✅ Successfully %s
╚═══════════════════╝`, emoji, strings.ToUpper(actionText), target.User, actionText)

	client.SendMessage(context.Background(), v.Info.Chat, &waProto.Message{
		ExtendedTextMessage: &waProto.ExtendedTextMessage{
			Text: proto.String(msg),
			ContextInfo: &waProto.ContextInfo{
				MentionedJID: []string{target.String()},
			},
		},
	})
}

func handleMode(client *whatsmeow.Client, mod *Moderation, v *events.Message, args []string) {
	if !requireGroupAdmin(client, mod, v) {
		return
	}
	if len(args) < 1 {
		replyMessage(client, v, usageCard("mode", "public | admin | private"))
		return
	}
	mode := strings.ToLower(args[0])
	if mode != "public" && mode != "private" && mode != "admin" {
		replyMessage(client, v, usageCard("mode", "public | admin | private"))
		return
	}
	mod.setGroupMode(v.Info.Chat.String(), mode)
	replyMessage(client, v, statusCard("GROUP MODE", strings.ToUpper(mode), "-"))
}

func handleSetPrefix(client *whatsmeow.Client, mod *Moderation, v *events.Message, args []string) {
	if len(args) < 1 {
		replyMessage(client, v, usageCard("setprefix", "<symbol>"))
		return
	}
	mod.store.Set("settings", "prefix", args[0])
	replyMessage(client, v, fmt.Sprintf("✅ Prefix updated to [%s]", args[0]))
}

func (m *Moderation) prefix() string {
	var p string
	found, err := m.store.Get("settings", "prefix", &p)
	if err != nil || !found || p == "" {
		return "."
	}
	return p
}

// ==================== INFO CARDS ====================

func sendPing(client *whatsmeow.Client, v *events.Message) {
	start := time.Now()
	time.Sleep(10 * time.Millisecond)
	ms := time.Since(start).Milliseconds()
	replyMessage(client, v, fmt.Sprintf(`╔════════════════╗
║ ⚡ PING STATUS
╠════════════════╣
║ 🚀 Speed: %d MS
║ 👑 Dev: %s
║ 🟢 System Running
╚════════════════╝`, ms, OWNER_NAME))
}

func sendMenu(client *whatsmeow.Client, mod *Moderation, v *events.Message) {
	p := mod.prefix()
	menu := fmt.Sprintf(`╔═════════════════╗
║   %s
╠═════════════════╣
║ 👑 *Owner:* %s
║
║  ╭──── MODERATION ────╮
║  │ 🔸 *%santilink* - Links
║  │ 🔸 *%santitag* - Tag storms
║  │ 🔸 *%santibadword* - Language
║  │ 🔸 *%santibot* - Bot accounts
║  │ 🔸 *%santiforeign* - Numbers
║  │ 🔸 *%santicall* - Calls
║  ╰────────────────────╯
║
║  ╭──── ENFORCEMENT ───╮
║  │ 🔸 *%swarn* - Warn user
║  │ 🔸 *%sresetwarns* - Clear
║  │ 🔸 *%sban* / *%sunban*
║  │ 🔸 *%sbanlist* - Show bans
║  │ 🔸 *%skick* - Remove user
║  ╰────────────────────╯
║
║  ╭──── GROUP ─────────╮
║  │ 🔸 *%spromote* / *%sdemote*
║  │ 🔸 *%smode* - Access mode
║  │ 🔸 *%ssetprefix* - Prefix
║  │ 🔸 *%sping* - Status
║  ╰────────────────────╯
╚═════════════════╝`,
		BOT_NAME, OWNER_NAME,
		p, p, p, p, p, p,
		p, p, p, p, p, p,
		p, p, p, p, p)
	replyMessage(client, v, menu)
}

// ==================== HELPERS ====================

func replyMessage(client *whatsmeow.Client, v *events.Message, text string) {
	client.SendMessage(context.Background(), v.Info.Chat, &waProto.Message{
		ExtendedTextMessage: &waProto.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waProto.ContextInfo{
				StanzaID:      proto.String(string(v.Info.ID)),
				Participant:   proto.String(v.Info.Sender.String()),
				QuotedMessage: v.Message,
			},
		},
	})
}

func getText(m *waProto.Message) string {
	if m == nil {
		return ""
	}
	if m.Conversation != nil {
		return *m.Conversation
	}
	if m.ExtendedTextMessage != nil && m.ExtendedTextMessage.Text != nil {
		return *m.ExtendedTextMessage.Text
	}
	if m.ImageMessage != nil && m.ImageMessage.Caption != nil {
		return *m.ImageMessage.Caption
	}
	if m.VideoMessage != nil && m.VideoMessage.Caption != nil {
		return *m.VideoMessage.Caption
	}
	return ""
}

func getCleanID(jidStr string) string {
	if jidStr == "" {
		return "unknown"
	}
	userPart := strings.Split(jidStr, "@")[0]
	if strings.Contains(userPart, ":") {
		userPart = strings.Split(userPart, ":")[0]
	}
	if strings.Contains(userPart, ".") {
		userPart = strings.Split(userPart, ".")[0]
	}
	return strings.TrimSpace(userPart)
}

func parseJID(arg string) (types.JID, bool) {
	if arg == "" {
		return types.EmptyJID, false
	}
	if !strings.Contains(arg, "@") {
		arg += "@s.whatsapp.net"
	}
	jid, err := types.ParseJID(arg)
	if err != nil {
		return types.EmptyJID, false
	}
	return jid, true
}
