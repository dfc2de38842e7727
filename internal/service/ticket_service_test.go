package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/mns-opti/ticket-bridge/internal/config"
	"github.com/mns-opti/ticket-bridge/internal/domain"
	"github.com/mns-opti/ticket-bridge/internal/events"
	apperrors "github.com/mns-opti/ticket-bridge/pkg/util/errorutil"
)

const (
	testGuildID    = "guild-1"
	testCategoryID = "cat-1"
	testBotID      = "bot-1"
)

type fakePlatform struct {
	ready      bool
	botID      string
	guildErr   error
	channelErr error
	category   *discordgo.Channel
	perms      int64
	permsErr   error
	createErr  error
	sendErr    error

	remoteCalls int
	created     []discordgo.GuildChannelCreateData
	sent        []*discordgo.MessageSend
}

func (f *fakePlatform) Ready() bool       { return f.ready }
func (f *fakePlatform) BotUserID() string { return f.botID }

func (f *fakePlatform) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	f.remoteCalls++
	if f.guildErr != nil {
		return nil, f.guildErr
	}
	return &discordgo.Guild{ID: guildID}, nil
}

func (f *fakePlatform) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	f.remoteCalls++
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	if f.category != nil {
		return f.category, nil
	}
	return &discordgo.Channel{ID: channelID, Type: discordgo.ChannelTypeGuildCategory}, nil
}

func (f *fakePlatform) BotPermissions(ctx context.Context, guildID string) (int64, error) {
	f.remoteCalls++
	if f.permsErr != nil {
		return 0, f.permsErr
	}
	return f.perms, nil
}

func (f *fakePlatform) CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	f.remoteCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, data)
	return &discordgo.Channel{ID: "chan-1", Name: data.Name, ParentID: data.ParentID}, nil
}

func (f *fakePlatform) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	f.remoteCalls++
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, msg)
	return &discordgo.Message{ID: "msg-1", ChannelID: channelID}, nil
}

func allRequiredPerms() int64 {
	return discordgo.PermissionViewChannel |
		discordgo.PermissionManageChannels |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory
}

func healthyPlatform() *fakePlatform {
	return &fakePlatform{
		ready: true,
		botID: testBotID,
		perms: allRequiredPerms(),
	}
}

func testTicketsConfig() config.TicketsConfig {
	return config.TicketsConfig{
		GuildID:      testGuildID,
		CategoryID:   testCategoryID,
		StaffRoleIDs: []string{"staff-1", "staff-2"},
		EmbedFooter:  "MNS OPTI",
	}
}

func newService(platform ChatPlatform, cfg config.TicketsConfig) *TicketService {
	return NewTicketService(platform, cfg, events.NewInMemoryDispatcher(), zap.NewNop())
}

func validRequest() domain.TicketRequest {
	return domain.TicketRequest{
		Pseudo:  "Alice_99!",
		Subject: "Billing issue",
		Details: "Charged twice",
	}
}

func assertDomainError(t *testing.T, err error, code string, status int) *apperrors.DomainError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, domainErr.Code, err)
	}
	if domainErr.HTTPStatus != status {
		t.Fatalf("expected status %d, got %d", status, domainErr.HTTPStatus)
	}
	return domainErr
}

func TestCreateTicketBotNotReady(t *testing.T) {
	platform := healthyPlatform()
	platform.ready = false
	svc := newService(platform, testTicketsConfig())

	_, err := svc.CreateTicket(context.Background(), validRequest())
	assertDomainError(t, err, "BOT_NOT_READY", 503)
	if platform.remoteCalls != 0 {
		t.Fatalf("expected no remote calls, got %d", platform.remoteCalls)
	}
}

func TestCreateTicketMissingConfig(t *testing.T) {
	platform := healthyPlatform()
	cfg := testTicketsConfig()
	cfg.CategoryID = ""
	cfg.StaffRoleIDs = nil
	svc := newService(platform, cfg)

	_, err := svc.CreateTicket(context.Background(), validRequest())
	domainErr := assertDomainError(t, err, "MISSING_CONFIG", 500)
	missing, ok := domainErr.Extra["missing"].([]string)
	if !ok || len(missing) != 2 {
		t.Fatalf("expected two missing keys, got %v", domainErr.Extra["missing"])
	}
	if platform.remoteCalls != 0 {
		t.Fatalf("expected no remote calls, got %d", platform.remoteCalls)
	}
}

func TestCreateTicketBadGuildID(t *testing.T) {
	platform := healthyPlatform()
	platform.guildErr = errors.New("unknown guild")
	svc := newService(platform, testTicketsConfig())

	_, err := svc.CreateTicket(context.Background(), validRequest())
	assertDomainError(t, err, "BAD_GUILD_ID", 500)
}

func TestCreateTicketBadCategoryID(t *testing.T) {
	platform := healthyPlatform()
	platform.channelErr = errors.New("unknown channel")
	svc := newService(platform, testTicketsConfig())

	_, err := svc.CreateTicket(context.Background(), validRequest())
	assertDomainError(t, err, "BAD_CATEGORY_ID", 500)
}

func TestCreateTicketNotACategory(t *testing.T) {
	platform := healthyPlatform()
	platform.category = &discordgo.Channel{ID: testCategoryID, Type: discordgo.ChannelTypeGuildText}
	svc := newService(platform, testTicketsConfig())

	_, err := svc.CreateTicket(context.Background(), validRequest())
	assertDomainError(t, err, "NOT_A_CATEGORY", 500)
	if len(platform.created) != 0 {
		t.Fatal("no channel should be created for a non-category parent")
	}
}

func TestCreateTicketMissingManageChannels(t *testing.T) {
	platform := healthyPlatform()
	platform.perms = allRequiredPerms() &^ discordgo.PermissionManageChannels
	svc := newService(platform, testTicketsConfig())

	_, err := svc.CreateTicket(context.Background(), validRequest())
	domainErr := assertDomainError(t, err, "MISSING_BOT_PERMS", 500)
	missing, ok := domainErr.Extra["missingPerms"].([]string)
	if !ok {
		t.Fatalf("missingPerms extra absent: %v", domainErr.Extra)
	}
	if len(missing) != 1 || missing[0] != "ManageChannels" {
		t.Fatalf("expected [ManageChannels], got %v", missing)
	}
}

func TestCreateTicketMissingSeveralPerms(t *testing.T) {
	platform := healthyPlatform()
	platform.perms = 0
	svc := newService(platform, testTicketsConfig())

	_, err := svc.CreateTicket(context.Background(), validRequest())
	domainErr := assertDomainError(t, err, "MISSING_BOT_PERMS", 500)
	missing := domainErr.Extra["missingPerms"].([]string)
	want := []string{"ViewChannel", "ManageChannels", "SendMessages", "ReadMessageHistory"}
	if len(missing) != len(want) {
		t.Fatalf("expected %v, got %v", want, missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, missing)
		}
	}
}

func TestCreateTicketProvisionFailure(t *testing.T) {
	platform := healthyPlatform()
	platform.createErr = errors.New("rate limited")
	svc := newService(platform, testTicketsConfig())

	_, err := svc.CreateTicket(context.Background(), validRequest())
	assertDomainError(t, err, "SERVER_ERROR", 500)
}

func TestCreateTicketNotifyFailureKeepsChannel(t *testing.T) {
	platform := healthyPlatform()
	platform.sendErr = errors.New("send failed")
	svc := newService(platform, testTicketsConfig())

	_, err := svc.CreateTicket(context.Background(), validRequest())
	assertDomainError(t, err, "SERVER_ERROR", 500)
	// the channel was created and is not rolled back
	if len(platform.created) != 1 {
		t.Fatalf("expected one created channel, got %d", len(platform.created))
	}
}

func TestCreateTicketHappyPath(t *testing.T) {
	platform := healthyPlatform()
	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventTicketProvisioned, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	svc := NewTicketService(platform, testTicketsConfig(), dispatcher, zap.NewNop())

	ticket, err := svc.CreateTicket(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if !regexp.MustCompile(`^MNS-[A-Z0-9]{8}$`).MatchString(ticket.ID) {
		t.Fatalf("bad ticket id %q", ticket.ID)
	}
	wantURL := "https://discord.com/channels/" + testGuildID + "/chan-1"
	if ticket.ChannelURL != wantURL {
		t.Fatalf("channel url %q, want %q", ticket.ChannelURL, wantURL)
	}

	if len(platform.created) != 1 {
		t.Fatalf("expected one channel creation, got %d", len(platform.created))
	}
	created := platform.created[0]
	wantName := "ticket-alice_99-" + strings.ToLower(ticket.ID)
	if created.Name != wantName {
		t.Fatalf("channel name %q, want %q", created.Name, wantName)
	}
	if created.Type != discordgo.ChannelTypeGuildText {
		t.Fatalf("channel type %v, want guild text", created.Type)
	}
	if created.ParentID != testCategoryID {
		t.Fatalf("parent %q, want %q", created.ParentID, testCategoryID)
	}
	for _, part := range []string{ticket.ID, "Alice_99!", "—", "Billing issue"} {
		if !strings.Contains(created.Topic, part) {
			t.Fatalf("topic %q missing %q", created.Topic, part)
		}
	}

	assertOverwrites(t, created.PermissionOverwrites)

	if len(platform.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(platform.sent))
	}
	msg := platform.sent[0]
	if !strings.Contains(msg.Content, "<@&staff-1>") || !strings.Contains(msg.Content, "<@&staff-2>") {
		t.Fatalf("content %q missing staff mentions", msg.Content)
	}
	if len(msg.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(msg.Embeds))
	}
	embed := msg.Embeds[0]
	if !strings.Contains(embed.Title, ticket.ID) {
		t.Fatalf("embed title %q missing ticket id", embed.Title)
	}
	wantFields := map[string]string{
		"Pseudo":  "Alice_99!",
		"Contact": "—",
		"Sujet":   "Billing issue",
		"Détails": "Charged twice",
	}
	if len(embed.Fields) != len(wantFields) {
		t.Fatalf("expected %d fields, got %d", len(wantFields), len(embed.Fields))
	}
	for _, field := range embed.Fields {
		if want, ok := wantFields[field.Name]; !ok || field.Value != want {
			t.Fatalf("field %q = %q, want %q", field.Name, field.Value, want)
		}
	}
	if embed.Footer == nil || embed.Footer.Text != "MNS OPTI" {
		t.Fatalf("unexpected footer %+v", embed.Footer)
	}

	if len(published) != 1 {
		t.Fatalf("expected one provisioned event, got %d", len(published))
	}
	payload, ok := published[0].Payload.(events.TicketProvisionedPayload)
	if !ok || payload.ChannelID != "chan-1" || payload.GuildID != testGuildID {
		t.Fatalf("unexpected event payload %+v", published[0].Payload)
	}
}

func TestCreateTicketTruncatesEmbedFields(t *testing.T) {
	platform := healthyPlatform()
	svc := newService(platform, testTicketsConfig())

	req := domain.TicketRequest{
		Pseudo:  strings.Repeat("p", 150),
		Contact: strings.Repeat("c", 150),
		Subject: strings.Repeat("s", 300),
		Details: strings.Repeat("d", 2000),
	}
	if _, err := svc.CreateTicket(context.Background(), req); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if len(platform.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(platform.sent))
	}
	caps := map[string]int{
		"Pseudo":  100,
		"Contact": 100,
		"Sujet":   256,
		"Détails": 1024,
	}
	for _, field := range platform.sent[0].Embeds[0].Fields {
		want, ok := caps[field.Name]
		if !ok {
			t.Fatalf("unexpected field %q", field.Name)
		}
		if len(field.Value) != want {
			t.Fatalf("field %q length %d, want exactly %d", field.Name, len(field.Value), want)
		}
	}
}

func TestCreateTicketTruncationKeepsValidUTF8(t *testing.T) {
	platform := healthyPlatform()
	svc := newService(platform, testTicketsConfig())

	// the two-byte "é" starts at byte 1023, so a naive 1024-byte cut would
	// split it in half
	req := validRequest()
	req.Details = strings.Repeat("a", 1023) + "était"
	if _, err := svc.CreateTicket(context.Background(), req); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	var details string
	for _, field := range platform.sent[0].Embeds[0].Fields {
		if field.Name == "Détails" {
			details = field.Value
		}
	}
	if len(details) == 0 || len(details) > 1024 {
		t.Fatalf("details length %d, want 1..1024", len(details))
	}
	if !utf8.ValidString(details) {
		t.Fatalf("truncated details is not valid UTF-8: %q", details[len(details)-4:])
	}
	if len(details) != 1023 {
		t.Fatalf("details length %d, want 1023 (cut backed off the split rune)", len(details))
	}
}

func assertOverwrites(t *testing.T, overwrites []*discordgo.PermissionOverwrite) {
	t.Helper()
	byID := make(map[string]*discordgo.PermissionOverwrite, len(overwrites))
	for _, ow := range overwrites {
		byID[ow.ID] = ow
	}

	everyone, ok := byID[testGuildID]
	if !ok {
		t.Fatal("missing @everyone overwrite")
	}
	if everyone.Type != discordgo.PermissionOverwriteTypeRole || everyone.Deny&discordgo.PermissionViewChannel == 0 {
		t.Fatalf("@everyone must be denied ViewChannel, got %+v", everyone)
	}

	staffAllow := int64(discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionAttachFiles |
		discordgo.PermissionEmbedLinks)
	for _, roleID := range []string{"staff-1", "staff-2"} {
		staff, ok := byID[roleID]
		if !ok {
			t.Fatalf("missing overwrite for %s", roleID)
		}
		if staff.Type != discordgo.PermissionOverwriteTypeRole || staff.Allow != staffAllow {
			t.Fatalf("unexpected staff overwrite %+v", staff)
		}
	}

	bot, ok := byID[testBotID]
	if !ok {
		t.Fatal("missing bot overwrite")
	}
	if bot.Type != discordgo.PermissionOverwriteTypeMember || bot.Allow&discordgo.PermissionManageChannels == 0 {
		t.Fatalf("bot overwrite must grant ManageChannels, got %+v", bot)
	}
}

func TestCreateTicketFailurePublishesEvent(t *testing.T) {
	platform := healthyPlatform()
	platform.ready = false
	dispatcher := events.NewInMemoryDispatcher()
	var failures []events.Event
	dispatcher.Subscribe(events.EventTicketProvisioningFailed, func(_ context.Context, e events.Event) error {
		failures = append(failures, e)
		return nil
	})
	svc := NewTicketService(platform, testTicketsConfig(), dispatcher, zap.NewNop())

	_, err := svc.CreateTicket(context.Background(), validRequest())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(failures) != 1 {
		t.Fatalf("expected one failure event, got %d", len(failures))
	}
	payload := failures[0].Payload.(events.TicketProvisioningFailedPayload)
	if payload.Code != "BOT_NOT_READY" {
		t.Fatalf("failure code %q, want BOT_NOT_READY", payload.Code)
	}
}
