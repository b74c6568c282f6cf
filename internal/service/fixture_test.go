package service

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aminemahd13/linksharing/config"
	"github.com/aminemahd13/linksharing/internal/model"
	"github.com/aminemahd13/linksharing/internal/repository"
	"github.com/aminemahd13/linksharing/pkg/token"
)

const (
	testPepper     = "test-pepper-0123456789"
	testGroupURL   = "https://chat.whatsapp.com/ABCDEF"
	testCampaignID = "camp-1"
	testLinkID     = "link-1"
)

// ── 测试辅助 ──

type fixture struct {
	links      *mockInviteLinkRepo
	campaigns  *mockCampaignRepo
	recipients *mockRecipientRepo
	audit      *mockAuditLogRepo
	limiter    *mockLimiter
	notifier   *mockNotifier
	hasher     *token.Hasher
	repo       *repository.Repository
	cfg        *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hasher, err := token.NewHasher(testPepper)
	if err != nil {
		t.Fatalf("NewHasher 应成功: %v", err)
	}

	campaign := &model.Campaign{
		CampaignID: testCampaignID,
		Name:       "Olympiad 2026",
		GroupID:    "grp-1",
		Group:      &model.Group{GroupID: "grp-1", Name: "Olympiad", WhatsAppInviteURL: testGroupURL},
	}
	name := "Salma"
	recipient := &model.Recipient{RecipientID: "rcp-1", Email: "salma@example.com", Name: &name}

	f := &fixture{
		links:      newMockInviteLinkRepo(),
		campaigns:  &mockCampaignRepo{campaigns: map[string]*model.Campaign{testCampaignID: campaign}},
		recipients: &mockRecipientRepo{recipients: make(map[string]*model.Recipient)},
		audit:      &mockAuditLogRepo{},
		limiter:    &mockLimiter{allow: true},
		notifier:   &mockNotifier{},
		hasher:     hasher,
		cfg: &config.Config{
			Server: config.ServerConfig{BaseURL: "https://invites.example.org/"},
			Token:  config.TokenConfig{Pepper: testPepper, ByteLength: 32},
			RateLimit: config.RateLimitConfig{
				ConsumeLimit:  5,
				ConsumeWindow: time.Minute,
			},
		},
	}
	f.links.campaigns[testCampaignID] = campaign
	f.addRecipient(recipient)

	f.repo = &repository.Repository{
		InviteLink: f.links,
		Campaign:   f.campaigns,
		Recipient:  f.recipients,
		AuditLog:   f.audit,
	}
	return f
}

func (f *fixture) addRecipient(r *model.Recipient) {
	f.recipients.add(r)
	f.links.recipients[r.RecipientID] = r
}

// seed 写入一条链接；plain 为 true 时同时保留明文令牌
func (f *fixture) seed(id string, status model.LinkStatus, raw string, plain bool) {
	link := &model.InviteLink{
		InviteLinkID: id,
		TokenDigest:  f.hasher.Digest(raw),
		Status:       status,
		CampaignID:   testCampaignID,
		RecipientID:  "rcp-1",
	}
	if plain {
		p := raw
		link.TokenPlain = &p
	}
	link.Version = 1
	f.links.links[id] = link
}

func (f *fixture) redeemService(now time.Time) *redeemService {
	svc := NewRedeemService(&f.cfg.RateLimit, f.repo, f.hasher, f.limiter, zap.NewNop()).(*redeemService)
	svc.now = func() time.Time { return now }
	return svc
}

func (f *fixture) linkService() *linkService {
	return NewLinkService(f.cfg, f.repo, f.hasher, f.notifier, zap.NewNop()).(*linkService)
}
