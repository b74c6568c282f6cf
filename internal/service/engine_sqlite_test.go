package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aminemahd13/linksharing/config"
	"github.com/aminemahd13/linksharing/internal/dto"
	"github.com/aminemahd13/linksharing/internal/model"
	"github.com/aminemahd13/linksharing/internal/repository"
	"github.com/aminemahd13/linksharing/internal/service"
	"github.com/aminemahd13/linksharing/pkg/ratelimit"
	"github.com/aminemahd13/linksharing/pkg/token"
)

// 真实 gorm + sqlite 下的端到端流程：签发 → 预览 → 并发兑换 → 审计

func newSQLiteService(t *testing.T) (*service.Service, *gorm.DB, *model.Campaign, *model.Recipient) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(model.All()...))

	group := &model.Group{Name: "Olympiad", WhatsAppInviteURL: "https://chat.whatsapp.com/XYZ"}
	require.NoError(t, db.Create(group).Error)
	campaign := &model.Campaign{Name: "Olympiad 2026", GroupID: group.GroupID}
	require.NoError(t, db.Create(campaign).Error)
	recipient := &model.Recipient{Email: "amina@example.com"}
	require.NoError(t, db.Create(recipient).Error)

	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: "https://invites.example.org"},
		Token:  config.TokenConfig{Pepper: "sqlite-pepper", ByteLength: 32},
		RateLimit: config.RateLimitConfig{
			ConsumeLimit:  1000,
			ConsumeWindow: time.Minute,
		},
	}
	hasher, err := token.NewHasher(cfg.Token.Pepper)
	require.NoError(t, err)

	svc := service.NewService(cfg, repository.NewRepository(db), hasher, ratelimit.NewMemory(),
		service.NopNotifier{Logger: zap.NewNop()}, zap.NewNop())
	return svc, db, campaign, recipient
}

func TestEngine_SQLite_IssuePreviewConsume(t *testing.T) {
	svc, db, campaign, recipient := newSQLiteService(t)
	ctx := context.Background()

	issued, err := svc.Link.Issue(ctx, &dto.IssueLinkRequest{CampaignID: campaign.CampaignID, RecipientID: recipient.RecipientID}, "admin-1")
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)

	preview, err := svc.Link.Preview(ctx, issued.Token)
	require.NoError(t, err)
	require.Equal(t, "Olympiad 2026", preview.CampaignName)
	require.Equal(t, string(model.LinkStatusActive), preview.Status)

	const workers = 20
	var (
		wg      sync.WaitGroup
		success int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Redeem.Consume(ctx, issued.Token, service.RedeemContext{ClientIP: "10.0.0.1"})
			if err == nil {
				if resp.RedirectURL != "https://chat.whatsapp.com/XYZ" {
					t.Errorf("unexpected redirect: %s", resp.RedirectURL)
				}
				atomic.AddInt32(&success, 1)
				return
			}
			var notActive *service.NotActiveError
			if !errors.Is(err, service.ErrRaceLost) && !errors.As(err, &notActive) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, success)

	var stored model.InviteLink
	require.NoError(t, db.First(&stored, "invite_link_id = ?", issued.ID).Error)
	require.Equal(t, model.LinkStatusUsed, stored.Status)
	require.NotNil(t, stored.UsedIP)
	require.Equal(t, "10.0.0.1", *stored.UsedIP)

	var consumed int64
	require.NoError(t, db.Model(&model.AuditLog{}).
		Where("action = ? AND entity_id = ?", model.AuditInviteConsumed, issued.ID).
		Count(&consumed).Error)
	require.EqualValues(t, 1, consumed)
}

func TestEngine_SQLite_DisabledThenRegenerated(t *testing.T) {
	svc, _, campaign, recipient := newSQLiteService(t)
	ctx := context.Background()

	issued, err := svc.Link.Issue(ctx, &dto.IssueLinkRequest{CampaignID: campaign.CampaignID, RecipientID: recipient.RecipientID}, "admin-1")
	require.NoError(t, err)

	_, err = svc.Link.Disable(ctx, issued.ID, "admin-1")
	require.NoError(t, err)

	_, err = svc.Redeem.Consume(ctx, issued.Token, service.RedeemContext{ClientIP: "10.0.0.2"})
	var notActive *service.NotActiveError
	require.ErrorAs(t, err, &notActive)
	require.Equal(t, model.LinkStatusDisabled, notActive.Status)

	regenerated, err := svc.Link.Regenerate(ctx, issued.ID, "admin-1")
	require.NoError(t, err)

	_, err = svc.Redeem.Consume(ctx, issued.Token, service.RedeemContext{ClientIP: "10.0.0.2"})
	require.ErrorIs(t, err, service.ErrLinkNotFound)

	_, err = svc.Redeem.Consume(ctx, regenerated.Token, service.RedeemContext{ClientIP: "10.0.0.2"})
	require.NoError(t, err)

	_, err = svc.Link.CopyURL(ctx, issued.ID, "admin-1")
	require.ErrorIs(t, err, service.ErrTokenUnavailable)
}
