package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aminemahd13/linksharing/internal/model"
)

// newTestDB 内存 sqlite；单连接保证所有 goroutine 看到同一个库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

type fixture struct {
	group     *model.Group
	campaign  *model.Campaign
	recipient *model.Recipient
}

func seedFixture(t *testing.T, db *gorm.DB, email string) *fixture {
	t.Helper()
	name := "Test Recipient"
	f := &fixture{
		group:     &model.Group{Name: "Olympiad 2026", WhatsAppInviteURL: "https://chat.whatsapp.com/ABCDEF"},
		recipient: &model.Recipient{Email: email, Name: &name},
	}
	require.NoError(t, db.Create(f.group).Error)
	f.campaign = &model.Campaign{Name: "Summer Camp", GroupID: f.group.GroupID}
	require.NoError(t, db.Create(f.campaign).Error)
	require.NoError(t, db.Create(f.recipient).Error)
	return f
}

func seedLink(t *testing.T, db *gorm.DB, f *fixture, digest string, plain *string) *model.InviteLink {
	t.Helper()
	link := &model.InviteLink{
		TokenDigest: digest,
		TokenPlain:  plain,
		Status:      model.LinkStatusActive,
		CampaignID:  f.campaign.CampaignID,
		RecipientID: f.recipient.RecipientID,
	}
	link.CreatedAt = time.Now().Add(-time.Minute)
	link.Version = 1
	require.NoError(t, db.WithContext(context.Background()).Omit("Campaign", "Recipient").Create(link).Error)
	return link
}
