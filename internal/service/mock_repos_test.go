package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/aminemahd13/linksharing/internal/model"
	"github.com/aminemahd13/linksharing/internal/repository"
	pkgerrors "github.com/aminemahd13/linksharing/pkg/errors"
	"github.com/aminemahd13/linksharing/pkg/mailer"
)

// ── Mock InviteLinkRepository ──
// 所有读取返回副本；状态写入在锁内比较 status + version，语义与条件更新一致

type mockInviteLinkRepo struct {
	mu      sync.Mutex
	links   map[string]*model.InviteLink
	lookups []string // 记录查找顺序：plain / digest

	campaigns  map[string]*model.Campaign
	recipients map[string]*model.Recipient

	getErr   error
	markErr  error
	afterGet func() // GetByID 返回前触发，用于模拟读取后的并发修改
}

func newMockInviteLinkRepo() *mockInviteLinkRepo {
	return &mockInviteLinkRepo{
		links:      make(map[string]*model.InviteLink),
		campaigns:  make(map[string]*model.Campaign),
		recipients: make(map[string]*model.Recipient),
	}
}

func (m *mockInviteLinkRepo) snapshot(l *model.InviteLink) *model.InviteLink {
	cp := *l
	cp.Campaign = m.campaigns[l.CampaignID]
	cp.Recipient = m.recipients[l.RecipientID]
	return &cp
}

func (m *mockInviteLinkRepo) find(pred func(*model.InviteLink) bool) (*model.InviteLink, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, l := range m.links {
		if pred(l) {
			return m.snapshot(l), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInviteLinkRepo) Create(_ context.Context, link *model.InviteLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.TokenDigest == link.TokenDigest {
			return errors.New("duplicate token_digest")
		}
	}
	if link.InviteLinkID == "" {
		link.InviteLinkID = "link-" + link.RecipientID
	}
	cp := *link
	m.links[link.InviteLinkID] = &cp
	return nil
}

func (m *mockInviteLinkRepo) GetByID(_ context.Context, id string) (*model.InviteLink, error) {
	m.mu.Lock()
	link, err := m.find(func(l *model.InviteLink) bool { return l.InviteLinkID == id })
	hook := m.afterGet
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return link, err
}

// bump 模拟其他请求完成了一次写入
func (m *mockInviteLinkRepo) bump(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[id].Version++
}

func (m *mockInviteLinkRepo) GetByTokenPlain(_ context.Context, token string) (*model.InviteLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, "plain")
	return m.find(func(l *model.InviteLink) bool { return l.TokenPlain != nil && *l.TokenPlain == token })
}

func (m *mockInviteLinkRepo) GetByDigest(_ context.Context, digest string) (*model.InviteLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, "digest")
	return m.find(func(l *model.InviteLink) bool { return l.TokenDigest == digest })
}

func (m *mockInviteLinkRepo) GetByPair(_ context.Context, campaignID, recipientID string) (*model.InviteLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(func(l *model.InviteLink) bool {
		return l.CampaignID == campaignID && l.RecipientID == recipientID
	})
}

func (m *mockInviteLinkRepo) List(_ context.Context, filters *repository.InviteLinkListFilters, _, _ int) ([]model.InviteLink, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.InviteLink
	for _, l := range m.links {
		if filters.Status != "" && l.Status != filters.Status {
			continue
		}
		if filters.CampaignID != "" && l.CampaignID != filters.CampaignID {
			continue
		}
		result = append(result, *m.snapshot(l))
	}
	return result, int64(len(result)), nil
}

func (m *mockInviteLinkRepo) cas(id string, from model.LinkStatus, version int, apply func(l *model.InviteLink)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok || l.Status != from || l.Version != version {
		return pkgerrors.ErrOptimisticLock
	}
	apply(l)
	l.Version++
	return nil
}

func (m *mockInviteLinkRepo) MarkUsed(_ context.Context, id string, version int, stamp repository.ConsumeStamp) error {
	if m.markErr != nil {
		return m.markErr
	}
	return m.cas(id, model.LinkStatusActive, version, func(l *model.InviteLink) {
		at, ip, ua := stamp.UsedAt, stamp.IP, stamp.UserAgent
		l.Status = model.LinkStatusUsed
		l.UsedAt = &at
		l.UsedIP = &ip
		l.UsedUserAgent = &ua
		l.TokenPlain = nil
	})
}

func (m *mockInviteLinkRepo) Disable(_ context.Context, id string, version int, adminID string, at time.Time) error {
	return m.cas(id, model.LinkStatusActive, version, func(l *model.InviteLink) {
		l.Status = model.LinkStatusDisabled
		l.DisabledAt = &at
		l.DisabledBy = &adminID
	})
}

func (m *mockInviteLinkRepo) Reactivate(_ context.Context, id string, version int) error {
	return m.cas(id, model.LinkStatusDisabled, version, func(l *model.InviteLink) {
		l.Status = model.LinkStatusActive
		l.DisabledAt = nil
		l.DisabledBy = nil
	})
}

func (m *mockInviteLinkRepo) Expire(_ context.Context, id string, from model.LinkStatus, version int, at time.Time) error {
	return m.cas(id, from, version, func(l *model.InviteLink) {
		l.Status = model.LinkStatusExpired
		l.ExpiredAt = &at
	})
}

func (m *mockInviteLinkRepo) Rotate(_ context.Context, id string, version int, data repository.RotateData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok || l.Version != version {
		return pkgerrors.ErrOptimisticLock
	}
	l.TokenDigest = data.TokenDigest
	l.TokenPlain = data.TokenPlain
	l.Status = model.LinkStatusActive
	l.UsedAt, l.UsedIP, l.UsedUserAgent = nil, nil, nil
	l.DisabledAt, l.DisabledBy, l.ExpiredAt = nil, nil, nil
	l.Version++
	return nil
}

func (m *mockInviteLinkRepo) RetainPlainToken(_ context.Context, id, digest, plain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok || l.TokenDigest != digest || l.Status != model.LinkStatusActive {
		return pkgerrors.ErrOptimisticLock
	}
	l.TokenPlain = &plain
	return nil
}

func (m *mockInviteLinkRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.links, id)
	return nil
}

// get 测试断言用：直接读取当前存储状态
func (m *mockInviteLinkRepo) get(id string) *model.InviteLink {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.links[id]; ok {
		cp := *l
		return &cp
	}
	return nil
}

// ── Mock CampaignRepository ──

type mockCampaignRepo struct {
	campaigns map[string]*model.Campaign
}

func (m *mockCampaignRepo) GetByID(_ context.Context, id string) (*model.Campaign, error) {
	if c, ok := m.campaigns[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock RecipientRepository ──

type mockRecipientRepo struct {
	recipients map[string]*model.Recipient
	order      []string
}

func (m *mockRecipientRepo) add(r *model.Recipient) {
	m.recipients[r.RecipientID] = r
	m.order = append(m.order, r.RecipientID)
}

func (m *mockRecipientRepo) GetByID(_ context.Context, id string) (*model.Recipient, error) {
	if r, ok := m.recipients[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRecipientRepo) ListByIDs(_ context.Context, ids []string) ([]model.Recipient, error) {
	var result []model.Recipient
	for _, id := range ids {
		if r, ok := m.recipients[id]; ok {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRecipientRepo) ListAll(_ context.Context) ([]model.Recipient, error) {
	return m.ListByIDs(context.Background(), m.order)
}

// ── Mock AuditLogRepository ──

type mockAuditLogRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (m *mockAuditLogRepo) Create(_ context.Context, entry *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditLogRepo) ListByEntity(_ context.Context, entityType, entityID string) ([]model.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AuditLog
	for _, e := range m.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockAuditLogRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, e.Action)
	}
	return result
}

// ── Mock Limiter / Notifier ──

type mockLimiter struct {
	mu    sync.Mutex
	allow bool
	err   error
	keys  []string
}

func (m *mockLimiter) Admit(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return m.allow, m.err
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []mailer.Invite
	err  error
}

func (m *mockNotifier) SendInvite(_ context.Context, inv mailer.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, inv)
	return nil
}
