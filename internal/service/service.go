// Package service implements the CRM operations on top of the stores. It
// owns validation, role scoping and ownership checks; the HTTP layer only
// binds requests and renders results.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/queue"
	"github.com/iliyamo/crm-backend/internal/repository"
)

// UserStore is the part of repository.UserRepo the services use.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, role model.Role) ([]model.User, error)
	Update(ctx context.Context, id uint64, p model.UserPatch, now time.Time) (*model.User, error)
	Delete(ctx context.Context, id uint64) error
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
}

type SessionStore interface {
	Store(ctx context.Context, jti string, userID uint64, exp time.Time) error
	IsActive(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type LeadStore interface {
	List(ctx context.Context, f repository.LeadFilter, p model.Page) ([]model.Lead, int64, error)
	ListAll(ctx context.Context, f repository.LeadFilter) ([]model.Lead, error)
	Find(ctx context.Context, id uint64) (*model.Lead, error)
	Get(ctx context.Context, id uint64) (*model.Lead, error)
	Create(ctx context.Context, in model.NewLead) (uint64, error)
	Update(ctx context.Context, id uint64, p model.LeadPatch, now time.Time) error
	Tags(ctx context.Context, leadID uint64) ([]string, error)
	AddTags(ctx context.Context, leadID uint64, tags []string, now time.Time) error
	RemoveTags(ctx context.Context, leadID uint64, tags []string, now time.Time) error
	TagCounts(ctx context.Context, scope access.Scope) ([]model.TagCount, error)
}

type NoteStore interface {
	Add(ctx context.Context, leadID uint64, content string, authorID uint64, now time.Time) (uint64, error)
	Get(ctx context.Context, leadID, noteID uint64) (*model.Note, error)
	List(ctx context.Context, leadID uint64) ([]model.Note, error)
	UpdateContent(ctx context.Context, leadID, noteID uint64, content string, now time.Time) error
	Delete(ctx context.Context, leadID, noteID uint64) error
}

type ActivityStore interface {
	Create(ctx context.Context, a *model.ActivityLog) error
	Recent(ctx context.Context, limit int, userID uint64) ([]model.ActivityLog, error)
	ListByUser(ctx context.Context, userID uint64, p model.Page) ([]model.ActivityLog, int64, error)
}

type DashboardStore interface {
	StatusDistribution(ctx context.Context, scope access.Scope) ([]model.StatusCount, error)
	AgentPerformance(ctx context.Context) ([]model.AgentPerformance, error)
	MonthlyGrowth(ctx context.Context, scope access.Scope) ([]model.MonthCount, error)
	CountLeads(ctx context.Context, scope access.Scope) (int64, error)
}

// EventPublisher delivers activity events to the broker.
type EventPublisher interface {
	PublishActivity(ctx context.Context, ev queue.ActivityRecordedEvent) error
}

// Clock returns the current time; tests replace it.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// PageResult is one page of a paginated listing.
type PageResult[T any] struct {
	Items       []T
	Total       int64
	TotalPages  int64
	CurrentPage int
}

func newPageResult[T any](items []T, total int64, p model.Page) PageResult[T] {
	return PageResult[T]{Items: items, Total: total, TotalPages: p.TotalPages(total), CurrentPage: p.Page}
}
