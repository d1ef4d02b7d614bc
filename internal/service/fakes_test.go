package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/crm-backend/internal/access"
	"github.com/iliyamo/crm-backend/internal/apperr"
	"github.com/iliyamo/crm-backend/internal/model"
	"github.com/iliyamo/crm-backend/internal/queue"
	"github.com/iliyamo/crm-backend/internal/repository"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var (
	superAdmin = &model.User{ID: 1, Name: "Root", Email: "root@crm.io", Role: model.RoleSuperAdmin, IsActive: true}
	subAdmin   = &model.User{ID: 2, Name: "Sub", Email: "sub@crm.io", Role: model.RoleSubAdmin, IsActive: true}
	agentA     = &model.User{ID: 3, Name: "Agent A", Email: "a@crm.io", Role: model.RoleSupportAgent, IsActive: true}
	agentB     = &model.User{ID: 4, Name: "Agent B", Email: "b@crm.io", Role: model.RoleSupportAgent, IsActive: true}
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	byID   map[uint64]*model.User
	nextID uint64
	err    error
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{byID: map[uint64]*model.User{}, nextID: 100}
	for _, u := range users {
		cp := *u
		m.byID[u.ID] = &cp
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (m *memUsers) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), m.err
}

func (m *memUsers) List(_ context.Context, role model.Role) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.byID {
		if role == "" || u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memUsers) Update(_ context.Context, id uint64, p model.UserPatch, now time.Time) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	u.UpdatedAt = now
	cp := *u
	return &cp, nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return apperr.NotFound("User not found")
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

// memSessions is an in-memory SessionStore.
type memSessions struct {
	mu      sync.Mutex
	exp     map[string]time.Time
	owner   map[string]uint64
	revoked map[string]bool
}

func newMemSessions() *memSessions {
	return &memSessions{exp: map[string]time.Time{}, owner: map[string]uint64{}, revoked: map[string]bool{}}
}

func (m *memSessions) Store(_ context.Context, jti string, userID uint64, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exp[jti] = exp
	m.owner[jti] = userID
	return nil
}

func (m *memSessions) IsActive(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.exp[jti]
	return ok && !m.revoked[jti] && time.Now().Before(exp), nil
}

func (m *memSessions) Revoke(_ context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = true
	return nil
}

func (m *memSessions) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for jti, uid := range m.owner {
		if uid == userID {
			m.revoked[jti] = true
		}
	}
	return nil
}

// memLeads is an in-memory LeadStore and NoteStore. Filters support the
// scope, status, tags and assignedTo conditions.
type memLeads struct {
	mu       sync.Mutex
	users    map[uint64]*model.User
	leads    map[uint64]*model.Lead
	notes    map[uint64][]model.Note
	nextID   uint64
	nextNote uint64
	listErr  error
	lastList repository.LeadFilter
}

func newMemLeads(users ...*model.User) *memLeads {
	m := &memLeads{users: map[uint64]*model.User{}, leads: map[uint64]*model.Lead{}, notes: map[uint64][]model.Note{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memLeads) ref(id uint64) *model.UserRef {
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	return &model.UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (m *memLeads) seed(name string, assignee uint64, tags ...string) uint64 {
	var a *uint64
	if assignee != 0 {
		a = &assignee
	}
	id, _ := m.Create(context.Background(), model.NewLead{
		Name: name, Email: name + "@example.com", Phone: "1", Source: model.DefaultSource,
		Status: model.StatusNew, Tags: tags, AssignedTo: a, CreatedBy: 1, CreatedAt: fixedNow,
	})
	return id
}

func (m *memLeads) match(l *model.Lead, f repository.LeadFilter) bool {
	if !f.Scope.Allows(l.AssigneeID()) {
		return false
	}
	if f.Status != "" && string(l.Status) != f.Status {
		return false
	}
	if f.AssignedTo != 0 && l.AssigneeID() != f.AssignedTo {
		return false
	}
	if len(f.Tags) > 0 {
		found := false
		for _, want := range f.Tags {
			for _, have := range l.Tags {
				if want == have {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *memLeads) filtered(f repository.LeadFilter) []model.Lead {
	ids := make([]uint64, 0, len(m.leads))
	for id := range m.leads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := []model.Lead{}
	for _, id := range ids {
		if l := m.leads[id]; m.match(l, f) {
			cp := *l
			cp.Tags = append([]string{}, l.Tags...)
			cp.Notes = nil
			out = append(out, cp)
		}
	}
	return out
}

func (m *memLeads) List(_ context.Context, f repository.LeadFilter, p model.Page) ([]model.Lead, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = f
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	all := m.filtered(f)
	start := p.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (m *memLeads) ListAll(_ context.Context, f repository.LeadFilter) ([]model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = f
	return m.filtered(f), m.listErr
}

func (m *memLeads) Find(_ context.Context, id uint64) (*model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, apperr.NotFound("Lead not found")
	}
	cp := *l
	cp.Tags = append([]string{}, l.Tags...)
	return &cp, nil
}

func (m *memLeads) Get(ctx context.Context, id uint64) (*model.Lead, error) {
	l, err := m.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Notes, _ = m.notesOf(id)
	return l, nil
}

func (m *memLeads) notesOf(leadID uint64) ([]model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Note{}, m.notes[leadID]...), nil
}

func (m *memLeads) Create(_ context.Context, in model.NewLead) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if strings.EqualFold(l.Email, in.Email) {
			return 0, apperr.Duplicate("Lead with this email already exists", nil)
		}
	}
	m.nextID++
	l := &model.Lead{
		ID: m.nextID, Name: in.Name, Email: in.Email, Phone: in.Phone, Source: in.Source,
		Status: in.Status, Tags: []string{}, CreatedBy: m.ref(in.CreatedBy),
		CreatedAt: in.CreatedAt, UpdatedAt: in.CreatedAt,
	}
	if in.AssignedTo != nil {
		l.AssignedTo = m.ref(*in.AssignedTo)
		if l.AssignedTo == nil {
			l.AssignedTo = &model.UserRef{ID: *in.AssignedTo}
		}
	}
	m.leads[l.ID] = l
	m.addTags(l, in.Tags)
	return l.ID, nil
}

func (m *memLeads) Update(_ context.Context, id uint64, p model.LeadPatch, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return apperr.NotFound("Lead not found")
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Email != nil {
		l.Email = *p.Email
	}
	if p.Phone != nil {
		l.Phone = *p.Phone
	}
	if p.Source != nil {
		l.Source = *p.Source
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.AssignedTo != nil {
		l.AssignedTo = nil
		if p.AssignedTo.Value != nil {
			l.AssignedTo = m.ref(*p.AssignedTo.Value)
		}
	}
	l.UpdatedAt = now
	return nil
}

func (m *memLeads) addTags(l *model.Lead, tags []string) {
	for _, t := range tags {
		dup := false
		for _, have := range l.Tags {
			if have == t {
				dup = true
			}
		}
		if !dup {
			l.Tags = append(l.Tags, t)
		}
	}
}

func (m *memLeads) Tags(_ context.Context, leadID uint64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.leads[leadID].Tags...), nil
}

func (m *memLeads) AddTags(_ context.Context, leadID uint64, tags []string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.leads[leadID]
	m.addTags(l, tags)
	l.UpdatedAt = now
	return nil
}

func (m *memLeads) RemoveTags(_ context.Context, leadID uint64, tags []string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.leads[leadID]
	kept := []string{}
	for _, have := range l.Tags {
		drop := false
		for _, t := range tags {
			if t == have {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, have)
		}
	}
	l.Tags = kept
	l.UpdatedAt = now
	return nil
}

func (m *memLeads) TagCounts(_ context.Context, scope access.Scope) ([]model.TagCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int64{}
	for _, l := range m.filtered(repository.LeadFilter{Scope: scope}) {
		for _, t := range l.Tags {
			counts[t]++
		}
	}
	out := []model.TagCount{}
	for t, c := range counts {
		out = append(out, model.TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out, nil
}

// memNotes shares memLeads' state so lead reads include notes.
type memNotes struct{ leads *memLeads }

func (n memNotes) Add(_ context.Context, leadID uint64, content string, authorID uint64, now time.Time) (uint64, error) {
	m := n.leads
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNote++
	m.notes[leadID] = append(m.notes[leadID], model.Note{
		ID: m.nextNote, LeadID: leadID, Content: content, CreatedBy: m.ref(authorID), CreatedAt: now, UpdatedAt: now,
	})
	return m.nextNote, nil
}

func (n memNotes) Get(_ context.Context, leadID, noteID uint64) (*model.Note, error) {
	m := n.leads
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, note := range m.notes[leadID] {
		if note.ID == noteID {
			cp := note
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Note not found")
}

func (n memNotes) List(_ context.Context, leadID uint64) ([]model.Note, error) {
	return n.leads.notesOf(leadID)
}

func (n memNotes) UpdateContent(_ context.Context, leadID, noteID uint64, content string, now time.Time) error {
	m := n.leads
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notes[leadID] {
		if m.notes[leadID][i].ID == noteID {
			m.notes[leadID][i].Content = content
			m.notes[leadID][i].UpdatedAt = now
			return nil
		}
	}
	return apperr.NotFound("Note not found")
}

func (n memNotes) Delete(_ context.Context, leadID, noteID uint64) error {
	m := n.leads
	m.mu.Lock()
	defer m.mu.Unlock()
	notes := m.notes[leadID]
	for i := range notes {
		if notes[i].ID == noteID {
			m.notes[leadID] = append(notes[:i:i], notes[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("Note not found")
}

// fakeActivity records what was written and serves canned reads.
type fakeActivity struct {
	mu        sync.Mutex
	created   []model.ActivityLog
	createErr error
	recentFn  func(limit int, userID uint64) ([]model.ActivityLog, error)
	listFn    func(userID uint64, p model.Page) ([]model.ActivityLog, int64, error)
}

func (f *fakeActivity) Create(_ context.Context, a *model.ActivityLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	a.ID = uint64(len(f.created) + 1)
	f.created = append(f.created, *a)
	return nil
}

func (f *fakeActivity) Recent(_ context.Context, limit int, userID uint64) ([]model.ActivityLog, error) {
	if f.recentFn != nil {
		return f.recentFn(limit, userID)
	}
	return []model.ActivityLog{}, nil
}

func (f *fakeActivity) ListByUser(_ context.Context, userID uint64, p model.Page) ([]model.ActivityLog, int64, error) {
	if f.listFn != nil {
		return f.listFn(userID, p)
	}
	return []model.ActivityLog{}, 0, nil
}

// fakeDashboard serves canned aggregates.
type fakeDashboard struct {
	scopes  []access.Scope
	perf    []model.AgentPerformance
	perfErr error
	total   int64
	perfHit bool
}

func (f *fakeDashboard) StatusDistribution(_ context.Context, scope access.Scope) ([]model.StatusCount, error) {
	f.scopes = append(f.scopes, scope)
	return []model.StatusCount{{Status: model.StatusNew, Count: f.total}}, nil
}

func (f *fakeDashboard) AgentPerformance(context.Context) ([]model.AgentPerformance, error) {
	f.perfHit = true
	return f.perf, f.perfErr
}

func (f *fakeDashboard) MonthlyGrowth(_ context.Context, scope access.Scope) ([]model.MonthCount, error) {
	f.scopes = append(f.scopes, scope)
	return []model.MonthCount{{Month: 6, Count: f.total}}, nil
}

func (f *fakeDashboard) CountLeads(_ context.Context, scope access.Scope) (int64, error) {
	f.scopes = append(f.scopes, scope)
	return f.total, nil
}

// fakePublisher captures published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []queue.ActivityRecordedEvent
	err    error
}

func (f *fakePublisher) PublishActivity(_ context.Context, ev queue.ActivityRecordedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}
