package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
	"github.com/yakubjanov004/telecom-support-engine/internal/events"
	"github.com/yakubjanov004/telecom-support-engine/internal/repository"
	apperrors "github.com/yakubjanov004/telecom-support-engine/pkg/util"
)

// memRequestRepo mimics the postgres repository in memory, including the
// optimistic version check on Update.
type memRequestRepo struct {
	mu    sync.Mutex
	byID  map[string]*domain.ServiceRequest
	byKey map[string]string
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{
		byID:  map[string]*domain.ServiceRequest{},
		byKey: map[string]string{},
	}
}

func cloneRequest(req *domain.ServiceRequest) *domain.ServiceRequest {
	copied := *req
	copied.RoleHistory = append([]domain.RoleEntry(nil), req.RoleHistory...)
	copied.MaterialItems = append([]string(nil), req.MaterialItems...)
	return &copied
}

func (r *memRequestRepo) Create(_ context.Context, req *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req.ID = uuid.NewString()
	req.Version = 1
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	for i := range req.RoleHistory {
		req.RoleHistory[i].ID = uuid.NewString()
	}
	r.byID[req.ID] = cloneRequest(req)
	r.byKey[req.ExternalKey] = req.ID
	return nil
}

func (r *memRequestRepo) Update(_ context.Context, req *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[req.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != req.Version {
		return repository.ErrStaleVersion
	}
	req.Version++
	req.UpdatedAt = time.Now()
	for i := range req.RoleHistory {
		if req.RoleHistory[i].ID == "" {
			req.RoleHistory[i].ID = uuid.NewString()
		}
	}
	r.byID[req.ID] = cloneRequest(req)
	return nil
}

func (r *memRequestRepo) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneRequest(stored), nil
}

func (r *memRequestRepo) GetByExternalKey(_ context.Context, key string) (*domain.ServiceRequest, error) {
	r.mu.Lock()
	id, ok := r.byKey[key]
	r.mu.Unlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(context.Background(), id)
}

func (r *memRequestRepo) ListWithFilter(_ context.Context, _ repository.RequestFilter) ([]domain.ServiceRequest, error) {
	return nil, nil
}

func (r *memRequestRepo) CountWithFilter(_ context.Context, _ repository.RequestFilter) (int, error) {
	return 0, nil
}

func (r *memRequestRepo) CountActiveByAssignee(_ context.Context, assigneeIDs []string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := map[string]bool{}
	for _, id := range assigneeIDs {
		wanted[id] = true
	}
	loads := map[string]int{}
	for _, req := range r.byID {
		if req.Terminal() || req.CurrentAssigneeID == nil {
			continue
		}
		if wanted[*req.CurrentAssigneeID] {
			loads[*req.CurrentAssigneeID]++
		}
	}
	return loads, nil
}

// bumpVersion simulates a concurrent writer touching the row after a read.
func (r *memRequestRepo) bumpVersion(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].Version++
}

type memStaffRepo struct {
	mu      sync.Mutex
	members map[string]*domain.StaffMember
}

func newMemStaffRepo() *memStaffRepo {
	return &memStaffRepo{members: map[string]*domain.StaffMember{}}
}

func (r *memStaffRepo) add(member domain.StaffMember) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := member
	r.members[member.ID] = &copied
}

func (r *memStaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.add(*staff)
	return nil
}

func (r *memStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *member
	return &copied, nil
}

func (r *memStaffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.StaffMember
	for _, member := range r.members {
		if filter.Role != nil && member.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && member.Active != *filter.Active {
			continue
		}
		if filter.Region != nil && (member.Region == nil || *member.Region != *filter.Region) {
			continue
		}
		out = append(out, *member)
	}
	return out, nil
}

func (r *memStaffRepo) UpdateLastAssigned(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	member, ok := r.members[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stamp := at
	member.LastAssignedAt = &stamp
	return nil
}

type seqKeys struct{ n int }

func (k *seqKeys) RequestKey(_ context.Context, _ domain.WorkflowType) string {
	k.n++
	return fmt.Sprintf("CR-20260901-%04d", k.n)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type engineFixture struct {
	svc        *Service
	requests   *memRequestRepo
	staff      *memStaffRepo
	dispatcher *recordingDispatcher
	clock      time.Time
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		requests:   newMemRequestRepo(),
		staff:      newMemStaffRepo(),
		dispatcher: &recordingDispatcher{},
		clock:      time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Dependencies{
		RequestRepo: f.requests,
		StaffRepo:   f.staff,
		Keys:        &seqKeys{},
		Dispatcher:  f.dispatcher,
	})
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *engineFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *engineFixture) addStaff(id string, seq int64, role domain.Role, region *string) {
	f.staff.add(domain.StaffMember{
		ID:     id,
		Seq:    seq,
		Name:   "staff " + id,
		Role:   role,
		Region: region,
		Active: true,
	})
}

func (f *engineFixture) create(t *testing.T, role domain.Role, staffID string) *domain.ServiceRequest {
	t.Helper()
	input := CreateInput{
		WorkflowType: domain.WorkflowConnectionRequest,
		Contact:      domain.ContactInfo{Name: "Aziz Karimov", Phone: "+998901112233"},
		Description:  "new fiber connection at Chilonzor 9",
		Location:     "Tashkent, Chilonzor 9",
		CreatorRole:  role,
	}
	if staffID != "" {
		input.CreatorID = &staffID
	}
	req, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	return req
}

func TestCreateOpensSingleRoleEntry(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)

	req := f.create(t, domain.RoleCallCenter, "cc-1")

	assert.Equal(t, "CR-20260901-0001", req.ExternalKey)
	assert.Equal(t, domain.StatusCreated, req.Status)
	assert.Equal(t, domain.PriorityNormal, req.Priority)
	assert.Equal(t, domain.RoleCallCenter, req.CurrentRole)
	assert.Equal(t, int64(1), req.Version)
	require.Len(t, req.RoleHistory, 1)
	assert.True(t, req.RoleHistory[0].Open())
	assert.Equal(t, []events.EventType{events.EventRequestCreated}, f.dispatcher.types())
}

func TestCreateTimestampMatchesFirstEntry(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)

	req := f.create(t, domain.RoleCallCenter, "cc-1")

	require.Len(t, req.RoleHistory, 1)
	assert.True(t, req.CreatedAt.Equal(req.RoleHistory[0].EnteredAt))
	assert.False(t, req.RoleHistory[0].EnteredAt.Before(req.CreatedAt))
	assert.True(t, req.CreatedAt.Equal(f.clock))
}

func TestCreateValidation(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		WorkflowType: "BROKEN",
		Contact:      domain.ContactInfo{Name: "a", Phone: "b"},
		Description:  "x",
		CreatorRole:  domain.RoleClient,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = f.svc.Create(context.Background(), CreateInput{
		WorkflowType: domain.WorkflowTechnicalService,
		Contact:      domain.ContactInfo{Name: "  ", Phone: "+998900000000"},
		Description:  "tv box offline",
		CreatorRole:  domain.RoleClient,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = f.svc.Create(context.Background(), CreateInput{
		WorkflowType: domain.WorkflowTechnicalService,
		Contact:      domain.ContactInfo{Name: "Aziz", Phone: "+998900000000"},
		Description:  "",
		CreatorRole:  domain.RoleClient,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestAssignClosesOldEntryAndOpensNew(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)
	f.addStaff("ctrl-1", 2, domain.RoleController, nil)

	req := f.create(t, domain.RoleCallCenter, "cc-1")
	f.advance(10 * time.Minute)

	actor := Actor{Role: domain.RoleCallCenter, StaffID: "cc-1"}
	updated, err := f.svc.Assign(context.Background(), req.ID, actor, AssignInput{
		TargetStaffID: "ctrl-1",
		TargetRole:    domain.RoleController,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Equal(t, domain.RoleController, updated.CurrentRole)
	require.NotNil(t, updated.CurrentAssigneeID)
	assert.Equal(t, "ctrl-1", *updated.CurrentAssigneeID)
	assert.Equal(t, int64(2), updated.Version)

	require.Len(t, updated.RoleHistory, 2)
	first, second := updated.RoleHistory[0], updated.RoleHistory[1]
	require.NotNil(t, first.LeftAt)
	assert.Equal(t, 10*time.Minute, first.LeftAt.Sub(first.EnteredAt))
	assert.True(t, second.Open())
	assert.Equal(t, domain.RoleController, second.Role)
	assert.True(t, first.LeftAt.Equal(second.EnteredAt))

	assert.Equal(t, []events.EventType{
		events.EventRequestCreated,
		events.EventRequestAssigned,
	}, f.dispatcher.types())
}

func TestAssignRejectsIllegalEdge(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)
	f.addStaff("tech-1", 2, domain.RoleTechnician, nil)

	req := f.create(t, domain.RoleCallCenter, "cc-1")

	actor := Actor{Role: domain.RoleCallCenter, StaffID: "cc-1"}
	_, err := f.svc.Assign(context.Background(), req.ID, actor, AssignInput{
		TargetStaffID: "tech-1",
		TargetRole:    domain.RoleTechnician,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	// nothing changed
	stored, getErr := f.svc.Get(context.Background(), req.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.RoleCallCenter, stored.CurrentRole)
	assert.Len(t, stored.RoleHistory, 1)
}

func TestRepoUpdateRejectsStaleVersion(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)

	req := f.create(t, domain.RoleCallCenter, "cc-1")
	stale, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)

	f.requests.bumpVersion(req.ID)
	require.ErrorIs(t, f.requests.Update(context.Background(), stale), repository.ErrStaleVersion)
}

// frozenReadRepo serves every read of one request from a captured snapshot
// while writes hit the live store, so two operations can act on the same
// stale read.
type frozenReadRepo struct {
	*memRequestRepo
	snapshot *domain.ServiceRequest
}

func (r *frozenReadRepo) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	if r.snapshot != nil && r.snapshot.ID == id {
		return cloneRequest(r.snapshot), nil
	}
	return r.memRequestRepo.GetByID(ctx, id)
}

func TestConcurrentAssignsOneWinsOneConflicts(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)

	req := f.create(t, domain.RoleCallCenter, "cc-1")
	snapshot, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)

	frozen := &frozenReadRepo{memRequestRepo: f.requests, snapshot: snapshot}
	racing := NewService(Dependencies{
		RequestRepo: frozen,
		StaffRepo:   f.staff,
		Keys:        &seqKeys{},
		Dispatcher:  f.dispatcher,
	})
	racing.now = func() time.Time { return f.clock }

	actor := Actor{Role: domain.RoleCallCenter, StaffID: "cc-1"}
	_, firstErr := racing.Assign(context.Background(), req.ID, actor, AssignInput{
		TargetRole: domain.RoleController,
	})
	_, secondErr := racing.Assign(context.Background(), req.ID, actor, AssignInput{
		TargetRole: domain.RoleManager,
	})

	require.NoError(t, firstErr)
	require.Error(t, secondErr)
	assert.True(t, apperrors.IsCode(secondErr, apperrors.CodeConflict))

	// only the winner's handoff is persisted
	stored, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleController, stored.CurrentRole)
	require.Len(t, stored.RoleHistory, 2)
	assert.Equal(t, int64(2), stored.Version)
}

func TestStoreConflictSurfacesAsConflictCode(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)

	req := f.create(t, domain.RoleCallCenter, "cc-1")

	// concurrent writer commits between our read and our write
	stale := cloneRequest(req)
	f.requests.bumpVersion(req.ID)

	err := f.svc.store(context.Background(), stale)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestClaimIdempotentForHolder(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)

	req := f.create(t, domain.RoleCallCenter, "cc-1")
	actor := Actor{Role: domain.RoleCallCenter, StaffID: "cc-1"}

	first, err := f.svc.Claim(context.Background(), req.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, first.Status)
	assert.Equal(t, int64(2), first.Version)

	second, err := f.svc.Claim(context.Background(), req.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)
	assert.Len(t, second.RoleHistory, 1)
}

func TestClaimWrongRoleRejected(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)
	req := f.create(t, domain.RoleCallCenter, "cc-1")

	_, err := f.svc.Claim(context.Background(), req.ID, Actor{Role: domain.RoleManager, StaffID: "mgr-1"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestTransferLateralKeepsPoolUnassigned(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)
	req := f.create(t, domain.RoleCallCenter, "cc-1")

	actor := Actor{Role: domain.RoleCallCenter, StaffID: "cc-1"}
	updated, err := f.svc.Transfer(context.Background(), req.ID, actor, domain.RoleController)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleController, updated.CurrentRole)
	assert.Nil(t, updated.CurrentAssigneeID)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
}

func TestMaterialsWarehouseLoop(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("mgr-1", 1, domain.RoleManager, nil)
	f.addStaff("tech-1", 2, domain.RoleTechnician, nil)
	f.addStaff("wh-1", 3, domain.RoleWarehouse, nil)

	req := f.create(t, domain.RoleManager, "mgr-1")
	manager := Actor{Role: domain.RoleManager, StaffID: "mgr-1"}
	technician := Actor{Role: domain.RoleTechnician, StaffID: "tech-1"}
	warehouse := Actor{Role: domain.RoleWarehouse, StaffID: "wh-1"}

	_, err := f.svc.Assign(context.Background(), req.ID, manager, AssignInput{
		TargetStaffID: "tech-1",
		TargetRole:    domain.RoleTechnician,
	})
	require.NoError(t, err)

	_, err = f.svc.Diagnose(context.Background(), req.ID, technician, "drop cable damaged")
	require.NoError(t, err)

	updated, err := f.svc.RequestMaterials(context.Background(), req.ID, technician, []string{"drop cable", " connector ", ""})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleWarehouse, updated.CurrentRole)
	assert.Equal(t, []string{"drop cable", "connector"}, updated.MaterialItems)
	require.NotNil(t, updated.ReturnedToID)
	assert.Equal(t, "tech-1", *updated.ReturnedToID)

	// fulfillment must return to the requesting technician
	_, err = f.svc.Assign(context.Background(), req.ID, warehouse, AssignInput{
		TargetStaffID: "mgr-1",
		TargetRole:    domain.RoleTechnician,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	back, err := f.svc.Assign(context.Background(), req.ID, warehouse, AssignInput{
		TargetRole: domain.RoleTechnician,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, back.CurrentRole)
	require.NotNil(t, back.CurrentAssigneeID)
	assert.Equal(t, "tech-1", *back.CurrentAssigneeID)

	types := f.dispatcher.types()
	assert.Contains(t, types, events.EventMaterialsRequested)
}

func TestCompleteFreezesRequest(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("mgr-1", 1, domain.RoleManager, nil)
	f.addStaff("tech-1", 2, domain.RoleTechnician, nil)

	req := f.create(t, domain.RoleManager, "mgr-1")
	manager := Actor{Role: domain.RoleManager, StaffID: "mgr-1"}
	technician := Actor{Role: domain.RoleTechnician, StaffID: "tech-1"}

	_, err := f.svc.Assign(context.Background(), req.ID, manager, AssignInput{
		TargetStaffID: "tech-1",
		TargetRole:    domain.RoleTechnician,
	})
	require.NoError(t, err)

	done, err := f.svc.Complete(context.Background(), req.ID, technician, "installed and verified")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletionNotes)
	assert.Nil(t, done.OpenEntry())

	_, err = f.svc.Transfer(context.Background(), req.ID, technician, domain.RoleWarehouse)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	_, err = f.svc.Cancel(context.Background(), req.ID, technician, "changed mind")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	_, err = f.svc.Complete(context.Background(), req.ID, technician, "again")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestCancelClosesOpenEntry(t *testing.T) {
	f := newEngineFixture(t)
	req := f.create(t, domain.RoleClient, "")

	cancelled, err := f.svc.Cancel(context.Background(), req.ID, Actor{Role: domain.RoleClient}, "moved away")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "moved away", *cancelled.CancelReason)
	assert.Nil(t, cancelled.OpenEntry())
}

func TestAssignBalancerPicksLeastLoaded(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("mgr-1", 1, domain.RoleManager, nil)
	f.addStaff("tech-busy", 2, domain.RoleTechnician, nil)
	f.addStaff("tech-free", 3, domain.RoleTechnician, nil)

	// give tech-busy one active request
	seed := f.create(t, domain.RoleManager, "mgr-1")
	manager := Actor{Role: domain.RoleManager, StaffID: "mgr-1"}
	_, err := f.svc.Assign(context.Background(), seed.ID, manager, AssignInput{
		TargetStaffID: "tech-busy",
		TargetRole:    domain.RoleTechnician,
	})
	require.NoError(t, err)

	req := f.create(t, domain.RoleManager, "mgr-1")
	updated, err := f.svc.Assign(context.Background(), req.ID, manager, AssignInput{
		TargetRole: domain.RoleTechnician,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CurrentAssigneeID)
	assert.Equal(t, "tech-free", *updated.CurrentAssigneeID)

	// the winner's fairness timestamp was advanced
	member, err := f.staff.GetByID(context.Background(), "tech-free")
	require.NoError(t, err)
	assert.NotNil(t, member.LastAssignedAt)
}

func TestAssignNoAvailableAgent(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("mgr-1", 1, domain.RoleManager, nil)

	req := f.create(t, domain.RoleManager, "mgr-1")
	_, err := f.svc.Assign(context.Background(), req.ID, Actor{Role: domain.RoleManager, StaffID: "mgr-1"}, AssignInput{
		TargetRole: domain.RoleTechnician,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNoAvailableAgent))
}

func TestAssignRegionNarrowsPool(t *testing.T) {
	f := newEngineFixture(t)
	north := "north"
	south := "south"
	f.addStaff("mgr-1", 1, domain.RoleManager, nil)
	f.addStaff("tech-n", 2, domain.RoleTechnician, &north)
	f.addStaff("tech-s", 3, domain.RoleTechnician, &south)

	req := f.create(t, domain.RoleManager, "mgr-1")
	updated, err := f.svc.Assign(context.Background(), req.ID, Actor{Role: domain.RoleManager, StaffID: "mgr-1"}, AssignInput{
		TargetRole: domain.RoleTechnician,
		Region:     &south,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CurrentAssigneeID)
	assert.Equal(t, "tech-s", *updated.CurrentAssigneeID)
}

func TestLoadByExternalKey(t *testing.T) {
	f := newEngineFixture(t)
	req := f.create(t, domain.RoleClient, "")

	byKey, err := f.svc.Get(context.Background(), req.ExternalKey)
	require.NoError(t, err)
	assert.Equal(t, req.ID, byKey.ID)

	_, err = f.svc.Get(context.Background(), uuid.NewString())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestAssignUnknownStaff(t *testing.T) {
	f := newEngineFixture(t)
	f.addStaff("cc-1", 1, domain.RoleCallCenter, nil)
	req := f.create(t, domain.RoleCallCenter, "cc-1")

	_, err := f.svc.Assign(context.Background(), req.ID, Actor{Role: domain.RoleCallCenter, StaffID: "cc-1"}, AssignInput{
		TargetStaffID: "ghost",
		TargetRole:    domain.RoleController,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
