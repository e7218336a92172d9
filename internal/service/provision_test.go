package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/storegrid/internal/model"
)

// memStore is an in-memory ProvisionStore used to exercise the protocol
// without a database.  It copies rows on the way in and out, the way a
// real store would, so mutations through returned pointers cannot leak.
type memStore struct {
	mu       sync.Mutex
	stores   map[uint64]bool
	tokens   map[uint64]*model.RegistrationToken
	agents   map[uint64]*model.Agent
	bindings map[uint64]*model.StoreAgent
	names    map[uint64]string // store id -> name
	nextID   uint64
}

func newMemStore(storeIDs ...uint64) *memStore {
	m := &memStore{
		stores:   map[uint64]bool{},
		tokens:   map[uint64]*model.RegistrationToken{},
		agents:   map[uint64]*model.Agent{},
		bindings: map[uint64]*model.StoreAgent{},
		names:    map[uint64]string{},
		nextID:   1,
	}
	for _, id := range storeIDs {
		m.stores[id] = true
		m.names[id] = "Store"
	}
	return m
}

func (m *memStore) id() uint64 { v := m.nextID; m.nextID++; return v }

func copyToken(t *model.RegistrationToken) *model.RegistrationToken { c := *t; return &c }

func copyAgent(a *model.Agent) *model.Agent {
	c := *a
	c.Config = make(map[string]any, len(a.Config))
	for k, v := range a.Config {
		c.Config[k] = v
	}
	return &c
}

func copyBinding(b *model.StoreAgent) *model.StoreAgent { c := *b; return &c }

func (m *memStore) StoreExists(_ context.Context, storeID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores[storeID], nil
}

func (m *memStore) TokenValueExists(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateToken(_ context.Context, t *model.RegistrationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	m.tokens[t.ID] = copyToken(t)
	return nil
}

func (m *memStore) FindTokenByValue(_ context.Context, token string) (*model.RegistrationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Token == token {
			return copyToken(t), nil
		}
	}
	return nil, nil
}

func (m *memStore) ConsumeToken(_ context.Context, tokenID, agentID uint64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenID]
	if !ok || t.ConsumedAt != nil {
		return false, nil
	}
	ts := at
	t.ConsumedAt = &ts
	t.ConsumedByAgentID = &agentID
	t.IsActive = false
	return true, nil
}

func (m *memStore) FindAgentByKey(_ context.Context, agentKey string) (*model.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.AgentKey == agentKey {
			return copyAgent(a), nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateAgent(_ context.Context, a *model.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	m.agents[a.ID] = copyAgent(a)
	return nil
}

func (m *memStore) UpdateAgent(_ context.Context, a *model.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[a.ID] = copyAgent(a)
	return nil
}

func (m *memStore) FindBinding(_ context.Context, storeID, agentID uint64) (*model.StoreAgent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bindings {
		if b.StoreID == storeID && b.AgentID == agentID {
			return copyBinding(b), nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateBinding(_ context.Context, b *model.StoreAgent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.id()
	m.bindings[b.ID] = copyBinding(b)
	return nil
}

func (m *memStore) ReactivateBinding(_ context.Context, bindingID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bindings[bindingID]; ok {
		b.IsActive = true
	}
	return nil
}

func (m *memStore) ListActiveAssignments(_ context.Context, agentID uint64) ([]StoreAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []StoreAssignment{}
	for _, b := range m.bindings {
		if b.AgentID == agentID && b.IsActive {
			out = append(out, StoreAssignment{StoreID: b.StoreID, StoreName: m.names[b.StoreID], Config: b.Config})
		}
	}
	return out, nil
}

// test-only helpers

func (m *memStore) deactivateBinding(storeID, agentID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bindings {
		if b.StoreID == storeID && b.AgentID == agentID {
			b.IsActive = false
		}
	}
}

func (m *memStore) agentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.agents)
}

func (m *memStore) bindingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bindings)
}

// allowAll authorizes every principal for every store.
type allowAll struct{}

func (allowAll) CanManageStore(context.Context, Principal, uint64) (bool, error) { return true, nil }

// denyAll rejects every principal.
type denyAll struct{}

func (denyAll) CanManageStore(context.Context, Principal, uint64) (bool, error) { return false, nil }

func newTestProvisioner(st *memStore) *Provisioner {
	return NewProvisioner(st, allowAll{}, 15)
}

var admin = Principal{UserID: 1, Role: "ADMIN"}

func TestIssueToken_Defaults(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)

	issued, err := p.IssueToken(context.Background(), 10, 0, admin)
	require.NoError(t, err)

	assert.Len(t, issued.Token, 9)
	assert.Equal(t, uint64(10), issued.StoreID)
	assert.Equal(t, 15, issued.ExpiresInMinutes)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), issued.ExpiresAt, 5*time.Second)
}

func TestIssueToken_UnknownStore(t *testing.T) {
	p := newTestProvisioner(newMemStore(10))

	_, err := p.IssueToken(context.Background(), 99, 15, admin)
	assert.ErrorIs(t, err, ErrStoreNotFound)
}

func TestIssueToken_Forbidden(t *testing.T) {
	st := newMemStore(10)
	p := NewProvisioner(st, denyAll{}, 15)

	_, err := p.IssueToken(context.Background(), 10, 15, Principal{UserID: 2, Role: "MANAGER"})
	assert.ErrorIs(t, err, ErrStoreForbidden)
}

func TestIssueToken_UniqueUnderConcurrency(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)

	const n = 50
	tokens := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			issued, err := p.IssueToken(context.Background(), 10, 15, admin)
			if err != nil {
				errs[i] = err
				return
			}
			tokens[i] = issued.Token
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[string]bool, n)
	for _, tok := range tokens {
		assert.False(t, seen[tok], "duplicate token issued: %s", tok)
		seen[tok] = true
	}
}

func TestRegister_HappyPath(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)
	ctx := context.Background()

	issued, err := p.IssueToken(ctx, 10, 15, admin)
	require.NoError(t, err)

	res, err := p.Register(ctx, RegisterInput{
		Token:    issued.Token,
		AgentKey: "dev-001",
		Config:   map[string]any{"interval": 30},
	})
	require.NoError(t, err)

	assert.NotZero(t, res.AgentID)
	assert.Equal(t, "dev-001", res.AgentKey)
	assert.Equal(t, "Agent dev-001", res.Name, "name defaults to a derived placeholder")
	assert.Equal(t, model.AgentStatusOnline, res.Status)
	assert.Equal(t, uint64(10), res.StoreID)

	// The heartbeat now sees the binding.
	hb, err := p.Heartbeat(ctx, HeartbeatInput{AgentKey: "dev-001", Status: model.AgentStatusMaintenance})
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusMaintenance, hb.Status)
	require.Len(t, hb.Assignments, 1)
	assert.Equal(t, uint64(10), hb.Assignments[0].StoreID)
}

func TestRegister_UnknownToken(t *testing.T) {
	p := newTestProvisioner(newMemStore(10))

	_, err := p.Register(context.Background(), RegisterInput{Token: "ZZZZ-ZZZZ", AgentKey: "dev-001"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegister_ExpiredToken(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)
	ctx := context.Background()

	issued, err := p.IssueToken(ctx, 10, 1, admin)
	require.NoError(t, err)

	// Move the clock past expiry instead of sleeping.
	p.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }

	_, err = p.Register(ctx, RegisterInput{Token: issued.Token, AgentKey: "dev-001"})
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Zero(t, st.agentCount(), "no agent row may appear for a rejected token")
}

func TestRegister_ReusedToken(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)
	ctx := context.Background()

	issued, err := p.IssueToken(ctx, 10, 15, admin)
	require.NoError(t, err)

	first, err := p.Register(ctx, RegisterInput{Token: issued.Token, AgentKey: "dev-001", Name: "Door sensor"})
	require.NoError(t, err)

	_, err = p.Register(ctx, RegisterInput{Token: issued.Token, AgentKey: "dev-002"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The first agent is unaffected by the failed replay.
	agent, err := st.FindAgentByKey(ctx, "dev-001")
	require.NoError(t, err)
	require.NotNil(t, agent)
	assert.Equal(t, first.AgentID, agent.ID)
	assert.Equal(t, "Door sensor", agent.Name)
}

func TestRegister_SingleRedemptionUnderRace(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)
	ctx := context.Background()

	issued, err := p.IssueToken(ctx, 10, 15, admin)
	require.NoError(t, err)

	const n = 20
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Register(ctx, RegisterInput{Token: issued.Token, AgentKey: "racer"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrInvalidToken)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent redemption may succeed")
}

func TestRegister_IdempotentReRegistration(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)
	ctx := context.Background()

	t1, err := p.IssueToken(ctx, 10, 15, admin)
	require.NoError(t, err)
	first, err := p.Register(ctx, RegisterInput{Token: t1.Token, AgentKey: "dev-001", Config: map[string]any{"a": 1}})
	require.NoError(t, err)

	t2, err := p.IssueToken(ctx, 10, 15, admin)
	require.NoError(t, err)
	second, err := p.Register(ctx, RegisterInput{Token: t2.Token, AgentKey: "dev-001", Config: map[string]any{"b": 2}})
	require.NoError(t, err)

	assert.Equal(t, first.AgentID, second.AgentID, "same agent row is reused")
	assert.Equal(t, 1, st.agentCount())
	assert.Equal(t, 1, st.bindingCount(), "same (store, agent) binding is reused")

	// Shallow merge favoring new values.
	agent, err := st.FindAgentByKey(ctx, "dev-001")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, agent.Config)
}

func TestRegister_MergeKeepsExistingFields(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)
	ctx := context.Background()

	desc := "north entrance"
	t1, _ := p.IssueToken(ctx, 10, 15, admin)
	_, err := p.Register(ctx, RegisterInput{Token: t1.Token, AgentKey: "dev-001", Name: "Cam A", Description: &desc})
	require.NoError(t, err)

	// Second registration omits name/description: both are retained.
	t2, _ := p.IssueToken(ctx, 10, 15, admin)
	res, err := p.Register(ctx, RegisterInput{Token: t2.Token, AgentKey: "dev-001"})
	require.NoError(t, err)
	assert.Equal(t, "Cam A", res.Name)

	agent, _ := st.FindAgentByKey(ctx, "dev-001")
	require.NotNil(t, agent.Description)
	assert.Equal(t, desc, *agent.Description)
}

func TestRegister_ReactivatesDeactivatedBinding(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)
	ctx := context.Background()

	t1, _ := p.IssueToken(ctx, 10, 15, admin)
	res, err := p.Register(ctx, RegisterInput{Token: t1.Token, AgentKey: "dev-002"})
	require.NoError(t, err)

	// Management action removes the agent from the store.
	st.deactivateBinding(10, res.AgentID)
	hb, err := p.Heartbeat(ctx, HeartbeatInput{AgentKey: "dev-002"})
	require.NoError(t, err)
	assert.Empty(t, hb.Assignments)

	// A fresh token re-registers the same agent: the binding flips back to
	// active instead of a new row appearing.
	t2, _ := p.IssueToken(ctx, 10, 15, admin)
	res2, err := p.Register(ctx, RegisterInput{Token: t2.Token, AgentKey: "dev-002"})
	require.NoError(t, err)
	assert.True(t, res2.Reactivated)
	assert.Equal(t, 1, st.bindingCount())

	hb, err = p.Heartbeat(ctx, HeartbeatInput{AgentKey: "dev-002"})
	require.NoError(t, err)
	require.Len(t, hb.Assignments, 1)
	assert.Equal(t, uint64(10), hb.Assignments[0].StoreID)
}

func TestHeartbeat_RequiresPriorRegistration(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)

	_, err := p.Heartbeat(context.Background(), HeartbeatInput{AgentKey: "never-registered"})
	assert.ErrorIs(t, err, ErrAgentNotFound)
	assert.Zero(t, st.agentCount(), "heartbeat must not create agents")
}

func TestHeartbeat_UpdatesStateAndMergesConfig(t *testing.T) {
	st := newMemStore(10)
	p := newTestProvisioner(st)
	ctx := context.Background()

	t1, _ := p.IssueToken(ctx, 10, 15, admin)
	_, err := p.Register(ctx, RegisterInput{Token: t1.Token, AgentKey: "dev-001", Config: map[string]any{"a": 1}})
	require.NoError(t, err)

	v := "2.1.0"
	hb, err := p.Heartbeat(ctx, HeartbeatInput{
		AgentKey: "dev-001",
		Status:   model.AgentStatusError,
		Config:   map[string]any{"b": 2},
		Version:  &v,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusError, hb.Status)
	assert.False(t, hb.LastSeenAt.IsZero())

	agent, _ := st.FindAgentByKey(ctx, "dev-001")
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, agent.Config)
	require.NotNil(t, agent.Version)
	assert.Equal(t, "2.1.0", *agent.Version)

	// Default status is online when omitted; repeating the same payload is
	// safe and only advances the timestamp.
	hb2, err := p.Heartbeat(ctx, HeartbeatInput{AgentKey: "dev-001"})
	require.NoError(t, err)
	assert.Equal(t, model.AgentStatusOnline, hb2.Status)
}

func TestMergeConfig(t *testing.T) {
	out := mergeConfig(map[string]any{"a": 1, "c": 3}, map[string]any{"a": 9, "b": 2})
	assert.Equal(t, map[string]any{"a": 9, "b": 2, "c": 3}, out)

	assert.Equal(t, map[string]any{}, mergeConfig(nil, nil))
	assert.Equal(t, map[string]any{"x": true}, mergeConfig(nil, map[string]any{"x": true}))
}
