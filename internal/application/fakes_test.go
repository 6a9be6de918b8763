package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/infraconfig/internal/crypto"
	"github.com/ericfisherdev/infraconfig/internal/domain/model"
	"github.com/ericfisherdev/infraconfig/internal/domain/port/driven"
)

// --- Mock implementations for InfraConfigService tests ---

// mockInfraConfigStore is an in-memory store. WithinTx works on a copy of
// the rows and only keeps it when fn succeeds.
type mockInfraConfigStore struct {
	mu      sync.Mutex
	rows    map[model.ConfigName]model.InfraConfig
	failAll error // returned by every operation when set
	txCount int
}

func newMockStore() *mockInfraConfigStore {
	return &mockInfraConfigStore{rows: make(map[model.ConfigName]model.InfraConfig)}
}

func (m *mockInfraConfigStore) FindAll(ctx context.Context) ([]model.InfraConfig, error) {
	return m.queries().FindAll(ctx)
}

func (m *mockInfraConfigStore) FindByNames(ctx context.Context, names []model.ConfigName) ([]model.InfraConfig, error) {
	return m.queries().FindByNames(ctx, names)
}

func (m *mockInfraConfigStore) FindByName(ctx context.Context, name model.ConfigName) (model.InfraConfig, error) {
	return m.queries().FindByName(ctx, name)
}

func (m *mockInfraConfigStore) InsertMany(ctx context.Context, entries []model.InfraConfig) error {
	return m.queries().InsertMany(ctx, entries)
}

func (m *mockInfraConfigStore) UpdateByName(ctx context.Context, name model.ConfigName, value model.StoredValue) (model.InfraConfig, error) {
	return m.queries().UpdateByName(ctx, name, value)
}

func (m *mockInfraConfigStore) DeleteByNames(ctx context.Context, names []model.ConfigName) error {
	return m.queries().DeleteByNames(ctx, names)
}

func (m *mockInfraConfigStore) WithinTx(ctx context.Context, fn func(ctx context.Context, q driven.InfraConfigQueries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	if m.failAll != nil {
		return m.failAll
	}

	working := maps.Clone(m.rows)
	if err := fn(ctx, &mockQueries{rows: working, failAll: m.failAll}); err != nil {
		return err
	}
	m.rows = working
	return nil
}

func (m *mockInfraConfigStore) queries() *mockQueries {
	return &mockQueries{rows: m.rows, failAll: m.failAll}
}

func (m *mockInfraConfigStore) stored(t *testing.T, name model.ConfigName) model.StoredValue {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[name]
	require.True(t, ok, "row %s missing", name)
	return row.Value
}

func (m *mockInfraConfigStore) set(name model.ConfigName, value model.StoredValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[name] = model.InfraConfig{Name: name, Value: value}
}

func (m *mockInfraConfigStore) snapshot() map[model.ConfigName]model.InfraConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.rows)
}

type mockQueries struct {
	rows    map[model.ConfigName]model.InfraConfig
	failAll error
}

func (q *mockQueries) FindAll(_ context.Context) ([]model.InfraConfig, error) {
	if q.failAll != nil {
		return nil, q.failAll
	}
	out := make([]model.InfraConfig, 0, len(q.rows))
	for _, r := range q.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (q *mockQueries) FindByNames(_ context.Context, names []model.ConfigName) ([]model.InfraConfig, error) {
	if q.failAll != nil {
		return nil, q.failAll
	}
	out := []model.InfraConfig{}
	for _, n := range names {
		if r, ok := q.rows[n]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (q *mockQueries) FindByName(_ context.Context, name model.ConfigName) (model.InfraConfig, error) {
	if q.failAll != nil {
		return model.InfraConfig{}, q.failAll
	}
	r, ok := q.rows[name]
	if !ok {
		return model.InfraConfig{}, driven.ErrInfraConfigNotFound
	}
	return r, nil
}

func (q *mockQueries) InsertMany(_ context.Context, entries []model.InfraConfig) error {
	if q.failAll != nil {
		return q.failAll
	}
	for _, e := range entries {
		if _, ok := q.rows[e.Name]; ok {
			return errors.New("duplicate name " + string(e.Name))
		}
		q.rows[e.Name] = e
	}
	return nil
}

func (q *mockQueries) UpdateByName(_ context.Context, name model.ConfigName, value model.StoredValue) (model.InfraConfig, error) {
	if q.failAll != nil {
		return model.InfraConfig{}, q.failAll
	}
	if _, ok := q.rows[name]; !ok {
		return model.InfraConfig{}, driven.ErrInfraConfigNotFound
	}
	row := model.InfraConfig{Name: name, Value: value}
	q.rows[name] = row
	return row, nil
}

func (q *mockQueries) DeleteByNames(_ context.Context, names []model.ConfigName) error {
	if q.failAll != nil {
		return q.failAll
	}
	for _, n := range names {
		delete(q.rows, n)
	}
	return nil
}

type mockUserStore struct {
	count int
	err   error
}

func (m *mockUserStore) Add(_ context.Context, u model.User) (model.User, error) {
	m.count++
	u.ID = int64(m.count)
	return u, nil
}

func (m *mockUserStore) Count(_ context.Context) (int, error) {
	return m.count, m.err
}

type mockNotifier struct {
	mu      sync.Mutex
	topics  []string
	updates []driven.ConfigUpdate
}

func (m *mockNotifier) Publish(_ context.Context, topic string, update driven.ConfigUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	m.updates = append(m.updates, update)
}

type mockRestarter struct {
	reasons []string
}

func (m *mockRestarter) Restart(reason string) {
	m.reasons = append(m.reasons, reason)
}

type mockDefaults map[model.ConfigName]string

func (m mockDefaults) Values() map[model.ConfigName]string {
	out := make(map[model.ConfigName]string, len(model.AllConfigNames))
	for _, n := range model.AllConfigNames {
		out[n] = m[n]
	}
	return out
}

// baseDefaults mirrors the shipped defaults closely enough for the service tests.
func baseDefaults() mockDefaults {
	return mockDefaults{
		model.ConfigGoogleScope:                 "profile,email",
		model.ConfigGitHubScope:                 "user:email",
		model.ConfigMicrosoftScope:              "user.read",
		model.ConfigMicrosoftTenant:             "common",
		model.ConfigMailerSMTPEnable:            "false",
		model.ConfigMailerUseCustomConfigs:      "false",
		model.ConfigMailerSMTPSecure:            "false",
		model.ConfigMailerTLSRejectUnauthorized: "true",
		model.ConfigAllowedAuthProviders:        "EMAIL",
		model.ConfigAllowAnalyticsCollection:    "false",
		model.ConfigAnalyticsUserID:             "9b2f6c1e-2d1a-4b8e-9a55-0c1d2e3f4a5b",
		model.ConfigIsFirstTimeInfraSetup:       "true",
		model.ConfigUserHistoryStoreEnabled:     "true",
		model.ConfigTokenSaltComplexity:         "10",
		model.ConfigMagicLinkTokenValidity:      "3",
		model.ConfigAccessTokenValidity:         "86400000",
		model.ConfigRefreshTokenValidity:        "604800000",
		model.ConfigAllowSecureCookies:          "false",
		model.ConfigRateLimitTTL:                "60",
		model.ConfigRateLimitMax:                "100",
		model.ConfigOnboardingCompleted:         "false",
	}
}

const testKey = "0123456789abcdef0123456789abcdef"

type serviceFixture struct {
	svc       *InfraConfigService
	store     *mockInfraConfigStore
	users     *mockUserStore
	notifier  *mockNotifier
	restarter *mockRestarter
	cipher    *crypto.Cipher
	defaults  mockDefaults
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	c, err := crypto.New([]byte(testKey))
	require.NoError(t, err)

	f := &serviceFixture{
		store:     newMockStore(),
		users:     &mockUserStore{},
		notifier:  &mockNotifier{},
		restarter: &mockRestarter{},
		cipher:    c,
		defaults:  baseDefaults(),
	}
	f.svc = NewInfraConfigService(f.store, f.users, f.notifier, f.restarter, c, f.defaults,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

// newSeededFixture returns a fixture whose store has been initialized and
// whose restart and notification history has been cleared.
func newSeededFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := newFixture(t)
	require.NoError(t, f.svc.Initialize(context.Background()))
	f.restarter.reasons = nil
	f.notifier.topics = nil
	f.notifier.updates = nil
	return f
}

// plain reads a stored value back as plaintext.
func (f *serviceFixture) plain(t *testing.T, name model.ConfigName) string {
	t.Helper()
	v, err := f.store.stored(t, name).Reveal(f.cipher)
	require.NoError(t, err)
	return v
}

// seed writes plaintext directly, encrypting sensitive names.
func (f *serviceFixture) seed(t *testing.T, values map[model.ConfigName]string) {
	t.Helper()
	for name, value := range values {
		sealed, err := model.SealValue(name, value, f.cipher)
		require.NoError(t, err)
		f.store.set(name, sealed)
	}
}
