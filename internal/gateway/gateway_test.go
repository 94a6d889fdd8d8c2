package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iksnae/orgdash/internal/session"
	"github.com/iksnae/orgdash/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, values map[string]string) (*Gateway, *session.Store, *testutil.FakeBackend, *atomic.Int32) {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	store := session.NewStore(session.NewMemoryPersister(values))
	if values != nil {
		_, err := store.Load()
		require.NoError(t, err)
	}

	var redirects atomic.Int32
	gw, err := New(backend.URL(), store, WithRedirector(RedirectFunc(func(error) { redirects.Add(1) })))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Drain(context.Background()) })
	return gw, store, backend, &redirects
}

func TestNewValidatesBaseURL(t *testing.T) {
	store := session.NewStore(session.NewMemoryPersister(nil))
	for _, raw := range []string{"", "not a url", "/relative", "http://"} {
		_, err := New(raw, store)
		assert.Error(t, err, "base URL %q", raw)
	}
}

func TestCallWithoutSessionSkipsNetwork(t *testing.T) {
	gw, _, backend, _ := newTestGateway(t, nil)

	_, err := gw.Call(context.Background(), EndpointOverview, http.MethodGet, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, backend.Calls())
}

func TestCallAttachesHeaders(t *testing.T) {
	gw, _, backend, _ := newTestGateway(t, testutil.OwnerSessionValues(time.Now()))

	_, err := gw.Overview(context.Background())
	require.NoError(t, err)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer abc", calls[0].Auth)
	assert.NotEmpty(t, calls[0].RequestID)
}

func TestCallRequestFailedKeepsSession(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    map[string]any
		wantMsg string
	}{
		{"detail field", http.StatusForbidden, map[string]any{"detail": "Only owners"}, "Only owners"},
		{"message field", http.StatusInternalServerError, map[string]any{"message": "boom"}, "boom"},
		{"no body", http.StatusNotFound, nil, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, store, backend, redirects := newTestGateway(t, testutil.OwnerSessionValues(time.Now()))
			backend.Handle(EndpointMembers, func(w http.ResponseWriter, r *http.Request) {
				if tt.body == nil {
					w.WriteHeader(tt.status)
					return
				}
				testutil.WriteJSON(w, tt.status, tt.body)
			})

			_, err := gw.Members(context.Background())
			var failed *RequestFailedError
			require.ErrorAs(t, err, &failed)
			assert.Equal(t, tt.status, failed.Status)
			assert.Equal(t, tt.wantMsg, failed.Message)
			assert.Equal(t, EndpointMembers, failed.Endpoint)
			assert.True(t, Regional(err))

			assert.True(t, store.Alive(testutil.OwnerToken))
			assert.Zero(t, redirects.Load())
		})
	}
}

func TestCallNetworkErrorKeepsSession(t *testing.T) {
	gw, store, backend, redirects := newTestGateway(t, testutil.OwnerSessionValues(time.Now()))
	backend.Server.Close()

	_, err := gw.Databases(context.Background())
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, EndpointDatabases, netErr.Endpoint)
	assert.True(t, store.Alive(testutil.OwnerToken))
	assert.Zero(t, redirects.Load())
}

func TestCall401ExpiresSession(t *testing.T) {
	gw, store, backend, redirects := newTestGateway(t, testutil.OwnerSessionValues(time.Now()))
	backend.Revoke(testutil.OwnerToken)

	_, err := gw.Overview(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, Regional(err))
	assert.False(t, store.Alive(testutil.OwnerToken))
	assert.EqualValues(t, 1, redirects.Load())

	// The session is gone: the next call never reaches the server.
	before := len(backend.Calls())
	_, err = gw.Members(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, store.Drain(context.Background()))
	paths := backend.Paths()
	for _, p := range paths[before:] {
		assert.Equal(t, EndpointLogout, p, "only the background logout may follow")
	}
}

func TestConcurrent401RedirectsOnce(t *testing.T) {
	gw, _, backend, redirects := newTestGateway(t, testutil.OwnerSessionValues(time.Now()))

	release := make(chan struct{})
	for _, ep := range []string{EndpointMembers, EndpointDatabases, EndpointInvitations, EndpointCostsByModel} {
		backend.Handle(ep, func(w http.ResponseWriter, r *http.Request) {
			<-release
			testutil.WriteJSON(w, http.StatusUnauthorized, map[string]any{"detail": "expired"})
		})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	calls := []func(context.Context) error{
		func(ctx context.Context) error { _, err := gw.Members(ctx); return err },
		func(ctx context.Context) error { _, err := gw.Databases(ctx); return err },
		func(ctx context.Context) error { _, err := gw.Invitations(ctx); return err },
		func(ctx context.Context) error { _, err := gw.CostsByModel(ctx); return err },
	}
	for _, call := range calls {
		wg.Add(1)
		go func(call func(context.Context) error) {
			defer wg.Done()
			errs <- call(context.Background())
		}(call)
	}
	// Let every request reach the server before answering.
	require.Eventually(t, func() bool { return len(backend.Calls()) == 4 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, ErrSessionExpired)
	}
	assert.EqualValues(t, 1, redirects.Load())
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		wantErr   bool
		wantCalls int
		wantRole  session.Role
		wantOrgID string
	}{
		{name: "owner", username: testutil.OwnerUsername, password: testutil.Password, wantCalls: 1, wantRole: session.RoleOwner, wantOrgID: "1"},
		{name: "member with string ids", username: testutil.MemberUsername, password: testutil.Password, wantCalls: 1, wantRole: session.RoleMember, wantOrgID: "1"},
		{name: "bad password", username: testutil.OwnerUsername, password: "nope", wantErr: true, wantCalls: 1},
		{name: "empty username", username: "  ", password: "x", wantErr: true},
		{name: "empty password", username: "alice", password: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, store, backend, _ := newTestGateway(t, nil)

			sess, err := gw.Login(context.Background(), tt.username, tt.password)
			assert.Len(t, backend.Calls(), tt.wantCalls)
			if tt.wantErr {
				var loginErr *LoginError
				require.ErrorAs(t, err, &loginErr)
				assert.NotEmpty(t, loginErr.Message)
				_, err := store.Current()
				assert.ErrorIs(t, err, session.ErrNoSession)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, sess.Role)
			assert.Equal(t, tt.wantOrgID, sess.OrganizationID)
			assert.Equal(t, "Acme", sess.OrganizationName)
			assert.False(t, sess.IssuedAt.IsZero())

			cur, err := store.Current()
			require.NoError(t, err)
			assert.Equal(t, sess, cur)
		})
	}
}

func TestLoginOwnerScenarioStoresFields(t *testing.T) {
	gw, store, _, _ := newTestGateway(t, nil)

	_, err := gw.Login(context.Background(), testutil.OwnerUsername, testutil.Password)
	require.NoError(t, err)

	sess, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, session.Session{
		Token:            "abc",
		Role:             session.RoleOwner,
		OrganizationID:   "1",
		OrganizationName: "Acme",
		UserID:           "7",
		IssuedAt:         sess.IssuedAt,
	}, sess)
}

func TestInvalidateTriggersRemoteLogout(t *testing.T) {
	gw, store, backend, redirects := newTestGateway(t, testutil.OwnerSessionValues(time.Now()))
	_, err := gw.Verify(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.Invalidate())
	require.NoError(t, store.Drain(context.Background()))

	assert.Equal(t, 1, backend.Count(EndpointLogout))
	calls := backend.Calls()
	assert.Equal(t, "Bearer abc", calls[len(calls)-1].Auth)
	assert.Zero(t, redirects.Load(), "explicit logout is not a redirect")
}

func TestRemoteLogoutFailureIsIgnored(t *testing.T) {
	gw, store, backend, _ := newTestGateway(t, testutil.OwnerSessionValues(time.Now()))
	backend.Fail(EndpointLogout, http.StatusInternalServerError, "down")

	require.NoError(t, store.Invalidate())
	require.NoError(t, store.Drain(context.Background()))
	_, err := store.Current()
	assert.ErrorIs(t, err, session.ErrNoSession)

	// Direct calls must not panic or surface anything either.
	gw.RemoteLogout(context.Background(), "whatever")
}

func TestCostsInputOutputMalformed(t *testing.T) {
	gw, _, backend, _ := newTestGateway(t, testutil.OwnerSessionValues(time.Now()))
	backend.Handle(EndpointCostsInputOutput, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[1, 2`))
	})

	payload, err := gw.CostsInputOutput(context.Background())
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestTypedEndpoints(t *testing.T) {
	gw, _, _, _ := newTestGateway(t, testutil.OwnerSessionValues(time.Now()))
	ctx := context.Background()

	overview, err := gw.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme", overview.Org.Name)
	assert.Equal(t, 2, overview.Stats.MembersCount)

	members, err := gw.Members(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "7", members[0].UserID.String())

	summary, err := gw.CostsOverview(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.66, summary.TotalCost, 1e-9)

	models, err := gw.CostsByModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", models[0].ModelName)
	assert.InDelta(t, 0.6, models[0].TotalCost, 1e-9)

	perUser, err := gw.CostsPerUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, perUser.TotalUsers)
	assert.InDelta(t, 0.33, perUser.AverageCostPerUser, 1e-9)

	created, err := gw.CreateInvitation(ctx, 5)
	require.NoError(t, err)
	assert.True(t, created.Success)
	assert.Contains(t, created.Link, created.Code)

	res, err := gw.RemoveMember(ctx, 7)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
}

func TestErrorMessages(t *testing.T) {
	err := error(&NetworkError{Endpoint: EndpointOverview, Err: context.DeadlineExceeded})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), EndpointOverview)

	rf := &RequestFailedError{Endpoint: EndpointMembers, Status: 500, Message: "boom"}
	assert.Equal(t, "/dashboard/members failed with status 500: boom", rf.Error())
	assert.False(t, Regional(nil))
}
