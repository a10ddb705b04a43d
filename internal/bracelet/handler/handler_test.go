package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"safeband/internal/bracelet/models"
	"safeband/internal/bracelet/service"
	"safeband/internal/bracelet/store"
	id "safeband/pkg/domain"
	"safeband/pkg/requestcontext"
)

const handlerToken = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type fixture struct {
	router http.Handler
	store  *store.InMemory
	userID id.UserID
}

// newFixture wires the real service against in-memory storage with a
// middleware that injects the authenticated caregiver, mirroring the
// production middleware chain.
func newFixture(t *testing.T, authenticated bool) *fixture {
	t.Helper()

	identities := store.NewInMemory()
	svc := service.New(identities)
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	userID := id.UserID(uuid.New())

	h := New(svc, log)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := requestcontext.WithTime(req.Context(), time.Now())
			if authenticated {
				ctx = requestcontext.WithUserID(ctx, userID)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.Register(r)
	h.RegisterAdmin(r)

	return &fixture{router: r, store: identities, userID: userID}
}

func (f *fixture) seed(t *testing.T, braceletID id.BraceletID, status models.Status) {
	t.Helper()
	identity, err := models.NewFactoryIdentity(braceletID, "BATCH-1", handlerToken, time.Now())
	require.NoError(t, err)
	identity.Status = status
	created, err := f.store.CreateIfAbsent(t.Context(), identity)
	require.NoError(t, err)
	require.True(t, created)
}

func (f *fixture) do(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestActivateSuccess(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t, "BF-001", models.StatusInactive)

	rec := f.do(t, http.MethodPost, "/bracelets/activate", map[string]string{
		"bracelet_id":  "BF-001",
		"secret_token": handlerToken,
		"profile_id":   uuid.NewString(),
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status       string `json:"status"`
		LinkedUserID string `json:"linked_user_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "ACTIVE", resp.Status)
	require.Equal(t, f.userID.String(), resp.LinkedUserID)
}

func TestActivateRequiresAuth(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodPost, "/bracelets/activate", map[string]string{
		"bracelet_id":  "BF-001",
		"secret_token": handlerToken,
		"profile_id":   uuid.NewString(),
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestActivateErrorMapping(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t, "BF-001", models.StatusInactive)
	f.seed(t, "BF-002", models.StatusFactoryLocked)

	cases := []struct {
		name       string
		payload    map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name: "wrong token",
			payload: map[string]string{
				"bracelet_id":  "BF-001",
				"secret_token": strings.Repeat("f", 64),
				"profile_id":   uuid.NewString(),
			},
			wantStatus: http.StatusForbidden,
			wantCode:   "token_mismatch",
		},
		{
			name: "unknown bracelet",
			payload: map[string]string{
				"bracelet_id":  "XX-999",
				"secret_token": handlerToken,
				"profile_id":   uuid.NewString(),
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name: "factory locked",
			payload: map[string]string{
				"bracelet_id":  "BF-002",
				"secret_token": handlerToken,
				"profile_id":   uuid.NewString(),
			},
			wantStatus: http.StatusConflict,
			wantCode:   "not_provisioned",
		},
		{
			name: "short token rejected before lookup",
			payload: map[string]string{
				"bracelet_id":  "BF-001",
				"secret_token": "short",
				"profile_id":   uuid.NewString(),
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/bracelets/activate", tc.payload)
			require.Equal(t, tc.wantStatus, rec.Code)

			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.Equal(t, tc.wantCode, resp["error"])
		})
	}
}

func TestActivateMalformedBody(t *testing.T) {
	f := newFixture(t, true)
	req := httptest.NewRequest(http.MethodPost, "/bracelets/activate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusReport(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t, "BF-001", models.StatusInactive)

	rec := f.do(t, http.MethodPost, "/bracelets/activate", map[string]string{
		"bracelet_id":  "BF-001",
		"secret_token": handlerToken,
		"profile_id":   uuid.NewString(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/bracelets/BF-001/status", map[string]string{"status": "LOST"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "LOST", resp.Status)

	// Unknown status values are rejected at the request boundary.
	rec = f.do(t, http.MethodPost, "/bracelets/BF-001/status", map[string]string{"status": "EATEN"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProvisionAndUnlock(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/batches/BATCH-1/provision", map[string]any{
		"prefix": "BF",
		"size":   3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var provisioned struct {
		Created int             `json:"created"`
		Skipped int             `json:"skipped"`
		IDs     []id.BraceletID `json:"ids"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&provisioned))
	require.Equal(t, 3, provisioned.Created)
	require.Len(t, provisioned.IDs, 3)

	// Re-provisioning the same batch is a no-op.
	rec = f.do(t, http.MethodPost, "/batches/BATCH-1/provision", map[string]any{
		"prefix": "BF",
		"size":   3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&provisioned))
	require.Equal(t, 0, provisioned.Created)
	require.Equal(t, 3, provisioned.Skipped)

	rec = f.do(t, http.MethodPost, "/batches/BATCH-1/unlock", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var unlocked map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&unlocked))
	require.Equal(t, 3, unlocked["unlocked"])
}

func TestProvisionInvalidBatchID(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodPost, "/batches/bad_batch!/provision", map[string]any{
		"prefix": "BF",
		"size":   1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
