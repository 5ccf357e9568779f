package api_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"chatd/pkg/api"
	"chatd/pkg/auth"
	"chatd/pkg/config"
	"chatd/pkg/models"
	"chatd/pkg/service"
	"chatd/pkg/store"
	"chatd/pkg/users"
)

const (
	backendKey  = "backend-secret"
	frontendKey = "frontend-secret"
)

func signHMAC(key, userID string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// setupServer boots the full middleware chain (gateway + signed identity +
// routes) against a fresh store.
func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })

	config.SetRuntime(&config.RuntimeConfig{
		BackendKeys: map[string]struct{}{backendKey: {}},
		SigningKeys: map[string]struct{}{backendKey: {}},
	})
	t.Cleanup(func() { config.SetRuntime(nil) })

	svc := service.New(users.StoreDirectory{}, nil)

	mux := http.NewServeMux()
	mux.Handle("/", api.Router(api.Deps{Svc: svc}))
	secCfg := auth.SecConfig{
		RPS:          1000,
		Burst:        1000,
		BackendKeys:  map[string]struct{}{backendKey: {}},
		FrontendKeys: map[string]struct{}{frontendKey: {}},
	}
	handler := auth.AuthenticateRequestMiddleware(secCfg)(mux)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := httptest.NewUnstartedServer(handler)
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

// doJSON performs a request with a frontend API key and a signed identity.
func doJSON(t *testing.T, srv *httptest.Server, method, path, userID string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", frontendKey)
	req.Header.Set("X-User-ID", userID)
	req.Header.Set("X-User-Signature", signHMAC(backendKey, userID))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return res
}

func registerUser(t *testing.T, srv *httptest.Server, id string) {
	t.Helper()
	b, _ := json.Marshal(models.UserSummary{ID: id, Username: id})
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/v1/users/"+id, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", backendKey)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

func TestAPIKeyRequired(t *testing.T) {
	srv := setupServer(t)

	res, err := http.Get(srv.URL + "/v1/conversations")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestFrontendRequiresSignature(t *testing.T) {
	srv := setupServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/conversations", nil)
	req.Header.Set("X-API-Key", frontendKey)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	// a wrong signature is rejected too
	req.Header.Set("X-User-ID", "alice")
	req.Header.Set("X-User-Signature", "deadbeef")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestFrontendCannotSyncProfiles(t *testing.T) {
	srv := setupServer(t)

	res := doJSON(t, srv, http.MethodPut, "/v1/users/alice", "alice", models.UserSummary{ID: "alice"})
	require.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestSendAndFetchMessages(t *testing.T) {
	srv := setupServer(t)
	registerUser(t, srv, "alice")
	registerUser(t, srv, "bob")

	res := doJSON(t, srv, http.MethodPost, "/v1/messages", "alice",
		map[string]string{"recipient": "bob", "kind": "text", "text": "hello"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	sent := decode[struct {
		Message      models.Message      `json:"message"`
		Conversation models.Conversation `json:"conversation"`
	}](t, res)
	require.Equal(t, "hello", sent.Message.Text)
	require.Equal(t, "hello", sent.Conversation.LastMessage.Text)

	// history from the recipient side
	res = doJSON(t, srv, http.MethodGet, "/v1/conversations/alice/messages", "bob", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	hist := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, res)
	require.Len(t, hist.Messages, 1)
	require.Equal(t, sent.Message.ID, hist.Messages[0].ID)

	// no conversation with a third user
	registerUser(t, srv, "carol")
	res = doJSON(t, srv, http.MethodGet, "/v1/conversations/carol/messages", "alice", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	errBody := decode[map[string]string](t, res)
	require.Equal(t, "Conversation not found", errBody["error"])
}

func TestSendMessageRejectsBadInput(t *testing.T) {
	srv := setupServer(t)
	registerUser(t, srv, "alice")
	registerUser(t, srv, "bob")

	// unknown recipient
	res := doJSON(t, srv, http.MethodPost, "/v1/messages", "alice",
		map[string]string{"recipient": "ghost", "kind": "text", "text": "hi"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	// self-addressed
	res = doJSON(t, srv, http.MethodPost, "/v1/messages", "alice",
		map[string]string{"recipient": "alice", "kind": "text", "text": "hi"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	// empty text
	res = doJSON(t, srv, http.MethodPost, "/v1/messages", "alice",
		map[string]string{"recipient": "bob", "kind": "text"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestListConversations(t *testing.T) {
	srv := setupServer(t)
	registerUser(t, srv, "alice")
	registerUser(t, srv, "bob")
	registerUser(t, srv, "carol")

	doJSON(t, srv, http.MethodPost, "/v1/messages", "alice",
		map[string]string{"recipient": "bob", "kind": "text", "text": "to bob"})
	doJSON(t, srv, http.MethodPost, "/v1/messages", "alice",
		map[string]string{"recipient": "carol", "kind": "text", "text": "to carol"})

	res := doJSON(t, srv, http.MethodGet, "/v1/conversations", "alice", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	out := decode[struct {
		Conversations []service.ConversationView `json:"conversations"`
	}](t, res)
	require.Len(t, out.Conversations, 2)
	require.Equal(t, "to carol", out.Conversations[0].LastMessage.Text)
	require.Len(t, out.Conversations[0].Participants, 1)
	require.Equal(t, "carol", out.Conversations[0].Participants[0].ID)
}

func TestReactEditDelete(t *testing.T) {
	srv := setupServer(t)
	registerUser(t, srv, "alice")
	registerUser(t, srv, "bob")

	res := doJSON(t, srv, http.MethodPost, "/v1/messages", "alice",
		map[string]string{"recipient": "bob", "kind": "text", "text": "v1"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	sent := decode[struct {
		Message models.Message `json:"message"`
	}](t, res)
	msgID := sent.Message.ID

	// reaction from the recipient
	res = doJSON(t, srv, http.MethodPost, "/v1/messages/"+msgID+"/reactions", "bob",
		map[string]string{"emoji": "👍"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	m := decode[models.Message](t, res)
	require.True(t, m.HasReaction("bob", "👍"))

	// edit by a non-sender is forbidden
	res = doJSON(t, srv, http.MethodPut, "/v1/messages/"+msgID, "bob",
		map[string]string{"text": "hijack"})
	require.Equal(t, http.StatusForbidden, res.StatusCode)

	// identical text conflicts
	res = doJSON(t, srv, http.MethodPut, "/v1/messages/"+msgID, "alice",
		map[string]string{"text": "v1"})
	require.Equal(t, http.StatusConflict, res.StatusCode)

	// real edit succeeds and is versioned
	res = doJSON(t, srv, http.MethodPut, "/v1/messages/"+msgID, "alice",
		map[string]string{"text": "v2"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	m = decode[models.Message](t, res)
	require.True(t, m.Edited)

	res = doJSON(t, srv, http.MethodGet, "/v1/messages/"+msgID+"/versions", "bob", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	vs := decode[struct {
		Versions []models.Message `json:"versions"`
	}](t, res)
	require.Len(t, vs.Versions, 1)
	require.Equal(t, "v1", vs.Versions[0].Text)

	// soft delete leaves a tombstone
	res = doJSON(t, srv, http.MethodDelete, "/v1/messages/"+msgID, "alice", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	m = decode[models.Message](t, res)
	require.True(t, m.Deleted)
	require.Empty(t, m.Text)
}

func TestDeleteConversation(t *testing.T) {
	srv := setupServer(t)
	registerUser(t, srv, "alice")
	registerUser(t, srv, "bob")
	registerUser(t, srv, "carol")

	res := doJSON(t, srv, http.MethodPost, "/v1/messages", "alice",
		map[string]string{"recipient": "bob", "kind": "text", "text": "bye"})
	sent := decode[struct {
		Conversation models.Conversation `json:"conversation"`
	}](t, res)
	convID := sent.Conversation.ID

	// outsiders cannot delete
	res = doJSON(t, srv, http.MethodDelete, "/v1/conversations/"+convID, "carol", nil)
	require.Equal(t, http.StatusForbidden, res.StatusCode)

	res = doJSON(t, srv, http.MethodDelete, "/v1/conversations/"+convID, "bob", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = doJSON(t, srv, http.MethodGet, "/v1/conversations/bob/messages", "alice", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestBackendActsForUser(t *testing.T) {
	srv := setupServer(t)
	registerUser(t, srv, "alice")
	registerUser(t, srv, "bob")

	// backend key, no signature: acting user comes from X-User-ID
	b, _ := json.Marshal(map[string]string{"recipient": "bob", "kind": "text", "text": "from backend"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/messages", bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", backendKey)
	req.Header.Set("X-User-ID", "alice")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode)
}
