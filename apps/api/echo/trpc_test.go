package echoapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/teleapo/core/user"
)

func TestRPC_Gates(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name     string
		path     string
		mutation bool
		user     *user.User
		wantCode int
		wantMsg  string
	}{
		{name: "protected, anonymous", path: "leads.list", wantCode: http.StatusUnauthorized, wantMsg: "Please login (10001)"},
		{name: "protected, viewer", path: "leads.list", user: &f.viewer, wantCode: http.StatusOK},
		{name: "agent only, viewer", path: "leads.myLeads", user: &f.viewer, wantCode: http.StatusForbidden, wantMsg: "Agent access required"},
		{name: "agent only, agent", path: "leads.myLeads", user: &f.agent, wantCode: http.StatusOK},
		{name: "manager only, agent", path: "operators.getAll", user: &f.agent, wantCode: http.StatusForbidden, wantMsg: "Manager access required"},
		{name: "manager only, manager", path: "operators.getAll", user: &f.manager, wantCode: http.StatusOK},
		{name: "manager only, admin", path: "operators.getAll", user: &f.admin, wantCode: http.StatusOK},
		{name: "admin only, manager", path: "users.getAll", user: &f.manager, wantCode: http.StatusForbidden, wantMsg: "Admin access required"},
		{name: "admin only, admin", path: "users.getAll", user: &f.admin, wantCode: http.StatusOK},
		{name: "system admin, manager", path: "system.notifyOwner", mutation: true, user: &f.manager, wantCode: http.StatusForbidden, wantMsg: "You do not have required permission (10002)"},
		{name: "project manager, agent", path: "projects.update", mutation: true, user: &f.agent, wantCode: http.StatusForbidden, wantMsg: "Project manager access required"},
		{name: "public, anonymous", path: "csv.getSampleCSV", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tt.mutation {
				rec = f.mutate(t, tt.path, map[string]interface{}{}, tt.user)
			} else {
				rec = f.query(t, tt.path, nil, tt.user)
			}
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantMsg != "" {
				e := rpcError(t, rec)
				assert.Equal(t, tt.wantMsg, e.Error.Message)
				assert.Equal(t, tt.wantCode, e.Error.Data.HTTPStatus)
				assert.Equal(t, tt.path, e.Error.Data.Path)
			}
		})
	}
}

func TestRPC_UnknownProcedure(t *testing.T) {
	f := setup(t)

	rec := f.query(t, "leads.nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{
		"error": {
			"message": "No \"query\"-procedure on path \"leads.nope\"",
			"code": -32004,
			"data": {"code": "NOT_FOUND", "httpStatus": 404, "path": "leads.nope"}
		}
	}`, rec.Body.String())
}

func TestRPC_WrongMethod(t *testing.T) {
	f := setup(t)

	rec := f.query(t, "auth.logout", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	e := rpcError(t, rec)
	assert.Equal(t, "METHOD_NOT_SUPPORTED", e.Error.Data.Code)
	assert.Equal(t, -32005, e.Error.Code)
	assert.Equal(t, `Unsupported GET-request to mutation procedure at path "auth.logout"`, e.Error.Message)

	rec = f.mutate(t, "auth.me", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRPC_InputValidation(t *testing.T) {
	f := setup(t)

	rec := f.query(t, "leads.getById", nil, &f.agent)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := rpcError(t, rec)
	assert.Equal(t, "BAD_REQUEST", e.Error.Data.Code)
	assert.Equal(t, -32600, e.Error.Code)
	assert.Equal(t, map[string]string{"id": "this field is required"}, e.Error.Data.FieldErrors)

	req := newJSONRequest(http.MethodPost, "/api/trpc/leads.update", []byte(`{"id": "one"}`))
	rec = f.serve(t, req, &f.agent)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rpcError(t, rec).Error.Message, "invalid input")

	rec = f.query(t, "system.health", map[string]interface{}{"timestamp": -1}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rpcError(t, rec).Error.Data.FieldErrors, "timestamp")
}

func TestRPC_Health(t *testing.T) {
	f := setup(t)

	var out map[string]bool
	result(t, f.query(t, "system.health", map[string]interface{}{"timestamp": 1700000000000}, nil), &out)
	assert.Equal(t, map[string]bool{"ok": true}, out)
}

func TestRPC_Batch(t *testing.T) {
	f := setup(t)
	input := url.QueryEscape(`{"0": {"timestamp": 1}, "1": {"id": 999}}`)

	t.Run("same status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/trpc/system.health,auth.me?batch=1&input="+input, nil)
		rec := f.serve(t, req, &f.agent)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var out []struct {
			Result struct {
				Data json.RawMessage `json:"data"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Len(t, out, 2)
		assert.JSONEq(t, `{"ok": true}`, string(out[0].Result.Data))

		var me user.User
		require.NoError(t, json.Unmarshal(out[1].Result.Data, &me))
		assert.Equal(t, f.agent.ID, me.ID)
	})

	t.Run("mixed statuses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/trpc/system.health,users.getAll?batch=1&input="+input, nil)
		rec := f.serve(t, req, &f.agent)
		require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

		var out []rpcErr
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		require.Len(t, out, 2)
		assert.Empty(t, out[0].Error.Message)
		assert.Equal(t, "FORBIDDEN", out[1].Error.Data.Code)
		assert.Equal(t, "users.getAll", out[1].Error.Data.Path)
	})

	t.Run("bad input", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/trpc/system.health,auth.me?batch=1&input=%5B%5D", nil)
		rec := f.serve(t, req, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRPC_WrappedInput(t *testing.T) {
	f := setup(t)

	var out map[string]bool
	rec := f.query(t, "system.health", map[string]interface{}{
		"json": map[string]interface{}{"timestamp": 1},
		"meta": map[string]interface{}{"values": map[string]interface{}{}},
	}, nil)
	result(t, rec, &out)
	assert.True(t, out["ok"])
}
