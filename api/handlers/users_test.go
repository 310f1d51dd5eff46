package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminUser = "1001"

func seedUser(t *testing.T, f *adminFixture) {
	t.Helper()
	_, created, err := f.users.EnsureUser(context.Background(), adminUser, "Una")
	require.NoError(t, err)
	require.True(t, created)
}

func TestUserHandler_GetUser(t *testing.T) {
	f := newAdminFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/users/"+adminUser, nil)
	expectStatus(t, w, http.StatusNotFound)

	seedUser(t, f)
	w = f.do(t, http.MethodGet, "/api/v1/users/"+adminUser, nil)
	expectStatus(t, w, http.StatusOK)

	response := decode(t, w)
	assert.Equal(t, adminUser, response["id"])
	assert.Equal(t, "Una", response["display_name"])
	assert.EqualValues(t, 9, response["check_hour"])
	assert.EqualValues(t, 30, response["timeout_minutes"])
	assert.Equal(t, true, response["is_active"])
}

func TestUserHandler_UpdateUser(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedField  string
	}{
		{
			name:           "valid settings",
			body:           map[string]interface{}{"check_hour": 7, "timeout_minutes": 45, "is_active": false},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "hour out of range",
			body:           map[string]interface{}{"check_hour": 24},
			expectedStatus: http.StatusBadRequest,
			expectedField:  "check_hour",
		},
		{
			name:           "non-positive timeout",
			body:           map[string]interface{}{"timeout_minutes": 0},
			expectedStatus: http.StatusBadRequest,
			expectedField:  "timeout_minutes",
		},
		{
			name:           "malformed body",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdminFixture(t)
			seedUser(t, f)

			w := f.do(t, http.MethodPatch, "/api/v1/users/"+adminUser, tt.body)
			expectStatus(t, w, tt.expectedStatus)

			response := decode(t, w)
			if tt.expectedField != "" {
				assert.Equal(t, tt.expectedField, response["field"])
			}
			if tt.expectedStatus == http.StatusOK {
				assert.EqualValues(t, 7, response["check_hour"])
				assert.EqualValues(t, 45, response["timeout_minutes"])
				assert.Equal(t, false, response["is_active"])
			}
		})
	}
}

func TestUserHandler_UpdateUnknownUser(t *testing.T) {
	f := newAdminFixture(t)

	w := f.do(t, http.MethodPatch, "/api/v1/users/404", map[string]interface{}{"check_hour": 7})
	expectStatus(t, w, http.StatusNotFound)
}

func TestUserHandler_Contacts(t *testing.T) {
	f := newAdminFixture(t)
	seedUser(t, f)
	base := "/api/v1/users/" + adminUser + "/contacts"

	w := f.do(t, http.MethodPost, base, map[string]string{"address": "2002", "display_name": "Sister"})
	expectStatus(t, w, http.StatusCreated)
	contactID, ok := decode(t, w)["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, contactID)

	w = f.do(t, http.MethodPost, base, map[string]string{"address": "+15551234567"})
	expectStatus(t, w, http.StatusCreated)
	assert.Equal(t, "phone", decode(t, w)["channel_type"])

	w = f.do(t, http.MethodPost, base, map[string]string{"address": "not-a-chat"})
	expectStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "address", decode(t, w)["field"])

	w = f.do(t, http.MethodPost, base, map[string]string{"display_name": "No address"})
	expectStatus(t, w, http.StatusBadRequest)

	w = f.do(t, http.MethodGet, base, nil)
	expectStatus(t, w, http.StatusOK)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = f.do(t, http.MethodDelete, base+"/"+contactID, nil)
	expectStatus(t, w, http.StatusNoContent)

	w = f.do(t, http.MethodDelete, base+"/"+contactID, nil)
	expectStatus(t, w, http.StatusNotFound)

	w = f.do(t, http.MethodGet, base, nil)
	expectStatus(t, w, http.StatusOK)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = f.do(t, http.MethodGet, "/api/v1/users/404/contacts", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestUserHandler_CheckLifecycle(t *testing.T) {
	f := newAdminFixture(t)
	seedUser(t, f)
	base := "/api/v1/users/" + adminUser

	w := f.do(t, http.MethodPost, base+"/checks", nil)
	expectStatus(t, w, http.StatusCreated)
	created := decode(t, w)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "on_demand", created["source"])
	assert.Len(t, f.provider.GetMessagesForChat(1001), 1, "the prompt goes to the user's chat")

	w = f.do(t, http.MethodPost, base+"/responses", map[string]string{"kind": "maybe"})
	expectStatus(t, w, http.StatusBadRequest)

	w = f.do(t, http.MethodPost, base+"/responses", map[string]string{"kind": "okay"})
	expectStatus(t, w, http.StatusOK)
	outcome := decode(t, w)
	assert.Equal(t, true, outcome["resolved"])
	assert.Equal(t, created["id"], outcome["check_id"])

	w = f.do(t, http.MethodPost, base+"/responses", map[string]string{"kind": "okay"})
	expectStatus(t, w, http.StatusOK)
	assert.Equal(t, false, decode(t, w)["resolved"], "a second answer resolves nothing")

	w = f.do(t, http.MethodGet, base+"/checks", nil)
	expectStatus(t, w, http.StatusOK)
	history := decode(t, w)
	assert.EqualValues(t, 1, history["count"])
	checks, ok := history["checks"].([]interface{})
	require.True(t, ok)
	first, ok := checks[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "responded", first["status"])
	assert.Equal(t, "okay", first["resolution"])
}

func TestUserHandler_ListChecksLimit(t *testing.T) {
	f := newAdminFixture(t)
	seedUser(t, f)

	for _, limit := range []string{"abc", "0", "-3"} {
		w := f.do(t, http.MethodGet, "/api/v1/users/"+adminUser+"/checks?limit="+limit, nil)
		expectStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, "limit", decode(t, w)["field"])
	}

	w := f.do(t, http.MethodGet, "/api/v1/users/"+adminUser+"/checks?limit=500", nil)
	expectStatus(t, w, http.StatusOK)
	assert.EqualValues(t, 0, decode(t, w)["count"])
}

func TestUserHandler_CreateCheckUnknownUser(t *testing.T) {
	f := newAdminFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/users/404/checks", nil)
	expectStatus(t, w, http.StatusNotFound)
	assert.Empty(t, f.provider.GetSentMessages())
}
