package common

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_Generation(t *testing.T) {
	tests := []struct {
		name string
		test func(*testing.T)
	}{
		{
			name: "NewID generates unique IDs",
			test: func(t *testing.T) {
				id1 := NewID()
				id2 := NewID()

				assert.NotEqual(t, id1, id2)
				assert.NotEmpty(t, id1)
			},
		},
		{
			name: "NewID generates valid UUIDs",
			test: func(t *testing.T) {
				id := NewID()
				assert.True(t, id.IsValid())

				_, err := uuid.Parse(string(id))
				assert.NoError(t, err)
			},
		},
		{
			name: "IsValid returns false for invalid UUIDs",
			test: func(t *testing.T) {
				for _, invalidID := range []string{"invalid-uuid", "", "550e8400-e29b-41d4-a716"} {
					assert.False(t, ID(invalidID).IsValid(), "Expected %s to be invalid", invalidID)
				}
			},
		},
		{
			name: "typed constructors produce valid ids",
			test: func(t *testing.T) {
				assert.True(t, ID(NewCheckID()).IsValid())
				assert.True(t, ID(NewContactID()).IsValid())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.test)
	}
}

func TestID_JSONRoundTrip(t *testing.T) {
	id := ID("550e8400-e29b-41d4-a716-446655440000")

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"550e8400-e29b-41d4-a716-446655440000"`, string(data))

	var decoded ID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)

	assert.Error(t, json.Unmarshal([]byte(`123`), &decoded))
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		status   CheckStatus
		valid    bool
		terminal bool
	}{
		{CheckStatusPending, true, false},
		{CheckStatusResponded, true, true},
		{CheckStatusTimedOut, true, true},
		{CheckStatus("expired"), false, false},
		{CheckStatus(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.IsValid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestEnums_IsValid(t *testing.T) {
	assert.True(t, ResponseOkay.IsValid())
	assert.True(t, ResponseNeedHelp.IsValid())
	assert.False(t, ResponseKind("maybe").IsValid())

	assert.True(t, UrgencyRoutine.IsValid())
	assert.True(t, UrgencyUrgent.IsValid())
	assert.False(t, Urgency("low").IsValid())

	assert.True(t, ChannelChat.IsValid())
	assert.True(t, ChannelPhone.IsValid())
	assert.False(t, ChannelType("email").IsValid())
}

func TestErrorTypes(t *testing.T) {
	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError{Field: "check_hour", Message: "must be between 0 and 23"}
		assert.Equal(t, "validation error for field 'check_hour': must be between 0 and 23", err.Error())
		assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", err)))
		assert.False(t, IsNotFound(err))
	})

	t.Run("NotFoundError", func(t *testing.T) {
		err := NotFoundError{Resource: "user", ID: "42"}
		assert.Equal(t, "user with ID '42' not found", err.Error())
		assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", err)))
		assert.False(t, IsValidation(err))
	})

	t.Run("InternalError unwraps its cause", func(t *testing.T) {
		cause := fmt.Errorf("connection reset")
		err := InternalError{Message: "store unavailable", Cause: cause}
		assert.Contains(t, err.Error(), "store unavailable")
		assert.Contains(t, err.Error(), "connection reset")
		assert.ErrorIs(t, err, cause)

		assert.Equal(t, "internal error: boom", InternalError{Message: "boom"}.Error())
	})
}

func TestRepositoryError(t *testing.T) {
	cause := fmt.Errorf("deadlock detected")
	err := WrapRepositoryError(cause, "stamp last check date")

	var repoErr RepositoryError
	require.ErrorAs(t, err, &repoErr)
	assert.Equal(t, ErrCodeRepository, repoErr.Code())
	assert.Equal(t, "database operation failed", repoErr.Message())
	assert.True(t, repoErr.Temporary())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "stamp last check date")
	assert.True(t, IsRepositoryError(fmt.Errorf("outer: %w", err)))

	assert.NoError(t, WrapRepositoryError(nil, "noop"))
	assert.False(t, IsRepositoryError(NotFoundError{Resource: "user", ID: "1"}))
}
