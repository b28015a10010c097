package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/store"
)

func TestParseBulkCommand(t *testing.T) {
	for _, action := range []string{"confirm", "ship", "deliver", "cancel"} {
		_, err := ParseBulkCommand(action, "")
		assert.NoError(t, err, action)
	}

	for _, value := range []string{"pending", "processing", "shipped", "delivered", "cancelled"} {
		_, err := ParseBulkCommand("set_status", value)
		assert.NoError(t, err, value)
	}

	_, err := ParseBulkCommand("explode", "")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = ParseBulkCommand("set_status", "teleported")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = ParseBulkCommand("set_status", "")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestBulkCommandPatches(t *testing.T) {
	tests := []struct {
		action string
		value  string
		want   store.FlagsPatch
	}{
		{"confirm", "", store.FlagsPatch{Confirm: true}},
		{"ship", "", store.FlagsPatch{Confirm: true, Ship: true}},
		{"deliver", "", store.FlagsPatch{Confirm: true, Ship: true, Deliver: true}},
		{"cancel", "", store.FlagsPatch{Cancel: true}},
		{"set_status", "pending", store.FlagsPatch{Reset: true}},
		{"set_status", "processing", store.FlagsPatch{Reset: true, Confirm: true}},
		{"set_status", "shipped", store.FlagsPatch{Reset: true, Confirm: true, Ship: true}},
		{"set_status", "delivered", store.FlagsPatch{Reset: true, Confirm: true, Ship: true, Deliver: true}},
		{"set_status", "cancelled", store.FlagsPatch{Reset: true, Cancel: true}},
	}
	for _, tc := range tests {
		cmd, err := ParseBulkCommand(tc.action, tc.value)
		require.NoError(t, err, "%s %s", tc.action, tc.value)
		assert.Equal(t, tc.want, cmd.patch(), "%s %s", tc.action, tc.value)
	}
}
