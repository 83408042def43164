package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from SyncStatus
		to   SyncStatus
		want bool
	}{
		{"pending to syncing", SyncStatusPending, SyncStatusSyncing, true},
		{"pending to deleted", SyncStatusPending, SyncStatusDeleted, true},
		{"pending to synced", SyncStatusPending, SyncStatusSynced, false},
		{"syncing to synced", SyncStatusSyncing, SyncStatusSynced, true},
		{"syncing to failed", SyncStatusSyncing, SyncStatusFailed, true},
		{"synced to modified", SyncStatusSynced, SyncStatusModified, true},
		{"synced to syncing", SyncStatusSynced, SyncStatusSyncing, false},
		{"failed to syncing", SyncStatusFailed, SyncStatusSyncing, true},
		{"modified to syncing", SyncStatusModified, SyncStatusSyncing, true},
		{"modified to modified", SyncStatusModified, SyncStatusModified, true},
		{"deleted is terminal", SyncStatusDeleted, SyncStatusPending, false},
		{"deleted to syncing", SyncStatusDeleted, SyncStatusSyncing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestSyncStatusNeedsSync(t *testing.T) {
	assert.True(t, SyncStatusPending.NeedsSync())
	assert.True(t, SyncStatusModified.NeedsSync())
	assert.True(t, SyncStatusFailed.NeedsSync())

	assert.False(t, SyncStatusSyncing.NeedsSync())
	assert.False(t, SyncStatusSynced.NeedsSync())
	assert.False(t, SyncStatusDeleted.NeedsSync())
}

func TestSyncStatusValid(t *testing.T) {
	assert.True(t, SyncStatusPending.Valid())
	assert.True(t, SyncStatusDeleted.Valid())
	assert.False(t, SyncStatus("UNKNOWN").Valid())
	assert.False(t, SyncStatus("").Valid())
}

func TestErrInvalidTransitionMessage(t *testing.T) {
	err := &ErrInvalidTransition{From: SyncStatusDeleted, To: SyncStatusSyncing}
	assert.Equal(t, "invalid sync status transition: DELETED -> SYNCING", err.Error())
}
