package repositories

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func Test_Status_Monotonic_Never_Regresses(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewStatusRepository(db, slog.Default())

	messageID := uuid.New()

	status, changed, err := repository.Update(messageID, "bob", domain.StateDelivered)
	req.NoError(err)
	req.True(changed)
	req.Equal(domain.StateDelivered, status.State)

	status, changed, err = repository.Update(messageID, "bob", domain.StateRead)
	req.NoError(err)
	req.True(changed)
	req.Equal(domain.StateRead, status.State)

	// Regression attempts are silent no-ops.
	for _, regress := range []domain.DeliveryState{domain.StateSent, domain.StateDelivered} {
		status, changed, err = repository.Update(messageID, "bob", regress)
		req.NoError(err)
		req.False(changed)
		req.Equal(domain.StateRead, status.State)
	}
}

func Test_Status_Duplicate_Ack_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewStatusRepository(db, slog.Default())

	messageID := uuid.New()

	_, changed, err := repository.Update(messageID, "bob", domain.StateDelivered)
	req.NoError(err)
	req.True(changed)

	_, changed, err = repository.Update(messageID, "bob", domain.StateDelivered)
	req.NoError(err)
	req.False(changed)
}

// Concurrent acks from the same user must serialize: whatever the
// interleaving, the stored state is the maximum ever submitted.
func Test_Status_Concurrent_Acks(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewStatusRepository(db, slog.Default())

	messageID := uuid.New()
	states := []domain.DeliveryState{
		domain.StateSent, domain.StateDelivered, domain.StateRead,
		domain.StateDelivered, domain.StateSent, domain.StateRead,
	}

	var wg sync.WaitGroup
	for _, state := range states {
		wg.Add(1)
		go func(s domain.DeliveryState) {
			defer wg.Done()
			_, _, err := repository.Update(messageID, "bob", s)
			require.NoError(t, err)
		}(state)
	}
	wg.Wait()

	status, ok, err := repository.Get(messageID, "bob")
	req.NoError(err)
	req.True(ok)
	req.Equal(domain.StateRead, status.State)
}

func Test_Status_Get_Missing_Row(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewStatusRepository(db, slog.Default())

	_, ok, err := repository.Get(uuid.New(), "nobody")
	req.NoError(err)
	req.False(ok)
}
