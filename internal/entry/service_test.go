package entry

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relayd/internal/apierr"
	"github.com/relaymesh/relayd/internal/store"
	"github.com/relaymesh/relayd/internal/store/memory"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) Notify(ctx context.Context, recipientPublicKey, pairID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recipientPublicKey+":"+pairID)
}

func setupPair(t *testing.T, st *memory.Store) (author, partner, pairID string) {
	t.Helper()
	ctx := context.Background()
	pairID = "pair-1"
	require.NoError(t, st.InitiatePair(ctx, "author-key", store.RelayToken{
		Token: "tok", InitiatorKey: "author-key", PairID: pairID, ExpiresAt: time.Now().Add(time.Minute),
	}))
	ok, _, err := st.JoinPair(ctx, "tok", "partner-key")
	require.NoError(t, err)
	require.True(t, ok)
	return "author-key", "partner-key", pairID
}

func TestUpload_HappyPathFiresNotify(t *testing.T) {
	st := memory.New()
	notifier := &recordingNotifier{}
	svc := New(st, st, notifier, nil, DefaultDailyUploadLimit)
	ctx := context.Background()

	author, _, pairID := setupPair(t, st)
	payload := base64.StdEncoding.EncodeToString([]byte("ciphertext"))

	result, err := svc.Upload(ctx, author, pairID, "2026-07-30", payload)
	require.NoError(t, err)
	require.Equal(t, "stored", result.Status)
	require.NotEmpty(t, result.ID)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		notifier.mu.Lock()
		got := len(notifier.calls) > 0
		notifier.mu.Unlock()
		if got {
			break
		}
		time.Sleep(time.Millisecond)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.calls, 1)
	require.Equal(t, "partner-key:pair-1", notifier.calls[0])
}

func TestUpload_RejectsBadDayID(t *testing.T) {
	st := memory.New()
	svc := New(st, st, nil, nil, DefaultDailyUploadLimit)
	ctx := context.Background()

	author, _, pairID := setupPair(t, st)

	_, err := svc.Upload(ctx, author, pairID, "not-a-date", base64.StdEncoding.EncodeToString([]byte("x")))
	require.Error(t, err)
	require.Equal(t, apierr.KindInvalidInput, err.(*apierr.Error).Kind)
}

func TestUpload_EnforcesDailyRateLimit(t *testing.T) {
	st := memory.New()
	svc := New(st, st, nil, nil, DefaultDailyUploadLimit)
	ctx := context.Background()

	author, _, pairID := setupPair(t, st)
	payload := base64.StdEncoding.EncodeToString([]byte("x"))

	_, err := svc.Upload(ctx, author, pairID, "2026-07-30", payload)
	require.NoError(t, err)
	_, err = svc.Upload(ctx, author, pairID, "2026-07-30", payload)
	require.NoError(t, err)

	_, err = svc.Upload(ctx, author, pairID, "2026-07-30", payload)
	require.Error(t, err)
	require.Equal(t, apierr.KindRateLimited, err.(*apierr.Error).Kind)
}

func TestFetchUndelivered_ReturnsEmptyWithoutPartner(t *testing.T) {
	st := memory.New()
	svc := New(st, st, nil, nil, DefaultDailyUploadLimit)
	ctx := context.Background()

	require.NoError(t, st.InitiatePair(ctx, "lonely-key", store.RelayToken{
		Token: "solo", InitiatorKey: "lonely-key", PairID: "pair-solo", ExpiresAt: time.Now().Add(time.Minute),
	}))

	entries, err := svc.FetchUndelivered(ctx, "lonely-key", "pair-solo", "")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFetchAndAck_RoundTrip(t *testing.T) {
	st := memory.New()
	svc := New(st, st, nil, nil, DefaultDailyUploadLimit)
	ctx := context.Background()

	author, partner, pairID := setupPair(t, st)
	payload := base64.StdEncoding.EncodeToString([]byte("hello"))
	_, err := svc.Upload(ctx, author, pairID, "2026-07-30", payload)
	require.NoError(t, err)

	entries, err := svc.FetchUndelivered(ctx, partner, pairID, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, payload, entries[0].Payload)

	deleted, err := svc.Ack(ctx, partner, pairID, []string{entries[0].ID})
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	entries, err = svc.FetchUndelivered(ctx, partner, pairID, "")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAck_RejectsEmptyIDs(t *testing.T) {
	st := memory.New()
	svc := New(st, st, nil, nil, DefaultDailyUploadLimit)

	_, err := svc.Ack(context.Background(), "author-key", "pair-1", nil)
	require.Error(t, err)
	require.Equal(t, apierr.KindInvalidInput, err.(*apierr.Error).Kind)
}
