package push

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relayd/internal/store"
	"github.com/relaymesh/relayd/internal/store/memory"
)

type fakeTransport struct {
	sendErr  error
	sendArgs []store.PushSubscription
}

func (t *fakeTransport) Send(ctx context.Context, sub store.PushSubscription, pairID string) error {
	t.sendArgs = append(t.sendArgs, sub)
	return t.sendErr
}

func TestNotify_NoOpWithoutSubscription(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.InitiatePair(ctx, "user-1", store.RelayToken{Token: "t", InitiatorKey: "user-1", PairID: "p1"}))

	transport := &fakeTransport{}
	n := New(st, transport, nil)

	n.Notify(ctx, "user-1", "p1")
	require.Empty(t, transport.sendArgs)
}

func TestNotify_DeliversToSubscription(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.InitiatePair(ctx, "user-1", store.RelayToken{Token: "t", InitiatorKey: "user-1", PairID: "p1"}))
	sub := store.PushSubscription{Endpoint: "https://push.example/abc", P256DH: "key", Auth: "auth"}
	require.NoError(t, st.SetPushSubscription(ctx, "user-1", sub))

	transport := &fakeTransport{}
	n := New(st, transport, nil)

	n.Notify(ctx, "user-1", "p1")
	require.Len(t, transport.sendArgs, 1)
	require.Equal(t, sub, transport.sendArgs[0])
}

func TestNotify_GoneClearsSubscription(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.InitiatePair(ctx, "user-1", store.RelayToken{Token: "t", InitiatorKey: "user-1", PairID: "p1"}))
	require.NoError(t, st.SetPushSubscription(ctx, "user-1", store.PushSubscription{Endpoint: "e", P256DH: "p", Auth: "a"}))

	transport := &fakeTransport{sendErr: ErrGone}
	n := New(st, transport, nil)

	n.Notify(ctx, "user-1", "p1")

	user, err := st.GetUser(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, user.Push.IsZero())
}

func TestNotify_TransientErrorLeavesSubscriptionIntact(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.InitiatePair(ctx, "user-1", store.RelayToken{Token: "t", InitiatorKey: "user-1", PairID: "p1"}))
	sub := store.PushSubscription{Endpoint: "e", P256DH: "p", Auth: "a"}
	require.NoError(t, st.SetPushSubscription(ctx, "user-1", sub))

	transport := &fakeTransport{sendErr: errors.New("upstream 503")}
	n := New(st, transport, nil)

	n.Notify(ctx, "user-1", "p1")

	user, err := st.GetUser(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, sub, user.Push)
}
