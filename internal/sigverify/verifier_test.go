package sigverify

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaymesh/relayd/internal/store"
)

type fakeUsers struct {
	byKey map[string]*store.User
}

func (f *fakeUsers) GetUser(ctx context.Context, publicKey string) (*store.User, error) {
	u, ok := f.byKey[publicKey]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) PartnerOf(ctx context.Context, publicKey string) (*store.User, error) {
	return nil, store.ErrNotFound
}

func (f *fakeUsers) SetPushSubscription(ctx context.Context, publicKey string, sub store.PushSubscription) error {
	return nil
}

func (f *fakeUsers) ClearPushSubscription(ctx context.Context, publicKey string) error {
	return nil
}

func (f *fakeUsers) DeleteAccount(ctx context.Context, publicKey string) error {
	return nil
}

func newFixture(t *testing.T) (*Verifier, ed25519.PublicKey, ed25519.PrivateKey, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	encodedKey := base64.RawURLEncoding.EncodeToString(pub)
	users := &fakeUsers{byKey: map[string]*store.User{
		encodedKey: {PublicKey: encodedKey, PairID: "pair-1"},
	}}

	v := New(users)
	return v, pub, priv, encodedKey
}

func sign(priv ed25519.PrivateKey, base string) string {
	sig := ed25519.Sign(priv, []byte(base))
	return base64.StdEncoding.EncodeToString(sig)
}

func TestVerify_HappyPath(t *testing.T) {
	v, _, priv, encodedKey := newFixture(t)

	ts := time.Now().Format(time.RFC3339)
	base := SignatureBase("POST", "/api/entries", ts, []byte(`{"dayId":"2026-07-30"}`))

	req := Request{
		Method:       "POST",
		Path:         "/api/entries",
		Body:         []byte(`{"dayId":"2026-07-30"}`),
		Signature:    sign(priv, base),
		PublicKey:    encodedKey,
		TimestampRaw: ts,
	}

	identity, failErr := v.Verify(context.Background(), req)
	require.Nil(t, failErr)
	require.Equal(t, encodedKey, identity.PublicKey)
	require.Equal(t, "pair-1", identity.PairID)
}

func TestVerify_BadSignatureOnBodyTamper(t *testing.T) {
	v, _, priv, encodedKey := newFixture(t)

	ts := time.Now().Format(time.RFC3339)
	base := SignatureBase("POST", "/api/entries", ts, []byte(`{"dayId":"2026-07-30"}`))

	req := Request{
		Method:       "POST",
		Path:         "/api/entries",
		Body:         []byte(`{"dayId":"2026-07-31"}`), // differs from signed body
		Signature:    sign(priv, base),
		PublicKey:    encodedKey,
		TimestampRaw: ts,
	}

	_, failErr := v.Verify(context.Background(), req)
	require.NotNil(t, failErr)
	require.Equal(t, FailureBadSignature, failErr.Failure)
}

func TestVerify_ClockSkewRejected(t *testing.T) {
	v, _, priv, encodedKey := newFixture(t)

	ts := time.Now().Add(-10 * time.Minute).Format(time.RFC3339)
	base := SignatureBase("GET", "/api/pairs/status", ts, nil)

	req := Request{
		Method:       "GET",
		Path:         "/api/pairs/status",
		Signature:    sign(priv, base),
		PublicKey:    encodedKey,
		TimestampRaw: ts,
	}

	_, failErr := v.Verify(context.Background(), req)
	require.NotNil(t, failErr)
	require.Equal(t, FailureClockSkew, failErr.Failure)
}

func TestVerify_UnknownUserRejected(t *testing.T) {
	v, _, _, _ := newFixture(t)

	otherPub, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	encodedOther := base64.RawURLEncoding.EncodeToString(otherPub)

	ts := time.Now().Format(time.RFC3339)
	base := SignatureBase("GET", "/api/pairs/status", ts, nil)

	req := Request{
		Method:       "GET",
		Path:         "/api/pairs/status",
		Signature:    sign(otherPriv, base),
		PublicKey:    encodedOther,
		TimestampRaw: ts,
	}

	_, failErr := v.Verify(context.Background(), req)
	require.NotNil(t, failErr)
	require.Equal(t, FailureUnknownUser, failErr.Failure)
}

func TestVerify_MissingHeaders(t *testing.T) {
	v, _, _, _ := newFixture(t)

	_, failErr := v.Verify(context.Background(), Request{Method: "GET", Path: "/api/pairs/status"})
	require.NotNil(t, failErr)
	require.Equal(t, FailureMissingHeaders, failErr.Failure)
}

func TestVerifyChannel_DistinctPrefixesPreventRoleConfusion(t *testing.T) {
	v, _, priv, encodedKey := newFixture(t)

	ts := time.Now().Format(time.RFC3339)
	watchBase := "WATCH" + "\n" + encodedKey + "\n" + ts
	sig := sign(priv, watchBase)

	// A watch signature must not validate as a collect auth.
	_, failErr := v.VerifyChannel(context.Background(), ChannelAuth{
		Prefix:       "COLLECT",
		PublicKey:    encodedKey,
		TimestampRaw: ts,
		Signature:    sig,
	})
	require.NotNil(t, failErr)
	require.Equal(t, FailureBadSignature, failErr.Failure)

	identity, failErr := v.VerifyChannel(context.Background(), ChannelAuth{
		Prefix:       "WATCH",
		PublicKey:    encodedKey,
		TimestampRaw: ts,
		Signature:    sig,
	})
	require.Nil(t, failErr)
	require.Equal(t, "pair-1", identity.PairID)
}
