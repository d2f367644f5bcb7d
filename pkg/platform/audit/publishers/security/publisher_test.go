package security

import (
	"context"
	"testing"
	"time"

	audit "velum/pkg/platform/audit"
	"velum/pkg/platform/audit/store/memory"
	"velum/pkg/requestcontext"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_EmitRetainsInRing(t *testing.T) {
	pub := New()

	pub.Emit(context.Background(), audit.SecurityEvent{
		Subject: "10.0.0.9",
		Action:  string(audit.EventCallbackInvalidProof),
	})

	recent := pub.Recent(10)
	require.Len(t, recent, 1)
	assert.Equal(t, string(audit.EventCallbackInvalidProof), recent[0].Action)
	assert.Equal(t, audit.SeverityWarning, recent[0].Severity, "severity defaults to warning")
	assert.False(t, recent[0].Timestamp.IsZero())
}

func TestPublisher_ForwardsToStore(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(WithStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = pub.Run(ctx) }()

	pub.Emit(context.Background(), audit.SecurityEvent{
		Subject: "10.0.0.9",
		Action:  string(audit.EventCallbackUnknownRequest),
	})

	require.Eventually(t, func() bool {
		events, err := store.ListRecent(context.Background(), 10)
		return err == nil && len(events) == 1
	}, 2*time.Second, 10*time.Millisecond)

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
}

func TestPublisher_EmitWithoutStoreDoesNotQueue(t *testing.T) {
	pub := New()

	for range 2000 {
		pub.Emit(context.Background(), audit.SecurityEvent{Action: "probe"})
	}

	assert.Zero(t, pub.Dropped(), "no store means nothing to queue or drop")
}

func TestPublisher_TimestampFromContext(t *testing.T) {
	pub := New()

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	pub.Emit(ctx, audit.SecurityEvent{Action: string(audit.EventCallbackAlreadyRevealed)})

	recent := pub.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, now, recent[0].Timestamp)
}

func TestPublisher_RecordRejectedCallback(t *testing.T) {
	pub := New()

	ctx := requestcontext.WithClientMetadata(context.Background(),
		"203.0.113.4", "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0")
	ctx = requestcontext.WithRequestID(ctx, "req-123")

	pub.RecordRejectedCallback(ctx, "missing bearer token")

	recent := pub.Recent(1)
	require.Len(t, recent, 1)
	event := recent[0]
	assert.Equal(t, string(audit.EventCallbackUnauthorized), event.Action)
	assert.Equal(t, "missing bearer token", event.Reason)
	assert.Equal(t, "203.0.113.4", event.IP)
	assert.Equal(t, "203.0.113.4", event.Subject)
	assert.Equal(t, "req-123", event.RequestID)
	assert.Equal(t, audit.SeverityCritical, event.Severity)
	assert.Equal(t, "Firefox/115.0 (GNU/Linux)", event.UserAgent)
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "empty",
			raw:  "",
			want: "",
		},
		{
			name: "curl",
			raw:  "curl/8.5.0",
			want: "curl/8.5.0",
		},
		{
			name: "googlebot",
			raw:  "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			want: "bot:Googlebot",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeUserAgent(tt.raw))
		})
	}
}
