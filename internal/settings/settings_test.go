package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geo-redirector/internal/common/errors"
	"geo-redirector/internal/kvstore"
)

func testDefaults() Config {
	return Config{
		DefaultDestinationNumber: "15550001111",
		TurkeyDestinationNumber:  "905551234567",
		DefaultChannelName:       "mychannel",
		TurkeyChannelName:        "trchannel",
		DefaultWebsiteURL:        "https://example.com",
		TurkeyWebsiteURL:         "https://example.com.tr",
		RedirectPresentationMode: "immediate",
		RedirectDelayMs:          3000,
	}
}

func setupStore(t *testing.T) (*Store, *kvstore.Store) {
	t.Helper()
	kv := kvstore.New(kvstore.Config{}, nil)
	return NewStore(kv, testDefaults(), 300*time.Second, nil), kv
}

func TestStore_GetDefaults(t *testing.T) {
	store, _ := setupStore(t)

	cfg := store.Get(context.Background())
	assert.Equal(t, testDefaults(), cfg)
}

func TestStore_SetRoundTrip(t *testing.T) {
	store, kv := setupStore(t)
	ctx := context.Background()

	cfg := testDefaults()
	cfg.TurkeyDestinationNumber = "905559998877"
	cfg.DefaultText = "hello there"

	saved, err := store.Set(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, saved)

	// A fresh store has no snapshot, forcing a read from the kv store.
	fresh := NewStore(kv, testDefaults(), 300*time.Second, nil)
	assert.Equal(t, cfg, fresh.Get(ctx))
}

func TestStore_SetValidation(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	t.Run("reports every violated field", func(t *testing.T) {
		cfg := testDefaults()
		cfg.DefaultDestinationNumber = "0123"  // leading zero, too short
		cfg.TurkeyChannelName = "ab"           // too short
		cfg.DefaultWebsiteURL = "ftp://nope"   // wrong scheme
		cfg.RedirectDelayMs = 99999            // out of range
		cfg.RedirectPresentationMode = "fancy" // unknown mode

		_, err := store.Set(ctx, cfg)
		require.Error(t, err)
		require.True(t, errors.IsType(err, errors.ErrTypeValidation))

		fields := errors.ViolatedFields(err)
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.Field
		}
		assert.ElementsMatch(t, []string{
			"default_destination_number",
			"turkey_channel_name",
			"default_website_url",
			"redirect_delay_ms",
			"redirect_presentation_mode",
		}, names)
	})

	t.Run("rejected write leaves previous record unchanged", func(t *testing.T) {
		valid := testDefaults()
		valid.DefaultText = "kept"
		_, err := store.Set(ctx, valid)
		require.NoError(t, err)

		_, err = store.Update(ctx, Patch{DefaultDestinationNumber: strPtr("0123")})
		require.Error(t, err)

		assert.Equal(t, valid, store.Get(ctx))
	})

	t.Run("mode is normalized case-insensitively", func(t *testing.T) {
		cfg := testDefaults()
		cfg.RedirectPresentationMode = "DELAYED"

		saved, err := store.Set(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, "delayed", saved.RedirectPresentationMode)
	})
}

func TestStore_DelayBoundaries(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	tests := []struct {
		delay int
		valid bool
	}{
		{0, true},
		{30000, true},
		{30001, false},
		{-1, false},
	}

	for _, tt := range tests {
		cfg := testDefaults()
		cfg.RedirectDelayMs = tt.delay

		_, err := store.Set(ctx, cfg)
		if tt.valid {
			assert.NoError(t, err, "delay %d should be accepted", tt.delay)
		} else {
			require.Error(t, err, "delay %d should be rejected", tt.delay)
			fields := errors.ViolatedFields(err)
			require.Len(t, fields, 1)
			assert.Equal(t, "redirect_delay_ms", fields[0].Field)
		}
	}
}

func TestStore_Update(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	t.Run("partial update merges over current record", func(t *testing.T) {
		updated, err := store.Update(ctx, Patch{
			TurkeyDestinationNumber: strPtr("905551112233"),
		})
		require.NoError(t, err)
		assert.Equal(t, "905551112233", updated.TurkeyDestinationNumber)
		assert.Equal(t, testDefaults().DefaultDestinationNumber, updated.DefaultDestinationNumber)
	})

	t.Run("empty patch is an idempotent no-op", func(t *testing.T) {
		before := store.Get(ctx)
		after, err := store.Update(ctx, Patch{})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestStore_Replace(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	t.Run("omitted delay keeps the default", func(t *testing.T) {
		replaced, err := store.Replace(ctx, Patch{
			TurkeyDestinationNumber: strPtr("905559998877"),
		})
		require.NoError(t, err)
		assert.Equal(t, "905559998877", replaced.TurkeyDestinationNumber)
		assert.Equal(t, 3000, replaced.RedirectDelayMs)
	})

	t.Run("explicit zero delay is honored", func(t *testing.T) {
		replaced, err := store.Replace(ctx, Patch{RedirectDelayMs: intPtr(0)})
		require.NoError(t, err)
		assert.Equal(t, 0, replaced.RedirectDelayMs)
	})

	t.Run("replace starts from the defaults, not the current record", func(t *testing.T) {
		_, err := store.Update(ctx, Patch{DefaultText: strPtr("custom")})
		require.NoError(t, err)

		replaced, err := store.Replace(ctx, Patch{})
		require.NoError(t, err)
		assert.Equal(t, testDefaults(), replaced)
	})
}

func TestStore_Reset(t *testing.T) {
	store, kv := setupStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, Patch{DefaultText: strPtr("custom")})
	require.NoError(t, err)

	first, err := store.Reset(ctx)
	require.NoError(t, err)
	second, err := store.Reset(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, testDefaults(), first)
	assert.True(t, kv.Exists(ctx, StorageKey))
}

func TestStore_MalformedStoredRecord(t *testing.T) {
	store, kv := setupStore(t)
	ctx := context.Background()

	kv.Set(ctx, StorageKey, "{not json", 0)

	assert.Equal(t, testDefaults(), store.Get(ctx))
}

func TestStore_Health(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	health := store.Health(ctx)
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.ConfigPresent)

	_, err := store.Reset(ctx)
	require.NoError(t, err)

	health = store.Health(ctx)
	assert.True(t, health.ConfigPresent)
	assert.True(t, health.CacheFresh)
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
