package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ClassifyEverySignature(t *testing.T) {
	registry := append(DefaultRegistry(), RadiationSignature())

	for _, sig := range registry {
		t.Run(sig.Name(), func(t *testing.T) {
			msg := &fakeMessage{keys: signatureKeys(sig)}
			assert.True(t, sig.Matches(msg))

			name, ok := registry.Classify(msg)
			require.True(t, ok)
			assert.Equal(t, sig.Name(), name)
		})
	}
}

func TestSignature_RemovingOrAlteringAnyKeyFails(t *testing.T) {
	for _, sig := range append(DefaultRegistry(), RadiationSignature()) {
		for _, kv := range sig.Keys() {
			t.Run(sig.Name()+"/"+kv.Key+"/removed", func(t *testing.T) {
				keys := signatureKeys(sig)
				delete(keys, kv.Key)
				assert.False(t, sig.Matches(&fakeMessage{keys: keys}))
			})
			t.Run(sig.Name()+"/"+kv.Key+"/altered", func(t *testing.T) {
				keys := signatureKeys(sig)
				keys[kv.Key] = kv.Value + 1
				assert.False(t, sig.Matches(&fakeMessage{keys: keys}))
			})
		}
	}
}

func TestRegistry_ClassifyUnmatched(t *testing.T) {
	keys := signatureKeys(DefaultRegistry()[0])
	keys["lengthOfTimeRange"] = int64(6)

	name, ok := DefaultRegistry().Classify(&fakeMessage{keys: keys})
	assert.False(t, ok)
	assert.Empty(t, name)
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	broad := NewSignature("broad", KeyValue{"discipline", 0})
	narrow := NewSignature("narrow", KeyValue{"discipline", 0}, KeyValue{"parameterNumber", 0})
	msg := &fakeMessage{keys: map[string]any{"discipline": int64(0), "parameterNumber": int64(0)}}

	name, _ := Registry{broad, narrow}.Classify(msg)
	assert.Equal(t, "broad", name)

	name, _ = Registry{narrow, broad}.Classify(msg)
	assert.Equal(t, "narrow", name)
}

func TestDefaultRegistry_MutuallyExclusive(t *testing.T) {
	registry := DefaultRegistry()
	for _, sig := range registry {
		matches := 0
		msg := &fakeMessage{keys: signatureKeys(sig)}
		for _, other := range registry {
			if other.Matches(msg) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, sig.Name())
	}
}

func TestSignature_KeysIsACopy(t *testing.T) {
	sig := RadiationSignature()
	keys := sig.Keys()
	keys[0].Value = 99

	assert.Equal(t, int64(4), sig.Keys()[0].Value)
}

func TestRegistry_Lookup(t *testing.T) {
	sig, ok := DefaultRegistry().Lookup(TempDailyMax)
	require.True(t, ok)
	assert.Equal(t, TempDailyMax, sig.Name())

	_, ok = DefaultRegistry().Lookup("snow_depth")
	assert.False(t, ok)
}
