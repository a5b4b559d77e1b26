package erg5mock

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/erg5-etl-service/internal/domain"
	"github.com/couchcryptid/erg5-etl-service/internal/grib2"
)

func TestDay_ClassifiesEveryProduct(t *testing.T) {
	day := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)
	b, err := Day(day, DefaultGrid)
	require.NoError(t, err)

	registry := append(domain.DefaultRegistry(), domain.RadiationSignature())
	counts := map[string]int{}
	unclassified := 0

	r, err := grib2.NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer r.Close()
	for {
		m, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if name, ok := registry.Classify(m); ok {
			counts[name]++
		} else {
			unclassified++
		}
		require.NoError(t, m.Close())
	}

	assert.Equal(t, map[string]int{
		domain.TempHourlyAvg:  24,
		domain.TempDailyAvg:   1,
		domain.TempDailyMax:   1,
		domain.RadiationDaily: 1,
	}, counts)
	assert.Equal(t, 1, unclassified)
}

func TestMessage_MasksNorthEastCorner(t *testing.T) {
	day := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)
	b, err := Message(domain.TempDailyMax, day, DefaultGrid, 0)
	require.NoError(t, err)
	r, err := grib2.NewReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer r.Close()
	m, err := r.Next()
	require.NoError(t, err)
	defer m.Close()

	batch, err := domain.Extract(m, domain.TempDailyMax)
	require.NoError(t, err)
	assert.Len(t, batch.Records, DefaultGrid.Ni*DefaultGrid.Nj)
	assert.Equal(t, 1, batch.Missing)
	assert.Zero(t, batch.OutOfGrid)

	last := batch.Records[len(batch.Records)-1]
	assert.Nil(t, last.Value)
	require.NotNil(t, last.CellID)
	// north-east cell: col Ni-1, row Nj-1
	assert.Equal(t, DefaultGrid.Nj*(DefaultGrid.Ni-1)+1, *last.CellID)
}

func TestMessage_UnknownProduct(t *testing.T) {
	_, err := Message("snow", time.Now(), DefaultGrid, 0)
	require.Error(t, err)
}
