package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "Maharashtra", "iso_a2": "IN"}, "geometry": {"type": "Point", "coordinates": [75, 19]}},
    {"type": "Feature", "properties": {"name": "NEW DELHI", "iso_a2": "IN"}, "geometry": {"type": "Point", "coordinates": [77, 28]}},
    {"type": "Feature", "properties": {"name": "Delhi", "iso_a2": "IN"}, "geometry": {"type": "Point", "coordinates": [77, 28]}},
    {"type": "Feature", "properties": {"name": "Punjab", "iso_a2": "PK"}, "geometry": {"type": "Point", "coordinates": [72, 31]}},
    {"type": "Feature", "properties": {"iso_a2": "IN"}, "geometry": null}
  ]
}`

func geoLoader(t *testing.T) *Loader {
	t.Helper()
	return NewLoader(Options{Country: "IN", FetchAttempts: 3, FetchBackoff: time.Millisecond}, nil)
}

func TestLoadBoundariesFromFile(t *testing.T) {
	path := writeFile(t, "states.geojson", testGeoJSON)

	boundaries, err := geoLoader(t).LoadBoundaries(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, boundaries, 2, "foreign, unnamed and duplicate features are dropped")
	assert.Equal(t, "Maharashtra", boundaries[0].State)
	assert.Equal(t, "Delhi", boundaries[1].State)
	assert.JSONEq(t, `{"type": "Point", "coordinates": [75, 19]}`, string(boundaries[0].Geometry))
}

func TestLoadBoundariesWithoutCountryFilter(t *testing.T) {
	path := writeFile(t, "states.geojson", testGeoJSON)
	loader := NewLoader(Options{}, nil)

	boundaries, err := loader.LoadBoundaries(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, boundaries, 3)
}

func TestLoadBoundariesEmptySource(t *testing.T) {
	boundaries, err := geoLoader(t).LoadBoundaries(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, boundaries)
}

func TestLoadBoundariesRejectsNonCollection(t *testing.T) {
	path := writeFile(t, "one.geojson", `{"type": "Feature", "properties": {}}`)

	_, err := geoLoader(t).LoadBoundaries(context.Background(), path)
	assert.Error(t, err)
}

func TestLoadBoundariesFromZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	readme, err := zw.Create("README.txt")
	require.NoError(t, err)
	_, _ = readme.Write([]byte("admin-1 boundaries"))
	geo, err := zw.Create("states/admin1.geojson")
	require.NoError(t, err)
	_, err = geo.Write([]byte(testGeoJSON))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := writeFile(t, "admin1.zip", buf.String())
	boundaries, err := geoLoader(t).LoadBoundaries(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, boundaries, 2)
}

func TestLoadBoundariesRetriesRemote(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(testGeoJSON))
	}))
	defer srv.Close()

	boundaries, err := geoLoader(t).LoadBoundaries(context.Background(), srv.URL+"/states.geojson")
	require.NoError(t, err)
	assert.Len(t, boundaries, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoadBoundariesGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := geoLoader(t).LoadBoundaries(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoadBoundariesHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	loader := NewLoader(Options{FetchAttempts: 5, FetchBackoff: time.Hour}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := loader.LoadBoundaries(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
