package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"ecommerce-dashboard/internal/models"
)

const maxBoundaryBytes = 256 << 20

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// LoadBoundaries reads a GeoJSON FeatureCollection from a file path or an
// http(s) URL, optionally inside a zip archive. An empty source yields no
// boundaries, which the shapers tolerate.
func (l *Loader) LoadBoundaries(ctx context.Context, source string) ([]models.Boundary, error) {
	if source == "" {
		l.logger.Warn("no boundary source configured, map will only show states present in the facts")
		return nil, nil
	}

	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		raw, err = l.fetchWithRetry(ctx, source)
	} else {
		raw, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read boundaries: %w", err)
	}

	if strings.HasSuffix(strings.ToLower(source), ".zip") {
		raw, err = geoJSONFromZip(raw)
		if err != nil {
			return nil, err
		}
	}

	boundaries, dupes, err := l.parseBoundaries(raw)
	if err != nil {
		return nil, err
	}
	l.logger.Info("boundaries loaded",
		"source", source,
		"features", len(boundaries),
		"duplicates", dupes,
	)
	return boundaries, nil
}

func (l *Loader) parseBoundaries(raw []byte) ([]models.Boundary, int, error) {
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, 0, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, 0, fmt.Errorf("decode geojson: expected FeatureCollection, got %q", fc.Type)
	}

	seen := make(map[string]struct{}, len(fc.Features))
	out := make([]models.Boundary, 0, len(fc.Features))
	dupes := 0
	for _, f := range fc.Features {
		if l.opts.Country != "" {
			if iso, ok := f.Properties["iso_a2"].(string); ok && !strings.EqualFold(iso, l.opts.Country) {
				continue
			}
		}
		name, _ := f.Properties[l.opts.NameProperty].(string)
		state := NormalizeState(name)
		if state == "" {
			continue
		}
		if _, ok := seen[state]; ok {
			dupes++
			continue
		}
		seen[state] = struct{}{}
		out = append(out, models.Boundary{State: state, Geometry: f.Geometry})
	}
	return out, dupes, nil
}

// fetchWithRetry downloads a remote boundary file with exponential backoff.
func (l *Loader) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	delay := l.opts.FetchBackoff

	for attempt := 1; attempt <= l.opts.FetchAttempts; attempt++ {
		body, err := l.fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt < l.opts.FetchAttempts {
			l.logger.Warn("boundary download failed, retrying",
				"attempt", attempt,
				"max_attempts", l.opts.FetchAttempts,
				"delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return nil, fmt.Errorf("download %s failed after %d attempts: %w", url, l.opts.FetchAttempts, lastErr)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBoundaryBytes))
}

func geoJSONFromZip(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open boundary archive: %w", err)
	}
	for _, f := range zr.File {
		ext := strings.ToLower(path.Ext(f.Name))
		if ext != ".geojson" && ext != ".json" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		return io.ReadAll(io.LimitReader(rc, maxBoundaryBytes))
	}
	return nil, fmt.Errorf("boundary archive contains no geojson file")
}
