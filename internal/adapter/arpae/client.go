// Package arpae downloads ERG5 open data published by Arpae-SIMC: the daily
// GRIB2 file and the yearly CSV timeseries archive of a single cell.
package arpae

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/erg5-etl-service/internal/observability"
)

// DefaultBaseURL is the root of the ERG5 v2 open-data tree.
const DefaultBaseURL = "https://dati-simc.arpae.it/opendata/erg5v2"

const (
	kindGrib       = "grib"
	kindTimeseries = "timeseries"
)

// Client fetches ERG5 files over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// GribFilename is the name ARPAE publishes the GRIB file of day under.
func GribFilename(day time.Time) string {
	return fmt.Sprintf("erg5.%s0000.grib", day.Format("20060102"))
}

// GribURL returns the download URL of the GRIB file of day.
func GribURL(baseURL string, day time.Time) string {
	return fmt.Sprintf("%s/grib/%d/%s", baseURL, day.Year(), GribFilename(day))
}

// CellArchiveURL returns the download URL of the yearly timeseries of a cell.
func CellArchiveURL(baseURL string, cellID, year int) string {
	return fmt.Sprintf("%s/timeseries/%05d/%05d_%d.zip", baseURL, cellID, cellID, year)
}

// FetchGrib downloads the GRIB file of day into dir and returns its path. A
// partial download never replaces an existing file.
func (c *Client) FetchGrib(ctx context.Context, day time.Time, dir string) (string, error) {
	u := GribURL(c.baseURL, day)
	path := filepath.Join(dir, GribFilename(day))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".erg5-*.part")
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := c.download(ctx, kindGrib, u, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close download file: %w", cerr)
	}
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move download into place: %w", err)
	}

	c.logger.Info("grib downloaded", "url", u, "path", path, "bytes", n)
	return path, nil
}

// FetchCellArchive downloads the yearly CSV archive of cellID and extracts
// every entry into outdir. It returns the extracted names in archive order.
func (c *Client) FetchCellArchive(ctx context.Context, cellID, year int, outdir string) ([]string, error) {
	u := CellArchiveURL(c.baseURL, cellID, year)

	var buf bytes.Buffer
	if _, err := c.download(ctx, kindTimeseries, u, &buf); err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", u, err)
	}
	for _, f := range zr.File {
		c.logger.Info("archive entry found", "name", f.Name)
	}

	names, err := extract(zr, outdir)
	if err != nil {
		return nil, fmt.Errorf("extract archive %s: %w", u, err)
	}
	c.logger.Info("archive extracted", "cellid", cellID, "year", year, "outdir", outdir, "files", len(names))
	return names, nil
}

func (c *Client) download(ctx context.Context, kind, u string, w io.Writer) (n int64, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.metrics.Downloads.WithLabelValues(kind, outcome).Inc()
		c.metrics.DownloadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		c.metrics.DownloadBytes.WithLabelValues(kind).Add(float64(n))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &FetchError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, &FetchError{URL: u, StatusCode: resp.StatusCode, Body: string(body)}
	}

	n, err = io.Copy(w, resp.Body)
	if err != nil {
		return n, &FetchError{URL: u, Err: fmt.Errorf("read body: %w", err)}
	}
	return n, nil
}

// extract writes every file of zr below outdir, refusing entries whose
// names would escape it.
func extract(zr *zip.Reader, outdir string) ([]string, error) {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if !filepath.IsLocal(f.Name) {
			return nil, fmt.Errorf("unsafe entry name %q", f.Name)
		}
		target := filepath.Join(outdir, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return nil, err
		}
		names = append(names, f.Name)
	}
	return names, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", f.Name, err)
	}
	return out.Close()
}
