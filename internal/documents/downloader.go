package documents

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/httpclient"
	"github.com/Checker-Finance/personio-adapter/internal/metrics"
	"github.com/Checker-Finance/personio-adapter/internal/personio"
)

// Downloader mirrors employee documents into a per-employee directory tree
// under <baseDir>/documents/<employeeID>/. One failed document is logged and
// skipped; its siblings continue.
type Downloader struct {
	client  *personio.Client
	logger  *zap.Logger
	baseDir string
}

// Result counts the outcome of one employee's document batch.
type Result struct {
	Downloaded int
	Skipped    int
}

func NewDownloader(client *personio.Client, logger *zap.Logger, outputDir string) *Downloader {
	return &Downloader{
		client:  client,
		logger:  logger,
		baseDir: filepath.Join(outputDir, "documents"),
	}
}

// DownloadForEmployee fetches every document in docs for one employee.
// Authentication failures abort immediately; continuing would hammer the
// API with a dead credential; anything else is per-document.
func (d *Downloader) DownloadForEmployee(ctx context.Context, employeeID string, docs []personio.DocumentMeta) (Result, error) {
	var res Result
	if len(docs) == 0 {
		return res, nil
	}

	employeeDir := filepath.Join(d.baseDir, employeeID)
	d.logger.Info("documents.download.start",
		zap.String("employee_id", employeeID),
		zap.Int("count", len(docs)))

	for _, doc := range docs {
		savePath := filepath.Join(employeeDir, documentFilename(doc))
		endpoint := fmt.Sprintf("company/employees/%s/documents/%d/download", employeeID, doc.ID)

		downloaded, err := d.client.DownloadFile(ctx, endpoint, savePath)
		if err != nil {
			if httpclient.IsAuthFailure(err) {
				return res, err
			}
			d.logger.Warn("documents.download_failed",
				zap.String("employee_id", employeeID),
				zap.Int64("document_id", doc.ID),
				zap.Error(err))
			metrics.DocumentsSkipped.Inc()
			res.Skipped++
			continue
		}
		if downloaded {
			metrics.DocumentsDownloaded.Inc()
			res.Downloaded++
		} else {
			metrics.DocumentsSkipped.Inc()
			res.Skipped++
		}
	}

	return res, nil
}

// documentFilename derives a safe local filename from document metadata.
func documentFilename(doc personio.DocumentMeta) string {
	title := doc.Title
	if title == "" {
		title = "document_" + strconv.FormatInt(doc.ID, 10)
	}
	ext := strings.Trim(doc.Extension, ".")

	name := title
	if ext != "" {
		name = title + "." + ext
	}
	return sanitizeFilename(name)
}

// sanitizeFilename keeps alphanumerics and a small set of path-safe
// punctuation, dropping everything else.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-' || r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
