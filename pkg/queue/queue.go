// Package queue manages the durable table of posting jobs.
//
// Jobs live in a CSV file under the content directory. The file is the
// single shared mutable resource of a posting run: MarkPosted re-reads the
// whole table, mutates one row and atomically rewrites the file, so callers
// must serialize mutations. A job's identity is its row position within one
// batch file.
package queue

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/postwright/postwright/pkg/logging"
	"github.com/postwright/postwright/pkg/security"
)

// Job status values as stored in the table.
const (
	StatusPending = "pending"
	StatusPosted  = "posted"
	StatusFailed  = "failed"
)

// DefaultBatch is the batch file a run reads when none is named.
const DefaultBatch = "scheduled_posts.csv"

// columns is the required header, in file order. posted_time is appended
// lazily once any row has been marked posted.
var columns = []string{
	"platform", "text", "image_path", "video_path",
	"scheduled_time", "hashtags", "location", "status",
}

const postedTimeColumn = "posted_time"

// Job is one row of pending content.
type Job struct {
	Platform      string
	Text          string
	ImagePath     string
	VideoPath     string
	ScheduledTime string
	Hashtags      string
	Location      string
	Status        string
	PostedTime    string

	// Batch is the file the job was read from; Index is its row position
	// among all data rows of that file. Together they address the row for
	// MarkPosted.
	Batch string
	Index int

	// ImageFile and VideoFile are the media references resolved to
	// absolute paths by ValidateMedia. Empty means no usable media.
	ImageFile string
	VideoFile string
}

// Queue reads and writes job batches rooted at a storage directory.
type Queue struct {
	contentDir string
	mediaDir   string
	media      *security.Guard
	log        *slog.Logger
	mu         sync.Mutex
}

// New creates a queue under root, creating root/content and root/media if
// needed.
func New(root string) (*Queue, error) {
	contentDir := filepath.Join(root, "content")
	mediaDir := filepath.Join(root, "media")
	for _, dir := range []string{contentDir, mediaDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create queue directory: %w", err)
		}
	}

	// Media references come from CSV rows, so they are confined to the
	// media directory.
	guard, err := security.NewGuard(mediaDir)
	if err != nil {
		return nil, err
	}

	return &Queue{
		contentDir: contentDir,
		mediaDir:   mediaDir,
		media:      guard,
		log:        logging.For("queue"),
	}, nil
}

// ListReady returns the pending jobs from the default batch in file order.
// An empty platform matches every platform; otherwise matching is
// case-insensitive exact. A missing batch file is not an error: there is
// simply nothing ready.
func (q *Queue) ListReady(platform string) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	header, rows, err := q.readBatch(DefaultBatch)
	if err != nil {
		if os.IsNotExist(err) {
			q.log.Warn("no batch file found", "batch", DefaultBatch)
			return nil, nil
		}
		return nil, err
	}

	var jobs []Job
	for i, row := range rows {
		job := rowToJob(header, row)
		job.Batch = DefaultBatch
		job.Index = i

		if !strings.EqualFold(job.Status, StatusPending) {
			continue
		}
		if platform != "" && !strings.EqualFold(job.Platform, platform) {
			continue
		}
		jobs = append(jobs, job)
	}

	q.log.Info("listed ready jobs", "batch", DefaultBatch, "platform", platform, "count", len(jobs))
	return jobs, nil
}

// MarkPosted transitions the addressed row to posted and stamps its
// posted_time. It reports whether a row was updated; an out-of-range index
// is a false result, not an error. The rewrite is atomic.
func (q *Queue) MarkPosted(batch string, index int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	header, rows, err := q.readBatch(batch)
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(rows) {
		return false, nil
	}

	postedIdx := columnIndex(header, postedTimeColumn)
	if postedIdx == -1 {
		header = append(header, postedTimeColumn)
		postedIdx = len(header) - 1
	}
	for i := range rows {
		for len(rows[i]) < len(header) {
			rows[i] = append(rows[i], "")
		}
	}

	statusIdx := columnIndex(header, "status")
	if statusIdx == -1 {
		return false, fmt.Errorf("batch %s has no status column", batch)
	}

	rows[index][statusIdx] = StatusPosted
	rows[index][postedIdx] = time.Now().Format(time.RFC3339)

	if err := q.writeBatch(batch, header, rows); err != nil {
		return false, err
	}

	q.log.Info("marked job posted", "batch", batch, "index", index)
	return true, nil
}

// ValidateMedia resolves the job's media references against the media
// directory. A reference to a file that does not exist is cleared with a
// warning; the job then proceeds as text-only. Missing media is never a
// hard failure.
func (q *Queue) ValidateMedia(job *Job) {
	if job.ImagePath != "" {
		if full, ok := q.resolveMedia(job.ImagePath, "image"); ok {
			job.ImageFile = full
		} else {
			job.ImagePath = ""
		}
	}

	if job.VideoPath != "" {
		if full, ok := q.resolveMedia(job.VideoPath, "video"); ok {
			job.VideoFile = full
		} else {
			job.VideoPath = ""
		}
	}
}

// resolveMedia confines a media reference to the media directory and
// checks that the file exists.
func (q *Queue) resolveMedia(ref, kind string) (string, bool) {
	full, err := q.media.Resolve(ref)
	if err != nil {
		q.log.Warn("media reference rejected", "kind", kind, "error", err)
		return "", false
	}
	if _, err := os.Stat(full); err != nil {
		q.log.Warn("media file not found, posting without it", "kind", kind, "path", full)
		return "", false
	}
	return full, true
}

// EnsureTemplate writes an example batch file with the expected header if
// none exists, so users have a defined input format to copy from.
func (q *Queue) EnsureTemplate() error {
	path := filepath.Join(q.contentDir, "posts_template.csv")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	rows := [][]string{
		{
			"instagram", "Check out our new product!", "media/product.jpg", "",
			"2025-07-13 10:00:00", "#newproduct #launch", "San Francisco, CA", StatusPending,
		},
		{
			"twitter", "Exciting news coming soon. Stay tuned", "", "",
			"2025-07-13 14:00:00", "#announcement", "", StatusPending,
		},
	}
	if err := q.writeBatch("posts_template.csv", columns, rows); err != nil {
		return err
	}

	q.log.Info("created template batch", "path", path)
	return nil
}

// readBatch loads a batch file, returning its header and data rows.
func (q *Queue) readBatch(batch string) (header []string, rows [][]string, err error) {
	file, err := os.Open(filepath.Join(q.contentDir, batch))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // posted_time may be missing on older rows

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse batch %s: %w", batch, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("batch %s has no header row", batch)
	}

	return records[0], records[1:], nil
}

// writeBatch rewrites a batch file atomically via a temp file and rename.
func (q *Queue) writeBatch(batch string, header []string, rows [][]string) error {
	target := filepath.Join(q.contentDir, batch)
	tmp := target + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp batch file: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err == nil {
		err = writer.WriteAll(rows)
	}
	writer.Flush()
	if err == nil {
		err = writer.Error()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write batch %s: %w", batch, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize batch %s: %w", batch, err)
	}
	return nil
}

func rowToJob(header []string, row []string) Job {
	get := func(name string) string {
		idx := columnIndex(header, name)
		if idx == -1 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	return Job{
		Platform:      get("platform"),
		Text:          get("text"),
		ImagePath:     get("image_path"),
		VideoPath:     get("video_path"),
		ScheduledTime: get("scheduled_time"),
		Hashtags:      get("hashtags"),
		Location:      get("location"),
		Status:        get("status"),
		PostedTime:    get(postedTimeColumn),
	}
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}
