package queue

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, string) {
	t.Helper()
	root := t.TempDir()
	q, err := New(root)
	require.NoError(t, err)
	return q, root
}

func writeBatchFile(t *testing.T, root string, rows [][]string) {
	t.Helper()
	header := []string{"platform", "text", "image_path", "video_path", "scheduled_time", "hashtags", "location", "status"}

	file, err := os.Create(filepath.Join(root, "content", DefaultBatch))
	require.NoError(t, err)
	defer file.Close()

	w := csv.NewWriter(file)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	w.Flush()
	require.NoError(t, w.Error())
}

func TestListReady(t *testing.T) {
	t.Run("returns pending rows in file order", func(t *testing.T) {
		q, root := newTestQueue(t)
		writeBatchFile(t, root, [][]string{
			{"twitter", "first", "", "", "", "", "", "pending"},
			{"linkedin", "done", "", "", "", "", "", "posted"},
			{"twitter", "second", "", "", "", "", "", "pending"},
		})

		jobs, err := q.ListReady("")
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, "first", jobs[0].Text)
		assert.Equal(t, 0, jobs[0].Index)
		assert.Equal(t, "second", jobs[1].Text)
		assert.Equal(t, 2, jobs[1].Index, "index counts all rows, not only pending ones")
	})

	t.Run("platform filter is case-insensitive", func(t *testing.T) {
		q, root := newTestQueue(t)
		writeBatchFile(t, root, [][]string{
			{"Twitter", "tweet", "", "", "", "", "", "pending"},
			{"linkedin", "article", "", "", "", "", "", "pending"},
		})

		jobs, err := q.ListReady("TWITTER")
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "tweet", jobs[0].Text)
	})

	t.Run("missing batch file yields no jobs", func(t *testing.T) {
		q, _ := newTestQueue(t)
		jobs, err := q.ListReady("")
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})

	t.Run("is idempotent without intervening writes", func(t *testing.T) {
		q, root := newTestQueue(t)
		writeBatchFile(t, root, [][]string{
			{"twitter", "hello", "", "", "", "", "", "pending"},
		})

		first, err := q.ListReady("")
		require.NoError(t, err)
		second, err := q.ListReady("")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestMarkPosted(t *testing.T) {
	t.Run("posted row never reappears as ready", func(t *testing.T) {
		q, root := newTestQueue(t)
		writeBatchFile(t, root, [][]string{
			{"twitter", "one", "", "", "", "", "", "pending"},
			{"twitter", "two", "", "", "", "", "", "pending"},
		})

		ok, err := q.MarkPosted(DefaultBatch, 0)
		require.NoError(t, err)
		require.True(t, ok)

		jobs, err := q.ListReady("")
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "two", jobs[0].Text)
	})

	t.Run("stamps posted_time", func(t *testing.T) {
		q, root := newTestQueue(t)
		writeBatchFile(t, root, [][]string{
			{"twitter", "one", "", "", "", "", "", "pending"},
		})

		ok, err := q.MarkPosted(DefaultBatch, 0)
		require.NoError(t, err)
		require.True(t, ok)

		file, err := os.Open(filepath.Join(root, "content", DefaultBatch))
		require.NoError(t, err)
		defer file.Close()

		records, err := csv.NewReader(file).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "posted_time", records[0][len(records[0])-1])
		assert.Equal(t, "posted", records[1][7])
		assert.NotEmpty(t, records[1][len(records[1])-1])
	})

	t.Run("out of range index reports false", func(t *testing.T) {
		q, root := newTestQueue(t)
		writeBatchFile(t, root, [][]string{
			{"twitter", "one", "", "", "", "", "", "pending"},
		})

		ok, err := q.MarkPosted(DefaultBatch, 5)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = q.MarkPosted(DefaultBatch, -1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing batch is an error", func(t *testing.T) {
		q, _ := newTestQueue(t)
		_, err := q.MarkPosted("absent.csv", 0)
		assert.Error(t, err)
	})
}

func TestValidateMedia(t *testing.T) {
	t.Run("resolves existing media to absolute paths", func(t *testing.T) {
		q, root := newTestQueue(t)
		imagePath := filepath.Join(root, "media", "pic.jpg")
		require.NoError(t, os.WriteFile(imagePath, []byte("jpeg"), 0o644))

		job := Job{ImagePath: "pic.jpg"}
		q.ValidateMedia(&job)

		assert.Equal(t, "pic.jpg", job.ImagePath)
		assert.Equal(t, imagePath, job.ImageFile)
	})

	t.Run("clears missing references", func(t *testing.T) {
		q, _ := newTestQueue(t)

		job := Job{ImagePath: "gone.jpg", VideoPath: "gone.mp4", Text: "still posts"}
		q.ValidateMedia(&job)

		assert.Empty(t, job.ImagePath)
		assert.Empty(t, job.VideoPath)
		assert.Empty(t, job.ImageFile)
		assert.Empty(t, job.VideoFile)
	})

	t.Run("clears references that escape the media directory", func(t *testing.T) {
		q, root := newTestQueue(t)
		outside := filepath.Join(root, "secret.txt")
		require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

		job := Job{ImagePath: "../secret.txt"}
		q.ValidateMedia(&job)

		assert.Empty(t, job.ImagePath)
		assert.Empty(t, job.ImageFile)
	})
}

func TestEnsureTemplate(t *testing.T) {
	q, root := newTestQueue(t)

	require.NoError(t, q.EnsureTemplate())

	path := filepath.Join(root, "content", "posts_template.csv")
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 3, "header plus example rows")
	assert.Equal(t, "platform", records[0][0])

	// A second call must not clobber the file.
	require.NoError(t, q.EnsureTemplate())
}
