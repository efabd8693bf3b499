package orchestrator

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postwright/postwright/pkg/browser"
	"github.com/postwright/postwright/pkg/credentials"
	"github.com/postwright/postwright/pkg/llm"
	"github.com/postwright/postwright/pkg/pacing"
	"github.com/postwright/postwright/pkg/poster"
	"github.com/postwright/postwright/pkg/queue"
)

// fakeSession is a compliant browser.Session whose outcomes are scripted
// through waitResults and visible text.
type fakeSession struct {
	url         string
	visible     string
	waitResults map[string]bool
}

func (s *fakeSession) Navigate(url string) error {
	s.url = url
	return nil
}
func (s *fakeSession) Click(string, time.Duration) error { return nil }
func (s *fakeSession) TypeText(string, string) error     { return nil }
func (s *fakeSession) SetFiles(string, ...string) error  { return nil }
func (s *fakeSession) WaitForLocator(l string, _ time.Duration) bool {
	return s.waitResults[l]
}
func (s *fakeSession) Screenshot() ([]byte, error)  { return []byte("png"), nil }
func (s *fakeSession) CurrentURL() string           { return s.url }
func (s *fakeSession) VisibleText() (string, error) { return s.visible, nil }

// fakeFactory hands out fakeSessions and records lifecycle calls.
type fakeFactory struct {
	newSession func() *fakeSession
	startErr   error

	starts []string
	closes []string
}

func (f *fakeFactory) Start(name string, _ bool) (browser.Session, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.starts = append(f.starts, name)
	return f.newSession(), nil
}

func (f *fakeFactory) Close(name string) error {
	f.closes = append(f.closes, name)
	return nil
}

func (f *fakeFactory) Shutdown() error { return nil }

func happyFakeSession() *fakeSession {
	return &fakeSession{
		visible: "posted ok",
		waitResults: map[string]bool{
			"#ok":    true,
			"#share": true,
		},
	}
}

// allElementsJSON resolves every logical element; the resolver normalizes
// it per task.
const allElementsJSON = `{
	"username_field": "#user",
	"password_field": "#pass",
	"submit_button": "#share",
	"create_post_button": null,
	"text_field": "#text",
	"upload_input": "#file"
}`

func testRegistry() *poster.Registry {
	r := poster.NewRegistry()
	r.Register(poster.Profile{
		Name:             "testnet",
		LoginURL:         "https://testnet.example/login",
		HomeURL:          "https://testnet.example/home",
		LoggedInLocators: []string{"#ok"},
		SuccessPhrases:   []string{"posted ok"},
	})
	r.Register(poster.Profile{
		Name:             "othernet",
		LoginURL:         "https://othernet.example/login",
		HomeURL:          "https://othernet.example/home",
		LoggedInLocators: []string{"#ok"},
		SuccessPhrases:   []string{"posted ok"},
	})
	return r
}

func testWaits() poster.Waits {
	return poster.Waits{
		Login:  50 * time.Millisecond,
		Verify: 50 * time.Millisecond,
		Step:   5 * time.Millisecond,
		Poll:   time.Millisecond,
	}
}

func newTestOrchestrator(t *testing.T, factory SessionFactory) (*Orchestrator, string) {
	t.Helper()
	root := t.TempDir()
	o, err := New(Config{
		StorageRoot: root,
		Secrets:     credentials.NewMemorySecretStore(),
		Provider:    &llm.MockProvider{Responses: []string{allElementsJSON}},
		Registry:    testRegistry(),
		Delay:       pacing.None{},
		Waits:       testWaits(),
		Sessions:    factory,
	})
	require.NoError(t, err)
	return o, root
}

func writeBatch(t *testing.T, root string, rows [][]string) {
	t.Helper()
	header := []string{"platform", "text", "image_path", "video_path", "scheduled_time", "hashtags", "location", "status"}

	file, err := os.Create(filepath.Join(root, "content", queue.DefaultBatch))
	require.NoError(t, err)
	defer file.Close()

	w := csv.NewWriter(file)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	w.Flush()
	require.NoError(t, w.Error())
}

func pendingCount(t *testing.T, o *Orchestrator, platform string) int {
	t.Helper()
	jobs, err := o.queue.ListReady(platform)
	require.NoError(t, err)
	return len(jobs)
}

func TestPostToPlatformsFromQueue(t *testing.T) {
	t.Run("happy path marks the job posted", func(t *testing.T) {
		factory := &fakeFactory{newSession: happyFakeSession}
		o, root := newTestOrchestrator(t, factory)
		writeBatch(t, root, [][]string{
			{"testnet", "hi", "", "", "", "", "", "pending"},
		})
		require.True(t, o.AddCredentials("testnet", "alice", "pw"))

		report, err := o.PostToPlatforms(context.Background(), []string{"testnet"}, nil, true)
		require.NoError(t, err)

		assert.True(t, report.Success)
		assert.Equal(t, 1, report.Attempted)
		assert.Equal(t, 1, report.Succeeded)
		require.Len(t, report.Results, 1)
		assert.True(t, report.Results[0].Success)

		assert.Zero(t, pendingCount(t, o, "testnet"), "posted job is consumed")
	})

	t.Run("no credentials leaves the job pending", func(t *testing.T) {
		factory := &fakeFactory{newSession: happyFakeSession}
		o, root := newTestOrchestrator(t, factory)
		writeBatch(t, root, [][]string{
			{"testnet", "hi", "", "", "", "", "", "pending"},
		})

		report, err := o.PostToPlatforms(context.Background(), []string{"testnet"}, nil, true)
		require.NoError(t, err)

		assert.False(t, report.Success)
		require.Len(t, report.Results, 1)
		assert.Equal(t, poster.KindAuthentication, report.Results[0].ErrorKind)

		assert.Equal(t, 1, pendingCount(t, o, "testnet"), "failed job stays pending")
	})

	t.Run("verify timeout leaves the job pending", func(t *testing.T) {
		factory := &fakeFactory{newSession: func() *fakeSession {
			s := happyFakeSession()
			s.visible = "no confirmation here"
			return s
		}}
		o, root := newTestOrchestrator(t, factory)
		writeBatch(t, root, [][]string{
			{"testnet", "hi", "", "", "", "", "", "pending"},
		})
		require.True(t, o.AddCredentials("testnet", "alice", "pw"))

		report, err := o.PostToPlatforms(context.Background(), []string{"testnet"}, nil, true)
		require.NoError(t, err)

		assert.False(t, report.Success)
		assert.Equal(t, 1, pendingCount(t, o, "testnet"), "unverified job is safe to retry")
	})

	t.Run("nothing ready yields a non-fatal report", func(t *testing.T) {
		factory := &fakeFactory{newSession: happyFakeSession}
		o, _ := newTestOrchestrator(t, factory)

		report, err := o.PostToPlatforms(context.Background(), []string{"testnet"}, nil, true)
		require.NoError(t, err)

		assert.True(t, report.Success)
		assert.Zero(t, report.Attempted)
		assert.Equal(t, "no pending jobs ready", report.Message)
		assert.Empty(t, factory.starts, "no browser work without jobs")
	})

	t.Run("only the first ready job per platform is taken", func(t *testing.T) {
		factory := &fakeFactory{newSession: happyFakeSession}
		o, root := newTestOrchestrator(t, factory)
		writeBatch(t, root, [][]string{
			{"testnet", "first", "", "", "", "", "", "pending"},
			{"testnet", "second", "", "", "", "", "", "pending"},
		})
		require.True(t, o.AddCredentials("testnet", "alice", "pw"))

		report, err := o.PostToPlatforms(context.Background(), []string{"testnet"}, nil, true)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Attempted)
		assert.Equal(t, 1, pendingCount(t, o, "testnet"), "second job remains for the next run")
	})
}

func TestPostToPlatformsWithContent(t *testing.T) {
	t.Run("same content goes to every platform in order", func(t *testing.T) {
		factory := &fakeFactory{newSession: happyFakeSession}
		o, _ := newTestOrchestrator(t, factory)
		require.True(t, o.AddCredentials("testnet", "a", "p"))
		require.True(t, o.AddCredentials("othernet", "b", "p"))

		report, err := o.PostToPlatforms(context.Background(),
			[]string{"testnet", "othernet"}, &poster.Content{Text: "hello"}, false)
		require.NoError(t, err)

		assert.True(t, report.Success)
		assert.Equal(t, 2, report.Attempted)
		assert.Equal(t, 2, report.Succeeded)
		require.Len(t, report.Results, 2)
		assert.Equal(t, "testnet", report.Results[0].Platform)
		assert.Equal(t, "othernet", report.Results[1].Platform)
	})

	t.Run("one platform failing does not abort the others", func(t *testing.T) {
		factory := &fakeFactory{newSession: happyFakeSession}
		o, _ := newTestOrchestrator(t, factory)
		// Credentials only for the second platform.
		require.True(t, o.AddCredentials("othernet", "b", "p"))

		report, err := o.PostToPlatforms(context.Background(),
			[]string{"testnet", "othernet"}, &poster.Content{Text: "hello"}, false)
		require.NoError(t, err)

		assert.False(t, report.Success)
		assert.Equal(t, 2, report.Attempted)
		assert.Equal(t, 1, report.Succeeded)
		assert.False(t, report.Results[0].Success)
		assert.True(t, report.Results[1].Success)
	})

	t.Run("unknown platform is a per-platform failure", func(t *testing.T) {
		factory := &fakeFactory{newSession: happyFakeSession}
		o, _ := newTestOrchestrator(t, factory)

		report, err := o.PostToPlatforms(context.Background(),
			[]string{"myspace"}, &poster.Content{Text: "hello"}, false)
		require.NoError(t, err)

		assert.False(t, report.Success)
		require.Len(t, report.Results, 1)
		assert.Contains(t, report.Results[0].Error, "no poster implementation")
		assert.Empty(t, factory.starts, "no session for an unknown platform")
	})

	t.Run("no content and no queue", func(t *testing.T) {
		factory := &fakeFactory{newSession: happyFakeSession}
		o, _ := newTestOrchestrator(t, factory)

		report, err := o.PostToPlatforms(context.Background(), []string{"testnet"}, nil, false)
		require.NoError(t, err)
		assert.False(t, report.Success)
		assert.NotEmpty(t, report.Message)
	})
}

func TestSessionLifecycle(t *testing.T) {
	t.Run("sessions are released even on failure", func(t *testing.T) {
		factory := &fakeFactory{newSession: func() *fakeSession {
			s := happyFakeSession()
			s.waitResults["#ok"] = false // login never confirms
			return s
		}}
		o, _ := newTestOrchestrator(t, factory)
		require.True(t, o.AddCredentials("testnet", "a", "p"))

		_, err := o.PostToPlatforms(context.Background(),
			[]string{"testnet"}, &poster.Content{Text: "x"}, false)
		require.NoError(t, err)

		assert.Equal(t, factory.starts, factory.closes)
		assert.Len(t, factory.closes, 1)
	})

	t.Run("session start failure is a structured result", func(t *testing.T) {
		factory := &fakeFactory{
			newSession: happyFakeSession,
			startErr:   errors.New("driver exploded"),
		}
		o, _ := newTestOrchestrator(t, factory)

		report, err := o.PostToPlatforms(context.Background(),
			[]string{"testnet"}, &poster.Content{Text: "x"}, false)
		require.NoError(t, err)

		assert.False(t, report.Success)
		require.Len(t, report.Results, 1)
		assert.Equal(t, "browser session could not be started", report.Results[0].Error)
	})
}

func TestCredentialSurface(t *testing.T) {
	factory := &fakeFactory{newSession: happyFakeSession}
	o, _ := newTestOrchestrator(t, factory)

	assert.True(t, o.AddCredentials("testnet", "alice", "pw"))
	assert.True(t, o.RemoveCredentials("testnet"))
	assert.False(t, o.RemoveCredentials("testnet"))
}

func TestListPlatforms(t *testing.T) {
	factory := &fakeFactory{newSession: happyFakeSession}
	o, _ := newTestOrchestrator(t, factory)

	assert.Contains(t, o.ListPlatforms(), "testnet")
	assert.Contains(t, o.ListPlatforms(), "twitter")
}
