// Package orchestrator sequences posting runs across platforms.
//
// A run processes platforms one at a time: parallel sessions are
// deliberately avoided because simultaneous automated behavior across
// accounts is easy to correlate, and a shared-resource fault is much
// harder to attribute with several live sessions. The orchestrator owns
// browser session lifecycles, is the only writer of the job queue, and
// turns every expected condition (no credentials, no pending job, missing
// media) into a structured report rather than an error.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postwright/postwright/pkg/credentials"
	"github.com/postwright/postwright/pkg/llm"
	"github.com/postwright/postwright/pkg/logging"
	"github.com/postwright/postwright/pkg/pacing"
	"github.com/postwright/postwright/pkg/poster"
	"github.com/postwright/postwright/pkg/queue"
	"github.com/postwright/postwright/pkg/resolver"
)

// Pacing bounds for the randomized delay between platform sessions.
const (
	interPlatformMin = 5 * time.Second
	interPlatformMax = 10 * time.Second
)

// Config holds everything an Orchestrator needs. There are no package-level
// defaults; the zero value of each field selects a documented fallback at
// construction time.
type Config struct {
	// StorageRoot is the directory holding credentials, content and
	// media. Defaults to ~/.postwright.
	StorageRoot string

	// Headless controls browser visibility. Posting runs default to a
	// visible browser; fully headless sessions are easier to flag.
	Headless bool

	// Provider enables model-assisted element resolution. Nil restricts
	// the resolver to its static fallback tables.
	Provider llm.Provider

	// Secrets holds the master encryption key. Defaults to the OS
	// keychain under the "postwright" service.
	Secrets credentials.SecretStore

	// Registry supplies platform profiles. Defaults to the built-ins.
	Registry *poster.Registry

	// Delay is the pacing policy for inter-step and inter-platform
	// delays. Defaults to randomized pacing.
	Delay pacing.Policy

	// Waits bounds the poster's suspension points. Zero value selects
	// poster.DefaultWaits.
	Waits poster.Waits

	// Sessions provides browser sessions. Defaults to Playwright.
	Sessions SessionFactory
}

// Report is the aggregate outcome of one PostToPlatforms invocation.
type Report struct {
	// Success is true when every attempted platform completed, and when
	// there was nothing to do.
	Success bool

	Attempted int
	Succeeded int

	// Message carries the non-fatal explanation when no platform was
	// attempted, such as "no pending jobs ready".
	Message string

	// Results holds the per-platform outcomes in processing order.
	Results []poster.Result
}

// Orchestrator drives posting runs. Runs are serialized internally: the
// queue's whole-table rewrite supports only one writer at a time.
type Orchestrator struct {
	store    *credentials.Store
	queue    *queue.Queue
	resolver *resolver.Resolver
	registry *poster.Registry
	sessions SessionFactory
	delay    pacing.Policy
	waits    poster.Waits
	headless bool
	log      *slog.Logger

	runMu sync.Mutex
}

// New creates an orchestrator from explicit configuration.
func New(cfg Config) (*Orchestrator, error) {
	root := cfg.StorageRoot
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		root = filepath.Join(home, ".postwright")
	}

	secrets := cfg.Secrets
	if secrets == nil {
		secrets = credentials.NewKeyring("postwright")
	}

	store, err := credentials.NewStore(filepath.Join(root, "credentials"), secrets)
	if err != nil {
		return nil, err
	}

	q, err := queue.New(root)
	if err != nil {
		return nil, err
	}
	if err := q.EnsureTemplate(); err != nil {
		return nil, err
	}

	registry := cfg.Registry
	if registry == nil {
		registry = poster.NewRegistry()
	}

	delay := cfg.Delay
	if delay == nil {
		delay = pacing.NewRandom()
	}

	waits := cfg.Waits
	if waits == (poster.Waits{}) {
		waits = poster.DefaultWaits()
	}

	sessions := cfg.Sessions
	if sessions == nil {
		sessions = NewPlaywrightFactory()
	}

	return &Orchestrator{
		store:    store,
		queue:    q,
		resolver: resolver.New(cfg.Provider),
		registry: registry,
		sessions: sessions,
		delay:    delay,
		waits:    waits,
		headless: cfg.Headless,
		log:      logging.For("orchestrator"),
	}, nil
}

// work is one platform's scheduled attempt.
type work struct {
	platform  string
	content   poster.Content
	fromQueue bool
	batch     string
	index     int
}

// PostToPlatforms runs one posting pass over the requested platforms.
//
// With explicit content, the same content goes to every platform. With
// useQueue and no content, each platform takes at most its first ready job,
// so work per invocation is bounded; this is not a drain loop. Expected
// conditions never surface as errors; the report carries them.
func (o *Orchestrator) PostToPlatforms(ctx context.Context, platforms []string, content *poster.Content, useQueue bool) (*Report, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	works, report := o.selectWork(platforms, content, useQueue)
	if report != nil {
		return report, nil
	}

	var results []poster.Result
	for i, w := range works {
		// Abort only between platforms. An in-flight attempt always
		// reaches its own terminal state.
		if ctx.Err() != nil {
			o.log.Warn("run aborted between platforms", "remaining", len(works)-i)
			break
		}

		result := o.runOne(ctx, w)

		if result.Success && w.fromQueue {
			if ok, err := o.queue.MarkPosted(w.batch, w.index); err != nil || !ok {
				o.log.Error("job completed but could not be marked posted",
					"platform", w.platform, "batch", w.batch, "index", w.index, "error", err)
			}
		}
		results = append(results, result)

		// Anti-correlation pacing between sessions. Applies after
		// failures too; a quick retry burst is its own signature.
		if i < len(works)-1 {
			o.delay.Sleep(ctx, interPlatformMin, interPlatformMax)
		}
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	return &Report{
		Success:   len(results) > 0 && succeeded == len(results),
		Attempted: len(results),
		Succeeded: succeeded,
		Results:   results,
	}, nil
}

// selectWork builds the per-platform work list. It returns a non-nil
// report instead when there is nothing to attempt.
func (o *Orchestrator) selectWork(platforms []string, content *poster.Content, useQueue bool) ([]work, *Report) {
	if content != nil {
		works := make([]work, 0, len(platforms))
		for _, platform := range platforms {
			works = append(works, work{
				platform: strings.ToLower(platform),
				content:  *content,
			})
		}
		return works, nil
	}

	if !useQueue {
		return nil, &Report{Success: false, Message: "no content provided and queue disabled"}
	}

	var works []work
	for _, platform := range platforms {
		platform = strings.ToLower(platform)

		jobs, err := o.queue.ListReady(platform)
		if err != nil {
			o.log.Error("queue read failed", "platform", platform, "error", err)
			return nil, &Report{Success: false, Message: "job queue unreadable"}
		}
		if len(jobs) == 0 {
			o.log.Info("no pending job", "platform", platform)
			continue
		}

		// Only the first ready job per platform per invocation.
		job := jobs[0]
		o.queue.ValidateMedia(&job)

		works = append(works, work{
			platform: platform,
			content: poster.Content{
				Text:      job.Text,
				Hashtags:  job.Hashtags,
				Location:  job.Location,
				ImageFile: job.ImageFile,
				VideoFile: job.VideoFile,
			},
			fromQueue: true,
			batch:     job.Batch,
			index:     job.Index,
		})
	}

	if len(works) == 0 {
		return nil, &Report{Success: true, Message: "no pending jobs ready"}
	}
	return works, nil
}

// runOne acquires an isolated session, drives the poster to a terminal
// state and releases the session unconditionally.
func (o *Orchestrator) runOne(ctx context.Context, w work) poster.Result {
	profile, ok := o.registry.Get(w.platform)
	if !ok {
		return poster.Result{
			Platform:  w.platform,
			ErrorKind: poster.KindPosting,
			Error:     fmt.Sprintf("no poster implementation for %s", w.platform),
			Timestamp: time.Now(),
		}
	}

	sessionName := profile.Name + "-" + uuid.New().String()[:8]
	session, err := o.sessions.Start(sessionName, o.headless)
	if err != nil {
		o.log.Error("browser session failed to start", "platform", profile.Name, "error", err)
		return poster.Result{
			Platform:  profile.Name,
			ErrorKind: poster.KindPosting,
			Error:     "browser session could not be started",
			Timestamp: time.Now(),
		}
	}
	defer func() {
		if err := o.sessions.Close(sessionName); err != nil {
			o.log.Error("session close failed", "platform", profile.Name, "error", err)
		}
	}()

	p := poster.New(profile, session, o.store, o.resolver,
		poster.WithWaits(o.waits),
		poster.WithDelayPolicy(o.delay),
	)
	return p.Run(ctx, w.content)
}

// AddCredentials provisions credentials for a platform. Store failures are
// logged with a sanitized message and reported as false.
func (o *Orchestrator) AddCredentials(platform, username, password string) bool {
	if err := o.store.Save(platform, username, password); err != nil {
		o.log.Error("failed to save credentials", "platform", platform, "error", err)
		return false
	}
	return true
}

// RemoveCredentials revokes a platform's stored credentials.
func (o *Orchestrator) RemoveCredentials(platform string) bool {
	return o.store.Delete(platform)
}

// ImportCredentials bulk-loads credentials from a YAML document, skipping
// placeholder entries. It returns the number imported.
func (o *Orchestrator) ImportCredentials(path string) (int, error) {
	return o.store.ImportYAML(path)
}

// ListPlatforms returns the platforms with a registered profile.
func (o *Orchestrator) ListPlatforms() []string {
	return o.registry.Names()
}

// Close releases all browser resources.
func (o *Orchestrator) Close() error {
	return o.sessions.Shutdown()
}
