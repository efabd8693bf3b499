// Package poster drives one posting attempt on one platform as a state
// machine.
//
// States run in strict order: Idle, LoggingIn, LoggedIn, ComposeNavigating,
// Composing, Submitting, Verifying, then Completed or Failed. Every fault
// is converted into a Failed terminal with an error kind at the poster
// boundary; callers never see a raw browser error. Each network-bound step
// applies a bounded wait, because a hung session would otherwise block the
// whole run.
package poster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/postwright/postwright/pkg/browser"
	"github.com/postwright/postwright/pkg/credentials"
	"github.com/postwright/postwright/pkg/logging"
	"github.com/postwright/postwright/pkg/pacing"
	"github.com/postwright/postwright/pkg/resolver"
)

// State is one phase of a posting attempt.
type State string

const (
	StateIdle              State = "idle"
	StateLoggingIn         State = "logging_in"
	StateLoggedIn          State = "logged_in"
	StateComposeNavigating State = "compose_navigating"
	StateComposing         State = "composing"
	StateSubmitting        State = "submitting"
	StateVerifying         State = "verifying"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
)

// Content is the material for one post. ImageFile and VideoFile are
// absolute paths to media that is known to exist; media validation happens
// upstream in the queue.
type Content struct {
	Text      string
	Hashtags  string
	Location  string
	ImageFile string
	VideoFile string
}

// Result is the terminal outcome of one posting attempt.
type Result struct {
	Success   bool
	Platform  string
	PostURL   string
	ErrorKind ErrorKind
	Error     string
	Timestamp time.Time

	// States is the ordered list of states the attempt visited.
	States []State
}

// CredentialSource supplies login credentials per platform.
type CredentialSource interface {
	Get(platform string) (*credentials.Pair, bool)
}

// ElementResolver resolves logical element names to locators for the
// session's current page.
type ElementResolver interface {
	Resolve(ctx context.Context, session browser.Session, platform string, task resolver.Task) resolver.Map
}

// Waits bounds each suspension point of the state machine.
type Waits struct {
	// Login bounds the post-submission login confirmation poll.
	Login time.Duration

	// Verify bounds the post-publication success-signal poll.
	Verify time.Duration

	// Step bounds individual element interactions.
	Step time.Duration

	// Poll is the interval between post-condition checks.
	Poll time.Duration
}

// DefaultWaits returns the production wait bounds.
func DefaultWaits() Waits {
	return Waits{
		Login:  20 * time.Second,
		Verify: 15 * time.Second,
		Step:   2 * time.Second,
		Poll:   500 * time.Millisecond,
	}
}

// Poster drives one platform's posting attempt over one browser session.
// A Poster is single-use: create one per attempt.
type Poster struct {
	profile  Profile
	session  browser.Session
	creds    CredentialSource
	resolver ElementResolver
	delay    pacing.Policy
	waits    Waits
	log      *slog.Logger

	state State
	trace []State
}

// Option configures a Poster.
type Option func(*Poster)

// WithWaits overrides the default wait bounds.
func WithWaits(w Waits) Option {
	return func(p *Poster) {
		p.waits = w
	}
}

// WithDelayPolicy overrides the inter-step delay policy.
func WithDelayPolicy(policy pacing.Policy) Option {
	return func(p *Poster) {
		p.delay = policy
	}
}

// New creates a poster for one attempt on the given platform profile.
func New(profile Profile, session browser.Session, creds CredentialSource, elems ElementResolver, opts ...Option) *Poster {
	p := &Poster{
		profile:  profile,
		session:  session,
		creds:    creds,
		resolver: elems,
		delay:    pacing.NewRandom(),
		waits:    DefaultWaits(),
		log:      logging.For("poster").With("platform", profile.Name),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives the attempt to a terminal state and returns its result. It
// never returns an error: every fault, including panics out of the browser
// layer, becomes a Failed result with an error kind and message.
func (p *Poster) Run(ctx context.Context, content Content) (result Result) {
	result = Result{Platform: p.profile.Name}

	defer func() {
		if r := recover(); r != nil {
			p.enter(StateFailed)
			result.Success = false
			result.ErrorKind = KindPosting
			result.Error = fmt.Sprintf("unexpected fault: %v", r)
		}
		result.Timestamp = time.Now()
		result.States = append([]State(nil), p.trace...)
	}()

	p.enter(StateIdle)

	if err := p.run(ctx, content); err != nil {
		perr := asPosterError(err, p.state)
		p.enter(StateFailed)
		p.log.Error("posting failed", "kind", string(perr.Kind), "stage", string(perr.Stage), "error", perr.Message)
		result.ErrorKind = perr.Kind
		result.Error = perr.Message
		return result
	}

	result.Success = true
	result.PostURL = p.session.CurrentURL()
	p.log.Info("posting completed")
	return result
}

func (p *Poster) run(ctx context.Context, content Content) error {
	p.enter(StateLoggingIn)
	if err := p.login(ctx); err != nil {
		return err
	}
	p.enter(StateLoggedIn)

	p.enter(StateComposeNavigating)
	elems, err := p.navigateToComposer(ctx)
	if err != nil {
		return err
	}

	p.enter(StateComposing)
	if err := p.compose(ctx, content, elems); err != nil {
		return err
	}

	// From here the attempt runs to Verifying even if the caller has
	// cancelled: tearing down mid-submit would leave a maybe-posted
	// outcome that cannot be retried safely.
	p.enter(StateSubmitting)
	if err := p.submit(ctx, elems); err != nil {
		return err
	}

	p.enter(StateVerifying)
	if err := p.verify(ctx); err != nil {
		return err
	}

	p.enter(StateCompleted)
	return nil
}

// login performs credential lookup, form fill and the bounded login
// post-condition poll. Credential absence is terminal for this run; there
// is no in-run retry.
func (p *Poster) login(ctx context.Context) error {
	pair, ok := p.creds.Get(p.profile.Name)
	if !ok {
		return newErrorf(KindAuthentication, StateLoggingIn, "no credentials found for %s", p.profile.Name)
	}

	if err := p.session.Navigate(p.profile.LoginURL); err != nil {
		return newErrorf(KindAuthentication, StateLoggingIn, "login page unreachable: %v", err)
	}
	p.delay.Sleep(ctx, 2*time.Second, 4*time.Second)

	elems := p.resolver.Resolve(ctx, p.session, p.profile.Name, resolver.TaskLogin)
	if elems[resolver.ElemSubmit] == "" {
		return newErrorf(KindAuthentication, StateLoggingIn, "login submit control could not be resolved")
	}

	if locator := elems[resolver.ElemUsername]; locator != "" {
		if err := p.session.TypeText(locator, pair.Username); err != nil {
			return newErrorf(KindAuthentication, StateLoggingIn, "could not fill username field")
		}
	}
	if locator := elems[resolver.ElemPassword]; locator != "" {
		if err := p.session.TypeText(locator, pair.Password); err != nil {
			return newErrorf(KindAuthentication, StateLoggingIn, "could not fill password field")
		}
	}

	if err := p.session.Click(elems[resolver.ElemSubmit], p.waits.Step); err != nil {
		return newErrorf(KindAuthentication, StateLoggingIn, "login submit failed: %v", err)
	}

	if !p.pollCondition(ctx, p.waits.Login, p.isLoggedIn) {
		return newErrorf(KindAuthentication, StateLoggingIn, "login not confirmed within %s", p.waits.Login)
	}

	p.log.Info("logged in")
	return nil
}

// isLoggedIn checks the platform's authenticated post-conditions: either a
// URL pattern or the presence of an authenticated-only element.
func (p *Poster) isLoggedIn() bool {
	if matchesAny(p.profile.LoggedInURLGlobs, p.session.CurrentURL()) {
		return true
	}
	for _, locator := range p.profile.LoggedInLocators {
		if p.session.WaitForLocator(locator, p.waits.Poll) {
			return true
		}
	}
	return false
}

// navigateToComposer opens the composing surface and resolves its elements.
// A resolved compose trigger is clicked; a trigger that fails to click is
// tolerated because many platforms open the composer inline.
func (p *Poster) navigateToComposer(ctx context.Context) (resolver.Map, error) {
	if err := p.session.Navigate(p.profile.composeStart()); err != nil {
		return nil, newErrorf(KindPosting, StateComposeNavigating, "composer unreachable: %v", err)
	}
	p.delay.Sleep(ctx, 2*time.Second, 4*time.Second)

	elems := p.resolver.Resolve(ctx, p.session, p.profile.Name, resolver.TaskCompose)

	if trigger := elems[resolver.ElemComposeTrigger]; trigger != "" {
		if err := p.session.Click(trigger, p.waits.Step); err != nil {
			p.log.Warn("compose trigger did not respond, assuming inline composer")
		}
		p.delay.Sleep(ctx, 1*time.Second, 2*time.Second)
	}

	return elems, nil
}

// compose populates the post. Upload runs before text entry when the
// profile demands it, because some platforms gate the caption field behind
// a successful upload. The minimum requirement is text, or media when text
// is absent; anything less is a content-kind failure.
func (p *Poster) compose(ctx context.Context, content Content, elems resolver.Map) error {
	text := content.Text
	if content.Hashtags != "" {
		sep := p.profile.HashtagSeparator
		if sep == "" {
			sep = " "
		}
		if text != "" {
			text += sep
		}
		text += content.Hashtags
	}

	media := content.ImageFile
	if media == "" {
		media = content.VideoFile
	}

	if text == "" && media == "" {
		return newErrorf(KindContent, StateComposing, "job has no text and no usable media")
	}

	mediaAttached := false
	if media != "" && p.profile.UploadFirst {
		if err := p.upload(ctx, elems, media); err != nil {
			return err
		}
		mediaAttached = true
	}

	textEntered := false
	if text != "" {
		locator := elems[resolver.ElemTextField]
		if locator == "" {
			if !mediaAttached {
				return newErrorf(KindContent, StateComposing, "text field could not be resolved")
			}
			p.log.Warn("text field unresolved, posting media without caption")
		} else if err := p.session.TypeText(locator, text); err != nil {
			if !mediaAttached {
				return newErrorf(KindContent, StateComposing, "text entry failed: %v", err)
			}
			p.log.Warn("caption entry failed, posting media without caption")
		} else {
			textEntered = true
		}
	}

	if media != "" && !p.profile.UploadFirst {
		if err := p.upload(ctx, elems, media); err != nil {
			if !textEntered {
				return err
			}
			p.log.Warn("media attach failed, posting text-only", "error", asPosterError(err, StateComposing).Message)
		} else {
			mediaAttached = true
		}
	}

	if !textEntered && !mediaAttached {
		return newErrorf(KindContent, StateComposing, "no content field could be populated")
	}
	return nil
}

// upload attaches the media file and steps through any click-through
// dialog stages the platform shows after an upload.
func (p *Poster) upload(ctx context.Context, elems resolver.Map, path string) error {
	locator := elems[resolver.ElemUpload]
	if locator == "" {
		locator = "input[type='file']"
	}
	if err := p.session.SetFiles(locator, path); err != nil {
		return newErrorf(KindPosting, StateComposing, "media upload failed: %v", err)
	}
	p.delay.Sleep(ctx, 2*time.Second, 4*time.Second)

	for _, step := range p.profile.ClickThrough {
		if !p.session.WaitForLocator(step, p.waits.Step) {
			break
		}
		if err := p.session.Click(step, p.waits.Step); err != nil {
			break
		}
		p.delay.Sleep(ctx, 1*time.Second, 2*time.Second)
	}
	return nil
}

// submit clicks the first responsive submit control, trying the resolved
// locator before the profile's fallbacks.
func (p *Poster) submit(ctx context.Context, elems resolver.Map) error {
	candidates := make([]string, 0, 1+len(p.profile.SubmitFallbacks))
	if locator := elems[resolver.ElemSubmit]; locator != "" {
		candidates = append(candidates, locator)
	}
	candidates = append(candidates, p.profile.SubmitFallbacks...)

	for _, locator := range candidates {
		if !p.session.WaitForLocator(locator, p.waits.Step) {
			continue
		}
		if err := p.session.Click(locator, p.waits.Step); err != nil {
			continue
		}
		p.delay.Sleep(ctx, 2*time.Second, 4*time.Second)
		return nil
	}

	return newErrorf(KindPosting, StateSubmitting, "no submit control responded")
}

// verify polls for a publication signal within the verify bound. Absence
// of every signal is a failure even though the post may have silently
// succeeded: staying pending and retrying beats falsely marking a job
// consumed.
func (p *Poster) verify(ctx context.Context) error {
	ok := p.pollCondition(ctx, p.waits.Verify, func() bool {
		if matchesAny(p.profile.SuccessURLGlobs, p.session.CurrentURL()) {
			return true
		}
		text, err := p.session.VisibleText()
		if err != nil {
			return false
		}
		text = strings.ToLower(text)
		for _, phrase := range p.profile.SuccessPhrases {
			if strings.Contains(text, strings.ToLower(phrase)) {
				return true
			}
		}
		return false
	})
	if !ok {
		return newErrorf(KindPosting, StateVerifying, "no success signal within %s", p.waits.Verify)
	}
	return nil
}

// pollCondition evaluates cond repeatedly until it holds or the bound
// elapses. The first evaluation happens immediately.
func (p *Poster) pollCondition(ctx context.Context, bound time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(bound)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		timer := time.NewTimer(p.waits.Poll)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
}

func (p *Poster) enter(state State) {
	p.state = state
	p.trace = append(p.trace, state)
	p.log.Debug("state", "state", string(state))
}
