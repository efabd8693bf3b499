package poster

import (
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Profile describes how one platform is driven: where to log in, where to
// compose, and which signals confirm login and publication. All
// per-platform behavior lives here as data; the state machine itself is
// shared by every platform.
type Profile struct {
	// Name is the registry key, lowercase.
	Name string

	// LoginURL is the page carrying the login form.
	LoginURL string

	// HomeURL is the authenticated landing page.
	HomeURL string

	// ComposeURL is where composing starts. Empty means compose from the
	// home page.
	ComposeURL string

	// LoggedInURLGlobs are URL patterns that indicate an authenticated
	// session after login submission.
	LoggedInURLGlobs []string

	// LoggedInLocators are elements only present when authenticated.
	LoggedInLocators []string

	// SuccessPhrases are case-insensitive fragments of visible page text
	// that confirm a post was published.
	SuccessPhrases []string

	// SuccessURLGlobs are URL patterns that confirm publication, such as
	// a return to the feed.
	SuccessURLGlobs []string

	// UploadFirst forces the media upload before text entry. Some
	// platforms gate the caption field behind a successful upload.
	UploadFirst bool

	// ClickThrough locators are clicked in order after an upload to step
	// through multi-stage composer dialogs.
	ClickThrough []string

	// SubmitFallbacks are submit locators tried after the resolved one.
	SubmitFallbacks []string

	// HashtagSeparator joins the post text and its hashtags.
	HashtagSeparator string
}

// composeStart returns the URL to navigate to before composing.
func (p Profile) composeStart() string {
	if p.ComposeURL != "" {
		return p.ComposeURL
	}
	return p.HomeURL
}

// matchesAny reports whether the URL matches any of the glob patterns.
// Patterns are authored as literals in the registry, so compilation errors
// are treated as non-matches.
func matchesAny(patterns []string, url string) bool {
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		if g.Match(url) {
			return true
		}
	}
	return false
}

// Registry holds the known platform profiles keyed by name.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry creates a registry pre-populated with the built-in platforms.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range builtinProfiles {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a profile under its (lowercased) name.
func (r *Registry) Register(p Profile) {
	p.Name = strings.ToLower(p.Name)
	r.profiles[p.Name] = p
}

// Get looks a profile up by name, case-insensitively.
func (r *Registry) Get(name string) (Profile, bool) {
	p, ok := r.profiles[strings.ToLower(name)]
	return p, ok
}

// Names returns the registered platform names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtinProfiles = []Profile{
	{
		Name:             "twitter",
		LoginURL:         "https://twitter.com/i/flow/login",
		HomeURL:          "https://twitter.com/home",
		LoggedInURLGlobs: []string{"*twitter.com/home*", "*x.com/home*"},
		LoggedInLocators: []string{
			"a[aria-label='Profile']",
			"div[data-testid='primaryColumn']",
		},
		SuccessPhrases:  []string{"your post was sent", "tweet sent", "view tweet"},
		SuccessURLGlobs: []string{"*twitter.com/home*", "*x.com/home*"},
		SubmitFallbacks: []string{
			"button[data-testid='tweetButtonInline']",
			"div[data-testid='tweetButton']",
		},
		HashtagSeparator: " ",
	},
	{
		Name:     "instagram",
		LoginURL: "https://www.instagram.com/accounts/login/",
		HomeURL:  "https://www.instagram.com/",
		LoggedInLocators: []string{
			"svg[aria-label='Profile']",
			"img[alt*='profile']",
		},
		SuccessPhrases: []string{"your post has been shared", "post shared"},
		UploadFirst:    true,
		ClickThrough: []string{
			"button:has-text('Next')",
			"button:has-text('Next')",
		},
		SubmitFallbacks: []string{
			"button:has-text('Share')",
			"button:has-text('Post')",
		},
		HashtagSeparator: "\n\n",
	},
	{
		Name:     "facebook",
		LoginURL: "https://www.facebook.com/login",
		HomeURL:  "https://www.facebook.com/",
		LoggedInLocators: []string{
			"div[role='navigation']",
			"a[aria-label='Home']",
		},
		SuccessPhrases: []string{"your post is now published", "post published"},
		SubmitFallbacks: []string{
			"div[aria-label='Post']",
			"button:has-text('Post')",
		},
		HashtagSeparator: "\n\n",
	},
	{
		Name:             "linkedin",
		LoginURL:         "https://www.linkedin.com/login",
		HomeURL:          "https://www.linkedin.com/feed/",
		LoggedInURLGlobs: []string{"*linkedin.com/feed*"},
		LoggedInLocators: []string{
			"button[aria-label='Start a post']",
			"div#global-nav",
		},
		SuccessPhrases:  []string{"post successful", "your post is live", "posted successfully"},
		SuccessURLGlobs: []string{"*linkedin.com/feed*"},
		SubmitFallbacks: []string{
			"button.share-actions__primary-action",
			"button:has-text('Post')",
		},
		HashtagSeparator: " ",
	},
}
