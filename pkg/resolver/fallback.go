package resolver

import "strings"

// Static per-platform selector tables used when the model-assisted path is
// unavailable. These are common patterns that have held up across
// redesigns; they bound resolution cost and guarantee forward progress,
// but they are expected to lag the live UI. An unknown platform or task
// yields an empty table, which normalizes to all-unresolved.
var fallbackSelectors = map[string]map[Task]Map{
	"twitter": {
		TaskLogin: {
			ElemUsername: "input[autocomplete='username']",
			ElemPassword: "input[name='password']",
			ElemSubmit:   "div[data-testid='LoginForm_Login_Button']",
		},
		TaskCompose: {
			ElemComposeTrigger: "a[aria-label='Post']",
			ElemTextField:      "div[data-testid='tweetTextarea_0']",
			ElemUpload:         "input[type='file'][accept*='image']",
			ElemSubmit:         "button[data-testid='tweetButtonInline']",
		},
	},
	"instagram": {
		TaskLogin: {
			ElemUsername: "input[name='username']",
			ElemPassword: "input[name='password']",
			ElemSubmit:   "button[type='submit']",
		},
		TaskCompose: {
			ElemComposeTrigger: "svg[aria-label='New post']",
			ElemTextField:      "textarea[aria-label='Caption']",
			ElemUpload:         "input[type='file']",
			ElemSubmit:         "button:has-text('Share')",
		},
	},
	"facebook": {
		TaskLogin: {
			ElemUsername: "input[name='email']",
			ElemPassword: "input[name='pass']",
			ElemSubmit:   "button[name='login']",
		},
		TaskCompose: {
			ElemComposeTrigger: "div[aria-label='Create a post']",
			ElemTextField:      "div[role='textbox']",
			ElemUpload:         "input[type='file'][accept*='image']",
			ElemSubmit:         "div[aria-label='Post']",
		},
	},
	"linkedin": {
		TaskLogin: {
			ElemUsername: "input[id='username']",
			ElemPassword: "input[id='password']",
			ElemSubmit:   "button[type='submit']",
		},
		TaskCompose: {
			ElemComposeTrigger: "button.share-box-feed-entry__trigger",
			ElemTextField:      "div[role='textbox']",
			ElemUpload:         "input[type='file']",
			ElemSubmit:         "button.share-actions__primary-action",
		},
	},
}

func fallbackFor(platform string, task Task) Map {
	tasks, ok := fallbackSelectors[strings.ToLower(platform)]
	if !ok {
		return Map{}
	}
	return tasks[task]
}
