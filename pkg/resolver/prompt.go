package resolver

import (
	"fmt"
	"strings"
)

// Descriptions shown to the model for each logical element.
var elementDescriptions = map[string]string{
	ElemUsername:       "The username/email input field",
	ElemPassword:       "The password input field",
	ElemSubmit:         "The button that submits the form or publishes the post",
	ElemComposeTrigger: "The button or area that starts creating a new post",
	ElemTextField:      "The text input area for post content",
	ElemUpload:         "The file input used to upload images or video",
}

const promptTemplate = `Analyze this webpage screenshot and identify CSS selectors for the requested elements.

Page URL: %s
Platform: %s
Task: %s

Required elements to find:
%s

Return a JSON object mapping each element name to its CSS selector. Example:
{
    "username_field": "input[name='username']",
    "password_field": "input[type='password']",
    "submit_button": "button[type='submit']"
}

If an element cannot be found, use null as its value.
Only return the JSON object, no other text.`

// buildPrompt renders the detection prompt for one (page, platform, task).
func buildPrompt(url, platform string, task Task, names []string) string {
	var lines []string
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("- %s: %s", name, elementDescriptions[name]))
	}
	return fmt.Sprintf(promptTemplate, url, platform, string(task), strings.Join(lines, "\n"))
}
