package discovery

import (
	"fmt"
	"strings"

	"xcmcp/internal/catalog"
)

const selectionGuidance = `Selection rules:
- Choose exactly one workflow unless the task clearly spans several platforms.
- Prefer SIMULATOR for iOS app work when no physical device is mentioned.
- Prefer DEVICE only when the task mentions a physical iPhone, iPad or device.
- Prefer MACOS for Mac apps and SWIFT-PACKAGE for packages without an Xcode project.
- Choose PROJECT-DISCOVERY when the task is only about finding projects or schemes.

Respond with ONLY a JSON array of workflow slugs in lowercase, for example ["simulator"].
Do not add any explanation or formatting around the array.`

// BuildPrompt renders the selection prompt for a task description.
func BuildPrompt(workflows []catalog.WorkflowDescriptor, task string) string {
	var b strings.Builder
	b.WriteString("You are selecting which groups of developer tools to enable for a task.\n\n")
	b.WriteString("Available workflows:\n")
	for _, wf := range workflows {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(wf.ID), wf.Description)
	}
	b.WriteString("\nTask:\n")
	b.WriteString(strings.TrimSpace(task))
	b.WriteString("\n\n")
	b.WriteString(selectionGuidance)
	return b.String()
}
