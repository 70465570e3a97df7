package planner

import (
	"fmt"
	"strings"

	"github.com/entrhq/webpilot/pkg/tools"
)

// GiveUpTag lets the model abandon a run explicitly.
const GiveUpTag = "<give_up/>"

const rolePrompt = `You are an expert web navigation agent. Your goal is to find the part of the page that answers the user's task and commit it for extraction.`

const workflowPrompt = `<workflow>
Work in a cycle of action and verification:
1. Plan: analyze the page and the task.
2. Act: use a tool such as type_into_element or click_element to perform one key action.
3. Verify after every action that changes the page:
   a. Wait: use wait_loading with the selector of an element that disappears when loading completes, such as a spinner.
   b. Observe: use get_body_content with a selector for the relevant section, or get_distilled_dom for a summary of forms and tables.
   c. Analyze: does the observed content hold the final data, or an intermediate state such as "loading..." or an error?
4. If the content is not final yet, wait or observe again, or act differently.
5. Finish: once the final data is on the page, commit the results container.
</workflow>`

const toolCallingPrompt = `<tool_calling>
Answer with a short reasoning followed by exactly one tool call in this format:

<tool>
<tool_name>name</tool_name>
<arguments>
  <param>value</param>
</arguments>
</tool>

Wrap values containing markup in <![CDATA[...]]>. Tool results arrive as the next message.
If the task cannot be completed on this site, answer with ` + GiveUpTag + ` instead of a tool call.
</tool_calling>`

// BuildSystemPrompt assembles the system prompt for the given catalogue.
// Finishing operations are described separately from the generic tools.
func BuildSystemPrompt(specs []tools.Spec, customInstructions string) string {
	var b strings.Builder

	if customInstructions != "" {
		b.WriteString("<custom_instructions>\n")
		b.WriteString(customInstructions)
		b.WriteString("\n</custom_instructions>\n\n")
	}

	b.WriteString(rolePrompt)
	b.WriteString("\n\n")
	b.WriteString(workflowPrompt)
	b.WriteString("\n\n")
	b.WriteString(toolCallingPrompt)
	b.WriteString("\n\n")

	var finishing []tools.Spec
	b.WriteString("<available_tools>\n")
	for _, spec := range specs {
		if spec.Finishing {
			finishing = append(finishing, spec)
			continue
		}
		writeSpec(&b, spec)
	}
	b.WriteString("</available_tools>\n")

	if len(finishing) > 0 {
		b.WriteString("\n<finishing>\n")
		b.WriteString("When verification confirms the final data is on the page, end the run with:\n")
		for _, spec := range finishing {
			writeSpec(&b, spec)
		}
		b.WriteString("This must be your last call.\n")
		b.WriteString("</finishing>\n")
	}

	return b.String()
}

func writeSpec(b *strings.Builder, spec tools.Spec) {
	fmt.Fprintf(b, "\n## %s\n%s\n", spec.Name, spec.Description)
	if len(spec.Params) > 0 {
		b.WriteString("Parameters:\n")
		for _, p := range spec.Params {
			req := "optional"
			if p.Required {
				req = "required"
			}
			fmt.Fprintf(b, "- %s (%s, %s): %s", p.Name, p.Type, req, p.Description)
			if p.Default != "" {
				fmt.Fprintf(b, " Default: %s.", p.Default)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("Example:\n")
	b.WriteString(spec.Usage())
	b.WriteString("\n")
}

// BuildTaskMessage introduces the task and the initial page.
func BuildTaskMessage(task, page string) string {
	return fmt.Sprintf("<task>\n%s\n</task>\n\n<page>\n%s\n</page>", task, page)
}

// BuildObservationMessage reports a tool result back to the model.
func BuildObservationMessage(turn Turn, observation string) string {
	return fmt.Sprintf("Tool '%s' result (step %d of %d):\n%s", turn.LastTool, turn.Step-1, turn.MaxSteps, observation)
}

// BuildParseErrorMessage asks the model to correct a malformed answer.
func BuildParseErrorMessage(err error) string {
	return fmt.Sprintf("Your last answer did not contain a valid tool call: %v\n"+
		"Reply with exactly one <tool>...</tool> block, or %s if the task cannot be completed.", err, GiveUpTag)
}
