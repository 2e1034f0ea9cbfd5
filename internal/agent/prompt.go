// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"bytes"
	"text/template"
)

// systemPromptTmpl combines a role's instructions with the output contract
// for structured roles. Providers with native schema support receive the
// schema separately as well.
var systemPromptTmpl = template.Must(template.New("system").Parse(`{{.Instructions}}
{{- if .Verdict}}

Respond with a JSON object containing exactly two boolean fields:
- good_quality: true if the curriculum outline is high quality
- matches_goal: true if the curriculum outline matches the learner's goal

Do not include any text outside the JSON object.

Example response:
{"good_quality": true, "matches_goal": false}
{{- end}}
`))

// verdictSchemaName labels the schema for providers that require one.
const verdictSchemaName = "curriculum_check"

// verdictJSONSchema is the JSON Schema of types.Verdict.
var verdictJSONSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"good_quality": map[string]any{"type": "boolean"},
		"matches_goal": map[string]any{"type": "boolean"},
	},
	"required":             []string{"good_quality", "matches_goal"},
	"additionalProperties": false,
}

// renderSystemPrompt returns the system prompt for role.
func renderSystemPrompt(role Role) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Instructions string
		Verdict      bool
	}{
		Instructions: role.Instructions,
		Verdict:      role.Shape == ShapeVerdict,
	}
	if err := systemPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
