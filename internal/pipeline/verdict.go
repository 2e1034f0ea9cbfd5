// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// ErrMalformedVerdict is wrapped by every ParseVerdict failure.
var ErrMalformedVerdict = errors.New("malformed verdict")

// verdictFields lists the wire names that must be present, in report order.
var verdictFields = []string{"good_quality", "matches_goal"}

// ParseVerdict decodes the checker's raw output into a Verdict. The output
// must be a single JSON object whose good_quality and matches_goal fields
// are both JSON booleans. Extra fields are ignored. A Markdown code fence
// around the object is tolerated; any other surrounding text is not.
func ParseVerdict(raw string) (types.Verdict, error) {
	body := stripCodeFence(strings.TrimSpace(raw))
	if body == "" {
		return types.Verdict{}, fmt.Errorf("%w: empty response", ErrMalformedVerdict)
	}

	var fields map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&fields); err != nil {
		return types.Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if rest := strings.TrimSpace(body[dec.InputOffset():]); rest != "" {
		return types.Verdict{}, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedVerdict)
	}
	if fields == nil {
		return types.Verdict{}, fmt.Errorf("%w: not a JSON object", ErrMalformedVerdict)
	}

	values := make(map[string]bool, len(verdictFields))
	var problems []string
	for _, name := range verdictFields {
		v, ok := fields[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing field %q", name))
			continue
		}
		b, ok := parseBool(v)
		if !ok {
			problems = append(problems, fmt.Sprintf("field %q is %s, want boolean", name, string(v)))
			continue
		}
		values[name] = b
	}
	if len(problems) > 0 {
		return types.Verdict{}, fmt.Errorf("%w: %s", ErrMalformedVerdict, strings.Join(problems, "; "))
	}

	return types.Verdict{
		IsHighQuality: values["good_quality"],
		MatchesGoal:   values["matches_goal"],
	}, nil
}

// parseBool accepts only the JSON literals true and false.
func parseBool(v json.RawMessage) (bool, bool) {
	switch string(bytes.TrimSpace(v)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// stripCodeFence removes a ``` or ```json fence wrapping the whole text.
// The language tag is matched case-insensitively.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		lang := strings.TrimSpace(inner[:nl])
		if lang == "" || strings.EqualFold(lang, "json") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}
