// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// FakeBackend answers every role deterministically without a network.
// It is used for dry runs of the pipeline and in tests of the CLI.
type FakeBackend struct {
	// Verdict is what the checker role returns.
	Verdict types.Verdict
}

// NewFakeBackend returns a fake whose checker approves every outline.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{Verdict: types.Verdict{IsHighQuality: true, MatchesGoal: true}}
}

// Invoke returns canned output keyed on the role's shape and name.
func (f *FakeBackend) Invoke(_ context.Context, role Role, input string) (Output, error) {
	if role.Shape == ShapeVerdict {
		data, err := json.Marshal(f.Verdict)
		if err != nil {
			return Output{}, err
		}
		return Output{Text: string(data)}, nil
	}

	subject := strings.TrimSpace(input)
	switch role.Name {
	case GeneratorName:
		return Output{Text: fmt.Sprintf("## 1. Foundations of %s\n## 2. Practice with %s\n## 3. Review", subject, subject)}, nil
	case WriterName:
		var b strings.Builder
		for _, line := range strings.Split(subject, "\n") {
			heading := strings.TrimSpace(strings.TrimLeft(line, "#"))
			if heading == "" {
				continue
			}
			fmt.Fprintf(&b, "### Lesson: %s\nExplanation, example, and one practice question.\n\n", heading)
		}
		return Output{Text: strings.TrimSpace(b.String())}, nil
	default:
		return Output{Text: subject}, nil
	}
}
