// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// Shape is the output a role declares it will produce.
type Shape int

const (
	// ShapeText roles return free text.
	ShapeText Shape = iota
	// ShapeVerdict roles return a JSON object matching types.Verdict.
	ShapeVerdict
)

func (s Shape) String() string {
	switch s {
	case ShapeText:
		return "text"
	case ShapeVerdict:
		return "verdict"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// MarshalText lets YAML and JSON encoders print the shape by name.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Agent names as they appear in configuration and traces.
const (
	GeneratorName = "curriculum_agent"
	CheckerName   = "curriculum_checker_agent"
	WriterName    = "lesson_writer_agent"
)

// Role is one agent configuration: a name, its instructions, and the shape
// of output the caller expects back.
type Role struct {
	Name         string `json:"name" yaml:"name"`
	Instructions string `json:"instructions" yaml:"instructions"`
	Shape        Shape  `json:"shape" yaml:"shape"`
}

// Roles groups the three roles of the tutor pipeline.
type Roles struct {
	Generator Role `json:"generator" yaml:"generator"`
	Checker   Role `json:"checker" yaml:"checker"`
	Writer    Role `json:"writer" yaml:"writer"`
}

// DefaultRoles returns the built-in role configurations.
func DefaultRoles() Roles {
	return Roles{
		Generator: Role{
			Name:         GeneratorName,
			Instructions: "Generate a structured curriculum outline to help someone achieve the programming learning goal they provide.",
			Shape:        ShapeText,
		},
		Checker: Role{
			Name:         CheckerName,
			Instructions: "Evaluate the provided curriculum outline. Determine if it is high quality and if it matches the user's learning goal.",
			Shape:        ShapeVerdict,
		},
		Writer: Role{
			Name:         WriterName,
			Instructions: "Write a detailed coding lesson for each section in the curriculum outline. Include explanations, code examples, and one practice question per section.",
			Shape:        ShapeText,
		},
	}
}

// All returns the roles in pipeline order.
func (r Roles) All() []Role {
	return []Role{r.Generator, r.Checker, r.Writer}
}

// WithOverrides returns a copy of r with instructions replaced from
// overrides. Keys must be agent names; blank instructions are ignored.
// Shapes cannot be overridden.
func (r Roles) WithOverrides(overrides map[string]types.RoleOverride) (Roles, error) {
	out := r
	byName := map[string]*Role{
		out.Generator.Name: &out.Generator,
		out.Checker.Name:   &out.Checker,
		out.Writer.Name:    &out.Writer,
	}

	var unknown []string
	for name, o := range overrides {
		role, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if text := strings.TrimSpace(o.Instructions); text != "" {
			role.Instructions = text
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Roles{}, fmt.Errorf("unknown agent role(s) in config: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}
