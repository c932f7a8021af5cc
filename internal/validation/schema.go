package validation

import (
	"context"
	"fmt"
)

// Check reports whether a value satisfies a rule. A non-nil error means the rule could
// not be evaluated (for example the store is unreachable) and aborts the whole schema.
type Check func(ctx context.Context, value any) (bool, error)

type Rule struct {
	Keyword string
	Message string
	Kind    Kind
	Check   Check
}

type FieldType int

const (
	TypeString FieldType = iota + 1
	TypeBoolean
)

func (t FieldType) matches(value any) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	default:
		return false
	}
}

type Property struct {
	Name        string
	Type        FieldType
	TypeMessage string
	Rules       []Rule
}

type Required struct {
	Field   string
	Message string
}

// Schema is an ordered set of required fields and property rules.
//
// Every rule of every present property is evaluated and collected. The surfaced issue is
// the first one: missing required fields in declaration order, then properties in
// declaration order with the type check before format and store-backed rules.
type Schema struct {
	Name       string
	Required   []Required
	Properties []Property
}

func (s *Schema) Validate(ctx context.Context, input map[string]any) error {
	var issues []Issue

	for _, req := range s.Required {
		if _, ok := input[req.Field]; !ok {
			issues = append(issues, Issue{
				Field:   req.Field,
				Keyword: "required",
				Kind:    KindBadRequest,
				Message: req.Message,
			})
		}
	}

	for _, prop := range s.Properties {
		value, ok := input[prop.Name]
		if !ok {
			continue
		}
		if !prop.Type.matches(value) {
			issues = append(issues, Issue{
				Field:   prop.Name,
				Keyword: "type",
				Kind:    KindBadRequest,
				Message: prop.TypeMessage,
			})
			continue
		}
		for _, rule := range prop.Rules {
			passed, err := rule.Check(ctx, value)
			if err != nil {
				return fmt.Errorf("schema %s: rule %s on %s: %w", s.Name, rule.Keyword, prop.Name, err)
			}
			if !passed {
				issues = append(issues, Issue{
					Field:   prop.Name,
					Keyword: rule.Keyword,
					Kind:    rule.Kind,
					Message: rule.Message,
				})
			}
		}
	}

	if len(issues) > 0 {
		return &Error{Schema: s.Name, Issues: issues}
	}
	return nil
}
