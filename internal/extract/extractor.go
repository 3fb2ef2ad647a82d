// internal/extract/extractor.go
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"street-food-scanner/internal/models"
)

var ErrMalformed = errors.New("malformed model reply")

const notFoodMarker = "NOT_FOOD"

type Kind int

const (
	KindSuccess Kind = iota + 1
	KindNotFood
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindNotFood:
		return "not_food"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Outcome is exactly one of Success (Record set), NotFood or Malformed (Reason set).
type Outcome struct {
	Kind   Kind
	Record *models.FoodRecord
	Reason string
}

// Err returns a wrapped ErrMalformed for Malformed outcomes and nil otherwise.
func (o Outcome) Err() error {
	if o.Kind != KindMalformed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMalformed, o.Reason)
}

func success(record *models.FoodRecord) Outcome {
	return Outcome{Kind: KindSuccess, Record: record}
}

func notFood() Outcome {
	return Outcome{Kind: KindNotFood}
}

func malformed(reason string) Outcome {
	return Outcome{Kind: KindMalformed, Reason: reason}
}

// spanFinder returns a candidate JSON span, or false when the strategy does not apply.
type spanFinder func(text string) (string, bool)

type strategy struct {
	name string
	find spanFinder
}

// Ordered from strictest to loosest.
var strategies = []strategy{
	{name: "fenced", find: fencedSpan},
	{name: "bracket", find: bracketSpan},
	{name: "whole", find: wholeText},
}

var fencePattern = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*\\})\\s*```")

func fencedSpan(text string) (string, bool) {
	m := fencePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func bracketSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(text, "}")
	if end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func wholeText(text string) (string, bool) {
	return text, true
}

type Extractor struct {
	validator *Validator
}

type Option func(*Extractor)

// WithStrictValidation rejects records that violate the food JSON schema as Malformed.
func WithStrictValidation(v *Validator) Option {
	return func(e *Extractor) {
		e.validator = v
	}
}

func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var lenient = New()

// Extract runs the default lenient extractor.
func Extract(text string) Outcome {
	return lenient.Extract(text)
}

func (e *Extractor) Extract(text string) Outcome {
	obj, err := parseFirstObject(text)
	if err != nil {
		return malformed(err.Error())
	}

	if marker, ok := obj["error"].(string); ok && marker == notFoodMarker {
		return notFood()
	}

	if e.validator != nil {
		if err := e.validator.Validate(obj); err != nil {
			return malformed(err.Error())
		}
	}

	return success(toFoodRecord(obj))
}

// parseFirstObject tries each strategy in order and returns the first span that
// decodes to a JSON object. The error of the highest-priority attempt is reported.
func parseFirstObject(text string) (map[string]interface{}, error) {
	var firstErr error
	for _, s := range strategies {
		span, ok := s.find(text)
		if !ok {
			continue
		}
		obj, err := parseObject(span)
		if err == nil {
			return obj, nil
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("parse error (%s): %w", s.name, err)
		}
	}
	if firstErr == nil {
		firstErr = errors.New("parse error: no JSON object in model reply")
	}
	return nil, firstErr
}

// parseObject keeps numbers as json.Number so a single out-of-range value is
// dropped by the field mapping instead of failing the whole reply.
func parseObject(span string) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(span))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON object")
	}
	return obj, nil
}
