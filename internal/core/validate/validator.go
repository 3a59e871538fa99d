// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package validate checks a parsed-but-untrusted narrative object against a
// schema expressed as data (FieldRule slices) and produces a typed document.
//
// Validation is lenient: the only hard failure is a missing or non-array
// scene collection. Every other defect is repaired with the rule's default and
// reported as a warning. ValidateStrict runs the same walk but reports every
// defect as an error instead.
package validate

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
)

var (
	// ErrMissingScenes means no scene collection could be located.
	ErrMissingScenes = errors.New("no scene collection found")
	// ErrMalformedScenes means the scene collection is not an array.
	ErrMalformedScenes = errors.New("scene collection is not an array")
)

// Defect is one problem found in a candidate. In lenient mode it becomes a
// warning; in strict mode it is returned as an error.
type Defect struct {
	Path    string
	Problem string
}

// Error formats the defect as "path: problem".
func (d Defect) Error() string {
	return d.Path + ": " + d.Problem
}

// Rules is the full schema description.
type Rules struct {
	Document     []FieldRule
	Scene        []FieldRule
	SceneField   string
	SceneAliases []string
}

// DefaultRules returns the narrative document schema.
func DefaultRules() Rules {
	return Rules{
		Document:     DocumentRules(),
		Scene:        SceneRules(),
		SceneField:   "scenes",
		SceneAliases: []string{"scene_list", "segments"},
	}
}

// Validator applies Rules. It holds no state besides the rules.
type Validator struct {
	rules Rules
}

// NewValidator creates a validator for the given rules.
func NewValidator(rules Rules) *Validator {
	return &Validator{rules: rules}
}

// Validate is the lenient entry point.
func (v *Validator) Validate(candidate map[string]any) (*model.ValidatedPayload, error) {
	doc, defects, err := v.walk(candidate)
	if err != nil {
		return nil, err
	}
	warnings := make([]string, 0, len(defects))
	for _, d := range defects {
		warnings = append(warnings, d.Error())
	}
	return &model.ValidatedPayload{Document: doc, Warnings: warnings}, nil
}

// ValidateStrict fails unless the candidate needed no repair at all. The
// returned error joins one Defect per problem.
func (v *Validator) ValidateStrict(candidate map[string]any) (*model.ValidatedPayload, error) {
	doc, defects, err := v.walk(candidate)
	if err != nil {
		return nil, err
	}
	if len(defects) > 0 {
		errs := make([]error, 0, len(defects))
		for _, d := range defects {
			errs = append(errs, d)
		}
		return nil, errors.Join(errs...)
	}
	return &model.ValidatedPayload{Document: doc, Warnings: []string{}}, nil
}

func (v *Validator) walk(candidate map[string]any) (model.NarrativeDocument, []Defect, error) {
	var defects []Defect
	source, raw, where, found := v.locateScenes(candidate)
	if !found {
		return model.NarrativeDocument{}, nil, ErrMissingScenes
	}
	if where != v.rules.SceneField {
		defects = append(defects, Defect{Path: v.rules.SceneField, Problem: "relocated from " + where})
	}
	items, ok := raw.([]any)
	if !ok {
		return model.NarrativeDocument{}, nil, fmt.Errorf("%w: found %T at %s", ErrMalformedScenes, raw, where)
	}

	fields := applyRules(v.rules.Document, source, 0, "", &defects)
	doc := model.NarrativeDocument{
		Title:      stringField(fields, "title"),
		Narrative:  stringField(fields, "narrative"),
		Mood:       stringField(fields, "mood"),
		Characters: listField(fields, "characters"),
		Confidence: floatField(fields, "confidence"),
		Scenes:     make([]model.NarrativeScene, 0, len(items)),
	}
	if len(items) == 0 {
		defects = append(defects, Defect{Path: v.rules.SceneField, Problem: "collection is empty"})
	}

	for i, item := range items {
		prefix := fmt.Sprintf("%s[%d].", v.rules.SceneField, i)
		obj, ok := item.(map[string]any)
		if !ok {
			defects = append(defects, Defect{Path: prefix[:len(prefix)-1], Problem: fmt.Sprintf("%T is not an object, replaced with a placeholder", item)})
			obj = map[string]any{}
			var discard []Defect
			doc.Scenes = append(doc.Scenes, toScene(applyRules(v.rules.Scene, obj, i, prefix, &discard)))
			continue
		}
		doc.Scenes = append(doc.Scenes, toScene(applyRules(v.rules.Scene, obj, i, prefix, &defects)))
	}
	return doc, defects, nil
}

// locateScenes looks for the collection under the canonical name, then the
// aliases, then one level down inside any nested object. source is the object
// that holds the collection; its other fields are read as the document.
func (v *Validator) locateScenes(candidate map[string]any) (source map[string]any, raw any, where string, found bool) {
	if candidate == nil {
		return nil, nil, "", false
	}
	names := append([]string{v.rules.SceneField}, v.rules.SceneAliases...)
	for _, name := range names {
		if raw, ok := candidate[name]; ok && raw != nil {
			return candidate, raw, name, true
		}
	}
	keys := make([]string, 0, len(candidate))
	for k := range candidate {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		nested, ok := candidate[k].(map[string]any)
		if !ok {
			continue
		}
		for _, name := range names {
			if raw, ok := nested[name]; ok && raw != nil {
				return nested, raw, k + "." + name, true
			}
		}
	}
	return nil, nil, "", false
}

// applyRules returns a map holding a value of the rule's kind for every rule,
// recording a defect for each default or conversion.
func applyRules(rules []FieldRule, obj map[string]any, index int, prefix string, defects *[]Defect) map[string]any {
	out := make(map[string]any, len(rules))
	for _, rule := range rules {
		path := prefix + rule.Name
		value, present := obj[rule.Name]
		if !present || value == nil {
			out[rule.Name] = rule.Default(index)
			*defects = append(*defects, Defect{Path: path, Problem: fmt.Sprintf("missing, defaulted to %v", describe(out[rule.Name]))})
			continue
		}
		converted, coerced, ok := coerce(rule.Kind, value)
		if !ok {
			out[rule.Name] = rule.Default(index)
			*defects = append(*defects, Defect{Path: path, Problem: fmt.Sprintf("expected %s, defaulted to %v", rule.Kind, describe(out[rule.Name]))})
			continue
		}
		if coerced {
			*defects = append(*defects, Defect{Path: path, Problem: "converted to " + rule.Kind.String()})
		}
		out[rule.Name] = converted
	}
	return out
}

func toScene(fields map[string]any) model.NarrativeScene {
	return model.NarrativeScene{
		SequenceNumber: intField(fields, "sequence_number"),
		Start:          stringField(fields, "start"),
		End:            stringField(fields, "end"),
		Setting:        stringField(fields, "setting"),
		Description:    stringField(fields, "description"),
		Characters:     listField(fields, "characters"),
		Dialogue:       listField(fields, "dialogue"),
	}
}

// The field readers tolerate rule sets that omit a field.

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

func intField(fields map[string]any, name string) int {
	n, _ := fields[name].(int)
	return n
}

func floatField(fields map[string]any, name string) float64 {
	switch f := fields[name].(type) {
	case float64:
		return f
	case int:
		return float64(f)
	}
	return 0
}

func listField(fields map[string]any, name string) []string {
	list, _ := fields[name].([]string)
	if list == nil {
		return []string{}
	}
	return slices.Clone(list)
}

func describe(v any) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case []string:
		if len(t) == 0 {
			return "[]"
		}
	}
	return fmt.Sprint(v)
}
