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

package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the expected shape of a field value.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFraction // A number clamped to [0,1].
	KindStringList
)

// String returns the kind name used in defect messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFraction:
		return "fraction"
	case KindStringList:
		return "string list"
	}
	return "unknown"
}

// FieldRule describes one field: its kind and how to produce its default.
// Every rule can be defaulted; the scene collection, the only mandatory part
// of a document, is located by the validator itself. Default receives the
// element index for scene fields and 0 for document fields.
type FieldRule struct {
	Name    string
	Kind    Kind
	Default func(index int) any
}

func constant(v any) func(int) any {
	return func(int) any { return v }
}

// DocumentRules are the top-level narrative fields. The scene collection is
// located separately because it is the one field that cannot be defaulted.
func DocumentRules() []FieldRule {
	return []FieldRule{
		{Name: "title", Kind: KindString, Default: constant("Untitled")},
		{Name: "narrative", Kind: KindString, Default: constant("No narrative available.")},
		{Name: "mood", Kind: KindString, Default: constant("neutral")},
		{Name: "characters", Kind: KindStringList, Default: func(int) any { return []string{} }},
		{Name: "confidence", Kind: KindFraction, Default: constant(0.5)},
	}
}

// SceneRules apply to every element of the scene collection.
func SceneRules() []FieldRule {
	return []FieldRule{
		{Name: "sequence_number", Kind: KindInt, Default: func(i int) any { return i + 1 }},
		{Name: "start", Kind: KindString, Default: constant("00:00:00")},
		{Name: "end", Kind: KindString, Default: constant("00:00:00")},
		{Name: "setting", Kind: KindString, Default: constant("Unspecified setting")},
		{Name: "description", Kind: KindString, Default: constant("Scene description unavailable")},
		{Name: "characters", Kind: KindStringList, Default: func(int) any { return []string{} }},
		{Name: "dialogue", Kind: KindStringList, Default: func(int) any { return []string{} }},
	}
}

// coerce converts a decoded JSON value to the rule's kind. ok is false when the
// value cannot be used; coerced is true when it was usable only after a
// conversion.
func coerce(kind Kind, v any) (out any, coerced bool, ok bool) {
	switch kind {
	case KindString:
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			return s, false, s != ""
		case float64, json.Number, int, bool:
			return fmt.Sprint(t), true, true
		}
	case KindInt:
		if f, isNum, ok := number(v); ok && !math.IsInf(f, 0) && f >= math.MinInt32 && f <= math.MaxInt32 {
			return int(math.Round(f)), !isNum || f != math.Round(f), true
		}
	case KindFraction:
		if f, isNum, ok := number(v); ok && !math.IsNaN(f) {
			c := math.Max(0, math.Min(1, f))
			return c, !isNum || c != f, true
		}
	case KindStringList:
		switch t := v.(type) {
		case []any:
			list := make([]string, 0, len(t))
			for _, e := range t {
				s, changed := listItem(e)
				coerced = coerced || changed
				if s != "" {
					list = append(list, s)
				}
			}
			return list, coerced, true
		case []string:
			return t, false, true
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return []string{s}, true, true
			}
		}
	}
	return nil, false, false
}

// number reads a JSON number. isNum is false when it had to be parsed from a
// string.
func number(v any) (f float64, isNum bool, ok bool) {
	switch t := v.(type) {
	case float64:
		return t, true, true
	case int:
		return float64(t), true, true
	case json.Number:
		f, err := t.Float64()
		return f, true, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, false, err == nil
	}
	return 0, false, false
}

// listItem flattens one list element. Objects commonly returned in place of
// strings (a character with a name, a dialogue line with a speaker) are
// rendered to a single string.
func listItem(e any) (string, bool) {
	switch t := e.(type) {
	case string:
		return strings.TrimSpace(t), false
	case map[string]any:
		name, _ := t["name"].(string)
		speaker, _ := t["speaker"].(string)
		line, _ := t["line"].(string)
		switch {
		case speaker != "" && line != "":
			return speaker + ": " + line, true
		case line != "":
			return line, true
		case name != "":
			return name, true
		}
		data, _ := json.Marshal(t)
		return string(data), true
	case nil:
		return "", true
	}
	return fmt.Sprint(e), true
}
