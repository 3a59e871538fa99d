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

package repair_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-narrative/internal/core/model"
	"github.com/jaycherian/gcp-go-media-narrative/internal/core/repair"
	test "github.com/jaycherian/gcp-go-media-narrative/internal/testutil"
)

func newLadder() *repair.Ladder {
	return repair.NewLadder(repair.DefaultConfig())
}

func TestStrictParse(t *testing.T) {
	out := newLadder().Parse(test.ValidNarrativeJSON)

	assert.True(t, out.Success)
	assert.Equal(t, model.StrategyStrict, out.StrategyUsed)
	assert.False(t, out.Truncated)
	assert.Equal(t, "Serenity", out.Data["title"])
	assert.Len(t, out.Data["scenes"], 2)
}

func TestStrictParseIgnoresChatter(t *testing.T) {
	out := newLadder().Parse("Sure, here you go:\n" + test.ValidNarrativeJSON + "\nLet me know!")
	assert.True(t, out.Success)
	assert.Equal(t, model.StrategyStrict, out.StrategyUsed)
}

func TestFencedTrailingComma(t *testing.T) {
	out := newLadder().Parse("```json\n{\"a\":1,}\n```")

	require.True(t, out.Success)
	assert.Contains(t, []model.ParseStrategy{model.StrategyMarkdownStrip, model.StrategyIntelligentRepair}, out.StrategyUsed)
	assert.Equal(t, map[string]any{"a": float64(1)}, out.Data)
	assert.False(t, out.Truncated)
}

func TestFencedNarrative(t *testing.T) {
	out := newLadder().Parse(test.FencedNarrativeJSON)

	require.True(t, out.Success)
	assert.Equal(t, model.StrategyIntelligentRepair, out.StrategyUsed)
	assert.Equal(t, "tense", out.Data["mood"])
	assert.Contains(t, strings.Join(out.RepairNotes, "\n"), "removed 2 trailing commas")
}

// A fence inside a string value defeats the first tier but not the second.
func TestMarkdownStrip(t *testing.T) {
	out := newLadder().Parse("```json\n{\"a\": \"use ``` here\"}\n```")
	require.True(t, out.Success)
	assert.Equal(t, model.StrategyMarkdownStrip, out.StrategyUsed)
	assert.Equal(t, "use ``` here", out.Data["a"])
}

// A document cut off inside an array is closed into a valid object.
func TestTruncatedMidArray(t *testing.T) {
	out := newLadder().Parse(`{"scenes":[{"x":1},{"x":`)

	require.True(t, out.Success)
	assert.Equal(t, model.StrategyIntelligentRepair, out.StrategyUsed)
	assert.True(t, out.Truncated)
	assert.Equal(t, map[string]any{
		"scenes": []any{
			map[string]any{"x": float64(1)},
			map[string]any{"x": nil},
		},
	}, out.Data)
}

func TestTruncatedNarrative(t *testing.T) {
	out := newLadder().Parse(test.TruncatedNarrativeJSON)

	require.True(t, out.Success)
	assert.Equal(t, model.StrategyIntelligentRepair, out.StrategyUsed)
	assert.True(t, out.Truncated)
	scenes := out.Data["scenes"].([]any)
	require.Len(t, scenes, 2)
	assert.Equal(t, "The crew arg", scenes[1].(map[string]any)["description"])
	assert.Contains(t, strings.Join(out.RepairNotes, "\n"), "closed an unterminated string")
}

func TestRepairScanCases(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{"raw newline in string", "{\"narrative\": \"line one\nline two\"", map[string]any{"narrative": "line one\nline two"}},
		{"dangling key", `{"a": 1, "b`, map[string]any{"a": float64(1)}},
		{"dangling comma", `{"a": [1, 2,`, map[string]any{"a": []any{float64(1), float64(2)}}},
		{"complete literal", `{"a": true`, map[string]any{"a": true}},
		{"partial literal", `{"a": 1, "b": tr`, map[string]any{"a": float64(1)}},
		{"partial number", `{"a": 1, "b": 1.`, map[string]any{"a": float64(1)}},
		{"partial escape", `{"a": "x\u00`, map[string]any{"a": "x"}},
		{"lone backslash", `{"a": "x\`, map[string]any{"a": "x"}},
		{"mismatched closer", `{"a": [1, 2}`, map[string]any{"a": []any{float64(1), float64(2)}}},
		{"rollback in nested object", `{"a": [1, 2], "b": {"c": tr`, map[string]any{"a": []any{float64(1), float64(2)}, "b": map[string]any{}}},
		{"rollback in nested array", `{"a": [[1], [2, tr`, map[string]any{"a": []any{[]any{float64(1)}, []any{float64(2)}}}},
	}
	ladder := newLadder()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := ladder.Parse(c.raw)
			require.True(t, out.Success, out.RepairNotes)
			assert.Equal(t, model.StrategyIntelligentRepair, out.StrategyUsed)
			assert.Equal(t, c.want, out.Data)
		})
	}
}

func TestPartialExtraction(t *testing.T) {
	raw := `title: "x" "title": "Serenity", "narrative": "The crew of Serenity shelter two \"fugitives\" and run.` +
		` They are hunted across the system." and then the model rambles [[[`
	out := newLadder().Parse(raw)

	require.True(t, out.Success)
	assert.Equal(t, model.StrategyPartialExtraction, out.StrategyUsed)
	assert.Equal(t, "Serenity", out.Data["title"])
	assert.Equal(t, "neutral", out.Data["mood"])
	assert.Contains(t, out.Data["narrative"], `two "fugitives" and run`)
	assert.Equal(t, 0.4, out.Data["confidence"])
	assert.Len(t, out.Data["scenes"], 1)
}

func TestFallbackKeepsRawText(t *testing.T) {
	out := newLadder().Parse(test.ProseAnswer)

	assert.False(t, out.Success)
	assert.Equal(t, model.StrategyFallback, out.StrategyUsed)
	assert.Equal(t, "not json at all", out.Data["narrative"])
	assert.Less(t, out.Data["confidence"].(float64), 0.5)
	assert.Len(t, out.Data["scenes"], 1)
	// Every tier leaves a note.
	assert.Len(t, out.RepairNotes, 5)
}

func TestFallbackBoundsLength(t *testing.T) {
	config := repair.DefaultConfig()
	config.FallbackLength = 10
	out := repair.NewLadder(config).Fallback(strings.Repeat("ü", 50))
	assert.Equal(t, strings.Repeat("ü", 10)+"...", out.Data["narrative"])

	out = newLadder().Fallback("   ")
	assert.Equal(t, "The model returned no usable content.", out.Data["narrative"])
}

// Re-serializing a recovered object parses cleanly at the first tier.
func TestRepairIsIdempotent(t *testing.T) {
	ladder := newLadder()
	for _, raw := range []string{test.FencedNarrativeJSON, test.TruncatedNarrativeJSON, `{"scenes":[{"x":1},{"x":`, test.ProseAnswer} {
		first := ladder.Parse(raw)
		data, err := json.Marshal(first.Data)
		require.NoError(t, err)

		second := ladder.Parse(string(data))
		assert.True(t, second.Success)
		assert.Equal(t, model.StrategyStrict, second.StrategyUsed)
		assert.Equal(t, first.Data, second.Data)
	}
}

// Every prefix of a document yields some payload.
func TestParseNeverFails(t *testing.T) {
	ladder := newLadder()
	inputs := []string{"", "{", "}", "[", "\"", "```", "{\"", "{]", "\x00\xff\xfe", "null", "[1,2]", `{"a":{"b":[{"c":"`}
	for i := range len(test.ValidNarrativeJSON) {
		inputs = append(inputs, test.ValidNarrativeJSON[:i])
	}
	for _, raw := range inputs {
		out := ladder.Parse(raw)
		assert.NotNil(t, out.Data, "input %q", raw)
		assert.NotEmpty(t, out.RepairNotes)
		if !out.Success {
			assert.Equal(t, model.StrategyFallback, out.StrategyUsed)
		}
	}
}

// Deep nesting costs linear time. Past the decoder's depth limit the ladder
// falls through to the fallback tier.
func TestParseDeepNesting(t *testing.T) {
	ladder := newLadder()

	out := ladder.Parse(`{"a":` + strings.Repeat("[", 1000))
	assert.Equal(t, model.StrategyIntelligentRepair, out.StrategyUsed)
	assert.True(t, out.Truncated)

	const size = 4 << 20
	for name, raw := range map[string]string{
		"arrays":  `{"a":` + strings.Repeat("[", size),
		"objects": strings.Repeat(`{"a":`, size/5),
		"mixed":   `{"a":` + strings.Repeat(`[{"b":`, size/6),
	} {
		t.Run(name, func(t *testing.T) {
			started := time.Now()
			out := ladder.Parse(raw)
			elapsed := time.Since(started)

			assert.Less(t, elapsed, 2*time.Second)
			assert.Equal(t, model.StrategyFallback, out.StrategyUsed)
			assert.NotNil(t, out.Data)
		})
	}
}

func TestMaxScanBytes(t *testing.T) {
	config := repair.DefaultConfig()
	config.MaxScanBytes = 20
	raw := strings.Repeat(" ", 30) + `"narrative": "` + strings.Repeat("a", 60) + `"`
	out := repair.NewLadder(config).Parse(raw)
	assert.Equal(t, model.StrategyFallback, out.StrategyUsed)
}
