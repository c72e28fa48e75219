package questionnaire

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestIngestDetectsFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     RawResponse
		format  Format
		ranking []Category
	}{
		{
			name:    "array of labels",
			raw:     RawResponse{"Q34": []any{"Nature", "culinary", "visual"}},
			format:  LegacyFormat,
			ranking: []Category{Nature, Culinary, Visual},
		},
		{
			name:    "string slice",
			raw:     RawResponse{"Q34": []string{"wellness", "cultural"}},
			format:  LegacyFormat,
			ranking: []Category{Wellness, Cultural},
		},
		{
			name:    "json encoded string",
			raw:     RawResponse{"Q34": `["cultural","nature"]`},
			format:  LegacyFormat,
			ranking: []Category{Cultural, Nature},
		},
		{
			name:    "comma separated string",
			raw:     RawResponse{"Q34": " visual , wellness"},
			format:  LegacyFormat,
			ranking: []Category{Visual, Wellness},
		},
		{
			name:    "drops unknown and duplicate labels",
			raw:     RawResponse{"Q34": []any{"shopping", "nature", "Nature", 7, "visual"}},
			format:  LegacyFormat,
			ranking: []Category{Nature, Visual},
		},
		{
			name:   "no recognised label falls back to sliders",
			raw:    RawResponse{"Q34": []any{"shopping"}, "Q34_visual": 90},
			format: CurrentFormat,
		},
		{
			name:   "absent ranking",
			raw:    RawResponse{"Q34_nature": 80},
			format: CurrentFormat,
		},
		{
			name:   "nil response",
			raw:    nil,
			format: CurrentFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := Ingest(tt.raw)
			if resp.Format != tt.format {
				t.Fatalf("expected format %s, got %s", tt.format, resp.Format)
			}
			if tt.format == LegacyFormat && !reflect.DeepEqual(resp.Ranking, tt.ranking) {
				t.Fatalf("expected ranking %v, got %v", tt.ranking, resp.Ranking)
			}
			if tt.format == CurrentFormat && len(resp.Sliders) != len(Categories()) {
				t.Fatalf("expected all sliders to be populated, got %v", resp.Sliders)
			}
		})
	}
}

func TestIngestSlidersDefaultToNeutral(t *testing.T) {
	resp := Ingest(RawResponse{
		"Q34_visual":   "85",
		"Q34_culinary": 120,
		"Q34_nature":   "not a number",
		"Q34_cultural": "",
	})

	expected := map[Category]float64{
		Visual:   85,
		Culinary: 100,
		Nature:   Neutral,
		Cultural: Neutral,
		Wellness: Neutral,
	}

	if !reflect.DeepEqual(resp.Sliders, expected) {
		t.Fatalf("unexpected sliders: %v", resp.Sliders)
	}
}

func TestResponseNumber(t *testing.T) {
	t.Parallel()

	resp := Ingest(RawResponse{
		"int":      70,
		"float":    42.5,
		"string":   " 61 ",
		"json":     json.Number("33"),
		"negative": -20,
		"huge":     250,
		"text":     "often",
		"empty":    "",
		"bool":     true,
		"nil":      nil,
	})

	tests := []struct {
		question string
		value    float64
		ok       bool
	}{
		{"int", 70, true},
		{"float", 42.5, true},
		{"string", 61, true},
		{"json", 33, true},
		{"negative", 0, true},
		{"huge", 100, true},
		{"text", Neutral, false},
		{"empty", Neutral, false},
		{"bool", Neutral, false},
		{"nil", Neutral, false},
		{"missing", Neutral, false},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			t.Parallel()
			got, ok := resp.Number(tt.question)
			if got != tt.value || ok != tt.ok {
				t.Fatalf("expected (%v, %v), got (%v, %v)", tt.value, tt.ok, got, ok)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := ParseCategory("  WELLNESS "); !ok || c != Wellness {
		t.Fatalf("expected wellness, got %q (%v)", c, ok)
	}
	if _, ok := ParseCategory("nightlife"); ok {
		t.Fatal("expected unknown label to be rejected")
	}
}

func TestFormatText(t *testing.T) {
	payload, err := json.Marshal(map[string]Format{"format": LegacyFormat})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"format":"legacy"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}

	var decoded map[string]Format
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["format"] != LegacyFormat {
		t.Fatalf("expected legacy, got %v", decoded["format"])
	}

	var f Format
	if err := f.UnmarshalText([]byte("holographic")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
