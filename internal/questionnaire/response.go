package questionnaire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

const (
	// Neutral is substituted for every absent or unusable answer.
	Neutral = 50.0

	// RankingQuestion holds the ordered sensory list of the drag-rank questionnaire.
	RankingQuestion = "Q34"
)

// ErrNoResponse is returned by stores when a respondent has no questionnaire on record.
var ErrNoResponse = errors.New("questionnaire response not found")

// RawResponse is the flat answer record produced by the questionnaire UI.
type RawResponse map[string]any

// Format tells which questionnaire UI produced a response.
type Format int

const (
	// CurrentFormat answers the sensory section with one slider per category.
	CurrentFormat Format = iota
	// LegacyFormat answers the sensory section with a single ordered list.
	LegacyFormat
)

func (f Format) String() string {
	switch f {
	case LegacyFormat:
		return "legacy"
	default:
		return "current"
	}
}

// MarshalText keeps the format readable in JSON payloads and logs.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "legacy":
		*f = LegacyFormat
	case "current", "":
		*f = CurrentFormat
	default:
		return fmt.Errorf("unknown questionnaire format %q", text)
	}
	return nil
}

// Response is a RawResponse whose questionnaire format has been resolved.
// Exactly one of Ranking (LegacyFormat) or Sliders (CurrentFormat) is meaningful.
type Response struct {
	Format  Format
	Ranking []Category
	Sliders map[Category]float64

	raw RawResponse
}

type sliders struct {
	Visual   *float64 `mapstructure:"Q34_visual"`
	Culinary *float64 `mapstructure:"Q34_culinary"`
	Nature   *float64 `mapstructure:"Q34_nature"`
	Cultural *float64 `mapstructure:"Q34_cultural"`
	Wellness *float64 `mapstructure:"Q34_wellness"`
}

// Ingest resolves the questionnaire format once. It never fails: unusable
// fields degrade to neutral values.
func Ingest(raw RawResponse) *Response {
	if raw == nil {
		raw = RawResponse{}
	}

	resp := &Response{raw: raw}

	if ranking := parseRanking(raw[RankingQuestion]); len(ranking) > 0 {
		resp.Format = LegacyFormat
		resp.Ranking = ranking
		return resp
	}

	resp.Format = CurrentFormat
	resp.Sliders = decodeSliders(raw)
	return resp
}

// Number returns the answer to a Likert question clamped to [0,100].
// The second value is false when the answer is absent or not numeric.
func (r *Response) Number(question string) (float64, bool) {
	if r == nil {
		return Neutral, false
	}
	v, ok := r.raw[question]
	if !ok || v == nil {
		return Neutral, false
	}
	return toScore(v)
}

// Raw returns the underlying answers.
func (r *Response) Raw() RawResponse {
	if r == nil {
		return nil
	}
	return r.raw
}

func toScore(v any) (float64, bool) {
	switch val := v.(type) {
	case bool:
		return Neutral, false
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return Neutral, false
		}
		v = val
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Neutral, false
	}
	return Clamp(f), true
}

// Clamp bounds a score to [0,100].
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return Neutral
	}
	return math.Max(0, math.Min(100, v))
}

func parseRanking(v any) []Category {
	var labels []string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		trimmed := strings.TrimSpace(val)
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal([]byte(trimmed), &labels); err != nil {
				return nil
			}
		} else {
			labels = strings.Split(trimmed, ",")
		}
	case []string:
		labels = val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				labels = append(labels, s)
			}
		}
	default:
		return nil
	}

	seen := make(map[Category]bool, len(labels))
	ranking := make([]Category, 0, len(labels))
	for _, label := range labels {
		c, ok := ParseCategory(label)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		ranking = append(ranking, c)
	}
	return ranking
}

func decodeSliders(raw RawResponse) map[Category]float64 {
	var s sliders
	cfg := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &s,
	}
	input := make(map[string]any)
	for key, value := range raw {
		if !strings.HasPrefix(strings.ToUpper(key), RankingQuestion+"_") {
			continue
		}
		if str, ok := value.(string); ok && strings.TrimSpace(str) == "" {
			continue
		}
		input[key] = value
	}

	// Fields that fail to decode stay nil and fall back to neutral below.
	if decoder, err := mapstructure.NewDecoder(cfg); err == nil {
		_ = decoder.Decode(input)
	}

	values := map[Category]*float64{
		Visual:   s.Visual,
		Culinary: s.Culinary,
		Nature:   s.Nature,
		Cultural: s.Cultural,
		Wellness: s.Wellness,
	}

	out := make(map[Category]float64, len(values))
	for c, v := range values {
		if v == nil || math.IsInf(*v, 0) {
			out[c] = Neutral
			continue
		}
		out[c] = Clamp(*v)
	}
	return out
}
