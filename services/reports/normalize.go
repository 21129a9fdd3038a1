package reports

import (
	"encoding/json"
)

// UpstreamReportPayload is the partial, LLM-generated report enrichment as it
// arrives off the wire. Field shapes are untrusted: the model can return the
// wrong type, omit fields, or mix valid and invalid entries, so everything is
// held as raw JSON until NormalizeUpstream has vetted it.
type UpstreamReportPayload struct {
	Recommendations json.RawMessage `json:"recommendations"`
	Insights        json.RawMessage `json:"insights"`
	Achievements    json.RawMessage `json:"achievements"`
	RankedExamples  json.RawMessage `json:"ranked_examples"`
}

// NormalizedInsights is the vetted, fully-typed form. Empty slices signal
// "nothing usable upstream"; the aggregator then falls back to locally
// computed values.
type NormalizedInsights struct {
	Recommendations []string
	Insights        []string
	Achievements    []string
	RankedExamples  []int
}

// NormalizeUpstream converts an untrusted upstream payload into typed fields.
// Every fallback rule for malformed upstream data lives here and nowhere
// else. It never fails: a nil payload or garbage in any field yields empty
// slices for that field only.
func NormalizeUpstream(payload *UpstreamReportPayload) NormalizedInsights {
	if payload == nil {
		return NormalizedInsights{}
	}
	return NormalizedInsights{
		Recommendations: stringList(payload.Recommendations),
		Insights:        stringList(payload.Insights),
		Achievements:    stringList(payload.Achievements),
		RankedExamples:  intList(payload.RankedExamples),
	}
}

// stringList decodes a raw field expected to be a string array. A plain
// string becomes a one-element list; a mixed array keeps only its string
// entries; anything else yields nil.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var strs []string
	if err := json.Unmarshal(raw, &strs); err == nil {
		return nonEmpty(strs)
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return nonEmpty([]string{single})
	}

	var mixed []any
	if err := json.Unmarshal(raw, &mixed); err == nil {
		out := make([]string, 0, len(mixed))
		for _, entry := range mixed {
			if s, ok := entry.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	return nil
}

func nonEmpty(strs []string) []string {
	out := strs[:0]
	for _, s := range strs {
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// intList decodes a raw field expected to be an index array. JSON numbers
// arrive as float64; non-integral or negative values are dropped rather than
// rounded, since they cannot be valid indices.
func intList(raw json.RawMessage) []int {
	if len(raw) == 0 {
		return nil
	}

	var mixed []any
	if err := json.Unmarshal(raw, &mixed); err != nil {
		return nil
	}

	out := make([]int, 0, len(mixed))
	for _, entry := range mixed {
		f, ok := entry.(float64)
		if !ok || f != float64(int(f)) || f < 0 {
			continue
		}
		out = append(out, int(f))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
