package decompose

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/armatrix/orchestra-go/llm"
)

// ErrNoJSON is returned when a response contains no complete JSON object.
var ErrNoJSON = errors.New("decompose: no JSON object in response")

// ExtractJSONObject returns the first balanced {...} object in text that is
// valid JSON once trailing commas are stripped. Braces inside JSON strings are
// ignored, and balanced fragments of prose such as "{the request}" are
// skipped. When no candidate decodes, the first balanced span is returned so
// the caller can report the decode error.
func ExtractJSONObject(text string) (string, bool) {
	first := ""
	for offset := 0; offset < len(text); {
		i := strings.IndexByte(text[offset:], '{')
		if i < 0 {
			break
		}
		start := offset + i
		end, ok := balancedEnd(text, start)
		if !ok {
			break
		}
		span := text[start : end+1]
		if json.Valid([]byte(StripTrailingCommas(span))) {
			return span, true
		}
		if first == "" {
			first = span
		}
		offset = start + 1
	}
	return first, first != ""
}

// balancedEnd returns the index of the brace closing the one at start.
func balancedEnd(text string, start int) (int, bool) {
	var (
		depth    int
		inString bool
		escaped  bool
	)
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// StripTrailingCommas removes commas that directly precede a closing brace
// or bracket, outside of strings.
func StripTrailingCommas(s string) string {
	var (
		sb       strings.Builder
		inString bool
		escaped  bool
	)
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			sb.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// ParsePlan extracts, repairs, decodes, normalizes and validates a plan from
// a model response.
func ParsePlan(response string) (*TaskDecomposition, error) {
	raw, ok := ExtractJSONObject(response)
	if !ok {
		return nil, ErrNoJSON
	}
	var d TaskDecomposition
	if err := json.Unmarshal([]byte(StripTrailingCommas(raw)), &d); err != nil {
		return nil, fmt.Errorf("decompose: unmarshal plan: %w", err)
	}
	normalize(&d)
	if err := Validate(&d); err != nil {
		return nil, err
	}
	d.Source = SourceLLM
	return &d, nil
}

// normalize fills defaults and maps unknown enum values onto known ones.
func normalize(d *TaskDecomposition) {
	hasDeps := false
	for i := range d.Tasks {
		t := &d.Tasks[i]
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			t.ID = fmt.Sprintf("t%d", i+1)
		}
		if t.Title == "" {
			t.Title = fmt.Sprintf("Task %d", i+1)
		}
		if t.Description == "" {
			t.Description = t.Title
		}
		if len(t.Dependencies) > 0 {
			hasDeps = true
		}

		switch Complexity(strings.ToLower(string(t.Complexity))) {
		case ComplexityComplex:
			t.Complexity = ComplexityComplex
		default:
			t.Complexity = ComplexitySimple
		}

		switch strings.ToLower(strings.NewReplacer("_", "-", " ", "-").Replace(string(t.ExecutionMode))) {
		case "single-shot", "singleshot", "single":
			t.ExecutionMode = ModeSingleShot
		case "iterative":
			t.ExecutionMode = ModeIterative
		default:
			if t.Complexity == ComplexityComplex {
				t.ExecutionMode = ModeIterative
			} else {
				t.ExecutionMode = ModeSingleShot
			}
		}

		t.ModelTier = llm.ParseTier(string(t.ModelTier))

		p := &t.SuggestedAgent
		if p.Role == "" {
			p.Role = "specialist"
		}
		if p.Name == "" {
			p.Name = titleCase(p.Role)
		}
	}

	switch s := Strategy(strings.ToLower(strings.ReplaceAll(string(d.Strategy), "-", "_"))); s {
	case StrategySingleAgent, StrategySequential, StrategyParallel, StrategyParallelIsolated, StrategyIterativeDeep:
		d.Strategy = s
	default:
		switch {
		case len(d.Tasks) == 1:
			d.Strategy = StrategySingleAgent
		case hasDeps:
			d.Strategy = StrategySequential
		default:
			d.Strategy = StrategyParallel
		}
	}

	if d.MainTitle == "" && len(d.Tasks) > 0 {
		d.MainTitle = d.Tasks[0].Title
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
