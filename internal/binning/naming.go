package binning

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Key delimiters. A segment is "<name>_<value>[_<value>]", segments are joined with "__" and the
// population suffix is appended with a single "_".
const (
	segmentSeparator = "__"
	tokenSeparator   = "_"

	aboveToken = "ge"
	belowToken = "lt"
)

var (
	encoder = strings.NewReplacer(".", "p", "-", "n")
	decoder = strings.NewReplacer("p", ".", "n", "-")

	encodedValue = regexp.MustCompile(`^n?[0-9]+(p[0-9]+)?$`)
)

// Round rounds v to the three decimals kept in bucket keys. Negative zero becomes zero.
func Round(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0
	}
	return r
}

// Encode renders v for a bucket key: v is rounded to three decimals, written in the shortest
// decimal form, the decimal point becomes "p" and the minus sign "n".
//
//	Encode(1.25) == "1p25"
//	Encode(-0.5) == "n0p5"
//	Encode(10)   == "10"
func Encode(v float64) string {
	return encoder.Replace(strconv.FormatFloat(Round(v), 'f', -1, 64))
}

// Decode parses a value written by Encode.
func Decode(s string) (float64, error) {
	if !encodedValue.MatchString(s) {
		return 0, fmt.Errorf("malformed key value %q", s)
	}
	return strconv.ParseFloat(decoder.Replace(s), 64)
}

// SegmentKind tells how a key segment selects sources.
type SegmentKind int

const (
	// SegmentRange selects values in [Lo, Hi) once the pair is put in order.
	SegmentRange SegmentKind = iota
	// SegmentAbove selects values >= Lo.
	SegmentAbove
	// SegmentBelow selects values < Lo.
	SegmentBelow
	// SegmentDiscrete selects values equal to Lo.
	SegmentDiscrete
)

// Segment is the part of a bucket key contributed by one axis cell.
type Segment struct {
	Name string
	Kind SegmentKind
	Lo   float64
	Hi   float64
}

func (s Segment) String() string {
	switch s.Kind {
	case SegmentAbove:
		return s.Name + tokenSeparator + aboveToken + tokenSeparator + Encode(s.Lo)
	case SegmentBelow:
		return s.Name + tokenSeparator + belowToken + tokenSeparator + Encode(s.Lo)
	case SegmentDiscrete:
		return s.Name + tokenSeparator + Encode(s.Lo)
	default:
		return s.Name + tokenSeparator + Encode(s.Lo) + tokenSeparator + Encode(s.Hi)
	}
}

// Key is a parsed bucket key.
type Key struct {
	Segments []Segment
	// Suffix is the population kind without its leading underscore; empty for unfiltered buckets.
	Suffix string
}

// String encodes k following the key grammar
//
//	key     := segment ("__" segment)* ["_" suffix]
//	segment := name "_" value "_" value | name "_" ("ge"|"lt") "_" value | name "_" value
func (k Key) String() string {
	parts := make([]string, len(k.Segments))
	for i, s := range k.Segments {
		parts[i] = s.String()
	}
	key := strings.Join(parts, segmentSeparator)
	switch {
	case k.Suffix == "":
		return key
	case key == "":
		return k.Suffix
	default:
		return key + tokenSeparator + k.Suffix
	}
}

// ParseKey splits a bucket key back into its segments and population suffix.
// Decoded values equal the axis edges rounded to three decimals.
func ParseKey(key string) (Key, error) {
	if key == "" {
		return Key{}, fmt.Errorf("empty bucket key")
	}

	var parsed Key
	raw := strings.Split(key, segmentSeparator)
	for i, part := range raw {
		tokens := strings.Split(part, tokenSeparator)
		if i == len(raw)-1 {
			if last := tokens[len(tokens)-1]; !encodedValue.MatchString(last) {
				parsed.Suffix = last
				tokens = tokens[:len(tokens)-1]
			}
			if len(tokens) == 0 && len(raw) == 1 {
				return parsed, nil
			}
		}
		segment, err := parseSegment(tokens)
		if err != nil {
			return Key{}, fmt.Errorf("bucket key %q: %w", key, err)
		}
		parsed.Segments = append(parsed.Segments, segment)
	}
	return parsed, nil
}

func parseSegment(tokens []string) (Segment, error) {
	values := 0
	for values < 2 && values < len(tokens)-1 && encodedValue.MatchString(tokens[len(tokens)-1-values]) {
		values++
	}
	if values == 0 {
		return Segment{}, fmt.Errorf("segment %q carries no value", strings.Join(tokens, tokenSeparator))
	}

	name := tokens[:len(tokens)-values]
	if slices.Contains(name, "") {
		return Segment{}, fmt.Errorf("segment %q has an empty name token", strings.Join(tokens, tokenSeparator))
	}
	last, err := Decode(tokens[len(tokens)-1])
	if err != nil {
		return Segment{}, err
	}

	if values == 2 {
		lo, err := Decode(tokens[len(tokens)-2])
		if err != nil {
			return Segment{}, err
		}
		return Segment{Name: strings.Join(name, tokenSeparator), Kind: SegmentRange, Lo: lo, Hi: last}, nil
	}

	kind := SegmentDiscrete
	if len(name) > 1 {
		switch name[len(name)-1] {
		case aboveToken:
			kind, name = SegmentAbove, name[:len(name)-1]
		case belowToken:
			kind, name = SegmentBelow, name[:len(name)-1]
		}
	}
	return Segment{Name: strings.Join(name, tokenSeparator), Kind: kind, Lo: last}, nil
}
