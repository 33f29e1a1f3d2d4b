package param

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Format selects the display/parse convention for a parameter's value.
type Format int

const (
	FormatDefault      Format = iota
	FormatDecibel             // 20*log10(value), "dB" suffix
	FormatPercentage          // value*100, "%" suffix
	FormatMilliseconds        // value*1000, "ms" suffix
	FormatSeconds             // value, "s" suffix
	FormatHertz               // value, "Hz" suffix
	FormatKilohertz           // value/1000, "kHz" suffix
)

// FormatValue renders value as a host-displayable string for format.
func FormatValue(value float64, format Format) string {
	switch format {
	case FormatDecibel:
		if value <= 0 {
			return "-∞ dB"
		}
		return fmt.Sprintf("%.1f dB", 20.0*math.Log10(value))
	case FormatPercentage:
		return fmt.Sprintf("%.1f%%", value*100.0)
	case FormatMilliseconds:
		return fmt.Sprintf("%.0f ms", value*1000.0)
	case FormatSeconds:
		return fmt.Sprintf("%.2f s", value)
	case FormatHertz:
		return fmt.Sprintf("%.1f Hz", value)
	case FormatKilohertz:
		return fmt.Sprintf("%.2f kHz", value/1000.0)
	default:
		return fmt.Sprintf("%.3f", value)
	}
}

// Parser turns a host-typed string back into a parameter value for a
// single Format.
type Parser struct {
	format Format
	number *regexp.Regexp
}

// NewParser builds a Parser bound to format.
func NewParser(format Format) *Parser {
	return &Parser{
		format: format,
		number: regexp.MustCompile(`[+-]?\d*\.?\d+`),
	}
}

// ParseValue parses text, stripping the format's unit suffix if present
// and converting back to the underlying linear/seconds/Hz value.
func (p *Parser) ParseValue(text string) (float64, error) {
	text = strings.TrimSpace(text)

	if p.format == FormatDecibel && (strings.HasPrefix(text, "-∞") || strings.HasPrefix(text, "-inf")) {
		return 0, nil
	}

	match := p.number.FindString(text)
	if match == "" {
		return strconv.ParseFloat(text, 64)
	}
	n, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, err
	}

	switch p.format {
	case FormatDecibel:
		return math.Pow(10, n/20.0), nil
	case FormatPercentage:
		return n / 100.0, nil
	case FormatMilliseconds:
		return n / 1000.0, nil
	case FormatKilohertz:
		return n * 1000.0, nil
	default:
		return n, nil
	}
}

// ClampValue restricts value to [min, max].
func ClampValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
