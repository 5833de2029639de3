// Package gcode builds small G-code programs for exercising a machine and checks
// free-form input before it is sent.
package gcode

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Default parameters for shapes requested without explicit values.
const (
	DefaultSize = 10.0
	DefaultFeed = 1000.0
)

// ErrUnknownShape is returned by Shape for a name it does not know.
var ErrUnknownShape = errors.New("unknown shape")

// Program is a named sequence of G-code lines, sent one line per command.
type Program struct {
	Name  string   `json:"name"`
	Lines []string `json:"gcode"`
}

type builder func(size, feed float64) ([]string, error)

var shapes = map[string]builder{
	"square": Square,
	"circle": Circle,
}

// ShapeNames returns the names accepted by Shape, sorted.
func ShapeNames() []string {
	names := make([]string, 0, len(shapes))
	for name := range shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shape builds the named program. size is the side length for a square and the
// radius for a circle; zero size or feed selects the defaults.
func Shape(name string, size, feed float64) (Program, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	build, ok := shapes[name]
	if !ok {
		return Program{}, fmt.Errorf("%w %q (want one of %s)", ErrUnknownShape, name, strings.Join(ShapeNames(), ", "))
	}
	if size == 0 {
		size = DefaultSize
	}
	if feed == 0 {
		feed = DefaultFeed
	}
	lines, err := build(size, feed)
	if err != nil {
		return Program{}, err
	}
	return Program{Name: name, Lines: lines}, nil
}

// Square traces a size x size square from the origin in the positive quadrant and
// returns to the origin.
func Square(size, feed float64) ([]string, error) {
	if err := checkParams(size, feed); err != nil {
		return nil, err
	}
	s, f := num(size), num(feed)
	return append(preamble(),
		"G1 X"+s+" Y0 F"+f,
		"G1 X"+s+" Y"+s,
		"G1 X0 Y"+s,
		"G1 X0 Y0",
	), nil
}

// Circle traces one clockwise revolution of the given radius, starting and ending
// at the origin with the centre at (radius, 0).
func Circle(radius, feed float64) ([]string, error) {
	if err := checkParams(radius, feed); err != nil {
		return nil, err
	}
	return append(preamble(),
		"G2 X0 Y0 I"+num(radius)+" J0 F"+num(feed),
	), nil
}

// preamble selects millimetres and absolute positioning, then rapids to the origin.
func preamble() []string {
	return []string{"G21", "G90", "G0 X0 Y0"}
}

func checkParams(size, feed float64) error {
	if !(size > 0) {
		return fmt.Errorf("size must be positive, got %v", size)
	}
	if !(feed > 0) {
		return fmt.Errorf("feed must be positive, got %v", feed)
	}
	return nil
}

// num formats v with up to three decimals and no trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// Input length bounds for free-form commands sent through the query endpoint.
const (
	MinInputLength = 10
	MaxInputLength = 20
)

// InputLengthMessage is the error text for input outside the length bounds.
const InputLengthMessage = "Input must be between 10 and 20 characters long."

// ValidateInputLength reports whether s has between MinInputLength and
// MaxInputLength characters inclusive.
func ValidateInputLength(s string) error {
	if n := utf8.RuneCountInString(s); n < MinInputLength || n > MaxInputLength {
		return errors.New(InputLengthMessage)
	}
	return nil
}
