package gcode

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquare(t *testing.T) {
	got, err := Square(25, 800)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"G21",
		"G90",
		"G0 X0 Y0",
		"G1 X25 Y0 F800",
		"G1 X25 Y25",
		"G1 X0 Y25",
		"G1 X0 Y0",
	}, got)
}

func TestCircle(t *testing.T) {
	got, err := Circle(12.5, 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"G21", "G90", "G0 X0 Y0", "G2 X0 Y0 I12.5 J0 F1000"}, got)
}

func TestShapes_RejectBadParams(t *testing.T) {
	tests := []struct {
		name       string
		size, feed float64
	}{
		{"zero size", 0, 100},
		{"negative size", -1, 100},
		{"zero feed", 10, 0},
		{"NaN size", math.NaN(), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Square(tt.size, tt.feed)
			assert.Error(t, err)
			_, err = Circle(tt.size, tt.feed)
			assert.Error(t, err)
		})
	}
}

func TestShape(t *testing.T) {
	p, err := Shape(" Square ", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "square", p.Name)
	assert.Contains(t, p.Lines, "G1 X10 Y0 F1000")

	p, err = Shape("circle", 5, 250)
	require.NoError(t, err)
	assert.Equal(t, "G2 X0 Y0 I5 J0 F250", p.Lines[len(p.Lines)-1])

	_, err = Shape("hexagon", 5, 250)
	require.ErrorIs(t, err, ErrUnknownShape)
	assert.Contains(t, err.Error(), "circle, square")

	_, err = Shape("square", -3, 0)
	assert.Error(t, err)
}

func TestNumRoundsToMicrons(t *testing.T) {
	assert.Equal(t, "0.333", num(1.0/3))
	assert.Equal(t, "10", num(10.0004))
	assert.Equal(t, "2.5", num(2.5))
}

func TestValidateInputLength(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"", false},
		{"G0 X1", false},
		{"G01 X10 Y", false},
		{"G01 X10 Y1", true},
		{"G01 X10 Y10 F1000", true},
		{strings.Repeat("x", 20), true},
		{strings.Repeat("x", 21), false},
		{strings.Repeat("é", 10), true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateInputLength(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, InputLengthMessage)
			}
		})
	}
}
