package domain

import "fmt"

// Level is a CEFR proficiency tier controlling rewrite complexity.
type Level string

// Supported CEFR levels, least to most sophisticated.
const (
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
)

// DefaultLevel is used when a simplify request carries no level.
const DefaultLevel = LevelB1

// Levels lists the supported levels in ascending order.
var Levels = []Level{LevelA2, LevelB1, LevelB2, LevelC1}

// ParseLevel validates a level string. The empty string maps to
// DefaultLevel; anything else outside the supported set is an error.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return DefaultLevel, nil
	}
	switch Level(s) {
	case LevelA2, LevelB1, LevelB2, LevelC1:
		return Level(s), nil
	}
	return "", fmt.Errorf("unsupported level %q (expected one of A2, B1, B2, C1)", s)
}

// Valid reports whether the level is one of the supported tiers.
func (l Level) Valid() bool {
	switch l {
	case LevelA2, LevelB1, LevelB2, LevelC1:
		return true
	}
	return false
}
