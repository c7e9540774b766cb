package output

import (
	"fmt"
	"time"

	"github.com/selimozcann/RedirectCounter/internal/model"
)

// Shape selects the on-disk representation of a RunOutput.
type Shape string

const (
	ShapeFlat        Shape = "flat"
	ShapeTimestamped Shape = "timestamped"
)

// ParseShape validates a shape name.
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case ShapeFlat, ShapeTimestamped:
		return Shape(s), nil
	}
	return "", fmt.Errorf("unknown output shape %q (want %q or %q)", s, ShapeFlat, ShapeTimestamped)
}

// Timestamped converts out into the list-of-single-entry representation
// stamped with now in UTC.
func Timestamped(out model.RunOutput, now time.Time) model.TimestampedOutput {
	data := make([]map[string]*model.PathCounts, 0, len(out))
	for _, key := range out.Keys() {
		data = append(data, map[string]*model.PathCounts{key: out[key]})
	}
	return model.TimestampedOutput{
		Timestamp: now.UTC().Format(time.RFC3339),
		Data:      data,
	}
}

// Build returns the value to serialize for the requested shape.
func Build(shape Shape, out model.RunOutput, now time.Time) any {
	if shape == ShapeTimestamped {
		return Timestamped(out, now)
	}
	return out
}
