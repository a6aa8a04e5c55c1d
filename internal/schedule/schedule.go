// FilePath: internal/schedule/schedule.go

// Package schedule parses the compact wake-schedule expression attached to
// a device ("<minute> <hour-field> * * *") and reconstructs which schedule
// slot an observed wake belongs to. Devices do not report their slot; the
// hub infers it from wall-clock proximity. Malformed expressions never
// surface as errors; every entry point degrades to a documented safe
// default so schedule typos cannot drop field data.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// overage tolerance around an expected slot, in hours.
const slotToleranceHours = 1

// ExpectedWakesPerDay returns how many wakes per day the expression
// prescribes. Supported hour-field forms:
//
//	"8,16"  explicit hour list  -> 2
//	"*/6"   step form           -> 24/6 = 4
//	"8"     single hour         -> 1
//
// Any parse failure returns 1 as the safe default.
func ExpectedWakesPerDay(expr string) int {
	hours, err := ExpandHours(expr)
	if err != nil {
		return 1
	}
	return len(hours)
}

// InferSlotIndex attributes an observed wake hour to the nearest expected
// slot. The returned index is the 1-based position of the winning
// candidate in parsed order; ties go to the first-encountered candidate.
// Overage is true when the nearest slot is more than one hour away. On any
// parse failure it returns (1, true): flag for review rather than
// mis-bucket silently.
func InferSlotIndex(capturedHour int, expr string) (int, bool) {
	hours, err := ExpandHours(expr)
	if err != nil || len(hours) == 0 {
		return 1, true
	}

	bestIndex := 0
	bestDiff := -1
	for i, h := range hours {
		diff := capturedHour - h
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			bestDiff = diff
			bestIndex = i
		}
	}
	return bestIndex + 1, bestDiff > slotToleranceHours
}

// ExpandHours parses the hour field of the expression into the explicit
// list of expected wake hours, in parsed order. Unlike the public entry
// points it returns parse errors so callers can decide on the fallback.
func ExpandHours(expr string) ([]int, error) {
	fields := strings.Fields(strings.TrimSpace(expr))
	if len(fields) < 2 {
		return nil, fmt.Errorf("schedule expression %q has fewer than two fields", expr)
	}
	hourField := fields[1]

	switch {
	case strings.HasPrefix(hourField, "*/"):
		step, err := strconv.Atoi(hourField[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid step in hour field %q: %w", hourField, err)
		}
		if step <= 0 || 24/step <= 0 {
			return nil, fmt.Errorf("step %d yields no slots", step)
		}
		count := 24 / step
		hours := make([]int, 0, count)
		for i := 0; i < count; i++ {
			hours = append(hours, i*step)
		}
		return hours, nil

	case strings.Contains(hourField, ","):
		parts := strings.Split(hourField, ",")
		hours := make([]int, 0, len(parts))
		for _, part := range parts {
			h, err := parseHour(part)
			if err != nil {
				return nil, err
			}
			hours = append(hours, h)
		}
		return hours, nil

	default:
		h, err := parseHour(hourField)
		if err != nil {
			return nil, err
		}
		return []int{h}, nil
	}
}

func parseHour(token string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return 0, fmt.Errorf("invalid hour %q: %w", token, err)
	}
	if h < 0 || h > 23 {
		return 0, fmt.Errorf("hour %d out of range", h)
	}
	return h, nil
}
