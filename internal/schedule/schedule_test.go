// FilePath: internal/schedule/schedule_test.go
package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpectedWakesPerDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want int
	}{
		{name: "hour list", expr: "0 8,16 * * *", want: 2},
		{name: "three hour list", expr: "30 6,12,18 * * *", want: 3},
		{name: "step form", expr: "0 */6 * * *", want: 4},
		{name: "uneven step truncates", expr: "0 */5 * * *", want: 4},
		{name: "single hour", expr: "0 8 * * *", want: 1},
		{name: "empty expression defaults", expr: "", want: 1},
		{name: "garbage defaults", expr: "not a schedule at all ok", want: 1},
		{name: "hour out of range defaults", expr: "0 25 * * *", want: 1},
		{name: "zero step defaults", expr: "0 */0 * * *", want: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ExpectedWakesPerDay(tt.expr))
		})
	}
}

func TestInferSlotIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		hour        int
		expr        string
		wantIndex   int
		wantOverage bool
	}{
		{name: "exact first slot", hour: 8, expr: "0 8,16 * * *", wantIndex: 1, wantOverage: false},
		{name: "near second slot", hour: 17, expr: "0 8,16 * * *", wantIndex: 2, wantOverage: false},
		{name: "within tolerance below", hour: 7, expr: "0 8,16 * * *", wantIndex: 1, wantOverage: false},
		{name: "outside tolerance", hour: 10, expr: "0 8,16 * * *", wantIndex: 1, wantOverage: true},
		{name: "equidistant takes first", hour: 12, expr: "0 8,16 * * *", wantIndex: 1, wantOverage: true},
		{name: "step form last slot", hour: 18, expr: "0 */6 * * *", wantIndex: 4, wantOverage: false},
		{name: "step form midnight", hour: 0, expr: "0 */6 * * *", wantIndex: 1, wantOverage: false},
		{name: "single slot far away", hour: 23, expr: "0 8 * * *", wantIndex: 1, wantOverage: true},
		{name: "malformed flags for review", hour: 8, expr: "nope", wantIndex: 1, wantOverage: true},
		{name: "empty flags for review", hour: 8, expr: "", wantIndex: 1, wantOverage: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			index, overage := InferSlotIndex(tt.hour, tt.expr)
			require.Equal(t, tt.wantIndex, index)
			require.Equal(t, tt.wantOverage, overage)
		})
	}
}

func TestExpandHours(t *testing.T) {
	t.Parallel()

	hours, err := ExpandHours("0 */6 * * *")
	require.NoError(t, err)
	require.Equal(t, []int{0, 6, 12, 18}, hours)

	hours, err = ExpandHours("15 22,4 * * *")
	require.NoError(t, err)
	require.Equal(t, []int{22, 4}, hours)

	_, err = ExpandHours("0 8,oops * * *")
	require.Error(t, err)
}
