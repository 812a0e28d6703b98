package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInterval(t *testing.T) {
	iv, err := NewInterval("09:00", "17:00")
	require.NoError(t, err)
	assert.NotEmpty(t, iv.ID)
	assert.Equal(t, "09:00", iv.Start)
	assert.Equal(t, "17:00", iv.End)

	_, err = NewInterval("17:00", "09:00")
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval("09:00", "09:00")
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval("9:00", "17:00")
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewInterval("09:00", "24:30")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     [2]string
		overlaps bool
	}{
		{"disjoint", [2]string{"09:00", "10:00"}, [2]string{"11:00", "12:00"}, false},
		{"touching", [2]string{"09:00", "12:00"}, [2]string{"12:00", "13:00"}, false},
		{"partial", [2]string{"09:00", "12:00"}, [2]string{"10:00", "14:00"}, true},
		{"contained", [2]string{"09:00", "17:00"}, [2]string{"10:00", "11:00"}, true},
		{"identical", [2]string{"09:00", "12:00"}, [2]string{"09:00", "12:00"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Interval{ID: "a", Start: tt.a[0], End: tt.a[1]}
			b := Interval{ID: "b", Start: tt.b[0], End: tt.b[1]}
			assert.Equal(t, tt.overlaps, a.Overlaps(b))
			assert.Equal(t, tt.overlaps, b.Overlaps(a))
		})
	}
}

func TestClockMinutes(t *testing.T) {
	m, err := ClockMinutes("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)

	_, err = ClockMinutes("0930")
	assert.Error(t, err)

	_, err = ClockMinutes("09:61")
	assert.Error(t, err)
}
