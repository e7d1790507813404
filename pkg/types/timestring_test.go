package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeStringFromString_Normalizes(t *testing.T) {
	cases := map[string]string{
		"09:30":    "09:30:00",
		"09:30:15": "09:30:15",
		" 23:59 ":  "23:59:00",
		"00:00":    "00:00:00",
	}

	for in, want := range cases {
		got, err := NewTimeStringFromString(in)
		require.NoError(t, err, in)
		assert.Equal(t, TimeString(want), got, in)
	}
}

func TestNewTimeStringFromString_Rejects(t *testing.T) {
	for _, in := range []string{"", "9:30", "24:00", "12:60", "12:00:60", "12-00", "aa:bb", "12:00:00:00"} {
		_, err := NewTimeStringFromString(in)
		assert.ErrorIs(t, err, ErrInvalidTimeString, in)
	}
}

func TestTimeString_AddMinutes(t *testing.T) {
	ts := MustTimeString("16:00")

	end, err := ts.AddMinutes(60)
	require.NoError(t, err)
	assert.Equal(t, TimeString("17:00:00"), end)

	_, err = MustTimeString("23:30").AddMinutes(30)
	assert.ErrorIs(t, err, ErrTimeOverflow)
}

func TestTimeString_Compare(t *testing.T) {
	a := MustTimeString("10:00")
	b := MustTimeString("10:00:01")

	assert.True(t, a.IsBefore(b))
	assert.True(t, b.IsAfter(a))
	assert.False(t, a.IsBefore(a))
	assert.True(t, a.Equal(MustTimeString("10:00:00")))
}

func TestTimeString_On(t *testing.T) {
	loc := time.FixedZone("clinic", 3*3600)
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)

	got := MustTimeString("09:15").On(date)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 15, 0, 0, loc), got)
}

func TestTimeString_Scan(t *testing.T) {
	var ts TimeString

	require.NoError(t, ts.Scan([]byte("08:45:00.000000")))
	assert.Equal(t, TimeString("08:45:00"), ts)

	require.NoError(t, ts.Scan(time.Date(0, 1, 1, 13, 5, 0, 0, time.UTC)))
	assert.Equal(t, TimeString("13:05:00"), ts)

	require.NoError(t, ts.Scan(nil))
	assert.True(t, ts.IsZero())

	assert.Error(t, ts.Scan(42))
}

func TestTimeString_UnmarshalJSON(t *testing.T) {
	var ts TimeString
	require.NoError(t, ts.UnmarshalJSON([]byte(`"10:15"`)))
	assert.Equal(t, TimeString("10:15:00"), ts)

	assert.Error(t, ts.UnmarshalJSON([]byte(`"25:00"`)))
}
