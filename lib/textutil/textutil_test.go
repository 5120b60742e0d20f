package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "eecs203", NormalizeName("  EECS 203\n"))
	require.Equal(t, "discretemath", NormalizeName("Discrete\tMath"))
}

func TestMatchName(t *testing.T) {
	matchers := []string{"instructorcourses", "yourcourses"}
	require.True(t, MatchName("Instructor Courses", matchers))
	require.True(t, MatchName("  Your\tCourses ", matchers))
	require.False(t, MatchName("Student Courses", matchers))
}

func TestParsePoints(t *testing.T) {
	testCases := []struct {
		raw      string
		expected float64
		fails    bool
	}{
		{raw: "100", expected: 100},
		{raw: "52.5", expected: 52.5},
		{raw: "1,000.0", expected: 1000},
		{raw: "50 pts", expected: 50},
		{raw: "  75.0  ", expected: 75},
		{raw: "0", expected: 0},
		{raw: "", fails: true},
		{raw: "TBD", fails: true},
		{raw: "-10", fails: true},
	}

	for _, test := range testCases {
		points, err := ParsePoints(test.raw)
		if test.fails {
			require.Error(t, err, "input %q", test.raw)
			continue
		}
		require.NoError(t, err, "input %q", test.raw)
		require.Equal(t, test.expected, points, "input %q", test.raw)
	}
}
