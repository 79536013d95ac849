package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func slot(id uint, day string, startHour, startMin, endHour, endMin int) CourseSchedule {
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return CourseSchedule{
		ID:        id,
		Date:      NewScheduleDate(date),
		StartTime: NewScheduleTime(startHour, startMin),
		EndTime:   NewScheduleTime(endHour, endMin),
	}
}

func TestTimeRangeOverlapClassification(t *testing.T) {
	existing := slot(1, "2025-03-01", 9, 0, 11, 0)

	cases := []struct {
		name      string
		candidate CourseSchedule
		conflict  bool
	}{
		{"partial overlap at end", slot(0, "2025-03-01", 10, 0, 12, 0), true},
		{"partial overlap at start", slot(0, "2025-03-01", 8, 0, 9, 30), true},
		{"contained", slot(0, "2025-03-01", 9, 30, 10, 30), true},
		{"containing", slot(0, "2025-03-01", 8, 0, 12, 0), true},
		{"identical", slot(0, "2025-03-01", 9, 0, 11, 0), true},
		{"touching after", slot(0, "2025-03-01", 11, 0, 13, 0), false},
		{"touching before", slot(0, "2025-03-01", 7, 0, 9, 0), false},
		{"other day", slot(0, "2025-03-02", 10, 0, 12, 0), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.conflict, tc.candidate.ConflictsWith(existing))
			require.Equal(t, tc.conflict, existing.ConflictsWith(tc.candidate), "overlap must be symmetric")
		})
	}
}

func TestTimeRangeValid(t *testing.T) {
	require.True(t, slot(0, "2025-03-01", 9, 0, 11, 0).Range().Valid())
	require.False(t, slot(0, "2025-03-01", 11, 0, 11, 0).Range().Valid())
	require.False(t, slot(0, "2025-03-01", 12, 0, 11, 0).Range().Valid())
}

func TestFindScheduleConflict(t *testing.T) {
	existing := []CourseSchedule{slot(7, "2025-03-01", 9, 0, 11, 0)}

	_, found := FindScheduleConflict([]CourseSchedule{slot(0, "2025-03-01", 11, 0, 13, 0)}, existing)
	require.False(t, found)

	conflict, found := FindScheduleConflict([]CourseSchedule{
		slot(0, "2025-03-02", 9, 0, 10, 0),
		slot(0, "2025-03-01", 10, 0, 12, 0),
	}, existing)
	require.True(t, found)
	require.Equal(t, uint(7), conflict.Existing.ID)

	_, found = FindScheduleConflict([]CourseSchedule{
		slot(0, "2025-03-05", 9, 0, 10, 0),
		slot(0, "2025-03-05", 9, 30, 10, 30),
	}, nil)
	require.True(t, found, "candidates must not collide with each other")

	_, found = FindScheduleConflict([]CourseSchedule{slot(7, "2025-03-01", 9, 30, 11, 30)}, existing)
	require.False(t, found, "a slot being updated is not compared with its stored version")
}
