package view

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var selectorCourses = []Course{
	{Id: "1001", ShortName: "EECS 203", Name: "Discrete Mathematics"},
	{Id: "1002", ShortName: "EECS 280", Name: "Programming and Intro Data Structures"},
}

func TestCourseSelector(t *testing.T) {
	course, err := CourseSelector("1002").SelectFrom(selectorCourses)
	require.NoError(t, err)
	require.Equal(t, "1002", course.Id)

	course, err = CourseSelector("EECS 203").SelectFrom(selectorCourses)
	require.NoError(t, err)
	require.Equal(t, "1001", course.Id)

	course, err = CourseSelector("Discrete Mathematics").SelectFrom(selectorCourses)
	require.NoError(t, err)
	require.Equal(t, "1001", course.Id)
}

func TestCourseSelectorSuggestsClosestMatch(t *testing.T) {
	_, err := CourseSelector("EECS 23").SelectFrom(selectorCourses)
	require.Error(t, err)
	require.Contains(t, err.Error(), "did you mean")
	require.Contains(t, err.Error(), "EECS 203")
}

func TestAssignmentSelector(t *testing.T) {
	assignments := []Assignment{
		{Id: "301", Name: "Homework 1"},
		{Id: "302", Name: "Homework 2"},
	}

	assignment, err := AssignmentSelector("302").SelectFrom(assignments)
	require.NoError(t, err)
	require.Equal(t, "302", assignment.Id)

	assignment, err = AssignmentSelector("Homework 1").SelectFrom(assignments)
	require.NoError(t, err)
	require.Equal(t, "301", assignment.Id)

	_, err = AssignmentSelector("Homwork 1").SelectFrom(assignments)
	require.Error(t, err)
	require.Contains(t, err.Error(), "did you mean")
}
