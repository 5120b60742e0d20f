package view

import (
	"fmt"

	"github.com/antzucaro/matchr"
)

// CourseSelector resolves a user-supplied string against a fetched course
// listing, matching by id, then short name, then full name.
type CourseSelector string

func (s CourseSelector) SelectFrom(courses []Course) (Course, error) {
	for _, course := range courses {
		if course.Id == string(s) {
			return course, nil
		}
	}
	for _, course := range courses {
		if course.ShortName == string(s) {
			return course, nil
		}
	}
	for _, course := range courses {
		if course.Name == string(s) {
			return course, nil
		}
	}

	names := make([]string, 0, len(courses)*2)
	for _, course := range courses {
		names = append(names, course.ShortName, course.Name)
	}
	return Course{}, selectionError("course", string(s), names)
}

type AssignmentSelector string

func (s AssignmentSelector) SelectFrom(assignments []Assignment) (Assignment, error) {
	for _, assignment := range assignments {
		if assignment.Id == string(s) {
			return assignment, nil
		}
	}
	for _, assignment := range assignments {
		if assignment.Name == string(s) {
			return assignment, nil
		}
	}

	names := make([]string, 0, len(assignments))
	for _, assignment := range assignments {
		names = append(names, assignment.Name)
	}
	return Assignment{}, selectionError("assignment", string(s), names)
}

func selectionError(kind, selector string, candidates []string) error {
	closest := ""
	var similarity float64
	for _, candidate := range candidates {
		sim := matchr.JaroWinkler(selector, candidate, false)
		if sim > similarity {
			similarity = sim
			closest = candidate
		}
	}
	if closest == "" {
		return fmt.Errorf("could not find %s by selector %q", kind, selector)
	}
	return fmt.Errorf("could not find %s by selector %q, did you mean %q?", kind, selector, closest)
}
