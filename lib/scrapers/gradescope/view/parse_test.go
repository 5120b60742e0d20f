package view

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func document(t testing.TB, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

const accountPage = `<html><body>
<h1 class="pageHeading">Instructor Courses</h1>
<div class="courseList">
	<a class="courseBox" href="/courses/1001">
		<h3 class="courseBox--shortname">EECS 203</h3>
		<div class="courseBox--name">Discrete   Mathematics</div>
	</a>
	<a class="courseBox" href="/courses/1002">
		<h3 class="courseBox--shortname">EECS 280</h3>
		<div class="courseBox--name">Programming and Intro Data Structures</div>
	</a>
</div>
<h2 class="pageHeading">Student Courses</h2>
<div class="courseList">
	<a class="courseBox" href="/courses/2001">
		<h3 class="courseBox--shortname">MATH 465</h3>
		<div class="courseBox--name">Combinatorics</div>
	</a>
</div>
</body></html>`

func TestParseCourses(t *testing.T) {
	courses, failures := parseCourses(document(t, accountPage))
	require.Empty(t, failures)

	expected := []Course{
		{Id: "1001", ShortName: "EECS 203", Name: "Discrete Mathematics", Role: RoleInstructor},
		{Id: "1002", ShortName: "EECS 280", Name: "Programming and Intro Data Structures", Role: RoleInstructor},
		{Id: "2001", ShortName: "MATH 465", Name: "Combinatorics", Role: RoleStudent},
	}
	diff := cmp.Diff(expected, courses)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseCoursesSkipsMalformedBoxes(t *testing.T) {
	markup := `<html><body>
<h1 class="pageHeading">Your Courses</h1>
<div class="courseList">
	<a class="courseBox" href="/courses/1001">
		<h3 class="courseBox--shortname">EECS 203</h3>
	</a>
	<a class="courseBox" href="/courses/1003">
		<div class="courseBox--name">No Short Name Here</div>
	</a>
</div>
</body></html>`

	courses, failures := parseCourses(document(t, markup))
	require.Len(t, courses, 1)
	require.Equal(t, "1001", courses[0].Id)

	require.Len(t, failures, 1)
	require.Equal(t, "course", failures[0].Resource)
	require.Equal(t, "short_name", failures[0].Field)
	require.Equal(t, 1, failures[0].Row)
}

func TestParseCoursesIgnoresUnknownHeadings(t *testing.T) {
	markup := `<html><body>
<h1 class="pageHeading">Archived Courses</h1>
<div class="courseList">
	<a class="courseBox" href="/courses/9999">
		<h3 class="courseBox--shortname">OLD 101</h3>
	</a>
</div>
</body></html>`

	courses, failures := parseCourses(document(t, markup))
	require.Empty(t, courses)
	require.Empty(t, failures)
}

const assignmentsPage = `<html><body>
<div data-react-class="AssignmentsTable" data-react-props='{
	"table_data": [
		{"id": "assignment_301", "title": "Homework 1", "total_points": "100.0"},
		{"id": "assignment_302", "title": "Homework 2", "total_points": 52.5},
		{"id": "assignment_303", "title": "Project Proposal", "total_points": "TBD"}
	]
}'></div>
</body></html>`

func TestParseAssignments(t *testing.T) {
	rows, err := parseAssignments(document(t, assignmentsPage), "/courses/1001/assignments")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	var assignments []Assignment
	var failures []*FieldError
	for i, row := range rows {
		assignment, ferr := row.toAssignment("1001", i)
		if ferr != nil {
			failures = append(failures, ferr)
			continue
		}
		assignments = append(assignments, assignment)
	}

	expected := []Assignment{
		{Id: "301", CourseId: "1001", Name: "Homework 1", Points: 100},
		{Id: "302", CourseId: "1001", Name: "Homework 2", Points: 52.5},
	}
	diff := cmp.Diff(expected, assignments)
	if diff != "" {
		t.Fatal(diff)
	}

	// the unparseable points row fails alone, it does not taint the rest
	require.Len(t, failures, 1)
	require.Equal(t, "assignment", failures[0].Resource)
	require.Equal(t, "points", failures[0].Field)
	require.Equal(t, 2, failures[0].Row)
}

func TestParseAssignmentsMissingTable(t *testing.T) {
	markup := `<html><body><p>nothing here</p></body></html>`
	_, err := parseAssignments(document(t, markup), "/courses/1001/assignments")

	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

const regradeRow = `<table class="js-regradeRequestsTable"><tbody><tr>
	<td><a href="/courses/1001/students/77">Ada Lovelace</a></td>
	<td>Section 2</td>
	<td>3: Strong Induction</td>
	<td>Charles Babbage</td>
	<td><i class="fa fa-check"></i></td>
	<td><a href="/courses/1001/assignments/301/regrade_requests/41">View</a></td>
</tr></tbody></table>`

func TestParseRegradeRow(t *testing.T) {
	doc := document(t, `<html><body>`+regradeRow+`</body></html>`)
	row := doc.Find(selRegradeRow).First()

	regrade, ferr := parseRegradeRow(row, 0, "301")
	require.Nil(t, ferr)

	expected := RegradeRequest{
		AssignmentId:   "301",
		StudentName:    "Ada Lovelace",
		QuestionNumber: "3",
		QuestionTitle:  "Strong Induction",
		GraderName:     "Charles Babbage",
		Href:           "/courses/1001/assignments/301/regrade_requests/41",
		Completed:      true,
	}
	diff := cmp.Diff(expected, regrade)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseRegradeRowMissingQuestion(t *testing.T) {
	markup := `<html><body><table class="js-regradeRequestsTable"><tbody><tr>
		<td>Ada Lovelace</td>
		<td></td>
		<td>no separator in sight</td>
		<td>Charles Babbage</td>
		<td></td>
		<td><a href="/x/41">View</a></td>
	</tr></tbody></table></body></html>`
	row := document(t, markup).Find(selRegradeRow).First()

	_, ferr := parseRegradeRow(row, 4, "301")
	require.NotNil(t, ferr)
	require.Equal(t, "question", ferr.Field)
	require.Equal(t, 4, ferr.Row)
}

const submissionsPage = `<html><body>
<div data-react-class="SubmissionsManager" data-react-props='{
	"assignmentId": 301,
	"students": [
		{"id": 77, "name": "Ada Lovelace", "email": "ada@example.com"},
		{"id": 78, "name": "Grace Hopper", "email": "grace@example.com"}
	],
	"submissions": {
		"501": {"id": 501, "active_user_ids": [77]},
		"502": {"id": 502, "active_user_ids": [77, 78]},
		"503": {"id": 503, "active_user_ids": [99]}
	}
}'></div>
</body></html>`

func TestParseSubmissionsMetadata(t *testing.T) {
	metadata, err := parseSubmissionsMetadata(
		document(t, submissionsPage),
		"/courses/1001/assignments/301/submissions",
	)
	require.NoError(t, err)
	require.Equal(t, "301", metadata.AssignmentId)
	require.Len(t, metadata.Students, 2)

	expected := []Submission{
		{Id: "501", StudentIds: []string{"77"}},
		{Id: "502", StudentIds: []string{"77", "78"}},
		{Id: "503", StudentIds: []string{"99"}},
	}
	diff := cmp.Diff(expected, metadata.Submissions)
	if diff != "" {
		t.Fatal(diff)
	}

	submitters := metadata.SubmitterMap()
	require.Len(t, submitters["502"], 2)
	// student 99 is not on the roster anymore
	require.Empty(t, submitters["503"])
}

func TestParseSubmissionsMetadataKeyMismatch(t *testing.T) {
	markup := `<html><body>
<div data-react-class="SubmissionsManager" data-react-props='{
	"assignmentId": 301,
	"students": [],
	"submissions": {"501": {"id": 999, "active_user_ids": []}}
}'></div>
</body></html>`

	_, err := parseSubmissionsMetadata(document(t, markup), "/x")
	require.Error(t, err)
}
