package view

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gradescope-backend/lib/htmlutil"
	"gradescope-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// structural anchors mirrored from the source's markup. every extraction
// first locates one of these containers and only then reads leaf text, so
// whitespace and ordering drift in the markup does not affect correctness.
const (
	selCourseHeading      = "h1.pageHeading, h2.pageHeading, .pageHeading"
	selCourseList         = ".courseList"
	selCourseBox          = "a.courseBox"
	selCourseShortName    = ".courseBox--shortname"
	selCourseName         = ".courseBox--name"
	selAssignmentsTable   = "[data-react-class=AssignmentsTable]"
	selRegradeRow         = "table.js-regradeRequestsTable > tbody > tr"
	selSubmissionsManager = "[data-react-class=SubmissionsManager]"
	selNextPage           = "a[rel=next]"
)

func parseCourses(doc *goquery.Document) ([]Course, []*FieldError) {
	var courses []Course
	var failures []*FieldError

	doc.Find(selCourseHeading).Each(func(_ int, heading *goquery.Selection) {
		role, recognized := roleForHeading(htmlutil.Text(heading))
		if !recognized {
			return
		}

		list := heading.NextAllFiltered(selCourseList).First()
		list.Find(selCourseBox).Each(func(i int, box *goquery.Selection) {
			course, ferr := parseCourseBox(box, i, role)
			if ferr != nil {
				failures = append(failures, ferr)
				return
			}
			courses = append(courses, course)
		})
	})

	return courses, failures
}

// accounts with both roles get separate headings per role, accounts with a
// single role get a generic "Your Courses" heading. we assume those users
// are instructors.
func roleForHeading(heading string) (Role, bool) {
	switch {
	case textutil.MatchName(heading, []string{"instructorcourses", "yourcourses"}):
		return RoleInstructor, true
	case textutil.MatchName(heading, []string{"studentcourses"}):
		return RoleStudent, true
	}
	return RoleInstructor, false
}

func parseCourseBox(box *goquery.Selection, row int, role Role) (Course, *FieldError) {
	id := htmlutil.IdFromHref(box.AttrOr("href", ""))
	if id == "" {
		return Course{}, &FieldError{
			Resource: "course",
			Row:      row,
			Field:    "id",
			Err:      fmt.Errorf("course box href does not carry an id"),
		}
	}

	shortName := htmlutil.Text(box.Find(selCourseShortName))
	if shortName == "" {
		return Course{}, &FieldError{
			Resource: "course",
			Row:      row,
			Field:    "short_name",
			Err:      fmt.Errorf("missing %s", selCourseShortName),
		}
	}

	name := htmlutil.Text(box.Find(selCourseName))

	return Course{
		Id:        id,
		ShortName: shortName,
		Name:      name,
		Role:      role,
	}, nil
}

// the assignments listing embeds its table data as react props json rather
// than rendering rows server-side.
type assignmentsTableProps struct {
	TableData []assignmentRow `json:"table_data"`
}

type assignmentRow struct {
	Id          string          `json:"id"`
	Title       string          `json:"title"`
	TotalPoints json.RawMessage `json:"total_points"`
}

func parseAssignments(doc *goquery.Document, path string) ([]assignmentRow, error) {
	table := doc.Find(selAssignmentsTable)
	if table.Length() != 1 {
		return nil, &ShapeError{Anchor: selAssignmentsTable, Path: path}
	}

	data, ok := table.Attr("data-react-props")
	if !ok {
		return nil, &ShapeError{Anchor: selAssignmentsTable + "[data-react-props]", Path: path}
	}

	var props assignmentsTableProps
	err := json.Unmarshal([]byte(data), &props)
	if err != nil {
		return nil, fmt.Errorf("malformed assignments table data at %s: %w", path, err)
	}
	return props.TableData, nil
}

func (r assignmentRow) toAssignment(courseId string, row int) (Assignment, *FieldError) {
	// the props encode assignment ids as "assignment_<id>"
	id := strings.TrimPrefix(r.Id, "assignment_")
	if id == "" {
		return Assignment{}, &FieldError{
			Resource: "assignment",
			Row:      row,
			Field:    "id",
			Err:      fmt.Errorf("empty assignment id"),
		}
	}

	points, err := textutil.ParsePoints(strings.Trim(string(r.TotalPoints), `"`))
	if err != nil {
		return Assignment{}, &FieldError{
			Resource: "assignment",
			Row:      row,
			Field:    "points",
			Err:      err,
		}
	}

	return Assignment{
		Id:       id,
		CourseId: courseId,
		Name:     r.Title,
		Points:   points,
	}, nil
}

func parseRegradeRow(row *goquery.Selection, idx int, assignmentId string) (RegradeRequest, *FieldError) {
	cells := row.Find("td")
	if cells.Length() < 6 {
		return RegradeRequest{}, &FieldError{
			Resource: "regrade_request",
			Row:      idx,
			Field:    "row",
			Err:      fmt.Errorf("expected at least 6 cells, found %d", cells.Length()),
		}
	}

	studentName := htmlutil.Text(cells.Eq(0))
	if studentName == "" {
		return RegradeRequest{}, &FieldError{
			Resource: "regrade_request",
			Row:      idx,
			Field:    "student_name",
			Err:      fmt.Errorf("missing student entry"),
		}
	}

	// cell 1 is the sections column, which we have no use for

	questionText := htmlutil.Text(cells.Eq(2))
	number, title, found := strings.Cut(questionText, ":")
	if !found {
		return RegradeRequest{}, &FieldError{
			Resource: "regrade_request",
			Row:      idx,
			Field:    "question",
			Err:      fmt.Errorf("could not split question entry %q", questionText),
		}
	}

	graderName := htmlutil.Text(cells.Eq(3))
	completed := cells.Eq(4).Children().Length() > 0

	anchors := htmlutil.GetAnchors(cells.Eq(5).Find("a"))
	if len(anchors) == 0 || anchors[0].Href == "" {
		return RegradeRequest{}, &FieldError{
			Resource: "regrade_request",
			Row:      idx,
			Field:    "href",
			Err:      fmt.Errorf("missing link element"),
		}
	}

	return RegradeRequest{
		AssignmentId:   assignmentId,
		StudentName:    studentName,
		QuestionNumber: strings.TrimSpace(number),
		QuestionTitle:  strings.TrimSpace(title),
		GraderName:     graderName,
		Href:           anchors[0].Href,
		Completed:      completed,
	}, nil
}

type submissionsManagerProps struct {
	AssignmentId int64 `json:"assignmentId"`
	Students     []struct {
		Id    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"students"`
	Submissions map[string]struct {
		Id            int64   `json:"id"`
		ActiveUserIds []int64 `json:"active_user_ids"`
	} `json:"submissions"`
}

func parseSubmissionsMetadata(doc *goquery.Document, path string) (SubmissionsMetadata, error) {
	manager := doc.Find(selSubmissionsManager)
	if manager.Length() != 1 {
		return SubmissionsMetadata{}, &ShapeError{Anchor: selSubmissionsManager, Path: path}
	}

	data, ok := manager.Attr("data-react-props")
	if !ok {
		return SubmissionsMetadata{}, &ShapeError{Anchor: selSubmissionsManager + "[data-react-props]", Path: path}
	}

	var props submissionsManagerProps
	err := json.Unmarshal([]byte(data), &props)
	if err != nil {
		return SubmissionsMetadata{}, fmt.Errorf("malformed submissions manager data at %s: %w", path, err)
	}

	out := SubmissionsMetadata{
		AssignmentId: strconv.FormatInt(props.AssignmentId, 10),
	}
	for _, s := range props.Students {
		out.Students = append(out.Students, StudentSubmitter{
			Id:    strconv.FormatInt(s.Id, 10),
			Name:  s.Name,
			Email: s.Email,
		})
	}
	for key, sub := range props.Submissions {
		id := strconv.FormatInt(sub.Id, 10)
		if key != id {
			return SubmissionsMetadata{}, fmt.Errorf(
				"submission keyed %q has mismatching id %q at %s", key, id, path,
			)
		}
		studentIds := make([]string, len(sub.ActiveUserIds))
		for i, uid := range sub.ActiveUserIds {
			studentIds[i] = strconv.FormatInt(uid, 10)
		}
		out.Submissions = append(out.Submissions, Submission{
			Id:         id,
			StudentIds: studentIds,
		})
	}
	// the props keep submissions in a map, sort for deterministic output
	slices.SortFunc(out.Submissions, func(a, b Submission) int {
		return strings.Compare(a.Id, b.Id)
	})

	return out, nil
}
