package view

import (
	"context"
	"errors"
	"fmt"

	"gradescope-backend/lib/scrapers/gradescope/core"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/gradescope/view")

// Client is the resource-level facade over the authenticated core client.
// Listing calls return the full logical collection plus any row-scoped
// failures, one malformed row does not abort the rest of the listing.
type Client struct {
	Core *core.Client
	refs *scrapeRefs
}

func NewClient(coreClient *core.Client) Client {
	return Client{
		Core: coreClient,
		refs: newScrapeRefs(),
	}
}

func coursePath(courseId, suffix string) string {
	return fmt.Sprintf("/courses/%s%s", courseId, suffix)
}

func assignmentPath(courseId, assignmentId, suffix string) string {
	return coursePath(courseId, fmt.Sprintf("/assignments/%s%s", assignmentId, suffix))
}

// getDocument fetches a page, transparently refreshing the session and
// re-issuing the request exactly once if it comes back expired.
func (c Client) getDocument(ctx context.Context, path string) (*goquery.Document, error) {
	doc, err := c.Core.GetDocument(ctx, path)
	if errors.Is(err, core.SessionExpired) {
		err = c.Core.EnsureValid(ctx)
		if err != nil {
			return nil, err
		}
		return c.Core.GetDocument(ctx, path)
	}
	return doc, err
}

func (c Client) Courses(ctx context.Context) ([]Course, []*FieldError, error) {
	ctx, span := tracer.Start(ctx, "client:Courses")
	defer span.End()

	doc, err := c.getDocument(ctx, core.AccountPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch account page")
		return nil, nil, err
	}

	if doc.Find(selCourseList).Length() == 0 {
		err := &ShapeError{Anchor: selCourseList, Path: core.AccountPath}
		span.RecordError(err)
		span.SetStatus(codes.Error, "account page is missing its course lists")
		return nil, nil, err
	}

	courses, failures := parseCourses(doc)
	for _, course := range courses {
		c.refs.noteCourse(course.Id)
	}

	span.SetAttributes(
		attribute.Int("courses", len(courses)),
		attribute.Int("failures", len(failures)),
	)
	return courses, failures, nil
}

// ensureCourseKnown lazily populates the scrape context so a caller can
// start from Assignments without an explicit Courses call first.
func (c Client) ensureCourseKnown(ctx context.Context, courseId string) error {
	if c.refs.hasCourse(courseId) {
		return nil
	}
	if !c.refs.coursesKnown() {
		_, _, err := c.Courses(ctx)
		if err != nil {
			return err
		}
	}
	if !c.refs.hasCourse(courseId) {
		return &MappingError{Kind: "assignment listing course", Ref: courseId}
	}
	return nil
}

func (c Client) Assignments(ctx context.Context, course Course) ([]Assignment, []*FieldError, error) {
	ctx, span := tracer.Start(ctx, "client:Assignments")
	defer span.End()
	span.SetAttributes(attribute.String("course", course.Id))

	err := c.ensureCourseKnown(ctx, course.Id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "course is not part of this scrape run")
		return nil, nil, err
	}

	path := coursePath(course.Id, "/assignments")
	doc, err := c.getDocument(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch assignments page")
		return nil, nil, err
	}

	rows, err := parseAssignments(doc, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse assignments table")
		return nil, nil, err
	}

	var assignments []Assignment
	var failures []*FieldError
	for i, row := range rows {
		assignment, ferr := row.toAssignment(course.Id, i)
		if ferr != nil {
			failures = append(failures, ferr)
			continue
		}
		c.refs.noteAssignment(assignment.Id)
		assignments = append(assignments, assignment)
	}

	span.SetAttributes(
		attribute.Int("assignments", len(assignments)),
		attribute.Int("failures", len(failures)),
	)
	return assignments, failures, nil
}

func (c Client) ensureAssignmentKnown(ctx context.Context, course Course, assignmentId string) error {
	if c.refs.hasAssignment(assignmentId) {
		return nil
	}
	_, _, err := c.Assignments(ctx, course)
	if err != nil {
		return err
	}
	if !c.refs.hasAssignment(assignmentId) {
		return &MappingError{Kind: "regrade listing assignment", Ref: assignmentId}
	}
	return nil
}

func (c Client) RegradeRequests(ctx context.Context, course Course, assignment Assignment) ([]RegradeRequest, []*FieldError, error) {
	ctx, span := tracer.Start(ctx, "client:RegradeRequests")
	defer span.End()
	span.SetAttributes(
		attribute.String("course", course.Id),
		attribute.String("assignment", assignment.Id),
	)

	err := c.ensureAssignmentKnown(ctx, course, assignment.Id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assignment is not part of this scrape run")
		return nil, nil, err
	}

	var regrades []RegradeRequest
	var failures []*FieldError
	dedupe := regradeDeduper{}

	start := assignmentPath(course.Id, assignment.Id, "/regrade_requests")
	row := 0
	err = c.walkPages(ctx, start, selRegradeRow, func(page int, sel *goquery.Selection) error {
		defer func() { row++ }()

		regrade, ferr := parseRegradeRow(sel, row, assignment.Id)
		if ferr != nil {
			failures = append(failures, ferr)
			return nil
		}
		if dedupe.seen(regrade) {
			return nil
		}
		regrades = append(regrades, regrade)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "regrade walk failed")
		return nil, nil, err
	}

	span.SetAttributes(
		attribute.Int("regrade_requests", len(regrades)),
		attribute.Int("failures", len(failures)),
	)
	return regrades, failures, nil
}

func (c Client) SubmissionsMetadata(ctx context.Context, course Course, assignment Assignment) (SubmissionsMetadata, error) {
	ctx, span := tracer.Start(ctx, "client:SubmissionsMetadata")
	defer span.End()
	span.SetAttributes(
		attribute.String("course", course.Id),
		attribute.String("assignment", assignment.Id),
	)

	err := c.ensureAssignmentKnown(ctx, course, assignment.Id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assignment is not part of this scrape run")
		return SubmissionsMetadata{}, err
	}

	path := assignmentPath(course.Id, assignment.Id, "/submissions")
	doc, err := c.getDocument(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch submissions page")
		return SubmissionsMetadata{}, err
	}

	metadata, err := parseSubmissionsMetadata(doc, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse submissions manager")
		return SubmissionsMetadata{}, err
	}

	if metadata.AssignmentId != assignment.Id {
		err := &MappingError{Kind: "submissions metadata assignment", Ref: metadata.AssignmentId}
		span.RecordError(err)
		span.SetStatus(codes.Error, "submissions manager is for a different assignment")
		return SubmissionsMetadata{}, err
	}

	return metadata, nil
}
