package coursedb

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"gradescope-backend/lib/scrapers/gradescope/view"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/coursedb")

type ScrapeOptions struct {
	// resolve and scrape only these courses, empty means all of them
	Courses []view.CourseSelector
	// bounded number of courses scraped concurrently, defaults to 1
	Workers int
}

// Scrape walks courses, their assignments and those assignments' regrade
// requests into the store. Row-scoped extraction failures are logged and
// do not block ingestion of the remaining rows, structural failures
// (shape, pagination, referential) abort the affected course.
func Scrape(ctx context.Context, store Store, client view.Client, opts ScrapeOptions) error {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	courses, failures, err := client.Courses(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list courses")
		return err
	}
	logFailures(ctx, failures)

	if len(opts.Courses) > 0 {
		selected := make([]view.Course, 0, len(opts.Courses))
		for _, selector := range opts.Courses {
			course, err := selector.SelectFrom(courses)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "unknown course selector")
				return err
			}
			selected = append(selected, course)
		}
		courses = selected
	}

	span.SetAttributes(attribute.Int("courses", len(courses)))

	var errMu sync.Mutex
	var errList []error
	var wg sync.WaitGroup
	slots := make(chan struct{}, opts.Workers)

	for _, course := range courses {
		wg.Add(1)
		go func(course view.Course) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			err := scrapeCourse(ctx, store, client, course)
			if err != nil {
				errMu.Lock()
				errList = append(errList, err)
				errMu.Unlock()
			}
		}(course)
	}
	wg.Wait()

	err = errors.Join(errList...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape finished with errors")
	}
	return err
}

func scrapeCourse(ctx context.Context, store Store, client view.Client, course view.Course) error {
	ctx, span := tracer.Start(ctx, "scrapeCourse")
	defer span.End()
	span.SetAttributes(attribute.String("course", course.Id))

	slog.InfoContext(ctx, "scraping course", "id", course.Id, "short_name", course.ShortName)

	err := store.InsertCourse(ctx, course)
	if err != nil {
		return err
	}

	assignments, failures, err := client.Assignments(ctx, course)
	if err != nil {
		return err
	}
	logFailures(ctx, failures)

	for _, assignment := range assignments {
		err := scrapeAssignment(ctx, store, client, course, assignment)
		if err != nil {
			return err
		}
	}
	return nil
}

func scrapeAssignment(
	ctx context.Context,
	store Store,
	client view.Client,
	course view.Course,
	assignment view.Assignment,
) error {
	err := store.InsertAssignment(ctx, assignment)
	if err != nil {
		return err
	}

	regrades, failures, err := client.RegradeRequests(ctx, course, assignment)
	if err != nil {
		return err
	}
	logFailures(ctx, failures)

	for _, regrade := range regrades {
		err := store.InsertRegrade(ctx, regrade)
		if err != nil {
			return err
		}
	}
	return nil
}

func logFailures(ctx context.Context, failures []*view.FieldError) {
	for _, failure := range failures {
		slog.WarnContext(
			ctx, "skipped a malformed row",
			"resource", failure.Resource,
			"row", failure.Row,
			"field", failure.Field,
			"err", failure.Err,
		)
	}
}
