package notify

import (
	"fmt"
	"strings"

	"gradescope-backend/lib/scrapers/gradescope/view"
)

// UnmatchedSubmission names a submission that has at least one question
// without matched pages. Which questions are unmatched comes from the
// operator's page-matching review, this service only turns the findings
// into per-student reports.
type UnmatchedSubmission struct {
	SubmissionId string
	Questions    []string
}

// Report is one student's notification about one submission.
type Report struct {
	Student      view.StudentSubmitter
	CourseId     string
	Assignment   view.Assignment
	SubmissionId string
	Questions    []string
}

// BuildReports resolves unmatched submissions against the submitter roster
// in the metadata. Submissions without any known submitter are returned in
// the orphaned list so they can be chased down manually instead of being
// silently dropped.
func BuildReports(
	course view.Course,
	assignment view.Assignment,
	metadata view.SubmissionsMetadata,
	unmatched []UnmatchedSubmission,
) (reports []Report, orphaned []UnmatchedSubmission) {
	submitters := metadata.SubmitterMap()

	for _, sub := range unmatched {
		students := submitters[sub.SubmissionId]
		if len(students) == 0 {
			orphaned = append(orphaned, sub)
			continue
		}
		for _, student := range students {
			reports = append(reports, Report{
				Student:      student,
				CourseId:     course.Id,
				Assignment:   assignment,
				SubmissionId: sub.SubmissionId,
				Questions:    sub.Questions,
			})
		}
	}
	return reports, orphaned
}

func (r Report) PageMatchingLink() string {
	return fmt.Sprintf(
		"https://www.gradescope.com/courses/%s/assignments/%s/submissions/%s/select_pages",
		r.CourseId, r.Assignment.Id, r.SubmissionId,
	)
}

func (r Report) Body() string {
	questions, these, them := "question", "this", "it"
	if len(r.Questions) > 1 {
		questions, these, them = "questions", "these", "them"
	}

	return fmt.Sprintf(
		`%s:

We found %d unmatched %s in your submission for %s: %s

If you would like %s %s to be graded, please match pages for %s as soon as possible: %s`,
		r.Student.Name,
		len(r.Questions),
		questions,
		r.Assignment.Name,
		formatQuestions(r.Questions),
		these,
		questions,
		them,
		r.PageMatchingLink(),
	)
}

func formatQuestions(questions []string) string {
	switch len(questions) {
	case 0:
		return "no questions"
	case 1:
		return questions[0]
	default:
		return "\n  - " + strings.Join(questions, "\n  - ")
	}
}
