package commands

import (
	"fmt"
	"log/slog"
	"os"

	"gradescope-backend/lib/configutil"
	"gradescope-backend/lib/scrapers/gradescope/view"
	"gradescope-backend/lib/serviceutil"
	"gradescope-backend/services/notify"

	"github.com/spf13/cobra"
)

type NotifyConfig struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Smtp     notify.SmtpConfig `json:"smtp"`
	FromName string            `json:"from_name"`
	Reports  []UnmatchedEntry  `json:"reports"`
}

type UnmatchedEntry struct {
	SubmissionId string   `json:"submission_id"`
	Questions    []string `json:"questions"`
}

var notifyCourse *string
var notifyAssignment *string
var notifyCsv *bool
var notifyDryRun *bool

func init() {
	notifyCourse = notifyCmd.Flags().String("course", "", "The course id, short name or name the submissions belong to.")
	notifyAssignment = notifyCmd.Flags().String("assignment", "", "The assignment id or name the submissions belong to.")
	notifyCsv = notifyCmd.Flags().Bool("csv", false, "Print name;email;message lines instead of sending email.")
	notifyDryRun = notifyCmd.Flags().Bool("dry-run", false, "Log the reports instead of sending them.")
	notifyCmd.MarkFlagRequired("course")
	notifyCmd.MarkFlagRequired("assignment")
	rootCmd.AddCommand(notifyCmd)
}

var notifyCmd = &cobra.Command{
	Use:   "notify --course <selector> --assignment <selector> [--csv] [--dry-run]",
	Short: "Emails students whose submissions have unmatched pages.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[NotifyConfig]("notify.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		client := createClient(cmd.Context(), Config{
			Email:    cfg.Email,
			Password: cfg.Password,
		})

		courses, failures, err := client.Courses(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list courses", err)
		}
		warnFailures(failures)
		course, err := view.CourseSelector(*notifyCourse).SelectFrom(courses)
		if err != nil {
			serviceutil.Fatal("unknown course", err)
		}

		assignments, failures, err := client.Assignments(cmd.Context(), course)
		if err != nil {
			serviceutil.Fatal("failed to list assignments", err)
		}
		warnFailures(failures)
		assignment, err := view.AssignmentSelector(*notifyAssignment).SelectFrom(assignments)
		if err != nil {
			serviceutil.Fatal("unknown assignment", err)
		}

		metadata, err := client.SubmissionsMetadata(cmd.Context(), course, assignment)
		if err != nil {
			serviceutil.Fatal("failed to fetch submissions metadata", err)
		}

		unmatched := make([]notify.UnmatchedSubmission, len(cfg.Reports))
		for i, entry := range cfg.Reports {
			unmatched[i] = notify.UnmatchedSubmission{
				SubmissionId: entry.SubmissionId,
				Questions:    entry.Questions,
			}
		}

		reports, orphaned := notify.BuildReports(course, assignment, metadata, unmatched)
		for _, sub := range orphaned {
			slog.Warn("no known submitter for submission", "id", sub.SubmissionId)
		}

		if *notifyCsv {
			for _, report := range reports {
				fmt.Println(notify.CsvLine(report))
			}
			return
		}

		sender := notify.NewSender(notify.Options{
			Smtp:     cfg.Smtp,
			FromName: cfg.FromName,
			DryRun:   *notifyDryRun,
		})
		sendFailures := sender.Send(cmd.Context(), reports)
		for _, failure := range sendFailures {
			slog.Error(
				"failed to send report",
				"to", failure.Report.Student.Email,
				"err", failure.Err,
			)
		}
		if len(sendFailures) > 0 {
			os.Exit(1)
		}
	},
}

func warnFailures(failures []*view.FieldError) {
	for _, failure := range failures {
		slog.Warn(
			"skipped a malformed row",
			"resource", failure.Resource,
			"row", failure.Row,
			"field", failure.Field,
			"err", failure.Err,
		)
	}
}
