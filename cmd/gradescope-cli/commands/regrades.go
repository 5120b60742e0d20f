package commands

import (
	"gradescope-backend/lib/serviceutil"
	"gradescope-backend/lib/sqliteutil"
	"gradescope-backend/services/coursedb"
	"gradescope-backend/services/coursedb/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var regradesDb *string
var regradesAssignment *string

func init() {
	regradesDb = regradesCmd.Flags().String("db", "results.db", "The database to read scrape results from.")
	regradesAssignment = regradesCmd.Flags().String("assignment", "", "The assignment id to list regrade requests for.")
	regradesCmd.MarkFlagRequired("assignment")
	rootCmd.AddCommand(regradesCmd)
}

var regradesCmd = &cobra.Command{
	Use:   "regrades --assignment <assignment_id> [--db <path/to/results.db>]",
	Short: "Prints the regrade requests found by a scrape for one assignment.",
	Run: func(cmd *cobra.Command, args []string) {
		database, err := sqliteutil.OpenDB(db.Schema, *regradesDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()
		store := coursedb.NewStore(database)

		regrades, err := store.ListRegrades(cmd.Context(), *regradesAssignment)
		if err != nil {
			serviceutil.Fatal("failed to list regrade requests", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Student", "Question", "Title", "Grader", "Completed"})

		for _, regrade := range regrades {
			completed := ""
			if regrade.Completed {
				completed = "yes"
			}
			t.AppendRow(table.Row{
				regrade.StudentName,
				regrade.QuestionNumber,
				regrade.QuestionTitle,
				regrade.GraderName,
				completed,
			})
		}

		t.Render()
	},
}
