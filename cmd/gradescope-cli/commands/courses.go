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

var coursesDb *string

func init() {
	coursesDb = coursesCmd.Flags().String("db", "results.db", "The database to read scrape results from.")
	rootCmd.AddCommand(coursesCmd)
}

var coursesCmd = &cobra.Command{
	Use:   "courses [--db <path/to/results.db>]",
	Short: "Prints the courses and assignments found by a scrape.",
	Run: func(cmd *cobra.Command, args []string) {
		database, err := sqliteutil.OpenDB(db.Schema, *coursesDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()
		store := coursedb.NewStore(database)

		courses, err := store.ListCourses(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list courses", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Short Name", "Name", "Assignment", "Points"})

		for _, course := range courses {
			assignments, err := store.ListAssignments(cmd.Context(), course.Id)
			if err != nil {
				serviceutil.Fatal("failed to list assignments", err)
			}
			if len(assignments) == 0 {
				t.AppendRow(table.Row{course.Id, course.ShortName, course.Name, "", ""})
				continue
			}
			for _, assignment := range assignments {
				t.AppendRow(table.Row{
					course.Id, course.ShortName, course.Name,
					assignment.Name, assignment.Points,
				})
			}
		}

		t.Render()
	},
}
