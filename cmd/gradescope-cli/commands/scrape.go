package commands

import (
	"context"
	"log/slog"
	"time"

	"gradescope-backend/lib/configutil"
	"gradescope-backend/lib/scrapers/gradescope/core"
	"gradescope-backend/lib/scrapers/gradescope/view"
	"gradescope-backend/lib/serviceutil"
	"gradescope-backend/lib/sqliteutil"
	"gradescope-backend/services/coursedb"
	"gradescope-backend/services/coursedb/db"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

type Config struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var scrapeDb *string
var scrapeCourses *[]string
var scrapeWorkers *int

func init() {
	scrapeDb = scrapeCmd.Flags().String("db", "results.db", "The database to write scrape results to.")
	scrapeCourses = scrapeCmd.Flags().StringSlice("course", nil, "A course id, short name or name to scrape. May be repeated, scrapes everything when omitted.")
	scrapeWorkers = scrapeCmd.Flags().Int("workers", 1, "The number of courses to scrape concurrently.")
	rootCmd.AddCommand(scrapeCmd)
}

func createClient(ctx context.Context, cfg Config) view.Client {
	coreClient, err := core.NewClient(ctx, core.ClientOptions{
		BaseUrl: "https://www.gradescope.com",
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize core gradescope client", err)
	}

	loginCtx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	err = coreClient.LoginEmailPassword(loginCtx, cfg.Email, cfg.Password)
	if err != nil {
		serviceutil.Fatal("failed to login to gradescope", err)
	}
	return view.NewClient(coreClient)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--db <path/to/output.db>] [--course <selector>]...",
	Short: "Scrapes gradescope according to a config and writes to a database.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		slog.Info("scraping using user", "email", cfg.Email)
		client := createClient(cmd.Context(), cfg)

		out, err := sqliteutil.OpenDB(db.Schema, *scrapeDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer out.Close()

		selectors := make([]view.CourseSelector, len(*scrapeCourses))
		for i, raw := range *scrapeCourses {
			selectors[i] = view.CourseSelector(raw)
		}

		t1 := time.Now()
		err = coursedb.Scrape(cmd.Context(), coursedb.NewStore(out), client, coursedb.ScrapeOptions{
			Courses: selectors,
			Workers: *scrapeWorkers,
		})
		t2 := time.Now()
		if err != nil {
			serviceutil.Fatal("scrape failed", err)
		}

		slog.Info("scraping time", "seconds", t2.Sub(t1).Seconds())
	},
}
