// Command caddie runs a voice-assisted golf round in the terminal and keeps
// course history in a local SQLite database.
//
// Usage:
//
//	caddie [-config caddie.yaml] courses
//	caddie [-config caddie.yaml] add-course -name "Pine Valley" [-holes 18]
//	caddie [-config caddie.yaml] stats -course <id>
//	caddie [-config caddie.yaml] round -course <id>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-caddie/core/golf"
	"github.com/koscakluka/ema-caddie/internal/config"
	"github.com/koscakluka/ema-caddie/internal/store/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "caddie.yaml", "path to the YAML configuration file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		return 2
	}

	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer store.Close()

	command, args := flag.Arg(0), flag.Args()[1:]
	switch command {
	case "courses":
		err = listCourses(ctx, store, os.Stdout)
	case "add-course":
		err = addCourse(ctx, store, args, os.Stdout)
	case "stats":
		err = printStats(ctx, store, args, os.Stdout)
	case "round":
		err = playRound(ctx, cfg, store, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	} else if err != nil {
		slog.Error("command failed", "command", command, "error", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: caddie [flags] <command> [command flags]

Commands:
  courses      list stored courses
  add-course   store a new course with default holes
  stats        show scoring stats for a course
  round        play a round on a course

Flags:
`)
	flag.PrintDefaults()
}

func listCourses(ctx context.Context, store *sqlite.Store, out io.Writer) error {
	courses, err := store.Courses(ctx)
	if err != nil {
		return err
	}
	if len(courses) == 0 {
		fmt.Fprintln(out, "No courses yet. Add one with: caddie add-course -name <name>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tHOLES\tPAR")
	for _, course := range courses {
		par := 0
		for _, hole := range course.Holes {
			par += hole.Par
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", course.ID, course.Name, len(course.Holes), par)
	}
	return w.Flush()
}

func addCourse(ctx context.Context, store *sqlite.Store, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add-course", flag.ContinueOnError)
	name := fs.String("name", "", "course name")
	holes := fs.Int("holes", 18, "number of holes, each par 4 at 400 yards")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *holes < 1 {
		return fmt.Errorf("-holes must be at least 1")
	}

	course, err := golf.NewCourse(*name, golf.DefaultHoles(*holes))
	if err != nil {
		return err
	}
	if err := store.AddCourse(ctx, course); err != nil {
		return err
	}

	slog.Info("course added", "course_id", course.ID, "name", course.Name, "holes", len(course.Holes))
	fmt.Fprintf(out, "Added %s (%d holes): %s\n", course.Name, len(course.Holes), course.ID)
	return nil
}

func printStats(ctx context.Context, store *sqlite.Store, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	courseID := fs.String("course", "", "course id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	course, err := store.Course(ctx, strings.TrimSpace(*courseID))
	if err != nil {
		return err
	}
	stats, err := store.CourseStats(ctx, course.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d finished round(s)\n", course.Name, stats.RoundsPlayed)
	if stats.RoundsPlayed == 0 {
		return nil
	}
	fmt.Fprintf(out, "Scoring average %.1f, best %d\n\n", stats.ScoringAverage, stats.BestScore)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HOLE\tPAR\tAVG\tVS PAR")
	for _, hole := range stats.Holes {
		if hole.Samples == 0 {
			fmt.Fprintf(w, "%d\t%d\t-\t-\n", hole.HoleNumber, hole.Par)
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%.2f\t%+.2f\n", hole.HoleNumber, hole.Par, hole.AverageScore, hole.AverageScore-float64(hole.Par))
	}
	return w.Flush()
}
