package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lessonplay/internal/activation"
	"lessonplay/internal/app"
	"lessonplay/internal/catalog"
	"lessonplay/internal/components"
	"lessonplay/internal/devtools"
	"lessonplay/internal/state"
)

func newTable(headers ...string) *table.Table {
	return table.New().Border(lipgloss.NormalBorder()).Headers(headers...)
}

func newValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the course without opening the player",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			course, err := app.LoadCourse(cmd.Context(), cfg, components.Builtin())
			if err != nil {
				return err
			}
			return writeValidation(cmd.OutOrStdout(), course)
		},
	}
}

func writeValidation(w io.Writer, course catalog.Course) error {
	t := newTable("Lesson", "Title", "Duration", "Prompts", "Components", "Audio")
	for _, l := range course.LoadedLessons {
		prompts := l.Timeline.PromptCount()
		t.Row(
			l.LessonID,
			l.Title,
			catalog.FormatClock(l.Duration.Seconds()),
			strconv.Itoa(prompts),
			strconv.Itoa(len(l.Timeline.Bindings)-prompts),
			l.Audio.Source,
		)
	}
	_, err := fmt.Fprintf(w, "%s %s: %d lessons OK\n%s\n", course.CourseID, course.Version, len(course.LoadedLessons), t.String())
	return err
}

func newLessonsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "lessons",
		Short: "List lessons with saved progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			course, err := app.LoadCourse(cmd.Context(), cfg, components.Builtin())
			if err != nil {
				return err
			}
			store, err := app.OpenStore(cmd.Context(), cfg, course.CourseID, nil)
			if err != nil {
				return err
			}
			defer store.Close(cmd.Context())

			t := newTable("Lesson", "Title", "Duration", "Progress", "Completed", "Quiz")
			for _, l := range course.LoadedLessons {
				rec := store.Read(l.LessonID)
				completed := "-"
				if rec.CompletedAt != nil {
					completed = humanize.Time(*rec.CompletedAt)
				} else if rec.Completed {
					completed = "yes"
				}
				scores := store.QuizScores(l.LessonID)
				correct := 0
				for _, ok := range scores {
					if ok {
						correct++
					}
				}
				t.Row(
					l.LessonID,
					l.Title,
					catalog.FormatClock(l.Duration.Seconds()),
					fmt.Sprintf("%d%%", rec.Percentage),
					completed,
					fmt.Sprintf("%d/%d", correct, l.Timeline.PromptCount()),
				)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\nOverall: %d%% complete\n",
				course.Title, t.String(), store.Overall(course.LessonIDs()))
			return err
		},
	}
}

func newBookmarksCmd(configPath *string) *cobra.Command {
	var lessonID string
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "List saved bookmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, *configPath, func(course catalog.Course, store *state.Store) error {
				ids := course.LessonIDs()
				if lessonID != "" {
					ids = []string{lessonID}
				}
				return writeBookmarks(cmd.OutOrStdout(), store, ids)
			})
		},
	}
	cmd.Flags().StringVar(&lessonID, "lesson", "", "only this lesson")
	cmd.AddCommand(&cobra.Command{
		Use:   "rm ID",
		Short: "Delete a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bookmark id %q", args[0])
			}
			return withStore(cmd, *configPath, func(_ catalog.Course, store *state.Store) error {
				if !store.DeleteBookmark(id) {
					return fmt.Errorf("bookmark %d not found", id)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted bookmark %d\n", id)
				return err
			})
		},
	})
	return cmd
}

func withStore(cmd *cobra.Command, configPath string, fn func(catalog.Course, *state.Store) error) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	course, err := app.LoadCourse(cmd.Context(), cfg, components.Builtin())
	if err != nil {
		return err
	}
	store, err := app.OpenStore(cmd.Context(), cfg, course.CourseID, nil)
	if err != nil {
		return err
	}
	if err := fn(course, store); err != nil {
		_ = store.Close(cmd.Context())
		return err
	}
	return store.Close(cmd.Context())
}

func writeBookmarks(w io.Writer, store state.ProgressStore, lessonIDs []string) error {
	var all []state.Bookmark
	for _, id := range lessonIDs {
		all = append(all, store.ListBookmarks(id)...)
	}
	if len(all) == 0 {
		_, err := fmt.Fprintln(w, "no bookmarks")
		return err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	t := newTable("ID", "Lesson", "At", "Note", "Saved")
	for _, b := range all {
		t.Row(
			strconv.FormatInt(b.ID, 10),
			b.LessonID,
			catalog.FormatClock(b.At),
			b.Note,
			humanize.Time(b.CreatedAt),
		)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func newSimulateCmd(configPath *string) *cobra.Command {
	var (
		step    float64
		answers []string
	)
	cmd := &cobra.Command{
		Use:   "simulate LESSON",
		Short: "Print a lesson's activation schedule without audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			parsed, err := parseAnswers(answers)
			if err != nil {
				return err
			}
			loader := catalog.NewLoader(components.Builtin())
			loader.DefaultWindow = cfg.Activation.DefaultWindowSeconds
			course, err := loader.LoadCourse(cmd.Context(), cfg.CourseDir)
			if err != nil {
				return err
			}
			lesson, err := loader.FindLesson(course, args[0])
			if err != nil {
				return err
			}
			entries, err := devtools.NewManager().Simulate(lesson.Timeline, devtools.Options{
				Step:    step,
				Answers: parsed,
			})
			if err != nil {
				return err
			}
			return devtools.WriteLog(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().Float64Var(&step, "step", 1, "seconds between evaluations")
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "answer a prompt when it activates, as ID=OPTION")
	return cmd
}

// parseAnswers reads ID=OPTION pairs; options are zero-based.
func parseAnswers(raw []string) (map[activation.BindingID]int, error) {
	out := make(map[activation.BindingID]int, len(raw))
	for _, r := range raw {
		id, opt, ok := strings.Cut(r, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid answer %q, want ID=OPTION", r)
		}
		n, err := strconv.Atoi(strings.TrimSpace(opt))
		if err != nil {
			return nil, fmt.Errorf("invalid answer option in %q: %w", r, err)
		}
		out[activation.BindingID(strings.TrimSpace(id))] = n
	}
	return out, nil
}
