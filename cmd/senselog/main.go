package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/calens/senselog/internal/api"
	"github.com/calens/senselog/internal/classifier"
	"github.com/calens/senselog/internal/domain"
	"github.com/calens/senselog/internal/inference"
	"github.com/calens/senselog/internal/logging"
	"github.com/calens/senselog/internal/sentiment"
	"github.com/calens/senselog/internal/stats"
	"github.com/calens/senselog/internal/store"
)

var dbPath string

func main() {
	// Default database location
	home, _ := os.UserHomeDir()
	defaultDB := filepath.Join(home, ".senselog", "senselog.db")

	rootCmd := &cobra.Command{
		Use:   "senselog",
		Short: "Personal observation log with on-device scoring",
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "database path")

	rootCmd.AddCommand(photoCmd())
	rootCmd.AddCommand(moodCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(dbPath)
}

// getInference wires the built-in capabilities. A missing API key leaves the
// image classifier nil; classification then fails typed as model unavailable.
func getInference() *inference.Service {
	var imageClassifier inference.ImageClassifier
	if clf, err := classifier.New(); err == nil {
		imageClassifier = clf
	}
	return inference.New(imageClassifier, sentiment.New(), nil)
}

func photoCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "photo [file]",
		Short: "Classify an image and save the observation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			if name == "" {
				name = filepath.Base(args[0])
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Print("Classifying... ")
			result, err := getInference().ClassifyImage(cmd.Context(), data)
			if err != nil {
				fmt.Println("failed")
				return err
			}
			fmt.Println("done")

			photo, err := s.SavePhoto(cmd.Context(), domain.PhotoObservation{
				Label:      result.Label,
				Confidence: result.Confidence,
				ImageName:  name,
				ImageData:  data,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Saved photo: %s\n", photo.ID[:8])
			fmt.Printf("Label: %s (%s, %s confidence)\n",
				photo.Label,
				domain.FormatConfidence(photo.Confidence),
				domain.ConfidenceLabel(photo.Confidence))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name for the image")
	return cmd
}

func moodCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mood [tag] [note...]",
		Short: "Log a mood (great, good, neutral, anxious, sad) with an optional note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mood := domain.Mood(args[0])
			if !mood.Valid() {
				return fmt.Errorf("unknown mood %q (use: great, good, neutral, anxious, sad)", args[0])
			}
			note := strings.Join(args[1:], " ")

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			sentimentScore := domain.FallbackSentiment(mood)
			if strings.TrimSpace(note) != "" {
				if score, err := getInference().ScoreSentiment(cmd.Context(), note); err == nil {
					sentimentScore = score
				}
			}

			entry, err := s.SaveMood(cmd.Context(), domain.MoodObservation{
				Mood:      mood,
				Note:      note,
				Sentiment: sentimentScore,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Logged mood: %s\n", entry.ID[:8])
			fmt.Printf("%s %s — sentiment %.2f (%s)\n",
				entry.Mood.Emoji(), entry.Mood, entry.Sentiment, domain.SentimentLabel(entry.Sentiment))
			return nil
		},
	}
}

// historyRow is one merged line of the list output.
type historyRow struct {
	id      string
	when    time.Time
	summary string
}

func fetchHistory(ctx context.Context, s *store.Store) ([]historyRow, error) {
	photos, moods, err := fetchSnapshots(ctx, s)
	if err != nil {
		return nil, err
	}

	var rows []historyRow
	for _, p := range photos {
		rows = append(rows, historyRow{
			id:   p.ID,
			when: p.CapturedAt,
			summary: fmt.Sprintf("photo  %-20s %s", truncate(p.Label, 20),
				domain.FormatConfidence(p.Confidence)),
		})
	}
	for _, m := range moods {
		summary := fmt.Sprintf("mood   %s %-8s", m.Mood.Emoji(), m.Mood)
		if m.Note != "" {
			summary += " " + truncate(m.Note, 40)
		}
		rows = append(rows, historyRow{id: m.ID, when: m.RecordedAt, summary: summary})
	}

	// Newest first across both kinds.
	sort.Slice(rows, func(i, j int) bool { return rows[i].when.After(rows[j].when) })
	return rows, nil
}

// fetchSnapshots reads both observation kinds concurrently.
func fetchSnapshots(ctx context.Context, s *store.Store) ([]domain.PhotoObservation, []domain.MoodObservation, error) {
	var (
		photos []domain.PhotoObservation
		moods  []domain.MoodObservation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		photos, err = s.ListPhotos(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		moods, err = s.ListMoods(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return photos, moods, nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List observations grouped by day",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := fetchHistory(cmd.Context(), s)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No observations yet. Use 'senselog photo' or 'senselog mood' to capture one.")
				return nil
			}

			now := time.Now()
			section := ""
			for _, row := range rows {
				if title := stats.SectionTitle(row.when, now); title != section {
					section = title
					fmt.Printf("\n%s\n", section)
				}
				fmt.Printf("  %s  %s  %s\n", row.id[:8], row.when.Format("Jan 02 15:04"), row.summary)
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show observation details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			photos, moods, err := fetchSnapshots(ctx, s)
			if err != nil {
				return err
			}

			for _, p := range photos {
				if strings.HasPrefix(p.ID, args[0]) {
					fmt.Printf("ID:         %s\n", p.ID)
					fmt.Printf("Kind:       photo\n")
					fmt.Printf("Captured:   %s\n", p.CapturedAt.Format("2006-01-02 15:04:05"))
					fmt.Printf("Label:      %s\n", p.Label)
					fmt.Printf("Confidence: %s (%s)\n",
						domain.FormatConfidence(p.Confidence), domain.ConfidenceLabel(p.Confidence))
					if p.ImageName != "" {
						fmt.Printf("Image:      %s (%d bytes)\n", p.ImageName, len(p.ImageData))
					}
					return nil
				}
			}
			for _, m := range moods {
				if strings.HasPrefix(m.ID, args[0]) {
					fmt.Printf("ID:        %s\n", m.ID)
					fmt.Printf("Kind:      mood\n")
					fmt.Printf("Recorded:  %s\n", m.RecordedAt.Format("2006-01-02 15:04:05"))
					fmt.Printf("Mood:      %s %s\n", m.Mood.Emoji(), m.Mood)
					fmt.Printf("Sentiment: %.2f (%s)\n", m.Sentiment, domain.SentimentLabel(m.Sentiment))
					if m.Note != "" {
						fmt.Printf("Note:\n%s\n", m.Note)
					}
					return nil
				}
			}

			return fmt.Errorf("observation not found: %s", args[0])
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete one observation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			photos, moods, err := fetchSnapshots(ctx, s)
			if err != nil {
				return err
			}

			for _, p := range photos {
				if strings.HasPrefix(p.ID, args[0]) {
					if err := s.DeletePhoto(ctx, p.ID); err != nil {
						return err
					}
					fmt.Printf("Deleted photo %s\n", p.ID[:8])
					return nil
				}
			}
			for _, m := range moods {
				if strings.HasPrefix(m.ID, args[0]) {
					if err := s.DeleteMood(ctx, m.ID); err != nil {
						return err
					}
					fmt.Printf("Deleted mood %s\n", m.ID[:8])
					return nil
				}
			}

			return fmt.Errorf("observation not found: %s", args[0])
		},
	}
}

func clearCmd() *cobra.Command {
	var photosOnly, moodsOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all observations of a kind (both kinds by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if !moodsOnly {
				if err := s.ClearPhotos(ctx); err != nil {
					return err
				}
				fmt.Println("Cleared photo observations.")
			}
			if !photosOnly {
				if err := s.ClearMoods(ctx); err != nil {
					return err
				}
				fmt.Println("Cleared mood observations.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&photosOnly, "photos", false, "clear only photo observations")
	cmd.Flags().BoolVar(&moodsOnly, "moods", false, "clear only mood observations")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show summary statistics and weekly trends",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			photos, moods, err := fetchSnapshots(cmd.Context(), s)
			if err != nil {
				return err
			}

			now := time.Now()
			printPhotoStats(photos, now)
			fmt.Println()
			printMoodStats(moods, now)
			return nil
		},
	}
}

func printPhotoStats(photos []domain.PhotoObservation, now time.Time) {
	capturedAt := func(p domain.PhotoObservation) time.Time { return p.CapturedAt }
	label := func(p domain.PhotoObservation) string { return p.Label }
	confidence := func(p domain.PhotoObservation) float64 { return p.Confidence }

	fmt.Println("Photos")
	fmt.Printf("  Total: %d   Today: %d\n",
		stats.TotalCount(photos), stats.CountOnDay(photos, capturedAt, now))
	if common, ok := stats.MostCommon(photos, label); ok {
		fmt.Printf("  Most common label: %s\n", common)
	}
	if avg, ok := stats.Average(photos, confidence); ok {
		fmt.Printf("  Average confidence: %s (%s)\n",
			domain.FormatConfidence(avg), domain.ConfidenceLabel(avg))
	}
	for labelKey, share := range stats.Distribution(photos, label) {
		fmt.Printf("    %-20s %3d  %5.1f%%\n", labelKey, share.Count, share.Percent)
	}
}

func printMoodStats(moods []domain.MoodObservation, now time.Time) {
	recordedAt := func(m domain.MoodObservation) time.Time { return m.RecordedAt }
	mood := func(m domain.MoodObservation) domain.Mood { return m.Mood }
	sentimentOf := func(m domain.MoodObservation) float64 { return m.Sentiment }

	fmt.Println("Moods")
	fmt.Printf("  Total: %d   Today: %d\n",
		stats.TotalCount(moods), stats.CountOnDay(moods, recordedAt, now))
	if avg, ok := stats.Average(moods, sentimentOf); ok {
		fmt.Printf("  Average sentiment: %.2f (%s)\n", avg, domain.SentimentLabel(avg))
	}

	weekly := stats.WeeklySeries(moods, recordedAt, sentimentOf, now)
	if len(weekly) > 0 {
		fmt.Println("  Weekly trend:")
		for _, bucket := range weekly {
			fmt.Printf("    %s  %+.2f  (%d entries)\n",
				bucket.Day.Format("Mon Jan 02"), bucket.Average, bucket.Count)
		}
	}

	dist := stats.Distribution(moods, mood)
	if len(dist) > 0 {
		fmt.Println("  Distribution:")
		// Fixed scale order, not map order.
		for _, m := range domain.Moods {
			if share, ok := dist[m]; ok {
				fmt.Printf("    %s %-8s %3d  %5.1f%%\n", m.Emoji(), m, share.Count, share.Percent)
			}
		}
	}
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func serveCmd() *cobra.Command {
	var addr string
	var logMode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			// Note: don't defer s.Close() as server runs indefinitely

			log, err := logging.New(logMode)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer log.Sync()

			server := api.New(s, getInference(), addr, log)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	cmd.Flags().StringVar(&logMode, "log", "dev", "log mode (dev or prod)")
	return cmd
}
