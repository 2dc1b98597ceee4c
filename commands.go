// ABOUTME: Cobra subcommands for the KisanDost CLI
// ABOUTME: Each command loads the app, runs one operation and prints the result
package main

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kisandost/kisandost-go/internal/genai"
	"github.com/kisandost/kisandost-go/internal/playback"
	"github.com/kisandost/kisandost-go/internal/scan"
	"github.com/kisandost/kisandost-go/internal/ui"
	"github.com/kisandost/kisandost-go/internal/version"
)

func newGuidesCmd(g *globals) *cobra.Command {
	var crops string
	cmd := &cobra.Command{
		Use:   "guides",
		Short: "List audio guides recommended for your crops",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			for _, guide := range a.Guides(crops) {
				fmt.Fprintf(out, "[%s] %s\n    %s\n", guide.ID, guide.Title, guide.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&crops, "crops", "", "Crops to match (default: profile primary crops)")
	return cmd
}

func newListenCmd(g *globals) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "listen <guide-id>",
		Short: "Play an audio guide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := g.load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			guide, err := a.Guide(args[0])
			if err != nil {
				return err
			}
			if !a.Online(ctx) {
				return fmt.Errorf("audio guides need a connection: %w", scan.ErrOffline)
			}

			if save != "" {
				if err := a.SaveSpeech(ctx, guide.Script(), save); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %q to %s\n", guide.Title, save)
				return nil
			}

			if g.streamLogs {
				log.Printf("Playing guide %s: %s", guide.ID, guide.Title)
				return a.Narrate(ctx, guide.Script())
			}

			var prog *tea.Program
			player, err := a.Player(func(s playback.Snapshot) {
				if prog != nil {
					prog.Send(ui.StatusFromSnapshot(s))
				}
			})
			if err != nil {
				return err
			}
			defer player.Close()

			prog = ui.Run(ui.NewModel(guide.Title, guide.Script(), player, a.Config().Profile.Theme))
			go func() {
				<-ctx.Done()
				prog.Quit()
			}()

			_, err = prog.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "Write the guide audio to a WAV file instead of playing it")
	return cmd
}

func newScanCmd(g *globals) *cobra.Command {
	var speak bool
	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Check a product label photo for counterfeits (queued when offline)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := g.load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Scan(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Queued {
				fmt.Fprintf(out, "Offline: scan %s saved. It will be verified when you sync.\n", result.Pending.ID)
				return nil
			}

			printRecord(out, *result.Record)
			if speak {
				if err := a.Narrate(ctx, result.Record.Narration()); err != nil {
					fmt.Fprintln(out, genai.UserMessage(err))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&speak, "speak", false, "Read the verdict aloud")
	return cmd
}

func newSyncCmd(g *globals) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Verify scans captured while offline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := g.load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if watch {
				fmt.Fprintln(cmd.OutOrStdout(), "Watching connectivity; pending scans sync when the network returns. Ctrl+C to stop.")
				a.WatchSync(ctx)
				return nil
			}

			report, err := a.Sync(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d: %d verified, %d failed, %d dropped, %d still pending (%s)\n",
				report.Processed, len(report.Synced), len(report.Failed), len(report.Dropped), report.Remaining,
				time.Duration(report.Duration)*time.Millisecond)
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and sync whenever connectivity returns")
	return cmd
}

func newPendingCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List scans waiting to be verified",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			pending, err := a.Pending(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				fmt.Fprintln(out, "No pending scans")
				return nil
			}
			for _, p := range pending {
				fmt.Fprintf(out, "%s  captured %s  %d bytes  attempts=%d\n",
					p.ID, time.UnixMilli(p.CapturedAtMs).Format(time.DateTime), len(p.ImageData), p.Attempts)
			}
			return nil
		},
	}
}

func newHistoryCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show past verifications, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.History(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No verifications yet")
				return nil
			}
			for _, r := range records {
				printRecord(out, r)
			}
			return nil
		},
	}
}

func newPricesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "prices [location]",
		Short: "Show mandi prices and smart sale advice",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			location := strings.Join(args, "")
			report, err := a.Prices(cmd.Context(), location)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (updated %s)\n", report.Location, report.Snapshot.Timestamp)
			if report.Stale {
				fmt.Fprintln(out, "Warning: prices are more than 24 hours old")
			}
			if report.RefreshErr != nil {
				fmt.Fprintf(out, "Showing saved prices: %s\n", genai.UserMessage(report.RefreshErr))
			}
			for _, p := range report.Snapshot.Data {
				fmt.Fprintf(out, "  %s %-12s ₹%-8.0f /%s  %s %+.0f\n", p.Emoji, p.Crop, p.Price, p.Unit, trendArrow(p.Trend), p.Change)
			}
			if report.Advisory != "" {
				fmt.Fprintf(out, "Advice: %s\n", report.Advisory)
			}
			return nil
		},
	}
}

func newFavoriteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <location>",
		Short: "Mark or unmark a favorite market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			fav, err := a.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if fav {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now your favorite market\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s removed from favorites\n", args[0])
			}
			return nil
		},
	}
}

func newWeatherCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "weather [location]",
		Short: "Show the agricultural weather report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, report, err := a.Weather(cmd.Context(), strings.Join(args, ""))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s): %.0f°C %s\n", res.Location, res.Source, report.Temp, report.Condition)
			fmt.Fprintf(out, "  Humidity %.0f%%  Wind %.0f km/h  UV %.0f  Rain %.0f%%\n",
				report.Humidity, report.WindSpeed, report.UVIndex, report.RainfallChance)
			for _, day := range report.Forecast {
				fmt.Fprintf(out, "  %-4s %.0f°C\n", day.Day, day.Temp)
			}
			if report.AgriAdvice != "" {
				fmt.Fprintf(out, "Advice: %s\n", report.AgriAdvice)
			}
			return nil
		},
	}
}

func newAskCmd(g *globals) *cobra.Command {
	var speak bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the farming advisor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := g.load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			answer, err := a.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)

			if speak {
				if err := a.Narrate(ctx, answer); err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), genai.UserMessage(err))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&speak, "speak", false, "Read the answer aloud")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		// Version needs no log file
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", version.Product, version.Version, version.Manufacturer)
		},
	}
}

func printRecord(out io.Writer, r scan.VerificationRecord) {
	verdict := "AUTHENTIC"
	if !r.Authentic() {
		verdict = "COUNTERFEIT"
	}
	fmt.Fprintf(out, "%s  %s %s (%s)  trust %.0f%%  %s\n",
		verdict, r.Brand, r.ProductName, r.ID, r.ConfidenceScore,
		time.UnixMilli(r.VerifiedAtMs).Format(time.DateTime))
	if r.Reasoning != "" {
		fmt.Fprintf(out, "    %s\n", r.Reasoning)
	}
}

func trendArrow(trend string) string {
	switch trend {
	case "up":
		return "▲"
	case "down":
		return "▼"
	}
	return "■"
}
