package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rajasatyajit/EcoScan/internal/analytics"
	"github.com/rajasatyajit/EcoScan/internal/catalog"
	"github.com/rajasatyajit/EcoScan/internal/ledger"
	"github.com/rajasatyajit/EcoScan/internal/models"
	"github.com/rajasatyajit/EcoScan/internal/service"
	"github.com/rajasatyajit/EcoScan/pkg/utils"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <product-id>",
		Short: "Look up a product without recording a scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			view, err := a.Service.Product(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(view, func(w io.Writer) { writeProduct(w, view) })
		},
	}
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <product-id>",
		Short: "Resolve a product and record it in the history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			result, err := a.Service.Scan(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			f.VerboseLog("Resolved %s from %s", result.Product.ID, result.Product.Source)

			return f.SuccessWithWarning(result, result.Warning, func(w io.Writer) {
				writeProduct(w, result.Product)
				fmt.Fprintf(w, "\nScan %s, +%d points (total %d)\n", result.Outcome, ledger.PointsPerScan, result.Points)
			})
		},
	}
}

type historyFlags struct {
	limit    int
	offset   int
	products []string
	since    string
	until    string
}

func (hf historyFlags) query() (models.HistoryQuery, error) {
	q := models.HistoryQuery{Limit: hf.limit, Offset: hf.offset}
	if hf.limit < 0 || hf.offset < 0 {
		return q, fmt.Errorf("limit and offset must be non-negative")
	}
	for _, id := range hf.products {
		if id = utils.NormalizeIdentifier(id); id != "" {
			q.ProductIDs = append(q.ProductIDs, id)
		}
	}
	if hf.since != "" {
		t, err := time.Parse(time.RFC3339, hf.since)
		if err != nil {
			return q, fmt.Errorf("invalid --since: %w", err)
		}
		q.Since = t
	}
	if hf.until != "" {
		t, err := time.Parse(time.RFC3339, hf.until)
		if err != nil {
			return q, fmt.Errorf("invalid --until: %w", err)
		}
		q.Until = t
	}
	return q, nil
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	hf := historyFlags{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scans, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			q, err := hf.query()
			if err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "invalid flags", err))
			}

			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			events := a.Service.History(q)
			return f.Success(events, func(w io.Writer) { writeHistory(w, events) })
		},
	}

	cmd.Flags().IntVar(&hf.limit, "limit", 0, "maximum events to list (0 for all)")
	cmd.Flags().IntVar(&hf.offset, "offset", 0, "events to skip")
	cmd.Flags().StringSliceVar(&hf.products, "product", nil, "only this product id (repeatable)")
	cmd.Flags().StringVar(&hf.since, "since", "", "only events at or after this RFC3339 time")
	cmd.Flags().StringVar(&hf.until, "until", "", "only events at or before this RFC3339 time")

	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show points, streak, daily goal and the 7-day trend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			stats := a.Service.Stats()
			return f.Success(stats, func(w io.Writer) { writeStats(w, stats) })
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the scan history and reset points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return f.Fail(err)
			}
			defer a.Close()

			m, err := a.Service.Clear(cmd.Context())
			if err != nil {
				return f.Fail(err)
			}
			return f.SuccessWithWarning(m, m.Warning, func(w io.Writer) {
				fmt.Fprintln(w, "History cleared")
			})
		},
	}
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the local fallback catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			cat, err := catalog.Load(rootOpts.config.Catalog.Path)
			if err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "failed to load catalog", err))
			}

			products := cat.All()
			return f.Success(products, func(w io.Writer) { writeCatalog(w, products) })
		},
	}
}

func writeProduct(w io.Writer, p *service.ProductView) {
	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.Brand)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", p.ID)
	fmt.Fprintf(tw, "Source:\t%s\n", p.Source)
	fmt.Fprintf(tw, "Score:\t%d (grade %s)\n", p.Score, p.Grade)
	fmt.Fprintf(tw, "Carbon:\t%s [%s]\t%s\n", p.Impact.Carbon, p.ImpactClasses[models.DimensionCarbon], p.Details.CarbonValue)
	fmt.Fprintf(tw, "Plastic:\t%s [%s]\t%s\n", p.Impact.Plastic, p.ImpactClasses[models.DimensionPlastic], p.Details.PlasticValue)
	fmt.Fprintf(tw, "Recyclability:\t%s [%s]\t\n", p.Impact.Recyclability, p.ImpactClasses[models.DimensionRecyclability])
	fmt.Fprintf(tw, "Ethics:\t%s [%s]\t%s\n", p.Impact.Ethics, p.ImpactClasses[models.DimensionEthics], p.Details.EthicsValue)
	tw.Flush()
}

func writeHistory(w io.Writer, events []models.ScanEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No scans recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tPRODUCT\tGRADE\tNAME")
	for _, e := range events {
		grade, name := "-", "-"
		if e.Product != nil {
			grade, name = string(e.Product.Grade), e.Product.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.ProductID, grade, name)
	}
	tw.Flush()
}

func writeStats(w io.Writer, s analytics.Summary) {
	fmt.Fprintf(w, "Points:      %d\n", s.Points)
	fmt.Fprintf(w, "Scans:       %d\n", s.Scans)
	fmt.Fprintf(w, "Streak:      %d days\n", s.Streak)
	fmt.Fprintf(w, "Daily goal:  %d%%\n", s.DailyGoalPercent)

	fmt.Fprintln(w, "\nLast 7 days:")
	for _, d := range s.Trend {
		fmt.Fprintf(w, "  %s %s  %4d %s\n", d.Weekday, d.Date, d.Points, strings.Repeat("#", d.Points/10))
	}

	fmt.Fprintln(w, "\nBadges:")
	for _, b := range s.Badges {
		mark := " "
		if b.Unlocked {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %s (%d points)\n", mark, b.Title, b.Threshold)
	}
}

func writeCatalog(w io.Writer, products []models.Product) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGRADE\tSCORE\tNAME")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s (%s)\n", p.ID, p.Grade, p.Score, p.Name, p.Brand)
	}
	tw.Flush()
}
