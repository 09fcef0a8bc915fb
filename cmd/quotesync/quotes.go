package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Mschirtzinger/quotesync/internal/engine"
	"github.com/Mschirtzinger/quotesync/internal/quote"
	"github.com/Mschirtzinger/quotesync/internal/ui"
)

var addCmd = &cobra.Command{
	Use:     "add [text]",
	GroupID: "quotes",
	Short:   "Add a quote to the local collection",
	Long: `Add a quote. It is saved locally right away and pushed to the server on
the next sync cycle.

Without text on a terminal, an interactive form asks for the quote and its
category. Use "-" to read the text from stdin.

Example usage:
  quotesync add "Small steps every day." --category motivation
  echo "Keep going." | quotesync add -
  quotesync add`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		category, _ := cmd.Flags().GetString("category")

		var text string
		switch {
		case len(args) == 1 && args[0] == "-":
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				fatalf("failed to read stdin: %v", err)
			}
			text = string(data)
		case len(args) == 1:
			text = args[0]
		case ui.IsInteractive():
			var err error
			text, category, err = promptQuote(category)
			if err != nil {
				fatalf("%v", err)
			}
		default:
			fatalf("quote text is required (pass it as an argument or \"-\" for stdin)")
		}

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		r, err := a.engine.Add(ctx, text, category)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}
		fmt.Printf("%s Added to %s\n", ui.RenderPass("✓"), ui.RenderAccent(r.Category))
	},
}

// promptQuote runs the interactive add form.
func promptQuote(category string) (string, string, error) {
	var text string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Quote").
				Value(&text).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return engine.ErrEmptyText
					}
					return nil
				}),
			huh.NewInput().
				Title("Category").
				Placeholder(quote.DefaultCategory).
				Value(&category),
		),
	)
	if err := form.Run(); err != nil {
		return "", "", fmt.Errorf("input cancelled: %w", err)
	}
	return text, category, nil
}

var randomCmd = &cobra.Command{
	Use:     "random",
	GroupID: "quotes",
	Short:   "Show a random quote",
	Long: `Show a random quote from the selected category.

Without --category, the category chosen last with "quotesync categories
--select" is used ("all" by default).`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		category, _ := cmd.Flags().GetString("category")
		if !cmd.Flags().Changed("category") {
			selected, err := a.engine.SelectedCategory(ctx)
			if err != nil {
				a.Close()
				fatalf("%v", err)
			}
			category = selected
		}

		r, err := a.engine.Random(ctx, category)
		if errors.Is(err, engine.ErrNoQuotes) {
			fmt.Println(ui.RenderWarn(fmt.Sprintf("No quotes in category %q.", category)))
			return
		}
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}
		fmt.Println(ui.RenderQuote(r))
	},
}

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	GroupID: "quotes",
	Short:   "List categories, or select one for random",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		if cmd.Flags().Changed("select") {
			sel, _ := cmd.Flags().GetString("select")
			if err := a.engine.SelectCategory(ctx, sel); err != nil {
				a.Close()
				fatalf("%v", err)
			}
		}

		cats, err := a.engine.Categories(ctx)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}
		selected, err := a.engine.SelectedCategory(ctx)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}

		all := append([]string{quote.AllCategories}, cats...)
		for _, c := range all {
			if c == selected {
				fmt.Printf("%s %s\n", ui.RenderAccent("*"), ui.RenderAccent(c))
				continue
			}
			fmt.Printf("  %s\n", c)
		}
	},
}

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "quotes",
	Short:   "Export quotes as JSON or YAML",
	Long: `Export the collection as an array of {text, category}. Server ids are not
exported, so an exported file re-imports as local-only quotes.

Example usage:
  quotesync export > quotes.json
  quotesync export --format yaml -o quotes.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		formatName, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		format := quote.FormatFromPath(output)
		if cmd.Flags().Changed("format") || output == "" {
			f, err := quote.ParseFormat(formatName)
			if err != nil {
				fatalf("%v", err)
			}
			format = f
		}

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				a.Close()
				fatalf("failed to create %s: %v", output, err)
			}
			defer f.Close()
			w = f
		}

		if err := a.engine.Export(ctx, w, format); err != nil {
			a.Close()
			fatalf("export failed: %v", err)
		}
		if output != "" {
			fmt.Fprintf(os.Stderr, "%s Exported to %s\n", ui.RenderPass("✓"), output)
		}
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "quotes",
	Short:   "Import quotes from a JSON or YAML file",
	Long: `Import an array of {text, category}. Quotes whose text already exists are
skipped, and a file that is not a valid array is rejected without changing
anything. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		formatName, _ := cmd.Flags().GetString("format")

		path := args[0]
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			fatalf("failed to read %s: %v", path, err)
		}

		format := quote.FormatFromPath(path)
		if cmd.Flags().Changed("format") {
			format, err = quote.ParseFormat(formatName)
			if err != nil {
				fatalf("%v", err)
			}
		}

		ctx, cancel := signalContext()
		defer cancel()

		a := mustOpenApp(ctx)
		defer a.Close()

		res, err := a.engine.Import(ctx, data, format)
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}
		fmt.Printf("%s Imported %d quotes", ui.RenderPass("✓"), res.Added)
		if res.Skipped > 0 {
			fmt.Print(ui.RenderMuted(fmt.Sprintf(" (%d already present)", res.Skipped)))
		}
		fmt.Println()
	},
}

func init() {
	addCmd.Flags().StringP("category", "c", "", "Quote category (default \"general\")")
	randomCmd.Flags().StringP("category", "c", quote.AllCategories, "Category to pick from")
	categoriesCmd.Flags().String("select", "", "Remember this category for random")
	exportCmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")
	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	importCmd.Flags().StringP("format", "f", "", "Input format (default from file extension)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(randomCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
