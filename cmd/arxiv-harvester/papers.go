// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-harvester/internal/store"
	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Query the local papers database",
}

// withStore opens the database and runs fn against it.
func withStore(cmd *cobra.Command, fn func(*store.Store) error) error {
	db, err := store.Open(dbPath(cmd))
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

// --- list ---

var papersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored papers with pagination",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		orderBy, _ := cmd.Flags().GetString("order-by")
		desc, _ := cmd.Flags().GetBool("desc")

		return withStore(cmd, func(db *store.Store) error {
			papers, err := db.ListPapers(context.Background(), limit, offset, orderBy, desc)
			if err != nil {
				return err
			}
			return printPapers(cmd, papers)
		})
	},
}

// --- recent ---

var papersRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recently published papers",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withStore(cmd, func(db *store.Store) error {
			papers, err := db.GetRecentPapers(context.Background(), limit)
			if err != nil {
				return err
			}
			return printPapers(cmd, papers)
		})
	},
}

// --- search ---

var papersSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search stored papers by title or abstract keyword",
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		abstract, _ := cmd.Flags().GetString("abstract")
		if title == "" && abstract == "" {
			return fmt.Errorf("provide --title and/or --abstract")
		}

		return withStore(cmd, func(db *store.Store) error {
			papers, err := db.SearchPapers(context.Background(), title, abstract)
			if err != nil {
				return err
			}
			return printPapers(cmd, papers)
		})
	},
}

// --- author ---

var papersAuthorCmd = &cobra.Command{
	Use:   "author [name]",
	Short: "Show papers by an author",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(db *store.Store) error {
			papers, err := db.GetPapersByAuthor(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printPapers(cmd, papers)
		})
	},
}

// --- range ---

var papersRangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Show papers published within a date range (inclusive)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")

		from, err := parseDate(fromStr)
		if err != nil {
			return err
		}
		to, err := parseDate(toStr)
		if err != nil {
			return err
		}
		if from.IsZero() || to.IsZero() {
			return fmt.Errorf("both --from and --to are required")
		}
		// Make the end bound inclusive for the whole day.
		to = to.Add(24*time.Hour - time.Second)

		return withStore(cmd, func(db *store.Store) error {
			papers, err := db.GetPapersByDateRange(context.Background(), from, to)
			if err != nil {
				return err
			}
			return printPapers(cmd, papers)
		})
	},
}

// --- get ---

var papersGetCmd = &cobra.Command{
	Use:   "get [arxiv-id]",
	Short: "Show one paper by its arXiv ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(db *store.Store) error {
			p, err := db.GetPaperByID(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printPapers(cmd, []types.Paper{*p})
		})
	},
}

// --- categories ---

var papersCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Count stored papers per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(db *store.Store) error {
			counts, err := db.CountByCategory(context.Background())
			if err != nil {
				return err
			}

			names := make([]string, 0, len(counts))
			for name := range counts {
				names = append(names, name)
			}
			sort.Slice(names, func(i, j int) bool {
				if counts[names[i]] != counts[names[j]] {
					return counts[names[i]] > counts[names[j]]
				}
				return names[i] < names[j]
			})

			for _, name := range names {
				fmt.Printf("%-16s %d\n", name, counts[name])
			}
			return nil
		})
	},
}

// --- delete ---

var papersDeleteCmd = &cobra.Command{
	Use:   "delete [arxiv-id]",
	Short: "Delete one paper and prune orphaned authors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(db *store.Store) error {
			deleted, err := db.Delete(context.Background(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("paper %s not found", args[0])
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		})
	},
}

// --- export ---

var papersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all stored papers to YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		return withStore(cmd, func(db *store.Store) error {
			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}
			if err := db.ExportYAML(context.Background(), out); err != nil {
				return err
			}
			if output != "" {
				fmt.Printf("Exported to %s\n", output)
			}
			return nil
		})
	},
}

// --- output helpers ---

func printPapers(cmd *cobra.Command, papers []types.Paper) error {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Println("No papers found.")
		return nil
	}

	fmt.Printf("%-16s  %-56s  %-24s  %-10s  %s\n", "ID", "Title", "Authors", "Published", "Category")
	fmt.Println(strings.Repeat("-", 120))

	for _, p := range papers {
		title := p.Title
		if len(title) > 56 {
			title = title[:53] + "..."
		}
		published := ""
		if !p.Published.IsZero() {
			published = p.Published.Format("2006-01-02")
		}
		fmt.Printf("%-16s  %-56s  %-24s  %-10s  %s\n",
			p.ExternalID, title, formatAuthors(p.Authors), published, p.Category)
	}

	fmt.Printf("\n%d papers\n", len(papers))
	return nil
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 24)
	default:
		return truncate(authors[0], 17) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	papersListCmd.Flags().Int("limit", 0, "maximum papers to list (0 = all)")
	papersListCmd.Flags().Int("offset", 0, "papers to skip")
	papersListCmd.Flags().String("order-by", "published_date", "order field: published_date, title, arxiv_id, created_at, updated_at")
	papersListCmd.Flags().Bool("desc", false, "descending order")

	papersRecentCmd.Flags().Int("limit", 10, "number of papers to show")

	papersSearchCmd.Flags().String("title", "", "keyword to match in titles")
	papersSearchCmd.Flags().String("abstract", "", "keyword to match in abstracts")

	papersRangeCmd.Flags().String("from", "", "range start (YYYY-MM-DD)")
	papersRangeCmd.Flags().String("to", "", "range end (YYYY-MM-DD), inclusive")

	papersExportCmd.Flags().String("output", "", "write export to a file instead of stdout")

	for _, c := range []*cobra.Command{
		papersListCmd, papersRecentCmd, papersSearchCmd, papersAuthorCmd,
		papersRangeCmd, papersGetCmd,
	} {
		c.Flags().Bool("json", false, "output as JSON")
	}

	papersCmd.AddCommand(papersListCmd, papersRecentCmd, papersSearchCmd,
		papersAuthorCmd, papersRangeCmd, papersGetCmd, papersCategoriesCmd,
		papersDeleteCmd, papersExportCmd)

	rootCmd.AddCommand(papersCmd)
}
