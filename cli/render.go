package cli

import (
	"fmt"
	"strings"
	"time"

	"restaurant-finder/client"
	"restaurant-finder/models"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// print writes markdown to stdout, styled for the terminal unless --raw.
func (e *env) print(cmd *cobra.Command, markdown string) error {
	out := cmd.OutOrStdout()
	if e.raw {
		_, err := fmt.Fprint(out, markdown)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

func resultsMarkdown(state client.SearchState) string {
	var b strings.Builder
	c := state.Criteria
	fmt.Fprintf(&b, "# %s near %s\n\n", c.Term, c.Location)

	if len(state.Results) == 0 {
		b.WriteString("No results found\n")
		return b.String()
	}
	fmt.Fprintf(&b, "_Showing %d of %d results, sorted by %s_\n\n", len(state.Results), state.Total, c.SortBy)

	for i, r := range state.Results {
		writeCard(&b, i+1, r.Restaurant, r.IsFavorite, r.FavoriteCount)
	}
	return b.String()
}

func favoritesMarkdown(favorites []models.Restaurant, counts map[string]int) string {
	var b strings.Builder
	b.WriteString("# Favorites\n\n")
	if len(favorites) == 0 {
		b.WriteString("No favorites yet\n")
		return b.String()
	}
	for i, r := range favorites {
		writeCard(&b, i+1, r, true, counts[r.ID])
	}
	return b.String()
}

func writeCard(b *strings.Builder, n int, r models.Restaurant, favorite bool, count int) {
	heart := ""
	if favorite {
		heart = " ♥"
	}
	fmt.Fprintf(b, "## %d. %s%s\n\n", n, r.Name, heart)
	fmt.Fprintf(b, "- **ID:** `%s`\n", r.ID)
	if r.Rating > 0 || r.ReviewCount > 0 {
		fmt.Fprintf(b, "- **Rating:** %.1f (%d reviews)\n", r.Rating, r.ReviewCount)
	}
	if r.Price != "" {
		fmt.Fprintf(b, "- **Price:** %s\n", r.Price)
	}
	if addr := address(r.Location); addr != "" {
		fmt.Fprintf(b, "- **Address:** %s\n", addr)
	}
	if r.DisplayPhone != "" {
		fmt.Fprintf(b, "- **Phone:** %s\n", r.DisplayPhone)
	}
	if len(r.Categories) > 0 {
		titles := make([]string, 0, len(r.Categories))
		for _, c := range r.Categories {
			titles = append(titles, c.Title)
		}
		fmt.Fprintf(b, "- **Categories:** %s\n", strings.Join(titles, ", "))
	}
	fmt.Fprintf(b, "- %s\n", client.FormatFavoriteCount(count))
	if r.URL != "" {
		fmt.Fprintf(b, "- [View on Yelp](%s)\n", r.URL)
	}
	b.WriteString("\n")
}

func address(l models.Location) string {
	var parts []string
	for _, p := range []string{l.Address1, l.City, l.State} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func commentsMarkdown(id string, comments []models.Comment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Comments on `%s`\n\n", id)
	if len(comments) == 0 {
		b.WriteString("No comments yet\n")
		return b.String()
	}
	for _, c := range comments {
		fmt.Fprintf(&b, "**%s** · %s\n\n> %s\n\n", c.Username, client.FormatDate(c.CommentedAt, time.Local), c.Content)
	}
	return b.String()
}
