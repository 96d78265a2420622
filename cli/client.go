package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"restaurant-finder/client"
	"restaurant-finder/models"
	"restaurant-finder/tui"

	"github.com/spf13/cobra"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// failure replaces err with the message the client would show for it.
func failure(err error, fallback string) error {
	return errors.New(client.Message(err, fallback))
}

func newTUICmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.newApp(cmd.Context())
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), app)
		},
	}
}

func newSearchCmd(e *env) *cobra.Command {
	criteria := client.DefaultCriteria()
	var radiusKm float64

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search restaurants near a location",
		Example: `  restaurant-finder search pizza --location "Boston, MA"
  restaurant-finder search ramen -l Seattle --sort rating --price 1,2 --attributes wifi`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.newApp(cmd.Context())
			if err != nil {
				return err
			}

			criteria.Term = strings.Join(args, " ")
			if radiusKm > 0 {
				criteria.Radius = client.KmToMeters(radiusKm)
			}
			app.Search.SetCriteria(criteria)

			if err := app.Search.Search(cmd.Context()); err != nil {
				return failure(err, "Failed to fetch results")
			}
			return e.print(cmd, resultsMarkdown(app.Search.Snapshot()))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&criteria.Location, "location", "l", "", "City, neighborhood or address")
	f.IntVar(&criteria.Limit, "limit", criteria.Limit, "Maximum number of results")
	f.Float64Var(&radiusKm, "radius", 0, "Search radius in kilometers")
	f.StringVar(&criteria.Price, "price", criteria.Price, "Comma list of price tiers 1-4")
	f.StringVar(&criteria.SortBy, "sort", criteria.SortBy, "One of "+strings.Join(client.SortOptions, ", "))
	f.StringVar(&criteria.Attributes, "attributes", "", "Comma list of attributes ("+strings.Join(client.Attributes, ", ")+")")
	f.BoolVar(&e.raw, "raw", false, "Print markdown without terminal styling")
	return cmd
}

func newLoginCmd(e *env) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.newApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.Session.Login(cmd.Context(), email, passwordOrEnv(password)); err != nil {
				return failure(err, "Login failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", app.Session.Snapshot().Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (or RESTAURANT_PASSWORD)")
	return cmd
}

func newRegisterCmd(e *env) *cobra.Command {
	var email, password, confirm string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.newApp(cmd.Context())
			if err != nil {
				return err
			}
			password = passwordOrEnv(password)
			if !cmd.Flags().Changed("confirm") {
				confirm = password
			}
			if err := app.Session.Register(cmd.Context(), email, password, confirm); err != nil {
				return failure(err, "Failed to register")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", app.Session.Snapshot().Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (or RESTAURANT_PASSWORD)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation (defaults to --password)")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.newApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newPasswdCmd(e *env) *cobra.Command {
	var password, confirm string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the signed-in account's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.newApp(cmd.Context())
			if err != nil {
				return err
			}
			password = passwordOrEnv(password)
			if !cmd.Flags().Changed("confirm") {
				confirm = password
			}
			if err := app.Session.ChangePassword(cmd.Context(), password, confirm); err != nil {
				return failure(err, "Failed to change password")
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.Session.Snapshot().Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "New password (or RESTAURANT_PASSWORD)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Confirmation (defaults to --password)")
	return cmd
}

func newFavoritesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "List saved favorites",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.newApp(cmd.Context())
			if err != nil {
				return err
			}
			if !app.Session.Authenticated() {
				return failure(&client.AuthRequiredError{Message: "Please log in to see your favorites"}, "")
			}
			if err := app.Favorites.FetchFavorites(cmd.Context()); err != nil {
				return failure(err, "Failed to fetch favorites")
			}
			state := app.Favorites.Snapshot()
			counts, err := app.Favorites.FavoriteCounts(cmd.Context())
			if err != nil {
				counts = state.Counts
			}
			return e.print(cmd, favoritesMarkdown(state.Favorites, counts))
		},
	}
	cmd.PersistentFlags().BoolVar(&e.raw, "raw", false, "Print markdown without terminal styling")

	toggle := func(use, short string, wantFavorite bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <restaurant-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := e.newApp(cmd.Context())
				if err != nil {
					return err
				}
				id := args[0]
				if app.Favorites.IsFavorite(id) == wantFavorite {
					fmt.Fprintf(cmd.OutOrStdout(), "Nothing to do for %s\n", id)
					return nil
				}
				restaurant := models.Restaurant{ID: id}
				for _, r := range app.Favorites.Snapshot().Favorites {
					if r.ID == id {
						restaurant = r
					}
				}
				if err := app.Favorites.ToggleFavorite(cmd.Context(), restaurant); err != nil {
					return failure(err, "Failed to update favorites")
				}
				counts := app.Favorites.Snapshot().Counts
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, client.FormatFavoriteCount(counts[id]))
				return nil
			},
		}
	}
	cmd.AddCommand(
		toggle("add", "Save a restaurant as a favorite", true),
		toggle("remove", "Remove a restaurant from favorites", false),
	)
	return cmd
}

func newCommentsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments <restaurant-id>",
		Short: "Show the comments on a restaurant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.newApp(cmd.Context())
			if err != nil {
				return err
			}
			id := args[0]
			if err := app.Comments.FetchComments(cmd.Context(), id); err != nil {
				return failure(err, "Failed to load comments")
			}
			return e.print(cmd, commentsMarkdown(id, app.Comments.Panel(id).Comments))
		},
	}
	cmd.PersistentFlags().BoolVar(&e.raw, "raw", false, "Print markdown without terminal styling")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <restaurant-id> <text>",
		Short: "Post a comment as the signed-in user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := e.newApp(cmd.Context())
			if err != nil {
				return err
			}
			c, err := app.Comments.PostComment(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return failure(err, "Failed to post comment")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Comment %d posted by %s\n", c.ID, c.Username)
			return nil
		},
	})
	return cmd
}

func passwordOrEnv(password string) string {
	if password == "" {
		return os.Getenv("RESTAURANT_PASSWORD")
	}
	return password
}
