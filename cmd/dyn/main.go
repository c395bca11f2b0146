package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	cl "dynastra/internal/cli"
	"dynastra/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "dyn",
		Short:        "Dynastra CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newDynastyCmd(&apiBase),
		newCharacterCmd(&apiBase),
		newRegionsCmd(&apiBase),
		newMarketCmd(&apiBase),
		newLeaderboardCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a Dynastra account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Signup(ctx, email, password)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `dyn login`.")
				return nil
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Dynastra",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newDynastyCmd(apiBase *string) *cobra.Command {
	dynasty := &cobra.Command{
		Use:     "dynasty",
		Short:   "Dynasty commands",
		Aliases: []string{"house"},
	}
	dynasty.AddCommand(newDynastyFoundCmd(apiBase))
	dynasty.AddCommand(newDynastyMeCmd(apiBase))
	dynasty.AddCommand(newDynastyShowCmd(apiBase))
	dynasty.AddCommand(newDynastyMottoCmd(apiBase))
	dynasty.AddCommand(newDynastyCharactersCmd(apiBase))
	return dynasty
}

func newDynastyFoundCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "found [name]",
		Short: "Found a new dynasty with its first character",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			name := ""
			if len(args) > 0 {
				name = strings.TrimSpace(args[0])
			} else {
				name, err = promptRequired("Dynasty name")
				if err != nil {
					return err
				}
			}
			motto, err := promptOptional("Motto (optional)")
			if err != nil {
				return err
			}
			founder, err := promptOptional("Founder name (optional)")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.FoundDynasty(ctx, sess.AccessToken, name, motto, founder)
			if err != nil {
				return err
			}
			return renderDynasty(out)
		},
	}
}

func newDynastyMeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your own dynasty",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.MyDynasty(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderDynasty(out)
		},
	}
}

func newDynastyShowCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show [dynasty_id]",
		Short: "Inspect any dynasty",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := uuidFromArgOrPrompt(args, 0, "Dynasty ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Dynasty(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			return renderDynasty(out)
		},
	}
}

func newDynastyMottoCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "motto [dynasty_id]",
		Short: "Update your dynasty motto",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := uuidFromArgOrPrompt(args, 0, "Dynasty ID")
			if err != nil {
				return err
			}
			motto, err := promptRequired("New motto")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if _, err := client.SetMotto(ctx, sess.AccessToken, id, motto); err != nil {
				return err
			}
			return renderSimpleOK("Motto updated.")
		},
	}
}

func newDynastyCharactersCmd(apiBase *string) *cobra.Command {
	var aliveOnly bool
	cmd := &cobra.Command{
		Use:   "characters [dynasty_id]",
		Short: "List the members of a dynasty",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := uuidFromArgOrPrompt(args, 0, "Dynasty ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.DynastyCharacters(ctx, sess.AccessToken, id, aliveOnly)
			if err != nil {
				return err
			}
			return renderCharacters(out)
		},
	}
	cmd.Flags().BoolVar(&aliveOnly, "alive", false, "only list living members")
	return cmd
}

func newCharacterCmd(apiBase *string) *cobra.Command {
	character := &cobra.Command{
		Use:     "character",
		Short:   "Character commands",
		Aliases: []string{"char"},
	}
	character.AddCommand(&cobra.Command{
		Use:   "create [dynasty_id]",
		Short: "Add a new heir to your dynasty",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			dynastyID, err := uuidFromArgOrPrompt(args, 0, "Dynasty ID")
			if err != nil {
				return err
			}
			name, err := promptRequired("Character name")
			if err != nil {
				return err
			}
			parentID, err := promptOptional("Parent character ID (optional)")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.CreateCharacter(ctx, sess.AccessToken, dynastyID, name, parentID)
			if err != nil {
				return err
			}
			return renderCharacter(out)
		},
	})
	character.AddCommand(&cobra.Command{
		Use:   "show [character_id]",
		Short: "Show one character",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := uuidFromArgOrPrompt(args, 0, "Character ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Character(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			return renderCharacter(out)
		},
	})
	character.AddCommand(&cobra.Command{
		Use:   "inventory [character_id]",
		Short: "Show a character's goods",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			id, err := uuidFromArgOrPrompt(args, 0, "Character ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Inventory(ctx, sess.AccessToken, id)
			if err != nil {
				return err
			}
			return renderInventory(out, id)
		},
	})
	character.AddCommand(&cobra.Command{
		Use:   "move [character_id] [region_id]",
		Short: "Move a character to another region",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			characterID, err := uuidFromArgOrPrompt(args, 0, "Character ID")
			if err != nil {
				return err
			}
			regionID, err := uuidFromArgOrPrompt(args, 1, "Region ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if _, err := client.MoveCharacter(ctx, sess.AccessToken, characterID, regionID); err != nil {
				return err
			}
			return renderSimpleOK("Character moved.")
		},
	})
	return character
}

func newRegionsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List all regions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Regions(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderRegions(out)
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	market := &cobra.Command{
		Use:   "market",
		Short: "Regional market commands",
	}
	market.AddCommand(newMarketOverviewCmd(apiBase))
	market.AddCommand(newMarketListingsCmd(apiBase))
	market.AddCommand(newMarketSellCmd(apiBase))
	market.AddCommand(newMarketCancelCmd(apiBase))
	market.AddCommand(newMarketBuyCmd(apiBase))
	market.AddCommand(newMarketEventsCmd(apiBase))
	market.AddCommand(newMarketArbitrageCmd(apiBase))
	market.AddCommand(newMarketPricesCmd(apiBase))
	market.AddCommand(newMarketAnalyzeCmd(apiBase))
	return market
}

func newMarketOverviewCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "overview [region_id]",
		Short: "Show one region's market activity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			regionID, err := uuidFromArgOrPrompt(args, 0, "Region ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.RegionMarket(ctx, sess.AccessToken, regionID)
			if err != nil {
				return err
			}
			return renderRegionMarket(out)
		},
	}
}

func newMarketListingsCmd(apiBase *string) *cobra.Command {
	var category string
	var maxPrice string
	var noGhost bool
	cmd := &cobra.Command{
		Use:   "listings [region_id]",
		Short: "Browse listings in a region",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			regionID, err := uuidFromArgOrPrompt(args, 0, "Region ID")
			if err != nil {
				return err
			}
			query := url.Values{}
			if strings.TrimSpace(category) != "" {
				query.Set("category", strings.TrimSpace(category))
			}
			if strings.TrimSpace(maxPrice) != "" {
				query.Set("max_price", strings.TrimSpace(maxPrice))
			}
			if noGhost {
				query.Set("ghost", "0")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Listings(ctx, sess.AccessToken, regionID, query)
			if err != nil {
				return err
			}
			return renderListings(out)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by item category")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "maximum effective unit price")
	cmd.Flags().BoolVar(&noGhost, "no-ghost", false, "hide estate listings")
	return cmd
}

func newMarketSellCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sell",
		Short: "List goods for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			characterID, err := promptUUID("Seller character ID")
			if err != nil {
				return err
			}
			regionID, err := promptUUID("Region ID")
			if err != nil {
				return err
			}
			itemID, err := promptUUID("Item ID")
			if err != nil {
				return err
			}
			price, err := promptPrice("Unit price")
			if err != nil {
				return err
			}
			qty, err := promptQuantity("Quantity")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if _, err := client.Sell(ctx, sess.AccessToken, characterID, regionID, itemID, price, qty); err != nil {
				return err
			}
			return renderSimpleOK(fmt.Sprintf("Listed %d units at %s each.", qty, price))
		},
	}
}

func newMarketCancelCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [listing_id]",
		Short: "Cancel one of your listings and reclaim the goods",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			listingID, err := uuidFromArgOrPrompt(args, 0, "Listing ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if _, err := client.CancelListing(ctx, sess.AccessToken, listingID); err != nil {
				return err
			}
			return renderSimpleOK("Listing cancelled. Goods returned to inventory.")
		},
	}
}

func newMarketBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy [listing_id]",
		Short: "Buy from a listing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			listingID, err := uuidFromArgOrPrompt(args, 0, "Listing ID")
			if err != nil {
				return err
			}
			characterID, err := promptUUID("Buyer character ID")
			if err != nil {
				return err
			}
			qty, err := promptQuantity("Quantity")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Buy(ctx, sess.AccessToken, listingID, characterID, qty)
			if err != nil {
				return err
			}
			return renderPurchase(out)
		},
	}
}

func newMarketEventsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Show active market events",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.MarketEvents(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderEvents(out)
		},
	}
}

func newMarketArbitrageCmd(apiBase *string) *cobra.Command {
	var limit int32
	cmd := &cobra.Command{
		Use:   "arbitrage",
		Short: "Show cross-region price spreads",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Arbitrage(ctx, sess.AccessToken, limit)
			if err != nil {
				return err
			}
			return renderArbitrage(out)
		},
	}
	cmd.Flags().Int32Var(&limit, "limit", 10, "maximum routes to show")
	return cmd
}

func newMarketPricesCmd(apiBase *string) *cobra.Command {
	var days int32
	cmd := &cobra.Command{
		Use:   "prices [region_id] [item_id]",
		Short: "Show hourly price history for an item",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			regionID, err := uuidFromArgOrPrompt(args, 0, "Region ID")
			if err != nil {
				return err
			}
			itemID, err := uuidFromArgOrPrompt(args, 1, "Item ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.PriceHistory(ctx, sess.AccessToken, regionID, itemID, days)
			if err != nil {
				return err
			}
			return renderPriceHistory(out)
		},
	}
	cmd.Flags().Int32Var(&days, "days", 30, "history window in days")
	return cmd
}

func newMarketAnalyzeCmd(apiBase *string) *cobra.Command {
	var days int32
	cmd := &cobra.Command{
		Use:   "analyze [region_id] [item_id]",
		Short: "Show price indicators for an item",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			regionID, err := uuidFromArgOrPrompt(args, 0, "Region ID")
			if err != nil {
				return err
			}
			itemID, err := uuidFromArgOrPrompt(args, 1, "Item ID")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.PriceAnalytics(ctx, sess.AccessToken, regionID, itemID, days)
			if err != nil {
				return err
			}
			return renderAnalytics(out)
		},
	}
	cmd.Flags().Int32Var(&days, "days", 30, "analysis window in days")
	return cmd
}

func newLeaderboardCmd(apiBase *string) *cobra.Command {
	var limit int32
	cmd := &cobra.Command{
		Use:   "leaderboard [prestige|wealth|legacy]",
		Short: "Rank the great houses",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			metric := "prestige"
			if len(args) > 0 {
				metric = strings.ToLower(strings.TrimSpace(args[0]))
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Leaderboard(ctx, sess.AccessToken, metric, limit)
			if err != nil {
				return err
			}
			return renderLeaderboard(out, metric)
		},
	}
	cmd.Flags().Int32Var(&limit, "limit", 25, "maximum rows to show")
	return cmd
}

func uuidFromArgOrPrompt(args []string, idx int, label string) (string, error) {
	if len(args) > idx {
		raw := strings.TrimSpace(args[idx])
		if _, err := uuid.Parse(raw); err != nil {
			return "", fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return raw, nil
	}
	return promptUUID(label)
}
