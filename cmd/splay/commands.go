package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"splay/domain"
	"splay/pkg/client"

	"github.com/peterbourgon/ff/v4"
)

type cli struct {
	stdout io.Writer

	apiURL      *string
	sessionPath *string
	api         *client.Client
	store       *client.SessionStore
}

func (c *cli) command() *ff.Command {
	rootFlags := ff.NewFlagSet("splay")
	c.apiURL = rootFlags.StringLong("api", client.DefaultBaseURL, "API base URL")
	c.sessionPath = rootFlags.StringLong("session", defaultSessionPath(), "session file")

	registerFlags := ff.NewFlagSet("register").SetParent(rootFlags)
	name := registerFlags.StringLong("name", "", "display name")
	regEmail := registerFlags.StringLong("email", "", "email address")
	regPassword := registerFlags.StringLong("password", "", "password")
	confirm := registerFlags.StringLong("confirm", "", "password again")

	loginFlags := ff.NewFlagSet("login").SetParent(rootFlags)
	email := loginFlags.StringLong("email", "", "email address")
	password := loginFlags.StringLong("password", "", "password")

	scanFlags := ff.NewFlagSet("scan").SetParent(rootFlags)
	timeout := scanFlags.DurationLong("timeout", 2*time.Minute, "how long to wait for results")

	historyFlags := ff.NewFlagSet("history").SetParent(rootFlags)
	skip := historyFlags.IntLong("skip", 0, "scans to skip")
	limit := historyFlags.IntLong("limit", 20, "scans to show")

	return &ff.Command{
		Name:      "splay",
		Usage:     "splay [FLAGS] <SUBCOMMAND>",
		ShortHelp: "shop the room from the command line",
		Flags:     rootFlags,
		Subcommands: []*ff.Command{
			{
				Name:      "register",
				Usage:     "splay register --name NAME --email EMAIL --password PW --confirm PW",
				ShortHelp: "create an account",
				Flags:     registerFlags,
				Exec: func(ctx context.Context, _ []string) error {
					return c.register(ctx, client.RegisterInput{
						Name:            *name,
						Email:           *regEmail,
						Password:        *regPassword,
						ConfirmPassword: *confirm,
					})
				},
			},
			{
				Name:      "login",
				Usage:     "splay login --email EMAIL --password PW",
				ShortHelp: "sign in and remember the session",
				Flags:     loginFlags,
				Exec: func(ctx context.Context, _ []string) error {
					return c.login(ctx, *email, *password)
				},
			},
			{
				Name:      "logout",
				ShortHelp: "forget the saved session",
				Flags:     ff.NewFlagSet("logout").SetParent(rootFlags),
				Exec: func(ctx context.Context, _ []string) error {
					return c.logout()
				},
			},
			{
				Name:      "whoami",
				ShortHelp: "show the signed in user",
				Flags:     ff.NewFlagSet("whoami").SetParent(rootFlags),
				Exec:      c.whoami,
			},
			{
				Name:      "scan",
				Usage:     "splay scan [--timeout 2m] <image>",
				ShortHelp: "upload a room photo and print the matches",
				Flags:     scanFlags,
				Exec: func(ctx context.Context, args []string) error {
					return c.scan(ctx, args, *timeout)
				},
			},
			{
				Name:      "history",
				ShortHelp: "list previous scans",
				Flags:     historyFlags,
				Exec: func(ctx context.Context, _ []string) error {
					return c.history(ctx, *skip, *limit)
				},
			},
			{
				Name:      "show",
				Usage:     "splay show <scan-id>",
				ShortHelp: "print a scan",
				Flags:     ff.NewFlagSet("show").SetParent(rootFlags),
				Exec:      c.show,
			},
			{
				Name:      "delete",
				Usage:     "splay delete <scan-id>",
				ShortHelp: "delete a scan",
				Flags:     ff.NewFlagSet("delete").SetParent(rootFlags),
				Exec:      c.delete,
			},
		},
	}
}

func (c *cli) open() error {
	if c.api != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(*c.sessionPath), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	store, err := client.OpenSessionStore(*c.sessionPath)
	if err != nil {
		return err
	}
	c.store = store
	c.api = client.New(*c.apiURL)

	session, err := store.Load()
	switch {
	case err == nil:
		c.api.SetTokens(session.Tokens())
	case !errors.Is(err, client.ErrNoSession):
		return err
	}
	return nil
}

func (c *cli) close() {
	if c.store != nil {
		c.store.Close()
	}
	c.store, c.api = nil, nil
}

func (c *cli) remember(email string, tokens client.Tokens) error {
	return c.store.Save(client.Session{
		Email:        email,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// authed runs fn and, when the access token has expired, refreshes the
// session once and retries.
func (c *cli) authed(ctx context.Context, fn func() error) error {
	if err := c.open(); err != nil {
		return err
	}
	defer c.close()

	err := fn()
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	tokens, rerr := c.api.Refresh(ctx)
	if rerr != nil {
		return fmt.Errorf("session expired, please log in again: %w", err)
	}
	session, _ := c.store.Load()
	if err := c.remember(session.Email, tokens); err != nil {
		return err
	}
	return fn()
}

func (c *cli) register(ctx context.Context, in client.RegisterInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if err := c.open(); err != nil {
		return err
	}
	defer c.close()

	res, err := c.api.Register(ctx, in)
	if err != nil {
		return err
	}
	if err := c.remember(res.User.Email, c.api.Tokens()); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Welcome, %s! You are signed in as %s.\n", res.User.Name, res.User.Email)
	return nil
}

func (c *cli) login(ctx context.Context, email, password string) error {
	if err := c.open(); err != nil {
		return err
	}
	defer c.close()

	res, err := c.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := c.remember(res.User.Email, c.api.Tokens()); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Signed in as %s.\n", res.User.Email)
	return nil
}

func (c *cli) logout() error {
	if err := c.open(); err != nil {
		return err
	}
	defer c.close()

	if err := c.store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Signed out.")
	return nil
}

func (c *cli) whoami(ctx context.Context, _ []string) error {
	return c.authed(ctx, func() error {
		me, err := c.api.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "%s <%s>\ntier: %s, scans this month: %d\n", me.Name, me.Email, me.SubscriptionTier, me.ScansThisMonth)
		return nil
	})
}

func oneArg(args []string, what string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("expected exactly one %s", what)
	}
	return args[0], nil
}

func (c *cli) scan(ctx context.Context, args []string, timeout time.Duration) error {
	path, err := oneArg(args, "image path")
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// a 401 while polling retries the poll only
	var id string
	err = c.authed(ctx, func() error {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		var err error
		id, err = c.api.CreateScan(ctx, filepath.Base(path), file)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Scan %s uploaded, analyzing...\n", id)

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var scan *domain.ScanResponse
	err = c.authed(pollCtx, func() error {
		var err error
		scan, err = c.api.PollScan(pollCtx, id, client.PollOptions{})
		return err
	})
	if err != nil {
		return err
	}
	printScan(c.stdout, scan)
	if scan.Status == client.StatusFailed {
		return errors.New("scan failed")
	}
	return nil
}

func (c *cli) history(ctx context.Context, skip, limit int) error {
	return c.authed(ctx, func() error {
		list, err := c.api.ListScans(ctx, skip, limit)
		if err != nil {
			return err
		}
		if len(list.Scans) == 0 {
			fmt.Fprintln(c.stdout, "No scans yet.")
			return nil
		}
		tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tITEMS\tCREATED")
		for _, s := range list.Scans {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Status, s.ItemCount, s.CreatedAt.Local().Format(time.DateTime))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "%d-%d of %d\n", list.Skip+1, list.Skip+len(list.Scans), list.Total)
		return nil
	})
}

func (c *cli) show(ctx context.Context, args []string) error {
	id, err := oneArg(args, "scan id")
	if err != nil {
		return err
	}
	return c.authed(ctx, func() error {
		scan, err := c.api.GetScan(ctx, id)
		if err != nil {
			return err
		}
		printScan(c.stdout, scan)
		return nil
	})
}

func (c *cli) delete(ctx context.Context, args []string) error {
	id, err := oneArg(args, "scan id")
	if err != nil {
		return err
	}
	return c.authed(ctx, func() error {
		if err := c.api.DeleteScan(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Deleted scan %s.\n", id)
		return nil
	})
}

func printScan(w io.Writer, scan *domain.ScanResponse) {
	fmt.Fprintf(w, "Scan %s: %s\n", scan.ID, scan.Status)
	if scan.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", scan.Error)
	}
	if scan.ProcessingTimeMs != nil {
		fmt.Fprintf(w, "  processed in %dms\n", *scan.ProcessingTimeMs)
	}
	for i, item := range scan.Items {
		fmt.Fprintf(w, "\n%d. %s (%.0f%%) at x=%.2f y=%.2f w=%.2f h=%.2f\n",
			i+1, strings.ReplaceAll(item.Category, "_", " "), item.Confidence*100,
			item.BBox.X, item.BBox.Y, item.BBox.W, item.BBox.H)
		for _, m := range item.Matches {
			label := fmt.Sprintf("#%d", m.Rank)
			if m.IsBudget {
				label = "budget"
			}
			fmt.Fprintf(w, "   %-7s %s by %s  %.2f %s  (%.0f%% match) %s\n",
				label, m.Product.Name, m.Product.Brand, m.Product.Price, m.Product.Currency,
				m.SimilarityScore*100, m.Product.AffiliateURL)
		}
	}
}
