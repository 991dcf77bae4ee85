// Package cli implements famlictl, a terminal front-end for the famli API.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"famli/internal/client"
)

type App struct {
	client *client.Client
	in     *bufio.Reader
	out    io.Writer
}

func NewApp(c *client.Client, in io.Reader, out io.Writer) *App {
	return &App{client: c, in: bufio.NewReader(in), out: out}
}

const usage = `usage: famlictl <command> [flags]

commands:
  setup                   create the first admin account
  login                   log in and store the session
  logout                  revoke the stored session
  whoami                  show the logged-in user
  households [-search s]  list households
  people [-search s] [-sort first_name|last_name]
  prefs key=value ...     replace your preferences
`

// Run executes one command
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errors.New("no command given")
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "setup":
		err = a.setup(ctx)
	case "login":
		err = a.login(ctx)
	case "logout":
		err = a.logout(ctx)
	case "whoami":
		err = a.whoami(ctx)
	case "households":
		err = a.households(ctx, rest)
	case "people":
		err = a.people(ctx, rest)
	case "prefs":
		err = a.prefs(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	if errors.Is(err, client.ErrSessionExpired) {
		return errors.New("your session has expired, run 'famlictl login'")
	}
	return err
}

func (a *App) setup(ctx context.Context) error {
	firstRun, err := a.client.FirstRun(ctx)
	if err != nil {
		return err
	}
	if !firstRun {
		return errors.New("setup already completed, use 'famlictl login'")
	}

	username, err := prompt(a.in, a.out, "Username")
	if err != nil {
		return err
	}
	email, err := prompt(a.in, a.out, "Email")
	if err != nil {
		return err
	}
	password, err := promptPassword(a.out)
	if err != nil {
		return err
	}

	user, err := a.client.Setup(ctx, username, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created admin %s\n", user.Username)
	return nil
}

func (a *App) login(ctx context.Context) error {
	username, err := prompt(a.in, a.out, "Username")
	if err != nil {
		return err
	}
	password, err := promptPassword(a.out)
	if err != nil {
		return err
	}

	user, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", user.Username, user.Role)
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> role=%s\n", user.Username, user.Email, user.Role)
	return nil
}

func (a *App) households(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("households", flag.ContinueOnError)
	fs.SetOutput(a.out)
	search := fs.String("search", "", "filter by name, city or postal code")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.client.Households(ctx, *page, *limit, *search)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCITY\tMEMBERS")
	for _, h := range result.Households {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", h.ID, h.Name, h.City, h.MemberCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "page %d of %d (%d total)\n", result.Pagination.Page, result.Pagination.Pages, result.Pagination.Total)
	return nil
}

func (a *App) people(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("people", flag.ContinueOnError)
	fs.SetOutput(a.out)
	search := fs.String("search", "", "filter by name or household")
	sortBy := fs.String("sort", "first_name", "first_name or last_name")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 50, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.client.People(ctx, *page, *limit, *search, *sortBy)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tHOUSEHOLD\tEMAIL\tPHONE")
	for _, p := range result.People {
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\n", p.FirstName, p.LastName, p.HouseholdName, p.Email, p.Phone)
	}
	return tw.Flush()
}

func (a *App) prefs(ctx context.Context, args []string) error {
	prefs, err := parsePrefs(args)
	if err != nil {
		return err
	}
	if err := a.client.UpdatePreferences(ctx, prefs); err != nil {
		return err
	}

	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(a.out, "Preferences updated: %s\n", strings.Join(keys, ", "))
	return nil
}

func parsePrefs(args []string) (map[string]any, error) {
	prefs := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid preference %q, expected key=value", arg)
		}
		prefs[key] = value
	}
	return prefs, nil
}
