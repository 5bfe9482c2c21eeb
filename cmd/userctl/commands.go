package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/Skryldev/userstore/appctx"
	"github.com/Skryldev/userstore/apperr"
	"github.com/Skryldev/userstore/models"
	"github.com/Skryldev/userstore/repo"
)

// Exit codes, one per error kind.
const (
	exitOK           = 0
	exitInternal     = 1
	exitUsage        = 2
	exitNotFound     = 3
	exitUnauthorized = 4
	exitConflict     = 5
)

var errUsage = errors.New("usage")

type cli struct {
	users        repo.UserRepository
	out          io.Writer
	errOut       io.Writer
	bcryptCost   int
	newRequestID func() string
}

// run parses the global flags, builds the request context and dispatches to
// one subcommand. It returns the process exit code.
func (c *cli) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("userctl", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	actAs := fs.Int64("as", 0, "id of the acting user for update and delete")
	requestID := fs.String("request-id", "", "correlation id for logs (default: random)")
	fs.Usage = func() { c.usage(fs) }
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		c.usage(fs)
		return exitUsage
	}

	rid := *requestID
	if rid == "" {
		rid = c.newRequestID()
	}
	rctx := appctx.WithRequestID(appctx.From(ctx), rid)

	if *actAs != 0 {
		actor, err := c.users.FindByID(rctx, *actAs)
		if err != nil {
			return c.fail(fmt.Errorf("resolve -as %d: %w", *actAs, err))
		}
		rctx = appctx.WithUser(rctx, *actor)
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	var err error
	switch cmd {
	case "create":
		err = c.create(rctx, rest)
	case "get":
		err = c.get(rctx, rest)
	case "list":
		err = c.list(rctx, rest)
	case "update":
		err = c.update(rctx, rest)
	case "delete":
		err = c.delete(rctx, rest)
	case "verify":
		err = c.verify(rctx, rest)
	default:
		fmt.Fprintf(c.errOut, "unknown command %q\n", cmd)
		c.usage(fs)
		return exitUsage
	}
	if err != nil {
		return c.fail(err)
	}
	return exitOK
}

func (c *cli) usage(fs *flag.FlagSet) {
	fmt.Fprintln(c.errOut, `Usage: userctl [-as ID] [-request-id ID] <command> [flags]

Commands:
  create  -name N -email E [-password P]
  get     -id N | -email E
  list    [-name N] [-email E] [-limit N] [-offset N]
  update  -id N [-name N] [-email E] [-password P]   (requires -as N)
  delete  -id N                                      (requires -as N)
  verify  -email E -password P

Global flags:`)
	fs.PrintDefaults()
}

// fail reports err and maps its kind to an exit code.
func (c *cli) fail(err error) int {
	fmt.Fprintf(c.errOut, "error: %v\n", err)
	switch {
	case errors.Is(err, errUsage), apperr.IsInvalidArgument(err):
		return exitUsage
	case apperr.IsNotFound(err):
		return exitNotFound
	case apperr.IsUnauthorized(err):
		return exitUnauthorized
	case apperr.IsConflict(err):
		return exitConflict
	}
	return exitInternal
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w: %v", fs.Name(), errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%s: %w: unexpected argument %q", fs.Name(), errUsage, fs.Arg(0))
	}
	return nil
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

func (c *cli) create(ctx context.Context, args []string) error {
	fs := c.flagSet("create")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "unique email address")
	password := fs.String("password", "", "plain-text password, stored as a bcrypt hash")
	if err := parse(fs, args); err != nil {
		return err
	}

	u := &models.User{Name: *name, Email: *email}
	if setFlags(fs)["password"] {
		hash, err := c.hash(*password)
		if err != nil {
			return err
		}
		u.Password = &hash
	}

	if err := c.users.Create(ctx, u); err != nil {
		return err
	}
	return c.print(u)
}

func (c *cli) get(ctx context.Context, args []string) error {
	fs := c.flagSet("get")
	id := fs.Int64("id", 0, "user id")
	email := fs.String("email", "", "user email")
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		u   *models.User
		err error
	)
	switch set := setFlags(fs); {
	case set["id"] && set["email"]:
		return fmt.Errorf("get: %w: -id and -email are exclusive", errUsage)
	case set["id"]:
		u, err = c.users.FindByID(ctx, *id)
	case set["email"]:
		u, err = c.users.FindByEmail(ctx, *email)
	default:
		return fmt.Errorf("get: %w: -id or -email is required", errUsage)
	}
	if err != nil {
		return err
	}
	return c.print(u)
}

type listResult struct {
	Total int64          `json:"total"`
	Users []*models.User `json:"users"`
}

func (c *cli) list(ctx context.Context, args []string) error {
	fs := c.flagSet("list")
	name := fs.String("name", "", "match name exactly")
	email := fs.String("email", "", "match email exactly")
	limit := fs.Int("limit", 0, "page size (0 = unbounded)")
	offset := fs.Int("offset", 0, "rows to skip")
	if err := parse(fs, args); err != nil {
		return err
	}

	f := models.UserFilter{Limit: *limit, Offset: *offset}
	set := setFlags(fs)
	if set["name"] {
		f.Name = name
	}
	if set["email"] {
		f.Email = email
	}

	users, total, err := c.users.FindMany(ctx, f)
	if err != nil {
		return err
	}
	return c.print(listResult{Total: total, Users: users})
}

func (c *cli) update(ctx context.Context, args []string) error {
	fs := c.flagSet("update")
	id := fs.Int64("id", 0, "user id")
	name := fs.String("name", "", "new display name")
	email := fs.String("email", "", "new email address")
	password := fs.String("password", "", "new plain-text password")
	if err := parse(fs, args); err != nil {
		return err
	}

	set := setFlags(fs)
	if !set["id"] {
		return fmt.Errorf("update: %w: -id is required", errUsage)
	}

	var patch models.UserUpdate
	if set["name"] {
		patch.Name = name
	}
	if set["email"] {
		patch.Email = email
	}
	if set["password"] {
		hash, err := c.hash(*password)
		if err != nil {
			return err
		}
		patch.Password = &hash
	}
	if patch.Empty() {
		return fmt.Errorf("update: %w: nothing to change", errUsage)
	}

	u, err := c.users.Update(ctx, *id, patch)
	if err != nil {
		return err
	}
	return c.print(u)
}

func (c *cli) delete(ctx context.Context, args []string) error {
	fs := c.flagSet("delete")
	id := fs.Int64("id", 0, "user id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if !setFlags(fs)["id"] {
		return fmt.Errorf("delete: %w: -id is required", errUsage)
	}

	if err := c.users.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "deleted user %d\n", *id)
	return nil
}

// verify checks a password against the stored hash.
func (c *cli) verify(ctx context.Context, args []string) error {
	fs := c.flagSet("verify")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "plain-text password to check")
	if err := parse(fs, args); err != nil {
		return err
	}

	u, err := c.users.FindByEmail(ctx, *email)
	if err != nil {
		return err
	}
	if !u.CheckPassword(*password) {
		return apperr.Unauthorized("verify", "password does not match")
	}
	fmt.Fprintf(c.out, "password ok for user %d\n", u.ID)
	return nil
}

// hash turns a plain password into the stored form. An empty password is
// passed through so the validator can reject it.
func (c *cli) hash(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	return models.HashPassword(plain, c.bcryptCost)
}
