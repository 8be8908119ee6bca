package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/englishlessons/lessons-hub/internal/application/command"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/persistence"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/persistence/postgres"
	"github.com/englishlessons/lessons-hub/internal/infrastructure/security"
	"github.com/englishlessons/lessons-hub/pkg/timeutil"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	store    *persistence.Backend
	accounts *command.CreateAccountHandler
	tokens   *security.TokenManager
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate [-down] [-status]                                - apply, roll back or list schema migrations")
	fmt.Fprintln(cli.out, "  create-teacher -username NAME [-first-name] [-last-name] [-email] - create a teacher account; the password is prompted next")
	fmt.Fprintln(cli.out, "  token -username NAME                                     - issue a bearer token for an account")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	migrateCmd := flag.NewFlagSet("migrate", flag.ContinueOnError)
	migrateDown := migrateCmd.Bool("down", false, "Roll back the latest applied migration.")
	migrateStatus := migrateCmd.Bool("status", false, "List migrations and whether they are applied.")

	teacherCmd := flag.NewFlagSet("create-teacher", flag.ContinueOnError)
	teacherUname := teacherCmd.String("username", "", "The teacher's login. The password will be prompted next.")
	teacherFirst := teacherCmd.String("first-name", "", "First name.")
	teacherLast := teacherCmd.String("last-name", "", "Last name.")
	teacherEmail := teacherCmd.String("email", "", "Email address.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenUname := tokenCmd.String("username", "", "The account's login.")

	for _, fs := range []*flag.FlagSet{migrateCmd, teacherCmd, tokenCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if err := migrateCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *migrateDown && *migrateStatus {
			migrateCmd.Usage()
			return errHelp
		}
		return cli.migrate(ctx, *migrateDown, *migrateStatus)

	case "create-teacher":
		if err := teacherCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *teacherUname == "" {
			teacherCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			teacherCmd.Usage()
			return errHelp
		}
		return cli.createTeacher(ctx, command.CreateTeacherCommand{
			Username:  *teacherUname,
			Password:  string(pwd),
			FirstName: *teacherFirst,
			LastName:  *teacherLast,
			Email:     *teacherEmail,
		})

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *tokenUname == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.issueToken(ctx, *tokenUname)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(ctx context.Context, down, status bool) error {
	if cli.store.Postgres == nil {
		fmt.Fprintf(cli.out, "%s store creates its schema on open, nothing to migrate\n", cli.store.Driver)
		return nil
	}
	migrator := postgres.NewMigrator(cli.store.Postgres)

	switch {
	case status:
		migrations, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED AT")
		for _, m := range migrations {
			applied := "pending"
			if m.IsApplied {
				applied = timeutil.FormatDateTime(m.AppliedAt)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", m.Version, m.Name, applied)
		}
		return tw.Flush()
	case down:
		if err := migrator.Rollback(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cli.out, "rolled back the latest migration")
		return nil
	default:
		applied, err := migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "applied %d migration(s)\n", applied)
		return nil
	}
}

func (cli *commandLine) createTeacher(ctx context.Context, cmd command.CreateTeacherCommand) error {
	acc, err := cli.accounts.CreateTeacher(ctx, cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created teacher %s (%s)\n", acc.Username, acc.ID)
	return nil
}

func (cli *commandLine) issueToken(ctx context.Context, username string) error {
	acc, err := cli.store.Students.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	token, err := cli.tokens.Issue(acc.ID, acc.Username, acc.Role().String())
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
