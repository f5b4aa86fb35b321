package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/refinery/internal/client/client"
	"github.com/dmitrijs2005/refinery/internal/client/config"
	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/cryptox"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

const secretBytes = 32

// API is the subset of the gRPC client used by commands.
type API interface {
	Login(ctx context.Context, userName string, password []byte) (*client.Session, error)
	Ping(ctx context.Context) (time.Time, error)
	ListBlockedOrigins(ctx context.Context) ([]client.BlockedOrigin, error)
	UnblockOrigin(ctx context.Context, origin string) error
	SetToken(token string)
	Close() error
}

type App struct {
	config *config.Config
	api    API
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	api, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}
	api.SetToken(c.Token)
	return &App{config: c, api: api, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

// Run executes the command in args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	defer a.api.Close()

	if len(args) == 0 {
		a.usage()
		return 2
	}

	var err error
	switch args[0] {
	case "hash-password":
		err = a.hashPassword()
	case "gen-secret":
		err = a.genSecret()
	case "login":
		err = a.login(ctx, args[1:])
	case "ping":
		err = a.ping(ctx)
	case "blocked":
		err = a.blocked(ctx, args[1:])
	case "help", "-h", "--help":
		a.usage()
		return 0
	default:
		fmt.Fprintln(a.out, "Unknown command:", args[0])
		a.usage()
		return 2
	}

	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return 1
	}
	return 0
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: refineryctl [-a addr] [-w seconds] [-c file] <command>")
	fmt.Fprintln(a.out, "Commands: hash-password, gen-secret, login [username], ping, blocked [list | unblock <origin>]")
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.Timeout)
}

func (a *App) hashPassword() error {
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if len(password) == 0 {
		return errors.New("empty password")
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, hash)
	return nil
}

func (a *App) genSecret() error {
	secret, err := common.MakeRandHexString(secretBytes)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, secret)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	var userName string
	if len(args) > 0 {
		userName = args[0]
	} else {
		var err error
		if userName, err = getSimpleText(a.reader, "Enter username", a.out); err != nil {
			return err
		}
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	session, err := a.api.Login(ctx, userName, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s (%s), session valid until %s\n",
		session.Username, session.Role, session.ExpiresAt.Local().Format(time.RFC3339))
	fmt.Fprintf(a.out, "export %s=%s\n", config.TokenEnv, session.Token)
	return nil
}

func (a *App) ping(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	serverTime, err := a.api.Ping(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "server time %s, round trip %s\n",
		serverTime.UTC().Format(time.RFC3339), time.Since(start).Round(time.Millisecond))
	return nil
}

func (a *App) blocked(ctx context.Context, args []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if len(args) == 0 || args[0] == "list" {
		return a.listBlocked(ctx)
	}

	if args[0] == "unblock" {
		if len(args) < 2 {
			return errors.New("usage: blocked unblock <origin>")
		}
		if err := a.api.UnblockOrigin(ctx, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s unblocked\n", args[1])
		return nil
	}

	return fmt.Errorf("unknown blocked subcommand %q", args[0])
}

func (a *App) listBlocked(ctx context.Context) error {
	items, err := a.api.ListBlockedOrigins(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No blocked origins")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORIGIN\tUNTIL\tACTOR\tREASON")
	for _, b := range items {
		until := "permanent"
		if !b.Permanent {
			until = b.BlockedUntil.Local().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Origin, until, b.Actor, b.Reason)
	}
	return tw.Flush()
}

// CommandArgs strips the global flags from args and returns the command
// with its arguments.
func CommandArgs(args []string) []string {
	valueFlags := map[string]bool{"-a": true, "-w": true, "-c": true, "-config": true}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return args[i:]
		}
		if valueFlags[arg] {
			i++
		}
	}
	return nil
}
