package app

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"authkit/cmd/authz/privilege"
	"authkit/cmd/internal/auth/token"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("usage")

const usage = `usage: authkit [-env FILE] <command> [args]

commands:
  migrate                              apply database migrations
  purge-sessions                       delete stale sessions
  metrics                              purge stale sessions and print metrics
  grant  <user-id> <privilege>         grant a privilege
  revoke <user-id> <privilege>         delete a privilege
  expire <user-id> <privilege> <time>  set the expiry (RFC 3339) of a privilege
  check  [-expire-before T] <user-id> <privilege>
  list   <user-id>                     print the privileges of a user
  keygen [-bits N]                     print a new RS256 key id and private key
`

// Run is the CLI entrypoint used by cmd/authkit.
// It returns an error instead of calling os.Exit to keep defers effective and lint clean.
func Run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("authkit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	envFile := fs.String("env", ".env", "dotenv file loaded before reading the environment")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v\n%s", ErrUsage, err, usage)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: missing command\n%s", ErrUsage, usage)
	}

	if err := LoadDotEnv(*envFile); err != nil {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	if err := ValidateSecurityConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	c := &cli{cfg: cfg, log: log, out: stdout}
	switch cmd {
	case "keygen":
		return c.keygen(rest)
	case "migrate":
		return c.withDB(ctx, c.migrate)
	case "purge-sessions":
		return c.withDB(ctx, func(ctx context.Context) error { return c.purge(ctx, nil) })
	case "metrics":
		return c.withDB(ctx, c.metrics)
	case "grant", "revoke", "expire", "check", "list":
		req, err := parsePrivilegeCommand(cmd, rest)
		if err != nil {
			return err
		}
		return c.withDB(ctx, func(ctx context.Context) error { return c.privileges(ctx, cmd, req) })
	default:
		return fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, cmd, usage)
	}
}

type cli struct {
	cfg  Config
	log  Logger
	out  io.Writer
	pool *pgxpool.Pool
}

func (c *cli) keygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bits := fs.Int("bits", 2048, "RSA modulus size")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	kid, pemData, err := generateKey(*bits)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "AUTHKIT_RSA_KEY_ID=%s\n%s", kid, pemData)
	return err
}

func (c *cli) migrate(ctx context.Context) error {
	if err := RunMigrations(ctx, c.pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	c.log.Info("migrations.applied")
	return nil
}

func (c *cli) purge(ctx context.Context, reg prometheus.Registerer) error {
	svc, err := NewSessionService(c.cfg, c.pool, reg, c.log)
	if err != nil {
		return err
	}
	n, err := svc.PurgeStaleSessions(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "purged %d sessions\n", n)
	return err
}

func (c *cli) metrics(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	if err := c.purge(ctx, reg); err != nil {
		return err
	}
	return writeMetrics(c.out, reg)
}

func (c *cli) privileges(ctx context.Context, cmd string, req privilegeArgs) error {
	svc, err := NewAuthzService(c.cfg, c.pool, c.log)
	if err != nil {
		return err
	}

	var ok bool
	switch cmd {
	case "list":
		set, err := svc.GetPrivileges(ctx, req.userID)
		if err != nil {
			return err
		}
		for _, p := range set.Items() {
			if _, err := fmt.Fprintln(c.out, privilege.Encode(p)); err != nil {
				return err
			}
		}
		return nil
	case "grant":
		ok, err = svc.Grant(ctx, req.userID, req.priv)
	case "revoke":
		ok, err = svc.Delete(ctx, req.userID, req.priv)
	case "expire":
		ok, err = svc.Expire(ctx, req.userID, req.priv, *req.at)
	case "check":
		ok, err = svc.HasPrivilege(ctx, req.userID, req.priv, req.at)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, ok)
	return err
}

// withDB opens the pool for the duration of fn.
func (c *cli) withDB(ctx context.Context, fn func(context.Context) error) error {
	pool, err := NewDBPool(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	c.pool = pool
	return fn(ctx)
}

type privilegeArgs struct {
	userID int64
	priv   privilege.Privilege
	at     *time.Time
}

// parsePrivilegeCommand validates the flags and positional arguments of the privilege
// commands. Only check accepts -expire-before.
func parsePrivilegeCommand(cmd string, args []string) (privilegeArgs, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var expireBefore string
	if cmd == "check" {
		fs.StringVar(&expireBefore, "expire-before", "", "only count privileges expiring before this RFC 3339 time")
	}
	if err := fs.Parse(args); err != nil {
		return privilegeArgs{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	args = fs.Args()

	want := map[string]int{"list": 1, "grant": 2, "revoke": 2, "check": 2, "expire": 3}[cmd]
	if len(args) != want {
		return privilegeArgs{}, fmt.Errorf("%w: %s takes %d arguments\n%s", ErrUsage, cmd, want, usage)
	}

	var (
		out privilegeArgs
		err error
	)
	if out.userID, err = strconv.ParseInt(args[0], 10, 64); err != nil {
		return privilegeArgs{}, fmt.Errorf("%w: user id %q is not an integer", ErrUsage, args[0])
	}
	if cmd == "list" {
		return out, nil
	}
	if out.priv, err = privilege.Decode(args[1]); err != nil {
		return privilegeArgs{}, err
	}

	at := expireBefore
	if cmd == "expire" {
		at = args[2]
	}
	if at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return privilegeArgs{}, fmt.Errorf("%w: time %q is not RFC 3339", ErrUsage, at)
		}
		t = t.UTC()
		out.at = &t
	}
	return out, nil
}

// generateKey returns a fresh key id and PKCS#8 PEM private key.
func generateKey(bits int) (string, string, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", err
	}
	pemData, err := token.EncodePrivateKeyPEM(key)
	if err != nil {
		return "", "", err
	}
	return uuid.NewString(), pemData, nil
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
