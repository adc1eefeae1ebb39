package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tcg-hq/followers/internal/app"
	"github.com/tcg-hq/followers/internal/config"
	"github.com/tcg-hq/followers/internal/domain"
	"github.com/tcg-hq/followers/internal/logger"
	"github.com/tcg-hq/followers/internal/plugin"
	"github.com/tcg-hq/followers/internal/present"
)

const usage = `usage: followctl <command> [user-id]

commands:
  status    show the follow button for user-id
  toggle    click the follow button for user-id
  html      render the follow row markup for user-id
  follow    follow user-id
  unfollow  unfollow user-id

user-id defaults to ACTOR_ID.`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "followctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd := strings.ToLower(args[0])

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	target := cfg.ActorID
	if len(args) > 1 {
		target = strings.TrimSpace(args[1])
	}
	if target == "" {
		return errors.New("user id required (argument or ACTOR_ID)")
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := app.NewClient(cfg, log)
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}

	host := &plugin.Host{}
	if err := plugin.New(cfg.PluginID, client).Initialize(host); err != nil {
		return fmt.Errorf("initialize plugin: %w", err)
	}
	mounts := host.MountAll(plugin.Props{UserID: target})
	if len(mounts) == 0 {
		return errors.New("no component registered")
	}
	m := mounts[0]
	defer m.Unmount()

	switch cmd {
	case "status":
		return printView(out, m.View(ctx))
	case "html":
		markup, err := present.HTML(m.View(ctx))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, markup)
		return nil
	case "toggle":
		v, err := m.Click(ctx)
		if perr := printView(out, v); perr != nil {
			return perr
		}
		return err
	case "follow", "unfollow":
		m.View(ctx)
		var res domain.MutationOutcome
		if cmd == "follow" {
			res, err = m.Session().Follow(ctx, target)
		} else {
			res, err = m.Session().Unfollow(ctx, target)
		}
		if err != nil {
			return err
		}
		if !res.OK {
			return fmt.Errorf("%s %s: %s", cmd, target, res.Reason)
		}
		fmt.Fprintf(out, "%s %s: ok\n", cmd, target)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func printView(out io.Writer, v present.View) error {
	switch v.Kind {
	case present.KindError:
		fmt.Fprintln(out, v.Text)
		return errors.New(v.Text)
	case present.KindButton:
		state := "enabled"
		if !v.Button.Enabled {
			state = "disabled"
		}
		fmt.Fprintf(out, "[%s] %s (%s)\n", v.Button.Label, v.Button.Icon, state)
	default:
		fmt.Fprintln(out, "(loading)")
	}
	return nil
}
