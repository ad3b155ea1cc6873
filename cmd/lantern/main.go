// ABOUTME: Entry point for the lantern message-base CLI
// ABOUTME: Posts, reads, and lists messages against the configured store

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/lanternbbs/lantern/internal/config"
	"github.com/lanternbbs/lantern/internal/kvstore"
	"github.com/lanternbbs/lantern/internal/msgbase"
	"github.com/lanternbbs/lantern/internal/session"
)

// Version is set by goreleaser at build time.
var version = "dev"

// getConfigPath returns the path to the lantern config file.
// Priority: LANTERN_CONFIG env var > XDG_CONFIG_HOME/lantern/lantern.toml > ~/.config/lantern/lantern.toml
func getConfigPath() string {
	if envPath := os.Getenv("LANTERN_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "lantern.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "lantern", "lantern.toml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: lantern <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  post                 Post a message")
		fmt.Println("  read <id>            Read a message")
		fmt.Println("  list [tag ...]       List message ids, optionally by tag")
		fmt.Println("  tags                 List all known tags")
		fmt.Println("  journal              Show the save journal")
		fmt.Println("  version              Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "post":
		err = runPost(ctx, os.Args[2:])
	case "read":
		err = runRead(ctx, os.Args[2:])
	case "list":
		err = runList(ctx, os.Args[2:])
	case "tags":
		err = runTags(ctx)
	case "journal":
		err = runJournal(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openBase loads config, installs the logger, and opens the message base.
// The returned func closes the store.
func openBase() (*msgbase.MessageBase, func(), error) {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	setupLogger(cfg.Logging)

	store, err := kvstore.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	mb, err := msgbase.Open(store, cfg)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("opening message base: %w", err)
	}

	return mb, func() { _ = store.Close() }, nil
}

// tagFlags collects repeated -tag flags.
type tagFlags []string

func (t *tagFlags) String() string {
	return strings.Join(*t, ",")
}

func (t *tagFlags) Set(value string) error {
	*t = append(*t, value)
	return nil
}

func runPost(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	as := fs.String("as", "", "author handle (defaults to $USER)")
	to := fs.String("to", "", "recipient handle")
	subject := fs.String("subject", "", "message subject")
	body := fs.String("body", "", "message body (reads stdin if empty)")
	parent := fs.Int64("parent", -1, "id of the message this replies to")
	noDispatch := fs.Bool("no-dispatch", false, "skip network dispatch")
	var tags tagFlags
	fs.Var(&tags, "tag", "message tag (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	handle := *as
	if handle == "" {
		handle = os.Getenv("USER")
	}

	text := *body
	if text == "" {
		data, err := readStdin()
		if err != nil {
			return err
		}
		text = data
	}

	mb, closeStore, err := openBase()
	if err != nil {
		return err
	}
	defer closeStore()

	m := msgbase.New(session.NewStatic(handle), *to, *subject, text)
	m.Tag(tags...)
	if *parent >= 0 {
		p := *parent
		m.Parent = &p
	}

	id, err := mb.SaveWith(ctx, m, msgbase.SaveOptions{SuppressDispatch: *noDispatch})
	if err != nil {
		return fmt.Errorf("saving message: %w", err)
	}

	fmt.Printf("Posted message %s\n", color.GreenString("%d", id))
	return nil
}

func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading body from stdin: %w", err)
	}
	return string(data), nil
}

func runRead(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: lantern read <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid message id %q", args[0])
	}

	mb, closeStore, err := openBase()
	if err != nil {
		return err
	}
	defer closeStore()

	m, err := mb.Get(ctx, id)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	bold.Printf("#%d %s\n", id, m.Subject)
	fmt.Printf("From: %s  To: %s\n", m.Author, m.Recipient)
	dim.Printf("Saved: %s\n", m.Saved.Format("2006-01-02 15:04:05"))
	if len(m.Tags) > 0 {
		fmt.Printf("Tags: %s\n", strings.Join(m.Tags, ", "))
	}
	if m.Parent != nil {
		dim.Printf("In reply to: #%d\n", *m.Parent)
	}
	if len(m.Children) > 0 {
		replies := make([]string, len(m.Children))
		for i, c := range m.Children {
			replies[i] = fmt.Sprintf("#%d", c)
		}
		dim.Printf("Replies: %s\n", strings.Join(replies, " "))
	}
	fmt.Println()
	fmt.Println(m.Body)
	return nil
}

func runList(ctx context.Context, args []string) error {
	mb, closeStore, err := openBase()
	if err != nil {
		return err
	}
	defer closeStore()

	ids, err := mb.List(ctx, args...)
	if err != nil {
		return err
	}

	for _, id := range ids {
		m, err := mb.Get(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %-20s %s\n", color.GreenString("%4d", id), m.Author, m.Subject)
	}
	return nil
}

func runTags(ctx context.Context) error {
	mb, closeStore, err := openBase()
	if err != nil {
		return err
	}
	defer closeStore()

	tags, err := mb.ListTags(ctx)
	if err != nil {
		return err
	}
	for _, tag := range tags {
		fmt.Println(tag)
	}
	return nil
}

func runJournal(ctx context.Context) error {
	mb, closeStore, err := openBase()
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := mb.Journal(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		kind := "save"
		if e.New {
			kind = color.GreenString("new")
		}
		fmt.Printf("%s  msg %4d  %-4s  %s -> %s  [%s]\n",
			e.SavedAt.Format("2006-01-02 15:04:05"),
			e.MsgID, kind, e.Author, e.Recipient,
			strings.Join(e.Tags, ", "))
	}
	return nil
}
