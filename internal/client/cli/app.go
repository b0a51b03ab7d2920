// Package cli implements the docanchor command-line client: one command
// per invocation, results printed as indented JSON.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/docanchor/internal/client/client"
)

// api is the subset of client.GRPCClient the commands use.
type api interface {
	Ping(ctx context.Context) error
	Status(ctx context.Context) (map[string]any, error)
	Upload(ctx context.Context, data []byte, meta client.UploadMeta) (map[string]any, error)
	ListDocuments(ctx context.Context, limit, offset int) (map[string]any, error)
	GetDocument(ctx context.Context, id string) (map[string]any, error)
	DeleteDocument(ctx context.Context, id string) error
	ContentInfo(ctx context.Context, id string) (map[string]any, error)
	ReverifyLocal(ctx context.Context, id string) (map[string]any, error)
	ReverifyLedger(ctx context.Context, id string) (map[string]any, error)
	GetHistory(ctx context.Context, documentID string, limit, offset int) (map[string]any, error)
	GetStats(ctx context.Context) (map[string]any, error)
}

// ErrUsage is returned for unknown commands or bad arguments.
var ErrUsage = errors.New("usage error")

type App struct {
	api      api
	out      io.Writer
	timeout  time.Duration
	readFile func(string) ([]byte, error)
}

func NewApp(a api, out io.Writer, timeout time.Duration) *App {
	return &App{api: a, out: out, timeout: timeout, readFile: os.ReadFile}
}

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"ping":          {"ping", (*App).ping},
	"status":        {"status", (*App).status},
	"upload":        {"upload [-title T] [-desc D] [-type MIME] FILE", (*App).upload},
	"list":          {"list [-limit N] [-offset N]", (*App).list},
	"get":           {"get ID", byID((api).GetDocument)},
	"delete":        {"delete ID", (*App).delete},
	"content":       {"content ID", byID((api).ContentInfo)},
	"verify-local":  {"verify-local ID", byID((api).ReverifyLocal)},
	"verify-ledger": {"verify-ledger ID", byID((api).ReverifyLedger)},
	"history":       {"history [-limit N] [-offset N] [ID]", (*App).history},
	"stats":         {"stats", (*App).stats},
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.Usage()
		return ErrUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		a.Usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	return cmd.run(a, ctx, args[1:])
}

// Usage prints the command list.
func (a *App) Usage() {
	fmt.Fprintln(a.out, "usage: docanchor [-a ADDR] [-t TOKEN] [-T TIMEOUT] [-c FILE] COMMAND")
	for _, name := range []string{"ping", "status", "upload", "list", "get", "delete", "content",
		"verify-local", "verify-ledger", "history", "stats"} {
		fmt.Fprintln(a.out, "  "+commands[name].usage)
	}
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) ping(ctx context.Context, args []string) error {
	if err := a.api.Ping(ctx); err != nil {
		return err
	}
	return a.print(map[string]any{"status": "OK"})
}

func (a *App) status(ctx context.Context, args []string) error {
	out, err := a.api.Status(ctx)
	if err != nil {
		return err
	}
	return a.print(out)
}

func (a *App) stats(ctx context.Context, args []string) error {
	out, err := a.api.GetStats(ctx)
	if err != nil {
		return err
	}
	return a.print(out)
}

func (a *App) upload(ctx context.Context, args []string) error {
	fs := newFlagSet("upload")
	title := fs.String("title", "", "document title (defaults to the file name)")
	desc := fs.String("desc", "", "description")
	mediaType := fs.String("type", "", "media type (guessed from the extension)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: upload needs exactly one file", ErrUsage)
	}
	path := fs.Arg(0)

	data, err := a.readFile(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	meta := client.UploadMeta{
		Title:       *title,
		Description: *desc,
		FileName:    name,
		MediaType:   *mediaType,
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if meta.MediaType == "" {
		meta.MediaType = mime.TypeByExtension(filepath.Ext(name))
	}

	out, err := a.api.Upload(ctx, data, meta)
	if err != nil {
		return err
	}
	return a.print(out)
}

func (a *App) list(ctx context.Context, args []string) error {
	fs := newFlagSet("list")
	limit := fs.Int("limit", 0, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	out, err := a.api.ListDocuments(ctx, *limit, *offset)
	if err != nil {
		return err
	}
	return a.print(out)
}

func (a *App) history(ctx context.Context, args []string) error {
	fs := newFlagSet("history")
	limit := fs.Int("limit", 0, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("%w: history takes at most one document id", ErrUsage)
	}
	out, err := a.api.GetHistory(ctx, fs.Arg(0), *limit, *offset)
	if err != nil {
		return err
	}
	return a.print(out)
}

func (a *App) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: delete needs a document id", ErrUsage)
	}
	if err := a.api.DeleteDocument(ctx, args[0]); err != nil {
		return err
	}
	return a.print(map[string]any{"deleted": args[0]})
}

// byID adapts a single-document call into a command.
func byID(call func(api, context.Context, string) (map[string]any, error)) func(*App, context.Context, []string) error {
	return func(a *App, ctx context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("%w: a document id is required", ErrUsage)
		}
		out, err := call(a.api, ctx, args[0])
		if err != nil {
			return err
		}
		return a.print(out)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}
