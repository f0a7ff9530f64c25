// Command collections is a small client for a collection server. It keeps a
// local catalog in sync with the remote source and applies creates and
// updates through it.
//
//	collections list   --kind users
//	collections create --kind tasks --set title="Write docs"
//	collections update --kind products --id 2 --set price=9.5 --set stock=3
//	collections sync
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/stevemurr/collection-sync/catalog"
	"github.com/stevemurr/collection-sync/collection"
	"github.com/stevemurr/collection-sync/entity"
)

const usage = `usage: collections <list|create|update|sync> [flags]

Flags:
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	kind    string
	id      int64
	sets    []string
	baseURL string
	timeout time.Duration
	verbose bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprint(stderr, usage)
		return 2
	}
	op := args[0]

	var opts options
	fs := pflag.NewFlagSet("collections "+op, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.kind, "kind", "k", entity.Users, "collection to operate on: "+strings.Join(entity.Kinds(), ", "))
	fs.Int64Var(&opts.id, "id", 0, "entity id (update)")
	fs.StringArrayVar(&opts.sets, "set", nil, "field assignment key=value; values are parsed as JSON, falling back to the literal string")
	fs.StringVar(&opts.baseURL, "base-url", "", "collection server URL (default $COLLECTIONS_BASE_URL or "+catalog.DefaultBaseURL+")")
	fs.DurationVar(&opts.timeout, "timeout", 0, "per-call remote timeout")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log remote calls to stderr")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := catalog.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if fs.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if fs.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if opts.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		defer func() { _ = logger.Sync() }()
		cfg.Logger = logger.Named("remote")
	}

	scope, err := catalog.NewScope(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer scope.Close()
	ctx = catalog.WithScope(ctx, scope)

	if err := dispatch(ctx, op, opts, stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%v\n", err)
			fs.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, op string, opts options, out io.Writer) error {
	c, ok := catalog.FromContext(ctx)
	if !ok {
		return errors.New("no catalog in scope")
	}
	if op == "sync" {
		if err := c.FetchAll(ctx); err != nil {
			return err
		}
		return writeJSON(out, c.Counts())
	}

	fields, err := parseSets(opts.sets)
	if err != nil {
		return err
	}
	switch opts.kind {
	case entity.Users:
		return runKind(ctx, c.Users, op, opts.id, fields, out)
	case entity.Tasks:
		return runKind(ctx, c.Tasks, op, opts.id, fields, out)
	case entity.Products:
		return runKind(ctx, c.Products, op, opts.id, fields, out)
	case entity.Books:
		return runKind(ctx, c.Books, op, opts.id, fields, out)
	}
	return fmt.Errorf("%w: unknown kind %q", errUsage, opts.kind)
}

func runKind[E entity.Entity, D any](ctx context.Context, s *collection.Store[E, D], op string, id int64, fields map[string]string, out io.Writer) error {
	switch op {
	case "list":
		items, err := s.FetchAll(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, items)

	case "create":
		if len(fields) == 0 {
			return fmt.Errorf("%w: create needs at least one --set", errUsage)
		}
		var draft D
		if err := overlay(&draft, fields); err != nil {
			return err
		}
		created, err := s.Create(ctx, draft)
		if err != nil {
			return err
		}
		return writeJSON(out, created)

	case "update":
		if id <= 0 {
			return fmt.Errorf("%w: update needs --id", errUsage)
		}
		if _, err := s.FetchAll(ctx); err != nil {
			return err
		}
		current, ok := s.Get(id)
		if !ok {
			return fmt.Errorf("%s %d: %w", entity.CollectionOf[E](), id, collection.ErrNotFound)
		}
		if err := overlay(&current, fields); err != nil {
			return err
		}
		updated, err := s.Update(ctx, current)
		if err != nil {
			return err
		}
		return writeJSON(out, updated)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, op)
}

// parseSets turns key=value pairs into raw field values. The id field is
// owned by the server and cannot be set.
func parseSets(sets []string) (map[string]string, error) {
	fields := make(map[string]string, len(sets))
	for _, kv := range sets {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: --set %q is not key=value", errUsage, kv)
		}
		if key == "id" {
			return nil, fmt.Errorf("%w: id cannot be set", errUsage)
		}
		fields[key] = raw
	}
	return fields, nil
}

// fieldValue parses raw as JSON, falling back to the string itself.
func fieldValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// overlay writes fields onto dst through its JSON form. A value that parses
// as JSON but does not fit its field is retried as the literal string, so
// title=123 sets the title "123". Unknown field names are rejected.
func overlay(dst any, fields map[string]string) error {
	b, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	for k, raw := range fields {
		m[k] = fieldValue(raw)
	}

	literal := map[string]bool{}
	for {
		err := decodeStrict(dst, m)
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			if raw, ok := fields[te.Field]; ok && !literal[te.Field] {
				literal[te.Field] = true
				m[te.Field] = raw
				continue
			}
		}
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}

func decodeStrict(dst any, m map[string]any) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
