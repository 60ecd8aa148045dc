package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
	"github.com/odvcencio/dashcore/pkg/revive"
)

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, withExitCode(fmt.Errorf("read %s: %w", path, err), exitUsage)
	}
	return data, nil
}

// describe prints one line per leaf of v: its path, Go type and value.
func describe(w io.Writer, path string, v any) {
	switch x := v.(type) {
	case []any:
		if len(x) > 0 {
			for i, e := range x {
				describe(w, fmt.Sprintf("%s[%d]", path, i), e)
			}
			return
		}
	case map[string]any:
		if len(x) > 0 {
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				child := k
				if path != "" {
					child = path + "." + k
				}
				describe(w, child, x[k])
			}
			return
		}
	}
	if path == "" {
		path = "."
	}
	fmt.Fprintf(w, "%s\t%T\t%v\n", path, v, v)
}

func runReviveCommand(_ *globalOptions, args []string) error {
	fs := flag.NewFlagSet("revive", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}
	data, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}
	v, err := revive.Parse(data)
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	describe(stdout, "", v)
	return nil
}

func runPutCommand(opts *globalOptions, args []string) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}
	key := strings.TrimSpace(fs.Arg(0))
	if key == "" {
		return usageError("usage: dashcore put KEY [FILE]")
	}
	data, err := readInput(fs.Arg(1))
	if err != nil {
		return err
	}
	v, err := revive.Parse(data)
	if err != nil {
		return withExitCode(err, exitUsage)
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	flush, err := a.publishWrites(store)
	if err != nil {
		return err
	}
	defer flush()

	ctx, cancel := commandContext()
	defer cancel()
	return store.Put(ctx, key, v)
}

func runGetCommand(opts *globalOptions, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	raw := fs.Bool("raw", false, "print the stored JSON")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}
	key := strings.TrimSpace(fs.Arg(0))
	if key == "" {
		return usageError("usage: dashcore get [-raw] KEY")
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := commandContext()
	defer cancel()
	if *raw {
		data, err := store.GetRaw(ctx, key)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}
	v, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	describe(stdout, "", v)
	return nil
}

func runDeleteCommand(opts *globalOptions, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return usageError("usage: dashcore delete KEY")
	}
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	flush, err := a.publishWrites(store)
	if err != nil {
		return err
	}
	defer flush()

	ctx, cancel := commandContext()
	defer cancel()
	existed, err := store.Delete(ctx, args[0])
	if err != nil {
		return err
	}
	if !existed {
		return dcerrors.New(dcerrors.ErrCodeNotFound, "document not found").WithContext("key", args[0])
	}
	return nil
}

func runKeysCommand(opts *globalOptions, args []string) error {
	fs := flag.NewFlagSet("keys", flag.ContinueOnError)
	prefix := fs.String("prefix", "", "only list keys starting with this prefix")
	long := fs.Bool("l", false, "show type, size and modification time")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := commandContext()
	defer cancel()
	docs, err := store.Documents(ctx, *prefix)
	if err != nil {
		return err
	}
	for _, d := range docs {
		if !*long {
			fmt.Fprintln(stdout, d.Key)
			continue
		}
		typ := d.Type
		if typ == "" {
			typ = "-"
		}
		fmt.Fprintf(stdout, "%s\t%s\t%d\t%s\n", d.Key, typ, d.Size, d.UpdatedAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func runImportCommand(opts *globalOptions, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	batch := fs.Int("batch", 100, "documents per transaction")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}
	data, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}
	v, err := revive.Parse(data)
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	entries, ok := v.(map[string]any)
	if !ok {
		return usageError("import expects a JSON object mapping keys to documents")
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	flush, err := a.publishWrites(store)
	if err != nil {
		return err
	}
	defer flush()

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bw := store.NewBatchWriter(*batch, time.Second)
	for _, k := range keys {
		if err := bw.Add(k, entries[k]); err != nil {
			bw.Close()
			return err
		}
	}
	if err := bw.Close(); err != nil {
		return err
	}
	a.log.Info().Int("documents", len(keys)).Msg("import complete")
	fmt.Fprintf(stdout, "imported %d documents\n", len(keys))
	return nil
}
