// Leaf is a terminal ebook reader for EPUB, FictionBook and MOBI files.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"leaf/config"
	"leaf/ebook"
	"leaf/layout"
	"leaf/reader"
	"leaf/state"
)

func main() {
	app := &cli.Command{
		Name:            "leaf",
		Usage:           "read EPUB, FB2 and MOBI books in the terminal",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (TOML)"},
			&cli.IntFlag{Name: "width", Aliases: []string{"w"}, Usage: "override the text column `WIDTH`"},
			&cli.BoolFlag{Name: "seamless", Usage: "merge chapters into one continuous scroll"},
			&cli.BoolFlag{Name: "history", Aliases: []string{"r"}, Usage: "list recently read books and exit"},
			&cli.BoolFlag{Name: "dump", Aliases: []string{"d"}, Usage: "write the book as plain text to stdout and exit"},
			&cli.BoolFlag{Name: "info", Usage: "print the book's metadata and exit"},
			&cli.BoolFlag{Name: "init-config", Usage: "write the default configuration file and exit"},
		},
		ArgsUsage: "[BOOK]",
		Action:    run,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "leaf: %v\n", err)
		os.Exit(1)
	}
}

func run(_ context.Context, cmd *cli.Command) error {
	if cmd.Bool("init-config") {
		return initConfig()
	}

	cfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if w := cmd.Int("width"); w > 0 {
		cfg.Display.TextWidth = int(w)
	}
	if cmd.Bool("seamless") {
		cfg.Display.Seamless = true
	}

	log, err := cfg.Logging.Logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	dataDir, err := config.DataDir()
	if err != nil {
		return fmt.Errorf("resolving data directory: %w", err)
	}
	store, err := state.Open(filepath.Join(dataDir, "leaf.db"))
	if err != nil {
		return err
	}

	if cmd.Bool("history") {
		defer store.Close()
		return printHistory(store)
	}

	path, err := pickBook(cmd, store)
	if err != nil {
		store.Close()
		return err
	}

	book, err := ebook.Open(path)
	if err != nil {
		store.Close()
		return err
	}

	switch {
	case cmd.Bool("info"):
		defer store.Close()
		defer book.Close()
		return printInfo(book)
	case cmd.Bool("dump"):
		defer store.Close()
		defer book.Close()
		return dumpText(book, cfg.Display.TextWidth)
	}

	log.Info("opening book", zap.String("path", path), zap.String("title", book.Metadata().Title))

	r, err := reader.New(book, store, cfg, log)
	if err != nil {
		return multierr.Append(err, multierr.Append(book.Close(), store.Close()))
	}
	defer r.Close()
	return r.Run()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func initConfig() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(config.DefaultTOML()), 0o644); err != nil {
		return err
	}
	fmt.Println("wrote", path)
	return nil
}

// pickBook resolves the book to open: the argument when given, the most
// recently read book otherwise.
func pickBook(cmd *cli.Command, store *state.Store) (string, error) {
	if cmd.NArg() > 0 {
		return filepath.Abs(cmd.Args().First())
	}
	items, err := store.Library(1)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", fmt.Errorf("no book given and no reading history")
	}
	return items[0].Path, nil
}

func printHistory(store *state.Store) error {
	items, err := store.Library(0)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no reading history")
		return nil
	}
	for _, item := range items {
		title := item.Title
		if title == "" {
			title = filepath.Base(item.Path)
		}
		fmt.Printf("%3.0f%%  %-40s %s\n", item.Progress*100, title, item.Path)
	}
	return nil
}

func printInfo(book ebook.Ebook) error {
	for _, f := range book.Metadata().Fields() {
		fmt.Printf("%-12s %s\n", f[0]+":", f[1])
	}
	return nil
}

// dumpText lays the whole book out at the configured width and prints it,
// chapter after chapter.
func dumpText(book ebook.Ebook, width int) error {
	for i := range book.Contents() {
		src, err := book.RawText(i)
		if err != nil {
			return err
		}
		st, err := layout.ParseHTML(src, nil).StructuredText(width, 0)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(st.Lines, "\n"))
	}
	return nil
}
