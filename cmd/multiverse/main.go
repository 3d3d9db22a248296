package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/smileynet/multiverse"
	"github.com/smileynet/multiverse/internal/async"
	"github.com/smileynet/multiverse/internal/browser"
	"github.com/smileynet/multiverse/internal/catalog"
	"github.com/smileynet/multiverse/internal/config"
	"github.com/smileynet/multiverse/internal/imagecache"
	"github.com/smileynet/multiverse/internal/imageload"
	"github.com/smileynet/multiverse/internal/logging"
	"github.com/smileynet/multiverse/internal/selection"
	"github.com/smileynet/multiverse/internal/twin"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals are flags shared by every command.
type Globals struct {
	BaseURL string `help:"Catalog API base URL (overrides config and environment)." name:"base-url"`
	Config  string `help:"Extra config file, layered after the user and project files." name:"config"`
}

// CLI is the top-level command structure for multiverse.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	Browse  BrowseCmd        `cmd:"" default:"1" help:"Browse characters interactively (default)."`
	List    ListCmd          `cmd:"" help:"Print the character list."`
	Show    ShowCmd          `cmd:"" help:"Print one character with its portrait."`
	Twin    TwinCmd          `cmd:"" help:"Serve a local catalog twin for offline use and tests."`
}

// loadConfig loads layered config from user, project, and --config paths,
// then environment overrides, then flags.
func loadConfig(g *Globals) (*config.Config, error) {
	paths := []string{
		os.ExpandEnv("$HOME/.config/multiverse/config.yaml"),
		".multiverse/config.yaml",
	}
	if g.Config != "" {
		paths = append(paths, g.Config)
	}
	cfg, err := config.LoadLayered(paths...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if g.BaseURL != "" {
		cfg.Catalog.BaseURL = g.BaseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Without a log file, entries go to
// fallback.
func newLogger(cfg *config.Config, fallback io.Writer, component string) *logging.Logger {
	return logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Output:     fallback,
		Component:  component,
	})
}

func newCatalogClient(cfg *config.Config, log logrus.FieldLogger) *catalog.Client {
	return catalog.NewClient(cfg.Catalog.BaseURL,
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithLogger(log.WithField("component", "catalog")),
	)
}

func newImageLoader(cfg *config.Config, log logrus.FieldLogger) *imageload.Loader {
	w, h := cfg.Images.PixelBounds()
	return imageload.New(
		imageload.WithBounds(w, h),
		imageload.WithTimeout(cfg.Images.Timeout),
		imageload.WithLogger(log.WithField("component", "imageload")),
	)
}

// --- Browse command ---

// BrowseCmd opens the interactive browser TUI.
type BrowseCmd struct{}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run builds real dependencies and launches the browser TUI.
func (b *BrowseCmd) Run(g *Globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return b.run(false, nil)
	}

	cfg, err := loadConfig(g)
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}

	// The TUI owns the terminal, so without a file the logger is silent.
	log := newLogger(cfg, io.Discard, "browse")
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := async.NewRunner[*imagecache.Image](
		async.WithContext(ctx),
		async.WithLogger(log.WithField("component", "async")),
	)
	ctrl := selection.New(imagecache.New(), newImageLoader(cfg, log), runner,
		selection.WithLogger(log.WithField("component", "selection")),
	)
	m := browser.NewModel(ctrl,
		browser.WithRecordLister(newCatalogClient(cfg, log)),
		browser.WithAutoSelect(cfg.UI.AutoSelect),
		browser.WithContext(ctx),
		browser.WithLogger(log.WithField("component", "browser")),
	)

	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	return b.run(true, prog)
}

// run executes the tea program, enabling testable wiring.
func (b *BrowseCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("browse: requires a terminal (TTY); use 'multiverse list' instead")
	}
	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// --- List command ---

// ListCmd prints the character list as a table.
type ListCmd struct{}

// Run fetches the catalog and prints it to stdout.
func (l *ListCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	log := newLogger(cfg, os.Stderr, "list")
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return l.run(ctx, os.Stdout, newCatalogClient(cfg, log))
}

func (l *ListCmd) run(ctx context.Context, w io.Writer, lister browser.RecordLister) error {
	records, err := lister.ListRecords(ctx)
	if err != nil {
		fmt.Fprintln(w, "No characters loaded")
		return fmt.Errorf("list: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No characters loaded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSPECIES\tORIGIN")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Status, r.Species, r.Origin)
	}
	return tw.Flush()
}

// --- Show command ---

// ShowCmd prints one character and, unless disabled, its portrait.
type ShowCmd struct {
	ID      int  `arg:"" help:"Character ID."`
	NoImage bool `help:"Skip the portrait." default:"false"`
}

// imageLoader fetches one portrait.
type imageLoader interface {
	Load(ctx context.Context, key string) (*imagecache.Image, error)
}

// Run fetches the catalog, then the selected portrait.
func (s *ShowCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	log := newLogger(cfg, os.Stderr, "show")
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return s.run(ctx, os.Stdout, newCatalogClient(cfg, log), newImageLoader(cfg, log))
}

func (s *ShowCmd) run(ctx context.Context, w io.Writer, lister browser.RecordLister, loader imageLoader) error {
	records, err := lister.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	r, ok := records.Find(s.ID)
	if !ok {
		return fmt.Errorf("show: character %d not found", s.ID)
	}

	if !s.NoImage && r.ImageKey != "" {
		img, err := loader.Load(ctx, r.ImageKey)
		switch {
		case err != nil:
			fmt.Fprintf(w, "Image unavailable: %s\n\n", err)
		case img != nil && img.Bitmap != nil:
			fmt.Fprintf(w, "%s\n\n", browser.RenderImage(img.Bitmap))
		}
	}

	fmt.Fprintf(w, "%s\n\n", r.Name)
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", r.ID)
	fmt.Fprintf(tw, "Species:\t%s\n", r.Species)
	fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
	fmt.Fprintf(tw, "Origin:\t%s\n", r.Origin)
	return tw.Flush()
}

// --- Twin command ---

// TwinCmd serves the catalog twin over HTTP.
type TwinCmd struct {
	Addr       string        `help:"Listen address." default:"127.0.0.1:8089"`
	ImageDelay time.Duration `help:"Delay every portrait response (e.g. 500ms) to exercise pending states." default:"0s"`
	Fixtures   string        `help:"Directory whose characters.json overrides the embedded fixtures."`
}

// Run serves until interrupted.
func (c *TwinCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return fmt.Errorf("twin: %w", err)
	}
	log := newLogger(cfg, os.Stderr, "twin")
	defer log.Close()

	h, err := c.handler(log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := &http.Server{Addr: c.Addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	fmt.Fprintf(os.Stdout, "catalog twin listening on http://%s/api\n", c.Addr)
	return serve(ctx, srv)
}

// handler builds the twin from embedded fixtures, overlaid by c.Fixtures.
func (c *TwinCmd) handler(log logrus.FieldLogger) (*twin.Server, error) {
	chars, err := twin.LoadCharacters(multiverse.OverlayFS(c.Fixtures, multiverse.Fixtures), multiverse.FixtureFile)
	if err != nil {
		return nil, err
	}
	return twin.New(twin.NewStore(chars),
		twin.WithImageDelay(c.ImageDelay),
		twin.WithLogger(log),
	), nil
}

// serve runs srv until ctx is done, then shuts it down.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("twin: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("twin: shutdown: %w", err)
	}
	return nil
}

const (
	exitSuccess = 0
	exitSetup   = 1
	exitFetch   = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var fe *catalog.FetchError
	if errors.As(err, &fe) {
		return exitFetch
	}
	return exitSetup
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("multiverse"),
		kong.Description("Browse the multiverse character catalog."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
