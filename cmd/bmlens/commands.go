package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"github.com/nikbrunner/bmlens/internal/categorize"
	"github.com/nikbrunner/bmlens/internal/cleanup"
	"github.com/nikbrunner/bmlens/internal/config"
	"github.com/nikbrunner/bmlens/internal/culler"
	"github.com/nikbrunner/bmlens/internal/dedupe"
	"github.com/nikbrunner/bmlens/internal/emptyfolder"
	"github.com/nikbrunner/bmlens/internal/exporter"
	"github.com/nikbrunner/bmlens/internal/extract"
	"github.com/nikbrunner/bmlens/internal/importer"
	"github.com/nikbrunner/bmlens/internal/metrics"
	"github.com/nikbrunner/bmlens/internal/model"
	"github.com/nikbrunner/bmlens/internal/picker"
	"github.com/nikbrunner/bmlens/internal/search"
	"github.com/nikbrunner/bmlens/internal/server"
	"github.com/nikbrunner/bmlens/internal/stats"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
	warnColor   = color.New(color.FgRed)
)

// ImportCmd merges a browser export into the library.
type ImportCmd struct {
	Args struct {
		File string `positional-arg-name:"file" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c ImportCmd) run(e *env) error {
	f, err := os.Open(c.Args.File)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	format, folders, bookmarks, err := importer.Parse(f)
	if err != nil {
		return fmt.Errorf("import %s: %w", c.Args.File, err)
	}

	var added, skipped int
	err = e.lib.Update(func(store *model.Store) error {
		added, skipped = store.ImportMerge(folders, bookmarks)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Imported %d bookmarks from %s file, skipped %d already present\n", added, format, skipped)
	return nil
}

// ExportCmd writes the library to a file.
type ExportCmd struct {
	Format string `short:"f" long:"format" choice:"html" choice:"json" choice:"csv" choice:"xlsx" default:"html" description:"export format"`
	Args   struct {
		Path string `positional-arg-name:"path"`
	} `positional-args:"yes"`
}

func (c ExportCmd) run(ctx context.Context, e *env) error {
	format, err := exporter.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	path := c.Args.Path
	if path == "" {
		if path, err = exporter.DefaultExportPath(format); err != nil {
			return fmt.Errorf("export path: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	lib := exporter.Library{Bookmarks: e.lib.Bookmarks(), Now: time.Now()}
	if format == exporter.FormatCSV || format == exporter.FormatXLSX {
		if lib.Assignments, lib.Vocabulary, err = e.lib.Categorize(ctx, false); err != nil {
			return err
		}
	}

	f, err := os.Create(path) //nolint:gosec // path comes from CLI args
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if format == exporter.FormatHTML {
		err = e.lib.View(func(store *model.Store) error {
			lib.Store = store
			return exporter.Write(f, format, lib)
		})
	} else {
		err = exporter.Write(f, format, lib)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}

	fmt.Fprintf(e.out, "Exported %d bookmarks to %s\n", len(lib.Bookmarks), path)
	return nil
}

// StatsCmd prints library statistics.
type StatsCmd struct {
	JSON  bool `long:"json" description:"print as JSON"`
	Top   int  `long:"top" default:"10" description:"number of top domains"`
	Words int  `long:"words" default:"10" description:"number of top title words"`
}

func (c StatsCmd) run(e *env) error {
	bookmarks := e.lib.Bookmarks()
	st := stats.ForTree(e.lib.Tree(), time.Now())
	st.TopDomains = stats.TopDomains(bookmarks, c.Top)
	words := stats.WordCloud(bookmarks, c.Words)

	if c.JSON {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			stats.Stats
			Words []stats.WordCount `json:"words"`
		}{st, words})
	}

	headerColor.Fprintln(e.out, "Library")
	fmt.Fprintf(e.out, "  Bookmarks:          %d\n", st.Total)
	fmt.Fprintf(e.out, "  Folders:            %d\n", st.Folders)
	fmt.Fprintf(e.out, "  Unique domains:     %d\n", st.UniqueDomains)
	fmt.Fprintf(e.out, "  Added last 7 days:  %d\n", st.RecentAdded)

	if len(st.TopDomains) > 0 {
		fmt.Fprintln(e.out)
		headerColor.Fprintln(e.out, "Top domains")
		for _, d := range st.TopDomains {
			fmt.Fprintf(e.out, "  %5d  %s\n", d.Count, d.Domain)
		}
	}
	if len(words) > 0 {
		fmt.Fprintln(e.out)
		headerColor.Fprintln(e.out, "Top words")
		for _, w := range words {
			fmt.Fprintf(e.out, "  %5d  %s\n", w.Count, w.Word)
		}
	}
	return nil
}

// DuplicatesCmd lists and optionally removes duplicate bookmarks.
type DuplicatesCmd struct {
	Clean bool   `long:"clean" description:"delete duplicates, keeping one per group"`
	Keep  string `long:"keep" choice:"newest" choice:"oldest" description:"which bookmark of a group survives, duplicates.keep by default"`
}

func (c DuplicatesCmd) run(e *env) error {
	groups := dedupe.FindDuplicates(e.lib.Bookmarks())
	if len(groups) == 0 {
		fmt.Fprintln(e.out, "No duplicates found")
		return nil
	}

	total := 0
	for _, g := range groups {
		total += len(g.Bookmarks)
		headerColor.Fprintf(e.out, "%s: %s (%d)\n", g.Kind, g.Key, len(g.Bookmarks))
		for _, b := range g.Bookmarks {
			fmt.Fprintf(e.out, "  %s  %s %s\n", b.Title, b.URL, dimColor.Sprint(formatDate(b.DateAdded)))
		}
	}
	fmt.Fprintf(e.out, "\n%d groups, %d bookmarks\n", len(groups), total)

	if !c.Clean {
		return nil
	}
	keep := e.cfg.Duplicates.Keep
	if c.Keep != "" {
		keep = dedupe.KeepPolicy(c.Keep)
	}
	return e.clean(func(cl *cleanup.Cleaner, store *model.Store) (cleanup.Report, error) {
		return cl.Duplicates(store, dedupe.FindDuplicates(extract.Bookmarks(store.Tree().Children)), keep)
	})
}

// EmptyCmd lists and optionally removes empty folders.
type EmptyCmd struct {
	Clean bool `long:"clean" description:"delete empty folders"`
}

func (c EmptyCmd) run(e *env) error {
	folders := emptyfolder.Find([]model.Node{e.lib.Tree()})
	if len(folders) == 0 {
		fmt.Fprintln(e.out, "No empty folders found")
		return nil
	}
	for _, f := range folders {
		fmt.Fprintf(e.out, "  %s\n", f.Path)
	}
	fmt.Fprintf(e.out, "\n%d empty folders\n", len(folders))

	if !c.Clean {
		return nil
	}
	return e.clean(func(cl *cleanup.Cleaner, store *model.Store) (cleanup.Report, error) {
		return cl.EmptyFolders(store, emptyfolder.Find([]model.Node{store.Tree()}))
	})
}

// CheckCmd validates and probes every bookmark.
type CheckCmd struct {
	Clean   bool          `long:"clean" description:"delete invalid bookmarks"`
	Batch   int           `long:"batch" description:"links probed concurrently, check.batch_size by default"`
	Timeout time.Duration `long:"timeout" description:"per request timeout, check.timeout by default"`
	JSON    bool          `long:"json" description:"print as JSON"`
}

func (c CheckCmd) run(ctx context.Context, e *env) error {
	if c.Batch > 0 {
		e.cfg.Check.BatchSize = c.Batch
	}
	if c.Timeout > 0 {
		e.cfg.Check.Timeout = c.Timeout
	}

	m := metrics.New()
	progress := func(processed, total int) {
		fmt.Fprintf(progressOut, "\rchecked %d/%d", processed, total)
		if processed == total {
			fmt.Fprintln(progressOut)
		}
	}
	bookmarks := e.lib.Bookmarks()
	invalid, err := e.lib.Checker(m, progress).Check(ctx, bookmarks)
	interrupted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && !interrupted {
		return fmt.Errorf("check links: %w", err)
	}

	if path := e.cfg.Metrics.Textfile; path != "" {
		if werr := m.WriteToTextfile(path); werr != nil {
			log.Printf("[WARN] %v", werr)
		}
	}

	if c.JSON {
		if invalid == nil {
			invalid = []culler.InvalidBookmark{}
		}
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(invalid); err != nil {
			return err
		}
	} else {
		for _, b := range invalid {
			reason := string(b.Reason)
			if b.StatusCode != 0 {
				reason = fmt.Sprintf("%s %d", reason, b.StatusCode)
			}
			fmt.Fprintf(e.out, "%s  %s  %s\n", warnColor.Sprint(reason), b.Title, dimColor.Sprint(b.URL))
		}
		fmt.Fprintf(e.out, "\n%d of %d bookmarks invalid\n", len(invalid), len(bookmarks))
	}

	if interrupted {
		fmt.Fprintln(e.out, "check interrupted, results are partial")
		return nil
	}
	if !c.Clean || len(invalid) == 0 {
		return nil
	}
	return e.clean(func(cl *cleanup.Cleaner, store *model.Store) (cleanup.Report, error) {
		return cl.Invalid(store, invalid)
	})
}

// CategorizeCmd groups bookmarks by category.
type CategorizeCmd struct {
	AI   bool `long:"ai" description:"ask the configured LLM first, rules fill the gaps"`
	List bool `short:"l" long:"list" description:"list bookmarks of every category"`
	JSON bool `long:"json" description:"print as JSON"`
}

func (c CategorizeCmd) run(ctx context.Context, e *env) error {
	assignments, vocabulary, err := e.lib.Categorize(ctx, c.AI)
	if err != nil {
		return err
	}
	groups := categorize.Group(assignments, vocabulary)

	if c.JSON {
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	for _, g := range groups {
		headerColor.Fprintf(e.out, "%s (%d)\n", g.Category, len(g.Bookmarks))
		if !c.List {
			continue
		}
		for _, b := range g.Bookmarks {
			fmt.Fprintf(e.out, "  %s  %s\n", b.Title, dimColor.Sprint(b.URL))
		}
	}
	return nil
}

// SearchCmd fuzzy searches titles and opens the chosen bookmark.
type SearchCmd struct {
	Tags []string `short:"t" long:"tag" description:"only bookmarks with this tag, repeatable"`
	Args struct {
		Query []string `positional-arg-name:"query"`
	} `positional-args:"yes"`
}

func (c SearchCmd) run(e *env) error {
	query := strings.Join(c.Args.Query, " ")
	var results []search.SearchResult
	_ = e.lib.View(func(store *model.Store) error {
		for _, r := range search.Search(store, query, c.Tags) {
			b := *r.Bookmark
			r.Bookmark = &b
			results = append(results, r)
		}
		return nil
	})

	if len(results) == 0 {
		fmt.Fprintf(e.out, "No bookmarks found for '%s'\n", query)
		return nil
	}

	selected := results[0].Bookmark
	if len(results) > 1 {
		final, err := tea.NewProgram(picker.New(results, query)).Run()
		if err != nil {
			return fmt.Errorf("run picker: %w", err)
		}
		if selected = final.(picker.Picker).SelectedBookmark(); selected == nil {
			return nil
		}
	}

	fmt.Fprintf(e.out, "Opening: %s\n", selected.Title)
	return openBrowser(selected.URL)
}

// ServeCmd runs the HTTP API until interrupted.
type ServeCmd struct {
	Listen string `short:"l" long:"listen" env:"BMLENS_LISTEN" description:"listen address, server.listen by default"`
}

func (c ServeCmd) run(ctx context.Context, e *env) error {
	if c.Listen != "" {
		e.cfg.Server.Listen = c.Listen
	}
	srv := server.New(e.lib, server.Options{Version: revision, Debug: e.opts.Debug, Metrics: metrics.New()})
	return srv.Run(ctx)
}

// NotesCmd groups the note subcommands.
type NotesCmd struct {
	List NotesListCmd `command:"list" description:"list all notes"`
	Get  NotesGetCmd  `command:"get" description:"print the note of a bookmark"`
	Set  NotesSetCmd  `command:"set" description:"set the note of a bookmark, empty text removes it"`
}

// NotesListCmd prints every note.
type NotesListCmd struct{}

func (NotesListCmd) run(e *env) error {
	notes, err := e.lib.Notes()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(notes))
	for id := range notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(e.out, "%s  %s\n", dimColor.Sprint(id), notes[id])
	}
	return nil
}

// NotesGetCmd prints one note.
type NotesGetCmd struct {
	Args struct {
		ID string `positional-arg-name:"bookmark-id" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

func (c NotesGetCmd) run(e *env) error {
	note, err := e.lib.Note(c.Args.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, note)
	return nil
}

// NotesSetCmd stores one note.
type NotesSetCmd struct {
	Args struct {
		ID   string   `positional-arg-name:"bookmark-id" required:"yes"`
		Text []string `positional-arg-name:"text"`
	} `positional-args:"yes" required:"yes"`
}

func (c NotesSetCmd) run(e *env) error {
	exists := false
	_ = e.lib.View(func(store *model.Store) error {
		exists = store.GetBookmarkByID(c.Args.ID) != nil
		return nil
	})
	if !exists {
		return fmt.Errorf("bookmark %s: %w", c.Args.ID, model.ErrNotFound)
	}
	return e.lib.SetNote(c.Args.ID, strings.Join(c.Args.Text, " "))
}

// SchemaCmd prints the config file JSON schema.
type SchemaCmd struct{}

func (SchemaCmd) run(out io.Writer) error {
	data, err := config.Schema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// clean runs a cleanup against the store and prints its report.
func (e *env) clean(fn func(cl *cleanup.Cleaner, store *model.Store) (cleanup.Report, error)) error {
	var confirm cleanup.Confirmer = picker.Prompter{}
	if e.opts.Yes {
		confirm = cleanup.Yes
	}
	cl := cleanup.New(confirm, nil)

	var report cleanup.Report
	err := e.lib.Update(func(store *model.Store) (err error) {
		report, err = fn(cl, store)
		return err
	})
	if err != nil {
		return err
	}

	if report.Declined {
		fmt.Fprintln(e.out, "Nothing deleted")
		return nil
	}
	fmt.Fprintf(e.out, "Deleted %d of %d\n", len(report.Removed), report.Planned)
	for id, msg := range report.FailedMessages() {
		fmt.Fprintf(e.out, "  %s %s\n", warnColor.Sprint("failed"), id+": "+msg)
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown date"
	}
	return t.Local().Format("2006-01-02")
}

var (
	openBrowser           = openURL
	progressOut io.Writer = os.Stderr
)

// openURL opens a URL in the default browser.
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}
