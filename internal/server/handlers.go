package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/rest"

	"github.com/nikbrunner/bmlens/internal/ai"
	"github.com/nikbrunner/bmlens/internal/categorize"
	"github.com/nikbrunner/bmlens/internal/cleanup"
	"github.com/nikbrunner/bmlens/internal/culler"
	"github.com/nikbrunner/bmlens/internal/dedupe"
	"github.com/nikbrunner/bmlens/internal/emptyfolder"
	"github.com/nikbrunner/bmlens/internal/exporter"
	"github.com/nikbrunner/bmlens/internal/extract"
	"github.com/nikbrunner/bmlens/internal/library"
	"github.com/nikbrunner/bmlens/internal/model"
	"github.com/nikbrunner/bmlens/internal/search"
	"github.com/nikbrunner/bmlens/internal/stats"
)

const defaultRecent = 20

func (s *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, stats.ForTree(s.lib.Tree(), s.now()))
}

func (s *Server) wordCloudHandler(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", stats.DefaultWordCloudSize)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err, "invalid n")
		return
	}
	renderJSON(w, http.StatusOK, stats.WordCloud(s.lib.Bookmarks(), n))
}

func (s *Server) heatmapHandler(w http.ResponseWriter, r *http.Request) {
	loc := time.Local
	if tz := r.URL.Query().Get("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, err, "invalid tz")
			return
		}
		loc = l
	}
	renderJSON(w, http.StatusOK, stats.Heatmap(s.lib.Bookmarks(), loc))
}

func (s *Server) duplicatesHandler(w http.ResponseWriter, _ *http.Request) {
	groups := dedupe.FindDuplicates(s.lib.Bookmarks())
	if groups == nil {
		groups = []dedupe.Group{}
	}
	renderJSON(w, http.StatusOK, groups)
}

func (s *Server) emptyFoldersHandler(w http.ResponseWriter, _ *http.Request) {
	folders := emptyfolder.Find([]model.Node{s.lib.Tree()})
	if folders == nil {
		folders = []emptyfolder.EmptyFolder{}
	}
	renderJSON(w, http.StatusOK, folders)
}

func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	withAI := r.URL.Query().Get("ai") == "true"
	assignments, vocabulary, err := s.lib.Categorize(r.Context(), withAI)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, ai.ErrNoAPIKey) {
			code = http.StatusBadRequest
		}
		renderError(w, r, code, err, "can't categorize bookmarks")
		return
	}
	renderJSON(w, http.StatusOK, rest.JSON{
		"vocabulary":  vocabulary,
		"groups":      categorize.Group(assignments, vocabulary),
		"assignments": assignments,
	})
}

// checkHandler probes every bookmark and keeps the result for invalid cleanup.
// Only one check runs at a time.
func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	if !s.checkLock.TryLock() {
		renderError(w, r, http.StatusConflict, errors.New("check in progress"), "check already running")
		return
	}
	defer s.checkLock.Unlock()

	bookmarks := s.lib.Bookmarks()
	invalid, err := s.lib.Checker(s.metrics, nil).Check(r.Context(), bookmarks)
	if err != nil {
		log.Printf("[WARN] link check interrupted: %v", err)
		renderError(w, r, http.StatusServiceUnavailable, err, "link check interrupted")
		return
	}
	if invalid == nil {
		invalid = []culler.InvalidBookmark{}
	}
	s.lastInvalid, s.checked = invalid, true

	renderJSON(w, http.StatusOK, rest.JSON{"checked": len(bookmarks), "invalid": invalid})
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(r.PathValue("format"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err, "unknown export format")
		return
	}

	lib := exporter.Library{Bookmarks: s.lib.Bookmarks(), Now: s.now()}
	switch format {
	case exporter.FormatHTML:
		err = s.lib.View(func(store *model.Store) error {
			return s.writeExport(w, format, exporter.Library{Store: store, Now: lib.Now})
		})
	case exporter.FormatCSV, exporter.FormatXLSX:
		lib.Assignments, lib.Vocabulary, err = s.lib.Categorize(r.Context(), false)
		if err == nil {
			err = s.writeExport(w, format, lib)
		}
	default:
		err = s.writeExport(w, format, lib)
	}
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err, "export failed")
	}
}

func (s *Server) writeExport(w http.ResponseWriter, format exporter.Format, lib exporter.Library) error {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName(lib.Now)))
	return exporter.Write(w, format, lib)
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var tags []string
	for _, t := range q["tag"] {
		tags = append(tags, strings.Split(t, ",")...)
	}

	results := []search.SearchResult{}
	_ = s.lib.View(func(store *model.Store) error {
		for _, res := range search.Search(store, q.Get("q"), tags) {
			b := *res.Bookmark
			res.Bookmark = &b
			results = append(results, res)
		}
		return nil
	})
	renderJSON(w, http.StatusOK, results)
}

func (s *Server) recentHandler(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", defaultRecent)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err, "invalid n")
		return
	}
	recent := []model.Bookmark{}
	_ = s.lib.View(func(store *model.Store) error {
		recent = append(recent, store.Recent(n)...)
		return nil
	})
	renderJSON(w, http.StatusOK, recent)
}

func (s *Server) deleteBookmarkHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.lib.Update(func(store *model.Store) error {
		return store.RemoveBookmark(id)
	})
	if err != nil {
		renderError(w, r, storeErrorCode(err), err, "can't delete bookmark")
		return
	}
	if err := s.lib.SetNote(id, ""); err != nil {
		log.Printf("[WARN] can't drop note of %s: %v", id, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteFolderHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.lib.Update(func(store *model.Store) error {
		return store.RemoveTree(id)
	})
	if err != nil {
		renderError(w, r, storeErrorCode(err), err, "can't delete folder")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// cleanupHandler plans a cleanup and runs it only with confirm=true.
// Without confirmation the plan is returned as a declined report. Invalid
// cleanup answers 409 while a check is running.
func (s *Server) cleanupHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := cleanup.ParseKind(r.PathValue("kind"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err, "unknown cleanup kind")
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"

	keep := s.lib.Config().Duplicates.Keep
	if v := r.URL.Query().Get("keep"); v != "" {
		if keep, err = dedupe.ParseKeepPolicy(v); err != nil {
			renderError(w, r, http.StatusBadRequest, err, "invalid keep policy")
			return
		}
	}

	var invalid []culler.InvalidBookmark
	if kind == cleanup.KindInvalid {
		if !s.checkLock.TryLock() {
			renderError(w, r, http.StatusConflict, errors.New("check in progress"), "check already running")
			return
		}
		defer s.checkLock.Unlock()
		invalid = s.lastInvalid
		if !s.checked {
			renderError(w, r, http.StatusConflict, errors.New("no check results"), "run a check first")
			return
		}
	}

	cleaner := cleanup.New(cleanup.ConfirmFunc(func(string, []string) (bool, error) {
		return confirmed, nil
	}), s.metrics)

	run := func(store *model.Store) (cleanup.Report, error) {
		switch kind {
		case cleanup.KindDuplicates:
			bookmarks := extract.Bookmarks(store.Tree().Children)
			return cleaner.Duplicates(store, dedupe.FindDuplicates(bookmarks), keep)
		case cleanup.KindEmptyFolders:
			return cleaner.EmptyFolders(store, emptyfolder.Find([]model.Node{store.Tree()}))
		default:
			return cleaner.Invalid(store, invalid)
		}
	}

	var report cleanup.Report
	apply := s.lib.View
	if confirmed {
		apply = s.lib.Update
	}
	err = apply(func(store *model.Store) (err error) {
		report, err = run(store)
		return err
	})
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err, "cleanup failed")
		return
	}

	if confirmed && kind == cleanup.KindInvalid {
		s.lastInvalid, s.checked = nil, false
	}

	renderJSON(w, http.StatusOK, rest.JSON{
		"kind":     report.Kind,
		"planned":  report.Planned,
		"removed":  report.Removed,
		"failed":   report.FailedMessages(),
		"declined": report.Declined,
	})
}

type noteRequest struct {
	Note string `json:"note"`
}

func (s *Server) listNotesHandler(w http.ResponseWriter, r *http.Request) {
	notes, err := s.lib.Notes()
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err, "can't list notes")
		return
	}
	renderJSON(w, http.StatusOK, notes)
}

func (s *Server) getNoteHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	note, err := s.lib.Note(id)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err, "can't read note")
		return
	}
	renderJSON(w, http.StatusOK, rest.JSON{"id": id, "note": note})
}

func (s *Server) putNoteHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, err, "invalid note")
		return
	}

	exists := false
	_ = s.lib.View(func(store *model.Store) error {
		exists = store.GetBookmarkByID(id) != nil
		return nil
	})
	if !exists {
		renderError(w, r, http.StatusNotFound, model.ErrNotFound, "bookmark not found")
		return
	}

	if err := s.lib.SetNote(id, req.Note); err != nil {
		renderError(w, r, http.StatusInternalServerError, err, "can't store note")
		return
	}
	renderJSON(w, http.StatusOK, rest.JSON{"id": id, "note": req.Note})
}

func (s *Server) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := s.lib.AISettings()
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err, "can't read settings")
		return
	}
	renderJSON(w, http.StatusOK, settings.Redacted())
}

// putSettingsHandler stores AI settings. An empty or redacted API key keeps
// the current one.
func (s *Server) putSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req ai.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, err, "invalid settings")
		return
	}
	current, err := s.lib.AISettings()
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err, "can't read settings")
		return
	}
	if req.APIKey == "" || req.APIKey == current.Redacted().APIKey {
		req.APIKey = current.APIKey
	}
	switch req.Provider {
	case "", ai.ProviderOpenAI, ai.ProviderGemini:
	case ai.ProviderCustom:
		if req.CustomAPIURL == "" {
			renderError(w, r, http.StatusBadRequest, errors.New("missing customApiUrl"), "custom provider needs customApiUrl")
			return
		}
	default:
		renderError(w, r, http.StatusBadRequest, fmt.Errorf("provider %q", req.Provider), "unknown provider")
		return
	}

	if err := s.lib.SetAISettings(req); err != nil {
		renderError(w, r, http.StatusInternalServerError, err, "can't store settings")
		return
	}
	renderJSON(w, http.StatusOK, req.Redacted())
}

func (s *Server) getStateHandler(w http.ResponseWriter, r *http.Request) {
	st, err := s.lib.State()
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err, "can't read state")
		return
	}
	renderJSON(w, http.StatusOK, st)
}

func (s *Server) putStateHandler(w http.ResponseWriter, r *http.Request) {
	var st library.AppState
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		renderError(w, r, http.StatusBadRequest, err, "invalid state")
		return
	}
	if err := st.Validate(); err != nil {
		renderError(w, r, http.StatusBadRequest, err, "invalid state")
		return
	}
	saved, err := s.lib.SetState(st)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err, "can't store state")
		return
	}
	renderJSON(w, http.StatusOK, saved)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func storeErrorCode(err error) int {
	if errors.Is(err, model.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
