// Package cleanup deletes duplicates, empty folders and invalid bookmarks
// from a library after the user confirmed the plan.
package cleanup

import (
	"fmt"
	"log"

	"github.com/nikbrunner/bmlens/internal/culler"
	"github.com/nikbrunner/bmlens/internal/dedupe"
	"github.com/nikbrunner/bmlens/internal/emptyfolder"
	"github.com/nikbrunner/bmlens/internal/model"
)

// Kind names a cleanup operation.
type Kind string

const (
	KindDuplicates   Kind = "duplicates"
	KindEmptyFolders Kind = "empty-folders"
	KindInvalid      Kind = "invalid"
)

// ParseKind converts a path or flag value into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindDuplicates, KindEmptyFolders, KindInvalid:
		return k, nil
	case "empty":
		return KindEmptyFolders, nil
	default:
		return "", fmt.Errorf("unknown cleanup kind %q", s)
	}
}

// Confirmer approves a planned deletion. items are human readable lines.
type Confirmer interface {
	Confirm(prompt string, items []string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string, items []string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string, items []string) (bool, error) {
	return f(prompt, items)
}

// Yes approves everything.
var Yes Confirmer = ConfirmFunc(func(string, []string) (bool, error) { return true, nil })

// Recorder receives cleanup totals.
type Recorder interface {
	CleanupDone(kind string, removed, failed int)
}

// Report tells what a cleanup run did. Failed maps item IDs to their error.
type Report struct {
	Kind     Kind             `json:"kind"`
	Planned  int              `json:"planned"`
	Removed  []string         `json:"removed"`
	Failed   map[string]error `json:"-"`
	Declined bool             `json:"declined,omitempty"`
}

// FailedMessages returns Failed with errors rendered as strings.
func (r Report) FailedMessages() map[string]string {
	res := make(map[string]string, len(r.Failed))
	for id, err := range r.Failed {
		res[id] = err.Error()
	}
	return res
}

// Cleaner runs confirmed deletions against a store. Every deletion is
// independent: a failure is recorded and the run goes on, nothing is rolled back.
type Cleaner struct {
	confirm  Confirmer
	recorder Recorder
}

// New creates a Cleaner. A nil confirmer approves everything, a nil recorder is ignored.
func New(confirm Confirmer, recorder Recorder) *Cleaner {
	if confirm == nil {
		confirm = Yes
	}
	return &Cleaner{confirm: confirm, recorder: recorder}
}

// Duplicates removes every bookmark of the groups except the one policy keeps.
func (c *Cleaner) Duplicates(store *model.Store, groups []dedupe.Group, policy dedupe.KeepPolicy) (Report, error) {
	doomed := dedupe.PlanRemoval(groups, policy)
	ids := make([]string, len(doomed))
	lines := make([]string, len(doomed))
	for i, b := range doomed {
		ids[i] = b.ID
		lines[i] = fmt.Sprintf("%s  %s", b.Title, b.URL)
	}
	prompt := fmt.Sprintf("Delete %d duplicate bookmarks (keeping the %s of each group)?", len(doomed), policy)
	return c.run(KindDuplicates, prompt, ids, lines, store.RemoveBookmark)
}

// EmptyFolders removes the topmost empty folders, each with its whole subtree.
func (c *Cleaner) EmptyFolders(store *model.Store, folders []emptyfolder.EmptyFolder) (Report, error) {
	top := emptyfolder.Prune(folders)
	ids := make([]string, len(top))
	lines := make([]string, len(top))
	for i, f := range top {
		ids[i] = f.ID
		lines[i] = f.Path
	}
	prompt := fmt.Sprintf("Delete %d empty folders?", len(top))
	return c.run(KindEmptyFolders, prompt, ids, lines, store.RemoveTree)
}

// Invalid removes the reported bookmarks.
func (c *Cleaner) Invalid(store *model.Store, invalid []culler.InvalidBookmark) (Report, error) {
	ids := make([]string, len(invalid))
	lines := make([]string, len(invalid))
	for i, b := range invalid {
		ids[i] = b.ID
		lines[i] = fmt.Sprintf("%s  %s (%s)", b.Title, b.URL, b.Reason)
	}
	prompt := fmt.Sprintf("Delete %d invalid bookmarks?", len(invalid))
	return c.run(KindInvalid, prompt, ids, lines, store.RemoveBookmark)
}

func (c *Cleaner) run(kind Kind, prompt string, ids, lines []string, remove func(id string) error) (Report, error) {
	report := Report{Kind: kind, Planned: len(ids), Removed: []string{}, Failed: map[string]error{}}
	if len(ids) == 0 {
		return report, nil
	}

	ok, err := c.confirm.Confirm(prompt, lines)
	if err != nil {
		return report, fmt.Errorf("confirm %s cleanup: %w", kind, err)
	}
	if !ok {
		log.Printf("[INFO] %s cleanup declined", kind)
		report.Declined = true
		return report, nil
	}

	for _, id := range ids {
		if err := remove(id); err != nil {
			log.Printf("[WARN] can't remove %s: %v", id, err)
			report.Failed[id] = err
			continue
		}
		report.Removed = append(report.Removed, id)
	}

	log.Printf("[INFO] %s cleanup removed %d, failed %d", kind, len(report.Removed), len(report.Failed))
	if c.recorder != nil {
		c.recorder.CleanupDone(string(kind), len(report.Removed), len(report.Failed))
	}
	return report, nil
}
