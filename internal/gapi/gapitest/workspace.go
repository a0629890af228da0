// Package gapitest provides an in-memory Drive, Sheets and Slides workspace
// for engine tests. It applies the batch requests the pipeline issues,
// supports failure injection and records every call.
package gapitest

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
	"google.golang.org/api/slides/v1"

	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/pkg/deck"
)

// Tab seeds one sheet of a fake spreadsheet.
type Tab struct {
	Title  string
	Charts []int64
	Values [][]string
}

type entry struct {
	file    gapi.File
	content []byte
}

type sheetTab struct {
	id     int64
	title  string
	charts []int64
	values [][]interface{}
}

type fault struct {
	op        string
	target    string
	err       error
	remaining int
}

// Workspace implements gapi.Drive, gapi.Sheets and gapi.Slides over shared state.
type Workspace struct {
	mu sync.Mutex

	seq     int
	order   []string
	files   map[string]*entry
	sheets  map[string][]*sheetTab
	decks   map[string]*slides.Presentation
	perms   map[string]map[string]string
	faults  []*fault
	calls   []string
	batches map[string][][]string
}

var (
	_ gapi.Drive  = (*Workspace)(nil)
	_ gapi.Sheets = (*Workspace)(nil)
	_ gapi.Slides = (*Workspace)(nil)
)

// New returns an empty workspace.
func New() *Workspace {
	return &Workspace{
		files:   map[string]*entry{},
		sheets:  map[string][]*sheetTab{},
		decks:   map[string]*slides.Presentation{},
		perms:   map[string]map[string]string{},
		batches: map[string][][]string{},
	}
}

// notFound mirrors what the real clients return once errors are mapped.
func notFound(id string) error {
	return &deck.NotFoundError{Kind: "file", Name: id}
}

func badRequest(format string, a ...any) error {
	return &googleapi.Error{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, a...)}
}

func (w *Workspace) nextID(prefix string) string {
	w.seq++
	return fmt.Sprintf("%s-%03d", prefix, w.seq)
}

func (w *Workspace) add(f gapi.File, content []byte) string {
	if f.ID == "" {
		f.ID = w.nextID("file")
	}
	w.files[f.ID] = &entry{file: f, content: content}
	w.order = append(w.order, f.ID)
	return f.ID
}

func parents(parentID string) []string {
	if parentID == "" {
		return nil
	}
	return []string{parentID}
}

// AddFolder creates a folder and returns its ID.
func (w *Workspace) AddFolder(name, parentID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.add(gapi.File{Name: name, MimeType: gapi.MimeFolder, Parents: parents(parentID)}, nil)
}

// AddFile creates a file with content and returns its ID.
func (w *Workspace) AddFile(name, parentID, mimeType string, content []byte) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.add(gapi.File{Name: name, MimeType: mimeType, Parents: parents(parentID)}, content)
}

// AddImage creates an image file with pixel dimensions.
func (w *Workspace) AddImage(name, parentID, mimeType string, width, height int64) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.add(gapi.File{Name: name, MimeType: mimeType, Parents: parents(parentID), Width: width, Height: height}, []byte("img:"+name))
}

// AddSpreadsheet creates a spreadsheet with the given tabs.
func (w *Workspace) AddSpreadsheet(name, parentID string, tabs ...Tab) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.add(gapi.File{Name: name, MimeType: gapi.MimeSpreadsheet, Parents: parents(parentID)}, nil)
	st := make([]*sheetTab, len(tabs))
	for i, t := range tabs {
		st[i] = &sheetTab{id: int64(1000 + i), title: t.Title, charts: append([]int64(nil), t.Charts...)}
		for _, row := range t.Values {
			r := make([]interface{}, len(row))
			for j, v := range row {
				r[j] = v
			}
			st[i].values = append(st[i].values, r)
		}
	}
	w.sheets[id] = st
	return id
}

// AddPresentation stores a copy of p as a new presentation file.
func (w *Workspace) AddPresentation(name, parentID string, p *slides.Presentation) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.add(gapi.File{Name: name, MimeType: gapi.MimePresentation, Parents: parents(parentID)}, nil)
	cp := mustCopy(p)
	cp.PresentationId = id
	w.decks[id] = cp
	return id
}

// Fail makes the next times calls to op fail with err. target limits the
// fault to one file ID; empty matches any. times < 0 fails forever.
func (w *Workspace) Fail(op, target string, err error, times int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.faults = append(w.faults, &fault{op: op, target: target, err: err, remaining: times})
}

func (w *Workspace) enter(op, target string) error {
	w.calls = append(w.calls, op+" "+target)
	for _, f := range w.faults {
		if f.op != op || (f.target != "" && f.target != target) || f.remaining == 0 {
			continue
		}
		if f.remaining > 0 {
			f.remaining--
		}
		return f.err
	}
	return nil
}

// Calls returns every recorded "op target" string in call order.
func (w *Workspace) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

// CountCalls returns how many calls were made to op.
func (w *Workspace) CountCalls(op string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.calls {
		if strings.HasPrefix(c, op+" ") {
			n++
		}
	}
	return n
}

// Batches returns the request kinds of every successful BatchUpdate on a presentation.
func (w *Workspace) Batches(presentationID string) [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]string(nil), w.batches[presentationID]...)
}

// Presentation returns a copy of a stored presentation, or nil.
func (w *Workspace) Presentation(id string) *slides.Presentation {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.decks[id]
	if !ok {
		return nil
	}
	return mustCopy(p)
}

// Values returns the raw values of a spreadsheet tab.
func (w *Workspace) Values(spreadsheetID, title string) [][]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.sheets[spreadsheetID] {
		if t.title == title {
			return t.values
		}
	}
	return nil
}

// Children lists the files directly under parentID in creation order.
func (w *Workspace) Children(parentID string) []gapi.File {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.list(gapi.Query{ParentID: parentID})
}

// Find returns the first child of parentID named name.
func (w *Workspace) Find(parentID, name string) (gapi.File, bool) {
	for _, f := range w.Children(parentID) {
		if f.Name == name {
			return f, true
		}
	}
	return gapi.File{}, false
}

// PublicPermissions returns how many anyone-permissions a file currently has.
func (w *Workspace) PublicPermissions(fileID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, typ := range w.perms[fileID] {
		if typ == "anyone" {
			n++
		}
	}
	return n
}

func (w *Workspace) list(q gapi.Query) []gapi.File {
	var out []gapi.File
	for _, id := range w.order {
		e, ok := w.files[id]
		if ok && q.Matches(e.file) {
			out = append(out, e.file)
		}
	}
	return out
}

// ListFiles implements gapi.Drive.
func (w *Workspace) ListFiles(ctx context.Context, q gapi.Query) ([]gapi.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("drive.list", q.ParentID); err != nil {
		return nil, err
	}
	return w.list(q), nil
}

// GetFile implements gapi.Drive.
func (w *Workspace) GetFile(ctx context.Context, fileID string) (*gapi.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("drive.get", fileID); err != nil {
		return nil, err
	}
	e, ok := w.files[fileID]
	if !ok {
		return nil, notFound(fileID)
	}
	f := e.file
	return &f, nil
}

// CopyFile implements gapi.Drive. Spreadsheets and presentations are deep-copied.
func (w *Workspace) CopyFile(ctx context.Context, fileID, name, parentID string) (*gapi.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("drive.copy", fileID); err != nil {
		return nil, err
	}
	src, ok := w.files[fileID]
	if !ok {
		return nil, notFound(fileID)
	}
	if _, ok := w.files[parentID]; !ok {
		return nil, notFound(parentID)
	}

	f := src.file
	f.ID = ""
	f.Name = name
	f.Parents = parents(parentID)
	id := w.add(f, append([]byte(nil), src.content...))

	if tabs, ok := w.sheets[fileID]; ok {
		cp := make([]*sheetTab, len(tabs))
		for i, t := range tabs {
			c := *t
			c.charts = append([]int64(nil), t.charts...)
			c.values = make([][]interface{}, len(t.values))
			for r, row := range t.values {
				c.values[r] = append([]interface{}(nil), row...)
			}
			cp[i] = &c
		}
		w.sheets[id] = cp
	}
	if p, ok := w.decks[fileID]; ok {
		cp := mustCopy(p)
		cp.PresentationId = id
		w.decks[id] = cp
	}

	out := w.files[id].file
	return &out, nil
}

// CreateFolder implements gapi.Drive.
func (w *Workspace) CreateFolder(ctx context.Context, name, parentID string) (*gapi.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("drive.createFolder", parentID); err != nil {
		return nil, err
	}
	if _, ok := w.files[parentID]; !ok {
		return nil, notFound(parentID)
	}
	id := w.add(gapi.File{Name: name, MimeType: gapi.MimeFolder, Parents: parents(parentID)}, nil)
	f := w.files[id].file
	return &f, nil
}

// DeleteFile implements gapi.Drive.
func (w *Workspace) DeleteFile(ctx context.Context, fileID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("drive.delete", fileID); err != nil {
		return err
	}
	if _, ok := w.files[fileID]; !ok {
		return notFound(fileID)
	}
	delete(w.files, fileID)
	delete(w.sheets, fileID)
	delete(w.decks, fileID)
	delete(w.perms, fileID)
	return nil
}

// Download implements gapi.Drive. Spreadsheets export their first tab as CSV.
func (w *Workspace) Download(ctx context.Context, fileID string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("drive.download", fileID); err != nil {
		return nil, err
	}
	e, ok := w.files[fileID]
	if !ok {
		return nil, notFound(fileID)
	}
	if tabs, ok := w.sheets[fileID]; ok && len(tabs) > 0 {
		var buf bytes.Buffer
		cw := csv.NewWriter(&buf)
		for _, row := range tabs[0].values {
			rec := make([]string, len(row))
			for i, v := range row {
				rec[i] = fmt.Sprint(v)
			}
			_ = cw.Write(rec)
		}
		cw.Flush()
		return buf.Bytes(), nil
	}
	return append([]byte(nil), e.content...), nil
}

// ShareAnyoneReader implements gapi.Drive.
func (w *Workspace) ShareAnyoneReader(ctx context.Context, fileID string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("drive.share", fileID); err != nil {
		return "", err
	}
	if _, ok := w.files[fileID]; !ok {
		return "", notFound(fileID)
	}
	for _, typ := range w.perms[fileID] {
		if typ == "anyone" {
			return "", nil
		}
	}
	if w.perms[fileID] == nil {
		w.perms[fileID] = map[string]string{}
	}
	id := w.nextID("perm")
	w.perms[fileID][id] = "anyone"
	return id, nil
}

// RevokePermission implements gapi.Drive.
func (w *Workspace) RevokePermission(ctx context.Context, fileID, permissionID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("drive.revoke", fileID); err != nil {
		return err
	}
	if _, ok := w.perms[fileID][permissionID]; !ok {
		return notFound(permissionID)
	}
	delete(w.perms[fileID], permissionID)
	return nil
}

// MakePublic grants anyone-read on a file outside the pipeline.
func (w *Workspace) MakePublic(fileID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.perms[fileID] == nil {
		w.perms[fileID] = map[string]string{}
	}
	w.perms[fileID]["preexisting"] = "anyone"
}

// GetSpreadsheet implements gapi.Sheets.
func (w *Workspace) GetSpreadsheet(ctx context.Context, spreadsheetID string) (*sheets.Spreadsheet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("sheets.get", spreadsheetID); err != nil {
		return nil, err
	}
	tabs, ok := w.sheets[spreadsheetID]
	if !ok {
		return nil, notFound(spreadsheetID)
	}
	out := &sheets.Spreadsheet{SpreadsheetId: spreadsheetID}
	for i, t := range tabs {
		s := &sheets.Sheet{Properties: &sheets.SheetProperties{SheetId: t.id, Title: t.title, Index: int64(i)}}
		for _, c := range t.charts {
			s.Charts = append(s.Charts, &sheets.EmbeddedChart{ChartId: c})
		}
		out.Sheets = append(out.Sheets, s)
	}
	return out, nil
}

func (w *Workspace) tab(spreadsheetID, rng string) (*sheetTab, string, error) {
	tabs, ok := w.sheets[spreadsheetID]
	if !ok {
		return nil, "", notFound(spreadsheetID)
	}
	title, cells := gapi.ParseTabRange(rng)
	for _, t := range tabs {
		if t.title == title {
			return t, cells, nil
		}
	}
	return nil, "", badRequest("Unable to parse range: %s", rng)
}

// GetValues implements gapi.Sheets. The cell part of the range is ignored.
func (w *Workspace) GetValues(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("sheets.getValues", spreadsheetID); err != nil {
		return nil, err
	}
	t, _, err := w.tab(spreadsheetID, rng)
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(t.values))
	for i, row := range t.values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out, nil
}

// ClearValues implements gapi.Sheets.
func (w *Workspace) ClearValues(ctx context.Context, spreadsheetID, rng string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("sheets.clear", spreadsheetID); err != nil {
		return err
	}
	t, _, err := w.tab(spreadsheetID, rng)
	if err != nil {
		return err
	}
	t.values = nil
	return nil
}

// UpdateValues implements gapi.Sheets. Only writes anchored at A1 are supported.
func (w *Workspace) UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("sheets.update", spreadsheetID); err != nil {
		return err
	}
	t, cells, err := w.tab(spreadsheetID, rng)
	if err != nil {
		return err
	}
	if cells != "" && !strings.EqualFold(cells, "A1") {
		return badRequest("fake only supports A1 anchors, got %s", cells)
	}
	for len(t.values) < len(values) {
		t.values = append(t.values, nil)
	}
	for i, row := range values {
		for len(t.values[i]) < len(row) {
			t.values[i] = append(t.values[i], "")
		}
		copy(t.values[i], row)
	}
	return nil
}

// GetPresentation implements gapi.Slides.
func (w *Workspace) GetPresentation(ctx context.Context, presentationID string) (*slides.Presentation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("slides.get", presentationID); err != nil {
		return nil, err
	}
	p, ok := w.decks[presentationID]
	if !ok {
		return nil, notFound(presentationID)
	}
	return mustCopy(p), nil
}

// BatchUpdate implements gapi.Slides. Requests apply atomically.
func (w *Workspace) BatchUpdate(ctx context.Context, presentationID string, requests []*slides.Request) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enter("slides.batchUpdate", presentationID); err != nil {
		return err
	}
	p, ok := w.decks[presentationID]
	if !ok {
		return notFound(presentationID)
	}

	work := mustCopy(p)
	kinds := make([]string, 0, len(requests))
	for i, req := range requests {
		kind, err := w.apply(work, req)
		if err != nil {
			return badRequest("Invalid requests[%d].%s: %v", i, kind, err)
		}
		kinds = append(kinds, kind)
	}
	w.decks[presentationID] = work
	w.batches[presentationID] = append(w.batches[presentationID], kinds)
	return nil
}

func mustCopy(p *slides.Presentation) *slides.Presentation {
	data, err := json.Marshal(p)
	if err != nil {
		panic(err)
	}
	var out slides.Presentation
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

// SortedKinds is a helper for assertions on batch contents.
func SortedKinds(kinds []string) []string {
	out := append([]string(nil), kinds...)
	sort.Strings(out)
	return out
}
