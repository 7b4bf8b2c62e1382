// Package pagestest provides an in-memory model of the demoqa pages that
// implements engine.Driver, for testing page flows and scenarios without a
// browser.
package pagestest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/demoqa-e2e/internal/engine"
	"github.com/xkilldash9x/demoqa-e2e/internal/fixtures"
)

const DefaultBaseURL = "https://demoqa.test"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	labelPattern = regexp.MustCompile(`^//label\[starts-with\(@for,'([^']+)'\)\]\[normalize-space\(\.\)='([^']+)'\]$`)
	itemPattern  = regexp.MustCompile(`^//div\[@id='demo-tabpane-list'\].*\[normalize-space\(\.\)='([^']+)'\]$`)
)

// InitialRows are the records the table shows on load.
var InitialRows = []fixtures.WebTableRecord{
	{FirstName: "Cierra", LastName: "Vega", Age: 39, Email: "cierra@example.com", Salary: 10000, Department: "Insurance"},
	{FirstName: "Alden", LastName: "Cantrell", Age: 45, Email: "alden@example.com", Salary: 12000, Department: "Compliance"},
	{FirstName: "Kierra", LastName: "Gentry", Age: 29, Email: "kierra@example.com", Salary: 2000, Department: "Legal"},
}

// Site is a set of windows showing the modelled pages. All methods are safe for
// concurrent use, although a real session would only ever see one caller.
type Site struct {
	mu      sync.Mutex
	baseURL string
	windows []*window
	current *window
	seq     int
	scripts int

	// ProgressStep is how far a running progress bar advances per sample.
	ProgressStep int
	// SortableItems is the order the sortable list loads in.
	SortableItems []string
	// NavigationErr, when set, fails every Navigate.
	NavigationErr error
}

type window struct {
	handle string
	doc    *document
}

// New returns a site with a single blank window.
func New(baseURL string) *Site {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	s := &Site{
		baseURL:       strings.TrimRight(baseURL, "/"),
		ProgressStep:  3,
		SortableItems: []string{"One", "Two", "Three", "Four", "Five", "Six"},
	}
	s.current = s.openWindowLocked("about:blank")
	return s
}

// BaseURL is the root the site answers for.
func (s *Site) BaseURL() string { return s.baseURL }

func (s *Site) openWindowLocked(path string) *window {
	s.seq++
	w := &window{handle: fmt.Sprintf("window-%d", s.seq)}
	s.windows = append(s.windows, w)
	s.loadLocked(w, path)
	return w
}

func (s *Site) loadLocked(w *window, path string) {
	if w.doc != nil {
		w.doc.gone = true
	}
	w.doc = newDocument(s, path)
}

// Path is the path shown by the current window, or "" when it was closed.
func (s *Site) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.doc.path
}

// Rows returns the records the table currently shows.
func (s *Site) Rows() []fixtures.WebTableRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return slices.Clone(s.current.doc.rows)
}

// Progress returns the bar's value without advancing it.
func (s *Site) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	return s.current.doc.progress
}

// ScriptsRun counts ExecuteScript calls.
func (s *Site) ScriptsRun() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scripts
}

// -- engine.Driver --

var _ engine.Driver = (*Site)(nil)

func (s *Site) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NavigationErr != nil {
		return s.NavigationErr
	}
	if s.current == nil {
		return fmt.Errorf("%w: current window was closed", engine.ErrNoSuchWindow)
	}
	path, ok := strings.CutPrefix(url, s.baseURL)
	if !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED: %s", url)
	}
	if path == "" {
		path = "/"
	}
	s.loadLocked(s.current, path)
	return nil
}

func (s *Site) FindElement(ctx context.Context, loc engine.Locator) (engine.Element, error) {
	els, err := s.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", engine.ErrNoSuchElement, loc)
	}
	return els[0], nil
}

func (s *Site) FindElements(ctx context.Context, loc engine.Locator) ([]engine.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, fmt.Errorf("%w: current window was closed", engine.ErrNoSuchWindow)
	}
	nodes := s.current.doc.find(loc)
	els := make([]engine.Element, len(nodes))
	for i, n := range nodes {
		els[i] = n
	}
	return els, nil
}

func (s *Site) ExecuteScript(ctx context.Context, script string, args ...any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts++
	if s.current == nil {
		return nil, fmt.Errorf("%w: current window was closed", engine.ErrNoSuchWindow)
	}
	doc := s.current.doc

	arg := func() (*Node, error) {
		if len(args) == 0 {
			return nil, errors.New("script expects an element argument")
		}
		n, ok := args[0].(*Node)
		if !ok {
			return nil, fmt.Errorf("argument %T is not an element of this site", args[0])
		}
		return n, n.staleLocked()
	}

	switch {
	case strings.Contains(script, "fixedban"):
		doc.overlays = false
		return json.RawMessage("null"), nil
	case strings.Contains(script, "scrollIntoView"):
		_, err := arg()
		return json.RawMessage("null"), err
	case strings.Contains(script, ".click()"):
		n, err := arg()
		if err != nil {
			return nil, err
		}
		n.activateLocked()
		return json.RawMessage("null"), nil
	case strings.Contains(script, ".modal-content tbody"):
		return jsonAPI.Marshal(doc.submission())
	case strings.Contains(script, "span[title='Delete']"):
		rows := make([][]string, len(doc.rows))
		for i, r := range doc.rows {
			rows[i] = append(r.Cells(), "")
		}
		return jsonAPI.Marshal(rows)
	}
	return nil, fmt.Errorf("unsupported script: %.60q", script)
}

func (s *Site) CurrentWindowHandle(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", fmt.Errorf("%w: current window was closed", engine.ErrNoSuchWindow)
	}
	return s.current.handle, nil
}

func (s *Site) WindowHandles(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := make([]string, len(s.windows))
	for i, w := range s.windows {
		handles[i] = w.handle
	}
	return handles, nil
}

func (s *Site) SwitchToWindow(ctx context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.windows {
		if w.handle == handle {
			s.current = w
			return nil
		}
	}
	return fmt.Errorf("%w: %s", engine.ErrNoSuchWindow, handle)
}

func (s *Site) CloseCurrentWindow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return fmt.Errorf("%w: current window was closed", engine.ErrNoSuchWindow)
	}
	s.current.doc.gone = true
	s.windows = slices.DeleteFunc(s.windows, func(w *window) bool { return w == s.current })
	s.current = nil
	return nil
}

// DragAndDrop moves the dragged list entry to the position of the drop target,
// shifting the entries in between, as sortable lists do.
func (s *Site) DragAndDrop(ctx context.Context, src, dst engine.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok1 := src.(*Node)
	to, ok2 := dst.(*Node)
	if !ok1 || !ok2 {
		return errors.New("drag arguments are not elements of this site")
	}
	if err := from.staleLocked(); err != nil {
		return err
	}
	if err := to.staleLocked(); err != nil {
		return err
	}
	doc := from.doc
	i, j := slices.Index(doc.itemNodes, from), slices.Index(doc.itemNodes, to)
	if i < 0 || j < 0 {
		return errors.New("only list entries can be dragged")
	}
	item := doc.items[i]
	doc.items = slices.Delete(doc.items, i, i+1)
	doc.items = slices.Insert(doc.items, j, item)
	doc.renderItems()
	return nil
}

// -- documents --

type document struct {
	site     *Site
	path     string
	gone     bool
	overlays bool

	static map[string]*Node

	// web tables
	rows      []fixtures.WebTableRecord
	rowEdit   []*Node
	rowDelete []*Node
	modalOpen bool
	editing   int

	// practice form
	gender    string
	hobbies   []string
	subjects  []string
	state     string
	city      string
	submitted bool

	// progress bar
	progress int
	running  bool

	// sortable
	items     []string
	itemNodes []*Node
}

func newDocument(s *Site, path string) *document {
	d := &document{site: s, path: path, overlays: true, static: map[string]*Node{}, editing: -1}
	switch path {
	case "/automation-practice-form":
		d.buildPracticeForm()
	case "/elements":
		d.add(engine.ByXPath("//span[text()='Web Tables']"), &Node{onClick: func() {
			for _, w := range s.windows {
				if w.doc == d {
					s.loadLocked(w, "/webtables")
				}
			}
		}})
	case "/webtables":
		d.buildWebTables()
	case "/progress-bar":
		d.buildProgressBar()
	case "/sortable":
		d.add(engine.ByID("demo-tab-list"), &Node{text: "List"})
		d.items = slices.Clone(s.SortableItems)
		d.renderItems()
	case "/browser-windows":
		open := func() { s.openWindowLocked("/sample") }
		d.add(engine.ByID("windowButton"), &Node{text: "New Window", onClick: open})
		d.add(engine.ByID("tabButton"), &Node{text: "New Tab", onClick: open})
	case "/sample":
		d.add(engine.ByID("sampleHeading"), &Node{text: "This is a sample page"})
	}
	return d
}

func (d *document) add(loc engine.Locator, n *Node) *Node {
	n.doc = d
	if n.attrs == nil {
		n.attrs = map[string]string{}
	}
	d.static[loc.String()] = n
	return n
}

func (d *document) node(loc engine.Locator) *Node {
	return d.static[loc.String()]
}

func (d *document) value(id string) string {
	if n := d.node(engine.ByID(id)); n != nil {
		return n.value
	}
	return ""
}

func (d *document) find(loc engine.Locator) []*Node {
	key := loc.String()
	switch key {
	case "css=span[title='Delete']", "css=span[id^='delete-record-']":
		return d.rowDelete
	case "css=span[title='Edit']", "css=span[id^='edit-record-']":
		return d.rowEdit
	case "css=#demo-tabpane-list .list-group-item":
		return d.itemNodes
	case "css=.modal-content":
		if d.modalOpen {
			return []*Node{{doc: d, text: "modal"}}
		}
		return nil
	case "css=.subjects-auto-complete__option":
		if n := d.node(engine.ByID("subjectsInput")); n != nil && n.value != "" {
			return []*Node{{doc: d, text: n.value}}
		}
		return nil
	case "id=resetButton":
		if d.path == "/progress-bar" && d.progress >= 100 {
			return []*Node{{doc: d, text: "Reset", onClick: func() { d.progress, d.running = 0, false }}}
		}
		return nil
	}

	if loc.Strategy == engine.StrategyXPath {
		if m := labelPattern.FindStringSubmatch(loc.Value); m != nil {
			if n := d.static["label:"+m[1]+":"+m[2]]; n != nil {
				return []*Node{n}
			}
			return nil
		}
		if m := itemPattern.FindStringSubmatch(loc.Value); m != nil {
			for i, item := range d.items {
				if item == m[1] {
					return []*Node{d.itemNodes[i]}
				}
			}
			return nil
		}
	}

	n, ok := d.static[key]
	if !ok || (n.inModal && !d.modalOpen) {
		return nil
	}
	return []*Node{n}
}

func (d *document) buildPracticeForm() {
	for _, id := range []string{"firstName", "lastName", "userEmail", "userNumber", "dateOfBirthInput", "currentAddress"} {
		d.add(engine.ByID(id), &Node{input: true})
	}
	d.add(engine.ByID("uploadPicture"), &Node{input: true, file: true})

	subjects := d.add(engine.ByID("subjectsInput"), &Node{input: true})
	subjects.onKey = func(key string) {
		if key == engine.KeyEnter && subjects.value != "" {
			d.subjects = append(d.subjects, subjects.value)
			subjects.value = ""
		}
	}
	for _, sel := range []struct {
		loc    engine.Locator
		target *string
	}{
		{engine.ByCSS("#state input"), &d.state},
		{engine.ByCSS("#city input"), &d.city},
	} {
		n := d.add(sel.loc, &Node{input: true})
		target := sel.target
		n.onKey = func(key string) {
			if key == engine.KeyEnter {
				*target, n.value = n.value, ""
			}
		}
	}

	for _, g := range fixtures.Genders {
		d.static["label:gender-radio:"+g] = &Node{doc: d, text: g, attrs: map[string]string{}, onClick: func() { d.gender = g }}
	}
	for _, h := range fixtures.Hobbies {
		d.static["label:hobbies-checkbox:"+h] = &Node{doc: d, text: h, attrs: map[string]string{}, onClick: func() {
			if i := slices.Index(d.hobbies, h); i >= 0 {
				d.hobbies = slices.Delete(d.hobbies, i, i+1)
			} else {
				d.hobbies = append(d.hobbies, h)
			}
		}}
	}

	d.add(engine.ByID("submit"), &Node{text: "Submit", underBanner: true, onClick: func() {
		// The form requires the name, gender and a ten digit mobile number.
		if d.value("firstName") == "" || d.value("lastName") == "" || d.gender == "" || len(d.value("userNumber")) != 10 {
			return
		}
		d.submitted, d.modalOpen = true, true
	}})
	d.add(engine.ByID("closeLargeModal"), &Node{text: "Close", inModal: true, onClick: func() { d.modalOpen = false }})
}

func (d *document) submission() map[string]string {
	if !d.modalOpen || !d.submitted {
		return map[string]string{}
	}
	return map[string]string{
		"Student Name":   d.value("firstName") + " " + d.value("lastName"),
		"Student Email":  d.value("userEmail"),
		"Gender":         d.gender,
		"Mobile":         d.value("userNumber"),
		"Date of Birth":  d.value("dateOfBirthInput"),
		"Subjects":       strings.Join(d.subjects, ", "),
		"Hobbies":        strings.Join(d.hobbies, ", "),
		"Picture":        d.value("uploadPicture"),
		"Address":        d.value("currentAddress"),
		"State and City": strings.TrimSpace(d.state + " " + d.city),
	}
}

var recordFields = []string{"firstName", "lastName", "userEmail", "age", "salary", "department"}

func (d *document) buildWebTables() {
	d.rows = slices.Clone(InitialRows)
	d.renderRows()

	d.add(engine.ByID("addNewRecordButton"), &Node{text: "Add", onClick: func() {
		d.openRecordForm(-1)
	}})
	for _, id := range recordFields {
		d.add(engine.ByID(id), &Node{input: true, inModal: true})
	}
	d.add(engine.ByID("submit"), &Node{text: "Submit", inModal: true, onClick: func() {
		age, err1 := strconv.Atoi(d.value("age"))
		salary, err2 := strconv.Atoi(d.value("salary"))
		if err1 != nil || err2 != nil || d.value("firstName") == "" || !strings.Contains(d.value("userEmail"), "@") {
			return
		}
		rec := fixtures.WebTableRecord{
			FirstName:  d.value("firstName"),
			LastName:   d.value("lastName"),
			Email:      d.value("userEmail"),
			Age:        age,
			Salary:     salary,
			Department: d.value("department"),
		}
		if d.editing >= 0 && d.editing < len(d.rows) {
			d.rows[d.editing] = rec
		} else {
			d.rows = append(d.rows, rec)
		}
		d.modalOpen, d.editing = false, -1
		d.renderRows()
	}})
}

func (d *document) openRecordForm(row int) {
	d.modalOpen, d.editing = true, row
	values := make([]string, len(recordFields))
	if row >= 0 {
		r := d.rows[row]
		values = []string{r.FirstName, r.LastName, r.Email, strconv.Itoa(r.Age), strconv.Itoa(r.Salary), r.Department}
	}
	for i, id := range recordFields {
		d.node(engine.ByID(id)).value = values[i]
	}
}

// renderRows replaces every row node, as the table re-renders on each change.
func (d *document) renderRows() {
	for _, n := range append(d.rowEdit, d.rowDelete...) {
		n.detached = true
	}
	d.rowEdit, d.rowDelete = nil, nil
	for i := range d.rows {
		d.rowEdit = append(d.rowEdit, &Node{doc: d, attrs: map[string]string{"title": "Edit"}, onClick: func() {
			d.openRecordForm(i)
		}})
		d.rowDelete = append(d.rowDelete, &Node{doc: d, attrs: map[string]string{"title": "Delete"}, onClick: func() {
			d.rows = slices.Delete(d.rows, i, i+1)
			d.renderRows()
		}})
	}
}

func (d *document) buildProgressBar() {
	d.add(engine.ByXPath("//span[text()='Progress Bar']"), &Node{text: "Progress Bar"})
	d.add(engine.ByID("startStopButton"), &Node{text: "Start", underBanner: true, onClick: func() {
		d.running = !d.running
	}})
	bar := d.add(engine.ByCSS(".progress-bar"), &Node{})
	bar.attr = func(name string) string {
		if name != "aria-valuenow" {
			return ""
		}
		if d.running {
			d.progress = min(100, d.progress+d.site.ProgressStep)
			if d.progress == 100 {
				d.running = false
			}
		}
		return strconv.Itoa(d.progress)
	}
}

func (d *document) renderItems() {
	for _, n := range d.itemNodes {
		n.detached = true
	}
	d.itemNodes = make([]*Node, len(d.items))
	for i, item := range d.items {
		d.itemNodes[i] = &Node{doc: d, text: item, attrs: map[string]string{"class": "list-group-item"}}
	}
}

// -- nodes --

// Node is an element of a modelled document.
type Node struct {
	doc         *document
	text        string
	value       string
	attrs       map[string]string
	attr        func(name string) string
	input       bool
	file        bool
	inModal     bool
	underBanner bool
	detached    bool
	onClick     func()
	onKey       func(key string)
}

var _ engine.Element = (*Node)(nil)

func (n *Node) lock() func() {
	n.doc.site.mu.Lock()
	return n.doc.site.mu.Unlock
}

func (n *Node) staleLocked() error {
	if n.detached || n.doc.gone {
		return fmt.Errorf("%w: node is no longer attached to the document", engine.ErrStaleElement)
	}
	return nil
}

func (n *Node) activateLocked() {
	if n.onClick != nil {
		n.onClick()
	}
}

func (n *Node) Click(ctx context.Context) error {
	defer n.lock()()
	if err := n.staleLocked(); err != nil {
		return err
	}
	n.activateLocked()
	return nil
}

func (n *Node) Clear(ctx context.Context) error {
	defer n.lock()()
	if err := n.staleLocked(); err != nil {
		return err
	}
	n.value = ""
	return nil
}

func (n *Node) SendKeys(ctx context.Context, text string) error {
	defer n.lock()()
	if err := n.staleLocked(); err != nil {
		return err
	}
	switch {
	case n.file:
		n.value = filepath.Base(text)
	case text == engine.KeyEnter || text == engine.KeyEscape || text == engine.KeyTab:
		if n.onKey != nil {
			n.onKey(text)
		}
	case n.input:
		n.value += text
	default:
		return errors.New("element is not focusable")
	}
	return nil
}

func (n *Node) Text(ctx context.Context) (string, error) {
	defer n.lock()()
	if err := n.staleLocked(); err != nil {
		return "", err
	}
	return n.text, nil
}

func (n *Node) Attribute(ctx context.Context, name string) (string, error) {
	defer n.lock()()
	if err := n.staleLocked(); err != nil {
		return "", err
	}
	if n.attr != nil {
		return n.attr(name), nil
	}
	if name == "value" {
		return n.value, nil
	}
	return n.attrs[name], nil
}

func (n *Node) IsDisplayed(ctx context.Context) (bool, error) {
	defer n.lock()()
	return true, n.staleLocked()
}

func (n *Node) IsEnabled(ctx context.Context) (bool, error) {
	defer n.lock()()
	return true, n.staleLocked()
}

// ReceivesPointer is false for controls under the ad banner until the page
// removes its overlays.
func (n *Node) ReceivesPointer(ctx context.Context) (bool, error) {
	defer n.lock()()
	if err := n.staleLocked(); err != nil {
		return false, err
	}
	return !(n.underBanner && n.doc.overlays), nil
}
