package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yrain/smart-cache/pkg/admin"
	"github.com/yrain/smart-cache/pkg/console"
)

var (
	stagedColor = lipgloss.Color("205")
	infoColor   = lipgloss.Color("244")
	focusColor  = lipgloss.Color("63")

	noticeTTL = 4 * time.Second
)

var (
	paneStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(infoColor)
	focusStyle   = paneStyle.BorderForeground(focusColor)
	dimStyle     = lipgloss.NewStyle().Foreground(infoColor)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	confirmStyle = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(stagedColor).Padding(0, 1)
)

func newTuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse namespaces, keys and host values interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal() {
				return errors.New("tui needs an interactive terminal; use names, keys, get or fetch instead")
			}
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			bridge := newTuiBridge()
			lc := console.NewLifecycle(rt.cfg.Options.EffectiveMinDelay(), bridge, rt.logger)
			store := console.NewStore(ctx, rt.gateway, lc)
			unsubscribe := store.Subscribe(bridge.publish)
			defer unsubscribe()
			coord := console.NewCoordinator(rt.gateway, lc, bridge, store)

			m := newTuiModel(ctx, store, coord, bridge, rt.target.Name)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			cancel()
			store.Close()
			return err
		},
	}
	addRuntimeFlags(cmd)
	return cmd
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

type snapshotMsg struct{ snap console.Snapshot }

type noticeMsg struct{ notice console.Notice }

type confirmMsg struct {
	prompt console.Prompt
	reply  chan<- bool
}

type clearNoticeMsg struct{ seq int }

type mutationDoneMsg struct{ outcome console.Outcome }

type copiedMsg struct{ err error }

// tuiBridge carries store and coordinator events into the bubbletea loop.
// Snapshots are latest-wins, prompts go through events, and notices queue
// without bound so none is lost.
type tuiBridge struct {
	events chan tea.Msg
	states chan console.Snapshot

	mu      sync.Mutex
	notices []console.Notice
	wake    chan struct{}
}

func newTuiBridge() *tuiBridge {
	return &tuiBridge{
		events: make(chan tea.Msg, 32),
		states: make(chan console.Snapshot, 1),
		wake:   make(chan struct{}, 1),
	}
}

func (b *tuiBridge) Notify(n console.Notice) {
	b.mu.Lock()
	b.notices = append(b.notices, n)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *tuiBridge) nextNotice() (console.Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.notices) == 0 {
		return console.Notice{}, false
	}
	n := b.notices[0]
	b.notices = b.notices[1:]
	return n, true
}

func (b *tuiBridge) Confirm(ctx context.Context, p console.Prompt) bool {
	reply := make(chan bool, 1)
	select {
	case b.events <- confirmMsg{prompt: p, reply: reply}:
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (b *tuiBridge) publish(s console.Snapshot) {
	for {
		select {
		case b.states <- s:
			return
		default:
		}
		select {
		case <-b.states:
		default:
		}
	}
}

func (b *tuiBridge) waitForSnapshot() tea.Cmd {
	return func() tea.Msg { return snapshotMsg{snap: <-b.states} }
}

func (b *tuiBridge) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		for {
			if n, ok := b.nextNotice(); ok {
				return noticeMsg{notice: n}
			}
			<-b.wake
		}
	}
}

func (b *tuiBridge) waitForEvent() tea.Cmd {
	return func() tea.Msg { return <-b.events }
}

type namespaceItem string

func (n namespaceItem) Title() string       { return string(n) }
func (n namespaceItem) Description() string { return "namespace" }
func (n namespaceItem) FilterValue() string { return string(n) }

type keyItem struct{ admin.KeyEntry }

func (k keyItem) Title() string { return k.Key }
func (k keyItem) Description() string {
	if len(k.Meta) == 0 {
		return "key"
	}
	return preview(k.Meta, 40)
}
func (k keyItem) FilterValue() string { return k.Key }

type hostItem struct{ admin.HostRecord }

func (h hostItem) Title() string { return h.Identifier() }
func (h hostItem) Description() string {
	return fmt.Sprintf("ttl=%d level=%s %s", h.TTL, h.Level, preview(h.Value, 40))
}
func (h hostItem) FilterValue() string { return h.Identifier() }

type markedItem struct {
	base  list.Item
	title string
}

func (m markedItem) Title() string { return m.title }
func (m markedItem) Description() string {
	if di, ok := m.base.(list.DefaultItem); ok {
		return di.Description()
	}
	return ""
}
func (m markedItem) FilterValue() string { return m.base.FilterValue() }

func itemTitle(item list.Item) string {
	if di, ok := item.(list.DefaultItem); ok {
		return di.Title()
	}
	return item.FilterValue()
}

func configureDefaultDelegateDensity(d *list.DefaultDelegate, ultraCompact bool) {
	if ultraCompact {
		d.SetHeight(1)
		d.SetSpacing(0)
		d.ShowDescription = false
		return
	}
	d.SetHeight(2)
	d.SetSpacing(0)
	d.ShowDescription = true
}

// selectionDelegate marks the committed selection of a pane, which can
// differ from the highlighted row.
type selectionDelegate struct {
	list.DefaultDelegate
	selected *string
}

func newSelectionDelegate(selected *string, ultraCompact bool) *selectionDelegate {
	d := list.NewDefaultDelegate()
	configureDefaultDelegateDensity(&d, ultraCompact)
	return &selectionDelegate{DefaultDelegate: d, selected: selected}
}

func (d *selectionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	if d.selected == nil || *d.selected == "" || item.FilterValue() != *d.selected {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}
	marked := d.DefaultDelegate
	title := marked.Styles.SelectedTitle.Foreground(stagedColor).Bold(true)
	desc := marked.Styles.SelectedDesc.Foreground(stagedColor)
	marked.Styles.NormalTitle, marked.Styles.SelectedTitle = title, title
	marked.Styles.NormalDesc, marked.Styles.SelectedDesc = desc, desc
	marked.Render(w, m, index, markedItem{base: item, title: "[*] " + itemTitle(item)})
}

type pane int

const (
	paneNamespaces pane = iota
	paneKeys
	paneHosts
	paneCount
)

var paneNames = [paneCount]string{"Namespaces", "Keys", "Hosts"}

type tuiModel struct {
	ctx    context.Context
	store  *console.Store
	coord  *console.Coordinator
	bridge *tuiBridge
	target string

	snap    console.Snapshot
	filters console.FilterText
	// marks holds the committed selection per pane; delegates read it.
	marks *[paneCount]string

	focus        pane
	panes        [paneCount]list.Model
	value        viewport.Model
	spin         spinner.Model
	input        textinput.Model
	filtering    bool
	yamlView     bool
	ultraCompact bool
	busy         bool

	notice    *console.Notice
	noticeSeq int
	confirm   *confirmMsg

	width  int
	height int
}

func newTuiModel(ctx context.Context, store *console.Store, coord *console.Coordinator, bridge *tuiBridge, target string) tuiModel {
	width, height := 80, 20
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = max(w, 40), max(h, 10)
	}

	m := tuiModel{
		ctx:    ctx,
		store:  store,
		coord:  coord,
		bridge: bridge,
		target: target,
		marks:  &[paneCount]string{},
		width:  width,
		height: height,
	}
	for i := range m.panes {
		l := list.New(nil, newSelectionDelegate(&m.marks[i], false), 0, 0)
		l.Title = paneNames[i]
		l.SetShowHelp(false)
		l.SetShowStatusBar(false)
		l.SetFilteringEnabled(false)
		l.DisableQuitKeybindings()
		m.panes[i] = l
	}
	m.value = viewport.New(0, 0)
	m.spin = spinner.New()
	m.spin.Spinner = spinner.MiniDot
	m.input = textinput.New()
	m.input.Prompt = "/"
	m.input.CharLimit = 128
	m.layout()
	m.refreshValue()
	return m
}

func (m *tuiModel) layout() {
	paneW := max(m.width/int(paneCount)-2, 16)
	listH := max(m.height/2, 6)
	for i := range m.panes {
		m.panes[i].SetSize(paneW, listH)
	}
	m.value.Width = max(m.width-2, 20)
	m.value.Height = max(m.height-listH-8, 3)
}

func (m *tuiModel) applyDensityMode() {
	for i := range m.panes {
		m.panes[i].SetDelegate(newSelectionDelegate(&m.marks[i], m.ultraCompact))
	}
}

func (m tuiModel) Init() tea.Cmd {
	store := m.store
	return tea.Batch(
		m.bridge.waitForSnapshot(),
		m.bridge.waitForEvent(),
		m.bridge.waitForNotice(),
		m.spin.Tick,
		func() tea.Msg {
			store.Reload()
			return nil
		},
	)
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refreshValue()
		return m, nil
	case snapshotMsg:
		m.applySnapshot(msg.snap)
		return m, m.bridge.waitForSnapshot()
	case noticeMsg:
		cmd := m.showNotice(msg.notice)
		return m, tea.Batch(m.bridge.waitForNotice(), cmd)
	case confirmMsg:
		c := msg
		m.confirm = &c
		return m, m.bridge.waitForEvent()
	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil
	case mutationDoneMsg:
		m.busy = false
		return m, nil
	case copiedMsg:
		n := console.Notice{Level: console.LevelInfo, Text: "value copied"}
		if msg.err != nil {
			n = console.Notice{Level: console.LevelError, Text: "copy failed: " + msg.err.Error()}
		}
		cmd := m.showNotice(n)
		return m, cmd
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *tuiModel) showNotice(n console.Notice) tea.Cmd {
	m.noticeSeq++
	m.notice = &n
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		switch msg.String() {
		case "y", "Y", "enter":
			m.answer(true)
		case "n", "N", "esc", "q":
			m.answer(false)
		case "ctrl+c":
			m.answer(false)
			return m, tea.Quit
		}
		return m, nil
	}

	if m.filtering {
		switch msg.String() {
		case "esc":
			m.filtering = false
			m.input.Blur()
			m.setFilter(m.focus, "")
			return m, nil
		case "enter":
			m.filtering = false
			m.input.Blur()
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.setFilter(m.focus, m.input.Value())
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "right", "l":
		m.focus = (m.focus + 1) % paneCount
	case "shift+tab", "left", "h":
		m.focus = (m.focus + paneCount - 1) % paneCount
	case "enter", " ":
		m.selectHighlighted()
	case "/":
		m.filtering = true
		m.input.SetValue(m.filterFor(m.focus))
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "esc":
		m.setFilter(m.focus, "")
	case "r":
		m.store.Reload()
	case "R":
		m.store.ReloadKeys()
	case "d":
		return m.deleteKey()
	case "x":
		return m.clearNamespace()
	case "X":
		return m.clearAll()
	case "v":
		m.yamlView = !m.yamlView
		m.refreshValue()
	case "y":
		return m, m.copyValue()
	case "c":
		m.ultraCompact = !m.ultraCompact
		m.applyDensityMode()
	case "pgdown", "pgup", "ctrl+d", "ctrl+u":
		var cmd tea.Cmd
		m.value, cmd = m.value.Update(msg)
		return m, cmd
	default:
		var cmd tea.Cmd
		m.panes[m.focus], cmd = m.panes[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *tuiModel) answer(ok bool) {
	m.confirm.reply <- ok
	m.confirm = nil
}

func (m *tuiModel) selectHighlighted() {
	item := m.panes[m.focus].SelectedItem()
	if item == nil {
		return
	}
	switch it := item.(type) {
	case namespaceItem:
		m.store.SelectNamespace(string(it))
		m.focus = paneKeys
	case keyItem:
		m.store.SelectKey(it.Key)
		m.focus = paneHosts
	case hostItem:
		m.store.SelectHost(it.Identifier())
	}
}

// targetKey prefers the highlighted key when the keys pane has focus.
func (m tuiModel) targetKey() string {
	if m.focus == paneKeys {
		if it, ok := m.panes[paneKeys].SelectedItem().(keyItem); ok {
			return it.Key
		}
	}
	return m.snap.Selection.Key
}

func (m tuiModel) targetNamespace() string {
	if m.focus == paneNamespaces {
		if it, ok := m.panes[paneNamespaces].SelectedItem().(namespaceItem); ok {
			return string(it)
		}
	}
	return m.snap.Selection.Namespace
}

func (m tuiModel) deleteKey() (tea.Model, tea.Cmd) {
	ns, key := m.snap.Selection.Namespace, m.targetKey()
	if ns == "" || key == "" {
		cmd := m.showNotice(console.Notice{Level: console.LevelInfo, Text: "select a key first"})
		return m, cmd
	}
	coord := m.coord
	return m.mutate(func(ctx context.Context) console.Outcome { return coord.DeleteKey(ctx, ns, key) })
}

func (m tuiModel) clearNamespace() (tea.Model, tea.Cmd) {
	ns := m.targetNamespace()
	if ns == "" {
		cmd := m.showNotice(console.Notice{Level: console.LevelInfo, Text: "select a namespace first"})
		return m, cmd
	}
	coord := m.coord
	return m.mutate(func(ctx context.Context) console.Outcome { return coord.ClearNamespace(ctx, ns) })
}

func (m tuiModel) clearAll() (tea.Model, tea.Cmd) {
	coord := m.coord
	return m.mutate(coord.ClearAll)
}

func (m tuiModel) mutate(run func(context.Context) console.Outcome) (tea.Model, tea.Cmd) {
	if m.busy {
		cmd := m.showNotice(console.Notice{Level: console.LevelInfo, Text: "another operation is in progress"})
		return m, cmd
	}
	m.busy = true
	ctx := m.ctx
	return m, func() tea.Msg { return mutationDoneMsg{outcome: run(ctx)} }
}

func (m tuiModel) copyValue() tea.Cmd {
	v := m.snap.Local
	if h, ok := m.snap.SelectedHost(); ok {
		v = h.Value
	}
	if len(v) == 0 {
		return nil
	}
	text, err := renderValue(v, m.yamlView)
	return func() tea.Msg {
		if err != nil {
			return copiedMsg{err: err}
		}
		return copiedMsg{err: clipboard.WriteAll(text)}
	}
}

func (m tuiModel) filterFor(p pane) string {
	switch p {
	case paneKeys:
		return m.filters.Keys
	case paneHosts:
		return m.filters.Hosts
	default:
		return m.filters.Namespaces
	}
}

func (m *tuiModel) setFilter(p pane, text string) {
	switch p {
	case paneKeys:
		m.filters.Keys = text
	case paneHosts:
		m.filters.Hosts = text
	default:
		m.filters.Namespaces = text
	}
	m.refreshLists()
}

func (m *tuiModel) applySnapshot(s console.Snapshot) {
	prev := m.snap
	if s.Selection.Namespace != prev.Selection.Namespace || (s.Loading.Keys && !prev.Loading.Keys) {
		m.filters.Keys = ""
		if m.filtering && m.focus == paneKeys {
			m.input.SetValue("")
		}
	}
	if s.Selection.Key != prev.Selection.Key {
		m.filters.Hosts = ""
		if m.filtering && m.focus == paneHosts {
			m.input.SetValue("")
		}
	}
	m.snap = s
	m.marks[paneNamespaces] = s.Selection.Namespace
	m.marks[paneKeys] = s.Selection.Key
	m.marks[paneHosts] = s.Selection.Host
	m.refreshLists()
	m.refreshValue()
}

func (m *tuiModel) refreshLists() {
	v := m.filters.Apply(m.snap)

	names := make([]list.Item, 0, len(v.Namespaces))
	for _, n := range v.Namespaces {
		names = append(names, namespaceItem(n))
	}
	keys := make([]list.Item, 0, len(v.Keys))
	for _, k := range v.Keys {
		keys = append(keys, keyItem{k})
	}
	hosts := make([]list.Item, 0, len(v.Hosts))
	for _, h := range v.Hosts {
		hosts = append(hosts, hostItem{h})
	}
	m.panes[paneNamespaces].SetItems(names)
	m.panes[paneKeys].SetItems(keys)
	m.panes[paneHosts].SetItems(hosts)
}

func (m *tuiModel) refreshValue() {
	m.value.SetContent(m.valueText())
}

func (m tuiModel) valueText() string {
	sel := m.snap.Selection
	if sel.Key == "" {
		return dimStyle.Render("select a key to see its value")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("local") + "\n")
	switch {
	case m.snap.Loading.Local:
		b.WriteString(dimStyle.Render("loading…"))
	default:
		b.WriteString(m.render(m.snap.Local))
	}
	if h, ok := m.snap.SelectedHost(); ok {
		b.WriteString("\n\n" + titleStyle.Render(fmt.Sprintf("host %s (ttl=%d level=%s)", h.Identifier(), h.TTL, h.Level)) + "\n")
		b.WriteString(m.render(h.Value))
	}
	return b.String()
}

func (m tuiModel) render(v admin.Value) string {
	out, err := renderValue(v, m.yamlView)
	if err != nil {
		return errorStyle.Render(err.Error())
	}
	return out
}

func (m tuiModel) paneTitle(p pane) string {
	title := paneNames[p]
	var loading bool
	var n int
	switch p {
	case paneNamespaces:
		loading, n = m.snap.Loading.Namespaces, len(m.snap.Namespaces)
	case paneKeys:
		loading, n = m.snap.Loading.Keys, len(m.snap.Keys)
	case paneHosts:
		loading, n = m.snap.Loading.Hosts, len(m.snap.Hosts)
	}
	title = fmt.Sprintf("%s (%d)", title, n)
	if f := m.filterFor(p); f != "" {
		title += " /" + f
	}
	if loading {
		title += " " + m.spin.View()
	}
	return title
}

func (m tuiModel) breadcrumb() string {
	parts := []string{m.target}
	sel := m.snap.Selection
	for _, s := range []string{sel.Namespace, sel.Key, sel.Host} {
		if s == "" {
			break
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " › ")
}

func (m tuiModel) View() string {
	header := titleStyle.Render("cachectl") + "  " + dimStyle.Render(m.breadcrumb())

	cols := make([]string, 0, paneCount)
	for i := range m.panes {
		p := pane(i)
		m.panes[i].Title = m.paneTitle(p)
		style := paneStyle
		if p == m.focus {
			style = focusStyle
		}
		cols = append(cols, style.Render(m.panes[i].View()))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, cols...)

	valueTitle := "Value"
	if m.yamlView {
		valueTitle += " [yaml]"
	}
	if m.snap.Loading.Local {
		valueTitle += " " + m.spin.View()
	}
	value := paneStyle.Render(titleStyle.Render(valueTitle) + "\n" + m.value.View())

	rows := []string{header, body, value}
	switch {
	case m.confirm != nil:
		rows = append(rows, confirmStyle.Render(titleStyle.Render(m.confirm.prompt.Title)+"\n"+m.confirm.prompt.Text+"\n"+dimStyle.Render("y confirm • n cancel")))
	case m.filtering:
		rows = append(rows, m.input.View())
	case m.notice != nil:
		rows = append(rows, noticeStyle(m.notice.Level).Render(m.notice.Level.String()+": "+m.notice.Text))
	default:
		rows = append(rows, "")
	}
	if !m.ultraCompact {
		help := "tab focus • enter select • / filter • r reload • R reload keys • d delete key • x clear namespace • X clear all • v yaml • y copy • c compact • q quit"
		rows = append(rows, dimStyle.Render(runewidth.Truncate(help, max(m.width, 20), "…")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
