package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fruity/internal/catalog"
	"fruity/internal/insights"
	"fruity/internal/logging"
	"fruity/internal/remote"
	"fruity/internal/types"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Preferences is the persisted state the dashboard reads and edits.
// *store.Preferences implements it.
type Preferences interface {
	BaseURL() string
	SetBaseURL(raw string) (string, error)
	Region() string
	SetRegion(region string) error
	Language() types.Language
	SetLanguage(raw string) (types.Language, error)
}

// Tab identifies a dashboard page.
type Tab int

const (
	TabHarvest Tab = iota
	TabNotes
	TabShed
	tabCount
)

func (t Tab) title(lang types.Language) string {
	switch t {
	case TabHarvest:
		return T(lang, KeyTabHarvest)
	case TabNotes:
		return T(lang, KeyTabNotes)
	case TabShed:
		return T(lang, KeyTabShed)
	}
	return "?"
}

// focus is the input currently receiving keystrokes.
type focus int

const (
	focusNone focus = iota
	focusSearch
	focusAdd
	focusShed
	focusConfirm
)

// Shed rows.
const (
	shedURL = iota
	shedRegion
	shedLanguage
	shedRows
)

// Add form fields.
const (
	addFruit = iota
	addRating
	addOrigin
	addStore
	addDate
	addFields
)

// Messages
type (
	// snapshotMsg carries a committed controller state.
	snapshotMsg remote.Snapshot
	// mutationMsg reports the outcome of a create or delete.
	mutationMsg struct {
		op  string
		err error
	}
	// PrefsChangedMsg asks the model to re-read preferences, e.g. after
	// another process saved a new base URL.
	PrefsChangedMsg struct{}
)

// Deps are the collaborators of a Model.
type Deps struct {
	Controller *remote.Controller
	Prefs      Preferences
	Catalog    *catalog.Catalog
	Styles     Styles
	// Now returns the reference time for aggregation; nil means time.Now.
	Now func() time.Time
}

// Model is the dashboard's bubbletea model.
type Model struct {
	ctx   context.Context
	ctrl  *remote.Controller
	prefs Preferences
	cat   *catalog.Catalog
	eng   *insights.Engine
	now   func() time.Time

	styles Styles
	keys   keyMap
	help   help.Model

	spinner  spinner.Model
	viewport viewport.Model
	search   textinput.Model
	shed     [shedRows]textinput.Model
	add      [addFields]textinput.Model

	snaps chan remote.Snapshot
	snap  remote.Snapshot

	lang      types.Language
	region    string
	tab       Tab
	sort      insights.SortMode
	weighting insights.Weighting

	focus     focus
	shedRow   int
	addField  int
	cursor    int
	pending   *types.LogEntry
	status    string
	actionErr error

	width, height int
}

// NewModel builds the dashboard. It receives no snapshots until Subscribe
// is called.
func NewModel(ctx context.Context, d Deps) Model {
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = d.Styles.Spinner

	search := textinput.New()
	search.Prompt = "/ "
	search.CharLimit = 64

	m := Model{
		ctx:      ctx,
		ctrl:     d.Controller,
		prefs:    d.Prefs,
		cat:      d.Catalog,
		eng:      insights.NewEngine(d.Catalog),
		now:      d.Now,
		styles:   d.Styles,
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		viewport: viewport.New(80, 20),
		search:   search,
		snaps:    make(chan remote.Snapshot, 16),
		snap:     d.Controller.Snapshot(),
		lang:     d.Prefs.Language(),
		region:   d.Prefs.Region(),
	}
	for i := range m.shed {
		m.shed[i] = textinput.New()
		m.shed[i].CharLimit = 256
	}
	for i := range m.add {
		m.add[i] = textinput.New()
		m.add[i].CharLimit = 64
	}
	m.relabel()
	return m
}

// relabel refreshes prompts after a language change.
func (m *Model) relabel() {
	m.search.Placeholder = T(m.lang, KeySearch)
	m.shed[shedURL].Prompt = T(m.lang, KeyAPIURL) + ": "
	m.shed[shedRegion].Prompt = T(m.lang, KeyRegion) + ": "
	m.shed[shedLanguage].Prompt = T(m.lang, KeyLanguage) + ": "
	labels := [addFields]string{
		T(m.lang, KeyColFruit), T(m.lang, KeyFieldRatingRange), T(m.lang, KeyColOrigin),
		T(m.lang, KeyColStore), T(m.lang, KeyFieldDate),
	}
	for i := range m.add {
		m.add[i].Prompt = labels[i] + ": "
	}
}

// Subscribe forwards controller snapshots into the model's channel without
// blocking the controller. It returns the unsubscribe function.
func (m Model) Subscribe() func() {
	snaps := m.snaps
	return m.ctrl.Subscribe(func(s remote.Snapshot) {
		select {
		case snaps <- s:
		default:
			// Full: the model re-reads the latest snapshot on the next message.
			logging.UIDebug("snapshot generation %d dropped, channel full", s.Generation)
		}
	})
}

func (m Model) waitForSnapshot() tea.Cmd {
	snaps := m.snaps
	return func() tea.Msg {
		return snapshotMsg(<-snaps)
	}
}

// newerSnapshot reports whether a was committed after b.
func newerSnapshot(a, b remote.Snapshot) bool {
	if a.Generation != b.Generation {
		return a.Generation > b.Generation
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSnapshot())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-8, 3)
		return m, nil

	case snapshotMsg:
		latest := remote.Snapshot(msg)
		// Snapshots may have been dropped; the controller's current one wins
		// when it is newer, within the same generation too.
		if cur := m.ctrl.Snapshot(); newerSnapshot(cur, latest) {
			latest = cur
		}
		m.snap = latest
		m.clampCursor()
		return m, m.waitForSnapshot()

	case mutationMsg:
		if msg.err != nil {
			m.actionErr = msg.err
			m.status = ""
		} else {
			m.actionErr = nil
			if msg.op == "delete" {
				m.status = T(m.lang, KeyDeleted)
			} else {
				m.status = T(m.lang, KeySaved)
			}
		}
		return m, nil

	case PrefsChangedMsg:
		return m.syncPrefs()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// syncPrefs applies preferences changed outside the dashboard.
func (m Model) syncPrefs() (tea.Model, tea.Cmd) {
	m.lang = m.prefs.Language()
	m.region = m.prefs.Region()
	m.relabel()
	if url := m.prefs.BaseURL(); url != m.ctrl.Endpoint() {
		logging.UIDebug("base URL changed on disk, reconfiguring to %s", url)
		m.ctrl.Reconfigure(m.ctx, url)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.focus {
	case focusConfirm:
		return m.handleConfirm(msg)
	case focusSearch:
		return m.handleSearch(msg)
	case focusAdd:
		return m.handleAdd(msg)
	case focusShed:
		return m.handleShedInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % tabCount
		return m, nil
	case key.Matches(msg, m.keys.PrevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		m.actionErr = nil
		m.ctrl.Start(m.ctx)
		return m, m.spinner.Tick
	case key.Matches(msg, m.keys.Language):
		return m.toggleLanguage()
	}

	switch m.tab {
	case TabHarvest:
		switch {
		case key.Matches(msg, m.keys.Sort):
			m.sort = m.sort.Next()
		case key.Matches(msg, m.keys.Weight):
			if m.weighting == insights.Unweighted {
				m.weighting = insights.RecencyWeighted
			} else {
				m.weighting = insights.Unweighted
			}
		case key.Matches(msg, m.keys.Up):
			m.viewport.SetContent(m.renderHarvest())
			m.viewport.LineUp(1)
		case key.Matches(msg, m.keys.Down):
			m.viewport.SetContent(m.renderHarvest())
			m.viewport.LineDown(1)
		}
	case TabNotes:
		switch {
		case key.Matches(msg, m.keys.Search):
			m.focus = focusSearch
			cmd := m.search.Focus()
			return m, cmd
		case key.Matches(msg, m.keys.Add):
			return m.openAddForm()
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			m.cursor++
			m.clampCursor()
		case key.Matches(msg, m.keys.Delete):
			if logs := m.history(); m.cursor < len(logs) {
				entry := logs[m.cursor]
				m.pending = &entry
				m.focus = focusConfirm
			}
		}
	case TabShed:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.shedRow = (m.shedRow + shedRows - 1) % shedRows
		case key.Matches(msg, m.keys.Down):
			m.shedRow = (m.shedRow + 1) % shedRows
		case key.Matches(msg, m.keys.Edit):
			if m.shedRow == shedLanguage {
				return m.toggleLanguage()
			}
			return m.editShed()
		}
	}
	return m, nil
}

func (m Model) toggleLanguage() (tea.Model, tea.Cmd) {
	next := types.English
	if m.lang == types.English {
		next = types.French
	}
	lang, err := m.prefs.SetLanguage(string(next))
	if err != nil {
		m.actionErr = err
		return m, nil
	}
	m.lang = lang
	m.relabel()
	return m, nil
}

func (m Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entry := m.pending
	m.pending = nil
	m.focus = focusNone
	switch strings.ToLower(msg.String()) {
	case "y", "o", "enter":
		if entry == nil {
			return m, nil
		}
		ctrl, ctx, id := m.ctrl, m.ctx, entry.ID
		return m, func() tea.Msg {
			return mutationMsg{op: "delete", err: ctrl.Delete(ctx, id)}
		}
	}
	return m, nil
}

func (m Model) handleSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search.SetValue("")
		fallthrough
	case tea.KeyEnter:
		m.search.Blur()
		m.focus = focusNone
		m.cursor = 0
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.cursor = 0
	return m, cmd
}

func (m Model) openAddForm() (tea.Model, tea.Cmd) {
	for i := range m.add {
		m.add[i].Reset()
		m.add[i].Blur()
	}
	m.add[addDate].SetValue(types.FormatDate(m.now()))
	m.addField = addFruit
	m.focus = focusAdd
	m.actionErr = nil
	cmd := m.add[addFruit].Focus()
	return m, cmd
}

func (m Model) handleAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.add[m.addField].Blur()
		m.focus = focusNone
		return m, nil
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.add[m.addField].Blur()
		if msg.Type == tea.KeyTab || msg.Type == tea.KeyDown {
			m.addField = (m.addField + 1) % addFields
		} else {
			m.addField = (m.addField + addFields - 1) % addFields
		}
		cmd := m.add[m.addField].Focus()
		return m, cmd
	case tea.KeyEnter:
		return m.submitAdd()
	}
	var cmd tea.Cmd
	m.add[m.addField], cmd = m.add[m.addField].Update(msg)
	return m, cmd
}

func (m Model) submitAdd() (tea.Model, tea.Cmd) {
	entry, err := m.buildEntry()
	if err != nil {
		m.actionErr = err
		return m, nil
	}
	m.add[m.addField].Blur()
	m.focus = focusNone
	m.actionErr = nil
	ctrl, ctx := m.ctrl, m.ctx
	return m, func() tea.Msg {
		_, err := ctrl.Create(ctx, entry)
		return mutationMsg{op: "create", err: err}
	}
}

// buildEntry validates the add form against the catalog in the UI language.
func (m Model) buildEntry() (types.NewLogEntry, error) {
	fruit := strings.TrimSpace(m.add[addFruit].Value())
	if err := m.cat.Validate(fruit, m.lang); err != nil {
		return types.NewLogEntry{}, err
	}
	raw := strings.TrimSpace(m.add[addRating].Value())
	rating, err := strconv.Atoi(raw)
	if err != nil {
		return types.NewLogEntry{}, &types.ValidationError{Field: "rating", Value: raw, Reason: "must be a number", Err: err}
	}
	entry := types.NewLogEntry{
		Fruit:  fruit,
		Rating: rating,
		Origin: m.add[addOrigin].Value(),
		Store:  m.add[addStore].Value(),
		Date:   m.add[addDate].Value(),
	}.Normalize(m.now(), m.region)
	if err := entry.Validate(); err != nil {
		return types.NewLogEntry{}, err
	}
	return entry, nil
}

func (m Model) editShed() (tea.Model, tea.Cmd) {
	in := &m.shed[m.shedRow]
	switch m.shedRow {
	case shedURL:
		in.SetValue(m.prefs.BaseURL())
	case shedRegion:
		in.SetValue(m.region)
	}
	in.CursorEnd()
	m.focus = focusShed
	cmd := in.Focus()
	return m, cmd
}

func (m Model) handleShedInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	in := &m.shed[m.shedRow]
	switch msg.Type {
	case tea.KeyEsc:
		in.Blur()
		m.focus = focusNone
		return m, nil
	case tea.KeyEnter:
		in.Blur()
		m.focus = focusNone
		return m.saveShed(in.Value())
	}
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	return m, cmd
}

func (m Model) saveShed(value string) (tea.Model, tea.Cmd) {
	switch m.shedRow {
	case shedURL:
		url, err := m.prefs.SetBaseURL(value)
		if err != nil {
			m.actionErr = err
			return m, nil
		}
		m.actionErr = nil
		m.status = T(m.lang, KeySaved)
		if url != m.ctrl.Endpoint() {
			m.ctrl.Reconfigure(m.ctx, url)
		} else {
			m.ctrl.Start(m.ctx)
		}
		return m, m.spinner.Tick
	case shedRegion:
		if err := m.prefs.SetRegion(value); err != nil {
			m.actionErr = err
			return m, nil
		}
		m.region = m.prefs.Region()
		m.actionErr = nil
		m.status = T(m.lang, KeySaved)
	}
	return m, nil
}

// insightsView recomputes aggregates from the current snapshot.
func (m Model) insightsView() insights.View {
	return m.eng.Compute(m.snap.Logs, insights.Options{
		Region:    m.region,
		Language:  m.lang,
		Reference: m.now(),
		Weighting: m.weighting,
		Sort:      m.sort,
	})
}

func (m Model) history() []types.LogEntry {
	return m.eng.History(m.snap.Logs, insights.HistoryQuery{
		Region: m.region,
		Text:   m.search.Value(),
	})
}

func (m *Model) clampCursor() {
	n := len(m.history())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.renderTabs())
	sb.WriteString("\n")
	if banner := m.renderBanner(); banner != "" {
		sb.WriteString(banner)
		sb.WriteString("\n")
	}

	var body string
	switch m.tab {
	case TabHarvest:
		body = m.renderHarvest()
	case TabNotes:
		body = m.renderNotes()
	case TabShed:
		body = m.renderShed()
	}
	vp := m.viewport
	vp.SetContent(body)
	sb.WriteString(vp.View())
	sb.WriteString("\n")
	sb.WriteString(m.renderFooter())
	return sb.String()
}

func (m Model) renderHeader() string {
	return m.styles.Header.Render(fmt.Sprintf("fruity · %s · %s", m.region, m.snap.Endpoint))
}

func (m Model) renderTabs() string {
	parts := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		style := m.styles.Tab
		if t == m.tab {
			style = m.styles.ActiveTab
		}
		parts = append(parts, style.Render(t.title(m.lang)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderBanner shows load progress and the persistent error, if any.
func (m Model) renderBanner() string {
	var lines []string
	switch {
	case m.snap.Waking:
		lines = append(lines, m.spinner.View()+" "+m.styles.Warning.Render(T(m.lang, KeyServerWaking)))
	case m.snap.State == remote.StateLoading:
		lines = append(lines, m.spinner.View()+" "+m.styles.Muted.Render(T(m.lang, KeyLoading)))
	case m.snap.Misconfigured():
		lines = append(lines, m.styles.RenderBanner(m.styles.Error, T(m.lang, KeyMisconfigured)))
	case m.snap.Failed():
		lines = append(lines, m.styles.RenderBanner(m.styles.Error, T(m.lang, KeyServerError)))
	}
	if m.actionErr != nil {
		msg := m.actionErr.Error()
		if errors.Is(m.actionErr, remote.ErrConnectivity) {
			msg = T(m.lang, KeyServerError) + " " + msg
		}
		lines = append(lines, m.styles.Error.Render(msg))
	} else if m.status != "" {
		lines = append(lines, m.styles.Success.Render(m.status))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHarvest() string {
	v := m.insightsView()
	var sb strings.Builder
	sb.WriteString(m.styles.Subtitle.Render(Tf(m.lang, KeyBestRatedIn, "region", v.Region)))
	if v.Weighting == insights.RecencyWeighted {
		sb.WriteString(m.styles.Muted.Render(" · " + T(m.lang, KeyWeighted)))
	}
	sb.WriteString("\n\n")

	if picks := TopPicksTable(v, insights.SummaryTopN); picks.Len() > 0 {
		sb.WriteString(m.styles.Card.Render(strings.TrimRight(picks.View(m.styles), "\n")))
	} else {
		sb.WriteString(m.styles.Muted.Render(T(m.lang, KeyNoTopPicks)))
	}
	sb.WriteString("\n\n")
	if len(v.Aggregates) == 0 {
		sb.WriteString(m.styles.Muted.Render(T(m.lang, KeyNoLogs)))
		return sb.String()
	}
	sb.WriteString(RankedTable(v).View(m.styles))
	return sb.String()
}

func (m Model) renderNotes() string {
	var sb strings.Builder
	if m.focus == focusAdd {
		sb.WriteString(m.styles.Title.Render(T(m.lang, KeyLogButton)))
		sb.WriteString("\n")
		for i := range m.add {
			sb.WriteString(m.add[i].View())
			sb.WriteString("\n")
		}
		if hints := m.cat.Suggest(m.add[addFruit].Value(), m.lang, 5); len(hints) > 0 {
			sb.WriteString(m.styles.Muted.Render("→ " + strings.Join(hints, ", ")))
			sb.WriteString("\n")
		}
		sb.WriteString(m.styles.Muted.Render("enter: " + T(m.lang, KeySaveLog) + " · esc"))
		return sb.String()
	}

	sb.WriteString(m.search.View())
	sb.WriteString("\n\n")
	logs := m.history()
	if len(logs) == 0 {
		sb.WriteString(m.styles.Muted.Render(T(m.lang, KeyNoLogs)))
		return sb.String()
	}
	sb.WriteString(HistoryTable(m.cat, logs, m.lang, m.cursor).View(m.styles))
	sb.WriteString(m.styles.Muted.Render(Tf(m.lang, KeyEntries, "n", strconv.Itoa(len(logs)))))
	if m.focus == focusConfirm && m.pending != nil {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Warning.Render(fmt.Sprintf("%s %s · %s · %s",
			m.pending.ID, m.pending.Date, DisplayFruit(m.cat, m.pending.Fruit, m.lang), T(m.lang, KeyConfirmDelete))))
	}
	return sb.String()
}

func (m Model) renderShed() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(T(m.lang, KeyPreferences)))
	sb.WriteString("\n\n")
	values := [shedRows]string{m.prefs.BaseURL(), m.region, strings.ToUpper(string(m.lang))}
	for i := 0; i < shedRows; i++ {
		marker := "  "
		if i == m.shedRow {
			marker = m.styles.Prompt.Render("› ")
		}
		line := m.shed[i].Prompt + values[i]
		if m.focus == focusShed && i == m.shedRow {
			line = m.shed[i].View()
		}
		sb.WriteString(marker + line + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("%s · %s", m.snap.State, Tf(m.lang, KeyEntries, "n", strconv.Itoa(len(m.snap.Logs))))))
	return sb.String()
}

func (m Model) renderFooter() string {
	return m.styles.Footer.Render(m.help.View(m.keys))
}
