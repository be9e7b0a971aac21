package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	appportal "github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/portal"
	dtable "github.com/erp/portal/internal/domain/table"
)

// workspace is the part of the portal API the browser drives.
type workspace interface {
	Activate(ctx context.Context, tab portal.Tab) (*appportal.TabView, error)
	Search(ctx context.Context, tab portal.Tab, term string) (*appportal.TabView, error)
	Sort(ctx context.Context, tab portal.Tab, field string) (*appportal.TabView, error)
	NextPage(ctx context.Context, tab portal.Tab) (*appportal.TabView, error)
	PreviousPage(ctx context.Context, tab portal.Tab) (*appportal.TabView, error)
	Reload(ctx context.Context) error
}

type viewMsg struct{ view *appportal.TabView }

type errMsg struct{ err error }

type reloadedMsg struct{}

type browseKeys struct {
	Quit    key.Binding
	Search  key.Binding
	Sort    key.Binding
	Next    key.Binding
	Prev    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Reload  key.Binding
}

func defaultBrowseKeys() browseKeys {
	return browseKeys{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Next:    key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n", "next page")),
		Prev:    key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p", "prev page")),
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	}
}

func (k browseKeys) help() string {
	bindings := []key.Binding{k.Search, k.Sort, k.Next, k.Prev, k.NextTab, k.Reload, k.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

var (
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1).Underline(true)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type browseModel struct {
	ctx     context.Context
	api     workspace
	keys    browseKeys
	tabs    []portal.Tab
	current int

	view      *appportal.TabView
	columns   portal.Tab
	table     table.Model
	search    textinput.Model
	searching bool
	spinner   spinner.Model
	loading   bool
	err       error
}

func newBrowseModel(ctx context.Context, api workspace) *browseModel {
	var tabs []portal.Tab
	for _, t := range portal.AllTabs {
		if t.IsList() {
			tabs = append(tabs, t)
		}
	}
	search := textinput.New()
	search.Placeholder = "search term"
	search.Prompt = "/ "
	search.Cursor.SetMode(cursor.CursorStatic)

	return &browseModel{
		ctx:     ctx,
		api:     api,
		keys:    defaultBrowseKeys(),
		tabs:    tabs,
		table:   table.New(table.WithFocused(true), table.WithHeight(12)),
		search:  search,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		loading: true,
	}
}

func (m *browseModel) tab() portal.Tab {
	return m.tabs[m.current]
}

func (m *browseModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.activate())
}

// call runs fn off the UI loop and reports its view.
func (m *browseModel) call(fn func(ctx context.Context, tab portal.Tab) (*appportal.TabView, error)) tea.Cmd {
	ctx, tab := m.ctx, m.tab()
	m.loading = true
	return func() tea.Msg {
		view, err := fn(ctx, tab)
		if err != nil {
			return errMsg{err}
		}
		return viewMsg{view}
	}
}

func (m *browseModel) activate() tea.Cmd {
	return m.call(m.api.Activate)
}

func (m *browseModel) reload() tea.Cmd {
	ctx := m.ctx
	m.loading = true
	return func() tea.Msg {
		if err := m.api.Reload(ctx); err != nil {
			return errMsg{err}
		}
		return reloadedMsg{}
	}
}

// nextSort picks the field the next sort call should name: no sort starts
// at the first field, ascending flips to descending, descending moves on.
func nextSort(fields []dtable.Field, current dtable.SortSpec) (dtable.Field, bool) {
	if len(fields) == 0 {
		return "", false
	}
	i := slices.Index(fields, current.Field)
	switch {
	case !current.Active() || i < 0:
		return fields[0], true
	case current.Direction == dtable.Asc:
		return current.Field, true
	default:
		return fields[(i+1)%len(fields)], true
	}
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-8, 3))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case viewMsg:
		m.loading = false
		m.err = nil
		m.setView(msg.view)
		return m, nil

	case errMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case reloadedMsg:
		m.view = nil
		return m, m.activate()

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *browseModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		term := m.search.Value()
		return m, m.call(func(ctx context.Context, tab portal.Tab) (*appportal.TabView, error) {
			return m.api.Search(ctx, tab, term)
		})
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *browseModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		if m.view != nil {
			m.search.SetValue(m.view.SearchTerm)
		}
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Sort):
		if m.view == nil {
			return m, nil
		}
		field, ok := nextSort(m.view.SortFields, m.view.Sort)
		if !ok {
			return m, nil
		}
		return m, m.call(func(ctx context.Context, tab portal.Tab) (*appportal.TabView, error) {
			return m.api.Sort(ctx, tab, string(field))
		})
	case key.Matches(msg, m.keys.Next):
		return m, m.call(m.api.NextPage)
	case key.Matches(msg, m.keys.Prev):
		return m, m.call(m.api.PreviousPage)
	case key.Matches(msg, m.keys.NextTab):
		m.current = (m.current + 1) % len(m.tabs)
		return m, m.activate()
	case key.Matches(msg, m.keys.PrevTab):
		m.current = (m.current - 1 + len(m.tabs)) % len(m.tabs)
		return m, m.activate()
	case key.Matches(msg, m.keys.Reload):
		return m, m.reload()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *browseModel) setView(v *appportal.TabView) {
	m.view = v
	if m.columns != v.Tab {
		// Rows must match the column count before the columns change.
		m.table.SetRows(nil)
		heads := headers(v.Tab)
		cols := make([]table.Column, len(heads))
		for i, h := range heads {
			cols[i] = table.Column{Title: h, Width: max(len(h), 12)}
		}
		m.table.SetColumns(cols)
		m.columns = v.Tab
	}
	body := rows(v.Tab, v.Items)
	out := make([]table.Row, len(body))
	for i, r := range body {
		out[i] = table.Row(r)
	}
	m.table.SetRows(out)
	m.table.GotoTop()
}

func (m *browseModel) tabBar() string {
	parts := make([]string, len(m.tabs))
	for i, t := range m.tabs {
		label := strings.ToUpper(string(t[:1])) + string(t[1:])
		if i == m.current {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = inactiveTabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *browseModel) View() string {
	var b strings.Builder
	b.WriteString(m.tabBar())
	b.WriteString("\n\n")
	if m.view != nil {
		b.WriteString(m.table.View())
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(summary(m.view)))
		b.WriteString("\n")
	}
	switch {
	case m.searching:
		b.WriteString(m.search.View())
	case m.loading:
		b.WriteString(m.spinner.View() + " Loading " + string(m.tab()) + "...")
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.keys.help()))
	return b.String()
}

func (a *app) newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the list tabs interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model := newBrowseModel(cmd.Context(), a.client())
			p := tea.NewProgram(model,
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(a.out),
				tea.WithAltScreen(),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("browse: %w", err)
			}
			return nil
		},
	}
}
