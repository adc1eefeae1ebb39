package present

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/tcg-hq/followers/internal/toggle"
)

// Kind selects which of the three render outcomes a View is.
type Kind int

const (
	KindEmpty Kind = iota
	KindError
	KindButton
)

const (
	LabelFollow   = "Follow"
	LabelUnfollow = "Unfollow"
	LabelPending  = "Loading..."

	IconFollow   = "icon-plus"
	IconUnfollow = "icon-close"

	errorPrefix = "Error: "
)

// ClickFunc is bound to the button; it performs the offered action.
type ClickFunc func(ctx context.Context) error

// Button is the action row for a Ready controller.
type Button struct {
	Label   string
	Icon    string
	Enabled bool
	Action  toggle.Action
	OnClick ClickFunc
}

// View is the render contract handed to the host.
type View struct {
	Kind   Kind
	Text   string
	Button Button
}

// Render maps controller state onto a View. It holds no logic beyond the mapping.
func Render(st toggle.State, onClick ClickFunc) View {
	switch st.Phase {
	case toggle.PhaseError:
		msg := "unknown error"
		if st.Err != nil {
			msg = st.Err.Error()
		}
		return View{Kind: KindError, Text: errorPrefix + msg}
	case toggle.PhaseReady:
		b := Button{Action: st.Action, Enabled: !st.Pending, OnClick: onClick}
		if st.Action == toggle.ShowUnfollow {
			b.Label, b.Icon = LabelUnfollow, IconUnfollow
		} else {
			b.Label, b.Icon = LabelFollow, IconFollow
		}
		if st.Pending {
			b.Label = LabelPending
		}
		return View{Kind: KindButton, Button: b}
	default:
		return View{Kind: KindEmpty}
	}
}

var rowTemplate = template.Must(template.New("row").Parse(
	`{{if .IsError}}<span class="follow-error">{{.Text}}</span>` +
		`{{else if .IsButton}}<div class="popover__row"><button type="button" class="btn" data-action="{{.Button.Action}}"{{if not .Button.Enabled}} disabled{{end}}>` +
		`{{if .Button.Enabled}}<i class="icon {{.Button.Icon}}"></i>{{end}}<span>{{.Button.Label}}</span></button></div>{{end}}`,
))

type rowData struct {
	IsError  bool
	IsButton bool
	Text     string
	Button   Button
}

// HTML renders the popover row markup for hosts that embed server-side fragments.
// An empty view renders as an empty string.
func HTML(v View) (string, error) {
	var buf bytes.Buffer
	if err := rowTemplate.Execute(&buf, rowData{
		IsError:  v.Kind == KindError,
		IsButton: v.Kind == KindButton,
		Text:     v.Text,
		Button:   v.Button,
	}); err != nil {
		return "", fmt.Errorf("render row: %w", err)
	}
	return buf.String(), nil
}
