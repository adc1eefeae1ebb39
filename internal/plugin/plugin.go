package plugin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tcg-hq/followers/internal/app"
	"github.com/tcg-hq/followers/internal/present"
)

// Props are what the host hands a popover component: the user it is shown for.
type Props struct {
	UserID string
}

// Component mounts the follow row for one set of props.
type Component func(props Props) *Mount

// Registry is the host's extension point.
type Registry interface {
	RegisterPopoverUserActionsComponent(c Component)
}

// SessionFactory creates the per-mount session.
type SessionFactory interface {
	Mount(actorID string) *app.Session
}

// Plugin registers the follow row with a host.
type Plugin struct {
	ID       string
	sessions SessionFactory
}

// New returns a plugin whose component draws sessions from sessions.
func New(id string, sessions SessionFactory) *Plugin {
	return &Plugin{ID: id, sessions: sessions}
}

// Initialize registers the popover component. No plugin state depends on it.
func (p *Plugin) Initialize(reg Registry) error {
	if reg == nil {
		return fmt.Errorf("plugin %s: registry must not be nil", p.ID)
	}
	if p.sessions == nil {
		return fmt.Errorf("plugin %s: session factory must not be nil", p.ID)
	}
	reg.RegisterPopoverUserActionsComponent(func(props Props) *Mount {
		return &Mount{session: p.sessions.Mount(strings.TrimSpace(props.UserID))}
	})
	return nil
}

// Mount is a live component instance.
type Mount struct {
	session *app.Session
}

// View loads the relationship set on first render and returns the row.
func (m *Mount) View(ctx context.Context) present.View {
	m.session.Load(ctx)
	return m.session.View()
}

// Click runs the button's action and returns the refreshed row.
func (m *Mount) Click(ctx context.Context) (present.View, error) {
	v := m.View(ctx)
	if v.Kind != present.KindButton || v.Button.OnClick == nil {
		return v, fmt.Errorf("no action available")
	}
	if !v.Button.Enabled {
		return v, fmt.Errorf("action already in flight")
	}
	err := v.Button.OnClick(ctx)
	return m.session.View(), err
}

// Session exposes the underlying session.
func (m *Mount) Session() *app.Session { return m.session }

// Unmount discards the mount's cached state.
func (m *Mount) Unmount() { m.session.Unmount() }

// Host is an in-process Registry that keeps registered components, used by
// the CLI and tests in place of a browser host.
type Host struct {
	mu         sync.Mutex
	components []Component
}

func (h *Host) RegisterPopoverUserActionsComponent(c Component) {
	if c == nil {
		return
	}
	h.mu.Lock()
	h.components = append(h.components, c)
	h.mu.Unlock()
}

// MountAll mounts every registered component with props.
func (h *Host) MountAll(props Props) []*Mount {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Mount, 0, len(h.components))
	for _, c := range h.components {
		out = append(out, c(props))
	}
	return out
}
