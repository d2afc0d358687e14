package bot

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/desertthunder/polyplayer/internal/formatter"
	"github.com/desertthunder/polyplayer/internal/player"
)

// Options holds the values of a command's options by name.
type Options map[string]any

func (o Options) String(name string) (string, bool) {
	v, ok := o[name].(string)
	return v, ok
}

func (o Options) Int(name string) (int, bool) {
	switch v := o[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

func (o Options) Bool(name string) (bool, bool) {
	v, ok := o[name].(bool)
	return v, ok
}

// Request is a single command invocation.
type Request struct {
	ID             string
	Command        string
	GuildID        uint64 // zero outside a guild
	UserID         uint64
	VoiceChannelID uint64 // zero when the caller is not in a voice channel
	Options        Options
}

// Caller identifies the requester to the player.
func (r *Request) Caller() player.Caller {
	return player.Caller{
		GuildID:   r.GuildID,
		ChannelID: player.ChannelID(r.VoiceChannelID),
		UserID:    r.UserID,
	}
}

// Reply is what a handler wants shown to the requester.
type Reply struct {
	Content   string
	Card      *formatter.QueueCard
	Ephemeral bool
}

// Handler handles one command.
type Handler func(ctx context.Context, req *Request) Reply

// Middleware wraps a [Handler] and returns a new [Handler] with additional behavior.
type Middleware func(Handler) Handler

type route struct {
	handler  Handler
	deferred bool
}

// CommandRouter dispatches requests by command name.
type CommandRouter struct {
	mu          sync.RWMutex
	routes      map[string]route
	middlewares []Middleware
}

// NewCommandRouter creates a new [CommandRouter] instance.
func NewCommandRouter() *CommandRouter {
	return &CommandRouter{
		routes:      make(map[string]route),
		middlewares: []Middleware{},
	}
}

// Use adds [Middleware] to the router's middleware stack, applied in the order it's added.
//
// Only handlers registered afterwards are wrapped.
func (r *CommandRouter) Use(middleware ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a [Handler] for the named command. The handler is wrapped with all registered middleware.
func (r *CommandRouter) Handle(name string, handler Handler) {
	r.handle(name, handler, false)
}

// HandleDeferred registers a handler for a command that may take longer than the interaction
// acknowledgement window.
func (r *CommandRouter) HandleDeferred(name string, handler Handler) {
	r.handle(name, handler, true)
}

func (r *CommandRouter) handle(name string, handler Handler, deferred bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[name] = route{handler: r.apply(handler), deferred: deferred}
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *CommandRouter) Apply(handler Handler) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.apply(handler)
}

func (r *CommandRouter) apply(handler Handler) Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}

// Deferred reports whether the named command was registered with [CommandRouter.HandleDeferred].
func (r *CommandRouter) Deferred(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.routes[name].deferred
}

// Dispatch runs the handler registered for req.Command.
func (r *CommandRouter) Dispatch(ctx context.Context, req *Request) Reply {
	r.mu.RLock()
	rt, ok := r.routes[req.Command]
	r.mu.RUnlock()

	if !ok {
		return Reply{Content: "Unknown command", Ephemeral: true}
	}
	return rt.handler(ctx, req)
}

// Commands lists the registered command names in order.
func (r *CommandRouter) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
