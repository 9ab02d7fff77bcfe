package hooking

import "github.com/golang/glog"

// A LogHook writes every invocation to the log at a verbosity level.
type LogHook struct {
	level glog.Level
}

// NewLogHook creates a LogHook that logs at verbosity level.
func NewLogHook(level glog.Level) *LogHook {
	return &LogHook{level: level}
}

// Func logs the position and the item of ctx.
func (h *LogHook) Func(ctx HookCtx) {
	if !glog.V(h.level) {
		return
	}

	name := "<nil>"
	if ctx.Pos != nil {
		name = ctx.Pos.Name
	}

	glog.Infof("hook %s: %+v", name, ctx.Item)
}
