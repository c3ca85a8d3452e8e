package solver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dop251/goja"

	"github.com/southctrl/yt-cipher/internal/model"
)

// Program is a compiled solver bundle. It is immutable and shared by every
// worker runtime; each runtime evaluates it once at creation.
type Program struct {
	name       string
	entrypoint string
	prog       *goja.Program
}

// Compile parses a solver bundle. The bundle must define a global function
// named entrypoint that takes the solver input object and returns the output
// object (or its JSON encoding).
func Compile(name, src, entrypoint string) (*Program, error) {
	if entrypoint == "" {
		return nil, errors.New("solver entrypoint is required")
	}
	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, fmt.Errorf("compile solver %s: %w", name, err)
	}
	return &Program{name: name, entrypoint: entrypoint, prog: prog}, nil
}

// CompileFile reads and compiles the solver bundle at path.
func CompileFile(path, entrypoint string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read solver: %w", err)
	}
	return Compile(path, string(src), entrypoint)
}

// Factory returns a Factory building one GojaSolver per worker.
func (p *Program) Factory(logger *slog.Logger) Factory {
	return func(workerID int) (Solver, error) {
		return NewGojaSolver(p, logger.With("worker_id", workerID))
	}
}

// GojaSolver runs a solver bundle inside its own goja runtime.
type GojaSolver struct {
	vm     *goja.Runtime
	entry  goja.Callable
	logger *slog.Logger
}

// Compile-time interface satisfaction check.
var _ Solver = (*GojaSolver)(nil)

// NewGojaSolver creates a runtime, installs a console that forwards to
// logger, and evaluates the bundle.
func NewGojaSolver(p *Program, logger *slog.Logger) (*GojaSolver, error) {
	vm := goja.New()
	s := &GojaSolver{vm: vm, logger: logger}

	if err := vm.Set("console", map[string]any{
		"log":   s.consoleFunc(slog.LevelDebug),
		"info":  s.consoleFunc(slog.LevelDebug),
		"debug": s.consoleFunc(slog.LevelDebug),
		"warn":  s.consoleFunc(slog.LevelWarn),
		"error": s.consoleFunc(slog.LevelWarn),
	}); err != nil {
		return nil, fmt.Errorf("install console: %w", err)
	}

	if _, err := vm.RunProgram(p.prog); err != nil {
		return nil, fmt.Errorf("load solver %s: %w", p.name, err)
	}

	entry, ok := goja.AssertFunction(vm.Get(p.entrypoint))
	if !ok {
		return nil, fmt.Errorf("solver %s does not define function %q", p.name, p.entrypoint)
	}
	s.entry = entry

	return s, nil
}

func (s *GojaSolver) consoleFunc(level slog.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		s.logger.Log(context.Background(), level, "solver console", "line", strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// Solve calls the entrypoint with in. A done context interrupts the running
// script.
func (s *GojaSolver) Solve(ctx context.Context, in model.Input) (model.Output, error) {
	if err := ctx.Err(); err != nil {
		return model.Output{}, err
	}

	arg, err := s.toJS(in)
	if err != nil {
		return model.Output{}, err
	}

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		s.vm.Interrupt(ctx.Err())
		close(interrupted)
	})
	defer func() {
		if !stop() {
			<-interrupted
		}
		s.vm.ClearInterrupt()
	}()

	res, err := s.entry(goja.Undefined(), arg)
	if err != nil {
		return model.Output{}, s.classify(ctx, err)
	}

	return s.fromJS(res)
}

// Close drops the runtime. The solver must not be used afterwards.
func (s *GojaSolver) Close() error {
	s.vm = nil
	s.entry = nil
	return nil
}

func (s *GojaSolver) toJS(in model.Input) (goja.Value, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode solver input: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode solver input: %w", err)
	}
	return s.vm.ToValue(obj), nil
}

func (s *GojaSolver) fromJS(res goja.Value) (model.Output, error) {
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return model.Output{}, &Error{Message: "solver returned no output"}
	}

	var data []byte
	if str, ok := res.Export().(string); ok {
		data = []byte(str)
	} else {
		b, err := json.Marshal(res.Export())
		if err != nil {
			return model.Output{}, &Error{Message: fmt.Sprintf("encode solver output: %v", err)}
		}
		data = b
	}

	var out model.Output
	if err := json.Unmarshal(data, &out); err != nil {
		return model.Output{}, &Error{Message: fmt.Sprintf("malformed solver output: %v", err)}
	}
	return out, nil
}

func (s *GojaSolver) classify(ctx context.Context, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &Error{Message: err.Error()}
	}

	var exc *goja.Exception
	if errors.As(err, &exc) {
		e := &Error{Message: exc.Error(), Stack: exc.String()}
		if obj, ok := exc.Value().(*goja.Object); ok {
			if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
				e.Message = msg.String()
			}
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				e.Stack = stack.String()
			}
		} else if v := exc.Value(); v != nil {
			e.Message = v.String()
		}
		return e
	}

	return &Error{Message: err.Error()}
}
