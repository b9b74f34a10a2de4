package toolexec

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"xcmcp/internal/catalog"
	"xcmcp/pkg/logging"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// maxOutputBytes bounds how much of each stream is returned to the caller.
// The tail is kept because toolchain failures are reported last.
const maxOutputBytes = 64 * 1024

// Options configure handlers produced by a Factory.
type Options struct {
	Timeout    time.Duration // Default per-command timeout; zero disables it
	WorkingDir string
}

// Factory builds definition-driven tool handlers. It implements
// catalog.HandlerFactory.
type Factory struct {
	executor CommandExecutor
	options  Options
}

// NewFactory creates a handler factory that runs commands through executor.
func NewFactory(executor CommandExecutor, options Options) *Factory {
	return &Factory{executor: executor, options: options}
}

type argGroup struct {
	condition *vm.Program
	values    []*template.Template
}

type envVar struct {
	key   string
	value *template.Template
}

type commandPlan struct {
	tool    string
	program string
	groups  []argGroup
	env     []envVar // sorted by key
	timeout time.Duration
}

// NewHandler implements catalog.HandlerFactory. Templates and conditions are
// compiled here so mistakes in definitions fail at startup.
func (f *Factory) NewHandler(def catalog.ToolDefinition, schema *jsonschema.Schema) (server.ToolHandlerFunc, error) {
	if def.Command == nil || def.Command.Program == "" {
		return nil, fmt.Errorf("no command configured")
	}

	plan := &commandPlan{
		tool:    def.Name,
		program: def.Command.Program,
		timeout: f.options.Timeout,
	}
	if def.Command.Timeout > 0 {
		plan.timeout = def.Command.Timeout
	}

	for i, group := range def.Command.Args {
		compiled := argGroup{}
		if strings.TrimSpace(group.If) != "" {
			program, err := expr.Compile(group.If, expr.AsBool(), expr.AllowUndefinedVariables())
			if err != nil {
				return nil, fmt.Errorf("args[%d].if: %w", i, err)
			}
			compiled.condition = program
		}
		for j, value := range group.Values {
			tmpl, err := template.New(fmt.Sprintf("%s.args[%d][%d]", def.Name, i, j)).
				Option("missingkey=error").
				Parse(value)
			if err != nil {
				return nil, fmt.Errorf("args[%d].values[%d]: %w", i, j, err)
			}
			compiled.values = append(compiled.values, tmpl)
		}
		plan.groups = append(plan.groups, compiled)
	}

	keys := make([]string, 0, len(def.Command.Env))
	for key := range def.Command.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == "" || strings.ContainsAny(key, "= ") {
			return nil, fmt.Errorf("env: invalid variable name %q", key)
		}
		tmpl, err := template.New(fmt.Sprintf("%s.env.%s", def.Name, key)).
			Option("missingkey=error").
			Parse(def.Command.Env[key])
		if err != nil {
			return nil, fmt.Errorf("env.%s: %w", key, err)
		}
		plan.env = append(plan.env, envVar{key: key, value: tmpl})
	}

	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return f.handle(ctx, plan, schema, req)
	}, nil
}

func (f *Factory) handle(ctx context.Context, plan *commandPlan, schema *jsonschema.Schema, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	if args == nil {
		args = map[string]any{}
	}

	if schema != nil {
		if err := schema.Validate(args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments for %s: %v", plan.tool, err)), nil
		}
	}

	argv, err := plan.render(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to build %s command: %v", plan.tool, err)), nil
	}

	if plan.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, plan.timeout)
		defer cancel()
	}

	env, err := plan.renderEnv(args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to build %s environment: %v", plan.tool, err)), nil
	}

	cmd := Command{Program: plan.program, Args: argv, Dir: f.options.WorkingDir, Env: env}
	logging.Info("Toolexec", "Running %s for tool %s", FormatCommandLine(cmd), plan.tool)

	result, err := f.executor.Execute(ctx, cmd)
	if err != nil {
		logging.Error("Toolexec", err, "Tool %s failed to run", plan.tool)
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", plan.tool, err)), nil
	}

	text := FormatResult(cmd, result)
	if result.ExitCode != 0 {
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}

// render evaluates every arg group against the call arguments.
func (p *commandPlan) render(args map[string]any) ([]string, error) {
	var argv []string
	for i, group := range p.groups {
		if group.condition != nil {
			out, err := expr.Run(group.condition, args)
			if err != nil {
				return nil, fmt.Errorf("evaluating condition of args[%d]: %w", i, err)
			}
			if !out.(bool) { // safe due to expr.AsBool()
				continue
			}
		}
		for _, tmpl := range group.values {
			var sb strings.Builder
			if err := tmpl.Execute(&sb, args); err != nil {
				return nil, err
			}
			argv = append(argv, sb.String())
		}
	}
	return argv, nil
}

// renderEnv renders the KEY=VALUE pairs added to the process environment.
func (p *commandPlan) renderEnv(args map[string]any) ([]string, error) {
	env := make([]string, 0, len(p.env))
	for _, v := range p.env {
		var sb strings.Builder
		if err := v.value.Execute(&sb, args); err != nil {
			return nil, err
		}
		env = append(env, v.key+"="+sb.String())
	}
	return env, nil
}

// FormatCommandLine renders cmd the way a shell user would type it.
func FormatCommandLine(cmd Command) string {
	parts := make([]string, 0, len(cmd.Args)+1)
	parts = append(parts, shellQuote(cmd.Program))
	for _, a := range cmd.Args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

// FormatResult renders a command result as tool output text.
func FormatResult(cmd Command, result CommandResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "$ %s\n", FormatCommandLine(cmd))
	if result.ExitCode == 0 {
		fmt.Fprintf(&sb, "Succeeded in %s.\n", result.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(&sb, "Failed with exit code %d after %s.\n", result.ExitCode, result.Duration.Round(time.Millisecond))
	}
	if out := strings.TrimSpace(tail(result.Stdout, maxOutputBytes)); out != "" {
		fmt.Fprintf(&sb, "\nOutput:\n%s\n", out)
	}
	if errOut := strings.TrimSpace(tail(result.Stderr, maxOutputBytes)); errOut != "" {
		fmt.Fprintf(&sb, "\nErrors:\n%s\n", errOut)
	}
	return sb.String()
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[len(s)-limit:]
	if i := strings.IndexByte(cut, '\n'); i >= 0 && i < len(cut)-1 {
		cut = cut[i+1:]
	}
	return "[output truncated]\n" + cut
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"\\$`*?()[]{}|&;<>!#~") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}
