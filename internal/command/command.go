package command

import (
	"errors"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ErrEmptyExecutable is returned by Validate when no executable was given.
var ErrEmptyExecutable = errors.New("command: executable is empty")

type envOpKind int

const (
	envSet envOpKind = iota
	envUnset
)

type envOp struct {
	kind  envOpKind
	key   string
	value string
}

// Command describes an executable invocation. Methods return the receiver so
// calls can be chained:
//
//	cmd := command.New("/opt/server/bin/start.sh").
//		AddArgument("--port", "9000").
//		SetDirectory(workDir).
//		SetEnv("JAVA_OPTS", "-Xmx512m")
//
// A Command is not safe for concurrent mutation. Build may be called any
// number of times and never mutates the Command.
type Command struct {
	executable string
	args       []string
	dir        string
	baseEnv    map[string]string
	envOps     []envOp
}

// Spec is the resolved spawn request produced by Build.
type Spec struct {
	Executable string
	Args       []string
	Dir        string
	// Env holds KEY=VALUE pairs sorted by key.
	Env []string
}

// New creates a Command whose environment starts as a snapshot of the
// current process environment.
func New(executable string) *Command {
	return &Command{
		executable: executable,
		baseEnv:    environMap(os.Environ()),
	}
}

// Executable returns the executable path or name.
func (c *Command) Executable() string {
	return c.executable
}

// AddArgument appends arguments in order. Each value is passed to the child
// as one token, whatever whitespace or shell metacharacters it contains.
func (c *Command) AddArgument(values ...string) *Command {
	c.args = append(c.args, values...)
	return c
}

// AddArguments appends every element of values.
func (c *Command) AddArguments(values []string) *Command {
	return c.AddArgument(values...)
}

// Arguments returns a copy of the arguments.
func (c *Command) Arguments() []string {
	return append([]string(nil), c.args...)
}

// SetDirectory sets the working directory. It must exist when the command is
// executed; an empty path means the caller's working directory.
func (c *Command) SetDirectory(path string) *Command {
	c.dir = path
	return c
}

// Directory returns the configured working directory.
func (c *Command) Directory() string {
	return c.dir
}

// SetEnv records an override of environment variable key.
func (c *Command) SetEnv(key, value string) *Command {
	c.envOps = append(c.envOps, envOp{kind: envSet, key: key, value: value})
	return c
}

// UnsetEnv records the removal of key. Removing an absent key is a no-op.
func (c *Command) UnsetEnv(key string) *Command {
	c.envOps = append(c.envOps, envOp{kind: envUnset, key: key})
	return c
}

// ReplaceEnv drops the inherited environment and every previously recorded
// SetEnv/UnsetEnv call; env becomes the complete environment.
//
// The operating system may still add a few variables of its own when the
// process is spawned (Windows injects SYSTEMROOT, for instance). That is
// platform behaviour and not controlled here.
func (c *Command) ReplaceEnv(env map[string]string) *Command {
	c.baseEnv = make(map[string]string, len(env))
	for k, v := range env {
		c.baseEnv[k] = v
	}
	c.envOps = nil
	return c
}

// Environment returns the environment that Build would produce.
func (c *Command) Environment() map[string]string {
	env := make(map[string]string, len(c.baseEnv))
	for k, v := range c.baseEnv {
		env[k] = v
	}
	for _, op := range c.envOps {
		switch op.kind {
		case envSet:
			env[op.key] = op.value
		case envUnset:
			delete(env, op.key)
		}
	}
	return env
}

// Validate reports whether the command can be built into a spawn request.
func (c *Command) Validate() error {
	if strings.TrimSpace(c.executable) == "" {
		return ErrEmptyExecutable
	}
	return nil
}

// Build resolves the recorded state into a Spec.
func (c *Command) Build() Spec {
	env := c.Environment()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}

	return Spec{
		Executable: c.executable,
		Args:       append([]string(nil), c.args...),
		Dir:        c.dir,
		Env:        pairs,
	}
}

// String renders the command line for logs. Tokens that need it are quoted;
// the result is not meant to be fed to a shell.
func (c *Command) String() string {
	parts := make([]string, 0, len(c.args)+1)
	parts = append(parts, displayToken(c.executable))
	for _, a := range c.args {
		parts = append(parts, displayToken(a))
	}
	return strings.Join(parts, " ")
}

func displayToken(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"'\\&|;<>$`*?()[]{}") {
		return strconv.Quote(s)
	}
	return s
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			// Windows carries per-drive entries such as "=C:=C:\\"; keep them as-is.
			if strings.HasPrefix(kv, "=") {
				if k2, v2, ok2 := strings.Cut(kv[1:], "="); ok2 {
					env["="+k2] = v2
				}
			}
			continue
		}
		env[k] = v
	}
	return env
}
