// Package disasm runs the script engine's disassembler on a source file and
// parses its line-table listing.
package disasm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tturner/pccov/internal/logging"
)

const stderrLimit = 4 << 10

// Placeholders expanded in Options.Args.
const (
	PathPlaceholder   = "{path}"
	QuotedPlaceholder = "{quoted}"
)

// DefaultArgs asks the engine shell for a recursive, line-numbered
// disassembly of {path}.
var DefaultArgs = []string{"-e", `disfile("-l", "-r", {quoted})`}

// Disassembler produces the disassembly listing of a source file.
type Disassembler interface {
	Disassemble(ctx context.Context, path string) ([]byte, error)
}

// Options configures Shell.
type Options struct {
	// Path is the engine shell executable.
	Path string
	// Args are passed after Path with placeholders expanded. Empty means
	// DefaultArgs.
	Args []string
	// Timeout bounds one invocation. Zero means no limit.
	Timeout time.Duration
}

// Shell disassembles files by running the engine shell as a subprocess.
type Shell struct {
	opts   Options
	logger *logging.Logger
}

// NewShell creates a Shell.
func NewShell(opts Options, logger *logging.Logger) *Shell {
	if len(opts.Args) == 0 {
		opts.Args = DefaultArgs
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Shell{opts: opts, logger: logger}
}

// Argv returns the full command line used for path.
func (s *Shell) Argv(path string) []string {
	argv := make([]string, 0, len(s.opts.Args)+1)
	argv = append(argv, s.opts.Path)
	quoted := strconv.Quote(path)
	for _, a := range s.opts.Args {
		a = strings.ReplaceAll(a, QuotedPlaceholder, quoted)
		a = strings.ReplaceAll(a, PathPlaceholder, path)
		argv = append(argv, a)
	}
	return argv
}

// Disassemble runs the shell for path and returns its stdout. A non-zero
// exit, a start failure or a timeout is an error carrying a stderr snippet.
func (s *Shell) Disassemble(ctx context.Context, path string) ([]byte, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	argv := s.Argv(path)
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	c.WaitDelay = time.Second

	s.logger.Debug("executing: %v", c)

	if err := c.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > stderrLimit {
			msg = msg[:stderrLimit] + "... (truncated)"
		}
		return stdout.Bytes(), fmt.Errorf("disassemble %s: %w (stderr: %s)", path, err, msg)
	}
	return stdout.Bytes(), nil
}
