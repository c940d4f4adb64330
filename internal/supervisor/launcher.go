package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/yourusername/game-server-supervisor/internal/config"
)

// SpawnDescriptor describes one spawn attempt. It is assembled fresh from
// the configuration on every attempt and never mutated after use.
type SpawnDescriptor struct {
	Executable string
	Args       []string
	WorkDir    string
}

// Child is a handle to a launched server process
type Child interface {
	Pid() int
	Stdin() io.Writer
	Stdout() io.Reader
	Stderr() io.Reader

	// Aux is the out-of-band channel (fd 3). Nil on platforms that do not
	// support inheriting extra pipes.
	Aux() io.Reader

	Wait() error
	Kill() error
}

// Launcher abstracts process creation so the supervisor can be exercised
// without spawning real processes
type Launcher interface {
	Launch(desc SpawnDescriptor) (Child, error)
}

// The server runtime ships two loader conventions: a plain PE binary on
// Windows, and an ELF binary that must be started through its bundled
// dynamic-linker shim everywhere else. The two launch shapes are distinct
// on purpose; do not collapse them.
const (
	windowsBinaryName = "server.exe"
	nativeBinaryName  = "server"
	linkerShimRelPath = "linker/ld-linux-x86-64.so.2"
	libraryRelPath    = "lib"
)

// BuildSpawnDescriptor computes the platform-specific launch shape for the
// given host OS
func BuildSpawnDescriptor(cfg config.ServerConfig, goos string) SpawnDescriptor {
	if goos == "windows" {
		return SpawnDescriptor{
			Executable: filepath.Join(cfg.BinPath, windowsBinaryName),
			Args:       append([]string{}, cfg.StartupArgs...),
			WorkDir:    cfg.DataPath,
		}
	}

	args := []string{
		"--library-path", filepath.Join(cfg.BinPath, libraryRelPath),
		filepath.Join(cfg.BinPath, nativeBinaryName),
	}
	args = append(args, cfg.StartupArgs...)

	return SpawnDescriptor{
		Executable: filepath.Join(cfg.BinPath, linkerShimRelPath),
		Args:       args,
		WorkDir:    cfg.DataPath,
	}
}

// ExecLauncher launches real processes with os/exec, wiring stdin, stdout,
// stderr and the auxiliary pipe
type ExecLauncher struct{}

type execChild struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	stderr *os.File
	aux    *os.File
}

// Launch starts the described process with all four standard streams.
// Stdout and stderr are raw os.Pipe pairs rather than cmd.StdoutPipe:
// Wait closes StdoutPipe readers as soon as the command exits, which can
// discard the final burst of output while a forwarder is still reading.
// With a raw pipe the reader always drains to a natural EOF.
func (ExecLauncher) Launch(desc SpawnDescriptor) (Child, error) {
	cmd := exec.Command(desc.Executable, desc.Args...)
	cmd.Dir = desc.WorkDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW

	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}
	cmd.Stderr = stderrW

	// ExtraFiles hands the child a write end as fd 3, the out-of-band
	// channel. Not supported by os/exec on Windows.
	var auxRead, auxWrite *os.File
	if supportsExtraFiles() {
		auxRead, auxWrite, err = os.Pipe()
		if err != nil {
			stdoutR.Close()
			stdoutW.Close()
			stderrR.Close()
			stderrW.Close()
			return nil, fmt.Errorf("failed to open out-of-band pipe: %w", err)
		}
		cmd.ExtraFiles = []*os.File{auxWrite}
	}

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		if auxRead != nil {
			auxRead.Close()
			auxWrite.Close()
		}
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	// The parent's copies of the write ends must be closed so the read
	// sides see EOF when the child exits.
	stdoutW.Close()
	stderrW.Close()
	if auxWrite != nil {
		auxWrite.Close()
	}

	return &execChild{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdoutR,
		stderr: stderrR,
		aux:    auxRead,
	}, nil
}

func supportsExtraFiles() bool {
	return runtime.GOOS != "windows"
}

func (c *execChild) Pid() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

func (c *execChild) Stdin() io.Writer  { return c.stdin }
func (c *execChild) Stdout() io.Reader { return c.stdout }
func (c *execChild) Stderr() io.Reader { return c.stderr }

func (c *execChild) Aux() io.Reader {
	if c.aux == nil {
		return nil
	}
	return c.aux
}

// Wait blocks until the process exits. The read ends are left open; each
// stream's forwarder closes its own end after draining to EOF.
func (c *execChild) Wait() error {
	return c.cmd.Wait()
}

func (c *execChild) Kill() error {
	if c.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	return c.cmd.Process.Kill()
}
