package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"pgblast/internal/bench"
)

// ChildCommand is the hidden subcommand a parent re-execs to host one
// worker process.
const ChildCommand = "worker"

// Proc is one spawned worker child. Its stdout carries exactly one
// ResultBatch; stderr is passed through for logs.
type Proc struct {
	Index int

	cmd *exec.Cmd
	out *bytes.Buffer
}

// Spawn starts a child worker and hands it its spec over stdin. The child
// is intentionally not bound to a context: the parent decides when to
// signal or kill it, so the grace-period semantics stay in one place.
func Spawn(exe string, spec Spec) (*Proc, error) {
	cmd := exec.Command(exe, ChildCommand)
	cmd.Stderr = os.Stderr

	out := &bytes.Buffer{}
	cmd.Stdout = out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker %d: opening stdin pipe: %w", spec.Index, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("worker %d: starting process: %w", spec.Index, err)
	}

	// The spec is small; the pipe buffer swallows it without blocking.
	if err := json.NewEncoder(stdin).Encode(spec); err != nil {
		stdin.Close()
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("worker %d: writing spec: %w", spec.Index, err)
	}
	stdin.Close()

	return &Proc{Index: spec.Index, cmd: cmd, out: out}, nil
}

// PID returns the child's process id.
func (p *Proc) PID() int {
	return p.cmd.Process.Pid
}

// Wait blocks until the child exits and decodes its batch. A child that
// dies without producing a batch yields an error: the orchestrator counts
// it missing rather than blocking on it.
func (p *Proc) Wait() (bench.ResultBatch, error) {
	waitErr := p.cmd.Wait()

	var batch bench.ResultBatch
	if err := json.NewDecoder(p.out).Decode(&batch); err != nil {
		if waitErr != nil {
			return batch, fmt.Errorf("worker %d died without a batch: %w", p.Index, waitErr)
		}
		return batch, fmt.Errorf("worker %d: decoding batch: %w", p.Index, err)
	}
	return batch, nil
}

// Interrupt asks the child to stop accepting new transactions.
func (p *Proc) Interrupt() {
	p.cmd.Process.Signal(syscall.SIGTERM)
}

// Kill terminates the child immediately.
func (p *Proc) Kill() {
	p.cmd.Process.Kill()
}
