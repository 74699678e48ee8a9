package agent

import (
	"bytes"
	"os/exec"
	"sync"
	"time"
)

// Process is a handle on one running child and its process group.
type Process struct {
	cmd   *exec.Cmd
	grace time.Duration

	mu        sync.Mutex
	reaped    bool
	cancelled bool
	timedOut  bool
	done      chan struct{}
}

// startProcess starts cmd in its own process group.
func startProcess(cmd *exec.Cmd, grace time.Duration) (*Process, error) {
	setSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Process{cmd: cmd, grace: grace, done: make(chan struct{})}, nil
}

// PID returns the child's process ID, which is also its process group ID.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Wait reaps the child. Call it once, after stdout has been drained.
func (p *Process) Wait() error {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.reaped = true
	p.mu.Unlock()
	close(p.done)
	return err
}

// Cancel terminates the process group, escalating to a forced kill if the
// child has not been reaped within the grace period. It reports whether a
// signal was sent: cancelling a reaped or already cancelled child is a no-op.
func (p *Process) Cancel() bool {
	return p.stop(false)
}

// Expire is Cancel on behalf of the watchdog. When it succeeds, TimedOut
// reports true.
func (p *Process) Expire() bool {
	return p.stop(true)
}

// TimedOut reports whether the child was stopped by Expire.
func (p *Process) TimedOut() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timedOut
}

func (p *Process) stop(timeout bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reaped || p.cancelled {
		return false
	}
	p.cancelled = true
	p.timedOut = timeout
	pid := p.PID()
	_ = terminateGroup(pid)

	go func() {
		timer := time.NewTimer(p.grace)
		defer timer.Stop()
		select {
		case <-p.done:
		case <-timer.C:
			_ = killGroup(pid)
		}
	}()
	return true
}

// cappedBuffer keeps the first max bytes written and drops the rest, so a
// noisy child cannot grow it without bound.
type cappedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
