//go:build linux

package notify

import (
	"context"
	"fmt"
	"os/exec"
)

type linuxNotifier struct{}

func newPlatformNotifier() Notifier {
	return &linuxNotifier{}
}

func (l *linuxNotifier) Send(ctx context.Context, n Notification) error {
	path, err := exec.LookPath("notify-send")
	if err != nil {
		return fmt.Errorf("notify-send not found")
	}
	args := []string{"--app-name=taskrelay", n.Headline(), n.Title}
	if n.Event == EventFailed {
		args = append(args, "--urgency=critical")
	}
	return exec.CommandContext(ctx, path, args...).Run()
}

func (l *linuxNotifier) Name() string { return "desktop" }
