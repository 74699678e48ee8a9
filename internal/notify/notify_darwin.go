//go:build darwin

package notify

import (
	"context"
	"fmt"
	"os/exec"
)

type darwinNotifier struct{}

func newPlatformNotifier() Notifier {
	return &darwinNotifier{}
}

func (d *darwinNotifier) Send(ctx context.Context, n Notification) error {
	script := fmt.Sprintf(`display notification %q with title %q`, n.Title, n.Headline())
	if n.Event == EventFailed {
		script += ` sound name "Basso"`
	}
	return exec.CommandContext(ctx, "osascript", "-e", script).Run()
}

func (d *darwinNotifier) Name() string { return "desktop" }
