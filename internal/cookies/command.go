package cookies

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// CommandRegenerator shells out to an external tool (typically a
// headless-browser login script) that writes a Netscape cookie file.
// The platform and target path are passed through the environment as
// SNAPGRAB_PLATFORM and SNAPGRAB_COOKIE_PATH.
type CommandRegenerator struct {
	Command string
}

func (c CommandRegenerator) Regenerate(ctx context.Context, platform, path string) error {
	if c.Command == "" {
		return ErrNoRegenerator
	}
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", c.Command)
	cmd.Env = append(os.Environ(),
		"SNAPGRAB_PLATFORM="+platform,
		"SNAPGRAB_COOKIE_PATH="+path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("cookies: regen command for %s: %w: %s",
			platform, err, bytes.TrimSpace(out))
	}
	return nil
}
