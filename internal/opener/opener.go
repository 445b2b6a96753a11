// Package opener launches route URLs outside the editor, either in the
// system browser or through a user-configured command.
package opener

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/GriffinCanCode/AgentOS/webview/internal/infrastructure/resilience"
)

// ErrUnsupportedPlatform is returned when no default browser launcher is
// known for the running OS and no command is configured.
var ErrUnsupportedPlatform = errors.New("opener: no browser launcher for this platform")

// Runner starts a command without waiting for it to finish.
type Runner func(name string, args ...string) error

// Opener opens URLs externally. Repeated launch failures, typical of a
// headless machine, open a breaker so later calls fail fast with
// resilience.ErrCircuitOpen.
type Opener struct {
	command []string
	goos    string
	run     Runner
	breaker *resilience.Breaker
}

// New creates an opener. An empty command selects the platform default
// (open, xdg-open or start). A configured command may contain a {url}
// placeholder; otherwise the URL is appended as the last argument.
func New(command string) *Opener {
	return &Opener{
		command: strings.Fields(command),
		goos:    runtime.GOOS,
		run:     start,
		breaker: resilience.New("opener", resilience.Settings{
			Threshold: 3,
			Cooldown:  30 * time.Second,
		}),
	}
}

// WithBreaker replaces the launch breaker.
func (o *Opener) WithBreaker(b *resilience.Breaker) *Opener {
	o.breaker = b
	return o
}

// WithRunner replaces the process launcher, for tests.
func (o *Opener) WithRunner(run Runner) *Opener {
	o.run = run
	return o
}

// WithGOOS overrides the detected platform, for tests.
func (o *Opener) WithGOOS(goos string) *Opener {
	o.goos = goos
	return o
}

// Open launches url.
func (o *Opener) Open(url string) error {
	name, args, err := o.resolve(url)
	if err != nil {
		return err
	}
	err = o.breaker.Do(func() error {
		return o.run(name, args...)
	})
	if err != nil {
		return fmt.Errorf("opener: launch %s: %w", name, err)
	}
	return nil
}

func (o *Opener) resolve(url string) (string, []string, error) {
	if len(o.command) > 0 {
		args := make([]string, 0, len(o.command))
		substituted := false
		for _, arg := range o.command[1:] {
			if strings.Contains(arg, "{url}") {
				arg = strings.ReplaceAll(arg, "{url}", url)
				substituted = true
			}
			args = append(args, arg)
		}
		if !substituted {
			args = append(args, url)
		}
		return o.command[0], args, nil
	}

	switch o.goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, ErrUnsupportedPlatform
	}
}

func start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// reap the launcher so it does not linger as a zombie
	go cmd.Wait()
	return nil
}
