package approval

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tcnksm/go-input"
)

var ErrNotInteractive = errors.New("approval prompt needs an interactive terminal")

// PromptGate asks a human on the terminal. Concurrent runs share one terminal,
// so questions are asked one at a time and each answer belongs to the
// question shown right before it.
type PromptGate struct {
	mu sync.Mutex

	// Reader and Writer default to the controlling terminal.
	Reader io.Reader
	Writer io.Writer
	// Default is the answer used on an empty line ("y" or "n").
	Default string
}

var _ Gate = (*PromptGate)(nil)

func NewTerminalPromptGate(defaultAnswer string) *PromptGate {
	return &PromptGate{Default: defaultAnswer}
}

func (g *PromptGate) Decide(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// the run may have been cancelled while another question was open
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r, w := g.Reader, g.Writer
	if r == nil || w == nil {
		fd := os.Stdin.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			return false, ErrNotInteractive
		}
		tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
		if err != nil {
			return false, errors.Wrap(ErrNotInteractive, err.Error())
		}
		defer func() {
			if err := tty.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close tty")
			}
		}()
		if r == nil {
			r = tty
		}
		if w == nil {
			w = tty
		}
	}

	ui := &input.UI{
		Writer: w,
		Reader: r,
	}

	query := "\nContinue with extraction and confirmation? [y/n]"
	if strings.TrimSpace(message) != "" {
		query = "\n" + message + " [y/n]"
	}
	def := strings.ToLower(strings.TrimSpace(g.Default))
	if def != "y" && def != "n" {
		def = ""
	}

	answer, err := ui.Ask(query, &input.Options{
		Default:  def,
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N", "yes", "no":
				return nil
			default:
				return fmt.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "read approval")
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
