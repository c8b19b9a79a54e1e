package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/dryrun"
	"github.com/vkcli/vk-cli/internal/iocontext"
	"github.com/vkcli/vk-cli/internal/outfmt"
	"github.com/vkcli/vk-cli/internal/validation"
)

var errNoInput = errors.New("interactive input disabled")

// stdinIsTerminal is replaceable in tests.
var stdinIsTerminal = func(s *iocontext.IO) bool { return s.InIsTerminal() }

// canPrompt reports whether the command may ask the user for input.
func canPrompt(cmd *cobra.Command) bool {
	return !flags.NoInput && stdinIsTerminal(iocontext.GetIO(cmd.Context()))
}

// runAPI resolves a client and runs fn with it. When fn fails with a captcha
// error and the user can answer, fn runs once more with the answer attached.
// In dry-run mode fn runs against a recording transport and the recorded
// requests are printed instead.
func runAPI(cmd *cobra.Command, fn func(ctx context.Context, c *api.Client) error) error {
	ctx := cmd.Context()
	factory := newClientFactory()

	if dryrun.IsEnabled(ctx) {
		t := &previewTransport{}
		client, err := factory.preview(t)
		if err != nil {
			return err
		}
		if err := fn(ctx, client); err != nil && !errors.Is(err, errDryRun) {
			return err
		}
		return writePreview(cmd, t.preview(cmd.CommandPath()))
	}

	client, err := factory.client()
	if err != nil {
		return err
	}
	err = fn(ctx, client)
	captcha, ok := api.CaptchaFromError(err)
	if !ok {
		return err
	}

	key, promptErr := answerCaptcha(cmd, captcha)
	if errors.Is(promptErr, errNoInput) {
		return err
	}
	if promptErr != nil {
		return promptErr
	}
	slog.Debug("retrying with captcha answer", "captcha_sid", captcha.SID)
	return fn(api.WithCaptchaAnswer(ctx, captcha.SID, key), client)
}

func answerCaptcha(cmd *cobra.Command, c api.Captcha) (string, error) {
	if !canPrompt(cmd) {
		return "", errNoInput
	}
	ioStreams := iocontext.GetIO(cmd.Context())
	_, _ = fmt.Fprintf(ioStreams.ErrOut, "vk asks for a captcha. Open this image:\n  %s\n", c.ImageURL)
	key, err := ioStreams.Prompt("Captcha text: ")
	if err != nil {
		return "", fmt.Errorf("failed to read captcha answer: %w", err)
	}
	if err := validation.ValidateCaptchaKey(key); err != nil {
		return "", err
	}
	return key, nil
}

func writePreview(cmd *cobra.Command, p *dryrun.Preview) error {
	if outfmt.IsStructured(cmd.Context()) {
		return newFormatter(cmd).Output(map[string]any{
			"dry_run":  true,
			"command":  p.Command,
			"requests": p.Requests,
			"warnings": p.Warnings,
		})
	}
	p.Write(iocontext.GetIO(cmd.Context()).Out)
	return nil
}
