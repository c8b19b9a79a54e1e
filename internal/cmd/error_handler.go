package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vkcli/vk-cli/internal/api"
	"github.com/vkcli/vk-cli/internal/config"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder

	var apiErr *api.APIError
	var transportErr *api.TransportError
	var protoErr *api.ProtocolError
	var valErr *api.ValidationError

	switch {
	case errors.Is(err, config.ErrNotConfigured), errors.Is(err, config.ErrTokenExpired):
		fmt.Fprintf(&msg, "Error: %s\n\n", err)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: vk auth login\n")
		msg.WriteString("  - Or pass --token / set VK_ACCESS_TOKEN\n")

	case errors.As(err, &apiErr):
		fmt.Fprintf(&msg, "API error %d: %s\n\n", apiErr.Code, apiErr.Message)
		if c, ok := apiErr.Captcha(); ok {
			fmt.Fprintf(&msg, "Captcha image: %s\n\n", c.ImageURL)
		}
		msg.WriteString(suggestionsForVKCode(apiErr))

	case errors.As(err, &transportErr):
		fmt.Fprintf(&msg, "Network error: %s\n\n", transportErr)
		msg.WriteString("Suggestions:\n")
		switch transportErr.Kind {
		case api.TransportTimeout:
			msg.WriteString("  - Increase --timeout\n")
		case api.TransportDNS:
			msg.WriteString("  - Check your DNS settings and VK_API_BASE_URL\n")
		case api.TransportTLS, api.TransportSocket:
			msg.WriteString("  - Retry, or raise --retries\n")
		}
		msg.WriteString("  - Check your network connection\n")

	case errors.As(err, &protoErr):
		fmt.Fprintf(&msg, "Unexpected response: %s\n\n", protoErr)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Server error - not your fault\n")
		msg.WriteString("  - Use --debug to see the request\n")

	case errors.As(err, &valErr):
		fmt.Fprintf(&msg, "Error: %s\n", valErr)

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForVKCode(apiErr *api.APIError) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	switch api.ErrorCodeFromVK(apiErr.Code) {
	case api.ErrUnauthorized:
		suggestions.WriteString("  - Your access token may be invalid or expired\n")
		suggestions.WriteString("  - Run: vk auth login\n")
	case api.ErrForbidden:
		suggestions.WriteString("  - The token lacks a required scope, or the object is private\n")
		suggestions.WriteString("  - Check granted scopes: vk users settings\n")
	case api.ErrRateLimited:
		suggestions.WriteString("  - Too many requests\n")
		suggestions.WriteString("  - Slow down with --rps 3\n")
	case api.ErrCaptcha:
		suggestions.WriteString("  - Rerun in a terminal without --no-input to answer the captcha\n")
	case api.ErrValidationRequired:
		suggestions.WriteString("  - Confirm the account in a browser, then retry\n")
	case api.ErrInvalidParam:
		suggestions.WriteString("  - Check your arguments\n")
		suggestions.WriteString("  - Use --dry-run to see the request\n")
	case api.ErrServerError:
		suggestions.WriteString("  - Server error - not your fault\n")
		suggestions.WriteString("  - Wait and retry\n")
	default:
		suggestions.WriteString("  - Use --debug for more details\n")
	}

	return suggestions.String()
}
