package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/domain/services"
)

// describe turns pipeline failures into messages fit for a terminal
func describe(err error) error {
	var re *services.ResponseError
	if errors.As(err, &re) {
		return withRequestID(re.Message, re.RequestID)
	}
	if errors.Is(err, services.ErrInvalidInput) {
		return err
	}

	apiErr, ok := client.AsAPIError(err)
	if !ok {
		return err
	}
	msg := apiErr.Detail
	for field, problems := range apiErr.Fields {
		for _, p := range problems {
			msg += fmt.Sprintf("\n  %s: %s", field, p)
		}
	}
	if apiErr.StatusCode == 401 {
		msg += "\nPlease run 'salesdesk auth login'"
	}
	return fmt.Errorf("%s (status %d)", msg, apiErr.StatusCode)
}

func withRequestID(msg, requestID string) error {
	if requestID == "" {
		return errors.New(msg)
	}
	return fmt.Errorf("%s (request %s)", msg, requestID)
}

// newTable returns a tabwriter with the CLI's column layout
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
