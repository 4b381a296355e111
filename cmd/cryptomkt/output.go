package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/signalalpha/cryptomkt-go/pkg/cryptomkt"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type printer struct {
	w      io.Writer
	format string
}

// print writes data in the selected format. YAML goes through JSON first
// so the json tags and custom marshalers of the models apply.
func (p *printer) print(data interface{}) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	if p.format != formatYAML {
		_, err = fmt.Fprintln(p.w, string(raw))
		return err
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to convert output: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = p.w.Write(out)
	return err
}

var statusStyles = map[cryptomkt.StatusColor]lipgloss.Style{
	cryptomkt.StatusColorDanger:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	cryptomkt.StatusColorInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	cryptomkt.StatusColorWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	cryptomkt.StatusColorSuccess: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
}

// statusLine renders the status of a payment order for the terminal.
func statusLine(order *cryptomkt.PaymentOrder) string {
	status, err := order.Status()
	if err != nil {
		return "status: unknown"
	}

	text := fmt.Sprintf("status: %d (%s)", int(status), status)
	color, err := status.Color()
	if err != nil {
		return text
	}
	return statusStyles[color].Render(text)
}

// printPayment writes a payment order followed by its coloured status and
// expiry time.
func (p *printer) printPayment(order *cryptomkt.PaymentOrder) error {
	if err := p.print(order); err != nil {
		return err
	}

	fmt.Fprintln(p.w, statusLine(order))
	if expire, err := order.ExpireTime(); err == nil {
		fmt.Fprintf(p.w, "expires: %s\n", expire.Format(cryptomkt.ExpireTimeLayout))
	}
	return nil
}
