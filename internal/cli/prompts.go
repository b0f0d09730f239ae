package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/stockdesk/internal/report"
)

// PromptForTicker prompts the user to enter a stock ticker symbol
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., AAPL, MSFT, TSLA):",
		Help:    "The report is generated by an agent dedicated to this symbol",
	}

	err := survey.AskOne(prompt, &ticker, survey.WithValidator(validateTicker))
	if err != nil {
		return "", err
	}

	return report.DisplaySymbol(ticker), nil
}

func validateTicker(val interface{}) error {
	str, ok := val.(string)
	if !ok {
		return fmt.Errorf("ticker symbol must be text")
	}
	if strings.TrimSpace(str) == "" {
		return fmt.Errorf("ticker symbol cannot be empty")
	}
	if err := report.ValidateSymbol(str); err != nil {
		return fmt.Errorf("invalid ticker format (use letters, numbers, dots, carets, equals and hyphens only)")
	}
	return nil
}

// ConfirmOverwrite asks before replacing an existing file
func ConfirmOverwrite(path string) (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("%s already exists. Overwrite it?", path),
		Default: false,
	}

	err := survey.AskOne(prompt, &confirmed)
	return confirmed, err
}
