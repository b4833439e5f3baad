// Package paylink builds pay-me links for the payment apps hosts use to
// collect real-money square fees outside the bot.
package paylink

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidHandle = errors.New("invalid payment handle")
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Provider is a supported payment app.
type Provider string

const (
	ProviderVenmo   Provider = "venmo"
	ProviderCashApp Provider = "cashapp"
	ProviderPayPal  Provider = "paypal"
)

var (
	venmoHandle    = regexp.MustCompile(`^[A-Za-z0-9_-]{5,30}$`)
	cashtag        = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,19}$`)
	paypalMeHandle = regexp.MustCompile(`^[A-Za-z0-9]{1,20}$`)
)

func amountString(amount decimal.Decimal) (string, error) {
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	return amount.StringFixedBank(2), nil
}

// Venmo returns a venmo.com pay link. The handle may carry a leading "@".
func Venmo(handle string, amount decimal.Decimal, note string) (string, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if !venmoHandle.MatchString(handle) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	amt, err := amountString(amount)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("txn", "pay")
	q.Set("amount", amt)
	if note != "" {
		q.Set("note", note)
	}
	u := url.URL{Scheme: "https", Host: "venmo.com", Path: "/" + handle, RawQuery: q.Encode()}
	return u.String(), nil
}

// CashApp returns a cash.app link. The cashtag may carry a leading "$".
func CashApp(handle string, amount decimal.Decimal) (string, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "$")
	if !cashtag.MatchString(handle) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	amt, err := amountString(amount)
	if err != nil {
		return "", err
	}
	return "https://cash.app/$" + handle + "/" + amt, nil
}

// PayPal returns a paypal.me link.
func PayPal(handle string, amount decimal.Decimal) (string, error) {
	handle = strings.TrimSpace(handle)
	if !paypalMeHandle.MatchString(handle) {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	amt, err := amountString(amount)
	if err != nil {
		return "", err
	}
	return "https://paypal.me/" + handle + "/" + amt + "USD", nil
}

// Link is one rendered pay link.
type Link struct {
	Provider Provider
	URL      string
}

// Handles are a host's accounts. Empty fields are skipped.
type Handles struct {
	Venmo   string
	CashApp string
	PayPal  string
}

// Build returns a link for every configured handle, in a fixed order.
// An invalid configured handle is an error.
func Build(h Handles, amount decimal.Decimal, note string) ([]Link, error) {
	var links []Link
	if h.Venmo != "" {
		u, err := Venmo(h.Venmo, amount, note)
		if err != nil {
			return nil, fmt.Errorf("venmo: %w", err)
		}
		links = append(links, Link{Provider: ProviderVenmo, URL: u})
	}
	if h.CashApp != "" {
		u, err := CashApp(h.CashApp, amount)
		if err != nil {
			return nil, fmt.Errorf("cashapp: %w", err)
		}
		links = append(links, Link{Provider: ProviderCashApp, URL: u})
	}
	if h.PayPal != "" {
		u, err := PayPal(h.PayPal, amount)
		if err != nil {
			return nil, fmt.Errorf("paypal: %w", err)
		}
		links = append(links, Link{Provider: ProviderPayPal, URL: u})
	}
	return links, nil
}
