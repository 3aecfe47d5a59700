package firefly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/models"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
)

var _ interfaces.FireflyAPI = (*Client)(nil)

// fetchAbout returns the server description, cached on the client.
func (c *Client) fetchAbout(ctx context.Context) (*models.About, error) {
	c.mu.Lock()
	cached := c.about
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	body, err := c.get(ctx, "/about", nil)
	if err != nil {
		return nil, err
	}
	data, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	var raw aboutData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	about := &models.About{
		Version:    raw.Version.String(),
		APIVersion: raw.APIVersion.String(),
		OS:         raw.OS.String(),
	}
	c.mu.Lock()
	c.about = about
	c.mu.Unlock()
	return about, nil
}

// CheckConnection verifies the server is reachable with the configured
// token. It returns ErrAuthentication for a rejected token.
func (c *Client) CheckConnection(ctx context.Context) error {
	about, err := c.fetchAbout(ctx)
	if err != nil {
		return err
	}
	if !about.Connected() {
		return ErrNotConnected
	}
	c.logger.Debug(internal.ComponentFirefly, "Connected to Firefly III %s (API %s)", about.Version, about.APIVersion)
	return nil
}

// About returns a view holding the server description.
func (c *Client) About(ctx context.Context) (*models.Aggregate, error) {
	view := models.NewView(models.TypeAbout)
	about, err := c.fetchAbout(ctx)
	if err != nil {
		return view, c.degrade(ctx, "about", err)
	}
	return view, view.Insert(about)
}

// DefaultCurrency returns the server's default currency, cached on the client.
func (c *Client) DefaultCurrency(ctx context.Context) (models.Currency, error) {
	c.mu.Lock()
	cached := c.defaultCurrency
	c.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	body, err := c.get(ctx, "/currencies/default", nil)
	if err != nil {
		return models.EmptyCurrency(), err
	}
	res, err := decodeSingleResource[currencyAttributes](body)
	if err != nil {
		return models.EmptyCurrency(), err
	}

	cur := currencyFromResource(res)
	c.mu.Lock()
	c.defaultCurrency = &cur
	c.mu.Unlock()
	return cur, nil
}

// FiscalYearStart returns the configured fiscal year start as YYYY-MM-DD
// in the current year. An unset preference yields "".
func (c *Client) FiscalYearStart(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.fiscalYearStart
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	body, err := c.get(ctx, "/preferences/fiscalYearStart", nil)
	if err != nil {
		var ce *interfaces.ClientError
		if errors.As(err, &ce) && ce.Type == interfaces.ErrorTypeNotFound {
			return "", nil
		}
		return "", err
	}
	res, err := decodeSingleResource[preferenceAttributes](body)
	if err != nil {
		return "", err
	}

	monthDay := strings.TrimSpace(res.Attributes.Data.String())
	if monthDay == "" {
		return "", nil
	}
	start := fmt.Sprintf("%04d-%s", c.now().Year(), monthDay)
	if _, ok := parseTime(start); !ok {
		return "", fmt.Errorf("%w: fiscal year start %q", ErrMalformedResponse, monthDay)
	}

	c.mu.Lock()
	c.fiscalYearStart = start
	c.mu.Unlock()
	return start, nil
}

// Preferences returns a view holding the default currency and fiscal
// year start. Missing parts are left zero-valued.
func (c *Client) Preferences(ctx context.Context) (*models.Aggregate, error) {
	view := models.NewView(models.TypePreferences)
	prefs := &models.Preferences{DefaultCurrency: models.EmptyCurrency()}

	cur, err := c.DefaultCurrency(ctx)
	if err != nil {
		if derr := c.degrade(ctx, "default currency", err); derr != nil {
			return view, derr
		}
	} else {
		prefs.DefaultCurrency = cur
	}

	start, err := c.FiscalYearStart(ctx)
	if err != nil {
		if derr := c.degrade(ctx, "fiscal year start", err); derr != nil {
			return view, derr
		}
	} else {
		prefs.FiscalYearStart = start
	}

	return view, view.Insert(prefs)
}

func currencyFromResource(res resource[currencyAttributes]) models.Currency {
	attrs := res.Attributes
	cur := models.Currency{
		ID:            res.ID.String(),
		Name:          attrs.Name.String(),
		Code:          attrs.Code.String(),
		Symbol:        attrs.Symbol.String(),
		Enabled:       bool(attrs.Enabled),
		Default:       bool(attrs.Default),
		DecimalPlaces: models.DefaultDecimalPlaces,
	}
	if attrs.DecimalPlaces.Valid {
		cur.DecimalPlaces = attrs.DecimalPlaces.Value
	}
	return cur
}

// targetCurrency resolves an explicit currency code or falls back to the
// server default. An unknown default degrades to EmptyCurrency.
func (c *Client) targetCurrency(ctx context.Context, code string) (models.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	def, err := c.DefaultCurrency(ctx)
	if err != nil {
		if derr := c.degrade(ctx, "default currency", err); derr != nil {
			return models.EmptyCurrency(), derr
		}
		def = models.EmptyCurrency()
	}
	if code == "" || code == def.Code {
		return def, nil
	}
	return models.Currency{Code: code, DecimalPlaces: models.DefaultDecimalPlaces, Enabled: true}, nil
}
