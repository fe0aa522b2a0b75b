package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// AutocompleteItem is one suggestion from the VOE autocomplete endpoints.
type AutocompleteItem struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Cities queries the city autocomplete.
func (c *Client) Cities(ctx context.Context, query string) ([]AutocompleteItem, error) {
	return c.autocomplete(ctx, "/autocomplete/read_city", query)
}

// Streets queries the street autocomplete for a city.
func (c *Client) Streets(ctx context.Context, cityID int64, query string) ([]AutocompleteItem, error) {
	return c.autocomplete(ctx, fmt.Sprintf("/autocomplete/read_street/%d", cityID), query)
}

// Houses queries the house autocomplete for a street.
func (c *Client) Houses(ctx context.Context, streetID int64, query string) ([]AutocompleteItem, error) {
	return c.autocomplete(ctx, fmt.Sprintf("/autocomplete/read_house/%d", streetID), query)
}

func (c *Client) autocomplete(ctx context.Context, path, query string) ([]AutocompleteItem, error) {
	params := url.Values{"q": {query}}
	raw, err := c.Fetch(ctx, path, params, nil, http.MethodGet)
	if err != nil {
		return nil, err
	}

	var items []AutocompleteItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode autocomplete response: %w", err)
	}
	return items, nil
}

// ajaxCommand is one element of the Drupal AJAX command array returned by
// the detailed-disconnection form.
type ajaxCommand struct {
	Command string `json:"command"`
	Data    string `json:"data"`
}

// Schedule fetches the raw schedule markup for an address. The endpoint
// answers with an AJAX command array; the schedule table travels in an
// "insert" command's data field.
func (c *Client) Schedule(ctx context.Context, cityID, streetID, houseID int64) (string, error) {
	params := url.Values{
		"search_type": {"0"},
		"city_id":     {strconv.FormatInt(cityID, 10)},
		"street_id":   {strconv.FormatInt(streetID, 10)},
		"house_id":    {strconv.FormatInt(houseID, 10)},
		"ajax_form":   {"1"},
	}
	form := url.Values{
		"search_type": {"0"},
		"city_id":     {strconv.FormatInt(cityID, 10)},
		"street_id":   {strconv.FormatInt(streetID, 10)},
		"house_id":    {strconv.FormatInt(houseID, 10)},
		"form_id":     {"disconnection_detailed_search_form"},
	}

	raw, err := c.Fetch(ctx, "/disconnection/detailed", params, form, http.MethodPost)
	if err != nil {
		return "", err
	}

	var commands []ajaxCommand
	if err := json.Unmarshal(raw, &commands); err != nil {
		return "", fmt.Errorf("decode schedule response: %w", err)
	}

	// Several insert commands may be present; the schedule fragment is the
	// one carrying the detailed table.
	var fallback string
	for _, cmd := range commands {
		if cmd.Command != "insert" || cmd.Data == "" {
			continue
		}
		if strings.Contains(cmd.Data, "disconnection-detailed-table") {
			return cmd.Data, nil
		}
		fallback = cmd.Data
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("schedule response has no insert command with data")
}
