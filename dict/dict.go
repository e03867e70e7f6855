// Package dict provides a dictionary lookup client using Free Dictionary API.
// It backs the define-word action when no external dictionary command is
// configured.
package dict

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultAPIURL = "https://api.dictionaryapi.dev/api/v2/entries/en/"
	timeout       = 10 * time.Second
)

// Definition is one sense of a word.
type Definition struct {
	PartOfSpeech string
	Definition   string
	Example      string
}

// Entry is a dictionary entry for a word.
type Entry struct {
	Word        string
	Phonetic    string
	Definitions []Definition
}

type apiMeaning struct {
	PartOfSpeech string `json:"partOfSpeech"`
	Definitions  []struct {
		Definition string `json:"definition"`
		Example    string `json:"example"`
	} `json:"definitions"`
}

type apiResponse struct {
	Word     string       `json:"word"`
	Phonetic string       `json:"phonetic"`
	Meanings []apiMeaning `json:"meanings"`
}

// Client is a dictionary API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new dictionary client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultAPIURL,
	}
}

// Define looks up a word. A missing word yields no entries and no error.
func (c *Client) Define(ctx context.Context, word string) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(word), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching definition: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dictionary API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var responses []apiResponse
	if err := json.Unmarshal(body, &responses); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	entries := make([]Entry, 0, len(responses))
	for _, r := range responses {
		entry := Entry{Word: r.Word, Phonetic: r.Phonetic}
		for _, m := range r.Meanings {
			for _, d := range m.Definitions {
				entry.Definitions = append(entry.Definitions, Definition{
					PartOfSpeech: m.PartOfSpeech,
					Definition:   d.Definition,
					Example:      d.Example,
				})
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Format renders entries as display lines for a text overlay.
func Format(entries []Entry) []string {
	var lines []string
	for _, e := range entries {
		head := e.Word
		if e.Phonetic != "" {
			head += "  " + e.Phonetic
		}
		lines = append(lines, head, "")
		for i, d := range e.Definitions {
			lines = append(lines, fmt.Sprintf("%d. (%s) %s", i+1, d.PartOfSpeech, d.Definition))
			if d.Example != "" {
				lines = append(lines, "   e.g. "+d.Example)
			}
			lines = append(lines, "")
		}
	}
	return lines
}
