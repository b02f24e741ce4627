package footballdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.football-data.org/v4"
	dateLayout     = "2006-01-02"
)

// ErrRateLimited is returned on HTTP 429 so callers can back off.
var ErrRateLimited = errors.New("football-data rate limited")

// Client for the football-data.org v4 API (fixtures, single match, standings).
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient returns a client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Batch is the result of a fixture listing: accepted fixtures plus the records that
// failed validation. Rejected records never reach the probability engine.
type Batch struct {
	Fixtures    []Fixture
	Quarantined []error
}

// Fixtures returns matches with kickoff dates in [from, to] for the given competitions
// (all subscribed competitions when empty).
func (c *Client) Fixtures(ctx context.Context, from, to time.Time, competitions []string) (*Batch, error) {
	q := url.Values{}
	q.Set("dateFrom", from.UTC().Format(dateLayout))
	q.Set("dateTo", to.UTC().Format(dateLayout))
	if len(competitions) > 0 {
		q.Set("competitions", strings.Join(competitions, ","))
	}
	var out struct {
		Matches []json.RawMessage `json:"matches"`
	}
	if err := c.get(ctx, "/matches?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	b := &Batch{Fixtures: make([]Fixture, 0, len(out.Matches))}
	for _, raw := range out.Matches {
		var m rawMatch
		if err := json.Unmarshal(raw, &m); err != nil {
			b.Quarantined = append(b.Quarantined, fmt.Errorf("%w: %v", ErrInvalidFixture, err))
			continue
		}
		f, err := m.validate()
		if err != nil {
			b.Quarantined = append(b.Quarantined, err)
			continue
		}
		b.Fixtures = append(b.Fixtures, f)
	}
	if len(b.Quarantined) > 0 {
		slog.Warn("footballdata: quarantined fixtures", "count", len(b.Quarantined), "first", b.Quarantined[0])
	}
	return b, nil
}

// Fixture fetches a single match by id.
func (c *Client) Fixture(ctx context.Context, id int64) (*Fixture, error) {
	var m rawMatch
	if err := c.get(ctx, "/matches/"+strconv.FormatInt(id, 10), &m); err != nil {
		return nil, err
	}
	f, err := m.validate()
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Standings fetches the TOTAL, HOME and AWAY tables for a competition code (e.g. "PL").
func (c *Client) Standings(ctx context.Context, competition string) (*Standings, error) {
	var raw struct {
		Standings []struct {
			Type  string `json:"type"`
			Table []struct {
				Team struct {
					ID        int64  `json:"id"`
					Name      string `json:"name"`
					ShortName string `json:"shortName"`
				} `json:"team"`
				PlayedGames  int     `json:"playedGames"`
				Form         *string `json:"form"`
				Won          int     `json:"won"`
				Draw         int     `json:"draw"`
				Lost         int     `json:"lost"`
				Points       int     `json:"points"`
				GoalsFor     int     `json:"goalsFor"`
				GoalsAgainst int     `json:"goalsAgainst"`
			} `json:"table"`
		} `json:"standings"`
	}
	if err := c.get(ctx, "/competitions/"+url.PathEscape(competition)+"/standings", &raw); err != nil {
		return nil, err
	}
	out := &Standings{Competition: competition}
	for _, s := range raw.Standings {
		rows := make([]StandingRow, 0, len(s.Table))
		for _, r := range s.Table {
			if r.Team.ID == 0 {
				continue
			}
			name := r.Team.ShortName
			if name == "" {
				name = r.Team.Name
			}
			row := StandingRow{
				TeamID:       r.Team.ID,
				TeamName:     name,
				PlayedGames:  r.PlayedGames,
				Won:          r.Won,
				Draw:         r.Draw,
				Lost:         r.Lost,
				Points:       r.Points,
				GoalsFor:     r.GoalsFor,
				GoalsAgainst: r.GoalsAgainst,
			}
			if r.Form != nil {
				row.Form = *r.Form
			}
			rows = append(rows, row)
		}
		switch strings.ToUpper(s.Type) {
		case "TOTAL":
			out.Total = rows
		case "HOME":
			out.Home = rows
		case "AWAY":
			out.Away = rows
		}
	}
	if len(out.Total) == 0 {
		return nil, fmt.Errorf("standings %s: no total table", competition)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "footpicks/1.0")
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("football-data %s status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
