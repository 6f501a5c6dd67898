// Package hierarchy defines the country/league/team tree shared across subsystems.
package hierarchy

import "sort"

// LeagueStatus represents how far a league's team extraction has progressed.
type LeagueStatus string

// League status values persisted in the checkpoint.
const (
	// StatusPending marks a league whose teams have not been extracted yet,
	// or whose extraction has only ever failed. Pending leagues are retried
	// on the next run.
	StatusPending LeagueStatus = "pending"
	// StatusComplete marks a league with at least one real team extracted.
	StatusComplete LeagueStatus = "complete"
	// StatusConfirmedEmpty marks a league that rendered without a standings
	// table, i.e. a cup or knockout competition. It carries a sentinel team
	// record and is not retried.
	StatusConfirmedEmpty LeagueStatus = "confirmed_empty"
)

// SentinelTeamID is the team id used for the placeholder record stored in a
// confirmed-empty cup competition.
const SentinelTeamID = "isCup"

// Team is a single club extracted from a league's standings page.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SentinelTeam builds the placeholder record for a standings-less competition.
func SentinelTeam(leagueName, leagueURL string) Team {
	return Team{ID: SentinelTeamID, Name: leagueName, URL: leagueURL}
}

// League is a competition belonging to exactly one country. Teams are keyed
// by the team's stable id so a team appearing twice on one page collapses to
// a single entry.
type League struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	URL    string          `json:"url"`
	IsCup  bool            `json:"is_cup,omitempty"`
	Status LeagueStatus    `json:"status"`
	Teams  map[string]Team `json:"teams"`
}

// Done reports whether the league needs no further fetching.
func (l *League) Done() bool {
	return l.Status == StatusComplete || l.Status == StatusConfirmedEmpty
}

// TeamCount returns the number of real (non-sentinel) teams.
func (l *League) TeamCount() int {
	n := len(l.Teams)
	if _, ok := l.Teams[SentinelTeamID]; ok {
		n--
	}
	return n
}

// Country is a root-level entry keyed into the snapshot by its stable id.
type Country struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	URL     string             `json:"url"`
	Leagues map[string]*League `json:"leagues"`
}

// League returns the league with the given id, or nil.
func (c *Country) League(id string) *League {
	if c.Leagues == nil {
		return nil
	}
	return c.Leagues[id]
}

// PutLeague stores a league record, replacing any previous entry with the
// same id.
func (c *Country) PutLeague(l *League) {
	if c.Leagues == nil {
		c.Leagues = map[string]*League{}
	}
	c.Leagues[l.ID] = l
}

// Snapshot is the full tree of discovered countries, leagues and teams. It is
// the single source of truth for the crawl: everything the orchestrator needs
// to resume is reconstructable from it.
type Snapshot struct {
	Countries map[string]*Country `json:"countries"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Countries: map[string]*Country{}}
}

// EnsureCountry returns the existing entry for id, creating one if absent.
// Existing entries are never reset; that is what makes the crawl resumable
// instead of restart-from-scratch.
func (s *Snapshot) EnsureCountry(id, name, url string) *Country {
	if s.Countries == nil {
		s.Countries = map[string]*Country{}
	}
	if c, ok := s.Countries[id]; ok {
		return c
	}
	c := &Country{ID: id, Name: name, URL: url, Leagues: map[string]*League{}}
	s.Countries[id] = c
	return c
}

// Totals summarizes the snapshot for logging and the status endpoint.
type Totals struct {
	Countries       int `json:"countries"`
	Leagues         int `json:"leagues"`
	CompleteLeagues int `json:"complete_leagues"`
	ConfirmedEmpty  int `json:"confirmed_empty_leagues"`
	PendingLeagues  int `json:"pending_leagues"`
	Teams           int `json:"teams"`
}

// Totals walks the tree and counts entries per status.
func (s *Snapshot) Totals() Totals {
	t := Totals{Countries: len(s.Countries)}
	for _, c := range s.Countries {
		for _, l := range c.Leagues {
			t.Leagues++
			switch l.Status {
			case StatusComplete:
				t.CompleteLeagues++
			case StatusConfirmedEmpty:
				t.ConfirmedEmpty++
			default:
				t.PendingLeagues++
			}
			t.Teams += l.TeamCount()
		}
	}
	return t
}

// IncompleteLeague identifies a league that still needs fetching.
type IncompleteLeague struct {
	Country string `json:"country"`
	League  string `json:"league"`
	URL     string `json:"url"`
}

// Incomplete lists every pending league, sorted for stable output.
func (s *Snapshot) Incomplete() []IncompleteLeague {
	var out []IncompleteLeague
	for _, c := range s.Countries {
		for _, l := range c.Leagues {
			if l.Done() {
				continue
			}
			out = append(out, IncompleteLeague{Country: c.Name, League: l.Name, URL: l.URL})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].League < out[j].League
	})
	return out
}
