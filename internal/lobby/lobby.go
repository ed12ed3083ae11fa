// Package lobby tracks the pre-match roster of a host: membership, teams,
// bots and settings, and hands a seat list to the match when the host
// starts. It holds no simulation state.
package lobby

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"age-of-war/server/internal/world"
)

// MaxPlayers caps the roster, bots included.
const MaxPlayers = 10

var (
	ErrLobbyFull     = errors.New("lobby full")
	ErrNotWaiting    = errors.New("lobby is not accepting changes")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrNotHost       = errors.New("only the host may do that")
	ErrNotEnough     = errors.New("not enough players")
	ErrTeamsUneven   = errors.New("both teams need at least one player")
	ErrInvalidTeam   = errors.New("team must be 1 or 2")
	ErrClosed        = errors.New("lobby closed")
	ErrNotFinished   = errors.New("match has not finished")
	ErrKickHost      = errors.New("the host cannot be kicked")
)

// Status is the lobby lifecycle.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
	StatusClosed   Status = "closed"
)

// Member is one roster entry.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Team  int    `json:"team"`
	Color string `json:"color"`
	Bot   bool   `json:"isBot"`
}

// View is a copy of the lobby safe to serialize.
type View struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	HostID      string         `json:"hostId"`
	Status      Status         `json:"status"`
	Private     bool           `json:"isPrivate"`
	Members     []Member       `json:"players"`
	Settings    world.Settings `json:"settings"`
	CreatedAt   time.Time      `json:"createdAt"`
	WinnerID    string         `json:"winner,omitempty"`
	WinningTeam int            `json:"winnerTeam,omitempty"`
}

// Config describes a lobby.
type Config struct {
	ID       string
	Name     string
	Private  bool
	Settings world.Settings
	Seed     string
	Now      func() time.Time
}

// Lobby is safe for concurrent use.
type Lobby struct {
	mu          sync.Mutex
	id          string
	name        string
	private     bool
	hostID      string
	status      Status
	members     []Member
	settings    world.Settings
	createdAt   time.Time
	winnerID    string
	winningTeam int
	botSeq      int
	rng         *rand.Rand
}

// New returns an empty lobby. The first member to join becomes host.
func New(cfg Config) *Lobby {
	id := cfg.ID
	if id == "" {
		id = ShortCode(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	seed := cfg.Seed
	if seed == "" {
		seed = id
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	name := cfg.Name
	if name == "" {
		name = "Battle " + id
	}
	return &Lobby{
		id:        id,
		name:      name,
		private:   cfg.Private,
		status:    StatusWaiting,
		settings:  cfg.Settings.Normalized(),
		createdAt: now(),
		rng:       world.NewDeterministicRNG(seed, "lobby"),
	}
}

// ShortCode returns a six character upper-case join code.
func ShortCode(r *rand.Rand) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(alphabet[r.Intn(len(alphabet))])
	}
	return b.String()
}

// ID returns the join code.
func (l *Lobby) ID() string { return l.id }

// View copies the current state.
func (l *Lobby) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.viewLocked()
}

func (l *Lobby) viewLocked() View {
	return View{
		ID:          l.id,
		Name:        l.name,
		HostID:      l.hostID,
		Status:      l.status,
		Private:     l.private,
		Members:     append([]Member(nil), l.members...),
		Settings:    l.settings,
		CreatedAt:   l.createdAt,
		WinnerID:    l.winnerID,
		WinningTeam: l.winningTeam,
	}
}

// Join adds a human. Rejoining with a known id is a no-op.
func (l *Lobby) Join(id, name, color string) (View, error) {
	if id == "" {
		return View{}, ErrUnknownPlayer
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == StatusClosed {
		return View{}, ErrClosed
	}
	if l.status != StatusWaiting {
		return View{}, ErrNotWaiting
	}
	if l.indexLocked(id) >= 0 {
		return l.viewLocked(), nil
	}
	if len(l.members) >= MaxPlayers {
		return View{}, ErrLobbyFull
	}
	if name == "" {
		name = fmt.Sprintf("Player %d", len(l.members)+1)
	}
	if color == "" {
		color = l.randomColorLocked()
	}
	l.members = append(l.members, Member{ID: id, Name: name, Team: l.autoTeamLocked(), Color: color})
	if l.hostID == "" {
		l.hostID = id
	}
	return l.viewLocked(), nil
}

// AddBot seats a bot on the smaller team.
func (l *Lobby) AddBot(requester string) (Member, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.hostCheckLocked(requester); err != nil {
		return Member{}, err
	}
	if len(l.members) >= MaxPlayers {
		return Member{}, ErrLobbyFull
	}
	l.botSeq++
	bot := Member{
		ID:    fmt.Sprintf("bot-%d", l.botSeq),
		Name:  fmt.Sprintf("Bot %d", l.botSeq),
		Team:  l.autoTeamLocked(),
		Color: l.randomColorLocked(),
		Bot:   true,
	}
	l.members = append(l.members, bot)
	return bot, nil
}

// Kick removes target. The host cannot kick itself.
func (l *Lobby) Kick(requester, target string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.hostCheckLocked(requester); err != nil {
		return err
	}
	if target == l.hostID {
		return ErrKickHost
	}
	idx := l.indexLocked(target)
	if idx < 0 {
		return ErrUnknownPlayer
	}
	l.members = append(l.members[:idx], l.members[idx+1:]...)
	return nil
}

// SwitchTeam moves target to team. Players may move themselves; the host may
// move anyone.
func (l *Lobby) SwitchTeam(requester, target string, team int) error {
	if team != 1 && team != 2 {
		return ErrInvalidTeam
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status != StatusWaiting {
		return ErrNotWaiting
	}
	if requester != target && requester != l.hostID {
		return ErrNotHost
	}
	idx := l.indexLocked(target)
	if idx < 0 {
		return ErrUnknownPlayer
	}
	l.members[idx].Team = team
	return nil
}

// UpdateSettings replaces the match settings.
func (l *Lobby) UpdateSettings(requester string, settings world.Settings) (world.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.hostCheckLocked(requester); err != nil {
		return world.Settings{}, err
	}
	l.settings = settings.Normalized()
	return l.settings, nil
}

// Start validates the roster and moves the lobby to playing.
func (l *Lobby) Start(requester string) ([]world.Seat, world.Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.hostCheckLocked(requester); err != nil {
		return nil, world.Settings{}, err
	}
	if len(l.members) < 2 {
		return nil, world.Settings{}, ErrNotEnough
	}
	if l.settings.Mode == world.ModeTeams {
		one, two := l.teamCountsLocked()
		if one == 0 || two == 0 {
			return nil, world.Settings{}, ErrTeamsUneven
		}
	}
	seats := make([]world.Seat, 0, len(l.members))
	for _, m := range l.members {
		seats = append(seats, world.Seat{ID: m.ID, Name: m.Name, Bot: m.Bot, Team: m.Team, Color: m.Color})
	}
	l.status = StatusPlaying
	l.winnerID = ""
	l.winningTeam = 0
	return seats, l.settings, nil
}

// Finish records the result of the running match.
func (l *Lobby) Finish(result world.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status != StatusPlaying {
		return
	}
	l.status = StatusFinished
	l.winnerID = result.WinnerID
	l.winningTeam = result.WinningTeam
}

// MatchFinished lets the lobby serve as a world.ResultSink.
func (l *Lobby) MatchFinished(result world.Result) { l.Finish(result) }

// Reset returns a finished lobby to waiting, keeping every member.
func (l *Lobby) Reset(requester string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == StatusClosed {
		return ErrClosed
	}
	if requester != l.hostID {
		return ErrNotHost
	}
	if l.status != StatusFinished {
		return ErrNotFinished
	}
	l.status = StatusWaiting
	l.winnerID = ""
	l.winningTeam = 0
	return nil
}

// Leave removes id. The host role passes to the first remaining human; the
// lobby closes when no humans remain. It reports whether the lobby closed.
func (l *Lobby) Leave(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == StatusClosed {
		return true, ErrClosed
	}
	idx := l.indexLocked(id)
	if idx < 0 {
		return false, ErrUnknownPlayer
	}
	l.members = append(l.members[:idx], l.members[idx+1:]...)

	var firstHuman string
	for _, m := range l.members {
		if !m.Bot {
			firstHuman = m.ID
			break
		}
	}
	if firstHuman == "" {
		l.status = StatusClosed
		l.members = nil
		l.hostID = ""
		return true, nil
	}
	if l.hostID == id {
		l.hostID = firstHuman
	}
	return false, nil
}

func (l *Lobby) hostCheckLocked(requester string) error {
	if l.status == StatusClosed {
		return ErrClosed
	}
	if requester == "" || requester != l.hostID {
		return ErrNotHost
	}
	if l.status != StatusWaiting {
		return ErrNotWaiting
	}
	return nil
}

func (l *Lobby) indexLocked(id string) int {
	for i, m := range l.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (l *Lobby) teamCountsLocked() (int, int) {
	one, two := 0, 0
	for _, m := range l.members {
		switch m.Team {
		case 1:
			one++
		case 2:
			two++
		}
	}
	return one, two
}

// autoTeamLocked picks the smaller team; ties go to team 1.
func (l *Lobby) autoTeamLocked() int {
	one, two := l.teamCountsLocked()
	if one <= two {
		return 1
	}
	return 2
}

func (l *Lobby) randomColorLocked() string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", l.rng.Intn(360))
}
