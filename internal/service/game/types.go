package game

import (
	"time"

	"ignite-service/internal/service/ledger"
	"ignite-service/internal/service/payout"
	"ignite-service/pkg/money"
)

type Status string

const (
	StatusLobby    Status = "lobby"
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
)

type Cell string

const (
	CellSafe      Cell = "safe"
	CellCollapsed Cell = "collapsed"
)

type Settlement string

const (
	SettlementNone      Settlement = "none"
	SettlementCompleted Settlement = "completed"
)

type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

func (d Direction) offset() (dx, dy int, ok bool) {
	switch d {
	case DirectionUp:
		return 0, -1, true
	case DirectionDown:
		return 0, 1, true
	case DirectionLeft:
		return -1, 0, true
	case DirectionRight:
		return 1, 0, true
	}
	return 0, 0, false
}

const (
	MinPlayers  = 2
	MaxPlayers  = 16
	MinGridSize = 4
	MaxGridSize = 10
)

type Participant struct {
	ID          string       `json:"id"`
	ExternalRef string       `json:"externalRef,omitempty"`
	X           int          `json:"x"`
	Y           int          `json:"y"`
	Alive       bool         `json:"alive"`
	BuyIn       money.Amount `json:"buyIn"`
	JoinedAt    time.Time    `json:"joinedAt"`
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Session is the persisted game document.
type Session struct {
	ID               string             `json:"id"`
	BuyIn            money.Amount       `json:"buyIn"`
	MaxPlayers       int                `json:"maxPlayers"`
	Status           Status             `json:"status"`
	Width            int                `json:"width"`
	Height           int                `json:"height"`
	Grid             []Cell             `json:"grid"`
	Participants     []Participant      `json:"participants"`
	MoveCount        int                `json:"moveCount"`
	CollapseRound    int                `json:"collapseRound"`
	Pool             money.Amount       `json:"pool"`
	WinnerID         *string            `json:"winnerId"`
	Placements       []payout.Placement `json:"placements,omitempty"`
	Payouts          []payout.Payout    `json:"payouts,omitempty"`
	DistributionRule string             `json:"distributionRule,omitempty"`
	Settlement       Settlement         `json:"settlementStatus"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	ResolvedAt       *time.Time         `json:"resolvedAt,omitempty"`
}

// View is a session with derived counters, returned by every engine operation.
type View struct {
	*Session
	AliveCount     int `json:"aliveCount"`
	CollapsedCount int `json:"collapsedCount"`
}

func newView(s *Session) *View {
	v := &View{Session: s}
	for _, p := range s.Participants {
		if p.Alive {
			v.AliveCount++
		}
	}
	for _, c := range s.Grid {
		if c == CellCollapsed {
			v.CollapsedCount++
		}
	}
	return v
}

type CreateParams struct {
	BuyIn      money.Amount
	MaxPlayers int
	GridSize   int // 0 uses the configured default
}

// JoinOptions carries the optional join flags; the zero value debits and waits for a second player.
type JoinOptions struct {
	ForceStart bool
	SkipDebit  bool
}

type JoinResult struct {
	Session     *View            `json:"session"`
	Participant Participant      `json:"participant"`
	Debit       *ledger.Movement `json:"debit,omitempty"`
}

type MoveResult struct {
	Session           *View       `json:"session"`
	Participant       Participant `json:"participant"`
	CollapseTriggered bool        `json:"collapseTriggered"`
	Collapsed         []Coord     `json:"collapsed,omitempty"`
	Eliminated        []string    `json:"eliminated,omitempty"`
}

type CollapseResult struct {
	Session    *View    `json:"session"`
	Collapsed  []Coord  `json:"collapsed"`
	Eliminated []string `json:"eliminated,omitempty"`
}

// ResolveParams selects explicit mode when Explicit is non-nil, pool mode otherwise.
type ResolveParams struct {
	WinnerID     string
	Explicit     []payout.PlayerResultInput
	Placements   []payout.Placement
	Distribution []float64
}

type ResolveResult struct {
	Session   *View             `json:"session"`
	Payouts   []payout.Payout   `json:"payouts"`
	Movements []ledger.Movement `json:"movements"`
}
