// Package payout turns a resolved session's finishing order into payout records.
//
// Two modes exist. Explicit mode applies caller-supplied signed deltas per account. Pool mode
// splits the prize pool by placement percentages; every paid placement but the last is rounded to
// the cent and the last receives the remainder, so the payouts always sum to the pool.
package payout

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	appErr "ignite-service/pkg/errors"
	"ignite-service/pkg/money"
)

const RuleExplicit = "explicit"

var (
	defaultSplit = []float64{70, 30}
	soloSplit    = []float64{100}
)

type Placement struct {
	ParticipantID string `json:"participantId"`
	Place         int    `json:"place"`
}

// PlayerResultInput is an explicit result as received; NetAmount is validated by Calculate.
type PlayerResultInput struct {
	AccountID string          `json:"accountId"`
	NetAmount json.RawMessage `json:"netAmount"`
}

type PlayerResult struct {
	AccountID string       `json:"accountId"`
	NetAmount money.Amount `json:"netAmount"`
}

type Payout struct {
	RecipientID string       `json:"recipientId"`
	Amount      money.Amount `json:"amount"`
	Label       string       `json:"label"`
}

type Request struct {
	Pool         money.Amount
	WinnerID     string
	Participants []string // join order
	Explicit     []PlayerResultInput
	Placements   []Placement
	Distribution []float64
}

type Result struct {
	Rule       string      `json:"distributionRule"`
	Placements []Placement `json:"placements"`
	Payouts    []Payout    `json:"payouts"`
}

// Calculate validates req and computes payouts without side effects.
func Calculate(req Request) (*Result, error) {
	if req.Explicit != nil {
		if req.Placements != nil || req.Distribution != nil {
			return nil, fmt.Errorf("%w: explicit results exclude placements and distribution", appErr.ErrInvalidRequest)
		}
		return explicit(req)
	}
	return pool(req)
}

func explicit(req Request) (*Result, error) {
	results, err := ParsePlayerResults(req.Explicit)
	if err != nil {
		return nil, err
	}
	payouts := make([]Payout, 0, len(results))
	for _, r := range results {
		payouts = append(payouts, Payout{RecipientID: r.AccountID, Amount: r.NetAmount, Label: RuleExplicit})
	}
	return &Result{
		Rule:       RuleExplicit,
		Placements: synthesize(req.WinnerID, req.Participants),
		Payouts:    payouts,
	}, nil
}

// ParsePlayerResults checks every entry names an account once and carries a numeric amount.
func ParsePlayerResults(inputs []PlayerResultInput) ([]PlayerResult, error) {
	seen := make(map[string]struct{}, len(inputs))
	results := make([]PlayerResult, 0, len(inputs))
	for i, in := range inputs {
		id := strings.TrimSpace(in.AccountID)
		if id == "" {
			return nil, fmt.Errorf("%w: entry %d has no account id", appErr.ErrInvalidPlayerResult, i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: account %s listed twice", appErr.ErrInvalidPlayerResult, id)
		}
		seen[id] = struct{}{}
		amount, err := money.ParseJSON(in.NetAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: account %s: %v", appErr.ErrInvalidPlayerResult, id, err)
		}
		results = append(results, PlayerResult{AccountID: id, NetAmount: amount})
	}
	return results, nil
}

func pool(req Request) (*Result, error) {
	placements := req.Placements
	if placements == nil {
		placements = synthesize(req.WinnerID, req.Participants)
	} else {
		var err error
		if placements, err = ValidatePlacements(placements, req.Participants); err != nil {
			return nil, err
		}
	}

	split := req.Distribution
	if len(split) == 0 {
		split = soloSplit
		if len(placements) >= 2 {
			split = defaultSplit
		}
	}
	if err := ValidateDistribution(split); err != nil {
		return nil, err
	}

	paid := len(placements)
	if len(split) < paid {
		paid = len(split)
	}

	payouts := make([]Payout, 0, paid)
	var distributed money.Amount
	for i := 0; i < paid; i++ {
		var amount money.Amount
		if i == paid-1 {
			amount = req.Pool - distributed
		} else {
			amount = money.Amount(math.Round(float64(req.Pool) * split[i] / 100))
		}
		distributed += amount
		payouts = append(payouts, Payout{
			RecipientID: placements[i].ParticipantID,
			Amount:      amount,
			Label:       fmt.Sprintf("place-%d", placements[i].Place),
		})
	}

	return &Result{
		Rule:       Describe(split),
		Placements: placements,
		Payouts:    payouts,
	}, nil
}

// ValidatePlacements requires distinct known participants with distinct places from 1 up,
// and returns them ordered by place.
func ValidatePlacements(placements []Placement, participants []string) ([]Placement, error) {
	if len(placements) == 0 {
		return nil, fmt.Errorf("%w: no placements", appErr.ErrInvalidPlacement)
	}
	known := make(map[string]struct{}, len(participants))
	for _, id := range participants {
		known[id] = struct{}{}
	}

	ids := make(map[string]struct{}, len(placements))
	places := make(map[int]struct{}, len(placements))
	for _, p := range placements {
		if _, ok := known[p.ParticipantID]; !ok {
			return nil, fmt.Errorf("%w: %q is not a participant", appErr.ErrInvalidPlacement, p.ParticipantID)
		}
		if p.Place < 1 {
			return nil, fmt.Errorf("%w: place %d", appErr.ErrInvalidPlacement, p.Place)
		}
		if _, dup := ids[p.ParticipantID]; dup {
			return nil, fmt.Errorf("%w: %q placed twice", appErr.ErrInvalidPlacement, p.ParticipantID)
		}
		if _, dup := places[p.Place]; dup {
			return nil, fmt.Errorf("%w: place %d used twice", appErr.ErrInvalidPlacement, p.Place)
		}
		ids[p.ParticipantID] = struct{}{}
		places[p.Place] = struct{}{}
	}

	ordered := append([]Placement(nil), placements...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Place < ordered[j].Place })
	return ordered, nil
}

func ValidateDistribution(split []float64) error {
	var sum float64
	for _, p := range split {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return fmt.Errorf("%w: percentage %v", appErr.ErrInvalidDistribution, p)
		}
		sum += p
	}
	if sum > 100+1e-9 {
		return fmt.Errorf("%w: percentages sum to %v", appErr.ErrInvalidDistribution, sum)
	}
	return nil
}

// Describe renders a split as its rule descriptor, e.g. "70/30".
func Describe(split []float64) string {
	parts := make([]string, len(split))
	for i, p := range split {
		parts[i] = strconv.FormatFloat(p, 'f', -1, 64)
	}
	return strings.Join(parts, "/")
}

// synthesize places the winner first and everyone else in join order.
func synthesize(winnerID string, participants []string) []Placement {
	placements := []Placement{{ParticipantID: winnerID, Place: 1}}
	for _, id := range participants {
		if id == winnerID {
			continue
		}
		placements = append(placements, Placement{ParticipantID: id, Place: len(placements) + 1})
	}
	return placements
}
