package models

import (
	"fmt"
	"strings"
)

// Market identifies the statistic a player proposition is written on.
type Market string

// Supported player prop markets
const (
	MarketPassYards  Market = "player_pass_yds"
	MarketPassTDs    Market = "player_pass_tds"
	MarketRecYards   Market = "player_rec_yds"
	MarketReceptions Market = "player_receptions"
	MarketRushYards  Market = "player_rush_yds"
	MarketAnytimeTD  Market = "player_anytime_td"
)

// Markets lists every supported market in a stable order.
var Markets = []Market{
	MarketPassYards,
	MarketPassTDs,
	MarketRecYards,
	MarketReceptions,
	MarketRushYards,
	MarketAnytimeTD,
}

// Valid reports whether the market is one of the supported markets.
func (m Market) Valid() bool {
	for _, known := range Markets {
		if m == known {
			return true
		}
	}
	return false
}

// IsContinuous reports whether outcomes are modeled as a normal distribution (yardage).
func (m Market) IsContinuous() bool {
	return m == MarketPassYards || m == MarketRecYards || m == MarketRushYards
}

// IsCount reports whether outcomes are modeled as a Poisson count.
func (m Market) IsCount() bool {
	return m == MarketPassTDs || m == MarketReceptions
}

// IsPassing reports whether the market measures quarterback passing output.
func (m Market) IsPassing() bool {
	return m == MarketPassYards || m == MarketPassTDs
}

// IsReceiving reports whether the market measures pass-catcher output.
func (m Market) IsReceiving() bool {
	return m == MarketRecYards || m == MarketReceptions
}

// Direction is the side of a line being bet.
type Direction string

// Prop directions. Anytime-TD props carry no direction.
const (
	DirectionOver  Direction = "over"
	DirectionUnder Direction = "under"
	DirectionNone  Direction = ""
)

// ParseDirection normalizes provider spellings of a side.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "over", "o", "yes":
		return DirectionOver, nil
	case "under", "u", "no":
		return DirectionUnder, nil
	case "", "n/a", "na":
		return DirectionNone, nil
	default:
		return DirectionNone, fmt.Errorf("unknown direction %q", s)
	}
}

// Position is a player's roster role.
type Position string

// Offensive positions that matter for correlation
const (
	PositionQB Position = "QB"
	PositionRB Position = "RB"
	PositionWR Position = "WR"
	PositionTE Position = "TE"
)

// IsPassCatcher reports whether the position is a wide receiver or tight end.
func (p Position) IsPassCatcher() bool {
	return p == PositionWR || p == PositionTE
}

// Prop is one market quote for a player proposition.
type Prop struct {
	Player    string    `json:"player" validate:"required"`
	PlayerID  string    `json:"player_id,omitempty"`
	Position  Position  `json:"position,omitempty"`
	Market    Market    `json:"market" validate:"required"`
	Line      float64   `json:"line"`
	Direction Direction `json:"direction"`
	Odds      int       `json:"odds" validate:"required"`
	Book      string    `json:"book"`
	Game      string    `json:"game" validate:"required"`
	Team      string    `json:"team"`
	Opponent  string    `json:"opponent"`
}

// Key returns the (player, market) identity of the prop.
func (p Prop) Key() LegKey {
	return LegKey{Player: p.playerRef(), Market: p.Market}
}

// Role returns the explicit position, or one inferred from the market.
func (p Prop) Role() Position {
	if p.Position != "" {
		return Position(strings.ToUpper(string(p.Position)))
	}
	switch {
	case p.Market.IsPassing():
		return PositionQB
	case p.Market == MarketRushYards:
		return PositionRB
	case p.Market.IsReceiving():
		return PositionWR
	default:
		return ""
	}
}

// IsUnder reports whether the prop hits on a low outcome.
func (p Prop) IsUnder() bool {
	return p.Direction == DirectionUnder
}

func (p Prop) playerRef() string {
	if p.PlayerID != "" {
		return p.PlayerID
	}
	return p.Player
}

// String renders the prop the way a bet slip would.
func (p Prop) String() string {
	if p.Market == MarketAnytimeTD {
		return fmt.Sprintf("%s anytime TD (%+d %s)", p.Player, p.Odds, p.Book)
	}
	return fmt.Sprintf("%s %s %s %.1f (%+d %s)", p.Player, p.Market, p.Direction, p.Line, p.Odds, p.Book)
}

// LegKey identifies a (player, market) pair. A parlay never holds two legs with the same key.
type LegKey struct {
	Player string `json:"player"`
	Market Market `json:"market"`
}

// String returns "player|market".
func (k LegKey) String() string {
	return k.Player + "|" + string(k.Market)
}
