package store

import (
	"time"

	"github.com/ceyewan/scoregate/game"
)

// GameRecord 归档表 game_records 的一行
type GameRecord struct {
	ID           string    `gorm:"primaryKey;size:32"`
	Season       int       `gorm:"index:idx_season_week,priority:1"`
	SeasonType   string    `gorm:"size:16;index:idx_season_week,priority:2"`
	Week         int       `gorm:"index:idx_season_week,priority:3"`
	Name         string    `gorm:"size:128"`
	ShortName    string    `gorm:"size:32"`
	Status       string    `gorm:"size:16"`
	StatusDetail string    `gorm:"size:64"`
	ScheduledAt  time.Time `gorm:"index"`
	Period       int
	HomeTeamID   string `gorm:"size:16"`
	HomeAbbr     string `gorm:"size:8"`
	HomeName     string `gorm:"size:64"`
	HomeScore    int
	HomeWinner   bool
	AwayTeamID   string `gorm:"size:16"`
	AwayAbbr     string `gorm:"size:8"`
	AwayName     string `gorm:"size:64"`
	AwayScore    int
	AwayWinner   bool
	Venue        string `gorm:"size:128"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func fromGame(g *game.Game) GameRecord {
	return GameRecord{
		ID:           g.ID,
		Season:       g.Season,
		SeasonType:   string(g.SeasonType),
		Week:         g.Week,
		Name:         g.Name,
		ShortName:    g.ShortName,
		Status:       string(g.Status),
		StatusDetail: g.StatusDetail,
		ScheduledAt:  g.ScheduledAt.UTC(),
		Period:       g.Period,
		HomeTeamID:   g.Home.Team.ID,
		HomeAbbr:     g.Home.Team.Abbreviation,
		HomeName:     g.Home.Team.Name,
		HomeScore:    g.Home.Score,
		HomeWinner:   g.Home.Winner,
		AwayTeamID:   g.Away.Team.ID,
		AwayAbbr:     g.Away.Team.Abbreviation,
		AwayName:     g.Away.Team.Name,
		AwayScore:    g.Away.Score,
		AwayWinner:   g.Away.Winner,
		Venue:        g.Venue,
	}
}

func (r *GameRecord) toGame() *game.Game {
	return &game.Game{
		ID:           r.ID,
		Season:       r.Season,
		SeasonType:   game.SeasonType(r.SeasonType),
		Week:         r.Week,
		Name:         r.Name,
		ShortName:    r.ShortName,
		Status:       game.Status(r.Status),
		StatusDetail: r.StatusDetail,
		ScheduledAt:  r.ScheduledAt.UTC(),
		Period:       r.Period,
		Home: game.Competitor{
			Team:   game.Team{ID: r.HomeTeamID, Abbreviation: r.HomeAbbr, Name: r.HomeName},
			Score:  r.HomeScore,
			Winner: r.HomeWinner,
		},
		Away: game.Competitor{
			Team:   game.Team{ID: r.AwayTeamID, Abbreviation: r.AwayAbbr, Name: r.AwayName},
			Score:  r.AwayScore,
			Winner: r.AwayWinner,
		},
		Venue: r.Venue,
	}
}
