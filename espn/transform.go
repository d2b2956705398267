package espn

import (
	"strconv"
	"time"

	"github.com/ceyewan/scoregate/game"
	"github.com/ceyewan/scoregate/provider"
	"github.com/ceyewan/scoregate/xerrors"
)

// ESPN 的时间戳通常省略秒，例如 "2025-11-09T18:00Z"
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, xerrors.Wrapf(provider.ErrTransform, "unparseable date %q", s)
}

// mapStatus 把 ESPN 的 status.type 映射为 game.Status
func mapStatus(t statusType) game.Status {
	switch t.Name {
	case "STATUS_POSTPONED", "STATUS_SUSPENDED", "STATUS_DELAYED":
		return game.StatusPostponed
	case "STATUS_CANCELED", "STATUS_CANCELLED", "STATUS_FORFEIT":
		return game.StatusCanceled
	}
	switch t.State {
	case "in":
		return game.StatusLive
	case "post":
		return game.StatusFinal
	default:
		return game.StatusScheduled
	}
}

func toCompetitor(c competitor) game.Competitor {
	score, _ := strconv.Atoi(c.Score)
	return game.Competitor{
		Team: game.Team{
			ID:           c.Team.ID,
			Abbreviation: c.Team.Abbreviation,
			Name:         c.Team.DisplayName,
		},
		Score:  score,
		Winner: c.Winner,
	}
}

// fromCompetition 用比赛的 competition 部分填充 Game，id 与日期缺失视为格式错误
func fromCompetition(g *game.Game, comp competition, fallbackDate string) error {
	date := comp.Date
	if date == "" {
		date = fallbackDate
	}
	scheduledAt, err := parseDate(date)
	if err != nil {
		return err
	}
	g.ScheduledAt = scheduledAt
	g.Status = mapStatus(comp.Status.Type)
	g.StatusDetail = comp.Status.Type.ShortDetail
	if g.StatusDetail == "" {
		g.StatusDetail = comp.Status.Type.Detail
	}
	g.Period = comp.Status.Period
	if g.Status == game.StatusLive {
		g.Clock = comp.Status.DisplayClock
	}
	g.Venue = comp.Venue.FullName

	var home, away bool
	for _, c := range comp.Competitors {
		switch c.HomeAway {
		case "home":
			g.Home, home = toCompetitor(c), true
		case "away":
			g.Away, away = toCompetitor(c), true
		}
	}
	if !home || !away {
		return xerrors.Wrapf(provider.ErrTransform, "event %s: missing home or away competitor", g.ID)
	}
	return nil
}

func fromEvent(e event, fallback seasonRef, fallbackWeek int) (game.Game, error) {
	if e.ID == "" {
		return game.Game{}, xerrors.Wrap(provider.ErrTransform, "event without id")
	}
	if len(e.Competitions) == 0 {
		return game.Game{}, xerrors.Wrapf(provider.ErrTransform, "event %s: no competitions", e.ID)
	}

	season := e.Season
	if season.Year == 0 {
		season = fallback
	}
	week := e.Week.Number
	if week == 0 {
		week = fallbackWeek
	}

	g := game.Game{
		ID:         e.ID,
		Season:     season.Year,
		SeasonType: game.SeasonTypeFromCode(season.Type),
		Week:       week,
		Name:       e.Name,
		ShortName:  e.ShortName,
	}
	if err := fromCompetition(&g, e.Competitions[0], e.Date); err != nil {
		return game.Game{}, err
	}
	return g, nil
}

func fromScoreboard(resp *scoreboardResponse) ([]game.Game, error) {
	games := make([]game.Game, 0, len(resp.Events))
	for _, e := range resp.Events {
		g, err := fromEvent(e, resp.Season, resp.Week.Number)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}

// fromSummary 转换单场比赛详情，competitions 为空表示比赛不存在
func fromSummary(id string, resp *summaryResponse) (*game.Game, error) {
	if len(resp.Header.Competitions) == 0 {
		return nil, xerrors.Wrapf(xerrors.ErrNotFound, "game %s", id)
	}
	g := &game.Game{
		ID:         resp.Header.ID,
		Season:     resp.Header.Season.Year,
		SeasonType: game.SeasonTypeFromCode(resp.Header.Season.Type),
		Week:       resp.Header.Week,
	}
	if g.ID == "" {
		g.ID = id
	}
	if err := fromCompetition(g, resp.Header.Competitions[0], ""); err != nil {
		return nil, err
	}
	if g.Venue == "" {
		g.Venue = resp.GameInfo.Venue.FullName
	}
	g.Name = g.Away.Team.Name + " at " + g.Home.Team.Name
	g.ShortName = g.Away.Team.Abbreviation + " @ " + g.Home.Team.Abbreviation
	return g, nil
}
