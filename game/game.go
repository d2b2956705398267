// Package game 定义 scoregate 对外提供的比赛实体与查询参数。
package game

import (
	"strconv"
	"strings"
	"time"

	"github.com/ceyewan/scoregate/xerrors"
)

// Status 比赛状态
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusFinal     Status = "final"
	StatusPostponed Status = "postponed"
	StatusCanceled  Status = "canceled"
)

// SeasonType 赛季阶段
type SeasonType string

const (
	SeasonPreseason  SeasonType = "preseason"
	SeasonRegular    SeasonType = "regular"
	SeasonPostseason SeasonType = "postseason"
)

// ErrInvalidSeasonType 无法识别的赛季阶段
var ErrInvalidSeasonType = xerrors.Mark(xerrors.New("game: invalid season type"), xerrors.ErrInvalidInput)

// ParseSeasonType 解析赛季阶段，接受名称或 ESPN 数字编码，空串视为 regular
func ParseSeasonType(s string) (SeasonType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "regular", "2":
		return SeasonRegular, nil
	case "preseason", "pre", "1":
		return SeasonPreseason, nil
	case "postseason", "post", "3":
		return SeasonPostseason, nil
	default:
		return "", xerrors.Wrapf(ErrInvalidSeasonType, "%q", s)
	}
}

// SeasonTypeFromCode 把 ESPN 数字编码转换为 SeasonType，未知编码返回 regular
func SeasonTypeFromCode(code int) SeasonType {
	switch code {
	case 1:
		return SeasonPreseason
	case 3:
		return SeasonPostseason
	default:
		return SeasonRegular
	}
}

// Code 返回 ESPN 使用的数字编码
func (t SeasonType) Code() int {
	switch t {
	case SeasonPreseason:
		return 1
	case SeasonPostseason:
		return 3
	default:
		return 2
	}
}

// Team 球队
type Team struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
}

// Competitor 比赛的一方
type Competitor struct {
	Team   Team `json:"team"`
	Score  int  `json:"score"`
	Winner bool `json:"winner"`
}

// Game 标准化后的比赛记录
type Game struct {
	ID           string     `json:"id"`
	Season       int        `json:"season"`
	SeasonType   SeasonType `json:"seasonType"`
	Week         int        `json:"week"`
	Name         string     `json:"name"`
	ShortName    string     `json:"shortName"`
	Status       Status     `json:"status"`
	StatusDetail string     `json:"statusDetail,omitempty"`
	ScheduledAt  time.Time  `json:"scheduledAt"`
	Period       int        `json:"period,omitempty"`
	Clock        string     `json:"clock,omitempty"`
	Home         Competitor `json:"home"`
	Away         Competitor `json:"away"`
	Venue        string     `json:"venue,omitempty"`
}

func (g *Game) IsLive() bool {
	return g.Status == StatusLive
}

func (g *Game) IsCompleted() bool {
	return g.Status == StatusFinal
}

func (g *Game) IsScheduled() bool {
	return g.Status == StatusScheduled
}

// Query 按周查询参数，Week 为 0 表示整个赛季阶段
type Query struct {
	Season     int
	SeasonType SeasonType
	Week       int
}

// WeekKey 缓存 key 中的周字段，Week 为 0 时为 "all"
func (q Query) WeekKey() string {
	if q.Week <= 0 {
		return "all"
	}
	return strconv.Itoa(q.Week)
}

// Validate 校验查询参数范围
func (q Query) Validate() error {
	if q.Season < 1990 || q.Season > 2100 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "game: season %d out of range", q.Season)
	}
	if q.Week < 0 || q.Week > 25 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "game: week %d out of range", q.Week)
	}
	if _, err := ParseSeasonType(string(q.SeasonType)); err != nil {
		return err
	}
	return nil
}

// Counts 各状态的比赛数量
type Counts struct {
	Total     int `json:"total"`
	Live      int `json:"live"`
	Completed int `json:"completed"`
	Scheduled int `json:"scheduled"`
}

// Count 统计 games 中各状态的数量
func Count(games []Game) Counts {
	c := Counts{Total: len(games)}
	for i := range games {
		switch {
		case games[i].IsLive():
			c.Live++
		case games[i].IsCompleted():
			c.Completed++
		case games[i].IsScheduled():
			c.Scheduled++
		}
	}
	return c
}
