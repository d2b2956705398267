package espn

// ESPN 公共 API 的响应结构，只声明用到的字段

type scoreboardResponse struct {
	Season seasonRef `json:"season"`
	Week   weekRef   `json:"week"`
	Events []event   `json:"events"`
}

type seasonRef struct {
	Year int `json:"year"`
	Type int `json:"type"`
}

type weekRef struct {
	Number int `json:"number"`
}

type event struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Name         string        `json:"name"`
	ShortName    string        `json:"shortName"`
	Season       seasonRef     `json:"season"`
	Week         weekRef       `json:"week"`
	Competitions []competition `json:"competitions"`
}

type competition struct {
	ID          string       `json:"id"`
	Date        string       `json:"date"`
	Venue       venue        `json:"venue"`
	Competitors []competitor `json:"competitors"`
	Status      status       `json:"status"`
}

type venue struct {
	FullName string `json:"fullName"`
}

type competitor struct {
	ID       string `json:"id"`
	HomeAway string `json:"homeAway"`
	Winner   bool   `json:"winner"`
	Score    string `json:"score"`
	Team     team   `json:"team"`
}

type team struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"displayName"`
}

type status struct {
	DisplayClock string     `json:"displayClock"`
	Period       int        `json:"period"`
	Type         statusType `json:"type"`
}

type statusType struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	Completed   bool   `json:"completed"`
	Detail      string `json:"detail"`
	ShortDetail string `json:"shortDetail"`
}

// summaryResponse /summary?event={id} 的响应
type summaryResponse struct {
	Header   summaryHeader `json:"header"`
	GameInfo struct {
		Venue venue `json:"venue"`
	} `json:"gameInfo"`
}

type summaryHeader struct {
	ID           string        `json:"id"`
	Season       seasonRef     `json:"season"`
	Week         int           `json:"week"`
	Competitions []competition `json:"competitions"`
}
