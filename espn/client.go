// Package espn 是 ESPN 公共 NFL API 的客户端。
//
// 所有请求都经过 provider.Execute，因此共享同一个限流器与熔断器；
// 响应在这里被转换为 game.Game，上层不接触 ESPN 的原始结构。
package espn

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/game"
	"github.com/ceyewan/scoregate/provider"
	"github.com/ceyewan/scoregate/trace"
	"github.com/ceyewan/scoregate/xerrors"
)

// DefaultBaseURL ESPN NFL 站点 API 根路径
const DefaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports/football/nfl"

// 单个响应体上限
const maxBodyBytes = 8 << 20

// Config ESPN 客户端配置
type Config struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout HTTP 客户端整体超时（默认：15s），单次请求还受 provider.request_timeout 约束
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

func (c *Config) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "scoregate/1.0"
	}
}

// Client ESPN 数据源
type Client struct {
	cfg    Config
	http   *http.Client
	exec   *provider.Client
	logger clog.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithNamespace("espn")
		}
	}
}

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New 创建 ESPN 客户端，exec 提供限流与熔断保护
func New(cfg *Config, exec *provider.Client, opts ...Option) (*Client, error) {
	if exec == nil {
		return nil, ErrProviderNil
	}
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()
	if _, err := url.Parse(c.BaseURL); err != nil {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "espn: base url %q", c.BaseURL)
	}

	client := &Client{
		cfg:    c,
		exec:   exec,
		logger: clog.Discard(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.http == nil {
		client.http = &http.Client{Timeout: c.Timeout}
	}
	return client, nil
}

// Name 数据源名称
func (c *Client) Name() string {
	return c.exec.Name()
}

// Provider 返回底层的 provider.Client，用于健康检查
func (c *Client) Provider() *provider.Client {
	return c.exec
}

// FetchScoreboard 拉取指定赛季、阶段与周次的比赛。
// Week 为 0 时不带 week 参数，ESPN 只返回该阶段的默认周（赛季进行中即当前周）
func (c *Client) FetchScoreboard(ctx context.Context, q game.Query) ([]game.Game, error) {
	params := url.Values{}
	params.Set("dates", strconv.Itoa(q.Season))
	params.Set("seasontype", strconv.Itoa(q.SeasonType.Code()))
	if q.Week > 0 {
		params.Set("week", strconv.Itoa(q.Week))
	}
	return provider.Execute(ctx, c.exec, "scoreboard", func(ctx context.Context) ([]game.Game, error) {
		var resp scoreboardResponse
		if err := c.get(ctx, "/scoreboard", params, &resp); err != nil {
			return nil, err
		}
		return fromScoreboard(&resp)
	})
}

// FetchCurrent 拉取 ESPN 当前周的比赛
func (c *Client) FetchCurrent(ctx context.Context) ([]game.Game, error) {
	return provider.Execute(ctx, c.exec, "current", func(ctx context.Context) ([]game.Game, error) {
		var resp scoreboardResponse
		if err := c.get(ctx, "/scoreboard", nil, &resp); err != nil {
			return nil, err
		}
		return fromScoreboard(&resp)
	})
}

// FetchGame 拉取单场比赛详情，比赛不存在时返回 xerrors.ErrNotFound
func (c *Client) FetchGame(ctx context.Context, id string) (*game.Game, error) {
	if id == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "espn: empty game id")
	}
	params := url.Values{}
	params.Set("event", id)
	return provider.Execute(ctx, c.exec, "game", func(ctx context.Context) (*game.Game, error) {
		var resp summaryResponse
		if err := c.get(ctx, "/summary", params, &resp); err != nil {
			if xerrors.Is(err, xerrors.ErrNotFound) {
				return nil, xerrors.Wrapf(err, "game %s", id)
			}
			return nil, err
		}
		return fromSummary(id, &resp)
	})
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst any) error {
	target := c.cfg.BaseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return xerrors.Wrap(provider.ErrUpstream, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	headers := map[string]string{}
	trace.Inject(ctx, headers)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// 调用方取消或超时时保留 ctx 错误，provider 据此区分超时
		if ctxErr := ctx.Err(); ctxErr != nil {
			return xerrors.Join(provider.ErrUpstream, ctxErr)
		}
		return xerrors.Wrapf(provider.ErrUpstream, "GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return xerrors.Wrapf(provider.ErrUpstream, "read %s: %v", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return xerrors.Wrapf(xerrors.ErrNotFound, "GET %s", path)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.logger.WarnContext(ctx, "espn returned non-2xx",
			clog.String("path", path),
			clog.Int("status", resp.StatusCode))
		return xerrors.Wrapf(provider.ErrUpstream, "GET %s: status %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return xerrors.Wrapf(provider.ErrTransform, "decode %s: %v", path, err)
	}
	return nil
}

// ErrProviderNil 未提供 provider.Client
var ErrProviderNil = xerrors.New("espn: provider client is nil")
