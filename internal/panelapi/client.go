package panelapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/lnpanel/pkg/httpclient"
)

var log = logrus.WithField("module", "panelapi")

const (
	APIBase = "/api"

	pathConfig         = "/config"
	pathBotStatus      = "/bot/status"
	pathBotStart       = "/bot/start"
	pathBotStop        = "/bot/stop"
	pathTestConnection = "/test-connection"
	pathLogs           = "/logs"
)

// Client 机器人后端 /api 的类型化客户端
type Client struct {
	http *httpclient.Client
}

// New baseURL 为后端根地址（如 http://localhost:3050），不含 /api
func New(baseURL string, timeout time.Duration) *Client {
	base := strings.TrimRight(baseURL, "/") + APIBase
	return &Client{http: httpclient.NewClient(base, timeout)}
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (*resty.Response, error) {
	var opt *httpclient.RequestOptions
	if body != nil {
		opt = &httpclient.RequestOptions{Data: body}
	}
	resp, err := c.http.DoRequest(ctx, method, path, opt)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	log.WithFields(logrus.Fields{
		"op":     op,
		"status": resp.StatusCode(),
		"took":   resp.Time(),
	}).Debug("api response")
	return resp, nil
}

func decode(op string, resp *resty.Response, v any) error {
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return &TransportError{Op: op, Err: errors.Wrapf(err, "decode response (status %d)", resp.StatusCode())}
	}
	return nil
}

// rejected 非 2xx 时解析 {error}；body 不是 JSON 视为传输错误
func rejected(op string, resp *resty.Response) error {
	var e errorWire
	if err := decode(op, resp, &e); err != nil {
		return err
	}
	return &AppError{Op: op, Status: resp.StatusCode(), Message: e.Error}
}

// GetConfig GET /config
func (c *Client) GetConfig(ctx context.Context) (*Configuration, error) {
	const op = "get config"
	resp, err := c.do(ctx, op, http.MethodGet, pathConfig, nil)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, rejected(op, resp)
	}
	var cfg Configuration
	if err := decode(op, resp, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig POST /config，fields 为表单的扁平键值
func (c *Client) SaveConfig(ctx context.Context, fields map[string]string) (*SaveResult, error) {
	const op = "save config"
	if fields == nil {
		fields = map[string]string{}
	}
	resp, err := c.do(ctx, op, http.MethodPost, pathConfig, fields)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, rejected(op, resp)
	}
	var res SaveResult
	if err := decode(op, resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// BotStatus GET /bot/status（不看状态码，只看回包）
func (c *Client) BotStatus(ctx context.Context) (*BotStatus, error) {
	const op = "bot status"
	resp, err := c.do(ctx, op, http.MethodGet, pathBotStatus, nil)
	if err != nil {
		return nil, err
	}
	var st BotStatus
	if err := decode(op, resp, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// StartBot POST /bot/start，无请求体；success=false 返回 AppError
func (c *Client) StartBot(ctx context.Context) (*ActionResult, error) {
	return c.botAction(ctx, "start bot", pathBotStart)
}

// StopBot POST /bot/stop
func (c *Client) StopBot(ctx context.Context) (*ActionResult, error) {
	return c.botAction(ctx, "stop bot", pathBotStop)
}

func (c *Client) botAction(ctx context.Context, op, path string) (*ActionResult, error) {
	resp, err := c.do(ctx, op, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	var res ActionResult
	if err := decode(op, resp, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return &res, &AppError{Op: op, Status: resp.StatusCode(), Message: res.Message}
	}
	return &res, nil
}

// TestConnection POST /test-connection，提交的是当前表单值而不是已保存的配置
func (c *Client) TestConnection(ctx context.Context, fields map[string]string) (*TestResult, error) {
	const op = "test connection"
	if fields == nil {
		fields = map[string]string{}
	}
	resp, err := c.do(ctx, op, http.MethodPost, pathTestConnection, fields)
	if err != nil {
		return nil, err
	}
	var w testResultWire
	if err := decode(op, resp, &w); err != nil {
		return nil, err
	}
	if w.Discord == nil || w.LNBits == nil {
		return nil, &TransportError{Op: op, Err: errors.Errorf("incomplete result (status %d)", resp.StatusCode())}
	}
	return &TestResult{Discord: *w.Discord, LNBits: *w.LNBits}, nil
}

// Logs GET /logs；回包缺少 logs 时返回 AppError
func (c *Client) Logs(ctx context.Context) (*LogSnapshot, error) {
	const op = "logs"
	resp, err := c.do(ctx, op, http.MethodGet, pathLogs, nil)
	if err != nil {
		return nil, err
	}
	var w logsWire
	if err := decode(op, resp, &w); err != nil {
		return nil, err
	}
	if w.Logs == nil {
		return nil, &AppError{Op: op, Status: resp.StatusCode(), Message: w.Error}
	}
	return &LogSnapshot{Lines: *w.Logs}, nil
}
