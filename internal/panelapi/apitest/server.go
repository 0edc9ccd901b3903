// Package apitest 提供一个 gin 实现的假后端，按脚本返回 /api 各接口的回包并记录请求。
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"
)

// Response 脚本化回包。Raw 非空时原样写出（用于构造非 JSON 响应）。
type Response struct {
	Status int
	Body   any
	Raw    string
}

// Request 记录下来的请求
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// JSON 把请求体解析成扁平键值
func (r Request) JSON() map[string]string {
	m := map[string]string{}
	_ = json.Unmarshal(r.Body, &m)
	return m
}

type Server struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]Response
	requests []Request
}

func key(method, path string) string { return method + " " + path }

// New 启动假后端，默认回包与真实后端"未配置、未运行"时一致
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{routes: map[string]Response{}}

	s.routes[key(http.MethodGet, "/api/config")] = Response{Status: 200, Body: gin.H{"configured": false, "lnbits_available": false}}
	s.routes[key(http.MethodPost, "/api/config")] = Response{Status: 200, Body: gin.H{"success": true, "message": "Configuration saved successfully"}}
	s.routes[key(http.MethodGet, "/api/bot/status")] = Response{Status: 200, Body: gin.H{"running": false, "configured": false}}
	s.routes[key(http.MethodPost, "/api/bot/start")] = Response{Status: 200, Body: gin.H{"success": true, "message": "Bot started successfully"}}
	s.routes[key(http.MethodPost, "/api/bot/stop")] = Response{Status: 200, Body: gin.H{"success": false, "message": "Bot is not running"}}
	s.routes[key(http.MethodPost, "/api/test-connection")] = Response{Status: 200, Body: gin.H{
		"discord": gin.H{"valid": false, "message": "Invalid token format"},
		"lnbits":  gin.H{"valid": false, "message": "Connection failed"},
	}}
	s.routes[key(http.MethodGet, "/api/logs")] = Response{Status: 200, Body: gin.H{"logs": []string{}}}

	r := gin.New()
	api := r.Group("/api")
	api.GET("/config", s.reply)
	api.POST("/config", s.reply)
	api.GET("/bot/status", s.reply)
	api.POST("/bot/start", s.reply)
	api.POST("/bot/stop", s.reply)
	api.POST("/test-connection", s.reply)
	api.GET("/logs", s.reply)

	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) reply(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: c.Request.Method, Path: c.Request.URL.Path, Body: body})
	resp, ok := s.routes[key(c.Request.Method, c.Request.URL.Path)]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not scripted"})
		return
	}
	if resp.Raw != "" {
		c.Data(resp.Status, "text/plain; charset=utf-8", []byte(resp.Raw))
		return
	}
	c.JSON(resp.Status, resp.Body)
}

// Set 设置某接口的 JSON 回包，path 为完整路径（含 /api）
func (s *Server) Set(method, path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[key(method, path)] = Response{Status: status, Body: body}
}

// SetRaw 设置非 JSON 回包
func (s *Server) SetRaw(method, path string, status int, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[key(method, path)] = Response{Status: status, Raw: raw}
}

// Requests 返回某接口收到的全部请求
func (s *Server) Requests(method, path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Count 某接口收到的请求数
func (s *Server) Count(method, path string) int {
	return len(s.Requests(method, path))
}
