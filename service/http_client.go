package service

import (
	"net"
	"net/http"
	"time"
)

var httpClient *http.Client

// InitHttpClient 初始化共享的出站 HTTP 客户端，超时由每次调用的 context 控制
func InitHttpClient() {
	httpClient = newHttpClient()
}

func newHttpClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}

func GetHttpClient() *http.Client {
	if httpClient == nil {
		return http.DefaultClient
	}
	return httpClient
}
