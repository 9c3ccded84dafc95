package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Config
const (
	BaseURL      = "http://localhost:8080"
	TotalClients = 200 // 模拟 200 个会话
	LikesPerUser = 20  // 每个会话连点 20 次赞
	TargetPost   = "p-1"
)

var httpClient *http.Client

func init() {
	// 优化 HTTP Client 配置
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxIdleConnsPerHost = 2000
	t.MaxConnsPerHost = 2000
	httpClient = &http.Client{
		Transport: t,
		Timeout:   10 * time.Second,
	}
}

func main() {
	fmt.Printf("开始压测：%d 个会话，各自连点 %d 次赞 (post: %s)...\n",
		TotalClients, LikesPerUser, TargetPost)

	var wg sync.WaitGroup
	var mu sync.Mutex
	okCount := 0
	busyCount := 0
	failCount := 0

	start := time.Now()

	for i := 1; i <= TotalClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			token := fmt.Sprintf("stress-token-%d", clientID)

			// 先加载信息流，建立会话和高水位
			loadFeed(token)

			for j := 0; j < LikesPerUser; j++ {
				switch toggleLike(token) {
				case 0:
					mu.Lock()
					okCount++
					mu.Unlock()
				case 20002: // 同一实体已有操作在途
					mu.Lock()
					busyCount++
					mu.Unlock()
				default:
					mu.Lock()
					failCount++
					mu.Unlock()
				}
			}
		}(i)
	}

	wg.Wait()
	duration := time.Since(start)
	total := TotalClients * LikesPerUser
	qps := float64(total) / duration.Seconds()

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", duration)
	fmt.Printf("总请求数: %d\n", total)
	fmt.Printf("QPS: %.2f\n", qps)
	fmt.Printf("点赞成功: %d\n", okCount)
	fmt.Printf("实体忙拒绝: %d\n", busyCount)
	fmt.Printf("其他失败: %d\n", failCount)
	fmt.Println("--------------------------------------------------")
}

func loadFeed(token string) {
	req, _ := http.NewRequest(http.MethodGet, BaseURL+"/api/feed?sort=newest", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := httpClient.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}

// toggleLike 返回业务码，0 为成功
func toggleLike(token string) int {
	url := fmt.Sprintf("%s/api/feed/posts/%s/like", BaseURL, TargetPost)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(nil))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := httpClient.Do(req)
	if err != nil {
		return -1
	}
	defer resp.Body.Close()

	var result struct {
		Code int `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return -1
	}
	return result.Code
}
