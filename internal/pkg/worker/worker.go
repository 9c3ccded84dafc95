package worker

import (
	"bytes"
	"context"
	"errors"
	"log"
	"time"

	"feed_gateway/internal/platform"
)

type UploadTask struct {
	ID          string // 客户端生成的上传标识
	Token       string
	Filename    string
	ContentType string
	Data        []byte
	Retry       int // 重试次数
	OnProgress  func(id string, percent int)
	OnDone      func(id string, result *platform.UploadResult, err error)
}

type UploadPool struct {
	TaskQueue  chan UploadTask
	RetryQueue chan UploadTask // 重试队列
	Client     *platform.Client
	WorkerNum  int
	MaxRetry   int // 最大重试次数
}

func NewUploadPool(client *platform.Client, workerNum int, bufferSize int) *UploadPool {
	return &UploadPool{
		TaskQueue:  make(chan UploadTask, bufferSize),
		RetryQueue: make(chan UploadTask, bufferSize/2),
		Client:     client,
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
	}
}

func (p *UploadPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		go p.worker(i)
	}
	// 启动重试处理协程
	go p.retryWorker()
	log.Printf("Upload pool started with %d workers", p.WorkerNum)
}

func (p *UploadPool) worker(id int) {
	for task := range p.TaskQueue {
		result, err := p.processTask(task)
		if err == nil {
			task.OnDone(task.ID, result, nil)
			continue
		}

		log.Printf("[Worker %d] Upload failed (ID: %s, File: %s): %v",
			id, task.ID, task.Filename, err)

		// 平台明确拒绝（校验失败等）不值得重试
		if !errors.Is(err, platform.ErrUnavailable) {
			task.OnDone(task.ID, nil, err)
			continue
		}

		// 如果未达到最大重试次数，加入重试队列
		if task.Retry < p.MaxRetry {
			task.Retry++
			select {
			case p.RetryQueue <- task:
				log.Printf("[Worker %d] Upload added to retry queue (attempt %d/%d)",
					id, task.Retry, p.MaxRetry)
			default:
				log.Printf("[Worker %d] Retry queue full, upload dropped: %s", id, task.ID)
				task.OnDone(task.ID, nil, err)
			}
		} else {
			log.Printf("[Worker %d] Upload exceeded max retries, dropped: %s", id, task.ID)
			task.OnDone(task.ID, nil, err)
		}
	}
}

func (p *UploadPool) retryWorker() {
	for task := range p.RetryQueue {
		// 延迟重试，避免立即重试
		time.Sleep(time.Duration(task.Retry) * time.Second)

		// 重新加入主队列
		select {
		case p.TaskQueue <- task:
			log.Printf("[RetryWorker] Upload re-queued (attempt %d/%d)", task.Retry, p.MaxRetry)
		default:
			log.Printf("[RetryWorker] Main queue full, upload dropped: %s", task.ID)
			task.OnDone(task.ID, nil, platform.ErrUnavailable)
		}
	}
}

func (p *UploadPool) processTask(task UploadTask) (*platform.UploadResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	src := bytes.NewReader(task.Data)
	return p.Client.Upload(ctx, task.Token, task.Filename, task.ContentType,
		src, int64(len(task.Data)), func(percent int) {
			task.OnProgress(task.ID, percent)
		})
}

func (p *UploadPool) AddTask(task UploadTask) {
	select {
	case p.TaskQueue <- task:
		// 任务入队成功
	default:
		log.Printf("Upload pool queue full, dropping task: %s", task.ID)
		task.OnDone(task.ID, nil, errors.New("upload queue full"))
	}
}
