package service

import (
	"time"

	"pix_checkout/internal/domain/analytics/model"
	"pix_checkout/internal/domain/analytics/repository"
	"pix_checkout/pkg/logger"

	"go.uber.org/zap"
)

// EventTask 待落库的埋点事件
type EventTask struct {
	EventType string
	Retry     int // 重试次数
}

// AnalyticsService 埋点异步落库：fire-and-forget，失败不影响调用方
type AnalyticsService interface {
	// Track 入队一个事件，队列满时丢弃
	Track(eventType string)
	Stop()
}

type analyticsService struct {
	taskQueue  chan EventTask
	retryQueue chan EventTask
	repo       repository.EventRepository
	workerNum  int
	maxRetry   int
	quit       chan struct{}
}

func NewAnalyticsService(repo repository.EventRepository, workerNum, bufferSize int) AnalyticsService {
	if workerNum <= 0 {
		workerNum = 2
	}
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	s := &analyticsService{
		taskQueue:  make(chan EventTask, bufferSize),
		retryQueue: make(chan EventTask, bufferSize/2),
		repo:       repo,
		workerNum:  workerNum,
		maxRetry:   3,
		quit:       make(chan struct{}),
	}
	s.start()
	return s
}

func (s *analyticsService) start() {
	for i := 0; i < s.workerNum; i++ {
		go s.worker(i)
	}
	go s.retryWorker()
	logger.Log.Info("Analytics worker pool started", zap.Int("workers", s.workerNum))
}

func (s *analyticsService) Track(eventType string) {
	if eventType == "" {
		return
	}
	select {
	case s.taskQueue <- EventTask{EventType: eventType}:
	default:
		// 埋点允许丢，绝不阻塞请求路径
		logger.Log.Warn("Analytics queue full, event dropped", zap.String("event_type", eventType))
	}
}

func (s *analyticsService) Stop() {
	close(s.quit)
}

func (s *analyticsService) worker(id int) {
	for {
		select {
		case <-s.quit:
			return
		case task := <-s.taskQueue:
			if err := s.processTask(task); err != nil {
				logger.Log.Warn("Failed to persist analytics event",
					zap.Int("worker", id),
					zap.String("event_type", task.EventType),
					zap.Int("attempt", task.Retry),
					zap.Error(err),
				)

				if task.Retry < s.maxRetry {
					task.Retry++
					select {
					case s.retryQueue <- task:
					default:
						logger.Log.Warn("Analytics retry queue full, event dropped",
							zap.String("event_type", task.EventType))
					}
				}
			}
		}
	}
}

func (s *analyticsService) retryWorker() {
	for {
		select {
		case <-s.quit:
			return
		case task := <-s.retryQueue:
			// 延迟重试，避免立即重试
			time.Sleep(time.Duration(task.Retry) * time.Second)
			select {
			case s.taskQueue <- task:
			default:
				logger.Log.Warn("Analytics queue full on retry, event dropped",
					zap.String("event_type", task.EventType))
			}
		}
	}
}

func (s *analyticsService) processTask(task EventTask) error {
	return s.repo.Create(&model.AnalyticsEvent{EventType: task.EventType})
}
