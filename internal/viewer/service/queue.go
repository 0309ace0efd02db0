package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"drawing-viewer/internal/viewer/annotation"
	"drawing-viewer/internal/viewer/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

const (
	saveTopic   = "annotations.save"
	saveTimeout = 10 * time.Second
)

// saveMessage - полная замена маркеров документа.
type saveMessage struct {
	Hash     string          `json:"hash"`
	Revision uint64          `json:"revision"`
	Markers  []models.Marker `json:"markers"`
}

// ============================================================
// Save Queue
// ============================================================

// SaveQueue - очередь отложенной записи маркеров. Вызывающий не ждёт записи.
// gochannel не гарантирует порядок доставки, поэтому каждое сообщение несёт
// номер ревизии, и устаревшие ревизии пропускаются.
// Подписка живёт от Start до Close; сообщения вне этого интервала отбрасываются.
type SaveQueue struct {
	pubSub *gochannel.GoChannel
	store  annotation.Store
	log    *zap.Logger
	cancel context.CancelFunc

	mu        sync.Mutex
	running   bool
	revisions map[string]uint64
	applied   map[string]uint64
	pending   sync.WaitGroup
}

func NewSaveQueue(store annotation.Store, log *zap.Logger) *SaveQueue {
	return &SaveQueue{
		pubSub:    gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false)),
		store:     store,
		log:       log,
		revisions: make(map[string]uint64),
		applied:   make(map[string]uint64),
	}
}

// Start подписывает обработчик на очередь.
func (q *SaveQueue) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	messages, err := q.pubSub.Subscribe(ctx, saveTopic)
	if err != nil {
		cancel()
		return err
	}

	q.mu.Lock()
	q.cancel = cancel
	q.running = true
	q.mu.Unlock()

	go func() {
		for msg := range messages {
			q.process(msg)
		}
	}()
	return nil
}

// Enqueue ставит запись маркеров в очередь.
func (q *SaveQueue) Enqueue(hash string, markers []models.Marker) {
	q.mu.Lock()
	q.revisions[hash]++
	rev := q.revisions[hash]
	q.mu.Unlock()

	payload, err := json.Marshal(saveMessage{Hash: hash, Revision: rev, Markers: markers})
	if err != nil {
		q.log.Error("encode save message", zap.String("hash", hash), zap.Error(err))
		return
	}

	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		q.log.Warn("save queue is not running, markers dropped", zap.String("hash", hash))
		return
	}
	q.pending.Add(1)
	q.mu.Unlock()

	if err := q.pubSub.Publish(saveTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		q.pending.Done()
		q.log.Error("publish save message", zap.String("hash", hash), zap.Error(err))
	}
}

func (q *SaveQueue) process(msg *message.Message) {
	defer q.pending.Done()
	defer msg.Ack()

	var payload saveMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		q.log.Error("decode save message", zap.Error(err))
		return
	}

	q.mu.Lock()
	stale := payload.Revision <= q.applied[payload.Hash]
	if !stale {
		q.applied[payload.Hash] = payload.Revision
	}
	q.mu.Unlock()
	if stale {
		q.log.Debug("skip stale save", zap.String("hash", payload.Hash), zap.Uint64("revision", payload.Revision))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := q.store.Put(ctx, payload.Hash, payload.Markers); err != nil {
		q.log.Error("save markers", zap.String("hash", payload.Hash), zap.Error(err))
		return
	}
	q.log.Debug("markers saved", zap.String("hash", payload.Hash), zap.Int("count", len(payload.Markers)))
}

// Drain ждёт обработки всех поставленных сообщений.
func (q *SaveQueue) Drain() {
	q.pending.Wait()
}

// Close перестаёт принимать сообщения, дожидается уже поставленных
// и снимает подписку.
func (q *SaveQueue) Close() error {
	q.mu.Lock()
	q.running = false
	cancel := q.cancel
	q.mu.Unlock()

	q.pending.Wait()
	if cancel != nil {
		cancel()
	}
	return q.pubSub.Close()
}
